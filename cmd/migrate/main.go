// Package main provides a CLI tool for relational schema migrations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/config"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/database"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/observability"
)

type action int

const (
	actionNone action = iota
	actionUp
	actionDown
	actionSteps
	actionVersion
	actionForce
)

type options struct {
	up      bool
	down    bool
	steps   int
	version bool
	force   int
	path    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var opts options
	flag.BoolVar(&opts.up, "up", false, "Apply all pending migrations")
	flag.BoolVar(&opts.down, "down", false, "Roll back all migrations")
	flag.IntVar(&opts.steps, "steps", 0, "Apply N steps (positive=up, negative=down)")
	flag.BoolVar(&opts.version, "version", false, "Print the current schema version")
	flag.IntVar(&opts.force, "force", -1, "Force the schema version after a failed migration")
	flag.StringVar(&opts.path, "path", "", "Override the migrations directory")
	flag.Parse()

	act, err := resolveAction(opts)
	if err != nil {
		if act == actionNone {
			flag.Usage()
		}
		return err
	}

	// Only the relational settings are needed here.
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("load database config: %w", err)
	}

	logCfg := observability.DefaultLoggingConfig()
	logCfg.Format = "console"
	logger, logCloser, err := observability.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logCloser.Close()
	logger = logger.With().Str("component", "migrate").Logger()

	migrationDir := dbCfg.MigrationPath
	if opts.path != "" {
		migrationDir = opts.path
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, dbCfg, logger)
	if err != nil {
		return fmt.Errorf("connect to relational store: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, migrationDir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := apply(migrator, act, opts, logger); err != nil {
		return err
	}
	printVersion(migrator, logger)
	return nil
}

// resolveAction returns the single action selected by the flags.
func resolveAction(opts options) (action, error) {
	selected := actionNone
	count := 0
	pick := func(set bool, a action) {
		if set {
			selected = a
			count++
		}
	}
	pick(opts.up, actionUp)
	pick(opts.down, actionDown)
	pick(opts.steps != 0, actionSteps)
	pick(opts.version, actionVersion)
	pick(opts.force >= 0, actionForce)

	switch count {
	case 0:
		return actionNone, errors.New("no action specified: use one of -up, -down, -steps N, -version, -force V")
	case 1:
		return selected, nil
	default:
		return selected, errors.New("specify only one action at a time")
	}
}

func apply(m *database.Migrator, act action, opts options, logger zerolog.Logger) error {
	switch act {
	case actionUp:
		return m.Up()
	case actionDown:
		logger.Warn().Msg("rolling back all migrations")
		return m.Down()
	case actionSteps:
		return m.Steps(opts.steps)
	case actionForce:
		if err := m.Force(opts.force); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		return nil
	case actionVersion:
		return nil
	default:
		return errors.New("no action specified")
	}
}

func printVersion(m *database.Migrator, logger zerolog.Logger) {
	st, err := m.Status()
	if err != nil {
		logger.Warn().Err(err).Msg("could not determine schema version")
		return
	}
	event := logger.Info()
	if st.Dirty {
		event = logger.Warn()
	}
	event.Uint("version", st.Version).Bool("dirty", st.Dirty).Msg("current schema version")
}
