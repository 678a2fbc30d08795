// Package repository is the relational store adapter for research papers.
//
// # Overview
//
// Papers live in a normalized PostgreSQL schema: papers reference journals
// and sources by id, and authors are linked through the ordered
// paper_authors association. Reads aggregate the author names of a paper into
// one string (see normalize.AuthorSeparator) and convert rows to the
// canonical domain.Paper through the normalize package.
//
// # Query Construction
//
// Every dynamic statement is built with squirrel using dollar placeholders.
// User input is always bound as a parameter and never concatenated into SQL;
// LIKE wildcards in user input are escaped before binding.
//
// # Error Handling
//
// Methods return errors from the domain package:
//
//   - domain.ErrNotFound: the paper, author or user does not exist
//   - domain.ErrAlreadyExists: unique constraint violation
//   - domain.ErrInvalidInput: invalid parameters, checked before any query runs,
//     or a row rejected by a constraint or data check (SQLSTATE classes 22, 23)
//   - domain.ErrServiceUnavailable: any other driver failure, wrapped in
//     domain.StoreUnavailableError with the relational store and operation
//
// # Transactions
//
// Writes touching more than one table run inside database.WithTransaction.
// Repositories accept DBTX so they can be built over a pool or a transaction.
//
//	db, _ := database.New(ctx, cfg, logger)
//	papers := repository.NewPgPaperRepository(db)
//	users := repository.NewPgUserRepository(db)
package repository

import (
	"errors"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/database"
	"github.com/PROFESSOR-DJ/DBMS-Backend/internal/domain"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// psql builds PostgreSQL statements with $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// containsPattern matches s anywhere in a column.
func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}

// prefixPattern matches columns starting with s.
func prefixPattern(s string) string {
	return escapeLike(s) + "%"
}

// Constraint and data-exception classes reject the row, not the connection.
const (
	pgClassDataException       = "22"
	pgClassIntegrityConstraint = "23"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// rejectedRow converts a constraint or data-exception error into a
// validation error. It returns nil for any other error.
func rejectedRow(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || len(pgErr.Code) < 2 {
		return nil
	}
	switch pgErr.Code[:2] {
	case pgClassDataException, pgClassIntegrityConstraint:
	default:
		return nil
	}
	field := pgErr.ColumnName
	if field == "" {
		field = pgErr.ConstraintName
	}
	if field == "" {
		field = "record"
	}
	return domain.NewValidationError(field, pgErr.Message)
}

// storeError passes domain errors through, maps rejected rows to validation
// errors and wraps everything else as an unavailable relational store.
func storeError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrAlreadyExists) ||
		errors.Is(err, domain.ErrInvalidInput) {
		return err
	}
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if rejected := rejectedRow(err); rejected != nil {
		return rejected
	}
	return domain.NewStoreUnavailableError(domain.StoreRelational, operation, err)
}
