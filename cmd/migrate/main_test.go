package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAction(t *testing.T) {
	tests := []struct {
		name    string
		opts    options
		want    action
		wantErr bool
	}{
		{"none", options{force: -1}, actionNone, true},
		{"up", options{up: true, force: -1}, actionUp, false},
		{"down", options{down: true, force: -1}, actionDown, false},
		{"negative steps", options{steps: -2, force: -1}, actionSteps, false},
		{"version", options{version: true, force: -1}, actionVersion, false},
		{"force zero", options{force: 0}, actionForce, false},
		{"two actions", options{up: true, version: true, force: -1}, actionVersion, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveAction(tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				if tt.want == actionNone {
					assert.Equal(t, actionNone, got)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
