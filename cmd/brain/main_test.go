package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/brain/internal/observer"
	"github.com/steveyegge/brain/internal/storage"
	"github.com/steveyegge/brain/internal/types"
	"github.com/steveyegge/brain/internal/workflow"
)

func TestParseScores(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]float64
		wantErr bool
	}{
		{"single", []string{"clarity=7"}, map[string]float64{"clarity": 7}, false},
		{"several", []string{"clarity=7", " detail = 4.5"}, map[string]float64{"clarity": 7, "detail": 4.5}, false},
		{"missing equals", []string{"clarity"}, nil, true},
		{"missing name", []string{"=7"}, nil, true},
		{"not a number", []string{"clarity=good"}, nil, true},
		{"duplicate", []string{"clarity=7", "clarity=8"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScores(tt.args)
			if tt.wantErr {
				assert.True(t, errors.Is(err, types.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommandTree(t *testing.T) {
	want := map[string][]string{
		"observer": {"check", "halt", "resume", "status", "watch"},
		"improve":  {"analyze", "apply", "plan", "stats"},
		"abtest":   {"compare", "create", "list", "select", "stats", "update"},
		"judge":    {"record", "stats", "threshold"},
		"learn":    {"disable", "enable", "record", "stats"},
	}
	for group, subs := range want {
		cmd, _, err := rootCmd.Find([]string{group})
		require.NoError(t, err, group)
		var names []string
		for _, c := range cmd.Commands() {
			names = append(names, c.Name())
		}
		assert.Equal(t, subs, names, group)
	}
}

func TestGlobalFlags(t *testing.T) {
	for _, name := range []string{"config", "json", "force"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRunCleanupsReverseOrder(t *testing.T) {
	var order []int
	cleanups = []func(){
		func() { order = append(order, 1) },
		func() { order = append(order, 2) },
	}
	runCleanups()
	assert.Equal(t, []int{2, 1}, order)
	assert.Nil(t, cleanups)
}

func TestGuardActive(t *testing.T) {
	tests := []struct {
		name    string
		halted  bool
		guarded bool
		force   bool
		wantErr bool
	}{
		{"halted guarded command is refused", true, true, false, true},
		{"halted with force is allowed", true, true, true, false},
		{"halted operator command is allowed", true, false, false, false},
		{"active guarded command is allowed", false, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			obs, err := observer.New(&observer.Deps{Store: storage.NewMemory(), Source: workflow.StaticSource{}})
			require.NoError(t, err)
			if tt.halted {
				_, err := obs.Halt(ctx, "stop")
				require.NoError(t, err)
			}

			err = guardActive(ctx, obs, tt.guarded, tt.force)
			if tt.wantErr {
				assert.True(t, errors.Is(err, observer.ErrHalted), "got %v", err)
				assert.True(t, errors.Is(err, types.ErrPrecondition))
				return
			}
			assert.NoError(t, err)
		})
	}
}
