// Package workflow reads the externally owned sprint state records that the
// observer scans for rule violations.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/steveyegge/brain/internal/types"
)

// StateFileName is the per-sprint workflow state record
const StateFileName = ".brain-state.json"

// Unit is one scanned workflow-state record.
// When the record could not be read or parsed, Err is set and State is empty.
type Unit struct {
	Name  string
	Path  string
	State types.WorkflowState
	Err   error
}

// Source supplies the units the observer scans
type Source interface {
	Units(ctx context.Context) ([]Unit, error)
}

// SprintSource walks <Dir>/sprint-*/.brain-state.json
type SprintSource struct {
	Dir string
}

// NewSprintSource creates a source over the sprints directory
func NewSprintSource(dir string) *SprintSource {
	return &SprintSource{Dir: dir}
}

// Units returns one unit per sprint directory that has a state record, in
// directory-name order. A missing sprints directory yields no units.
func (s *SprintSource) Units(ctx context.Context) ([]Unit, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sprints directory %s: %w", s.Dir, err)
	}

	var units []Unit
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return units, err
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "sprint-") {
			continue
		}

		path := filepath.Join(s.Dir, entry.Name(), StateFileName)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		unit := Unit{Name: entry.Name(), Path: path}
		switch {
		case err != nil:
			unit.Err = fmt.Errorf("%w: reading %s: %v", types.ErrMalformedInput, path, err)
		default:
			// Foreign record: extra fields are tolerated
			if err := json.Unmarshal(data, &unit.State); err != nil {
				unit.Err = fmt.Errorf("%w: parsing %s: %v", types.ErrMalformedInput, path, err)
			}
		}
		units = append(units, unit)
	}
	return units, nil
}

// StaticSource serves a fixed set of units
type StaticSource []Unit

// Units returns the fixed units
func (s StaticSource) Units(context.Context) ([]Unit, error) {
	return s, nil
}

// Phase builds a unit with the given current state
func Phase(name string, phase types.Phase) Unit {
	return Unit{Name: name, State: types.WorkflowState{CurrentState: phase}}
}
