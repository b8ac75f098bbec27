// Package learner records knowledge-capture attempts for completed tasks.
// The caller runs the capture steps and reports their outcomes here.
package learner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/steveyegge/brain/internal/events"
	"github.com/steveyegge/brain/internal/storage"
	"github.com/steveyegge/brain/internal/types"
)

const component = "learner"

// Outcome of a Record call
const (
	StatusLearned  = "learned"
	StatusPartial  = "partial"
	StatusDisabled = "disabled"
)

// Learner owns the learner log document
type Learner struct {
	mu sync.Mutex

	store     storage.Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Deps holds dependencies for creating a Learner
type Deps struct {
	Store     storage.Store
	Publisher events.Publisher
	Logger    *slog.Logger
	Now       func() time.Time
}

// New creates a learner
func New(deps *Deps) (*Learner, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	l := &Learner{store: deps.Store, publisher: deps.Publisher, logger: deps.Logger, now: deps.Now}
	if l.publisher == nil {
		l.publisher = events.Nop{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l, nil
}

func (l *Learner) load(ctx context.Context) (*types.LearnerLog, error) {
	return storage.Get(ctx, l.store, storage.KeyLearnerLog, func() *types.LearnerLog {
		return types.NewLearnerLog(l.now())
	})
}

func (l *Learner) save(ctx context.Context, doc *types.LearnerLog, now time.Time) error {
	doc.TotalLearnings = len(doc.Learnings)
	doc.LastUpdated = &now
	if err := storage.Put(ctx, l.store, storage.KeyLearnerLog, doc); err != nil {
		return fmt.Errorf("saving learner log: %w", err)
	}
	return nil
}

// ParseStep parses "name=status" or "name=status:error"
func ParseStep(s string) (types.LearningStep, error) {
	name, rest, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return types.LearningStep{}, fmt.Errorf("%w: step must look like name=status (got %q)", types.ErrInvalidInput, s)
	}
	status, errText, _ := strings.Cut(rest, ":")
	step := types.LearningStep{
		Step:   strings.TrimSpace(name),
		Status: types.StepStatus(strings.ToLower(strings.TrimSpace(status))),
		Error:  strings.TrimSpace(errText),
	}
	if !step.Status.IsValid() {
		return types.LearningStep{}, fmt.Errorf("%w: step status must be success, skipped or failed (got %q)", types.ErrInvalidInput, status)
	}
	return step, nil
}

// Result reports what Record did
type Result struct {
	Status      string               `json:"status"`
	Description string               `json:"description"`
	Steps       []types.LearningStep `json:"steps,omitempty"`
	Message     string               `json:"message,omitempty"`
}

// Record stores a learning attempt. It succeeds when every step succeeded
// or was skipped. Nothing is written while auto-learn is disabled.
func (l *Learner) Record(ctx context.Context, description string, steps []types.LearningStep) (*Result, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", types.ErrInvalidInput)
	}
	for _, s := range steps {
		if s.Step == "" {
			return nil, fmt.Errorf("%w: step name is required", types.ErrInvalidInput)
		}
		if !s.Status.IsValid() {
			return nil, fmt.Errorf("%w: step %q has invalid status %q", types.ErrInvalidInput, s.Step, s.Status)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	if !doc.AutoLearnEnabled {
		return &Result{Status: StatusDisabled, Description: description, Message: "Auto-learning is disabled"}, nil
	}

	success := true
	for _, s := range steps {
		if s.Status == types.StepFailed {
			success = false
			break
		}
	}

	now := l.now()
	recorded := append([]types.LearningStep{}, steps...)
	doc.Learnings = append(doc.Learnings, types.LearningRecord{
		Description: description,
		Timestamp:   now,
		Success:     success,
		Steps:       recorded,
	})
	if err := l.save(ctx, doc, now); err != nil {
		return nil, err
	}

	status, sev := StatusLearned, events.SeverityInfo
	if !success {
		status, sev = StatusPartial, events.SeverityWarning
	}
	events.Emit(ctx, l.publisher, l.logger, events.New(now, events.EventTypeLearningRecorded, component, sev,
		description, map[string]interface{}{"status": status, "steps": len(recorded)}))

	return &Result{Status: status, Description: description, Steps: recorded}, nil
}

// SetAutoLearn enables or disables recording
func (l *Learner) SetAutoLearn(ctx context.Context, enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.load(ctx)
	if err != nil {
		return err
	}
	doc.AutoLearnEnabled = enabled
	return l.save(ctx, doc, l.now())
}

// Stats summarizes the learner log
type Stats struct {
	TotalLearnings      int        `json:"totalLearnings"`
	SuccessfulLearnings int        `json:"successfulLearnings"`
	AutoLearnEnabled    bool       `json:"autoLearnEnabled"`
	LastUpdated         *time.Time `json:"lastUpdated"`
}

// Stats returns learning counts
func (l *Learner) Stats(ctx context.Context) (*Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	doc, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		TotalLearnings:   len(doc.Learnings),
		AutoLearnEnabled: doc.AutoLearnEnabled,
		LastUpdated:      doc.LastUpdated,
	}
	for _, rec := range doc.Learnings {
		if rec.Success {
			s.SuccessfulLearnings++
		}
	}
	return s, nil
}
