// Package observer implements the workflow observer: an ACTIVE/HALTED state
// machine that scans workflow state for rule violations and halts automated
// work when a critical rule is broken.
package observer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/steveyegge/brain/internal/events"
	"github.com/steveyegge/brain/internal/rules"
	"github.com/steveyegge/brain/internal/storage"
	"github.com/steveyegge/brain/internal/types"
	"github.com/steveyegge/brain/internal/workflow"
)

const component = "observer"

// ErrHalted is returned by RequireActive while the observer is halted
var ErrHalted = fmt.Errorf("workflow halted by observer: %w", types.ErrPrecondition)

// Observer watches workflow state and owns the observer log document
type Observer struct {
	mu sync.Mutex

	store     storage.Store
	source    workflow.Source
	registry  *Registry
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Deps holds dependencies for creating an Observer
type Deps struct {
	Store     storage.Store
	Source    workflow.Source
	Registry  *Registry        // Default: DefaultRegistry
	Publisher events.Publisher // Default: events.Nop
	Logger    *slog.Logger     // Default: slog.Default()
	Now       func() time.Time // Default: time.Now
}

// New creates an observer
func New(deps *Deps) (*Observer, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Source == nil {
		return nil, fmt.Errorf("source is required")
	}

	o := &Observer{
		store:     deps.Store,
		source:    deps.Source,
		registry:  deps.Registry,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		now:       deps.Now,
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = DefaultRegistry(o.logger)
	}
	if o.publisher == nil {
		o.publisher = events.Nop{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// ObserveResult reports the outcome of one observation
type ObserveResult struct {
	Status             types.ObserverStatus `json:"status"`
	ViolationsFound    int                  `json:"violationsFound"`
	CriticalViolations int                  `json:"criticalViolations"`
	Halted             bool                 `json:"halted"`
	HaltReason         string               `json:"haltReason,omitempty"`
	Violations         []types.Violation    `json:"violations"`

	// Skipped is true when the observer was already halted and did not scan
	Skipped bool `json:"skipped,omitempty"`
}

// StatusReport is a read-only view of the observer log
type StatusReport struct {
	Status            types.ObserverStatus `json:"status"`
	Halted            bool                 `json:"halted"`
	HaltReason        string               `json:"haltReason,omitempty"`
	TotalViolations   int                  `json:"totalViolations"`
	TotalObservations int                  `json:"totalObservations"`
	LastCheck         *time.Time           `json:"lastCheck"`
}

func (o *Observer) load(ctx context.Context) (*types.ObserverLog, error) {
	return storage.Get(ctx, o.store, storage.KeyObserverLog, func() *types.ObserverLog {
		return types.NewObserverLog(o.now())
	})
}

func (o *Observer) save(ctx context.Context, log *types.ObserverLog, now time.Time) error {
	log.LastUpdated = &now
	if err := storage.Put(ctx, o.store, storage.KeyObserverLog, log); err != nil {
		return fmt.Errorf("saving observer log: %w", err)
	}
	return nil
}

// Observe scans the workflow for violations. When halted it returns the
// halted status without scanning or writing anything. Any critical violation
// halts the observer with the first critical violation's message as reason.
func (o *Observer) Observe(ctx context.Context) (*ObserveResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	log, err := o.load(ctx)
	if err != nil {
		return nil, err
	}

	if log.Halted() {
		return &ObserveResult{
			Status:     log.Status,
			Halted:     true,
			HaltReason: log.HaltReason,
			Violations: []types.Violation{},
			Skipped:    true,
		}, nil
	}

	found := o.scan(ctx)
	now := o.now()

	var firstCritical *types.Violation
	critical := 0
	for i := range found {
		found[i].Timestamp = now
		if found[i].IsCritical() {
			critical++
			if firstCritical == nil {
				firstCritical = &found[i]
			}
		}
	}

	log.Observations = append(log.Observations, types.Observation{
		Timestamp:       now,
		ViolationsFound: len(found),
		Violations:      append([]types.Violation{}, found...),
	})
	log.LastCheck = &now
	if firstCritical != nil {
		log.SetHalted(firstCritical.Message)
	}
	log.Violations = append(log.Violations, found...)

	if err := o.save(ctx, log, now); err != nil {
		return nil, err
	}

	for _, v := range found {
		sev := events.SeverityWarning
		if v.IsCritical() {
			sev = events.SeverityCritical
		}
		o.emit(ctx, events.New(now, events.EventTypeViolation, component, sev, v.Message,
			map[string]interface{}{"rule": v.Rule, "severity": string(v.Severity)}))
	}
	o.emit(ctx, events.New(now, events.EventTypeObservation, component, events.SeverityInfo,
		fmt.Sprintf("observation found %d violations", len(found)),
		map[string]interface{}{"violations_found": len(found), "critical": critical}))
	if firstCritical != nil {
		o.emit(ctx, events.New(now, events.EventTypeHalted, component, events.SeverityCritical, log.HaltReason, nil))
	}

	return &ObserveResult{
		Status:             log.Status,
		ViolationsFound:    len(found),
		CriticalViolations: critical,
		Halted:             log.Halted(),
		HaltReason:         log.HaltReason,
		Violations:         found,
	}, nil
}

// scan runs every registered scanner. Source and scanner failures are logged
// and treated as empty results.
func (o *Observer) scan(ctx context.Context) []types.Violation {
	units, err := o.source.Units(ctx)
	if err != nil {
		o.logger.Warn("workflow source failed, scanning no units", "error", err)
		units = nil
	}

	found := []types.Violation{}
	for _, s := range o.registry.Scanners() {
		vs, err := s.Scan(ctx, units)
		if err != nil {
			o.logger.Warn("scanner failed", "scanner", s.Name(), "error", err)
			continue
		}
		for _, v := range vs {
			if v.Rule == "" {
				v.Rule = s.Rule()
			}
			if v.Severity == "" {
				if r, ok := rules.Lookup(v.Rule); ok {
					v.Severity = r.Severity
				}
			}
			if err := v.Validate(); err != nil {
				o.logger.Warn("dropping invalid violation", "scanner", s.Name(), "error", err)
				continue
			}
			found = append(found, v)
		}
	}
	return found
}

// Halt moves the observer to HALTED and records a MANUAL_HALT violation
func (o *Observer) Halt(ctx context.Context, reason string) (*StatusReport, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: halt reason is required", types.ErrInvalidInput)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	log, err := o.load(ctx)
	if err != nil {
		return nil, err
	}

	now := o.now()
	log.SetHalted(reason)
	log.Violations = append(log.Violations, types.Violation{
		Rule:      rules.ManualHalt,
		Message:   reason,
		Severity:  types.SeverityCritical,
		Timestamp: now,
	})

	if err := o.save(ctx, log, now); err != nil {
		return nil, err
	}
	o.emit(ctx, events.New(now, events.EventTypeHalted, component, events.SeverityCritical, reason,
		map[string]interface{}{"rule": rules.ManualHalt}))

	return report(log), nil
}

// Resume moves the observer to ACTIVE and clears the halt reason.
// History is kept. Resuming an active observer is a no-op apart from the
// lastUpdated timestamp.
func (o *Observer) Resume(ctx context.Context) (*StatusReport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	log, err := o.load(ctx)
	if err != nil {
		return nil, err
	}

	wasHalted := log.Halted()
	now := o.now()
	log.SetActive()

	if err := o.save(ctx, log, now); err != nil {
		return nil, err
	}
	if wasHalted {
		o.emit(ctx, events.New(now, events.EventTypeResumed, component, events.SeverityInfo, "observer resumed", nil))
	}

	return report(log), nil
}

// Status returns the current state without writing anything
func (o *Observer) Status(ctx context.Context) (*StatusReport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	log, err := o.load(ctx)
	if err != nil {
		return nil, err
	}
	return report(log), nil
}

// Violations returns up to limit of the most recent violations, oldest first.
// limit <= 0 returns all of them.
func (o *Observer) Violations(ctx context.Context, limit int) ([]types.Violation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	log, err := o.load(ctx)
	if err != nil {
		return nil, err
	}
	vs := log.Violations
	if limit > 0 && len(vs) > limit {
		vs = vs[len(vs)-limit:]
	}
	return vs, nil
}

// RequireActive returns ErrHalted while the observer is halted
func (o *Observer) RequireActive(ctx context.Context) error {
	st, err := o.Status(ctx)
	if err != nil {
		return err
	}
	if st.Halted {
		return fmt.Errorf("%w: %s", ErrHalted, st.HaltReason)
	}
	return nil
}

func (o *Observer) emit(ctx context.Context, e *events.Event) {
	events.Emit(ctx, o.publisher, o.logger, e)
}

func report(log *types.ObserverLog) *StatusReport {
	return &StatusReport{
		Status:            log.Status,
		Halted:            log.Halted(),
		HaltReason:        log.HaltReason,
		TotalViolations:   len(log.Violations),
		TotalObservations: len(log.Observations),
		LastCheck:         log.LastCheck,
	}
}
