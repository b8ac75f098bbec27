package observer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/steveyegge/brain/internal/rules"
	"github.com/steveyegge/brain/internal/types"
	"github.com/steveyegge/brain/internal/workflow"
)

// Scanner detects violations of one rule across the scanned units.
// Scanners report facts only; the observer stamps timestamps and decides
// whether to halt.
type Scanner interface {
	// Name returns the unique identifier for this scanner
	Name() string

	// Rule returns the catalog rule this scanner enforces
	Rule() string

	// Scan examines the units and returns the violations found.
	// A unit that cannot be checked is skipped, not reported as an error.
	Scan(ctx context.Context, units []workflow.Unit) ([]types.Violation, error)
}

// Registry holds scanners in registration order
type Registry struct {
	mu       sync.RWMutex
	scanners []Scanner
	byName   map[string]Scanner
}

// NewRegistry creates an empty scanner registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Scanner)}
}

// DefaultRegistry returns a registry with the built-in scanners
func DefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry()
	// Cannot fail on an empty registry
	_ = r.Register(NewPhaseOrderScanner(logger))
	return r
}

// Register adds a scanner to the registry
func (r *Registry) Register(s Scanner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("scanner %q already registered", name)
	}
	if !rules.IsKnown(s.Rule()) {
		return fmt.Errorf("scanner %q enforces unknown rule %q", name, s.Rule())
	}

	r.byName[name] = s
	r.scanners = append(r.scanners, s)
	return nil
}

// Get returns a registered scanner by name
func (r *Registry) Get(name string) (Scanner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byName[name]
	return s, ok
}

// Scanners returns the registered scanners in registration order
func (r *Registry) Scanners() []Scanner {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Scanner, len(r.scanners))
	copy(out, r.scanners)
	return out
}

// PhaseOrderScanner checks that every unit declares a valid workflow phase
type PhaseOrderScanner struct {
	logger *slog.Logger
}

// NewPhaseOrderScanner creates the PHASE_ORDER scanner
func NewPhaseOrderScanner(logger *slog.Logger) *PhaseOrderScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &PhaseOrderScanner{logger: logger}
}

// Name implements Scanner
func (s *PhaseOrderScanner) Name() string { return "phase_order" }

// Rule implements Scanner
func (s *PhaseOrderScanner) Rule() string { return rules.PhaseOrder }

// Scan reports every unit whose current state is outside the phase set
func (s *PhaseOrderScanner) Scan(ctx context.Context, units []workflow.Unit) ([]types.Violation, error) {
	rule, _ := rules.Lookup(rules.PhaseOrder)

	var violations []types.Violation
	for _, unit := range units {
		if unit.Err != nil {
			s.logger.Warn("skipping malformed workflow state", "unit", unit.Name, "error", unit.Err)
			continue
		}

		phase := unit.State.CurrentState
		if phase.IsValid() {
			continue
		}

		shown := string(phase)
		if shown == "" {
			shown = "<none>"
		}
		violations = append(violations, types.Violation{
			Rule:     rule.Name,
			Message:  fmt.Sprintf("Invalid state: %s (%s)", shown, unit.Name),
			Severity: rule.Severity,
		})
	}
	return violations, nil
}
