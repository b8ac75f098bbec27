// Package rules holds the static catalog of workflow invariants the observer
// enforces.
package rules

import "github.com/steveyegge/brain/internal/types"

// Rule names
const (
	PhaseOrder       = "PHASE_ORDER"
	ApprovalGate     = "APPROVAL_GATE"
	ArtifactRequired = "ARTIFACT_REQUIRED"
	ReportRequired   = "REPORT_REQUIRED"
	ScopeCreep       = "SCOPE_CREEP"

	// ManualHalt is recorded by an operator halt. It is not part of the catalog.
	ManualHalt = "MANUAL_HALT"
)

// Rule is a named workflow invariant
type Rule struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Severity    types.Severity `json:"severity"`
}

var catalog = []Rule{
	{PhaseOrder, "Phases must execute in order", types.SeverityCritical},
	{ApprovalGate, "Approval gates must be respected", types.SeverityCritical},
	{ArtifactRequired, "Required artifacts must exist", types.SeverityHigh},
	{ReportRequired, "Every action must have a report", types.SeverityMedium},
	{ScopeCreep, "No features outside approved plan", types.SeverityHigh},
}

// Catalog returns a copy of the rule table in declaration order
func Catalog() []Rule {
	out := make([]Rule, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the rule with the given name. MANUAL_HALT resolves to a
// critical pseudo-rule.
func Lookup(name string) (Rule, bool) {
	if name == ManualHalt {
		return Rule{Name: ManualHalt, Description: "Operator halted the workflow", Severity: types.SeverityCritical}, true
	}
	for _, r := range catalog {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// IsKnown reports whether name is a catalog rule or MANUAL_HALT
func IsKnown(name string) bool {
	_, ok := Lookup(name)
	return ok
}
