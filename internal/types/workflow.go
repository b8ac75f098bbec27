package types

// Phase is a workflow state declared by a sprint
type Phase string

const (
	PhaseIdle          Phase = "IDLE"
	PhasePlanning      Phase = "PLANNING"
	PhasePlanApproval  Phase = "PLAN_APPROVAL"
	PhaseDesigning     Phase = "DESIGNING"
	PhaseDesignReview  Phase = "DESIGN_REVIEW"
	PhaseDevelopment   Phase = "DEVELOPMENT"
	PhaseTesting       Phase = "TESTING"
	PhaseBugFixing     Phase = "BUG_FIXING"
	PhaseDeployment    Phase = "DEPLOYMENT"
	PhaseReporting     Phase = "REPORTING"
	PhaseFinalReview   Phase = "FINAL_REVIEW"
	PhaseFinalApproval Phase = "FINAL_APPROVAL"
	PhaseComplete      Phase = "COMPLETE"
)

// Phases lists every valid phase in workflow order
func Phases() []Phase {
	return []Phase{
		PhaseIdle, PhasePlanning, PhasePlanApproval, PhaseDesigning,
		PhaseDesignReview, PhaseDevelopment, PhaseTesting, PhaseBugFixing,
		PhaseDeployment, PhaseReporting, PhaseFinalReview, PhaseFinalApproval,
		PhaseComplete,
	}
}

// IsValid checks if the phase is one of the enumerated workflow phases
func (p Phase) IsValid() bool {
	for _, valid := range Phases() {
		if p == valid {
			return true
		}
	}
	return false
}

// WorkflowState is the externally owned state record of one sprint.
// Only CurrentState is read; other fields of the record are ignored.
type WorkflowState struct {
	CurrentState Phase `json:"currentState"`
}
