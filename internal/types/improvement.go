package types

import (
	"fmt"
	"strings"
	"time"
)

// Insight is a finding derived from outcome history, with a suggested change
type Insight struct {
	Source     string `json:"source"`
	Finding    string `json:"finding"`
	Suggestion string `json:"suggestion"`
}

// Priority of an improvement action
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// IsValid checks if the priority value is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium:
		return true
	}
	return false
}

// PriorityFor returns high when the finding describes a repeated failure
func PriorityFor(finding string) Priority {
	if strings.Contains(strings.ToLower(finding), "consistently") {
		return PriorityHigh
	}
	return PriorityMedium
}

// ActionStatus is the state of a single improvement action
type ActionStatus string

const (
	ActionPending ActionStatus = "PENDING"
)

// Action is one concrete step of an improvement plan
type Action struct {
	ID       string       `json:"id"`
	Source   string       `json:"source"`
	Action   string       `json:"action"`
	Priority Priority     `json:"priority"`
	Status   ActionStatus `json:"status"`
}

// PlanStatus is the lifecycle state of an improvement plan
type PlanStatus string

const (
	PlanCreated PlanStatus = "CREATED"
	PlanApplied PlanStatus = "APPLIED"
)

// IsValid checks if the plan status value is valid
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanCreated, PlanApplied:
		return true
	}
	return false
}

// Plan is an improvement plan compiled from insights.
// It moves from CREATED to APPLIED exactly once.
type Plan struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	Status    PlanStatus `json:"status"`
	Insights  []Insight  `json:"insights"`
	Actions   []Action   `json:"actions"`
	Summary   string     `json:"summary"`
	AppliedAt *time.Time `json:"appliedAt,omitempty"`
}

// Validate checks if the plan has valid field values
func (p *Plan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", p.Status)
	}
	if len(p.Actions) != len(p.Insights) {
		return fmt.Errorf("plan %s has %d actions for %d insights", p.ID, len(p.Actions), len(p.Insights))
	}
	if p.Status == PlanApplied && p.AppliedAt == nil {
		return fmt.Errorf("plan %s is applied without an applied_at time", p.ID)
	}
	for i := range p.Actions {
		if !p.Actions[i].Priority.IsValid() {
			return fmt.Errorf("action %s: invalid priority: %s", p.Actions[i].ID, p.Actions[i].Priority)
		}
	}
	return nil
}

// ImprovementLog is the plan store document: every plan, the cumulative
// insight history and the applied-improvement counter.
type ImprovementLog struct {
	Plans               []Plan     `json:"plans"`
	Insights            []Insight  `json:"insights"`
	AppliedImprovements int        `json:"appliedImprovements"`
	CreatedAt           time.Time  `json:"createdAt"`
	LastUpdated         *time.Time `json:"lastUpdated,omitempty"`
}

// NewImprovementLog returns the plan store used on first access
func NewImprovementLog(now time.Time) *ImprovementLog {
	return &ImprovementLog{
		Plans:     []Plan{},
		Insights:  []Insight{},
		CreatedAt: now,
	}
}

// Validate checks every stored plan
func (l *ImprovementLog) Validate() error {
	if l.AppliedImprovements < 0 {
		return fmt.Errorf("applied improvements cannot be negative")
	}
	for i := range l.Plans {
		if err := l.Plans[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FindPlan returns the index of the plan with the given id, or -1
func (l *ImprovementLog) FindPlan(id string) int {
	for i := range l.Plans {
		if l.Plans[i].ID == id {
			return i
		}
	}
	return -1
}
