package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ObserverStatus is the state of the observer's halt/active machine
type ObserverStatus string

const (
	StatusActive ObserverStatus = "ACTIVE"
	StatusHalted ObserverStatus = "HALTED"
)

// IsValid checks if the observer status value is valid
func (s ObserverStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusHalted:
		return true
	}
	return false
}

// Severity ranks how serious a rule violation is
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// IsValid checks if the severity value is valid
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium:
		return true
	}
	return false
}

// Violation is a single detected breach of a workflow rule.
// Violations are immutable once recorded.
type Violation struct {
	Rule      string    `json:"rule"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks if the violation has valid field values
func (v *Violation) Validate() error {
	if v.Rule == "" {
		return fmt.Errorf("rule is required")
	}
	if !v.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", v.Severity)
	}
	return nil
}

// IsCritical reports whether the violation forces a halt
func (v *Violation) IsCritical() bool {
	return v.Severity == SeverityCritical
}

// Observation is a snapshot of one observer check
type Observation struct {
	Timestamp       time.Time   `json:"timestamp"`
	ViolationsFound int         `json:"violationsFound"`
	Violations      []Violation `json:"violations"`
}

// ObserverLog is the persisted state of the observer.
//
// Status is the single source of truth for the halt state. The "halted" field
// of the JSON document is derived from it on every encode, so the two can
// never disagree in a document written by this package.
type ObserverLog struct {
	Status       ObserverStatus
	HaltReason   string
	Violations   []Violation
	Observations []Observation
	LastCheck    *time.Time
	CreatedAt    time.Time
	LastUpdated  *time.Time
}

// NewObserverLog returns the log used on first access
func NewObserverLog(now time.Time) *ObserverLog {
	return &ObserverLog{
		Status:       StatusActive,
		Violations:   []Violation{},
		Observations: []Observation{},
		CreatedAt:    now,
	}
}

// Halted is derived from Status
func (l *ObserverLog) Halted() bool {
	return l.Status == StatusHalted
}

// SetHalted moves the log into the HALTED state with the given reason
func (l *ObserverLog) SetHalted(reason string) {
	l.Status = StatusHalted
	l.HaltReason = reason
}

// SetActive moves the log into the ACTIVE state and clears the halt reason
func (l *ObserverLog) SetActive() {
	l.Status = StatusActive
	l.HaltReason = ""
}

// Validate checks if the log has valid field values
func (l *ObserverLog) Validate() error {
	if !l.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", l.Status)
	}
	if l.Status == StatusActive && l.HaltReason != "" {
		return fmt.Errorf("halt reason set on an active log")
	}
	for i := range l.Violations {
		if err := l.Violations[i].Validate(); err != nil {
			return fmt.Errorf("violation %d: %w", i, err)
		}
	}
	return nil
}

// observerLogWire is the on-disk shape of ObserverLog
type observerLogWire struct {
	Status       ObserverStatus `json:"status"`
	Halted       bool           `json:"halted"`
	HaltReason   *string        `json:"haltReason"`
	Violations   []Violation    `json:"violations"`
	Observations []Observation  `json:"observations"`
	LastCheck    *time.Time     `json:"lastCheck"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastUpdated  *time.Time     `json:"lastUpdated,omitempty"`
}

// MarshalJSON writes the document with "halted" derived from Status
func (l ObserverLog) MarshalJSON() ([]byte, error) {
	w := observerLogWire{
		Status:       l.Status,
		Halted:       l.Halted(),
		Violations:   l.Violations,
		Observations: l.Observations,
		LastCheck:    l.LastCheck,
		CreatedAt:    l.CreatedAt,
		LastUpdated:  l.LastUpdated,
	}
	if l.HaltReason != "" {
		reason := l.HaltReason
		w.HaltReason = &reason
	}
	if w.Violations == nil {
		w.Violations = []Violation{}
	}
	if w.Observations == nil {
		w.Observations = []Observation{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the document strictly. The stored "halted" flag is
// ignored; Status decides.
func (l *ObserverLog) UnmarshalJSON(data []byte) error {
	var w observerLogWire
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return fmt.Errorf("%w: observer log: %v", ErrMalformedInput, err)
	}

	*l = ObserverLog{
		Status:       w.Status,
		Violations:   w.Violations,
		Observations: w.Observations,
		LastCheck:    w.LastCheck,
		CreatedAt:    w.CreatedAt,
		LastUpdated:  w.LastUpdated,
	}
	if l.Status == StatusHalted && w.HaltReason != nil {
		l.HaltReason = *w.HaltReason
	}
	if l.Violations == nil {
		l.Violations = []Violation{}
	}
	if l.Observations == nil {
		l.Observations = []Observation{}
	}
	return nil
}
