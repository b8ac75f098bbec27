package types

import (
	"fmt"
	"time"
)

// ABTestStatus is the lifecycle state of an A/B test
type ABTestStatus string

const (
	ABTestPending        ABTestStatus = "PENDING"
	ABTestReadyToCompare ABTestStatus = "READY_TO_COMPARE"
	ABTestCompleted      ABTestStatus = "COMPLETED"
)

// IsValid checks if the A/B test status value is valid
func (s ABTestStatus) IsValid() bool {
	switch s {
	case ABTestPending, ABTestReadyToCompare, ABTestCompleted:
		return true
	}
	return false
}

// Option names one side of an A/B test
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
)

// IsValid checks if the option value is valid
func (o Option) IsValid() bool {
	return o == OptionA || o == OptionB
}

// ABOption is one candidate approach in an A/B test
type ABOption struct {
	Description string `json:"description"`
	Implemented bool   `json:"implemented"`
	Score       *int   `json:"score"`
}

// ABTest compares two approaches to a small task
type ABTest struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	Status      ABTestStatus `json:"status"`
	OptionA     ABOption     `json:"optionA"`
	OptionB     ABOption     `json:"optionB"`
	Winner      *Option      `json:"winner"`
	WinReason   string       `json:"winReason,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// Validate checks if the test has valid field values
func (t *ABTest) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("test %s: invalid status: %s", t.ID, t.Status)
	}
	if t.Winner != nil && !t.Winner.IsValid() {
		return fmt.Errorf("test %s: invalid winner: %s", t.ID, *t.Winner)
	}
	return nil
}

// WonBy reports whether the test completed with the given winner
func (t *ABTest) WonBy(o Option) bool {
	return t.Status == ABTestCompleted && t.Winner != nil && *t.Winner == o
}

// ABTestLog is the A/B test document
type ABTestLog struct {
	Tests       []ABTest   `json:"tests"`
	TotalTests  int        `json:"totalTests"`
	OptionAWins int        `json:"optionAWins"`
	OptionBWins int        `json:"optionBWins"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// NewABTestLog returns the A/B test document used on first access
func NewABTestLog(now time.Time) *ABTestLog {
	return &ABTestLog{Tests: []ABTest{}, CreatedAt: now}
}

// Validate checks every stored test
func (l *ABTestLog) Validate() error {
	for i := range l.Tests {
		if err := l.Tests[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FindTest returns the index of the test with the given id, or -1
func (l *ABTestLog) FindTest(id string) int {
	for i := range l.Tests {
		if l.Tests[i].ID == id {
			return i
		}
	}
	return -1
}

// JudgeScore is the quality verdict for one report
type JudgeScore struct {
	Report     string             `json:"report"`
	FinalScore float64            `json:"finalScore"`
	Passed     bool               `json:"passed"`
	Scores     map[string]float64 `json:"scores"`
	Timestamp  time.Time          `json:"timestamp"`
}

// Validate checks that every score is on the 0-10 scale
func (s *JudgeScore) Validate() error {
	if s.FinalScore < 0 || s.FinalScore > 10 {
		return fmt.Errorf("final score must be between 0 and 10 (got %.1f)", s.FinalScore)
	}
	for category, score := range s.Scores {
		if score < 0 || score > 10 {
			return fmt.Errorf("score for %q must be between 0 and 10 (got %.1f)", category, score)
		}
	}
	return nil
}

// DefaultPassThreshold is the judge's initial pass mark
const DefaultPassThreshold = 6.0

// ScoreLog is the judge document
type ScoreLog struct {
	Scores        []JudgeScore `json:"scores"`
	PassThreshold float64      `json:"passThreshold"`
	CreatedAt     time.Time    `json:"createdAt"`
	LastUpdated   *time.Time   `json:"lastUpdated,omitempty"`
}

// NewScoreLog returns the judge document used on first access
func NewScoreLog(now time.Time) *ScoreLog {
	return &ScoreLog{
		Scores:        []JudgeScore{},
		PassThreshold: DefaultPassThreshold,
		CreatedAt:     now,
	}
}

// Validate checks the threshold and every stored score
func (l *ScoreLog) Validate() error {
	if l.PassThreshold < 0 || l.PassThreshold > 10 {
		return fmt.Errorf("pass threshold must be between 0 and 10 (got %.1f)", l.PassThreshold)
	}
	for i := range l.Scores {
		if err := l.Scores[i].Validate(); err != nil {
			return fmt.Errorf("score %d: %w", i, err)
		}
	}
	return nil
}

// StepStatus is the outcome of one learning step
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

// IsValid checks if the step status value is valid
func (s StepStatus) IsValid() bool {
	switch s {
	case StepSuccess, StepSkipped, StepFailed:
		return true
	}
	return false
}

// LearningStep is one stage of knowledge capture (index update, graph sync...)
type LearningStep struct {
	Step   string     `json:"step"`
	Status StepStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
}

// LearningRecord is one knowledge-capture attempt for a completed task
type LearningRecord struct {
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	Success     bool           `json:"success"`
	Steps       []LearningStep `json:"steps"`
}

// LearnerLog is the learner document
type LearnerLog struct {
	Learnings        []LearningRecord `json:"learnings"`
	TotalLearnings   int              `json:"totalLearnings"`
	AutoLearnEnabled bool             `json:"autoLearnEnabled"`
	CreatedAt        time.Time        `json:"createdAt"`
	LastUpdated      *time.Time       `json:"lastUpdated,omitempty"`
}

// NewLearnerLog returns the learner document used on first access
func NewLearnerLog(now time.Time) *LearnerLog {
	return &LearnerLog{
		Learnings:        []LearningRecord{},
		AutoLearnEnabled: true,
		CreatedAt:        now,
	}
}

// Validate checks every stored learning step
func (l *LearnerLog) Validate() error {
	for i := range l.Learnings {
		for _, step := range l.Learnings[i].Steps {
			if !step.Status.IsValid() {
				return fmt.Errorf("learning %d: step %q: invalid status: %s", i, step.Step, step.Status)
			}
		}
	}
	return nil
}
