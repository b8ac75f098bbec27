// Package judge records quality scores for workflow reports.
package judge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/steveyegge/brain/internal/events"
	"github.com/steveyegge/brain/internal/storage"
	"github.com/steveyegge/brain/internal/types"
)

const component = "judge"

// Judge owns the score document
type Judge struct {
	mu sync.Mutex

	store     storage.Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Deps holds dependencies for creating a Judge
type Deps struct {
	Store     storage.Store
	Publisher events.Publisher
	Logger    *slog.Logger
	Now       func() time.Time
}

// New creates a judge
func New(deps *Deps) (*Judge, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	j := &Judge{store: deps.Store, publisher: deps.Publisher, logger: deps.Logger, now: deps.Now}
	if j.publisher == nil {
		j.publisher = events.Nop{}
	}
	if j.logger == nil {
		j.logger = slog.Default()
	}
	if j.now == nil {
		j.now = time.Now
	}
	return j, nil
}

func (j *Judge) load(ctx context.Context) (*types.ScoreLog, error) {
	return storage.Get(ctx, j.store, storage.KeyScores, func() *types.ScoreLog {
		return types.NewScoreLog(j.now())
	})
}

func (j *Judge) save(ctx context.Context, doc *types.ScoreLog, now time.Time) error {
	doc.LastUpdated = &now
	if err := storage.Put(ctx, j.store, storage.KeyScores, doc); err != nil {
		return fmt.Errorf("saving scores: %w", err)
	}
	return nil
}

// Record scores a report. The final score is the mean of the category
// scores; the report passes when it reaches the pass threshold.
func (j *Judge) Record(ctx context.Context, report string, scores map[string]float64) (*types.JudgeScore, error) {
	report = strings.TrimSpace(report)
	if report == "" {
		return nil, fmt.Errorf("%w: report name is required", types.ErrInvalidInput)
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: at least one category score is required", types.ErrInvalidInput)
	}

	categories := make([]string, 0, len(scores))
	for c, s := range scores {
		if strings.TrimSpace(c) == "" {
			return nil, fmt.Errorf("%w: category name is required", types.ErrInvalidInput)
		}
		if s < 0 || s > 10 {
			return nil, fmt.Errorf("%w: score for %q must be between 0 and 10 (got %g)", types.ErrInvalidInput, c, s)
		}
		categories = append(categories, c)
	}
	// Fixed summation order keeps the mean reproducible
	sort.Strings(categories)

	var sum float64
	copied := make(map[string]float64, len(scores))
	for _, c := range categories {
		sum += scores[c]
		copied[c] = scores[c]
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	doc, err := j.load(ctx)
	if err != nil {
		return nil, err
	}

	now := j.now()
	final := sum / float64(len(categories))
	score := types.JudgeScore{
		Report:     report,
		FinalScore: final,
		Passed:     final >= doc.PassThreshold,
		Scores:     copied,
		Timestamp:  now,
	}
	doc.Scores = append(doc.Scores, score)

	if err := j.save(ctx, doc, now); err != nil {
		return nil, err
	}

	sev := events.SeverityInfo
	if !score.Passed {
		sev = events.SeverityWarning
	}
	events.Emit(ctx, j.publisher, j.logger, events.New(now, events.EventTypeScoreRecorded, component, sev,
		fmt.Sprintf("%s scored %.1f/10", report, final),
		map[string]interface{}{"report": report, "final_score": final, "passed": score.Passed}))

	return &score, nil
}

// SetThreshold changes the pass mark for future scores
func (j *Judge) SetThreshold(ctx context.Context, threshold float64) error {
	if threshold < 0 || threshold > 10 {
		return fmt.Errorf("%w: threshold must be between 0 and 10 (got %g)", types.ErrInvalidInput, threshold)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	doc, err := j.load(ctx)
	if err != nil {
		return err
	}
	doc.PassThreshold = threshold
	return j.save(ctx, doc, j.now())
}

// Stats summarizes recorded scores
type Stats struct {
	TotalScored   int     `json:"totalScored"`
	Passed        int     `json:"passed"`
	Failed        int     `json:"failed"`
	AverageScore  float64 `json:"averageScore"`
	PassThreshold float64 `json:"passThreshold"`
}

// Stats returns score counts and the average final score
func (j *Judge) Stats(ctx context.Context) (*Stats, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	doc, err := j.load(ctx)
	if err != nil {
		return nil, err
	}
	s := &Stats{TotalScored: len(doc.Scores), PassThreshold: doc.PassThreshold}
	var sum float64
	for _, sc := range doc.Scores {
		sum += sc.FinalScore
		if sc.Passed {
			s.Passed++
		}
	}
	s.Failed = s.TotalScored - s.Passed
	if s.TotalScored > 0 {
		s.AverageScore = sum / float64(s.TotalScored)
	}
	return s, nil
}
