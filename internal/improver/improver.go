// Package improver turns accumulated outcome history into insights and
// improvement plans.
package improver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/brain/internal/events"
	"github.com/steveyegge/brain/internal/storage"
	"github.com/steveyegge/brain/internal/types"
)

const component = "improver"

// Insight sources
const (
	SourceABTester = "A/B Tester"
	SourceJudge    = "Judge"
	SourceLearner  = "Learner"
)

const (
	lowScoreThreshold     = 6.0
	failingCategoryScore  = 5.0
	learnerSuccessPercent = 80
)

// Plan outcomes
const (
	OutcomeCreated      = "CREATED"
	OutcomeNoPlanNeeded = "NO_PLAN_NEEDED"
)

const noPlanMessage = "No significant issues found. System is performing well."

// Improver owns the plan store document and reads the outcome logs
type Improver struct {
	mu sync.Mutex

	store     storage.Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Deps holds dependencies for creating an Improver
type Deps struct {
	Store     storage.Store
	Publisher events.Publisher
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string // Default: first 8 hex chars of a random UUID
}

// New creates an improver
func New(deps *Deps) (*Improver, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	im := &Improver{
		store:     deps.Store,
		publisher: deps.Publisher,
		logger:    deps.Logger,
		now:       deps.Now,
		newID:     deps.NewID,
	}
	if im.publisher == nil {
		im.publisher = events.Nop{}
	}
	if im.logger == nil {
		im.logger = slog.Default()
	}
	if im.now == nil {
		im.now = time.Now
	}
	if im.newID == nil {
		im.newID = func() string { return uuid.NewString()[:8] }
	}
	return im, nil
}

// Summary counts the history an analysis looked at
type Summary struct {
	ABTestsCompleted   int `json:"abTestsCompleted"`
	ReportsScored      int `json:"reportsScored"`
	LearningsRecorded  int `json:"learningsRecorded"`
	ViolationsRecorded int `json:"violationsRecorded"`
}

// Analysis is the result of Analyze
type Analysis struct {
	Insights []types.Insight `json:"insights"`
	Summary  Summary         `json:"summary"`
}

// Analyze derives insights from the A/B, judge and learner logs. It writes
// nothing. The logs are read independently of each other. The observer log
// only supplies the violation count and is treated as empty when unreadable.
func (im *Improver) Analyze(ctx context.Context) (*Analysis, error) {
	var (
		ab       *types.ABTestLog
		scores   *types.ScoreLog
		learner  *types.LearnerLog
		observer *types.ObserverLog
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ab, err = storage.Get(gctx, im.store, storage.KeyABTests, func() *types.ABTestLog {
			return types.NewABTestLog(im.now())
		})
		return err
	})
	g.Go(func() error {
		var err error
		scores, err = storage.Get(gctx, im.store, storage.KeyScores, func() *types.ScoreLog {
			return types.NewScoreLog(im.now())
		})
		return err
	})
	g.Go(func() error {
		var err error
		learner, err = storage.Get(gctx, im.store, storage.KeyLearnerLog, func() *types.LearnerLog {
			return types.NewLearnerLog(im.now())
		})
		return err
	})
	g.Go(func() error {
		// Summary only; an unreadable observer log counts as empty
		var err error
		observer, err = storage.Get(gctx, im.store, storage.KeyObserverLog, func() *types.ObserverLog {
			return types.NewObserverLog(im.now())
		})
		if err != nil {
			im.logger.Warn("observer log unreadable, reporting zero violations", "error", err)
			observer = types.NewObserverLog(im.now())
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reading outcome logs: %w", err)
	}

	a := &Analysis{Insights: []types.Insight{}}
	a.Insights = append(a.Insights, abInsights(ab)...)
	a.Insights = append(a.Insights, judgeInsights(scores)...)
	a.Insights = append(a.Insights, learnerInsights(learner)...)

	for i := range ab.Tests {
		if ab.Tests[i].Status == types.ABTestCompleted {
			a.Summary.ABTestsCompleted++
		}
	}
	a.Summary.ReportsScored = len(scores.Scores)
	a.Summary.LearningsRecorded = len(learner.Learnings)
	a.Summary.ViolationsRecorded = len(observer.Violations)

	im.logger.Debug("analysis complete", "insights", len(a.Insights))
	return a, nil
}

func abInsights(doc *types.ABTestLog) []types.Insight {
	var aWins, bWins int
	for i := range doc.Tests {
		switch {
		case doc.Tests[i].WonBy(types.OptionA):
			aWins++
		case doc.Tests[i].WonBy(types.OptionB):
			bWins++
		}
	}
	switch {
	case aWins > 2*bWins:
		return []types.Insight{{
			Source:     SourceABTester,
			Finding:    "Option A (first approach) wins significantly more",
			Suggestion: "First instinct approaches are often better - trust initial solutions",
		}}
	case bWins > 2*aWins:
		return []types.Insight{{
			Source:     SourceABTester,
			Finding:    "Option B (alternative approach) wins significantly more",
			Suggestion: "Consider exploring alternative approaches more often",
		}}
	}
	return nil
}

func judgeInsights(doc *types.ScoreLog) []types.Insight {
	if len(doc.Scores) == 0 {
		return nil
	}

	var out []types.Insight
	var total float64
	for i := range doc.Scores {
		total += doc.Scores[i].FinalScore
	}
	if avg := total / float64(len(doc.Scores)); avg < lowScoreThreshold {
		out = append(out, types.Insight{
			Source:     SourceJudge,
			Finding:    fmt.Sprintf("Average score is low (%.1f/10)", avg),
			Suggestion: "Improve report quality - add more detail, follow templates",
		})
	}

	tally := map[string]int{}
	for i := range doc.Scores {
		if doc.Scores[i].Passed {
			continue
		}
		for category, score := range doc.Scores[i].Scores {
			if score < failingCategoryScore {
				tally[category]++
			}
		}
	}
	if worst, ok := worstCategory(tally); ok {
		out = append(out, types.Insight{
			Source:     SourceJudge,
			Finding:    fmt.Sprintf("Reports consistently fail in '%s'", worst),
			Suggestion: fmt.Sprintf("Focus on improving %s in reports", worst),
		})
	}
	return out
}

// worstCategory returns the category with the highest tally. Ties go to the
// lexicographically smallest name.
func worstCategory(tally map[string]int) (string, bool) {
	names := make([]string, 0, len(tally))
	for name := range tally {
		names = append(names, name)
	}
	sort.Strings(names)

	worst, best := "", 0
	for _, name := range names {
		if tally[name] > best {
			worst, best = name, tally[name]
		}
	}
	return worst, best > 0
}

func learnerInsights(doc *types.LearnerLog) []types.Insight {
	total := len(doc.Learnings)
	if total == 0 {
		return nil
	}
	success := 0
	for i := range doc.Learnings {
		if doc.Learnings[i].Success {
			success++
		}
	}
	if success*100 >= total*learnerSuccessPercent {
		return nil
	}
	return []types.Insight{{
		Source:     SourceLearner,
		Finding:    fmt.Sprintf("Learning capture success rate is low (%.0f%%)", float64(success)*100/float64(total)),
		Suggestion: "Ensure KB and Neo4j are properly configured",
	}}
}

// PlanOutcome is the result of CreatePlan
type PlanOutcome struct {
	Status   string      `json:"status"`
	Message  string      `json:"message,omitempty"`
	Plan     *types.Plan `json:"plan,omitempty"`
	Analysis *Analysis   `json:"analysis"`
}

func (im *Improver) load(ctx context.Context) (*types.ImprovementLog, error) {
	return storage.Get(ctx, im.store, storage.KeyImprovements, func() *types.ImprovementLog {
		return types.NewImprovementLog(im.now())
	})
}

func (im *Improver) save(ctx context.Context, doc *types.ImprovementLog, now time.Time) error {
	doc.LastUpdated = &now
	if err := storage.Put(ctx, im.store, storage.KeyImprovements, doc); err != nil {
		return fmt.Errorf("saving improvements: %w", err)
	}
	return nil
}

// CreatePlan analyzes the outcome logs and records a plan with one action
// per insight. When there are no insights nothing is written.
func (im *Improver) CreatePlan(ctx context.Context) (*PlanOutcome, error) {
	analysis, err := im.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	if len(analysis.Insights) == 0 {
		return &PlanOutcome{Status: OutcomeNoPlanNeeded, Message: noPlanMessage, Analysis: analysis}, nil
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	doc, err := im.load(ctx)
	if err != nil {
		return nil, err
	}

	now := im.now()
	plan := types.Plan{
		ID:        fmt.Sprintf("PLAN-%s-%s", now.Format("20060102-1504"), strings.ToLower(im.newID())),
		CreatedAt: now,
		Status:    types.PlanCreated,
		Insights:  append([]types.Insight{}, analysis.Insights...),
		Actions:   make([]types.Action, 0, len(analysis.Insights)),
		Summary:   fmt.Sprintf("%d improvement actions identified", len(analysis.Insights)),
	}
	for i, in := range analysis.Insights {
		plan.Actions = append(plan.Actions, types.Action{
			ID:       fmt.Sprintf("ACTION-%d", i+1),
			Source:   in.Source,
			Action:   in.Suggestion,
			Priority: types.PriorityFor(in.Finding),
			Status:   types.ActionPending,
		})
	}
	if doc.FindPlan(plan.ID) >= 0 {
		return nil, fmt.Errorf("%w: plan %s already exists", types.ErrPrecondition, plan.ID)
	}

	doc.Plans = append(doc.Plans, plan)
	doc.Insights = append(doc.Insights, analysis.Insights...)
	if err := im.save(ctx, doc, now); err != nil {
		return nil, err
	}

	events.Emit(ctx, im.publisher, im.logger, events.New(now, events.EventTypePlanCreated, component, events.SeverityInfo,
		plan.Summary, map[string]interface{}{"plan_id": plan.ID, "actions": len(plan.Actions)}))

	return &PlanOutcome{Status: OutcomeCreated, Plan: &plan, Analysis: analysis}, nil
}

// ApplyPlan marks a CREATED plan as APPLIED. A plan is applied at most once.
func (im *Improver) ApplyPlan(ctx context.Context, id string) (*types.Plan, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	doc, err := im.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := doc.FindPlan(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: plan %s", types.ErrNotFound, id)
	}
	plan := &doc.Plans[idx]
	if plan.Status == types.PlanApplied {
		return nil, fmt.Errorf("%w: plan %s is already applied", types.ErrPrecondition, id)
	}

	now := im.now()
	plan.Status = types.PlanApplied
	plan.AppliedAt = &now
	doc.AppliedImprovements++
	if err := im.save(ctx, doc, now); err != nil {
		return nil, err
	}

	events.Emit(ctx, im.publisher, im.logger, events.New(now, events.EventTypePlanApplied, component, events.SeverityInfo,
		fmt.Sprintf("plan %s applied", id), map[string]interface{}{"plan_id": id}))

	applied := *plan
	return &applied, nil
}

// Stats summarizes the plan store
type Stats struct {
	TotalPlans          int `json:"totalPlans"`
	PendingPlans        int `json:"pendingPlans"`
	AppliedImprovements int `json:"appliedImprovements"`
	TotalInsights       int `json:"totalInsights"`
}

// Stats returns plan counts
func (im *Improver) Stats(ctx context.Context) (*Stats, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	doc, err := im.load(ctx)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		TotalPlans:          len(doc.Plans),
		AppliedImprovements: doc.AppliedImprovements,
		TotalInsights:       len(doc.Insights),
	}
	for i := range doc.Plans {
		if doc.Plans[i].Status == types.PlanCreated {
			s.PendingPlans++
		}
	}
	return s, nil
}
