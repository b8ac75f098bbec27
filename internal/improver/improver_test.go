package improver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/brain/internal/events"
	"github.com/steveyegge/brain/internal/storage"
	"github.com/steveyegge/brain/internal/types"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newImprover(t *testing.T, store *storage.Memory) (*Improver, *events.Recorder) {
	t.Helper()
	rec := &events.Recorder{}
	im, err := New(&Deps{
		Store:     store,
		Publisher: rec,
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return im, rec
}

func put(t *testing.T, store storage.Store, key string, doc any) {
	t.Helper()
	require.NoError(t, storage.Put(context.Background(), store, key, doc))
}

func completedTest(id string, winner types.Option) types.ABTest {
	w := winner
	return types.ABTest{ID: id, Status: types.ABTestCompleted, Winner: &w, CreatedAt: fixedNow}
}

func seedWinners(t *testing.T, store storage.Store, winners ...types.Option) {
	t.Helper()
	doc := types.NewABTestLog(fixedNow)
	for i, w := range winners {
		doc.Tests = append(doc.Tests, completedTest(fmt.Sprintf("TEST-%03d", i+1), w))
	}
	put(t, store, storage.KeyABTests, doc)
}

func seedScores(t *testing.T, store storage.Store, scores ...types.JudgeScore) {
	t.Helper()
	doc := types.NewScoreLog(fixedNow)
	doc.Scores = append(doc.Scores, scores...)
	put(t, store, storage.KeyScores, doc)
}

func seedLearnings(t *testing.T, store storage.Store, outcomes ...bool) {
	t.Helper()
	doc := types.NewLearnerLog(fixedNow)
	for _, ok := range outcomes {
		doc.Learnings = append(doc.Learnings, types.LearningRecord{Description: "task", Success: ok, Timestamp: fixedNow})
	}
	put(t, store, storage.KeyLearnerLog, doc)
}

func sources(insights []types.Insight) []string {
	out := make([]string, 0, len(insights))
	for _, in := range insights {
		out = append(out, in.Source+": "+in.Finding)
	}
	return out
}

func TestAnalyzeEmptyLogs(t *testing.T) {
	im, _ := newImprover(t, storage.NewMemory())

	a, err := im.Analyze(context.Background())
	require.NoError(t, err)
	assert.Empty(t, a.Insights)
	assert.Equal(t, Summary{}, a.Summary)
}

func TestAnalyzeABRule(t *testing.T) {
	tests := []struct {
		name    string
		winners []types.Option
		want    string
	}{
		{"A dominates", []types.Option{types.OptionA, types.OptionA, types.OptionA, types.OptionB}, "Option A (first approach) wins significantly more"},
		{"A only", []types.Option{types.OptionA}, "Option A (first approach) wins significantly more"},
		{"A exactly double", []types.Option{types.OptionA, types.OptionA, types.OptionB}, ""},
		{"B dominates", []types.Option{types.OptionB, types.OptionB, types.OptionB, types.OptionA}, "Option B (alternative approach) wins significantly more"},
		{"even", []types.Option{types.OptionA, types.OptionB}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemory()
			seedWinners(t, store, tt.winners...)
			im, _ := newImprover(t, store)

			a, err := im.Analyze(context.Background())
			require.NoError(t, err)
			assert.Equal(t, len(tt.winners), a.Summary.ABTestsCompleted)
			if tt.want == "" {
				assert.Empty(t, a.Insights)
				return
			}
			require.Len(t, a.Insights, 1)
			assert.Equal(t, SourceABTester, a.Insights[0].Source)
			assert.Equal(t, tt.want, a.Insights[0].Finding)
		})
	}
}

func TestAnalyzeIgnoresIncompleteTests(t *testing.T) {
	store := storage.NewMemory()
	doc := types.NewABTestLog(fixedNow)
	a := types.OptionA
	doc.Tests = append(doc.Tests, types.ABTest{ID: "TEST-001", Status: types.ABTestReadyToCompare, Winner: &a})
	put(t, store, storage.KeyABTests, doc)
	im, _ := newImprover(t, store)

	res, err := im.Analyze(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Insights)
	assert.Zero(t, res.Summary.ABTestsCompleted)
}

func TestAnalyzeLowAverage(t *testing.T) {
	store := storage.NewMemory()
	seedScores(t, store,
		types.JudgeScore{Report: "r1", FinalScore: 3, Passed: false},
		types.JudgeScore{Report: "r2", FinalScore: 4, Passed: false},
		types.JudgeScore{Report: "r3", FinalScore: 5, Passed: false},
	)
	im, _ := newImprover(t, store)

	a, err := im.Analyze(context.Background())
	require.NoError(t, err)
	require.Len(t, a.Insights, 1)
	assert.Equal(t, SourceJudge, a.Insights[0].Source)
	assert.Contains(t, a.Insights[0].Finding, "4.0")
	assert.Equal(t, 3, a.Summary.ReportsScored)
}

func TestAnalyzeFailingCategory(t *testing.T) {
	store := storage.NewMemory()
	seedScores(t, store,
		types.JudgeScore{Report: "r1", FinalScore: 7, Passed: true, Scores: map[string]float64{"clarity": 2}},
		types.JudgeScore{Report: "r2", FinalScore: 5.5, Passed: false, Scores: map[string]float64{"clarity": 4, "detail": 3, "format": 9}},
		types.JudgeScore{Report: "r3", FinalScore: 8, Passed: false, Scores: map[string]float64{"detail": 4.5, "format": 10}},
	)
	im, _ := newImprover(t, store)

	a, err := im.Analyze(context.Background())
	require.NoError(t, err)
	require.Len(t, a.Insights, 1, "average 6.8 is not low")
	assert.Equal(t, "Reports consistently fail in 'detail'", a.Insights[0].Finding)
	assert.Equal(t, "Focus on improving detail in reports", a.Insights[0].Suggestion)
}

func TestWorstCategoryTieBreak(t *testing.T) {
	worst, ok := worstCategory(map[string]int{"format": 2, "clarity": 2, "detail": 1})
	assert.True(t, ok)
	assert.Equal(t, "clarity", worst)

	_, ok = worstCategory(map[string]int{})
	assert.False(t, ok)
}

func TestAnalyzeLearnerRate(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []bool
		want     string
	}{
		{"four of five is enough", []bool{true, true, true, true, false}, ""},
		{"three of four is low", []bool{true, true, true, false}, "Learning capture success rate is low (75%)"},
		{"none succeeded", []bool{false, false}, "Learning capture success rate is low (0%)"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemory()
			seedLearnings(t, store, tt.outcomes...)
			im, _ := newImprover(t, store)

			a, err := im.Analyze(context.Background())
			require.NoError(t, err)
			assert.Equal(t, len(tt.outcomes), a.Summary.LearningsRecorded)
			if tt.want == "" {
				assert.Empty(t, a.Insights)
				return
			}
			require.Len(t, a.Insights, 1)
			assert.Equal(t, tt.want, a.Insights[0].Finding)
		})
	}
}

func TestAnalyzeCountsViolations(t *testing.T) {
	store := storage.NewMemory()
	doc := types.NewObserverLog(fixedNow)
	doc.Violations = append(doc.Violations, types.Violation{Rule: "MANUAL_HALT", Message: "stop", Severity: types.SeverityCritical, Timestamp: fixedNow})
	doc.SetHalted("stop")
	put(t, store, storage.KeyObserverLog, doc)
	im, _ := newImprover(t, store)

	a, err := im.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, a.Summary.ViolationsRecorded)
}

func TestAnalyzeMalformedLog(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Save(context.Background(), storage.KeyScores, []byte(`{"scores":[],"bogus":1}`)))
	im, _ := newImprover(t, store)

	_, err := im.Analyze(context.Background())
	assert.True(t, errors.Is(err, types.ErrMalformedInput))
}

func TestAnalyzeToleratesMalformedObserverLog(t *testing.T) {
	store := storage.NewMemory()
	seedLearnings(t, store, false)
	require.NoError(t, store.Save(context.Background(), storage.KeyObserverLog, []byte(`{"status":"PAUSED"`)))
	im, _ := newImprover(t, store)

	a, err := im.Analyze(context.Background())
	require.NoError(t, err)
	assert.Zero(t, a.Summary.ViolationsRecorded)
	require.Len(t, a.Insights, 1)

	out, err := im.CreatePlan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, out.Status)
}

func TestCreatePlanNoInsights(t *testing.T) {
	store := storage.NewMemory()
	im, rec := newImprover(t, store)

	out, err := im.CreatePlan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoPlanNeeded, out.Status)
	assert.Equal(t, "No significant issues found. System is performing well.", out.Message)
	assert.Nil(t, out.Plan)
	assert.False(t, store.Has(storage.KeyImprovements))
	assert.Empty(t, rec.Events)
}

func seedEverything(t *testing.T, store storage.Store) {
	t.Helper()
	seedWinners(t, store, types.OptionB, types.OptionB, types.OptionB)
	seedScores(t, store,
		types.JudgeScore{Report: "r1", FinalScore: 3, Passed: false, Scores: map[string]float64{"clarity": 3, "detail": 3}},
		types.JudgeScore{Report: "r2", FinalScore: 4, Passed: false, Scores: map[string]float64{"detail": 4}},
	)
	seedLearnings(t, store, true, false)
}

func TestCreatePlan(t *testing.T) {
	store := storage.NewMemory()
	seedEverything(t, store)
	im, rec := newImprover(t, store)
	im.newID = func() string { return "ABCDEF12" }
	ctx := context.Background()

	out, err := im.CreatePlan(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, out.Status)

	plan := out.Plan
	assert.Equal(t, "PLAN-20260301-0930-abcdef12", plan.ID)
	assert.Equal(t, types.PlanCreated, plan.Status)
	assert.Equal(t, "4 improvement actions identified", plan.Summary)
	assert.Equal(t, []string{
		"A/B Tester: Option B (alternative approach) wins significantly more",
		"Judge: Average score is low (3.5/10)",
		"Judge: Reports consistently fail in 'detail'",
		"Learner: Learning capture success rate is low (50%)",
	}, sources(plan.Insights))

	require.Len(t, plan.Actions, 4)
	for i, act := range plan.Actions {
		assert.Equal(t, plan.Insights[i].Source, act.Source)
		assert.Equal(t, plan.Insights[i].Suggestion, act.Action)
		assert.Equal(t, types.ActionPending, act.Status)
	}
	assert.Equal(t, "ACTION-1", plan.Actions[0].ID)
	assert.Equal(t, "ACTION-4", plan.Actions[3].ID)
	assert.Equal(t, types.PriorityHigh, plan.Actions[2].Priority)
	assert.Equal(t, types.PriorityMedium, plan.Actions[1].Priority)

	stats, err := im.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{TotalPlans: 1, PendingPlans: 1, TotalInsights: 4}, stats)
	assert.Equal(t, []events.EventType{events.EventTypePlanCreated}, rec.Types())
}

func TestCreatePlanIsDeterministic(t *testing.T) {
	store := storage.NewMemory()
	seedEverything(t, store)
	im, _ := newImprover(t, store)
	ctx := context.Background()

	first, err := im.CreatePlan(ctx)
	require.NoError(t, err)
	second, err := im.CreatePlan(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Plan.Insights, second.Plan.Insights); diff != "" {
		t.Errorf("insights differ between runs (-first +second):\n%s", diff)
	}
	priorities := func(p *types.Plan) []types.Priority {
		var out []types.Priority
		for _, a := range p.Actions {
			out = append(out, a.Priority)
		}
		return out
	}
	if diff := cmp.Diff(priorities(first.Plan), priorities(second.Plan)); diff != "" {
		t.Errorf("priorities differ between runs (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, first.Plan.ID, second.Plan.ID)

	stats, err := im.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalPlans)
	assert.Equal(t, 8, stats.TotalInsights, "insight history is cumulative")
}

func TestCreatePlanIDFormat(t *testing.T) {
	store := storage.NewMemory()
	seedLearnings(t, store, false)
	im, _ := newImprover(t, store)

	out, err := im.CreatePlan(context.Background())
	require.NoError(t, err)
	parts := strings.Split(out.Plan.ID, "-")
	require.Len(t, parts, 4)
	assert.Equal(t, "PLAN", parts[0])
	assert.Equal(t, "20260301", parts[1])
	assert.Equal(t, "0930", parts[2])
	assert.Len(t, parts[3], 8)
}

func TestApplyPlan(t *testing.T) {
	store := storage.NewMemory()
	seedLearnings(t, store, false)
	im, rec := newImprover(t, store)
	ctx := context.Background()

	out, err := im.CreatePlan(ctx)
	require.NoError(t, err)

	applied, err := im.ApplyPlan(ctx, out.Plan.ID)
	require.NoError(t, err)
	assert.Equal(t, types.PlanApplied, applied.Status)
	require.NotNil(t, applied.AppliedAt)
	assert.Equal(t, fixedNow, *applied.AppliedAt)

	_, err = im.ApplyPlan(ctx, out.Plan.ID)
	assert.True(t, errors.Is(err, types.ErrPrecondition))

	stats, err := im.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AppliedImprovements)
	assert.Zero(t, stats.PendingPlans)
	assert.Equal(t, []events.EventType{events.EventTypePlanCreated, events.EventTypePlanApplied}, rec.Types())
}

func TestApplyUnknownPlan(t *testing.T) {
	store := storage.NewMemory()
	im, _ := newImprover(t, store)
	ctx := context.Background()

	_, err := im.ApplyPlan(ctx, "PLAN-19700101-0000-deadbeef")
	assert.True(t, errors.Is(err, types.ErrNotFound))
	assert.False(t, store.Has(storage.KeyImprovements))

	stats, err := im.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.AppliedImprovements)
}

func TestApplyPlanSaveFailure(t *testing.T) {
	store := storage.NewMemory()
	seedLearnings(t, store, false)
	im, _ := newImprover(t, store)
	ctx := context.Background()

	out, err := im.CreatePlan(ctx)
	require.NoError(t, err)

	store.FailSave = types.ErrStorageUnavailable
	_, err = im.ApplyPlan(ctx, out.Plan.ID)
	assert.True(t, errors.Is(err, types.ErrStorageUnavailable))

	store.FailSave = nil
	stats, err := im.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.AppliedImprovements)
	assert.Equal(t, 1, stats.PendingPlans)
}
