// Package abtest tracks A/B tests that compare two approaches to a task and
// records which one won.
package abtest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/steveyegge/brain/internal/events"
	"github.com/steveyegge/brain/internal/storage"
	"github.com/steveyegge/brain/internal/types"
)

const component = "abtest"

// defaultScore stands in for an option that was implemented without a score
const defaultScore = 5

// Tester owns the A/B test document
type Tester struct {
	mu sync.Mutex

	store     storage.Store
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Deps holds dependencies for creating a Tester
type Deps struct {
	Store     storage.Store
	Publisher events.Publisher // Default: events.Nop
	Logger    *slog.Logger     // Default: slog.Default()
	Now       func() time.Time // Default: time.Now
}

// New creates an A/B tester
func New(deps *Deps) (*Tester, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	t := &Tester{store: deps.Store, publisher: deps.Publisher, logger: deps.Logger, now: deps.Now}
	if t.publisher == nil {
		t.publisher = events.Nop{}
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t, nil
}

// ParseOption accepts "a"/"b" in either case
func ParseOption(s string) (types.Option, error) {
	o := types.Option(strings.ToUpper(strings.TrimSpace(s)))
	if !o.IsValid() {
		return "", fmt.Errorf("%w: option must be A or B (got %q)", types.ErrInvalidInput, s)
	}
	return o, nil
}

func (t *Tester) load(ctx context.Context) (*types.ABTestLog, error) {
	return storage.Get(ctx, t.store, storage.KeyABTests, func() *types.ABTestLog {
		return types.NewABTestLog(t.now())
	})
}

func (t *Tester) save(ctx context.Context, doc *types.ABTestLog, now time.Time) error {
	doc.TotalTests = len(doc.Tests)
	doc.LastUpdated = &now
	if err := storage.Put(ctx, t.store, storage.KeyABTests, doc); err != nil {
		return fmt.Errorf("saving A/B tests: %w", err)
	}
	return nil
}

// find loads the document and locates the test with the given id
func (t *Tester) find(ctx context.Context, id string) (*types.ABTestLog, int, error) {
	doc, err := t.load(ctx)
	if err != nil {
		return nil, -1, err
	}
	i := doc.FindTest(id)
	if i < 0 {
		return nil, -1, fmt.Errorf("%w: test %s", types.ErrNotFound, id)
	}
	return doc, i, nil
}

// Create starts a new PENDING test with two empty options
func (t *Tester) Create(ctx context.Context, description string) (*types.ABTest, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: test description is required", types.ErrInvalidInput)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.load(ctx)
	if err != nil {
		return nil, err
	}

	now := t.now()
	test := types.ABTest{
		ID:          fmt.Sprintf("TEST-%03d", len(doc.Tests)+1),
		Description: description,
		Status:      types.ABTestPending,
		CreatedAt:   now,
	}
	doc.Tests = append(doc.Tests, test)

	if err := t.save(ctx, doc, now); err != nil {
		return nil, err
	}
	events.Emit(ctx, t.publisher, t.logger, events.New(now, events.EventTypeABTestCreated, component,
		events.SeverityInfo, description, map[string]interface{}{"test_id": test.ID}))
	return &test, nil
}

// UpdateOption records an implementation of one option. The test becomes
// READY_TO_COMPARE once both options are implemented.
func (t *Tester) UpdateOption(ctx context.Context, id string, option types.Option, description string, score *int) (*types.ABTest, error) {
	if !option.IsValid() {
		return nil, fmt.Errorf("%w: option must be A or B (got %q)", types.ErrInvalidInput, option)
	}
	if score != nil && (*score < 1 || *score > 10) {
		return nil, fmt.Errorf("%w: score must be between 1 and 10 (got %d)", types.ErrInvalidInput, *score)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	doc, i, err := t.find(ctx, id)
	if err != nil {
		return nil, err
	}
	test := &doc.Tests[i]
	if test.Status == types.ABTestCompleted {
		return nil, fmt.Errorf("%w: test %s is already completed", types.ErrPrecondition, id)
	}

	opt := &test.OptionA
	if option == types.OptionB {
		opt = &test.OptionB
	}
	opt.Description = description
	opt.Implemented = true
	if score != nil {
		s := *score
		opt.Score = &s
	}
	if test.OptionA.Implemented && test.OptionB.Implemented {
		test.Status = types.ABTestReadyToCompare
	}

	if err := t.save(ctx, doc, t.now()); err != nil {
		return nil, err
	}
	out := *test
	return &out, nil
}

// OptionSummary is one side of a comparison
type OptionSummary struct {
	Description string `json:"description"`
	Score       int    `json:"score"`
}

// Comparison is the recommendation for a test whose options are both implemented
type Comparison struct {
	TestID         string        `json:"testId"`
	OptionA        OptionSummary `json:"optionA"`
	OptionB        OptionSummary `json:"optionB"`
	Recommendation types.Option  `json:"recommendation"`
	Margin         int           `json:"margin"`
}

// Compare recommends the higher scoring option; A wins ties. Options
// without a score count as 5.
func (t *Tester) Compare(ctx context.Context, id string) (*Comparison, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, i, err := t.find(ctx, id)
	if err != nil {
		return nil, err
	}
	test := doc.Tests[i]
	if test.Status != types.ABTestReadyToCompare {
		return nil, fmt.Errorf("%w: test not ready for comparison, both options must be implemented", types.ErrPrecondition)
	}

	a, b := scoreOf(test.OptionA), scoreOf(test.OptionB)
	c := &Comparison{
		TestID:         test.ID,
		OptionA:        OptionSummary{Description: test.OptionA.Description, Score: a},
		OptionB:        OptionSummary{Description: test.OptionB.Description, Score: b},
		Recommendation: types.OptionA,
		Margin:         a - b,
	}
	if b > a {
		c.Recommendation = types.OptionB
		c.Margin = b - a
	}
	return c, nil
}

func scoreOf(o types.ABOption) int {
	if o.Score == nil {
		return defaultScore
	}
	return *o.Score
}

// SelectWinner completes the test with the given winner. A completed test
// cannot be decided again.
func (t *Tester) SelectWinner(ctx context.Context, id string, winner types.Option, reason string) (*types.ABTest, error) {
	if !winner.IsValid() {
		return nil, fmt.Errorf("%w: winner must be A or B (got %q)", types.ErrInvalidInput, winner)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	doc, i, err := t.find(ctx, id)
	if err != nil {
		return nil, err
	}
	test := &doc.Tests[i]
	if test.Status == types.ABTestCompleted {
		return nil, fmt.Errorf("%w: test %s already has winner %s", types.ErrPrecondition, id, *test.Winner)
	}

	now := t.now()
	w := winner
	test.Winner = &w
	test.WinReason = reason
	test.Status = types.ABTestCompleted
	test.CompletedAt = &now
	if winner == types.OptionA {
		doc.OptionAWins++
	} else {
		doc.OptionBWins++
	}

	if err := t.save(ctx, doc, now); err != nil {
		return nil, err
	}
	events.Emit(ctx, t.publisher, t.logger, events.New(now, events.EventTypeABTestCompleted, component,
		events.SeverityInfo, fmt.Sprintf("%s won by option %s", id, winner),
		map[string]interface{}{"test_id": id, "winner": string(winner)}))

	out := *test
	return &out, nil
}

// List returns tests in creation order, optionally filtered by status.
// An empty status returns every test.
func (t *Tester) List(ctx context.Context, status types.ABTestStatus) ([]types.ABTest, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown test status %q", types.ErrInvalidInput, status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	out := []types.ABTest{}
	for _, test := range doc.Tests {
		if status == "" || test.Status == status {
			out = append(out, test)
		}
	}
	return out, nil
}

// Stats summarizes the A/B test document
type Stats struct {
	TotalTests     int `json:"totalTests"`
	CompletedTests int `json:"completedTests"`
	PendingTests   int `json:"pendingTests"`
	OptionAWins    int `json:"optionAWins"`
	OptionBWins    int `json:"optionBWins"`
}

// Stats returns test counts and win tallies
func (t *Tester) Stats(ctx context.Context) (*Stats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		TotalTests:  len(doc.Tests),
		OptionAWins: doc.OptionAWins,
		OptionBWins: doc.OptionBWins,
	}
	for _, test := range doc.Tests {
		if test.Status == types.ABTestCompleted {
			s.CompletedTests++
		}
	}
	s.PendingTests = s.TotalTests - s.CompletedTests
	return s, nil
}
