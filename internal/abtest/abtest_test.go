package abtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/brain/internal/events"
	"github.com/steveyegge/brain/internal/storage"
	"github.com/steveyegge/brain/internal/types"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTester(t *testing.T) (*Tester, *storage.Memory, *events.Recorder) {
	t.Helper()
	store := storage.NewMemory()
	rec := &events.Recorder{}
	tester, err := New(&Deps{Store: store, Publisher: rec, Now: func() time.Time { return testNow }})
	require.NoError(t, err)
	return tester, store, rec
}

func intPtr(i int) *int { return &i }

func TestCreateAssignsSequentialIDs(t *testing.T) {
	tester, _, rec := newTester(t)
	ctx := context.Background()

	first, err := tester.Create(ctx, "retry strategy")
	require.NoError(t, err)
	second, err := tester.Create(ctx, "cache layout")
	require.NoError(t, err)

	assert.Equal(t, "TEST-001", first.ID)
	assert.Equal(t, "TEST-002", second.ID)
	assert.Equal(t, types.ABTestPending, first.Status)
	assert.False(t, first.OptionA.Implemented)
	assert.Nil(t, first.Winner)
	assert.Len(t, rec.Events, 2)

	_, err = tester.Create(ctx, "  ")
	assert.True(t, errors.Is(err, types.ErrInvalidInput))
}

func TestUpdateOptionBecomesReady(t *testing.T) {
	tester, _, _ := newTester(t)
	ctx := context.Background()
	test, err := tester.Create(ctx, "retry strategy")
	require.NoError(t, err)

	got, err := tester.UpdateOption(ctx, test.ID, types.OptionA, "exponential backoff", intPtr(7))
	require.NoError(t, err)
	assert.Equal(t, types.ABTestPending, got.Status)
	assert.True(t, got.OptionA.Implemented)
	require.NotNil(t, got.OptionA.Score)
	assert.Equal(t, 7, *got.OptionA.Score)

	got, err = tester.UpdateOption(ctx, test.ID, types.OptionB, "fixed delay", nil)
	require.NoError(t, err)
	assert.Equal(t, types.ABTestReadyToCompare, got.Status)
	assert.Nil(t, got.OptionB.Score)
}

func TestUpdateOptionValidation(t *testing.T) {
	tester, _, _ := newTester(t)
	ctx := context.Background()
	test, err := tester.Create(ctx, "x")
	require.NoError(t, err)

	_, err = tester.UpdateOption(ctx, test.ID, "C", "d", nil)
	assert.True(t, errors.Is(err, types.ErrInvalidInput))

	_, err = tester.UpdateOption(ctx, test.ID, types.OptionA, "d", intPtr(11))
	assert.True(t, errors.Is(err, types.ErrInvalidInput))

	_, err = tester.UpdateOption(ctx, "TEST-999", types.OptionA, "d", nil)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestCompareRequiresBothOptions(t *testing.T) {
	tester, _, _ := newTester(t)
	ctx := context.Background()
	test, err := tester.Create(ctx, "x")
	require.NoError(t, err)
	_, err = tester.UpdateOption(ctx, test.ID, types.OptionA, "a", intPtr(6))
	require.NoError(t, err)

	_, err = tester.Compare(ctx, test.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrPrecondition))
	assert.Contains(t, err.Error(), "both options must be implemented")

	_, err = tester.Compare(ctx, "TEST-404")
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name       string
		a, b       *int
		wantRec    types.Option
		wantMargin int
	}{
		{"A higher", intPtr(8), intPtr(5), types.OptionA, 3},
		{"B higher", intPtr(4), intPtr(9), types.OptionB, 5},
		{"tie goes to A", intPtr(6), intPtr(6), types.OptionA, 0},
		{"missing scores count as 5", nil, intPtr(7), types.OptionB, 2},
		{"both missing", nil, nil, types.OptionA, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tester, _, _ := newTester(t)
			ctx := context.Background()
			test, err := tester.Create(ctx, "x")
			require.NoError(t, err)
			_, err = tester.UpdateOption(ctx, test.ID, types.OptionA, "a", tt.a)
			require.NoError(t, err)
			_, err = tester.UpdateOption(ctx, test.ID, types.OptionB, "b", tt.b)
			require.NoError(t, err)

			c, err := tester.Compare(ctx, test.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRec, c.Recommendation)
			assert.Equal(t, tt.wantMargin, c.Margin)
		})
	}
}

func TestSelectWinner(t *testing.T) {
	tester, _, _ := newTester(t)
	ctx := context.Background()
	test, err := tester.Create(ctx, "x")
	require.NoError(t, err)

	got, err := tester.SelectWinner(ctx, test.ID, types.OptionB, "simpler")
	require.NoError(t, err)
	assert.Equal(t, types.ABTestCompleted, got.Status)
	require.NotNil(t, got.Winner)
	assert.Equal(t, types.OptionB, *got.Winner)
	assert.Equal(t, "simpler", got.WinReason)
	require.NotNil(t, got.CompletedAt)

	_, err = tester.SelectWinner(ctx, test.ID, types.OptionA, "changed my mind")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrPrecondition))

	_, err = tester.UpdateOption(ctx, test.ID, types.OptionA, "late", nil)
	assert.True(t, errors.Is(err, types.ErrPrecondition))

	stats, err := tester.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.OptionAWins)
	assert.Equal(t, 1, stats.OptionBWins, "a rejected reselect does not count")
}

func TestListAndStats(t *testing.T) {
	tester, _, _ := newTester(t)
	ctx := context.Background()
	for _, d := range []string{"one", "two", "three"} {
		_, err := tester.Create(ctx, d)
		require.NoError(t, err)
	}
	_, err := tester.SelectWinner(ctx, "TEST-001", types.OptionA, "")
	require.NoError(t, err)
	_, err = tester.SelectWinner(ctx, "TEST-002", types.OptionA, "")
	require.NoError(t, err)

	all, err := tester.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	done, err := tester.List(ctx, types.ABTestCompleted)
	require.NoError(t, err)
	assert.Len(t, done, 2)

	_, err = tester.List(ctx, "FINISHED")
	assert.True(t, errors.Is(err, types.ErrInvalidInput))

	stats, err := tester.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalTests: 3, CompletedTests: 2, PendingTests: 1, OptionAWins: 2}, *stats)
}

func TestTotalTestsPersisted(t *testing.T) {
	tester, store, _ := newTester(t)
	ctx := context.Background()
	_, err := tester.Create(ctx, "x")
	require.NoError(t, err)

	doc, err := storage.Get(ctx, store, storage.KeyABTests, func() *types.ABTestLog { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, doc.TotalTests)
	require.NotNil(t, doc.LastUpdated)
}

func TestParseOption(t *testing.T) {
	o, err := ParseOption(" a ")
	require.NoError(t, err)
	assert.Equal(t, types.OptionA, o)

	_, err = ParseOption("c")
	assert.True(t, errors.Is(err, types.ErrInvalidInput))
}
