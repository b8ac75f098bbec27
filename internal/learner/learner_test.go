package learner

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

func newLearner(t *testing.T) (*Learner, *storage.Memory, *events.Recorder) {
	t.Helper()
	store := storage.NewMemory()
	rec := &events.Recorder{}
	l, err := New(&Deps{Store: store, Publisher: rec, Now: func() time.Time {
		return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	}})
	require.NoError(t, err)
	return l, store, rec
}

func TestRecordSuccess(t *testing.T) {
	l, _, rec := newLearner(t)

	res, err := l.Record(context.Background(), "added retry middleware", []types.LearningStep{
		{Step: "KB Index Update", Status: types.StepSuccess},
		{Step: "Neo4j Sync", Status: types.StepSkipped, Error: "not configured"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusLearned, res.Status)
	assert.Len(t, res.Steps, 2)
	assert.Equal(t, []events.EventType{events.EventTypeLearningRecorded}, rec.Types())
}

func TestRecordPartial(t *testing.T) {
	l, _, _ := newLearner(t)
	ctx := context.Background()

	res, err := l.Record(ctx, "task", []types.LearningStep{
		{Step: "KB Index Update", Status: types.StepFailed, Error: "timeout"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, res.Status)

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalLearnings)
	assert.Zero(t, stats.SuccessfulLearnings)
}

func TestRecordWithoutStepsSucceeds(t *testing.T) {
	l, _, _ := newLearner(t)

	res, err := l.Record(context.Background(), "task", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusLearned, res.Status)
}

func TestRecordDisabledWritesNothing(t *testing.T) {
	l, store, _ := newLearner(t)
	ctx := context.Background()

	require.NoError(t, l.SetAutoLearn(ctx, false))
	before, _, err := store.Load(ctx, storage.KeyLearnerLog)
	require.NoError(t, err)

	res, err := l.Record(ctx, "task", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, res.Status)

	after, _, err := store.Load(ctx, storage.KeyLearnerLog)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	require.NoError(t, l.SetAutoLearn(ctx, true))
	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.AutoLearnEnabled)
	assert.Zero(t, stats.TotalLearnings)
}

func TestRecordValidation(t *testing.T) {
	l, _, _ := newLearner(t)
	ctx := context.Background()

	_, err := l.Record(ctx, "", nil)
	assert.True(t, errors.Is(err, types.ErrInvalidInput))

	_, err = l.Record(ctx, "task", []types.LearningStep{{Step: "x", Status: "maybe"}})
	assert.True(t, errors.Is(err, types.ErrInvalidInput))

	_, err = l.Record(ctx, "task", []types.LearningStep{{Status: types.StepSuccess}})
	assert.True(t, errors.Is(err, types.ErrInvalidInput))
}

func TestParseStep(t *testing.T) {
	tests := []struct {
		in      string
		want    types.LearningStep
		wantErr bool
	}{
		{"kb=success", types.LearningStep{Step: "kb", Status: types.StepSuccess}, false},
		{"neo4j=Skipped:not installed", types.LearningStep{Step: "neo4j", Status: types.StepSkipped, Error: "not installed"}, false},
		{"engine=failed:exit 1: bad", types.LearningStep{Step: "engine", Status: types.StepFailed, Error: "exit 1: bad"}, false},
		{"kb", types.LearningStep{}, true},
		{"=success", types.LearningStep{}, true},
		{"kb=done", types.LearningStep{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStep(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, types.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
