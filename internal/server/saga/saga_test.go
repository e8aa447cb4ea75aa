package saga

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	mu      sync.Mutex
	orphans []*models.Orphan
	err     error
}

func (m *memRecorder) Record(ctx context.Context, o *models.Orphan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.orphans = append(m.orphans, o)
	return nil
}

func newTestSaga(rec Recorder) *Saga {
	s := New(models.OperationUpload, "u1", 10, Options{Recorder: rec, Timeout: time.Second})
	s.Bind(&models.FsObject{ID: "f1", Bucket: "u1"})
	return s
}

func TestSaga_HappyPath(t *testing.T) {
	s := newTestSaga(nil)
	ctx := context.Background()

	assert.Equal(t, PhaseMetadataCreated, s.Phase())
	s.Advance(ctx, PhaseStreaming)
	s.Advance(ctx, PhaseVerified)
	s.Done(ctx)

	assert.Equal(t, PhaseDone, s.Phase())
	assert.True(t, s.Terminal())
	assert.Equal(t, "f1", s.MetadataID)
}

func TestSaga_IllegalTransitionPanics(t *testing.T) {
	s := newTestSaga(nil)
	ctx := context.Background()

	require.Panics(t, func() { s.Advance(ctx, PhaseVerified) })

	s.Advance(ctx, PhaseStreaming)
	s.Advance(ctx, PhaseVerified)
	require.Panics(t, func() { s.Advance(ctx, PhaseStreaming) }, "phases never move back")
}

func TestSaga_TrySuccessRunsNoCompensation(t *testing.T) {
	s := newTestSaga(nil)
	ctx := context.Background()
	s.Advance(ctx, PhaseStreaming)

	ran := false
	err := s.Try(ctx, func(context.Context) error { return nil },
		Step{Kind: models.OrphanDirectoryRecord, Run: func(context.Context) error { ran = true; return nil }})

	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, PhaseStreaming, s.Phase())
}

func TestSaga_TryFailureCompensatesOnceAndKeepsOriginalError(t *testing.T) {
	rec := &memRecorder{}
	s := newTestSaga(rec)
	ctx := context.Background()
	s.Advance(ctx, PhaseStreaming)

	orig := errors.New("store unavailable")
	runs := 0
	step := Step{
		Kind:     models.OrphanDirectoryRecord,
		ObjectID: "f1",
		Run:      func(context.Context) error { runs++; return errors.New("directory unavailable") },
	}

	err := s.Try(ctx, func(context.Context) error { return orig }, step)
	assert.Same(t, orig, err)

	s.Compensate(ctx, orig, step)

	assert.Equal(t, 1, runs, "compensation must run exactly once")
	assert.Equal(t, PhaseFailed, s.Phase())
	require.Len(t, rec.orphans, 1)
	o := rec.orphans[0]
	assert.Equal(t, models.OrphanDirectoryRecord, o.Kind)
	assert.Equal(t, "u1", o.Owner)
	assert.Equal(t, "f1", o.ObjectID)
	assert.Equal(t, models.OperationUpload, o.Operation)
	assert.Contains(t, o.Reason, "store unavailable")
	assert.Contains(t, o.Reason, "directory unavailable")
	assert.NotEmpty(t, o.ID)
}

func TestSaga_TryWithoutStepsFails(t *testing.T) {
	s := newTestSaga(nil)
	ctx := context.Background()

	orig := errors.New("parent missing")
	err := s.Try(ctx, func(context.Context) error { return orig })

	assert.Same(t, orig, err)
	assert.Equal(t, PhaseFailed, s.Phase())
}

func TestSaga_CompensateFromVerified(t *testing.T) {
	s := newTestSaga(nil)
	ctx := context.Background()
	s.Advance(ctx, PhaseStreaming)
	s.Advance(ctx, PhaseVerified)

	var order []string
	s.Compensate(ctx, errors.New("mismatch"),
		Step{Kind: models.OrphanDirectoryRecord, Run: func(context.Context) error { order = append(order, "record"); return nil }},
		Step{Kind: models.OrphanStoredObject, Run: func(context.Context) error { order = append(order, "blob"); return nil }},
	)

	assert.Equal(t, []string{"record", "blob"}, order)
	assert.Equal(t, PhaseFailed, s.Phase())
}

func TestSaga_CompensationSurvivesCancelledRequest(t *testing.T) {
	s := newTestSaga(nil)
	ctx, cancel := context.WithCancel(context.Background())
	s.Advance(ctx, PhaseStreaming)
	cancel()

	var seen error
	s.Compensate(ctx, context.Canceled, Step{Kind: models.OrphanDirectoryRecord, Run: func(cctx context.Context) error {
		seen = cctx.Err()
		return nil
	}})

	assert.NoError(t, seen)
}

func TestSaga_RecorderErrorIsSwallowed(t *testing.T) {
	s := newTestSaga(&memRecorder{err: errors.New("ledger down")})
	ctx := context.Background()
	s.Advance(ctx, PhaseStreaming)

	require.NotPanics(t, func() {
		s.Compensate(ctx, errors.New("x"), Step{Kind: models.OrphanStoredObject, Run: func(context.Context) error {
			return errors.New("y")
		}})
	})
	assert.Equal(t, PhaseFailed, s.Phase())
}
