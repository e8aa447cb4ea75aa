// Package saga tracks one multi-service operation through its phases and
// runs its compensation at most once.
package saga

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/logging"
	"github.com/dmitrijs2005/drivegate/internal/server/clients/httpx"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
	"github.com/google/uuid"
)

type Phase string

const (
	PhaseMetadataCreated Phase = "metadata-created"
	PhaseStreaming       Phase = "streaming"
	PhaseVerified        Phase = "verified"
	PhaseCompensating    Phase = "compensating"
	PhaseDone            Phase = "done"
	PhaseFailed          Phase = "failed"
)

// transitions lists the allowed next phases. Phases only move forward;
// compensating is entered from streaming or from a failed verification.
var transitions = map[Phase][]Phase{
	PhaseMetadataCreated: {PhaseStreaming, PhaseFailed},
	PhaseStreaming:       {PhaseVerified, PhaseCompensating, PhaseDone, PhaseFailed},
	PhaseVerified:        {PhaseCompensating, PhaseDone},
	PhaseCompensating:    {PhaseFailed},
}

// Recorder stores side effects whose compensation failed.
type Recorder interface {
	Record(ctx context.Context, o *models.Orphan) error
}

// Step is one compensation: Run undoes the side effect described by Kind,
// Bucket and ObjectID.
type Step struct {
	Kind     string
	Bucket   string
	ObjectID string
	Run      func(ctx context.Context) error
}

// Options are shared by every saga of a service.
type Options struct {
	Logger   logging.Logger
	Recorder Recorder
	// Timeout bounds each compensation call.
	Timeout time.Duration
}

// Saga is the state of one upload, re-upload or duplicate. It lives for one
// request and is never persisted.
type Saga struct {
	Operation    string
	Owner        string
	ExpectedSize int64
	MetadataID   string
	Bucket       string

	phase       Phase
	compensated bool
	opts        Options
	log         logging.Logger
	now         func() time.Time
}

// New starts a saga in the metadata-created phase, the step that creates or
// patches the directory record.
func New(operation, owner string, expectedSize int64, opts Options) *Saga {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	return &Saga{
		Operation:    operation,
		Owner:        owner,
		ExpectedSize: expectedSize,
		phase:        PhaseMetadataCreated,
		opts:         opts,
		log:          opts.Logger.With("saga", operation, "owner", owner),
		now:          time.Now,
	}
}

func (s *Saga) Phase() Phase { return s.phase }

// Terminal reports whether the saga has finished.
func (s *Saga) Terminal() bool {
	return s.phase == PhaseDone || s.phase == PhaseFailed
}

// Bind records the directory record the saga works on.
func (s *Saga) Bind(rec *models.FsObject) {
	s.MetadataID = rec.ID
	s.Bucket = rec.Bucket
}

// Advance moves the saga to next. An illegal transition is a programming
// error and panics.
func (s *Saga) Advance(ctx context.Context, next Phase) {
	if !slices.Contains(transitions[s.phase], next) {
		panic(fmt.Sprintf("saga %s: illegal transition %s -> %s", s.Operation, s.phase, next))
	}
	s.log.Debug(ctx, "saga phase", "from", s.phase, "to", next, "id", s.MetadataID)
	s.phase = next
}

// Fail ends the saga without compensation.
func (s *Saga) Fail(ctx context.Context, err error) {
	s.log.Warn(ctx, "saga failed", "phase", s.phase, "id", s.MetadataID, "error", err)
	s.Advance(ctx, PhaseFailed)
}

// Done ends the saga successfully.
func (s *Saga) Done(ctx context.Context) {
	s.Advance(ctx, PhaseDone)
}

// Try runs call; on failure it compensates with steps and returns the
// original error. With no steps the saga just fails.
func (s *Saga) Try(ctx context.Context, call func(ctx context.Context) error, steps ...Step) error {
	err := call(ctx)
	if err == nil {
		return nil
	}
	if len(steps) == 0 {
		s.Fail(ctx, err)
		return err
	}
	s.Compensate(ctx, err, steps...)
	return err
}

// Compensate runs steps once, on a detached context so a gone client does
// not stop it, then fails the saga. Failed steps are logged and recorded as
// orphans; cause is never replaced. Later calls do nothing.
func (s *Saga) Compensate(ctx context.Context, cause error, steps ...Step) {
	if s.compensated {
		return
	}
	s.compensated = true

	s.log.Warn(ctx, "saga compensating", "phase", s.phase, "id", s.MetadataID, "error", cause)
	s.Advance(ctx, PhaseCompensating)

	compensations := make([]httpx.Compensation, 0, len(steps))
	for _, step := range steps {
		compensations = append(compensations, httpx.Compensation{
			Name: step.Kind,
			Run:  step.Run,
			OnFailure: func(ctx context.Context, err error) {
				s.recordOrphan(ctx, step, cause, err)
			},
		})
	}
	httpx.Compensate(ctx, s.log, s.opts.Timeout, compensations...)

	s.Advance(ctx, PhaseFailed)
}

func (s *Saga) recordOrphan(ctx context.Context, step Step, cause, err error) {
	if s.opts.Recorder == nil {
		return
	}
	o := &models.Orphan{
		ID:        uuid.NewString(),
		Kind:      step.Kind,
		Owner:     s.Owner,
		Bucket:    step.Bucket,
		ObjectID:  step.ObjectID,
		Operation: s.Operation,
		Reason:    fmt.Sprintf("%v; compensation: %v", cause, err),
		CreatedAt: s.now().UTC(),
	}
	if rerr := s.opts.Recorder.Record(ctx, o); rerr != nil {
		s.log.Error(ctx, "failed to record orphan", "kind", step.Kind, "object_id", step.ObjectID, "error", rerr)
	}
}
