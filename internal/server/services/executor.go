package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/dmitrijs2005/registadb/internal/logging"
	"github.com/dmitrijs2005/registadb/internal/server/models"
	"github.com/dmitrijs2005/registadb/internal/server/repositories/entries"
	"github.com/dmitrijs2005/registadb/internal/timex"
)

// Executor dispatches requests to the entry repository. It holds no
// per-request state and is safe for concurrent use.
type Executor struct {
	repo   entries.Repository
	ids    IDAllocator
	logger logging.Logger
	now    func() time.Time
}

// IDAllocator hands out fresh identifiers and learns about ones chosen by
// clients. *storage.IDGenerator implements it.
type IDAllocator interface {
	Allocate() (uint64, error)
	Observe(id uint64)
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock replaces time.Now as the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(x *Executor) { x.now = now }
}

// WithLogger sets the logger used for internal failures.
func WithLogger(l logging.Logger) Option {
	return func(x *Executor) { x.logger = l }
}

// NewExecutor constructs an Executor over repo, allocating identifiers
// from ids.
func NewExecutor(repo entries.Repository, ids IDAllocator, opts ...Option) *Executor {
	x := &Executor{
		repo:   repo,
		ids:    ids,
		logger: logging.Nop{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Execute runs one request. Failures are reported through the response
// status, never as a Go error.
func (x *Executor) Execute(ctx context.Context, req models.Request) models.Response {
	switch req.Op {
	case models.OpCreate:
		return x.create(ctx, req.Entry)
	case models.OpRead:
		return x.read(ctx, req.ID)
	case models.OpUpdate:
		return x.update(ctx, req.ID, req.Entry)
	case models.OpDelete:
		return x.delete(ctx, req.ID)
	default:
		return invalid("unknown operation")
	}
}

// List returns a newest-first page of entries. It is not part of the
// request protocol; the REST façade uses it for pagination.
func (x *Executor) List(ctx context.Context, cursor []byte, limit int) (*entries.Page, error) {
	page, err := x.repo.List(ctx, cursor, limit)
	if err != nil && !errors.Is(err, common.ErrInvalidArgument) {
		x.logger.Error(ctx, "list failed", "error", err)
	}
	return page, err
}

func (x *Executor) create(ctx context.Context, in *models.Entry) models.Response {
	if in == nil || in.Payload == nil {
		return invalid("entry payload is required")
	}

	e := in.Clone()
	now := x.timestamp()
	e.CreatedAt, e.UpdatedAt = now, now
	if e.ID == 0 {
		id, err := x.ids.Allocate()
		if err != nil {
			return x.failure(ctx, models.OpCreate, 0, err)
		}
		e.ID = id
	} else {
		x.ids.Observe(e.ID)
	}

	if err := x.repo.Store(ctx, e); err != nil {
		return x.failure(ctx, models.OpCreate, e.ID, err)
	}
	return models.Response{Status: models.StatusOK, Entry: e}
}

func (x *Executor) read(ctx context.Context, id uint64) models.Response {
	if id == 0 {
		return invalid("id is required")
	}

	e, err := x.repo.FetchByID(ctx, id)
	if err != nil {
		return x.failure(ctx, models.OpRead, id, err)
	}
	return models.Response{Status: models.StatusOK, Entry: e}
}

func (x *Executor) update(ctx context.Context, id uint64, in *models.Entry) models.Response {
	if id == 0 {
		return invalid("id is required")
	}
	if in == nil || in.Payload == nil {
		return invalid("entry payload is required")
	}

	old, err := x.repo.FetchByID(ctx, id)
	if err != nil {
		return x.failure(ctx, models.OpUpdate, id, err)
	}

	e := in.Clone()
	e.ID = id
	e.CreatedAt = old.CreatedAt
	e.UpdatedAt = x.timestamp()
	if !e.UpdatedAt.After(old.UpdatedAt) {
		e.UpdatedAt = old.UpdatedAt.Add(time.Microsecond)
	}

	if err := x.repo.Store(ctx, e); err != nil {
		return x.failure(ctx, models.OpUpdate, id, err)
	}
	return models.Response{Status: models.StatusOK, Entry: e}
}

func (x *Executor) delete(ctx context.Context, id uint64) models.Response {
	if id == 0 {
		return invalid("id is required")
	}

	if err := x.repo.DeleteByID(ctx, id); err != nil {
		return x.failure(ctx, models.OpDelete, id, err)
	}
	return models.Response{Status: models.StatusOK}
}

func (x *Executor) timestamp() time.Time {
	return timex.TruncateMicros(x.now())
}

// failure maps a repository error onto a response. Storage faults are
// logged here; the caller only sees the status and message.
func (x *Executor) failure(ctx context.Context, op models.Operation, id uint64, err error) models.Response {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return models.Response{Status: models.StatusNotFound, Message: "entry not found"}
	case errors.Is(err, common.ErrInvalidArgument):
		return invalid(err.Error())
	case errors.Is(err, common.ErrConsistency):
		x.logger.Warn(ctx, "index points at a missing data record", "op", op.String(), "id", id, "error", err)
	default:
		x.logger.Error(ctx, "storage failure", "op", op.String(), "id", id, "error", err)
	}
	return models.Response{Status: models.StatusInternalError, Message: err.Error()}
}

func invalid(msg string) models.Response {
	return models.Response{Status: models.StatusInvalidArgument, Message: msg}
}
