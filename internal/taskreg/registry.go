// Package taskreg runs long browser tasks in the background and keeps their
// outcome under a request id until someone polls for it.
package taskreg

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"cadmcp/pkg/apperr"
	"cadmcp/pkg/logg"
	"cadmcp/pkg/tracing"
)

const (
	registryName   = "TaskRegistry"
	registryTracer = "taskreg.registry"
)

var (
	ErrDuplicate = errors.New("request id already registered")
	ErrTerminal  = errors.New("task already finished")
	ErrNotFound  = errors.New("no task for request id")
	ErrClosed    = errors.New("registry is shut down")
)

// Work is the body of a detached task. Its return value becomes the
// Completed payload; a non-nil error becomes the Failed message.
type Work func(ctx context.Context) (string, error)

// Task describes one long-running request handed to Start.
type Task struct {
	ID   string
	Note string
	Run  Work

	// OnError, if set, is told about the failure after the record has
	// been marked Failed.
	OnError func(ctx context.Context, err error)
}

type entry struct {
	rec  Record
	done chan struct{}
}

type Registry struct {
	mu      sync.RWMutex
	records map[string]*entry
	closed  bool

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	retention time.Duration
	now       func() time.Time

	logger *zap.Logger
	tracer trace.Tracer
}

type Option func(*Registry)

// WithRetention makes Sweep evict terminal records older than d.
// Zero keeps every record for the life of the process.
func WithRetention(d time.Duration) Option {
	return func(r *Registry) { r.retention = d }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Now reads the registry clock, the one FinishedAt is stamped with.
func (r *Registry) Now() time.Time {
	return r.now()
}

func New(logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	r := &Registry{
		records: make(map[string]*entry),
		base:    base,
		cancel:  cancel,
		now:     time.Now,
		logger:  logger.With(zap.String(logg.Layer, registryName)),
		tracer:  otel.Tracer(registryTracer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start records id as pending and runs t.Run on its own goroutine. The
// record is visible to Poll before Start returns; Start never waits for
// the work itself.
//
// The work context keeps ctx's values but not its deadline or
// cancellation, so it outlives the request that started it. It is
// cancelled only by Shutdown.
func (r *Registry) Start(ctx context.Context, t Task) error {
	const op = "Start"

	if t.ID == "" {
		return apperr.InvalidReqError(op, "id", errors.New("request id is empty"))
	}
	if t.Run == nil {
		return apperr.InvalidReqError(op, "run", errors.New("work is nil"))
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return apperr.Wrap(op, apperr.CodeUnavailable, ErrClosed, map[string]any{
			apperr.MetaTaskID: t.ID,
		})
	}
	if _, ok := r.records[t.ID]; ok {
		r.mu.Unlock()
		return apperr.Wrap(op, apperr.CodeAlreadyExists, ErrDuplicate, map[string]any{
			apperr.MetaTaskID: t.ID,
		})
	}
	e := &entry{
		rec: Record{
			ID:        t.ID,
			State:     StatePending,
			Note:      t.Note,
			CreatedAt: r.now(),
		},
		done: make(chan struct{}),
	}
	r.records[t.ID] = e
	r.wg.Add(1)
	r.mu.Unlock()

	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(r.base, cancel)

	r.logger.Info("Task started", zap.String(logg.TaskID, t.ID))

	go func() {
		defer r.wg.Done()
		defer cancel()
		defer stop()
		r.run(wctx, t)
	}()

	return nil
}

func (r *Registry) run(ctx context.Context, t Task) {
	const op = "run"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.TaskID, t.ID))

	var err error
	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op, attribute.String("task_id", t.ID))
	defer func() {
		step.End(err)
	}()

	var result string
	result, err = r.safeRun(ctx, t.Run)
	if err != nil {
		logger.Warn("Task failed", zap.Error(err))
		if ferr := r.Fail(t.ID, err.Error()); ferr != nil {
			logger.Warn("Could not record failure", zap.Error(ferr))
		}
		if t.OnError != nil {
			t.OnError(ctx, err)
		}
		return
	}

	if cerr := r.Complete(t.ID, result); cerr != nil {
		logger.Warn("Could not record result", zap.Error(cerr))
		return
	}
	logger.Info("Task completed", zap.Int("result_len", len(result)))
}

func (r *Registry) safeRun(ctx context.Context, w Work) (result string, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Task panicked", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return w(ctx)
}

// Complete moves id from pending to Completed(result).
func (r *Registry) Complete(id, result string) error {
	return r.finish("Complete", id, func(rec *Record) {
		rec.State = StateCompleted
		rec.Result = result
	})
}

// Fail moves id from pending to Failed(msg).
func (r *Registry) Fail(id, msg string) error {
	return r.finish("Fail", id, func(rec *Record) {
		rec.State = StateFailed
		rec.Err = msg
	})
}

func (r *Registry) finish(op, id string, apply func(*Record)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.records[id]
	if !ok {
		return apperr.NotFoundError(op, fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	if e.rec.Terminal() {
		return apperr.Wrap(op, apperr.CodeAlreadyExists, ErrTerminal, map[string]any{
			apperr.MetaTaskID: id,
			apperr.MetaReason: e.rec.State.String(),
		})
	}

	apply(&e.rec)
	e.rec.FinishedAt = r.now()
	close(e.done)
	return nil
}

// Poll renders the record for id as text. It never blocks and never fails.
func (r *Registry) Poll(id string) string {
	rec, ok := r.Lookup(id)
	if !ok {
		return NotFoundText(id)
	}

	switch rec.State {
	case StateCompleted:
		return rec.Result
	case StateFailed:
		return "Error: " + rec.Err
	default:
		if rec.Note != "" {
			return rec.Note
		}
		return fmt.Sprintf("Task %s is still in progress", id)
	}
}

// NotFoundText is what Poll returns for ids it has never seen.
func NotFoundText(id string) string {
	return fmt.Sprintf("No search results found for request ID: %s", id)
}

func (r *Registry) Lookup(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return e.rec, true
}

// Done returns a channel closed when id reaches a terminal state.
func (r *Registry) Done(id string) (<-chan struct{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.records[id]
	if !ok {
		return nil, false
	}
	return e.done, true
}

// List returns a snapshot of all records, oldest first.
func (r *Registry) List() []Record {
	r.mu.RLock()
	out := make([]Record, 0, len(r.records))
	for _, e := range r.records {
		out = append(out, e.rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Sweep drops terminal records that finished more than the retention
// period before now and returns how many were removed. Pending records
// are never dropped.
func (r *Registry) Sweep(now time.Time) int {
	if r.retention <= 0 {
		return 0
	}
	cutoff := now.Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.records {
		if e.rec.Terminal() && e.rec.FinishedAt.Before(cutoff) {
			delete(r.records, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("Swept finished tasks", zap.Int("removed", removed), zap.Int("remaining", len(r.records)))
	}
	return removed
}

// Shutdown rejects new tasks, cancels running ones and waits for them to
// settle or for ctx to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()

	waited := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return apperr.Wrap("Shutdown", apperr.CodeTimeout, ctx.Err(), map[string]any{
			apperr.MetaReason: "tasks_still_running",
		})
	}
}
