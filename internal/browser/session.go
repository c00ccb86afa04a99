package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"cadmcp/pkg/apperr"
	"cadmcp/pkg/logg"
	"cadmcp/pkg/tracing"
)

const (
	sessionName   = "BrowserSession"
	sessionTracer = "browser.session"

	// DefaultBusyTimeout bounds how long a caller waits for the page while
	// another tool call or agent step is using it.
	DefaultBusyTimeout = 30 * time.Second
)

var (
	// ErrNotInitialized is returned by Do when no page has been opened yet.
	ErrNotInitialized = errors.New("browser not initialized")
	// ErrSessionClosed is returned by Ensure once Close has been called.
	ErrSessionClosed = errors.New("browser session closed")
)

// Session is the process-wide browser handle. It is created lazily by
// Ensure and reused by every later call. Close is final.
type Session struct {
	mu      sync.Mutex
	client  Client
	closed  bool
	factory Factory
	opts    Options

	use         *semaphore.Weighted
	busyTimeout time.Duration

	logger *zap.Logger
	tracer trace.Tracer
}

func NewSession(factory Factory, opts Options, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		factory:     factory,
		opts:        opts,
		use:         semaphore.NewWeighted(1),
		busyTimeout: DefaultBusyTimeout,
		logger:      logger.With(zap.String(logg.Layer, sessionName)),
		tracer:      otel.Tracer(sessionTracer),
	}
}

// SetBusyTimeout overrides DefaultBusyTimeout.
func (s *Session) SetBusyTimeout(d time.Duration) {
	s.busyTimeout = d
}

// Ensure returns the shared client, launching it on first use.
func (s *Session) Ensure(ctx context.Context) (client Client, err error) {
	const op = "Ensure"
	logger := s.logger.With(zap.String(logg.Operation, op))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, apperr.WrapWithReason(op, apperr.CodeUnavailable, ErrSessionClosed, "session_closed")
	}
	if s.client != nil {
		return s.client, nil
	}

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser",
		zap.Bool("headless", s.opts.Headless),
		zap.Int("viewport_width", s.opts.Viewport.Width),
		zap.Int("viewport_height", s.opts.Viewport.Height))

	client, err = s.factory(ctx, s.opts)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	s.client = client
	logger.Info("Browser launched")
	return client, nil
}

// Current returns the shared client without creating one.
func (s *Session) Current() (Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client, s.client != nil
}

// Do runs fn with exclusive use of the page. When create is false and no
// page exists yet, fn is not called and ErrNotInitialized is returned.
func (s *Session) Do(ctx context.Context, create bool, fn func(ctx context.Context, c Client) error) error {
	const op = "Do"

	var (
		c   Client
		ok  bool
		err error
	)
	if create {
		c, err = s.Ensure(ctx)
		if err != nil {
			return err
		}
	} else if c, ok = s.Current(); !ok {
		return apperr.WrapWithReason(op, apperr.CodeBrowserNotReady, ErrNotInitialized, "no_session")
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.busyTimeout)
	defer cancel()
	if err := s.use.Acquire(lockCtx, 1); err != nil {
		return apperr.WrapWithReason(op, apperr.CodeTimeout,
			fmt.Errorf("page busy: could not acquire lock within %s", s.busyTimeout), "page_busy")
	}
	defer s.use.Release(1)

	return fn(ctx, c)
}

// Close refuses further launches, waits (bounded by ctx) for the call
// holding the page to finish, then shuts the browser down if one was
// launched.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if err := s.use.Acquire(ctx, 1); err != nil {
		s.logger.Warn("Closing browser while the page is still in use", zap.Error(err))
	} else {
		defer s.use.Release(1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	if err != nil {
		s.logger.Warn("Failed to close browser", zap.Error(err))
		return fmt.Errorf("close browser: %w", err)
	}
	s.logger.Info("Browser closed")
	return nil
}
