// Package facade turns browser operations into the text outcomes tool
// callers see. No operation returns an error: failures become messages.
package facade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"cadmcp/internal/browser"
	"cadmcp/pkg/logg"
	"cadmcp/pkg/tracing"
)

const (
	facadeName   = "ToolFacade"
	facadeTracer = "facade"

	// ClickVisibleWait is how long Click waits for the target to show up.
	ClickVisibleWait = 3 * time.Second

	MsgNotInitialized = "Browser not initialized. Please navigate to a page first."
	MsgURLRequired    = "Error: url is required"
	MsgSelectorNeeded = "Error: selector is required"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Outcome is the structured result passed between the façade and the
// protocol layer, which only forwards Message.
type Outcome struct {
	Status  Status
	Message string
}

func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

func success(format string, args ...any) Outcome {
	return Outcome{Status: StatusSuccess, Message: fmt.Sprintf(format, args...)}
}

func failure(format string, args ...any) Outcome {
	return Outcome{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

type Facade struct {
	session *browser.Session
	logger  *zap.Logger
	tracer  trace.Tracer
}

func New(session *browser.Session, logger *zap.Logger) *Facade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Facade{
		session: session,
		logger:  logger.With(zap.String(logg.Layer, facadeName)),
		tracer:  otel.Tracer(facadeTracer),
	}
}

// Navigate opens url in the shared browser, launching it if this is the
// first call.
func (f *Facade) Navigate(ctx context.Context, url string) Outcome {
	const op = "Navigate"
	logger := f.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	url = strings.TrimSpace(url)
	if url == "" {
		return failure(MsgURLRequired)
	}

	ctx, step := tracing.StartSpan(ctx, f.tracer, logger, op, attribute.String(logg.URL, url))
	var err error
	defer func() {
		step.End(err)
	}()

	err = f.session.Do(ctx, true, func(ctx context.Context, c browser.Client) error {
		return c.Navigate(ctx, url)
	})
	if err != nil {
		logger.Warn("Navigation failed", zap.Error(err))
		return failure("Error navigating to %s: %v", url, err)
	}
	logger.Info("Navigated")
	return success("Successfully navigated to %s", url)
}

// Click clicks the first visible element matching selector.
func (f *Facade) Click(ctx context.Context, selector string) Outcome {
	const op = "Click"
	logger := f.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	if strings.TrimSpace(selector) == "" {
		return failure(MsgSelectorNeeded)
	}

	ctx, step := tracing.StartSpan(ctx, f.tracer, logger, op, attribute.String(logg.Selector, selector))
	var (
		out Outcome
		err error
	)
	defer func() {
		step.End(err)
	}()

	err = f.session.Do(ctx, false, func(ctx context.Context, c browser.Client) error {
		visible, err := c.IsVisible(ctx, selector, ClickVisibleWait)
		if err != nil {
			return err
		}
		if !visible {
			out = failure("Button with selector '%s' not found", selector)
			return nil
		}
		if err := c.Click(ctx, selector); err != nil {
			return err
		}
		out = success("Successfully clicked button with selector '%s'", selector)
		return nil
	})
	switch {
	case errors.Is(err, browser.ErrNotInitialized):
		return failure(MsgNotInitialized)
	case err != nil:
		logger.Warn("Click failed", zap.Error(err))
		return failure("Error clicking button: %v", err)
	}
	return out
}

// Inspect reports the visible buttons and links on the current page.
func (f *Facade) Inspect(ctx context.Context) Outcome {
	const op = "Inspect"
	logger := f.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, f.tracer, logger, op)
	var (
		found browser.Interactive
		err   error
	)
	defer func() {
		step.End(err)
	}()

	err = f.session.Do(ctx, false, func(ctx context.Context, c browser.Client) error {
		var err error
		found, err = browser.QueryInteractive(ctx, c)
		return err
	})
	switch {
	case errors.Is(err, browser.ErrNotInitialized):
		return failure(MsgNotInitialized)
	case err != nil:
		logger.Warn("Inspect failed", zap.Error(err))
		return failure("Error analyzing DOM: %v", err)
	}
	step.SetAttributes(
		attribute.Int("buttons", len(found.Buttons)),
		attribute.Int("links", len(found.Links)),
	)
	return success("%s", FormatReport(found))
}

// Highlight marks interactive elements on the page for a human watching
// the browser and reports how many were marked.
func (f *Facade) Highlight(ctx context.Context) Outcome {
	const op = "Highlight"
	logger := f.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, f.tracer, logger, op)
	var (
		counts browser.HighlightCounts
		err    error
	)
	defer func() {
		step.End(err)
	}()

	err = f.session.Do(ctx, false, func(ctx context.Context, c browser.Client) error {
		var err error
		counts, err = browser.Highlight(ctx, c)
		return err
	})
	switch {
	case errors.Is(err, browser.ErrNotInitialized):
		return failure(MsgNotInitialized)
	case err != nil:
		logger.Warn("Highlight failed", zap.Error(err))
		return failure("Error highlighting elements: %v", err)
	}
	step.SetAttributes(attribute.Int("highlighted", counts.Total()))
	return success("Highlighted %d interactive elements (%d buttons, %d links, %d other clickable)",
		counts.Total(), counts.Buttons, counts.Links, counts.Clickable)
}
