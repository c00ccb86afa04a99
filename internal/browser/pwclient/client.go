// Package pwclient implements browser.Client on top of playwright-go.
package pwclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"cadmcp/internal/browser"
	"cadmcp/pkg/apperr"
	"cadmcp/pkg/logg"
	"cadmcp/pkg/tracing"
)

const (
	clientName   = "PlaywrightClient"
	clientTracer = "browser.playwright"

	clickTimeout = 5 * time.Second
	gotoTimeout  = 60 * time.Second
)

var _ browser.Client = (*Client)(nil)

type Client struct {
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page

	logger *zap.Logger
	tracer trace.Tracer
}

func NewFactory(logger *zap.Logger) browser.Factory {
	return func(ctx context.Context, opts browser.Options) (browser.Client, error) {
		return Launch(ctx, opts, logger)
	}
}

func Launch(ctx context.Context, opts browser.Options, logger *zap.Logger) (c *Client, err error) {
	const op = "Launch"
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String(logg.Layer, clientName))
	tracer := otel.Tracer(clientTracer)

	ctx, step := tracing.StartSpan(ctx, tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	step.AddEvent("installing playwright")
	if err = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}, Stdout: os.Stderr}); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	step.AddEvent("starting playwright")
	pw, err := playwright.Run(&playwright.RunOptions{Stdout: os.Stderr})
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	c = &Client{playwright: pw, logger: logger, tracer: tracer}
	if opts.UserDataDir != "" {
		err = c.launchPersistent(opts)
	} else {
		err = c.launchNew(opts)
	}
	if err != nil {
		_ = pw.Stop()
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	logger.Info("Browser launched successfully")
	return c, nil
}

func (c *Client) launchPersistent(opts browser.Options) error {
	if err := os.MkdirAll(opts.UserDataDir, 0755); err != nil {
		return err
	}

	options := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMotion.Milliseconds())),
		Viewport: viewport(opts),
	}
	if opts.Bin != "" {
		options.ExecutablePath = playwright.String(opts.Bin)
	}

	bc, err := c.playwright.Chromium.LaunchPersistentContext(opts.UserDataDir, options)
	if err != nil {
		return fmt.Errorf("launch persistent context: %w", err)
	}
	c.browserContext = bc

	if pages := bc.Pages(); len(pages) > 0 {
		c.page = pages[0]
		return nil
	}
	page, err := bc.NewPage()
	if err != nil {
		return fmt.Errorf("new page: %w", err)
	}
	c.page = page
	return nil
}

func (c *Client) launchNew(opts browser.Options) error {
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(float64(opts.SlowMotion.Milliseconds())),
	}
	if opts.Bin != "" {
		launchOpts.ExecutablePath = playwright.String(opts.Bin)
	}

	b, err := c.playwright.Chromium.Launch(launchOpts)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	c.browser = b

	bc, err := b.NewContext(playwright.BrowserNewContextOptions{Viewport: viewport(opts)})
	if err != nil {
		return fmt.Errorf("new context: %w", err)
	}
	c.browserContext = bc

	page, err := bc.NewPage()
	if err != nil {
		return fmt.Errorf("new page: %w", err)
	}
	c.page = page
	return nil
}

func viewport(opts browser.Options) *playwright.Size {
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		return nil
	}
	return &playwright.Size{Width: opts.Viewport.Width, Height: opts.Viewport.Height}
}

func (c *Client) Navigate(ctx context.Context, url string) (err error) {
	ctx, step := tracing.StartSpan(ctx, c.tracer, c.logger, "Navigate", attribute.String(logg.URL, url))
	defer func() {
		step.End(err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	err = untilDone(ctx, func() error {
		_, err := c.page.Goto(url, playwright.PageGotoOptions{
			Timeout:   playwright.Float(millis(boundedTimeout(ctx, gotoTimeout))),
			WaitUntil: playwright.WaitUntilStateLoad,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (c *Client) IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := c.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) Click(ctx context.Context, selector string) (err error) {
	ctx, step := tracing.StartSpan(ctx, c.tracer, c.logger, "Click", attribute.String(logg.Selector, selector))
	defer func() {
		step.End(err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	err = untilDone(ctx, func() error {
		return c.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
			Timeout: playwright.Float(millis(boundedTimeout(ctx, clickTimeout))),
		})
	})
	if err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (c *Client) Evaluate(ctx context.Context, script string, out any) (err error) {
	ctx, step := tracing.StartSpan(ctx, c.tracer, c.logger, "Evaluate")
	defer func() {
		step.End(err)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	result, err := c.page.Evaluate(script)
	if err != nil {
		return err
	}
	return decode(result, out)
}

func (c *Client) URL(ctx context.Context) (string, error) {
	return c.page.URL(), nil
}

func (c *Client) Close() error {
	if c.browserContext != nil {
		if err := c.browserContext.Close(); err != nil {
			c.logger.Warn("Failed to close context", zap.Error(err))
		}
	}
	if c.browser != nil {
		if err := c.browser.Close(); err != nil {
			c.logger.Warn("Failed to close browser", zap.Error(err))
		}
	}
	if err := c.playwright.Stop(); err != nil {
		return apperr.Wrap("Close", apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_stop_failed",
		})
	}
	return nil
}

// boundedTimeout shortens d to what is left of ctx's deadline.
func boundedTimeout(ctx context.Context, d time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return d
	}
	left := time.Until(deadline)
	if left < time.Millisecond {
		return time.Millisecond
	}
	if left < d {
		return left
	}
	return d
}

// untilDone returns fn's error, or ctx's error as soon as ctx ends. In the
// latter case fn keeps running until its own playwright timeout.
func untilDone(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	go func() {
		errc <- fn()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

// decode round-trips a playwright evaluation result through JSON so callers
// get the same typed structs regardless of driver.
func decode(v any, out any) error {
	if out == nil || v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode eval result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode eval result: %w", err)
	}
	return nil
}
