// Package rodclient implements browser.Client on top of go-rod.
package rodclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"cadmcp/internal/browser"
	"cadmcp/pkg/logg"
	"cadmcp/pkg/tracing"
)

const (
	clientName   = "RodClient"
	clientTracer = "browser.rod"

	clickTimeout = 5 * time.Second
)

var _ browser.Client = (*Client)(nil)

type Client struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page

	logger *zap.Logger
	tracer trace.Tracer
}

// NewFactory returns a browser.Factory that launches a local Chrome.
func NewFactory(logger *zap.Logger) browser.Factory {
	return func(ctx context.Context, opts browser.Options) (browser.Client, error) {
		return Launch(ctx, opts, logger)
	}
}

func Launch(ctx context.Context, opts browser.Options, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String(logg.Layer, clientName))

	bin := opts.Bin
	if bin == "" {
		path, found := launcher.LookPath()
		if !found {
			return nil, errors.New("browser executable path not found")
		}
		bin = path
	}

	l := launcher.New().Bin(bin).
		Headless(opts.Headless).
		Set("disable-setuid-sandbox").
		Set("no-first-run", "true")
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if opts.SlowMotion > 0 {
		b = b.SlowMotion(opts.SlowMotion)
	}
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	var page *rod.Page
	if opts.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.Viewport.Width,
			Height:            opts.Viewport.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			logger.Warn("Failed to set viewport", zap.Error(err))
		}
	}

	logger.Debug("Connected", zap.String("control_url", controlURL), zap.Bool("stealth", opts.Stealth))

	return &Client{
		launcher: l,
		browser:  b,
		page:     page,
		logger:   logger,
		tracer:   otel.Tracer(clientTracer),
	}, nil
}

func (c *Client) Navigate(ctx context.Context, url string) (err error) {
	ctx, step := tracing.StartSpan(ctx, c.tracer, c.logger, "Navigate", attribute.String(logg.URL, url))
	defer func() {
		step.End(err)
	}()

	p := c.page.Context(ctx)
	if err = p.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err = p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

func (c *Client) IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	p := c.page.Context(ctx).Timeout(timeout)
	defer p.CancelTimeout()

	el, err := p.Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, err
	}
	if err := el.WaitVisible(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
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

	p := c.page.Context(ctx).Timeout(clickTimeout)
	defer p.CancelTimeout()

	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}
	if err = el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (c *Client) Evaluate(ctx context.Context, script string, out any) (err error) {
	ctx, step := tracing.StartSpan(ctx, c.tracer, c.logger, "Evaluate")
	defer func() {
		step.End(err)
	}()

	obj, err := c.page.Context(ctx).Eval(script)
	if err != nil {
		return err
	}
	return decode(obj.Value, out)
}

func (c *Client) URL(ctx context.Context) (string, error) {
	info, err := c.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (c *Client) Close() error {
	err := c.browser.Close()
	c.launcher.Kill()
	c.launcher.Cleanup()
	return err
}

func decode(v gson.JSON, out any) error {
	if out == nil {
		return nil
	}
	if v.Nil() {
		return nil
	}
	if err := json.Unmarshal([]byte(v.JSON("", "")), out); err != nil {
		return fmt.Errorf("decode eval result: %w", err)
	}
	return nil
}
