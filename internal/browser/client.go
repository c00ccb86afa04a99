// Package browser defines the capability set the rest of the server needs
// from a controllable browser, and owns the single shared session.
package browser

import (
	"context"
	"time"
)

// Client is one live browser page. Implementations wrap a concrete
// automation library (rod, playwright) and are selected at deployment time.
type Client interface {
	Navigate(ctx context.Context, url string) error
	// IsVisible waits up to timeout for selector to match a visible
	// element. A selector that never matches reports false, nil.
	IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	Click(ctx context.Context, selector string) error
	// Evaluate runs a JavaScript function expression in the page and
	// decodes its JSON-serialisable return value into out (which may be nil).
	Evaluate(ctx context.Context, script string, out any) error
	URL(ctx context.Context) (string, error)
	Close() error
}

type Viewport struct {
	Width  int
	Height int
}

type Options struct {
	Headless    bool
	Viewport    Viewport
	Stealth     bool
	SlowMotion  time.Duration
	UserDataDir string
	Bin         string
}

// DefaultOptions is the fixed visible configuration used when a session is
// created lazily on first navigation.
func DefaultOptions() Options {
	return Options{
		Headless: false,
		Viewport: Viewport{Width: 1280, Height: 1100},
	}
}

// Factory launches a new Client.
type Factory func(ctx context.Context, opts Options) (Client, error)
