// Package browsertest provides an in-memory browser.Client for tests. Pages
// are plain HTML strings parsed with goquery; the page scripts the server
// knows about are answered from the parsed document.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"cadmcp/internal/browser"
)

var ErrClosed = errors.New("browsertest: client closed")

type Client struct {
	mu sync.Mutex

	// Pages maps URL to HTML. Navigating to an unknown URL loads an empty
	// document.
	Pages map[string]string
	// Scripts answers Evaluate for arbitrary scripts by exact match.
	Scripts map[string]any

	NavigateErr error
	ClickErr    error
	EvalErr     error

	url     string
	doc     *goquery.Document
	clicks  []string
	visited []string
	closed  bool
}

func New(pages map[string]string) *Client {
	if pages == nil {
		pages = map[string]string{}
	}
	return &Client{Pages: pages, Scripts: map[string]any{}}
}

// Factory returns a browser.Factory that always hands out c and counts how
// many times it was called.
func (c *Client) Factory(launches *int) browser.Factory {
	var mu sync.Mutex
	return func(ctx context.Context, opts browser.Options) (browser.Client, error) {
		mu.Lock()
		defer mu.Unlock()
		if launches != nil {
			*launches++
		}
		return c, nil
	}
}

func (c *Client) Navigate(ctx context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.NavigateErr != nil {
		return c.NavigateErr
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(c.Pages[url]))
	if err != nil {
		return fmt.Errorf("parse page %s: %w", url, err)
	}
	c.url = url
	c.doc = doc
	c.visited = append(c.visited, url)
	return nil
}

func (c *Client) IsVisible(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.doc == nil {
		return false, nil
	}
	found := false
	c.doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if visible(s) {
			found = true
			return false
		}
		return true
	})
	return found, nil
}

func (c *Client) Click(ctx context.Context, selector string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ClickErr != nil {
		return c.ClickErr
	}
	c.clicks = append(c.clicks, selector)
	return nil
}

func (c *Client) Evaluate(ctx context.Context, script string, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.EvalErr != nil {
		return c.EvalErr
	}

	var result any
	switch script {
	case browser.InspectScript:
		result = c.inspect()
	case browser.HighlightScript:
		result = c.highlight()
	default:
		v, ok := c.Scripts[script]
		if !ok {
			return fmt.Errorf("browsertest: no result for script %q", script)
		}
		result = v
	}

	if out == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) URL(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Clicks returns the selectors clicked so far.
func (c *Client) Clicks() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.clicks...)
}

func (c *Client) Visited() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.visited...)
}

func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) inspect() browser.Interactive {
	var out browser.Interactive
	if c.doc == nil {
		return out
	}
	c.doc.Find("button").Each(func(_ int, s *goquery.Selection) {
		_, disabled := s.Attr("disabled")
		out.Buttons = append(out.Buttons, browser.Button{
			Text:     strings.TrimSpace(s.Text()),
			Visible:  visible(s),
			Disabled: disabled,
			ID:       s.AttrOr("id", ""),
			Classes:  s.AttrOr("class", ""),
		})
	})
	c.doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		out.Links = append(out.Links, browser.Link{
			Text:    strings.TrimSpace(s.Text()),
			Href:    s.AttrOr("href", ""),
			Visible: visible(s),
			ID:      s.AttrOr("id", ""),
			Classes: s.AttrOr("class", ""),
		})
	})
	return out
}

func (c *Client) highlight() browser.HighlightCounts {
	var out browser.HighlightCounts
	if c.doc == nil {
		return out
	}
	c.doc.Find("button").Each(func(_ int, s *goquery.Selection) {
		if visible(s) {
			out.Buttons++
		}
	})
	c.doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		if visible(s) {
			out.Links++
		}
	})
	c.doc.Find(`[role="button"], [onclick], input[type="button"], input[type="submit"]`).Each(func(_ int, s *goquery.Selection) {
		if visible(s) && !s.Is("button, a") {
			out.Clickable++
		}
	})
	return out
}

// visible approximates offsetParent !== null: the element and none of its
// ancestors may be hidden.
func visible(s *goquery.Selection) bool {
	for n := s; n.Length() > 0; n = n.Parent() {
		if _, hidden := n.Attr("hidden"); hidden {
			return false
		}
		style := strings.ReplaceAll(strings.ToLower(n.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") {
			return false
		}
	}
	return true
}
