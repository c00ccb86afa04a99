package browser_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadmcp/internal/browser"
	"cadmcp/internal/browser/browsertest"
	"cadmcp/pkg/apperr"
)

const page = `<html><body>
	<button id="go" class="primary">Go</button>
	<button hidden>Secret</button>
	<a href="https://example.com/docs">Docs</a>
	<div style="display: none"><a href="/hidden">Hidden</a></div>
	<span role="button">Menu</span>
	<input type="submit" value="Send">
</body></html>`

func TestEnsureLaunchesOnce(t *testing.T) {
	fake := browsertest.New(nil)
	launches := 0
	s := browser.NewSession(fake.Factory(&launches), browser.DefaultOptions(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Ensure(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, launches)
	_, ok := s.Current()
	assert.True(t, ok)
}

func TestEnsureWrapsLaunchFailure(t *testing.T) {
	s := browser.NewSession(func(ctx context.Context, opts browser.Options) (browser.Client, error) {
		return nil, errors.New("no chrome")
	}, browser.DefaultOptions(), nil)

	_, err := s.Ensure(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeBrowserNotReady))

	_, ok := s.Current()
	assert.False(t, ok)
}

func TestDoWithoutSessionDoesNotLaunch(t *testing.T) {
	fake := browsertest.New(nil)
	launches := 0
	s := browser.NewSession(fake.Factory(&launches), browser.DefaultOptions(), nil)

	called := false
	err := s.Do(context.Background(), false, func(ctx context.Context, c browser.Client) error {
		called = true
		return nil
	})

	require.ErrorIs(t, err, browser.ErrNotInitialized)
	assert.False(t, called)
	assert.Zero(t, launches)
}

func TestDoReportsBusyPage(t *testing.T) {
	fake := browsertest.New(nil)
	s := browser.NewSession(fake.Factory(nil), browser.DefaultOptions(), nil)
	s.SetBusyTimeout(20 * time.Millisecond)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.Do(context.Background(), true, func(ctx context.Context, c browser.Client) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	err := s.Do(context.Background(), true, func(ctx context.Context, c browser.Client) error {
		t.Fatal("should not run while the page is held")
		return nil
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeTimeout))
	assert.Contains(t, err.Error(), "page busy")
}

func TestCloseIsFinal(t *testing.T) {
	fake := browsertest.New(nil)
	launches := 0
	s := browser.NewSession(fake.Factory(&launches), browser.DefaultOptions(), nil)

	_, err := s.Ensure(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close(context.Background()))
	assert.True(t, fake.Closed())

	_, ok := s.Current()
	assert.False(t, ok)

	_, err = s.Ensure(context.Background())
	require.ErrorIs(t, err, browser.ErrSessionClosed)
	assert.True(t, apperr.Is(err, apperr.CodeUnavailable))

	err = s.Do(context.Background(), true, func(ctx context.Context, c browser.Client) error {
		t.Fatal("should not run after Close")
		return nil
	})
	require.ErrorIs(t, err, browser.ErrSessionClosed)
	assert.Equal(t, 1, launches)
}

func TestCloseWithoutLaunch(t *testing.T) {
	launches := 0
	s := browser.NewSession(browsertest.New(nil).Factory(&launches), browser.DefaultOptions(), nil)

	require.NoError(t, s.Close(context.Background()))
	assert.Zero(t, launches)
}

func TestCloseWaitsForPageHolder(t *testing.T) {
	fake := browsertest.New(nil)
	s := browser.NewSession(fake.Factory(nil), browser.DefaultOptions(), nil)

	held := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan bool, 1)
	go func() {
		_ = s.Do(context.Background(), true, func(ctx context.Context, c browser.Client) error {
			close(held)
			<-release
			finished <- fake.Closed()
			return nil
		})
	}()
	<-held

	closed := make(chan error, 1)
	go func() { closed <- s.Close(context.Background()) }()

	select {
	case <-closed:
		t.Fatal("Close returned while the page was held")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-closed)
	assert.False(t, <-finished, "browser closed under a running call")
	assert.True(t, fake.Closed())
}

func TestQueryInteractive(t *testing.T) {
	fake := browsertest.New(map[string]string{"https://example.com": page})
	ctx := context.Background()
	require.NoError(t, fake.Navigate(ctx, "https://example.com"))

	got, err := browser.QueryInteractive(ctx, fake)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", got.URL)
	require.Len(t, got.Buttons, 2)
	assert.Equal(t, browser.Button{Text: "Go", Visible: true, ID: "go", Classes: "primary"}, got.Buttons[0])
	assert.False(t, got.Buttons[1].Visible)
	require.Len(t, got.Links, 2)
	assert.True(t, got.Links[0].Visible)
	assert.False(t, got.Links[1].Visible)
}

func TestHighlightCounts(t *testing.T) {
	fake := browsertest.New(map[string]string{"https://example.com": page})
	ctx := context.Background()
	require.NoError(t, fake.Navigate(ctx, "https://example.com"))

	got, err := browser.Highlight(ctx, fake)
	require.NoError(t, err)
	assert.Equal(t, browser.HighlightCounts{Buttons: 1, Links: 1, Clickable: 2}, got)
	assert.Equal(t, 4, got.Total())
}

func TestPageScriptErrors(t *testing.T) {
	fake := browsertest.New(nil)
	fake.EvalErr = errors.New("target closed")

	_, err := browser.QueryInteractive(context.Background(), fake)
	assert.ErrorContains(t, err, "target closed")

	_, err = browser.Highlight(context.Background(), fake)
	assert.ErrorContains(t, err, "target closed")
}
