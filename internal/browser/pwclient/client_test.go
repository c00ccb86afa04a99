package pwclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadmcp/internal/browser"
)

func TestDecodeEvaluateResult(t *testing.T) {
	// playwright hands back generic maps and float64 numbers
	raw := map[string]any{
		"buttons": []any{
			map[string]any{"text": "New Model", "visible": true, "disabled": false, "id": "", "classes": "cta"},
		},
		"links": []any{
			map[string]any{"text": "Docs", "href": "https://www.rayon.design/docs", "visible": false, "id": "", "classes": ""},
		},
	}

	var got browser.Interactive
	require.NoError(t, decode(raw, &got))
	require.Len(t, got.Buttons, 1)
	assert.Equal(t, "cta", got.Buttons[0].Classes)
	require.Len(t, got.Links, 1)
	assert.Equal(t, "https://www.rayon.design/docs", got.Links[0].Href)
}

func TestDecodeCounts(t *testing.T) {
	var got browser.HighlightCounts
	require.NoError(t, decode(map[string]any{"buttonCount": 2.0, "linkCount": 5.0, "clickableCount": 0.0}, &got))
	assert.Equal(t, browser.HighlightCounts{Buttons: 2, Links: 5}, got)
}

func TestDecodeNil(t *testing.T) {
	var got browser.HighlightCounts
	assert.NoError(t, decode(nil, &got))
	assert.NoError(t, decode(map[string]any{"x": 1}, nil))
}

func TestViewport(t *testing.T) {
	assert.Nil(t, viewport(browser.Options{}))

	size := viewport(browser.DefaultOptions())
	require.NotNil(t, size)
	assert.Equal(t, 1280, size.Width)
	assert.Equal(t, 1100, size.Height)
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 3000.0, millis(3*time.Second))
}

func TestBoundedTimeout(t *testing.T) {
	assert.Equal(t, time.Minute, boundedTimeout(context.Background(), time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got := boundedTimeout(ctx, time.Minute)
	assert.LessOrEqual(t, got, 2*time.Second)
	assert.Greater(t, got, time.Second)

	assert.Equal(t, time.Second, boundedTimeout(ctx, time.Second))

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	assert.Equal(t, time.Millisecond, boundedTimeout(expired, time.Minute))
}

func TestUntilDoneReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	block := make(chan struct{})
	defer close(block)

	errc := make(chan error, 1)
	go func() {
		errc <- untilDone(ctx, func() error {
			<-block
			return nil
		})
	}()
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("untilDone did not return after cancel")
	}
}

func TestUntilDonePassesResult(t *testing.T) {
	boom := errors.New("boom")
	assert.ErrorIs(t, untilDone(context.Background(), func() error { return boom }), boom)
	assert.NoError(t, untilDone(context.Background(), func() error { return nil }))
}
