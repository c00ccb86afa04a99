package bootstrap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"cadmcp/internal/browser"
	"cadmcp/internal/browser/browsertest"
	"cadmcp/internal/config"
	"cadmcp/internal/taskreg"
)

func TestStopDrainsTasksBeforeClosingBrowser(t *testing.T) {
	var (
		mu      sync.Mutex
		clients []*browsertest.Client
	)
	factory := func(ctx context.Context, opts browser.Options) (browser.Client, error) {
		mu.Lock()
		defer mu.Unlock()
		c := browsertest.New(nil)
		clients = append(clients, c)
		return c, nil
	}

	running := make(chan struct{})
	var reg *taskreg.Registry

	app := fx.New(
		fx.NopLogger,
		fx.Supply(&config.Config{
			BrowserConfig: &config.BrowserConfig{ViewportWidth: 1280, ViewportHeight: 1100},
			TaskConfig:    &config.TaskConfig{ShutdownTimeout: 5 * time.Second},
		}),
		fx.Provide(
			zap.NewNop,
			func() browser.Factory { return factory },
			newSession,
			newRegistry,
		),
		fx.Populate(&reg),
		fx.Invoke(func(r *taskreg.Registry, session *browser.Session) error {
			var once sync.Once
			return r.Start(context.Background(), taskreg.Task{
				ID: "agent-loop",
				Run: func(ctx context.Context) (string, error) {
					for {
						err := session.Do(ctx, true, func(ctx context.Context, c browser.Client) error {
							once.Do(func() { close(running) })
							return nil
						})
						if ctx.Err() != nil {
							return "", ctx.Err()
						}
						if err != nil {
							return "", err
						}
						time.Sleep(time.Millisecond)
					}
				},
			})
		}),
	)
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, app.Start(ctx))
	select {
	case <-running:
	case <-time.After(5 * time.Second):
		t.Fatal("task never used the browser")
	}
	require.NoError(t, app.Stop(ctx))

	rec, ok := reg.Lookup("agent-loop")
	require.True(t, ok)
	assert.True(t, rec.Terminal())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, clients, 1, "browser relaunched during shutdown")
	assert.True(t, clients[0].Closed())
}
