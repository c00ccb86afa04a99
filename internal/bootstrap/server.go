package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"cadmcp/internal/config"
	"cadmcp/internal/mcpserver"
)

func newShutdownFunc(sd fx.Shutdowner, logger *zap.Logger) mcpserver.ShutdownFunc {
	return func() {
		if err := sd.Shutdown(); err != nil {
			logger.Error("Shutdown failed", zap.Error(err))
		}
	}
}

// runServer starts the configured transport when the app starts and stops
// it when the app stops. The stdio transport ending (client hung up) stops
// the app.
func runServer(lc fx.Lifecycle, srv *mcpserver.Server, conf *config.Config, shutdown mcpserver.ShutdownFunc, logger *zap.Logger) {
	switch conf.ServerConfig.Transport {
	case config.TransportSSE:
		sse := srv.NewSSE(conf.ServerConfig.BaseURL)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				logger.Info("Serving MCP over SSE", zap.String("addr", conf.ServerConfig.Addr))
				go func() {
					if err := sse.Start(conf.ServerConfig.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("SSE server error", zap.Error(err))
						shutdown()
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return sse.Shutdown(ctx)
			},
		})

	default:
		var cancel context.CancelFunc
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				var ctx context.Context
				ctx, cancel = context.WithCancel(context.Background())
				go func() {
					err := srv.ServeStdio(ctx, os.Stdin, os.Stdout)
					if err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("Stdio server error", zap.Error(err))
					}
					if ctx.Err() == nil {
						logger.Info("Client disconnected")
						shutdown()
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				if cancel != nil {
					cancel()
				}
				return nil
			},
		})
	}
}
