package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"cadmcp/internal/agent"
	"cadmcp/internal/browser"
	"cadmcp/internal/config"
	"cadmcp/internal/drawing"
	"cadmcp/internal/taskreg"
)

// newRegistry takes the session so that the session's stop hook is
// registered first: fx stops in reverse, so running tasks are cancelled
// and drained before the browser is closed.
func newRegistry(lc fx.Lifecycle, _ *browser.Session, conf *config.Config, logger *zap.Logger) *taskreg.Registry {
	reg := taskreg.New(logger, taskreg.WithRetention(conf.TaskConfig.Retention))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, conf.TaskConfig.ShutdownTimeout)
			defer cancel()
			if err := reg.Shutdown(ctx); err != nil {
				logger.Warn("Background tasks did not stop in time", zap.Error(err))
			}
			return nil
		},
	})

	return reg
}

// startSweeper schedules retention sweeps when a retention is configured.
func startSweeper(lc fx.Lifecycle, reg *taskreg.Registry, conf *config.Config, logger *zap.Logger) error {
	if conf.TaskConfig.Retention <= 0 {
		return nil
	}

	sweeper, err := taskreg.NewSweeper(reg, conf.TaskConfig.SweepSchedule, logger)
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sweeper.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return sweeper.Stop(ctx)
		},
	})
	return nil
}

func newAgent(conf *config.Config, session *browser.Session, logger *zap.Logger) *agent.Agent {
	ac := conf.AgentConfig
	if ac.APIKey == "" {
		logger.Warn("AGENT_API_KEY is empty; drawing tasks will fail")
	}
	return agent.New(
		agent.NewOpenAIClient(ac.APIKey, ac.BaseURL),
		session,
		agent.Config{Model: ac.Model, MaxSteps: ac.MaxSteps, Temperature: ac.Temperature},
		logger,
	)
}

func newDrawing(reg *taskreg.Registry, runner drawing.Runner, logger *zap.Logger) *drawing.Service {
	return drawing.New(reg, runner, logger)
}
