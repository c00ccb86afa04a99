package bootstrap

import (
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"cadmcp/internal/drawing"
	"cadmcp/internal/facade"
	"cadmcp/internal/mcpserver"
)

// Options carries the command-line overrides for one run.
type Options struct {
	EnvFile   string
	LogFile   string
	Transport string
	Verbose   bool
}

func NewApp(opts Options) *fx.App {
	return fx.New(Module(opts))
}

// Module is the full dependency graph without the fx.App around it.
func Module(opts Options) fx.Option {
	return fx.Options(
		fx.Supply(opts),

		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: logger.Named("fx")}
			l.UseLogLevel(zap.DebugLevel)
			return l
		}),

		fx.Provide(
			loadConfig,
			newLogger,
			newTraceProvider,

			newBrowserFactory,
			newSession,

			newRegistry,
			fx.Annotate(newAgent, fx.As(new(drawing.Runner))),
			newDrawing,
			facade.New,

			newShutdownFunc,
			mcpserver.New,
		),

		fx.Invoke(
			func(*sdktrace.TracerProvider) {},
			startSweeper,
			runServer,
		),

		fx.StartTimeout(15*time.Second),
	)
}
