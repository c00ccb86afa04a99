package bootstrap

import (
	"go.uber.org/zap"

	"cadmcp/internal/config"
)

// newLogger never writes to stdout: the stdio transport owns it.
func newLogger(conf *config.Config) (*zap.Logger, error) {
	var zapConfig zap.Config

	if conf.AppConfig.Debug {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	zapConfig.DisableStacktrace = true

	switch conf.AppConfig.LogLevel {
	case "debug":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapConfig.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	if conf.AppConfig.LogFile != "" {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, conf.AppConfig.LogFile)
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return logger, nil
}
