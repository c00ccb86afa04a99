package bootstrap

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"cadmcp/internal/appdirs"
	"cadmcp/internal/browser"
	"cadmcp/internal/browser/pwclient"
	"cadmcp/internal/browser/rodclient"
	"cadmcp/internal/config"
)

func newBrowserFactory(conf *config.Config, logger *zap.Logger) browser.Factory {
	if conf.BrowserConfig.Driver == config.DriverPlaywright {
		return pwclient.NewFactory(logger)
	}
	return rodclient.NewFactory(logger)
}

func browserOptions(conf *config.Config) (browser.Options, error) {
	bc := conf.BrowserConfig
	opts := browser.Options{
		Headless:    bc.Headless,
		Viewport:    browser.Viewport{Width: bc.ViewportWidth, Height: bc.ViewportHeight},
		Stealth:     bc.Stealth,
		SlowMotion:  time.Duration(bc.SlowMo) * time.Millisecond,
		UserDataDir: bc.UserDataDir,
		Bin:         bc.Bin,
	}
	if opts.UserDataDir == "" && bc.Persistent {
		dir, err := appdirs.ProfileDir()
		if err != nil {
			return browser.Options{}, err
		}
		opts.UserDataDir = dir
	}
	return opts, nil
}

// newSession owns the shared browser; it is launched lazily by the first
// navigation and closed when the app stops.
func newSession(lc fx.Lifecycle, factory browser.Factory, conf *config.Config, logger *zap.Logger) (*browser.Session, error) {
	opts, err := browserOptions(conf)
	if err != nil {
		return nil, err
	}
	session := browser.NewSession(factory, opts, logger)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := session.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}
			return nil
		},
	})

	return session, nil
}
