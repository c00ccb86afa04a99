package bootstrap

import (
	"cadmcp/internal/appdirs"
	"cadmcp/internal/config"
)

func loadConfig(opts Options) (*config.Config, error) {
	var files []string
	if opts.EnvFile != "" {
		files = append(files, opts.EnvFile)
	}

	conf, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	if opts.Transport != "" {
		conf.ServerConfig.Transport = opts.Transport
	}
	if opts.LogFile != "" {
		conf.AppConfig.LogFile = opts.LogFile
	}
	if opts.Verbose {
		conf.AppConfig.LogLevel = "debug"
	}
	if conf.AppConfig.LogFile == "" {
		if path, err := appdirs.LogFile(); err == nil {
			conf.AppConfig.LogFile = path
		}
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
