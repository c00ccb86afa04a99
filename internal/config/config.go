package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig     *AppConfig
	BrowserConfig *BrowserConfig
	AgentConfig   *AgentConfig
	ServerConfig  *ServerConfig
	TaskConfig    *TaskConfig
	TraceConfig   *TraceConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
	LogFile  string `envconfig:"LOG_FILE"`
}

type BrowserConfig struct {
	Driver         string `envconfig:"BROWSER_DRIVER" default:"rod"`
	Headless       bool   `envconfig:"BROWSER_HEADLESS" default:"false"`
	ViewportWidth  int    `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight int    `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"1100"`
	Stealth        bool   `envconfig:"BROWSER_STEALTH" default:"false"`
	SlowMo         int    `envconfig:"BROWSER_SLOW_MO" default:"0"`
	UserDataDir    string `envconfig:"BROWSER_USER_DATA_DIR"`
	Persistent     bool   `envconfig:"BROWSER_PERSISTENT" default:"false"`
	Bin            string `envconfig:"BROWSER_BIN"`
}

type AgentConfig struct {
	APIKey      string  `envconfig:"AGENT_API_KEY"`
	BaseURL     string  `envconfig:"AGENT_BASE_URL" default:"https://openrouter.ai/api/v1"`
	Model       string  `envconfig:"AGENT_MODEL" default:"openai/gpt-4o"`
	MaxSteps    int     `envconfig:"AGENT_MAX_STEPS" default:"50"`
	Temperature float32 `envconfig:"AGENT_TEMPERATURE" default:"0"`
}

type ServerConfig struct {
	Transport string `envconfig:"SERVER_TRANSPORT" default:"stdio"`
	Addr      string `envconfig:"SERVER_ADDR" default:":8090"`
	BaseURL   string `envconfig:"SERVER_BASE_URL" default:"http://localhost:8090"`
}

type TaskConfig struct {
	Retention       time.Duration `envconfig:"TASK_RETENTION" default:"0"`
	SweepSchedule   string        `envconfig:"TASK_SWEEP_SCHEDULE" default:"@every 5m"`
	ShutdownTimeout time.Duration `envconfig:"TASK_SHUTDOWN_TIMEOUT" default:"10s"`
}

type TraceConfig struct {
	Enabled bool `envconfig:"TRACE_ENABLED" default:"false"`
}

const (
	DriverRod        = "rod"
	DriverPlaywright = "playwright"

	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Load reads the optional env files (missing files are ignored) and then
// processes the environment into a Config.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else {
		for _, f := range envFiles {
			if strings.TrimSpace(f) == "" {
				continue
			}
			_ = godotenv.Load(f)
		}
	}

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *Config) Validate() error {
	switch c.BrowserConfig.Driver {
	case DriverRod, DriverPlaywright:
	default:
		return fmt.Errorf("unsupported BROWSER_DRIVER %q (want %s or %s)", c.BrowserConfig.Driver, DriverRod, DriverPlaywright)
	}

	switch c.ServerConfig.Transport {
	case TransportStdio, TransportSSE:
	default:
		return fmt.Errorf("unsupported SERVER_TRANSPORT %q (want %s or %s)", c.ServerConfig.Transport, TransportStdio, TransportSSE)
	}

	if c.BrowserConfig.ViewportWidth <= 0 || c.BrowserConfig.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.BrowserConfig.ViewportWidth, c.BrowserConfig.ViewportHeight)
	}

	if c.AgentConfig.MaxSteps <= 0 {
		return fmt.Errorf("AGENT_MAX_STEPS must be positive, got %d", c.AgentConfig.MaxSteps)
	}

	if c.TaskConfig.Retention < 0 {
		return fmt.Errorf("TASK_RETENTION must not be negative, got %s", c.TaskConfig.Retention)
	}

	return nil
}
