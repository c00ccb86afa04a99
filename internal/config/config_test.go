package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadmcp/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BROWSER_DRIVER", "")
	os.Unsetenv("BROWSER_DRIVER")

	conf, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, config.DriverRod, conf.BrowserConfig.Driver)
	assert.False(t, conf.BrowserConfig.Headless)
	assert.Equal(t, 1280, conf.BrowserConfig.ViewportWidth)
	assert.Equal(t, 1100, conf.BrowserConfig.ViewportHeight)
	assert.Equal(t, config.TransportStdio, conf.ServerConfig.Transport)
	assert.Equal(t, time.Duration(0), conf.TaskConfig.Retention)
	assert.Equal(t, 50, conf.AgentConfig.MaxSteps)
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TASK_RETENTION=1h\nAGENT_MODEL=test-model\n"), 0o644))

	t.Setenv("TASK_RETENTION", "")
	os.Unsetenv("TASK_RETENTION")
	t.Setenv("AGENT_MODEL", "")
	os.Unsetenv("AGENT_MODEL")

	conf, err := config.Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, time.Hour, conf.TaskConfig.Retention)
	assert.Equal(t, "test-model", conf.AgentConfig.Model)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("BROWSER_DRIVER", "netscape")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BROWSER_DRIVER")
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	t.Setenv("SERVER_TRANSPORT", "carrier-pigeon")

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_TRANSPORT")
}
