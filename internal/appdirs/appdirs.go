// Package appdirs places the files cadmcp owns: the default log file and
// the persistent browser profile. Both live under one base directory.
package appdirs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvHome = "CADMCP_HOME"

	baseName    = ".cadmcp"
	logsName    = "logs"
	profileName = "profile"
	logFileName = "cadmcp-mcp.log"
)

// Base is CADMCP_HOME when set, else ~/.cadmcp.
func Base() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvHome)); dir != "" {
		return filepath.Clean(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, baseName), nil
}

// ProfileDir backs BROWSER_PERSISTENT when no BROWSER_USER_DATA_DIR is
// given. The browser creates it on launch.
func ProfileDir() (string, error) {
	return under(profileName)
}

// LogFile is the default LOG_FILE. Its directory is created.
func LogFile() (string, error) {
	dir, err := under(logsName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	return filepath.Join(dir, logFileName), nil
}

func under(name string) (string, error) {
	base, err := Base()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, name), nil
}
