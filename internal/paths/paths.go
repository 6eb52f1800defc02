package paths

import (
	"os"
	"path/filepath"
)

const appName = "campwatch"

func DefaultRuntimeDir() string {
	if x := os.Getenv("XDG_RUNTIME_DIR"); x != "" {
		return filepath.Join(x, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+appName)
}

func DefaultConfigDir() string {
	if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
		return filepath.Join(x, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

func DefaultSocketPath() string { return filepath.Join(DefaultRuntimeDir(), "watch.sock") }
func DefaultPIDPath() string    { return filepath.Join(DefaultRuntimeDir(), "watch.pid") }

// DefaultConfigPath is read when --config is not given; it need not exist.
func DefaultConfigPath() string { return filepath.Join(DefaultConfigDir(), "config.yaml") }
