package config

import (
	"os"
	"path/filepath"
)

// SupportedConfigFormats lists the file names searched by FindConfigFile.
var SupportedConfigFormats = []string{
	"config.toml",
	"config.json",
	"config.yaml",
	"config.yml",
}

// ConfigDir returns the configuration directory, honoring XDG_CONFIG_HOME.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "csrngemu")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "csrngemu")
}

// DataDir returns the state directory for logs and traces, honoring
// XDG_STATE_HOME.
func DataDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "csrngemu")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "csrngemu")
}

// ConfigPath returns the default configuration file path. CSRNGEMU_CONFIG
// takes precedence, then the first existing supported file in ConfigDir.
func ConfigPath() string {
	if p := os.Getenv("CSRNGEMU_CONFIG"); p != "" {
		return p
	}
	if p := FindConfigFile(ConfigDir()); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// FindConfigFile returns the first supported config file in dir, or "".
func FindConfigFile(dir string) string {
	for _, name := range SupportedConfigFormats {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
