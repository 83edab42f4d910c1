// Package config handles configuration loading, validation, and management for csrngemu.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"csrngemu/internal/entropy"
	"csrngemu/internal/logging"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete emulator configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Entropy selects the source behind entropy-seeded INSTANTIATE.
	Entropy EntropyConfig `toml:"entropy" json:"entropy" yaml:"entropy"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Trace configuration for the register access log.
	Trace TraceConfig `toml:"trace" json:"trace" yaml:"trace"`

	// KAT configuration for known-answer test runs.
	KAT KATConfig `toml:"kat" json:"kat" yaml:"kat"`

	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// EntropyConfig configures the entropy source.
type EntropyConfig struct {
	// Source is one of "static", "os", "derived", "tpm".
	Source string `toml:"source" json:"source" yaml:"source"`

	// StaticWords replaces the built-in static seed when Source is "static".
	StaticWords []uint32 `toml:"static_words" json:"static_words" yaml:"static_words"`

	// Passphrase keys the "derived" source.
	Passphrase string `toml:"passphrase" json:"passphrase" yaml:"passphrase"`

	// TPMDevice is the TPM character device; empty tries the defaults.
	TPMDevice string `toml:"tpm_device" json:"tpm_device" yaml:"tpm_device"`

	// HealthTests runs repetition count and adaptive proportion tests
	// over the source output.
	HealthTests bool `toml:"health_tests" json:"health_tests" yaml:"health_tests"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `toml:"level" json:"level" yaml:"level"`
	Format     string `toml:"format" json:"format" yaml:"format"`
	Output     string `toml:"output" json:"output" yaml:"output"`
	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int64  `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
}

// TraceConfig controls persistent register tracing.
type TraceConfig struct {
	Enabled      bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	DatabasePath string `toml:"database_path" json:"database_path" yaml:"database_path"`

	// Session labels the accesses of one run. Empty generates one.
	Session string `toml:"session" json:"session" yaml:"session"`
}

// KATConfig points at known-answer test vectors.
type KATConfig struct {
	// VectorsPath is a JSON vector file; empty uses the built-in set.
	VectorsPath string `toml:"vectors_path" json:"vectors_path" yaml:"vectors_path"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Entropy: EntropyConfig{
			Source:      string(entropy.KindStatic),
			HealthTests: true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(DataDir(), "csrngemu.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Trace: TraceConfig{
			DatabasePath: filepath.Join(DataDir(), "trace.db"),
		},
	}
}

// Load reads configuration from path. A missing file yields defaults.
// TOML, JSON and YAML are chosen by extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// Save writes cfg as TOML.
func Save(cfg *Config, path string) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode TOML: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies CSRNGEMU_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := os.Getenv("CSRNGEMU_ENTROPY_SOURCE"); v != "" {
		c.Entropy.Source = v
	}
	if v := os.Getenv("CSRNGEMU_ENTROPY_PASSPHRASE"); v != "" {
		c.Entropy.Passphrase = v
	}
	if v := os.Getenv("CSRNGEMU_TPM_DEVICE"); v != "" {
		c.Entropy.TPMDevice = v
	}
	if v := os.Getenv("CSRNGEMU_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CSRNGEMU_TRACE_DB"); v != "" {
		c.Trace.DatabasePath = v
		c.Trace.Enabled = true
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &Config{
		Version: c.Version,
		Entropy: c.Entropy,
		Logging: c.Logging,
		Trace:   c.Trace,
		KAT:     c.KAT,
	}
	clone.Entropy.StaticWords = append([]uint32(nil), c.Entropy.StaticWords...)
	return clone
}

// EntropyOptions converts the entropy section for entropy.New.
func (c *Config) EntropyOptions() (entropy.Options, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	kind, err := entropy.ParseKind(c.Entropy.Source)
	if err != nil {
		return entropy.Options{}, err
	}
	return entropy.Options{
		Kind:        kind,
		StaticWords: append([]uint32(nil), c.Entropy.StaticWords...),
		Passphrase:  c.Entropy.Passphrase,
		TPMDevice:   c.Entropy.TPMDevice,
		HealthTests: c.Entropy.HealthTests,
	}, nil
}

// LoggingConfig converts the logging section for logging.New.
func (c *Config) LoggingConfig() (*logging.Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(c.Logging.Format)
	if err != nil {
		return nil, err
	}

	lc := logging.DefaultConfig()
	lc.Level = level
	lc.Format = format
	if c.Logging.Output != "" {
		lc.Output = c.Logging.Output
	}
	if c.Logging.FilePath != "" {
		lc.FilePath = c.Logging.FilePath
	}
	lc.MaxSize = c.Logging.MaxSizeMB
	lc.MaxBackups = c.Logging.MaxBackups
	return lc, nil
}
