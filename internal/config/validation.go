package config

import (
	"fmt"
	"strings"

	"csrngemu/internal/entropy"
	"csrngemu/internal/logging"
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in a configuration.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// HasErrors reports whether any error was recorded.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

func (e *ValidationErrors) add(field, format string, args ...any) {
	*e = append(*e, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// ValidateConfig checks cfg and returns ValidationErrors, or nil.
func ValidateConfig(cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	var errs ValidationErrors

	if cfg.Version < 1 || cfg.Version > Version {
		errs.add("version", "unsupported version %d", cfg.Version)
	}

	kind, err := entropy.ParseKind(cfg.Entropy.Source)
	if err != nil {
		errs.add("entropy.source", "must be one of %v", entropy.Kinds())
	}
	switch kind {
	case entropy.KindStatic:
		if n := len(cfg.Entropy.StaticWords); n != 0 && n < entropy.SeedWordCount {
			errs.add("entropy.static_words", "need at least %d words, got %d", entropy.SeedWordCount, n)
		}
	case entropy.KindDerived:
		if cfg.Entropy.Passphrase == "" {
			errs.add("entropy.passphrase", "required for derived source")
		}
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		errs.add("logging.level", "%v", err)
	}
	if _, err := logging.ParseFormat(cfg.Logging.Format); err != nil {
		errs.add("logging.format", "%v", err)
	}
	switch strings.ToLower(cfg.Logging.Output) {
	case "", "stdout", "stderr":
	case "file", "both":
		if cfg.Logging.FilePath == "" {
			errs.add("logging.file_path", "required when output is %q", cfg.Logging.Output)
		}
	default:
		errs.add("logging.output", "must be stdout, stderr, file or both")
	}
	if cfg.Logging.MaxSizeMB < 0 {
		errs.add("logging.max_size_mb", "must not be negative")
	}
	if cfg.Logging.MaxBackups < 0 {
		errs.add("logging.max_backups", "must not be negative")
	}

	if cfg.Trace.Enabled && cfg.Trace.DatabasePath == "" {
		errs.add("trace.database_path", "required when tracing is enabled")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
