package main

import (
	"errors"
	"fmt"
	"time"

	"csrngemu/internal/bus"
	"csrngemu/internal/config"
	"csrngemu/internal/csrng"
	"csrngemu/internal/entropy"
	"csrngemu/internal/logging"
	"csrngemu/internal/trace"
)

// app holds what every device-driving command needs.
type app struct {
	cfg     *config.Config
	log     *logging.Logger
	source  entropy.Source
	store   *trace.Store
	tracer  bus.Observer
	session string
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(resolvedConfigPath()).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func resolvedConfigPath() string {
	if *configPath != "" {
		return *configPath
	}
	return config.ConfigPath()
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc, err := cfg.LoggingConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(lc)
}

func setup() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}

func newApp(cfg *config.Config) (*app, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	a := &app{cfg: cfg, log: log}

	opts, err := cfg.EntropyOptions()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.source, err = entropy.New(opts)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open entropy source: %w", err)
	}

	if cfg.Trace.Enabled {
		a.store, err = trace.Open(cfg.Trace.DatabasePath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open trace store: %w", err)
		}
		a.session = cfg.Trace.Session
		if a.session == "" {
			a.session = trace.NewSessionName(time.Now())
		}
		a.tracer, err = a.store.Observer(a.session)
		if err != nil {
			a.Close()
			return nil, err
		}
		log.Info("tracing register accesses", "db", cfg.Trace.DatabasePath, "session", a.session)
	}

	return a, nil
}

// newDevice builds a reset device wired to the configured entropy
// source, logger and tracer.
func (a *app) newDevice() *csrng.Device {
	dev := csrng.NewDevice(csrng.Config{
		Entropy: a.source,
		Logger:  a.log.Logger,
	})
	dev.Observe(bus.LogObserver(a.log.Logger))
	if a.tracer != nil {
		dev.Observe(a.tracer)
	}
	return dev
}

// newVectorDevice rewinds the entropy source before building a device,
// so every known-answer vector sees the same entropy sequence.
func (a *app) newVectorDevice() *csrng.Device {
	entropy.Rewind(a.source)
	return a.newDevice()
}

// health returns the entropy health test states, or nil when the source
// runs without health tests.
func (a *app) health() map[string]entropy.HealthStatus {
	h, ok := a.source.(*entropy.HealthCheckedSource)
	if !ok {
		return nil
	}
	return h.Status()
}

func (a *app) logHealth() {
	for name, st := range a.health() {
		a.log.Info("entropy health", "test", name, "status", st.String())
	}
}

func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Err(), a.store.Close())
	}
	if a.source != nil {
		errs = append(errs, entropy.Close(a.source))
	}
	if a.log != nil {
		errs = append(errs, a.log.Close())
	}
	return errors.Join(errs...)
}
