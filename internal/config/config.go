// Package config loads server settings from defaults, an optional YAML file
// and GLOOM_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/actor"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/sim"
)

// PathEnv names the variable holding the optional YAML config path.
const PathEnv = "GLOOM_CONFIG"

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config is the complete server configuration.
type Config struct {
	ListenAddr string `yaml:"listenAddr" env:"LISTEN_ADDR"`
	TickRate   int    `yaml:"tickRate" env:"TICK_RATE"`

	HeartbeatTimeout time.Duration `yaml:"heartbeatTimeout" env:"HEARTBEAT_TIMEOUT"`
	WriteTimeout     time.Duration `yaml:"writeTimeout" env:"WRITE_TIMEOUT"`

	SessionTTL    time.Duration `yaml:"sessionTTL" env:"SESSION_TTL"`
	LoginTokenTTL time.Duration `yaml:"loginTokenTTL" env:"LOGIN_TOKEN_TTL"`
	SigningKey    string        `yaml:"signingKey" env:"SIGNING_KEY"`
	SweepInterval time.Duration `yaml:"sweepInterval" env:"SWEEP_INTERVAL"`
	DevLogin      bool          `yaml:"devLogin" env:"DEV_LOGIN"`

	GraceWindow      time.Duration `yaml:"graceWindow" env:"GRACE_WINDOW"`
	SprintMultiplier float64       `yaml:"sprintMultiplier" env:"SPRINT_MULTIPLIER"`
	QueueCapacity    int           `yaml:"queueCapacity" env:"QUEUE_CAPACITY"`

	Storage Storage `yaml:"storage" envPrefix:"STORAGE_"`
	Logging Logging `yaml:"logging" envPrefix:"LOG_"`

	ContentPath string `yaml:"contentPath" env:"CONTENT_PATH"`
	EnablePprof bool   `yaml:"enablePprof" env:"ENABLE_PPROF"`
}

// Storage selects the repository backend.
type Storage struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	Path   string `yaml:"path" env:"PATH"`
}

// Logging selects game-event sinks.
type Logging struct {
	Sinks    []string `yaml:"sinks" env:"SINKS" envSeparator:","`
	JSONPath string   `yaml:"jsonPath" env:"JSON_PATH"`
	Severity string   `yaml:"severity" env:"SEVERITY"`
	Color    bool     `yaml:"color" env:"COLOR"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		ListenAddr:       ":8080",
		TickRate:         sim.DefaultTickRate,
		HeartbeatTimeout: 30 * time.Second,
		WriteTimeout:     5 * time.Second,
		SessionTTL:       30 * time.Minute,
		LoginTokenTTL:    2 * time.Minute,
		SweepInterval:    30 * time.Second,
		GraceWindow:      sim.DefaultGraceWindow,
		SprintMultiplier: sim.DefaultSprintMultiplier,
		QueueCapacity:    actor.DefaultQueueCapacity,
		Storage:          Storage{Driver: StorageMemory, Path: "gloom.db"},
		Logging:          Logging{Sinks: []string{"console"}, Severity: "info"},
	}
}

// Load applies the YAML file named by GLOOM_CONFIG, if any, and then the
// environment over the defaults, and validates the result.
func Load() (Config, error) {
	return LoadFrom(os.Getenv(PathEnv), os.Environ())
}

// LoadFrom is Load with an explicit file path and environment, given as
// KEY=value pairs.
func LoadFrom(path string, environ []string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      "GLOOM_",
		Environment: env.ToMap(environ),
	}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listenAddr is required"))
	}
	if c.TickRate < sim.MinTickRate || c.TickRate > sim.MaxTickRate {
		errs = append(errs, fmt.Errorf("tickRate must be between %d and %d, got %d", sim.MinTickRate, sim.MaxTickRate, c.TickRate))
	}
	if c.HeartbeatTimeout <= 0 {
		errs = append(errs, errors.New("heartbeatTimeout must be positive"))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("writeTimeout must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("sessionTTL must be positive"))
	}
	if c.LoginTokenTTL <= 0 {
		errs = append(errs, errors.New("loginTokenTTL must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweepInterval must be positive"))
	}
	if c.SigningKey != "" && len(c.SigningKey) < 32 {
		errs = append(errs, errors.New("signingKey must be at least 32 bytes"))
	}
	if c.GraceWindow < 0 {
		errs = append(errs, errors.New("graceWindow must not be negative"))
	}
	if c.SprintMultiplier < 1 {
		errs = append(errs, errors.New("sprintMultiplier must be at least 1"))
	}
	if c.QueueCapacity < 1 {
		errs = append(errs, errors.New("queueCapacity must be positive"))
	}
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	for _, sink := range c.Logging.Sinks {
		switch sink {
		case "console", "memory":
		case "json":
			if c.Logging.JSONPath == "" {
				errs = append(errs, errors.New("logging.jsonPath is required for the json sink"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown log sink %q", sink))
		}
	}
	return errors.Join(errs...)
}
