// Package config loads the pipeline configuration from YAML.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/studentperf/pipeline/ingestion"
	"github.com/YuminosukeSato/studentperf/pipeline/trainer"
	"github.com/YuminosukeSato/studentperf/pipeline/transformation"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
)

const op = "configuration"

// Environment variables that override the file.
const (
	EnvLogLevel   = "STUDENTPERF_LOG_LEVEL"
	EnvSourcePath = "STUDENTPERF_SOURCE"
)

// Config is the whole pipeline configuration.
type Config struct {
	Log            log.Config            `yaml:"log"`
	Ingestion      ingestion.Config      `yaml:"ingestion"`
	Transformation transformation.Config `yaml:"transformation"`
	Trainer        trainer.Config        `yaml:"trainer"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Log:            log.Config{Dir: "logs", Prefix: "student_performance", Level: "info"},
		Ingestion:      ingestion.DefaultConfig(),
		Transformation: transformation.DefaultConfig(),
		Trainer:        trainer.DefaultConfig(),
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path yields the defaults. Unknown keys are rejected. The result
// is validated; every failure is a StageError of KindValidation, except a
// missing file (KindNotFound) and an unreadable one (KindIO).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Enrich(op, errors.KindNotFound, errors.Wrapf(err, "config %s does not exist", path))
			}
			return nil, errors.Enrich(op, errors.KindIO, errors.Wrapf(err, "read config %s", path))
		}
		if err := decode(data, cfg); err != nil {
			return nil, errors.Enrich(op, errors.KindValidation, errors.Wrapf(err, "parse config %s", path))
		}
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Enrich(op, errors.KindValidation, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Enrich(op, errors.KindValidation, errors.Wrap(err, "marshal config"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Enrich(op, errors.KindIO, errors.Wrapf(err, "create directory for %s", path))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Enrich(op, errors.KindIO, errors.Wrapf(err, "write config %s", path))
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvSourcePath); v != "" {
		c.Ingestion.SourcePath = v
	}
}

// Validate checks every stage configuration.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.Log.Level); !ok {
		return errors.NewValidationError("log.level", "must be one of debug, info, warn, error", c.Log.Level)
	}
	if err := c.Ingestion.Validate(); err != nil {
		return err
	}
	if err := c.Transformation.Validate(); err != nil {
		return err
	}
	return c.Trainer.Validate()
}
