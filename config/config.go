/*
Package config loads stream parameters from YAML documents and the
environment.

A typical document looks like:

	name: train
	batch_size: 32
	workers: 8
	order: shuffled
	seed: 42

Environment variables override values loaded from the document:

	AUGMENT_NAME, AUGMENT_BATCH_SIZE, AUGMENT_WORKERS, AUGMENT_ORDER,
	AUGMENT_SEED, AUGMENT_DEBUG
*/
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pipelined.dev/augment"
	"pipelined.dev/augment/batch"
)

// Order names.
const (
	OrderSequential = "sequential"
	OrderShuffled   = "shuffled"
)

// Environment variables.
const (
	EnvName      = "AUGMENT_NAME"
	EnvBatchSize = "AUGMENT_BATCH_SIZE"
	EnvWorkers   = "AUGMENT_WORKERS"
	EnvOrder     = "AUGMENT_ORDER"
	EnvSeed      = "AUGMENT_SEED"
	EnvDebug     = "AUGMENT_DEBUG"
)

// Config holds stream parameters.
type Config struct {
	Name      string `yaml:"name"`
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`
	Order     string `yaml:"order"`
	Seed      uint64 `yaml:"seed"`
	Debug     bool   `yaml:"debug"`
}

// Default returns config with default values.
func Default() Config {
	return Config{
		BatchSize: 1,
		Order:     OrderSequential,
	}
}

// Load decodes YAML document on top of default config. Unknown fields
// are rejected.
func Load(r io.Reader) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	return c, c.Validate()
}

// LoadFile loads config from YAML file.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("error opening config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// LoadEnvFile loads variables from .env files into the environment.
// Variables which are already set are not overridden. Missing files are
// ignored.
func LoadEnvFile(paths ...string) error {
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("error loading env file: %w", err)
	}
	return nil
}

// FromEnv overrides config values with environment variables.
func FromEnv(c Config) (Config, error) {
	if v, ok := os.LookupEnv(EnvName); ok {
		c.Name = v
	}
	if v, ok := os.LookupEnv(EnvOrder); ok {
		c.Order = v
	}
	var err error
	if v, ok := os.LookupEnv(EnvBatchSize); ok {
		if c.BatchSize, err = strconv.Atoi(v); err != nil {
			return Config{}, envError(EnvBatchSize, v, err)
		}
	}
	if v, ok := os.LookupEnv(EnvWorkers); ok {
		if c.Workers, err = strconv.Atoi(v); err != nil {
			return Config{}, envError(EnvWorkers, v, err)
		}
	}
	if v, ok := os.LookupEnv(EnvSeed); ok {
		if c.Seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			return Config{}, envError(EnvSeed, v, err)
		}
	}
	if v, ok := os.LookupEnv(EnvDebug); ok {
		if c.Debug, err = strconv.ParseBool(v); err != nil {
			return Config{}, envError(EnvDebug, v, err)
		}
	}
	return c, c.Validate()
}

func envError(name, value string, err error) error {
	return &augment.ConfigError{
		Field:  name,
		Value:  value,
		Reason: err.Error(),
	}
}

// Validate checks config values.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return &augment.ConfigError{
			Field:  "batch size",
			Value:  c.BatchSize,
			Reason: "must be positive",
		}
	}
	if c.Workers < 0 {
		return &augment.ConfigError{
			Field:  "workers",
			Value:  c.Workers,
			Reason: "must not be negative",
		}
	}
	switch c.Order {
	case "", OrderSequential, OrderShuffled:
	default:
		return &augment.ConfigError{
			Field:  "order",
			Value:  c.Order,
			Reason: "must be sequential or shuffled",
		}
	}
	return nil
}

// OrderPolicy returns batch order for the config.
func (c Config) OrderPolicy() batch.Order {
	if c.Order == OrderShuffled {
		return batch.Shuffled(c.Seed)
	}
	return batch.Sequential()
}

// Options returns stream options for the config. Batch size is passed to
// augment.New separately.
func (c Config) Options() []augment.Option {
	options := []augment.Option{
		augment.WithWorkers(c.Workers),
		augment.WithOrder(c.OrderPolicy()),
	}
	if c.Name != "" {
		options = append(options, augment.WithName(c.Name))
	}
	return options
}
