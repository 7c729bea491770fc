package config

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Pool.Workers <= 0 {
		errs = append(errs, invalid("pool.workers must be positive, got %d", c.Pool.Workers))
	}
	if c.Pool.CPUWorkers <= 0 {
		errs = append(errs, invalid("pool.cpu_workers must be positive, got %d", c.Pool.CPUWorkers))
	}
	if c.Pool.QueueSize <= 0 {
		errs = append(errs, invalid("pool.queue_size must be positive, got %d", c.Pool.QueueSize))
	}
	if c.Pool.DefaultTimeout < 0 {
		errs = append(errs, invalid("pool.default_timeout must not be negative"))
	}
	if c.Pipeline.Capacity <= 0 {
		errs = append(errs, invalid("pipeline.capacity must be positive, got %d", c.Pipeline.Capacity))
	}
	if c.Orchestrator.DrainTimeout < 0 {
		errs = append(errs, invalid("orchestrator.drain_timeout must not be negative"))
	}
	if c.Orchestrator.MaxInFlight < 0 {
		errs = append(errs, invalid("orchestrator.max_in_flight must not be negative, got %d", c.Orchestrator.MaxInFlight))
	}
	if c.Orchestrator.BatchTimeout < 0 {
		errs = append(errs, invalid("orchestrator.batch_timeout must not be negative"))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		errs = append(errs, invalid("logging.level %q", c.Logging.Level))
	}
	if !slices.Contains([]string{"console", "json"}, c.Logging.Format) {
		errs = append(errs, invalid("logging.format %q", c.Logging.Format))
	}
	switch c.Logging.Output {
	case "stdout":
	case "file", "both":
		if c.Logging.FilePath == "" {
			errs = append(errs, invalid("logging.file_path required for output %q", c.Logging.Output))
		}
	default:
		errs = append(errs, invalid("logging.output %q", c.Logging.Output))
	}

	return errors.Join(errs...)
}
