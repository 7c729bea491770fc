package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Pool         PoolConfig         `yaml:"pool"`
	Pipeline     PipelineConfig     `yaml:"pipeline"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

type PoolConfig struct {
	Workers        int           `yaml:"workers" env:"RAILYARD_POOL_WORKERS"`
	CPUWorkers     int           `yaml:"cpu_workers" env:"RAILYARD_POOL_CPU_WORKERS"`
	QueueSize      int           `yaml:"queue_size" env:"RAILYARD_POOL_QUEUE_SIZE"`
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"RAILYARD_POOL_DEFAULT_TIMEOUT"`
}

type PipelineConfig struct {
	Capacity int `yaml:"capacity" env:"RAILYARD_PIPELINE_CAPACITY"`
}

type OrchestratorConfig struct {
	DrainTimeout time.Duration `yaml:"drain_timeout" env:"RAILYARD_DRAIN_TIMEOUT"`
	BatchTimeout time.Duration `yaml:"batch_timeout" env:"RAILYARD_BATCH_TIMEOUT"`
	// MaxInFlight of zero follows pipeline.capacity.
	MaxInFlight int `yaml:"max_in_flight" env:"RAILYARD_MAX_IN_FLIGHT"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" env:"RAILYARD_LOG_LEVEL"`
	Format     string `yaml:"format" env:"RAILYARD_LOG_FORMAT"`
	Output     string `yaml:"output" env:"RAILYARD_LOG_OUTPUT"`
	FilePath   string `yaml:"file_path" env:"RAILYARD_LOG_FILE_PATH"`
	MaxSize    int    `yaml:"max_size" env:"RAILYARD_LOG_MAX_SIZE"`
	MaxBackups int    `yaml:"max_backups" env:"RAILYARD_LOG_MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" env:"RAILYARD_LOG_MAX_AGE"`
}

type MetricsConfig struct {
	Address string `yaml:"address" env:"RAILYARD_METRICS_ADDRESS"`
}

func DefaultConfig() *Config {
	return &Config{
		Pool: PoolConfig{
			Workers:    4,
			CPUWorkers: 2,
			QueueSize:  1024,
		},
		Pipeline: PipelineConfig{
			Capacity: 64,
		},
		Orchestrator: OrchestratorConfig{
			DrainTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stdout",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

type Loader struct {
	configPath string
	lookupEnv  func(string) (string, bool)
	cmdArgs    map[string]string
}

func NewLoader() *Loader {
	return &Loader{
		lookupEnv: os.LookupEnv,
		cmdArgs:   make(map[string]string),
	}
}

func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnv replaces the process environment as the source of overrides.
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	l.lookupEnv = lookup
	return l
}

// WithCmdArgs sets dot-path overrides, such as "logging.level" -> "debug".
func (l *Loader) WithCmdArgs(args map[string]string) *Loader {
	l.cmdArgs = args
	return l
}

// Load applies every source in precedence order and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.applyEnvToStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}

	for key, value := range l.cmdArgs {
		if err := setConfigValue(cfg, key, value); err != nil {
			return nil, fmt.Errorf("apply flag %s: %w", key, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", l.configPath, err)
	}

	return nil
}

func (l *Loader) applyEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue, ok := l.lookupEnv(envTag)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("%s -> %s: %w", envTag, fieldType.Name, err)
		}
	}

	return nil
}

// setConfigValue sets a field by its yaml dot path.
func setConfigValue(cfg *Config, path, value string) error {
	v := reflect.ValueOf(cfg).Elem()

	parts := strings.Split(path, ".")
	for i, part := range parts {
		field, ok := fieldByYAMLName(v, part)
		if !ok {
			return fmt.Errorf("unknown config path %q", path)
		}

		if i == len(parts)-1 {
			return setFieldValue(field, value)
		}

		if field.Kind() != reflect.Struct {
			return fmt.Errorf("%s is a %s, not a section", part, field.Kind())
		}
		v = field
	}

	return nil
}

func fieldByYAMLName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("yaml") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}

		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}

	return nil
}

func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}
