// Package config loads the optional YAML configuration file of the studio server.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults used when neither the file nor the command line sets a value.
const (
	DefaultPort             = 9091
	DefaultDatabaseURL      = "file://./data"
	DefaultBackendURL       = "http://localhost:7860"
	DefaultEventBus         = "gochannel"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultAutosaveSchedule = "@every 30s"
	DefaultServiceName      = "flowstudio"
)

// Config is the resolved server configuration.
type Config struct {
	Port             int      `yaml:"port"              validate:"min=1,max=65535"`
	DatabaseURL      string   `yaml:"database_url"      validate:"required"`
	BackendURL       string   `yaml:"backend_url"       validate:"required,url"`
	BackendToken     string   `yaml:"backend_token"`
	StoreAPIKey      string   `yaml:"store_api_key"`
	EventBus         string   `yaml:"event_bus"         validate:"oneof=gochannel kafka"`
	KafkaBrokers     []string `yaml:"kafka_brokers"     validate:"required_if=EventBus kafka"`
	LogLevel         string   `yaml:"log_level"         validate:"oneof=debug info warn error"`
	LogFormat        string   `yaml:"log_format"        validate:"oneof=text json"`
	AppVersion       string   `yaml:"app_version"`
	AutosaveSchedule string   `yaml:"autosave_schedule"`
	Tracing          Tracing  `yaml:"tracing"`
}

// Tracing configures the OTLP exporter.
type Tracing struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default returns a configuration holding every default.
func Default() Config {
	return Config{
		Port:             DefaultPort,
		DatabaseURL:      DefaultDatabaseURL,
		BackendURL:       DefaultBackendURL,
		EventBus:         DefaultEventBus,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
		AutosaveSchedule: DefaultAutosaveSchedule,
		Tracing:          Tracing{ServiceName: DefaultServiceName},
	}
}

// Load reads the YAML file at path on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return cfg, nil
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}
