package main

import (
	"fmt"

	"github.com/dukex/flowstudio/pkg/config"
	cli "github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a YAML configuration file",
		Sources: cli.EnvVars("CONFIG_FILE"),
	}
}

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database-url",
		Usage:   "Persistence URL (file://dir, postgres://..., redis://...)",
		Sources: cli.EnvVars("DATABASE_URL"),
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		databaseURLFlag(),
		logLevelFlag(),
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "backend-url",
			Usage:   "Base URL of the validation and store backend",
			Sources: cli.EnvVars("BACKEND_URL"),
		},
		&cli.StringFlag{
			Name:    "backend-token",
			Usage:   "Bearer token sent to the backend",
			Sources: cli.EnvVars("BACKEND_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "store-api-key",
			Usage:   "Store API key sent with store requests",
			Sources: cli.EnvVars("STORE_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Change feed transport (gochannel, kafka)",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "Kafka broker addresses",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.StringFlag{
			Name:    "app-version",
			Usage:   "Version stamped on published documents",
			Sources: cli.EnvVars("APP_VERSION"),
		},
		&cli.StringFlag{
			Name:    "autosave-schedule",
			Usage:   "Cron schedule of the autosave flush",
			Sources: cli.EnvVars("AUTOSAVE_SCHEDULE"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
	}
}

// loadConfig resolves the configuration: defaults, then the optional file,
// then every flag or environment variable that is explicitly set.
func loadConfig(command *cli.Command) (config.Config, error) {
	cfg := config.Default()

	if path := command.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}

		cfg = loaded
	}

	overrideString(command, "database-url", &cfg.DatabaseURL)
	overrideString(command, "log-level", &cfg.LogLevel)
	overrideString(command, "backend-url", &cfg.BackendURL)
	overrideString(command, "backend-token", &cfg.BackendToken)
	overrideString(command, "store-api-key", &cfg.StoreAPIKey)
	overrideString(command, "event-bus", &cfg.EventBus)
	overrideString(command, "log-format", &cfg.LogFormat)
	overrideString(command, "app-version", &cfg.AppVersion)
	overrideString(command, "autosave-schedule", &cfg.AutosaveSchedule)

	if command.IsSet("port") {
		cfg.Port = command.Int("port")
	}

	if command.IsSet("kafka-brokers") {
		cfg.KafkaBrokers = command.StringSlice("kafka-brokers")
	}

	if command.IsSet("tracing") {
		cfg.Tracing.Enabled = command.Bool("tracing")
	}

	if cfg.AppVersion == "" {
		cfg.AppVersion = version
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

func overrideString(command *cli.Command, name string, target *string) {
	if command.IsSet(name) {
		*target = command.String(name)
	}
}
