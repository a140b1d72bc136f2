package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukex/flowstudio/pkg/autosave"
	"github.com/dukex/flowstudio/pkg/client"
	"github.com/dukex/flowstudio/pkg/cmd"
	"github.com/dukex/flowstudio/pkg/config"
	"github.com/dukex/flowstudio/pkg/documents"
	"github.com/dukex/flowstudio/pkg/eventbus"
	"github.com/dukex/flowstudio/pkg/log"
	"github.com/dukex/flowstudio/pkg/notification"
	"github.com/dukex/flowstudio/pkg/otelhelper"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/dukex/flowstudio/pkg/services"
	"github.com/dukex/flowstudio/pkg/store"
	"github.com/dukex/flowstudio/pkg/validation"
	"github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const shutdownTimeout = 10 * time.Second

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the studio API server",
		Flags:   serveFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}

			log.SetupWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing flowstudio", "version", cfg.AppVersion)

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tracer := otelhelper.NoopTracer()

			if cfg.Tracing.Enabled {
				var shutdown otelhelper.Shutdown

				tracer, shutdown, err = otelhelper.NewTracer(ctx, cfg.Tracing.ServiceName)
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.WithoutCancel(ctx)); err != nil {
						logger.Error("Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			s, err := newStudio(ctx, cfg, logger, tracer)
			if err != nil {
				return err
			}
			defer s.close(context.WithoutCancel(ctx))

			return s.serve(ctx, cfg.Port)
		},
	}
}

// studio is the wired application.
type studio struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	registry    *documents.Registry
	saver       *autosave.Saver
	api         *API
	logger      *slog.Logger
}

func newStudio(ctx context.Context, cfg config.Config, logger *slog.Logger, tracer trace.Tracer) (_ *studio, err error) {
	s := &studio{logger: logger}

	defer func() {
		if err != nil {
			s.close(context.WithoutCancel(ctx))
		}
	}()

	s.persistence, err = cmd.NewPersistence(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	s.eventBus, err = cmd.NewEventBus(cfg.EventBus, cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	emitter := eventbus.NewEmitter(s.eventBus, logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	s.registry = documents.NewRegistry(log.WithModule("documents"), emitter)
	if err = s.registry.Load(ctx, s.persistence); err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	center := notification.NewCenter(log.WithModule("notifications"), notification.WithEmitter(emitter))

	backend := client.New(cfg.BackendURL, log.WithModule("backend"),
		client.WithToken(cfg.BackendToken),
		client.WithStoreAPIKey(cfg.StoreAPIKey),
	)

	documentService := services.NewDocuments(s.persistence, s.registry, center, backend, validate, log.WithModule("documents"))
	adapter := validation.NewAdapter(backend, s.registry, center, log.WithModule("validation"),
		validation.WithTracer(tracer),
	)
	sessions := store.NewSessions(backend, s.registry, center, documentService, log.WithModule("store"),
		store.WithAppVersion(cfg.AppVersion),
		store.WithEmitter(emitter),
		store.WithTracer(tracer),
	)

	s.saver, err = autosave.New(documentService, cfg.AutosaveSchedule, logger)
	if err != nil {
		return nil, err
	}

	if err = s.saver.Register(s.eventBus); err != nil {
		return nil, err
	}

	if err = s.eventBus.Subscribe(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe to change feed: %w", err)
	}

	if err = s.saver.Start(ctx); err != nil {
		return nil, err
	}

	s.api = NewAPI(logger, documentService, s.registry, center, adapter, sessions, s.persistence, validate)

	return s, nil
}

func (s *studio) serve(ctx context.Context, port int) error {
	app := s.api.App()
	errs := make(chan error, 1)

	go func() {
		errs <- app.Listen(":" + strconv.Itoa(port))
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return app.ShutdownWithContext(shutdownCtx)
	}
}

// close releases everything newStudio opened, in reverse order.
func (s *studio) close(ctx context.Context) {
	if s.saver != nil {
		s.saver.Stop(ctx)
	}

	if s.eventBus != nil {
		if err := s.eventBus.Close(); err != nil {
			s.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}

	if s.persistence != nil {
		if err := s.persistence.Close(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}
}
