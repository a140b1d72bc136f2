package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dukex/flowstudio/pkg/cmd"
	"github.com/dukex/flowstudio/pkg/log"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/dukex/flowstudio/pkg/store"
	cli "github.com/urfave/cli/v3"
)

func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a document as JSON with credentials removed",
		ArgsUsage: "<document-id>",
		Flags: []cli.Flag{
			configFlag(),
			databaseURLFlag(),
			logLevelFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file (default: stdout)",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id := command.Args().First()
			if id == "" {
				return cli.Exit("a document id is required", 2)
			}

			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}

			log.Setup(cfg.LogLevel)
			logger := log.WithModule("export")

			p, err := cmd.NewPersistence(ctx, logger, cfg.DatabaseURL)
			if err != nil {
				return err
			}

			defer func() {
				if err := p.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			var out io.Writer = os.Stdout
			if path := command.String("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				defer f.Close()

				out = f
			}

			return exportDocument(ctx, p, id, out)
		},
	}
}

func exportDocument(ctx context.Context, p persistence.Persistence, id string, out io.Writer) error {
	doc, err := p.DocumentByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load document %s: %w", id, err)
	}

	return store.Export(out, doc)
}
