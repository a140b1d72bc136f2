// Command flowstudio runs the studio server that backs the flow editor UI.
package main

import (
	"context"
	"os"

	"github.com/dukex/flowstudio/pkg/log"
	cli "github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:                  "flowstudio",
		Usage:                 "Edit, validate and share flows and components",
		Version:               version,
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			ServeCommand(),
			ExportCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.WithModule("flowstudio").Error("Command failed", "error", err)
		os.Exit(1)
	}
}
