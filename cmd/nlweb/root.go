package main

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/reynard/nlweb/internal/config"
	"github.com/reynard/nlweb/internal/logging"
	"github.com/reynard/nlweb/internal/service"
)

// app holds the global flags shared by every command.
type app struct {
	configPath string
	logLevel   string
	jsonOutput bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:          "nlweb",
		Short:        "Natural-language tool suggestion router",
		Long:         "nlweb ranks registered tools against a free-text query, extracts parameters and explains its choices.",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.DefaultPath(), "config file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.BoolVar(&a.jsonOutput, "json", false, "output in JSON format")

	root.AddCommand(
		a.newServeCmd(),
		a.newSuggestCmd(),
		a.newToolsCmd(),
		a.newConfigCmd(),
	)
	return root
}

// start loads configuration, builds the logger and an initialised service.
// Logs go to stderr so stdout stays free for results and the MCP stream.
func (a *app) start(ctx context.Context) (*service.Service, *config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}

	logger := logging.New(cfg.Logging, a.stderr)
	svc := service.New(cfg, logger)
	if err := svc.Initialize(ctx); err != nil {
		return nil, nil, logger, err
	}
	return svc, cfg, logger, nil
}
