// Command ds160fill fills DS-160 application pages from client records.
//
// Usage:
//
//	ds160fill serve                               # drive Chrome, accept fill requests over HTTP
//	ds160fill mcp                                 # same engine as MCP tools on stdio
//	ds160fill fill --html page.html --record client.json --out filled.html
//	ds160fill plan --section personalInfo1 --record client.json
//	ds160fill detect --html page.html
//	ds160fill record import client.json --label "Doe family"
//	ds160fill runs --limit 20
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/ds160fill/autofill"
	"github.com/hazyhaar/ds160fill/config"
	"github.com/hazyhaar/ds160fill/fill"
	"github.com/hazyhaar/ds160fill/observability"
	"github.com/hazyhaar/ds160fill/store"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "ds160fill:", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	logCloser  io.Closer
}

func run(ctx context.Context, args []string) error {
	a := &app{}
	root := &cobra.Command{
		Use:           "ds160fill",
		Short:         "Fill DS-160 application pages from client records",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logCloser != nil {
				a.logCloser.Close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("DS160_CONFIG"), "path to ds160fill.yaml")

	root.AddCommand(
		a.serveCmd(),
		a.mcpCmd(),
		a.fillCmd(),
		a.planCmd(),
		a.detectCmd(),
		a.recordCmd(),
		a.runsCmd(),
	)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger, a.logCloser = observability.NewLogger(cfg.Log)
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) openStore() (*store.Store, error) {
	st, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("ds160fill: store opened", "path", a.cfg.Store.Path)
	return st, nil
}

// engine builds an engine over pages with the configured pacing.
func (a *app) engine(pages autofill.PageSource, st *store.Store) *autofill.Engine {
	return autofill.New(pages, autofill.Config{
		Fill: fill.Config{
			Delays:           a.cfg.DelayPolicy(),
			CheckboxAttempts: a.cfg.Fill.CheckboxAttempts,
			Logger:           a.logger,
		},
		Store:  st,
		Logger: a.logger,
	})
}
