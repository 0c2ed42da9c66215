package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"amari/internal/config"
	"amari/internal/telemetry"
	"amari/pkg/amari"
)

type rootFlags struct {
	configPath string
	storeKind  string
	storePath  string
	logLevel   string
	logFormat  string
	workers    int
}

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	flags    rootFlags
	cfg      config.Config
	logger   *slog.Logger
	client   *amari.Client
	shutdown telemetry.Shutdown

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{in: in, out: out, errOut: errOut}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "amarictl",
		Short:         "Geometric, tropical, autodiff, automaton and Fisher information engines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.flags.storeKind, "store", "", "store backend: memory|sqlite|badger")
	pf.StringVar(&a.flags.storePath, "store-path", "", "sqlite file or badger directory")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug|info|warn|error")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "auto|text|json")
	pf.IntVar(&a.flags.workers, "workers", 0, "batch concurrency (0 = GOMAXPROCS)")

	root.AddCommand(
		a.serveCmd(),
		a.callCmd(),
		a.batchCmd(),
		a.operationsCmd(),
		a.saveCmd(),
		a.loadCmd(),
		a.listCmd(),
		a.deleteCmd(),
		a.cayleyCmd(),
		a.configCmd(),
		a.versionCmd(),
	)
	return root
}

// setup resolves config as defaults < file < AMARI_* env < flags.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	pf := cmd.Flags()
	if pf.Changed("store") {
		cfg.Store.Kind = a.flags.storeKind
	}
	if pf.Changed("store-path") {
		cfg.Store.Path = a.flags.storePath
	}
	if pf.Changed("log-level") {
		cfg.Log.Level = a.flags.logLevel
	}
	if pf.Changed("log-format") {
		cfg.Log.Format = a.flags.logFormat
	}
	if pf.Changed("workers") {
		cfg.Batch.Workers = a.flags.workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = telemetry.NewLogger(a.errOut, cfg.Log)
	slog.SetDefault(a.logger)

	shutdown, err := telemetry.InitTracing(cfg.Tracing, version, a.errOut)
	if err != nil {
		return err
	}
	a.shutdown = shutdown
	return nil
}

// open builds the client on first use.
func (a *app) open(ctx context.Context) (*amari.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	client, err := amari.New(amari.Options{
		StoreKind: a.cfg.Store.Kind,
		StorePath: a.cfg.Store.Path,
		Workers:   a.cfg.Batch.Workers,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	a.client = client
	return client, nil
}

func (a *app) close() error {
	var err error
	if a.client != nil {
		err = a.client.Close()
		a.client = nil
	}
	if a.shutdown != nil {
		if serr := a.shutdown(context.Background()); err == nil {
			err = serr
		}
		a.shutdown = nil
	}
	return err
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
