package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/born-ml/hpickle"
	"github.com/born-ml/hpickle/internal/config"
	"github.com/born-ml/hpickle/internal/observability"
	"github.com/born-ml/hpickle/internal/serialization"
	"github.com/born-ml/hpickle/internal/store"
)

// Version is the CLI version.
const Version = "0.1.0"

// redisPrefix marks a container argument that names a Redis key.
const redisPrefix = "redis:"

// app holds the state shared by all commands of one invocation.
type app struct {
	configPath string
	logLevel   string
	stats      bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "hpickle",
		Short: "inspect pickled containers",
		Long: fmt.Sprintf(`hpickle (v%s)

Inspect containers written by the hpickle library: list their nodes, show
pickled values and search them by path, pattern or expression.

A container argument is a .hpk file path, or redis:<key> for a container
stored in Redis (see the redis section of the configuration).`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.stats, "stats", false, "print pickling metrics in Prometheus format on exit")

	root.AddCommand(
		a.lsCmd(),
		a.showCmd(),
		a.findCmd(),
		a.queryCmd(),
		a.copyCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hpickle",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hpickle v%s\n", Version)
		},
	}
}

// setup loads .env files and the configuration and builds the logger.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) {
	if a.stats {
		observability.WritePrometheus(cmd.OutOrStdout())
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// backend resolves a container argument.
func (a *app) backend(arg string) (hpickle.Backend, error) {
	level, err := serialization.ParseValidationLevel(a.cfg.Store.Validation)
	if err != nil {
		return nil, err
	}
	opts := []store.Option{
		store.WithValidation(level),
		store.WithSkipChecksum(a.cfg.Store.SkipChecksum),
		store.WithLogger(a.logger),
	}

	if key, ok := strings.CutPrefix(arg, redisPrefix); ok {
		rc := a.cfg.Redis
		if key != "" {
			rc.Key = key
		}
		return store.NewRedisBackendFromConfig(rc, opts...)
	}
	opts = append(opts, store.WithMmap(a.cfg.Store.Mmap))
	return store.NewFileBackend(arg, opts...), nil
}

// options returns the pickling options from the configuration.
func (a *app) options() []hpickle.Option {
	opts := []hpickle.Option{
		hpickle.WithThreshold(a.cfg.Pickle.Threshold),
		hpickle.WithLogger(a.logger),
	}
	if len(a.cfg.Pickle.DatasetOptions) > 0 {
		opts = append(opts, hpickle.WithDatasetOptions(a.cfg.Pickle.DatasetOptions))
	}
	return opts
}

// withTree opens the container read-only and runs fn on its root.
func (a *app) withTree(ctx context.Context, arg string, fn func(root *hpickle.Group) error) error {
	b, err := a.backend(arg)
	if err != nil {
		return err
	}
	h := store.NewHandle(b, store.ModeRead, store.WithHandleLogger(a.logger))
	root, err := h.Open(ctx)
	if err != nil {
		return err
	}
	if err := fn(root); err != nil {
		_ = h.Discard()
		return err
	}
	return h.Close(ctx)
}
