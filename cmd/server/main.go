package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/relaychat/internal/app"
	"github.com/vovakirdan/relaychat/internal/config"
	applog "github.com/vovakirdan/relaychat/internal/log"
)

type rootOptions struct {
	configPath string
	overrides  config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "relaychat",
		Short:         "Room-scoped real-time chat relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config.yaml")
	flags.StringVar(&opts.overrides.Database.Driver, "db-driver", "", "database driver: sqlite, postgres or memory")
	flags.StringVar(&opts.overrides.Database.Path, "db-path", "", "sqlite database path")
	flags.StringVar(&opts.overrides.Database.DSN, "db-dsn", "", "postgres connection string")
	flags.StringVar(&opts.overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	serve.Flags().StringVar(&opts.overrides.Addr, "addr", "", "HTTP listen address")
	serve.Flags().DurationVar(&opts.overrides.ReadHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	serve.Flags().DurationVar(&opts.overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")

	root.AddCommand(serve, newUsersCmd(opts), newHistoryCmd(opts))
	return root
}

// loadConfig resolves configuration and builds the final logger.
func loadConfig(opts *rootOptions) (config.Config, *zerolog.Logger, error) {
	bootstrap := applog.New("info", "console")

	cfg, path, err := config.Load(bootstrap, opts.configPath)
	if err != nil {
		return cfg, bootstrap, err
	}
	cfg.UpdateFrom(opts.overrides)
	if err := cfg.Validate(); err != nil {
		return cfg, bootstrap, fmt.Errorf("invalid config: %w", err)
	}

	logger := applog.New(cfg.LogLevel, cfg.LogFormat)
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return cfg, logger, nil
}

func runServe(parent context.Context, opts *rootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting relaychat server")
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
