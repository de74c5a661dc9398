package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/assistant"
	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/store"
	"github.com/vovakirdan/relaychat/internal/store/memory"
	"github.com/vovakirdan/relaychat/internal/store/postgres"
	"github.com/vovakirdan/relaychat/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/relaychat/internal/transport/http"
)

// Version is reported by GET /api.
var Version = "dev"

// App wires together core and transport layers.
type App struct {
	server          *transporthttp.Server
	shutdownTimeout time.Duration
	relay           *core.Relay
	store           store.Store
	log             *zerolog.Logger
}

// OpenStore opens the message store selected by cfg.Database.Driver.
func OpenStore(cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return sqlite.New(cfg.Path)
	case config.DriverPostgres:
		return postgres.New(cfg.DSN)
	case config.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := OpenStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("driver", cfg.Database.Driver).Str("db_path", cfg.Database.Path).Msg("database initialized")

	relay := core.NewRelay(core.NewRegistry(), st, logger, core.Options{
		DefaultRoom:   cfg.Chat.DefaultRoom,
		StoreTimeout:  cfg.Chat.StoreTimeout,
		MaxBodyLength: cfg.Chat.MaxBodyLength,
	})

	svc, err := newAssistant(ctx, cfg.Assistant, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("init assistant: %w", err)
	}

	server := transporthttp.NewServer(transporthttp.Deps{
		Relay:     relay,
		Store:     st,
		Assistant: svc,
		Version:   Version,
	}, *cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		relay:           relay,
		store:           st,
		log:             logger,
	}, nil
}

// newAssistant builds the assistant service. When disabled every reply is a
// canned fallback.
func newAssistant(ctx context.Context, cfg config.AssistantConfig, logger *zerolog.Logger) (*assistant.Service, error) {
	opts := assistant.Options{
		SystemPrompt: cfg.SystemPrompt,
		HistorySize:  cfg.HistorySize,
		Timeout:      cfg.Timeout,
	}
	if !cfg.Enabled {
		logger.Info().Msg("assistant disabled, serving fallback replies")
		return assistant.NewService(nil, opts, logger), nil
	}

	chatModel, err := assistant.NewArkChatModel(ctx, assistant.ArkConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Region:  cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("chat model: %w", err)
	}
	completer, err := assistant.NewEinoCompleter(ctx, chatModel)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("model", cfg.Model).Msg("assistant enabled")
	return assistant.NewService(completer, opts, logger), nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
