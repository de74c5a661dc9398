package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/assistant"
	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/store"
)

// Deps are the components the HTTP layer serves.
type Deps struct {
	Relay     *core.Relay
	Store     store.Inspector
	Assistant *assistant.Service
	Version   string
}

// Server is the HTTP server plus the WebSocket connections it hijacked.
type Server struct {
	*stdhttp.Server
	ws *WSHandler
}

// NewServer builds an HTTP server with all routes.
func NewServer(deps Deps, cfg config.Config, logger *zerolog.Logger) *Server {
	ws := NewWSHandler(deps.Relay, cfg, logger)
	srv := &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(deps, ws, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	srv.RegisterOnShutdown(ws.closeConnections)
	return &Server{Server: srv, ws: ws}
}

// Shutdown stops accepting requests, closes live WebSocket sessions and waits
// for them to finish their in-flight commands.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	if wsErr := s.ws.Shutdown(ctx); err == nil {
		err = wsErr
	}
	return err
}

// NewRouter mounts /ws on a plain mux next to the gin engine and puts CORS
// in front of both. The upgrade must not pass through gin's writer.
func NewRouter(deps Deps, ws *WSHandler, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", healthHandler)

	api := engine.Group("/api")
	{
		apiHandlers := NewAPIHandlers(deps.Store, deps.Version, logger)
		api.GET("", apiHandlers.Info)
		api.GET("/health", apiHandlers.Health)
		api.GET("/test-db", apiHandlers.TestDB)

		roomHandlers := NewRoomHandlers(deps.Relay, logger)
		api.GET("/messages/:room", roomHandlers.ListMessages)
		api.GET("/rooms", roomHandlers.ListRooms)

		if deps.Assistant != nil {
			assistantHandlers := NewAssistantHandlers(deps.Assistant, logger)
			api.POST("/assistant/chat", assistantHandlers.Chat)
			api.DELETE("/assistant/history/:user", assistantHandlers.ClearHistory)
		}
	}

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/", engine)

	return handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodDelete, stdhttp.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
	)(mux)
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
