package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/relaychat/internal/store"
)

// APIHandlers serves service status and database diagnostics.
type APIHandlers struct {
	store   store.Inspector
	version string
	log     *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(st store.Inspector, version string, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		store:   st,
		version: version,
		log:     logger,
	}
}

// InfoResponse describes the running service.
type InfoResponse struct {
	Message   string `json:"message"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// HealthResponse reports database connectivity.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// TestDBResponse summarizes the database self-test.
type TestDBResponse struct {
	DatabaseStatus string   `json:"database_status"`
	Tables         []string `json:"tables,omitempty"`
	UserCount      int64    `json:"user_count"`
	MessageCount   int64    `json:"message_count"`
	RoomCount      int64    `json:"room_count"`
	Error          string   `json:"error,omitempty"`
}

// Info handles service discovery.
// GET /api
func (h *APIHandlers) Info(c *gin.Context) {
	c.JSON(http.StatusOK, InfoResponse{
		Message:   "relaychat API is running",
		Version:   h.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Health pings the database.
// GET /api/health
func (h *APIHandlers) Health(c *gin.Context) {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("database health check failed")
		c.JSON(http.StatusInternalServerError, HealthResponse{
			Status:    "error",
			Database:  "unavailable",
			Error:     err.Error(),
			Timestamp: now,
		})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "online", Database: "connected", Timestamp: now})
}

// TestDB runs the inspection queries concurrently; any failure fails the request.
// GET /api/test-db
func (h *APIHandlers) TestDB(c *gin.Context) {
	var (
		resp  TestDBResponse
		g, gc = errgroup.WithContext(c.Request.Context())
	)

	g.Go(func() error {
		tables, err := h.store.ListTables(gc)
		resp.Tables = tables
		return err
	})
	g.Go(func() error {
		n, err := h.store.CountUsers(gc)
		resp.UserCount = n
		return err
	})
	g.Go(func() error {
		n, err := h.store.CountMessages(gc)
		resp.MessageCount = n
		return err
	})
	g.Go(func() error {
		n, err := h.store.CountRooms(gc)
		resp.RoomCount = n
		return err
	})

	if err := g.Wait(); err != nil {
		h.log.Error().Err(err).Msg("database self-test failed")
		c.JSON(http.StatusInternalServerError, TestDBResponse{DatabaseStatus: "failed", Error: err.Error()})
		return
	}

	resp.DatabaseStatus = "ok"
	c.JSON(http.StatusOK, resp)
}
