package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/store/memory"
)

func TestOpenStore(t *testing.T) {
	st, err := OpenStore(config.DatabaseConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, st)
	require.NoError(t, st.Close())

	st, err = OpenStore(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, st.Ping(context.Background()))
	require.NoError(t, st.Close())

	_, err = OpenStore(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestNewServesHealth(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = config.DriverMemory
	logger := zerolog.Nop()

	a, err := New(context.Background(), &cfg, &logger)
	require.NoError(t, err)
	defer a.cleanup()

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRejectsIncompleteAssistant(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = config.DriverMemory
	cfg.Assistant.Enabled = true
	logger := zerolog.Nop()

	_, err := New(context.Background(), &cfg, &logger)
	assert.Error(t, err)
}
