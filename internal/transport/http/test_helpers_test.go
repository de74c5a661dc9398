package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/assistant"
	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/proto"
	"github.com/vovakirdan/relaychat/internal/store"
	"github.com/vovakirdan/relaychat/internal/store/memory"
	"github.com/vovakirdan/relaychat/internal/store/sqlite"
)

type testEnv struct {
	ts        *httptest.Server
	server    *Server
	relay     *core.Relay
	store     store.Store
	assistant *assistant.Service
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.AllowedOrigins = []string{"*"}
	return cfg
}

// createTestStore creates an in-memory SQLite store with migrations applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func createMemoryStore(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.New()
	t.Cleanup(func() { st.Close() })
	return st
}

func startTestServer(t *testing.T, st store.Store, cfg config.Config) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	relay := core.NewRelay(core.NewRegistry(), st, &logger, core.Options{
		DefaultRoom:   cfg.Chat.DefaultRoom,
		StoreTimeout:  cfg.Chat.StoreTimeout,
		MaxBodyLength: cfg.Chat.MaxBodyLength,
	})
	svc := assistant.NewService(nil, assistant.Options{}, &logger)

	server := NewServer(Deps{Relay: relay, Store: st, Assistant: svc, Version: "test"}, cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, server: server, relay: relay, store: st, assistant: svc}
}

func (e *testEnv) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

type wireFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil reads frames until one matches, failing on timeout.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(wireFrame) bool) wireFrame {
	t.Helper()

	for {
		var frame wireFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(frame) {
			return frame
		}
	}
}

func isEvent(name string) func(wireFrame) bool {
	return func(f wireFrame) bool { return f.Type == proto.OutboundTypeEvent && f.Event == name }
}

func isError(f wireFrame) bool {
	return f.Type == proto.OutboundTypeError
}

// joinRoom joins and waits for the welcome so the membership is in place.
func joinRoom(t *testing.T, ctx context.Context, conn *websocket.Conn, room, name string) {
	t.Helper()
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: room, DisplayName: name})
	readUntil(t, ctx, conn, isEvent(proto.EventNameWelcome))
}
