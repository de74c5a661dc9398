package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t, createTestStore(t), testConfig())

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketJoinSendsWelcome(t *testing.T) {
	env := startTestServer(t, createTestStore(t), testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{})

	frame := readUntil(t, ctx, conn, isEvent(proto.EventNameWelcome))
	var welcome proto.EventMessage
	if err := json.Unmarshal(frame.Data, &welcome); err != nil {
		t.Fatalf("unmarshal welcome: %v", err)
	}
	if welcome.Room != "general" || !strings.Contains(welcome.Body, "general") || welcome.Kind != "system" {
		t.Fatalf("unexpected welcome: %+v", welcome)
	}
	if strings.Contains(string(frame.Data), `"id"`) {
		t.Fatalf("welcome is sent before it is stored and must carry no id: %s", frame.Data)
	}
}

func TestWebSocketMessageReachesRoom(t *testing.T) {
	env := startTestServer(t, createTestStore(t), testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dial(t, ctx)
	connB := env.dial(t, ctx)
	joinRoom(t, ctx, connA, "general", "alice")
	joinRoom(t, ctx, connB, "general", "bob")

	send(t, ctx, connA, proto.InboundTypeSend, proto.SendData{Room: "general", Body: "hello", ClientID: "tmp-1"})

	frame := readUntil(t, ctx, connB, isEvent(proto.EventNameMessage))
	var msg proto.EventMessage
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if msg.Body != "hello" || msg.Kind != "text" || msg.Author != "alice" || msg.ID == 0 {
		t.Fatalf("unexpected message: %+v", msg)
	}

	echo := readUntil(t, ctx, connA, isEvent(proto.EventNameMessage))
	var own proto.EventMessage
	if err := json.Unmarshal(echo.Data, &own); err != nil {
		t.Fatalf("unmarshal echo: %v", err)
	}
	if own.ClientID != "tmp-1" || own.ID != msg.ID {
		t.Fatalf("sender echo mismatch: %+v vs %+v", own, msg)
	}
}

func TestWebSocketHistoryReturnsNewest(t *testing.T) {
	env := startTestServer(t, createTestStore(t), testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	joinRoom(t, ctx, conn, "lobby", "alice")
	send(t, ctx, conn, proto.InboundTypeSend, proto.SendData{Room: "lobby", Body: "first"})
	send(t, ctx, conn, proto.InboundTypeSend, proto.SendData{Room: "lobby", Body: "second"})

	// Commands are handled in order, so history sees both sends.
	send(t, ctx, conn, proto.InboundTypeHistory, proto.HistoryData{Room: "lobby", Limit: 1})

	frame := readUntil(t, ctx, conn, isEvent(proto.EventNameHistory))
	var hist proto.EventHistory
	if err := json.Unmarshal(frame.Data, &hist); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(hist.Messages) != 1 || hist.Messages[0].Body != "second" {
		t.Fatalf("expected [second], got %+v", hist.Messages)
	}
}

func TestWebSocketStorageOutage(t *testing.T) {
	st := createMemoryStore(t)
	env := startTestServer(t, st, testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dial(t, ctx)
	connB := env.dial(t, ctx)
	joinRoom(t, ctx, connA, "general", "alice")
	joinRoom(t, ctx, connB, "general", "bob")

	st.SetFailure(errors.New("connection refused"))
	send(t, ctx, connA, proto.InboundTypeSend, proto.SendData{Body: "lost"})

	frame := readUntil(t, ctx, connA, isError)
	if frame.Error.Code != core.ErrCodeDeliveryFailed || frame.Error.Op != "send" {
		t.Fatalf("unexpected error: %+v", frame.Error)
	}

	readCtx, readCancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer readCancel()
	var stray wireFrame
	if err := wsjson.Read(readCtx, connB, &stray); err == nil {
		t.Fatalf("bob must receive nothing, got %+v", stray)
	}
}

func TestWebSocketValidationError(t *testing.T) {
	env := startTestServer(t, createTestStore(t), testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	send(t, ctx, conn, proto.InboundTypeSend, proto.SendData{Room: "general", Body: "   "})

	frame := readUntil(t, ctx, conn, isError)
	if frame.Error.Code != core.ErrCodeValidation {
		t.Fatalf("expected validation error, got %+v", frame.Error)
	}
}

func TestWebSocketUnknownType(t *testing.T) {
	env := startTestServer(t, createTestStore(t), testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	send(t, ctx, conn, "dance", map[string]string{})

	frame := readUntil(t, ctx, conn, isError)
	if frame.Error.Code != core.ErrCodeBadRequest || frame.Error.Op != "dance" {
		t.Fatalf("unexpected error: %+v", frame.Error)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitPerMinute = 2
	env := startTestServer(t, createTestStore(t), cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	for range 3 {
		send(t, ctx, conn, proto.InboundTypeHistory, proto.HistoryData{})
	}

	frame := readUntil(t, ctx, conn, isError)
	if frame.Error.Code != core.ErrCodeRateLimited {
		t.Fatalf("expected rate_limited, got %+v", frame.Error)
	}
}

func TestWebSocketOversizedFrameClosesConnection(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMessageBytes = 256
	env := startTestServer(t, createTestStore(t), cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	send(t, ctx, conn, proto.InboundTypeSend, proto.SendData{Body: strings.Repeat("x", 1024)})

	var frame wireFrame
	err := wsjson.Read(ctx, conn, &frame)
	if websocket.CloseStatus(err) != websocket.StatusMessageTooBig {
		t.Fatalf("expected message too big close, got %v", err)
	}
}

func TestWebSocketDisconnectLeavesRoom(t *testing.T) {
	env := startTestServer(t, createTestStore(t), testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	joinRoom(t, ctx, conn, "general", "alice")
	if n := len(env.relay.Registry().MembersOf("general")); n != 1 {
		t.Fatalf("expected 1 member, got %d", n)
	}

	conn.Close(websocket.StatusNormalClosure, "bye")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(env.relay.Registry().MembersOf("general")) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("connection still registered after close")
}

func TestWebSocketAcceptsConfiguredOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"http://chat.example"}
	env := startTestServer(t, createTestStore(t), cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(env.ts.URL, "http", "ws", 1) + "/ws"
	header := stdhttp.Header{"Origin": []string{"http://chat.example"}}
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	joinRoom(t, ctx, conn, "general", "alice")
	send(t, ctx, conn, proto.InboundTypeSend, proto.SendData{Room: "general", Body: "hi"})
	frame := readUntil(t, ctx, conn, isEvent(proto.EventNameMessage))

	var msg proto.EventMessage
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if msg.Body != "hi" || msg.ID == 0 {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestShutdownClosesWebSocketSessions(t *testing.T) {
	env := startTestServer(t, createMemoryStore(t), testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)
	joinRoom(t, ctx, conn, "general", "alice")

	if err := env.server.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if n := env.relay.Registry().Connections(); n != 0 {
		t.Fatalf("expected sessions to leave before shutdown returns, got %d", n)
	}

	var frame wireFrame
	if err := wsjson.Read(ctx, conn, &frame); err == nil {
		t.Fatalf("expected closed connection, got frame %+v", frame)
	}

	wsURL := strings.Replace(env.ts.URL, "http", "ws", 1) + "/ws"
	if _, _, err := websocket.Dial(ctx, wsURL, nil); err == nil {
		t.Fatal("expected new sessions to be refused after shutdown")
	}
}
