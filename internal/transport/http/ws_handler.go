package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/proto"
	"github.com/vovakirdan/relaychat/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to the relay.
type WSHandler struct {
	relay           *core.Relay
	log             *zerolog.Logger
	maxMessageBytes int64
	rateLimit       int
	originPatterns  []string

	// base is cancelled on shutdown; every session context derives from it.
	base    context.Context
	stop    context.CancelFunc
	mu      sync.Mutex
	closed  bool
	session sync.WaitGroup
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(relay *core.Relay, cfg config.Config, logger *zerolog.Logger) *WSHandler {
	base, stop := context.WithCancel(context.Background())
	return &WSHandler{
		relay:           relay,
		log:             logger,
		maxMessageBytes: cfg.MaxMessageBytes,
		rateLimit:       cfg.RateLimitPerMinute,
		originPatterns:  originPatterns(cfg.AllowedOrigins),
		base:            base,
		stop:            stop,
	}
}

// Shutdown refuses new sessions, cancels the live ones and waits until they
// have left their rooms or ctx expires.
func (h *WSHandler) Shutdown(ctx context.Context) error {
	h.closeConnections()

	done := make(chan struct{})
	go func() {
		h.session.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WSHandler) closeConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		h.stop()
	}
}

// track registers a session unless the handler is shutting down.
func (h *WSHandler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.session.Add(1)
	return true
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if !h.track() {
		stdhttp.Error(w, "server shutting down", stdhttp.StatusServiceUnavailable)
		return
	}
	defer h.session.Done()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer context.AfterFunc(h.base, cancel)()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.originPatterns,
		InsecureSkipVerify: len(h.originPatterns) == 0,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	client := core.NewClient(utils.NewID(), r.URL.Query().Get("name"))
	defer h.relay.HandleDisconnect(client)
	h.log.Debug().Str("conn_id", client.ID).Str("remote", r.RemoteAddr).Msg("ws connected")

	errCh := make(chan error, 3)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.relay.Serve(ctx, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutines
	<-errCh
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	if h.base.Err() != nil {
		status = websocket.StatusGoingAway
		reason = "server shutting down"
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.rateLimit)
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			h.reject(client, &proto.Error{Code: core.ErrCodeRateLimited, Msg: "too many messages", Op: inbound.Type})
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			h.reject(client, protoErr)
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// reject queues a protocol error for the write loop.
func (h *WSHandler) reject(client *core.Client, perr *proto.Error) {
	ev := &core.Event{
		Kind:  core.EventError,
		Error: &core.CoreError{Code: perr.Code, Message: perr.Msg, Op: perr.Op},
	}
	select {
	case client.Events <- ev:
	default:
		h.log.Warn().Str("conn_id", client.ID).Str("code", perr.Code).Msg("protocol error dropped")
	}
}

// originPatterns turns configured origins into host patterns for the
// upgrade check. A "*" entry disables the check.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			return nil
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}
	return patterns
}
