package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/relaychat/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3001/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "display name")
	room := flag.String("room", "general", "room to join")
	history := flag.Int("history", 20, "messages of history to fetch after joining")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := write(ctx, conn, proto.InboundTypeJoin, proto.JoinData{Room: *room, DisplayName: *user}); err != nil {
		return err
	}
	if *history > 0 {
		if err := write(ctx, conn, proto.InboundTypeHistory, proto.HistoryData{Room: *room, Limit: *history}); err != nil {
			return err
		}
	}

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *user, *room)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *room)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func write(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

// frame mirrors proto.Outbound with raw data so it can be decoded per event.
type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if f.Type == proto.OutboundTypeError && f.Error != nil {
			fmt.Printf("! %s: %s\n", f.Error.Code, f.Error.Msg)
			continue
		}

		switch f.Event {
		case proto.EventNameWelcome, proto.EventNameMessage:
			var evt proto.EventMessage
			if err := json.Unmarshal(f.Data, &evt); err != nil {
				log.Printf("unmarshal %s: %v", f.Event, err)
				continue
			}
			printMessage(evt)
		case proto.EventNameHistory:
			var evt proto.EventHistory
			if err := json.Unmarshal(f.Data, &evt); err != nil {
				log.Printf("unmarshal history: %v", err)
				continue
			}
			fmt.Printf("--- last %d messages in %s ---\n", len(evt.Messages), evt.Room)
			for _, m := range evt.Messages {
				printMessage(m)
			}
			fmt.Println("---")
		case proto.EventNameWarning:
			var evt proto.EventWarning
			if err := json.Unmarshal(f.Data, &evt); err == nil {
				fmt.Printf("warning %s: %s\n", evt.Code, evt.Msg)
			}
		default:
			fmt.Printf("event=%s data=%s\n", f.Event, string(f.Data))
		}
	}
}

func printMessage(m proto.EventMessage) {
	author := m.Author
	if m.Kind == "system" {
		author = "*"
	}
	fmt.Printf("[%s #%s] %s: %s\n", m.Room, strconv.FormatInt(m.ID, 10), author, m.Body)
}

func writeLoop(ctx context.Context, conn *websocket.Conn, room string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if err := write(ctx, conn, proto.InboundTypeSend, proto.SendData{Room: room, Body: text}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}
