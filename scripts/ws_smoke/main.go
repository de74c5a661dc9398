package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/relaychat/internal/proto"
	"github.com/vovakirdan/relaychat/internal/utils"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3001/ws", "WebSocket address")
	user := flag.String("user", "tester", "display name")
	room := flag.String("room", "general", "room name")
	text := flag.String("text", "hello from smoke test", "message body to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	}

	clientID := utils.NewID()
	if err := mustSend(proto.InboundTypeJoin, proto.JoinData{Room: *room, DisplayName: *user}); err != nil {
		return err
	}
	if err := mustSend(proto.InboundTypeSend, proto.SendData{Room: *room, Body: *text, ClientID: clientID}); err != nil {
		return err
	}

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", f.Type)
		if f.Event != "" {
			fmt.Printf(" event=%s", f.Event)
		}
		fmt.Println()

		if f.Error != nil {
			return fmt.Errorf("server error %s: %s", f.Error.Code, f.Error.Msg)
		}

		switch f.Event {
		case proto.EventNameWelcome:
			var evt proto.EventMessage
			if err := json.Unmarshal(f.Data, &evt); err == nil {
				fmt.Printf("Welcome: room=%s body=%q\n", evt.Room, evt.Body)
			}
		case proto.EventNameMessage:
			var evt proto.EventMessage
			if err := json.Unmarshal(f.Data, &evt); err != nil {
				fmt.Printf("Raw data: %s\n", string(f.Data))
				return fmt.Errorf("unmarshal message: %w", err)
			}
			fmt.Printf("EventMessage: id=%d room=%s author=%s body=%q ts=%d\n", evt.ID, evt.Room, evt.Author, evt.Body, evt.TS)
			if evt.ClientID == clientID {
				return nil
			}
		case proto.EventNameWarning:
			fmt.Printf("Warning: %s\n", string(f.Data))
		default:
			// keep looping for our own message
		}
	}
}
