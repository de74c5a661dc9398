package http

import (
	"encoding/json"

	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := decodeData(inbound.Data, &join); err != nil {
			return nil, badRequest(inbound.Type, "invalid join payload")
		}
		return &core.Command{
			Kind:        core.CommandJoinRoom,
			Room:        join.Room,
			DisplayName: join.DisplayName,
		}, nil
	case proto.InboundTypeSend:
		var msg proto.SendData
		if err := decodeData(inbound.Data, &msg); err != nil {
			return nil, badRequest(inbound.Type, "invalid send payload")
		}
		return &core.Command{
			Kind:      core.CommandSendRoomMessage,
			Room:      msg.Room,
			AuthorRef: msg.AuthorRef,
			Body:      msg.Body,
			ClientID:  msg.ClientID,
		}, nil
	case proto.InboundTypeHistory:
		var hist proto.HistoryData
		if err := decodeData(inbound.Data, &hist); err != nil {
			return nil, badRequest(inbound.Type, "invalid history payload")
		}
		return &core.Command{
			Kind:  core.CommandHistory,
			Room:  hist.Room,
			Limit: hist.Limit,
		}, nil
	default:
		return nil, badRequest(inbound.Type, "unknown message type")
	}
}

// decodeData accepts a missing data field as an empty object.
func decodeData(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func badRequest(op, msg string) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: msg, Op: op}
}

func messageToProto(msg core.Message, clientID string) proto.EventMessage {
	return proto.EventMessage{
		ID:        msg.ID,
		Room:      msg.Room,
		AuthorRef: msg.AuthorID,
		Author:    msg.Author,
		Body:      msg.Body,
		Kind:      string(msg.Kind),
		TS:        msg.CreatedAt.Unix(),
		ClientID:  clientID,
	}
}

func messagesToProto(msgs []core.Message) []proto.EventMessage {
	out := make([]proto.EventMessage, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, messageToProto(msg, ""))
	}
	return out
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventWelcome:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameWelcome,
			Data:  messageToProto(event.Message, ""),
		}
	case core.EventRoomMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data:  messageToProto(event.Message, event.ClientID),
		}
	case core.EventHistory:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameHistory,
			Data: proto.EventHistory{
				Room:     event.Room,
				Messages: messagesToProto(event.Messages),
			},
		}
	case core.EventWarning:
		warning := proto.EventWarning{Room: event.Room, Code: "warning"}
		if event.Error != nil {
			warning.Code = event.Error.Code
			warning.Msg = event.Error.Message
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameWarning,
			Data:  warning,
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message, Op: event.Error.Op},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
