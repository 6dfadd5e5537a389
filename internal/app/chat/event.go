/*
Package chat contains the real-time chat core: sessions, room presence broadcasting and the
WebSocket connection gateway.

This file defines the wire protocol. Every frame is a JSON object {"type": ..., "payload": ...}.
Inbound frames decode into one of a closed set of event structs; outbound events are built
from the payload types below.
*/
package chat

import (
	"encoding/json"

	"lounge/internal/app/directory"
	"lounge/internal/app/user"
	"lounge/internal/pkg/errs"
)

// EventType identifies a frame on the wire.
type EventType string

// Inbound event types.
const (
	TypeAuthenticate EventType = "authenticate"
	TypeJoinRoom     EventType = "join_room"
	TypeSendMessage  EventType = "send_message"
	TypeTyping       EventType = "typing"
)

// Outbound event types.
const (
	TypeAuthenticated  EventType = "authenticated"
	TypeError          EventType = "error"
	TypeRoomJoined     EventType = "room_joined"
	TypeMessageHistory EventType = "message_history"
	TypeNewMessage     EventType = "new_message"
	TypeOnlineUsers    EventType = "online_users"
	TypeUserJoined     EventType = "user_joined"
	TypeUserLeft       EventType = "user_left"
	TypeUserTyping     EventType = "user_typing"
)

// Event is an outbound frame.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// AuthenticatedPayload confirms a successful authenticate and lists the joinable rooms.
type AuthenticatedPayload struct {
	user.Participant
	Rooms []string `json:"rooms"`
}

// ErrorPayload describes a rejected inbound event.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RoomJoinedPayload confirms the room switch to the joiner.
type RoomJoinedPayload struct {
	Room      string `json:"room"`
	UserCount int    `json:"userCount"`
}

// MessageHistoryPayload carries the most recent messages of a room, oldest first.
type MessageHistoryPayload struct {
	Room     string              `json:"room"`
	Messages []directory.Message `json:"messages"`
}

// OnlineUsersPayload is the roster of a room.
type OnlineUsersPayload struct {
	Room  string             `json:"room"`
	Users []user.Participant `json:"users"`
}

// UserEventPayload announces a participant entering or leaving a room.
type UserEventPayload struct {
	user.Participant
	Room string `json:"room"`
}

// UserTypingPayload relays a typing signal.
type UserTypingPayload struct {
	user.Participant
	Room     string `json:"room"`
	IsTyping bool   `json:"isTyping"`
}

// Inbound is implemented by every event a client may send.
type Inbound interface {
	inboundType() EventType
}

// AuthenticateEvent binds the connection to an identity.
type AuthenticateEvent struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
}

// JoinRoomEvent moves the connection into a room.
type JoinRoomEvent struct {
	Room string `json:"room"`
}

// SendMessageEvent posts a message to the current room.
type SendMessageEvent struct {
	Content string `json:"content"`
	Room    string `json:"room"`
}

// TypingEvent toggles the typing indicator in the current room.
type TypingEvent struct {
	Room     string `json:"room"`
	IsTyping bool   `json:"isTyping"`
}

func (AuthenticateEvent) inboundType() EventType { return TypeAuthenticate }
func (JoinRoomEvent) inboundType() EventType     { return TypeJoinRoom }
func (SendMessageEvent) inboundType() EventType  { return TypeSendMessage }
func (TypingEvent) inboundType() EventType       { return TypeTyping }

// DecodeInbound parses a raw frame into its event struct.
func DecodeInbound(raw []byte) (Inbound, *errs.CustomError) {
	var frame struct {
		Type    EventType       `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, errs.NewError(errs.ErrInvalidPayload)
	}

	var event Inbound
	switch frame.Type {
	case TypeAuthenticate:
		event = &AuthenticateEvent{}
	case TypeJoinRoom:
		event = &JoinRoomEvent{}
	case TypeSendMessage:
		event = &SendMessageEvent{}
	case TypeTyping:
		event = &TypingEvent{}
	case "":
		return nil, errs.NewError(errs.ErrMissingField, "type")
	default:
		return nil, errs.NewError(errs.ErrUnsupportedEvent, string(frame.Type))
	}

	if len(frame.Payload) > 0 && string(frame.Payload) != "null" {
		if err := json.Unmarshal(frame.Payload, event); err != nil {
			return nil, errs.NewError(errs.ErrInvalidPayload)
		}
	}

	switch e := event.(type) {
	case *AuthenticateEvent:
		return *e, nil
	case *JoinRoomEvent:
		return *e, nil
	case *SendMessageEvent:
		return *e, nil
	case *TypingEvent:
		return *e, nil
	}
	return nil, errs.NewError(errs.ErrUnsupportedEvent, string(frame.Type))
}

func errorEvent(customErr *errs.CustomError) Event {
	return Event{
		Type:    TypeError,
		Payload: ErrorPayload{Code: customErr.Code, Message: customErr.Message},
	}
}

func onlineUsersEvent(room string, users []user.Participant) Event {
	return Event{Type: TypeOnlineUsers, Payload: OnlineUsersPayload{Room: room, Users: users}}
}
