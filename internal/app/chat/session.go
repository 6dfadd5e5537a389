/*
Package chat contains the real-time chat core: sessions, room presence broadcasting and the
WebSocket connection gateway.

This file defines the Session, the logical state machine of one connection:

	Unauthenticated --authenticate--> Authenticated --join_room--> InRoom --join_room--> InRoom
	any state --disconnect--> Closed

Every rejected event produces exactly one error event to the originating connection and
leaves the session unchanged.
*/
package chat

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"lounge/internal/app/directory"
	"lounge/internal/app/identity"
	"lounge/internal/app/presence"
	"lounge/internal/app/user"
	"lounge/internal/pkg/errs"
)

// storageTimeout bounds each Directory call made on behalf of one event.
const storageTimeout = 10 * time.Second

// State is the lifecycle position of a Session.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateInRoom
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateInRoom:
		return "in_room"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the logical state of one connection.
type Session struct {
	gateway *Gateway
	client  *Client

	// boundAddress is the address from the handshake token, or "".
	boundAddress string

	mu          sync.Mutex
	state       State
	participant user.Participant
	room        string

	logger zerolog.Logger
}

func newSession(g *Gateway, client *Client, boundAddress string) *Session {
	return &Session{
		gateway:      g,
		client:       client,
		boundAddress: boundAddress,
		state:        StateUnauthenticated,
		logger:       client.logger,
	}
}

// ID returns the connection id of the session.
func (s *Session) ID() string {
	return s.client.ID()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Participant returns the authenticated participant and the current room, if any.
func (s *Session) Participant() (user.Participant, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.participant, s.room
}

// close moves the session to Closed and reports whether it was open.
func (s *Session) close() (participant user.Participant, room string, wasOpen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return user.Participant{}, "", false
	}

	participant, room = s.participant, s.room
	s.state = StateClosed
	return participant, room, true
}

// HandleFrame decodes and dispatches one inbound frame.
func (s *Session) HandleFrame(raw []byte) {
	if s.State() == StateClosed {
		return
	}

	start := time.Now()

	var eventType EventType
	event, customErr := DecodeInbound(raw)
	if customErr == nil {
		eventType = event.inboundType()
		customErr = s.dispatch(event)
	}

	if customErr != nil {
		s.reject(eventType, customErr)
	}

	s.gateway.metrics.observeEvent(eventType, time.Since(start))
}

func (s *Session) dispatch(event Inbound) *errs.CustomError {
	switch e := event.(type) {
	case AuthenticateEvent:
		return s.handleAuthenticate(e)
	case JoinRoomEvent:
		return s.handleJoinRoom(e)
	case SendMessageEvent:
		return s.handleSendMessage(e)
	case TypingEvent:
		s.handleTyping(e)
		return nil
	default:
		return errs.NewError(errs.ErrUnsupportedEvent, string(event.inboundType()))
	}
}

// reject sends the single error event for a refused inbound event.
func (s *Session) reject(eventType EventType, customErr *errs.CustomError) {
	s.gateway.metrics.recordRejection(string(customErr.Kind()), customErr.Code)

	s.logger.Debug().
		Str("event", string(eventType)).
		Int("code", customErr.Code).
		Str("kind", string(customErr.Kind())).
		Msg("Rejected inbound event.")

	if err := s.gateway.SendTo(s.ID(), errorEvent(customErr)); err != nil {
		s.logger.Debug().Err(err).Msg("Could not deliver error event.")
	}
}

func (s *Session) send(evt Event) {
	if err := s.gateway.SendTo(s.ID(), evt); err != nil {
		s.logger.Debug().Err(err).Str("event", string(evt.Type)).Msg("Could not deliver event.")
	}
}

func (s *Session) handleAuthenticate(evt AuthenticateEvent) *errs.CustomError {
	if s.State() != StateUnauthenticated {
		return errs.NewError(errs.ErrAlreadyAuthenticated)
	}

	ctx, cancel := context.WithTimeout(s.gateway.ctx, storageTimeout)
	defer cancel()

	participant, customErr := s.gateway.gate.Authenticate(ctx, identity.Credentials{
		Identity:     evt.Identity,
		DisplayName:  evt.DisplayName,
		BoundAddress: s.boundAddress,
	})
	if customErr != nil {
		return customErr
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.participant = participant
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.logger.Info().Str("identity", participant.Identity).Msg("Session authenticated.")

	s.send(Event{
		Type:    TypeAuthenticated,
		Payload: AuthenticatedPayload{Participant: participant, Rooms: s.gateway.rooms.Names()},
	})
	return nil
}

func (s *Session) handleJoinRoom(evt JoinRoomEvent) *errs.CustomError {
	participant, _ := s.Participant()
	if participant.IsZero() {
		return errs.NewError(errs.ErrNotAuthenticated)
	}

	if evt.Room == "" {
		return errs.NewError(errs.ErrMissingField, "room")
	}
	if !s.gateway.rooms.IsValid(evt.Room) {
		return errs.NewError(errs.ErrInvalidRoom)
	}

	var (
		previous  presence.Entry
		moved     bool
		joined    bool
		customErr *errs.CustomError
	)

	// Messages to the room are published under the same lock, so each one is either in the
	// history or broadcast to the joiner after it, never neither.
	_ = s.gateway.channels[evt.Room].publish(func() error {
		ctx, cancel := context.WithTimeout(s.gateway.ctx, storageTimeout)
		defer cancel()

		history, err := s.gateway.directory.RecentMessages(ctx, evt.Room, HistoryLimit)
		if err != nil {
			customErr = errs.NewError(errs.ErrStorageFailure, err)
			return err
		}
		if history == nil {
			history = []directory.Message{}
		}

		s.mu.Lock()
		if s.state == StateClosed {
			s.mu.Unlock()
			return nil
		}
		previous, moved = s.gateway.presence.Join(s.ID(), participant, evt.Room)
		s.state = StateInRoom
		s.room = evt.Room
		s.mu.Unlock()
		joined = true

		s.send(Event{
			Type:    TypeRoomJoined,
			Payload: RoomJoinedPayload{Room: evt.Room, UserCount: len(s.gateway.presence.Roster(evt.Room))},
		})
		s.send(Event{
			Type:    TypeMessageHistory,
			Payload: MessageHistoryPayload{Room: evt.Room, Messages: history},
		})
		return nil
	})

	if customErr != nil || !joined {
		return customErr
	}

	// The previous room's lock is taken only after the target room's lock is released.
	if moved {
		s.gateway.typing.Forget(previous.Room, s.ID())
		s.gateway.announceLeave(previous.Room, previous.Participant)
	}

	s.logger.Info().
		Str("identity", participant.Identity).
		Str("room", evt.Room).
		Str("previous_room", previous.Room).
		Msg("Joined room.")

	s.gateway.announceJoin(evt.Room, participant)
	return nil
}

func (s *Session) handleSendMessage(evt SendMessageEvent) *errs.CustomError {
	s.mu.Lock()
	state, participant, current := s.state, s.participant, s.room
	s.mu.Unlock()

	switch state {
	case StateUnauthenticated:
		return errs.NewError(errs.ErrNotAuthenticated)
	case StateAuthenticated:
		return errs.NewError(errs.ErrNotInRoom)
	case StateClosed:
		return nil
	}

	target := evt.Room
	if target == "" {
		target = current
	}
	if !s.gateway.rooms.IsValid(target) {
		return errs.NewError(errs.ErrInvalidRoom)
	}
	if target != current {
		return errs.NewError(errs.ErrNotInRoom)
	}

	content := strings.TrimSpace(evt.Content)
	if content == "" {
		return errs.NewError(errs.ErrEmptyMessage)
	}
	content = truncateChars(content, MaxContentChars)

	channel := s.gateway.channels[target]

	var customErr *errs.CustomError
	_ = channel.publish(func() error {
		ctx, cancel := context.WithTimeout(s.gateway.ctx, storageTimeout)
		defer cancel()

		msg, err := s.gateway.directory.InsertMessage(ctx, participant.Identity, participant.DisplayName, content, target)
		if err != nil {
			customErr = errs.NewError(errs.ErrStorageFailure, err)
			return err
		}

		s.gateway.metrics.recordMessage()
		s.gateway.BroadcastRoom(target, Event{Type: TypeNewMessage, Payload: msg}, "")
		return nil
	})

	return customErr
}

// handleTyping relays a typing signal. Signals from connections outside the named room are
// dropped without an error event.
func (s *Session) handleTyping(evt TypingEvent) {
	s.mu.Lock()
	state, participant, current := s.state, s.participant, s.room
	s.mu.Unlock()

	if state != StateInRoom {
		return
	}
	if evt.Room != "" && evt.Room != current {
		return
	}

	s.gateway.typing.Signal(current, s.ID(), participant, evt.IsTyping)
	s.gateway.BroadcastRoom(current, Event{
		Type:    TypeUserTyping,
		Payload: UserTypingPayload{Participant: participant, Room: current, IsTyping: evt.IsTyping},
	}, s.ID())
}

// truncateChars cuts s to at most limit characters.
func truncateChars(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	return string(runes[:limit])
}
