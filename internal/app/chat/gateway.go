/*
Package chat contains the real-time chat core: sessions, room presence broadcasting and the
WebSocket connection gateway.

This file defines the Gateway, which owns every live connection, maps each one to its Session
and is the only place outbound events are fanned out, either to one connection or to all
connections present in a room.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"lounge/internal/app/directory"
	"lounge/internal/app/identity"
	"lounge/internal/app/presence"
	"lounge/internal/app/room"
	"lounge/internal/app/user"
	"lounge/internal/pkg/errs"
	"lounge/internal/pkg/logx"
	"lounge/internal/pkg/randx"
)

const (
	// HistoryLimit is the number of messages replayed to a joining connection.
	HistoryLimit = 50

	// MaxContentChars caps message content, counted in characters after trimming.
	MaxContentChars = 1000
)

// Options wires the Gateway's collaborators.
type Options struct {
	Rooms     *room.Registry
	Directory directory.Directory

	// Presence defaults to a fresh table.
	Presence *presence.Table

	// Registerer receives the gateway metrics; nil disables them.
	Registerer prometheus.Registerer
}

// Gateway coordinates all connections of the process.
type Gateway struct {
	rooms     *room.Registry
	directory directory.Directory
	gate      *identity.Gate
	presence  *presence.Table
	typing    *TypingCoordinator
	channels  map[string]*roomChannel

	// clients maps connection ids to live connections.
	clients map[string]*Client

	// mu protects clients and closing.
	mu      sync.RWMutex
	closing bool

	// ctx bounds directory calls and is cancelled on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	// wg tracks connections being served.
	wg sync.WaitGroup

	metrics *gatewayMetrics
	logger  zerolog.Logger
}

// NewGateway constructs a Gateway.
func NewGateway(opts Options) *Gateway {
	table := opts.Presence
	if table == nil {
		table = presence.NewTable()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Gateway{
		rooms:     opts.Rooms,
		directory: opts.Directory,
		gate:      identity.NewGate(opts.Directory),
		presence:  table,
		typing:    NewTypingCoordinator(),
		channels:  newRoomChannels(opts.Rooms.Names()),
		clients:   make(map[string]*Client),
		ctx:       ctx,
		cancel:    cancel,
		metrics:   newGatewayMetrics(opts.Registerer),
		logger:    logx.Component("Gateway"),
	}
}

// Serve runs a WebSocket connection to completion. boundAddress is the address carried by the
// handshake identity token, or "". It blocks until the connection closes, then performs the
// disconnect cleanup.
func (g *Gateway) Serve(conn *websocket.Conn, boundAddress string) {
	client := NewClient(randx.ConnectionID(), conn)

	session, err := g.Connect(client, boundAddress)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Connection refused during shutdown.")
		client.Close()
		client.WritePump()
		return
	}

	go client.WritePump()

	client.ReadPump(session.HandleFrame)

	g.Disconnect(session)
}

var errGatewayClosing = errors.New("gateway is shutting down")

// Connect registers client and returns its new unauthenticated Session.
func (g *Gateway) Connect(client *Client, boundAddress string) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closing {
		return nil, errGatewayClosing
	}

	g.clients[client.ID()] = client
	g.wg.Add(1)
	g.metrics.connOpened()

	g.logger.Info().
		Str("conn_id", client.ID()).
		Bool("token_bound", boundAddress != "").
		Int("total_connections", len(g.clients)).
		Msg("Connection opened.")

	return newSession(g, client, boundAddress), nil
}

// Disconnect closes session, removes its presence and notifies its last room.
// Calling it more than once is a no-op.
func (g *Gateway) Disconnect(session *Session) {
	participant, _, wasOpen := session.close()
	if !wasOpen {
		return
	}

	if entry, ok := g.presence.Remove(session.ID()); ok {
		g.typing.Forget(entry.Room, session.ID())
		g.announceLeave(entry.Room, participant)
	}

	g.mu.Lock()
	delete(g.clients, session.ID())
	remaining := len(g.clients)
	g.mu.Unlock()

	session.client.Close()
	g.metrics.connClosed()
	g.wg.Done()

	g.logger.Info().
		Str("conn_id", session.ID()).
		Str("identity", participant.Identity).
		Int("total_connections", remaining).
		Msg("Connection closed.")
}

// announceJoin tells roomName that participant entered and sends the new roster.
func (g *Gateway) announceJoin(roomName string, participant user.Participant) {
	g.publishPresence(roomName, Event{
		Type:    TypeUserJoined,
		Payload: UserEventPayload{Participant: participant, Room: roomName},
	})
}

// announceLeave tells roomName that participant left and sends the new roster.
func (g *Gateway) announceLeave(roomName string, participant user.Participant) {
	g.publishPresence(roomName, Event{
		Type:    TypeUserLeft,
		Payload: UserEventPayload{Participant: participant, Room: roomName},
	})
}

// publishPresence broadcasts evt followed by the roster, with nothing else from the room
// interleaved.
func (g *Gateway) publishPresence(roomName string, evt Event) {
	channel, ok := g.channels[roomName]
	if !ok {
		return
	}

	_ = channel.publish(func() error {
		g.BroadcastRoom(roomName, evt, "")
		g.broadcastRoster(roomName)
		return nil
	})
}

// SendTo queues evt for a single connection. A full send queue is reported as ErrDeliveryFailed.
func (g *Gateway) SendTo(connID string, evt Event) error {
	frame, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	g.mu.RLock()
	client, ok := g.clients[connID]
	g.mu.RUnlock()

	if !ok {
		return errClientClosed
	}

	if err := client.enqueue(frame); err != nil {
		if customErr := g.deliveryFailed(connID, evt.Type, err); customErr != nil {
			return customErr
		}
		return err
	}
	return nil
}

// BroadcastRoom queues evt for every connection present in roomName except exceptConnID.
// A connection that cannot take the frame is logged and skipped. Returns the number of
// connections the frame was queued for.
func (g *Gateway) BroadcastRoom(roomName string, evt Event, exceptConnID string) int {
	frame, err := json.Marshal(evt)
	if err != nil {
		g.logger.Error().Err(err).Str("event", string(evt.Type)).Msg("Failed to marshal broadcast.")
		return 0
	}

	roster := g.presence.Roster(roomName)

	targets := make([]*Client, 0, len(roster))
	g.mu.RLock()
	for _, entry := range roster {
		if entry.ConnectionID == exceptConnID {
			continue
		}
		if client, ok := g.clients[entry.ConnectionID]; ok {
			targets = append(targets, client)
		}
	}
	g.mu.RUnlock()

	delivered := 0
	for _, client := range targets {
		if err := client.enqueue(frame); err != nil {
			g.deliveryFailed(client.ID(), evt.Type, err)
			continue
		}
		delivered++
	}
	return delivered
}

// deliveryFailed records a frame that could not be queued for connID. A closed connection is
// not a failure and yields nil.
func (g *Gateway) deliveryFailed(connID string, eventType EventType, err error) *errs.CustomError {
	if errors.Is(err, errClientClosed) {
		g.logger.Debug().Str("conn_id", connID).Str("event", string(eventType)).Msg("Skipped closed connection.")
		return nil
	}

	customErr := errs.NewError(errs.ErrDeliveryFailed)

	g.metrics.recordDeliveryFailure()
	g.logger.Warn().
		Err(err).
		Int("code", customErr.Code).
		Str("kind", string(customErr.Kind())).
		Str("conn_id", connID).
		Str("event", string(eventType)).
		Msg("Delivery failed, skipping connection.")

	return customErr
}

// broadcastRoster sends the current roster of roomName to everyone in it.
func (g *Gateway) broadcastRoster(roomName string) {
	g.BroadcastRoom(roomName, onlineUsersEvent(roomName, g.presence.Participants(roomName)), "")
}

// RoomSummary is the public view of a room for the REST surface.
type RoomSummary struct {
	Name   string `json:"name"`
	Online int    `json:"online"`
}

// RoomDetail lists who is present and who is typing in a room.
type RoomDetail struct {
	Name   string             `json:"name"`
	Online []user.Participant `json:"online"`
	Typing []user.Participant `json:"typing"`
}

// Rooms returns every registered room with its online count, in registry order.
func (g *Gateway) Rooms() []RoomSummary {
	counts := g.presence.Counts()

	summaries := make([]RoomSummary, 0, g.rooms.Len())
	for _, name := range g.rooms.Names() {
		summaries = append(summaries, RoomSummary{Name: name, Online: counts[name]})
	}
	return summaries
}

// Room returns the detail of roomName, or false if it is not registered.
func (g *Gateway) Room(roomName string) (RoomDetail, bool) {
	if !g.rooms.IsValid(roomName) {
		return RoomDetail{}, false
	}

	return RoomDetail{
		Name:   roomName,
		Online: g.presence.Participants(roomName),
		Typing: g.typing.Typing(roomName),
	}, true
}

// Shutdown stops accepting connections, closes every open one and waits until they are
// cleaned up or ctx expires.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info().Msg("Shutting down Gateway...")

	g.mu.Lock()
	g.closing = true
	clients := make([]*Client, 0, len(g.clients))
	for _, client := range g.clients {
		clients = append(clients, client)
	}
	g.mu.Unlock()

	g.cancel()
	for _, client := range clients {
		client.Close()
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.logger.Info().Int("closed_connections", len(clients)).Msg("Gateway shutdown complete.")
		return nil
	case <-ctx.Done():
		g.logger.Warn().Msg("Gateway shutdown timed out with connections still open.")
		return ctx.Err()
	}
}
