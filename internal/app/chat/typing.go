/*
Package chat contains the real-time chat core: sessions, room presence broadcasting and the
WebSocket connection gateway.

This file defines the TypingCoordinator, the per-room record of who last signalled typing.
The server never expires an indicator on its own; clients clear it with isTyping=false and
run their own inactivity timer. Leaving a room or disconnecting drops the record silently.
*/
package chat

import (
	"sort"
	"sync"

	"lounge/internal/app/user"
)

// TypingCoordinator tracks typing participants per room, keyed by connection id.
type TypingCoordinator struct {
	mu    sync.Mutex
	rooms map[string]map[string]user.Participant
}

// NewTypingCoordinator returns an empty coordinator.
func NewTypingCoordinator() *TypingCoordinator {
	return &TypingCoordinator{
		rooms: make(map[string]map[string]user.Participant),
	}
}

// Signal records or clears the typing state of connID in room.
func (t *TypingCoordinator) Signal(room, connID string, participant user.Participant, isTyping bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !isTyping {
		t.forgetLocked(room, connID)
		return
	}

	typists, ok := t.rooms[room]
	if !ok {
		typists = make(map[string]user.Participant)
		t.rooms[room] = typists
	}
	typists[connID] = participant
}

// Forget drops connID from room without emitting anything.
func (t *TypingCoordinator) Forget(room, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.forgetLocked(room, connID)
}

func (t *TypingCoordinator) forgetLocked(room, connID string) {
	typists, ok := t.rooms[room]
	if !ok {
		return
	}
	delete(typists, connID)
	if len(typists) == 0 {
		delete(t.rooms, room)
	}
}

// Typing returns the participants currently typing in room, sorted by display name then identity.
func (t *TypingCoordinator) Typing(room string) []user.Participant {
	t.mu.Lock()
	participants := make([]user.Participant, 0, len(t.rooms[room]))
	for _, p := range t.rooms[room] {
		participants = append(participants, p)
	}
	t.mu.Unlock()

	sort.Slice(participants, func(i, j int) bool {
		if participants[i].DisplayName != participants[j].DisplayName {
			return participants[i].DisplayName < participants[j].DisplayName
		}
		return participants[i].Identity < participants[j].Identity
	})
	return participants
}
