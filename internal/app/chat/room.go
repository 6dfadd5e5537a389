/*
Package chat contains the real-time chat core: sessions, room presence broadcasting and the
WebSocket connection gateway.

This file defines roomChannel, the per-room sequencer. Everything published to a room under
its lock reaches every observer in the order it was published, so message broadcast order
matches persistence order.
*/
package chat

import (
	"sync"
)

// roomChannel serializes publication to one room.
type roomChannel struct {
	name string

	// mu is held across persist-then-broadcast and across grouped presence events.
	mu sync.Mutex
}

func newRoomChannels(names []string) map[string]*roomChannel {
	channels := make(map[string]*roomChannel, len(names))
	for _, name := range names {
		channels[name] = &roomChannel{name: name}
	}
	return channels
}

// publish runs fn while holding the room's lock.
func (r *roomChannel) publish(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return fn()
}
