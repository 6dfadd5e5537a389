/*
Package presence implements the Presence Table: the process-wide record of which authenticated
connection sits in which room.

All mutation goes through Join and Remove so that a room switch is a single critical section.
A concurrent Roster call therefore never observes a connection in two rooms or in none.
*/
package presence

import (
	"sort"
	"sync"

	"lounge/internal/app/user"
)

// Entry is one connection's presence in a room.
type Entry struct {
	ConnectionID string
	Participant  user.Participant
	Room         string

	// seq orders entries by the time they entered their current room.
	seq uint64
}

// Table maps connection ids to presence entries. The zero value is not usable; use NewTable.
type Table struct {
	mu      sync.RWMutex
	entries map[string]Entry
	nextSeq uint64
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{
		entries: make(map[string]Entry),
	}
}

// Join places connectionID in room. If the connection was in a different room, the old entry
// is replaced in the same critical section and returned with moved set to true.
// Re-joining the current room refreshes the participant and keeps the roster position.
func (t *Table) Join(connectionID string, participant user.Participant, room string) (previous Entry, moved bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.entries[connectionID]
	if ok && current.Room == room {
		current.Participant = participant
		t.entries[connectionID] = current
		return Entry{}, false
	}

	t.nextSeq++
	t.entries[connectionID] = Entry{
		ConnectionID: connectionID,
		Participant:  participant,
		Room:         room,
		seq:          t.nextSeq,
	}

	return current, ok
}

// Remove deletes and returns the entry for connectionID. Unknown ids return ok == false.
func (t *Table) Remove(connectionID string) (removed Entry, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed, ok = t.entries[connectionID]
	if ok {
		delete(t.entries, connectionID)
	}
	return removed, ok
}

// Lookup returns the current entry for connectionID.
func (t *Table) Lookup(connectionID string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.entries[connectionID]
	return entry, ok
}

// Roster returns a snapshot of the entries in room, ordered by arrival in the room.
func (t *Table) Roster(room string) []Entry {
	t.mu.RLock()
	roster := make([]Entry, 0)
	for _, entry := range t.entries {
		if entry.Room == room {
			roster = append(roster, entry)
		}
	}
	t.mu.RUnlock()

	sort.Slice(roster, func(i, j int) bool { return roster[i].seq < roster[j].seq })
	return roster
}

// Participants returns the roster of room as participants, in the order of Roster.
func (t *Table) Participants(room string) []user.Participant {
	roster := t.Roster(room)

	participants := make([]user.Participant, 0, len(roster))
	for _, entry := range roster {
		participants = append(participants, entry.Participant)
	}
	return participants
}

// Counts returns the number of connections per room in a single snapshot.
func (t *Table) Counts() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	counts := make(map[string]int)
	for _, entry := range t.entries {
		counts[entry.Room]++
	}
	return counts
}

// Rosters returns the roster of every occupied room, taken in a single snapshot.
func (t *Table) Rosters() map[string][]Entry {
	t.mu.RLock()
	rosters := make(map[string][]Entry)
	for _, entry := range t.entries {
		rosters[entry.Room] = append(rosters[entry.Room], entry)
	}
	t.mu.RUnlock()

	for _, roster := range rosters {
		sort.Slice(roster, func(i, j int) bool { return roster[i].seq < roster[j].seq })
	}
	return rosters
}

// Len returns the number of connections present in any room.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}
