package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lounge/internal/app/directory"
	"lounge/internal/app/room"
)

const (
	aliceAddr = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	bobAddr   = "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	carolAddr = "0xcccccccccccccccccccccccccccccccccccccccc"
)

var errStorageDown = errors.New("storage down")

// memoryDirectory is an in-memory Directory with switchable failures.
type memoryDirectory struct {
	mu       sync.Mutex
	users    map[string]directory.User
	messages []directory.Message
	seq      int

	failUpsert bool
	failInsert bool
	failRecent bool
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{users: make(map[string]directory.User)}
}

func (m *memoryDirectory) UpsertUser(_ context.Context, identity string) (directory.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failUpsert {
		return directory.User{}, errStorageDown
	}
	if u, ok := m.users[identity]; ok {
		return u, nil
	}
	u := directory.User{Identity: identity, CreatedAt: time.Now().UTC()}
	m.users[identity] = u
	return u, nil
}

func (m *memoryDirectory) InsertMessage(_ context.Context, identity, displayName, content, roomName string) (directory.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failInsert {
		return directory.Message{}, errStorageDown
	}
	m.seq++
	msg := directory.Message{
		ID:          fmt.Sprintf("msg-%d", m.seq),
		Identity:    identity,
		DisplayName: displayName,
		Content:     content,
		Room:        roomName,
		CreatedAt:   time.Unix(int64(m.seq), 0).UTC(),
	}
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *memoryDirectory) RecentMessages(_ context.Context, roomName string, limit int) ([]directory.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failRecent {
		return nil, errStorageDown
	}
	out := []directory.Message{}
	for _, msg := range m.messages {
		if msg.Room == roomName {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memoryDirectory) Close() error { return nil }

func (m *memoryDirectory) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// hookedDirectory runs afterRecent once a history read has completed.
type hookedDirectory struct {
	*memoryDirectory
	afterRecent func()
}

func (h *hookedDirectory) RecentMessages(ctx context.Context, roomName string, limit int) ([]directory.Message, error) {
	out, err := h.memoryDirectory.RecentMessages(ctx, roomName, limit)
	if h.afterRecent != nil {
		h.afterRecent()
	}
	return out, err
}

type frame struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (f frame) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(f.Payload, v))
}

// testConn is an in-process connection driven through its Session.
type testConn struct {
	t       *testing.T
	session *Session
	client  *Client
}

func newTestGateway(t *testing.T, dir directory.Directory) *Gateway {
	t.Helper()
	return NewGateway(Options{
		Rooms:     room.NewRegistry([]string{"General", "Trading", "Support"}),
		Directory: dir,
	})
}

func connect(t *testing.T, g *Gateway, id, boundAddress string) *testConn {
	t.Helper()

	client := NewClient(id, nil)
	session, err := g.Connect(client, boundAddress)
	require.NoError(t, err)

	return &testConn{t: t, session: session, client: client}
}

func (c *testConn) sendRaw(raw string) {
	c.session.HandleFrame([]byte(raw))
}

func (c *testConn) send(eventType EventType, payload any) {
	c.t.Helper()

	raw, err := json.Marshal(map[string]any{"type": eventType, "payload": payload})
	require.NoError(c.t, err)
	c.session.HandleFrame(raw)
}

// drain returns every frame queued so far.
func (c *testConn) drain() []frame {
	c.t.Helper()

	var frames []frame
	for {
		select {
		case raw, ok := <-c.client.Outbound():
			if !ok {
				return frames
			}
			var f frame
			require.NoError(c.t, json.Unmarshal(raw, &f))
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func (c *testConn) authenticate(identity, displayName string) {
	c.t.Helper()

	c.send(TypeAuthenticate, map[string]string{"identity": identity, "displayName": displayName})
	frames := c.drain()
	require.Len(c.t, frames, 1)
	require.Equal(c.t, TypeAuthenticated, frames[0].Type)
}

func (c *testConn) join(roomName string) []frame {
	c.t.Helper()

	c.send(TypeJoinRoom, map[string]string{"room": roomName})
	return c.drain()
}

func types(frames []frame) []EventType {
	out := make([]EventType, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Type)
	}
	return out
}

func findFrame(t *testing.T, frames []frame, eventType EventType) frame {
	t.Helper()

	for _, f := range frames {
		if f.Type == eventType {
			return f
		}
	}
	t.Fatalf("no %s frame in %v", eventType, types(frames))
	return frame{}
}

func requireError(t *testing.T, frames []frame, code int) {
	t.Helper()

	require.Len(t, frames, 1, "want exactly one frame, got %v", types(frames))
	require.Equal(t, TypeError, frames[0].Type)

	var payload ErrorPayload
	frames[0].decode(t, &payload)
	require.Equal(t, code, payload.Code)
	require.NotEmpty(t, payload.Message)
}
