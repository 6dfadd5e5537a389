package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"lounge/internal/app/chat"
	"lounge/internal/app/directory"
	"lounge/internal/app/room"
	"lounge/internal/configs"
	"lounge/internal/pkg/auth/jwt"
	"lounge/internal/pkg/limiter"
)

const (
	testSecret = "test-secret"
	aliceAddr  = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	bobAddr    = "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func setupServer(t *testing.T, handshakeLimiter *limiter.IPRateLimiter) (*httptest.Server, *chat.Gateway) {
	t.Helper()

	dir, err := directory.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })

	reg := prometheus.NewRegistry()
	gateway := chat.NewGateway(chat.Options{
		Rooms:      room.NewRegistry([]string{"General", "Trading"}),
		Directory:  dir,
		Registerer: reg,
	})

	if handshakeLimiter == nil {
		handshakeLimiter = NewHandshakeLimiter()
	}
	t.Cleanup(handshakeLimiter.Stop)

	cfg := &configs.AppConfig{
		Environment:         "development",
		IdentityTokenSecret: testSecret,
	}

	srv := httptest.NewServer(Router(&AppDeps{
		Gateway:          gateway,
		Config:           cfg,
		Metrics:          reg,
		HandshakeLimiter: handshakeLimiter,
	}))
	t.Cleanup(srv.Close)

	return srv, gateway
}

func getJSON(t *testing.T, url string) (int, envelope) {
	t.Helper()

	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()

	var body envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return res.StatusCode, body
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, res, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = res.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": eventType, "payload": payload}))
}

// readUntil reads events until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) wireEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var evt wireEvent
		require.NoError(t, conn.ReadJSON(&evt))
		if evt.Type == want {
			return evt
		}
	}
}

func TestHealth(t *testing.T) {
	srv, _ := setupServer(t, nil)

	status, body := getJSON(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, body.Code)
	assert.JSONEq(t, `{"status":"ok","service":"Lounge Chat Server"}`, string(body.Data))
}

func TestRoomEndpoints(t *testing.T) {
	srv, _ := setupServer(t, nil)

	status, body := getJSON(t, srv.URL+"/api/rooms")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"rooms":[{"name":"General","online":0},{"name":"Trading","online":0}]}`, string(body.Data))

	status, body = getJSON(t, srv.URL+"/api/rooms/General")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"name":"General","online":[],"typing":[]}`, string(body.Data))

	status, body = getJSON(t, srv.URL+"/api/rooms/Lobby")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 1003, body.Code)
}

func TestChatOverWebSocket(t *testing.T) {
	srv, _ := setupServer(t, nil)

	alice := dial(t, srv, "")
	sendEvent(t, alice, "authenticate", map[string]string{"identity": aliceAddr, "displayName": "Alice"})
	readUntil(t, alice, "authenticated")
	sendEvent(t, alice, "join_room", map[string]string{"room": "General"})

	joined := readUntil(t, alice, "room_joined")
	assert.JSONEq(t, `{"room":"General","userCount":1}`, string(joined.Payload))
	readUntil(t, alice, "online_users")

	bob := dial(t, srv, "")
	sendEvent(t, bob, "authenticate", map[string]string{"identity": bobAddr, "displayName": "Bob"})
	readUntil(t, bob, "authenticated")
	sendEvent(t, bob, "join_room", map[string]string{"room": "General"})
	readUntil(t, bob, "online_users")

	announced := readUntil(t, alice, "user_joined")
	assert.Contains(t, string(announced.Payload), bobAddr)

	sendEvent(t, alice, "send_message", map[string]string{"content": "  hello  ", "room": "General"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		evt := readUntil(t, conn, "new_message")

		var msg directory.Message
		require.NoError(t, json.Unmarshal(evt.Payload, &msg))
		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, "General", msg.Room)
	}

	status, body := getJSON(t, srv.URL+"/api/rooms")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body.Data), `{"name":"General","online":2}`)

	require.NoError(t, bob.Close())

	left := readUntil(t, alice, "user_left")
	assert.Contains(t, string(left.Payload), bobAddr)

	roster := readUntil(t, alice, "online_users")
	var users struct {
		Users []map[string]string `json:"users"`
	}
	require.NoError(t, json.Unmarshal(roster.Payload, &users))
	assert.Len(t, users.Users, 1)
}

func TestHandshakeTokenBindsIdentity(t *testing.T) {
	srv, _ := setupServer(t, nil)

	token, err := jwt.GenerateToken(&jwt.Payload{Address: aliceAddr}, testSecret, jwt.HandshakeExpiration)
	require.NoError(t, err)

	conn := dial(t, srv, token)
	sendEvent(t, conn, "authenticate", map[string]string{"identity": bobAddr, "displayName": "Mallory"})

	evt := readUntil(t, conn, "error")
	assert.Contains(t, string(evt.Payload), `"code":2004`)

	sendEvent(t, conn, "authenticate", map[string]string{"identity": aliceAddr, "displayName": "Alice"})
	readUntil(t, conn, "authenticated")
}

func TestHandshakeRateLimit(t *testing.T) {
	srv, _ := setupServer(t, limiter.NewIPRateLimiter(rate.Limit(0.001), 1))

	dial(t, srv, "")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	defer res.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
}

func TestRouterRequiresHandshakeLimiter(t *testing.T) {
	assert.PanicsWithValue(t, "handler: AppDeps.HandshakeLimiter is required", func() {
		Router(&AppDeps{Config: &configs.AppConfig{Environment: "development"}})
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupServer(t, nil)

	conn := dial(t, srv, "")
	sendEvent(t, conn, "join_room", map[string]string{"room": "General"})
	readUntil(t, conn, "error")

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "lounge_connections_active 1")
	assert.Contains(t, string(body), `lounge_rejections_total{code="2001",kind="authorization"} 1`)
}
