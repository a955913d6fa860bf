package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/camwatch/internal/observability"
	"github.com/yourusername/camwatch/internal/storage"
	"go.uber.org/zap"
)

func newHubServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(zap.NewNop())
	go hub.Run()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", hub.HandleWS)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	// Wait for all clients to unregister before the test ends so the shared
	// WSConnections gauge has settled before the next test reads it. Runs
	// after the per-connection Close cleanups registered in dialWS.
	t.Cleanup(func() {
		deadline := time.Now().Add(time.Second)
		for hub.ClientCount() > 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
	})

	return hub, srv
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == n
	}, time.Second, 5*time.Millisecond)
}

func testEvent(cameraID string) *storage.MotionEvent {
	return &storage.MotionEvent{
		ID:         "e1",
		CameraID:   cameraID,
		DetectedAt: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		Regions:    1,
		Score:      4200,
		Delivered:  true,
	}
}

func TestHubBroadcastsToClient(t *testing.T) {
	hub, srv := newHubServer(t)

	conn := dialWS(t, srv, "")
	waitForClients(t, hub, 1)

	hub.PublishEvent(testEvent("front"))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event storage.MotionEvent
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, "front", event.CameraID)
	assert.Equal(t, 4200, event.Score)
	assert.True(t, event.Delivered)
}

func TestHubFiltersByCamera(t *testing.T) {
	hub, srv := newHubServer(t)

	frontConn := dialWS(t, srv, "?camera_id=front")
	yardConn := dialWS(t, srv, "?camera_id=yard")
	waitForClients(t, hub, 2)

	hub.PublishEvent(testEvent("front"))

	frontConn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := frontConn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"camera_id":"front"`)

	// The yard subscriber must not see the front camera's event.
	yardConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = yardConn.ReadMessage()
	assert.Error(t, err)
}

func TestHubDisconnectUnregisters(t *testing.T) {
	hub, srv := newHubServer(t)

	before := testutil.ToFloat64(observability.WSConnections)

	conn := dialWS(t, srv, "")
	waitForClients(t, hub, 1)
	assert.Equal(t, before+1, testutil.ToFloat64(observability.WSConnections))

	conn.Close()
	waitForClients(t, hub, 0)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(observability.WSConnections) == before
	}, time.Second, 5*time.Millisecond)
}

func TestHubDropsClientWithFullBuffer(t *testing.T) {
	hub := NewHub(zap.NewNop())

	// An unbuffered send channel with no writer behaves like a wedged
	// client: the first dispatch cannot enqueue and must disconnect it.
	client := &Client{send: make(chan []byte)}
	hub.mu.Lock()
	hub.clients[client] = true
	hub.mu.Unlock()
	observability.WSConnections.Inc()

	payload, err := json.Marshal(testEvent("front"))
	require.NoError(t, err)
	hub.dispatch(payload)

	assert.Zero(t, hub.ClientCount())

	// The send channel was closed as part of the drop.
	_, open := <-client.send
	assert.False(t, open)
}

func TestHubDroppedClientUnregisterKeepsGauge(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	before := testutil.ToFloat64(observability.WSConnections)

	client := &Client{send: make(chan []byte)}
	hub.register <- client
	waitForClients(t, hub, 1)
	require.Equal(t, before+1, testutil.ToFloat64(observability.WSConnections))

	payload, err := json.Marshal(testEvent("front"))
	require.NoError(t, err)
	hub.dispatch(payload)
	require.Zero(t, hub.ClientCount())
	require.Equal(t, before, testutil.ToFloat64(observability.WSConnections))

	// The dropped client's read loop eventually unregisters too; that
	// must not decrement the gauge a second time.
	hub.unregister <- client
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(observability.WSConnections) == before
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, testutil.ToFloat64(observability.WSConnections))
}
