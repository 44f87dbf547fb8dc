package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/im-Prabhasha/VolumeTracker/internal/telemetry"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesClient(t *testing.T) {
	hub := NewHub(telemetry.NewMetrics())
	conn := dialHub(t, hub)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, time.Millisecond)

	sent := RefreshNotice{
		Type:            "refresh",
		BatchID:         "batch-7",
		FetchedAt:       time.Now().UTC(),
		Records:         250,
		HighVolumeCount: 4,
	}
	hub.Broadcast(sent)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	msgType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)

	var got RefreshNotice
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "batch-7", got.BatchID)
	assert.Equal(t, 250, got.Records)
	assert.Equal(t, 4, got.HighVolumeCount)
}

func TestClientRemovedOnDisconnect(t *testing.T) {
	hub := NewHub(telemetry.NewMetrics())
	conn := dialHub(t, hub)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, time.Second, time.Millisecond)
}

func TestBroadcastWithNoClients(t *testing.T) {
	hub := NewHub(telemetry.NewMetrics())
	hub.Broadcast(RefreshNotice{Type: "refresh"}) // must not panic
	assert.Equal(t, 0, hub.ClientCount())
}
