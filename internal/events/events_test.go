package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestManager(t *testing.T) (*Manager, *httptest.Server) {
	t.Helper()
	manager := NewManager()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		manager.HandleConnection(r.Context(), conn)
	}))
	t.Cleanup(server.Close)
	return manager, server
}

func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[len("http"):]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg map[string]string
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHandleConnection_SendsConnectionEstablished(t *testing.T) {
	manager, server := setupTestManager(t)
	conn := connectWS(t, server)
	defer conn.Close(websocket.StatusNormalClosure, "")

	msg := readMessage(t, conn)
	assert.Equal(t, "connection.established", msg["type"])
	assert.Eventually(t, func() bool { return manager.ActiveConnections() == 1 }, time.Second, 10*time.Millisecond)
}

func TestSubscribeAndBroadcast_DeliversToSubscriber(t *testing.T) {
	manager, server := setupTestManager(t)
	conn := connectWS(t, server)
	defer conn.Close(websocket.StatusNormalClosure, "")
	readMessage(t, conn) // connection.established

	require.NoError(t, conn.Write(context.Background(), websocket.MessageText,
		[]byte(`{"action":"subscribe","channel":"session-1"}`)))

	confirmed := readMessage(t, conn)
	assert.Equal(t, "subscription.confirmed", confirmed["type"])
	assert.Equal(t, "session-1", confirmed["channel"])

	manager.Broadcast("session-1", map[string]string{"type": "status.update", "status": "Completed"})

	update := readMessage(t, conn)
	assert.Equal(t, "status.update", update["type"])
	assert.Equal(t, "Completed", update["status"])
}

func TestBroadcast_SkipsUnsubscribedChannel(t *testing.T) {
	manager, _ := setupTestManager(t)
	// No subscribers at all; must not panic or block.
	manager.Broadcast("nobody-listening", map[string]string{"type": "status.update"})
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	manager, server := setupTestManager(t)
	conn := connectWS(t, server)
	defer conn.Close(websocket.StatusNormalClosure, "")
	readMessage(t, conn)

	require.NoError(t, conn.Write(context.Background(), websocket.MessageText,
		[]byte(`{"action":"subscribe","channel":"session-2"}`)))
	readMessage(t, conn)

	require.NoError(t, conn.Write(context.Background(), websocket.MessageText,
		[]byte(`{"action":"unsubscribe","channel":"session-2"}`)))
	// The server handles one client message at a time, in order, so this
	// pong means the unsubscribe has been applied before the broadcast.
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, []byte(`{"action":"ping"}`)))
	require.Equal(t, "pong", readMessage(t, conn)["type"])

	manager.Broadcast("session-2", map[string]string{"type": "status.update"})

	// Ping/pong proves the connection is still alive and idle; no
	// status.update should have arrived ahead of it.
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, []byte(`{"action":"ping"}`)))
	pong := readMessage(t, conn)
	assert.Equal(t, "pong", pong["type"])
}
