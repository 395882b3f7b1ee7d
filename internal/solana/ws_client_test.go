package solana

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsTestServer runs a minimal logsSubscribe endpoint for client tests.
func wsTestServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSClient_SubscribeLogs(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn) {
		var req wsRequest
		require.NoError(t, conn.ReadJSON(&req))
		assert.Equal(t, "logsSubscribe", req.Method)

		filter := req.Params[0].(map[string]interface{})
		mentions := filter["mentions"].([]interface{})
		assert.Equal(t, "program111", mentions[0])

		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  99,
		}))

		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "logsNotification",
			"params": map[string]interface{}{
				"subscription": 99,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 555},
					"value": map[string]interface{}{
						"signature": "sig1",
						"logs":      []string{"Program data: AAAA"},
						"err":       nil,
					},
				},
			},
		}))

		// Keep the connection open until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil, nil)
	require.NoError(t, err)
	defer client.Close()

	ch, err := client.SubscribeLogs(context.Background(), LogsFilter{Mentions: []string{"program111"}})
	require.NoError(t, err)

	select {
	case notif := <-ch:
		assert.Equal(t, "sig1", notif.Signature)
		assert.Equal(t, int64(555), notif.Slot)
		assert.Equal(t, []string{"Program data: AAAA"}, notif.Logs)
		assert.Nil(t, notif.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for notification")
	}
}

func TestWSClient_SubscribeTimeout(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn) {
		// Read the request but never confirm the subscription.
		conn.ReadMessage()
		time.Sleep(2 * time.Second)
	})
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.SubscribeTimeout = 100 * time.Millisecond

	client, err := NewWSClient(context.Background(), wsURL(server), &cfg, nil)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.SubscribeLogs(context.Background(), LogsFilter{Mentions: []string{"p"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestWSClient_CloseIdempotent(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	client, err := NewWSClient(context.Background(), wsURL(server), nil, nil)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}

func TestWSClient_DialError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewWSClient(ctx, "ws://127.0.0.1:1", nil, nil)
	require.Error(t, err)
}

func TestWSClient_ReconnectResubscribes(t *testing.T) {
	subscribes := make(chan wsRequest, 2)
	first := true

	server := wsTestServer(t, func(conn *websocket.Conn) {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		subscribes <- req

		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  10,
		})

		if first {
			first = false
			// Drop the connection to force a client reconnect.
			conn.Close()
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.ReconnectDelay = 50 * time.Millisecond

	client, err := NewWSClient(context.Background(), wsURL(server), &cfg, nil)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.SubscribeLogs(context.Background(), LogsFilter{Mentions: []string{"prog"}})
	require.NoError(t, err)

	// First subscribe already captured; wait for the resubscribe.
	<-subscribes
	select {
	case req := <-subscribes:
		assert.Equal(t, "logsSubscribe", req.Method)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for resubscribe")
	}
}
