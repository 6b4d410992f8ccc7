package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/lexflow/backend/websocket"
)

func TestWebSocketHandlerSendReachesAllUserConnections(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run()

	first := hub.RegisterClient(nil, "user-1")
	second := hub.RegisterClient(nil, "user-1")
	// The hub loop handles registrations one at a time, so once this third
	// registration returns the earlier two are in the client map.
	other := hub.RegisterClient(nil, "user-2")

	handler := NewWebSocketHandler(nil, nil)
	handler.send(first, ws.Message{Type: "chat_reply", SessionID: "sess-1", Content: "hello"})

	for _, client := range []*ws.Client{first, second} {
		select {
		case frame := <-client.Send:
			var msg ws.Message
			require.NoError(t, json.Unmarshal(frame, &msg))
			assert.Equal(t, "chat_reply", msg.Type)
			assert.Equal(t, "hello", msg.Content)
		case <-time.After(time.Second):
			t.Fatal("connection never received the reply")
		}
	}

	select {
	case <-other.Send:
		t.Fatal("another user's connection received the reply")
	case <-time.After(50 * time.Millisecond):
	}
}
