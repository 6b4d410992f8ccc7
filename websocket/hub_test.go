package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		h.mu.RLock()
		n := len(h.clients)
		h.mu.RUnlock()
		if n == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients", want)
}

func TestPublishToSessionOnlyReachesSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	watcher := hub.RegisterClient(nil, "user-1")
	other := hub.RegisterClient(nil, "user-2")
	waitForClients(t, hub, 2)

	watcher.Subscribe("sess-1")

	hub.PublishToSession("sess-1", []byte("event"))

	select {
	case msg := <-watcher.Send:
		assert.Equal(t, "event", string(msg))
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}

	select {
	case <-other.Send:
		t.Fatal("non-subscriber received the event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSendToUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	target := hub.RegisterClient(nil, "user-1")
	other := hub.RegisterClient(nil, "user-2")
	waitForClients(t, hub, 2)

	hub.SendToUser("user-1", []byte("hello"))

	select {
	case msg := <-target.Send:
		assert.Equal(t, "hello", string(msg))
	case <-time.After(time.Second):
		t.Fatal("target user never received the message")
	}

	select {
	case <-other.Send:
		t.Fatal("wrong user received the message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := hub.RegisterClient(nil, "user-1")
	waitForClients(t, hub, 1)

	require.False(t, client.Watching("sess-1"))

	client.Subscribe("sess-1")
	assert.True(t, client.Watching("sess-1"))

	client.Unsubscribe("sess-1")
	assert.False(t, client.Watching("sess-1"))
}
