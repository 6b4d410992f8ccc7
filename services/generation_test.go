package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexflow/backend/pipeline"
	ws "github.com/lexflow/backend/websocket"
)

func TestNewGenerationServiceClampsWorkers(t *testing.T) {
	svc := NewGenerationService(nil, nil, 0)
	assert.Equal(t, 1, cap(svc.slots))
	assert.Equal(t, 0, svc.ActiveRuns())

	svc = NewGenerationService(nil, nil, 4)
	assert.Equal(t, 4, cap(svc.slots))
}

func TestHubNotifierPublishesToSubscribers(t *testing.T) {
	hub := ws.NewHub()
	go hub.Run()

	watcher := hub.RegisterClient(nil, "user-1")
	watcher.Subscribe("sess-1")
	other := hub.RegisterClient(nil, "user-2")

	notifier := &HubNotifier{Hub: hub}
	event := pipeline.Event{
		Type:          pipeline.EventStageStarted,
		SessionID:     "sess-1",
		StagePosition: 0,
		StageName:     "Draft",
	}

	// Registration completes asynchronously on the hub loop, so publish
	// until the frame arrives.
	var frame []byte
	deadline := time.After(time.Second)
loop:
	for {
		notifier.Publish("sess-1", event)
		select {
		case frame = <-watcher.Send:
			break loop
		case <-deadline:
			t.Fatal("subscriber never received the pipeline event")
		case <-time.After(10 * time.Millisecond):
		}
	}

	var msg ws.Message
	require.NoError(t, json.Unmarshal(frame, &msg))
	assert.Equal(t, "pipeline_event", msg.Type)
	assert.Equal(t, "sess-1", msg.SessionID)

	var got pipeline.Event
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, event, got)

	select {
	case <-other.Send:
		t.Fatal("non-subscriber received the event")
	case <-time.After(50 * time.Millisecond):
	}
}
