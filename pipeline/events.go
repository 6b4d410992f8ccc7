package pipeline

// Event types emitted while a session runs.
const (
	EventStageStarted  = "stage_started"
	EventAgentFinished = "agent_finished"
	EventStageFinished = "stage_finished"
	EventSessionDone   = "session_done"
	EventSessionFailed = "session_failed"
)

// Event is a progress notification for one session.
type Event struct {
	Type          string `json:"type"`
	SessionID     string `json:"session_id"`
	StagePosition int    `json:"stage_position,omitempty"`
	StageName     string `json:"stage_name,omitempty"`
	SectionIndex  int    `json:"section_index,omitempty"`
	AgentName     string `json:"agent_name,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Notifier receives progress events. The websocket hub implements this; a
// nil-safe no-op is used when nothing is listening.
type Notifier interface {
	Publish(sessionID string, event Event)
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, Event) {}
