package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lexflow/backend/models"
	"github.com/lexflow/backend/pipeline"
	"github.com/lexflow/backend/repository"
	"github.com/lexflow/backend/websocket"
)

// GenerationService runs test-plan pipelines as in-process background jobs.
// Concurrency is bounded by a worker pool; runs beyond the pool size queue
// until a slot frees up. Each running session keeps a cancel function so the
// owner can stop it mid-flight.
type GenerationService struct {
	repo     *repository.GORMRepository
	executor *pipeline.Executor
	slots    chan struct{}

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewGenerationService(repo *repository.GORMRepository, executor *pipeline.Executor, workers int) *GenerationService {
	if workers < 1 {
		workers = 1
	}
	return &GenerationService{
		repo:     repo,
		executor: executor,
		slots:    make(chan struct{}, workers),
		running:  make(map[string]context.CancelFunc),
	}
}

// StartRun validates the request, creates the session row and schedules the
// pipeline in the background. A user cannot start a second run for the same
// agent set and document version while one is still active.
func (s *GenerationService) StartRun(ctx context.Context, user *models.User, agentSetID, documentVersionID string) (*models.AgentSession, error) {
	set, err := s.repo.GetAgentSetWithStages(ctx, agentSetID, user.ID)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, NewNotFoundError("agent set", agentSetID)
	}
	if len(set.Stages) == 0 {
		return nil, NewValidationError("agent set has no stages")
	}

	version, err := s.repo.GetDocumentVersion(ctx, documentVersionID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, NewNotFoundError("document version", documentVersionID)
	}

	doc, err := s.repo.GetDocument(ctx, version.DocumentID, user.ID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, NewNotFoundError("document", version.DocumentID)
	}

	sessions, err := s.repo.GetAgentSessions(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	for _, existing := range sessions {
		if existing.Status == models.SessionActive &&
			existing.AgentSetID == agentSetID &&
			existing.DocumentVersionID == documentVersionID {
			return nil, NewDuplicateError("active session", existing.ID)
		}
	}

	session := &models.AgentSession{
		ID:                uuid.New().String(),
		UserID:            user.ID,
		AgentSetID:        agentSetID,
		DocumentVersionID: documentVersionID,
		Status:            models.SessionActive,
		StartedAt:         time.Now(),
	}
	if err := s.repo.CreateAgentSession(ctx, session); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.running[session.ID] = cancel
	s.mu.Unlock()

	go s.run(runCtx, session, set, version)

	slog.Info("Pipeline run scheduled", "session_id", session.ID, "user_id", user.ID, "agent_set_id", agentSetID)
	return session, nil
}

func (s *GenerationService) run(ctx context.Context, session *models.AgentSession, set *models.AgentSet, version *models.DocumentVersion) {
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.running[session.ID]; ok {
			cancel()
			delete(s.running, session.ID)
		}
		s.mu.Unlock()
	}()

	// Queue behind the worker pool; cancellation also releases queued runs.
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		s.repo.CompleteAgentSession(context.WithoutCancel(ctx), session.ID, models.SessionCancelled, "run cancelled while queued")
		return
	}

	if err := s.executor.Run(ctx, session, set, version); err != nil {
		slog.Error("Pipeline run finished with error", "session_id", session.ID, "error", err)
	}
}

// Cancel stops an active run owned by the user. The executor marks the session
// cancelled when it observes the context.
func (s *GenerationService) Cancel(ctx context.Context, userID, sessionID string) error {
	session, err := s.repo.GetAgentSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil || session.UserID != userID {
		return NewNotFoundError("session", sessionID)
	}
	if session.Status != models.SessionActive {
		return NewValidationError(fmt.Sprintf("session is %s, only active sessions can be cancelled", session.Status))
	}

	s.mu.Lock()
	cancel, ok := s.running[sessionID]
	s.mu.Unlock()

	if !ok {
		// Not running in this process (e.g. restarted); finish the row directly.
		return s.repo.CompleteAgentSession(ctx, sessionID, models.SessionCancelled, "run cancelled")
	}

	cancel()
	slog.Info("Pipeline run cancelled", "session_id", sessionID, "user_id", userID)
	return nil
}

// ActiveRuns reports how many sessions this process is currently executing.
func (s *GenerationService) ActiveRuns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// HubNotifier forwards pipeline progress events to websocket subscribers.
type HubNotifier struct {
	Hub *websocket.Hub
}

func (n *HubNotifier) Publish(sessionID string, event pipeline.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal pipeline event", "session_id", sessionID, "error", err)
		return
	}

	frame, err := json.Marshal(websocket.Message{
		Type:      "pipeline_event",
		SessionID: sessionID,
		Payload:   payload,
	})
	if err != nil {
		slog.Error("Failed to marshal websocket frame", "session_id", sessionID, "error", err)
		return
	}

	n.Hub.PublishToSession(sessionID, frame)
}
