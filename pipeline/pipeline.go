// Package pipeline executes agent sets: staged, multi-agent analysis of a
// document version that produces a test plan. Stages run in order; within a
// stage the member agents run sequentially, fully parallel or batched under a
// concurrency limit, per the stage's mode. Individual agent failures are
// recorded and the run continues; a session only fails when an entire stage
// produces no successful output.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lexflow/backend/llm"
	"github.com/lexflow/backend/models"
	"github.com/lexflow/backend/vectorstore"
	"golang.org/x/sync/errgroup"
)

// Store is the persistence surface the executor needs.
type Store interface {
	GetModelProfile(ctx context.Context, provider, model string) (*models.ModelProfile, error)
	CreateAgentResponse(ctx context.Context, response *models.AgentResponse) error
	CreateRAGCitation(ctx context.Context, citation *models.RAGCitation) error
	CreateTestPlan(ctx context.Context, plan *models.TestPlan) error
	CompleteAgentSession(ctx context.Context, sessionID, status, errMsg string) error
}

// Retriever supplies reference passages for retrieval-augmented prompts.
type Retriever interface {
	Retrieve(ctx context.Context, query string, documentID string) ([]vectorstore.Passage, error)
}

// Clients resolves an agent's provider to an LLM client.
type Clients interface {
	Get(provider string) (llm.Client, error)
}

// DefaultProfile bounds agents whose provider/model pair has no stored
// profile.
var DefaultProfile = models.ModelProfile{
	TimeoutSeconds: 60,
	MaxTokens:      2048,
	ContextWindow:  8192,
	ChunkStrategy:  models.ChunkPerSection,
	ChunkWindow:    4000,
	BatchSize:      3,
}

type Executor struct {
	store     Store
	clients   Clients
	retriever Retriever
	notify    Notifier

	profileMu sync.Mutex
	profiles  map[string]*models.ModelProfile
}

func NewExecutor(store Store, clients Clients, retriever Retriever, notify Notifier) *Executor {
	if notify == nil {
		notify = noopNotifier{}
	}
	return &Executor{
		store:     store,
		clients:   clients,
		retriever: retriever,
		notify:    notify,
		profiles:  make(map[string]*models.ModelProfile),
	}
}

// Run executes the agent set against the document version and records every
// outcome under the session. It finishes the session row itself: completed,
// failed or cancelled (on ctx cancellation).
func (e *Executor) Run(ctx context.Context, session *models.AgentSession, set *models.AgentSet, version *models.DocumentVersion) error {
	stages := append([]models.AgentSetStage(nil), set.Stages...)
	sort.Slice(stages, func(i, j int) bool { return stages[i].Position < stages[j].Position })

	if len(stages) == 0 {
		return e.fail(ctx, session.ID, "agent set has no stages")
	}

	profile := e.leadProfile(ctx, stages)
	sections := SectionsFor(version.Content, profile)
	if len(sections) == 0 {
		return e.fail(ctx, session.ID, "document version has no content to analyze")
	}

	slog.Info("Pipeline run started",
		"session_id", session.ID,
		"agent_set_id", set.ID,
		"stages", len(stages),
		"sections", len(sections))

	// Per-section chain of successful outputs carried between stages.
	carried := make([][]string, len(sections))

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return e.cancelled(ctx, session.ID, err)
		}

		e.notify.Publish(session.ID, Event{
			Type:          EventStageStarted,
			SessionID:     session.ID,
			StagePosition: stage.Position,
			StageName:     stage.Name,
		})

		outputs, successes := e.runStage(ctx, session, version, &stage, sections, carried)
		if successes == 0 {
			// A cancelled context makes every invocation error out; that is
			// a cancellation, not a stage failure.
			if err := ctx.Err(); err != nil {
				return e.cancelled(ctx, session.ID, err)
			}
			return e.fail(ctx, session.ID, fmt.Sprintf("stage %q produced no successful output", stage.Name))
		}

		carried = outputs
		e.notify.Publish(session.ID, Event{
			Type:          EventStageFinished,
			SessionID:     session.ID,
			StagePosition: stage.Position,
			StageName:     stage.Name,
		})
	}

	if err := ctx.Err(); err != nil {
		return e.cancelled(ctx, session.ID, err)
	}

	summary, cards := ParseTestCards(mergeSections(carried))
	plan := &models.TestPlan{
		SessionID: session.ID,
		Summary:   summary,
		Cards:     cards,
	}
	if err := e.store.CreateTestPlan(ctx, plan); err != nil {
		return e.fail(ctx, session.ID, fmt.Sprintf("storing test plan: %v", err))
	}

	if err := e.store.CompleteAgentSession(ctx, session.ID, models.SessionCompleted, ""); err != nil {
		return err
	}
	e.notify.Publish(session.ID, Event{Type: EventSessionDone, SessionID: session.ID})

	slog.Info("Pipeline run completed", "session_id", session.ID, "cards", len(cards))
	return nil
}

// runStage executes one stage over all sections. It returns the successful
// outputs per section (ordered by member position) and the total success
// count. Failures are recorded as responses, never propagated.
func (e *Executor) runStage(ctx context.Context, session *models.AgentSession, version *models.DocumentVersion, stage *models.AgentSetStage, sections []vectorstore.Section, carried [][]string) ([][]string, int) {
	agents := stage.Agents
	results := make([][]string, len(sections))
	for i := range results {
		results[i] = make([]string, len(agents))
	}

	switch stage.Mode {
	case models.ModeParallel, models.ModeBatched:
		g := new(errgroup.Group)
		if stage.Mode == models.ModeBatched {
			g.SetLimit(e.stageBatchSize(ctx, agents))
		}
		for ai := range agents {
			for si := range sections {
				ai, si := ai, si
				g.Go(func() error {
					out, err := e.invoke(ctx, session, version, stage, &agents[ai], si, sections[si], carried[si])
					if err == nil {
						results[si][ai] = out
					}
					return nil // failures are recorded, not propagated
				})
			}
		}
		g.Wait()

	default: // sequential
		for ai := range agents {
			for si := range sections {
				// Later members see earlier members' outputs for the section.
				sectionContext := append(append([]string(nil), carried[si]...), compact(results[si][:ai])...)
				out, err := e.invoke(ctx, session, version, stage, &agents[ai], si, sections[si], sectionContext)
				if err == nil {
					results[si][ai] = out
				}
			}
		}
	}

	outputs := make([][]string, len(sections))
	successes := 0
	for si := range sections {
		outputs[si] = compact(results[si])
		successes += len(outputs[si])
	}
	return outputs, successes
}

// invoke runs one agent against one section and records the outcome.
func (e *Executor) invoke(ctx context.Context, session *models.AgentSession, version *models.DocumentVersion, stage *models.AgentSetStage, agent *models.Agent, sectionIndex int, section vectorstore.Section, sectionContext []string) (string, error) {
	profile := e.profileFor(ctx, agent)

	var passages []vectorstore.Passage
	if agent.UseRetrieval && e.retriever != nil {
		query := section.Heading
		if query == "" {
			query = truncate(section.Content, 300)
		}
		retrieved, err := e.retriever.Retrieve(ctx, query, version.DocumentID)
		if err != nil {
			// Retrieval is an enhancement; proceed without passages.
			slog.Warn("Retrieval failed, continuing without passages",
				"session_id", session.ID, "agent", agent.Name, "error", err)
		} else {
			passages = retrieved
		}
	}

	// ID assigned client-side so citations can reference it immediately.
	response := &models.AgentResponse{
		ID:            uuid.New().String(),
		SessionID:     session.ID,
		AgentID:       agent.ID,
		StagePosition: stage.Position,
		SectionIndex:  sectionIndex,
	}

	start := time.Now()
	text, err := e.generate(ctx, agent, profile, section, sectionContext, passages)
	response.LatencyMS = time.Since(start).Milliseconds()

	if err != nil {
		response.Error = err.Error()
		slog.Error("Agent invocation failed",
			"session_id", session.ID,
			"agent", agent.Name,
			"stage", stage.Position,
			"section", sectionIndex,
			"error", err)
	} else {
		response.Content = text
	}

	if storeErr := e.store.CreateAgentResponse(context.WithoutCancel(ctx), response); storeErr != nil {
		slog.Error("Failed to record agent response", "session_id", session.ID, "error", storeErr)
	} else if err == nil {
		for _, p := range passages {
			citation := &models.RAGCitation{
				ResponseID: response.ID,
				DocumentID: p.DocumentID,
				ChunkIndex: p.ChunkIndex,
				Excerpt:    truncate(p.Excerpt, 500),
				Score:      p.Score,
			}
			if citErr := e.store.CreateRAGCitation(context.WithoutCancel(ctx), citation); citErr != nil {
				slog.Error("Failed to record citation", "session_id", session.ID, "error", citErr)
			}
		}
	}

	e.notify.Publish(session.ID, Event{
		Type:          EventAgentFinished,
		SessionID:     session.ID,
		StagePosition: stage.Position,
		StageName:     stage.Name,
		SectionIndex:  sectionIndex,
		AgentName:     agent.Name,
		Error:         response.Error,
	})

	return text, err
}

func (e *Executor) generate(ctx context.Context, agent *models.Agent, profile *models.ModelProfile, section vectorstore.Section, sectionContext []string, passages []vectorstore.Passage) (string, error) {
	client, err := e.clients.Get(agent.Provider)
	if err != nil {
		return "", err
	}

	timeout := time.Duration(profile.TimeoutSeconds) * time.Second
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := client.Generate(callCtx, llm.Request{
		Model:        agent.Model,
		SystemPrompt: SystemPrompt(agent),
		Prompt:       RenderPrompt(agent, section, sectionContext, passages),
		Temperature:  agent.Temperature,
		MaxTokens:    profile.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("provider returned empty response")
	}
	return resp.Text, nil
}

// profileFor resolves an agent's model profile, caching lookups for the run
// and falling back to DefaultProfile.
func (e *Executor) profileFor(ctx context.Context, agent *models.Agent) *models.ModelProfile {
	key := agent.Provider + "/" + agent.Model

	e.profileMu.Lock()
	if p, ok := e.profiles[key]; ok {
		e.profileMu.Unlock()
		return p
	}
	e.profileMu.Unlock()

	profile, err := e.store.GetModelProfile(ctx, agent.Provider, agent.Model)
	if err != nil || profile == nil {
		fallback := DefaultProfile
		profile = &fallback
	}

	e.profileMu.Lock()
	e.profiles[key] = profile
	e.profileMu.Unlock()
	return profile
}

// leadProfile picks the profile that drives section splitting: the first
// agent of the first stage.
func (e *Executor) leadProfile(ctx context.Context, stages []models.AgentSetStage) *models.ModelProfile {
	for _, stage := range stages {
		if len(stage.Agents) > 0 {
			return e.profileFor(ctx, &stage.Agents[0])
		}
	}
	fallback := DefaultProfile
	return &fallback
}

func (e *Executor) stageBatchSize(ctx context.Context, agents []models.Agent) int {
	size := DefaultProfile.BatchSize
	if len(agents) > 0 {
		if p := e.profileFor(ctx, &agents[0]); p.BatchSize > 0 {
			size = p.BatchSize
		}
	}
	if size < 1 {
		size = 1
	}
	return size
}

func (e *Executor) cancelled(ctx context.Context, sessionID string, cause error) error {
	e.store.CompleteAgentSession(context.WithoutCancel(ctx), sessionID, models.SessionCancelled, "run cancelled")
	slog.Info("Pipeline run cancelled", "session_id", sessionID)
	return cause
}

func (e *Executor) fail(ctx context.Context, sessionID, reason string) error {
	e.store.CompleteAgentSession(context.WithoutCancel(ctx), sessionID, models.SessionFailed, reason)
	e.notify.Publish(sessionID, Event{Type: EventSessionFailed, SessionID: sessionID, Error: reason})
	slog.Error("Pipeline run failed", "session_id", sessionID, "reason", reason)
	return fmt.Errorf("pipeline run failed: %s", reason)
}

func mergeSections(carried [][]string) string {
	var parts []string
	for _, outputs := range carried {
		parts = append(parts, outputs...)
	}
	return strings.Join(parts, "\n\n")
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a UTF-8 rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
