package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/lexflow/backend/llm"
	"github.com/lexflow/backend/models"
	"github.com/lexflow/backend/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu          sync.Mutex
	profiles    map[string]*models.ModelProfile
	responses   []*models.AgentResponse
	citations   []*models.RAGCitation
	plans       []*models.TestPlan
	finalStatus string
	finalError  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[string]*models.ModelProfile)}
}

func (s *fakeStore) GetModelProfile(ctx context.Context, provider, model string) (*models.ModelProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[provider+"/"+model], nil
}

func (s *fakeStore) CreateAgentResponse(ctx context.Context, response *models.AgentResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response)
	return nil
}

func (s *fakeStore) CreateRAGCitation(ctx context.Context, citation *models.RAGCitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.citations = append(s.citations, citation)
	return nil
}

func (s *fakeStore) CreateTestPlan(ctx context.Context, plan *models.TestPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = append(s.plans, plan)
	return nil
}

func (s *fakeStore) CompleteAgentSession(ctx context.Context, sessionID, status, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalStatus = status
	s.finalError = errMsg
	return nil
}

type fakeClient struct {
	generate func(ctx context.Context, req llm.Request) (*llm.Response, error)
}

func (c *fakeClient) Provider() string { return "fake" }

func (c *fakeClient) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return c.generate(ctx, req)
}

type fakeClients struct {
	client llm.Client
}

func (f *fakeClients) Get(provider string) (llm.Client, error) {
	return f.client, nil
}

type fakeRetriever struct {
	passages []vectorstore.Passage
	err      error
}

func (r *fakeRetriever) Retrieve(ctx context.Context, query, documentID string) ([]vectorstore.Passage, error) {
	return r.passages, r.err
}

func testFixtures(mode string, agents ...models.Agent) (*models.AgentSession, *models.AgentSet, *models.DocumentVersion) {
	session := &models.AgentSession{ID: "sess-1", UserID: "user-1", AgentSetID: "set-1", DocumentVersionID: "ver-1"}
	set := &models.AgentSet{
		ID:   "set-1",
		Name: "Review",
		Stages: []models.AgentSetStage{
			{ID: "stage-1", AgentSetID: "set-1", Name: "Stage 1", Position: 0, Mode: mode, Agents: agents},
		},
	}
	version := &models.DocumentVersion{
		ID:         "ver-1",
		DocumentID: "doc-1",
		Version:    1,
		Content:    "# Scope\nAll vendors must comply with the policy.\n# Term\nThe contract runs for one year.",
	}
	return session, set, version
}

func testAgent(id, name string) models.Agent {
	return models.Agent{
		ID:             id,
		Name:           name,
		Role:           models.AgentRoleActor,
		Provider:       "fake",
		Model:          "fake-model",
		PromptTemplate: "{{heading}}\n{{section}}\n{{context}}",
		UseRetrieval:   false,
	}
}

func TestRunCompletesAndStoresPlan(t *testing.T) {
	store := newFakeStore()
	clients := &fakeClients{client: &fakeClient{
		generate: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			return &llm.Response{Text: "## Check vendor compliance\nCategory: obligations\nVerify the vendor list."}, nil
		},
	}}

	exec := NewExecutor(store, clients, nil, nil)
	session, set, version := testFixtures(models.ModeSequential, testAgent("a1", "Analyst"))

	err := exec.Run(context.Background(), session, set, version)
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, store.finalStatus)
	require.Len(t, store.plans, 1)
	assert.NotEmpty(t, store.plans[0].Cards)
	assert.Equal(t, "sess-1", store.plans[0].SessionID)

	// One response per agent per section (two sections in the fixture).
	assert.Len(t, store.responses, 2)
	for _, resp := range store.responses {
		assert.Empty(t, resp.Error)
		assert.NotEmpty(t, resp.Content)
	}
}

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	store := newFakeStore()
	var calls atomic.Int32
	clients := &fakeClients{client: &fakeClient{
		generate: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			if calls.Add(1)%2 == 0 {
				return nil, errors.New("model overloaded")
			}
			return &llm.Response{Text: "## Item\nBody"}, nil
		},
	}}

	exec := NewExecutor(store, clients, nil, nil)
	session, set, version := testFixtures(models.ModeSequential, testAgent("a1", "Analyst"))

	err := exec.Run(context.Background(), session, set, version)
	require.NoError(t, err)

	assert.Equal(t, models.SessionCompleted, store.finalStatus)

	var failed, succeeded int
	for _, resp := range store.responses {
		if resp.Error != "" {
			failed++
		} else {
			succeeded++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, succeeded)
}

func TestRunFailsWhenStageHasNoSuccess(t *testing.T) {
	store := newFakeStore()
	clients := &fakeClients{client: &fakeClient{
		generate: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			return nil, errors.New("provider down")
		},
	}}

	exec := NewExecutor(store, clients, nil, nil)
	session, set, version := testFixtures(models.ModeParallel, testAgent("a1", "Analyst"))

	err := exec.Run(context.Background(), session, set, version)
	require.Error(t, err)

	assert.Equal(t, models.SessionFailed, store.finalStatus)
	assert.Contains(t, store.finalError, "no successful output")
	assert.Empty(t, store.plans)
}

func TestRunFailsWithoutStages(t *testing.T) {
	store := newFakeStore()
	exec := NewExecutor(store, &fakeClients{client: &fakeClient{}}, nil, nil)

	session := &models.AgentSession{ID: "sess-1"}
	set := &models.AgentSet{ID: "set-1"}
	version := &models.DocumentVersion{ID: "ver-1", Content: "text"}

	err := exec.Run(context.Background(), session, set, version)
	require.Error(t, err)
	assert.Equal(t, models.SessionFailed, store.finalStatus)
}

func TestRunFailsOnEmptyDocument(t *testing.T) {
	store := newFakeStore()
	exec := NewExecutor(store, &fakeClients{client: &fakeClient{}}, nil, nil)

	session, set, version := testFixtures(models.ModeSequential, testAgent("a1", "Analyst"))
	version.Content = "   \n  \n"

	err := exec.Run(context.Background(), session, set, version)
	require.Error(t, err)
	assert.Equal(t, models.SessionFailed, store.finalStatus)
	assert.Contains(t, store.finalError, "no content")
}

func TestRunCancelledBeforeFirstStage(t *testing.T) {
	store := newFakeStore()
	exec := NewExecutor(store, &fakeClients{client: &fakeClient{}}, nil, nil)

	session, set, version := testFixtures(models.ModeSequential, testAgent("a1", "Analyst"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := exec.Run(ctx, session, set, version)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.SessionCancelled, store.finalStatus)
}

func TestRunCancelledMidStage(t *testing.T) {
	store := newFakeStore()

	ctx, cancel := context.WithCancel(context.Background())
	clients := &fakeClients{client: &fakeClient{
		generate: func(callCtx context.Context, req llm.Request) (*llm.Response, error) {
			cancel()
			<-callCtx.Done()
			return nil, callCtx.Err()
		},
	}}

	exec := NewExecutor(store, clients, nil, nil)
	session, set, version := testFixtures(models.ModeParallel, testAgent("a1", "Analyst"))

	err := exec.Run(ctx, session, set, version)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.SessionCancelled, store.finalStatus)
	assert.Empty(t, store.plans)
}

func TestBatchedModeLimitsConcurrency(t *testing.T) {
	store := newFakeStore()
	store.profiles["fake/fake-model"] = &models.ModelProfile{
		TimeoutSeconds: 10,
		MaxTokens:      512,
		ChunkStrategy:  models.ChunkPerSection,
		BatchSize:      1,
	}

	var inFlight, maxInFlight atomic.Int32
	clients := &fakeClients{client: &fakeClient{
		generate: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			cur := inFlight.Add(1)
			for {
				prev := maxInFlight.Load()
				if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return &llm.Response{Text: "## Item\nBody"}, nil
		},
	}}

	exec := NewExecutor(store, clients, nil, nil)
	session, set, version := testFixtures(models.ModeBatched,
		testAgent("a1", "Analyst"), testAgent("a2", "Second Analyst"))

	err := exec.Run(context.Background(), session, set, version)
	require.NoError(t, err)
	assert.LessOrEqual(t, maxInFlight.Load(), int32(1))
}

func TestRetrievalFailureDoesNotFailRun(t *testing.T) {
	store := newFakeStore()
	clients := &fakeClients{client: &fakeClient{
		generate: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			return &llm.Response{Text: "## Item\nBody"}, nil
		},
	}}
	retriever := &fakeRetriever{err: errors.New("vector store down")}

	exec := NewExecutor(store, clients, retriever, nil)
	agent := testAgent("a1", "Analyst")
	agent.UseRetrieval = true
	session, set, version := testFixtures(models.ModeSequential, agent)

	err := exec.Run(context.Background(), session, set, version)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, store.finalStatus)
	assert.Empty(t, store.citations)
}

func TestSuccessfulRetrievalRecordsCitations(t *testing.T) {
	store := newFakeStore()
	clients := &fakeClients{client: &fakeClient{
		generate: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			return &llm.Response{Text: "## Item\nBody"}, nil
		},
	}}
	retriever := &fakeRetriever{passages: []vectorstore.Passage{
		{DocumentID: "doc-1", ChunkIndex: 0, Excerpt: "All vendors must comply.", Score: 0.92},
	}}

	exec := NewExecutor(store, clients, retriever, nil)
	agent := testAgent("a1", "Analyst")
	agent.UseRetrieval = true
	session, set, version := testFixtures(models.ModeSequential, agent)

	err := exec.Run(context.Background(), session, set, version)
	require.NoError(t, err)

	// One citation per successful invocation (two sections).
	require.Len(t, store.citations, 2)
	for _, cit := range store.citations {
		assert.Equal(t, "doc-1", cit.DocumentID)
		assert.NotEmpty(t, cit.ResponseID)
	}
}

func TestEmptyProviderResponseIsFailure(t *testing.T) {
	store := newFakeStore()
	clients := &fakeClients{client: &fakeClient{
		generate: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
			return &llm.Response{Text: "   "}, nil
		},
	}}

	exec := NewExecutor(store, clients, nil, nil)
	session, set, version := testFixtures(models.ModeSequential, testAgent("a1", "Analyst"))

	err := exec.Run(context.Background(), session, set, version)
	require.Error(t, err)
	assert.Equal(t, models.SessionFailed, store.finalStatus)
}

func TestTruncateCutsOnRuneBoundary(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcd", 2))

	// Multibyte input must never be split mid-rune.
	got := truncate("§§§§", 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "§§", got)

	assert.Equal(t, "", truncate("日本語", 2))
}

func TestSectionsForStrategies(t *testing.T) {
	content := "# One\nfirst section text\n# Two\nsecond section text"

	perSection := SectionsFor(content, &models.ModelProfile{ChunkStrategy: models.ChunkPerSection})
	assert.Len(t, perSection, 2)

	merged := SectionsFor(content, &models.ModelProfile{ChunkStrategy: models.ChunkMergeSmall, ChunkWindow: 10000})
	assert.Len(t, merged, 1)

	fixed := SectionsFor(content, &models.ModelProfile{ChunkStrategy: models.ChunkFixedWindow, ChunkWindow: 30})
	assert.Greater(t, len(fixed), 1)

	// nil profile falls back to per-section splitting
	assert.Len(t, SectionsFor(content, nil), 2)
}
