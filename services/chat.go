package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lexflow/backend/llm"
	"github.com/lexflow/backend/models"
	"github.com/lexflow/backend/repository"
	"github.com/lexflow/backend/vectorstore"
)

const chatSystemPrompt = `You are a compliance analysis assistant. Answer the analyst's
questions about their documents and pipeline runs. Ground your answers in the
reference passages when they are provided and say so when they are not
sufficient. Be concise and precise.`

// ChatService answers analyst questions, augmenting prompts with recent
// conversation turns and retrieved document passages.
type ChatService struct {
	chatRepo  *repository.ChatRepository
	repo      *repository.GORMRepository
	registry  *llm.Registry
	retriever *vectorstore.Retriever
	provider  string
	model     string
}

func NewChatService(chatRepo *repository.ChatRepository, repo *repository.GORMRepository, registry *llm.Registry, retriever *vectorstore.Retriever, provider, model string) *ChatService {
	return &ChatService{
		chatRepo:  chatRepo,
		repo:      repo,
		registry:  registry,
		retriever: retriever,
		provider:  provider,
		model:     model,
	}
}

// Ask records the user's question, generates an answer and records it as the
// assistant turn. When the question is scoped to a session, retrieval is
// narrowed to that session's document.
func (s *ChatService) Ask(ctx context.Context, user *models.User, sessionID *string, question string) (*models.ChatHistory, error) {
	if strings.TrimSpace(question) == "" {
		return nil, NewValidationError("question must not be empty")
	}

	documentID := ""
	if sessionID != nil && *sessionID != "" {
		session, err := s.repo.GetAgentSession(ctx, *sessionID)
		if err != nil {
			return nil, err
		}
		if session == nil || session.UserID != user.ID {
			return nil, NewNotFoundError("session", *sessionID)
		}
		version, err := s.repo.GetDocumentVersion(ctx, session.DocumentVersionID)
		if err != nil {
			return nil, err
		}
		if version != nil {
			documentID = version.DocumentID
		}
	}

	userTurn := &models.ChatHistory{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		SessionID: sessionID,
		Role:      "user",
		Content:   question,
	}
	if err := s.chatRepo.SaveTurn(ctx, userTurn); err != nil {
		return nil, err
	}

	recent, err := s.chatRepo.GetRecentContext(ctx, user.ID, sessionID, 10)
	if err != nil {
		return nil, err
	}

	var passages []vectorstore.Passage
	if s.retriever != nil {
		retrieved, retErr := s.retriever.Retrieve(ctx, question, documentID)
		if retErr == nil {
			passages = retrieved
		}
	}

	answer, err := s.generate(ctx, question, recent, passages)
	if err != nil {
		return nil, NewExternalServiceError(s.provider, err)
	}

	assistantTurn := &models.ChatHistory{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		SessionID: sessionID,
		Role:      "assistant",
		Content:   answer,
	}
	if err := s.chatRepo.SaveTurn(ctx, assistantTurn); err != nil {
		return nil, err
	}

	return assistantTurn, nil
}

func (s *ChatService) generate(ctx context.Context, question string, recent []models.ChatHistory, passages []vectorstore.Passage) (string, error) {
	client, err := s.registry.Get(s.provider)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if len(passages) > 0 {
		b.WriteString("Reference passages:\n")
		for _, p := range passages {
			fmt.Fprintf(&b, "- [chunk %d, score %.3f] %s\n", p.ChunkIndex, p.Score, p.Excerpt)
		}
		b.WriteString("\n")
	}
	if len(recent) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range recent {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)

	callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := client.Generate(callCtx, llm.Request{
		Model:        s.model,
		SystemPrompt: chatSystemPrompt,
		Prompt:       b.String(),
		Temperature:  0.3,
		MaxTokens:    2048,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("provider returned empty response")
	}
	return resp.Text, nil
}
