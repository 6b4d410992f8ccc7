package services

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lexflow/backend/repository"
)

type ChatEndpoints struct {
	chatRepo *repository.ChatRepository
	chat     *ChatService
}

type SendChatRequest struct {
	SessionID *string `json:"session_id"`
	Content   string  `json:"content"`
}

func NewChatEndpoints(chatRepo *repository.ChatRepository, chat *ChatService) *ChatEndpoints {
	return &ChatEndpoints{
		chatRepo: chatRepo,
		chat:     chat,
	}
}

func (e *ChatEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Post("/messages", e.SendMessageHandler)
		r.Get("/history", e.GetHistoryHandler)
		r.Get("/stats", e.GetStatsHandler)
		r.Delete("/history", e.DeleteHistoryHandler)
	})
}

func (e *ChatEndpoints) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	var req SendChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	answer, err := e.chat.Ask(r.Context(), user, req.SessionID, req.Content)
	if err != nil {
		slog.Error("Chat request failed", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"reply": answer,
	})
}

func (e *ChatEndpoints) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	var sessionID *string
	if raw := r.URL.Query().Get("session_id"); raw != "" {
		sessionID = &raw
	}

	history, err := e.chatRepo.GetHistory(r.Context(), user.ID, sessionID, limit)
	if err != nil {
		slog.Error("Failed to get chat history", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"history": history,
		"count":   len(history),
	})
}

func (e *ChatEndpoints) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	stats, err := e.chatRepo.GetUserStats(r.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to get chat stats", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"stats": stats,
	})
}

func (e *ChatEndpoints) DeleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	if err := e.chatRepo.DeleteUserHistory(r.Context(), user.ID); err != nil {
		slog.Error("Failed to delete chat history", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Chat history deleted",
	})

	slog.Info("Chat history deleted", "user_id", user.ID)
}
