package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lexflow/backend/repository"
	ws "github.com/lexflow/backend/websocket"
)

// WebSocketHandler routes chat frames arriving over a live connection to the
// chat service. Pipeline event subscriptions are handled inside the hub; this
// handler only sees the remaining message types.
type WebSocketHandler struct {
	chat *ChatService
	repo *repository.GORMRepository
}

func NewWebSocketHandler(chat *ChatService, repo *repository.GORMRepository) *WebSocketHandler {
	return &WebSocketHandler{
		chat: chat,
		repo: repo,
	}
}

// HandleMessage processes one frame from a client. Runs on its own goroutine
// per frame, so a slow LLM call never blocks the read pump.
func (h *WebSocketHandler) HandleMessage(client *ws.Client, messageBytes []byte) {
	var msg ws.Message
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		slog.Error("Failed to unmarshal websocket message", "error", err, "user_id", client.UserID)
		return
	}

	switch msg.Type {
	case "chat":
		h.handleChat(client, msg)
	default:
		slog.Warn("Unknown websocket message type", "type", msg.Type, "user_id", client.UserID)
	}
}

func (h *WebSocketHandler) handleChat(client *ws.Client, msg ws.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByID(ctx, client.UserID)
	if err != nil || user == nil {
		slog.Warn("Chat frame from unknown user", "user_id", client.UserID, "error", err)
		return
	}

	var sessionID *string
	if msg.SessionID != "" {
		sessionID = &msg.SessionID
	}

	answer, err := h.chat.Ask(ctx, user, sessionID, msg.Content)
	if err != nil {
		slog.Error("Websocket chat failed", "error", err, "user_id", client.UserID)
		h.send(client, ws.Message{Type: "error", Content: "Failed to answer, please retry"})
		return
	}

	h.send(client, ws.Message{
		Type:      "chat_reply",
		SessionID: msg.SessionID,
		Content:   answer.Content,
	})
}

// send delivers the reply to every connection the user has open, so a chat
// answer shows up in all of their tabs.
func (h *WebSocketHandler) send(client *ws.Client, msg ws.Message) {
	frame, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal websocket reply", "error", err, "user_id", client.UserID)
		return
	}

	client.Hub.SendToUser(client.UserID, frame)
}
