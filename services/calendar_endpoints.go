package services

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lexflow/backend/models"
	"github.com/lexflow/backend/repository"
)

type CalendarEndpoints struct {
	repo *repository.GORMRepository
}

type CalendarEventRequest struct {
	Title    string    `json:"title"`
	Notes    string    `json:"notes"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	AllDay   bool      `json:"all_day"`
}

func NewCalendarEndpoints(repo *repository.GORMRepository) *CalendarEndpoints {
	return &CalendarEndpoints{
		repo: repo,
	}
}

func (e *CalendarEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/calendar", func(r chi.Router) {
		r.Post("/events", e.CreateEventHandler)
		r.Get("/events", e.GetEventsHandler)
		r.Get("/events/{id}", e.GetEventHandler)
		r.Put("/events/{id}", e.UpdateEventHandler)
		r.Delete("/events/{id}", e.DeleteEventHandler)
	})
}

func (req *CalendarEventRequest) validate() error {
	if req.Title == "" {
		return NewValidationError("title is required")
	}
	if req.StartsAt.IsZero() || req.EndsAt.IsZero() {
		return NewValidationError("starts_at and ends_at are required")
	}
	if req.EndsAt.Before(req.StartsAt) {
		return NewValidationError("ends_at must not be before starts_at")
	}
	return nil
}

func (e *CalendarEndpoints) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	var req CalendarEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		WriteError(w, err)
		return
	}

	event := models.CalendarEvent{
		ID:       uuid.New().String(),
		UserID:   user.ID,
		Title:    req.Title,
		Notes:    req.Notes,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		AllDay:   req.AllDay,
	}

	if err := e.repo.CreateCalendarEvent(r.Context(), &event); err != nil {
		slog.Error("Failed to create calendar event", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"event":   event,
		"message": "Event created successfully",
	})

	slog.Info("Calendar event created", "event_id", event.ID, "user_id", user.ID)
}

func (e *CalendarEndpoints) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	// Default range: the current month.
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteError(w, NewValidationError("from must be RFC3339"))
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			WriteError(w, NewValidationError("to must be RFC3339"))
			return
		}
		to = parsed
	}
	if to.Before(from) {
		WriteError(w, NewValidationError("to must not be before from"))
		return
	}

	events, err := e.repo.GetCalendarEvents(r.Context(), user.ID, from, to)
	if err != nil {
		slog.Error("Failed to get calendar events", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func (e *CalendarEndpoints) GetEventHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	eventID := chi.URLParam(r, "id")

	event, err := e.repo.GetCalendarEvent(r.Context(), eventID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if event == nil {
		WriteError(w, NewNotFoundError("calendar event", eventID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"event": event,
	})
}

func (e *CalendarEndpoints) UpdateEventHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	eventID := chi.URLParam(r, "id")

	event, err := e.repo.GetCalendarEvent(r.Context(), eventID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if event == nil {
		WriteError(w, NewNotFoundError("calendar event", eventID))
		return
	}

	var req CalendarEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		WriteError(w, err)
		return
	}

	event.Title = req.Title
	event.Notes = req.Notes
	event.StartsAt = req.StartsAt
	event.EndsAt = req.EndsAt
	event.AllDay = req.AllDay

	if err := e.repo.UpdateCalendarEvent(r.Context(), event); err != nil {
		slog.Error("Failed to update calendar event", "error", err, "event_id", eventID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"event":   event,
		"message": "Event updated successfully",
	})
}

func (e *CalendarEndpoints) DeleteEventHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	eventID := chi.URLParam(r, "id")

	event, err := e.repo.GetCalendarEvent(r.Context(), eventID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if event == nil {
		WriteError(w, NewNotFoundError("calendar event", eventID))
		return
	}

	if err := e.repo.DeleteCalendarEvent(r.Context(), eventID); err != nil {
		slog.Error("Failed to delete calendar event", "error", err, "event_id", eventID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Event deleted successfully",
	})

	slog.Info("Calendar event deleted", "event_id", eventID, "user_id", user.ID)
}
