package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lexflow/backend/models"
	"github.com/lexflow/backend/repository"
	"github.com/lexflow/backend/vectorstore"
)

type DocumentEndpoints struct {
	repo      *repository.GORMRepository
	retriever *vectorstore.Retriever
}

type CreateDocumentRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"` // optional initial version
}

type CreateVersionRequest struct {
	Content string `json:"content"`
	Note    string `json:"note"`
}

type UpdateTestCardRequest struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
	Position *int   `json:"position"`
}

func NewDocumentEndpoints(repo *repository.GORMRepository, retriever *vectorstore.Retriever) *DocumentEndpoints {
	return &DocumentEndpoints{
		repo:      repo,
		retriever: retriever,
	}
}

func (e *DocumentEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Post("/", e.CreateDocumentHandler)
		r.Get("/", e.GetDocumentsHandler)
		r.Get("/{id}", e.GetDocumentHandler)
		r.Delete("/{id}", e.DeleteDocumentHandler)
		r.Post("/{id}/versions", e.CreateVersionHandler)
		r.Get("/{id}/versions", e.GetVersionsHandler)
		r.Get("/{id}/versions/latest", e.GetLatestVersionHandler)
	})
	r.Get("/versions/{versionID}", e.GetVersionHandler)
	r.Get("/sessions/{sessionID}/test-plan", e.GetTestPlanHandler)
	r.Put("/test-cards/{cardID}", e.UpdateTestCardHandler)
}

func checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// createVersion stores a new immutable revision and refreshes the vector
// index for the document. Indexing failure does not fail the write; retrieval
// simply serves the previous index until the next version.
func (e *DocumentEndpoints) createVersion(r *http.Request, documentID, content, note string) (*models.DocumentVersion, error) {
	version := &models.DocumentVersion{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		Content:    content,
		Checksum:   checksum(content),
		Note:       note,
	}
	if err := e.repo.CreateDocumentVersion(r.Context(), version); err != nil {
		return nil, err
	}

	if e.retriever != nil {
		if _, err := e.retriever.Index(r.Context(), documentID, content); err != nil {
			slog.Warn("Failed to index document version", "document_id", documentID, "version", version.Version, "error", err)
		}
	}

	return version, nil
}

func (e *DocumentEndpoints) CreateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title == "" {
		WriteError(w, NewValidationError("title is required"))
		return
	}

	doc := models.Document{
		ID:       uuid.New().String(),
		UserID:   user.ID,
		Title:    req.Title,
		Category: req.Category,
	}

	if err := e.repo.CreateDocument(r.Context(), &doc); err != nil {
		slog.Error("Failed to create document", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	var version *models.DocumentVersion
	if req.Content != "" {
		v, err := e.createVersion(r, doc.ID, req.Content, "initial version")
		if err != nil {
			slog.Error("Failed to create initial version", "error", err, "document_id", doc.ID)
			WriteError(w, err)
			return
		}
		version = v
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"document": doc,
		"version":  version,
		"message":  "Document created successfully",
	})

	slog.Info("Document created", "document_id", doc.ID, "user_id", user.ID, "title", doc.Title)
}

func (e *DocumentEndpoints) GetDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	docs, err := e.repo.GetDocuments(r.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to get documents", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

func (e *DocumentEndpoints) GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	docID := chi.URLParam(r, "id")

	doc, err := e.repo.GetDocument(r.Context(), docID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if doc == nil {
		WriteError(w, NewNotFoundError("document", docID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"document": doc,
	})
}

func (e *DocumentEndpoints) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	docID := chi.URLParam(r, "id")

	doc, err := e.repo.GetDocument(r.Context(), docID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if doc == nil {
		WriteError(w, NewNotFoundError("document", docID))
		return
	}

	if err := e.repo.DeleteDocument(r.Context(), docID); err != nil {
		slog.Error("Failed to delete document", "error", err, "document_id", docID)
		WriteError(w, err)
		return
	}

	if e.retriever != nil {
		if err := e.retriever.Remove(r.Context(), docID); err != nil {
			slog.Warn("Failed to remove document from vector index", "document_id", docID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Document deleted successfully",
	})

	slog.Info("Document deleted", "document_id", docID, "user_id", user.ID)
}

func (e *DocumentEndpoints) CreateVersionHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	docID := chi.URLParam(r, "id")

	doc, err := e.repo.GetDocument(r.Context(), docID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if doc == nil {
		WriteError(w, NewNotFoundError("document", docID))
		return
	}

	var req CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Content == "" {
		WriteError(w, NewValidationError("content is required"))
		return
	}

	// Identical content to the latest version is a no-op worth rejecting.
	latest, err := e.repo.GetLatestDocumentVersion(r.Context(), docID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if latest != nil && latest.Checksum == checksum(req.Content) {
		WriteError(w, NewDuplicateError("document version", latest.Checksum))
		return
	}

	version, err := e.createVersion(r, docID, req.Content, req.Note)
	if err != nil {
		slog.Error("Failed to create document version", "error", err, "document_id", docID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"version": version,
		"message": "Version created successfully",
	})

	slog.Info("Document version created", "document_id", docID, "version", version.Version, "user_id", user.ID)
}

func (e *DocumentEndpoints) GetVersionsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	docID := chi.URLParam(r, "id")

	doc, err := e.repo.GetDocument(r.Context(), docID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if doc == nil {
		WriteError(w, NewNotFoundError("document", docID))
		return
	}

	versions, err := e.repo.GetDocumentVersions(r.Context(), docID)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"versions": versions,
		"count":    len(versions),
	})
}

func (e *DocumentEndpoints) GetLatestVersionHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	docID := chi.URLParam(r, "id")

	doc, err := e.repo.GetDocument(r.Context(), docID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if doc == nil {
		WriteError(w, NewNotFoundError("document", docID))
		return
	}

	version, err := e.repo.GetLatestDocumentVersion(r.Context(), docID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if version == nil {
		WriteError(w, NewNotFoundError("document version", "latest"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"version": version,
	})
}

func (e *DocumentEndpoints) GetVersionHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	versionID := chi.URLParam(r, "versionID")

	version, err := e.repo.GetDocumentVersion(r.Context(), versionID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if version == nil {
		WriteError(w, NewNotFoundError("document version", versionID))
		return
	}

	// Ownership check through the parent document.
	doc, err := e.repo.GetDocument(r.Context(), version.DocumentID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if doc == nil {
		WriteError(w, NewNotFoundError("document version", versionID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"version": version,
	})
}

func (e *DocumentEndpoints) GetTestPlanHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")

	session, err := e.repo.GetAgentSession(r.Context(), sessionID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if session == nil || session.UserID != user.ID {
		WriteError(w, NewNotFoundError("session", sessionID))
		return
	}

	plan, err := e.repo.GetTestPlanBySession(r.Context(), sessionID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if plan == nil {
		WriteError(w, NewNotFoundError("test plan", sessionID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"test_plan": plan,
	})
}

func (e *DocumentEndpoints) UpdateTestCardHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	cardID := chi.URLParam(r, "cardID")

	card, err := e.repo.GetTestCard(r.Context(), cardID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if card == nil {
		WriteError(w, NewNotFoundError("test card", cardID))
		return
	}

	var req UpdateTestCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title != "" {
		card.Title = req.Title
	}
	if req.Body != "" {
		card.Body = req.Body
	}
	if req.Category != "" {
		card.Category = req.Category
	}
	if req.Position != nil {
		card.Position = *req.Position
	}

	if err := e.repo.UpdateTestCard(r.Context(), card); err != nil {
		slog.Error("Failed to update test card", "error", err, "card_id", cardID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"card":    card,
		"message": "Test card updated successfully",
	})

	slog.Info("Test card updated", "card_id", cardID, "user_id", user.ID)
}
