package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Typed errors raised by services and mapped to HTTP status codes at the API
// boundary. Repositories return raw errors; services wrap them into one of
// these before they reach a handler.

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

type DuplicateError struct {
	Resource string
	Key      string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.Key)
}

func NewDuplicateError(resource, key string) *DuplicateError {
	return &DuplicateError{Resource: resource, Key: key}
}

// ExternalServiceError covers failures of collaborators the backend calls
// into: the vector store, LLM providers, the database.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

func NewExternalServiceError(service string, err error) *ExternalServiceError {
	return &ExternalServiceError{Service: service, Err: err}
}

type errorResponse struct {
	Error string `json:"error"`
}

// WriteError maps a typed error onto its HTTP status code and writes a JSON
// error body. Unrecognized errors become a 500 without leaking detail.
func WriteError(w http.ResponseWriter, err error) {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		duplicateErr  *DuplicateError
		externalErr   *ExternalServiceError
	)

	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		message = validationErr.Error()
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
		message = notFoundErr.Error()
	case errors.As(err, &duplicateErr):
		status = http.StatusConflict
		message = duplicateErr.Error()
	case errors.As(err, &externalErr):
		status = http.StatusBadGateway
		message = fmt.Sprintf("%s unavailable", externalErr.Service)
	default:
		slog.Error("Unhandled error at API boundary", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}
