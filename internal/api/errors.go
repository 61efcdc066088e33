package api

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when a response does not match the envelope or DTO
	ErrShapeMismatch = errors.New("api: response shape mismatch")
	// ErrNotConfigured is returned when no base URL is set
	ErrNotConfigured = errors.New("api: base url not configured")
	// ErrUnknownKind is returned by FetchEntities for unsupported entity kinds
	ErrUnknownKind = errors.New("api: unknown entity kind")
	// ErrUnknownCommand is returned by ControlPrinter for unsupported commands
	ErrUnknownCommand = errors.New("api: unknown printer command")
)

// APIError is a non-2xx response from the backend
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: status %d: %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}
