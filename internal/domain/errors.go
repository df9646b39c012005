package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderNotFound indicates no registered provider matches a name or model.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrEngineUnavailable indicates the host speech engine could not be started.
	ErrEngineUnavailable = errors.New("speech engine unavailable")

	// ErrQueueClosed indicates the speech worker is no longer accepting jobs.
	ErrQueueClosed = errors.New("speech queue closed")

	// ErrEmptyText indicates a synthesis request without text.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidRole indicates a chat message whose role is not system, user or assistant.
	ErrInvalidRole = errors.New("invalid message role")
)

// UpstreamError is returned when the upstream chat service answers with a
// non-success status.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}
