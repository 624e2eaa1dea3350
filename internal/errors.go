package internal

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrSendInProgress is returned when a send is attempted while another
	// send for the same session is still in flight.
	ErrSendInProgress = errors.New("a message is already being sent")

	// ErrEmptySession marks a fetched session history with zero messages.
	ErrEmptySession = errors.New("session has no messages")

	// ErrResearchUnavailable is returned when research mode is requested
	// but no research runtime is configured.
	ErrResearchUnavailable = errors.New("research agent is not available")

	// ErrInvalidCacheType is returned for an unknown cache driver name.
	ErrInvalidCacheType = errors.New("invalid cache type")

	// ErrInvalidCacheConfig is returned when a cache driver is missing a
	// required option.
	ErrInvalidCacheConfig = errors.New("invalid cache configuration")
)

// TransportError represents errors talking to the backend API.
type TransportError struct {
	Path string
	Op   string // "get", "post", "patch", "delete"
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError represents errors decoding a payload.
type ParseError struct {
	Source string // "history", "stream", "archive", "notification"
	Key    string // session id, storage key, or event type
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s] %s: %v", e.Source, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// HistoryError represents errors loading a session's history.
type HistoryError struct {
	SessionID string
	Err       error
}

func (e *HistoryError) Error() string {
	return fmt.Sprintf("history error [%s]: %v", e.SessionID, e.Err)
}

func (e *HistoryError) Unwrap() error {
	return e.Err
}

// ArchiveError represents errors accessing the local session archive.
type ArchiveError struct {
	Op  string // "open", "read", "write", "delete"
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive error: %s: %v", e.Op, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export.
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
