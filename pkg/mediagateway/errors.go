package mediagateway

import (
	"errors"
	"fmt"
	"time"
)

// Error types
var (
	// ErrUnauthorized indicates a missing or invalid bearer token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidPath indicates a folder path or asset identifier that failed validation
	ErrInvalidPath = errors.New("invalid path")

	// ErrRateLimited indicates the caller exceeded its quota for the operation
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNotFound indicates the remote resource does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the remote store refused the operation due to its state
	ErrConflict = errors.New("conflict")

	// ErrFolderNotEmpty indicates a folder delete was refused because the folder still holds assets
	ErrFolderNotEmpty = fmt.Errorf("%w: folder is not empty", ErrConflict)

	// ErrUpstream indicates the remote call failed or timed out for reasons outside caller control
	ErrUpstream = errors.New("upstream provider failure")

	// ErrNotConfigured indicates a required secret or account identifier is absent.
	// Operations fail closed on this error; nothing reaches the remote store.
	ErrNotConfigured = errors.New("gateway is not configured")
)

// RateLimitError carries the retry timing for a denied request.
type RateLimitError struct {
	Key        string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d exceeded for %s, retry in %s", e.Limit, e.Key, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// StoreError represents a failure from a media store backend
type StoreError struct {
	Backend string
	Op      string
	Path    string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed for %q on backend %s: %v", e.Op, e.Path, e.Backend, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
