package mediagateway

import (
	"context"
	"time"
)

// MediaStore defines the interface for remote media store backends.
//
// Implementations translate their provider's error shapes into the package
// error taxonomy at the call boundary: a missing resource is ErrNotFound, a
// refused delete of a non-empty folder is ErrFolderNotEmpty, a rejected
// folder name is ErrInvalidPath, and transport or 5xx failures are
// ErrUpstream. Raw provider errors never cross this interface.
type MediaStore interface {
	// ListFolders returns the folders known to the store.
	ListFolders(ctx context.Context) ([]Folder, error)

	// CreateFolder creates a folder at the given path.
	CreateFolder(ctx context.Context, path string) (*Folder, error)

	// RenameFolder moves a folder and everything under it to a new path.
	RenameFolder(ctx context.Context, fromPath, toPath string) (*Folder, error)

	// DeleteFolder removes an empty folder.
	DeleteFolder(ctx context.Context, path string) error

	// DeleteAsset removes a single asset by its public identifier.
	DeleteAsset(ctx context.Context, assetID string) error
}

// Verifier validates a bearer token and resolves the caller's identity.
// Implementations return an error wrapping ErrUnauthorized for every failure
// mode (malformed, expired, provider unreachable); the distinction is not
// surfaced to callers.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// RateLimiter answers allow/deny for a key over a fixed window. Checks
// against the same key are serialized; distinct keys do not contend.
type RateLimiter interface {
	Check(key string, limit int, window time.Duration) RateDecision
}

// GrantIssuer computes signed upload grants. Issue fails with
// ErrNotConfigured when the signing secret or account identifier is absent.
type GrantIssuer interface {
	Issue(folder string) (*UploadGrant, error)
}
