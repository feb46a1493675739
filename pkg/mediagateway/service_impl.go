package mediagateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Default delete-asset rate limit policy.
const (
	DefaultDeleteAssetLimit  = 10
	DefaultDeleteAssetWindow = time.Minute
)

// DefaultUploadFolder receives uploads when an unauthenticated caller
// requests a grant without naming a destination.
const DefaultUploadFolder = "uploads"

// service implements the Service interface
type service struct {
	store    MediaStore
	verifier Verifier
	limiter  RateLimiter
	issuer   GrantIssuer

	deleteAssetLimit  int
	deleteAssetWindow time.Duration
	uploadFolder      string
}

// Option represents a functional option for configuring the gateway
type Option func(*service)

// WithStore sets the media store backend for the gateway
func WithStore(store MediaStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithVerifier sets the identity verifier for the gateway
func WithVerifier(v Verifier) Option {
	return func(s *service) {
		s.verifier = v
	}
}

// WithRateLimiter sets the rate limiter used for asset deletion. A nil
// limiter disables rate limiting; all checks are allowed.
func WithRateLimiter(l RateLimiter) Option {
	return func(s *service) {
		s.limiter = l
	}
}

// WithGrantIssuer sets the signed upload grant issuer
func WithGrantIssuer(i GrantIssuer) Option {
	return func(s *service) {
		s.issuer = i
	}
}

// WithDeleteAssetPolicy sets the per-identity rate limit for asset deletion
func WithDeleteAssetPolicy(limit int, window time.Duration) Option {
	return func(s *service) {
		s.deleteAssetLimit = limit
		s.deleteAssetWindow = window
	}
}

// WithDefaultUploadFolder sets the destination used for unauthenticated
// upload grant requests
func WithDefaultUploadFolder(folder string) Option {
	return func(s *service) {
		s.uploadFolder = folder
	}
}

// New creates a new gateway instance with the given options. A media store
// and a verifier are required: without a verifier every request would have
// to be refused, so the gateway declines to construct at all.
func New(options ...Option) (Service, error) {
	s := &service{
		deleteAssetLimit:  DefaultDeleteAssetLimit,
		deleteAssetWindow: DefaultDeleteAssetWindow,
		uploadFolder:      DefaultUploadFolder,
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("media store is required")
	}
	if s.verifier == nil {
		return nil, fmt.Errorf("identity verifier is required")
	}

	return s, nil
}

// Folder operations

func (s *service) ListFolders(ctx context.Context, req ListFoldersRequest) ([]Folder, error) {
	if _, err := s.authenticate(ctx, req.Token); err != nil {
		return nil, err
	}

	folders, err := s.store.ListFolders(detach(ctx))
	if err != nil {
		return nil, err
	}
	return folders, nil
}

func (s *service) CreateFolder(ctx context.Context, req CreateFolderRequest) (*Folder, error) {
	identity, err := s.authenticate(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	path, err := SanitizeFolderPath(req.FolderPath)
	if err != nil {
		return nil, err
	}

	folder, err := s.store.CreateFolder(detach(ctx), path)
	if err != nil {
		return nil, err
	}

	slog.Info("Folder created", "path", folder.Path, "subject", identity.Subject)
	return folder, nil
}

func (s *service) RenameFolder(ctx context.Context, req RenameFolderRequest) (*Folder, error) {
	identity, err := s.authenticate(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	from, err := SanitizeFolderPath(req.FromPath)
	if err != nil {
		return nil, err
	}
	to, err := SanitizeFolderPath(req.ToPath)
	if err != nil {
		return nil, err
	}

	folder, err := s.store.RenameFolder(detach(ctx), from, to)
	if err != nil {
		return nil, err
	}

	slog.Info("Folder renamed", "from", from, "to", folder.Path, "subject", identity.Subject)
	return folder, nil
}

func (s *service) DeleteFolder(ctx context.Context, req DeleteFolderRequest) error {
	identity, err := s.authenticate(ctx, req.Token)
	if err != nil {
		return err
	}

	path, err := SanitizeFolderPath(req.FolderPath)
	if err != nil {
		return err
	}

	err = s.store.DeleteFolder(detach(ctx), path)
	if err != nil {
		// A folder that is already gone satisfies the delete.
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	slog.Info("Folder deleted", "path", path, "subject", identity.Subject)
	return nil
}

// Asset operations

func (s *service) DeleteAsset(ctx context.Context, req DeleteAssetRequest) error {
	identity, err := s.authenticate(ctx, req.Token)
	if err != nil {
		return err
	}

	if s.limiter != nil {
		key := "delete-asset:" + identity.Subject
		decision := s.limiter.Check(key, s.deleteAssetLimit, s.deleteAssetWindow)
		if !decision.Allowed {
			return &RateLimitError{
				Key:        key,
				Limit:      s.deleteAssetLimit,
				RetryAfter: decision.RetryAfter,
			}
		}
	}

	id, err := SanitizeAssetID(req.PublicID)
	if err != nil {
		return err
	}

	err = s.store.DeleteAsset(detach(ctx), id)
	if err != nil {
		// Deletion is a set-membership operation; an asset that is
		// already gone satisfies it.
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	slog.Info("Asset deleted", "public_id", id, "subject", identity.Subject)
	return nil
}

// Signed upload grants

func (s *service) IssueUploadGrant(ctx context.Context, req UploadGrantRequest) (*UploadGrant, error) {
	if s.issuer == nil {
		return nil, fmt.Errorf("%w: upload signing secret is not set", ErrNotConfigured)
	}

	folder := s.uploadFolder
	if strings.TrimSpace(req.Token) != "" {
		if _, err := s.authenticate(ctx, req.Token); err != nil {
			return nil, err
		}
		if req.Folder != "" {
			folder = req.Folder
		}
	} else if req.Folder != "" && req.Folder != s.uploadFolder {
		// Unauthenticated callers may only upload into the default folder.
		return nil, fmt.Errorf("%w: destination folder requires authentication", ErrUnauthorized)
	}

	folder, err := SanitizeFolderPath(folder)
	if err != nil {
		return nil, err
	}

	return s.issuer.Issue(folder)
}

// authenticate resolves the caller's identity from a raw bearer token. A
// missing token fails immediately without touching the verifier.
func (s *service) authenticate(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}

	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if identity == nil || identity.Subject == "" {
		return nil, fmt.Errorf("%w: provider returned no subject", ErrUnauthorized)
	}
	return identity, nil
}

// detach keeps the request's values but drops its cancellation: an in-flight
// store call is allowed to complete even when the caller goes away, since
// the remote APIs are not cancellable.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
