// Package signing computes short-lived HMAC-signed upload grants. A grant
// lets the browser upload directly into one destination folder of the remote
// media store; the store validates the signature against the same account
// secret, which never leaves the server.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/meridianworks/media-gateway/pkg/mediagateway"
)

// Issuer generates and validates HMAC-signed upload grants
type Issuer struct {
	secret    []byte
	accountID string
	now       func() time.Time
}

// Option is a functional option for configuring an Issuer
type Option func(*Issuer)

// WithClock overrides the time source used for grant timestamps. Intended
// for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// New creates a new Issuer for the given account. The secret should be at
// least 32 bytes.
func New(secret, accountID string, opts ...Option) *Issuer {
	i := &Issuer{
		secret:    []byte(secret),
		accountID: accountID,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue computes a grant binding the current timestamp to the destination
// folder. It fails with ErrNotConfigured when the secret or account
// identifier is absent; a grant is never issued from a permissive default.
func (i *Issuer) Issue(folder string) (*mediagateway.UploadGrant, error) {
	if len(i.secret) == 0 {
		return nil, fmt.Errorf("%w: upload signing secret is not set", mediagateway.ErrNotConfigured)
	}
	if i.accountID == "" {
		return nil, fmt.Errorf("%w: storage account identifier is not set", mediagateway.ErrNotConfigured)
	}
	if folder == "" {
		return nil, fmt.Errorf("%w: destination folder is required", mediagateway.ErrInvalidPath)
	}

	timestamp := i.now().Unix()
	signature := i.sign(payload(folder, timestamp))

	return &mediagateway.UploadGrant{
		Signature: signature,
		Timestamp: timestamp,
		Folder:    folder,
		AccountID: i.accountID,
	}, nil
}

// Validate checks a grant's signature and freshness against maxAge. Used in
// tests and by store backends that accept gateway-signed uploads.
func (i *Issuer) Validate(grant *mediagateway.UploadGrant, maxAge time.Duration) error {
	if len(i.secret) == 0 {
		return fmt.Errorf("%w: upload signing secret is not set", mediagateway.ErrNotConfigured)
	}

	issued := time.Unix(grant.Timestamp, 0)
	if i.now().Sub(issued) > maxAge {
		return fmt.Errorf("%w: grant has expired", mediagateway.ErrUnauthorized)
	}

	expected := i.sign(payload(grant.Folder, grant.Timestamp))

	// Constant-time comparison to prevent timing attacks.
	if !hmac.Equal([]byte(grant.Signature), []byte(expected)) {
		return fmt.Errorf("%w: invalid grant signature", mediagateway.ErrUnauthorized)
	}
	return nil
}

// payload builds the canonical string covered by the signature.
// Format: folder=FOLDER&timestamp=UNIX
func payload(folder string, timestamp int64) string {
	return fmt.Sprintf("folder=%s&timestamp=%d", folder, timestamp)
}

// sign generates the HMAC-SHA256 signature for the given payload
func (i *Issuer) sign(payload string) string {
	h := hmac.New(sha256.New, i.secret)
	h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}
