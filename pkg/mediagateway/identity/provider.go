// Package identity implements bearer-token verification for the media
// gateway. The Provider verifier resolves tokens against an external
// identity provider; JWT verifies locally-issued session tokens; Static
// serves tests. Every failure mode collapses to mediagateway.ErrUnauthorized
// so validation internals never leak to callers.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/meridianworks/media-gateway/pkg/mediagateway"
)

// DefaultTimeout bounds one token resolution call.
const DefaultTimeout = 5 * time.Second

// Provider verifies bearer tokens against an external identity provider's
// token resolution endpoint.
type Provider struct {
	endpoint string
	client   *http.Client
}

// ProviderOption is a functional option for configuring a Provider
type ProviderOption func(*Provider)

// WithHTTPClient overrides the HTTP client used for resolution calls. The
// client must have a bounded timeout.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.client = client
	}
}

// NewProvider creates a verifier that resolves tokens at the given endpoint.
// The endpoint is the provider's "resolve token" URL; the bearer token is
// forwarded in the Authorization header and the provider answers with the
// subject it belongs to.
func NewProvider(endpoint string, opts ...ProviderOption) (*Provider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("identity provider endpoint is required")
	}

	p := &Provider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// resolveResponse is the subset of the provider's response the gateway reads.
type resolveResponse struct {
	Subject string `json:"sub"`
	UserID  string `json:"user_id"`
}

// Verify resolves the token with one call to the provider. A missing token,
// an unreachable provider, a non-200 answer, and an answer without a subject
// all map to ErrUnauthorized.
func (p *Provider) Verify(ctx context.Context, token string) (*mediagateway.Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", mediagateway.ErrUnauthorized)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mediagateway.ErrUnauthorized, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Warn("Identity provider unreachable", "err", err)
		return nil, fmt.Errorf("%w: identity provider unreachable", mediagateway.ErrUnauthorized)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider rejected token", mediagateway.ErrUnauthorized)
	}

	var body resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed provider response", mediagateway.ErrUnauthorized)
	}

	subject := body.Subject
	if subject == "" {
		subject = body.UserID
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: provider returned no subject", mediagateway.ErrUnauthorized)
	}

	return &mediagateway.Identity{Subject: subject, Provider: "provider"}, nil
}
