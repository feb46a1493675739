package identity

import (
	"context"
	"fmt"

	"github.com/meridianworks/media-gateway/pkg/mediagateway"
)

// Static verifies tokens against a fixed token-to-subject map. Intended for
// tests and local development.
type Static struct {
	tokens map[string]string
}

// NewStatic creates a static verifier from a token-to-subject map.
func NewStatic(tokens map[string]string) *Static {
	m := make(map[string]string, len(tokens))
	for token, subject := range tokens {
		m[token] = subject
	}
	return &Static{tokens: m}
}

// Verify resolves the token against the static map.
func (s *Static) Verify(ctx context.Context, token string) (*mediagateway.Identity, error) {
	subject, ok := s.tokens[token]
	if !ok || subject == "" {
		return nil, fmt.Errorf("%w: unknown token", mediagateway.ErrUnauthorized)
	}
	return &mediagateway.Identity{Subject: subject, Provider: "static"}, nil
}
