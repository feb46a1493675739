package identity

import (
	"context"
	"fmt"

	"github.com/go-chi/jwtauth"

	"github.com/meridianworks/media-gateway/pkg/mediagateway"
)

// JWT verifies locally-issued HS256 session tokens. It serves deployments
// where the dashboard terminates authentication itself instead of calling
// out to an identity provider; the gateway's call sites are unchanged.
type JWT struct {
	auth *jwtauth.JWTAuth
}

// NewJWT creates a verifier for tokens signed with the given secret.
func NewJWT(secret string) (*JWT, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt signing secret is required")
	}
	return &JWT{auth: jwtauth.New("HS256", []byte(secret), nil)}, nil
}

// Verify validates the token's signature and registered claims and returns
// the identity named by its subject claim.
func (j *JWT) Verify(ctx context.Context, token string) (*mediagateway.Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing bearer token", mediagateway.ErrUnauthorized)
	}

	tok, err := jwtauth.VerifyToken(j.auth, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mediagateway.ErrUnauthorized, err)
	}

	subject := tok.Subject()
	if subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", mediagateway.ErrUnauthorized)
	}

	return &mediagateway.Identity{Subject: subject, Provider: "jwt"}, nil
}
