package services

import (
	"context"
	"errors"
	"strings"

	"foodorder/internal/apperr"
	"foodorder/internal/models"
)

// AuthorizationForwarder turns an Authorization header into a principal. The token is
// never interpreted here, only handed to the identity collaborator.
type AuthorizationForwarder struct {
	verifier IdentityVerifier
	policy   UpstreamPolicy
}

// NewAuthorizationForwarder creates a new AuthorizationForwarder.
func NewAuthorizationForwarder(verifier IdentityVerifier, policy UpstreamPolicy) *AuthorizationForwarder {
	return &AuthorizationForwarder{verifier: verifier, policy: policy}
}

// Resolve verifies the header's bearer token. The returned principal carries the header
// verbatim for forwarding.
func (f *AuthorizationForwarder) Resolve(ctx context.Context, authorization string) (models.Principal, error) {
	header := strings.TrimSpace(authorization)
	if header == "" {
		return models.Principal{}, apperr.Unauthenticated("authorization header is required")
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return models.Principal{}, apperr.Unauthenticated("authorization header format must be 'Bearer <token>'")
	}
	token := strings.TrimSpace(parts[1])

	var identity Identity
	err := f.policy.read(ctx, "identity verifier", func(ctx context.Context) error {
		var verr error
		identity, verr = f.verifier.Verify(ctx, token)
		return verr
	})
	if err != nil {
		return models.Principal{}, err
	}
	if !identity.Valid || identity.UserID == "" {
		return models.Principal{}, apperr.InvalidCredential(errors.New("token rejected by identity verifier"))
	}

	return models.Principal{
		UserID:     identity.UserID,
		Roles:      identity.Roles,
		Credential: header,
	}, nil
}
