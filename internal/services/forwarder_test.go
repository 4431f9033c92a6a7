package services_test

import (
	"context"
	"errors"
	"testing"

	"foodorder/internal/apperr"
	"foodorder/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationForwarder_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("missing or malformed header", func(t *testing.T) {
		verifier := new(MockIdentityVerifier)
		fwd := services.NewAuthorizationForwarder(verifier, fastPolicy())

		for _, header := range []string{"", "   ", "token-only", "Basic dXNlcjpwYXNz", "Bearer "} {
			_, err := fwd.Resolve(ctx, header)
			assert.True(t, apperr.Is(err, apperr.KindUnauthenticated), "header %q", header)
		}
		verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
	})

	t.Run("token forwarded verbatim", func(t *testing.T) {
		verifier := new(MockIdentityVerifier)
		fwd := services.NewAuthorizationForwarder(verifier, fastPolicy())
		verifier.On("Verify", mock.Anything, "opaque.token.value").
			Return(services.Identity{Valid: true, UserID: "u1", Roles: []string{"customer"}}, nil).Once()

		p, err := fwd.Resolve(ctx, "Bearer opaque.token.value")
		require.NoError(t, err)
		assert.Equal(t, "u1", p.UserID)
		assert.Equal(t, []string{"customer"}, p.Roles)
		assert.Equal(t, "Bearer opaque.token.value", p.Credential)
		verifier.AssertExpectations(t)
	})

	t.Run("verifier rejection", func(t *testing.T) {
		verifier := new(MockIdentityVerifier)
		fwd := services.NewAuthorizationForwarder(verifier, fastPolicy())
		verifier.On("Verify", mock.Anything, "expired").Return(services.Identity{Valid: false}, nil).Once()

		_, err := fwd.Resolve(ctx, "Bearer expired")
		assert.True(t, apperr.Is(err, apperr.KindInvalidCredential))
	})

	t.Run("verifier outage is retried once", func(t *testing.T) {
		verifier := new(MockIdentityVerifier)
		fwd := services.NewAuthorizationForwarder(verifier, fastPolicy())
		verifier.On("Verify", mock.Anything, "tok").Return(services.Identity{}, errors.New("connection refused")).Twice()

		_, err := fwd.Resolve(ctx, "Bearer tok")
		assert.True(t, apperr.Is(err, apperr.KindUpstreamUnavailable))
		verifier.AssertNumberOfCalls(t, "Verify", 2)
	})

	t.Run("verifier recovers on retry", func(t *testing.T) {
		verifier := new(MockIdentityVerifier)
		fwd := services.NewAuthorizationForwarder(verifier, fastPolicy())
		verifier.On("Verify", mock.Anything, "tok").Return(services.Identity{}, errors.New("timeout")).Once()
		verifier.On("Verify", mock.Anything, "tok").Return(services.Identity{Valid: true, UserID: "u2"}, nil).Once()

		p, err := fwd.Resolve(ctx, "Bearer tok")
		require.NoError(t, err)
		assert.Equal(t, "u2", p.UserID)
	})
}
