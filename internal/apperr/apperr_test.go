package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"foodorder/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("add item: %w", apperr.ErrSingleRestaurantCart)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.True(t, errors.Is(err, apperr.ErrSingleRestaurantCart))
	assert.False(t, errors.Is(err, apperr.ErrEmptyCart))

	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("boom")))
}

func TestWrapKeepsExistingKind(t *testing.T) {
	inner := apperr.NotFound("order %s not found", "o-1")
	wrapped := apperr.Wrap(apperr.KindUpstreamUnavailable, "storage", inner)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(wrapped))

	raw := apperr.Wrap(apperr.KindUpstreamUnavailable, "storage", errors.New("dial tcp"))
	assert.Equal(t, apperr.KindUpstreamUnavailable, apperr.KindOf(raw))
	assert.Contains(t, raw.Error(), "dial tcp")
	assert.Nil(t, apperr.Wrap(apperr.KindInternal, "x", nil))
}

func TestInvalidTransitionMessage(t *testing.T) {
	err := apperr.InvalidTransition("DELIVERED", "PREPARING")
	assert.Equal(t, "invalid transition from DELIVERED to PREPARING", err.Error())
	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}

func TestRetryable(t *testing.T) {
	var ae *apperr.Error
	assert.True(t, errors.As(apperr.Upstream("catalog", errors.New("timeout")), &ae))
	assert.True(t, ae.Retryable())
	assert.True(t, errors.As(apperr.Forbidden("no"), &ae))
	assert.False(t, ae.Retryable())
}
