package repositories_test

import (
	"context"
	"testing"
	"time"

	"foodorder/internal/apperr"
	"foodorder/internal/models"
	"foodorder/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockOrderRepository_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMockOrderRepository()

	order := sampleOrder("u1", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, order))

	order.Items[0].Quantity = 99
	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Items[0].Quantity, "stored order does not alias the caller's slice")

	got.Items[0].Quantity = 50
	again, _ := repo.GetByID(ctx, order.ID)
	assert.Equal(t, 2, again.Items[0].Quantity)

	assert.True(t, apperr.Is(repo.Create(ctx, order), apperr.KindConflict))
}

func TestMockCartRepository_ActiveAndSweep(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMockCartRepository()

	old := &models.Cart{UserID: "u1", IsActive: false, LastUpdated: time.Now().Add(-time.Hour)}
	cur := &models.Cart{UserID: "u1", IsActive: true, LastUpdated: time.Now()}
	require.NoError(t, repo.Save(ctx, old))
	require.NoError(t, repo.Save(ctx, cur))

	got, err := repo.GetActive(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, cur.ID, got.ID)

	n, err := repo.DeleteStale(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, repo.Count())
}

func TestMockUserRepository_Unique(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMockUserRepository()
	require.NoError(t, repo.Create(ctx, &models.User{Username: "bob", Email: "bob@example.com"}))

	err := repo.Create(ctx, &models.User{Username: "bob", Email: "other@example.com"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = repo.GetByUsername(ctx, "carol")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
