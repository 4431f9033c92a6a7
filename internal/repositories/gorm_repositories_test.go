package repositories_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"foodorder/internal/apperr"
	"foodorder/internal/models"
	"foodorder/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	return db
}

func sampleOrder(userID string, createdAt time.Time) *models.Order {
	return &models.Order{
		UserID:       userID,
		RestaurantID: "r1",
		Source:       models.OrderSource{Kind: models.SourceDirect},
		Items: []models.LineItem{
			{ItemID: "burger", Name: "Burger", UnitPrice: models.MustMoney("5.00", "USD"), Quantity: 2, RestaurantID: "r1"},
		},
		Pricing: models.PriceBreakdown{
			Subtotal:    models.MustMoney("10.00", "USD"),
			Tax:         models.MustMoney("1.00", "USD"),
			DeliveryFee: models.MustMoney("2.99", "USD"),
			Total:       models.MustMoney("13.99", "USD"),
		},
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
		StatusHistory: []models.StatusChange{{Status: models.StatusPending, At: createdAt}},
		CreatedAt:     createdAt,
	}
}

func TestGORMOrderRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMOrderRepository(openTestDB(t))

	order := sampleOrder("u1", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, order))
	require.NotEmpty(t, order.ID)

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "13.99", got.Pricing.Total.Amount.StringFixed(2))
	assert.Equal(t, "USD", got.Pricing.Total.Currency)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, models.SourceDirect, got.Source.Kind)

	got.Status = models.StatusConfirmed
	got.StatusHistory = append(got.StatusHistory, models.StatusChange{Status: models.StatusConfirmed, At: time.Now().UTC()})
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, again.Status)
	assert.Len(t, again.StatusHistory, 2)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestGORMOrderRepository_ListByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMOrderRepository(openTestDB(t))

	base := time.Now().UTC()
	older := sampleOrder("u1", base.Add(-time.Hour))
	newer := sampleOrder("u1", base)
	other := sampleOrder("u2", base)
	for _, o := range []*models.Order{older, newer, other} {
		require.NoError(t, repo.Create(ctx, o))
	}

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestGORMCartRepository(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMCartRepository(openTestDB(t))

	_, err := repo.GetActive(ctx, "u1")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	cart := &models.Cart{
		UserID:       "u1",
		RestaurantID: "r1",
		Items:        []models.LineItem{{ItemID: "fries", UnitPrice: models.MustMoney("2.50", "USD"), Quantity: 1, RestaurantID: "r1"}},
		LastUpdated:  time.Now().UTC(),
		IsActive:     true,
	}
	require.NoError(t, repo.Save(ctx, cart))

	got, err := repo.GetActive(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, got.ID)
	assert.Equal(t, "2.50", got.Items[0].UnitPrice.Amount.StringFixed(2))

	got.IsActive = false
	require.NoError(t, repo.Save(ctx, got))
	_, err = repo.GetActive(ctx, "u1")
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "inactive carts are not returned")

	stale := &models.Cart{UserID: "u2", LastUpdated: time.Now().UTC().Add(-48 * time.Hour), IsActive: true}
	require.NoError(t, repo.Save(ctx, stale))

	n, err := repo.DeleteStale(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGORMMenuItemRepository(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMMenuItemRepository(openTestDB(t))

	item := &models.MenuItem{RestaurantID: "r1", Name: "Burger", Price: models.MustMoney("5.00", "USD"), Available: true}
	require.NoError(t, repo.Create(ctx, item))
	require.NoError(t, repo.Create(ctx, &models.MenuItem{RestaurantID: "r1", Name: "Apple Pie", Price: models.MustMoney("3.00", "USD")}))

	menu, err := repo.ListByRestaurant(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, menu, 2)
	assert.Equal(t, "Apple Pie", menu[0].Name)

	item.Price = models.MustMoney("5.50", "USD")
	require.NoError(t, repo.Update(ctx, item))
	got, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.50", got.Price.Amount.StringFixed(2))

	err = repo.Update(ctx, &models.MenuItem{ID: "missing", Name: "Ghost"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, repo.Delete(ctx, item.ID))
	assert.True(t, apperr.Is(repo.Delete(ctx, item.ID), apperr.KindNotFound))
}

func TestGORMUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewGORMUserRepository(openTestDB(t))

	user := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash", Role: models.RoleCustomer}
	require.NoError(t, repo.Create(ctx, user))

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, byEmail.Role)

	_, err = repo.GetByID(ctx, "nope")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
