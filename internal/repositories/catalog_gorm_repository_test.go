package repositories_test

import (
	"context"
	"testing"

	"pesan/internal/models"
	"pesan/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGORMCatalogRepository(t *testing.T) {
	repo := repositories.NewGORMCatalogRepository(openSQLite(t))
	ctx := context.Background()

	restaurant := &models.Restaurant{Name: "Spice Route", Country: "IN"}
	require.NoError(t, repo.CreateRestaurant(ctx, restaurant))
	require.NotEmpty(t, restaurant.ID)

	item := &models.MenuItem{RestaurantID: restaurant.ID, Name: "Thali", PriceCents: 3500, Available: true}
	require.NoError(t, repo.CreateMenuItem(ctx, item))

	got, err := repo.GetMenuItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), got.PriceCents)
	assert.True(t, got.Available)

	require.NoError(t, repo.UpdateMenuItemPrice(ctx, item.ID, 3900))
	require.NoError(t, repo.SetMenuItemAvailability(ctx, item.ID, false))
	got, err = repo.GetMenuItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3900), got.PriceCents)
	assert.False(t, got.Available)

	gotRestaurant, err := repo.GetRestaurant(ctx, restaurant.ID)
	require.NoError(t, err)
	assert.Equal(t, "IN", gotRestaurant.Country)

	_, err = repo.GetRestaurant(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repo.GetMenuItem(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateMenuItemPrice(ctx, "missing", 100), repositories.ErrNotFound)
}
