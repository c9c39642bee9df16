package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"pesan/internal/authz"
	"pesan/internal/database"
	"pesan/internal/models"
	"pesan/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, database.Migrate(db))
	return db
}

// storeFactories lets every behaviour test run against both Store implementations.
var storeFactories = map[string]func(t *testing.T) repositories.Store{
	"gorm": func(t *testing.T) repositories.Store {
		return repositories.NewGORMStore(openSQLite(t))
	},
	"memory": func(t *testing.T) repositories.Store {
		return repositories.NewMemoryStore()
	},
}

func forEachStore(t *testing.T, fn func(t *testing.T, store repositories.Store)) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func newOrder(t *testing.T, store repositories.Store, country string) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:       "user-" + country,
		RestaurantID: "rest-1",
		Country:      country,
		Status:       models.OrderStatusDraft,
		Currency:     "INR",
	}
	require.NoError(t, store.Orders().Create(context.Background(), order))
	require.NotEmpty(t, order.ID)
	return order
}

func TestStore_UpsertItemKeepsPriceSnapshot(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		order := newOrder(t, store, "IN")

		require.NoError(t, store.Orders().UpsertItem(ctx, &models.OrderItem{
			OrderID: order.ID, MenuItemID: "thali", Quantity: 2, UnitPriceCents: 3500,
		}))
		require.NoError(t, store.Orders().UpsertItem(ctx, &models.OrderItem{
			OrderID: order.ID, MenuItemID: "thali", Quantity: 5, UnitPriceCents: 9900,
		}))

		items, err := store.Orders().ListItems(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, 5, items[0].Quantity)
		assert.Equal(t, int64(3500), items[0].UnitPriceCents)
	})
}

func TestStore_DeleteItemChecksOwnership(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		first := newOrder(t, store, "IN")
		second := newOrder(t, store, "IN")

		item := &models.OrderItem{OrderID: first.ID, MenuItemID: "dosa", Quantity: 1, UnitPriceCents: 1800}
		require.NoError(t, store.Orders().UpsertItem(ctx, item))

		err := store.Orders().DeleteItem(ctx, second.ID, item.ID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		require.NoError(t, store.Orders().DeleteItem(ctx, first.ID, item.ID))
		items, err := store.Orders().ListItems(ctx, first.ID)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestStore_FilterIsPushedIntoQueries(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		in := newOrder(t, store, "IN")
		us := newOrder(t, store, "US")

		orders, err := store.Orders().List(ctx, authz.Filter{Country: "IN"}, repositories.ListOptions{})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, in.ID, orders[0].ID)

		orders, err = store.Orders().List(ctx, authz.Filter{All: true}, repositories.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, orders, 2)

		// An empty country filter matches nothing.
		orders, err = store.Orders().List(ctx, authz.Filter{}, repositories.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, orders)

		_, err = store.Orders().Get(ctx, us.ID, authz.Filter{Country: "IN"})
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		got, err := store.Orders().Get(ctx, us.ID, authz.Filter{Country: "US"})
		require.NoError(t, err)
		assert.Equal(t, "US", got.Country)
	})
}

func TestStore_ListStatusAndPaging(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		var ids []string
		for i := 0; i < 3; i++ {
			ids = append(ids, newOrder(t, store, "IN").ID)
			time.Sleep(2 * time.Millisecond)
		}
		require.NoError(t, store.Orders().TransitionStatus(ctx, ids[0], []models.OrderStatus{models.OrderStatusDraft}, models.OrderStatusCanceled))

		all := authz.Filter{All: true}
		orders, err := store.Orders().List(ctx, all, repositories.ListOptions{Status: models.OrderStatusDraft})
		require.NoError(t, err)
		assert.Len(t, orders, 2)

		orders, err = store.Orders().List(ctx, all, repositories.ListOptions{Limit: 2})
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, ids[2], orders[0].ID, "newest first")

		orders, err = store.Orders().List(ctx, all, repositories.ListOptions{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, ids[0], orders[0].ID)
	})
}

func TestStore_TransitionStatusIsCompareAndSet(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		order := newOrder(t, store, "IN")
		fromOpen := []models.OrderStatus{models.OrderStatusDraft, models.OrderStatusPending}

		require.NoError(t, store.Orders().TransitionStatus(ctx, order.ID, fromOpen, models.OrderStatusPaid))

		err := store.Orders().TransitionStatus(ctx, order.ID, fromOpen, models.OrderStatusPaid)
		assert.ErrorIs(t, err, repositories.ErrStaleState)

		err = store.Orders().TransitionStatus(ctx, "missing", fromOpen, models.OrderStatusPaid)
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		got, err := store.Orders().GetForUpdate(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusPaid, got.Status)
	})
}

func TestStore_OnePaymentPerOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		order := newOrder(t, store, "IN")

		payment := &models.Payment{
			OrderID: order.ID, PaymentMethodID: "pm-1", Provider: "MOCK",
			AmountCents: 7000, Currency: "INR", Status: models.PaymentStatusFailed,
			ErrorCode: models.PaymentErrInactiveMethod, ErrorMessage: "inactive",
		}
		require.NoError(t, store.Payments().Create(ctx, payment))

		dup := &models.Payment{
			OrderID: order.ID, PaymentMethodID: "pm-1", Provider: "MOCK",
			AmountCents: 7000, Currency: "INR", Status: models.PaymentStatusSucceeded,
		}
		assert.ErrorIs(t, store.Payments().Create(ctx, dup), repositories.ErrDuplicate)

		payment.Status = models.PaymentStatusSucceeded
		payment.ErrorCode = ""
		payment.ErrorMessage = ""
		payment.SettlementRef = "ref-1"
		require.NoError(t, store.Payments().Update(ctx, payment))

		got, err := store.Payments().GetByOrderID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, payment.ID, got.ID)
		assert.Equal(t, models.PaymentStatusSucceeded, got.Status)
		assert.Empty(t, got.ErrorCode)
		assert.Equal(t, "ref-1", got.SettlementRef)

		_, err = store.Payments().GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		assert.ErrorIs(t, store.Payments().Update(ctx, &models.Payment{ID: "missing"}), repositories.ErrNotFound)
	})
}

func TestStore_TransactionRollsBack(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		order := newOrder(t, store, "IN")
		boom := errors.New("boom")

		err := store.Transaction(ctx, func(tx repositories.Store) error {
			locked, err := tx.Orders().GetForUpdate(ctx, order.ID)
			require.NoError(t, err)
			require.NoError(t, tx.Orders().UpsertItem(ctx, &models.OrderItem{
				OrderID: locked.ID, MenuItemID: "thali", Quantity: 1, UnitPriceCents: 3500,
			}))
			locked.TotalAmountCents = 3500
			require.NoError(t, tx.Orders().Save(ctx, locked))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := store.Orders().Get(ctx, order.ID, authz.Filter{All: true})
		require.NoError(t, err)
		assert.Empty(t, got.Items)
		assert.Equal(t, int64(0), got.TotalAmountCents)

		err = store.Transaction(ctx, func(tx repositories.Store) error {
			locked, err := tx.Orders().GetForUpdate(ctx, order.ID)
			if err != nil {
				return err
			}
			locked.TotalAmountCents = 1800
			return tx.Orders().Save(ctx, locked)
		})
		require.NoError(t, err)
		got, err = store.Orders().Get(ctx, order.ID, authz.Filter{All: true})
		require.NoError(t, err)
		assert.Equal(t, int64(1800), got.TotalAmountCents)
	})
}

func TestListOptions_Normalize(t *testing.T) {
	assert.Equal(t, repositories.DefaultListLimit, repositories.ListOptions{}.Normalize().Limit)
	assert.Equal(t, repositories.MaxListLimit, repositories.ListOptions{Limit: 10000}.Normalize().Limit)
	assert.Equal(t, 0, repositories.ListOptions{Offset: -5}.Normalize().Offset)
	assert.Equal(t, 20, repositories.ListOptions{Limit: 20}.Normalize().Limit)
}
