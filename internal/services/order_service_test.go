package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"pesan/internal/authz"
	"pesan/internal/models"
	"pesan/internal/repositories"
	"pesan/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// A US member ordering from an Indian restaurant keeps country=US while the
// currency follows the restaurant. This mismatch is intentional.
func TestOrderLifecycle_CrossCountryOrder(t *testing.T) {
	e := newEnv(t, nil, nil)
	ctx := context.Background()
	member := caller(t, "user-us", authz.RoleMember, "US")
	manager := caller(t, "manager-us", authz.RoleManager, "US")
	admin := caller(t, "admin", authz.RoleAdmin, "")

	order, err := e.svc.CreateOrder(ctx, member, "rest-in")
	require.NoError(t, err)
	assert.Equal(t, "US", order.Country)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, models.OrderStatusDraft, order.Status)
	assert.Equal(t, "user-us", order.UserID)

	order, err = e.svc.AddItem(ctx, member, order.ID, "thali", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), order.TotalAmountCents)

	paid, payment, err := e.svc.Checkout(ctx, manager, order.ID, activeMethod)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, paid.Status)
	assert.Equal(t, models.PaymentStatusSucceeded, payment.Status)
	assert.Equal(t, int64(7000), payment.AmountCents)
	assert.Equal(t, "INR", payment.Currency)

	canceled, payment, err := e.svc.CancelOrder(ctx, admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCanceled, canceled.Status)
	assert.Equal(t, models.PaymentStatusCanceled, payment.Status)

	stored, err := e.svc.GetPayment(ctx, member, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCanceled, stored.Status)
}

func TestOrderService_ScopeIsolation(t *testing.T) {
	e := newEnv(t, nil, nil)
	ctx := context.Background()
	memberIN := caller(t, "u-in", authz.RoleMember, "IN")
	memberUS := caller(t, "u-us", authz.RoleMember, "US")
	managerIN := caller(t, "m-in", authz.RoleManager, "IN")
	admin := caller(t, "admin", authz.RoleAdmin, "")

	inOrder, err := e.svc.CreateOrder(ctx, memberIN, "rest-in")
	require.NoError(t, err)
	usOrder, err := e.svc.CreateOrder(ctx, memberUS, "rest-us")
	require.NoError(t, err)

	orders, err := e.svc.ListOrders(ctx, memberIN, repositories.ListOptions{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, inOrder.ID, orders[0].ID)
	for _, o := range orders {
		assert.NotEqual(t, "US", o.Country)
	}

	orders, err = e.svc.ListOrders(ctx, admin, repositories.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	// Out-of-scope orders look absent, for reads and writes alike.
	_, err = e.svc.GetOrder(ctx, memberIN, usOrder.ID)
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
	_, err = e.svc.AddItem(ctx, memberIN, usOrder.ID, "burger", 1)
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
	_, _, err = e.svc.CancelOrder(ctx, managerIN, usOrder.ID)
	assert.ErrorIs(t, err, services.ErrOrderNotFound)
	_, err = e.svc.GetPayment(ctx, memberIN, usOrder.ID)
	assert.ErrorIs(t, err, services.ErrOrderNotFound)

	_, err = e.svc.ListOrders(ctx, admin, repositories.ListOptions{Status: "SHIPPED"})
	assert.ErrorIs(t, err, services.ErrInvalidInput)
	orders, err = e.svc.ListOrders(ctx, admin, repositories.ListOptions{Status: models.OrderStatusDraft, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestOrderService_MembersCannotSettle(t *testing.T) {
	e := newEnv(t, nil, nil)
	ctx := context.Background()
	member := caller(t, "u-1", authz.RoleMember, "IN")
	order := draftWithItems(t, e)

	_, _, err := e.svc.Checkout(ctx, member, order.ID, activeMethod)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, _, err = e.svc.CancelOrder(ctx, member, order.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	reloaded, err := e.svc.GetOrder(ctx, member, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDraft, reloaded.Status)
}

func TestOrderService_CreateOrderValidation(t *testing.T) {
	e := newEnv(t, nil, nil)
	ctx := context.Background()
	member := caller(t, "u-1", authz.RoleMember, "IN")

	_, err := e.svc.CreateOrder(ctx, member, "  ")
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	_, err = e.svc.CreateOrder(ctx, member, "rest-nowhere")
	assert.ErrorIs(t, err, services.ErrRestaurantNotFound)

	admin := caller(t, "admin", authz.RoleAdmin, "")
	_, err = e.svc.CreateOrder(ctx, admin, "rest-in")
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	_, err = e.svc.CreateOrder(ctx, services.Caller{UserID: "u-2"}, "rest-in")
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestOrderService_ConcurrentCheckoutChargesOnce(t *testing.T) {
	for name, newStoreEnv := range envFactories {
		t.Run(name, func(t *testing.T) {
			provider := &stubProvider{entered: make(chan struct{}), release: make(chan struct{})}
			e := newStoreEnv(t, provider, nil)
			ctx := context.Background()
			manager := caller(t, "m-1", authz.RoleManager, "IN")
			order := draftWithItems(t, e)

			type result struct {
				payment *models.Payment
				err     error
			}
			first := make(chan result, 1)
			go func() {
				_, p, err := e.svc.Checkout(ctx, manager, order.ID, activeMethod)
				first <- result{p, err}
			}()

			<-provider.entered
			_, _, err := e.svc.Checkout(ctx, manager, order.ID, activeMethod)
			assert.ErrorIs(t, err, services.ErrConflict)
			close(provider.release)

			winner := <-first
			require.NoError(t, winner.err)
			assert.Equal(t, models.PaymentStatusSucceeded, winner.payment.Status)

			stored, err := e.svc.GetPayment(ctx, manager, order.ID)
			require.NoError(t, err)
			assert.Equal(t, winner.payment.ID, stored.ID)
		})
	}
}

// Separate OrderService instances over one store stand in for separate processes:
// only the row lock and the payment uniqueness keep the charge single.
func TestOrderService_ConcurrentCheckoutAcrossInstances(t *testing.T) {
	for name, newStoreEnv := range envFactories {
		t.Run(name, func(t *testing.T) {
			e := newStoreEnv(t, nil, nil)
			ctx := context.Background()
			manager := caller(t, "m-1", authz.RoleManager, "IN")
			order := draftWithItems(t, e)

			const instances = 4
			start := make(chan struct{})
			errs := make(chan error, instances)
			var wg sync.WaitGroup
			for i := 0; i < instances; i++ {
				svc := services.NewOrderService(e.store, e.catalog, nil, nil)
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, _, err := svc.Checkout(ctx, manager, order.ID, activeMethod)
					errs <- err
				}()
			}
			close(start)
			wg.Wait()
			close(errs)

			var succeeded int
			for err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				assert.ErrorIs(t, err, services.ErrConflict)
			}
			assert.Equal(t, 1, succeeded)

			paid, err := e.svc.GetOrder(ctx, manager, order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.OrderStatusPaid, paid.Status)
			payment, err := e.svc.GetPayment(ctx, manager, order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentStatusSucceeded, payment.Status)
			assert.Equal(t, paid.TotalAmountCents, payment.AmountCents)
		})
	}
}

func TestOrderService_ConcurrentAddItemKeepsTotal(t *testing.T) {
	for name, newStoreEnv := range envFactories {
		t.Run(name, func(t *testing.T) {
			e := newStoreEnv(t, nil, nil)
			ctx := context.Background()
			member := caller(t, "u-1", authz.RoleMember, "IN")

			order, err := e.svc.CreateOrder(ctx, member, "rest-in")
			require.NoError(t, err)

			// Two instances interleave on the same order, as two processes would.
			other := services.NewOrderService(e.store, e.catalog, nil, nil)
			var wg sync.WaitGroup
			for i, menuItemID := range []string{"thali", "dosa", "thali", "dosa", "thali", "dosa"} {
				svc := e.svc
				if i%2 == 1 {
					svc = other
				}
				wg.Add(1)
				go func(svc *services.OrderService, id string) {
					defer wg.Done()
					_, err := svc.AddItem(ctx, member, order.ID, id, 2)
					assert.NoError(t, err)
				}(svc, menuItemID)
			}
			wg.Wait()

			reloaded, err := e.svc.GetOrder(ctx, member, order.ID)
			require.NoError(t, err)
			assert.Len(t, reloaded.Items, 2)
			assertTotalMatchesLines(t, reloaded)
			assert.Equal(t, int64(2*3500+2*1800), reloaded.TotalAmountCents)
		})
	}
}

func TestOrderService_PublishesEvents(t *testing.T) {
	publisher := new(MockPublisher)
	e := newEnv(t, nil, publisher)
	ctx := context.Background()
	member := caller(t, "u-1", authz.RoleMember, "IN")
	manager := caller(t, "m-1", authz.RoleManager, "IN")

	var mu sync.Mutex
	var received []services.OrderEvent
	capture := func(args mock.Arguments) {
		var ev services.OrderEvent
		require.NoError(t, json.Unmarshal(args.Get(2).([]byte), &ev))
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
	}
	for _, key := range []string{
		services.EventOrderCreated, services.EventOrderItemChanged, services.EventOrderPaymentFailed,
		services.EventOrderPaid, services.EventOrderCanceled,
	} {
		publisher.On("Publish", services.EventsExchange, key, mock.Anything).Run(capture).Return(nil).Once()
	}

	order, err := e.svc.CreateOrder(ctx, member, "rest-in")
	require.NoError(t, err)
	_, err = e.svc.AddItem(ctx, member, order.ID, "thali", 1)
	require.NoError(t, err)
	_, _, err = e.svc.Checkout(ctx, manager, order.ID, inactiveMethod)
	require.Error(t, err)
	_, _, err = e.svc.Checkout(ctx, manager, order.ID, activeMethod)
	require.NoError(t, err)
	_, _, err = e.svc.CancelOrder(ctx, manager, order.ID)
	require.NoError(t, err)
	// A second cancel changes nothing and publishes nothing.
	_, _, err = e.svc.CancelOrder(ctx, manager, order.ID)
	require.NoError(t, err)

	publisher.AssertExpectations(t)
	require.Len(t, received, 5)
	assert.Equal(t, services.EventOrderPaid, received[3].Type)
	assert.Equal(t, order.ID, received[3].OrderID)
	assert.Equal(t, string(models.PaymentStatusSucceeded), received[3].PaymentStatus)
	assert.Equal(t, "INR", received[3].Currency)
	assert.Equal(t, "m-1", received[4].ActorID)
}

func TestOrderService_PublishFailureDoesNotFailRequest(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))
	e := newEnv(t, nil, publisher)
	member := caller(t, "u-1", authz.RoleMember, "IN")

	order, err := e.svc.CreateOrder(context.Background(), member, "rest-in")
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	publisher.AssertNumberOfCalls(t, "Publish", 1)
}
