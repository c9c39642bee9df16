package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pesan/internal/authz"
	"pesan/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of Store. All access is serialised by
// one mutex; a transaction holds it for its whole duration and restores a snapshot
// when fn fails.
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

type memoryData struct {
	orders   map[string]models.Order
	items    map[string]models.OrderItem
	payments map[string]models.Payment
	methods  map[string]models.PaymentMethod
}

func newMemoryData() *memoryData {
	return &memoryData{
		orders:   make(map[string]models.Order),
		items:    make(map[string]models.OrderItem),
		payments: make(map[string]models.Payment),
		methods:  make(map[string]models.PaymentMethod),
	}
}

func (d *memoryData) clone() *memoryData {
	c := newMemoryData()
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	for k, v := range d.methods {
		c.methods[k] = v
	}
	return c
}

// NewMemoryStore creates a new, empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

func (s *MemoryStore) Orders() OrderRepository { return &memoryOrders{memoryView{store: s}} }

func (s *MemoryStore) Payments() PaymentRepository { return &memoryPayments{memoryView{store: s}} }

func (s *MemoryStore) PaymentMethods() PaymentMethodRepository {
	return &memoryMethods{memoryView{store: s}}
}

// Transaction runs fn while holding the store lock.
func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&memoryTx{store: s}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// memoryTx is the Store view handed to transaction callbacks; the lock is already held.
type memoryTx struct {
	store *MemoryStore
}

func (t *memoryTx) Orders() OrderRepository {
	return &memoryOrders{memoryView{store: t.store, locked: true}}
}

func (t *memoryTx) Payments() PaymentRepository {
	return &memoryPayments{memoryView{store: t.store, locked: true}}
}

func (t *memoryTx) PaymentMethods() PaymentMethodRepository {
	return &memoryMethods{memoryView{store: t.store, locked: true}}
}

func (t *memoryTx) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

type memoryView struct {
	store  *MemoryStore
	locked bool
}

func (v memoryView) with(fn func(d *memoryData) error) error {
	if !v.locked {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	return fn(v.store.data)
}

type memoryOrders struct{ memoryView }

func (r *memoryOrders) Create(ctx context.Context, order *models.Order) error {
	return r.with(func(d *memoryData) error {
		if order.ID == "" {
			order.ID = uuid.New().String()
		}
		if _, exists := d.orders[order.ID]; exists {
			return fmt.Errorf("order %s: %w", order.ID, ErrDuplicate)
		}
		now := time.Now()
		order.CreatedAt = now
		order.UpdatedAt = now
		stored := *order
		stored.Items = nil
		d.orders[order.ID] = stored
		return nil
	})
}

func (r *memoryOrders) Get(ctx context.Context, id string, filter authz.Filter) (*models.Order, error) {
	var out *models.Order
	err := r.with(func(d *memoryData) error {
		order, ok := d.orders[id]
		if !ok || !filter.Matches(order.Country) {
			return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		order.Items = d.itemsOf(id)
		out = &order
		return nil
	})
	return out, err
}

func (r *memoryOrders) GetForUpdate(ctx context.Context, id string) (*models.Order, error) {
	return r.Get(ctx, id, authz.Filter{All: true})
}

func (r *memoryOrders) List(ctx context.Context, filter authz.Filter, opts ListOptions) ([]models.Order, error) {
	opts = opts.Normalize()
	var out []models.Order
	err := r.with(func(d *memoryData) error {
		for _, order := range d.orders {
			if !filter.Matches(order.Country) {
				continue
			}
			if opts.Status != "" && order.Status != opts.Status {
				continue
			}
			out = append(out, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if opts.Offset >= len(out) {
		return []models.Order{}, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (r *memoryOrders) Save(ctx context.Context, order *models.Order) error {
	return r.with(func(d *memoryData) error {
		stored, ok := d.orders[order.ID]
		if !ok {
			return fmt.Errorf("order with ID %s not found for update: %w", order.ID, ErrNotFound)
		}
		order.UpdatedAt = time.Now()
		stored.Status = order.Status
		stored.TotalAmountCents = order.TotalAmountCents
		stored.UpdatedAt = order.UpdatedAt
		d.orders[order.ID] = stored
		return nil
	})
}

func (r *memoryOrders) TransitionStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) error {
	return r.with(func(d *memoryData) error {
		stored, ok := d.orders[id]
		if !ok {
			return fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		for _, status := range from {
			if stored.Status == status {
				stored.Status = to
				stored.UpdatedAt = time.Now()
				d.orders[id] = stored
				return nil
			}
		}
		return fmt.Errorf("order %s is not in %v: %w", id, from, ErrStaleState)
	})
}

func (r *memoryOrders) ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.with(func(d *memoryData) error {
		items = d.itemsOf(orderID)
		return nil
	})
	return items, err
}

func (r *memoryOrders) UpsertItem(ctx context.Context, item *models.OrderItem) error {
	return r.with(func(d *memoryData) error {
		now := time.Now()
		for id, existing := range d.items {
			if existing.OrderID == item.OrderID && existing.MenuItemID == item.MenuItemID {
				existing.Quantity = item.Quantity
				existing.UpdatedAt = now
				d.items[id] = existing
				return nil
			}
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.CreatedAt = now
		item.UpdatedAt = now
		d.items[item.ID] = *item
		return nil
	})
}

func (r *memoryOrders) DeleteItem(ctx context.Context, orderID, itemID string) error {
	return r.with(func(d *memoryData) error {
		item, ok := d.items[itemID]
		if !ok || item.OrderID != orderID {
			return fmt.Errorf("item %s on order %s: %w", itemID, orderID, ErrNotFound)
		}
		delete(d.items, itemID)
		return nil
	})
}

func (d *memoryData) itemsOf(orderID string) []models.OrderItem {
	var items []models.OrderItem
	for _, item := range d.items {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

type memoryPayments struct{ memoryView }

func (r *memoryPayments) Create(ctx context.Context, payment *models.Payment) error {
	return r.with(func(d *memoryData) error {
		for _, existing := range d.payments {
			if existing.OrderID == payment.OrderID {
				return fmt.Errorf("payment for order %s: %w", payment.OrderID, ErrDuplicate)
			}
		}
		if payment.ID == "" {
			payment.ID = uuid.New().String()
		}
		now := time.Now()
		payment.CreatedAt = now
		payment.UpdatedAt = now
		d.payments[payment.ID] = *payment
		return nil
	})
}

func (r *memoryPayments) Update(ctx context.Context, payment *models.Payment) error {
	return r.with(func(d *memoryData) error {
		stored, ok := d.payments[payment.ID]
		if !ok {
			return fmt.Errorf("payment with ID %s not found for update: %w", payment.ID, ErrNotFound)
		}
		payment.OrderID = stored.OrderID
		payment.CreatedAt = stored.CreatedAt
		payment.UpdatedAt = time.Now()
		d.payments[payment.ID] = *payment
		return nil
	})
}

func (r *memoryPayments) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var out *models.Payment
	err := r.with(func(d *memoryData) error {
		payment, ok := d.payments[id]
		if !ok {
			return fmt.Errorf("payment with ID %s: %w", id, ErrNotFound)
		}
		out = &payment
		return nil
	})
	return out, err
}

func (r *memoryPayments) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var out *models.Payment
	err := r.with(func(d *memoryData) error {
		for _, payment := range d.payments {
			if payment.OrderID == orderID {
				p := payment
				out = &p
				return nil
			}
		}
		return fmt.Errorf("payment for order %s: %w", orderID, ErrNotFound)
	})
	return out, err
}

type memoryMethods struct{ memoryView }

func (r *memoryMethods) Create(ctx context.Context, method *models.PaymentMethod) error {
	return r.with(func(d *memoryData) error {
		if method.ID == "" {
			method.ID = uuid.New().String()
		}
		d.methods[method.ID] = *method
		return nil
	})
}

func (r *memoryMethods) GetByID(ctx context.Context, id string) (*models.PaymentMethod, error) {
	var out *models.PaymentMethod
	err := r.with(func(d *memoryData) error {
		method, ok := d.methods[id]
		if !ok {
			return fmt.Errorf("payment method with ID %s: %w", id, ErrNotFound)
		}
		out = &method
		return nil
	})
	return out, err
}
