package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-storefront/internal/domain/order"
)

// MockOrderRepository is an in-memory order.Repository that records calls
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*order.Order

	// For tracking calls in tests
	CreateCalls     []*order.Order
	TransitionCalls []TransitionCall
	ListCalls       []order.Query

	CreateErr          error
	ListErr            error
	TransitionErr      error
	TransitionCallback func(ctx context.Context, orderID string, from []order.Status, change order.Change) (*order.Order, error)
}

// TransitionCall records parameters passed to TransitionOrder
type TransitionCall struct {
	OrderID string
	From    []order.Status
	Change  order.Change
}

// NewMockOrderRepository creates a new MockOrderRepository
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*order.Order),
	}
}

// CreateOrder stores a copy of o
func (m *MockOrderRepository) CreateOrder(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls = append(m.CreateCalls, o.Clone())
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.orders[o.ID] = o.Clone()
	return nil
}

// GetOrder returns a copy of the stored order
func (m *MockOrderRepository) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o.Clone(), nil
}

// ListOrders filters, sorts and windows the stored orders
func (m *MockOrderRepository) ListOrders(ctx context.Context, q order.Query) ([]*order.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListCalls = append(m.ListCalls, q)
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}

	var matched []*order.Order
	for _, o := range m.orders {
		if q.Matches(o) {
			matched = append(matched, o.Clone())
		}
	}
	order.SortNewestFirst(matched)
	return q.Window(matched), len(matched), nil
}

// TransitionOrder applies change when the stored status is in from
func (m *MockOrderRepository) TransitionOrder(ctx context.Context, orderID string, from []order.Status, change order.Change) (*order.Order, error) {
	m.mu.Lock()
	m.TransitionCalls = append(m.TransitionCalls, TransitionCall{OrderID: orderID, From: from, Change: change})
	callback := m.TransitionCallback
	m.mu.Unlock()

	if callback != nil {
		return callback(ctx, orderID, from, change)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.TransitionErr != nil {
		return nil, m.TransitionErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	if len(from) > 0 && !order.ContainsStatus(from, o.Status) {
		return nil, order.ErrStatusConflict
	}
	o.Status = change.Status
	if change.PaymentInfo != nil {
		o.PaymentInfo = change.PaymentInfo
	}
	o.UpdatedAt = change.UpdatedAt
	return o.Clone(), nil
}

// SetOrder stores an order directly for testing
func (m *MockOrderRepository) SetOrder(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o.Clone()
}

// Stored returns the current stored copy, or nil
func (m *MockOrderRepository) Stored(orderID string) *order.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.orders[orderID]; ok {
		return o.Clone()
	}
	return nil
}
