package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/domain/ticket"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/example/ec-storefront/internal/report"
)

// MemoryStore keeps every collection in process memory. It backs the
// default "memory" driver and the end-to-end tests.
type MemoryStore struct {
	mu       sync.RWMutex
	orders   map[string]*order.Order
	users    map[string]*user.User
	products map[string]*product.Product
	tickets  map[string]*ticket.Ticket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:   make(map[string]*order.Order),
		users:    make(map[string]*user.User),
		products: make(map[string]*product.Product),
		tickets:  make(map[string]*ticket.Ticket),
	}
}

// Order operations

func (s *MemoryStore) CreateOrder(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[o.ID]; exists {
		return ErrDuplicateID
	}
	s.orders[o.ID] = o.Clone()
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (s *MemoryStore) ListOrders(ctx context.Context, q order.Query) ([]*order.Order, int, error) {
	matched := s.matchOrders(q)
	return q.Window(matched), len(matched), nil
}

func (s *MemoryStore) matchOrders(q order.Query) []*order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*order.Order
	for _, o := range s.orders {
		if q.Matches(o) {
			matched = append(matched, o.Clone())
		}
	}
	order.SortNewestFirst(matched)
	return matched
}

// TransitionOrder compares and swaps under the write lock.
func (s *MemoryStore) TransitionOrder(ctx context.Context, orderID string, from []order.Status, change order.Change) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	if len(from) > 0 && !order.ContainsStatus(from, o.Status) {
		return nil, order.ErrStatusConflict
	}
	o.Status = change.Status
	if change.PaymentInfo != nil {
		o.PaymentInfo = change.PaymentInfo.Clone()
	}
	o.UpdatedAt = change.UpdatedAt
	return o.Clone(), nil
}

func (s *MemoryStore) HasOrdersForProduct(ctx context.Context, productID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.ReferencesProduct(productID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) DailySales(ctx context.Context, q order.Query) ([]report.DailyRow, error) {
	q.Offset, q.Limit = 0, 0
	return report.GroupDaily(s.matchOrders(q)), nil
}

// User operations

func (s *MemoryStore) CreateUser(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.ErrEmailTaken
		}
	}
	s.users[u.ID] = u.Clone()
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, userID string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u.Clone(), nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (s *MemoryStore) UpdateUser(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return user.ErrUserNotFound
	}
	s.users[u.ID] = u.Clone()
	return nil
}

// Product operations

func (s *MemoryStore) CreateProduct(ctx context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[p.ID]; exists {
		return ErrDuplicateID
	}
	c := *p
	s.products[p.ID] = &c
	return nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, productID string) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	c := *p
	return &c, nil
}

// ListProducts returns the catalog, newest first.
func (s *MemoryStore) ListProducts(ctx context.Context) ([]*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	products := make([]*product.Product, 0, len(s.products))
	for _, p := range s.products {
		c := *p
		products = append(products, &c)
	}
	sort.Slice(products, func(i, j int) bool {
		if !products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		}
		return products[i].ID > products[j].ID
	})
	return products, nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return product.ErrProductNotFound
	}
	c := *p
	s.products[p.ID] = &c
	return nil
}

func (s *MemoryStore) DeleteProduct(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		return product.ErrProductNotFound
	}
	delete(s.products, productID)
	return nil
}

// Ticket operations

func (s *MemoryStore) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[t.ID]; exists {
		return ErrDuplicateID
	}
	s.tickets[t.ID] = t.Clone()
	return nil
}

func (s *MemoryStore) GetTicket(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, ticket.ErrTicketNotFound
	}
	return t.Clone(), nil
}

func (s *MemoryStore) ListTickets(ctx context.Context, q ticket.Query) ([]*ticket.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := []*ticket.Ticket{}
	for _, t := range s.tickets {
		if q.Matches(t) {
			matched = append(matched, t.Clone())
		}
	}
	ticket.SortNewestFirst(matched)
	return matched, nil
}

func (s *MemoryStore) UpdateTicket(ctx context.Context, ticketID string, change ticket.Change) (*ticket.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, ticket.ErrTicketNotFound
	}
	change.Apply(t)
	return t.Clone(), nil
}
