package cart

import (
	"context"
	"sync"
)

// MemoryStore keeps carts in process memory. Used when no Redis address is
// configured and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]*Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]*Cart)}
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.carts[sessionID]; ok {
		return c.clone(), nil
	}
	return &Cart{Items: []Item{}}, nil
}

func (m *MemoryStore) Save(ctx context.Context, sessionID string, c *Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = c.clone()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}

func (c *Cart) clone() *Cart {
	return &Cart{Items: append([]Item{}, c.Items...), TotalAmount: c.TotalAmount}
}
