package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-storefront/internal/domain/order"
)

// MockNotifier records lifecycle notifications
type MockNotifier struct {
	mu      sync.Mutex
	Placed  []string
	Paid    []string
	SendErr error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) OrderPlaced(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Placed = append(m.Placed, o.ID)
	return m.SendErr
}

func (m *MockNotifier) PaymentProcessed(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Paid = append(m.Paid, o.ID)
	return m.SendErr
}

// MockCartSource serves fixed snapshots per session
type MockCartSource struct {
	mu         sync.Mutex
	snapshots  map[string]order.Snapshot
	ClearCalls []string
	ClearErr   error
}

func NewMockCartSource() *MockCartSource {
	return &MockCartSource{snapshots: make(map[string]order.Snapshot)}
}

func (m *MockCartSource) SetSnapshot(sessionID string, snap order.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[sessionID] = snap
}

func (m *MockCartSource) Snapshot(ctx context.Context, sessionID string) (order.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshots[sessionID], nil
}

func (m *MockCartSource) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls = append(m.ClearCalls, sessionID)
	if m.ClearErr != nil {
		return m.ClearErr
	}
	delete(m.snapshots, sessionID)
	return nil
}
