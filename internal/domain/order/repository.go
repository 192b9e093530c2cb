package order

import (
	"context"
	"sort"
	"time"
)

// Query selects orders for a listing. Zero values mean "no constraint";
// Limit 0 returns every match.
type Query struct {
	UserID string
	Status Status
	From   time.Time
	To     time.Time
	Offset int
	Limit  int
}

// Matches applies the query filters to a single order.
func (q Query) Matches(o *Order) bool {
	if q.UserID != "" && o.UserID != q.UserID {
		return false
	}
	if q.Status != "" && o.Status != q.Status {
		return false
	}
	if !q.From.IsZero() && o.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && o.CreatedAt.After(q.To) {
		return false
	}
	return true
}

// Change is the patch applied by a status transition. A nil PaymentInfo leaves
// the stored value untouched.
type Change struct {
	Status      Status
	PaymentInfo *PaymentInfo
	UpdatedAt   time.Time
}

// Repository persists orders. Implementations return ErrOrderNotFound for
// unknown ids and ErrStatusConflict when a conditional transition finds the
// order outside the expected statuses.
type Repository interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	// ListOrders returns the requested window, newest first, and the total
	// number of matches.
	ListOrders(ctx context.Context, q Query) ([]*Order, int, error)
	// TransitionOrder applies change only while the stored status is one of
	// from. An empty from makes the update unconditional.
	TransitionOrder(ctx context.Context, orderID string, from []Status, change Change) (*Order, error)
}

// SortNewestFirst orders by createdAt descending, then orderId descending.
func SortNewestFirst(orders []*Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

// Window applies offset and limit to an already sorted slice.
func (q Query) Window(orders []*Order) []*Order {
	if q.Offset < 0 || q.Offset >= len(orders) {
		return []*Order{}
	}
	orders = orders[q.Offset:]
	if q.Limit > 0 && q.Limit < len(orders) {
		orders = orders[:q.Limit]
	}
	return orders
}

// ContainsStatus reports whether s is in set.
func ContainsStatus(set []Status, s Status) bool {
	for _, candidate := range set {
		if candidate == s {
			return true
		}
	}
	return false
}
