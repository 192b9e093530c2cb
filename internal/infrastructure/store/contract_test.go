package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/domain/ticket"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStoreContract exercises behaviour every Store implementation shares.
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("orders", func(t *testing.T) { testOrders(t, newStore(t)) })
	t.Run("conditional transition", func(t *testing.T) { testTransition(t, newStore(t)) })
	t.Run("concurrent transition", func(t *testing.T) { testConcurrentTransition(t, newStore(t)) })
	t.Run("order totals", func(t *testing.T) { testOrderTotals(t, newStore(t)) })
	t.Run("daily sales", func(t *testing.T) { testDailySales(t, newStore(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("products", func(t *testing.T) { testProducts(t, newStore(t)) })
	t.Run("password reset fields", func(t *testing.T) { testUserResetFields(t, newStore(t)) })
	t.Run("tickets", func(t *testing.T) { testTickets(t, newStore(t)) })
}

var baseTime = time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)

func newOrder(owner string, status order.Status, created time.Time) *order.Order {
	price := decimal.RequireFromString("19.99")
	return &order.Order{
		ID:              uuid.New().String(),
		UserID:          owner,
		CustomerName:    "Test Customer",
		CustomerEmail:   "customer@example.com",
		ShippingAddress: "1 Main St",
		Items: []order.Item{
			{ProductID: "prod-1", Name: "Mug", Price: price, Quantity: 2, Subtotal: price.Mul(decimal.NewFromInt(2))},
		},
		TotalAmount: decimal.RequireFromString("39.98"),
		Status:      status,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func testOrders(t *testing.T, s Store) {
	ctx := context.Background()
	owner := uuid.New().String()

	var created []*order.Order
	for i := 0; i < 12; i++ {
		o := newOrder(owner, order.StatusToPay, baseTime.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.CreateOrder(ctx, o))
		created = append(created, o)
	}
	other := newOrder(uuid.New().String(), order.StatusToShip, baseTime)
	require.NoError(t, s.CreateOrder(ctx, other))

	got, err := s.GetOrder(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, owner, got.UserID)
	assert.True(t, got.TotalAmount.Equal(created[0].TotalAmount))
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].Subtotal.Equal(decimal.RequireFromString("39.98")))
	assert.Nil(t, got.PaymentInfo)

	_, err = s.GetOrder(ctx, "does-not-exist")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	page, total, err := s.ListOrders(ctx, order.Query{UserID: owner, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, page, 10)
	assert.Equal(t, created[11].ID, page[0].ID)

	page, _, err = s.ListOrders(ctx, order.Query{UserID: owner, Offset: 10, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, created[0].ID, page[1].ID)

	from, to, err := order.ParseDateRange("2026-04-10", "2026-04-10")
	require.NoError(t, err)
	_, total, err = s.ListOrders(ctx, order.Query{UserID: owner, From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, 12, total)

	_, total, err = s.ListOrders(ctx, order.Query{UserID: other.UserID, Status: order.StatusToPay})
	require.NoError(t, err)
	assert.Zero(t, total)

	referenced, err := s.HasOrdersForProduct(ctx, "prod-1")
	require.NoError(t, err)
	assert.True(t, referenced)
	referenced, err = s.HasOrdersForProduct(ctx, "prod-unused")
	require.NoError(t, err)
	assert.False(t, referenced)
}

func testOrderTotals(t *testing.T, s Store) {
	ctx := context.Background()
	o := newOrder(uuid.New().String(), order.StatusToPay, baseTime)
	o.Items = []order.Item{
		{ProductID: "prod-1", Name: "Clip", Price: decimal.RequireFromString("0.35"), Quantity: 3, Subtotal: decimal.RequireFromString("1.05")},
		{ProductID: "prod-2", Name: "Pen", Price: decimal.RequireFromString("2.10"), Quantity: 1, Subtotal: decimal.RequireFromString("2.10")},
	}
	o.TotalAmount = order.SumSubtotals(o.Items)
	require.NoError(t, s.CreateOrder(ctx, o))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("3.15")), "total %s", got.TotalAmount)
	assert.True(t, got.TotalAmount.Equal(order.SumSubtotals(got.Items)))
	for _, item := range got.Items {
		assert.True(t, order.WholeCents(item.Price))
		assert.True(t, item.Subtotal.Equal(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))))
	}
}

func testTransition(t *testing.T, s Store) {
	ctx := context.Background()
	o := newOrder(uuid.New().String(), order.StatusToPay, baseTime)
	require.NoError(t, s.CreateOrder(ctx, o))

	paidAt := baseTime.Add(time.Minute)
	updated, err := s.TransitionOrder(ctx, o.ID, []order.Status{order.StatusToPay}, order.Change{
		Status:      order.StatusToShip,
		PaymentInfo: &order.PaymentInfo{Method: order.MethodCard, PaidAt: &paidAt, TransactionID: "TXN-1-ABC", CardLast4: "4242", CardName: "Ada"},
		UpdatedAt:   paidAt,
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusToShip, updated.Status)
	require.NotNil(t, updated.PaymentInfo)
	assert.Equal(t, "4242", updated.PaymentInfo.CardLast4)
	assert.True(t, updated.UpdatedAt.Equal(paidAt))

	_, err = s.TransitionOrder(ctx, o.ID, []order.Status{order.StatusToPay}, order.Change{Status: order.StatusToShip, UpdatedAt: paidAt})
	assert.ErrorIs(t, err, order.ErrStatusConflict)

	_, err = s.TransitionOrder(ctx, "missing", []order.Status{order.StatusToPay}, order.Change{Status: order.StatusToShip})
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	overridden, err := s.TransitionOrder(ctx, o.ID, nil, order.Change{Status: order.StatusToPay, UpdatedAt: paidAt})
	require.NoError(t, err)
	assert.Equal(t, order.StatusToPay, overridden.Status)
	require.NotNil(t, overridden.PaymentInfo, "override keeps the payment record")
}

func testConcurrentTransition(t *testing.T, s Store) {
	ctx := context.Background()
	o := newOrder(uuid.New().String(), order.StatusToPay, baseTime)
	require.NoError(t, s.CreateOrder(ctx, o))

	const workers = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.TransitionOrder(ctx, o.ID, []order.Status{order.StatusToPay}, order.Change{
				Status:      order.StatusToShip,
				PaymentInfo: &order.PaymentInfo{Method: order.MethodQR, TransactionID: fmt.Sprintf("TXN-%d", i)},
				UpdatedAt:   baseTime,
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func testDailySales(t *testing.T, s Store) {
	ctx := context.Background()
	owner := uuid.New().String()
	require.NoError(t, s.CreateOrder(ctx, newOrder(owner, order.StatusCompleted, baseTime)))
	require.NoError(t, s.CreateOrder(ctx, newOrder(owner, order.StatusCompleted, baseTime.Add(15*time.Hour))))
	require.NoError(t, s.CreateOrder(ctx, newOrder(owner, order.StatusCompleted, baseTime.Add(24*time.Hour))))
	require.NoError(t, s.CreateOrder(ctx, newOrder(owner, order.StatusCancelled, baseTime)))

	rows, err := s.DailySales(ctx, order.Query{Status: order.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-04-10", rows[0].Date)
	assert.Equal(t, 2, rows[0].Orders)
	assert.True(t, rows[0].Total.Equal(decimal.RequireFromString("79.96")), rows[0].Total.String())
	assert.Equal(t, "2026-04-11", rows[1].Date)
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	u := &user.User{
		ID:           uuid.New().String(),
		Email:        "shopper-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: "hash",
		FirstName:    "Sam",
		LastName:     "Shopper",
		Role:         "customer",
		IsActive:     true,
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}
	require.NoError(t, s.CreateUser(ctx, u))

	dup := *u
	dup.ID = uuid.New().String()
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), user.ErrEmailTaken)

	got, err := s.GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	u.IsActive = false
	require.NoError(t, s.UpdateUser(ctx, u))
	got, err = s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func testProducts(t *testing.T, s Store) {
	ctx := context.Background()
	p := &product.Product{
		ID:        uuid.New().String(),
		Name:      "Teapot",
		Price:     decimal.RequireFromString("24.00"),
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	require.NoError(t, s.CreateProduct(ctx, p))

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(p.Price))

	p.Price = decimal.RequireFromString("21.50")
	require.NoError(t, s.UpdateProduct(ctx, p))
	got, err = s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("21.50")))

	list, err := s.ListProducts(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	_, err = s.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, product.ErrProductNotFound)
	assert.ErrorIs(t, s.DeleteProduct(ctx, p.ID), product.ErrProductNotFound)
}

func testUserResetFields(t *testing.T, s Store) {
	ctx := context.Background()
	u := &user.User{
		ID:           uuid.New().String(),
		Email:        "reset-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash: "old-hash",
		FirstName:    "Rae",
		Role:         "customer",
		IsActive:     true,
		CreatedAt:    baseTime,
		UpdatedAt:    baseTime,
	}
	require.NoError(t, s.CreateUser(ctx, u))

	expires := baseTime.Add(time.Hour)
	u.ResetTokenHash = "digest"
	u.ResetExpiresAt = &expires
	require.NoError(t, s.UpdateUser(ctx, u))

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "digest", got.ResetTokenHash)
	require.NotNil(t, got.ResetExpiresAt)
	assert.True(t, got.ResetExpiresAt.Equal(expires))

	u.PasswordHash = "new-hash"
	u.ResetTokenHash = ""
	u.ResetExpiresAt = nil
	require.NoError(t, s.UpdateUser(ctx, u))

	got, err = s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Empty(t, got.ResetTokenHash)
	assert.Nil(t, got.ResetExpiresAt)
}

func newTicket(owner string, created time.Time) *ticket.Ticket {
	return &ticket.Ticket{
		ID:        uuid.New().String(),
		UserID:    owner,
		Name:      "Sam Shopper",
		Email:     "shopper@example.com",
		Subject:   "Where is my order?",
		Message:   "It has been a week.",
		Status:    ticket.StatusOpen,
		Priority:  ticket.PriorityMedium,
		Replies:   []ticket.Reply{},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func testTickets(t *testing.T, s Store) {
	ctx := context.Background()
	owner := uuid.New().String()

	older := newTicket(owner, baseTime)
	newer := newTicket(owner, baseTime.Add(time.Hour))
	guest := newTicket("", baseTime.Add(2*time.Hour))
	for _, tk := range []*ticket.Ticket{older, newer, guest} {
		require.NoError(t, s.CreateTicket(ctx, tk))
	}

	got, err := s.GetTicket(ctx, guest.ID)
	require.NoError(t, err)
	assert.Empty(t, got.UserID)
	assert.Empty(t, got.Replies)

	mine, err := s.ListTickets(ctx, ticket.Query{UserID: owner})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)
	assert.Equal(t, older.ID, mine[1].ID)

	at := baseTime.Add(3 * time.Hour)
	updated, err := s.UpdateTicket(ctx, older.ID, ticket.Change{
		Status:    ticket.StatusInProgress,
		Reply:     &ticket.Reply{ID: uuid.New().String(), UserID: "admin", UserName: "Support", UserRole: "admin", Message: "Looking into it", CreatedAt: at},
		UpdatedAt: at,
	})
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusInProgress, updated.Status)
	assert.Equal(t, ticket.PriorityMedium, updated.Priority)
	require.Len(t, updated.Replies, 1)
	assert.Equal(t, "Looking into it", updated.Replies[0].Message)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpdateTicket(ctx, older.ID, ticket.Change{
				Reply:     &ticket.Reply{ID: uuid.New().String(), UserID: owner, Message: fmt.Sprintf("reply %d", i), CreatedAt: at},
				UpdatedAt: at,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err = s.GetTicket(ctx, older.ID)
	require.NoError(t, err)
	assert.Len(t, got.Replies, 6)

	open, err := s.ListTickets(ctx, ticket.Query{Status: ticket.StatusOpen})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	_, err = s.GetTicket(ctx, "missing")
	assert.ErrorIs(t, err, ticket.ErrTicketNotFound)
	_, err = s.UpdateTicket(ctx, "missing", ticket.Change{UpdatedAt: at})
	assert.ErrorIs(t, err, ticket.ErrTicketNotFound)
}
