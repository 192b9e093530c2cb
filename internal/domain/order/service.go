package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartSource hands the session cart to checkout and clears it afterwards.
type CartSource interface {
	Snapshot(ctx context.Context, sessionID string) (Snapshot, error)
	Clear(ctx context.Context, sessionID string) error
}

// Notifier receives best-effort lifecycle notifications.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order) error
	PaymentProcessed(ctx context.Context, o *Order) error
}

// Filter holds the listing parameters accepted from callers.
type Filter struct {
	Status Status
	From   time.Time
	To     time.Time
	Page   int
}

// PaymentResult is returned by a successful payment.
type PaymentResult struct {
	Order         *Order `json:"order"`
	TransactionID string `json:"transactionId"`
}

// Service owns the order lifecycle: creation, payment, cancellation, the admin
// status override, and owner scoped reads.
type Service struct {
	repo     Repository
	carts    CartSource
	notifier Notifier
	now      func() time.Time
	newID    func() string
}

func NewService(repo Repository, carts CartSource, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		carts:    carts,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
}

// Create places an order for actor from a cart snapshot.
func (s *Service) Create(ctx context.Context, actor auth.Principal, snap Snapshot, customer Customer) (*Order, error) {
	if !actor.Authenticated() {
		return nil, ErrLoginRequired
	}
	items, total, err := validateSnapshot(snap)
	if err != nil {
		return nil, err
	}
	customer, err = validateCustomer(customer)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		ID:              s.newID(),
		UserID:          actor.ID,
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
		ShippingAddress: customer.ShippingAddress,
		Items:           items,
		TotalAmount:     total,
		Status:          StatusToPay,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	log.Printf("[Order] Created order %s for user %s (total %s)", o.ID, o.UserID, o.TotalAmount.StringFixed(2))
	if s.notifier != nil {
		if err := s.notifier.OrderPlaced(ctx, o); err != nil {
			log.Printf("[Order] Failed to send confirmation for order %s: %v", o.ID, err)
		}
	}
	return o, nil
}

// Checkout creates an order from the session cart and clears the cart.
func (s *Service) Checkout(ctx context.Context, actor auth.Principal, sessionID string, customer Customer) (*Order, error) {
	if !actor.Authenticated() {
		return nil, ErrLoginRequired
	}
	if s.carts == nil {
		return nil, errors.New("checkout requires a cart source")
	}
	snap, err := s.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if len(snap.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	o, err := s.Create(ctx, actor, snap, customer)
	if err != nil {
		return nil, err
	}
	if err := s.carts.Clear(ctx, sessionID); err != nil {
		// The order is already stored; a stale cart is recoverable by the user.
		log.Printf("[Order] Failed to clear cart for session %s after order %s: %v", sessionID, o.ID, err)
	}
	return o, nil
}

// Get returns an order visible to actor.
func (s *Service) Get(ctx context.Context, actor auth.Principal, orderID string) (*Order, error) {
	if !actor.Authenticated() {
		return nil, ErrLoginRequired
	}
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(o.UserID) {
		return nil, ErrNotOrderOwner
	}
	return o, nil
}

// Payable returns an order that actor may pay right now.
func (s *Service) Payable(ctx context.Context, actor auth.Principal, orderID string) (*Order, error) {
	o, err := s.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusToPay {
		return nil, ErrNotPayable
	}
	return o, nil
}

// Pay records a simulated payment and moves the order from to_pay to to_ship.
// The order is located and its owner and state checked before rawMethod is
// parsed. Concurrent payments for the same order race on a conditional
// update; only one succeeds.
func (s *Service) Pay(ctx context.Context, actor auth.Principal, orderID, rawMethod string, details PaymentDetails) (*PaymentResult, error) {
	o, err := s.Payable(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	method, err := ParseMethod(rawMethod)
	if err != nil {
		return nil, err
	}
	if err := details.Validate(method); err != nil {
		return nil, err
	}

	now := s.now()
	info := newPaymentInfo(method, details, now, s.newID())
	updated, err := s.repo.TransitionOrder(ctx, o.ID, []Status{StatusToPay}, Change{
		Status:      StatusToShip,
		PaymentInfo: info,
		UpdatedAt:   now,
	})
	if errors.Is(err, ErrStatusConflict) {
		return nil, ErrNotPayable
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[Order] Payment %s recorded for order %s via %s", info.TransactionID, updated.ID, method)
	if s.notifier != nil {
		if err := s.notifier.PaymentProcessed(ctx, updated); err != nil {
			log.Printf("[Order] Failed to send receipt for order %s: %v", updated.ID, err)
		}
	}
	return &PaymentResult{Order: updated, TransactionID: info.TransactionID}, nil
}

// OverrideStatus is the admin override: it writes any status in the
// vocabulary regardless of the current one.
func (s *Service) OverrideStatus(ctx context.Context, actor auth.Principal, orderID string, status Status) (*Order, error) {
	if !actor.Authenticated() {
		return nil, ErrLoginRequired
	}
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}

	current, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.TransitionOrder(ctx, orderID, nil, Change{Status: status, UpdatedAt: s.now()})
	if err != nil {
		return nil, err
	}

	if current.Status != status && !CanTransition(current.Status, status) {
		log.Printf("[Order] Admin %s overrode order %s from %s to %s outside the lifecycle", actor.ID, orderID, current.Status, status)
	} else {
		log.Printf("[Order] Admin %s set order %s to %s", actor.ID, orderID, status)
	}
	return updated, nil
}

// Cancel moves a non-terminal order to cancelled.
func (s *Service) Cancel(ctx context.Context, actor auth.Principal, orderID string) (*Order, error) {
	o, err := s.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return nil, ErrNotCancellable
	}

	updated, err := s.repo.TransitionOrder(ctx, o.ID, sourcesOf(StatusCancelled), Change{
		Status:    StatusCancelled,
		UpdatedAt: s.now(),
	})
	if errors.Is(err, ErrStatusConflict) {
		return nil, ErrNotCancellable
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[Order] Order %s cancelled by %s", orderID, actor.ID)
	return updated, nil
}

// List returns a page of orders. Non-admins only ever see their own.
func (s *Service) List(ctx context.Context, actor auth.Principal, f Filter) (*Page, error) {
	if !actor.Authenticated() {
		return nil, ErrLoginRequired
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, f.Status)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	q := Query{
		Status: f.Status,
		From:   f.From,
		To:     f.To,
		Offset: (page - 1) * PageSize,
		Limit:  PageSize,
	}
	if !actor.IsAdmin() {
		q.UserID = actor.ID
	}

	orders, total, err := s.repo.ListOrders(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	totalPages := (total + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	return &Page{
		Orders:     orders,
		Page:       page,
		TotalPages: totalPages,
		TotalCount: total,
		Status:     f.Status,
	}, nil
}

// maxPage keeps (page-1)*PageSize inside int.
const maxPage = math.MaxInt/PageSize + 1

func validateSnapshot(snap Snapshot) ([]Item, decimal.Decimal, error) {
	if len(snap.Items) == 0 {
		return nil, decimal.Zero, ErrEmptyOrder
	}
	items := make([]Item, 0, len(snap.Items))
	for i, item := range snap.Items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.ProductID == "" {
			return nil, decimal.Zero, apperr.Validation("item %d has no product id", i+1)
		}
		if item.Quantity < 1 {
			return nil, decimal.Zero, apperr.Validation("item %d must have a positive quantity", i+1)
		}
		if item.Price.IsNegative() {
			return nil, decimal.Zero, apperr.Validation("item %d has a negative price", i+1)
		}
		if !WholeCents(item.Price) || !WholeCents(item.Subtotal) {
			return nil, decimal.Zero, apperr.Validation("item %d amounts must not go below a cent", i+1)
		}
		expected := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if item.Subtotal.IsZero() {
			item.Subtotal = expected
		} else if !item.Subtotal.Equal(expected) {
			return nil, decimal.Zero, apperr.Validation("item %d subtotal does not match price and quantity", i+1)
		}
		items = append(items, item)
	}

	total := SumSubtotals(items)
	if !WholeCents(snap.TotalAmount) {
		return nil, decimal.Zero, apperr.Validation("order total must not go below a cent")
	}
	if !snap.TotalAmount.IsZero() && !snap.TotalAmount.Equal(total) {
		return nil, decimal.Zero, apperr.Validation("order total %s does not match item subtotals %s",
			snap.TotalAmount.StringFixed(2), total.StringFixed(2))
	}
	return items, total, nil
}

func validateCustomer(c Customer) (Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.ShippingAddress = strings.TrimSpace(c.ShippingAddress)
	if c.Name == "" || c.Email == "" || c.ShippingAddress == "" {
		return c, apperr.Validation("please provide name, email, and shipping address")
	}
	if !validEmail(c.Email) {
		return c, apperr.Validation("invalid customer email %q", c.Email)
	}
	return c, nil
}
