package cart

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = apperr.Validation("quantity must be positive")
	ErrInvalidProduct  = apperr.Validation("productId is required")
	ErrItemNotInCart   = apperr.NotFound("item is not in the cart")
	ErrNoSession       = apperr.Validation("missing session")
)

type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

// Cart is the session scoped basket. Items keep insertion order.
type Cart struct {
	Items       []Item          `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c *Cart) index(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// add merges quantity into an existing line or appends a new one. The price
// is refreshed from the catalog on every add.
func (c *Cart) add(p *product.Product, quantity int) {
	if i := c.index(p.ID); i >= 0 {
		c.Items[i].Quantity += quantity
		c.Items[i].Price = p.Price
		c.Items[i].Name = p.Name
	} else {
		c.Items = append(c.Items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  quantity,
			ImageURL:  p.ImageURL,
		})
	}
	c.recompute()
}

func (c *Cart) setQuantity(productID string, quantity int) error {
	i := c.index(productID)
	if i < 0 {
		return ErrItemNotInCart
	}
	if quantity == 0 {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	} else {
		c.Items[i].Quantity = quantity
	}
	c.recompute()
	return nil
}

func (c *Cart) remove(productID string) error {
	return c.setQuantity(productID, 0)
}

func (c *Cart) recompute() {
	total := decimal.Zero
	for i := range c.Items {
		c.Items[i].Subtotal = c.Items[i].Price.Mul(decimal.NewFromInt(int64(c.Items[i].Quantity)))
		total = total.Add(c.Items[i].Subtotal)
	}
	c.TotalAmount = total
}

// Snapshot copies the cart into the shape order creation consumes.
func (c *Cart) Snapshot() order.Snapshot {
	items := make([]order.Item, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, order.Item{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		})
	}
	return order.Snapshot{Items: items, TotalAmount: c.TotalAmount}
}

// Store keeps carts by session id. Get returns an empty cart for unknown
// sessions.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Clear(ctx context.Context, sessionID string) error
}

// Catalog resolves products for add-to-cart.
type Catalog interface {
	Get(ctx context.Context, productID string) (*product.Product, error)
}

type Service struct {
	store   Store
	catalog Catalog
}

func NewService(store Store, catalog Catalog) *Service {
	return &Service{store: store, catalog: catalog}
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	return s.store.Get(ctx, sessionID)
}

func (s *Service) AddItem(ctx context.Context, sessionID, productID string, quantity int) (*Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, sessionID, func(c *Cart) error {
		c.add(p, quantity)
		return nil
	})
}

// UpdateQuantity sets the quantity of a line; zero removes it.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*Cart, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		return c.setQuantity(productID, quantity)
	})
}

func (s *Service) RemoveItem(ctx context.Context, sessionID, productID string) (*Cart, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		return c.remove(productID)
	})
}

func (s *Service) mutate(ctx context.Context, sessionID string, fn func(c *Cart) error) (*Cart, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	return c, nil
}

// Snapshot implements order.CartSource.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (order.Snapshot, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return order.Snapshot{}, err
	}
	return c.Snapshot(), nil
}

// Clear implements order.CartSource.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return err
	}
	log.Printf("[Cart] Cleared cart for session %s", sessionID)
	return nil
}
