package product

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = apperr.NotFound("product not found")
	ErrInvalidPrice    = apperr.Validation("price must be positive")
	ErrSubCentPrice    = apperr.Validation("price must be in whole cents")
	ErrInvalidName     = apperr.Validation("name is required")
	ErrProductInUse    = apperr.InvalidState("product is referenced by existing orders")
	ErrAdminOnly       = apperr.Forbidden("admin role required")
)

type Product struct {
	ID          string          `json:"productId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Input is the create and update form.
type Input struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
}

func (in Input) validate() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Name == "" {
		return in, ErrInvalidName
	}
	if !in.Price.IsPositive() {
		return in, ErrInvalidPrice
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return in, ErrSubCentPrice
	}
	return in, nil
}

// Repository persists the catalog. Lookups return ErrProductNotFound.
type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, productID string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, productID string) error
}

// OrderReferences answers whether any order still points at a product.
type OrderReferences interface {
	HasOrdersForProduct(ctx context.Context, productID string) (bool, error)
}

type Service struct {
	repo   Repository
	orders OrderReferences
}

func NewService(repo Repository, orders OrderReferences) *Service {
	return &Service{repo: repo, orders: orders}
}

func (s *Service) Create(ctx context.Context, actor auth.Principal, in Input) (*Product, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Product{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save product: %w", err)
	}
	log.Printf("[Product] Created product %s (%s)", p.ID, p.Name)
	return p, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Principal, productID string, in Input) (*Product, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.ImageURL = in.ImageURL
	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return p, nil
}

// Delete removes a product no order references. Orders keep their own item
// snapshots, but the catalog entry stays while any order points at it.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, productID string) error {
	if !actor.IsAdmin() {
		return ErrAdminOnly
	}
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return err
	}
	referenced, err := s.orders.HasOrdersForProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to check order references: %w", err)
	}
	if referenced {
		return ErrProductInUse
	}
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return err
	}
	log.Printf("[Product] Deleted product %s", productID)
	return nil
}

func (s *Service) Get(ctx context.Context, productID string) (*Product, error) {
	return s.repo.GetProduct(ctx, productID)
}

func (s *Service) List(ctx context.Context) ([]*Product, error) {
	return s.repo.ListProducts(ctx)
}
