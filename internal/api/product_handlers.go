package api

import (
	"net/http"
	"strings"

	"github.com/example/ec-storefront/internal/api/respond"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/go-chi/chi/v5"
)

// Product Handlers

// ListProducts serves the catalog, optionally narrowed by ?q= on name and
// description.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respond.Error(w, r, err, "/")
		return
	}

	if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q"))); q != "" {
		matched := products[:0]
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
				matched = append(matched, p)
			}
		}
		products = matched
	}
	respond.JSON(w, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		respond.Error(w, r, err, "/products")
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	in, err := productInput(r)
	if err != nil {
		respond.Error(w, r, err, "/products")
		return
	}

	p, err := h.products.Create(r.Context(), principal(r), in)
	if err != nil {
		respond.Error(w, r, err, "/products")
		return
	}
	respond.Done(w, r, http.StatusCreated, p, "/products", "Product added successfully")
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	in, err := productInput(r)
	if err != nil {
		respond.Error(w, r, err, "/products")
		return
	}

	p, err := h.products.Update(r.Context(), principal(r), chi.URLParam(r, "productId"), in)
	if err != nil {
		respond.Error(w, r, err, "/products")
		return
	}
	respond.Done(w, r, http.StatusOK, p, "/products", "Product updated successfully")
}

// DeleteProduct refuses products that existing orders still reference.
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if err := h.products.Delete(r.Context(), principal(r), productID); err != nil {
		respond.Error(w, r, err, "/products")
		return
	}
	respond.Done(w, r, http.StatusOK, map[string]string{"message": "Product deleted"}, "/products", "Product deleted successfully")
}

// productInput accepts name or the older productName field.
func productInput(r *http.Request) (product.Input, error) {
	f, err := parseForm(r)
	if err != nil {
		return product.Input{}, err
	}
	price, err := f.Decimal("price")
	if err != nil {
		return product.Input{}, err
	}
	name := f.String("name")
	if name == "" {
		name = f.String("productName")
	}
	return product.Input{
		Name:        name,
		Description: f.String("description"),
		Price:       price,
		ImageURL:    f.String("imageUrl"),
	}, nil
}
