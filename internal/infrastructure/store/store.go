// Package store holds the order, user, product and ticket repositories: an
// in-memory implementation, PostgreSQL with JSONB documents, and MongoDB.
package store

import (
	"errors"

	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/domain/ticket"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/example/ec-storefront/internal/report"
)

var ErrDuplicateID = errors.New("document with this id already exists")

// Store is the full persistence surface wired by cmd/api.
type Store interface {
	order.Repository
	user.Repository
	product.Repository
	product.OrderReferences
	ticket.Repository
	report.Source
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MongoStore)(nil)
)

func (s *MemoryStore) Close() error { return nil }
