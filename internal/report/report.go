// Package report builds the admin sales overview and its spreadsheet exports.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/shopspring/decimal"
)

// RecentLimit caps the orders shown on the overview page.
const RecentLimit = 200

var ErrAdminOnly = apperr.Forbidden("admin role required")

// DailyRow aggregates orders created on one UTC calendar day.
type DailyRow struct {
	Date   string          `json:"date"`
	Total  decimal.Decimal `json:"total"`
	Orders int             `json:"orders"`
}

type Summary struct {
	TotalSales  decimal.Decimal `json:"totalSales"`
	OrdersCount int             `json:"ordersCount"`
}

// Filter narrows a report by creation date and status.
type Filter struct {
	From   time.Time    `json:"-"`
	To     time.Time    `json:"-"`
	Status order.Status `json:"status,omitempty"`
}

func (f Filter) query() order.Query {
	return order.Query{From: f.From, To: f.To, Status: f.Status}
}

// Source is implemented by each order store. DailySales must return rows in
// ascending date order.
type Source interface {
	DailySales(ctx context.Context, q order.Query) ([]DailyRow, error)
	ListOrders(ctx context.Context, q order.Query) ([]*order.Order, int, error)
}

type Sales struct {
	Summary Summary        `json:"summary"`
	Daily   []DailyRow     `json:"daily"`
	Orders  []*order.Order `json:"orders"`
}

type Service struct {
	src Source
}

func NewService(src Source) *Service {
	return &Service{src: src}
}

// Sales returns the summary, per-day rows, and the most recent orders.
func (s *Service) Sales(ctx context.Context, actor auth.Principal, f Filter) (*Sales, error) {
	daily, err := s.Daily(ctx, actor, f)
	if err != nil {
		return nil, err
	}
	q := f.query()
	q.Limit = RecentLimit
	recent, _, err := s.src.ListOrders(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent orders: %w", err)
	}
	return &Sales{Summary: Summarize(daily), Daily: daily, Orders: recent}, nil
}

func (s *Service) Daily(ctx context.Context, actor auth.Principal, f Filter) ([]DailyRow, error) {
	if err := authorize(actor, f); err != nil {
		return nil, err
	}
	rows, err := s.src.DailySales(ctx, f.query())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily sales: %w", err)
	}
	return rows, nil
}

// Detailed returns every matching order, newest first.
func (s *Service) Detailed(ctx context.Context, actor auth.Principal, f Filter) ([]*order.Order, error) {
	if err := authorize(actor, f); err != nil {
		return nil, err
	}
	orders, _, err := s.src.ListOrders(ctx, f.query())
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	return orders, nil
}

func authorize(actor auth.Principal, f Filter) error {
	if !actor.Authenticated() {
		return order.ErrLoginRequired
	}
	if !actor.IsAdmin() {
		return ErrAdminOnly
	}
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("%w: %q", order.ErrUnknownStatus, f.Status)
	}
	return nil
}

// Summarize totals the daily rows.
func Summarize(rows []DailyRow) Summary {
	s := Summary{TotalSales: decimal.Zero}
	for _, r := range rows {
		s.TotalSales = s.TotalSales.Add(r.Total)
		s.OrdersCount += r.Orders
	}
	return s
}

// GroupDaily buckets orders by UTC creation date. Stores without a native
// aggregation use it.
func GroupDaily(orders []*order.Order) []DailyRow {
	byDate := make(map[string]*DailyRow)
	for _, o := range orders {
		day := o.CreatedAt.UTC().Format(order.DateLayout)
		row, ok := byDate[day]
		if !ok {
			row = &DailyRow{Date: day, Total: decimal.Zero}
			byDate[day] = row
		}
		row.Total = row.Total.Add(o.TotalAmount)
		row.Orders++
	}

	rows := make([]DailyRow, 0, len(byDate))
	for _, row := range byDate {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows
}
