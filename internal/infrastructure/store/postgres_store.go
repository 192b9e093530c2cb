package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/domain/ticket"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/example/ec-storefront/internal/report"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id         TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	customer_name    TEXT NOT NULL DEFAULT '',
	customer_email   TEXT NOT NULL DEFAULT '',
	shipping_address TEXT NOT NULL DEFAULT '',
	items            JSONB NOT NULL,
	total_amount     NUMERIC(14, 2) NOT NULL,
	order_status     TEXT NOT NULL,
	payment_info     JSONB,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders (user_id, created_at DESC, order_id DESC);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (order_status);
CREATE INDEX IF NOT EXISTS idx_orders_items ON orders USING GIN (items jsonb_path_ops);

CREATE TABLE IF NOT EXISTS users (
	user_id       TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	role          TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
ALTER TABLE users ADD COLUMN IF NOT EXISTS reset_token_hash TEXT NOT NULL DEFAULT '';
ALTER TABLE users ADD COLUMN IF NOT EXISTS reset_expires_at TIMESTAMPTZ;

CREATE TABLE IF NOT EXISTS products (
	product_id  TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price       NUMERIC(14, 2) NOT NULL,
	image_url   TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tickets (
	ticket_id  TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL DEFAULT '',
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	subject    TEXT NOT NULL,
	message    TEXT NOT NULL,
	status     TEXT NOT NULL,
	priority   TEXT NOT NULL,
	replies    JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tickets_user_created ON tickets (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets (status);
`

const orderColumns = `order_id, user_id, customer_name, customer_email, shipping_address,
	items, total_amount, order_status, payment_info, created_at, updated_at`

// PostgresStore keeps each order as a row with its items and payment record in
// JSONB columns.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Migrate creates the schema and rewrites legacy spaced status values.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	for legacy, canonical := range order.LegacyStatusSpellings() {
		res, err := s.db.ExecContext(ctx,
			`UPDATE orders SET order_status = $1 WHERE order_status = $2`, string(canonical), legacy)
		if err != nil {
			return fmt.Errorf("failed to migrate status %q: %w", legacy, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Printf("[PostgresStore] Migrated %d orders from %q to %q", n, legacy, canonical)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Order operations

func (s *PostgresStore) CreateOrder(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	paymentJSON, err := paymentParam(o.PaymentInfo)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, o.ID, o.UserID, o.CustomerName, o.CustomerEmail, o.ShippingAddress,
		itemsJSON, o.TotalAmount, string(o.Status), paymentJSON, o.CreatedAt, o.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		log.Printf("[PostgresStore] Error getting order: %v", err)
		return nil, err
	}
	return o, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, q order.Query) ([]*order.Order, int, error) {
	where, args := orderWhere(q)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC, order_id DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := []*order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Printf("[PostgresStore] Error scanning order: %v", err)
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// TransitionOrder is a single conditional UPDATE; the status guard and the
// write happen atomically in the database.
func (s *PostgresStore) TransitionOrder(ctx context.Context, orderID string, from []order.Status, change order.Change) (*order.Order, error) {
	paymentJSON, err := paymentParam(change.PaymentInfo)
	if err != nil {
		return nil, err
	}
	args := []any{orderID, string(change.Status), paymentJSON, change.UpdatedAt}
	query := `
		UPDATE orders
		SET order_status = $2, payment_info = COALESCE($3::jsonb, payment_info), updated_at = $4
		WHERE order_id = $1`
	if len(from) > 0 {
		args = append(args, pq.Array(statusStrings(from)))
		query += ` AND order_status = ANY($5)`
	}
	query += ` RETURNING ` + orderColumns

	o, err := scanOrder(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE order_id = $1)`, orderID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, order.ErrOrderNotFound
		}
		return nil, order.ErrStatusConflict
	}
	if err != nil {
		log.Printf("[PostgresStore] Error updating order %s: %v", orderID, err)
		return nil, err
	}
	return o, nil
}

func (s *PostgresStore) HasOrdersForProduct(ctx context.Context, productID string) (bool, error) {
	contains, err := json.Marshal([]map[string]string{{"productId": productID}})
	if err != nil {
		return false, err
	}
	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE items @> $1::jsonb)`, contains).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) DailySales(ctx context.Context, q order.Query) ([]report.DailyRow, error) {
	where, args := orderWhere(order.Query{Status: q.Status, From: q.From, To: q.To})
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
		       COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM orders`+where+`
		GROUP BY day
		ORDER BY day`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []report.DailyRow{}
	for rows.Next() {
		var r report.DailyRow
		if err := rows.Scan(&r.Date, &r.Total, &r.Orders); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o           order.Order
		status      string
		itemsJSON   []byte
		paymentJSON []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &o.CustomerName, &o.CustomerEmail, &o.ShippingAddress,
		&itemsJSON, &o.TotalAmount, &status, &paymentJSON, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items of order %s: %w", o.ID, err)
	}
	if len(paymentJSON) > 0 {
		o.PaymentInfo = &order.PaymentInfo{}
		if err := json.Unmarshal(paymentJSON, o.PaymentInfo); err != nil {
			return nil, fmt.Errorf("failed to decode payment of order %s: %w", o.ID, err)
		}
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

func orderWhere(q order.Query) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if q.UserID != "" {
		add("user_id = $%d", q.UserID)
	}
	if q.Status != "" {
		add("order_status = $%d", string(q.Status))
	}
	if !q.From.IsZero() {
		add("created_at >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("created_at <= $%d", q.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func paymentParam(info *order.PaymentInfo) (any, error) {
	if info == nil {
		return nil, nil
	}
	b, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func statusStrings(statuses []order.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// User operations

const userColumns = `user_id, email, password_hash, first_name, last_name, role, is_active, created_at, updated_at,
	reset_token_hash, reset_expires_at`

func (s *PostgresStore) CreateUser(ctx context.Context, u *user.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt,
		u.ResetTokenHash, u.ResetExpiresAt)
	if isUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	return err
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*user.User, error) {
	return s.getUserBy(ctx, "user_id", userID)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.getUserBy(ctx, "lower(email)", strings.ToLower(email))
}

func (s *PostgresStore) getUserBy(ctx context.Context, column, value string) (*user.User, error) {
	var (
		u       user.User
		expires sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
			&u.ResetTokenHash, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		log.Printf("[PostgresStore] Error getting user: %v", err)
		return nil, err
	}
	if expires.Valid {
		t := expires.Time.UTC()
		u.ResetExpiresAt = &t
	}
	return &u, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u *user.User) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, first_name = $3, last_name = $4, role = $5, is_active = $6,
			updated_at = $7, reset_token_hash = $8, reset_expires_at = $9
		WHERE user_id = $1
	`, u.ID, u.PasswordHash, u.FirstName, u.LastName, u.Role, u.IsActive, u.UpdatedAt, u.ResetTokenHash, u.ResetExpiresAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// Product operations

const productColumns = `product_id, name, description, price, image_url, created_at, updated_at`

func (s *PostgresStore) CreateProduct(ctx context.Context, p *product.Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.Description, p.Price, p.ImageURL, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

func (s *PostgresStore) GetProduct(ctx context.Context, productID string) (*product.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE product_id = $1`, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, product.ErrProductNotFound
	}
	return p, err
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]*product.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, product_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*product.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p *product.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET name = $2, description = $3, price = $4, image_url = $5, updated_at = $6
		WHERE product_id = $1
	`, p.ID, p.Name, p.Description, p.Price, p.ImageURL, p.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return product.ErrProductNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, productID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE product_id = $1`, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return product.ErrProductNotFound
	}
	return nil
}

func scanProduct(row rowScanner) (*product.Product, error) {
	var p product.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Ticket operations

const ticketColumns = `ticket_id, user_id, name, email, subject, message, status, priority, replies, created_at, updated_at`

func (s *PostgresStore) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	replies, err := json.Marshal(nonNilReplies(t.Replies))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tickets (`+ticketColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.UserID, t.Name, t.Email, t.Subject, t.Message, string(t.Status), string(t.Priority), string(replies), t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

func (s *PostgresStore) GetTicket(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1`, ticketID)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ticket.ErrTicketNotFound
	}
	return t, err
}

func (s *PostgresStore) ListTickets(ctx context.Context, q ticket.Query) ([]*ticket.Ticket, error) {
	var (
		conds []string
		args  []any
	)
	if q.UserID != "" {
		args = append(args, q.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets `+where+` ORDER BY created_at DESC, ticket_id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []*ticket.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// UpdateTicket appends replies with jsonb concatenation so concurrent replies
// never overwrite each other.
func (s *PostgresStore) UpdateTicket(ctx context.Context, ticketID string, change ticket.Change) (*ticket.Ticket, error) {
	var reply any
	if change.Reply != nil {
		encoded, err := json.Marshal([]ticket.Reply{*change.Reply})
		if err != nil {
			return nil, err
		}
		reply = string(encoded)
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE tickets SET
			status = COALESCE(NULLIF($2, ''), status),
			priority = COALESCE(NULLIF($3, ''), priority),
			replies = CASE WHEN $4::jsonb IS NULL THEN replies ELSE replies || $4::jsonb END,
			updated_at = $5
		WHERE ticket_id = $1
		RETURNING `+ticketColumns,
		ticketID, string(change.Status), string(change.Priority), reply, change.UpdatedAt)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ticket.ErrTicketNotFound
	}
	return t, err
}

func scanTicket(row rowScanner) (*ticket.Ticket, error) {
	var (
		t       ticket.Ticket
		replies []byte
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Email, &t.Subject, &t.Message, &t.Status, &t.Priority,
		&replies, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(replies, &t.Replies); err != nil {
		return nil, fmt.Errorf("failed to decode replies of ticket %s: %w", t.ID, err)
	}
	t.Replies = nonNilReplies(t.Replies)
	t.CreatedAt, t.UpdatedAt = t.CreatedAt.UTC(), t.UpdatedAt.UTC()
	return &t, nil
}

func nonNilReplies(replies []ticket.Reply) []ticket.Reply {
	if replies == nil {
		return []ticket.Reply{}
	}
	return replies
}
