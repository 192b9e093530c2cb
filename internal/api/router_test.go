package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/domain/ticket"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	testJWTSecret  = "router-test-secret-key-with-enough-bytes"
	adminEmail     = "admin@example.com"
	adminPassword  = "admin-password"
	clientPassword = "password123"
	testBaseURL    = "http://shop.test"
)

type testApp struct {
	t      *testing.T
	server *httptest.Server
	store  *store.MemoryStore
	inbox  *resetInbox
}

// resetInbox captures password reset links instead of mailing them.
type resetInbox struct {
	mu    sync.Mutex
	links map[string]string
}

func (i *resetInbox) PasswordReset(_ context.Context, u *user.User, resetURL string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.links[u.Email] = resetURL
	return nil
}

func (i *resetInbox) link(email string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.links[email]
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	st := store.NewMemoryStore()

	products := product.NewService(st, st)
	carts := cart.NewService(cart.NewMemoryStore(), products)
	orders := order.NewService(st, carts, nil)
	reports := report.NewService(st)
	inbox := &resetInbox{links: map[string]string{}}
	users := user.NewService(st, auth.NewHasher(bcrypt.MinCost), inbox, testBaseURL)
	tickets := ticket.NewService(st, users)
	jwtService := auth.NewJWTService(testJWTSecret, time.Hour)

	_, _, err := users.EnsureAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	router := NewRouter(
		NewHandlers(orders, carts, products, reports),
		NewAuthHandlers(users, jwtService, carts, false),
		NewTicketHandlers(tickets),
		RouterConfig{JWT: jwtService, SessionTTL: time.Hour, Accounts: users},
	)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testApp{t: t, server: server, store: st, inbox: inbox}
}

// client is a browser-like visitor with its own cookie jar.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (a *testApp) visitor() *client {
	jar, err := cookiejar.New(nil)
	require.NoError(a.t, err)
	return &client{
		t:    a.t,
		base: a.server.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (a *testApp) login(email, password string) *client {
	c := a.visitor()
	resp, _ := c.postJSON("/users/login", map[string]any{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, resp.StatusCode)
	return c
}

func (a *testApp) customer(email string) *client {
	c := a.visitor()
	resp, body := c.postJSON("/users/register", map[string]any{
		"email":     email,
		"password":  clientPassword,
		"firstName": "Test",
		"lastName":  "Customer",
	})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode, string(body))
	return c
}

func (c *client) do(req *http.Request) (*http.Response, []byte) {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, body
}

func (c *client) get(path string) (*http.Response, []byte) {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *client) postJSON(path string, payload any) (*http.Response, []byte) {
	b, err := json.Marshal(payload)
	require.NoError(c.t, err)
	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(b))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *client) postForm(path string, values url.Values) (*http.Response, []byte) {
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(values.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	return c.do(req)
}

func decodeInto[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

type placedOrder struct {
	Success bool         `json:"success"`
	Order   *order.Order `json:"order"`
}

var customerFields = map[string]any{
	"customerName":    "Alice Example",
	"customerEmail":   "alice@example.com",
	"shippingAddress": "1 Main St",
}

func orderPayload(items []map[string]any, total string) map[string]any {
	payload := map[string]any{"items": items, "totalAmount": total}
	for k, v := range customerFields {
		payload[k] = v
	}
	return payload
}

func placeOrder(t *testing.T, c *client) *order.Order {
	t.Helper()
	resp, body := c.postJSON("/orders", orderPayload([]map[string]any{
		{"productId": "p-1", "name": "Mug", "price": "10", "quantity": 2, "subtotal": "20"},
		{"productId": "p-2", "name": "Tea", "price": "10", "quantity": 1, "subtotal": "10"},
	}, "30"))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	placed := decodeInto[placedOrder](t, body)
	require.NotNil(t, placed.Order)
	return placed.Order
}

func TestRouter_Healthz(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.visitor().get("/healthz")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRouter_OwnershipCancelThenPayScenario(t *testing.T) {
	app := newTestApp(t)
	alice := app.customer("alice@example.com")
	bob := app.customer("bob@example.com")
	admin := app.login(adminEmail, adminPassword)

	o1 := placeOrder(t, alice)
	assert.Equal(t, order.StatusToPay, o1.Status)
	assert.True(t, o1.TotalAmount.Equal(decimal.NewFromInt(30)))
	assert.Len(t, o1.Items, 2)

	resp, _ := bob.get("/orders/" + o1.ID)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := admin.get("/orders/" + o1.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, o1.ID, decodeInto[order.Order](t, body).ID)

	resp, body = alice.postJSON("/orders/"+o1.ID+"/cancel", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, order.StatusCancelled, decodeInto[placedOrder](t, body).Order.Status)

	resp, body = alice.postJSON("/payment/process/"+o1.ID, map[string]any{"paymentMethod": "cod"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	paid := decodeInto[PaymentResponse](t, body)
	assert.False(t, paid.Success)
	assert.NotEmpty(t, paid.Message)
}

func TestRouter_CardPayment(t *testing.T) {
	app := newTestApp(t)
	alice := app.customer("alice@example.com")
	o := placeOrder(t, alice)

	resp, body := alice.get("/payment/pay/" + o.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"card"`)

	resp, body = alice.postJSON("/payment/process/"+o.ID, map[string]any{
		"paymentMethod": "card",
		"cardNumber":    "4111 1111 1111 1111",
		"cardName":      "Alice Example",
		"expiryDate":    "12/30",
		"cvv":           "123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	paid := decodeInto[PaymentResponse](t, body)
	assert.True(t, paid.Success)
	assert.Equal(t, o.ID, paid.OrderID)
	assert.True(t, strings.HasPrefix(paid.TransactionID, "TXN-"))

	stored, err := app.store.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusToShip, stored.Status)
	require.NotNil(t, stored.PaymentInfo)
	assert.Equal(t, "1111", stored.PaymentInfo.CardLast4)
	assert.NotNil(t, stored.PaymentInfo.PaidAt)

	resp, _ = alice.get("/payment/pay/" + o.ID)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRouter_InvalidPaymentLeavesOrderUntouched(t *testing.T) {
	app := newTestApp(t)
	alice := app.customer("alice@example.com")
	o := placeOrder(t, alice)

	resp, body := alice.postJSON("/payment/process/"+o.ID, map[string]any{
		"paymentMethod": "card",
		"cardNumber":    "4111",
		"cardName":      "Alice",
		"expiryDate":    "12/30",
		"cvv":           "123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))

	resp, _ = alice.postJSON("/payment/process/"+o.ID, map[string]any{"paymentMethod": "bitcoin"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	stored, err := app.store.GetOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusToPay, stored.Status)
	assert.Nil(t, stored.PaymentInfo)
}

func TestRouter_FormOrderRedirectsToPayment(t *testing.T) {
	app := newTestApp(t)
	alice := app.customer("alice@example.com")

	values := url.Values{
		"items":           {`[{"productId":"p-1","name":"Mug","price":"12.50","quantity":2,"subtotal":"25"}]`},
		"totalAmount":     {"25"},
		"customerName":    {"Alice Example"},
		"customerEmail":   {"alice@example.com"},
		"shippingAddress": {"1 Main St"},
	}
	resp, _ := alice.postForm("/orders", values)

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/payment/pay/"))

	values.Set("totalAmount", "99")
	resp, _ = alice.postForm("/orders", values)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/cart?error="))
}

func TestRouter_Unauthenticated(t *testing.T) {
	app := newTestApp(t)
	anon := app.visitor()

	resp, _ := anon.get("/orders")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = anon.postForm("/orders", url.Values{"items": {"[]"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/users/login"))

	resp, _ = anon.postJSON("/cart/checkout", customerFields)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_ListOrdersScopedToOwner(t *testing.T) {
	app := newTestApp(t)
	alice := app.customer("alice@example.com")
	bob := app.customer("bob@example.com")
	admin := app.login(adminEmail, adminPassword)

	aliceOrder := placeOrder(t, alice)
	placeOrder(t, bob)
	placeOrder(t, bob)

	resp, body := alice.get("/orders")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodeInto[order.Page](t, body)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, aliceOrder.ID, page.Orders[0].ID)
	assert.Equal(t, 1, page.TotalPages)

	resp, body = admin.get("/orders")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, decodeInto[order.Page](t, body).TotalCount)

	resp, body = admin.get("/orders?status=to_ship")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decodeInto[order.Page](t, body).TotalCount)

	resp, _ = admin.get("/orders?status=to%20pay")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = admin.get("/orders?start=yesterday")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_AdminOverride(t *testing.T) {
	app := newTestApp(t)
	alice := app.customer("alice@example.com")
	admin := app.login(adminEmail, adminPassword)
	o := placeOrder(t, alice)

	resp, _ := alice.postJSON("/orders/"+o.ID+"/status", map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = admin.postJSON("/orders/"+o.ID+"/status", map[string]any{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = admin.postJSON("/orders/missing/status", map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := admin.postJSON("/orders/"+o.ID+"/status", map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, order.StatusCompleted, decodeInto[order.Order](t, body).Status)

	resp, _ = alice.postJSON("/orders/"+o.ID+"/cancel", map[string]any{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = admin.postForm("/orders/"+o.ID+"/status", url.Values{"status": {"refund"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/orders/"+o.ID+"?success=Order+status+updated", resp.Header.Get("Location"))
}

func TestRouter_CartCheckout(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(adminEmail, adminPassword)
	alice := app.customer("alice@example.com")

	resp, body := admin.postJSON("/products", map[string]any{"name": "Mug", "description": "Stoneware", "price": "12.50"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	mug := decodeInto[product.Product](t, body)

	resp, _ = alice.postJSON("/products", map[string]any{"name": "Fake", "price": "1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = alice.postForm("/cart/add", url.Values{"productId": {mug.ID}, "quantity": {"2"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/cart?success=Added+to+cart", resp.Header.Get("Location"))

	resp, body = alice.get("/cart")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := decodeInto[cart.Cart](t, body)
	require.Len(t, c.Items, 1)
	assert.True(t, c.TotalAmount.Equal(decimal.NewFromInt(25)))

	resp, body = alice.postJSON("/cart/checkout", customerFields)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	placed := decodeInto[placedOrder](t, body)
	assert.True(t, placed.Order.TotalAmount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, mug.ID, placed.Order.Items[0].ProductID)

	resp, body = alice.get("/cart")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeInto[cart.Cart](t, body).Items)

	resp, _ = alice.postJSON("/cart/checkout", customerFields)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = admin.postJSON("/products/"+mug.ID+"/delete", map[string]any{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRouter_SalesReports(t *testing.T) {
	app := newTestApp(t)
	alice := app.customer("alice@example.com")
	admin := app.login(adminEmail, adminPassword)
	placeOrder(t, alice)
	placeOrder(t, alice)

	resp, _ := alice.get("/admin/sales")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := admin.get("/admin/sales?status=to_pay")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var sales struct {
		Summary report.Summary    `json:"summary"`
		Daily   []report.DailyRow `json:"daily"`
	}
	require.NoError(t, json.Unmarshal(body, &sales))
	assert.Equal(t, 2, sales.Summary.OrdersCount)
	assert.True(t, sales.Summary.TotalSales.Equal(decimal.NewFromInt(60)))
	require.Len(t, sales.Daily, 1)

	resp, body = admin.get("/admin/sales/export/daily")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, report.ContentTypeXLSX, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), report.DailyFilename)

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Daily Sales")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "TOTAL", rows[2][0])

	resp, _ = admin.get("/admin/sales/export/detailed?status=bogus")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = admin.get("/admin/sales/print?status=to_pay")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, report.ContentTypeHTML, resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "$60.00")

	resp, _ = alice.get("/admin/sales/print")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRouter_LogoutClearsSession(t *testing.T) {
	app := newTestApp(t)
	alice := app.customer("alice@example.com")

	resp, body := alice.get("/users/me")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@example.com", decodeInto[user.User](t, body).Email)

	resp, _ = alice.postJSON("/users/logout", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = alice.get("/users/me")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_DeactivatedUserCannotLogin(t *testing.T) {
	app := newTestApp(t)
	alice := app.customer("alice@example.com")
	admin := app.login(adminEmail, adminPassword)

	resp, body := alice.get("/users/me")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	aliceID := decodeInto[user.User](t, body).ID

	resp, _ = admin.postJSON("/admin/users/"+aliceID+"/deactivate", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.visitor().postJSON("/users/login", map[string]any{"email": "alice@example.com", "password": clientPassword})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = app.visitor().postJSON("/users/login", map[string]any{"email": "alice@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = alice.postJSON("/orders", orderPayload([]map[string]any{
		{"productId": "p-1", "name": "Mug", "price": "10", "quantity": 1, "subtotal": "10"},
	}, "10"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The rejected token cookie was cleared.
	resp, _ = alice.get("/users/me")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = admin.postJSON("/admin/users/"+aliceID+"/activate", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = app.login("alice@example.com", clientPassword).get("/users/me")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_RemovedAccountTokenIsCleared(t *testing.T) {
	app := newTestApp(t)
	ghost := app.visitor()
	jwtService := auth.NewJWTService(testJWTSecret, time.Hour)
	token, _, err := jwtService.GenerateAccessToken(auth.Principal{ID: "no-such-user", Role: auth.RoleCustomer})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ghost.base+"/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ := ghost.do(req)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == "access_token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestRouter_PaymentChecksOrderBeforeMethod(t *testing.T) {
	app := newTestApp(t)
	alice := app.customer("alice@example.com")
	bob := app.customer("bob@example.com")
	o := placeOrder(t, alice)
	cancelled := placeOrder(t, alice)
	resp, _ := alice.postJSON("/orders/"+cancelled.ID+"/cancel", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	bitcoin := map[string]any{"paymentMethod": "bitcoin"}

	resp, _ = bob.postJSON("/payment/process/"+o.ID, bitcoin)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = alice.postJSON("/payment/process/missing", bitcoin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = alice.postJSON("/payment/process/"+cancelled.ID, bitcoin)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = alice.postJSON("/payment/process/"+o.ID, bitcoin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_HugePageNumber(t *testing.T) {
	app := newTestApp(t)
	alice := app.customer("alice@example.com")
	placeOrder(t, alice)

	resp, body := alice.get("/orders?page=1000000000000000000")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	page := decodeInto[order.Page](t, body)
	assert.Empty(t, page.Orders)
	assert.Equal(t, 1, page.TotalCount)
}

func TestRouter_PasswordReset(t *testing.T) {
	app := newTestApp(t)
	app.customer("alice@example.com")
	anon := app.visitor()

	resp, body := anon.postJSON("/password/forgot", map[string]any{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "If an account with that email exists")

	resp, body = anon.postJSON("/password/forgot", map[string]any{"email": "Alice@Example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	link := app.inbox.link("alice@example.com")
	require.True(t, strings.HasPrefix(link, testBaseURL+"/password/reset/"), link)
	path := strings.TrimPrefix(link, testBaseURL)

	resp, _ = anon.postJSON(path, map[string]any{"password": "N3w!Passw0rd", "confirmPassword": "different"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = anon.postJSON(path, map[string]any{"password": "weakpassword", "confirmPassword": "weakpassword"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = anon.postJSON(path, map[string]any{"password": "N3w!Passw0rd", "confirmPassword": "N3w!Passw0rd"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _ = anon.postJSON(path, map[string]any{"password": "An0ther!Pass", "confirmPassword": "An0ther!Pass"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = app.visitor().postJSON("/users/login", map[string]any{"email": "alice@example.com", "password": clientPassword})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	app.login("alice@example.com", "N3w!Passw0rd")

	resp, _ = anon.postForm("/password/reset/bogus", url.Values{"password": {"N3w!Passw0rd"}, "confirmPassword": {"N3w!Passw0rd"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/password/forgot?error="))
}

func TestRouter_SupportTickets(t *testing.T) {
	app := newTestApp(t)
	alice := app.customer("alice@example.com")
	bob := app.customer("bob@example.com")
	admin := app.login(adminEmail, adminPassword)

	resp, body := app.visitor().postJSON("/contact", map[string]any{
		"name": "Guest", "email": "guest@example.com", "subject": "Hours", "message": "When do you ship?",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Empty(t, decodeInto[ticket.Ticket](t, body).UserID)

	resp, _ = app.visitor().postJSON("/contact", map[string]any{"name": "Guest", "email": "guest@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = alice.postJSON("/contact", map[string]any{
		"subject": "Broken mug", "message": "It arrived cracked.", "priority": "high",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	tk := decodeInto[ticket.Ticket](t, body)
	assert.Equal(t, "alice@example.com", tk.Email)
	assert.Equal(t, ticket.PriorityHigh, tk.Priority)

	resp, body = alice.get("/my-tickets")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeInto[struct {
		Tickets []ticket.Ticket `json:"tickets"`
	}](t, body).Tickets, 1)

	resp, _ = bob.get("/tickets/" + tk.ID)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = bob.postJSON("/tickets/"+tk.ID+"/reply", map[string]any{"message": "me too"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = alice.postJSON("/tickets/"+tk.ID+"/status", map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = alice.get("/admin/tickets")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = admin.postJSON("/tickets/"+tk.ID+"/reply", map[string]any{"message": "Sending a replacement."})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	resp, body = admin.postJSON("/tickets/"+tk.ID+"/status", map[string]any{"status": "in progress"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, ticket.StatusInProgress, decodeInto[ticket.Ticket](t, body).Status)

	resp, body = admin.get("/admin/tickets?status=in_progress")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeInto[struct {
		Tickets []ticket.Ticket `json:"tickets"`
	}](t, body).Tickets, 1)
	resp, _ = admin.get("/admin/tickets?status=pending")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = admin.postJSON("/tickets/"+tk.ID+"/status", map[string]any{"status": "closed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = alice.postJSON("/tickets/"+tk.ID+"/reply", map[string]any{"message": "Thanks!"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = alice.get("/tickets/" + tk.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeInto[ticket.Ticket](t, body)
	require.Len(t, got.Replies, 1)
	assert.Equal(t, "admin", got.Replies[0].UserRole)
}
