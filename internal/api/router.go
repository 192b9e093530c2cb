package api

import (
	"net/http"
	"time"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 15 * time.Second

// RouterConfig carries the settings the router needs beyond its handlers.
type RouterConfig struct {
	JWT           *auth.JWTService
	SessionTTL    time.Duration
	SecureCookies bool
	// Accounts rejects valid tokens whose account was since deactivated or
	// removed. Nil trusts the token alone.
	Accounts middleware.AccountChecker
}

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, ticketHandlers *TicketHandlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.Session(cfg.SessionTTL, cfg.SecureCookies))
	r.Use(middleware.OptionalAuthMiddleware(cfg.JWT, cfg.Accounts))

	requireLogin := middleware.AuthMiddleware(cfg.JWT, cfg.Accounts)
	requireAdmin := middleware.RequireRole(auth.RoleAdmin)

	r.Get("/healthz", handlers.Health)

	// Users
	r.Route("/users", func(r chi.Router) {
		r.Post("/register", authHandlers.Register)
		r.Post("/login", authHandlers.Login)
		r.Post("/logout", authHandlers.Logout)
		r.With(requireLogin).Get("/me", authHandlers.Me)
	})

	// Password reset
	r.Route("/password", func(r chi.Router) {
		r.Post("/forgot", authHandlers.ForgotPassword)
		r.Post("/reset/{token}", authHandlers.ResetPassword)
	})

	// Products
	r.Route("/products", func(r chi.Router) {
		r.Get("/", handlers.ListProducts)
		r.Get("/{productId}", handlers.GetProduct)
		r.Group(func(r chi.Router) {
			r.Use(requireLogin, requireAdmin)
			r.Post("/", handlers.CreateProduct)
			r.Post("/{productId}", handlers.UpdateProduct)
			r.Post("/{productId}/delete", handlers.DeleteProduct)
		})
	})

	// Cart
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", handlers.GetCart)
		r.Post("/add", handlers.AddToCart)
		r.Post("/update", handlers.UpdateCart)
		r.Post("/remove", handlers.RemoveFromCart)
		r.With(requireLogin).Post("/checkout", handlers.Checkout)
	})

	// Orders
	r.Route("/orders", func(r chi.Router) {
		r.Use(requireLogin)
		r.Get("/", handlers.ListOrders)
		r.Post("/", handlers.PlaceOrder)
		r.Get("/{orderId}", handlers.GetOrder)
		r.Post("/{orderId}/status", handlers.UpdateOrderStatus)
		r.Post("/{orderId}/cancel", handlers.CancelOrder)
	})

	// Payment
	r.Route("/payment", func(r chi.Router) {
		r.Use(requireLogin)
		r.Get("/pay/{orderId}", handlers.PaymentPage)
		r.Post("/process/{orderId}", handlers.ProcessPayment)
	})

	// Support tickets
	r.Post("/contact", ticketHandlers.Contact)
	r.With(requireLogin).Get("/my-tickets", ticketHandlers.MyTickets)
	r.Route("/tickets/{ticketId}", func(r chi.Router) {
		r.Use(requireLogin)
		r.Get("/", ticketHandlers.GetTicket)
		r.Post("/reply", ticketHandlers.Reply)
		r.Post("/status", ticketHandlers.UpdateStatus)
		r.Post("/priority", ticketHandlers.UpdatePriority)
	})

	// Admin
	r.Route("/admin", func(r chi.Router) {
		r.Use(requireLogin, requireAdmin)
		r.Get("/sales", handlers.SalesReport)
		r.Get("/sales/print", handlers.PrintSales)
		r.Get("/sales/export/daily", handlers.ExportDailySales)
		r.Get("/sales/export/detailed", handlers.ExportDetailedSales)
		r.Get("/tickets", ticketHandlers.AdminTickets)
		r.Post("/users/{userId}/deactivate", authHandlers.DeactivateUser)
		r.Post("/users/{userId}/activate", authHandlers.ActivateUser)
	})

	return r
}
