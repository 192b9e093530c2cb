package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/ec-storefront/internal/api"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/domain/ticket"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/example/ec-storefront/internal/email"
	"github.com/example/ec-storefront/internal/infrastructure/redisx"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/report"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[API] Failed to read .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[API] Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Println("[API] ========================================")
	log.Println("[API] EC Storefront")
	log.Println("[API] ========================================")
	log.Printf("[API] Store: %s", cfg.StoreDriver)

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[API] Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer st.Close()

	cartStore, closeCarts, err := openCartStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[API] Failed to connect to Redis: %v", err)
	}
	defer closeCarts()

	// Initialize domain services
	productSvc := product.NewService(st, st)
	cartSvc := cart.NewService(cartStore, productSvc)
	orders, resets := mailers(cfg)
	orderSvc := order.NewService(st, cartSvc, orders)
	userSvc := user.NewService(st, auth.NewHasher(cfg.BcryptCost), resets, cfg.BaseURL)
	ticketSvc := ticket.NewService(st, userSvc)
	reportSvc := report.NewService(st)

	if cfg.AdminEmail != "" {
		admin, created, err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			log.Fatalf("[API] Failed to bootstrap admin: %v", err)
		}
		if created {
			log.Printf("[API] Created admin account %s", admin.Email)
		}
	}
	cancel()

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Initialize API
	handlers := api.NewHandlers(orderSvc, cartSvc, productSvc, reportSvc)
	authHandlers := api.NewAuthHandlers(userSvc, jwtService, cartSvc, cfg.SecureCookies)
	ticketHandlers := api.NewTicketHandlers(ticketSvc)
	router := api.NewRouter(handlers, authHandlers, ticketHandlers, api.RouterConfig{
		JWT:           jwtService,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
		Accounts:      userSvc,
	})

	// Start HTTP server
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Println("[API] ========================================")
		log.Printf("[API] Server started on %s", cfg.HTTPAddr)
		log.Println("[API] ========================================")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] Shutdown error: %v", err)
	}
}

// openStore connects the configured document store and runs its migrations.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st := store.NewPostgresStore(db)
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		log.Println("[API] Connected to PostgreSQL")
		return st, nil
	case config.DriverMongo:
		client, err := store.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		st := store.NewMongoStore(client, cfg.MongoDatabase)
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		log.Printf("[API] Connected to MongoDB (database %s)", cfg.MongoDatabase)
		return st, nil
	case config.DriverMemory:
		log.Println("[API] Using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openCartStore keeps carts in Redis when REDIS_ADDR is set, in memory otherwise.
func openCartStore(ctx context.Context, cfg config.Config) (cart.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Println("[API] Carts: in-memory")
		return cart.NewMemoryStore(), func() {}, nil
	}
	rdb, err := redisx.New(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[API] Carts: Redis at %s", cfg.RedisAddr)
	return redisx.NewCartStore(rdb, cfg.SessionTTL), func() { _ = rdb.Close() }, nil
}

// mailers returns the SMTP order notifier and reset mailer, or nil interfaces
// when email is disabled.
func mailers(cfg config.Config) (order.Notifier, user.ResetMailer) {
	if !cfg.EmailEnabled() {
		log.Println("[API] Email notifications disabled (SMTP_HOST not set)")
		return nil, nil
	}
	log.Printf("[API] Email notifications via %s:%s", cfg.SMTPHost, cfg.SMTPPort)
	mail := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPTimeout)
	return mail, mail
}
