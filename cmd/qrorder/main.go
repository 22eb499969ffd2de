package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"qrorder/internal/cart"
	"qrorder/internal/config"
	"qrorder/internal/database"
	"qrorder/internal/events"
	"qrorder/internal/handler"
	"qrorder/internal/mw"
	"qrorder/internal/ratelimit"
	"qrorder/internal/service"
	"qrorder/internal/tablectx"
	"qrorder/internal/tokencodec"
	"qrorder/internal/worker"
)

func main() {
	cfg := config.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewDB(ctx, cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(db)

	if err := database.InitSchema(db); err != nil {
		slog.Error("failed to init DB schema", "error", err)
		os.Exit(1)
	}

	// Crypto endpoints answer 500 until a real key is configured.
	codec, err := tokencodec.New(cfg.EncryptionKey)
	if err != nil {
		slog.Error("ENCRYPTION_KEY is missing or still the placeholder; token operations are disabled", "error", err)
	}

	var decrypter tablectx.Decrypter = tablectx.LocalDecrypter{Codec: codec}
	if cfg.DecryptURL != "" {
		decrypter = tablectx.NewRemoteDecrypter(cfg.DecryptURL, cfg.DecryptTimeout)
	}
	resolver := tablectx.NewResolver(decrypter)

	// Shared state
	var (
		limiter ratelimit.Limiter
		carts   cart.Store
	)
	if cfg.RedisURL != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb)
		carts = cart.NewRedisStore(rdb, 24*time.Hour)
		slog.Info("using redis for rate limits and carts")
	} else {
		mem := ratelimit.NewMemoryLimiter()
		go sweepLimiter(ctx, mem)
		limiter = mem
		carts = cart.NewMemoryStore()
		slog.Warn("REDIS_URL not set; rate limits and carts are per process")
	}

	// Events
	hub := events.NewHub()
	go hub.Run(ctx)
	publishers := events.Multi{hub}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.AMQPURL)
		if err != nil {
			slog.Error("failed to connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer amqpPub.Close()
		publishers = append(publishers, amqpPub)
	}

	// Services
	authSvc := service.NewAuthService(db, cfg.JWTSecret)
	orderSvc := service.NewOrderService(db)
	paymentSvc := service.NewPaymentService(db)
	catalogSvc := service.NewCatalogService(db)
	posClient := service.NewPOSClient(cfg.POSBaseURL)

	coordinator := service.NewPaymentCoordinator(service.CoordinatorDeps{
		Orders:   orderSvc,
		Payments: paymentSvc,
		POS:      posClient,
		Carts:    carts,
		Limiter:  limiter,
		Resolver: resolver,
		Codec:    codec,
		Events:   publishers,
	})

	// Worker
	expiryWorker := worker.NewPaymentExpiryWorker(paymentSvc, coordinator, cfg.PaymentTTL)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Crypto
	r.Post("/encrypt-customer-data", handler.EncryptCustomerHandler(codec))
	r.Post("/decrypt-customer-data", handler.DecryptCustomerHandler(codec))
	r.Post("/decrypt-token", handler.DecryptTokenHandler(codec))
	r.Get("/decrypt-token", handler.DecryptTokenHandler(codec))

	// Customer routes
	r.Get("/api/tables/resolve/*", handler.ResolveTableHandler(resolver, cfg.Development()))
	r.Get("/api/menu", handler.MenuHandler(catalogSvc))
	r.Get("/api/stall/profile/*", handler.StallProfileHandler(posClient))
	r.Get("/api/stall/products/*", handler.StallProductsHandler(posClient))

	r.Get("/api/cart", handler.GetCartHandler(carts))
	r.Delete("/api/cart", handler.ClearCartHandler(carts))
	r.Put("/api/cart/table/*", handler.BindCartTableHandler(carts, resolver))
	r.Post("/api/cart/items", handler.AddCartItemHandler(carts, catalogSvc))
	r.Patch("/api/cart/items/{productID}", handler.UpdateCartItemHandler(carts))
	r.Delete("/api/cart/items/{productID}", handler.RemoveCartItemHandler(carts))

	r.Post("/api/checkout/*", handler.CheckoutHandler(coordinator))
	r.Get("/api/orders/{orderID}", handler.GetOrderHandler(orderSvc))
	r.Post("/api/orders/{orderID}/sync", handler.RetrySyncHandler(coordinator))
	r.Get("/api/orders/{orderID}/payment", handler.PaymentHandler(coordinator))
	r.Post("/api/orders/{orderID}/payment/complete", handler.CompletePaymentHandler(coordinator))

	// Staff routes
	r.Post("/api/staff/register", handler.RegisterHandler(authSvc))
	r.Post("/api/staff/login", handler.LoginHandler(authSvc))

	r.Group(func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/api/staff/orders", handler.ListStaffOrdersHandler(orderSvc))
		r.Patch("/api/staff/orders/{orderID}/status", handler.UpdateOrderStatusHandler(coordinator))
		r.Post("/api/staff/payments/{paymentID}/confirm", handler.ConfirmPaymentHandler(coordinator))

		r.Get("/api/staff/categories", handler.ListCategoriesHandler(catalogSvc))
		r.Post("/api/staff/categories", handler.CreateCategoryHandler(catalogSvc))
		r.Post("/api/staff/products", handler.CreateProductHandler(catalogSvc))
		r.Patch("/api/staff/products/{productID}", handler.UpdateProductHandler(catalogSvc))
		r.Get("/api/staff/tables", handler.ListTablesHandler(catalogSvc))
		r.Post("/api/staff/tables", handler.CreateTableHandler(catalogSvc))
		r.Post("/api/staff/tables/{number}/token", handler.IssueTableTokenHandler(catalogSvc, codec))

		r.Get("/api/staff/ws", handler.StaffEventsHandler(hub))
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second, // a POS call alone may take 10s
	}

	go expiryWorker.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	slog.Info("starting server", "addr", cfg.RunAddress, "environment", cfg.Environment)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	cancel() // stop worker and hub
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}

func sweepLimiter(ctx context.Context, l *ratelimit.MemoryLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(time.Minute)
		}
	}
}
