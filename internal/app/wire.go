package app

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/creditline/platform/internal/auth"
	"github.com/creditline/platform/internal/guard"
	"github.com/creditline/platform/internal/handler"
	"github.com/creditline/platform/internal/infra"
	"github.com/creditline/platform/internal/ledger"
	"github.com/creditline/platform/internal/pricing"
	"github.com/creditline/platform/internal/provider"
	"github.com/creditline/platform/internal/repository"
	"github.com/creditline/platform/internal/service"
	"github.com/creditline/platform/internal/slipverify"
)

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	Pool   *pgxpool.Pool
	Config *infra.Config
	JWTMgr *auth.JWTManager
	Logger *slog.Logger
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	pool := deps.Pool
	cfg := deps.Config
	jwtMgr := deps.JWTMgr
	logger := deps.Logger

	// Repositories
	walletRepo := repository.NewWalletRepository()
	partnerRepo := repository.NewPartnerRepository()
	customerRepo := repository.NewCustomerRepository()
	txRepo := repository.NewTransactionRepository()
	topupRepo := repository.NewWalletTopupRepository()
	catalogRepo := repository.NewCatalogRepository()
	outboxRepo := repository.NewOutboxRepository()

	// Ledger engine
	ledgerEngine := ledger.NewEngine(walletRepo, txRepo, topupRepo, outboxRepo)

	// Pricing
	resolver := pricing.NewResolver(pricing.DefaultTable())

	// External providers
	upstream := provider.NewUpstreamClient(
		cfg.UpstreamBaseURL, cfg.UpstreamUsername, cfg.UpstreamPassword,
		cfg.UpstreamCallbackURL, cfg.UpstreamTimeout, logger)

	slipBreaker := guard.NewCircuitBreaker(5, 30*time.Second)
	slipChain := slipverify.NewChain([]slipverify.Backend{
		slipverify.NewOpenSlipClient(cfg.OpenSlipBaseURL, cfg.OpenSlipAPIKey, logger),
		slipverify.NewSlipSureClient(cfg.SlipSureBaseURL, cfg.SlipSureAPIKey, logger),
	}, slipBreaker, cfg.SlipTimeout, logger)

	slipLimiter := guard.NewRateLimiter(10, time.Minute)

	// Services
	topupSvc := service.NewTopupService(
		pool, upstream, ledgerEngine,
		walletRepo, partnerRepo, customerRepo, txRepo, catalogRepo,
		resolver, logger,
		cfg.CompensateMaxAttempts, cfg.CompensateBackoff)
	slipSvc := service.NewWalletTopupService(
		pool, slipChain, ledgerEngine, partnerRepo, slipLimiter,
		cfg.MerchantNameVariants(), logger)
	catalogSvc := service.NewCatalogService(pool, catalogRepo, resolver, logger)
	walletSvc := service.NewWalletService(
		pool, walletRepo, partnerRepo, txRepo, upstream, logger, cfg.PendingSweepAge)

	// Handlers
	topupHandler := handler.NewTopupHandler(topupSvc)
	paymentHandler := handler.NewPaymentHandler(slipSvc)
	walletHandler := handler.NewWalletHandler(walletSvc)
	adminHandler := handler.NewAdminHandler(catalogSvc, walletSvc)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORS)
	r.Use(handler.JSONContentType)

	// Health (no auth)
	r.Get("/health", handler.HealthHandler(pool))

	// Customer-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticateCustomer(jwtMgr))

		r.Post("/topup", topupHandler.CustomerTopup)
	})

	// Partner-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticatePartner(jwtMgr))

		r.Post("/api/v1/topup", topupHandler.PartnerTopup)
		r.Post("/payment/topup", paymentHandler.SlipTopup)

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balance", walletHandler.GetBalance)
			r.Get("/transactions", walletHandler.GetTransactions)
		})
	})

	// Admin-authenticated routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.AuthenticateAdmin(jwtMgr))

		r.Get("/catalog", adminHandler.ListCatalog)
		r.Get("/transactions/pending", adminHandler.PendingTransactions)
		r.Get("/upstream/balance", adminHandler.UpstreamBalance)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.WriteRoles()...))

			r.Post("/catalog/sync", adminHandler.SyncCatalog)
			r.Put("/catalog/override", adminHandler.SetOverride)
		})
	})

	return r
}
