// Package main provides the entry point for the instalens server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"

	"github.com/instalens/instalens/internal/accounts"
	"github.com/instalens/instalens/internal/api/handlers"
	"github.com/instalens/instalens/internal/browser"
	"github.com/instalens/instalens/internal/config"
	"github.com/instalens/instalens/internal/extract"
	"github.com/instalens/instalens/internal/http/mw"
	"github.com/instalens/instalens/internal/logging"
	"github.com/instalens/instalens/internal/models"
	"github.com/instalens/instalens/internal/scrape"
	"github.com/instalens/instalens/internal/session"
	"github.com/instalens/instalens/internal/version"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	cfg := config.Load()

	// Initialize logger using slog-logfilter (respects LOG_LEVEL, LOG_FORMAT env vars)
	logger := logging.SetDefault()

	logger.Info("starting instalens server",
		"version", version.Get().Version,
		"port", cfg.Port,
		"accounts", len(cfg.Accounts),
	)

	if len(cfg.Accounts) == 0 {
		logger.Warn("no scraping accounts configured - set IG_ACCOUNTS")
	}

	// Optional persistence for account state (fail counts, cooldowns)
	var store *accounts.Store
	if cfg.AccountDBPath != "" {
		var err error
		store, err = accounts.NewStore(cfg.AccountDBPath, logger)
		if err != nil {
			logger.Error("failed to open account store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	pool, err := accounts.NewPool(cfg, store, logger)
	if err != nil {
		logger.Error("failed to initialize account pool", "error", err)
		os.Exit(1)
	}

	breaker := scrape.NewBreaker(cfg.BreakerThreshold)
	launcher := browser.NewRodLauncher(cfg, logger)
	engine := extract.NewEngine(cfg, logger)

	orchestrator := scrape.NewOrchestrator(pool, func() scrape.SessionDriver {
		return session.NewDriver(launcher, cfg, logger)
	}, engine, breaker, logger)
	defer orchestrator.Close()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(pool)
	commentsHandler := handlers.NewCommentsHandler(orchestrator, logger)
	poolStatusHandler := handlers.NewPoolStatusHandler(pool)
	reactivateHandler := handlers.NewReactivateHandler(pool, breaker, logger)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout(cfg)))

	// CORS: browser clients come from the configured frontend origins only
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create Huma API
	humaConfig := huma.DefaultConfig("Instalens", version.Get().Version)
	humaConfig.Info.Description = "Instagram comment scraping service"
	api := humachi.New(r, humaConfig)

	// Register health endpoint (no auth, no rate limit)
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns health status and account pool counts",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		return &HealthOutput{Body: *healthHandler.Handle(ctx)}, nil
	})

	// Public API routes: rate limited per client IP
	apiRouter := chi.NewRouter()
	apiRouter.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
	apiAPI := humachi.New(apiRouter, humaConfig)

	huma.Register(apiAPI, huma.Operation{
		OperationID: "scrapeComments",
		Method:      http.MethodPost,
		Path:        "/api/instagram-comments",
		Summary:     "Scrape comments from a post",
		Description: "Scrapes comments from the given Instagram post URL, optionally filtered",
		Tags:        []string{"Comments"},
	}, func(ctx context.Context, input *CommentsInput) (*CommentsOutput, error) {
		status, resp := commentsHandler.Handle(ctx, &input.Body)
		return &CommentsOutput{Status: status, Body: *resp}, nil
	})

	huma.Register(apiAPI, huma.Operation{
		OperationID: "poolStatus",
		Method:      http.MethodGet,
		Path:        "/api/pool/status",
		Summary:     "Account pool status",
		Tags:        []string{"Operator"},
	}, func(ctx context.Context, input *struct{}) (*PoolStatusOutput, error) {
		return &PoolStatusOutput{Body: *poolStatusHandler.Handle(ctx)}, nil
	})

	// Operator routes: bearer auth when a secret is configured
	adminRouter := chi.NewRouter()
	if cfg.AdminAPISecret != "" {
		adminRouter.Use(mw.Bearer(cfg.AdminAPISecret, logger))
	} else {
		logger.Warn("no ADMIN_API_SECRET configured - operator endpoints are unprotected")
	}
	adminAPI := humachi.New(adminRouter, humaConfig)

	huma.Register(adminAPI, huma.Operation{
		OperationID: "reactivateAccount",
		Method:      http.MethodPost,
		Path:        "/api/accounts/reactivate",
		Summary:     "Reactivate a deactivated account",
		Tags:        []string{"Operator"},
	}, func(ctx context.Context, input *ReactivateInput) (*ReactivateOutput, error) {
		status, resp := reactivateHandler.Handle(ctx, &input.Body)
		return &ReactivateOutput{Status: status, Body: *resp}, nil
	})

	apiRouter.Mount("/", adminRouter)
	r.Mount("/", apiRouter)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: requestTimeout(cfg) + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

// requestTimeout bounds one scrape flow: login plus navigation plus the full
// scroll budget, with headroom.
func requestTimeout(cfg *config.Config) time.Duration {
	scroll := time.Duration(cfg.MaxScrollAttempts) * cfg.ScrollDelay
	return cfg.LoginTimeout + cfg.NavigationTimeout + scroll + 30*time.Second
}

// CommentsInput is the input for scrape requests.
type CommentsInput struct {
	Body models.CommentsRequest
}

// CommentsOutput is the output for scrape requests.
type CommentsOutput struct {
	Status int
	Body   models.CommentsResponse
}

// HealthOutput is the output wrapper for Huma.
type HealthOutput struct {
	Body handlers.HealthResponse
}

// PoolStatusOutput is the output for pool status requests.
type PoolStatusOutput struct {
	Body models.PoolStatusResponse
}

// ReactivateInput is the input for reactivation requests.
type ReactivateInput struct {
	Body models.ReactivateRequest
}

// ReactivateOutput is the output for reactivation requests.
type ReactivateOutput struct {
	Status int
	Body   models.ReactivateResponse
}
