package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"wot-api/internal/config"
	"wot-api/internal/container"
	"wot-api/internal/handler"
	"wot-api/internal/middleware"
	"wot-api/internal/service"
	"wot-api/pkg/logger"
)

// Resources holds all resources that need cleanup
type Resources struct {
	container   *container.Container
	pollService service.PollService
	server      *http.Server
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	log := r.container.GetLogger()
	var errs []error

	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			log.WithError(err).Error("Failed to shutdown HTTP server")
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			log.Info("HTTP server shutdown complete")
		}
	}

	// Stop the expiry sweeper
	if r.pollService != nil {
		log.Info("Stopping poll expiry sweeper...")
		if err := r.pollService.Stop(ctx); err != nil {
			log.WithError(err).Error("Failed to stop poll expiry sweeper")
			errs = append(errs, fmt.Errorf("poll sweeper shutdown: %w", err))
		} else {
			log.Info("Poll expiry sweeper stopped successfully")
		}
	}

	// Close Redis connection with health check
	if redisClient := r.container.GetRedisClient(); redisClient != nil {
		log.Info("Closing Redis connection...")

		healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Health(healthCtx); err != nil {
			log.WithError(err).Warn("Redis health check failed before closing")
		}
		healthCancel()

		if err := redisClient.Close(); err != nil {
			log.WithError(err).Error("Failed to close Redis connection")
			errs = append(errs, fmt.Errorf("Redis close: %w", err))
		} else {
			log.Info("Redis connection closed successfully")
		}
	}

	// Close database connection pool with health check
	if r.container.DB != nil {
		log.Info("Closing database connection pool...")

		healthCtx, healthCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := r.container.DB.Health(healthCtx); err != nil {
			log.WithError(err).Warn("Database health check failed before closing")
		}
		healthCancel()

		r.container.DB.Close()
		log.Info("Database connection pool closed successfully")
	}

	if len(errs) > 0 {
		log.WithField("error_count", len(errs)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errs), errs)
	}

	log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting wot-api server")

	// Create dependency injection container
	ctx := context.Background()
	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}

	// Start the expiry sweeper that persists active -> closed
	if err := c.Services.Poll.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start poll expiry sweeper")
	}

	// Setup router
	router := setupRouter(c)

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Create resources manager for cleanup
	resources := &Resources{
		container:   c,
		pollService: c.Services.Poll,
		server:      server,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container) *chi.Mux {
	cfg := c.GetConfig()
	log := c.GetLogger()
	svcs := c.Services

	r := chi.NewRouter()

	// Credentials must be allowed so the anonymous-id cookie travels on
	// cross-origin requests.
	corsConfig := &middleware.CORSConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	}

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	healthHandler := handler.NewHealthHandler(c.DB, c.GetRedisClient(), log)
	identityHandler := handler.NewIdentityHandler(svcs.Identity, log, cfg.CookieDomain, cfg.CookieSecure)
	authHandler := handler.NewAuthHandler(svcs.Auth, log)
	pollHandler := handler.NewPollHandler(svcs.Poll, log)
	voteHandler := handler.NewVoteHandler(svcs.Vote, log)
	reportHandler := handler.NewReportHandler(svcs.Report, log)

	// Health check (no auth required)
	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		// Identity bootstrap (no identity required yet)
		r.Route("/identity", func(r chi.Router) {
			r.Get("/anonymous", identityHandler.GetAnonymousID)
			r.Post("/session", identityHandler.CreateSession)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Identity(svcs.Identity, log))
				r.Get("/me", identityHandler.Me)
			})
		})

		// Account surface. Signup resolves the caller's anonymous identity
		// when one exists so its history can follow onto the new account,
		// but a visitor with no identity yet can still sign up.
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.OptionalIdentity(svcs.Identity, log)).Post("/signup", authHandler.SignUp)
			r.Post("/signin", authHandler.SignIn)
			r.Post("/signout", authHandler.SignOut)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Identity(svcs.Identity, log))
				r.Get("/profile", authHandler.GetProfile)
			})
		})

		// Everything below acts on behalf of an identity
		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(svcs.Identity, log))

			r.Route("/polls", func(r chi.Router) {
				r.Post("/", pollHandler.Create)
				r.Get("/", pollHandler.Feed)
				r.Get("/rate-limit", pollHandler.RateLimit)
				r.Get("/mine", pollHandler.MyPolls)
				r.Get("/voted", pollHandler.MyVotes)

				r.Route("/{pollID}", func(r chi.Router) {
					r.Get("/", pollHandler.GetByID)
					r.Post("/close", pollHandler.Close)
					r.Post("/votes", voteHandler.Cast)
					r.Get("/vote", voteHandler.Status)
					r.Post("/reports", reportHandler.Report)
				})
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
