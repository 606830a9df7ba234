package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epic-events/crm/internal/account"
	"github.com/epic-events/crm/internal/audit"
	"github.com/epic-events/crm/internal/client"
	"github.com/epic-events/crm/internal/contract"
	"github.com/epic-events/crm/internal/event"
	"github.com/epic-events/crm/internal/shared/auth"
	"github.com/epic-events/crm/internal/shared/config"
	"github.com/epic-events/crm/internal/shared/database"
	"github.com/epic-events/crm/internal/shared/metrics"
	secmiddleware "github.com/epic-events/crm/internal/shared/middleware"
	"github.com/epic-events/crm/internal/shared/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// App holds all application dependencies
type App struct {
	Config *config.Config
	DB     *database.DB
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	app.DB = db
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.MaxBodySize(1 << 20))
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	limiter := secmiddleware.NewIPRateLimiter(20, 40)
	r.Use(limiter.Middleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	userRepo := account.NewRepository(db.Pool)
	auditRepo := audit.NewRepository(db.Pool)
	recorder := audit.NewRecorder(auditRepo)

	if cfg.Bootstrap.AdminEmail != "" && cfg.Bootstrap.AdminPassword != "" {
		if err := seedAdmin(ctx, userRepo, cfg.Bootstrap); err != nil {
			fmt.Printf("Warning: admin bootstrap failed: %v\n", err)
		}
	}

	// Token endpoints (unauthenticated)
	accountHandler := account.NewHandler(userRepo, cfg.Auth)
	r.Mount("/api/token", accountHandler.Routes())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth))

		clientHandler := client.NewHandler(client.NewRepository(db.Pool), recorder)
		r.Mount("/clients", clientHandler.Routes())

		contractHandler := contract.NewHandler(contract.NewRepository(db.Pool), recorder)
		r.Mount("/contracts", contractHandler.Routes())

		eventHandler := event.NewHandler(event.NewRepository(db.Pool), recorder)
		r.Mount("/events", eventHandler.Routes())

		auditHandler := audit.NewHandler(auditRepo)
		r.Mount("/audit", auditHandler.Routes())
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("Epic Events CRM API")
	fmt.Println("============================================")
	fmt.Printf("Environment:    %s\n", cfg.Server.Env)
	fmt.Printf("Server:         http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:            http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:         http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

// seedAdmin creates the configured management user unless the email is
// already taken.
func seedAdmin(ctx context.Context, repo *account.Repository, cfg config.BootstrapConfig) error {
	if _, err := repo.GetByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	}

	hash, err := account.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	user := &account.User{
		ID:           types.NewID(),
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         account.RoleManagement,
	}
	if err := repo.Create(ctx, user); err != nil {
		return err
	}

	fmt.Printf("Bootstrap management user created: %s\n", cfg.AdminEmail)
	return nil
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "Epic Events CRM API",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if err := app.DB.Health(r.Context()); err != nil {
			checks["database"] = "not ready: " + err.Error()
		} else {
			checks["database"] = "ready"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
