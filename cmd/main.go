// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/planora/eventledger/internal/database"
	"github.com/planora/eventledger/internal/handler"
	"github.com/planora/eventledger/internal/ledger"
	"github.com/planora/eventledger/internal/repository"
	"github.com/planora/eventledger/internal/service"
	"github.com/planora/eventledger/internal/storage/postgres"
)

type serverConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
}

func main() {
	ctx := context.Background()

	var srvCfg serverConfig
	if err := env.Parse(&srvCfg); err != nil {
		log.Fatalf("config: %v", err)
	}

	// ── 1. Connect to PostgreSQL and migrate ──────────────────────────────
	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	pool, err := database.NewPool(ctx, dbCfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatalf("database: %v", err)
	}
	log.Println("connected to postgres, schema ready")

	// ── 2. Wire up layers ────────────────────────────────────────────────
	store := postgres.New(pool)
	eventRepo := repository.NewEventRepository(pool)
	coordinator := ledger.NewCoordinator(
		eventRepo,
		ledger.NewRegistrationLedger(store),
		ledger.NewBudgetLedger(store.Expenses()),
	)
	eventSvc := service.NewEventService(eventRepo, coordinator)
	eventHandler := handler.NewEventHandler(eventSvc)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger)          // structured access log
	r.Use(handler.CORS)            // permissive CORS for demo

	r.Get("/health", handler.HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Post("/", eventHandler.CreateEvent)
		r.Get("/", eventHandler.ListEvents)
		r.Get("/vendor/{vendorID}", eventHandler.ListVendorEvents)
		r.Get("/{id}", eventHandler.GetEvent)
		r.Put("/{id}", eventHandler.UpdateEvent)
		r.Delete("/{id}", eventHandler.DeleteEvent)
		r.Post("/{id}/register", eventHandler.Register)
		r.Delete("/{id}/register", eventHandler.Unregister)
		r.Get("/{id}/attendees", eventHandler.ListAttendees)
		r.Post("/{id}/expenses", eventHandler.AddExpense)
		r.Get("/{id}/budget", eventHandler.EventBudget)
	})

	r.Route("/expenses", func(r chi.Router) {
		r.Put("/{id}", eventHandler.UpdateExpense)
		r.Delete("/{id}", eventHandler.DeleteExpense)
		r.Get("/vendor/{vendorID}", eventHandler.ListVendorExpenses)
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", srvCfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on http://localhost:%s", srvCfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}
