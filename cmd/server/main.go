/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the wallet engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Initialize SQLite store
  3. Wire blob uploader, ledger engine, auth service
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  PORT             HTTP server port (default: 8080)
  DB_PATH          SQLite database path (default: ./data/wallet.db)
                   Use ":memory:" for in-memory database
  JWT_SECRET       Token signing secret (required)
  TOKEN_TTL        Session token lifetime (default: 24h)
  UPLOAD_URL       Media upload endpoint
  UPLOAD_PRESET    Unsigned upload preset
  ALLOWED_ORIGINS  Comma-separated CORS origins (default: *)

COMMAND-LINE FLAGS:
  -port    Overrides PORT
  -db      Overrides DB_PATH; use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  JWT_SECRET=dev DB_PATH=./data/wallet.db ./server

  # Run with in-memory database
  JWT_SECRET=dev DB_PATH=":memory:" ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fintrack/wallet-engine/api"
	"github.com/fintrack/wallet-engine/auth"
	"github.com/fintrack/wallet-engine/blob"
	"github.com/fintrack/wallet-engine/config"
	"github.com/fintrack/wallet-engine/ledger"
	"github.com/fintrack/wallet-engine/store/sqlite"
)

func main() {
	// Flags override the environment for local runs
	port := flag.String("port", "", "HTTP server port (overrides PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire dependencies
	blobs := blob.NewUploader(cfg.UploadURL, cfg.UploadPreset)
	engine := ledger.NewEngine(store, blobs)
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	authSvc := auth.NewService(store, blobs, tokens)

	// Create router
	handler := api.NewHandler(engine, authSvc)
	router := api.NewRouter(handler, tokens, cfg.AllowedOrigins)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%s", cfg.Port)
		log.Printf("API available at http://localhost:%s/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
