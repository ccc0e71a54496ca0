/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the mobile/web client

ROUTE GROUPS:
  /api/auth/*          Register and login (public)
  /api/users/*         Profile (authenticated)
  /api/wallets/*       Wallet management (authenticated)
  /api/transactions/*  Transaction management (authenticated)
  /api/stats/*         Statistics charts (authenticated)
  /api/overview        Home-screen summary (authenticated)

AUTHENTICATION:
  Everything except /api/auth/* requires a Bearer token issued at
  register/login. The token middleware resolves the acting user and
  puts the id on the request context.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fintrack/wallet-engine/auth"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, tokens *auth.TokenIssuer, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		// Everything below requires a valid token
		r.Group(func(r chi.Router) {
			r.Use(tokens.Middleware)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", h.Me)
				r.Put("/me", h.UpdateMe)
			})

			r.Route("/wallets", func(r chi.Router) {
				r.Get("/", h.ListWallets)
				r.Post("/", h.CreateWallet)
				r.Put("/{id}", h.UpdateWallet)
				r.Delete("/{id}", h.DeleteWallet)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.ListTransactions)
				r.Post("/", h.CreateTransaction)
				r.Put("/{id}", h.UpdateTransaction)
				r.Delete("/{id}", h.DeleteTransaction)
			})

			r.Get("/stats/{period}", h.GetStats)
			r.Get("/overview", h.GetOverview)
		})
	})

	return r
}
