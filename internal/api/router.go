package api

import (
	"net/http"
	"time"

	// Registers the generated swagger spec.
	_ "jude-e/backend/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig holds the router's non-handler dependencies.
type RouterConfig struct {
	AllowedOrigins []string
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter wires every route of the chat server.
func NewRouter(chatHandler *ChatHandler, turnHandler *TurnHandler, healthHandler *HealthHandler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{TurnIDHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", healthHandler.HandleHealthz)
	r.Get("/readyz", healthHandler.HandleReadyz)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	// Placeholder kept for the web client; not part of the chat pipeline.
	r.Post("/get_context", chatHandler.HandleGetContext)

	r.Route("/api", func(r chi.Router) {
		// JSON routes get a request timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/turns", turnHandler.HandleListTurns)
			r.Get("/turns/{turnID}", turnHandler.HandleGetTurn)
		})

		// The chat route holds the connection open for the whole stream; its
		// deadlines are the per-upstream ones inside the service.
		r.Group(func(r chi.Router) {
			r.Post("/chat", chatHandler.HandleChat)
		})
	})

	return r
}
