package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"promptcraft-backend/internal/handlers"
	"promptcraft-backend/internal/logger"
	"promptcraft-backend/internal/middleware"
	"promptcraft-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	sessionHandler *handlers.SessionHandler,
	promptHandler *handlers.PromptHandler,
	historyHandler *handlers.HistoryHandler,
	fileHandler *handlers.FileHandler,
	wsHub *websocket.Hub,
	frontendURL string,
	generatePerMin int,
	log *logger.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(frontendURL))

	sessionLimiter := middleware.NewRateLimiter(10, time.Minute)
	generateLimiter := middleware.NewRateLimiter(generatePerMin, time.Minute)
	inFlight := middleware.NewInFlight()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.With(sessionLimiter.Middleware).Post("/session", sessionHandler.Create)
		r.Get("/options", sessionHandler.Options)

		// Token travels as a query parameter, checked by the hub.
		r.Get("/chat/ws", wsHub.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			r.Post("/files", fileHandler.Upload)

			r.Route("/prompts", func(r chi.Router) {
				r.With(generateLimiter.Middleware, inFlight.Middleware).Post("/generate", promptHandler.Generate)
				r.Post("/export", promptHandler.Export)
			})

			r.Route("/history", func(r chi.Router) {
				r.Get("/", historyHandler.List)
				r.Delete("/", historyHandler.Clear)
				r.Get("/{id}", historyHandler.Get)
				r.Get("/{id}/export", historyHandler.Export)
			})
		})
	})

	return r
}
