/*
Package handler provides the HTTP handlers and routing setup for the Lounge chat server.

This file defines the main Router, applying middleware like logging, CORS and IP-based rate
limiting before delegating requests to the REST, metrics and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"lounge/internal/pkg/auth/jwt"
	"lounge/internal/pkg/limiter"
	"lounge/internal/pkg/logx"
	"lounge/internal/pkg/resp"
)

const (
	HandshakeRate  = 0.5
	HandshakeBurst = 10
)

// NewHandshakeLimiter returns the per-IP limiter used for WebSocket handshakes.
func NewHandshakeLimiter() *limiter.IPRateLimiter {
	return limiter.NewIPRateLimiter(rate.Limit(HandshakeRate), HandshakeBurst)
}

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It configures CORS, applies global middleware and mounts the health, metrics, room and
// WebSocket endpoints. deps.HandshakeLimiter is required; the caller owns it and stops it.
func Router(deps *AppDeps) http.Handler {
	handshakeLimiter := deps.HandshakeLimiter
	if handshakeLimiter == nil {
		panic("handler: AppDeps.HandshakeLimiter is required")
	}

	gatherer := deps.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, map[string]string{
			"status":  "ok",
			"service": "Lounge Chat Server",
		})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/rooms", func(rooms chi.Router) {
		rooms.Get("/", HandleListRooms(deps))
		rooms.Get("/{room}", HandleGetRoom(deps))
	})

	r.With(
		handshakeLimiter.Middleware,
		jwt.IdentityExtractorMiddleware(deps.Config.IdentityTokenSecret),
	).Get("/ws", HandleWebSocket(deps.Gateway, wsUpgrader))

	return r
}
