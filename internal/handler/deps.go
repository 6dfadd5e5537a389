package handler

import (
	"github.com/prometheus/client_golang/prometheus"

	"lounge/internal/app/chat"
	"lounge/internal/configs"
	"lounge/internal/pkg/limiter"
)

type AppDeps struct {
	Gateway *chat.Gateway
	Config  *configs.AppConfig

	// Metrics is served on /metrics; nil serves the default registry.
	Metrics prometheus.Gatherer

	// HandshakeLimiter throttles /ws per client IP. Required; the owner calls Stop.
	HandshakeLimiter *limiter.IPRateLimiter
}
