package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	limiterChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_checks_total",
		Help: "Rate limit decisions by backend and outcome.",
	}, []string{"backend", "result"})

	limiterRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_rejected_total",
		Help: "Requests rejected by the limiter, per backend.",
	}, []string{"backend"})

	limiterRedisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_redis_errors_total",
		Help: "Redis failures that forced the in-memory fallback.",
	})
)

func init() {
	prometheus.MustRegister(limiterChecks, limiterRejections, limiterRedisErrors)
}

// AdaptiveLimiter fronts the Redis limiter with an in-memory fallback.
// When Redis is down the fallback runs at half the configured limit:
// each process counts alone, so a full per-process limit would
// multiply the effective one.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}
	return &AdaptiveLimiter{primary: primary, fallback: fallback, log: log}
}

func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	res, err := a.primary.Check(ctx, key, limit, window)
	if err == nil {
		return record("redis", res), nil
	}

	limiterRedisErrors.Inc()
	a.log.Warn("redis limiter unavailable, using in-memory fallback",
		slog.String("key", key), slog.Any("error", err))

	degraded := limit / 2
	if degraded < 1 {
		degraded = 1
	}

	res, err = a.fallback.Check(ctx, key, degraded, window)
	if err != nil {
		return res, err
	}
	return record("fallback", res), nil
}

func record(backend string, res *Result) *Result {
	outcome := "rejected"
	if res.Allowed {
		outcome = "allowed"
	} else {
		limiterRejections.WithLabelValues(backend).Inc()
	}
	limiterChecks.WithLabelValues(backend, outcome).Inc()
	return res
}
