package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// CacheHits counts read-through cache hits by cache name.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_cache_hits_total",
		Help: "Total number of cache hits",
	}, []string{"cache"})

	// CacheMisses counts read-through cache misses by cache name.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_cache_misses_total",
		Help: "Total number of cache misses",
	}, []string{"cache"})

	// FeedQueryLatency records feed assembly latency by feed kind.
	FeedQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yatube_feed_query_latency_seconds",
		Help:    "Feed query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"feed"})

	// RateLimitRejections counts requests refused by the rate limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yatube_rate_limit_rejections_total",
		Help: "Total number of requests rejected by rate limiting",
	}, []string{"resource"})

	// PostsCreated counts successfully created posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "yatube_posts_created_total",
		Help: "Total number of posts created",
	})
)

// TrackFeed returns a function that records feed latency when called (e.g. defer).
func TrackFeed(feed string) func() {
	start := time.Now()
	return func() {
		FeedQueryLatency.WithLabelValues(feed).Observe(time.Since(start).Seconds())
	}
}
