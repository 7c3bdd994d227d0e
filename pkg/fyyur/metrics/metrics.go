// Package metrics exposes prometheus collectors for the site.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fyyur_http_requests_total", Help: "HTTP requests by route and status"},
		[]string{"method", "route", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fyyur_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)
	listingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fyyur_listings_created_total", Help: "Venues, artists and shows created"},
		[]string{"kind"},
	)
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fyyur_cache_lookups_total", Help: "Listing cache lookups"},
		[]string{"key", "result"},
	)

	registerOnce sync.Once
)

// Register adds the collectors to the default registry; safe to call repeatedly
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestsTotal, requestDuration, listingsCreated, cacheLookups)
	})
}

// Middleware records request counts and latency per matched route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		requestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the prometheus exposition format
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// ListingCreated counts a new venue, artist or show
func ListingCreated(kind string) {
	listingsCreated.WithLabelValues(kind).Inc()
}

// CacheLookup counts a cache hit or miss for key
func CacheLookup(key string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(key, result).Inc()
}
