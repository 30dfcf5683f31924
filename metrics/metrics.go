// Package metrics exposes the library's operational surface: a
// prometheus registry wiring the connection-pool and notifier
// collectors, plus a chi router serving /healthz, /readyz, and
// /metrics. This is an ops endpoint, not a playback or UI surface.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/catalogizer/medialibrary/db"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Collector publishes the connection pool's sql.DBStats as prometheus
// gauges, plus a counter for the wait count.
type Collector struct {
	conn *db.DB

	openConns *prometheus.Desc
	inUse     *prometheus.Desc
	idle      *prometheus.Desc
	waitCount *prometheus.Desc
}

func NewCollector(conn *db.DB) *Collector {
	return &Collector{
		conn: conn,
		openConns: prometheus.NewDesc("medialibrary_db_open_connections",
			"Open connections in the pool.", nil, nil),
		inUse: prometheus.NewDesc("medialibrary_db_in_use_connections",
			"Connections currently executing.", nil, nil),
		idle: prometheus.NewDesc("medialibrary_db_idle_connections",
			"Idle connections in the pool.", nil, nil),
		waitCount: prometheus.NewDesc("medialibrary_db_wait_count_total",
			"Total times a caller waited for a connection.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.openConns
	ch <- c.inUse
	ch <- c.idle
	ch <- c.waitCount
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.conn.Stats()
	ch <- prometheus.MustNewConstMetric(c.openConns, prometheus.GaugeValue, float64(stats.OpenConnections))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(stats.InUse))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stats.Idle))
	ch <- prometheus.MustNewConstMetric(c.waitCount, prometheus.CounterValue, float64(stats.WaitCount))
}

// NewRegistry builds a registry preloaded with the Go runtime and
// pool collectors. The notifier registers its own collectors against
// the same registry when it is handed to medialibrary.Open.
func NewRegistry(conn *db.DB) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NewCollector(conn),
	)
	return reg
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Router serves /healthz (liveness: database ping), /readyz
// (readiness: integrity probe), and /metrics.
func Router(conn *db.DB, reg *prometheus.Registry, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := "healthy"
		code := http.StatusOK
		if err := conn.HealthCheck(req.Context()); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, healthResponse{Status: status, Timestamp: time.Now()})
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()
		status := "ready"
		code := http.StatusOK
		if err := conn.IntegrityCheck(ctx); err != nil {
			logger.Warn("readiness integrity probe failed", zap.Error(err))
			status = "not ready"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, healthResponse{Status: status, Timestamp: time.Now()})
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
