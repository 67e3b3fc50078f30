// Package metrics holds the prometheus collectors for the game server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memory_pairs"

// Metrics owns a private registry. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	gamesStarted        *prometheus.CounterVec
	gamesCompleted      *prometheus.CounterVec
	flips               *prometheus.CounterVec
	powerUpsGranted     *prometheus.CounterVec
	powerUpsUsed        *prometheus.CounterVec
	achievementsGranted *prometheus.CounterVec
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gamesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Games started, by difficulty and mode",
		}, []string{"difficulty", "mode"}),
		gamesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_completed_total",
			Help:      "Games completed, by difficulty and mode",
		}, []string{"difficulty", "mode"}),
		flips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flips_total",
			Help:      "Card flips, by result kind or error code",
		}, []string{"result"}),
		powerUpsGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "power_ups_granted_total",
			Help:      "Power-ups granted for consecutive matches",
		}, []string{"power_up"}),
		powerUpsUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "power_ups_used_total",
			Help:      "Power-ups consumed",
		}, []string{"power_up"}),
		achievementsGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_granted_total",
			Help:      "Achievements granted",
		}, []string{"achievement"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.gamesStarted,
		m.gamesCompleted,
		m.flips,
		m.powerUpsGranted,
		m.powerUpsUsed,
		m.achievementsGranted,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TrackActiveSessions registers a gauge sampled from count at scrape time.
func (m *Metrics) TrackActiveSessions(count func() int) error {
	if m == nil || count == nil {
		return nil
	}
	return m.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Sessions currently held in memory",
	}, func() float64 {
		return float64(count())
	}))
}

func mode(daily bool) string {
	if daily {
		return "daily"
	}
	return "free"
}

func (m *Metrics) GameStarted(difficulty string, daily bool) {
	if m == nil {
		return
	}
	m.gamesStarted.WithLabelValues(difficulty, mode(daily)).Inc()
}

func (m *Metrics) GameCompleted(difficulty string, daily bool) {
	if m == nil {
		return
	}
	m.gamesCompleted.WithLabelValues(difficulty, mode(daily)).Inc()
}

func (m *Metrics) Flip(result string) {
	if m == nil {
		return
	}
	m.flips.WithLabelValues(result).Inc()
}

func (m *Metrics) PowerUpGranted(powerUp string) {
	if m == nil {
		return
	}
	m.powerUpsGranted.WithLabelValues(powerUp).Inc()
}

func (m *Metrics) PowerUpUsed(powerUp string) {
	if m == nil {
		return
	}
	m.powerUpsUsed.WithLabelValues(powerUp).Inc()
}

func (m *Metrics) AchievementGranted(id string) {
	if m == nil {
		return
	}
	m.achievementsGranted.WithLabelValues(id).Inc()
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}
