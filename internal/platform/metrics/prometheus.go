package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provisioning outcomes.
const (
	OutcomeCreated            = "created"
	OutcomeIdentityError      = "identity_error"
	OutcomeStoreWriteError    = "store_write_error"
	OutcomeCompensated        = "compensated"
	OutcomeCompensationFailed = "compensation_failed"
)

// Prom owns a private registry so tests can build as many as they like.
type Prom struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	ProvisioningTotal  *prometheus.CounterVec
	StoreOpDuration    *prometheus.HistogramVec
	OrphanedAccounts   prometheus.Gauge
	RateLimitDecisions *prometheus.CounterVec
}

func NewProm() *Prom {
	reg := prometheus.NewRegistry()
	p := &Prom{
		Registry: reg,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coach_admin",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "coach_admin",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "coach_admin",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		ProvisioningTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coach_admin",
				Name:      "provisioning_total",
				Help:      "Coach provisioning attempts by outcome.",
			},
			[]string{"outcome"},
		),
		StoreOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "coach_admin",
				Subsystem: "store",
				Name:      "op_duration_seconds",
				Help:      "Identity provider and profile store call latency by op and status.",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		OrphanedAccounts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "coach_admin",
				Name:      "orphaned_accounts",
				Help:      "Identity provider accounts without a profile document, as of the last sweep.",
			},
		),
		RateLimitDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coach_admin",
				Name:      "rate_limit_decisions_total",
				Help:      "Rate limiter decisions by limiter type.",
			},
			[]string{"limiter", "decision"},
		),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.ProvisioningTotal, p.StoreOpDuration, p.OrphanedAccounts, p.RateLimitDecisions,
	)
	return p
}

// Handler exposes the registry for scraping.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// ObserveProvisioning counts one provisioning outcome. Safe on a nil receiver.
func (p *Prom) ObserveProvisioning(outcome string) {
	if p == nil {
		return
	}
	p.ProvisioningTotal.WithLabelValues(outcome).Inc()
}

// ObserveStoreOp records the latency of one external call.
func (p *Prom) ObserveStoreOp(op string, start time.Time, err error) {
	if p == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.StoreOpDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

func (p *Prom) SetOrphanedAccounts(n int) {
	if p == nil {
		return
	}
	p.OrphanedAccounts.Set(float64(n))
}

func (p *Prom) ObserveRateLimit(limiter string, allowed bool) {
	if p == nil {
		return
	}
	decision := "allowed"
	if !allowed {
		decision = "rejected"
	}
	p.RateLimitDecisions.WithLabelValues(limiter, decision).Inc()
}
