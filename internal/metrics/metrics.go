// Package metrics exposes ingestion and HTTP metrics in Prometheus format.
//
// Ingestion counters are recorded through the OpenTelemetry metric API and
// exported by the otel Prometheus exporter. HTTP request metrics use
// client_golang collectors directly. Both land on one dedicated registry
// served by Handler.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/JonMunkholm/records/ingest"

// Metrics owns the registry, the otel meter provider and every instrument.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	ingestions metric.Int64Counter
	inserted   metric.Int64Counter
	rejected   metric.Int64Counter
	duration   metric.Float64Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New builds a Metrics with its own registry.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	meter := mp.Meter(meterName)

	m := &Metrics{registry: reg, provider: mp}

	if m.ingestions, err = meter.Int64Counter("records_ingestions",
		metric.WithDescription("Bulk uploads processed, by outcome.")); err != nil {
		return nil, fmt.Errorf("create ingestions counter: %w", err)
	}
	if m.inserted, err = meter.Int64Counter("records_inserted",
		metric.WithDescription("Records persisted by bulk uploads.")); err != nil {
		return nil, fmt.Errorf("create inserted counter: %w", err)
	}
	if m.rejected, err = meter.Int64Counter("records_rejected_rows",
		metric.WithDescription("Spreadsheet rows skipped by validation.")); err != nil {
		return nil, fmt.Errorf("create rejected counter: %w", err)
	}
	if m.duration, err = meter.Float64Histogram("records_ingestion_duration",
		metric.WithDescription("Time spent processing a bulk upload."),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "records_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "records_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	reg.MustRegister(m.httpRequests, m.httpDuration)

	return m, nil
}

// ObserveIngestion records one finished bulk upload.
func (m *Metrics) ObserveIngestion(ctx context.Context, outcome string, inserted, rejected int, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.ingestions.Add(ctx, 1, attrs)
	m.inserted.Add(ctx, int64(inserted))
	m.rejected.Add(ctx, int64(rejected))
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// Middleware counts requests per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
