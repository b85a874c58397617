// Package metrics exports link quality and route state to Prometheus.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/minizivpn/tunneld/signal"
	"github.com/minizivpn/tunneld/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const namespace = "tunneld"

type Metrics struct {
	registry *prometheus.Registry

	score          prometheus.Gauge
	receiveWindow  prometheus.Gauge
	maxConnections prometheus.Gauge
	probeFallbacks *prometheus.CounterVec
	routeFallbacks prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "link_score",
			Help:      "Most recent link quality score (0-100).",
		}),
		receiveWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "receive_window",
			Help:      "Receive window selected for the current link score.",
		}),
		maxConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "max_connections",
			Help:      "Connection limit selected for the current link score.",
		}),
		probeFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_fallbacks_total",
			Help:      "Radio polls that fell back to the neutral score, by reason.",
		}, []string{"reason"}),
		routeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_fallbacks_total",
			Help:      "Route computations that used the two half-space fallback.",
		}),
	}

	m.registry.MustRegister(
		m.score,
		m.receiveWindow,
		m.maxConnections,
		m.probeFallbacks,
		m.routeFallbacks,
		collectors.NewGoCollector(),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveTransport(score signal.Score, c transport.Config) {
	if m == nil {
		return
	}

	m.score.Set(float64(score))
	m.receiveWindow.Set(float64(c.ReceiveWindow))
	m.maxConnections.Set(float64(c.MaxConnections))
}

func (m *Metrics) ProbeFallback(reason string) {
	if m == nil {
		return
	}
	m.probeFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) RouteFallback() {
	if m == nil {
		return
	}
	m.routeFallbacks.Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on l until ctx is done.
func (m *Metrics) Serve(ctx context.Context, l net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := srv.Serve(l)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (m *Metrics) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return m.Serve(ctx, l)
}
