// internal/metrics/metrics.go
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/statpoll/internal/link"
)

const namespace = "statpoll"

// Metrics holds the process collectors on a private registry.
// It implements report.Recorder and provides a link.Observer.
type Metrics struct {
	reg *prometheus.Registry

	cycles      *prometheus.CounterVec
	overflows   prometheus.Counter
	lastValue   prometheus.Gauge
	lastSuccess prometheus.Gauge
	linkState   prometheus.Gauge
	linkRetries prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Poll cycles by result (ok or failure kind).",
		}, []string{"result"}),
		overflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_overflows_total",
			Help:      "Cycles in which at least one body chunk was dropped.",
		}),
		lastValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_value",
			Help:      "Most recent extracted value.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the most recent successful cycle.",
		}),
		linkState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "link_state",
			Help:      "Link state: 0 disconnected, 1 connecting, 2 connected, 3 failed.",
		}),
		linkRetries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "link_retries",
			Help:      "Current link retry counter.",
		}),
	}

	reg.MustRegister(
		m.cycles,
		m.overflows,
		m.lastValue,
		m.lastSuccess,
		m.linkState,
		m.linkRetries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) CycleSucceeded(value uint32, at time.Time) {
	m.cycles.WithLabelValues("ok").Inc()
	m.lastValue.Set(float64(value))
	m.lastSuccess.Set(float64(at.Unix()))
}

func (m *Metrics) CycleFailed(kind string) {
	m.cycles.WithLabelValues(kind).Inc()
}

func (m *Metrics) ResponseOverflowed() {
	m.overflows.Inc()
}

// LinkObserver returns a hook for link.Manager.SetObserver.
func (m *Metrics) LinkObserver() link.Observer {
	return func(state link.State, retries int) {
		m.linkState.Set(float64(state))
		m.linkRetries.Set(float64(retries))
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics: shutdown: %v", err)
		}
	}()

	log.Printf("metrics: listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
