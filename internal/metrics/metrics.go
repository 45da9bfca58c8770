// Package metrics exposes store activity to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/fieldflow/internal/effect"
)

// Metrics implements store.Instrumentation on a dedicated registry.
type Metrics struct {
	Registry *prometheus.Registry

	actions   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	dropped   *prometheus.CounterVec
	cancelled *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "fieldflow_actions_total", Help: "Actions reduced, by action."},
			[]string{"action"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fieldflow_reduce_duration_seconds",
				Help:    "Time spent reducing an action and starting its effects.",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
			},
			[]string{"action"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "fieldflow_actions_dropped_total", Help: "Effect outputs discarded before reduction, by reason."},
			[]string{"reason"},
		),
		cancelled: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "fieldflow_effects_cancelled_total", Help: "Cancellations, by cancellation id and whether an effect was running."},
			[]string{"id", "running"},
		),
	}
	m.Registry.MustRegister(m.actions, m.duration, m.dropped, m.cancelled)
	m.Registry.MustRegister(collectors.NewGoCollector())
	m.Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) ActionProcessed(action string, d time.Duration) {
	m.actions.WithLabelValues(action).Inc()
	m.duration.WithLabelValues(action).Observe(d.Seconds())
}

func (m *Metrics) ActionDropped(reason string, n int) {
	m.dropped.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) EffectCancelled(id effect.ID, wasRunning bool) {
	m.cancelled.WithLabelValues(IDLabel(id), strconv.FormatBool(wasRunning)).Inc()
}

// IDLabel keeps the first two segments of a cancellation id so per-order
// ids like "app.order.o17" share one series.
func IDLabel(id effect.ID) string {
	parts := strings.SplitN(string(id), ".", 3)
	if len(parts) < 3 {
		return string(id)
	}
	return parts[0] + "." + parts[1]
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			logger.Error("metrics shutdown", "error", err)
		}
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
