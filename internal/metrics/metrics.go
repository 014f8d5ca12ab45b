package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the Prometheus collectors for pipes and search
type Metrics struct {
	Registry *prometheus.Registry

	PipesOpened    prometheus.Counter
	PipesActive    prometheus.Gauge
	BytesReceived  prometheus.Counter
	BytesDiscarded prometheus.Counter
	AddDataErrors  *prometheus.CounterVec
	Searches       *prometheus.CounterVec
}

// New creates the collectors on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		PipesOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aqualess",
			Name:      "pipes_opened_total",
			Help:      "Pipe handles allocated.",
		}),
		PipesActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "aqualess",
			Name:      "pipes_active",
			Help:      "Pipes that have not been released.",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aqualess",
			Name:      "bytes_received_total",
			Help:      "Bytes applied to document sinks.",
		}),
		BytesDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aqualess",
			Name:      "bytes_discarded_total",
			Help:      "Queued bytes discarded because their pipe was released.",
		}),
		AddDataErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aqualess",
			Name:      "add_data_errors_total",
			Help:      "Rejected AddData calls by error kind.",
		}, []string{"kind"}),
		Searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aqualess",
			Name:      "searches_total",
			Help:      "Search attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
