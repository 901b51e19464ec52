// Package metrics exposes search progress to Prometheus and accepts remote
// stop requests.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evogen.dev/pkg/evogen/internal/ga"
)

const (
	namespace = "evogen"

	// MetricsPath serves the Prometheus exposition.
	MetricsPath = "/metrics"
	// StopPath asks running searches to stop after the current generation.
	StopPath = "/stop"

	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Metrics owns a private registry with the search collectors.
type Metrics struct {
	registry *prometheus.Registry

	generations  *prometheus.CounterVec
	evaluations  *prometheus.CounterVec
	bestFitness  *prometheus.GaugeVec
	coverage     *prometheus.GaugeVec
	coveredGoals *prometheus.GaugeVec
	running      *prometheus.GaugeVec
	duration     *prometheus.GaugeVec
}

// New creates and registers the collectors.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generations evolved",
		}, []string{"class"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fitness_evaluations_total",
			Help:      "Fitness evaluations performed",
		}, []string{"class"}),
		bestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_fitness",
			Help:      "Fitness of the best individual, lower is better",
		}, []string{"class"}),
		coverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coverage_ratio",
			Help:      "Coverage of the best individual",
		}, []string{"class"}),
		coveredGoals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "covered_goals",
			Help:      "Goals covered by the best individual",
		}, []string{"class"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "search_running",
			Help:      "1 while a search for the class is running",
		}, []string{"class"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Elapsed time of the search",
		}, []string{"class"}),
	}

	collectors := []prometheus.Collector{
		m.generations, m.evaluations, m.bestFitness, m.coverage,
		m.coveredGoals, m.running, m.duration,
	}

	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	return m, nil
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Listener returns a search listener recording into the series of class.
func (m *Metrics) Listener(class string) *Listener {
	return &Listener{metrics: m, class: class}
}

// Handler serves the metrics and calls stop on POST /stop.
func (m *Metrics) Handler(stop func()) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc(StopPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

			return
		}

		slog.Info("Stop requested", "remote", r.RemoteAddr)
		stop()
		w.WriteHeader(http.StatusAccepted)
	})

	return mux
}

// Listener implements ga.SearchListener for one class.
type Listener struct {
	metrics *Metrics
	class   string
}

var _ ga.SearchListener = (*Listener)(nil)

// SearchStarted implements ga.SearchListener.
func (l *Listener) SearchStarted(state ga.SearchState) {
	l.metrics.running.WithLabelValues(l.class).Set(1)
	l.record(state)
}

// Iteration implements ga.SearchListener.
func (l *Listener) Iteration(state ga.SearchState) {
	l.metrics.generations.WithLabelValues(l.class).Inc()
	l.record(state)
}

// FitnessEvaluated implements ga.SearchListener.
func (l *Listener) FitnessEvaluated(float64) {
	l.metrics.evaluations.WithLabelValues(l.class).Inc()
}

// SearchFinished implements ga.SearchListener.
func (l *Listener) SearchFinished(state ga.SearchState) {
	l.record(state)
	l.metrics.running.WithLabelValues(l.class).Set(0)
}

func (l *Listener) record(state ga.SearchState) {
	l.metrics.bestFitness.WithLabelValues(l.class).Set(state.BestFitness)
	l.metrics.coverage.WithLabelValues(l.class).Set(state.Coverage)
	l.metrics.coveredGoals.WithLabelValues(l.class).Set(float64(state.CoveredGoals))
	l.metrics.duration.WithLabelValues(l.class).Set(state.Elapsed.Seconds())
}

// Server is a running metrics endpoint.
type Server struct {
	server   *http.Server
	listener net.Listener
}

// Serve listens on addr and serves handler in the background.
func Serve(addr string, handler http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		slog.Error("Failed to listen for metrics", "addr", addr, "error", err)
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &Server{
		listener: ln,
		server: &http.Server{
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server stopped", "error", err)
		}
	}()

	slog.Info("Metrics server listening", "addr", s.Addr())

	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Close shuts the server down.
func (s *Server) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}
