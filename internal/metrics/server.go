package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// MetricsServer handles exposing metrics via HTTP
type MetricsServer struct {
	server *http.Server
	logger *logrus.Entry
	done   chan struct{}
}

// NewMetricsServer serves /metrics from gatherer and a /health probe on addr.
// Scrapes are themselves instrumented on reg.
func NewMetricsServer(addr string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *MetricsServer {
	s := &MetricsServer{
		logger: logrus.WithField("component", "metrics_server"),
		done:   make(chan struct{}),
	}

	metricsHandler := promhttp.InstrumentMetricHandler(
		reg,
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			Registry:          reg,
		}),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debugf("Metrics request from %s", r.RemoteAddr)
		metricsHandler.ServeHTTP(w, r)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *MetricsServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.logger.Errorf("Error starting server: %v", err)
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener.
func (s *MetricsServer) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("Shutting down metrics server")
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Errorf("Error shutting down server: %v", err)
		}
		close(s.done)
	}()

	s.logger.Infof("Serving metrics on %s", listener.Addr())
	if err := s.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		s.logger.Errorf("Error serving metrics: %v", err)
		return err
	}
	s.logger.Info("Metrics server shutdown complete")
	return nil
}

// Done is closed once the server has shut down.
func (s *MetricsServer) Done() <-chan struct{} {
	return s.done
}
