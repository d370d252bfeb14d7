package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServer_Serve(t *testing.T) {
	tests := []struct {
		name           string
		setupMetrics   func(registry *prometheus.Registry)
		validateServer func(*testing.T, string)
	}{
		{
			name: "server serves metrics and health",
			setupMetrics: func(registry *prometheus.Registry) {
				testGauge := prometheus.NewGauge(prometheus.GaugeOpts{
					Name: "test_metric",
					Help: "Test metric",
				})
				registry.MustRegister(testGauge)
				testGauge.Set(42.0)
			},
			validateServer: func(t *testing.T, addr string) {
				resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
				require.NoError(t, err)
				defer resp.Body.Close()

				assert.Equal(t, http.StatusOK, resp.StatusCode)

				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), "test_metric 42")

				health, err := http.Get(fmt.Sprintf("http://%s/health", addr))
				require.NoError(t, err)
				defer health.Body.Close()
				assert.Equal(t, http.StatusOK, health.StatusCode)
			},
		},
		{
			name: "recorder metrics are exposed",
			setupMetrics: func(registry *prometheus.Registry) {
				recorder := NewMetricsRecorder(registry)
				recorder.FrameDropped("decode")
			},
			validateServer: func(t *testing.T, addr string) {
				resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
				require.NoError(t, err)
				defer resp.Body.Close()

				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), `stream_frames_dropped_total{reason="decode"} 1`)
			},
		},
		{
			name: "runtime collectors are exposed",
			setupMetrics: func(registry *prometheus.Registry) {
				require.NoError(t, RegisterRuntimeCollectors(registry))
			},
			validateServer: func(t *testing.T, addr string) {
				resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
				require.NoError(t, err)
				defer resp.Body.Close()

				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), "go_goroutines")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := prometheus.NewRegistry()
			tt.setupMetrics(registry)

			listener, err := net.Listen("tcp", "127.0.0.1:0")
			require.NoError(t, err)
			addr := listener.Addr().String()

			server := NewMetricsServer(addr, registry, registry)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Serve(ctx, listener)
			}()

			require.NoError(t, waitForServer(addr, 2*time.Second), "Server failed to start")

			tt.validateServer(t, addr)

			// Test graceful shutdown
			cancel()

			select {
			case err := <-errCh:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("Server didn't shut down within timeout")
			}
			<-server.Done()

			_, err = http.Get(fmt.Sprintf("http://%s/metrics", addr))
			assert.Error(t, err, "Server should be stopped")
		})
	}
}

func TestMetricsServer_StartFailsOnBusyPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	registry := prometheus.NewRegistry()
	server := NewMetricsServer(listener.Addr().String(), registry, registry)
	assert.Error(t, server.Start(context.Background()))
}

// waitForServer attempts to connect to the server until it's ready or times out
func waitForServer(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
		if err == nil {
			resp.Body.Close()
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("server failed to start within %v", timeout)
}
