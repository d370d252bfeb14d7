package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		port    int
		path    string
		want    string
		wantErr bool
	}{
		{name: "http origin", origin: "http://localhost:8080", port: 3000, path: "/ws", want: "ws://localhost:3000/ws"},
		{name: "https origin", origin: "https://dash.example.com", port: 3000, path: "/ws", want: "wss://dash.example.com:3000/ws"},
		{name: "uppercase scheme", origin: "HTTPS://dash.example.com", port: 3000, path: "/ws", want: "wss://dash.example.com:3000/ws"},
		{name: "file origin maps to ws", origin: "file://localhost/index.html", port: 3000, path: "/ws", want: "ws://localhost:3000/ws"},
		{name: "path without slash", origin: "http://127.0.0.1", port: 4000, path: "stream", want: "ws://127.0.0.1:4000/stream"},
		{name: "ipv6 host", origin: "http://[::1]:8080", port: 3000, path: "/ws", want: "ws://[::1]:3000/ws"},
		{name: "missing hostname", origin: "localhost", port: 3000, path: "/ws", wantErr: true},
		{name: "bad port", origin: "http://localhost", port: 0, path: "/ws", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Endpoint(tt.origin, tt.port, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:3000/ws", cfg.URL)
	assert.Equal(t, time.Second, cfg.ReconnectBase)
	assert.Equal(t, 30*time.Second, cfg.ReconnectMax)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Console)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "trading", cfg.Kafka.TopicPrefix)
	assert.Empty(t, cfg.Symbols)
}

func TestLoad_ExplicitURLWins(t *testing.T) {
	v := viper.New()
	v.Set(KeyURL, "wss://stream.example.com/feed")
	v.Set(KeyOrigin, "http://ignored")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "wss://stream.example.com/feed", cfg.URL)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("TRADINGWS_SYMBOLS", "btcusdt, ETHUSDT")
	t.Setenv("TRADINGWS_RECONNECT_MAX", "10s")
	t.Setenv("TRADINGWS_KAFKA_ENABLED", "true")

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"btcusdt", "ETHUSDT"}, cfg.Symbols)
	assert.Equal(t, 10*time.Second, cfg.ReconnectMax)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.yaml")
	content := `
origin: https://dash.example.com
port: 8443
symbols: [BTCUSDT, SOLUSDT]
reconnect:
  base: 500ms
  max: 5s
metrics:
  enabled: true
  addr: 127.0.0.1:9191
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "wss://dash.example.com:8443/ws", cfg.URL)
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, cfg.Symbols)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectBase)
	assert.Equal(t, 5*time.Second, cfg.ReconnectMax)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9191", cfg.Metrics.Addr)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]interface{}
	}{
		{name: "http url", set: map[string]interface{}{KeyURL: "http://localhost:3000/ws"}},
		{name: "url without host", set: map[string]interface{}{KeyURL: "ws:///ws"}},
		{name: "zero base delay", set: map[string]interface{}{KeyReconnectBase: "0s"}},
		{name: "max below base", set: map[string]interface{}{KeyReconnectBase: "10s", KeyReconnectMax: "1s"}},
		{name: "kafka without brokers", set: map[string]interface{}{KeyKafkaEnabled: true, KeyKafkaBrokers: []string{}}},
		{name: "kafka zero pool", set: map[string]interface{}{KeyKafkaEnabled: true, KeyKafkaPoolSize: 0}},
		{name: "bad origin", set: map[string]interface{}{KeyOrigin: "no-scheme"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
