// Package config loads the stream client settings from viper: flags, the
// TRADINGWS_* environment and an optional config file.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. TRADINGWS_URL.
const EnvPrefix = "TRADINGWS"

// Keys
const (
	KeyURL              = "url"
	KeyOrigin           = "origin"
	KeyPort             = "port"
	KeyPath             = "path"
	KeySymbols          = "symbols"
	KeyReconnectBase    = "reconnect.base"
	KeyReconnectMax     = "reconnect.max"
	KeyHandshakeTimeout = "transport.handshake_timeout"
	KeyWriteTimeout     = "transport.write_timeout"
	KeyLogLevel         = "log.level"
	KeyConsole          = "console"
	KeyMetricsEnabled   = "metrics.enabled"
	KeyMetricsAddr      = "metrics.addr"
	KeyKafkaEnabled     = "kafka.enabled"
	KeyKafkaBrokers     = "kafka.brokers"
	KeyKafkaTopicPrefix = "kafka.topic_prefix"
	KeyKafkaPoolSize    = "kafka.pool_size"
	KeyKafkaBuffer      = "kafka.buffer"
	KeyKafkaWorkers     = "kafka.workers"
)

// Config holds the resolved settings of the stream command.
type Config struct {
	URL     string   // WebSocket URL, derived from Origin/Port/Path when not set
	Symbols []string // Initial subscriptions

	ReconnectBase time.Duration
	ReconnectMax  time.Duration

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	LogLevel string
	Console  bool

	Metrics MetricsConfig
	Kafka   KafkaConfig
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// KafkaConfig configures the Kafka bridge.
type KafkaConfig struct {
	Enabled     bool
	Brokers     []string
	TopicPrefix string
	PoolSize    int
	Buffer      int
	Workers     int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyOrigin, "http://localhost")
	v.SetDefault(KeyPort, 3000)
	v.SetDefault(KeyPath, "/ws")
	v.SetDefault(KeyReconnectBase, time.Second)
	v.SetDefault(KeyReconnectMax, 30*time.Second)
	v.SetDefault(KeyHandshakeTimeout, 10*time.Second)
	v.SetDefault(KeyWriteTimeout, 5*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyConsole, true)
	v.SetDefault(KeyMetricsAddr, ":9090")
	v.SetDefault(KeyKafkaBrokers, []string{"localhost:9092"})
	v.SetDefault(KeyKafkaTopicPrefix, "trading")
	v.SetDefault(KeyKafkaPoolSize, 2)
	v.SetDefault(KeyKafkaBuffer, 256)
	v.SetDefault(KeyKafkaWorkers, 1)
}

// Load reads and validates the configuration held by v. Defaults are
// applied first.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		URL:              strings.TrimSpace(v.GetString(KeyURL)),
		Symbols:          splitList(v.GetStringSlice(KeySymbols)),
		ReconnectBase:    v.GetDuration(KeyReconnectBase),
		ReconnectMax:     v.GetDuration(KeyReconnectMax),
		HandshakeTimeout: v.GetDuration(KeyHandshakeTimeout),
		WriteTimeout:     v.GetDuration(KeyWriteTimeout),
		LogLevel:         v.GetString(KeyLogLevel),
		Console:          v.GetBool(KeyConsole),
		Metrics: MetricsConfig{
			Enabled: v.GetBool(KeyMetricsEnabled),
			Addr:    v.GetString(KeyMetricsAddr),
		},
		Kafka: KafkaConfig{
			Enabled:     v.GetBool(KeyKafkaEnabled),
			Brokers:     splitList(v.GetStringSlice(KeyKafkaBrokers)),
			TopicPrefix: v.GetString(KeyKafkaTopicPrefix),
			PoolSize:    v.GetInt(KeyKafkaPoolSize),
			Buffer:      v.GetInt(KeyKafkaBuffer),
			Workers:     v.GetInt(KeyKafkaWorkers),
		},
	}

	if cfg.URL == "" {
		endpoint, err := Endpoint(v.GetString(KeyOrigin), v.GetInt(KeyPort), v.GetString(KeyPath))
		if err != nil {
			return nil, err
		}
		cfg.URL = endpoint
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", c.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid url %q: scheme must be ws or wss", c.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", c.URL)
	}
	if c.ReconnectBase <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyReconnectBase, c.ReconnectBase)
	}
	if c.ReconnectMax < c.ReconnectBase {
		return fmt.Errorf("%s (%s) must not be below %s (%s)", KeyReconnectMax, c.ReconnectMax, KeyReconnectBase, c.ReconnectBase)
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("%s requires at least one broker", KeyKafkaEnabled)
		}
		if c.Kafka.PoolSize <= 0 {
			return fmt.Errorf("%s must be positive, got %d", KeyKafkaPoolSize, c.Kafka.PoolSize)
		}
	}
	return nil
}

// Endpoint derives the stream URL from the page origin: https maps to wss,
// anything else to ws, on the origin's hostname with a fixed port and path.
func Endpoint(origin string, port int, path string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("invalid origin %q: missing hostname", origin)
	}
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("invalid port %d", port)
	}

	scheme := "ws"
	if strings.EqualFold(u.Scheme, "https") {
		scheme = "wss"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	endpoint := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   path,
	}
	return endpoint.String(), nil
}

// splitList accepts both repeated values and comma separated lists, as env
// variables arrive as a single string.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
