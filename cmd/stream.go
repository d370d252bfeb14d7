package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alejoacosta74/trading-stream/client"
	"github.com/alejoacosta74/trading-stream/internal/common"
	"github.com/alejoacosta74/trading-stream/internal/config"
	"github.com/alejoacosta74/trading-stream/internal/dispatcher/handlers"
	"github.com/alejoacosta74/trading-stream/internal/kafka"
	"github.com/alejoacosta74/trading-stream/internal/metrics"
	"github.com/alejoacosta74/trading-stream/internal/ui"
	"github.com/alejoacosta74/trading-stream/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// streamCmd represents the stream command
var streamCmd = &cobra.Command{
	Use:   "stream [symbols...]",
	Short: "Stream market events",
	Long: `Connect to the stream endpoint, subscribe to the given symbols and
render events until interrupted. Optionally exposes Prometheus metrics and
forwards data events to Kafka.`,
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)

	flags := streamCmd.Flags()
	flags.String("url", "", "stream URL; derived from --origin when empty")
	flags.String("origin", "http://localhost", "dashboard origin used to derive the stream URL")
	flags.Int("port", 3000, "stream port used with --origin")
	flags.StringSlice("symbols", nil, "symbols to subscribe to")
	flags.Duration("reconnect-base", time.Second, "first reconnect delay")
	flags.Duration("reconnect-max", 30*time.Second, "reconnect delay cap")
	flags.Bool("console", true, "render events to stdout")
	flags.Bool("metrics", false, "expose Prometheus metrics")
	flags.String("metrics-addr", ":9090", "metrics listen address")
	flags.Bool("kafka", false, "forward data events to Kafka")
	flags.StringSlice("kafka-brokers", []string{"localhost:9092"}, "Kafka brokers")
	flags.String("kafka-topic-prefix", "trading", "Kafka topic prefix")

	viper.BindPFlag(config.KeyURL, flags.Lookup("url"))
	viper.BindPFlag(config.KeyOrigin, flags.Lookup("origin"))
	viper.BindPFlag(config.KeyPort, flags.Lookup("port"))
	viper.BindPFlag(config.KeySymbols, flags.Lookup("symbols"))
	viper.BindPFlag(config.KeyReconnectBase, flags.Lookup("reconnect-base"))
	viper.BindPFlag(config.KeyReconnectMax, flags.Lookup("reconnect-max"))
	viper.BindPFlag(config.KeyConsole, flags.Lookup("console"))
	viper.BindPFlag(config.KeyMetricsEnabled, flags.Lookup("metrics"))
	viper.BindPFlag(config.KeyMetricsAddr, flags.Lookup("metrics-addr"))
	viper.BindPFlag(config.KeyKafkaEnabled, flags.Lookup("kafka"))
	viper.BindPFlag(config.KeyKafkaBrokers, flags.Lookup("kafka-brokers"))
	viper.BindPFlag(config.KeyKafkaTopicPrefix, flags.Lookup("kafka-topic-prefix"))
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg.Symbols = append(cfg.Symbols, args...)

	log := logrus.WithField("component", "stream_cmd")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Capture system signals for graceful shutdown
	go handleSignals(cancel)

	registry := prometheus.NewRegistry()
	recorder := metrics.NewMetricsRecorder(registry)

	streamClient, err := client.New(
		client.Config{URL: cfg.URL, BaseDelay: cfg.ReconnectBase, MaxDelay: cfg.ReconnectMax},
		client.WithObserver(recorder),
		client.WithDialer(ws.NewDialer(
			ws.WithHandshakeTimeout(cfg.HandshakeTimeout),
			ws.WithWriteTimeout(cfg.WriteTimeout),
		)),
	)
	if err != nil {
		return err
	}
	defer recorder.Attach(streamClient.Bus())()

	wg := &sync.WaitGroup{}

	if cfg.Metrics.Enabled {
		if err := metrics.RegisterRuntimeCollectors(registry); err != nil {
			return fmt.Errorf("failed to register runtime collectors: %w", err)
		}
		server := metrics.NewMetricsServer(cfg.Metrics.Addr, registry, registry)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(ctx); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	if cfg.Kafka.Enabled {
		stop, err := startKafkaBridge(cfg.Kafka, streamClient, recorder)
		if err != nil {
			return err
		}
		defer stop()
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		defer handlers.Register(streamClient.Bus(), handlers.NewDebugHandler(), common.DataEvents()...)()
	}

	var view *ui.UIUpdater
	if cfg.Console {
		view = ui.NewUIUpdater(streamClient, os.Stdout)
		view.Start(ctx)
	}

	if len(cfg.Symbols) > 0 {
		// Not connected yet: the intent is recorded and replayed on open.
		if err := streamClient.Subscribe(cfg.Symbols...); err != nil && !errors.Is(err, client.ErrNotConnected) {
			return fmt.Errorf("failed to subscribe: %w", err)
		}
	}

	log.WithField("url", cfg.URL).Info("Connecting")
	streamClient.Connect()

	<-ctx.Done()
	log.Info("Shutting down")
	streamClient.Disconnect()

	if view != nil {
		<-view.Done()
	}
	wg.Wait()
	log.Info("Client shutdown")
	return nil
}

// startKafkaBridge forwards every data event to Kafka. The returned function
// drains the forwarder and stops the producer pool.
func startKafkaBridge(cfg config.KafkaConfig, streamClient *client.Client, recorder *metrics.MetricsRecorder) (func(), error) {
	if err := kafka.CheckClusterAvailability(cfg.Brokers, 5*time.Second); err != nil {
		return nil, fmt.Errorf("kafka cluster unavailable: %w", err)
	}

	pool, err := kafka.NewProducerPool(kafka.ProducerConfig{
		BrokerList: cfg.Brokers,
		PoolSize:   cfg.PoolSize,
		Headers:    map[string]string{"source": "trading-stream"},
		Metrics:    recorder,
	})
	if err != nil {
		return nil, err
	}
	if err := pool.Start(); err != nil {
		return nil, fmt.Errorf("failed to start producer pool: %w", err)
	}

	forwarder := handlers.NewForwardHandler(handlers.NewBaseHandler(pool, cfg.TopicPrefix), cfg.Buffer, cfg.Workers)
	// Not tied to the command context so Stop can drain the queue.
	forwarder.Start(context.Background())
	detach := handlers.Register(streamClient.Bus(), forwarder, common.DataEvents()...)

	return func() {
		detach()
		forwarder.Stop()
		if err := pool.Stop(); err != nil {
			logrus.WithField("component", "stream_cmd").WithError(err).Warn("Failed to stop producer pool")
		}
	}, nil
}
