package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/alejoacosta74/trading-stream/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trading-stream",
	Short: "Realtime trading stream client",
	Long: `Connects to a trading dashboard WebSocket server, keeps the connection
alive across drops and replays subscriptions on every reconnect.

Settings come from flags, TRADINGWS_* environment variables or a config file.`,
	PersistentPreRunE: initConfig,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads the config file and environment, then sets up logging.
func initConfig(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)

	levelName := viper.GetString(config.KeyLogLevel)
	if levelName == "" {
		levelName = "info"
	}
	level, err := logrus.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", levelName, err)
	}
	logrus.SetLevel(level)

	if viper.ConfigFileUsed() != "" {
		logrus.Debugf("Using config file %s", viper.ConfigFileUsed())
	}
	return nil
}
