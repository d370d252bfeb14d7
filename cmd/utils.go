package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// handleSignals cancels the context on the first SIGINT/SIGTERM and exits
// on the second, for when graceful shutdown hangs.
func handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logrus.WithField("signal", sig.String()).Info("Received signal, shutting down")
	cancel()

	sig = <-sigChan
	logrus.WithField("signal", sig.String()).Warn("Received second signal, exiting")
	os.Exit(1)
}
