package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mycotrl/chamberlink/chamber"
	"github.com/mycotrl/chamberlink/internal/config"
	"github.com/mycotrl/chamberlink/internal/transport/goble"
)

// newClient assembles a chamber client from the global flags.
func newClient(cmd *cobra.Command) (*chamber.Client, *config.Config, *logrus.Logger, error) {
	logger, err := configureLogger(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	radio := goble.NewRadio(logger)
	return chamber.New(radio, cfg, logger), cfg, logger, nil
}

// connectChamber runs the connect chain with a progress line tracking the
// lifecycle states.
func connectChamber(ctx context.Context, cmd *cobra.Command, client *chamber.Client) error {
	address, _ := cmd.Flags().GetString("address")

	progress := NewProgressPrinter("Connecting to chamber", "starting")
	states, cancelStates := client.ConnectionStates()
	defer cancelStates()
	go func() {
		for state := range states {
			progress.SetPhase(state.String())
		}
	}()

	progress.Start()
	defer progress.Stop()
	return client.Connect(ctx, address)
}

// signalContext returns a context cancelled by Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
