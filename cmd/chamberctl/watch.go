package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mycotrl/chamberlink/internal/protocol"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live environment and status notifications",
	Long: `Connect and print every environment and status notification as it
arrives. Runs until interrupted with Ctrl+C.`,
	RunE: runWatch,
}

var watchStatusOnly bool

func init() {
	watchCmd.Flags().BoolVar(&watchStatusOnly, "status-only", false, "Print only status changes")
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, _, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := connectChamber(ctx, cmd, client); err != nil {
		return err
	}
	defer func() { _ = client.Disconnect() }()

	env, cancelEnv := client.Environment()
	defer cancelEnv()
	status, cancelStatus := client.Status()
	defer cancelStatus()
	states, cancelStates := client.ConnectionStates()
	defer cancelStates()

	fmt.Println("Watching chamber (Ctrl+C to stop)...")
	lastFlags := protocol.StatusFlags(0)
	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-env:
			if watchStatusOnly {
				continue
			}
			r := update.Reading
			fmt.Printf("%s  %.1f °C  %.1f %%RH  %d ppm CO2  light %d\n",
				update.At.Format(time.TimeOnly), r.TemperatureC, r.RelativeHumidity, r.CO2PPM, r.LightRaw)
		case update := <-status:
			if update.Flags == lastFlags {
				continue
			}
			lastFlags = update.Flags
			fmt.Printf("%s  status: %s\n", update.At.Format(time.TimeOnly), formatStatusFlags(update.Flags))
		case state := <-states:
			fmt.Printf("connection: %s\n", state)
		}
	}
}
