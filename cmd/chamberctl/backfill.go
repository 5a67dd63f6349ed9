package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// backfillCmd represents the backfill command
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Fetch archived readings from the chamber's HTTP history endpoint",
	Long: `Fetch readings the chamber archived while no BLE central was
attached. Requires history.base_url in the config file; no BLE connection
is made.`,
	RunE: runBackfill,
}

var (
	backfillSince  time.Duration
	backfillFormat string
)

func init() {
	backfillCmd.Flags().DurationVar(&backfillSince, "since", 24*time.Hour, "How far back to fetch")
	backfillCmd.Flags().StringVarP(&backfillFormat, "format", "f", "table", "Output format (table, json)")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	if backfillFormat != "table" && backfillFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be table or json", backfillFormat)
	}

	client, _, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	readings, err := client.Backfill(ctx, time.Now().Add(-backfillSince))
	if err != nil {
		return err
	}

	if backfillFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(readings)
	}

	if len(readings) == 0 {
		fmt.Println("No archived readings in the window.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTEMP °C\tRH %\tCO2 PPM\tLIGHT")
	for _, r := range readings {
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%d\t%d\n",
			r.At().Format(time.RFC3339), r.TemperatureC, r.RelativeHumidity, r.CO2PPM, r.LightRaw)
	}
	return w.Flush()
}
