package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mycotrl/chamberlink/scanner"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for cultivation chambers",
	Long: `Scan for cultivation chambers advertising nearby.

Chambers are recognized by their advertised service UUID or, for older
firmware, by advertised-name heuristics. The MATCH column shows which
signal identified each device; weaker matches may be false positives.`,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanFormat   string
	scanAll      bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format (table, json)")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "Show all advertisers, not just chamber candidates")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanFormat != "table" && scanFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be table or json", scanFormat)
	}

	client, _, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	opts := scanner.DefaultScanOptions()
	opts.Duration = scanDuration
	opts.ChambersOnly = !scanAll

	progress := NewProgressPrinter("Scanning for chambers", "Scanning")
	progress.Start()
	devices, err := client.Scan(ctx, opts, progress.Callback())
	progress.Stop()
	if err != nil {
		return err
	}

	if scanFormat == "json" {
		return printScanJSON(devices)
	}
	printScanTable(devices)
	return nil
}

func printScanTable(devices []*scanner.DeviceInfo) {
	if len(devices) == 0 {
		fmt.Println("No chambers found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME\tRSSI\tMATCH\tSEEN")
	for _, dev := range devices {
		name := dev.Name()
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%dx\n",
			dev.Address(), name, dev.RSSI(), dev.Confidence().String(), dev.Sightings())
	}
	_ = w.Flush()
}

func printScanJSON(devices []*scanner.DeviceInfo) error {
	type entry struct {
		Address     string `json:"address"`
		Name        string `json:"name,omitempty"`
		RSSI        int    `json:"rssi"`
		Match       string `json:"match"`
		Connectable bool   `json:"connectable"`
		Sightings   int    `json:"sightings"`
		LastSeen    string `json:"lastSeen"`
	}

	entries := make([]entry, 0, len(devices))
	for _, dev := range devices {
		entries = append(entries, entry{
			Address:     dev.Address(),
			Name:        dev.Name(),
			RSSI:        dev.RSSI(),
			Match:       dev.Confidence().String(),
			Connectable: dev.Connectable(),
			Sightings:   dev.Sightings(),
			LastSeen:    dev.LastSeen().Format(time.RFC3339),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
