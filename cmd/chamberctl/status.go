package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mycotrl/chamberlink/internal/protocol"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the chamber's current readings, stage, and setpoints",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	env, err := client.ReadEnvironmental(ctx)
	if err != nil {
		return fmt.Errorf("read environmental: %w", err)
	}
	flags, err := client.ReadStatusFlags(ctx)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	stage, err := client.ReadStageState(ctx)
	if err != nil {
		return fmt.Errorf("read stage: %w", err)
	}
	targets, err := client.ReadControlTargets(ctx)
	if err != nil {
		return fmt.Errorf("read targets: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Temperature:\t%.1f °C\t(band %.1f–%.1f)\n", env.TemperatureC, targets.TempMinC, targets.TempMaxC)
	fmt.Fprintf(w, "Humidity:\t%.1f %%RH\t(min %.1f)\n", env.RelativeHumidity, targets.RHMin)
	fmt.Fprintf(w, "CO2:\t%d ppm\t(max %d)\n", env.CO2PPM, targets.CO2Max)
	fmt.Fprintf(w, "Light:\t%d raw\t(%s", env.LightRaw, targets.Light)
	if targets.Light == protocol.LightCycle {
		fmt.Fprintf(w, " %dm on / %dm off", targets.LightOnMinutes, targets.LightOffMinutes)
	}
	fmt.Fprintln(w, ")")
	fmt.Fprintf(w, "Stage:\t%s %s\t(day %d of %d, %s mode)\n",
		stage.Species, stage.Stage, stageDay(stage), stage.ExpectedDays, stage.Mode)
	fmt.Fprintf(w, "Status:\t%s\t\n", formatStatusFlags(flags))
	fmt.Fprintf(w, "Uptime:\t%s\t\n", (time.Duration(env.UptimeMs) * time.Millisecond).Round(time.Second))
	return w.Flush()
}

func stageDay(s protocol.StageState) int {
	if s.StageStartEpoch == 0 {
		return 0
	}
	return int(time.Since(s.StartedAt()).Hours()/24) + 1
}

func formatStatusFlags(flags protocol.StatusFlags) string {
	if flags == 0 {
		return color.GreenString("ok")
	}
	text := flags.String()
	if flags.Has(protocol.StatusSensorError) || flags.Has(protocol.StatusControlError) || flags.Has(protocol.StatusThresholdAlarm) {
		return color.RedString(text)
	}
	return color.YellowString(text)
}
