package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mycotrl/chamberlink/internal/protocol"
)

// targetsCmd groups the control-target operations
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Read or update the chamber's control targets",
}

var targetsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the active control targets",
	RunE:  runTargetsGet,
}

var targetsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update control targets",
	Long: `Update control targets. Starts from the chamber's current record,
so only the flags you pass change; everything else is preserved.`,
	RunE: runTargetsSet,
}

var (
	targetsTempMin  float64
	targetsTempMax  float64
	targetsRHMin    float64
	targetsCO2Max   uint16
	targetsLight    string
	targetsLightOn  uint16
	targetsLightOff uint16
)

func init() {
	targetsCmd.AddCommand(targetsGetCmd)
	targetsCmd.AddCommand(targetsSetCmd)

	targetsSetCmd.Flags().Float64Var(&targetsTempMin, "temp-min", 0, "Lower temperature bound, °C")
	targetsSetCmd.Flags().Float64Var(&targetsTempMax, "temp-max", 0, "Upper temperature bound, °C")
	targetsSetCmd.Flags().Float64Var(&targetsRHMin, "rh-min", 0, "Minimum relative humidity, %")
	targetsSetCmd.Flags().Uint16Var(&targetsCO2Max, "co2-max", 0, "Maximum CO2, ppm")
	targetsSetCmd.Flags().StringVar(&targetsLight, "light", "", "Light mode (off, on, cycle)")
	targetsSetCmd.Flags().Uint16Var(&targetsLightOn, "light-on", 0, "Light on minutes per cycle")
	targetsSetCmd.Flags().Uint16Var(&targetsLightOff, "light-off", 0, "Light off minutes per cycle")
}

func runTargetsGet(cmd *cobra.Command, args []string) error {
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

	targets, err := client.ReadControlTargets(ctx)
	if err != nil {
		return err
	}
	printTargets(targets)
	return nil
}

func runTargetsSet(cmd *cobra.Command, args []string) error {
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

	targets, err := client.ReadControlTargets(ctx)
	if err != nil {
		return fmt.Errorf("read current targets: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("temp-min") {
		targets.TempMinC = targetsTempMin
	}
	if flags.Changed("temp-max") {
		targets.TempMaxC = targetsTempMax
	}
	if flags.Changed("rh-min") {
		targets.RHMin = targetsRHMin
	}
	if flags.Changed("co2-max") {
		targets.CO2Max = targetsCO2Max
	}
	if flags.Changed("light") {
		mode, err := parseLightMode(targetsLight)
		if err != nil {
			return err
		}
		targets.Light = mode
	}
	if flags.Changed("light-on") {
		targets.LightOnMinutes = targetsLightOn
	}
	if flags.Changed("light-off") {
		targets.LightOffMinutes = targetsLightOff
	}

	if err := client.WriteControlTargets(ctx, targets); err != nil {
		return err
	}
	fmt.Println("Control targets updated.")
	printTargets(targets)
	return nil
}

func printTargets(t protocol.ControlTargets) {
	fmt.Printf("temperature: %.1f–%.1f °C\n", t.TempMinC, t.TempMaxC)
	fmt.Printf("humidity:    min %.1f %%RH\n", t.RHMin)
	fmt.Printf("co2:         max %d ppm\n", t.CO2Max)
	if t.Light == protocol.LightCycle {
		fmt.Printf("light:       cycle, %dm on / %dm off\n", t.LightOnMinutes, t.LightOffMinutes)
	} else {
		fmt.Printf("light:       %s\n", t.Light)
	}
}
