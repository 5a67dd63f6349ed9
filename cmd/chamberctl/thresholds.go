package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mycotrl/chamberlink/internal/protocol"
)

// thresholdsCmd groups the per-species threshold profile operations
var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Read or update per-species, per-stage threshold profiles",
}

var thresholdsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Query one threshold profile",
	RunE:  runThresholdsGet,
}

var thresholdsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update one threshold profile",
	Long: `Update one threshold profile. Only the value flags you pass are
sent; the firmware keeps its stored value for everything else.`,
	RunE: runThresholdsSet,
}

var (
	thresholdsSpecies  string
	thresholdsStage    string
	thresholdsTempMin  float64
	thresholdsTempMax  float64
	thresholdsRHMin    float64
	thresholdsCO2Max   uint16
	thresholdsLight    string
	thresholdsLightOn  uint16
	thresholdsLightOff uint16
	thresholdsDays     uint16
)

func init() {
	thresholdsCmd.AddCommand(thresholdsGetCmd)
	thresholdsCmd.AddCommand(thresholdsSetCmd)

	for _, c := range []*cobra.Command{thresholdsGetCmd, thresholdsSetCmd} {
		c.Flags().StringVar(&thresholdsSpecies, "species", "", "Species (required)")
		c.Flags().StringVar(&thresholdsStage, "stage", "", "Stage (required)")
		_ = c.MarkFlagRequired("species")
		_ = c.MarkFlagRequired("stage")
	}

	thresholdsSetCmd.Flags().Float64Var(&thresholdsTempMin, "temp-min", 0, "Lower temperature bound, °C")
	thresholdsSetCmd.Flags().Float64Var(&thresholdsTempMax, "temp-max", 0, "Upper temperature bound, °C")
	thresholdsSetCmd.Flags().Float64Var(&thresholdsRHMin, "rh-min", 0, "Minimum relative humidity, %")
	thresholdsSetCmd.Flags().Uint16Var(&thresholdsCO2Max, "co2-max", 0, "Maximum CO2, ppm")
	thresholdsSetCmd.Flags().StringVar(&thresholdsLight, "light", "", "Light mode (off, on, cycle)")
	thresholdsSetCmd.Flags().Uint16Var(&thresholdsLightOn, "light-on", 0, "Light on minutes per cycle")
	thresholdsSetCmd.Flags().Uint16Var(&thresholdsLightOff, "light-off", 0, "Light off minutes per cycle")
	thresholdsSetCmd.Flags().Uint16Var(&thresholdsDays, "expected-days", 0, "Expected stage length in days")
}

func thresholdsKey() (protocol.Species, protocol.Stage, error) {
	species, err := parseSpecies(thresholdsSpecies)
	if err != nil {
		return 0, 0, err
	}
	stage, err := parseStage(thresholdsStage)
	if err != nil {
		return 0, 0, err
	}
	return species, stage, nil
}

func runThresholdsGet(cmd *cobra.Command, args []string) error {
	species, stage, err := thresholdsKey()
	if err != nil {
		return err
	}

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

	profile, err := client.ReadStageThresholds(ctx, species, stage)
	if err != nil {
		return err
	}
	printThresholds(profile)
	return nil
}

func runThresholdsSet(cmd *cobra.Command, args []string) error {
	species, stage, err := thresholdsKey()
	if err != nil {
		return err
	}

	profile := protocol.StageThresholds{Species: species, Stage: stage}
	flags := cmd.Flags()
	if flags.Changed("temp-min") {
		profile.TempMinC = &thresholdsTempMin
	}
	if flags.Changed("temp-max") {
		profile.TempMaxC = &thresholdsTempMax
	}
	if flags.Changed("rh-min") {
		profile.RHMin = &thresholdsRHMin
	}
	if flags.Changed("co2-max") {
		profile.CO2Max = &thresholdsCO2Max
	}
	if flags.Changed("light") {
		mode, err := parseLightMode(thresholdsLight)
		if err != nil {
			return err
		}
		profile.Light = &mode
	}
	if flags.Changed("light-on") {
		profile.LightOnMinutes = &thresholdsLightOn
	}
	if flags.Changed("light-off") {
		profile.LightOffMinutes = &thresholdsLightOff
	}
	if flags.Changed("expected-days") {
		profile.ExpectedDays = &thresholdsDays
	}

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

	acked, err := client.WriteStageThresholds(ctx, profile)
	if err != nil {
		return err
	}
	fmt.Println("Threshold profile updated.")
	printThresholds(acked)
	return nil
}

func printThresholds(t *protocol.StageThresholds) {
	fmt.Printf("species: %s, stage: %s\n", t.Species, t.Stage)
	if t.TempMinC != nil && t.TempMaxC != nil {
		fmt.Printf("temperature:  %.1f–%.1f °C\n", *t.TempMinC, *t.TempMaxC)
	} else if t.TempMinC != nil {
		fmt.Printf("temperature:  min %.1f °C\n", *t.TempMinC)
	} else if t.TempMaxC != nil {
		fmt.Printf("temperature:  max %.1f °C\n", *t.TempMaxC)
	}
	if t.RHMin != nil {
		fmt.Printf("humidity:     min %.1f %%RH\n", *t.RHMin)
	}
	if t.CO2Max != nil {
		fmt.Printf("co2:          max %d ppm\n", *t.CO2Max)
	}
	if t.Light != nil {
		if *t.Light == protocol.LightCycle && t.LightOnMinutes != nil && t.LightOffMinutes != nil {
			fmt.Printf("light:        cycle, %dm on / %dm off\n", *t.LightOnMinutes, *t.LightOffMinutes)
		} else {
			fmt.Printf("light:        %s\n", *t.Light)
		}
	}
	if t.ExpectedDays != nil {
		fmt.Printf("expected:     %d days\n", *t.ExpectedDays)
	}
}
