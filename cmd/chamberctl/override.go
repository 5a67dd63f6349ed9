package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mycotrl/chamberlink/internal/protocol"
)

// overrideCmd represents the override command
var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Force actuators on regardless of the control loop",
	Long: `Force actuators on regardless of the control loop. The flags given
replace the whole override mask; running with no flags clears every
override. --disable-auto suspends automatic control entirely.`,
	RunE: runOverride,
}

var (
	overrideLight       bool
	overrideFan         bool
	overrideMist        bool
	overrideHeater      bool
	overrideDisableAuto bool
)

func init() {
	overrideCmd.Flags().BoolVar(&overrideLight, "light", false, "Force the light on")
	overrideCmd.Flags().BoolVar(&overrideFan, "fan", false, "Force the fan on")
	overrideCmd.Flags().BoolVar(&overrideMist, "mist", false, "Force the mister on")
	overrideCmd.Flags().BoolVar(&overrideHeater, "heater", false, "Force the heater on")
	overrideCmd.Flags().BoolVar(&overrideDisableAuto, "disable-auto", false, "Suspend automatic control")
}

func runOverride(cmd *cobra.Command, args []string) error {
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

	var bits protocol.OverrideBits
	if overrideLight {
		bits |= protocol.OverrideLight
	}
	if overrideFan {
		bits |= protocol.OverrideFan
	}
	if overrideMist {
		bits |= protocol.OverrideMist
	}
	if overrideHeater {
		bits |= protocol.OverrideHeater
	}
	if overrideDisableAuto {
		bits |= protocol.OverrideDisableAuto
	}

	if err := client.WriteOverrideBits(ctx, bits); err != nil {
		return err
	}

	fmt.Printf("Override mask set: %s\n", formatOverrideBits(bits))
	return nil
}

func formatOverrideBits(bits protocol.OverrideBits) string {
	if bits == 0 {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		mask protocol.OverrideBits
		name string
	}{
		{protocol.OverrideLight, "light"},
		{protocol.OverrideFan, "fan"},
		{protocol.OverrideMist, "mist"},
		{protocol.OverrideHeater, "heater"},
		{protocol.OverrideDisableAuto, "disable-auto"},
	} {
		if bits.Has(f.mask) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, ", ")
}
