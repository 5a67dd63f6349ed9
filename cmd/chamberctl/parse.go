package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mycotrl/chamberlink/internal/protocol"
)

// Flag values accept either the symbolic name or the raw wire id so scripts
// can drive chambers with species ids outside the known set.

func parseSpecies(s string) (protocol.Species, error) {
	switch strings.ToLower(s) {
	case "oyster":
		return protocol.SpeciesOyster, nil
	case "shiitake":
		return protocol.SpeciesShiitake, nil
	case "lions-mane", "lionsmane":
		return protocol.SpeciesLionsMane, nil
	case "custom":
		return protocol.SpeciesCustom, nil
	}
	id, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown species %q (oyster, shiitake, lions-mane, custom, or a numeric id)", s)
	}
	return protocol.Species(id), nil
}

func parseStage(s string) (protocol.Stage, error) {
	switch strings.ToLower(s) {
	case "incubation":
		return protocol.StageIncubation, nil
	case "pinning":
		return protocol.StagePinning, nil
	case "fruiting":
		return protocol.StageFruiting, nil
	}
	id, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown stage %q (incubation, pinning, fruiting, or a numeric id)", s)
	}
	return protocol.Stage(id), nil
}

func parseControlMode(s string) (protocol.ControlMode, error) {
	switch strings.ToLower(s) {
	case "full":
		return protocol.ModeFull, nil
	case "semi":
		return protocol.ModeSemi, nil
	case "manual":
		return protocol.ModeManual, nil
	}
	return 0, fmt.Errorf("unknown control mode %q (full, semi, manual)", s)
}

func parseLightMode(s string) (protocol.LightMode, error) {
	switch strings.ToLower(s) {
	case "off":
		return protocol.LightOff, nil
	case "on":
		return protocol.LightOn, nil
	case "cycle":
		return protocol.LightCycle, nil
	}
	return 0, fmt.Errorf("unknown light mode %q (off, on, cycle)", s)
}
