// Package protocol implements the binary wire records exchanged with the
// chamber over its GATT characteristics. All fixed records are little-endian
// with no padding; encode/decode are pure functions with exact-size
// enforcement. Value-range validation happens before encoding, never during
// decoding.
package protocol

import (
	"fmt"
	"time"
)

// Fixed record sizes in bytes.
const (
	EnvironmentalReadingSize = 12
	ControlTargetsSize       = 15
	StageStateSize           = 10
	OverrideBitsSize         = 2
	StatusFlagsSize          = 4
)

// LightMode selects how the chamber drives its grow light.
type LightMode uint8

const (
	LightOff   LightMode = 0
	LightOn    LightMode = 1
	LightCycle LightMode = 2
)

func (m LightMode) String() string {
	switch m {
	case LightOff:
		return "off"
	case LightOn:
		return "on"
	case LightCycle:
		return "cycle"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// ControlMode is the chamber's automation level.
type ControlMode uint8

const (
	ModeFull   ControlMode = 0
	ModeSemi   ControlMode = 1
	ModeManual ControlMode = 2
)

func (m ControlMode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeSemi:
		return "semi"
	case ModeManual:
		return "manual"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// Species identifies the cultivated species. 99 is the Custom sentinel the
// firmware uses for user-defined profiles.
type Species uint8

const (
	SpeciesOyster    Species = 1
	SpeciesShiitake  Species = 2
	SpeciesLionsMane Species = 3
	SpeciesCustom    Species = 99
)

func (s Species) String() string {
	switch s {
	case SpeciesOyster:
		return "oyster"
	case SpeciesShiitake:
		return "shiitake"
	case SpeciesLionsMane:
		return "lions-mane"
	case SpeciesCustom:
		return "custom"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Stage is the grow stage within a cultivation cycle.
type Stage uint8

const (
	StageIncubation Stage = 1
	StagePinning    Stage = 2
	StageFruiting   Stage = 3
)

func (s Stage) String() string {
	switch s {
	case StageIncubation:
		return "incubation"
	case StagePinning:
		return "pinning"
	case StageFruiting:
		return "fruiting"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// EnvironmentalReading is the 12-byte sensor snapshot streamed by the
// environment characteristic.
//
// Wire layout: co2Ppm u16, temperatureC s16 (x10), relativeHumidity u16
// (x10), lightRaw u16, uptimeMs u32.
type EnvironmentalReading struct {
	CO2PPM           uint16
	TemperatureC     float64 // quantized to 0.1 degC on the wire
	RelativeHumidity float64 // percent, quantized to 0.1 on the wire
	LightRaw         uint16
	UptimeMs         uint32
}

// ControlTargets is the 15-byte control setpoint record.
//
// Wire layout: tempMin s16 (x10), tempMax s16 (x10), rhMin u16 (x10),
// co2Max u16, lightMode u8, onMinutes u16, offMinutes u16, reserved u16.
type ControlTargets struct {
	TempMinC        float64
	TempMaxC        float64
	RHMin           float64
	CO2Max          uint16
	Light           LightMode
	LightOnMinutes  uint16
	LightOffMinutes uint16
}

// StageState is the 10-byte cultivation stage record.
//
// Wire layout: mode u8, speciesId u8, stageId u8, stageStartEpochSec u32,
// expectedDays u16, reserved u8. StageStartEpoch is device time, not host
// time.
type StageState struct {
	Mode            ControlMode
	Species         Species
	Stage           Stage
	StageStartEpoch uint32
	ExpectedDays    uint16
}

// StartedAt returns the stage start as host wall-clock time.
func (s StageState) StartedAt() time.Time {
	return time.Unix(int64(s.StageStartEpoch), 0)
}

// OverrideBits is the 2-byte manual actuator override bitfield.
type OverrideBits uint16

const (
	OverrideLight       OverrideBits = 1 << 0
	OverrideFan         OverrideBits = 1 << 1
	OverrideMist        OverrideBits = 1 << 2
	OverrideHeater      OverrideBits = 1 << 3
	OverrideDisableAuto OverrideBits = 1 << 7
)

// Has reports whether all bits in mask are set.
func (b OverrideBits) Has(mask OverrideBits) bool {
	return b&mask == mask
}

// StatusFlags is the 4-byte device status bitfield streamed by the status
// characteristic.
type StatusFlags uint32

const (
	StatusSensorError    StatusFlags = 1 << 0
	StatusControlError   StatusFlags = 1 << 1
	StatusStageReady     StatusFlags = 1 << 2
	StatusThresholdAlarm StatusFlags = 1 << 3
	StatusConnectivity   StatusFlags = 1 << 4
	StatusSimulation     StatusFlags = 1 << 7
)

// Has reports whether all bits in mask are set.
func (f StatusFlags) Has(mask StatusFlags) bool {
	return f&mask == mask
}

func (f StatusFlags) String() string {
	if f == 0 {
		return "ok"
	}
	names := []struct {
		mask StatusFlags
		name string
	}{
		{StatusSensorError, "sensor-error"},
		{StatusControlError, "control-error"},
		{StatusStageReady, "stage-ready"},
		{StatusThresholdAlarm, "threshold-alarm"},
		{StatusConnectivity, "connectivity"},
		{StatusSimulation, "simulation"},
	}
	out := ""
	for _, n := range names {
		if f.Has(n.mask) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if out == "" {
		return fmt.Sprintf("0x%08x", uint32(f))
	}
	return out
}
