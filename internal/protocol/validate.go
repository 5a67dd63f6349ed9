package protocol

import "fmt"

// Control target range bounds enforced before transmission.
const (
	TempRangeMinC = -20.0
	TempRangeMaxC = 60.0
	CO2MaxLimit   = 10000
	// A light cycle must fit within one day.
	CycleMaxMinutes = 1440
)

// InvalidControlTargetsError reports a ControlTargets record that violates a
// range or consistency invariant. It is raised before any transmission.
type InvalidControlTargetsError struct {
	Reason string
}

func (e *InvalidControlTargetsError) Error() string {
	return fmt.Sprintf("invalid control targets: %s", e.Reason)
}

// Is allows errors.Is comparison against a zero-valued
// *InvalidControlTargetsError.
func (e *InvalidControlTargetsError) Is(target error) bool {
	_, ok := target.(*InvalidControlTargetsError)
	return ok
}

func invalidTargets(format string, args ...any) error {
	return &InvalidControlTargetsError{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the ControlTargets invariants: tempMin < tempMax, both in
// [-20, 60] degC, rhMin in [0, 100], co2Max in [0, 10000], and for CYCLE
// light mode both phases positive with a combined period of at most 1440
// minutes.
func (t ControlTargets) Validate() error {
	if t.TempMinC < TempRangeMinC || t.TempMinC > TempRangeMaxC {
		return invalidTargets("tempMin %.1f out of range [%.0f, %.0f]", t.TempMinC, TempRangeMinC, TempRangeMaxC)
	}
	if t.TempMaxC < TempRangeMinC || t.TempMaxC > TempRangeMaxC {
		return invalidTargets("tempMax %.1f out of range [%.0f, %.0f]", t.TempMaxC, TempRangeMinC, TempRangeMaxC)
	}
	if t.TempMinC >= t.TempMaxC {
		return invalidTargets("tempMin %.1f must be below tempMax %.1f", t.TempMinC, t.TempMaxC)
	}
	if t.RHMin < 0 || t.RHMin > 100 {
		return invalidTargets("rhMin %.1f out of range [0, 100]", t.RHMin)
	}
	if t.CO2Max > CO2MaxLimit {
		return invalidTargets("co2Max %d out of range [0, %d]", t.CO2Max, CO2MaxLimit)
	}
	if t.Light == LightCycle {
		if t.LightOnMinutes == 0 || t.LightOffMinutes == 0 {
			return invalidTargets("cycle light mode requires positive on/off minutes (on=%d, off=%d)",
				t.LightOnMinutes, t.LightOffMinutes)
		}
		if int(t.LightOnMinutes)+int(t.LightOffMinutes) > CycleMaxMinutes {
			return invalidTargets("light cycle period %d exceeds %d minutes",
				int(t.LightOnMinutes)+int(t.LightOffMinutes), CycleMaxMinutes)
		}
	}
	return nil
}
