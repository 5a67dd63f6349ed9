package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTargets() ControlTargets {
	return ControlTargets{
		TempMinC: 18.0,
		TempMaxC: 24.0,
		RHMin:    85.0,
		CO2Max:   1000,
		Light:    LightOff,
	}
}

func TestControlTargetsValidate(t *testing.T) {
	// GOAL: Verify every range and consistency invariant is enforced before
	// transmission, and boundary values are accepted.
	t.Run("valid record passes", func(t *testing.T) {
		assert.NoError(t, validTargets().Validate())
	})

	t.Run("boundary values pass", func(t *testing.T) {
		tt := validTargets()
		tt.TempMinC = -20.0
		tt.TempMaxC = 60.0
		tt.RHMin = 100.0
		tt.CO2Max = 10000
		tt.Light = LightCycle
		tt.LightOnMinutes = 1
		tt.LightOffMinutes = 1439
		assert.NoError(t, tt.Validate())
	})

	cases := []struct {
		name   string
		mutate func(*ControlTargets)
	}{
		{"inverted temperature window", func(t *ControlTargets) { t.TempMinC = 30; t.TempMaxC = 20 }},
		{"equal temperature bounds", func(t *ControlTargets) { t.TempMinC = 20; t.TempMaxC = 20 }},
		{"tempMin below range", func(t *ControlTargets) { t.TempMinC = -20.5 }},
		{"tempMax above range", func(t *ControlTargets) { t.TempMaxC = 60.1 }},
		{"rhMin above 100", func(t *ControlTargets) { t.RHMin = 100.5 }},
		{"rhMin negative", func(t *ControlTargets) { t.RHMin = -1 }},
		{"co2Max above limit", func(t *ControlTargets) { t.CO2Max = 10001 }},
		{"cycle with zero on minutes", func(t *ControlTargets) {
			t.Light = LightCycle
			t.LightOnMinutes = 0
			t.LightOffMinutes = 30
		}},
		{"cycle with zero off minutes", func(t *ControlTargets) {
			t.Light = LightCycle
			t.LightOnMinutes = 30
			t.LightOffMinutes = 0
		}},
		{"cycle period over one day", func(t *ControlTargets) {
			t.Light = LightCycle
			t.LightOnMinutes = 720
			t.LightOffMinutes = 721
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tt := validTargets()
			tc.mutate(&tt)

			err := tt.Validate()
			require.Error(t, err)

			var invalidErr *InvalidControlTargetsError
			assert.ErrorAs(t, err, &invalidErr, "error MUST be InvalidControlTargetsError")
		})
	}

	t.Run("cycle bounds ignored outside cycle mode", func(t *testing.T) {
		tt := validTargets()
		tt.Light = LightOn
		tt.LightOnMinutes = 0
		tt.LightOffMinutes = 0
		assert.NoError(t, tt.Validate())
	})
}
