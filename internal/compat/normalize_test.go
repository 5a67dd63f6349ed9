package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mycotrl/chamberlink/internal/protocol"
)

func stageWith(species protocol.Species, days uint16) protocol.StageState {
	return protocol.StageState{
		Mode:            protocol.ModeFull,
		Species:         species,
		Stage:           protocol.StageFruiting,
		StageStartEpoch: 1755993600,
		ExpectedDays:    days,
	}
}

func TestNormalizerRulePrecedence(t *testing.T) {
	// GOAL: Verify the species map wins over both the allow-list and the
	// Custom fallback when all three would fire.
	n := NewNormalizer(Config{
		SpeciesMap:      map[uint8]uint8{99: 1},
		SpeciesAllow:    []uint8{1},
		SpeciesFallback: 1,
	}, nil)

	out := n.Normalize(stageWith(protocol.SpeciesCustom, 14))
	assert.Equal(t, protocol.SpeciesOyster, out.Species, "mapping rule MUST resolve before allow-list and fallback")
}

func TestNormalizerSpeciesMap(t *testing.T) {
	// GOAL: Verify configured src->dst substitutions apply, and unmapped ids
	// pass through.
	n := NewNormalizer(Config{SpeciesMap: map[uint8]uint8{3: 2}}, nil)

	out := n.Normalize(stageWith(protocol.SpeciesLionsMane, 14))
	assert.Equal(t, protocol.SpeciesShiitake, out.Species)

	out = n.Normalize(stageWith(protocol.SpeciesOyster, 14))
	assert.Equal(t, protocol.SpeciesOyster, out.Species)
}

func TestNormalizerAllowList(t *testing.T) {
	// GOAL: Verify ids outside a non-empty allow-list are replaced by the
	// first allowed id, while listed ids are untouched.
	n := NewNormalizer(Config{SpeciesAllow: []uint8{1, 2}}, nil)

	out := n.Normalize(stageWith(protocol.SpeciesLionsMane, 14))
	assert.Equal(t, protocol.SpeciesOyster, out.Species, "disallowed id MUST become the first allowed id")

	out = n.Normalize(stageWith(protocol.SpeciesShiitake, 14))
	assert.Equal(t, protocol.SpeciesShiitake, out.Species)
}

func TestNormalizerCustomFallback(t *testing.T) {
	// GOAL: Verify the Custom sentinel falls back only when configured and
	// no earlier rule fired.
	n := NewNormalizer(Config{SpeciesFallback: 2}, nil)
	out := n.Normalize(stageWith(protocol.SpeciesCustom, 14))
	assert.Equal(t, protocol.SpeciesShiitake, out.Species)

	// No fallback configured: Custom passes through.
	n = NewNormalizer(Config{}, nil)
	out = n.Normalize(stageWith(protocol.SpeciesCustom, 14))
	assert.Equal(t, protocol.SpeciesCustom, out.Species)
}

func TestNormalizerExpectedDaysClamp(t *testing.T) {
	// GOAL: Verify expected days are clamped into the configured window,
	// with defaults for unset or nonsensical bounds.
	t.Run("default window", func(t *testing.T) {
		n := NewNormalizer(Config{}, nil)
		assert.Equal(t, uint16(1), n.Normalize(stageWith(protocol.SpeciesOyster, 0)).ExpectedDays)
		assert.Equal(t, uint16(365), n.Normalize(stageWith(protocol.SpeciesOyster, 9999)).ExpectedDays)
		assert.Equal(t, uint16(14), n.Normalize(stageWith(protocol.SpeciesOyster, 14)).ExpectedDays)
	})

	t.Run("configured window", func(t *testing.T) {
		n := NewNormalizer(Config{ExpectedDaysMin: 7, ExpectedDaysMax: 30}, nil)
		assert.Equal(t, uint16(7), n.Normalize(stageWith(protocol.SpeciesOyster, 2)).ExpectedDays)
		assert.Equal(t, uint16(30), n.Normalize(stageWith(protocol.SpeciesOyster, 90)).ExpectedDays)
	})

	t.Run("inverted window falls back to defaults", func(t *testing.T) {
		n := NewNormalizer(Config{ExpectedDaysMin: 100, ExpectedDaysMax: 5}, nil)
		out := n.Normalize(stageWith(protocol.SpeciesOyster, 200))
		assert.Equal(t, uint16(200), out.ExpectedDays, "broken clamp config MUST NOT corrupt the record")
	})
}

func TestNormalizerPurity(t *testing.T) {
	// GOAL: Verify the input record is never mutated and an untouched record
	// comes back identical.
	n := NewNormalizer(Config{SpeciesMap: map[uint8]uint8{1: 2}}, nil)

	in := stageWith(protocol.SpeciesOyster, 14)
	orig := in
	out := n.Normalize(in)

	assert.Equal(t, orig, in, "input MUST NOT be mutated")
	assert.Equal(t, protocol.SpeciesShiitake, out.Species)

	// No rule fires: record returned unchanged.
	unchanged := n.Normalize(stageWith(protocol.SpeciesShiitake, 14))
	assert.Equal(t, stageWith(protocol.SpeciesShiitake, 14), unchanged)
}
