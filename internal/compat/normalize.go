// Package compat adapts outgoing stage records for legacy chamber firmware
// that only understands a subset of species identifiers. It is a
// best-effort, pure shim: it never fails the write it sits in front of.
package compat

import (
	"github.com/sirupsen/logrus"

	"github.com/mycotrl/chamberlink/internal/protocol"
)

// Default expected-days clamp window.
const (
	DefaultExpectedDaysMin = 1
	DefaultExpectedDaysMax = 365
)

// Config is the externally supplied species compatibility surface. All
// fields are optional; the zero value only clamps expected days to the
// default window.
type Config struct {
	// SpeciesMap substitutes specific outgoing species ids (src -> dst).
	SpeciesMap map[uint8]uint8 `yaml:"species_map"`
	// SpeciesAllow, when non-empty, lists the ids the peripheral accepts;
	// ids outside the list are replaced by the first allowed id.
	SpeciesAllow []uint8 `yaml:"species_allow"`
	// SpeciesFallback replaces the Custom sentinel (99) when no other rule
	// applies. Zero means no fallback.
	SpeciesFallback uint8 `yaml:"species_fallback"`

	ExpectedDaysMin int `yaml:"expected_days_min" default:"1"`
	ExpectedDaysMax int `yaml:"expected_days_max" default:"365"`
}

// Normalizer rewrites outgoing StageState records per the configured
// species rules and clamps expected days.
type Normalizer struct {
	cfg    Config
	logger *logrus.Logger
}

func NewNormalizer(cfg Config, logger *logrus.Logger) *Normalizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Normalizer{cfg: cfg, logger: logger}
}

// Normalize returns a copy of s adjusted for the target peripheral. Rules
// apply in priority order: explicit species map, then allow-list, then the
// Custom fallback; expected days are clamped last. The input is never
// mutated and the operation never fails.
func (n *Normalizer) Normalize(s protocol.StageState) protocol.StageState {
	out := s

	switch {
	case n.mapSpecies(&out):
	case n.restrictToAllowed(&out):
	case n.substituteCustom(&out):
	}

	out.ExpectedDays = n.clampExpectedDays(out.ExpectedDays)

	if out != s {
		n.logger.WithFields(logrus.Fields{
			"species":       s.Species,
			"normalized":    out.Species,
			"expected_days": out.ExpectedDays,
		}).Debug("Normalized stage state for legacy peripheral")
	}
	return out
}

func (n *Normalizer) mapSpecies(s *protocol.StageState) bool {
	dst, ok := n.cfg.SpeciesMap[uint8(s.Species)]
	if !ok {
		return false
	}
	s.Species = protocol.Species(dst)
	return true
}

func (n *Normalizer) restrictToAllowed(s *protocol.StageState) bool {
	if len(n.cfg.SpeciesAllow) == 0 {
		return false
	}
	for _, id := range n.cfg.SpeciesAllow {
		if protocol.Species(id) == s.Species {
			return false
		}
	}
	s.Species = protocol.Species(n.cfg.SpeciesAllow[0])
	return true
}

func (n *Normalizer) substituteCustom(s *protocol.StageState) bool {
	if s.Species != protocol.SpeciesCustom || n.cfg.SpeciesFallback == 0 {
		return false
	}
	s.Species = protocol.Species(n.cfg.SpeciesFallback)
	return true
}

func (n *Normalizer) clampExpectedDays(days uint16) uint16 {
	min, max := n.cfg.ExpectedDaysMin, n.cfg.ExpectedDaysMax
	// A misconfigured window must not fail the write; fall back to defaults.
	if min <= 0 {
		min = DefaultExpectedDaysMin
	}
	if max <= 0 {
		max = DefaultExpectedDaysMax
	}
	if min > max {
		min, max = DefaultExpectedDaysMin, DefaultExpectedDaysMax
	}
	if days < uint16(min) {
		return uint16(min)
	}
	if days > uint16(max) {
		return uint16(max)
	}
	return days
}
