package transport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mycotrl/chamberlink/internal/testutils"
	"github.com/mycotrl/chamberlink/internal/transport"
)

// GOAL: Verify the advertisement matching tiers, from the advertised
// service UUID down to the permissive last-resort name hint.
func TestMatchChamber(t *testing.T) {
	tests := []struct {
		name     string
		adv      testutils.FakeAdvertisement
		expected transport.MatchConfidence
	}{
		{
			name: "service uuid beats name",
			adv: testutils.FakeAdvertisement{
				Name:         "SomethingElse",
				ServiceUUIDs: []string{transport.ServiceUUID},
			},
			expected: transport.MatchServiceUUID,
		},
		{
			name: "service uuid matched regardless of formatting",
			adv: testutils.FakeAdvertisement{
				ServiceUUIDs: []string{"8B83000157A14F9EBA2A9E12D8F6C3B7"},
			},
			expected: transport.MatchServiceUUID,
		},
		{
			name:     "exact name prefix",
			adv:      testutils.FakeAdvertisement{Name: "MycoChamber-0042"},
			expected: transport.MatchNamePrefix,
		},
		{
			name:     "case-insensitive substring",
			adv:      testutils.FakeAdvertisement{Name: "old mycochamber unit"},
			expected: transport.MatchNameSubstring,
		},
		{
			name:     "generic hint as last resort",
			adv:      testutils.FakeAdvertisement{Name: "MYCO-GROW v1"},
			expected: transport.MatchNameHint,
		},
		{
			name:     "unrelated device",
			adv:      testutils.FakeAdvertisement{Name: "JBL Flip 5"},
			expected: transport.MatchNone,
		},
		{
			name:     "nameless advertisement",
			adv:      testutils.FakeAdvertisement{},
			expected: transport.MatchNone,
		},
		{
			name: "foreign service uuid falls through to name",
			adv: testutils.FakeAdvertisement{
				Name:         "MycoChamber-7",
				ServiceUUIDs: []string{"180f"},
			},
			expected: transport.MatchNamePrefix,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adv := tt.adv
			assert.Equal(t, tt.expected, transport.MatchChamber(&adv))
		})
	}
}

// GOAL: Verify UUID normalization tolerates case and dash differences.
func TestNormalizeUUID(t *testing.T) {
	assert.Equal(t,
		transport.NormalizeUUID(transport.ServiceUUID),
		transport.NormalizeUUID("8B830001-57A1-4F9E-BA2A-9E12D8F6C3B7"))
	assert.Equal(t, "180a", transport.NormalizeUUID("180A"))
}
