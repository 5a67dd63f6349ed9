package transport

import "strings"

// Advertised-name heuristics. Chambers normally advertise the service UUID,
// but some firmware builds omit it from the advertising PDU, so the name is
// accepted as a secondary signal.
const (
	// AdvertisedNamePrefix is the exact name prefix current firmware uses.
	AdvertisedNamePrefix = "MycoChamber"

	// genericNameHint is a short last-resort substring. It is deliberately
	// permissive for very old firmware and WILL over-match unrelated
	// devices; callers treat it as a weak signal only.
	genericNameHint = "myco"
)

// MatchConfidence grades how strongly an advertisement looked like a
// chamber.
type MatchConfidence int

const (
	MatchNone MatchConfidence = iota
	MatchNameHint
	MatchNameSubstring
	MatchNamePrefix
	MatchServiceUUID
)

func (c MatchConfidence) String() string {
	switch c {
	case MatchServiceUUID:
		return "service-uuid"
	case MatchNamePrefix:
		return "name-prefix"
	case MatchNameSubstring:
		return "name-substring"
	case MatchNameHint:
		return "name-hint"
	default:
		return "none"
	}
}

// MatchChamber reports whether adv looks like a chamber, and with what
// confidence. A device matches when it advertises the chamber service UUID,
// or when its name satisfies the three-tier heuristic: exact prefix,
// case-insensitive substring, or the short generic hint as a last resort.
func MatchChamber(adv Advertisement) MatchConfidence {
	want := NormalizeUUID(ServiceUUID)
	for _, svc := range adv.Services() {
		if NormalizeUUID(svc) == want {
			return MatchServiceUUID
		}
	}
	return matchName(adv.LocalName())
}

func matchName(name string) MatchConfidence {
	if name == "" {
		return MatchNone
	}
	if strings.HasPrefix(name, AdvertisedNamePrefix) {
		return MatchNamePrefix
	}
	lower := strings.ToLower(name)
	if strings.Contains(lower, strings.ToLower(AdvertisedNamePrefix)) {
		return MatchNameSubstring
	}
	if strings.Contains(lower, genericNameHint) {
		return MatchNameHint
	}
	return MatchNone
}
