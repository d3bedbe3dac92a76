package domain

import (
	"fmt"
	"strconv"
)

// SeverityTier is an ordinal bucket derived from a PM2.5 concentration.
type SeverityTier int

const (
	TierUnknown SeverityTier = iota
	TierGood
	TierModerate
	TierHigh
	TierVeryHigh
	TierHazardous
)

// RGB is a display color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Slice returns the color as [r, g, b], the shape map layers expect.
func (c RGB) Slice() []int {
	return []int{int(c.R), int(c.G), int(c.B)}
}

// Hex returns the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var tierColors = map[SeverityTier]RGB{
	TierUnknown:   {158, 158, 158},
	TierGood:      {46, 204, 113},
	TierModerate:  {241, 196, 15},
	TierHigh:      {230, 126, 34},
	TierVeryHigh:  {231, 76, 60},
	TierHazardous: {142, 68, 173},
}

var tierNames = map[SeverityTier]string{
	TierUnknown:   "unknown",
	TierGood:      "good",
	TierModerate:  "moderate",
	TierHigh:      "high",
	TierVeryHigh:  "very_high",
	TierHazardous: "hazardous",
}

// Classify maps a PM2.5 value to its severity tier. A nil value is Unknown.
func Classify(pm *float64) SeverityTier {
	if pm == nil {
		return TierUnknown
	}
	switch v := *pm; {
	case v <= 12:
		return TierGood
	case v <= 35:
		return TierModerate
	case v <= 55:
		return TierHigh
	case v <= 150:
		return TierVeryHigh
	default:
		return TierHazardous
	}
}

// Color returns the display color for the tier.
func (t SeverityTier) Color() RGB {
	if c, ok := tierColors[t]; ok {
		return c
	}
	return tierColors[TierUnknown]
}

func (t SeverityTier) String() string {
	if s, ok := tierNames[t]; ok {
		return s
	}
	return tierNames[TierUnknown]
}

// MarshalText encodes the tier by name.
func (t SeverityTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name; unknown names decode to TierUnknown.
func (t *SeverityTier) UnmarshalText(b []byte) error {
	*t = TierUnknown
	for tier, name := range tierNames {
		if name == string(b) {
			*t = tier
			break
		}
	}
	return nil
}

// Badge is the compact node-status indicator. Its thresholds (35/55) are
// independent of the severity tiers.
type Badge int

const (
	BadgeNone Badge = iota
	BadgeOK
	BadgeWarn
	BadgeDanger
)

// BadgeFor classifies a PM2.5 value into a status badge.
func BadgeFor(pm *float64) Badge {
	if pm == nil {
		return BadgeNone
	}
	switch v := *pm; {
	case v <= 35:
		return BadgeOK
	case v <= 55:
		return BadgeWarn
	default:
		return BadgeDanger
	}
}

// Symbol returns the glyph shown next to the value.
func (b Badge) Symbol() string {
	switch b {
	case BadgeOK:
		return "✅"
	case BadgeWarn:
		return "🟧"
	case BadgeDanger:
		return "🟥"
	default:
		return "—"
	}
}

func (b Badge) String() string {
	switch b {
	case BadgeOK:
		return "ok"
	case BadgeWarn:
		return "warn"
	case BadgeDanger:
		return "danger"
	default:
		return "none"
	}
}

// MarshalText encodes the badge by name.
func (b Badge) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText decodes a badge name; unknown names decode to BadgeNone.
func (b *Badge) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ok":
		*b = BadgeOK
	case "warn":
		*b = BadgeWarn
	case "danger":
		*b = BadgeDanger
	default:
		*b = BadgeNone
	}
	return nil
}

// FormatBadge renders "<symbol> <value>", or "—" when pm is absent.
func FormatBadge(pm *float64) string {
	b := BadgeFor(pm)
	if b == BadgeNone {
		return b.Symbol()
	}
	return b.Symbol() + " " + strconv.FormatFloat(*pm, 'f', -1, 64)
}
