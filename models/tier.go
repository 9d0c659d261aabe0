package models

import (
	"cmp"
	"fmt"
	"strings"
)

// Tier is an ordered priority level shared by workers (qualification) and
// slots (requirement). The zero value means "not tiered".
type Tier int

const (
	TierNone Tier = iota
	Level1
	Level2
	Level3
)

// Tiers lists the assignable tiers from most to least senior.
var Tiers = []Tier{Level3, Level2, Level1}

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "NONE"
	case Level1:
		return "LEVEL1"
	case Level2:
		return "LEVEL2"
	case Level3:
		return "LEVEL3"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Compare orders tiers ascending: -1 if t < o, 0 if equal, +1 if t > o.
func (t Tier) Compare(o Tier) int {
	return cmp.Compare(t, o)
}

// ParseTier accepts LEVEL1..LEVEL3 (case-insensitive).
func ParseTier(s string) (Tier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LEVEL1":
		return Level1, nil
	case "LEVEL2":
		return Level2, nil
	case "LEVEL3":
		return Level3, nil
	}
	return TierNone, fmt.Errorf("unknown tier %q", s)
}
