package dice

import "fmt"

// Advantage is the net advantage state of a d20 roll.
type Advantage int

const (
	Normal Advantage = iota
	WithAdvantage
	WithDisadvantage
)

// String returns "normal", "advantage" or "disadvantage".
func (a Advantage) String() string {
	switch a {
	case WithAdvantage:
		return "advantage"
	case WithDisadvantage:
		return "disadvantage"
	default:
		return "normal"
	}
}

// ParseAdvantage converts a configuration or command string into an Advantage.
// The empty string maps to Normal.
func ParseAdvantage(s string) (Advantage, error) {
	switch s {
	case "", "normal":
		return Normal, nil
	case "advantage":
		return WithAdvantage, nil
	case "disadvantage":
		return WithDisadvantage, nil
	default:
		return Normal, fmt.Errorf("dice: unknown advantage mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Advantage) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Advantage) UnmarshalText(b []byte) error {
	v, err := ParseAdvantage(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// CombineAdvantage collapses the presence of advantage and disadvantage into a
// single state. Both present cancel to Normal regardless of how many sources
// of each there are.
func CombineAdvantage(hasAdvantage, hasDisadvantage bool) Advantage {
	switch {
	case hasAdvantage && hasDisadvantage:
		return Normal
	case hasAdvantage:
		return WithAdvantage
	case hasDisadvantage:
		return WithDisadvantage
	default:
		return Normal
	}
}

// Sources counts independent sources of advantage and disadvantage for one roll.
type Sources struct {
	Advantage    int `json:"advantage,omitempty"`
	Disadvantage int `json:"disadvantage,omitempty"`
}

// Add records one source in the given direction. Normal is a no-op.
func (s *Sources) Add(a Advantage) {
	switch a {
	case WithAdvantage:
		s.Advantage++
	case WithDisadvantage:
		s.Disadvantage++
	}
}

// Merge returns the sum of both source counts.
func (s Sources) Merge(o Sources) Sources {
	return Sources{Advantage: s.Advantage + o.Advantage, Disadvantage: s.Disadvantage + o.Disadvantage}
}

// Mode returns the collapsed tri-state for the recorded sources.
//
// Postcondition: Mode() == CombineAdvantage(Advantage > 0, Disadvantage > 0).
func (s Sources) Mode() Advantage {
	return CombineAdvantage(s.Advantage > 0, s.Disadvantage > 0)
}

// D20Roll records every d20 drawn for one check and the die that was kept.
type D20Roll struct {
	Mode  Advantage
	Rolls []int
	Kept  int
}

// RollD20 draws one d20, or two when mode is not Normal, and keeps the higher
// (advantage) or lower (disadvantage) die.
//
// Precondition: src must be non-nil.
// Postcondition: len(Rolls) == 1 iff mode == Normal, else 2; Kept is one of Rolls.
func RollD20(mode Advantage, src Source) D20Roll {
	first := Die(src, 20)
	if mode == Normal {
		return D20Roll{Mode: mode, Rolls: []int{first}, Kept: first}
	}
	second := Die(src, 20)
	kept := max(first, second)
	if mode == WithDisadvantage {
		kept = min(first, second)
	}
	return D20Roll{Mode: mode, Rolls: []int{first, second}, Kept: kept}
}
