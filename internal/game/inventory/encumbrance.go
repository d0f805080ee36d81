package inventory

import "fmt"

// Mode selects how encumbrance affects speed. A campaign picks exactly one.
type Mode int

const (
	// ModeStandard subtracts a flat amount from speed.
	ModeStandard Mode = iota
	// ModeVariant multiplies speed by a fraction.
	ModeVariant
)

// String returns "standard" or "variant".
func (m Mode) String() string {
	if m == ModeVariant {
		return "variant"
	}
	return "standard"
}

// ParseMode converts a configuration value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "standard", "":
		return ModeStandard, nil
	case "variant":
		return ModeVariant, nil
	default:
		return 0, fmt.Errorf("inventory: unknown encumbrance mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Level is the encumbrance severity, in ascending order.
type Level int

const (
	LevelNone Level = iota
	LevelEncumbered
	LevelHeavilyEncumbered
	LevelOverloaded
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelEncumbered:
		return "encumbered"
	case LevelHeavilyEncumbered:
		return "heavily_encumbered"
	case LevelOverloaded:
		return "overloaded"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Fraction is a speed multiplier Num/Den.
type Fraction struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

var (
	speedPenalty = [...]int{LevelNone: 0, LevelEncumbered: 10, LevelHeavilyEncumbered: 20}
	speedFactor  = [...]Fraction{
		LevelNone:              {1, 1},
		LevelEncumbered:        {2, 3},
		LevelHeavilyEncumbered: {1, 2},
		LevelOverloaded:        {0, 1},
	}
)

// Status is the derived encumbrance of one character. It is recomputed from
// inventory on demand and never stored.
type Status struct {
	Mode                       Mode    `json:"mode"`
	Level                      Level   `json:"level"`
	Carried                    float64 `json:"carried"`
	Capacity                   float64 `json:"capacity"`
	EncumberedThreshold        float64 `json:"encumbered_threshold"`
	HeavilyEncumberedThreshold float64 `json:"heavily_encumbered_threshold"`
	// SpeedPenalty is the flat reduction applied in ModeStandard.
	SpeedPenalty int `json:"speed_penalty"`
	// SpeedFactor is the multiplier applied in ModeVariant.
	SpeedFactor Fraction `json:"speed_factor"`
	// Disadvantage applies to STR, DEX and CON checks, attack rolls and saves.
	Disadvantage bool `json:"disadvantage"`
}

// Calculate derives encumbrance from strength and carried weight. Thresholds
// are 5x, 10x and 15x strength, doubled for a powerful build; a level applies
// only when carried weight strictly exceeds its threshold.
//
// Precondition: none; negative strength and weight are treated as 0.
// Postcondition: Level is LevelOverloaded iff carried > Capacity.
func Calculate(strength int, carried float64, powerfulBuild bool, mode Mode) Status {
	str := float64(max(strength, 0))
	carried = max(carried, 0)
	mult := 1.0
	if powerfulBuild {
		mult = 2
	}
	s := Status{
		Mode:                       mode,
		Carried:                    carried,
		Capacity:                   15 * str * mult,
		EncumberedThreshold:        5 * str * mult,
		HeavilyEncumberedThreshold: 10 * str * mult,
	}

	switch {
	case carried > s.Capacity:
		s.Level = LevelOverloaded
	case carried > s.HeavilyEncumberedThreshold:
		s.Level = LevelHeavilyEncumbered
	case carried > s.EncumberedThreshold:
		s.Level = LevelEncumbered
	default:
		s.Level = LevelNone
	}

	s.SpeedFactor = Fraction{1, 1}
	if mode == ModeVariant {
		s.SpeedFactor = speedFactor[s.Level]
	} else if s.Level != LevelOverloaded {
		s.SpeedPenalty = speedPenalty[s.Level]
	}
	s.Disadvantage = s.Level >= LevelHeavilyEncumbered
	return s
}

// Speed applies the status to a base walking speed. Overloaded characters
// cannot move in either mode.
//
// Postcondition: 0 <= result <= base.
func (s Status) Speed(base int) int {
	base = max(base, 0)
	if s.Level == LevelOverloaded {
		return 0
	}
	if s.Mode == ModeVariant {
		return base * s.SpeedFactor.Num / s.SpeedFactor.Den
	}
	return max(0, base-s.SpeedPenalty)
}
