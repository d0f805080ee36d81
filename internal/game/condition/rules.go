package condition

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
)

// Range is the range band of an attack.
type Range int

const (
	// Melee is an attack from within 5 feet.
	Melee Range = iota
	Ranged
)

// String returns "melee" or "ranged".
func (r Range) String() string {
	if r == Ranged {
		return "ranged"
	}
	return "melee"
}

// ParseRange converts "melee" or "ranged" into a Range. The empty string is Melee.
func ParseRange(s string) (Range, error) {
	switch s {
	case "melee", "":
		return Melee, nil
	case "ranged":
		return Ranged, nil
	default:
		return 0, fmt.Errorf("condition: unknown range %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Range) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Range) UnmarshalText(b []byte) error {
	v, err := ParseRange(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// AttackSources collects advantage and disadvantage sources for an attack
// from the attacker's conditions and the target's conditions.
func (r *Registry) AttackSources(attacker, target []string, rng Range) dice.Sources {
	var s dice.Sources
	for _, d := range r.lookup(attacker) {
		s.Add(d.AttackMode)
	}
	for _, d := range r.lookup(target) {
		if rng == Melee {
			s.Add(d.MeleeDefenseMode)
		} else {
			s.Add(d.RangedDefenseMode)
		}
	}
	return s
}

// SaveSources collects advantage and disadvantage sources for a saving throw
// of ability, given as its lowercase abbreviation.
func (r *Registry) SaveSources(conditions []string, ability string) dice.Sources {
	var s dice.Sources
	for _, d := range r.lookup(conditions) {
		if slices.ContainsFunc(d.SaveAdvantage, func(a combat.Ability) bool { return a.String() == ability }) {
			s.Add(dice.WithAdvantage)
		}
		if slices.ContainsFunc(d.SaveDisadvantage, func(a combat.Ability) bool { return a.String() == ability }) {
			s.Add(dice.WithDisadvantage)
		}
	}
	return s
}

// AutoFailsSave reports whether any condition forces saves of ability to fail.
func (r *Registry) AutoFailsSave(conditions []string, ability string) bool {
	for _, d := range r.lookup(conditions) {
		if slices.ContainsFunc(d.AutoFailSaves, func(a combat.Ability) bool { return a.String() == ability }) {
			return true
		}
	}
	return false
}

// IsIncapacitated reports whether any condition prevents actions and reactions.
func (r *Registry) IsIncapacitated(conditions []string) bool {
	return slices.ContainsFunc(r.lookup(conditions), func(d *ConditionDef) bool { return d.Incapacitated })
}

// SpeedZero reports whether any condition reduces speed to 0.
func (r *Registry) SpeedZero(conditions []string) bool {
	return slices.ContainsFunc(r.lookup(conditions), func(d *ConditionDef) bool { return d.SpeedZero })
}

// AutoCritical reports whether a hit at rng against a target with these
// conditions is always a critical hit.
func (r *Registry) AutoCritical(target []string, rng Range) bool {
	if rng != Melee {
		return false
	}
	return slices.ContainsFunc(r.lookup(target), func(d *ConditionDef) bool { return d.AutoCritMelee })
}
