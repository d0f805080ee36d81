package combat

import (
	"fmt"
	"slices"
	"strings"
)

// Ability identifies one of the six ability scores.
type Ability int

const (
	Strength Ability = iota
	Dexterity
	Constitution
	Intelligence
	Wisdom
	Charisma
)

var abilityNames = [...]string{"str", "dex", "con", "int", "wis", "cha"}

// Abilities lists every Ability in canonical order.
var Abilities = []Ability{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

// String returns the three-letter lowercase abbreviation.
func (a Ability) String() string {
	if a < Strength || a > Charisma {
		return "unknown"
	}
	return abilityNames[a]
}

// ParseAbility accepts either the abbreviation ("con") or the full name ("constitution").
func ParseAbility(s string) (Ability, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range abilityNames {
		if s == name {
			return Ability(i), nil
		}
	}
	switch s {
	case "strength":
		return Strength, nil
	case "dexterity":
		return Dexterity, nil
	case "constitution":
		return Constitution, nil
	case "intelligence":
		return Intelligence, nil
	case "wisdom":
		return Wisdom, nil
	case "charisma":
		return Charisma, nil
	}
	return 0, fmt.Errorf("combat: unknown ability %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Ability) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Ability) UnmarshalText(b []byte) error {
	v, err := ParseAbility(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// AbilityScores holds the six ability scores.
type AbilityScores struct {
	Str int `json:"str" yaml:"str"`
	Dex int `json:"dex" yaml:"dex"`
	Con int `json:"con" yaml:"con"`
	Int int `json:"int" yaml:"int"`
	Wis int `json:"wis" yaml:"wis"`
	Cha int `json:"cha" yaml:"cha"`
}

// Score returns the raw score for a.
func (s AbilityScores) Score(a Ability) int {
	switch a {
	case Strength:
		return s.Str
	case Dexterity:
		return s.Dex
	case Constitution:
		return s.Con
	case Intelligence:
		return s.Int
	case Wisdom:
		return s.Wis
	case Charisma:
		return s.Cha
	default:
		return 10
	}
}

// Modifier returns AbilityMod(Score(a)).
func (s AbilityScores) Modifier(a Ability) int {
	return AbilityMod(s.Score(a))
}

// IsProficientSave reports whether c adds its proficiency bonus to saves of a.
func (c Combatant) IsProficientSave(a Ability) bool {
	return slices.Contains(c.SaveProficiencies, a)
}

// SaveModifier returns the saving throw modifier for a: the ability modifier
// plus the proficiency bonus when proficient.
func (c Combatant) SaveModifier(a Ability) int {
	mod := c.Abilities.Modifier(a)
	if c.IsProficientSave(a) {
		mod += c.ProficiencyBonus
	}
	return mod
}
