package combat_test

import (
	"github.com/cory-johannsen/tabletop/internal/game/combat"
)

// faces is a dice.Source that yields the queued die faces in order and then
// repeats the last one. Faces larger than the die are capped to its maximum.
type faces struct {
	vals []int
	i    int
}

func rolls(vals ...int) *faces { return &faces{vals: vals} }

func (f *faces) Intn(n int) int {
	v := f.vals[len(f.vals)-1]
	if f.i < len(f.vals) {
		v = f.vals[f.i]
		f.i++
	}
	return min(max(v, 1), n) - 1
}

func (f *faces) drawn() int { return f.i }

func fighter() combat.Combatant {
	return combat.Combatant{
		ID:               "fighter-1",
		Kind:             combat.KindPlayer,
		Name:             "Bruenor",
		MaxHP:            30,
		CurrentHP:        30,
		AC:               16,
		Abilities:        combat.AbilityScores{Str: 16, Dex: 12, Con: 14, Int: 10, Wis: 10, Cha: 8},
		ProficiencyBonus: 2,
		SaveProficiencies: []combat.Ability{
			combat.Strength, combat.Constitution,
		},
	}
}

func dying(c combat.Combatant) combat.Combatant {
	c.CurrentHP = 0
	c.Conditions = []string{combat.ConditionUnconscious}
	return c
}
