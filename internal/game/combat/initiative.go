package combat

import (
	"cmp"
	"slices"

	"github.com/cory-johannsen/tabletop/internal/game/dice"
)

// InitiativeEntry is one combatant's place in the turn order.
type InitiativeEntry struct {
	CombatantID string `json:"combatant_id"`
	Roll        int    `json:"roll"`
	Modifier    int    `json:"modifier"`
	Total       int    `json:"total"`
}

// RollInitiative rolls initiative for all combatants and returns the turn order.
// Formula: d20 + DEX modifier. Ties are broken by higher DEX modifier, then by
// input order.
//
// Precondition: src must be non-nil.
// Postcondition: len(result) == len(combatants); result is sorted by Total descending.
func RollInitiative(combatants []Combatant, src dice.Source) []InitiativeEntry {
	entries := make([]InitiativeEntry, 0, len(combatants))
	for _, c := range combatants {
		mod := c.Abilities.Modifier(Dexterity)
		roll := dice.Die(src, 20)
		entries = append(entries, InitiativeEntry{CombatantID: c.ID, Roll: roll, Modifier: mod, Total: roll + mod})
	}
	slices.SortStableFunc(entries, func(a, b InitiativeEntry) int {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		return cmp.Compare(b.Modifier, a.Modifier)
	})
	return entries
}
