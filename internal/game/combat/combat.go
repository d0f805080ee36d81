// Package combat implements the pure combat resolution rules: attack rolls,
// damage application, saving throws, concentration and the 0-HP death-save
// state machine.
//
// Every exported resolution function takes a Combatant snapshot by value and
// returns a new snapshot; inputs are never mutated and no function performs
// I/O. Persisting the returned snapshot and fanning out its trace is the
// caller's job.
package combat

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/tabletop/internal/game/resource"
)

// Kind distinguishes player characters from monsters.
type Kind int

const (
	KindPlayer Kind = iota
	KindMonster
)

// String returns "player" or "monster".
func (k Kind) String() string {
	if k == KindMonster {
		return "monster"
	}
	return "player"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "player", "":
		*k = KindPlayer
	case "monster":
		*k = KindMonster
	default:
		return fmt.Errorf("combat: unknown combatant kind %q", string(b))
	}
	return nil
}

// DeathSaves is the success/failure counter pair tracked while at 0 HP.
//
// Invariant: 0 <= Successes <= 3 and 0 <= Failures <= 3.
type DeathSaves struct {
	Successes int `json:"successes"`
	Failures  int `json:"failures"`
}

// Combatant is a snapshot of one participant in combat.
//
// Invariant (after Normalize): 0 <= CurrentHP <= MaxHP; 0 <= TempHP <= TempHPCap;
// death-save counters are within [0, 3].
type Combatant struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	Name string `json:"name"`

	MaxHP     int `json:"max_hp"`
	CurrentHP int `json:"current_hp"`
	TempHP    int `json:"temp_hp"`
	// TempHPCap is the size of the temporary hit point grant currently held.
	TempHPCap int `json:"temp_hp_cap"`
	AC        int `json:"ac"`

	Abilities         AbilityScores `json:"abilities"`
	ProficiencyBonus  int           `json:"proficiency_bonus"`
	SaveProficiencies []Ability     `json:"save_proficiencies,omitempty"`
	PowerfulBuild     bool          `json:"powerful_build,omitempty"`

	Immunities      DamageTypeSet `json:"immunities,omitempty"`
	Resistances     DamageTypeSet `json:"resistances,omitempty"`
	Vulnerabilities DamageTypeSet `json:"vulnerabilities,omitempty"`

	Concentrating         bool   `json:"concentrating"`
	ConcentrationEffectID string `json:"concentration_effect_id,omitempty"`

	DeathSaves DeathSaves `json:"death_saves"`
	// Stabilized is set by three death-save successes or a manual stabilization.
	Stabilized bool `json:"stabilized,omitempty"`
	// Dead is terminal until an explicit Revive.
	Dead bool `json:"dead,omitempty"`

	Conditions []string              `json:"conditions,omitempty"`
	Classes    []resource.ClassLevel `json:"classes,omitempty"`
	Resources  []resource.Pool       `json:"resources,omitempty"`
}

// Clone returns a deep copy of c so the result shares no slices with c.
func (c Combatant) Clone() Combatant {
	out := c
	out.SaveProficiencies = slices.Clone(c.SaveProficiencies)
	out.Conditions = slices.Clone(c.Conditions)
	out.Classes = slices.Clone(c.Classes)
	out.Resources = slices.Clone(c.Resources)
	return out
}

// Normalize returns a copy of c with every numeric invariant clamped into its
// documented range.
//
// Postcondition: the returned snapshot satisfies the Combatant invariant.
func (c Combatant) Normalize() Combatant {
	out := c.Clone()
	out.MaxHP = max(out.MaxHP, 0)
	out.CurrentHP = clamp(out.CurrentHP, 0, out.MaxHP)
	out.TempHP = max(out.TempHP, 0)
	out.TempHPCap = max(out.TempHPCap, out.TempHP)
	out.DeathSaves.Successes = clamp(out.DeathSaves.Successes, 0, 3)
	out.DeathSaves.Failures = clamp(out.DeathSaves.Failures, 0, 3)
	for i := range out.Resources {
		out.Resources[i] = out.Resources[i].Normalize()
	}
	return out
}

// HasCondition reports whether the condition id is active on c.
func (c Combatant) HasCondition(id string) bool {
	return slices.Contains(c.Conditions, id)
}

// withCondition returns c with id added once.
func (c Combatant) withCondition(id string) Combatant {
	if !c.HasCondition(id) {
		c.Conditions = append(slices.Clone(c.Conditions), id)
	}
	return c
}

// withoutCondition returns c with every occurrence of id removed.
func (c Combatant) withoutCondition(id string) Combatant {
	if c.HasCondition(id) {
		c.Conditions = slices.DeleteFunc(slices.Clone(c.Conditions), func(s string) bool { return s == id })
	}
	return c
}

// ConditionUnconscious is applied when a combatant drops to 0 HP and removed
// when it regains hit points.
const ConditionUnconscious = "unconscious"

// ProficiencyBonus returns the 5e proficiency bonus for a total character level.
// Formula: 2 + (level-1)/4.
//
// Precondition: level >= 1.
// Postcondition: Returns a value in [2, 6] for levels 1-20.
func ProficiencyBonus(level int) int {
	if level < 1 {
		level = 1
	}
	return 2 + (level-1)/4
}

// AbilityMod computes the ability modifier using floor division: floor((score - 10) / 2).
//
// Postcondition: Returns floor((score - 10) / 2).
func AbilityMod(score int) int {
	diff := score - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
