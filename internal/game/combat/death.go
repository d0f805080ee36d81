package combat

import (
	"fmt"

	"github.com/cory-johannsen/tabletop/internal/game/dice"
)

// LifeState is the position of a combatant in the 0-HP state machine.
type LifeState int

const (
	// StateStable means above 0 HP.
	StateStable LifeState = iota
	// StateDying means at 0 HP and rolling death saves.
	StateDying
	// StateStabilized means at 0 HP but no longer rolling death saves.
	StateStabilized
	// StateDead is terminal until Revive.
	StateDead
)

// String returns the state name.
func (s LifeState) String() string {
	switch s {
	case StateStable:
		return "stable"
	case StateDying:
		return "dying"
	case StateStabilized:
		return "stabilized"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s LifeState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *LifeState) UnmarshalText(b []byte) error {
	for _, st := range []LifeState{StateStable, StateDying, StateStabilized, StateDead} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("combat: unknown life state %q", string(b))
}

// LifeState derives the state machine position from the snapshot fields.
func (c Combatant) LifeState() LifeState {
	switch {
	case c.Dead:
		return StateDead
	case c.CurrentHP > 0:
		return StateStable
	case c.Stabilized:
		return StateStabilized
	default:
		return StateDying
	}
}

// DeathSaveResult is the outcome of RollDeathSave.
type DeathSaveResult struct {
	Combatant Combatant
	// Applied is false when the combatant was not dying; no die is drawn.
	Applied bool
	Roll    int
	Before  LifeState
	After   LifeState
	Trace   string
}

// RollDeathSave rolls one death saving throw for a dying combatant.
//
// A natural 20 restores 1 HP and resets both counters. A natural 1 counts as
// two failures; 2 through 9 is one failure; 10 through 19 is one success.
// Three failures kill; three successes stabilize and stay recorded until
// healing, Stabilize or further damage starts a new cycle.
//
// Precondition: src must be non-nil.
// Postcondition: 0 <= Successes, Failures <= 3 in the returned snapshot.
func RollDeathSave(c Combatant, src dice.Source) DeathSaveResult {
	out := c.Normalize()
	res := DeathSaveResult{Before: out.LifeState()}
	if res.Before != StateDying {
		res.Combatant = out
		res.After = res.Before
		res.Trace = fmt.Sprintf("death save skipped: %s", res.Before)
		return res
	}

	roll := dice.Die(src, 20)
	res.Applied = true
	res.Roll = roll
	switch {
	case roll == 20:
		out.CurrentHP = min(1, out.MaxHP)
		out.DeathSaves = DeathSaves{}
		out = out.withoutCondition(ConditionUnconscious)
		res.Trace = "death save 20: regains 1 hp"
	case roll == 1:
		out.DeathSaves.Failures = min(3, out.DeathSaves.Failures+2)
		res.Trace = "death save 1: two failures"
	case roll < 10:
		out.DeathSaves.Failures = min(3, out.DeathSaves.Failures+1)
		res.Trace = fmt.Sprintf("death save %d: failure", roll)
	default:
		out.DeathSaves.Successes = min(3, out.DeathSaves.Successes+1)
		res.Trace = fmt.Sprintf("death save %d: success", roll)
	}

	switch {
	case out.DeathSaves.Failures >= 3:
		out.Dead = true
		res.Trace += "; dies"
	case out.DeathSaves.Successes >= 3:
		out.Stabilized = true
		res.Trace += "; stabilized"
	}
	res.Combatant = out
	res.After = out.LifeState()
	return res
}

// Stabilize returns c stabilized at 0 HP with both counters reset. It has no
// effect unless c is dying.
func Stabilize(c Combatant) Combatant {
	out := c.Normalize()
	if out.LifeState() != StateDying {
		return out
	}
	out.DeathSaves = DeathSaves{}
	out.Stabilized = true
	return out
}

// HealResult is the outcome of Heal.
type HealResult struct {
	Combatant Combatant
	Applied   bool
	Healed    int
	Before    LifeState
	After     LifeState
}

// Heal restores up to amount hit points, capped at MaxHP. Any healing clears
// death-save progress and the stabilized flag and removes unconsciousness.
// Dead combatants are unaffected.
//
// Postcondition: 0 <= Healed <= amount; Combatant.CurrentHP <= MaxHP.
func Heal(c Combatant, amount int) HealResult {
	out := c.Normalize()
	res := HealResult{Before: out.LifeState()}
	if out.Dead || amount <= 0 {
		res.Combatant = out
		res.After = res.Before
		return res
	}
	hp := min(out.MaxHP, out.CurrentHP+amount)
	res.Healed = hp - out.CurrentHP
	out.CurrentHP = hp
	if hp > 0 {
		out.DeathSaves = DeathSaves{}
		out.Stabilized = false
		out = out.withoutCondition(ConditionUnconscious)
	}
	res.Applied = true
	res.Combatant = out
	res.After = out.LifeState()
	return res
}

// GrantTempHP gives c temporary hit points. Temporary hit points do not stack:
// the larger of the current and granted amounts is kept.
func GrantTempHP(c Combatant, amount int) Combatant {
	out := c.Normalize()
	if amount > out.TempHP {
		out.TempHP = amount
		out.TempHPCap = amount
	}
	return out
}

// Revive returns a dead combatant to life with hp hit points (at least 1).
// Living combatants are returned unchanged.
func Revive(c Combatant, hp int) Combatant {
	out := c.Normalize()
	if !out.Dead {
		return out
	}
	out.Dead = false
	out.Stabilized = false
	out.DeathSaves = DeathSaves{}
	out.CurrentHP = clamp(hp, 1, max(out.MaxHP, 1))
	return out.withoutCondition(ConditionUnconscious)
}
