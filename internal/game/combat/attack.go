package combat

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/tabletop/internal/game/dice"
)

// DefaultCriticalThreshold is the natural roll at or above which an attack is a critical hit.
const DefaultCriticalThreshold = 20

// Cover is the degree of cover a target has against an attack.
type Cover int

const (
	CoverNone Cover = iota
	CoverHalf
	CoverThreeQuarters
	CoverFull
)

// String returns the cover name used in traces and commands.
func (c Cover) String() string {
	switch c {
	case CoverHalf:
		return "half"
	case CoverThreeQuarters:
		return "three_quarters"
	case CoverFull:
		return "full"
	default:
		return "none"
	}
}

// Bonus returns the defense bonus granted by c. Full cover grants none
// because the target cannot be targeted at all.
func (c Cover) Bonus() int {
	switch c {
	case CoverHalf:
		return 2
	case CoverThreeQuarters:
		return 5
	default:
		return 0
	}
}

// ParseCover converts a command string into a Cover. The empty string is CoverNone.
func ParseCover(s string) (Cover, error) {
	switch s {
	case "", "none":
		return CoverNone, nil
	case "half":
		return CoverHalf, nil
	case "three_quarters", "three-quarters":
		return CoverThreeQuarters, nil
	case "full":
		return CoverFull, nil
	default:
		return CoverNone, fmt.Errorf("combat: unknown cover %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Cover) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cover) UnmarshalText(b []byte) error {
	v, err := ParseCover(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Outcome is the result category of an attack roll.
type Outcome int

const (
	OutcomeMiss Outcome = iota
	OutcomeHit
	OutcomeCriticalHit
	OutcomeCriticalMiss
	OutcomeUnreachable
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case OutcomeMiss:
		return "miss"
	case OutcomeHit:
		return "hit"
	case OutcomeCriticalHit:
		return "critical hit"
	case OutcomeCriticalMiss:
		return "critical miss"
	case OutcomeUnreachable:
		return "cannot target"
	default:
		return "unknown"
	}
}

// AttackResult holds the outcome of a single attack roll.
type AttackResult struct {
	// Rolls holds every d20 drawn, in draw order.
	Rolls []int
	// Roll is the d20 kept after advantage or disadvantage.
	Roll             int
	Mode             dice.Advantage
	AttackBonus      int
	Total            int
	TargetDefense    int
	CoverBonus       int
	EffectiveDefense int
	Outcome          Outcome
	Hit              bool
	Critical         bool
	CriticalMiss     bool
	// Unreachable is set when the target has full cover; no dice are drawn.
	Unreachable bool
	Trace       string
}

// ResolveAttack resolves one attack roll against a target defense.
//
// A natural roll >= criticalThreshold always hits and is critical; a natural 1
// always misses; otherwise the attack hits iff roll + attackBonus >= targetDefense
// plus the cover bonus. Full cover returns an Unreachable result without rolling.
//
// Precondition: criticalThreshold >= 2; src must be non-nil.
// Postcondition: Hit == (Outcome == OutcomeHit || Outcome == OutcomeCriticalHit).
func ResolveAttack(attackBonus, targetDefense int, mode dice.Advantage, cover Cover, criticalThreshold int, src dice.Source) AttackResult {
	if criticalThreshold < 2 {
		panic(fmt.Sprintf("combat: ResolveAttack precondition violated: critical threshold %d < 2", criticalThreshold))
	}
	if cover == CoverFull {
		r := AttackResult{
			Mode:             mode,
			AttackBonus:      attackBonus,
			TargetDefense:    targetDefense,
			EffectiveDefense: targetDefense,
			Outcome:          OutcomeUnreachable,
			Unreachable:      true,
		}
		r.Trace = "target has full cover: cannot be targeted"
		return r
	}

	d20 := dice.RollD20(mode, src)
	r := AttackResult{
		Rolls:            d20.Rolls,
		Roll:             d20.Kept,
		Mode:             mode,
		AttackBonus:      attackBonus,
		Total:            d20.Kept + attackBonus,
		TargetDefense:    targetDefense,
		CoverBonus:       cover.Bonus(),
		EffectiveDefense: targetDefense + cover.Bonus(),
	}

	switch {
	case r.Roll >= criticalThreshold:
		r.Outcome = OutcomeCriticalHit
		r.Hit, r.Critical = true, true
	case r.Roll == 1:
		r.Outcome = OutcomeCriticalMiss
		r.CriticalMiss = true
	case r.Total >= r.EffectiveDefense:
		r.Outcome = OutcomeHit
		r.Hit = true
	default:
		r.Outcome = OutcomeMiss
	}
	r.Trace = attackTrace(r, cover)
	return r
}

func attackTrace(r AttackResult, cover Cover) string {
	var b strings.Builder
	fmt.Fprintf(&b, "d20 %v", r.Rolls)
	if r.Mode != dice.Normal {
		fmt.Fprintf(&b, " (%s) keep %d", r.Mode, r.Roll)
	}
	fmt.Fprintf(&b, " %+d = %d vs defense %d", r.AttackBonus, r.Total, r.EffectiveDefense)
	if r.CoverBonus > 0 {
		fmt.Fprintf(&b, " (%d + %s cover %d)", r.TargetDefense, cover, r.CoverBonus)
	}
	fmt.Fprintf(&b, ": %s", r.Outcome)
	return b.String()
}

// DamageRoll is the result of rolling weapon or spell damage dice.
type DamageRoll struct {
	Dice      []int
	Modifier  int
	Critical  bool
	Total     int
	Breakdown string
}

// RollDamage rolls the dice of expr and adds its flat modifier. On a critical
// hit the number of dice, and the number kept by kh, is doubled; the modifier
// is never doubled. A flat amount rolls nothing. The total is floored at 0.
//
// Precondition: expr must come from dice.Parse or dice.ParseAmount; src must be non-nil.
// Postcondition: Dice holds the kept dice; Total == max(0, sum(Dice) + Modifier).
func RollDamage(expr dice.Expression, critical bool, src dice.Source) DamageRoll {
	rolled := expr
	if critical {
		rolled.Count *= 2
		rolled.KeepHighest *= 2
	}
	r := dice.Roll(rolled, src)
	total := max(0, r.Total())

	var b strings.Builder
	if expr.Count == 0 {
		fmt.Fprintf(&b, "flat %d", expr.Modifier)
	} else {
		b.WriteString(rolled.String())
		if critical {
			fmt.Fprintf(&b, " (critical, %s doubled)", expr.String())
		}
		fmt.Fprintf(&b, " %v = %d", r.Dice, total)
	}

	return DamageRoll{
		Dice:      r.Dice,
		Modifier:  expr.Modifier,
		Critical:  critical,
		Total:     total,
		Breakdown: b.String(),
	}
}
