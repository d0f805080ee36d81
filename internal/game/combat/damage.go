package combat

import "fmt"

// DamageResult is the outcome of ApplyDamage.
type DamageResult struct {
	// Combatant is the new snapshot after damage.
	Combatant Combatant
	// Amount is the incoming damage after clamping negatives to 0.
	Amount int
	// FinalDamage is the damage after immunity, resistance and vulnerability.
	FinalDamage int
	HPLost      int
	TempHPLost  int
	NewHP       int
	NewTempHP   int
	Immune      bool
	Resisted    bool
	Vulnerable  bool
	// ConcentrationDC is the DC of the required concentration save, or 0 when none is required.
	ConcentrationDC int
	// Steps holds one line per pipeline step that executed, in order.
	Steps []string
}

// ConcentrationDC returns the constitution save DC required to keep
// concentration after taking damage: max(10, floor(damage/2)).
//
// Postcondition: Returns a value >= 10.
func ConcentrationDC(damage int) int {
	return max(10, max(damage, 0)/2)
}

// ApplyDamage runs incoming damage through the damage pipeline in its fixed
// order: immunity, resistance/vulnerability, temporary hit points, hit points,
// then the concentration check.
//
// The concentration DC is computed from the damage after resistance and
// vulnerability, before temporary hit points absorb any of it.
//
// Precondition: none; a negative amount is treated as 0.
// Postcondition: HPLost + TempHPLost + overflow == FinalDamage; NewHP >= 0; NewTempHP >= 0.
func ApplyDamage(c Combatant, amount int, damageType DamageType, concentrating bool) DamageResult {
	out := c.Normalize()
	amount = max(amount, 0)
	res := DamageResult{Amount: amount}

	if out.Immunities.Has(damageType) {
		res.Immune = true
		res.Steps = append(res.Steps, fmt.Sprintf("immune to %s: %d -> 0", damageType, amount))
		res.Combatant = out
		res.NewHP = out.CurrentHP
		res.NewTempHP = out.TempHP
		return res
	}
	res.Steps = append(res.Steps, fmt.Sprintf("not immune to %s", damageType))

	d := amount
	resistant := out.Resistances.Has(damageType)
	vulnerable := out.Vulnerabilities.Has(damageType)
	switch {
	case resistant && vulnerable:
		res.Steps = append(res.Steps, fmt.Sprintf("resistant and vulnerable to %s cancel: %d", damageType, d))
	case resistant:
		res.Resisted = true
		res.Steps = append(res.Steps, fmt.Sprintf("resistant to %s: %d -> %d", damageType, d, d/2))
		d /= 2
	case vulnerable:
		res.Vulnerable = true
		res.Steps = append(res.Steps, fmt.Sprintf("vulnerable to %s: %d -> %d", damageType, d, d*2))
		d *= 2
	default:
		res.Steps = append(res.Steps, fmt.Sprintf("no resistance or vulnerability: %d", d))
	}
	res.FinalDamage = d

	absorbed := min(d, out.TempHP)
	out.TempHP -= absorbed
	d -= absorbed
	res.TempHPLost = absorbed
	res.Steps = append(res.Steps, fmt.Sprintf("temp hp absorbs %d (%d remaining), %d carries over", absorbed, out.TempHP, d))

	lost := min(d, out.CurrentHP)
	out.CurrentHP -= lost
	res.HPLost = lost
	res.Steps = append(res.Steps, fmt.Sprintf("hp %d -> %d", out.CurrentHP+lost, out.CurrentHP))

	if concentrating && res.FinalDamage > 0 {
		res.ConcentrationDC = ConcentrationDC(res.FinalDamage)
		res.Steps = append(res.Steps, fmt.Sprintf("concentration check DC %d", res.ConcentrationDC))
	} else {
		res.Steps = append(res.Steps, "no concentration check")
	}

	res.NewHP = out.CurrentHP
	res.NewTempHP = out.TempHP
	res.Combatant = out
	return res
}

// DamageEvent is a single damage application against one combatant.
type DamageEvent struct {
	TargetID string     `json:"target_id"`
	Amount   int        `json:"amount"`
	Type     DamageType `json:"type"`
	// Critical marks damage from a critical hit; it costs two death-save
	// failures when the target is already at 0 HP.
	Critical bool `json:"critical,omitempty"`
	// Concentrating overrides the target's own concentration flag when true.
	Concentrating bool `json:"concentrating,omitempty"`
}

// DamageOutcome is the result of ApplyDamageEvent.
type DamageOutcome struct {
	Damage DamageResult
	// Combatant is the final snapshot after 0-HP rules are applied.
	Combatant    Combatant
	Before       LifeState
	After        LifeState
	InstantDeath bool
	Consequences []Consequence
	Trace        []string
}

// ApplyDamageEvent applies ev to c and then the rules for reaching and being
// at 0 hit points:
//   - a monster reduced to 0 HP dies;
//   - a player reduced from above 0 to 0 HP falls unconscious and starts dying,
//     or dies outright when the damage left over after reaching 0 is at least
//     its hit point maximum;
//   - damage to a player already at 0 HP costs one death-save failure, two on a
//     critical hit, and a stabilized player resumes dying;
//   - reaching 0 HP ends concentration.
//
// Precondition: none.
// Postcondition: the returned Combatant is Normalized; Consequences holds at
// most one ConsequenceEndConcentration entry.
func ApplyDamageEvent(c Combatant, ev DamageEvent) DamageOutcome {
	before := c.Normalize()
	o := DamageOutcome{Before: before.LifeState()}

	if before.Dead {
		o.Combatant = before
		o.After = StateDead
		o.Trace = []string{fmt.Sprintf("%s is dead: damage ignored", before.Name)}
		o.Damage = DamageResult{Combatant: before, Amount: max(ev.Amount, 0), NewHP: before.CurrentHP, NewTempHP: before.TempHP}
		return o
	}

	concentrating := before.Concentrating || ev.Concentrating
	dr := ApplyDamage(before, ev.Amount, ev.Type, concentrating)
	o.Damage = dr
	o.Trace = append(o.Trace, dr.Steps...)
	out := dr.Combatant

	overflow := dr.FinalDamage - dr.TempHPLost - dr.HPLost
	switch {
	case before.CurrentHP > 0 && out.CurrentHP == 0:
		out, o.InstantDeath = dropToZero(out, overflow)
		if o.InstantDeath {
			o.Trace = append(o.Trace, fmt.Sprintf("massive damage: %d remaining >= max hp %d, dies instantly", overflow, out.MaxHP))
		} else if out.Dead {
			o.Trace = append(o.Trace, "reduced to 0 hp: dies")
		} else {
			o.Trace = append(o.Trace, "reduced to 0 hp: unconscious and dying")
		}
		if cleared, cons, ok := endConcentration(out, "reduced to 0 hp"); ok {
			out = cleared
			o.Consequences = append(o.Consequences, cons)
			o.Trace = append(o.Trace, "concentration ends")
		}
	case before.CurrentHP == 0 && dr.FinalDamage > 0:
		out = damageAtZero(out, ev.Critical, overflow)
		if out.Dead {
			o.Trace = append(o.Trace, "damage at 0 hp: dies")
		} else {
			o.Trace = append(o.Trace, fmt.Sprintf("damage at 0 hp: death save failures %d", out.DeathSaves.Failures))
		}
	}

	o.Combatant = out
	o.After = out.LifeState()
	return o
}

func dropToZero(c Combatant, overflow int) (Combatant, bool) {
	c.DeathSaves = DeathSaves{}
	c.Stabilized = false
	if c.Kind == KindMonster {
		c.Dead = true
		return c, false
	}
	if overflow >= c.MaxHP {
		c.Dead = true
		return c, true
	}
	return c.withCondition(ConditionUnconscious), false
}

func damageAtZero(c Combatant, critical bool, overflow int) Combatant {
	if c.Kind == KindMonster || overflow >= c.MaxHP {
		c.Dead = true
		return c
	}
	failures := 1
	if critical {
		failures = 2
	}
	if c.Stabilized {
		c.Stabilized = false
		c.DeathSaves = DeathSaves{}
	}
	c.DeathSaves.Failures = min(3, c.DeathSaves.Failures+failures)
	if c.DeathSaves.Failures >= 3 {
		c.Dead = true
	}
	return c
}
