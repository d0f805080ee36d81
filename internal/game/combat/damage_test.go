package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
)

func TestApplyDamage_FireGenasiResistance(t *testing.T) {
	c := fighter()
	c.MaxHP, c.CurrentHP = 52, 52
	c.Resistances = combat.NewDamageTypeSet(combat.Fire)

	r := combat.ApplyDamage(c, 20, combat.Fire, false)
	assert.Equal(t, 10, r.FinalDamage)
	assert.Equal(t, 42, r.NewHP)
	assert.Equal(t, 42, r.Combatant.CurrentHP)
	assert.True(t, r.Resisted)
	require.Len(t, r.Steps, 5)
	assert.Contains(t, r.Steps[1], "resistant")
	assert.Equal(t, 52, c.CurrentHP, "input snapshot must not change")
}

func TestApplyDamage_UndeadImmunityAndVulnerability(t *testing.T) {
	c := fighter()
	c.MaxHP, c.CurrentHP = 45, 45
	c.Immunities = combat.NewDamageTypeSet(combat.Poison)
	c.Vulnerabilities = combat.NewDamageTypeSet(combat.Radiant)

	poison := combat.ApplyDamage(c, 15, combat.Poison, true)
	assert.True(t, poison.Immune)
	assert.Equal(t, 0, poison.FinalDamage)
	assert.Equal(t, 45, poison.NewHP)
	assert.Equal(t, 0, poison.ConcentrationDC)
	require.Len(t, poison.Steps, 1)
	assert.Contains(t, poison.Steps[0], "immune")

	radiant := combat.ApplyDamage(c, 10, combat.Radiant, false)
	assert.True(t, radiant.Vulnerable)
	assert.Equal(t, 20, radiant.FinalDamage)
	assert.Equal(t, 25, radiant.NewHP)
}

func TestApplyDamage_ResistanceAndVulnerabilityCancel(t *testing.T) {
	c := fighter()
	c.Resistances = combat.NewDamageTypeSet(combat.Cold)
	c.Vulnerabilities = combat.NewDamageTypeSet(combat.Cold)
	r := combat.ApplyDamage(c, 7, combat.Cold, false)
	assert.Equal(t, 7, r.FinalDamage)
	assert.False(t, r.Resisted)
	assert.False(t, r.Vulnerable)
}

func TestApplyDamage_ResistanceRoundsDown(t *testing.T) {
	c := fighter()
	c.Resistances = combat.NewDamageTypeSet(combat.Slashing)
	r := combat.ApplyDamage(c, 7, combat.Slashing, false)
	assert.Equal(t, 3, r.FinalDamage)
}

func TestApplyDamage_TempHPAbsorbsFirst(t *testing.T) {
	c := fighter()
	c.TempHP, c.TempHPCap = 5, 5
	r := combat.ApplyDamage(c, 8, combat.Bludgeoning, false)
	assert.Equal(t, 5, r.TempHPLost)
	assert.Equal(t, 0, r.NewTempHP)
	assert.Equal(t, 3, r.HPLost)
	assert.Equal(t, 27, r.NewHP)
}

func TestApplyDamage_HPFloorsAtZero(t *testing.T) {
	c := fighter()
	c.CurrentHP = 4
	r := combat.ApplyDamage(c, 50, combat.Force, false)
	assert.Equal(t, 0, r.NewHP)
	assert.Equal(t, 4, r.HPLost)
}

func TestApplyDamage_NegativeAmountClamped(t *testing.T) {
	r := combat.ApplyDamage(fighter(), -12, combat.Fire, true)
	assert.Equal(t, 0, r.Amount)
	assert.Equal(t, 30, r.NewHP)
	assert.Equal(t, 0, r.ConcentrationDC)
}

func TestApplyDamage_ConcentrationUsesPreTempDamage(t *testing.T) {
	c := fighter()
	c.TempHP, c.TempHPCap = 40, 40
	r := combat.ApplyDamage(c, 30, combat.Psychic, true)
	assert.Equal(t, 0, r.HPLost)
	assert.Equal(t, 15, r.ConcentrationDC)
	assert.Contains(t, r.Steps[4], "DC 15")
}

func TestConcentrationDC(t *testing.T) {
	assert.Equal(t, 10, combat.ConcentrationDC(1))
	assert.Equal(t, 10, combat.ConcentrationDC(21))
	assert.Equal(t, 11, combat.ConcentrationDC(22))
	assert.Equal(t, 15, combat.ConcentrationDC(30))
}

func TestApplyDamageEvent_DropToZeroStartsDying(t *testing.T) {
	c := fighter()
	c.Concentrating = true
	c.ConcentrationEffectID = "bless-1"
	o := combat.ApplyDamageEvent(c, combat.DamageEvent{TargetID: c.ID, Amount: 35, Type: combat.Slashing})
	assert.Equal(t, combat.StateStable, o.Before)
	assert.Equal(t, combat.StateDying, o.After)
	assert.True(t, o.Combatant.HasCondition(combat.ConditionUnconscious))
	assert.False(t, o.Combatant.Concentrating)
	require.Len(t, o.Consequences, 1)
	assert.Equal(t, combat.ConsequenceEndConcentration, o.Consequences[0].Kind)
	assert.Equal(t, "bless-1", o.Consequences[0].EffectID)
}

func TestApplyDamageEvent_MassiveDamageKills(t *testing.T) {
	c := fighter()
	c.CurrentHP = 10
	o := combat.ApplyDamageEvent(c, combat.DamageEvent{Amount: 40, Type: combat.Fire})
	assert.True(t, o.InstantDeath)
	assert.Equal(t, combat.StateDead, o.After)
}

func TestApplyDamageEvent_MonsterDiesAtZero(t *testing.T) {
	c := fighter()
	c.Kind = combat.KindMonster
	o := combat.ApplyDamageEvent(c, combat.DamageEvent{Amount: 30, Type: combat.Piercing})
	assert.Equal(t, combat.StateDead, o.After)
	assert.False(t, o.InstantDeath)
}

func TestApplyDamageEvent_DamageAtZeroAddsFailures(t *testing.T) {
	c := dying(fighter())
	o := combat.ApplyDamageEvent(c, combat.DamageEvent{Amount: 3, Type: combat.Piercing})
	assert.Equal(t, 1, o.Combatant.DeathSaves.Failures)

	crit := combat.ApplyDamageEvent(o.Combatant, combat.DamageEvent{Amount: 3, Type: combat.Piercing, Critical: true})
	assert.Equal(t, 3, crit.Combatant.DeathSaves.Failures)
	assert.Equal(t, combat.StateDead, crit.After)
}

func TestApplyDamageEvent_DamageReopensStabilized(t *testing.T) {
	c := dying(fighter())
	c.Stabilized = true
	o := combat.ApplyDamageEvent(c, combat.DamageEvent{Amount: 2, Type: combat.Cold})
	assert.Equal(t, combat.StateStabilized, o.Before)
	assert.Equal(t, combat.StateDying, o.After)
	assert.Equal(t, 1, o.Combatant.DeathSaves.Failures)
}

func TestApplyDamageEvent_ImmuneDamageAtZeroIsFree(t *testing.T) {
	c := dying(fighter())
	c.Immunities = combat.NewDamageTypeSet(combat.Poison)
	o := combat.ApplyDamageEvent(c, combat.DamageEvent{Amount: 9, Type: combat.Poison})
	assert.Equal(t, 0, o.Combatant.DeathSaves.Failures)
}

func TestApplyDamage_ConservationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := fighter()
		c.MaxHP = rapid.IntRange(1, 200).Draw(rt, "max")
		c.CurrentHP = rapid.IntRange(0, c.MaxHP).Draw(rt, "hp")
		c.TempHP = rapid.IntRange(0, 50).Draw(rt, "temp")
		c.TempHPCap = c.TempHP
		amount := rapid.IntRange(0, 400).Draw(rt, "amount")
		dt := combat.DamageType(rapid.IntRange(0, len(combat.DamageTypes())-1).Draw(rt, "type"))

		r := combat.ApplyDamage(c, amount, dt, false)
		assert.GreaterOrEqual(rt, r.NewHP, 0)
		assert.GreaterOrEqual(rt, r.NewTempHP, 0)
		assert.Equal(rt, c.CurrentHP-r.HPLost, r.NewHP)
		assert.Equal(rt, c.TempHP-r.TempHPLost, r.NewTempHP)
		assert.LessOrEqual(rt, r.HPLost+r.TempHPLost, r.FinalDamage)
		if r.NewHP > 0 {
			assert.Equal(rt, r.FinalDamage, r.HPLost+r.TempHPLost)
		}
	})
}

func TestApplyDamage_CancellationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dt := combat.DamageType(rapid.IntRange(0, len(combat.DamageTypes())-1).Draw(rt, "type"))
		amount := rapid.IntRange(0, 100).Draw(rt, "amount")
		plain := fighter()
		plain.MaxHP, plain.CurrentHP = 500, 500
		both := plain.Clone()
		both.Resistances = combat.NewDamageTypeSet(dt)
		both.Vulnerabilities = combat.NewDamageTypeSet(dt)

		assert.Equal(rt,
			combat.ApplyDamage(plain, amount, dt, false).FinalDamage,
			combat.ApplyDamage(both, amount, dt, false).FinalDamage)
	})
}
