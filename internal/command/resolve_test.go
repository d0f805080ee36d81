package command_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tabletop/internal/command"
	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/condition"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
	"github.com/cory-johannsen/tabletop/internal/game/resource"
)

func TestResolve_DamageAppliesResistance(t *testing.T) {
	c := genasi()
	cmd := mustCommand(t, c, command.KindDamage, command.DamagePayload{Amount: 20, Type: combat.Fire})

	out, err := command.Resolve(c, cmd, command.Env{Source: rolls(1)})
	require.NoError(t, err)
	assert.Equal(t, 42, out.Combatant.CurrentHP)
	assert.Equal(t, "Ember takes 10 fire damage", out.Trace.Summary)
	assert.Equal(t, cmd.ID, out.Trace.CommandID)
	assert.Equal(t, "turn-9", out.Trace.TurnID)
	assert.Equal(t, 2, out.Trace.Round)
	assert.Equal(t, 52, out.Trace.HPBefore)
	assert.Equal(t, 42, out.Trace.HPAfter)
	assert.Contains(t, out.Trace.Steps, "resistant to fire: 20 -> 10")
}

func TestResolve_CriticalDamageDoublesDice(t *testing.T) {
	c := genasi()
	src := rolls(4, 5, 6, 1)
	cmd := mustCommand(t, c, command.KindDamage, command.DamagePayload{Dice: "2d6+3", Type: combat.Slashing, Critical: true})

	out, err := command.Resolve(c, cmd, command.Env{Source: src})
	require.NoError(t, err)
	assert.Equal(t, 4, src.drawn())
	assert.Equal(t, 52-19, out.Combatant.CurrentHP)
}

func TestResolve_AttackMissLeavesTargetUntouched(t *testing.T) {
	c := genasi()
	src := rolls(10)
	cmd := mustCommand(t, c, command.KindAttack, command.AttackPayload{
		AttackBonus: 5, Damage: "1d8+3", DamageType: combat.Slashing,
	})

	out, err := command.Resolve(c, cmd, command.Env{Source: src})
	require.NoError(t, err)
	assert.Equal(t, 1, src.drawn())
	assert.Equal(t, c.CurrentHP, out.Combatant.CurrentHP)
	assert.Contains(t, out.Trace.Summary, "miss")
}

func TestResolve_AttackWithFlatDamage(t *testing.T) {
	c := genasi()
	src := rolls(20)
	cmd := mustCommand(t, c, command.KindAttack, command.AttackPayload{
		AttackerID: "rat-1", Damage: "1", DamageType: combat.Piercing,
	})

	out, err := command.Resolve(c, cmd, command.Env{Source: src})
	require.NoError(t, err)
	assert.Equal(t, 1, src.drawn(), "flat damage draws nothing, even on a critical")
	assert.Equal(t, 51, out.Combatant.CurrentHP)
	assert.Contains(t, out.Trace.Steps, "flat 1")
}

func TestResolve_MeleeHitOnParalyzedTargetIsCritical(t *testing.T) {
	c := genasi()
	c.Conditions = []string{"paralyzed"}
	src := rolls(12, 3, 4, 4)
	cmd := mustCommand(t, c, command.KindAttack, command.AttackPayload{
		AttackerID: "goblin-1", AttackBonus: 5, Range: condition.Melee,
		Damage: "1d8+3", DamageType: combat.Slashing,
	})

	out, err := command.Resolve(c, cmd, command.Env{Rules: conditions(t), Source: src})
	require.NoError(t, err)
	assert.Equal(t, 4, src.drawn(), "advantage draws two d20s, the critical two d8s")
	assert.Equal(t, 52-11, out.Combatant.CurrentHP)
	assert.Contains(t, out.Trace.Steps, "melee hit against helpless target: critical")
	assert.Contains(t, out.Trace.Summary, "goblin-1 vs Ember: hit")
}

func TestResolve_FullCoverDrawsNoDice(t *testing.T) {
	c := genasi()
	src := rolls(20)
	cmd := mustCommand(t, c, command.KindAttack, command.AttackPayload{
		AttackBonus: 5, Cover: combat.CoverFull, Damage: "1d8", DamageType: combat.Piercing,
	})

	out, err := command.Resolve(c, cmd, command.Env{Source: src})
	require.NoError(t, err)
	assert.Zero(t, src.drawn())
	assert.Equal(t, c.CurrentHP, out.Combatant.CurrentHP)
	assert.Contains(t, out.Trace.Summary, "cannot target")
}

func TestResolve_AttackRejectsBadThreshold(t *testing.T) {
	c := genasi()
	cmd := mustCommand(t, c, command.KindAttack, command.AttackPayload{AttackBonus: 5, CriticalThreshold: 1})
	_, err := command.Resolve(c, cmd, command.Env{Source: rolls(10)})
	assert.ErrorIs(t, err, command.ErrMalformedCommand)
}

func TestResolve_SaveForHalfDamage(t *testing.T) {
	c := wizard()
	cmd := mustCommand(t, c, command.KindSave, command.SavePayload{
		Ability: combat.Dexterity, DC: 15, Damage: "2d6", DamageType: combat.Fire, HalfOnSuccess: true,
	})

	out, err := command.Resolve(c, cmd, command.Env{Source: rolls(15, 6, 4)})
	require.NoError(t, err)
	assert.Equal(t, 35, out.Combatant.CurrentHP)
	assert.Contains(t, out.Trace.Steps, "save succeeded: half damage 10 -> 5")
	assert.Contains(t, out.Trace.Summary, "concentration DC 10")
}

func TestResolve_ParalyzedFailsDexSaveWithoutRolling(t *testing.T) {
	c := wizard()
	c.Conditions = []string{"paralyzed"}
	src := rolls(6, 4)
	cmd := mustCommand(t, c, command.KindSave, command.SavePayload{
		Ability: combat.Dexterity, DC: 15, Damage: "2d6", DamageType: combat.Fire, HalfOnSuccess: true,
	})

	out, err := command.Resolve(c, cmd, command.Env{Rules: conditions(t), Source: src})
	require.NoError(t, err)
	assert.Equal(t, 2, src.drawn())
	assert.Equal(t, 30, out.Combatant.CurrentHP)
	assert.Contains(t, out.Trace.Summary, "fails")
}

func TestResolve_IncapacitatedConcentratorLosesConcentration(t *testing.T) {
	c := wizard()
	c.Conditions = []string{"stunned"}
	cmd := mustCommand(t, c, command.KindHeal, command.HealPayload{Amount: 1})

	out, err := command.Resolve(c, cmd, command.Env{Rules: conditions(t), Source: rolls(1)})
	require.NoError(t, err)
	assert.False(t, out.Combatant.Concentrating)
	assert.Empty(t, out.Combatant.ConcentrationEffectID)
	require.Len(t, out.Consequences, 1)
	assert.Equal(t, "haste-7", out.Consequences[0].EffectID)
	assert.Equal(t, "incapacitated", out.Consequences[0].Reason)
	assert.Contains(t, out.Trace.Steps, "incapacitated: concentration ends")

	prone := wizard()
	prone.Conditions = []string{"prone"}
	out, err = command.Resolve(prone, mustCommand(t, prone, command.KindHeal, command.HealPayload{Amount: 1}), command.Env{Rules: conditions(t), Source: rolls(1)})
	require.NoError(t, err)
	assert.True(t, out.Combatant.Concentrating)
	assert.Empty(t, out.Consequences)
}

func TestResolve_FailedConcentrationReportsConsequence(t *testing.T) {
	c := wizard()
	cmd := mustCommand(t, c, command.KindConcentration, command.ConcentrationPayload{DC: 10})

	out, err := command.Resolve(c, cmd, command.Env{Source: rolls(5)})
	require.NoError(t, err)
	assert.False(t, out.Combatant.Concentrating)
	require.Len(t, out.Consequences, 1)
	assert.Equal(t, combat.ConsequenceEndConcentration, out.Consequences[0].Kind)
	assert.Equal(t, "haste-7", out.Consequences[0].EffectID)
	assert.Equal(t, "Elminster loses concentration", out.Trace.Summary)
}

func TestResolve_ConcentrationRequiresDC(t *testing.T) {
	c := wizard()
	cmd := mustCommand(t, c, command.KindConcentration, command.ConcentrationPayload{})
	_, err := command.Resolve(c, cmd, command.Env{Source: rolls(5)})
	assert.ErrorIs(t, err, command.ErrMalformedCommand)
}

func TestResolve_UseResource(t *testing.T) {
	c := genasi()
	cmd := mustCommand(t, c, command.KindUseResource, command.ResourcePayload{Key: "action_surge"})

	out, err := command.Resolve(c, cmd, command.Env{Source: rolls(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Combatant.Resources[1].Used)
	assert.Zero(t, c.Resources[1].Used, "input snapshot must not change")
	assert.Contains(t, out.Trace.Steps, "Action Surge: used 1, 0 remaining")
}

func TestResolve_UseResourceInsufficient(t *testing.T) {
	c := genasi()
	c.Resources[0].Used = 1
	cmd := mustCommand(t, c, command.KindUseResource, command.ResourcePayload{Key: "second_wind"})

	out, err := command.Resolve(c, cmd, command.Env{Source: rolls(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, resource.ErrInsufficientResource)
	var insufficient *resource.InsufficientResourceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "second_wind", insufficient.Key)
	assert.Zero(t, out)
}

func TestResolve_UnknownResourceIsMalformed(t *testing.T) {
	c := genasi()
	cmd := mustCommand(t, c, command.KindUseResource, command.ResourcePayload{Key: "ki"})
	_, err := command.Resolve(c, cmd, command.Env{Source: rolls(1)})
	assert.ErrorIs(t, err, command.ErrMalformedCommand)
}

func TestResolve_UnknownKind(t *testing.T) {
	c := genasi()
	_, err := command.Resolve(c, command.Command{CombatantID: c.ID, Kind: "fireball"}, command.Env{Source: rolls(1)})
	assert.ErrorIs(t, err, command.ErrUnknownKind)
}

func TestResolve_UnknownPayloadFieldIsMalformed(t *testing.T) {
	c := genasi()
	cmd := command.Command{
		CombatantID: c.ID,
		Kind:        command.KindDamage,
		Payload:     json.RawMessage(`{"amount": 3, "typ": "fire"}`),
	}
	_, err := command.Resolve(c, cmd, command.Env{Source: rolls(1)})
	assert.ErrorIs(t, err, command.ErrMalformedCommand)
}

func TestResolve_MismatchedCombatantIsMalformed(t *testing.T) {
	c := genasi()
	cmd := mustCommand(t, wizard(), command.KindStabilize, nil)
	_, err := command.Resolve(c, cmd, command.Env{Source: rolls(1)})
	assert.ErrorIs(t, err, command.ErrMalformedCommand)
}

func TestResolve_Rest(t *testing.T) {
	c := genasi()
	c.CurrentHP = 20
	for i := range c.Resources {
		c.Resources[i].Used = 1
	}

	short, err := command.Resolve(c, mustCommand(t, c, command.KindRest, command.RestPayload{Kind: resource.RestShort}), command.Env{Source: rolls(1)})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1}, used(short.Combatant))
	assert.Equal(t, 20, short.Combatant.CurrentHP)

	long, err := command.Resolve(c, mustCommand(t, c, command.KindRest, command.RestPayload{Kind: resource.RestLong}), command.Env{Source: rolls(1)})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, used(long.Combatant))
	assert.Equal(t, 52, long.Combatant.CurrentHP)
}

func used(c combat.Combatant) []int {
	out := make([]int, len(c.Resources))
	for i, p := range c.Resources {
		out[i] = p.Used
	}
	return out
}

func TestResolve_DeathSaveAndHeal(t *testing.T) {
	c := genasi()
	c.CurrentHP = 0
	c.Conditions = []string{combat.ConditionUnconscious}

	saved, err := command.Resolve(c, mustCommand(t, c, command.KindDeathSave, nil), command.Env{Source: rolls(20)})
	require.NoError(t, err)
	assert.Equal(t, combat.StateDying, saved.Trace.StateBefore)
	assert.Equal(t, combat.StateStable, saved.Trace.StateAfter)
	assert.Equal(t, 1, saved.Combatant.CurrentHP)

	healed, err := command.Resolve(c, mustCommand(t, c, command.KindHeal, command.HealPayload{Dice: "2d4+2"}), command.Env{Source: rolls(3, 3)})
	require.NoError(t, err)
	assert.Equal(t, 8, healed.Combatant.CurrentHP)
	assert.False(t, healed.Combatant.HasCondition(combat.ConditionUnconscious))
}

func TestResolve_TempHPStabilizeRevive(t *testing.T) {
	c := genasi()
	env := command.Env{Source: rolls(1)}

	temp, err := command.Resolve(c, mustCommand(t, c, command.KindTempHP, command.TempHPPayload{Amount: 8}), env)
	require.NoError(t, err)
	assert.Equal(t, 8, temp.Trace.TempHPAfter)

	c.CurrentHP = 0
	stable, err := command.Resolve(c, mustCommand(t, c, command.KindStabilize, nil), env)
	require.NoError(t, err)
	assert.Equal(t, combat.StateStabilized, stable.Trace.StateAfter)

	c.Dead = true
	revived, err := command.Resolve(c, mustCommand(t, c, command.KindRevive, command.RevivePayload{HP: 1}), env)
	require.NoError(t, err)
	assert.Equal(t, combat.StateStable, revived.Trace.StateAfter)
	assert.Equal(t, 1, revived.Combatant.CurrentHP)
}

func TestResolve_NeverMutatesInputProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := genasi()
		c.CurrentHP = rapid.IntRange(0, c.MaxHP).Draw(t, "hp")
		c.TempHP = rapid.IntRange(0, 10).Draw(t, "temp")
		original := c.Clone()

		types := combat.DamageTypes()
		payload := command.DamagePayload{
			Amount:   rapid.IntRange(0, 120).Draw(t, "amount"),
			Type:     types[rapid.IntRange(0, len(types)-1).Draw(t, "type")],
			Critical: rapid.Bool().Draw(t, "critical"),
		}
		cmd, err := command.New(c.ID, command.KindDamage, payload)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		out, err := command.Resolve(c, cmd, command.Env{Source: dice.NewSeededSource(7)})
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		assert.Equal(t, original, c)
		if out.Trace.HPAfter < 0 || out.Trace.HPAfter > c.MaxHP {
			t.Fatalf("hp after %d outside [0, %d]", out.Trace.HPAfter, c.MaxHP)
		}
	})
}
