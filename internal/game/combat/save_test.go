package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
)

func wizard() combat.Combatant {
	return combat.Combatant{
		ID:                    "wizard-1",
		Name:                  "Elminster",
		MaxHP:                 60,
		CurrentHP:             60,
		Abilities:             combat.AbilityScores{Str: 8, Dex: 14, Con: 12, Int: 18, Wis: 12, Cha: 10},
		ProficiencyBonus:      3,
		SaveProficiencies:     []combat.Ability{combat.Intelligence, combat.Wisdom},
		Concentrating:         true,
		ConcentrationEffectID: "haste-7",
	}
}

func TestResolveSave_SuccessOnEqualDC(t *testing.T) {
	r := combat.ResolveSave(3, 15, dice.Normal, rolls(12))
	assert.True(t, r.Success)
	assert.Equal(t, 15, r.Total)
}

func TestResolveSave_NoCriticals(t *testing.T) {
	assert.False(t, combat.ResolveSave(0, 25, dice.Normal, rolls(20)).Success)
	assert.True(t, combat.ResolveSave(10, 5, dice.Normal, rolls(1)).Success)
}

func TestSaveModifier_AddsProficiency(t *testing.T) {
	w := wizard()
	assert.Equal(t, 1, w.SaveModifier(combat.Constitution))
	assert.Equal(t, 7, w.SaveModifier(combat.Intelligence))
}

func TestConcentration_WizardKeepsSpell(t *testing.T) {
	w := wizard()
	dmg := combat.ApplyDamage(w, 30, combat.Force, w.Concentrating)
	require.Equal(t, 15, dmg.ConcentrationDC)

	r := combat.ResolveConcentration(dmg.Combatant, dmg.ConcentrationDC, dice.Normal, rolls(14))
	assert.True(t, r.Save.Success)
	assert.Equal(t, 15, r.Save.Total)
	assert.False(t, r.Broken)
	assert.True(t, r.Combatant.Concentrating)
	assert.Empty(t, r.Consequences)
}

func TestConcentration_FailureEndsConcentration(t *testing.T) {
	r := combat.ResolveConcentration(wizard(), 15, dice.Normal, rolls(13))
	assert.False(t, r.Save.Success)
	assert.True(t, r.Broken)
	assert.False(t, r.Combatant.Concentrating)
	assert.Empty(t, r.Combatant.ConcentrationEffectID)
	require.Len(t, r.Consequences, 1)
	assert.Equal(t, combat.Consequence{
		Kind:        combat.ConsequenceEndConcentration,
		CombatantID: "wizard-1",
		EffectID:    "haste-7",
		Reason:      "failed concentration save",
	}, r.Consequences[0])
}

type stubRules struct {
	sources  dice.Sources
	autoFail bool
}

func (s stubRules) SaveSources([]string, string) dice.Sources { return s.sources }
func (s stubRules) AutoFailsSave([]string, string) bool       { return s.autoFail }

func TestResolveSavingThrow_AutoFailDrawsNoDice(t *testing.T) {
	src := rolls(20)
	r := combat.ResolveSavingThrow(wizard(), combat.SaveRequest{Ability: combat.Dexterity, DC: 5}, stubRules{autoFail: true}, src)
	assert.True(t, r.AutoFailed)
	assert.False(t, r.Success)
	assert.Equal(t, 0, src.drawn())
}

func TestResolveSavingThrow_MergesSources(t *testing.T) {
	req := combat.SaveRequest{Ability: combat.Wisdom, DC: 10, Sources: dice.Sources{Advantage: 1}}
	r := combat.ResolveSavingThrow(wizard(), req, stubRules{sources: dice.Sources{Disadvantage: 1}}, rolls(2, 18))
	assert.Equal(t, dice.Normal, r.Mode)
	assert.Len(t, r.Rolls, 1)

	r = combat.ResolveSavingThrow(wizard(), req, nil, rolls(2, 18))
	assert.Equal(t, dice.WithAdvantage, r.Mode)
	assert.Equal(t, 18, r.Roll)
}

func TestResolveSave_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		face := rapid.IntRange(1, 20).Draw(rt, "face")
		mod := rapid.IntRange(-5, 15).Draw(rt, "mod")
		dc := rapid.IntRange(1, 30).Draw(rt, "dc")
		r := combat.ResolveSave(mod, dc, dice.Normal, rolls(face))
		assert.Equal(rt, face+mod >= dc, r.Success)
	})
}
