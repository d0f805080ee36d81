package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/condition"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
)

func contentRegistry(t *testing.T) *condition.Registry {
	t.Helper()
	reg, err := condition.LoadDirectory("../../../content/conditions")
	require.NoError(t, err)
	return reg
}

func TestAttackSources_ProneTarget(t *testing.T) {
	reg := contentRegistry(t)
	assert.Equal(t, dice.WithAdvantage, reg.AttackSources(nil, []string{"prone"}, condition.Melee).Mode())
	assert.Equal(t, dice.WithDisadvantage, reg.AttackSources(nil, []string{"prone"}, condition.Ranged).Mode())
}

func TestAttackSources_AdvantageAndDisadvantageCancel(t *testing.T) {
	reg := contentRegistry(t)
	s := reg.AttackSources([]string{"poisoned", "frightened"}, []string{"stunned"}, condition.Melee)
	assert.Equal(t, 1, s.Advantage)
	assert.Equal(t, 2, s.Disadvantage)
	assert.Equal(t, dice.Normal, s.Mode())
}

func TestAttackSources_UnknownIgnored(t *testing.T) {
	reg := contentRegistry(t)
	assert.Equal(t, dice.Sources{}, reg.AttackSources([]string{"hexed"}, nil, condition.Melee))
}

func TestSaveRules(t *testing.T) {
	reg := contentRegistry(t)
	assert.True(t, reg.AutoFailsSave([]string{"paralyzed"}, "dex"))
	assert.False(t, reg.AutoFailsSave([]string{"paralyzed"}, "con"))
	assert.Equal(t, dice.WithDisadvantage, reg.SaveSources([]string{"restrained"}, "dex").Mode())
	assert.Equal(t, dice.WithAdvantage, reg.SaveSources([]string{"dodging"}, "dex").Mode())
}

func TestRegistry_SatisfiesConditionRules(t *testing.T) {
	var rules combat.ConditionRules = contentRegistry(t)
	c := combat.Combatant{ID: "c", MaxHP: 10, CurrentHP: 10, Conditions: []string{"stunned"}}
	r := combat.ResolveSavingThrow(c, combat.SaveRequest{Ability: combat.Strength, DC: 1}, rules, dice.NewSeededSource(1))
	assert.True(t, r.AutoFailed)
}

func TestAutoCritical_MeleeOnly(t *testing.T) {
	reg := contentRegistry(t)
	assert.True(t, reg.AutoCritical([]string{"unconscious"}, condition.Melee))
	assert.False(t, reg.AutoCritical([]string{"unconscious"}, condition.Ranged))
	assert.False(t, reg.AutoCritical([]string{"prone"}, condition.Melee))
}

func TestIncapacitatedAndSpeed(t *testing.T) {
	reg := contentRegistry(t)
	assert.True(t, reg.IsIncapacitated([]string{"stunned"}))
	assert.False(t, reg.IsIncapacitated([]string{"prone"}))
	assert.True(t, reg.SpeedZero([]string{"grappled"}))
}

func TestParseRange(t *testing.T) {
	r, err := condition.ParseRange("ranged")
	require.NoError(t, err)
	assert.Equal(t, condition.Ranged, r)
	_, err = condition.ParseRange("far")
	assert.Error(t, err)
}
