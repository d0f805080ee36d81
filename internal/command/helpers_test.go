package command_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tabletop/internal/command"
	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/condition"
	"github.com/cory-johannsen/tabletop/internal/game/resource"
)

// faces yields the queued die faces in order and then repeats the last one.
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

func genasi() combat.Combatant {
	return combat.Combatant{
		ID:                "genasi-1",
		Kind:              combat.KindPlayer,
		Name:              "Ember",
		MaxHP:             52,
		CurrentHP:         52,
		AC:                16,
		Abilities:         combat.AbilityScores{Str: 16, Dex: 12, Con: 14, Int: 10, Wis: 10, Cha: 8},
		ProficiencyBonus:  3,
		SaveProficiencies: []combat.Ability{combat.Strength, combat.Constitution},
		Resistances:       combat.NewDamageTypeSet(combat.Fire),
		Resources: []resource.Pool{
			{Key: "second_wind", Name: "Second Wind", Max: 1, Recharge: resource.RechargeShortRest},
			{Key: "action_surge", Name: "Action Surge", Max: 1, Recharge: resource.RechargeShortRest},
			{Key: "indomitable", Name: "Indomitable", Max: 1, Recharge: resource.RechargeLongRest},
		},
	}
}

func wizard() combat.Combatant {
	return combat.Combatant{
		ID:                    "wizard-1",
		Kind:                  combat.KindPlayer,
		Name:                  "Elminster",
		MaxHP:                 40,
		CurrentHP:             40,
		AC:                    12,
		Abilities:             combat.AbilityScores{Str: 8, Dex: 14, Con: 12, Int: 18, Wis: 12, Cha: 10},
		ProficiencyBonus:      3,
		SaveProficiencies:     []combat.Ability{combat.Intelligence, combat.Wisdom},
		Concentrating:         true,
		ConcentrationEffectID: "haste-7",
	}
}

func mustCommand(t *testing.T, c combat.Combatant, kind command.Kind, payload any) command.Command {
	t.Helper()
	cmd, err := command.New(c.ID, kind, payload)
	require.NoError(t, err)
	cmd.Round = 2
	cmd.TurnID = "turn-9"
	return cmd
}

func conditions(t *testing.T) *condition.Registry {
	t.Helper()
	reg, err := condition.LoadDirectory("../../content/conditions")
	require.NoError(t, err)
	return reg
}
