package bestiary_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tabletop/internal/game/bestiary"
	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/inventory"
	"github.com/cory-johannsen/tabletop/internal/game/resource"
	"github.com/cory-johannsen/tabletop/internal/scripting"
)

func loadContent(t *testing.T) *bestiary.Bestiary {
	t.Helper()
	templates, err := bestiary.LoadTemplates("../../../content/creatures")
	require.NoError(t, err)
	armory, err := inventory.LoadRegistry("../../../content/equipment")
	require.NoError(t, err)
	eval := scripting.NewFormulaEvaluator(0, zap.NewNop())
	t.Cleanup(eval.Close)
	b, err := bestiary.New(templates, armory, eval)
	require.NoError(t, err)
	return b
}

func TestLoadTemplateFromBytes_DefaultsToMonster(t *testing.T) {
	tmpl, err := bestiary.LoadTemplateFromBytes([]byte(`
id: rat
name: Rat
max_hp: 1
ac: 10
abilities: {str: 2, dex: 11, con: 9, int: 2, wis: 10, cha: 4}
attacks:
  - name: bite
    bonus: 0
    damage: "1"
    damage_type: piercing
`))
	require.NoError(t, err)
	assert.Equal(t, combat.KindMonster, tmpl.Kind)
	bite, ok := tmpl.Attack("bite")
	require.True(t, ok)
	assert.Equal(t, "1", bite.Damage, "a bare number is flat damage")

	_, err = bestiary.LoadTemplateFromBytes([]byte(`
id: rat
name: Rat
max_hp: 1
ac: 10
attacks:
  - name: bite
    damage: 1d1
    damage_type: piercing
`))
	assert.Error(t, err, "a one-sided die is not a dice expression")
}

func TestLoadTemplateFromBytes_Invalid(t *testing.T) {
	for _, doc := range []string{
		"name: Nameless\nmax_hp: 5\n",
		"id: x\nmax_hp: 5\n",
		"id: x\nname: X\nmax_hp: 0\n",
		"id: x\nname: X\nmax_hp: 5\nimmunities: [sonic]\n",
		"id: x\nname: X\nmax_hp: 5\nclasses: [{class: fighter, level: 21}]\n",
		"id: x\nname: X\nmax_hp: 5\nattacks: [{name: claw}]\n",
	} {
		_, err := bestiary.LoadTemplateFromBytes([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestBestiary_ResolvesArmorAndWeapons(t *testing.T) {
	b := loadContent(t)
	goblin, ok := b.Get("goblin")
	require.True(t, ok)
	assert.Equal(t, 15, goblin.AC, "leather 11 + dex 2 + shield 2")
	scimitar, ok := goblin.Attack("scimitar")
	require.True(t, ok)
	assert.Equal(t, "1d6+2", scimitar.Damage)
	assert.Equal(t, combat.Slashing, scimitar.DamageType)

	fighter, ok := b.Get("fire-genasi-fighter")
	require.True(t, ok)
	assert.Equal(t, 18, fighter.AC)
}

func TestBestiary_SpawnFighter(t *testing.T) {
	b := loadContent(t)
	c, err := b.Spawn("fire-genasi-fighter", "pc-1")
	require.NoError(t, err)
	assert.Equal(t, "pc-1", c.ID)
	assert.Equal(t, combat.KindPlayer, c.Kind)
	assert.Equal(t, 52, c.CurrentHP)
	assert.Equal(t, 3, c.ProficiencyBonus)
	assert.True(t, c.Resistances.Has(combat.Fire))
	assert.GreaterOrEqual(t, resource.Find(c.Resources, "action_surge"), 0)
	assert.GreaterOrEqual(t, resource.Find(c.Resources, "second_wind"), 0)
}

func TestBestiary_SpawnPaladinWarlockPools(t *testing.T) {
	b := loadContent(t)
	c, err := b.Spawn("paladin-warlock", "")
	require.NoError(t, err)
	assert.Equal(t, "paladin-warlock-1", c.ID)
	poolMax := func(key string) int {
		i := resource.Find(c.Resources, key)
		require.GreaterOrEqual(t, i, 0, key)
		return c.Resources[i].Max
	}
	assert.Equal(t, 30, poolMax("lay_on_hands"))
	assert.Equal(t, 4, poolMax("divine_sense"))
	assert.Equal(t, 4, poolMax("spell_slot_1"))
	assert.Equal(t, 2, poolMax("spell_slot_2"))
	assert.Equal(t, 2, poolMax(resource.PactSlotKey))
}

func TestBestiary_SpawnUnknown(t *testing.T) {
	_, err := loadContent(t).Spawn("dragon", "")
	assert.Error(t, err)
}

func TestBestiary_UnknownArmor(t *testing.T) {
	tmpl, err := bestiary.LoadTemplateFromBytes([]byte("id: x\nname: X\nmax_hp: 5\narmor: mithral\n"))
	require.NoError(t, err)
	_, err = bestiary.New([]*bestiary.Template{tmpl}, inventory.NewRegistry(), nil)
	assert.Error(t, err)
	_, err = bestiary.New([]*bestiary.Template{tmpl}, nil, nil)
	assert.Error(t, err)
}

func TestBestiary_DuplicateID(t *testing.T) {
	a := &bestiary.Template{ID: "x", Name: "X", MaxHP: 1}
	_, err := bestiary.New([]*bestiary.Template{a, a}, nil, nil)
	assert.Error(t, err)
}

func TestSpawn_IndependentSnapshotsProperty(t *testing.T) {
	b := loadContent(t)
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 5).Draw(rt, "n")
		var spawned []combat.Combatant
		for i := range n {
			c, err := b.Spawn("wizard", fmt.Sprintf("w-%d", i))
			require.NoError(rt, err)
			spawned = append(spawned, c)
		}
		spawned[0].Resources[0].Used = 1
		spawned[0].SaveProficiencies[0] = combat.Strength
		for _, c := range spawned[1:] {
			assert.Equal(rt, 0, c.Resources[0].Used)
			assert.Equal(rt, combat.Intelligence, c.SaveProficiencies[0])
		}
	})
}
