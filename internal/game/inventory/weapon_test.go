package inventory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/inventory"
)

func longswordDef() *inventory.WeaponDef {
	return &inventory.WeaponDef{
		ID:            "longsword",
		Name:          "Longsword",
		DamageDice:    "1d8",
		DamageType:    combat.Slashing,
		VersatileDice: "1d10",
		Properties:    []string{inventory.PropertyVersatile},
		Weight:        3,
	}
}

func TestWeaponDef_Validate_RejectsEmpty(t *testing.T) {
	w := &inventory.WeaponDef{}
	if err := w.Validate(); err == nil {
		t.Fatal("expected error for empty WeaponDef, got nil")
	}
}

func TestWeaponDef_Validate_RejectsBadDice(t *testing.T) {
	w := longswordDef()
	w.DamageDice = "d"
	assert.Error(t, w.Validate())
}

func TestWeaponDef_Validate_RejectsShortLongRange(t *testing.T) {
	w := longswordDef()
	w.NormalRange, w.LongRange = 80, 20
	assert.Error(t, w.Validate())
}

func TestWeaponDef_Damage_Versatile(t *testing.T) {
	w := longswordDef()
	one, err := w.Damage(3, false)
	require.NoError(t, err)
	assert.Equal(t, 8, one.Sides)
	assert.Equal(t, 3, one.Modifier)

	two, err := w.Damage(3, true)
	require.NoError(t, err)
	assert.Equal(t, 10, two.Sides)
}

func TestWeaponDef_AttackAbility(t *testing.T) {
	strong := combat.AbilityScores{Str: 16, Dex: 12}
	nimble := combat.AbilityScores{Str: 10, Dex: 18}

	sword := longswordDef()
	assert.Equal(t, combat.Strength, sword.AttackAbility(nimble))

	rapier := &inventory.WeaponDef{ID: "rapier", Properties: []string{inventory.PropertyFinesse}}
	assert.Equal(t, combat.Dexterity, rapier.AttackAbility(nimble))
	assert.Equal(t, combat.Strength, rapier.AttackAbility(strong))

	bow := &inventory.WeaponDef{ID: "longbow", NormalRange: 150, LongRange: 600}
	assert.Equal(t, combat.Dexterity, bow.AttackAbility(strong))
}

func TestLoadWeapons_LoadsYAML(t *testing.T) {
	dir := t.TempDir()
	content := `id: longbow
name: Longbow
damage_dice: 1d8
damage_type: piercing
normal_range: 150
long_range: 600
properties: [ammunition, heavy, two_handed]
weight: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "longbow.yaml"), []byte(content), 0644))
	weapons, err := inventory.LoadWeapons(dir)
	require.NoError(t, err)
	require.Len(t, weapons, 1)
	assert.Equal(t, combat.Piercing, weapons[0].DamageType)
	assert.False(t, weapons[0].IsMelee())
	assert.True(t, weapons[0].HasProperty(inventory.PropertyHeavy))
}

func TestLoadWeapons_RejectsUnknownDamageType(t *testing.T) {
	dir := t.TempDir()
	content := "id: x\nname: X\ndamage_dice: 1d4\ndamage_type: sonic\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.yaml"), []byte(content), 0644))
	_, err := inventory.LoadWeapons(dir)
	assert.Error(t, err)
}
