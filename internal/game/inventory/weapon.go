// Package inventory provides item, weapon and armor definitions loaded from
// YAML and the carrying-capacity rules that depend on them.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
)

// Weapon property names.
const (
	PropertyFinesse    = "finesse"
	PropertyHeavy      = "heavy"
	PropertyLight      = "light"
	PropertyLoading    = "loading"
	PropertyReach      = "reach"
	PropertyThrown     = "thrown"
	PropertyTwoHanded  = "two_handed"
	PropertyVersatile  = "versatile"
	PropertyAmmunition = "ammunition"
)

// WeaponDef defines the static properties of a weapon loaded from YAML.
type WeaponDef struct {
	ID         string            `yaml:"id"`
	Name       string            `yaml:"name"`
	DamageDice string            `yaml:"damage_dice"`
	DamageType combat.DamageType `yaml:"damage_type"`
	// VersatileDice is the two-handed damage of a versatile weapon.
	VersatileDice string   `yaml:"versatile_dice"`
	NormalRange   int      `yaml:"normal_range"` // 0 = melee
	LongRange     int      `yaml:"long_range"`
	Properties    []string `yaml:"properties"`
	Weight        float64  `yaml:"weight"`
}

// IsMelee reports whether the weapon is a melee weapon (NormalRange == 0).
func (w *WeaponDef) IsMelee() bool {
	return w.NormalRange == 0
}

// HasProperty reports whether the weapon has the named property.
func (w *WeaponDef) HasProperty(p string) bool {
	return slices.Contains(w.Properties, p)
}

// AttackAbility returns the ability used for attack and damage rolls: DEX
// for ranged weapons, the better of STR and DEX for finesse weapons, and STR
// otherwise.
func (w *WeaponDef) AttackAbility(scores combat.AbilityScores) combat.Ability {
	switch {
	case !w.IsMelee():
		return combat.Dexterity
	case w.HasProperty(PropertyFinesse) && scores.Modifier(combat.Dexterity) > scores.Modifier(combat.Strength):
		return combat.Dexterity
	default:
		return combat.Strength
	}
}

// Damage returns the parsed damage expression with mod added to its flat
// modifier. twoHanded selects VersatileDice when the weapon has it.
//
// Precondition: w has passed Validate.
func (w *WeaponDef) Damage(mod int, twoHanded bool) (dice.Expression, error) {
	src := w.DamageDice
	if twoHanded && w.VersatileDice != "" {
		src = w.VersatileDice
	}
	expr, err := dice.Parse(src)
	if err != nil {
		return dice.Expression{}, fmt.Errorf("weapon %q: %w", w.ID, err)
	}
	expr.Modifier += mod
	return expr, nil
}

// Validate checks that the WeaponDef satisfies its invariants.
// Precondition: w is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (w *WeaponDef) Validate() error {
	var errs []error
	if w.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if w.Name == "" {
		errs = append(errs, errors.New("Name must not be empty"))
	}
	if _, err := dice.Parse(w.DamageDice); err != nil {
		errs = append(errs, fmt.Errorf("DamageDice: %w", err))
	}
	if w.VersatileDice != "" {
		if _, err := dice.Parse(w.VersatileDice); err != nil {
			errs = append(errs, fmt.Errorf("VersatileDice: %w", err))
		}
	}
	if w.LongRange < w.NormalRange {
		errs = append(errs, errors.New("LongRange must be >= NormalRange"))
	}
	if w.Weight < 0 {
		errs = append(errs, errors.New("Weight must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon validation failed: %v", errs)
	}
	return nil
}

// LoadWeapons reads all *.yaml files from dir, parses each as a WeaponDef,
// validates it, and returns the collected slice.
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid WeaponDefs or the first encountered error.
func LoadWeapons(dir string) ([]*WeaponDef, error) {
	var weapons []*WeaponDef
	err := loadDir(dir, func(path string, data []byte) error {
		var w WeaponDef
		if err := yaml.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("cannot parse file %q: %w", path, err)
		}
		if err := w.Validate(); err != nil {
			return fmt.Errorf("invalid weapon in %q: %w", path, err)
		}
		weapons = append(weapons, &w)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("LoadWeapons: %w", err)
	}
	return weapons, nil
}

// loadDir calls fn for every *.yaml and *.yml file in dir, in name order.
func loadDir(dir string, fn func(path string, data []byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("cannot read directory %q: %w", dir, err)
	}
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read file %q: %w", path, err)
		}
		if err := fn(path, data); err != nil {
			return err
		}
	}
	return nil
}
