package inventory

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ArmorCategory groups armor by how much DEX it allows.
type ArmorCategory string

const (
	ArmorLight  ArmorCategory = "light"
	ArmorMedium ArmorCategory = "medium"
	ArmorHeavy  ArmorCategory = "heavy"
	ArmorShield ArmorCategory = "shield"
)

var validArmorCategories = map[ArmorCategory]struct{}{
	ArmorLight:  {},
	ArmorMedium: {},
	ArmorHeavy:  {},
	ArmorShield: {},
}

// ArmorDef defines the static properties of an armor piece or shield loaded from YAML.
type ArmorDef struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Category ArmorCategory `yaml:"category"`
	// BaseAC is the armor's base AC, or the bonus for a shield.
	BaseAC int `yaml:"base_ac"`
	// DexCap limits the DEX bonus; -1 means uncapped.
	DexCap              int     `yaml:"dex_cap"`
	StrengthReq         int     `yaml:"strength_req"`
	StealthDisadvantage bool    `yaml:"stealth_disadvantage"`
	Weight              float64 `yaml:"weight"`
}

// Validate reports an error if the ArmorDef is missing required fields or contains illegal values.
// Precondition: def is non-nil.
// Postcondition: Returns nil iff the def is well-formed.
func (a *ArmorDef) Validate() error {
	var errs []error
	if a.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if a.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if _, ok := validArmorCategories[a.Category]; !ok {
		errs = append(errs, fmt.Errorf("category %q is not a valid armor category", a.Category))
	}
	if a.BaseAC < 0 {
		errs = append(errs, errors.New("base_ac must be >= 0"))
	}
	if a.DexCap < -1 {
		errs = append(errs, errors.New("dex_cap must be >= -1"))
	}
	if a.Weight < 0 {
		errs = append(errs, errors.New("weight must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("armor validation failed: %v", errs)
	}
	return nil
}

// ArmorClass computes the AC granted by armor (nil for none) and an optional
// shield for a wearer with the given DEX modifier.
//
// Postcondition: Returns 10 + dexMod when both armor and shield are nil.
func ArmorClass(armor, shield *ArmorDef, dexMod int) int {
	ac := 10 + dexMod
	if armor != nil {
		bonus := dexMod
		if armor.DexCap >= 0 {
			bonus = min(bonus, armor.DexCap)
		}
		ac = armor.BaseAC + bonus
	}
	if shield != nil {
		ac += shield.BaseAC
	}
	return ac
}

// LoadArmors reads all .yaml files in dir and returns parsed ArmorDef slice.
// Precondition: dir must be a readable directory.
// Postcondition: Returns non-nil slice and nil error on success; all returned defs pass Validate.
func LoadArmors(dir string) ([]*ArmorDef, error) {
	armors := []*ArmorDef{}
	err := loadDir(dir, func(path string, data []byte) error {
		var a ArmorDef
		if err := yaml.Unmarshal(data, &a); err != nil {
			return fmt.Errorf("cannot parse file %q: %w", path, err)
		}
		if err := a.Validate(); err != nil {
			return fmt.Errorf("invalid armor in %q: %w", path, err)
		}
		armors = append(armors, &a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("LoadArmors: %w", err)
	}
	return armors, nil
}
