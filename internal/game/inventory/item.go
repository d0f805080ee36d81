package inventory

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind constants for ItemDef.Kind.
const (
	KindWeapon     = "weapon"
	KindArmor      = "armor"
	KindGear       = "gear"
	KindConsumable = "consumable"
)

// validKinds is the set of valid ItemDef kinds.
var validKinds = map[string]bool{
	KindWeapon:     true,
	KindArmor:      true,
	KindGear:       true,
	KindConsumable: true,
}

// ItemDef defines the static properties of an inventory item loaded from YAML.
type ItemDef struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Kind        string  `yaml:"kind"`
	Weight      float64 `yaml:"weight"`
	WeaponRef   string  `yaml:"weapon_ref"`
	ArmorRef    string  `yaml:"armor_ref"`
	Stackable   bool    `yaml:"stackable"`
	MaxStack    int     `yaml:"max_stack"`
	// Value is in copper pieces.
	Value int `yaml:"value"`
}

// Validate checks that the ItemDef satisfies its invariants.
//
// Precondition: d is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (d *ItemDef) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("Name must not be empty"))
	}
	if !validKinds[d.Kind] {
		errs = append(errs, fmt.Errorf("Kind must be one of weapon, armor, gear, consumable; got %q", d.Kind))
	}
	if d.MaxStack < 1 {
		errs = append(errs, errors.New("MaxStack must be >= 1"))
	}
	if d.Weight < 0 {
		errs = append(errs, errors.New("Weight must be >= 0"))
	}
	if d.Kind == KindWeapon && d.WeaponRef == "" {
		errs = append(errs, errors.New("WeaponRef is required when Kind is weapon"))
	}
	if d.Kind == KindArmor && d.ArmorRef == "" {
		errs = append(errs, errors.New("ArmorRef is required when Kind is armor"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("item validation failed: %v", errs)
	}
	return nil
}

// LoadItems reads all *.yaml and *.yml files from dir, parses each as an
// ItemDef, validates it, and returns the collected slice.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid ItemDefs or the first encountered error.
func LoadItems(dir string) ([]*ItemDef, error) {
	var items []*ItemDef
	err := loadDir(dir, func(path string, data []byte) error {
		var d ItemDef
		if err := yaml.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("cannot parse file %q: %w", path, err)
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("invalid item in %q: %w", path, err)
		}
		items = append(items, &d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("LoadItems: %w", err)
	}
	return items, nil
}

// ItemInstance is a stack of one item definition held by a character.
type ItemInstance struct {
	ItemDefID string `json:"item_def_id" yaml:"item"`
	Quantity  int    `json:"quantity" yaml:"quantity"`
}
