package inventory

import (
	"fmt"
	"path/filepath"
)

// Registry holds all loaded weapon, armor, and item definitions indexed by ID.
type Registry struct {
	weapons map[string]*WeaponDef
	armors  map[string]*ArmorDef
	items   map[string]*ItemDef
}

// NewRegistry returns an empty Registry.
//
// Postcondition: all internal maps are initialised.
func NewRegistry() *Registry {
	return &Registry{
		weapons: make(map[string]*WeaponDef),
		armors:  make(map[string]*ArmorDef),
		items:   make(map[string]*ItemDef),
	}
}

// LoadRegistry loads the weapons, armor and items subdirectories of dir into
// a new Registry and verifies every item reference resolves.
//
// Precondition: dir contains readable weapons, armor and items directories.
func LoadRegistry(dir string) (*Registry, error) {
	r := NewRegistry()
	weapons, err := LoadWeapons(filepath.Join(dir, "weapons"))
	if err != nil {
		return nil, err
	}
	for _, w := range weapons {
		if err := r.RegisterWeapon(w); err != nil {
			return nil, err
		}
	}
	armors, err := LoadArmors(filepath.Join(dir, "armor"))
	if err != nil {
		return nil, err
	}
	for _, a := range armors {
		if err := r.RegisterArmor(a); err != nil {
			return nil, err
		}
	}
	items, err := LoadItems(filepath.Join(dir, "items"))
	if err != nil {
		return nil, err
	}
	for _, d := range items {
		if err := r.RegisterItem(d); err != nil {
			return nil, err
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// RegisterWeapon adds w to the registry.
//
// Precondition:  w must not be nil.
// Postcondition: Weapon(w.ID) returns w; returns error if w.ID already registered.
func (r *Registry) RegisterWeapon(w *WeaponDef) error {
	if _, exists := r.weapons[w.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterWeapon: weapon ID %q already registered", w.ID)
	}
	r.weapons[w.ID] = w
	return nil
}

// RegisterArmor adds a to the registry.
//
// Precondition:  a must not be nil.
// Postcondition: Armor(a.ID) returns a; returns error if a.ID already registered.
func (r *Registry) RegisterArmor(a *ArmorDef) error {
	if _, exists := r.armors[a.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterArmor: armor ID %q already registered", a.ID)
	}
	r.armors[a.ID] = a
	return nil
}

// Weapon returns the WeaponDef for the given id, or nil if not found.
func (r *Registry) Weapon(id string) *WeaponDef {
	return r.weapons[id]
}

// Armor returns the ArmorDef for the given id, or nil if not found.
func (r *Registry) Armor(id string) *ArmorDef {
	return r.armors[id]
}

// RegisterItem adds d to the registry.
//
// Precondition:  d must not be nil.
// Postcondition: Item(d.ID) returns (d, true); returns error if d.ID already registered.
func (r *Registry) RegisterItem(d *ItemDef) error {
	if _, exists := r.items[d.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterItem: item ID %q already registered", d.ID)
	}
	r.items[d.ID] = d
	return nil
}

// Item returns the ItemDef for the given id and whether it was found.
//
// Postcondition: ok is true iff the id is registered.
func (r *Registry) Item(id string) (*ItemDef, bool) {
	d, ok := r.items[id]
	return d, ok
}

// Validate reports the first item whose weapon or armor reference is not registered.
func (r *Registry) Validate() error {
	for _, d := range r.items {
		if d.WeaponRef != "" && r.weapons[d.WeaponRef] == nil {
			return fmt.Errorf("inventory: item %q references unknown weapon %q", d.ID, d.WeaponRef)
		}
		if d.ArmorRef != "" && r.armors[d.ArmorRef] == nil {
			return fmt.Errorf("inventory: item %q references unknown armor %q", d.ID, d.ArmorRef)
		}
	}
	return nil
}

// CarriedWeight sums the weight of every stack in items.
//
// Precondition: reg must not be nil.
// Postcondition: returns an error naming the first unknown item ID; quantities below 0 count as 0.
func CarriedWeight(items []ItemInstance, reg *Registry) (float64, error) {
	total := 0.0
	for _, inst := range items {
		d, ok := reg.Item(inst.ItemDefID)
		if !ok {
			return 0, fmt.Errorf("inventory: CarriedWeight: unknown item %q", inst.ItemDefID)
		}
		total += d.Weight * float64(max(inst.Quantity, 0))
	}
	return total, nil
}
