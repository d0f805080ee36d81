package bestiary

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/inventory"
	"github.com/cory-johannsen/tabletop/internal/game/resource"
)

// Bestiary indexes templates by ID and spawns combatants from them.
// All methods are safe for concurrent use.
type Bestiary struct {
	mu        sync.RWMutex
	templates map[string]*Template
	eval      resource.FormulaEvaluator
	counter   atomic.Uint64
}

// New indexes templates, resolving armor AC and weapon attacks against armory
// when it is non-nil.
//
// Precondition: templates have passed Validate.
// Postcondition: returns an error on duplicate IDs or unresolved armor and weapon references.
func New(templates []*Template, armory *inventory.Registry, eval resource.FormulaEvaluator) (*Bestiary, error) {
	b := &Bestiary{templates: make(map[string]*Template, len(templates)), eval: eval}
	for _, t := range templates {
		if _, dup := b.templates[t.ID]; dup {
			return nil, fmt.Errorf("bestiary: duplicate template ID %q", t.ID)
		}
		if err := resolve(t, armory); err != nil {
			return nil, err
		}
		b.templates[t.ID] = t
	}
	return b, nil
}

// resolve fills AC from armor and attack damage from weapons.
func resolve(t *Template, armory *inventory.Registry) error {
	needs := t.Armor != "" || t.Shield != ""
	for _, a := range t.Attacks {
		needs = needs || a.Weapon != ""
	}
	if !needs {
		return nil
	}
	if armory == nil {
		return fmt.Errorf("bestiary: template %q references equipment but no armory is loaded", t.ID)
	}

	var armor, shield *inventory.ArmorDef
	if t.Armor != "" {
		if armor = armory.Armor(t.Armor); armor == nil {
			return fmt.Errorf("bestiary: template %q: unknown armor %q", t.ID, t.Armor)
		}
	}
	if t.Shield != "" {
		if shield = armory.Armor(t.Shield); shield == nil {
			return fmt.Errorf("bestiary: template %q: unknown shield %q", t.ID, t.Shield)
		}
	}
	if armor != nil || shield != nil {
		t.AC = inventory.ArmorClass(armor, shield, t.Abilities.Modifier(combat.Dexterity))
	}

	for i, a := range t.Attacks {
		if a.Weapon == "" {
			continue
		}
		w := armory.Weapon(a.Weapon)
		if w == nil {
			return fmt.Errorf("bestiary: template %q attack %q: unknown weapon %q", t.ID, a.Name, a.Weapon)
		}
		if a.Damage == "" {
			expr, err := w.Damage(t.Abilities.Modifier(w.AttackAbility(t.Abilities)), false)
			if err != nil {
				return err
			}
			a.Damage = expr.String()
			a.DamageType = w.DamageType
		}
		t.Attacks[i] = a
	}
	return nil
}

// Get returns the template for id, or (nil, false) if not found.
func (b *Bestiary) Get(id string) (*Template, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.templates[id]
	return t, ok
}

// Spawn builds a combatant from templateID. When id is empty a unique ID of
// the form "<template>-<n>" is generated.
//
// Postcondition: the returned snapshot is at full health.
func (b *Bestiary) Spawn(templateID, id string) (combat.Combatant, error) {
	t, ok := b.Get(templateID)
	if !ok {
		return combat.Combatant{}, fmt.Errorf("bestiary: unknown template %q", templateID)
	}
	if id == "" {
		id = fmt.Sprintf("%s-%d", t.ID, b.counter.Add(1))
	}
	return t.Combatant(id, b.eval)
}
