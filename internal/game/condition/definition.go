// Package condition loads condition definitions and derives their effect on
// attack rolls, saving throws and movement.
package condition

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
)

// ConditionDef is the static definition of a condition, loaded from YAML.
type ConditionDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// AttackMode applies to attack rolls made by the affected creature.
	AttackMode dice.Advantage `yaml:"attack_mode"`
	// MeleeDefenseMode and RangedDefenseMode apply to attack rolls made
	// against the affected creature.
	MeleeDefenseMode  dice.Advantage   `yaml:"melee_defense_mode"`
	RangedDefenseMode dice.Advantage   `yaml:"ranged_defense_mode"`
	SaveAdvantage     []combat.Ability `yaml:"save_advantage"`
	SaveDisadvantage  []combat.Ability `yaml:"save_disadvantage"`
	AutoFailSaves     []combat.Ability `yaml:"auto_fail_saves"`
	Incapacitated     bool             `yaml:"incapacitated"`
	SpeedZero         bool             `yaml:"speed_zero"`
	// AutoCritMelee makes any hit from within 5 feet a critical hit.
	AutoCritMelee bool `yaml:"auto_crit_melee"`
}

// Registry holds all known ConditionDefs keyed by ID.
type Registry struct {
	defs map[string]*ConditionDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*ConditionDef)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *ConditionDef) {
	r.defs[def.ID] = def
}

// Get returns the ConditionDef for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*ConditionDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns a snapshot slice of all registered ConditionDefs sorted by ID.
func (r *Registry) All() []*ConditionDef {
	out := make([]*ConditionDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validate returns an error naming every id in ids that is not registered.
func (r *Registry) Validate(ids []string) error {
	var errs []error
	for _, id := range ids {
		if _, ok := r.defs[id]; !ok {
			errs = append(errs, fmt.Errorf("unknown condition %q", id))
		}
	}
	return errors.Join(errs...)
}

// lookup resolves ids to definitions, skipping unknown ones.
func (r *Registry) lookup(ids []string) []*ConditionDef {
	out := make([]*ConditionDef, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.defs[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

// LoadDirectory reads every *.yaml file in dir, parses each as a ConditionDef,
// and returns a populated Registry.
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading condition dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def ConditionDef
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if def.ID == "" {
			return nil, fmt.Errorf("parsing %q: id must not be empty", path)
		}
		reg.Register(&def)
	}
	return reg, nil
}
