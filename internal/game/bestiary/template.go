// Package bestiary provides creature stat block templates and spawns fresh
// combatant snapshots from them.
package bestiary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/condition"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
	"github.com/cory-johannsen/tabletop/internal/game/resource"
)

// Attack is one attack option listed in a stat block.
type Attack struct {
	Name       string            `yaml:"name"`
	Bonus      int               `yaml:"bonus"`
	Damage     string            `yaml:"damage"`
	DamageType combat.DamageType `yaml:"damage_type"`
	Range      condition.Range   `yaml:"range"`
	// Weapon optionally names an inventory weapon; Damage and DamageType are
	// filled from it when empty.
	Weapon string `yaml:"weapon"`
}

// Template defines a reusable creature or pregenerated character loaded from YAML.
type Template struct {
	ID                string                `yaml:"id"`
	Name              string                `yaml:"name"`
	Description       string                `yaml:"description"`
	Kind              combat.Kind           `yaml:"kind"`
	MaxHP             int                   `yaml:"max_hp"`
	AC                int                   `yaml:"ac"`
	Armor             string                `yaml:"armor"`
	Shield            string                `yaml:"shield"`
	Abilities         combat.AbilityScores  `yaml:"abilities"`
	ProficiencyBonus  int                   `yaml:"proficiency_bonus"`
	SaveProficiencies []combat.Ability      `yaml:"save_proficiencies"`
	Immunities        combat.DamageTypeSet  `yaml:"immunities"`
	Resistances       combat.DamageTypeSet  `yaml:"resistances"`
	Vulnerabilities   combat.DamageTypeSet  `yaml:"vulnerabilities"`
	PowerfulBuild     bool                  `yaml:"powerful_build"`
	Classes           []resource.ClassLevel `yaml:"classes"`
	Attacks           []Attack              `yaml:"attacks"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHP >= 1, AC >= 0
// and every attack has a name and parseable damage; returns an error on the
// first violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("creature template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("creature template %q: name must not be empty", t.ID)
	}
	if t.MaxHP < 1 {
		return fmt.Errorf("creature template %q: max_hp must be >= 1", t.ID)
	}
	if t.AC < 0 {
		return fmt.Errorf("creature template %q: ac must be >= 0", t.ID)
	}
	if t.ProficiencyBonus < 0 {
		return fmt.Errorf("creature template %q: proficiency_bonus must be >= 0", t.ID)
	}
	for _, cl := range t.Classes {
		if cl.Level < 1 || cl.Level > 20 {
			return fmt.Errorf("creature template %q: %s level %d out of range [1, 20]", t.ID, cl.Class, cl.Level)
		}
	}
	for _, a := range t.Attacks {
		if a.Name == "" {
			return fmt.Errorf("creature template %q: attack name must not be empty", t.ID)
		}
		if a.Damage == "" && a.Weapon == "" {
			return fmt.Errorf("creature template %q: attack %q needs damage or weapon", t.ID, a.Name)
		}
		if a.Damage != "" {
			if _, err := dice.ParseAmount(a.Damage); err != nil {
				return fmt.Errorf("creature template %q: attack %q: %w", t.ID, a.Name, err)
			}
		}
	}
	return nil
}

// Attack returns the named attack and whether it exists.
func (t *Template) Attack(name string) (Attack, bool) {
	for _, a := range t.Attacks {
		if a.Name == name {
			return a, true
		}
	}
	return Attack{}, false
}

// proficiency returns the explicit proficiency bonus, or the one derived from
// total class level, or 2.
func (t *Template) proficiency() int {
	if t.ProficiencyBonus > 0 {
		return t.ProficiencyBonus
	}
	if lvl := resource.TotalLevel(t.Classes); lvl > 0 {
		return combat.ProficiencyBonus(lvl)
	}
	return 2
}

// Vars returns the formula variables derived from the template: proficiency
// and the six ability modifiers.
func (t *Template) Vars() resource.Vars {
	v := resource.Vars{"proficiency": t.proficiency()}
	for _, a := range combat.Abilities {
		v[a.String()+"_mod"] = t.Abilities.Modifier(a)
	}
	return v
}

// Combatant builds a fresh, full-health snapshot with id. Class resources and
// spell slots are materialized with eval.
//
// Precondition: t has passed Validate; id must be non-empty.
// Postcondition: CurrentHP == MaxHP; every resource pool is unused.
func (t *Template) Combatant(id string, eval resource.FormulaEvaluator) (combat.Combatant, error) {
	if id == "" {
		return combat.Combatant{}, fmt.Errorf("creature template %q: combatant id must not be empty", t.ID)
	}
	pools, err := resource.ClassPools(t.Classes, eval, t.Vars())
	if err != nil {
		return combat.Combatant{}, fmt.Errorf("creature template %q: %w", t.ID, err)
	}
	c := combat.Combatant{
		ID:                id,
		Kind:              t.Kind,
		Name:              t.Name,
		MaxHP:             t.MaxHP,
		CurrentHP:         t.MaxHP,
		AC:                t.AC,
		Abilities:         t.Abilities,
		ProficiencyBonus:  t.proficiency(),
		SaveProficiencies: t.SaveProficiencies,
		PowerfulBuild:     t.PowerfulBuild,
		Immunities:        t.Immunities,
		Resistances:       t.Resistances,
		Vulnerabilities:   t.Vulnerabilities,
		Classes:           t.Classes,
		Resources:         pools,
	}
	return c.Clone(), nil
}

// LoadTemplateFromBytes parses a single template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	tmpl := Template{Kind: combat.KindMonster}
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading creature dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
