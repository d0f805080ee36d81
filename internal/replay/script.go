// Package replay runs a scripted encounter against in-memory storage with a
// seeded dice source, so the same script always produces the same traces.
package replay

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/tabletop/internal/command"
	"github.com/cory-johannsen/tabletop/internal/game/inventory"
)

// Script is a replayable encounter.
type Script struct {
	Name string `yaml:"name"`
	// Seed drives every roll; zero falls back to the configured engine seed.
	Seed       uint64  `yaml:"seed"`
	Combatants []Spawn `yaml:"combatants"`
	Steps      []Step  `yaml:"steps"`
}

// Spawn places one combatant built from a creature template.
type Spawn struct {
	ID         string   `yaml:"id"`
	Template   string   `yaml:"template"`
	Conditions []string `yaml:"conditions"`
	// Concentration starts the combatant concentrating on the named effect.
	Concentration string                   `yaml:"concentration"`
	Items         []inventory.ItemInstance `yaml:"items"`
}

// Step submits one command kind against one or more targets, in order.
type Step struct {
	Round   int          `yaml:"round"`
	Turn    string       `yaml:"turn"`
	Kind    command.Kind `yaml:"kind"`
	Targets []string     `yaml:"targets"`
	// Attacker and Attack fill an attack payload from the attacker's template.
	Attacker string         `yaml:"attacker"`
	Attack   string         `yaml:"attack"`
	Payload  map[string]any `yaml:"payload"`
}

// Validate checks structural invariants that do not need loaded content.
//
// Postcondition: Returns nil iff every combatant has a unique id and a
// template, and every step has a kind and at least one spawned target.
func (s *Script) Validate() error {
	ids := make(map[string]bool, len(s.Combatants))
	for _, c := range s.Combatants {
		if c.ID == "" || c.Template == "" {
			return fmt.Errorf("replay script %q: combatant needs id and template", s.Name)
		}
		if ids[c.ID] {
			return fmt.Errorf("replay script %q: duplicate combatant %q", s.Name, c.ID)
		}
		ids[c.ID] = true
	}
	for i, st := range s.Steps {
		if st.Kind == "" {
			return fmt.Errorf("replay script %q: step %d: kind must not be empty", s.Name, i+1)
		}
		if len(st.Targets) == 0 {
			return fmt.Errorf("replay script %q: step %d: at least one target required", s.Name, i+1)
		}
		for _, t := range st.Targets {
			if !ids[t] {
				return fmt.Errorf("replay script %q: step %d: unknown target %q", s.Name, i+1, t)
			}
		}
		if st.Attack != "" {
			if st.Kind != command.KindAttack {
				return fmt.Errorf("replay script %q: step %d: attack is only valid on attack steps", s.Name, i+1)
			}
			if !ids[st.Attacker] {
				return fmt.Errorf("replay script %q: step %d: unknown attacker %q", s.Name, i+1, st.Attacker)
			}
		}
	}
	return nil
}

// ParseScript decodes and validates a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing replay script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScript reads and parses the script at path.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading replay script %q: %w", path, err)
	}
	return ParseScript(data)
}
