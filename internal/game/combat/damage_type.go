package combat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DamageType is one of the thirteen published damage types.
type DamageType int

const (
	Acid DamageType = iota
	Bludgeoning
	Cold
	Fire
	Force
	Lightning
	Necrotic
	Piercing
	Poison
	Psychic
	Radiant
	Slashing
	Thunder

	damageTypeCount
)

var damageTypeNames = [damageTypeCount]string{
	"acid", "bludgeoning", "cold", "fire", "force", "lightning", "necrotic",
	"piercing", "poison", "psychic", "radiant", "slashing", "thunder",
}

// DamageTypes lists every DamageType in canonical order.
func DamageTypes() []DamageType {
	out := make([]DamageType, damageTypeCount)
	for i := range out {
		out[i] = DamageType(i)
	}
	return out
}

// String returns the lowercase damage type name.
func (d DamageType) String() string {
	if d < 0 || d >= damageTypeCount {
		return "unknown"
	}
	return damageTypeNames[d]
}

// ParseDamageType converts a name such as "fire" into a DamageType.
// Unknown names are an error rather than a silent no-op.
func ParseDamageType(s string) (DamageType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range damageTypeNames {
		if name == s {
			return DamageType(i), nil
		}
	}
	return 0, fmt.Errorf("combat: unknown damage type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d DamageType) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DamageType) UnmarshalText(b []byte) error {
	v, err := ParseDamageType(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// DamageTypeSet is a set of damage types stored as a bit mask.
// It encodes as a list of names in JSON and YAML.
type DamageTypeSet uint16

// NewDamageTypeSet builds a set from the given types.
func NewDamageTypeSet(types ...DamageType) DamageTypeSet {
	var s DamageTypeSet
	for _, t := range types {
		s = s.With(t)
	}
	return s
}

// ParseDamageTypeSet builds a set from names, failing on the first unknown name.
func ParseDamageTypeSet(names []string) (DamageTypeSet, error) {
	var s DamageTypeSet
	for _, n := range names {
		t, err := ParseDamageType(n)
		if err != nil {
			return 0, err
		}
		s = s.With(t)
	}
	return s, nil
}

// Has reports whether t is in the set.
func (s DamageTypeSet) Has(t DamageType) bool {
	if t < 0 || t >= damageTypeCount {
		return false
	}
	return s&(1<<uint(t)) != 0
}

// With returns s with t added.
func (s DamageTypeSet) With(t DamageType) DamageTypeSet {
	if t < 0 || t >= damageTypeCount {
		return s
	}
	return s | 1<<uint(t)
}

// Types returns the members of the set in canonical order.
func (s DamageTypeSet) Types() []DamageType {
	var out []DamageType
	for _, t := range DamageTypes() {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

// Names returns the member names in canonical order.
func (s DamageTypeSet) Names() []string {
	types := s.Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}

// MarshalJSON encodes the set as a JSON array of names.
func (s DamageTypeSet) MarshalJSON() ([]byte, error) {
	names := s.Names()
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

// UnmarshalJSON decodes a JSON array of names.
func (s *DamageTypeSet) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return fmt.Errorf("combat: decoding damage type set: %w", err)
	}
	v, err := ParseDamageTypeSet(names)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalYAML encodes the set as a YAML sequence of names.
func (s DamageTypeSet) MarshalYAML() (any, error) {
	return s.Names(), nil
}

// UnmarshalYAML decodes a YAML sequence of names.
func (s *DamageTypeSet) UnmarshalYAML(unmarshal func(any) error) error {
	var names []string
	if err := unmarshal(&names); err != nil {
		return err
	}
	v, err := ParseDamageTypeSet(names)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
