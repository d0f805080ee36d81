package resource

import (
	"fmt"
	"strings"
)

// Class is one of the twelve core character classes.
type Class int

const (
	Barbarian Class = iota
	Bard
	Cleric
	Druid
	Fighter
	Monk
	Paladin
	Ranger
	Rogue
	Sorcerer
	Warlock
	Wizard
)

var classNames = [...]string{
	"barbarian", "bard", "cleric", "druid", "fighter", "monk",
	"paladin", "ranger", "rogue", "sorcerer", "warlock", "wizard",
}

// Classes lists every Class in declaration order.
func Classes() []Class {
	out := make([]Class, len(classNames))
	for i := range out {
		out[i] = Class(i)
	}
	return out
}

// String returns the lowercase class name.
func (c Class) String() string {
	if c < 0 || int(c) >= len(classNames) {
		return "unknown"
	}
	return classNames[c]
}

// ParseClass converts a class name into a Class, ignoring case.
func ParseClass(s string) (Class, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range classNames {
		if n == name {
			return Class(i), nil
		}
	}
	return 0, fmt.Errorf("resource: unknown class %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(b []byte) error {
	v, err := ParseClass(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Subclass names the subclasses that change a class's spellcasting.
type Subclass string

const (
	SubclassNone            Subclass = ""
	SubclassEldritchKnight  Subclass = "eldritch_knight"
	SubclassArcaneTrickster Subclass = "arcane_trickster"
)

// ClassLevel is the number of levels a character holds in one class.
type ClassLevel struct {
	Class    Class    `json:"class" yaml:"class"`
	Subclass Subclass `json:"subclass,omitempty" yaml:"subclass,omitempty"`
	Level    int      `json:"level" yaml:"level"`
}

// CasterType describes how a class contributes to spell slots.
type CasterType int

const (
	CasterNone CasterType = iota
	CasterFull
	CasterHalf
	CasterThird
	// CasterPact is warlock pact magic, which never contributes to the shared table.
	CasterPact
)

// String returns the caster type name.
func (t CasterType) String() string {
	switch t {
	case CasterFull:
		return "full"
	case CasterHalf:
		return "half"
	case CasterThird:
		return "third"
	case CasterPact:
		return "pact"
	default:
		return "none"
	}
}

// CasterType returns the spellcasting progression of cl.
func (cl ClassLevel) CasterType() CasterType {
	switch cl.Class {
	case Bard, Cleric, Druid, Sorcerer, Wizard:
		return CasterFull
	case Paladin, Ranger:
		return CasterHalf
	case Warlock:
		return CasterPact
	case Fighter:
		if cl.Subclass == SubclassEldritchKnight {
			return CasterThird
		}
	case Rogue:
		if cl.Subclass == SubclassArcaneTrickster {
			return CasterThird
		}
	}
	return CasterNone
}

// TotalLevel sums the levels of every class.
func TotalLevel(classes []ClassLevel) int {
	total := 0
	for _, cl := range classes {
		total += max(cl.Level, 0)
	}
	return total
}
