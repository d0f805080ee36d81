package combat

import "fmt"

// ConsequenceKind identifies a follow-up action the host must perform after
// persisting a resolved snapshot.
type ConsequenceKind int

const (
	// ConsequenceEndConcentration asks the host to remove every active effect
	// whose concentrating character is CombatantID and that requires concentration.
	ConsequenceEndConcentration ConsequenceKind = iota
)

// String returns the wire name of k.
func (k ConsequenceKind) String() string {
	switch k {
	case ConsequenceEndConcentration:
		return "end_concentration"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ConsequenceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ConsequenceKind) UnmarshalText(b []byte) error {
	if string(b) != ConsequenceEndConcentration.String() {
		return fmt.Errorf("combat: unknown consequence kind %q", string(b))
	}
	*k = ConsequenceEndConcentration
	return nil
}

// Consequence is a side effect the engine reports but never performs itself.
type Consequence struct {
	Kind        ConsequenceKind `json:"kind"`
	CombatantID string          `json:"combatant_id"`
	// EffectID is the concentration effect being dropped, when known.
	EffectID string `json:"effect_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// endConcentration clears the concentration fields of c and returns the
// consequence describing the drop. ok is false when c was not concentrating.
func endConcentration(c Combatant, reason string) (Combatant, Consequence, bool) {
	if !c.Concentrating {
		return c, Consequence{}, false
	}
	cons := Consequence{
		Kind:        ConsequenceEndConcentration,
		CombatantID: c.ID,
		EffectID:    c.ConcentrationEffectID,
		Reason:      reason,
	}
	c.Concentrating = false
	c.ConcentrationEffectID = ""
	return c, cons, true
}

// IncapacitationRules reports whether conditions prevent actions and reactions.
type IncapacitationRules interface {
	IsIncapacitated(conditions []string) bool
}

// EndConcentrationIfIncapacitated ends c's concentration when rules report
// its conditions as incapacitating. ok is false when nothing changed.
func EndConcentrationIfIncapacitated(c Combatant, rules IncapacitationRules) (Combatant, Consequence, bool) {
	if rules == nil || !c.Concentrating || !rules.IsIncapacitated(c.Conditions) {
		return c, Consequence{}, false
	}
	return endConcentration(c, "incapacitated")
}
