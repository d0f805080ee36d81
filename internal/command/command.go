// Package command is the serialization boundary between a host and the pure
// combat engine. A Command names one combatant and one rule operation; the
// Service loads that combatant's snapshot, resolves the command, persists the
// result with an optimistic version check and publishes the resulting Trace.
package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/condition"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
	"github.com/cory-johannsen/tabletop/internal/game/resource"
)

// ErrUnknownKind is returned when a command names a kind with no handler.
var ErrUnknownKind = errors.New("unknown command kind")

// ErrMalformedCommand is returned when a command payload cannot be decoded or
// fails validation.
var ErrMalformedCommand = errors.New("malformed command")

// Kind names the rule operation a command performs.
type Kind string

const (
	KindDamage          Kind = "damage"
	KindAttack          Kind = "attack"
	KindSave            Kind = "save"
	KindConcentration   Kind = "concentration"
	KindDeathSave       Kind = "death_save"
	KindHeal            Kind = "heal"
	KindTempHP          Kind = "temp_hp"
	KindStabilize       Kind = "stabilize"
	KindRevive          Kind = "revive"
	KindUseResource     Kind = "use_resource"
	KindRecoverResource Kind = "recover_resource"
	KindRest            Kind = "rest"
)

// Command is one queued rule operation against a single combatant.
type Command struct {
	ID          uuid.UUID `json:"id"`
	CombatantID string    `json:"combatant_id"`
	Kind        Kind      `json:"kind"`
	Round       int       `json:"round"`
	// TurnID is opaque to the engine and copied onto the trace.
	TurnID      string          `json:"turn_id,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// New builds a Command with a fresh ID and payload encoded as JSON.
// payload may be nil for kinds that take none.
func New(combatantID string, kind Kind, payload any) (Command, error) {
	cmd := Command{
		ID:          uuid.New(),
		CombatantID: combatantID,
		Kind:        kind,
		SubmittedAt: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Command{}, fmt.Errorf("encoding %s payload: %w", kind, err)
		}
		cmd.Payload = raw
	}
	return cmd, nil
}

// Decode strictly decodes the payload into v. An empty payload leaves v at its
// zero value.
func (c Command) Decode(v any) error {
	if len(c.Payload) == 0 || string(c.Payload) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(c.Payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformedCommand, c.Kind, err)
	}
	return nil
}

// DamagePayload applies a fixed amount, rolled dice, or both.
type DamagePayload struct {
	Amount int               `json:"amount,omitempty"`
	Dice   string            `json:"dice,omitempty"`
	Type   combat.DamageType `json:"type"`
	// Critical doubles the dice and costs two death-save failures at 0 HP.
	Critical      bool `json:"critical,omitempty"`
	Concentrating bool `json:"concentrating,omitempty"`
}

// AttackPayload is an attack against the command's combatant.
type AttackPayload struct {
	AttackerID         string            `json:"attacker_id,omitempty"`
	AttackBonus        int               `json:"attack_bonus"`
	AttackerConditions []string          `json:"attacker_conditions,omitempty"`
	Range              condition.Range   `json:"range"`
	Cover              combat.Cover      `json:"cover"`
	Sources            dice.Sources      `json:"sources"`
	Damage             string            `json:"damage,omitempty"`
	DamageType         combat.DamageType `json:"damage_type"`
	// CriticalThreshold overrides the engine default when non-zero.
	CriticalThreshold int `json:"critical_threshold,omitempty"`
}

// SavePayload is a saving throw, optionally with damage on a failed save.
type SavePayload struct {
	Ability    combat.Ability    `json:"ability"`
	DC         int               `json:"dc"`
	Sources    dice.Sources      `json:"sources"`
	Damage     string            `json:"damage,omitempty"`
	DamageType combat.DamageType `json:"damage_type"`
	// HalfOnSuccess applies half the rolled damage, rounded down, on a success.
	HalfOnSuccess bool `json:"half_on_success,omitempty"`
}

// ConcentrationPayload is a concentration check against an explicit DC.
type ConcentrationPayload struct {
	DC   int            `json:"dc"`
	Mode dice.Advantage `json:"mode"`
}

// HealPayload restores a fixed amount, rolled dice, or both.
type HealPayload struct {
	Amount int    `json:"amount,omitempty"`
	Dice   string `json:"dice,omitempty"`
}

// TempHPPayload grants temporary hit points.
type TempHPPayload struct {
	Amount int `json:"amount"`
}

// RevivePayload returns a dead combatant to life.
type RevivePayload struct {
	HP int `json:"hp"`
}

// ResourcePayload spends or recovers uses of one pool. Amount defaults to 1.
type ResourcePayload struct {
	Key    string `json:"key"`
	Amount int    `json:"amount,omitempty"`
}

// RestPayload takes a short or long rest.
type RestPayload struct {
	Kind resource.RestKind `json:"kind"`
}

// Outcome is the result of resolving one command.
type Outcome struct {
	Combatant    combat.Combatant
	Trace        Trace
	Consequences []combat.Consequence
}
