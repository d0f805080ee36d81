package command

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
)

// Trace is the persisted, published record of one resolved command.
type Trace struct {
	ID           uuid.UUID        `json:"id"`
	CommandID    uuid.UUID        `json:"command_id"`
	CombatantID  string           `json:"combatant_id"`
	Kind         Kind             `json:"kind"`
	Round        int              `json:"round"`
	TurnID       string           `json:"turn_id,omitempty"`
	Summary      string           `json:"summary"`
	Steps        []string         `json:"steps"`
	HPBefore     int              `json:"hp_before"`
	HPAfter      int              `json:"hp_after"`
	TempHPBefore int              `json:"temp_hp_before"`
	TempHPAfter  int              `json:"temp_hp_after"`
	StateBefore  combat.LifeState `json:"state_before"`
	StateAfter   combat.LifeState `json:"state_after"`
	CreatedAt    time.Time        `json:"created_at"`
}

func newTrace(cmd Command, before combat.Combatant) Trace {
	return Trace{
		CommandID:    cmd.ID,
		CombatantID:  cmd.CombatantID,
		Kind:         cmd.Kind,
		Round:        cmd.Round,
		TurnID:       cmd.TurnID,
		HPBefore:     before.CurrentHP,
		TempHPBefore: before.TempHP,
		StateBefore:  before.LifeState(),
	}
}

func (t *Trace) step(s string) {
	if s != "" {
		t.Steps = append(t.Steps, s)
	}
}

func (t *Trace) finish(after combat.Combatant, summary string) {
	t.Summary = summary
	t.HPAfter = after.CurrentHP
	t.TempHPAfter = after.TempHP
	t.StateAfter = after.LifeState()
}

// Stamp assigns the trace its identity and creation time.
func (t *Trace) Stamp(now time.Time) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = now.UTC()
}
