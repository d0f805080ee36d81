package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/tabletop/internal/command"
	"github.com/cory-johannsen/tabletop/internal/game/combat"
)

// ErrCombatantNotFound is returned when a combatant lookup yields no results.
// It matches command.ErrCombatantNotFound under errors.Is.
var ErrCombatantNotFound = fmt.Errorf("postgres: %w", command.ErrCombatantNotFound)

// ErrCombatantExists is returned when creating a combatant whose ID is taken.
var ErrCombatantExists = errors.New("combatant already exists")

// CombatantRepository stores combatant snapshots as JSONB guarded by an
// optimistic version column. It implements command.Store.
type CombatantRepository struct {
	db *pgxpool.Pool
}

// NewCombatantRepository creates a CombatantRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCombatantRepository(db *pgxpool.Pool) *CombatantRepository {
	return &CombatantRepository{db: db}
}

// Create inserts c at version 1.
//
// Precondition: c.ID must be non-empty.
// Postcondition: Returns the new version, or ErrCombatantExists on duplicate ID.
func (r *CombatantRepository) Create(ctx context.Context, c combat.Combatant) (int64, error) {
	snapshot, err := json.Marshal(c.Normalize())
	if err != nil {
		return 0, fmt.Errorf("encoding combatant %s: %w", c.ID, err)
	}
	var version int64
	err = r.db.QueryRow(ctx, `
		INSERT INTO combatants (id, kind, name, snapshot)
		VALUES ($1, $2, $3, $4)
		RETURNING version`,
		c.ID, c.Kind.String(), c.Name, snapshot,
	).Scan(&version)
	if err != nil {
		if isDuplicateKeyError(err) {
			return 0, ErrCombatantExists
		}
		return 0, fmt.Errorf("inserting combatant: %w", err)
	}
	return version, nil
}

// Load implements command.Store.
//
// Postcondition: Returns the snapshot and its version, or ErrCombatantNotFound.
func (r *CombatantRepository) Load(ctx context.Context, id string) (combat.Combatant, int64, error) {
	var (
		snapshot []byte
		version  int64
	)
	err := r.db.QueryRow(ctx, `SELECT snapshot, version FROM combatants WHERE id = $1`, id).Scan(&snapshot, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return combat.Combatant{}, 0, ErrCombatantNotFound
		}
		return combat.Combatant{}, 0, fmt.Errorf("querying combatant: %w", err)
	}
	var c combat.Combatant
	if err := json.Unmarshal(snapshot, &c); err != nil {
		return combat.Combatant{}, 0, fmt.Errorf("decoding combatant %s: %w", id, err)
	}
	return c, version, nil
}

// Save implements command.Store. The snapshot update and trace insert commit
// in one transaction.
//
// Postcondition: Returns the new version, command.ErrVersionConflict when the
// stored version moved, or ErrCombatantNotFound.
func (r *CombatantRepository) Save(ctx context.Context, c combat.Combatant, expected int64, trace command.Trace) (int64, error) {
	snapshot, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("encoding combatant %s: %w", c.ID, err)
	}
	body, err := json.Marshal(trace)
	if err != nil {
		return 0, fmt.Errorf("encoding trace: %w", err)
	}

	var version int64
	err = inTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE combatants SET snapshot = $2, name = $3, version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $4
			RETURNING version`,
			c.ID, snapshot, c.Name, expected,
		).Scan(&version)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM combatants WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
				return fmt.Errorf("checking combatant: %w", err)
			}
			if !exists {
				return ErrCombatantNotFound
			}
			return fmt.Errorf("%w: %s expected version %d", command.ErrVersionConflict, c.ID, expected)
		}
		if err != nil {
			return fmt.Errorf("updating combatant: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO traces (id, command_id, combatant_id, kind, round, turn_id, summary, body, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			trace.ID, trace.CommandID, trace.CombatantID, string(trace.Kind), trace.Round,
			trace.TurnID, trace.Summary, body, trace.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting trace: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// RemoveConcentrationEffects implements command.Store by removing the effect
// ID from the conditions of every combatant that carries it.
func (r *CombatantRepository) RemoveConcentrationEffects(ctx context.Context, cons combat.Consequence) error {
	if cons.EffectID == "" {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		UPDATE combatants
		SET snapshot = jsonb_set(snapshot, '{conditions}', COALESCE(
		        (SELECT jsonb_agg(c) FROM jsonb_array_elements(snapshot -> 'conditions') AS c
		         WHERE c <> to_jsonb($1::text)),
		        '[]'::jsonb)),
		    version = version + 1,
		    updated_at = NOW()
		WHERE snapshot -> 'conditions' ? $1`,
		cons.EffectID,
	)
	if err != nil {
		return fmt.Errorf("removing concentration effect %s: %w", cons.EffectID, err)
	}
	return nil
}

// Traces returns the most recent traces for a combatant, newest first.
//
// Precondition: limit > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *CombatantRepository) Traces(ctx context.Context, combatantID string, limit int) ([]command.Trace, error) {
	rows, err := r.db.Query(ctx, `
		SELECT body FROM traces WHERE combatant_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		combatantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing traces: %w", err)
	}
	defer rows.Close()

	traces := make([]command.Trace, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning trace row: %w", err)
		}
		var t command.Trace
		if err := json.Unmarshal(body, &t); err != nil {
			return nil, fmt.Errorf("decoding trace: %w", err)
		}
		traces = append(traces, t)
	}
	return traces, rows.Err()
}
