package postgres

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/tabletop/internal/command"
)

// CommandQueue is a durable FIFO of commands. Workers claim pending rows with
// FOR UPDATE SKIP LOCKED so concurrent workers never claim the same command.
type CommandQueue struct {
	db      *pgxpool.Pool
	channel string
}

// NewCommandQueue creates a CommandQueue that signals channel on every enqueue.
//
// Precondition: db must be a valid, open connection pool; channel must be a
// valid LISTEN identifier.
func NewCommandQueue(db *pgxpool.Pool, channel string) *CommandQueue {
	return &CommandQueue{db: db, channel: channel}
}

// Enqueue stores cmd as pending and notifies listeners in the same transaction.
func (q *CommandQueue) Enqueue(ctx context.Context, cmd command.Command) error {
	if cmd.ID == uuid.Nil {
		cmd.ID = uuid.New()
	}
	if cmd.SubmittedAt.IsZero() {
		cmd.SubmittedAt = time.Now().UTC()
	}
	var payload []byte
	if len(cmd.Payload) > 0 {
		payload = cmd.Payload
	}
	return inTx(ctx, q.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO commands (id, combatant_id, kind, round, turn_id, payload, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			cmd.ID, cmd.CombatantID, string(cmd.Kind), cmd.Round, cmd.TurnID, payload, cmd.SubmittedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting command: %w", err)
		}
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, q.channel, cmd.ID.String()); err != nil {
			return fmt.Errorf("notifying %s: %w", q.channel, err)
		}
		return nil
	})
}

// Claim marks up to limit pending commands as claimed and returns them in
// submission order. Combatants that still have a claimed command are skipped,
// so a deferred command is never overtaken by a later one.
//
// Precondition: limit > 0.
func (q *CommandQueue) Claim(ctx context.Context, limit int) ([]command.Command, error) {
	rows, err := q.db.Query(ctx, `
		WITH next AS (
			SELECT id FROM commands
			WHERE status = 'pending'
			  AND NOT EXISTS (
				SELECT 1 FROM commands held
				WHERE held.combatant_id = commands.combatant_id AND held.status = 'claimed'
			  )
			ORDER BY seq
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE commands c SET status = 'claimed', claimed_at = NOW()
		FROM next WHERE c.id = next.id
		RETURNING c.seq, c.id, c.combatant_id, c.kind, c.round, c.turn_id, c.payload, c.submitted_at`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claiming commands: %w", err)
	}
	defer rows.Close()

	type claimed struct {
		seq int64
		cmd command.Command
	}
	var batch []claimed
	for rows.Next() {
		var (
			c       claimed
			kind    string
			payload []byte
		)
		if err := rows.Scan(&c.seq, &c.cmd.ID, &c.cmd.CombatantID, &kind, &c.cmd.Round, &c.cmd.TurnID, &payload, &c.cmd.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scanning command row: %w", err)
		}
		c.cmd.Kind = command.Kind(kind)
		c.cmd.Payload = payload
		batch = append(batch, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading command rows: %w", err)
	}

	// RETURNING order is unspecified.
	slices.SortFunc(batch, func(a, b claimed) int { return cmp.Compare(a.seq, b.seq) })
	cmds := make([]command.Command, len(batch))
	for i, c := range batch {
		cmds[i] = c.cmd
	}
	return cmds, nil
}

// Complete marks a claimed command done.
func (q *CommandQueue) Complete(ctx context.Context, id uuid.UUID) error {
	return q.finish(ctx, id, "done", "")
}

// Fail marks a claimed command failed with the error text.
func (q *CommandQueue) Fail(ctx context.Context, id uuid.UUID, cause error) error {
	return q.finish(ctx, id, "failed", cause.Error())
}

func (q *CommandQueue) finish(ctx context.Context, id uuid.UUID, status, msg string) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE commands SET status = $2, error = $3, finished_at = NOW()
		WHERE id = $1 AND status = 'claimed'`,
		id, status, msg,
	)
	if err != nil {
		return fmt.Errorf("marking command %s %s: %w", id, status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("command %s is not claimed", id)
	}
	return nil
}

// ReleaseStale returns commands claimed longer than olderThan ago to pending,
// recovering work from a worker that died mid-batch.
//
// Postcondition: Returns the number of released commands.
func (q *CommandQueue) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE commands SET status = 'pending', claimed_at = NULL
		WHERE status = 'claimed' AND claimed_at < NOW() - make_interval(secs => $1)`,
		olderThan.Seconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("releasing stale commands: %w", err)
	}
	return tag.RowsAffected(), nil
}
