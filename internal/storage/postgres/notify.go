package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/command"
)

// maxNotifyPayload is the NOTIFY payload limit, less headroom.
const maxNotifyPayload = 7900

// NotifyPublisher publishes traces with pg_notify. It implements
// command.Publisher.
type NotifyPublisher struct {
	db      *pgxpool.Pool
	channel string
}

// NewNotifyPublisher creates a publisher on channel.
//
// Precondition: channel must be a valid LISTEN identifier.
func NewNotifyPublisher(db *pgxpool.Pool, channel string) *NotifyPublisher {
	return &NotifyPublisher{db: db, channel: channel}
}

// Publish sends trace as JSON. A trace too large for one notification is sent
// without its steps; subscribers fetch the full body from the traces table.
func (p *NotifyPublisher) Publish(ctx context.Context, trace command.Trace) error {
	body, err := encodeNotification(trace)
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, `SELECT pg_notify($1, $2)`, p.channel, string(body)); err != nil {
		return fmt.Errorf("notifying %s: %w", p.channel, err)
	}
	return nil
}

func encodeNotification(trace command.Trace) ([]byte, error) {
	body, err := json.Marshal(trace)
	if err != nil {
		return nil, fmt.Errorf("encoding trace: %w", err)
	}
	if len(body) <= maxNotifyPayload {
		return body, nil
	}
	trace.Steps = nil
	body, err = json.Marshal(trace)
	if err != nil {
		return nil, fmt.Errorf("encoding trace: %w", err)
	}
	return body, nil
}

// Listener holds a dedicated connection subscribed to one channel.
type Listener struct {
	db      *pgxpool.Pool
	channel string
	logger  *zap.Logger
}

// NewListener creates a Listener for channel.
//
// Precondition: logger must be non-nil.
func NewListener(db *pgxpool.Pool, channel string, logger *zap.Logger) *Listener {
	return &Listener{db: db, channel: channel, logger: logger}
}

// Run LISTENs on the channel and calls fn with every payload until ctx is
// cancelled. It returns nil on cancellation.
func (l *Listener) Run(ctx context.Context, fn func(payload string)) error {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listening on %s: %w", l.channel, err)
	}
	l.logger.Info("listening", zap.String("channel", l.channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("waiting on %s: %w", l.channel, err)
		}
		fn(n.Payload)
	}
}
