// Package feed drains the durable command queue into the command service.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/tabletop/internal/command"
	"github.com/cory-johannsen/tabletop/internal/game/resource"
	"github.com/cory-johannsen/tabletop/internal/observability"
)

// Queue is the claimable command source.
type Queue interface {
	Claim(ctx context.Context, limit int) ([]command.Command, error)
	Complete(ctx context.Context, id uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, cause error) error
}

// staleReleaser is implemented by queues that can reclaim abandoned work.
type staleReleaser interface {
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Executor resolves and persists one command.
type Executor interface {
	Execute(ctx context.Context, cmd command.Command) (command.Outcome, error)
}

// Worker claims batches of commands and executes them, one goroutine per
// combatant, in queue order. A combatant whose command failed transiently is
// held: its later commands stay claimed and unexecuted until stale claims are
// released.
type Worker struct {
	queue      Queue
	exec       Executor
	logger     *zap.Logger
	batchSize  int
	poll       time.Duration
	staleAfter time.Duration
	wake       chan struct{}

	mu   sync.Mutex
	held map[string]struct{}
}

// NewWorker creates a Worker.
//
// Precondition: queue, exec and logger must be non-nil; batchSize >= 1; poll > 0.
func NewWorker(queue Queue, exec Executor, logger *zap.Logger, batchSize int, poll time.Duration) *Worker {
	if queue == nil || exec == nil || logger == nil {
		panic("feed: NewWorker precondition violated: queue, exec and logger must be non-nil")
	}
	return &Worker{
		queue:      queue,
		exec:       exec,
		logger:     logger,
		batchSize:  max(batchSize, 1),
		poll:       poll,
		staleAfter: 10 * poll,
		wake:       make(chan struct{}, 1),
		held:       make(map[string]struct{}),
	}
}

// Notify wakes the worker without blocking. Extra notifications coalesce.
func (w *Worker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue whenever notified or every poll interval until ctx is
// cancelled. It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		if _, err := w.Drain(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("draining command queue", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-w.wake:
		case <-ticker.C:
			w.releaseStale(ctx)
		}
	}
}

func (w *Worker) releaseStale(ctx context.Context) {
	r, ok := w.queue.(staleReleaser)
	if !ok {
		return
	}
	n, err := r.ReleaseStale(ctx, w.staleAfter)
	if err != nil {
		w.logger.Error("releasing stale commands", zap.Error(err))
		return
	}
	if n > 0 {
		w.logger.Warn("released stale commands", zap.Int64("count", n))
		w.mu.Lock()
		clear(w.held)
		w.mu.Unlock()
	}
}

func (w *Worker) isHeld(combatantID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.held[combatantID]
	return ok
}

func (w *Worker) hold(combatantID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.held[combatantID] = struct{}{}
}

// Drain claims and executes batches until the queue is empty.
//
// Postcondition: Returns the number of commands completed or failed.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		cmds, err := w.queue.Claim(ctx, w.batchSize)
		if err != nil {
			return total, err
		}
		if len(cmds) == 0 {
			return total, nil
		}
		total += w.process(ctx, cmds)
		if len(cmds) < w.batchSize {
			return total, nil
		}
	}
}

func (w *Worker) process(ctx context.Context, cmds []command.Command) int {
	groups := make(map[string][]command.Command)
	var order []string
	for _, cmd := range cmds {
		if w.isHeld(cmd.CombatantID) {
			w.logger.Warn("command held behind deferred command", observability.CommandFields(cmd.ID, cmd.CombatantID)...)
			continue
		}
		if _, ok := groups[cmd.CombatantID]; !ok {
			order = append(order, cmd.CombatantID)
		}
		groups[cmd.CombatantID] = append(groups[cmd.CombatantID], cmd)
	}

	counts := make([]int, len(order))
	var g errgroup.Group
	for i, id := range order {
		g.Go(func() error {
			counts[i] = w.processCombatant(ctx, groups[id])
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

// processCombatant executes cmds in order. A transient failure leaves the
// failing command and everything after it claimed and holds the combatant,
// so ordering survives a later release.
func (w *Worker) processCombatant(ctx context.Context, cmds []command.Command) int {
	done := 0
	for _, cmd := range cmds {
		log := w.logger.With(observability.CommandFields(cmd.ID, cmd.CombatantID)...)
		_, err := w.exec.Execute(ctx, cmd)
		switch {
		case err == nil:
			if err := w.queue.Complete(ctx, cmd.ID); err != nil {
				log.Error("completing command", zap.Error(err))
			}
		case Permanent(err):
			if err := w.queue.Fail(ctx, cmd.ID, err); err != nil {
				log.Error("failing command", zap.Error(err))
			}
		default:
			log.Warn("command deferred", zap.Error(err))
			w.hold(cmd.CombatantID)
			return done
		}
		done++
	}
	return done
}

// Permanent reports whether err will recur however often cmd is retried.
func Permanent(err error) bool {
	return errors.Is(err, command.ErrMalformedCommand) ||
		errors.Is(err, command.ErrUnknownKind) ||
		errors.Is(err, command.ErrCombatantNotFound) ||
		errors.Is(err, resource.ErrInsufficientResource)
}
