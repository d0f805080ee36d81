package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
)

// ErrVersionConflict is returned by Store.Save when the stored version no
// longer matches the version the snapshot was loaded at.
var ErrVersionConflict = errors.New("combatant version conflict")

// ErrCombatantNotFound is returned by Store.Load for an unknown combatant.
var ErrCombatantNotFound = errors.New("combatant not found")

// Store persists combatant snapshots with optimistic versioning.
type Store interface {
	// Load returns the snapshot and its current version.
	Load(ctx context.Context, id string) (combat.Combatant, int64, error)
	// Save writes c and trace atomically iff the stored version equals
	// expected, returning the new version or ErrVersionConflict.
	Save(ctx context.Context, c combat.Combatant, expected int64, trace Trace) (int64, error)
	// RemoveConcentrationEffects strips every effect that depended on the
	// concentration named by cons.
	RemoveConcentrationEffects(ctx context.Context, cons combat.Consequence) error
}

// Publisher fans out traces to realtime subscribers.
type Publisher interface {
	Publish(ctx context.Context, trace Trace) error
}

// Service executes commands against a Store with one writer per combatant.
type Service struct {
	store      Store
	publisher  Publisher
	env        Env
	logger     *zap.Logger
	maxRetries int
	locks      *keyedMutex
	now        func() time.Time
}

// NewService creates a Service.
//
// Precondition: store, env.Source and logger must be non-nil; maxRetries >= 0.
// publisher may be nil.
func NewService(store Store, publisher Publisher, env Env, logger *zap.Logger, maxRetries int) *Service {
	if store == nil || env.Source == nil || logger == nil {
		panic("command: NewService precondition violated: store, env.Source and logger must be non-nil")
	}
	return &Service{
		store:      store,
		publisher:  publisher,
		env:        env,
		logger:     logger,
		maxRetries: max(maxRetries, 0),
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
}

// Execute resolves cmd against the current snapshot of its combatant and
// persists the result. A version conflict reloads and re-resolves the command
// up to maxRetries times.
//
// Postcondition: on success the returned Outcome's trace has been stored;
// concentration consequences have been applied and the trace published on a
// best-effort basis.
func (s *Service) Execute(ctx context.Context, cmd Command) (Outcome, error) {
	start := time.Now()
	unlock := s.locks.lock(cmd.CombatantID)
	defer unlock()

	var (
		out     Outcome
		retries int
	)
	for {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		c, version, err := s.store.Load(ctx, cmd.CombatantID)
		if err != nil {
			return Outcome{}, fmt.Errorf("loading combatant %s: %w", cmd.CombatantID, err)
		}
		out, err = Resolve(c, cmd, s.env)
		if err != nil {
			s.logger.Warn("command rejected",
				zap.String("command_id", cmd.ID.String()),
				zap.String("combatant", cmd.CombatantID),
				zap.String("kind", string(cmd.Kind)),
				zap.Error(err),
			)
			return Outcome{}, err
		}
		out.Trace.Stamp(s.now())
		if _, err = s.store.Save(ctx, out.Combatant, version, out.Trace); err == nil {
			break
		}
		if !errors.Is(err, ErrVersionConflict) || retries >= s.maxRetries {
			return Outcome{}, fmt.Errorf("saving combatant %s: %w", cmd.CombatantID, err)
		}
		retries++
		s.logger.Debug("version conflict, retrying",
			zap.String("combatant", cmd.CombatantID),
			zap.Int("retry", retries),
		)
	}

	for _, cons := range out.Consequences {
		if err := s.store.RemoveConcentrationEffects(ctx, cons); err != nil {
			s.logger.Error("removing concentration effects",
				zap.String("combatant", cons.CombatantID),
				zap.String("effect", cons.EffectID),
				zap.Error(err),
			)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, out.Trace); err != nil {
			s.logger.Error("publishing trace",
				zap.String("trace_id", out.Trace.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("command executed",
		zap.String("command_id", cmd.ID.String()),
		zap.String("combatant", cmd.CombatantID),
		zap.String("kind", string(cmd.Kind)),
		zap.Int("round", cmd.Round),
		zap.String("summary", out.Trace.Summary),
		zap.Int("retries", retries),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// ExecuteBatch executes cmds concurrently across combatants. Commands for the
// same combatant run sequentially in submission order. Outcomes are returned
// in the order of cmds; the first error cancels commands not yet started.
func (s *Service) ExecuteBatch(ctx context.Context, cmds []Command) ([]Outcome, error) {
	outcomes := make([]Outcome, len(cmds))
	byCombatant := make(map[string][]int)
	var order []string
	for i, cmd := range cmds {
		if _, ok := byCombatant[cmd.CombatantID]; !ok {
			order = append(order, cmd.CombatantID)
		}
		byCombatant[cmd.CombatantID] = append(byCombatant[cmd.CombatantID], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range order {
		indexes := byCombatant[id]
		g.Go(func() error {
			for _, i := range indexes {
				out, err := s.Execute(gctx, cmds[i])
				if err != nil {
					return fmt.Errorf("command %s: %w", cmds[i].ID, err)
				}
				outcomes[i] = out
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// keyedMutex hands out one mutex per key and drops it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
