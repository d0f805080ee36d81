package command_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/tabletop/internal/command"
	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
	"github.com/cory-johannsen/tabletop/internal/storage/memory"
)

// conflictStore fails the first n saves with a version conflict.
type conflictStore struct {
	*memory.Store
	mu    sync.Mutex
	n     int
	saves int
}

func (s *conflictStore) Save(ctx context.Context, c combat.Combatant, expected int64, trace command.Trace) (int64, error) {
	s.mu.Lock()
	s.saves++
	fail := s.saves <= s.n
	s.mu.Unlock()
	if fail {
		return 0, command.ErrVersionConflict
	}
	return s.Store.Save(ctx, c, expected, trace)
}

func newService(t *testing.T, store command.Store, pub command.Publisher, maxRetries int) *command.Service {
	t.Helper()
	return command.NewService(store, pub, command.Env{Source: dice.NewSeededSource(1)}, zaptest.NewLogger(t), maxRetries)
}

func TestService_ExecutePersistsAndPublishes(t *testing.T) {
	store := memory.NewStore()
	store.Put(genasi())
	feed := memory.NewBroadcaster()
	traces, unsubscribe := feed.Subscribe(4)
	defer unsubscribe()

	svc := newService(t, store, feed, 3)
	cmd := mustCommand(t, genasi(), command.KindDamage, command.DamagePayload{Amount: 12, Type: combat.Slashing})
	out, err := svc.Execute(context.Background(), cmd)
	require.NoError(t, err)

	got, ok := store.Get("genasi-1")
	require.True(t, ok)
	assert.Equal(t, 40, got.CurrentHP)
	assert.Equal(t, out.Combatant, got)

	stored := store.Traces()
	require.Len(t, stored, 1)
	assert.NotEqual(t, [16]byte{}, [16]byte(stored[0].ID))
	assert.False(t, stored[0].CreatedAt.IsZero())

	select {
	case tr := <-traces:
		assert.Equal(t, stored[0].ID, tr.ID)
		assert.Equal(t, "Ember takes 12 slashing damage", tr.Summary)
	case <-time.After(time.Second):
		t.Fatal("trace not published")
	}
}

func TestService_RetriesVersionConflicts(t *testing.T) {
	store := &conflictStore{Store: memory.NewStore(), n: 2}
	store.Put(genasi())

	svc := newService(t, store, nil, 2)
	_, err := svc.Execute(context.Background(), mustCommand(t, genasi(), command.KindDamage, command.DamagePayload{Amount: 2, Type: combat.Fire}))
	require.NoError(t, err)
	assert.Equal(t, 3, store.saves)

	got, _ := store.Get("genasi-1")
	assert.Equal(t, 51, got.CurrentHP)
}

func TestService_GivesUpAfterMaxRetries(t *testing.T) {
	store := &conflictStore{Store: memory.NewStore(), n: 5}
	store.Put(genasi())

	svc := newService(t, store, nil, 1)
	_, err := svc.Execute(context.Background(), mustCommand(t, genasi(), command.KindDamage, command.DamagePayload{Amount: 2, Type: combat.Fire}))
	assert.ErrorIs(t, err, command.ErrVersionConflict)

	got, _ := store.Get("genasi-1")
	assert.Equal(t, 52, got.CurrentHP)
}

func TestService_UnknownCombatant(t *testing.T) {
	svc := newService(t, memory.NewStore(), nil, 0)
	_, err := svc.Execute(context.Background(), mustCommand(t, genasi(), command.KindStabilize, nil))
	assert.ErrorIs(t, err, command.ErrCombatantNotFound)
}

func TestService_RejectedCommandIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := memory.NewStore()
	store.Put(genasi())
	svc := command.NewService(store, nil, command.Env{Source: dice.NewSeededSource(1)}, zap.New(core), 0)

	_, err := svc.Execute(context.Background(), mustCommand(t, genasi(), command.KindUseResource, command.ResourcePayload{Key: "rage"}))
	require.ErrorIs(t, err, command.ErrMalformedCommand)
	assert.Equal(t, 1, logs.FilterMessage("command rejected").Len())
	assert.Empty(t, store.Traces())
}

func TestService_DroppingToZeroRemovesConcentrationEffects(t *testing.T) {
	store := memory.NewStore()
	caster := wizard()
	ally := genasi()
	ally.Conditions = []string{"haste-7", "blessed"}
	store.Put(caster)
	store.Put(ally)

	svc := newService(t, store, nil, 0)
	out, err := svc.Execute(context.Background(), mustCommand(t, caster, command.KindDamage, command.DamagePayload{Amount: 45, Type: combat.Force}))
	require.NoError(t, err)
	require.Len(t, out.Consequences, 1)

	got, _ := store.Get(ally.ID)
	assert.Equal(t, []string{"blessed"}, got.Conditions)
	gotCaster, _ := store.Get(caster.ID)
	assert.False(t, gotCaster.Concentrating)
	assert.Equal(t, combat.StateDying, gotCaster.LifeState())
}

func TestService_ConcurrentExecuteSerializesPerCombatant(t *testing.T) {
	store := memory.NewStore()
	store.Put(genasi())
	svc := newService(t, store, nil, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cmd, err := command.New("genasi-1", command.KindDamage, command.DamagePayload{Amount: 1, Type: combat.Slashing})
			if err == nil {
				_, err = svc.Execute(context.Background(), cmd)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, _ := store.Get("genasi-1")
	assert.Equal(t, 32, got.CurrentHP)
	assert.Len(t, store.Traces(), 20)
}

func TestService_ExecuteBatchKeepsOrderPerCombatant(t *testing.T) {
	store := memory.NewStore()
	store.Put(genasi())
	store.Put(wizard())
	svc := newService(t, store, nil, 0)

	g, w := genasi(), wizard()
	cmds := []command.Command{
		mustCommand(t, g, command.KindDamage, command.DamagePayload{Amount: 60, Type: combat.Force}),
		mustCommand(t, w, command.KindDamage, command.DamagePayload{Amount: 5, Type: combat.Cold}),
		mustCommand(t, g, command.KindHeal, command.HealPayload{Amount: 10}),
		mustCommand(t, w, command.KindDamage, command.DamagePayload{Amount: 5, Type: combat.Cold}),
	}
	outcomes, err := svc.ExecuteBatch(context.Background(), cmds)
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	assert.Equal(t, 0, outcomes[0].Combatant.CurrentHP)
	assert.Equal(t, 10, outcomes[2].Combatant.CurrentHP, "heal must follow the damage it was queued after")
	assert.Equal(t, 35, outcomes[1].Combatant.CurrentHP)
	assert.Equal(t, 30, outcomes[3].Combatant.CurrentHP)
}

func TestService_ExecuteBatchReportsFailure(t *testing.T) {
	store := memory.NewStore()
	store.Put(genasi())
	svc := newService(t, store, nil, 0)

	cmds := []command.Command{
		mustCommand(t, genasi(), command.KindDamage, command.DamagePayload{Amount: 1, Type: combat.Force}),
		mustCommand(t, wizard(), command.KindDamage, command.DamagePayload{Amount: 1, Type: combat.Force}),
	}
	_, err := svc.ExecuteBatch(context.Background(), cmds)
	assert.ErrorIs(t, err, command.ErrCombatantNotFound)
}
