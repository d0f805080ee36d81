package replay

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/command"
	"github.com/cory-johannsen/tabletop/internal/content"
	"github.com/cory-johannsen/tabletop/internal/feed"
	"github.com/cory-johannsen/tabletop/internal/game/bestiary"
	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
	"github.com/cory-johannsen/tabletop/internal/game/inventory"
	"github.com/cory-johannsen/tabletop/internal/storage/memory"
)

// baseSpeed is the walking speed encumbrance is reported against.
const baseSpeed = 30

// Runner executes scripts against one loaded content library.
type Runner struct {
	lib               *content.Library
	logger            *zap.Logger
	criticalThreshold int
}

// NewRunner creates a Runner.
//
// Precondition: lib and logger must be non-nil.
func NewRunner(lib *content.Library, logger *zap.Logger, criticalThreshold int) *Runner {
	if lib == nil || logger == nil {
		panic("replay: NewRunner precondition violated: lib and logger must be non-nil")
	}
	return &Runner{lib: lib, logger: logger, criticalThreshold: criticalThreshold}
}

// session is the mutable state of one run.
type session struct {
	store     *memory.Store
	svc       *command.Service
	traces    <-chan command.Trace
	templates map[string]*bestiary.Template
	out       io.Writer
}

// Run spawns the script's combatants, executes every step and writes each
// trace to out, followed by the final state of every combatant. Commands the
// engine rejects are reported and skipped.
//
// Precondition: s has passed Validate; seed is used when s.Seed is zero.
// Postcondition: Returns the final snapshots in spawn order.
func (r *Runner) Run(ctx context.Context, s *Script, seed uint64, out io.Writer) ([]combat.Combatant, error) {
	if s.Seed != 0 {
		seed = s.Seed
	}
	store := memory.NewStore()
	bus := memory.NewBroadcaster()
	traces, unsubscribe := bus.Subscribe(256)
	defer unsubscribe()

	src := dice.NewLoggedRoller(dice.NewSeededSource(seed), r.logger)
	env := command.Env{Rules: r.lib.Conditions, Source: src, CriticalThreshold: r.criticalThreshold}
	sess := &session{
		store:     store,
		svc:       command.NewService(store, bus, env, r.logger, 0),
		traces:    traces,
		templates: make(map[string]*bestiary.Template),
		out:       out,
	}

	effects := make(map[string]bool)
	for _, sp := range s.Combatants {
		if sp.Concentration != "" {
			effects[sp.Concentration] = true
		}
	}

	fmt.Fprintf(out, "== %s (seed %d)\n", s.Name, seed)
	spawned := make([]combat.Combatant, 0, len(s.Combatants))
	for _, sp := range s.Combatants {
		c, err := r.spawn(sess, sp, effects)
		if err != nil {
			return nil, err
		}
		spawned = append(spawned, c)
	}

	// initiative has its own stream so the step rolls do not depend on it
	fmt.Fprintln(out, "== initiative")
	for i, e := range combat.RollInitiative(spawned, dice.NewSeededSource(seed+1)) {
		fmt.Fprintf(out, "%2d. %-12s %d (d20 %d %+d)\n", i+1, e.CombatantID, e.Total, e.Roll, e.Modifier)
	}
	for i, st := range s.Steps {
		if err := r.step(ctx, sess, st); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	fmt.Fprintln(out, "== final state")
	final := make([]combat.Combatant, 0, len(s.Combatants))
	for _, sp := range s.Combatants {
		c, _ := store.Get(sp.ID)
		final = append(final, c)
		fmt.Fprintf(out, "%-12s %-16s hp %d/%d temp %d %s\n", c.ID, c.Name, c.CurrentHP, c.MaxHP, c.TempHP, c.LifeState())
	}
	return final, nil
}

// spawn places sp in the store and reports its carried load and speed.
// Conditions must be defined or name a concentration effect held by some
// combatant in the script.
func (r *Runner) spawn(sess *session, sp Spawn, effects map[string]bool) (combat.Combatant, error) {
	c, err := r.lib.Bestiary.Spawn(sp.Template, sp.ID)
	if err != nil {
		return combat.Combatant{}, err
	}
	defined := slices.DeleteFunc(slices.Clone(sp.Conditions), func(id string) bool { return effects[id] })
	if err := r.lib.Conditions.Validate(defined); err != nil {
		return combat.Combatant{}, fmt.Errorf("combatant %q: %w", sp.ID, err)
	}
	c.Conditions = slices.Clone(sp.Conditions)
	if sp.Concentration != "" {
		c.Concentrating = true
		c.ConcentrationEffectID = sp.Concentration
	}
	sess.store.Put(c)
	tmpl, _ := r.lib.Bestiary.Get(sp.Template)
	sess.templates[sp.ID] = tmpl

	fmt.Fprintf(sess.out, "spawned %s (%s) hp %d ac %d\n", c.ID, c.Name, c.MaxHP, c.AC)
	speed := baseSpeed
	if len(sp.Items) > 0 {
		carried, err := inventory.CarriedWeight(sp.Items, r.lib.Armory)
		if err != nil {
			return combat.Combatant{}, fmt.Errorf("combatant %q: %w", sp.ID, err)
		}
		st := inventory.Calculate(c.Abilities.Str, carried, c.PowerfulBuild, r.lib.Encumbrance)
		speed = st.Speed(baseSpeed)
		fmt.Fprintf(sess.out, "  carries %.1f lb of %.0f: %s\n", carried, st.Capacity, st.Level)
	}
	if r.lib.Conditions.SpeedZero(c.Conditions) {
		speed = 0
	}
	fmt.Fprintf(sess.out, "  speed %d\n", speed)
	return c, nil
}

func (r *Runner) step(ctx context.Context, sess *session, st Step) error {
	cmds := make([]command.Command, 0, len(st.Targets))
	for _, target := range st.Targets {
		payload, err := r.payload(sess, st)
		if err != nil {
			return err
		}
		cmd, err := command.New(target, st.Kind, payload)
		if err != nil {
			return err
		}
		cmd.Round = st.Round
		cmd.TurnID = st.Turn
		cmds = append(cmds, cmd)
	}

	// targets run one at a time so the seeded source is drawn in script order
	for _, cmd := range cmds {
		_, err := sess.svc.Execute(ctx, cmd)
		sess.flush(cmds)
		if err != nil {
			if !feed.Permanent(err) {
				return err
			}
			fmt.Fprintf(sess.out, "[r%d %s] rejected: %v\n", st.Round, st.Turn, err)
		}
	}
	return nil
}

// payload returns the step's payload, building an attack from the attacker's
// template when the step names one.
func (r *Runner) payload(sess *session, st Step) (any, error) {
	if st.Attack == "" {
		if st.Payload == nil {
			return struct{}{}, nil
		}
		return st.Payload, nil
	}
	tmpl := sess.templates[st.Attacker]
	a, ok := tmpl.Attack(st.Attack)
	if !ok {
		return nil, fmt.Errorf("%s has no attack %q", st.Attacker, st.Attack)
	}
	attacker, _ := sess.store.Get(st.Attacker)
	return command.AttackPayload{
		AttackerID:         attacker.ID,
		AttackBonus:        a.Bonus,
		AttackerConditions: attacker.Conditions,
		Range:              a.Range,
		Damage:             a.Damage,
		DamageType:         a.DamageType,
	}, nil
}

// flush prints the traces published for cmds in submission order.
func (s *session) flush(cmds []command.Command) {
	order := make(map[uuid.UUID]int, len(cmds))
	for i, c := range cmds {
		order[c.ID] = i
	}
	var got []command.Trace
	for {
		select {
		case t := <-s.traces:
			got = append(got, t)
			continue
		default:
		}
		break
	}
	slices.SortStableFunc(got, func(a, b command.Trace) int { return order[a.CommandID] - order[b.CommandID] })
	for _, t := range got {
		fmt.Fprintf(s.out, "[r%d %s] %s\n", t.Round, t.TurnID, t.Summary)
		for _, line := range t.Steps {
			fmt.Fprintf(s.out, "    %s\n", line)
		}
	}
}
