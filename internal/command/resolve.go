package command

import (
	"fmt"

	"github.com/cory-johannsen/tabletop/internal/game/combat"
	"github.com/cory-johannsen/tabletop/internal/game/condition"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
	"github.com/cory-johannsen/tabletop/internal/game/resource"
)

// Rules is the condition rule set consulted while resolving commands.
// *condition.Registry satisfies it.
type Rules interface {
	combat.ConditionRules
	combat.IncapacitationRules
	AttackSources(attacker, target []string, rng condition.Range) dice.Sources
	AutoCritical(target []string, rng condition.Range) bool
}

// Env carries the collaborators a resolution needs.
type Env struct {
	// Rules may be nil, in which case conditions have no mechanical effect.
	Rules  Rules
	Source dice.Source
	// CriticalThreshold is the natural roll that scores a critical hit;
	// zero means combat.DefaultCriticalThreshold.
	CriticalThreshold int
}

func (e Env) threshold() int {
	if e.CriticalThreshold == 0 {
		return combat.DefaultCriticalThreshold
	}
	return e.CriticalThreshold
}

func (e Env) conditionRules() combat.ConditionRules {
	if e.Rules == nil {
		return nil
	}
	return e.Rules
}

type handler func(c combat.Combatant, cmd Command, env Env, t *Trace) (result, error)

type result struct {
	combatant    combat.Combatant
	consequences []combat.Consequence
	summary      string
}

var handlers = map[Kind]handler{
	KindDamage:          resolveDamage,
	KindAttack:          resolveAttack,
	KindSave:            resolveSave,
	KindConcentration:   resolveConcentration,
	KindDeathSave:       resolveDeathSave,
	KindHeal:            resolveHeal,
	KindTempHP:          resolveTempHP,
	KindStabilize:       resolveStabilize,
	KindRevive:          resolveRevive,
	KindUseResource:     resolveUseResource,
	KindRecoverResource: resolveRecoverResource,
	KindRest:            resolveRest,
}

// Kinds returns every command kind Resolve accepts.
func Kinds() []Kind {
	return []Kind{
		KindDamage, KindAttack, KindSave, KindConcentration, KindDeathSave, KindHeal,
		KindTempHP, KindStabilize, KindRevive, KindUseResource, KindRecoverResource, KindRest,
	}
}

// Resolve applies cmd to the snapshot c. It performs no I/O.
//
// Only malformed commands, unknown kinds and insufficient resources are
// errors; expected rule outcomes such as a miss, full cover or immunity are
// reported in the trace.
//
// Precondition: env.Source must be non-nil.
// Postcondition: on error the returned Outcome is zero and c is unchanged.
func Resolve(c combat.Combatant, cmd Command, env Env) (Outcome, error) {
	if env.Source == nil {
		panic("command: Resolve precondition violated: env.Source must be non-nil")
	}
	h, ok := handlers[cmd.Kind]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownKind, cmd.Kind)
	}
	if cmd.CombatantID != "" && c.ID != cmd.CombatantID {
		return Outcome{}, fmt.Errorf("%w: command for %q applied to %q", ErrMalformedCommand, cmd.CombatantID, c.ID)
	}

	before := c.Normalize()
	t := newTrace(cmd, before)
	res, err := h(before, cmd, env, &t)
	if err != nil {
		return Outcome{}, err
	}
	if env.Rules != nil {
		if cleared, cons, ok := combat.EndConcentrationIfIncapacitated(res.combatant, env.Rules); ok {
			res.combatant = cleared
			res.consequences = append(res.consequences, cons)
			t.step("incapacitated: concentration ends")
		}
	}
	t.finish(res.combatant, res.summary)
	return Outcome{Combatant: res.combatant, Trace: t, Consequences: res.consequences}, nil
}

func rollAmount(flat int, expr string, critical bool, src dice.Source, t *Trace) (int, error) {
	total := flat
	if expr == "" {
		return total, nil
	}
	e, err := dice.ParseAmount(expr)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	r := combat.RollDamage(e, critical, src)
	t.step(r.Breakdown)
	return total + r.Total, nil
}

func applyDamage(c combat.Combatant, ev combat.DamageEvent, t *Trace) result {
	out := combat.ApplyDamageEvent(c, ev)
	for _, s := range out.Trace {
		t.step(s)
	}
	summary := fmt.Sprintf("%s takes %d %s damage", c.Name, out.Damage.FinalDamage, ev.Type)
	if out.Before != out.After {
		summary += fmt.Sprintf(" (%s -> %s)", out.Before, out.After)
	}
	if out.Damage.ConcentrationDC > 0 && out.Combatant.Concentrating {
		summary += fmt.Sprintf(", concentration DC %d", out.Damage.ConcentrationDC)
	}
	return result{combatant: out.Combatant, consequences: out.Consequences, summary: summary}
}

func resolveDamage(c combat.Combatant, cmd Command, env Env, t *Trace) (result, error) {
	var p DamagePayload
	if err := cmd.Decode(&p); err != nil {
		return result{}, err
	}
	amount, err := rollAmount(p.Amount, p.Dice, p.Critical, env.Source, t)
	if err != nil {
		return result{}, err
	}
	return applyDamage(c, combat.DamageEvent{
		TargetID:      c.ID,
		Amount:        amount,
		Type:          p.Type,
		Critical:      p.Critical,
		Concentrating: p.Concentrating,
	}, t), nil
}

func resolveAttack(c combat.Combatant, cmd Command, env Env, t *Trace) (result, error) {
	var p AttackPayload
	if err := cmd.Decode(&p); err != nil {
		return result{}, err
	}
	threshold := env.threshold()
	if p.CriticalThreshold != 0 {
		if p.CriticalThreshold < 2 || p.CriticalThreshold > 20 {
			return result{}, fmt.Errorf("%w: critical threshold %d out of range", ErrMalformedCommand, p.CriticalThreshold)
		}
		threshold = p.CriticalThreshold
	}

	sources := p.Sources
	autoCrit := false
	if env.Rules != nil {
		sources = sources.Merge(env.Rules.AttackSources(p.AttackerConditions, c.Conditions, p.Range))
		autoCrit = env.Rules.AutoCritical(c.Conditions, p.Range)
	}

	attacker := p.AttackerID
	if attacker == "" {
		attacker = "attacker"
	}
	ar := combat.ResolveAttack(p.AttackBonus, c.AC, sources.Mode(), p.Cover, threshold, env.Source)
	t.step(ar.Trace)
	if !ar.Hit {
		return result{combatant: c, summary: fmt.Sprintf("%s vs %s: %s", attacker, c.Name, ar.Outcome)}, nil
	}

	critical := ar.Critical
	if autoCrit && !critical {
		critical = true
		t.step(fmt.Sprintf("%s hit against helpless target: critical", p.Range))
	}
	if p.Damage == "" {
		return result{combatant: c, summary: fmt.Sprintf("%s vs %s: %s", attacker, c.Name, ar.Outcome)}, nil
	}
	amount, err := rollAmount(0, p.Damage, critical, env.Source, t)
	if err != nil {
		return result{}, err
	}
	res := applyDamage(c, combat.DamageEvent{TargetID: c.ID, Amount: amount, Type: p.DamageType, Critical: critical}, t)
	res.summary = fmt.Sprintf("%s vs %s: %s; %s", attacker, c.Name, ar.Outcome, res.summary)
	return res, nil
}

func resolveSave(c combat.Combatant, cmd Command, env Env, t *Trace) (result, error) {
	var p SavePayload
	if err := cmd.Decode(&p); err != nil {
		return result{}, err
	}
	sr := combat.ResolveSavingThrow(c, combat.SaveRequest{Ability: p.Ability, DC: p.DC, Sources: p.Sources}, env.conditionRules(), env.Source)
	t.step(sr.Trace)
	verdict := "fails"
	if sr.Success {
		verdict = "succeeds"
	}
	summary := fmt.Sprintf("%s %s a DC %d %s save", c.Name, verdict, p.DC, p.Ability)
	if p.Damage == "" {
		return result{combatant: c, summary: summary}, nil
	}

	amount, err := rollAmount(0, p.Damage, false, env.Source, t)
	if err != nil {
		return result{}, err
	}
	if sr.Success {
		if !p.HalfOnSuccess {
			t.step("save succeeded: no damage")
			return result{combatant: c, summary: summary}, nil
		}
		t.step(fmt.Sprintf("save succeeded: half damage %d -> %d", amount, amount/2))
		amount /= 2
	}
	res := applyDamage(c, combat.DamageEvent{TargetID: c.ID, Amount: amount, Type: p.DamageType}, t)
	res.summary = summary + "; " + res.summary
	return res, nil
}

func resolveConcentration(c combat.Combatant, cmd Command, env Env, t *Trace) (result, error) {
	var p ConcentrationPayload
	if err := cmd.Decode(&p); err != nil {
		return result{}, err
	}
	if p.DC <= 0 {
		return result{}, fmt.Errorf("%w: concentration DC must be positive, got %d", ErrMalformedCommand, p.DC)
	}
	if !c.Concentrating {
		t.step("not concentrating: no check")
		return result{combatant: c, summary: fmt.Sprintf("%s is not concentrating", c.Name)}, nil
	}
	cr := combat.ResolveConcentration(c, p.DC, p.Mode, env.Source)
	t.step(cr.Save.Trace)
	summary := fmt.Sprintf("%s keeps concentration", c.Name)
	if cr.Broken {
		t.step("concentration ends")
		summary = fmt.Sprintf("%s loses concentration", c.Name)
	}
	return result{combatant: cr.Combatant, consequences: cr.Consequences, summary: summary}, nil
}

func resolveDeathSave(c combat.Combatant, _ Command, env Env, t *Trace) (result, error) {
	ds := combat.RollDeathSave(c, env.Source)
	t.step(ds.Trace)
	return result{combatant: ds.Combatant, summary: fmt.Sprintf("%s death save: %s", c.Name, ds.After)}, nil
}

func resolveHeal(c combat.Combatant, cmd Command, env Env, t *Trace) (result, error) {
	var p HealPayload
	if err := cmd.Decode(&p); err != nil {
		return result{}, err
	}
	amount, err := rollAmount(p.Amount, p.Dice, false, env.Source, t)
	if err != nil {
		return result{}, err
	}
	hr := combat.Heal(c, amount)
	if !hr.Applied {
		t.step(fmt.Sprintf("heal %d: no effect", amount))
	} else {
		t.step(fmt.Sprintf("heal %d: hp %d -> %d", amount, c.CurrentHP, hr.Combatant.CurrentHP))
	}
	return result{combatant: hr.Combatant, summary: fmt.Sprintf("%s regains %d hp", c.Name, hr.Healed)}, nil
}

func resolveTempHP(c combat.Combatant, cmd Command, _ Env, t *Trace) (result, error) {
	var p TempHPPayload
	if err := cmd.Decode(&p); err != nil {
		return result{}, err
	}
	out := combat.GrantTempHP(c, p.Amount)
	t.step(fmt.Sprintf("temp hp %d granted: %d -> %d", p.Amount, c.TempHP, out.TempHP))
	return result{combatant: out, summary: fmt.Sprintf("%s has %d temp hp", c.Name, out.TempHP)}, nil
}

func resolveStabilize(c combat.Combatant, _ Command, _ Env, t *Trace) (result, error) {
	out := combat.Stabilize(c)
	t.step(fmt.Sprintf("stabilize: %s -> %s", c.LifeState(), out.LifeState()))
	return result{combatant: out, summary: fmt.Sprintf("%s is %s", c.Name, out.LifeState())}, nil
}

func resolveRevive(c combat.Combatant, cmd Command, _ Env, t *Trace) (result, error) {
	var p RevivePayload
	if err := cmd.Decode(&p); err != nil {
		return result{}, err
	}
	out := combat.Revive(c, p.HP)
	t.step(fmt.Sprintf("revive: %s -> %s, hp %d", c.LifeState(), out.LifeState(), out.CurrentHP))
	return result{combatant: out, summary: fmt.Sprintf("%s is %s", c.Name, out.LifeState())}, nil
}

func resourcePool(c combat.Combatant, cmd Command) (ResourcePayload, int, error) {
	var p ResourcePayload
	if err := cmd.Decode(&p); err != nil {
		return p, -1, err
	}
	if p.Amount == 0 {
		p.Amount = 1
	}
	if p.Amount < 0 {
		return p, -1, fmt.Errorf("%w: resource amount must be positive, got %d", ErrMalformedCommand, p.Amount)
	}
	idx := resource.Find(c.Resources, p.Key)
	if idx < 0 {
		return p, -1, fmt.Errorf("%w: %s has no resource %q", ErrMalformedCommand, c.ID, p.Key)
	}
	return p, idx, nil
}

func resolveUseResource(c combat.Combatant, cmd Command, _ Env, t *Trace) (result, error) {
	p, idx, err := resourcePool(c, cmd)
	if err != nil {
		return result{}, err
	}
	pool, err := resource.Use(c.Resources[idx], p.Amount)
	if err != nil {
		return result{}, fmt.Errorf("using %s: %w", p.Key, err)
	}
	c.Resources[idx] = pool
	t.step(fmt.Sprintf("%s: used %d, %d remaining", pool.Name, p.Amount, pool.Remaining()))
	return result{combatant: c, summary: fmt.Sprintf("%s uses %s", c.Name, pool.Name)}, nil
}

func resolveRecoverResource(c combat.Combatant, cmd Command, _ Env, t *Trace) (result, error) {
	p, idx, err := resourcePool(c, cmd)
	if err != nil {
		return result{}, err
	}
	pool := resource.Recover(c.Resources[idx], p.Amount)
	c.Resources[idx] = pool
	t.step(fmt.Sprintf("%s: recovered %d, %d remaining", pool.Name, p.Amount, pool.Remaining()))
	return result{combatant: c, summary: fmt.Sprintf("%s recovers %s", c.Name, pool.Name)}, nil
}

func resolveRest(c combat.Combatant, cmd Command, _ Env, t *Trace) (result, error) {
	var p RestPayload
	if err := cmd.Decode(&p); err != nil {
		return result{}, err
	}
	before := c.Resources
	c.Resources = resource.ApplyRest(c.Resources, p.Kind)
	for i := range c.Resources {
		if c.Resources[i].Used != before[i].Used {
			t.step(fmt.Sprintf("%s reset", c.Resources[i].Name))
		}
	}
	if p.Kind == resource.RestLong && c.CurrentHP > 0 && !c.Dead {
		hr := combat.Heal(c, c.MaxHP-c.CurrentHP)
		if hr.Healed > 0 {
			t.step(fmt.Sprintf("long rest: hp %d -> %d", c.CurrentHP, hr.Combatant.CurrentHP))
		}
		c = hr.Combatant
	}
	return result{combatant: c, summary: fmt.Sprintf("%s takes a %s rest", c.Name, p.Kind)}, nil
}
