package resource

import (
	"fmt"
	"strconv"
	"strings"
)

// ResourceGrant defines a pool a class gains at MinLevel. MaxFormula is
// evaluated against Vars when the pool is materialized.
type ResourceGrant struct {
	Key        string
	Name       string
	MinLevel   int
	MaxFormula string
	Recharge   Recharge
	Unlimited  bool
}

// classGrants lists every definition per class. A key may appear more than
// once; the definition with the highest MinLevel reached wins.
var classGrants = map[Class][]ResourceGrant{
	Barbarian: {
		{Key: "rage", Name: "Rage", MinLevel: 1, MaxFormula: "2", Recharge: RechargeLongRest},
		{Key: "rage", Name: "Rage", MinLevel: 3, MaxFormula: "3", Recharge: RechargeLongRest},
		{Key: "rage", Name: "Rage", MinLevel: 6, MaxFormula: "4", Recharge: RechargeLongRest},
		{Key: "rage", Name: "Rage", MinLevel: 12, MaxFormula: "5", Recharge: RechargeLongRest},
		{Key: "rage", Name: "Rage", MinLevel: 17, MaxFormula: "6", Recharge: RechargeLongRest},
		{Key: "rage", Name: "Rage", MinLevel: 20, MaxFormula: "0", Recharge: RechargeNever, Unlimited: true},
	},
	Bard: {
		{Key: "bardic_inspiration", Name: "Bardic Inspiration", MinLevel: 1, MaxFormula: "max(1, cha_mod)", Recharge: RechargeLongRest},
		{Key: "bardic_inspiration", Name: "Bardic Inspiration", MinLevel: 5, MaxFormula: "max(1, cha_mod)", Recharge: RechargeShortRest},
	},
	Cleric: {
		{Key: "channel_divinity", Name: "Channel Divinity", MinLevel: 2, MaxFormula: "1", Recharge: RechargeShortRest},
		{Key: "channel_divinity", Name: "Channel Divinity", MinLevel: 6, MaxFormula: "2", Recharge: RechargeShortRest},
		{Key: "channel_divinity", Name: "Channel Divinity", MinLevel: 18, MaxFormula: "3", Recharge: RechargeShortRest},
	},
	Druid: {
		{Key: "wild_shape", Name: "Wild Shape", MinLevel: 2, MaxFormula: "2", Recharge: RechargeShortRest},
		{Key: "wild_shape", Name: "Wild Shape", MinLevel: 20, MaxFormula: "0", Recharge: RechargeNever, Unlimited: true},
	},
	Fighter: {
		{Key: "second_wind", Name: "Second Wind", MinLevel: 1, MaxFormula: "1", Recharge: RechargeShortRest},
		{Key: "action_surge", Name: "Action Surge", MinLevel: 2, MaxFormula: "1", Recharge: RechargeShortRest},
		{Key: "action_surge", Name: "Action Surge", MinLevel: 17, MaxFormula: "2", Recharge: RechargeShortRest},
		{Key: "indomitable", Name: "Indomitable", MinLevel: 9, MaxFormula: "1", Recharge: RechargeLongRest},
		{Key: "indomitable", Name: "Indomitable", MinLevel: 13, MaxFormula: "2", Recharge: RechargeLongRest},
		{Key: "indomitable", Name: "Indomitable", MinLevel: 17, MaxFormula: "3", Recharge: RechargeLongRest},
	},
	Monk: {
		{Key: "ki", Name: "Ki", MinLevel: 2, MaxFormula: "level", Recharge: RechargeShortRest},
	},
	Paladin: {
		{Key: "lay_on_hands", Name: "Lay on Hands", MinLevel: 1, MaxFormula: "5 * level", Recharge: RechargeLongRest},
		{Key: "divine_sense", Name: "Divine Sense", MinLevel: 1, MaxFormula: "1 + cha_mod", Recharge: RechargeLongRest},
		{Key: "channel_divinity", Name: "Channel Divinity", MinLevel: 3, MaxFormula: "1", Recharge: RechargeShortRest},
	},
	Rogue: {
		{Key: "stroke_of_luck", Name: "Stroke of Luck", MinLevel: 20, MaxFormula: "1", Recharge: RechargeShortRest},
	},
	Sorcerer: {
		{Key: "sorcery_points", Name: "Sorcery Points", MinLevel: 2, MaxFormula: "level", Recharge: RechargeLongRest},
	},
	Warlock: {
		{Key: "mystic_arcanum_6", Name: "Mystic Arcanum (6th level)", MinLevel: 11, MaxFormula: "1", Recharge: RechargeLongRest},
		{Key: "mystic_arcanum_7", Name: "Mystic Arcanum (7th level)", MinLevel: 13, MaxFormula: "1", Recharge: RechargeLongRest},
		{Key: "mystic_arcanum_8", Name: "Mystic Arcanum (8th level)", MinLevel: 15, MaxFormula: "1", Recharge: RechargeLongRest},
		{Key: "mystic_arcanum_9", Name: "Mystic Arcanum (9th level)", MinLevel: 17, MaxFormula: "1", Recharge: RechargeLongRest},
	},
	Wizard: {
		{Key: "arcane_recovery", Name: "Arcane Recovery", MinLevel: 1, MaxFormula: "1", Recharge: RechargeLongRest},
	},
}

// GrantResources returns the resource definitions class has at level. For
// each key only the definition with the highest MinLevel <= level is kept, so
// upgrades replace earlier grants rather than adding to them.
//
// Postcondition: every returned grant has a distinct Key and MinLevel <= level.
func GrantResources(class Class, level int) []ResourceGrant {
	var out []ResourceGrant
	index := map[string]int{}
	for _, g := range classGrants[class] {
		if g.MinLevel > level {
			continue
		}
		if i, ok := index[g.Key]; ok {
			if g.MinLevel > out[i].MinLevel {
				out[i] = g
			}
			continue
		}
		index[g.Key] = len(out)
		out = append(out, g)
	}
	return out
}

// Vars are the named integers a max formula may reference: level,
// total_level, proficiency and the six ability modifiers str_mod..cha_mod.
type Vars map[string]int

// With returns a copy of v with name set to value.
func (v Vars) With(name string, value int) Vars {
	out := make(Vars, len(v)+1)
	for k, x := range v {
		out[k] = x
	}
	out[name] = value
	return out
}

// FormulaEvaluator evaluates a max formula against vars.
type FormulaEvaluator interface {
	Evaluate(formula string, vars Vars) (int, error)
}

// Materialize evaluates each grant's max formula and returns fresh, unused
// pools. Negative results are clamped to 0. When eval is nil only integer
// literal formulas are accepted.
func Materialize(grants []ResourceGrant, eval FormulaEvaluator, vars Vars) ([]Pool, error) {
	pools := make([]Pool, 0, len(grants))
	for _, g := range grants {
		n, err := evaluate(g.MaxFormula, eval, vars)
		if err != nil {
			return nil, fmt.Errorf("materializing %s: %w", g.Key, err)
		}
		pools = append(pools, Pool{
			Key:       g.Key,
			Name:      g.Name,
			Max:       max(n, 0),
			Recharge:  g.Recharge,
			Unlimited: g.Unlimited,
		})
	}
	return pools, nil
}

func evaluate(formula string, eval FormulaEvaluator, vars Vars) (int, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(formula)); err == nil {
		return n, nil
	}
	if eval == nil {
		return 0, fmt.Errorf("formula %q requires an evaluator", formula)
	}
	return eval.Evaluate(formula, vars)
}

// ClassPools materializes the class feature pools of every class in classes
// followed by their spell and pact slot pools. vars supplies the ability
// modifiers and proficiency; level and total_level are set per class. When two
// classes grant the same key the larger pool is kept.
func ClassPools(classes []ClassLevel, eval FormulaEvaluator, vars Vars) ([]Pool, error) {
	var pools []Pool
	total := TotalLevel(classes)
	for _, cl := range classes {
		v := vars.With("level", cl.Level).With("total_level", total)
		got, err := Materialize(GrantResources(cl.Class, cl.Level), eval, v)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", cl.Class, cl.Level, err)
		}
		for _, p := range got {
			if i := Find(pools, p.Key); i >= 0 {
				if p.Unlimited || p.Max > pools[i].Max {
					pools[i] = p
				}
				continue
			}
			pools = append(pools, p)
		}
	}
	return append(pools, SlotPools(classes)...), nil
}
