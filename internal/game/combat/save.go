package combat

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/tabletop/internal/game/dice"
)

// SaveResult holds the outcome of a saving throw.
type SaveResult struct {
	Rolls    []int
	Roll     int
	Mode     dice.Advantage
	Modifier int
	Total    int
	DC       int
	Success  bool
	// AutoFailed is set when a condition forced failure; no dice are drawn.
	AutoFailed bool
	Trace      string
}

// ResolveSave rolls a saving throw. A save succeeds iff roll + modifier >= dc.
// Natural 1 and 20 have no special meaning.
//
// Precondition: src must be non-nil.
// Postcondition: Success == (Total >= DC).
func ResolveSave(modifier, dc int, mode dice.Advantage, src dice.Source) SaveResult {
	d20 := dice.RollD20(mode, src)
	r := SaveResult{
		Rolls:    d20.Rolls,
		Roll:     d20.Kept,
		Mode:     mode,
		Modifier: modifier,
		Total:    d20.Kept + modifier,
		DC:       dc,
	}
	r.Success = r.Total >= dc

	var b strings.Builder
	fmt.Fprintf(&b, "save d20 %v", r.Rolls)
	if mode != dice.Normal {
		fmt.Fprintf(&b, " (%s) keep %d", mode, r.Roll)
	}
	fmt.Fprintf(&b, " %+d = %d vs DC %d: ", modifier, r.Total, dc)
	if r.Success {
		b.WriteString("success")
	} else {
		b.WriteString("failure")
	}
	r.Trace = b.String()
	return r
}

// ConditionRules reports how active conditions affect saving throws.
// ability is the lowercase abbreviation returned by Ability.String.
type ConditionRules interface {
	SaveSources(conditions []string, ability string) dice.Sources
	AutoFailsSave(conditions []string, ability string) bool
}

// SaveRequest asks a combatant to make one saving throw.
type SaveRequest struct {
	Ability Ability `json:"ability"`
	DC      int     `json:"dc"`
	// Sources are advantage and disadvantage sources from outside the
	// combatant's own conditions, such as a spell or racial trait.
	Sources dice.Sources `json:"sources"`
}

// ResolveSavingThrow resolves req for c, merging advantage and disadvantage
// from c's conditions with req.Sources. A condition that forces failure for the
// ability fails the save without rolling. rules may be nil.
//
// Precondition: src must be non-nil.
func ResolveSavingThrow(c Combatant, req SaveRequest, rules ConditionRules, src dice.Source) SaveResult {
	sources := req.Sources
	ability := req.Ability.String()
	mod := c.SaveModifier(req.Ability)
	if rules != nil {
		if rules.AutoFailsSave(c.Conditions, ability) {
			return SaveResult{
				Modifier:   mod,
				DC:         req.DC,
				AutoFailed: true,
				Trace:      fmt.Sprintf("%s save vs DC %d: automatic failure", ability, req.DC),
			}
		}
		sources = sources.Merge(rules.SaveSources(c.Conditions, ability))
	}
	r := ResolveSave(mod, req.DC, sources.Mode(), src)
	r.Trace = ability + " " + r.Trace
	return r
}

// ConcentrationResult is the outcome of a concentration check.
type ConcentrationResult struct {
	Save      SaveResult
	Combatant Combatant
	// Broken is true when the save failed and concentration ended.
	Broken       bool
	Consequences []Consequence
}

// ResolveConcentration rolls a constitution save against dc to maintain
// concentration. On failure the returned snapshot is no longer concentrating
// and a ConsequenceEndConcentration is reported; removing the dependent
// effects is the caller's job.
//
// Precondition: src must be non-nil.
// Postcondition: Broken == !Save.Success when c was concentrating.
func ResolveConcentration(c Combatant, dc int, mode dice.Advantage, src dice.Source) ConcentrationResult {
	out := c.Clone()
	save := ResolveSave(out.SaveModifier(Constitution), dc, mode, src)
	save.Trace = "concentration " + save.Trace
	res := ConcentrationResult{Save: save, Combatant: out}
	if save.Success {
		return res
	}
	if cleared, cons, ok := endConcentration(out, "failed concentration save"); ok {
		res.Combatant = cleared
		res.Broken = true
		res.Consequences = []Consequence{cons}
	}
	return res
}
