package resource

import "fmt"

// SlotRow holds the number of spell slots per spell level; index 0 is 1st level.
type SlotRow [9]int

// PactSlotRow is the warlock pact magic allotment: Count slots, all of SlotLevel.
type PactSlotRow struct {
	Count     int
	SlotLevel int
}

// fullCasterSlots is indexed by caster level 1-20. It also serves as the
// multiclass spellcaster table.
var fullCasterSlots = [21]SlotRow{
	1:  {2},
	2:  {3},
	3:  {4, 2},
	4:  {4, 3},
	5:  {4, 3, 2},
	6:  {4, 3, 3},
	7:  {4, 3, 3, 1},
	8:  {4, 3, 3, 2},
	9:  {4, 3, 3, 3, 1},
	10: {4, 3, 3, 3, 2},
	11: {4, 3, 3, 3, 2, 1},
	12: {4, 3, 3, 3, 2, 1},
	13: {4, 3, 3, 3, 2, 1, 1},
	14: {4, 3, 3, 3, 2, 1, 1},
	15: {4, 3, 3, 3, 2, 1, 1, 1},
	16: {4, 3, 3, 3, 2, 1, 1, 1},
	17: {4, 3, 3, 3, 2, 1, 1, 1, 1},
	18: {4, 3, 3, 3, 3, 1, 1, 1, 1},
	19: {4, 3, 3, 3, 3, 2, 1, 1, 1},
	20: {4, 3, 3, 3, 3, 2, 2, 1, 1},
}

var halfCasterSlots = [21]SlotRow{
	2:  {2},
	3:  {3},
	4:  {3},
	5:  {4, 2},
	6:  {4, 2},
	7:  {4, 3},
	8:  {4, 3},
	9:  {4, 3, 2},
	10: {4, 3, 2},
	11: {4, 3, 3},
	12: {4, 3, 3},
	13: {4, 3, 3, 1},
	14: {4, 3, 3, 1},
	15: {4, 3, 3, 2},
	16: {4, 3, 3, 2},
	17: {4, 3, 3, 3, 1},
	18: {4, 3, 3, 3, 1},
	19: {4, 3, 3, 3, 2},
	20: {4, 3, 3, 3, 2},
}

var thirdCasterSlots = [21]SlotRow{
	3:  {2},
	4:  {3},
	5:  {3},
	6:  {3},
	7:  {4, 2},
	8:  {4, 2},
	9:  {4, 2},
	10: {4, 3},
	11: {4, 3},
	12: {4, 3},
	13: {4, 3, 2},
	14: {4, 3, 2},
	15: {4, 3, 2},
	16: {4, 3, 3},
	17: {4, 3, 3},
	18: {4, 3, 3},
	19: {4, 3, 3, 1},
	20: {4, 3, 3, 1},
}

var pactSlots = [21]PactSlotRow{
	1: {1, 1}, 2: {2, 1},
	3: {2, 2}, 4: {2, 2},
	5: {2, 3}, 6: {2, 3},
	7: {2, 4}, 8: {2, 4},
	9: {2, 5}, 10: {2, 5},
	11: {3, 5}, 12: {3, 5}, 13: {3, 5}, 14: {3, 5}, 15: {3, 5}, 16: {3, 5},
	17: {4, 5}, 18: {4, 5}, 19: {4, 5}, 20: {4, 5},
}

func levelIndex(level int) int { return max(0, min(level, 20)) }

// EffectiveCasterLevel computes the multiclass caster level: full casters
// count every level, half casters floor(level/2) from level 2, third casters
// floor(level/3) from level 3. Pact magic never contributes.
//
// Postcondition: Returns a value in [0, 20] for legal class levels.
func EffectiveCasterLevel(classes []ClassLevel) int {
	ecl := 0
	for _, cl := range classes {
		switch cl.CasterType() {
		case CasterFull:
			ecl += max(cl.Level, 0)
		case CasterHalf:
			if cl.Level >= 2 {
				ecl += cl.Level / 2
			}
		case CasterThird:
			if cl.Level >= 3 {
				ecl += cl.Level / 3
			}
		}
	}
	return ecl
}

// MulticlassSlots returns the shared slot row for an effective caster level.
// Levels above 20 use the level 20 row.
func MulticlassSlots(ecl int) SlotRow {
	return fullCasterSlots[levelIndex(ecl)]
}

// SpellSlots returns the shared spell slots for classes. With a single
// spellcasting class that class's own progression applies; with more than
// one the multiclass table is read at the effective caster level.
func SpellSlots(classes []ClassLevel) SlotRow {
	var casters []ClassLevel
	for _, cl := range classes {
		switch cl.CasterType() {
		case CasterFull, CasterHalf, CasterThird:
			casters = append(casters, cl)
		}
	}
	switch len(casters) {
	case 0:
		return SlotRow{}
	case 1:
		cl := casters[0]
		i := levelIndex(cl.Level)
		switch cl.CasterType() {
		case CasterFull:
			return fullCasterSlots[i]
		case CasterHalf:
			return halfCasterSlots[i]
		default:
			return thirdCasterSlots[i]
		}
	default:
		return MulticlassSlots(EffectiveCasterLevel(casters))
	}
}

// PactSlots returns the pact magic row for a warlock level.
func PactSlots(warlockLevel int) PactSlotRow {
	return pactSlots[levelIndex(warlockLevel)]
}

// SlotPoolKey returns the pool key for spell slots of the given spell level.
func SlotPoolKey(spellLevel int) string {
	return fmt.Sprintf("spell_slot_%d", spellLevel)
}

// PactSlotKey is the pool key of warlock pact slots.
const PactSlotKey = "pact_slot"

// SlotPools turns the spell and pact slots of classes into pools. Spell
// slots recharge on a long rest and pact slots on a short rest.
func SlotPools(classes []ClassLevel) []Pool {
	var pools []Pool
	for i, n := range SpellSlots(classes) {
		if n == 0 {
			continue
		}
		pools = append(pools, Pool{
			Key:      SlotPoolKey(i + 1),
			Name:     fmt.Sprintf("Level %d spell slots", i+1),
			Max:      n,
			Recharge: RechargeLongRest,
		})
	}
	warlock := 0
	for _, cl := range classes {
		if cl.CasterType() == CasterPact {
			warlock += max(cl.Level, 0)
		}
	}
	if pact := PactSlots(warlock); pact.Count > 0 {
		pools = append(pools, Pool{
			Key:      PactSlotKey,
			Name:     fmt.Sprintf("Pact slots (level %d)", pact.SlotLevel),
			Max:      pact.Count,
			Recharge: RechargeShortRest,
		})
	}
	return pools
}
