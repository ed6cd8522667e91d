// Invention: agents combine what they carry and check the result against
// the recipe catalog. Matching is a pure lookup, so identical inventories
// always produce identical outcomes.
package agents

import (
	"fmt"
	"math"

	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/world"
)

// InventionOutcome is the result class of an attempt.
type InventionOutcome uint8

const (
	OutcomeNoMatch InventionOutcome = iota
	OutcomeKnownAlready
	OutcomeDiscovered
)

var outcomeNames = [...]string{"no_match", "known_already", "discovered"}

func (o InventionOutcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// InventionResult reports what an attempt did.
type InventionResult struct {
	Outcome   InventionOutcome
	Recipe    catalog.RecipeID
	Consumed  catalog.Bundle   // Inputs used by a match
	Lost      catalog.Bundle   // Penalty on no match
	Structure *world.Structure // Placed by a matched building recipe
}

// attemptSignature identifies an offer at a station for failure memory.
func attemptSignature(offered catalog.Bundle, station world.StructureKind) string {
	sig := offered.Signature()
	if station != world.StructureNone {
		sig += "@" + station.String()
	}
	return sig
}

// AttemptInvention matches offered against the catalog at the given
// station. A match on an unknown recipe is a discovery: the recipe is
// learned and crafted. A match on a known recipe is plain crafting. No
// match costs floor(count*penalty) of each offered item and the offer is
// remembered as a dead end.
//
// b places structures for building recipes; it may be nil when none of
// the reachable recipes places anything.
func AttemptInvention(a *Agent, offered catalog.Bundle, station world.StructureKind, b Builder, rules *Rules) (InventionResult, error) {
	if !a.Alive {
		return InventionResult{}, ErrDead
	}
	if len(offered.Kinds()) == 0 {
		return InventionResult{}, fmt.Errorf("%w: nothing offered", ErrInfeasibleAction)
	}
	if !a.Inventory.Has(offered) {
		return InventionResult{}, fmt.Errorf("%w: offer not held", ErrInsufficientResources)
	}

	qualifies := func(r catalog.Recipe) bool { return a.Skills.Qualified(rules.Catalog, r) }
	r, ok := rules.Catalog.Match(offered, station, qualifies)
	if !ok {
		lost := penalty(offered, rules.Tuning.Invention.PenaltyFraction)
		if err := a.Inventory.Consume(lost); err != nil {
			return InventionResult{}, err
		}
		a.Knowledge.MarkFailed(attemptSignature(offered, station))
		return InventionResult{Outcome: OutcomeNoMatch, Lost: lost}, nil
	}

	res := InventionResult{Outcome: OutcomeKnownAlready, Recipe: r.ID, Consumed: r.Inputs.Clone()}
	st, err := Craft(a, b, r)
	if err != nil {
		return InventionResult{}, err
	}
	res.Structure = st
	if a.Knowledge.LearnRecipe(r.ID) {
		res.Outcome = OutcomeDiscovered
	}
	return res, nil
}

// penalty is floor(count*fraction) of each offered kind. It never takes a
// whole stack while fraction < 1.
func penalty(offered catalog.Bundle, fraction float64) catalog.Bundle {
	lost := catalog.Bundle{}
	for _, id := range offered.Kinds() {
		n := int(math.Floor(float64(offered[id]) * fraction))
		if n >= offered[id] {
			n = offered[id] - 1
		}
		if n > 0 {
			lost[id] = n
		}
	}
	return lost
}

// Craft performs a recipe: inputs are consumed and the output added, or the
// structure placed beside the agent. Either everything happens or nothing.
func Craft(a *Agent, b Builder, r catalog.Recipe) (*world.Structure, error) {
	if !a.Inventory.Has(r.Inputs) {
		return nil, fmt.Errorf("%w: %s needs %s", ErrInsufficientResources, r.ID, r.Inputs)
	}
	var placed *world.Structure
	if kind := r.PlacesKind(); kind != world.StructureNone {
		if b == nil {
			return nil, fmt.Errorf("%w: nowhere to build %s", ErrInfeasibleAction, kind)
		}
		st, err := placeBeside(a, b, kind)
		if err != nil {
			return nil, err
		}
		placed = &st
	}
	if err := a.Inventory.Consume(r.Inputs); err != nil {
		return nil, err
	}
	if r.Output != "" {
		a.Inventory.Add(r.Output, r.Quantity)
	}
	return placed, nil
}

// placeBeside builds on the first free neighbor in direction order.
func placeBeside(a *Agent, b Builder, kind world.StructureKind) (world.Structure, error) {
	for _, c := range a.Position.Neighbors() {
		if !b.Walkable(c) {
			continue
		}
		st, err := b.PlaceStructure(kind, c, a.ID)
		if err == nil {
			return st, nil
		}
	}
	return world.Structure{}, fmt.Errorf("%w: no room to build %s", ErrInfeasibleAction, kind)
}

// NextInvention picks the next untried offer: every held unit of a subset of
// held kinds, largest subsets first, then in kind order. Offers that already
// failed at this station or that would only repeat a known recipe are
// skipped.
func NextInvention(a *Agent, station world.StructureKind, rules *Rules) (catalog.Bundle, bool) {
	kinds := a.Inventory.Kinds()
	maxSize := min(len(kinds), max(1, rules.Tuning.Invention.MaxCombo))
	qualifies := func(r catalog.Recipe) bool { return a.Skills.Qualified(rules.Catalog, r) }

	for size := maxSize; size >= 1; size-- {
		var found catalog.Bundle
		eachSubset(len(kinds), size, func(idx []int) bool {
			offer := catalog.Bundle{}
			for _, i := range idx {
				offer[kinds[i]] = a.Inventory.Count(kinds[i])
			}
			if a.Knowledge.HasFailed(attemptSignature(offer, station)) {
				return true
			}
			if r, ok := rules.Catalog.Match(offer, station, qualifies); ok && a.Knowledge.KnowsRecipe(r.ID) {
				return true
			}
			found = offer
			return false
		})
		if found != nil {
			return found, true
		}
	}
	return nil, false
}

// eachSubset calls fn with every size-k index subset of [0, n) in
// lexicographic order until fn returns false.
func eachSubset(n, k int, fn func([]int) bool) {
	if k <= 0 || k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if !fn(idx) {
			return
		}
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
