// Social interaction resolver: perceiving signals and the paired updates of
// teaching, helping and trading. Each resolver mutates both parties within
// the acting agent's turn.
package agents

import (
	"fmt"

	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/social"
	"github.com/talgya/homestead/internal/world"
)

// heardSignal is a help request the agent perceived. It lasts until the
// end of the agent's next update.
type heardSignal struct {
	From AgentID
	Kind social.SignalKind
	At   world.HexCoord
}

// ProcessSignals applies the signals visible to an agent this tick. Found
// signals teach the location and warm the agent to the sender; help
// requests are remembered for the next update only. Returns how many
// new locations were learned.
func ProcessSignals(a *Agent, signals []social.Signal, rules *Rules) int {
	if !a.Alive {
		return 0
	}
	learned := 0
	a.heard = a.heard[:0]
	for _, sig := range signals {
		from := AgentID(sig.Sender)
		switch sig.Kind {
		case social.SignalFoundFood:
			if a.Knowledge.RememberLocation(world.ResourceFood, sig.Coord, a.Age) {
				learned++
			}
			a.Knowledge.AdjustRelationship(from, rules.Tuning.Social.FoundDelta)
		case social.SignalFoundWater:
			if a.Knowledge.RememberLocation(world.ResourceWater, sig.Coord, a.Age) {
				learned++
			}
			a.Knowledge.AdjustRelationship(from, rules.Tuning.Social.FoundDelta)
		case social.SignalHelpFood, social.SignalHelpWater:
			a.heard = append(a.heard, heardSignal{From: from, Kind: sig.Kind, At: sig.Origin})
		}
	}
	return learned
}

// ResolveTeach delivers amount XP of skill from teacher to student. The
// student must hold the teacher in at least the minimum regard and be
// within interaction range, and the teacher must not have fallen behind.
// The level advantage needed to start a lesson is checked when choosing
// to teach, so a student catching up mid-lesson still finishes it.
func ResolveTeach(teacher, student *Agent, skill catalog.SkillID, amount float64, rules *Rules) error {
	t := rules.Tuning.Social
	if !teacher.Alive || !student.Alive {
		return ErrDead
	}
	if student.Knowledge.Relationship(teacher.ID) < t.TeachMinRel {
		return fmt.Errorf("%w: %s does not trust %s", ErrInfeasibleAction, student, teacher)
	}
	if world.Distance(teacher.Position, student.Position) > t.InteractionRadius {
		return fmt.Errorf("%w: %s is out of reach", ErrInfeasibleAction, student)
	}
	if lvl := teacher.Skills.Level(skill); lvl < 1 || lvl < student.Skills.Level(skill) {
		return fmt.Errorf("%w: nothing to teach in %s", ErrInfeasibleAction, skill)
	}
	if !student.Skills.Unlocked(rules.Catalog, skill) {
		return fmt.Errorf("%w: %s is locked for %s", ErrInfeasibleAction, skill, student)
	}
	student.Skills.Grant(skill, amount)
	return nil
}

// ResolveHelp gives one unit of item from helper to target. The target's
// opinion of the helper improves.
func ResolveHelp(helper, target *Agent, item catalog.ItemID, rules *Rules) error {
	if !helper.Alive || !target.Alive {
		return ErrDead
	}
	if err := helper.Inventory.Remove(item, 1); err != nil {
		return err
	}
	target.Inventory.Add(item, 1)
	target.Knowledge.AdjustRelationship(helper.ID, rules.Tuning.Social.HelpDelta)
	return nil
}

// ResolveWaterHelp shows target where helper drinks.
func ResolveWaterHelp(helper, target *Agent, at world.HexCoord, rules *Rules) error {
	if !helper.Alive || !target.Alive {
		return ErrDead
	}
	target.Knowledge.RememberLocation(world.ResourceWater, at, target.Age)
	target.Knowledge.AdjustRelationship(helper.ID, rules.Tuning.Social.HelpDelta)
	return nil
}

// TradeAccepted reports whether responder agrees to give request for
// offer: it must think well enough of the proposer and keep its reserve.
func TradeAccepted(proposer, responder *Agent, request catalog.Bundle, rules *Rules) bool {
	t := rules.Tuning.Social
	if responder.Knowledge.Relationship(proposer.ID) < t.TradeMinRel {
		return false
	}
	for id, n := range request {
		if responder.Inventory.Count(id)-n < t.TradeSurplus {
			return false
		}
	}
	return true
}

// ResolveTrade swaps offer from proposer for request from responder. Either
// both transfers happen or neither does.
func ResolveTrade(proposer, responder *Agent, offer, request catalog.Bundle, rules *Rules) error {
	if !proposer.Alive || !responder.Alive {
		return ErrDead
	}
	if proposer.ID == responder.ID {
		return fmt.Errorf("%w: cannot trade with self", ErrInfeasibleAction)
	}
	if !proposer.Inventory.Has(offer) {
		return fmt.Errorf("%w: %s cannot cover %s", ErrInsufficientResources, proposer, offer)
	}
	if !responder.Inventory.Has(request) {
		return fmt.Errorf("%w: %s cannot cover %s", ErrInsufficientResources, responder, request)
	}

	// Both sides verified; the transfers below cannot fail.
	_ = proposer.Inventory.Consume(offer)
	_ = responder.Inventory.Consume(request)
	for _, id := range offer.Kinds() {
		responder.Inventory.Add(id, offer[id])
	}
	for _, id := range request.Kinds() {
		proposer.Inventory.Add(id, request[id])
	}

	d := rules.Tuning.Social.TradeDelta
	proposer.Knowledge.AdjustRelationship(responder.ID, d)
	responder.Knowledge.AdjustRelationship(proposer.ID, d)
	return nil
}
