// Per-tick agent update and the action execution state machine:
// Idle → Planning → InProgress → Completed | Interrupted | Failed.
package agents

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/social"
	"github.com/talgya/homestead/internal/world"
)

// Update advances the agent by dt seconds: needs decay, skills rust,
// memories fade, then the current action is (re)planned if needed and
// advanced. Action failures are recorded on a.Action and never returned;
// only a dead or detached agent is an error.
func (a *Agent) Update(w World, strat Strategy, rules *Rules, dt float64) error {
	if !a.Alive {
		return ErrDead
	}
	if a.world == uuid.Nil || a.world != w.ID() {
		return ErrDetached
	}
	// Help requests count for this update only, busy or not.
	defer func() { a.heard = nil }()
	t := rules.Tuning

	d := DecayNeeds(a, dt, ModifierFor(w.Season()), t.Needs)
	a.contact = false
	if d.Died {
		w.Emit(Event{Kind: EventDied, Agent: a.ID, Detail: d.Cause.String()})
		return nil
	}
	a.Skills.Decay(dt, t.Skills.RustGrace, t.Skills.RustRate)
	a.Knowledge.Forget(a.Age, t.Knowledge.LocationHorizon)
	a.forgetUnreachable()
	a.Knowledge.DecayRelationships(t.Knowledge.RelationshipDecay, dt)
	a.watchOthers(w, rules, dt)

	if a.Action.State.Terminal() {
		a.Action = Action{}
	}
	if a.Action.State == StateIdle {
		intent, ok := strat.Choose(a, w)
		if !ok {
			return nil
		}
		a.plan(w, rules, intent)
	}
	a.advance(w, rules, dt)
	return nil
}

// Interrupt cancels the running action. Effects already applied stay
// applied; nothing is half done.
func (a *Agent) Interrupt(reason error) {
	if a.Action.State == StateIdle || a.Action.State.Terminal() {
		return
	}
	a.Action.State = StateInterrupted
	a.Action.Err = reason
	a.Action.Path = nil
}

func (a *Agent) fail(err error) {
	a.Action.State = StateFailed
	a.Action.Err = err
	a.Action.Path = nil
}

func (a *Agent) complete() {
	a.Action.State = StateCompleted
	a.Action.Path = nil
}

// plan resolves an intent into a route and a work duration.
func (a *Agent) plan(w World, rules *Rules, intent Intent) {
	a.Action = Action{Intent: intent, State: StatePlanning}
	a.Action.Duration = a.duration(rules, intent)
	if err := a.route(w); err != nil {
		a.fail(err)
		return
	}
	a.Action.State = StateInProgress
}

// route computes a path toward the target. The target hex itself may be
// unwalkable when the action only needs to get within reach of it.
func (a *Agent) route(w World) error {
	act := &a.Action
	act.Path = nil
	if a.arrived() {
		return nil
	}
	target := act.Intent.Target
	passable := func(c world.HexCoord) bool { return c == target || w.Walkable(c) }
	path, err := world.FindPath(a.Position, target, passable, world.DefaultPathLimit)
	if err != nil {
		a.markUnreachable(target)
		return fmt.Errorf("%w: to %s: %v", ErrPathUnreachable, target, err)
	}
	act.Path = path
	return nil
}

// duration is how long the work takes once at the target.
func (a *Agent) duration(rules *Rules, in Intent) float64 {
	t := rules.Tuning
	speedup := func(skill catalog.SkillID) float64 {
		return 1 + t.Skills.LevelSpeedup*float64(a.Skills.Level(skill))
	}
	switch in.Kind {
	case ActionEat:
		return t.Actions.Eat
	case ActionDrink:
		return t.Actions.Drink
	case ActionGather:
		skill, _ := rules.Catalog.GatherSkill(in.Resource)
		return t.Actions.Gather * float64(t.Actions.GatherBatch) / toolEfficiency(a, rules, skill) / speedup(skill)
	case ActionCraft:
		r, _ := rules.Catalog.Recipe(in.Recipe)
		return t.Actions.Craft / speedup(r.Skill)
	case ActionInvent:
		return t.Actions.Invent
	case ActionHelp:
		return t.Actions.Help
	case ActionTrade:
		return t.Actions.Trade
	case ActionSocialize:
		return t.Actions.Socialize
	case ActionTeach:
		return t.Actions.Teach
	}
	return 0
}

// toolEfficiency is the best efficiency of a held tool for skill, 1 if none.
func toolEfficiency(a *Agent, rules *Rules, skill catalog.SkillID) float64 {
	best := 1.0
	for _, id := range a.Inventory.Kinds() {
		it, ok := rules.Catalog.Item(id)
		if ok && it.Tool != nil && it.Tool.Skill == skill && it.Tool.Efficiency > best {
			best = it.Tool.Efficiency
		}
	}
	return best
}

// advance runs one tick of the in-progress action.
func (a *Agent) advance(w World, rules *Rules, dt float64) {
	act := &a.Action
	if act.State != StateInProgress {
		return
	}
	if err := a.checkFeasible(w, rules); err != nil {
		// Running out of materials cannot be waited out.
		if errors.Is(err, ErrInsufficientResources) {
			a.fail(err)
		} else {
			a.Interrupt(err)
		}
		return
	}
	if !a.arrived() {
		a.move(w, rules, dt)
		if act.State != StateInProgress || !a.arrived() {
			return
		}
	}
	a.work(w, rules, dt)
}

// move walks along the path, replanning around newly blocked hexes a
// bounded number of times.
func (a *Agent) move(w World, rules *Rules, dt float64) {
	act := &a.Action
	act.stride += rules.Tuning.Actions.MoveSpeed * dt
	for act.stride >= 1 && !a.arrived() {
		if len(act.Path) == 0 {
			if err := a.route(w); err != nil {
				a.fail(err)
				return
			}
			if len(act.Path) == 0 {
				break
			}
		}
		next := act.Path[0]
		if next != act.Intent.Target && !w.Walkable(next) {
			act.Replans++
			if act.Replans > rules.Tuning.Actions.MaxReplans {
				a.markUnreachable(act.Intent.Target)
				a.fail(fmt.Errorf("%w: blocked %d times", ErrPathUnreachable, act.Replans))
				return
			}
			if err := a.route(w); err != nil {
				a.fail(err)
				return
			}
			continue
		}
		if next == act.Intent.Target && !w.Walkable(next) {
			// Reach ends beside an unwalkable target; never step onto it.
			act.Path = nil
			break
		}
		a.Position = next
		act.Path = act.Path[1:]
		act.stride--
	}
	if a.arrived() {
		act.stride = 0
		act.Path = nil
	}
}

// checkFeasible re-validates the action each tick. Partner-bound actions
// follow their partner.
func (a *Agent) checkFeasible(w World, rules *Rules) error {
	act := &a.Action
	in := &act.Intent
	cat := rules.Catalog

	if in.Other != 0 {
		other, ok := w.Agent(in.Other)
		if !ok || !other.Alive {
			return fmt.Errorf("%w: partner #%d is gone", ErrInfeasibleAction, in.Other)
		}
		if other.Position != in.Target {
			in.Target = other.Position
			act.Path = nil
		}
	}

	switch in.Kind {
	case ActionEat:
		if a.Inventory.Count(in.Item) == 0 {
			return fmt.Errorf("%w: no %s left", ErrInsufficientResources, in.Item)
		}
	case ActionRest:
		if a.Needs.Hunger < restBreakLevel || a.Needs.Thirst < restBreakLevel {
			return fmt.Errorf("%w: too hungry or thirsty to rest", ErrInfeasibleAction)
		}
	case ActionGather:
		if n, ok := w.NodeAt(in.Target); !ok || n.ID != in.Node || n.Available() == 0 {
			if !a.retargetGather(w, rules) {
				return fmt.Errorf("%w: %s ran out", ErrInsufficientResources, in.Resource)
			}
		}
	case ActionCraft:
		r, ok := cat.Recipe(in.Recipe)
		if !ok || !a.Inventory.Has(r.Inputs) {
			return fmt.Errorf("%w: inputs for %s", ErrInsufficientResources, in.Recipe)
		}
	case ActionInvent:
		for _, id := range in.Inputs.Kinds() {
			if a.Inventory.Count(id) == 0 {
				return fmt.Errorf("%w: no %s left to offer", ErrInsufficientResources, id)
			}
		}
	case ActionTeach:
		student, _ := w.Agent(in.Other)
		if student.Knowledge.Relationship(a.ID) < rules.Tuning.Social.TeachMinRel {
			return fmt.Errorf("%w: %s no longer trusts the teacher", ErrInfeasibleAction, student)
		}
	case ActionHelp:
		if in.Item != "" && a.Inventory.Count(in.Item) == 0 {
			return fmt.Errorf("%w: no %s to give", ErrInsufficientResources, in.Item)
		}
	case ActionTrade:
		if a.Inventory.Count(in.Item) == 0 {
			return fmt.Errorf("%w: no %s to offer", ErrInsufficientResources, in.Item)
		}
	case ActionWander:
		if !w.Walkable(in.Target) {
			return fmt.Errorf("%w: wander target blocked", ErrInfeasibleAction)
		}
	}
	return nil
}

// retargetGather switches a gather action to the nearest other node of the
// same kind. Counts as a replan.
func (a *Agent) retargetGather(w World, rules *Rules) bool {
	act := &a.Action
	a.Knowledge.ForgetLocation(act.Intent.Resource, act.Intent.Target)
	if act.Replans >= rules.Tuning.Actions.MaxReplans {
		return false
	}
	node, ok := findNode(a, w, act.Intent.Resource, rules.Tuning.Decision.ViewRadius)
	if !ok {
		return false
	}
	act.Replans++
	act.Intent.Node = node.ID
	act.Intent.Target = node.Coord
	act.Progress = 0
	act.Path = nil
	return true
}

// work spends dt at the target and applies the terminal effect when done.
func (a *Agent) work(w World, rules *Rules, dt float64) {
	act := &a.Action
	switch act.Kind() {
	case ActionRest:
		a.rest(w, rules, dt)
		return
	case ActionSocialize:
		if other, ok := w.Agent(act.Intent.Other); ok {
			a.contact = true
			other.contact = true
		}
	case ActionTeach:
		a.teachStep(w, rules, dt)
		if act.State != StateInProgress {
			return
		}
	}

	act.Progress += dt
	if act.Progress < act.Duration {
		return
	}
	if err := a.finish(w, rules); err != nil {
		if !errors.Is(err, errRetargeted) {
			a.fail(err)
		}
		return
	}
	if act.State == StateInProgress {
		a.complete()
	}
}

// errRetargeted keeps a gather running after it moved to another node.
var errRetargeted = errors.New("retargeted")

func (a *Agent) rest(w World, rules *Rules, dt float64) {
	rate := rules.Tuning.Actions.RestRegen
	if _, ok := w.StructureNear(world.StructureShelter, a.Position, 1); ok {
		rate *= rules.Tuning.Actions.ShelterBonus
	}
	a.Needs.Energy = clamp01(a.Needs.Energy + rate*dt)
	a.Action.Progress += dt
	if a.Needs.Energy >= 0.95 {
		a.complete()
	}
}

// teachStep delivers this tick's share of the lesson so the full boost
// arrives exactly when the lesson ends.
func (a *Agent) teachStep(w World, rules *Rules, dt float64) {
	act := &a.Action
	boost := rules.Tuning.Social.TeachBoost
	student, _ := w.Agent(act.Intent.Other)

	var share float64
	if act.Duration <= 0 || act.Progress+dt >= act.Duration {
		share = boost - act.Granted
	} else {
		share = boost * dt / act.Duration
	}
	if share <= 0 {
		return
	}
	if err := ResolveTeach(a, student, act.Intent.Skill, share, rules); err != nil {
		a.Interrupt(err)
		return
	}
	act.Granted += share
}

// finish applies the terminal effect. A non-nil error fails the action,
// except errRetargeted which leaves it in progress.
func (a *Agent) finish(w World, rules *Rules) error {
	act := &a.Action
	in := act.Intent
	t := rules.Tuning
	tick := w.Tick()

	switch in.Kind {
	case ActionEat:
		it, _ := rules.Catalog.Item(in.Item)
		if err := a.Inventory.Remove(in.Item, 1); err != nil {
			return err
		}
		a.Needs.Hunger = clamp01(a.Needs.Hunger + it.Nutrition)

	case ActionDrink:
		if !w.WaterAdjacent(a.Position) {
			return fmt.Errorf("%w: no water here", ErrInfeasibleAction)
		}
		a.Needs.Thirst = clamp01(a.Needs.Thirst + t.Actions.DrinkAmount)
		if a.Knowledge.RememberLocation(world.ResourceWater, a.Position, a.Age) {
			w.Broadcast(social.Signal{Kind: social.SignalFoundWater, Sender: uint64(a.ID), Origin: a.Position, Coord: a.Position})
		}

	case ActionGather:
		return a.harvest(w, rules)

	case ActionCraft:
		r, _ := rules.Catalog.Recipe(in.Recipe)
		if !a.Skills.Qualified(rules.Catalog, r) {
			return fmt.Errorf("%w: not skilled enough for %s", ErrInfeasibleAction, r.ID)
		}
		if st := r.StationKind(); st != world.StructureNone {
			if _, ok := w.StructureNear(st, a.Position, 1); !ok {
				return fmt.Errorf("%w: %s needs a %s", ErrInfeasibleAction, r.ID, st)
			}
		}
		placed, err := Craft(a, w, r)
		if err != nil {
			return err
		}
		a.Skills.Grant(r.Skill, t.Skills.CraftXP*a.Personality.LearningRate())
		a.emitCrafted(w, r, placed, false)

	case ActionInvent:
		offer := catalog.Bundle{}
		for _, id := range in.Inputs.Kinds() {
			offer[id] = a.Inventory.Count(id)
		}
		station := world.StructureNone
		if in.Station != world.StructureNone {
			if _, ok := w.StructureNear(in.Station, a.Position, 1); ok {
				station = in.Station
			}
		}
		res, err := AttemptInvention(a, offer, station, w, rules)
		if err != nil {
			return err
		}
		switch res.Outcome {
		case OutcomeDiscovered:
			r, _ := rules.Catalog.Recipe(res.Recipe)
			a.Skills.Grant(r.Skill, t.Skills.InventXP*a.Personality.LearningRate())
			w.Emit(Event{Kind: EventDiscovered, Agent: a.ID, Detail: fmt.Sprintf("%s discovered %s", a.Name, r.ID)})
			AddMemory(a, tick, fmt.Sprintf("Discovered how to make %s", r.ID), 0.9)
			a.emitCrafted(w, r, res.Structure, true)
		case OutcomeKnownAlready:
			r, _ := rules.Catalog.Recipe(res.Recipe)
			a.Skills.Grant(r.Skill, t.Skills.CraftXP*a.Personality.LearningRate())
			a.emitCrafted(w, r, res.Structure, false)
		default:
			w.Emit(Event{Kind: EventInventionFailed, Agent: a.ID,
				Detail: fmt.Sprintf("%s tried combining %s and lost %s", a.Name, offer, res.Lost)})
		}

	case ActionSocialize:
		other, _ := w.Agent(in.Other)
		d := t.Social.SocializeDelta
		a.Knowledge.AdjustRelationship(other.ID, d)
		other.Knowledge.AdjustRelationship(a.ID, d)
		a.Needs.Social = clamp01(a.Needs.Social + t.Social.SocializeBoost)
		other.Needs.Social = clamp01(other.Needs.Social + t.Social.SocializeBoost)
		w.Emit(Event{Kind: EventSocialized, Agent: a.ID, Other: other.ID,
			Detail: fmt.Sprintf("%s spent time with %s", a.Name, other.Name)})

	case ActionTeach:
		student, _ := w.Agent(in.Other)
		student.Knowledge.AdjustRelationship(a.ID, t.Social.TeachDelta)
		AddMemory(student, tick, fmt.Sprintf("Learned %s from %s", in.Skill, a.Name), 0.6)
		w.Emit(Event{Kind: EventTaught, Agent: a.ID, Other: student.ID,
			Detail: fmt.Sprintf("%s taught %s %s", a.Name, student.Name, in.Skill)})

	case ActionHelp:
		target, _ := w.Agent(in.Other)
		var err error
		if in.Item != "" {
			err = ResolveHelp(a, target, in.Item, rules)
		} else {
			err = ResolveWaterHelp(a, target, in.Location, rules)
		}
		if err != nil {
			return err
		}
		AddMemory(target, tick, fmt.Sprintf("%s helped me in need", a.Name), 0.7)
		w.Emit(Event{Kind: EventHelped, Agent: a.ID, Other: target.ID,
			Detail: fmt.Sprintf("%s helped %s", a.Name, target.Name)})

	case ActionTrade:
		partner, _ := w.Agent(in.Other)
		offer := catalog.Bundle{in.Item: 1}
		request := catalog.Bundle{in.Want: 1}
		if !TradeAccepted(a, partner, request, rules) {
			return fmt.Errorf("%w: %s declined the trade", ErrInfeasibleAction, partner)
		}
		if err := ResolveTrade(a, partner, offer, request, rules); err != nil {
			return err
		}
		w.Emit(Event{Kind: EventTraded, Agent: a.ID, Other: partner.ID,
			Detail: fmt.Sprintf("%s traded %s for %s with %s", a.Name, in.Item, in.Want, partner.Name)})

	case ActionSignal:
		n := w.Broadcast(social.Signal{Kind: in.Signal, Sender: uint64(a.ID), Origin: a.Position, Coord: a.Position})
		a.lastSignal = a.Age
		w.Emit(Event{Kind: EventSignaled, Agent: a.ID,
			Detail: fmt.Sprintf("%s called for help (%s), %d heard", a.Name, in.Signal, n)})
	}
	return nil
}

// harvest takes a batch from the target node. Losing a race for the last
// units retargets to another node or fails.
func (a *Agent) harvest(w World, rules *Rules) error {
	act := &a.Action
	in := act.Intent
	t := rules.Tuning

	room := t.Actions.InventoryLimit - a.Inventory.Total()
	if room <= 0 {
		return fmt.Errorf("%w: inventory full", ErrInfeasibleAction)
	}
	got := w.Harvest(in.Node, min(t.Actions.GatherBatch, room))
	if got == 0 {
		if a.retargetGather(w, rules) {
			if err := a.route(w); err != nil {
				return err
			}
			return errRetargeted
		}
		return fmt.Errorf("%w: %s at %s is exhausted", ErrInsufficientResources, in.Resource, in.Target)
	}

	item, _ := rules.Catalog.RawItem(in.Resource)
	a.Inventory.Add(item, got)
	if skill, ok := rules.Catalog.GatherSkill(in.Resource); ok {
		a.Skills.Grant(skill, t.Skills.GatherXP*float64(got)*a.Personality.LearningRate())
	}

	if n, ok := w.NodeAt(in.Target); ok && n.Available() > 0 {
		if a.Knowledge.RememberLocation(in.Resource, in.Target, a.Age) && in.Resource == world.ResourceFood {
			w.Broadcast(social.Signal{Kind: social.SignalFoundFood, Sender: uint64(a.ID), Origin: a.Position, Coord: in.Target})
		}
	} else {
		a.Knowledge.ForgetLocation(in.Resource, in.Target)
	}
	return nil
}

func (a *Agent) emitCrafted(w World, r catalog.Recipe, placed *world.Structure, invented bool) {
	verb := "crafted"
	if invented {
		verb = "made their first"
	}
	if placed != nil {
		w.Emit(Event{Kind: EventBuilt, Agent: a.ID,
			Detail: fmt.Sprintf("%s built a %s at %s", a.Name, placed.Kind, placed.Coord)})
		return
	}
	w.Emit(Event{Kind: EventCrafted, Agent: a.ID, Detail: fmt.Sprintf("%s %s %s", a.Name, verb, r.Output)})
}

// watchOthers grants passive experience for watching a more skilled agent
// work nearby. Each skill is learned from at most one agent per tick.
func (a *Agent) watchOthers(w WorldView, rules *Rules, dt float64) {
	t := rules.Tuning.Skills
	if t.PassiveRate <= 0 {
		return
	}
	seen := map[catalog.SkillID]bool{}
	for _, other := range w.AgentsWithin(a.Position, t.PassiveRadius) {
		if other.ID == a.ID {
			continue
		}
		skill, ok := other.working(rules)
		if !ok || seen[skill] {
			continue
		}
		if other.Skills.Level(skill) > a.Skills.Level(skill) && a.Skills.Unlocked(rules.Catalog, skill) {
			a.Skills.Grant(skill, t.PassiveRate*dt)
			seen[skill] = true
		}
	}
}

// unreachableFor is how long, in simulated seconds, a hex the agent failed
// to route to stays out of its decisions.
const unreachableFor = 300.0

func (a *Agent) markUnreachable(c world.HexCoord) {
	if a.unreachable == nil {
		a.unreachable = make(map[world.HexCoord]float64)
	}
	a.unreachable[c] = a.Age
}

// Unreachable reports whether routing to c failed recently.
func (a *Agent) Unreachable(c world.HexCoord) bool {
	at, ok := a.unreachable[c]
	return ok && a.Age-at < unreachableFor
}

func (a *Agent) forgetUnreachable() {
	for c, at := range a.unreachable {
		if a.Age-at >= unreachableFor {
			delete(a.unreachable, c)
		}
	}
}

// IsRecoverable reports whether an action error is one the agent simply
// replans around.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInfeasibleAction) ||
		errors.Is(err, ErrPathUnreachable) ||
		errors.Is(err, ErrInsufficientResources)
}
