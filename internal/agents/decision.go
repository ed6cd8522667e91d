// Utility decision engine: scores every action kind against the agent's
// needs, inventory, skills and surroundings and picks the best feasible one.
package agents

import (
	"fmt"
	"sort"

	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/entropy"
	"github.com/talgya/homestead/internal/social"
	"github.com/talgya/homestead/internal/world"
)

// Strategy turns agent state and a world view into an intent. Any decision
// procedure satisfying it can drive the action state machine.
type Strategy interface {
	Choose(a *Agent, v WorldView) (Intent, bool)
}

// Candidate is one scored option.
type Candidate struct {
	Intent   Intent
	Score    float64 // Raw utility in [0, 1], ignoring feasibility
	Feasible bool
	Reason   error // Why the candidate is infeasible
}

// UtilityStrategy is the default Strategy.
type UtilityStrategy struct {
	Rules *Rules
	Rand  entropy.Source // Only consulted for wander targets

	// Weights overrides the tuning weights per action name.
	Weights map[string]float64
}

// NewUtilityStrategy creates a utility strategy.
func NewUtilityStrategy(rules *Rules, rng entropy.Source) *UtilityStrategy {
	return &UtilityStrategy{Rules: rules, Rand: rng}
}

// Choose returns the highest-scoring feasible candidate. Ties go to the
// kind declared first. Candidates other than wandering must reach the
// utility threshold. Returns false when nothing is feasible.
func (s *UtilityStrategy) Choose(a *Agent, v WorldView) (Intent, bool) {
	if !a.Alive {
		return Intent{}, false
	}
	threshold := s.Rules.Tuning.Decision.Threshold

	best := -1
	cands := s.Evaluate(a, v)
	for i, c := range cands {
		if !c.Feasible {
			continue
		}
		if c.Intent.Kind != ActionWander && c.Score < threshold {
			continue
		}
		if best < 0 || c.Score > cands[best].Score {
			best = i
		}
	}
	if best < 0 {
		return Intent{}, false
	}

	intent := cands[best].Intent
	intent.Utility = cands[best].Score
	if intent.Kind == ActionWander {
		intent.Target = s.wanderTarget(a, v)
	}
	return intent, true
}

// Evaluate scores every candidate in priority order without mutating anything.
func (s *UtilityStrategy) Evaluate(a *Agent, v WorldView) []Candidate {
	out := []Candidate{
		s.drink(a, v),
		s.eat(a),
		s.rest(a, v),
		s.signal(a, v),
		s.help(a, v),
	}
	for _, kind := range []world.ResourceKind{world.ResourceFood, world.ResourceWood, world.ResourceStone} {
		out = append(out, s.gather(a, v, kind))
	}
	out = append(out,
		s.craft(a, v),
		s.teach(a, v),
		s.trade(a, v),
		s.socialize(a, v),
		s.invent(a, v),
		s.wander(a, v),
	)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Intent.Kind < out[j].Intent.Kind })
	return out
}

func (s *UtilityStrategy) weight(name string) float64 {
	if w, ok := s.Weights[name]; ok {
		return w
	}
	return s.Rules.Tuning.Decision.Weight(name)
}

func (s *UtilityStrategy) score(name string, base float64) float64 {
	return clamp01(s.weight(name) * clamp01(base))
}

func infeasible(c Candidate, format string, args ...any) Candidate {
	c.Feasible = false
	c.Reason = fmt.Errorf("%w: "+format, append([]any{ErrInfeasibleAction}, args...)...)
	return c
}

// ---------------------------------------------------------------------------
// Survival
// ---------------------------------------------------------------------------

func (s *UtilityStrategy) drink(a *Agent, v WorldView) Candidate {
	c := Candidate{Intent: Intent{Kind: ActionDrink}, Score: s.score("drink", 1-a.Needs.Thirst)}
	target, ok := waterTarget(a, v, s.Rules.Tuning.Decision.ViewRadius)
	if !ok {
		return infeasible(c, "no water known")
	}
	c.Intent.Target = target
	c.Feasible = true
	return c
}

func (s *UtilityStrategy) eat(a *Agent) Candidate {
	c := Candidate{Intent: Intent{Kind: ActionEat, Target: a.Position}, Score: s.score("eat", 1-a.Needs.Hunger)}
	item, ok := bestEdible(a, s.Rules.Catalog)
	if !ok {
		return infeasible(c, "nothing to eat")
	}
	c.Intent.Item = item
	c.Feasible = true
	return c
}

func (s *UtilityStrategy) rest(a *Agent, v WorldView) Candidate {
	tired := 1 - a.Needs.Energy
	c := Candidate{Intent: Intent{Kind: ActionRest, Target: a.Position}, Score: s.score("rest", tired*tired)}
	if a.Needs.Hunger < restBreakLevel || a.Needs.Thirst < restBreakLevel {
		return infeasible(c, "too hungry or thirsty to rest")
	}
	if sh, ok := v.StructureNear(world.StructureShelter, a.Position, shelterSearchRadius); ok && !a.Unreachable(sh.Coord) {
		c.Intent.Target = sh.Coord
		c.Intent.Reach = 1
	}
	c.Feasible = true
	return c
}

func (s *UtilityStrategy) signal(a *Agent, v WorldView) Candidate {
	t := s.Rules.Tuning
	c := Candidate{Intent: Intent{Kind: ActionSignal, Target: a.Position}}
	if a.lastSignal >= 0 && a.Age-a.lastSignal < t.Social.SignalCooldown {
		return infeasible(c, "signaled recently")
	}

	radius := t.Decision.ViewRadius
	switch {
	case a.Needs.Thirst < t.Social.HelpCritical && !hasWaterTarget(a, v, radius):
		c.Intent.Signal = social.SignalHelpWater
		c.Score = s.score("signal", 1-a.Needs.Thirst)
	case a.Needs.Hunger < t.Social.HelpCritical && !hasFood(a, v, s.Rules, radius):
		c.Intent.Signal = social.SignalHelpFood
		c.Score = s.score("signal", 1-a.Needs.Hunger)
	default:
		return infeasible(c, "no need to call for help")
	}
	c.Feasible = true
	return c
}

// ---------------------------------------------------------------------------
// Work
// ---------------------------------------------------------------------------

func (s *UtilityStrategy) gather(a *Agent, v WorldView, kind world.ResourceKind) Candidate {
	t := s.Rules.Tuning
	name := "gather"
	var desire float64

	item, _ := s.Rules.Catalog.RawItem(kind)
	switch kind {
	case world.ResourceFood:
		name = "forage"
		edibles := countEdibles(a, s.Rules.Catalog)
		desire = (1 - a.Needs.Hunger) / float64(1+edibles)
		if edibles < 2 {
			desire += 0.2
		}
	default:
		if missingForKnownRecipe(a, s.Rules, item) {
			desire = 0.6
		}
		if a.Personality.Curiosity >= t.Invention.MinCuriosity && a.Inventory.Count(item) < 4 {
			desire = max(desire, 0.8*a.Personality.Curiosity)
		}
	}

	c := Candidate{
		Intent: Intent{Kind: ActionGather, Resource: kind},
		Score:  s.score(name, desire),
	}
	if a.Inventory.Total() >= t.Actions.InventoryLimit {
		return infeasible(c, "inventory full")
	}
	node, ok := findNode(a, v, kind, t.Decision.ViewRadius)
	if !ok {
		return infeasible(c, "no %s known", kind)
	}
	c.Intent.Node = node.ID
	c.Intent.Target = node.Coord
	c.Feasible = true
	return c
}

func (s *UtilityStrategy) craft(a *Agent, v WorldView) Candidate {
	c := Candidate{Intent: Intent{Kind: ActionCraft}}
	radius := s.Rules.Tuning.Decision.ViewRadius

	found := false
	for _, id := range a.Knowledge.Recipes() {
		r, ok := s.Rules.Catalog.Recipe(id)
		if !ok || !a.Skills.Qualified(s.Rules.Catalog, r) || !a.Inventory.Has(r.Inputs) {
			continue
		}
		target, reach := a.Position, 0
		if st := r.StationKind(); st != world.StructureNone {
			bench, ok := v.StructureNear(st, a.Position, radius)
			if !ok || a.Unreachable(bench.Coord) {
				continue
			}
			target, reach = bench.Coord, 1
		}
		score := s.score("craft", r.Value*craftUsefulness(a, v, s.Rules, r, radius))
		if !found || score > c.Score {
			c.Intent = Intent{Kind: ActionCraft, Recipe: r.ID, Station: r.StationKind(), Target: target, Reach: reach}
			c.Score = score
			found = true
		}
	}
	if !found {
		return infeasible(c, "no recipe can be crafted")
	}
	c.Feasible = true
	return c
}

// craftUsefulness rates how much the agent wants a recipe's product, 0–1.
func craftUsefulness(a *Agent, v WorldView, rules *Rules, r catalog.Recipe, radius int) float64 {
	if kind := r.PlacesKind(); kind != world.StructureNone {
		if _, ok := v.StructureNear(kind, a.Position, radius); ok {
			return 0
		}
		return 1
	}
	out, _ := rules.Catalog.Item(r.Output)
	switch {
	case out.Tool != nil:
		if a.Inventory.Count(out.ID) > 0 {
			return 0
		}
		return 1
	case out.Edible():
		return clamp01(1.2 - a.Needs.Hunger)
	}
	return 0.5
}

func (s *UtilityStrategy) invent(a *Agent, v WorldView) Candidate {
	t := s.Rules.Tuning
	c := Candidate{Intent: Intent{Kind: ActionInvent, Target: a.Position}}
	if a.Personality.Curiosity < t.Invention.MinCuriosity {
		return infeasible(c, "not curious enough")
	}
	kinds := len(a.Inventory.Kinds())
	if kinds < t.Invention.MinKinds {
		return infeasible(c, "too few materials")
	}

	station := world.StructureNone
	if bench, ok := v.StructureNear(world.StructureWorkbench, a.Position, t.Decision.ViewRadius); ok && !a.Unreachable(bench.Coord) {
		station = world.StructureWorkbench
		c.Intent.Target, c.Intent.Reach = bench.Coord, 1
	}
	offer, ok := NextInvention(a, station, s.Rules)
	if !ok {
		return infeasible(c, "every combination already tried")
	}
	c.Intent.Inputs = offer
	c.Intent.Station = station
	variety := min(1, float64(kinds)/float64(max(1, t.Invention.MaxCombo)))
	c.Score = s.score("invent", a.Personality.Curiosity*(0.5+0.5*variety))
	c.Feasible = true
	return c
}

// ---------------------------------------------------------------------------
// Social
// ---------------------------------------------------------------------------

func (s *UtilityStrategy) help(a *Agent, v WorldView) Candidate {
	t := s.Rules.Tuning
	c := Candidate{Intent: Intent{Kind: ActionHelp}}

	food, hasFood := bestEdible(a, s.Rules.Catalog)
	water, hasWater := waterTarget(a, v, t.Decision.ViewRadius)
	canFeed := hasFood && a.Needs.Hunger >= t.Social.HelperReserve
	canWater := hasWater && a.Needs.Thirst >= t.Social.HelperReserve
	if !canFeed && !canWater {
		return infeasible(c, "nothing to offer")
	}

	found := false
	consider := func(other *Agent, kind social.SignalKind) {
		if other.ID == a.ID || !other.Alive || a.Unreachable(other.Position) {
			return
		}
		if a.Knowledge.Relationship(other.ID) < t.Social.HelpMinRel {
			return
		}
		var need float64
		intent := Intent{Kind: ActionHelp, Other: other.ID, Target: other.Position, Reach: t.Social.InteractionRadius, Signal: kind}
		switch kind {
		case social.SignalHelpFood:
			if !canFeed {
				return
			}
			need = other.Needs.Hunger
			intent.Item = food
		case social.SignalHelpWater:
			if !canWater {
				return
			}
			need = other.Needs.Thirst
			intent.Location = water
		default:
			return
		}
		score := s.score("help", a.Personality.Helpfulness*(1-need))
		if !found || score > c.Score || (score == c.Score && other.ID < c.Intent.Other) {
			c.Intent, c.Score, found = intent, score, true
		}
	}

	for _, h := range a.heard {
		if other, ok := v.Agent(h.From); ok {
			consider(other, h.Kind)
		}
	}
	for _, other := range v.AgentsWithin(a.Position, t.Social.PerceptionRadius) {
		if other.Needs.Hunger < t.Social.HelpCritical {
			consider(other, social.SignalHelpFood)
		}
		if other.Needs.Thirst < t.Social.HelpCritical {
			consider(other, social.SignalHelpWater)
		}
	}
	if !found {
		return infeasible(c, "nobody needs help")
	}
	c.Feasible = true
	return c
}

func (s *UtilityStrategy) teach(a *Agent, v WorldView) Candidate {
	t := s.Rules.Tuning
	c := Candidate{Intent: Intent{Kind: ActionTeach}}
	if min(a.Needs.Hunger, a.Needs.Thirst, a.Needs.Energy) < 0.4 {
		return infeasible(c, "too needy to teach")
	}

	bestGap := 0
	for _, student := range v.AgentsWithin(a.Position, t.Social.PerceptionRadius) {
		if student.ID == a.ID || a.Unreachable(student.Position) {
			continue
		}
		if student.Knowledge.Relationship(a.ID) < t.Social.TeachMinRel {
			continue
		}
		for _, e := range a.Skills.Entries() {
			gap := teachableGap(a, student, e.Skill, s.Rules)
			if gap > bestGap {
				bestGap = gap
				c.Intent = Intent{
					Kind: ActionTeach, Other: student.ID, Skill: e.Skill,
					Target: student.Position, Reach: t.Social.InteractionRadius,
				}
			}
		}
	}
	if bestGap == 0 {
		return infeasible(c, "nobody to teach")
	}
	c.Score = s.score("teach", (0.5+0.5*a.Personality.Sociability)*min(1, float64(bestGap)/2))
	c.Feasible = true
	return c
}

// teachableGap is how many levels teacher leads student by in skill, or 0
// when the lesson is not allowed.
func teachableGap(teacher, student *Agent, skill catalog.SkillID, rules *Rules) int {
	mine := teacher.Skills.Level(skill)
	theirs := student.Skills.Level(skill)
	if mine < 1 || mine < theirs+rules.Tuning.Social.TeachAdvantage {
		return 0
	}
	if !student.Skills.Unlocked(rules.Catalog, skill) {
		return 0
	}
	return mine - theirs
}

func (s *UtilityStrategy) trade(a *Agent, v WorldView) Candidate {
	t := s.Rules.Tuning
	c := Candidate{Intent: Intent{Kind: ActionTrade}}

	var wants []catalog.ItemID
	urgency := 0.0
	if a.Needs.Hunger < 0.5 && countEdibles(a, s.Rules.Catalog) == 0 {
		for _, it := range s.Rules.Catalog.EdibleItems() {
			wants = append(wants, it.ID)
		}
		urgency = 1 - a.Needs.Hunger
	} else if want, ok := shortestInput(a, s.Rules); ok {
		wants = []catalog.ItemID{want}
		urgency = 0.5
	}
	if len(wants) == 0 {
		return infeasible(c, "nothing wanted")
	}

	for _, partner := range v.AgentsWithin(a.Position, t.Social.PerceptionRadius) {
		if partner.ID == a.ID || a.Unreachable(partner.Position) || partner.Knowledge.Relationship(a.ID) < t.Social.TradeMinRel {
			continue
		}
		for _, want := range wants {
			if partner.Inventory.Count(want)-1 < t.Social.TradeSurplus {
				continue
			}
			offer, ok := tradeOffer(a, want, s.Rules)
			if !ok {
				continue
			}
			c.Intent = Intent{
				Kind: ActionTrade, Other: partner.ID, Item: offer, Want: want,
				Target: partner.Position, Reach: t.Social.InteractionRadius,
			}
			c.Score = s.score("trade", urgency)
			c.Feasible = true
			return c
		}
	}
	return infeasible(c, "no trading partner")
}

// tradeOffer picks what to give: the item held in the largest stack, not
// the wanted item, not food when hungry. Ties go to the lowest ID.
func tradeOffer(a *Agent, want catalog.ItemID, rules *Rules) (catalog.ItemID, bool) {
	var best catalog.ItemID
	bestN := 0
	for _, id := range a.Inventory.Kinds() {
		if id == want {
			continue
		}
		if it, _ := rules.Catalog.Item(id); it.Edible() && a.Needs.Hunger < 0.5 {
			continue
		}
		if n := a.Inventory.Count(id); n > bestN {
			best, bestN = id, n
		}
	}
	return best, bestN > 0
}

func (s *UtilityStrategy) socialize(a *Agent, v WorldView) Candidate {
	t := s.Rules.Tuning
	c := Candidate{
		Intent: Intent{Kind: ActionSocialize},
		Score:  s.score("socialize", (1-a.Needs.Social)*(0.5+0.5*a.Personality.Sociability)),
	}
	var partner *Agent
	for _, other := range v.AgentsWithin(a.Position, t.Social.PerceptionRadius) {
		if other.ID == a.ID || a.Unreachable(other.Position) {
			continue
		}
		if partner == nil || a.Knowledge.Relationship(other.ID) > a.Knowledge.Relationship(partner.ID) {
			partner = other
		}
	}
	if partner == nil {
		return infeasible(c, "nobody around")
	}
	c.Intent.Other = partner.ID
	c.Intent.Target = partner.Position
	c.Intent.Reach = t.Social.InteractionRadius
	c.Feasible = true
	return c
}

func (s *UtilityStrategy) wander(a *Agent, v WorldView) Candidate {
	c := Candidate{Intent: Intent{Kind: ActionWander}, Score: clamp01(s.weight("wander"))}
	for _, n := range a.Position.Neighbors() {
		if v.Walkable(n) {
			c.Feasible = true
			return c
		}
	}
	return infeasible(c, "boxed in")
}

// wanderTarget picks a random walkable hex within the wander radius,
// falling back to the first walkable neighbor.
func (s *UtilityStrategy) wanderTarget(a *Agent, v WorldView) world.HexCoord {
	radius := max(1, s.Rules.Tuning.Decision.WanderRadius)
	if s.Rand != nil {
		for try := 0; try < 8; try++ {
			ring := world.Ring(a.Position, 1+s.Rand.Intn(radius))
			if len(ring) == 0 {
				continue
			}
			if c := ring[s.Rand.Intn(len(ring))]; v.Walkable(c) {
				return c
			}
		}
	}
	for _, n := range a.Position.Neighbors() {
		if v.Walkable(n) {
			return n
		}
	}
	return a.Position
}

// ---------------------------------------------------------------------------
// Perception helpers
// ---------------------------------------------------------------------------

const (
	restBreakLevel      = 0.2 // Rest is abandoned when hunger or thirst falls below this
	shelterSearchRadius = 4
)

func bestEdible(a *Agent, c *catalog.Catalog) (catalog.ItemID, bool) {
	for _, it := range c.EdibleItems() {
		if a.Inventory.Count(it.ID) > 0 {
			return it.ID, true
		}
	}
	return "", false
}

func countEdibles(a *Agent, c *catalog.Catalog) int {
	n := 0
	for _, it := range c.EdibleItems() {
		n += a.Inventory.Count(it.ID)
	}
	return n
}

// waterTarget finds where to drink: here, in sight, or from memory,
// leaving out spots the agent recently failed to reach.
func waterTarget(a *Agent, v WorldView, radius int) (world.HexCoord, bool) {
	if v.WaterAdjacent(a.Position) {
		return a.Position, true
	}
	if c, ok := v.NearestWater(a.Position, radius, a.Unreachable); ok {
		return c, true
	}
	return nearestKnown(a, world.ResourceWater, func(c world.HexCoord) bool {
		return !a.Unreachable(c) && v.Walkable(c) && v.WaterAdjacent(c)
	})
}

func hasWaterTarget(a *Agent, v WorldView, radius int) bool {
	_, ok := waterTarget(a, v, radius)
	return ok
}

func hasFood(a *Agent, v WorldView, rules *Rules, radius int) bool {
	if countEdibles(a, rules.Catalog) > 0 {
		return true
	}
	_, ok := findNode(a, v, world.ResourceFood, radius)
	return ok
}

// findNode looks for a harvestable node in sight, then in memory. Nodes
// the agent recently failed to reach are passed over.
func findNode(a *Agent, v WorldView, kind world.ResourceKind, radius int) (world.ResourceNode, bool) {
	if n, ok := v.NearestNode(kind, a.Position, radius, a.Unreachable); ok {
		return n, true
	}
	c, ok := nearestKnown(a, kind, func(c world.HexCoord) bool {
		if a.Unreachable(c) {
			return false
		}
		n, ok := v.NodeAt(c)
		return ok && n.Kind == kind && n.Available() > 0
	})
	if !ok {
		return world.ResourceNode{}, false
	}
	return v.NodeAt(c)
}

// nearestKnown returns the closest remembered location passing ok. Ties go
// to the lowest coordinate.
func nearestKnown(a *Agent, kind world.ResourceKind, ok func(world.HexCoord) bool) (world.HexCoord, bool) {
	var best world.HexCoord
	bestD := -1
	for _, c := range a.Knowledge.KnownLocations(kind) {
		if !ok(c) {
			continue
		}
		if d := world.Distance(a.Position, c); bestD < 0 || d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD >= 0
}

// missingForKnownRecipe reports whether a known recipe needs more of item
// than the agent holds.
func missingForKnownRecipe(a *Agent, rules *Rules, item catalog.ItemID) bool {
	for _, id := range a.Knowledge.Recipes() {
		r, ok := rules.Catalog.Recipe(id)
		if !ok {
			continue
		}
		if need := r.Inputs[item]; need > 0 && a.Inventory.Count(item) < need {
			return true
		}
	}
	return false
}

// shortestInput finds an item a qualified known recipe lacks, preferring
// recipes that are only one item kind short.
func shortestInput(a *Agent, rules *Rules) (catalog.ItemID, bool) {
	for _, id := range a.Knowledge.Recipes() {
		r, ok := rules.Catalog.Recipe(id)
		if !ok || !a.Skills.Qualified(rules.Catalog, r) {
			continue
		}
		var missing []catalog.ItemID
		for _, in := range r.Inputs.Kinds() {
			if a.Inventory.Count(in) < r.Inputs[in] {
				missing = append(missing, in)
			}
		}
		if len(missing) == 1 {
			return missing[0], true
		}
	}
	return "", false
}
