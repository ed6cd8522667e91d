package agents

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/entropy"
	"github.com/talgya/homestead/internal/social"
	"github.com/talgya/homestead/internal/world"
)

// ---------------------------------------------------------------------------
// Needs
// ---------------------------------------------------------------------------

func TestDecayNeedsStaysInBounds(t *testing.T) {
	rules := testRules()
	rng := entropy.NewSeeded(42)
	mod := ModifierFor(rules.Tuning.Seasons[3])

	for trial := 0; trial < 50; trial++ {
		a := testAgent(1, world.HexCoord{}, rules)
		a.Needs = Needs{Hunger: rng.Float64(), Thirst: rng.Float64(), Energy: rng.Float64(), Social: rng.Float64()}
		for step := 0; step < 200 && a.Alive; step++ {
			DecayNeeds(a, rng.Float64()*50, mod, rules.Tuning.Needs)
			for _, v := range []float64{a.Needs.Hunger, a.Needs.Thirst, a.Needs.Energy, a.Needs.Social, a.Health} {
				require.GreaterOrEqual(t, v, 0.0)
				require.LessOrEqual(t, v, 1.0)
			}
		}
		if !a.Alive {
			assert.Equal(t, 0.0, a.Health, "death is preceded by zero health")
			assert.NotEqual(t, CauseNone, a.Cause)
		}
	}
}

func TestStarvationKills(t *testing.T) {
	rules := testRules()
	a := testAgent(1, world.HexCoord{}, rules)
	a.Needs = Needs{Hunger: 0, Thirst: 1, Energy: 1, Social: 1}

	for i := 0; i < 10000 && a.Alive; i++ {
		a.Needs.Thirst = 1
		DecayNeeds(a, 1, ModifierFor(rules.Tuning.Seasons[0]), rules.Tuning.Needs)
	}
	require.False(t, a.Alive)
	assert.Equal(t, CauseStarvation, a.Cause)
}

func TestRestingStopsEnergyDecay(t *testing.T) {
	rules := testRules()
	a := testAgent(1, world.HexCoord{}, rules)
	a.Needs.Energy = 0.5
	a.Action = Action{Intent: Intent{Kind: ActionRest, Target: a.Position}, State: StateInProgress}

	d := DecayNeeds(a, 10, ModifierFor(rules.Tuning.Seasons[0]), rules.Tuning.Needs)
	assert.Equal(t, 0.0, d.Energy)
	assert.Less(t, d.Hunger, 0.0)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestDeadAgentIsNeverMutated(t *testing.T) {
	rules := testRules()
	w := newTestWorld(4)
	a := w.add(testAgent(1, world.HexCoord{}, rules))
	a.Inventory.Add("food", 2)
	a.Kill(CauseHazard)
	before := a.Record()

	err := a.Update(w, NewUtilityStrategy(rules, entropy.NewSeeded(1)), rules, 5)
	assert.ErrorIs(t, err, ErrDead)
	assert.Equal(t, before, a.Record())

	_, err = AttemptInvention(a, catalog.Bundle{"food": 2}, world.StructureNone, w, rules)
	assert.ErrorIs(t, err, ErrDead)
	assert.Equal(t, 2, a.Inventory.Count("food"))
}

func TestUpdateRequiresAttachedWorld(t *testing.T) {
	rules := testRules()
	w := newTestWorld(4)
	a := testAgent(1, world.HexCoord{}, rules)
	strat := NewUtilityStrategy(rules, entropy.NewSeeded(1))

	assert.ErrorIs(t, a.Update(w, strat, rules, 1), ErrDetached)

	a.Attach(uuid.New())
	assert.ErrorIs(t, a.Update(w, strat, rules, 1), ErrDetached)

	a.Attach(w.ID())
	assert.NoError(t, a.Update(w, strat, rules, 1))
}

func TestIDGeneratorNeverReuses(t *testing.T) {
	g := NewIDGenerator()
	assert.Equal(t, AgentID(1), g.Next())
	assert.Equal(t, AgentID(2), g.Next())

	g.Restore(1)
	assert.Equal(t, AgentID(3), g.Peek(), "restore never lowers the counter")

	g.Observe(10)
	assert.Equal(t, AgentID(11), g.Next())
}

// ---------------------------------------------------------------------------
// Skills and knowledge
// ---------------------------------------------------------------------------

func TestLevelFor(t *testing.T) {
	curve := []float64{100, 250, 500, 1000}
	tests := []struct {
		xp   float64
		want int
	}{
		{0, 0}, {99.9, 0}, {100, 1}, {249, 1}, {250, 2}, {999, 3}, {1000, 4}, {1e6, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(curve, tt.xp), "xp %v", tt.xp)
	}
}

func TestSkillRustStopsAtLevelFloor(t *testing.T) {
	l := NewSkillLedger([]float64{100, 250, 500, 1000})
	l.Grant("foraging", 260)

	l.Decay(3600, 3600, 0.1)
	assert.Equal(t, 260.0, l.XP("foraging"), "no rust inside the grace period")

	l.Decay(50, 3600, 0.1)
	assert.InDelta(t, 255.0, l.XP("foraging"), 1e-9)

	l.Decay(10000, 3600, 0.1)
	assert.Equal(t, 250.0, l.XP("foraging"))
	assert.Equal(t, 2, l.Level("foraging"))

	l.Grant("foraging", 1)
	assert.Equal(t, 0.0, l.Idle("foraging"), "use resets the idle clock")
}

func TestPrerequisitesUnlockSkills(t *testing.T) {
	rules := testRules()
	l := NewSkillLedger(rules.Tuning.Skills.Curve)
	assert.False(t, l.Unlocked(rules.Catalog, "cooking"))
	l.Grant("crafting", 100)
	assert.True(t, l.Unlocked(rules.Catalog, "cooking"))
	assert.False(t, l.Unlocked(rules.Catalog, "building"))
}

func TestLocationsAreForgotten(t *testing.T) {
	k := NewKnowledge()
	assert.True(t, k.RememberLocation(world.ResourceFood, world.HexCoord{Q: 1}, 0))
	assert.True(t, k.RememberLocation(world.ResourceFood, world.HexCoord{Q: 2}, 1000))
	assert.False(t, k.RememberLocation(world.ResourceFood, world.HexCoord{Q: 2}, 1500))

	assert.Equal(t, 1, k.Forget(2401, 2400))
	assert.Equal(t, []world.HexCoord{{Q: 2}}, k.KnownLocations(world.ResourceFood))
}

func TestRelationshipsDecayAndDrop(t *testing.T) {
	k := NewKnowledge()
	k.AdjustRelationship(7, 0.1)
	k.DecayRelationships(0.001, 50)
	assert.InDelta(t, 0.05, k.Relationship(7), 1e-9)
	k.DecayRelationships(0.001, 1000)
	assert.Empty(t, k.Relationships())
}

// ---------------------------------------------------------------------------
// Decisions
// ---------------------------------------------------------------------------

func TestEatBeatsInfeasibleWander(t *testing.T) {
	rules := testRules()
	w := newTestWorld(4)
	a := w.add(testAgent(1, world.HexCoord{}, rules))
	a.Needs.Hunger = 0.5
	a.Inventory.Add("food", 1)
	for _, n := range a.Position.Neighbors() {
		w.blocked[n] = true
	}

	strat := NewUtilityStrategy(rules, entropy.NewSeeded(1))
	strat.Weights = map[string]float64{"wander": 5, "eat": 0.5}

	intent, ok := strat.Choose(a, w)
	require.True(t, ok)
	assert.Equal(t, ActionEat, intent.Kind)

	for _, c := range strat.Evaluate(a, w) {
		if c.Intent.Kind == ActionWander {
			assert.False(t, c.Feasible)
			assert.Greater(t, c.Score, intent.Utility)
			assert.ErrorIs(t, c.Reason, ErrInfeasibleAction)
		}
	}
}

func TestEvaluateIsInPriorityOrder(t *testing.T) {
	rules := testRules()
	w := newTestWorld(4)
	a := w.add(testAgent(1, world.HexCoord{}, rules))

	cands := NewUtilityStrategy(rules, nil).Evaluate(a, w)
	for i := 1; i < len(cands); i++ {
		assert.LessOrEqual(t, cands[i-1].Intent.Kind, cands[i].Intent.Kind)
	}
	for _, c := range cands {
		assert.GreaterOrEqual(t, c.Score, 0.0)
		assert.LessOrEqual(t, c.Score, 1.0)
	}
}

func TestNothingToDoWithoutWander(t *testing.T) {
	rules := testRules()
	w := newTestWorld(4)
	a := w.add(testAgent(1, world.HexCoord{}, rules))
	for _, n := range a.Position.Neighbors() {
		w.blocked[n] = true
	}
	_, ok := NewUtilityStrategy(rules, nil).Choose(a, w)
	assert.False(t, ok, "sated and boxed in")
}

func TestFailedRouteDropsTargetFromDecisions(t *testing.T) {
	rules := testRules()
	w := newTestWorld(5)
	walled := world.HexCoord{Q: 3}
	open := world.HexCoord{Q: -4}
	for _, n := range walled.Neighbors() {
		w.blocked[n] = true
	}
	w.addNode(1, world.ResourceFood, walled, 5)
	w.addNode(2, world.ResourceFood, open, 5)
	a := w.add(testAgent(1, world.HexCoord{}, rules))
	strat := NewUtilityStrategy(rules, nil)

	forage := func() Candidate {
		for _, c := range strat.Evaluate(a, w) {
			if c.Intent.Kind == ActionGather && c.Intent.Resource == world.ResourceFood {
				return c
			}
		}
		t.Fatal("no forage candidate")
		return Candidate{}
	}

	c := forage()
	require.True(t, c.Feasible)
	require.Equal(t, walled, c.Intent.Target, "nearest node first")

	require.NoError(t, a.Update(w, fixedStrategy{c.Intent}, rules, 1))
	require.Equal(t, StateFailed, a.Action.State)
	require.ErrorIs(t, a.Action.Err, ErrPathUnreachable)
	assert.True(t, a.Unreachable(walled))

	c = forage()
	require.True(t, c.Feasible)
	assert.Equal(t, open, c.Intent.Target)

	w.nodes[2].Quantity = 0
	assert.False(t, forage().Feasible, "only the walled node is left")

	a.Age += unreachableFor
	assert.False(t, a.Unreachable(walled), "the block wears off")
	assert.Equal(t, walled, forage().Intent.Target)
}

func TestHeardSignalsLastOneUpdate(t *testing.T) {
	rules := testRules()
	w := newTestWorld(4)
	a := w.add(testAgent(1, world.HexCoord{}, rules))
	w.add(testAgent(2, world.HexCoord{Q: 1}, rules))
	a.Needs.Energy = 0.3
	rest := Intent{Kind: ActionRest, Target: a.Position}
	require.NoError(t, a.Update(w, fixedStrategy{rest}, rules, 1))
	require.Equal(t, StateInProgress, a.Action.State)

	ProcessSignals(a, []social.Signal{{Kind: social.SignalHelpFood, Sender: 2, Origin: world.HexCoord{Q: 1}}}, rules)
	require.Len(t, a.heard, 1)

	require.NoError(t, a.Update(w, fixedStrategy{rest}, rules, 1))
	assert.Equal(t, StateInProgress, a.Action.State, "still resting")
	assert.Empty(t, a.heard, "requests are not carried past the next update")
}

func TestFailedRouteDropsPartner(t *testing.T) {
	rules := testRules()
	w := newTestWorld(5)
	a := w.add(testAgent(1, world.HexCoord{}, rules))
	b := w.add(testAgent(2, world.HexCoord{Q: 3}, rules))
	a.Needs.Social = 0.1
	strat := NewUtilityStrategy(rules, nil)

	socialize := func() Candidate {
		for _, c := range strat.Evaluate(a, w) {
			if c.Intent.Kind == ActionSocialize {
				return c
			}
		}
		t.Fatal("no socialize candidate")
		return Candidate{}
	}
	require.True(t, socialize().Feasible)

	a.markUnreachable(b.Position)
	assert.False(t, socialize().Feasible)
}

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

func TestLastUnitGoesToOneHarvester(t *testing.T) {
	rules := testRules()
	w := newTestWorld(4)
	site := world.HexCoord{Q: 1}
	w.addNode(1, world.ResourceFood, site, 1)

	intent := Intent{Kind: ActionGather, Resource: world.ResourceFood, Node: 1, Target: site}
	first := w.add(testAgent(1, site, rules))
	second := w.add(testAgent(2, site, rules))

	require.NoError(t, first.Update(w, fixedStrategy{intent}, rules, 10))
	require.NoError(t, second.Update(w, fixedStrategy{intent}, rules, 10))

	assert.Equal(t, StateCompleted, first.Action.State)
	assert.Equal(t, 1, first.Inventory.Count("food"))
	assert.Equal(t, StateFailed, second.Action.State)
	assert.ErrorIs(t, second.Action.Err, ErrInsufficientResources)
	assert.Equal(t, 0, second.Inventory.Count("food"))
}

func TestGatherRetargetsToAnotherNode(t *testing.T) {
	rules := testRules()
	w := newTestWorld(4)
	w.addNode(1, world.ResourceFood, world.HexCoord{Q: 1}, 0)
	w.addNode(2, world.ResourceFood, world.HexCoord{Q: -1}, 3)

	a := w.add(testAgent(1, world.HexCoord{}, rules))
	intent := Intent{Kind: ActionGather, Resource: world.ResourceFood, Node: 1, Target: world.HexCoord{Q: 1}}
	require.NoError(t, a.Update(w, fixedStrategy{intent}, rules, 1))

	assert.Equal(t, StateInProgress, a.Action.State)
	assert.Equal(t, world.NodeID(2), a.Action.Intent.Node)
	assert.Equal(t, 1, a.Action.Replans)
}

func TestMoveAroundNewObstacle(t *testing.T) {
	rules := testRules()
	w := newTestWorld(5)
	a := w.add(testAgent(1, world.HexCoord{}, rules))
	target := world.HexCoord{Q: 3}

	intent := Intent{Kind: ActionWander, Target: target}
	require.NoError(t, a.Update(w, fixedStrategy{intent}, rules, 0.1))
	require.Equal(t, StateInProgress, a.Action.State)
	require.NotEmpty(t, a.Action.Path)

	w.blocked[a.Action.Path[0]] = true
	for i := 0; i < 20 && a.Action.State == StateInProgress; i++ {
		require.NoError(t, a.Update(w, fixedStrategy{intent}, rules, 1))
	}
	assert.Equal(t, StateCompleted, a.Action.State)
	assert.Equal(t, target, a.Position)
	assert.Equal(t, 1, a.Action.Replans)
}

func TestUnreachableTargetFails(t *testing.T) {
	rules := testRules()
	w := newTestWorld(4)
	a := w.add(testAgent(1, world.HexCoord{}, rules))
	target := world.HexCoord{Q: 3}
	for _, n := range target.Neighbors() {
		w.blocked[n] = true
	}

	require.NoError(t, a.Update(w, fixedStrategy{Intent{Kind: ActionWander, Target: target}}, rules, 1))
	assert.Equal(t, StateFailed, a.Action.State)
	assert.ErrorIs(t, a.Action.Err, ErrPathUnreachable)
}

func TestCraftPlacesWorkbench(t *testing.T) {
	rules := testRules()
	w := newTestWorld(4)
	a := w.add(testAgent(1, world.HexCoord{}, rules))
	a.Inventory.Add("wood", 5)
	a.Inventory.Add("stone", 2)
	a.Knowledge.LearnRecipe("workbench")

	intent := Intent{Kind: ActionCraft, Recipe: "workbench", Target: a.Position}
	require.NoError(t, a.Update(w, fixedStrategy{intent}, rules, 10))

	assert.Equal(t, StateCompleted, a.Action.State)
	assert.Zero(t, a.Inventory.Total())
	require.Len(t, w.structures, 1)
	assert.Equal(t, world.StructureWorkbench, w.structures[0].Kind)
	assert.Equal(t, 1, world.Distance(a.Position, w.structures[0].Coord))
	assert.Greater(t, a.Skills.XP("crafting"), 0.0)
}

// ---------------------------------------------------------------------------
// Invention
// ---------------------------------------------------------------------------

func TestInventionIsDeterministic(t *testing.T) {
	rules := testRules()
	w := newTestWorld(4)
	offer := catalog.Bundle{"wood": 2, "stone": 1}

	var results []InventionResult
	for id := AgentID(1); id <= 2; id++ {
		a := w.add(testAgent(id, world.HexCoord{}, rules))
		a.Inventory.Add("wood", 2)
		a.Inventory.Add("stone", 1)
		res, err := AttemptInvention(a, offer, world.StructureNone, w, rules)
		require.NoError(t, err)
		assert.True(t, a.Knowledge.KnowsRecipe("crude_axe"))
		assert.Equal(t, 1, a.Inventory.Count("crude_axe"))
		results = append(results, res)
	}
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, OutcomeDiscovered, results[0].Outcome)
	assert.Equal(t, catalog.RecipeID("crude_axe"), results[0].Recipe)
}

func TestInventionKnownAlready(t *testing.T) {
	rules := testRules()
	a := testAgent(1, world.HexCoord{}, rules)
	a.Knowledge.LearnRecipe("crude_axe")
	a.Inventory.Add("wood", 2)
	a.Inventory.Add("stone", 1)

	res, err := AttemptInvention(a, catalog.Bundle{"wood": 2, "stone": 1}, world.StructureNone, nil, rules)
	require.NoError(t, err)
	assert.Equal(t, OutcomeKnownAlready, res.Outcome)
}

func TestInventionNoMatchLosesPenalty(t *testing.T) {
	rules := testRules()
	a := testAgent(1, world.HexCoord{}, rules)
	a.Inventory.Add("food", 4)
	a.Inventory.Add("stone", 1)
	offer := catalog.Bundle{"food": 4, "stone": 1}

	res, err := AttemptInvention(a, offer, world.StructureNone, nil, rules)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoMatch, res.Outcome)
	assert.Equal(t, catalog.Bundle{"food": 1}, res.Lost)
	assert.Equal(t, 3, a.Inventory.Count("food"))
	assert.Equal(t, 1, a.Inventory.Count("stone"), "floor(1 * 0.25) is nothing")
	assert.True(t, a.Knowledge.HasFailed(attemptSignature(offer, world.StructureNone)))
	assert.False(t, a.Knowledge.HasFailed(attemptSignature(offer, world.StructureWorkbench)))
}

func TestInventionRequiresStation(t *testing.T) {
	rules := testRules()
	a := testAgent(1, world.HexCoord{}, rules)
	a.Skills.Grant("crafting", 100)
	a.Inventory.Add("food", 1)

	res, err := AttemptInvention(a, catalog.Bundle{"food": 1}, world.StructureWorkbench, nil, rules)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDiscovered, res.Outcome)
	assert.Equal(t, 1, a.Inventory.Count("cooked_food"))
}

func TestNextInventionSkipsKnownAndFailed(t *testing.T) {
	rules := testRules()
	a := testAgent(1, world.HexCoord{}, rules)
	a.Inventory.Add("wood", 2)
	a.Inventory.Add("stone", 1)

	offer, ok := NextInvention(a, world.StructureNone, rules)
	require.True(t, ok)
	assert.Equal(t, catalog.Bundle{"wood": 2, "stone": 1}, offer)

	a.Knowledge.LearnRecipe("crude_axe")
	offer, ok = NextInvention(a, world.StructureNone, rules)
	require.True(t, ok)
	assert.Equal(t, catalog.Bundle{"stone": 1}, offer)

	a.Knowledge.MarkFailed(attemptSignature(catalog.Bundle{"stone": 1}, world.StructureNone))
	a.Knowledge.MarkFailed(attemptSignature(catalog.Bundle{"wood": 2}, world.StructureNone))
	_, ok = NextInvention(a, world.StructureNone, rules)
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// Social
// ---------------------------------------------------------------------------

func TestTradeIsAtomic(t *testing.T) {
	rules := testRules()
	p := testAgent(1, world.HexCoord{}, rules)
	r := testAgent(2, world.HexCoord{Q: 1}, rules)
	p.Inventory.Add("wood", 1)
	r.Inventory.Add("food", 5)
	pBefore, rBefore := p.Inventory.Clone(), r.Inventory.Clone()

	err := ResolveTrade(p, r, catalog.Bundle{"wood": 2}, catalog.Bundle{"food": 1}, rules)
	assert.ErrorIs(t, err, ErrInsufficientResources)
	assert.Equal(t, pBefore, p.Inventory)
	assert.Equal(t, rBefore, r.Inventory)

	err = ResolveTrade(p, r, catalog.Bundle{"wood": 1}, catalog.Bundle{"food": 6}, rules)
	assert.ErrorIs(t, err, ErrInsufficientResources)
	assert.Equal(t, pBefore, p.Inventory)
	assert.Equal(t, rBefore, r.Inventory)

	require.NoError(t, ResolveTrade(p, r, catalog.Bundle{"wood": 1}, catalog.Bundle{"food": 1}, rules))
	assert.Equal(t, Inventory{"food": 1}, p.Inventory)
	assert.Equal(t, Inventory{"food": 4, "wood": 1}, r.Inventory)
	assert.Greater(t, r.Knowledge.Relationship(p.ID), 0.0)
}

func TestTradeAcceptanceKeepsSurplus(t *testing.T) {
	rules := testRules()
	p := testAgent(1, world.HexCoord{}, rules)
	r := testAgent(2, world.HexCoord{Q: 1}, rules)
	r.Inventory.Add("food", 3)
	assert.False(t, TradeAccepted(p, r, catalog.Bundle{"food": 1}, rules))
	r.Inventory.Add("food", 1)
	assert.True(t, TradeAccepted(p, r, catalog.Bundle{"food": 1}, rules))
	r.Knowledge.AdjustRelationship(p.ID, -0.5)
	assert.False(t, TradeAccepted(p, r, catalog.Bundle{"food": 1}, rules))
}

func TestTeachingGrantsExactBoost(t *testing.T) {
	rules := testRules()
	w := newTestWorld(4)
	teacher := w.add(testAgent(1, world.HexCoord{}, rules))
	student := w.add(testAgent(2, world.HexCoord{Q: 1}, rules))
	teacher.Skills.Grant("foraging", 300)
	student.Knowledge.AdjustRelationship(teacher.ID, 0.5)

	intent := Intent{Kind: ActionTeach, Other: student.ID, Skill: "foraging", Target: student.Position, Reach: 2}
	for i := 0; i < 100 && !teacher.Action.State.Terminal(); i++ {
		require.NoError(t, teacher.Update(w, fixedStrategy{intent}, rules, 1))
	}
	assert.Equal(t, StateCompleted, teacher.Action.State)
	assert.InDelta(t, rules.Tuning.Social.TeachBoost, student.Skills.XP("foraging"), 1e-9)
	assert.Greater(t, student.Knowledge.Relationship(teacher.ID), 0.5)
}

func TestTeachingRefusedBelowRelationshipMinimum(t *testing.T) {
	rules := testRules()
	teacher := testAgent(1, world.HexCoord{}, rules)
	student := testAgent(2, world.HexCoord{Q: 1}, rules)
	teacher.Skills.Grant("foraging", 300)
	student.Knowledge.AdjustRelationship(teacher.ID, -0.5)

	err := ResolveTeach(teacher, student, "foraging", 10, rules)
	assert.ErrorIs(t, err, ErrInfeasibleAction)
	assert.Zero(t, student.Skills.XP("foraging"))
}

func TestTeachingLockedSkill(t *testing.T) {
	rules := testRules()
	teacher := testAgent(1, world.HexCoord{}, rules)
	student := testAgent(2, world.HexCoord{Q: 1}, rules)
	teacher.Skills.Grant("crafting", 300)
	teacher.Skills.Grant("building", 300)

	assert.Zero(t, teachableGap(teacher, student, "building", rules))
	assert.Equal(t, 2, teachableGap(teacher, student, "crafting", rules))
	assert.ErrorIs(t, ResolveTeach(teacher, student, "building", 10, rules), ErrInfeasibleAction)
}

func TestProcessSignals(t *testing.T) {
	rules := testRules()
	a := testAgent(1, world.HexCoord{}, rules)
	spot := world.HexCoord{Q: 2, R: -1}
	signals := []social.Signal{
		{Kind: social.SignalFoundFood, Sender: 2, Origin: spot, Coord: spot},
		{Kind: social.SignalHelpWater, Sender: 3, Origin: world.HexCoord{Q: -1}},
	}

	assert.Equal(t, 1, ProcessSignals(a, signals, rules))
	assert.Equal(t, []world.HexCoord{spot}, a.Knowledge.KnownLocations(world.ResourceFood))
	assert.Greater(t, a.Knowledge.Relationship(2), 0.0)
	require.Len(t, a.heard, 1)
	assert.Equal(t, AgentID(3), a.heard[0].From)

	assert.Equal(t, 0, ProcessSignals(a, signals[:1], rules), "already known")
}

func TestHelpMovesOneUnit(t *testing.T) {
	rules := testRules()
	helper := testAgent(1, world.HexCoord{}, rules)
	target := testAgent(2, world.HexCoord{Q: 1}, rules)
	helper.Inventory.Add("food", 2)

	require.NoError(t, ResolveHelp(helper, target, "food", rules))
	assert.Equal(t, 1, helper.Inventory.Count("food"))
	assert.Equal(t, 1, target.Inventory.Count("food"))
	assert.InDelta(t, rules.Tuning.Social.HelpDelta, target.Knowledge.Relationship(helper.ID), 1e-9)

	helper.Inventory = Inventory{}
	assert.ErrorIs(t, ResolveHelp(helper, target, "food", rules), ErrInsufficientResources)
}

func TestMemoryRepeatsRefresh(t *testing.T) {
	rules := testRules()
	a := testAgent(1, world.HexCoord{}, rules)
	AddMemory(a, 10, "Bo helped me in need", 0.7)
	AddMemory(a, 20, "Learned foraging from Bo", 0.6)
	AddMemory(a, 30, "Bo helped me in need", 0.5)

	require.Len(t, a.Memories, 2)
	recent := RecentMemories(a, 5)
	assert.Equal(t, "Bo helped me in need", recent[0].Content)
	assert.Equal(t, uint64(30), recent[0].Tick)
	assert.Equal(t, 0.7, recent[0].Importance, "importance never drops on repeat")
	assert.Equal(t, 1, recent[0].Repeats)
}

func TestFullMemoryForgetsMostFaded(t *testing.T) {
	rules := testRules()
	a := testAgent(1, world.HexCoord{}, rules)
	AddMemory(a, 0, "Discovered how to make crude_axe", 0.9)
	for i := 1; i < MaxMemories; i++ {
		AddMemory(a, uint64(50000+i), fmt.Sprintf("memory %d", i), 0.5)
	}
	require.Len(t, a.Memories, MaxMemories)

	AddMemory(a, 60000, "Learned building from Bo", 0.4)
	require.Len(t, a.Memories, MaxMemories)
	assert.NotEqual(t, "Discovered how to make crude_axe", a.Memories[0].Content, "an old memory fades below a fresh one")
	assert.Equal(t, "Learned building from Bo", RecentMemories(a, 1)[0].Content)

	AddMemory(a, 60001, "trivial", 0.01)
	assert.NotEqual(t, "trivial", RecentMemories(a, 1)[0].Content)
}

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

func TestRecordRoundTrip(t *testing.T) {
	rules := testRules()
	sp := NewSpawner(entropy.NewSeeded(7), NewIDGenerator(), rules)
	a := sp.Spawn(world.HexCoord{Q: 2, R: -1}, 30)
	a.Knowledge.LearnRecipe("crude_axe")
	a.Knowledge.RememberLocation(world.ResourceWater, world.HexCoord{Q: 1}, 12)
	a.Knowledge.AdjustRelationship(9, 0.4)
	a.Knowledge.MarkFailed("food:1+stone:1")
	AddMemory(a, 30, "Arrived", 0.5)
	a.Attach(uuid.New())

	rec := a.Record()
	back, err := FromRecord(rec, rules)
	require.NoError(t, err)
	assert.Equal(t, rec, back.Record())
	assert.Equal(t, uuid.Nil, back.WorldID())
	assert.Equal(t, StateIdle, back.Action.State)
}

func TestFromRecordRejectsBadValues(t *testing.T) {
	rules := testRules()
	good := testAgent(5, world.HexCoord{}, rules).Record()

	tests := map[string]func(*Record){
		"zero id":       func(r *Record) { r.ID = 0 },
		"health":        func(r *Record) { r.Health = 1.5 },
		"need":          func(r *Record) { r.Needs.Thirst = -0.1 },
		"unknown item":  func(r *Record) { r.Inventory = []ItemCount{{Item: "gold", Count: 1}} },
		"unknown skill": func(r *Record) { r.Skills = []SkillEntry{{Skill: "alchemy", XP: 1}} },
		"recipe":        func(r *Record) { r.Recipes = []catalog.RecipeID{"perpetual_motion"} },
		"relationship":  func(r *Record) { r.Relationships = []RelationshipEntry{{Other: 2, Score: 3}} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			r := good
			mutate(&r)
			_, err := FromRecord(r, rules)
			assert.Error(t, err)
		})
	}
}
