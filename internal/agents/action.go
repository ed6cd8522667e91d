package agents

import (
	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/social"
	"github.com/talgya/homestead/internal/world"
)

// ActionKind enumerates what an agent can do. Declaration order is the
// tie-break priority of the decision engine: earlier kinds win ties.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionDrink
	ActionEat
	ActionRest
	ActionSignal
	ActionHelp
	ActionGather
	ActionCraft
	ActionTeach
	ActionTrade
	ActionSocialize
	ActionInvent
	ActionWander
)

// ActionKinds lists every real action in priority order.
var ActionKinds = []ActionKind{
	ActionDrink, ActionEat, ActionRest, ActionSignal, ActionHelp, ActionGather,
	ActionCraft, ActionTeach, ActionTrade, ActionSocialize, ActionInvent, ActionWander,
}

var actionNames = [...]string{
	"idle", "drink", "eat", "rest", "signal", "help", "gather",
	"craft", "teach", "trade", "socialize", "invent", "wander",
}

func (k ActionKind) String() string {
	if int(k) < len(actionNames) {
		return actionNames[k]
	}
	return "unknown"
}

// ActionState is the execution state of the current action.
type ActionState uint8

const (
	StateIdle ActionState = iota
	StatePlanning
	StateInProgress
	StateCompleted
	StateInterrupted
	StateFailed
)

var stateNames = [...]string{"idle", "planning", "in_progress", "completed", "interrupted", "failed"}

func (s ActionState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether control returns to the decision engine.
func (s ActionState) Terminal() bool {
	return s == StateCompleted || s == StateInterrupted || s == StateFailed
}

// Intent is what the decision engine wants done. Only the fields relevant
// to Kind are set.
type Intent struct {
	Kind    ActionKind
	Utility float64
	Target  world.HexCoord // Where the work happens
	Reach   int            // Work may start within this many hexes of Target

	Node     world.NodeID       // Gather
	Resource world.ResourceKind // Gather
	Recipe   catalog.RecipeID   // Craft
	Station  world.StructureKind
	Inputs   catalog.Bundle    // Invent: kinds to offer
	Item     catalog.ItemID    // Eat, Help: item used; Trade: item offered
	Want     catalog.ItemID    // Trade: item requested
	Other    AgentID           // Partner for social actions
	Skill    catalog.SkillID   // Teach
	Signal   social.SignalKind // Signal, Help
	Location world.HexCoord    // Help: water location to share
}

// Action is the running state machine for one intent.
type Action struct {
	Intent   Intent
	State    ActionState
	Path     []world.HexCoord
	Progress float64 // Seconds worked at the target
	Duration float64 // Seconds of work needed
	Replans  int
	Granted  float64 // Teach: experience delivered so far
	Err      error   // Why the action was interrupted or failed

	stride float64 // Banked fractional movement
}

// Kind is shorthand for the intent's kind.
func (act *Action) Kind() ActionKind { return act.Intent.Kind }

// activity classifies the current action for energy decay.
func (a *Agent) activity() Activity {
	act := &a.Action
	if act.State != StateInProgress {
		return ActivityIdle
	}
	if len(act.Path) > 0 {
		return ActivityBusy
	}
	switch act.Kind() {
	case ActionRest:
		return ActivityResting
	case ActionGather, ActionCraft, ActionInvent, ActionWander:
		return ActivityBusy
	}
	return ActivityIdle
}

// working reports whether the agent is at its target doing skilled work.
// Returns the skill being exercised.
func (a *Agent) working(rules *Rules) (catalog.SkillID, bool) {
	act := &a.Action
	if act.State != StateInProgress || !a.arrived() {
		return "", false
	}
	switch act.Kind() {
	case ActionGather:
		return rules.Catalog.GatherSkill(act.Intent.Resource)
	case ActionCraft:
		r, ok := rules.Catalog.Recipe(act.Intent.Recipe)
		return r.Skill, ok
	}
	return "", false
}

func (a *Agent) arrived() bool {
	return world.Distance(a.Position, a.Action.Intent.Target) <= a.Action.Intent.Reach
}
