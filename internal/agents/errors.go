package agents

import "errors"

// Recoverable per-agent errors. None of them abort the tick for other agents.
var (
	// ErrInfeasibleAction means a candidate or running action can no longer be performed.
	ErrInfeasibleAction = errors.New("action infeasible")
	// ErrPathUnreachable means no route to the action's target exists.
	ErrPathUnreachable = errors.New("path unreachable")
	// ErrInsufficientResources means an inventory or resource node cannot cover a transfer.
	ErrInsufficientResources = errors.New("insufficient resources")
	// ErrDetached means the agent is being updated against a world it is not linked to.
	ErrDetached = errors.New("agent not attached to this world")
	// ErrDead means the agent is dead and must not be mutated.
	ErrDead = errors.New("agent is dead")
)
