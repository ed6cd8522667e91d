package agents

import (
	"github.com/google/uuid"

	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/social"
	"github.com/talgya/homestead/internal/world"
)

// WorldView is the read-only world an agent decides against. It is passed
// in every tick; agents never hold on to it.
type WorldView interface {
	ID() uuid.UUID
	Tick() uint64
	Season() config.SeasonTuning

	// Walkable reports an in-bounds, passable hex not blocked by a structure.
	Walkable(c world.HexCoord) bool
	// WaterAdjacent reports whether an agent at c can drink.
	WaterAdjacent(c world.HexCoord) bool
	// NearestWater finds the closest walkable hex beside water that skip
	// does not reject. A nil skip rejects nothing.
	NearestWater(from world.HexCoord, radius int, skip func(world.HexCoord) bool) (world.HexCoord, bool)

	NodeAt(c world.HexCoord) (world.ResourceNode, bool)
	// NearestNode finds the closest node of kind with at least one unit,
	// passing over nodes whose hex skip rejects.
	NearestNode(kind world.ResourceKind, from world.HexCoord, radius int, skip func(world.HexCoord) bool) (world.ResourceNode, bool)
	StructureNear(kind world.StructureKind, from world.HexCoord, radius int) (world.Structure, bool)

	// AgentsWithin returns living agents within radius of from, ascending by ID.
	AgentsWithin(from world.HexCoord, radius int) []*Agent
	Agent(id AgentID) (*Agent, bool)
}

// Builder places structures on an agent's behalf.
type Builder interface {
	Walkable(c world.HexCoord) bool
	PlaceStructure(kind world.StructureKind, at world.HexCoord, builder AgentID) (world.Structure, error)
}

// World is the view plus the effects an acting agent may apply. Effects
// take place immediately, so later agents in the same tick see them.
type World interface {
	WorldView
	Builder

	// Harvest takes up to units from a node and returns how many were taken.
	Harvest(node world.NodeID, units int) int
	// Broadcast emits a signal to agents in perception range and returns
	// the number of recipients.
	Broadcast(sig social.Signal) int
	Emit(ev Event)
}
