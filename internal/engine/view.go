// Spatial queries and world effects offered to agents during a tick.
package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/homestead/internal/agents"
	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/social"
	"github.com/talgya/homestead/internal/world"
)

// tickView is the agents.World handed to agents inside Step. It never
// locks: Step already holds the write lock.
type tickView struct {
	s *Simulation
}

var _ agents.World = tickView{}

func (v tickView) ID() uuid.UUID               { return v.s.id }
func (v tickView) Tick() uint64                { return v.s.tick }
func (v tickView) Season() config.SeasonTuning { return v.s.rules.Tuning.Season(v.s.season) }

func (v tickView) Walkable(c world.HexCoord) bool { return v.s.walkable(c) }

func (v tickView) WaterAdjacent(c world.HexCoord) bool {
	return v.s.worldMap.AdjacentTo(c, world.TerrainWater)
}

func (v tickView) NearestWater(from world.HexCoord, radius int, skip func(world.HexCoord) bool) (world.HexCoord, bool) {
	var found world.HexCoord
	ok := v.s.scan(from, radius, func(c world.HexCoord) bool {
		if skip != nil && skip(c) {
			return false
		}
		if v.s.walkable(c) && v.s.worldMap.AdjacentTo(c, world.TerrainWater) {
			found = c
			return true
		}
		return false
	})
	return found, ok
}

func (v tickView) NodeAt(c world.HexCoord) (world.ResourceNode, bool) {
	id, ok := v.s.nodeAt[c]
	if !ok {
		return world.ResourceNode{}, false
	}
	return *v.s.nodes[id], true
}

func (v tickView) NearestNode(kind world.ResourceKind, from world.HexCoord, radius int, skip func(world.HexCoord) bool) (world.ResourceNode, bool) {
	var found world.ResourceNode
	ok := v.s.scan(from, radius, func(c world.HexCoord) bool {
		if skip != nil && skip(c) {
			return false
		}
		id, ok := v.s.nodeAt[c]
		if !ok {
			return false
		}
		n := v.s.nodes[id]
		if n.Kind != kind || n.Available() == 0 {
			return false
		}
		found = *n
		return true
	})
	return found, ok
}

func (v tickView) StructureNear(kind world.StructureKind, from world.HexCoord, radius int) (world.Structure, bool) {
	return v.s.structureNear(kind, from, radius)
}

func (v tickView) AgentsWithin(from world.HexCoord, radius int) []*agents.Agent {
	return v.s.agentsWithin(from, radius)
}

func (v tickView) Agent(id agents.AgentID) (*agents.Agent, bool) {
	a, ok := v.s.registry[id]
	return a, ok
}

// PlaceStructure builds on a free, walkable hex. Blocking structures are
// refused where they would cover a resource node or a standing agent.
func (v tickView) PlaceStructure(kind world.StructureKind, at world.HexCoord, builder agents.AgentID) (world.Structure, error) {
	s := v.s
	if !s.walkable(at) {
		return world.Structure{}, fmt.Errorf("%w: %s is not walkable", world.ErrOccupied, at)
	}
	if _, taken := s.structAt[at]; taken {
		return world.Structure{}, fmt.Errorf("%w: structure at %s", world.ErrOccupied, at)
	}
	if kind.Blocks() {
		if _, ok := s.nodeAt[at]; ok {
			return world.Structure{}, fmt.Errorf("%w: resource at %s", world.ErrOccupied, at)
		}
		if standing := s.agentsWithin(at, 0); len(standing) > 0 {
			return world.Structure{}, fmt.Errorf("%w: %s stands at %s", world.ErrOccupied, standing[0], at)
		}
	}
	s.nextStructure++
	st := world.Structure{ID: s.nextStructure, Kind: kind, Coord: at, Builder: uint64(builder)}
	s.structAt[at] = len(s.structures)
	s.structures = append(s.structures, st)
	return st, nil
}

func (v tickView) Harvest(id world.NodeID, units int) int {
	n, ok := v.s.nodes[id]
	if !ok {
		return 0
	}
	got := n.Take(units)
	if n.Exhausted() {
		delete(v.s.nodes, id)
		delete(v.s.nodeAt, n.Coord)
	}
	return got
}

func (v tickView) Broadcast(sig social.Signal) int {
	var ls []social.Listener
	for _, a := range v.s.agentsWithin(sig.Origin, v.s.board.Radius()) {
		ls = append(ls, social.Listener{ID: uint64(a.ID), Position: a.Position})
	}
	return v.s.board.Broadcast(sig, ls)
}

func (v tickView) Emit(ev agents.Event) {
	v.s.record(Event{
		Tick:        v.s.tick,
		Kind:        ev.Kind,
		Category:    Category(ev.Kind),
		Agent:       ev.Agent,
		Other:       ev.Other,
		Description: ev.Detail,
	})
}

// walkable reports passable terrain not covered by a blocking structure.
func (s *Simulation) walkable(c world.HexCoord) bool {
	if !s.worldMap.Passable(c) {
		return false
	}
	if i, ok := s.structAt[c]; ok && s.structures[i].Kind.Blocks() {
		return false
	}
	return true
}

// scan visits hexes within radius of from, nearest first and in
// coordinate order within a ring, until fn returns true.
func (s *Simulation) scan(from world.HexCoord, radius int, fn func(world.HexCoord) bool) bool {
	for r := 0; r <= radius; r++ {
		ring := world.Ring(from, r)
		sort.Slice(ring, func(i, j int) bool { return ring[i].Less(ring[j]) })
		for _, c := range ring {
			if s.worldMap.InBounds(c) && fn(c) {
				return true
			}
		}
	}
	return false
}

func (s *Simulation) structureNear(kind world.StructureKind, from world.HexCoord, radius int) (world.Structure, bool) {
	best := -1
	for i, st := range s.structures {
		if st.Kind != kind {
			continue
		}
		d := world.Distance(from, st.Coord)
		if d > radius {
			continue
		}
		if best < 0 || d < world.Distance(from, s.structures[best].Coord) {
			best = i
		}
	}
	if best < 0 {
		return world.Structure{}, false
	}
	return s.structures[best], true
}

// agentsWithin returns living agents within radius of from, ascending by ID.
func (s *Simulation) agentsWithin(from world.HexCoord, radius int) []*agents.Agent {
	var out []*agents.Agent
	for _, id := range s.order {
		a := s.registry[id]
		if a.Alive && world.Distance(from, a.Position) <= radius {
			out = append(out, a)
		}
	}
	return out
}
