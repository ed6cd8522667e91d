package agents

import (
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/social"
	"github.com/talgya/homestead/internal/world"
)

// testWorld is a small in-memory World for exercising agents without the
// engine.
type testWorld struct {
	id         uuid.UUID
	tick       uint64
	season     config.SeasonTuning
	m          *world.Map
	nodes      map[world.NodeID]*world.ResourceNode
	structures []world.Structure
	blocked    map[world.HexCoord]bool
	agents     map[AgentID]*Agent
	board      *social.Board
	events     []Event
}

func newTestWorld(radius int) *testWorld {
	return &testWorld{
		id:      uuid.New(),
		season:  config.SeasonTuning{Name: "spring", Hunger: 1, Thirst: 1, Energy: 1, Regen: 1},
		m:       world.NewPlainsMap(radius),
		nodes:   make(map[world.NodeID]*world.ResourceNode),
		blocked: make(map[world.HexCoord]bool),
		agents:  make(map[AgentID]*Agent),
		board:   social.NewBoard(10),
	}
}

func testRules() *Rules {
	return NewRules(config.Default(), catalog.MustDefault())
}

func (w *testWorld) add(a *Agent) *Agent {
	a.Attach(w.id)
	w.agents[a.ID] = a
	return a
}

func (w *testWorld) addNode(id world.NodeID, kind world.ResourceKind, at world.HexCoord, qty float64) *world.ResourceNode {
	n := &world.ResourceNode{ID: id, Kind: kind, Coord: at, Quantity: qty, Max: qty}
	w.nodes[id] = n
	return n
}

func (w *testWorld) ID() uuid.UUID               { return w.id }
func (w *testWorld) Tick() uint64                { return w.tick }
func (w *testWorld) Season() config.SeasonTuning { return w.season }

func (w *testWorld) Walkable(c world.HexCoord) bool {
	return w.m.Passable(c) && !w.blocked[c]
}

func (w *testWorld) WaterAdjacent(c world.HexCoord) bool {
	return w.m.AdjacentTo(c, world.TerrainWater)
}

func (w *testWorld) NearestWater(from world.HexCoord, radius int, skip func(world.HexCoord) bool) (world.HexCoord, bool) {
	for r := 0; r <= radius; r++ {
		ring := world.Ring(from, r)
		sort.Slice(ring, func(i, j int) bool { return ring[i].Less(ring[j]) })
		for _, c := range ring {
			if (skip == nil || !skip(c)) && w.Walkable(c) && w.WaterAdjacent(c) {
				return c, true
			}
		}
	}
	return world.HexCoord{}, false
}

func (w *testWorld) NodeAt(c world.HexCoord) (world.ResourceNode, bool) {
	for _, n := range w.nodes {
		if n.Coord == c {
			return *n, true
		}
	}
	return world.ResourceNode{}, false
}

func (w *testWorld) NearestNode(kind world.ResourceKind, from world.HexCoord, radius int, skip func(world.HexCoord) bool) (world.ResourceNode, bool) {
	var best *world.ResourceNode
	for _, n := range w.nodes {
		if n.Kind != kind || n.Available() == 0 || world.Distance(from, n.Coord) > radius {
			continue
		}
		if skip != nil && skip(n.Coord) {
			continue
		}
		if best == nil || world.Distance(from, n.Coord) < world.Distance(from, best.Coord) ||
			(world.Distance(from, n.Coord) == world.Distance(from, best.Coord) && n.Coord.Less(best.Coord)) {
			best = n
		}
	}
	if best == nil {
		return world.ResourceNode{}, false
	}
	return *best, true
}

func (w *testWorld) StructureNear(kind world.StructureKind, from world.HexCoord, radius int) (world.Structure, bool) {
	for _, s := range w.structures {
		if s.Kind == kind && world.Distance(from, s.Coord) <= radius {
			return s, true
		}
	}
	return world.Structure{}, false
}

func (w *testWorld) AgentsWithin(from world.HexCoord, radius int) []*Agent {
	var out []*Agent
	for _, a := range w.agents {
		if a.Alive && world.Distance(from, a.Position) <= radius {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *testWorld) Agent(id AgentID) (*Agent, bool) {
	a, ok := w.agents[id]
	return a, ok
}

func (w *testWorld) PlaceStructure(kind world.StructureKind, at world.HexCoord, builder AgentID) (world.Structure, error) {
	if !w.Walkable(at) {
		return world.Structure{}, world.ErrOccupied
	}
	st := world.Structure{ID: uint64(len(w.structures) + 1), Kind: kind, Coord: at, Builder: uint64(builder)}
	w.structures = append(w.structures, st)
	if kind.Blocks() {
		w.blocked[at] = true
	}
	return st, nil
}

func (w *testWorld) Harvest(node world.NodeID, units int) int {
	n, ok := w.nodes[node]
	if !ok {
		return 0
	}
	return n.Take(units)
}

func (w *testWorld) Broadcast(sig social.Signal) int {
	var ls []social.Listener
	for _, a := range w.AgentsWithin(sig.Origin, w.board.Radius()) {
		ls = append(ls, social.Listener{ID: uint64(a.ID), Position: a.Position})
	}
	return w.board.Broadcast(sig, ls)
}

func (w *testWorld) Emit(ev Event) { w.events = append(w.events, ev) }

// fixedStrategy always proposes the same intent.
type fixedStrategy struct{ intent Intent }

func (s fixedStrategy) Choose(*Agent, WorldView) (Intent, bool) { return s.intent, true }

// testAgent returns a sated agent at pos.
func testAgent(id AgentID, pos world.HexCoord, rules *Rules) *Agent {
	a := newAgent(id, "Tester", pos, rules.Tuning.Skills.Curve)
	a.Personality = Personality{Curiosity: 0.5, Sociability: 0.5, Helpfulness: 0.5, Intelligence: 0.5}
	return a
}
