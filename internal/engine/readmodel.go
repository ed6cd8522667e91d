// Read models for observers: per-tick snapshot, agent detail and map view.
// Everything returned is a copy taken under the read lock.
package engine

import (
	"github.com/talgya/homestead/internal/agents"
	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/world"
)

// AgentSummary is the per-agent row of a snapshot.
type AgentSummary struct {
	ID       agents.AgentID `json:"id"`
	Name     string         `json:"name"`
	Position world.HexCoord `json:"position"`
	Needs    agents.Needs   `json:"needs"`
	Health   float64        `json:"health"`
	Age      float64        `json:"age"`
	Action   string         `json:"action"`
	State    string         `json:"state"`
}

// SkillView is one skill with its level.
type SkillView struct {
	Skill catalog.SkillID `json:"skill"`
	XP    float64         `json:"xp"`
	Level int             `json:"level"`
}

// AgentDetail is the full observable state of one agent.
type AgentDetail struct {
	AgentSummary
	Personality agents.Personality `json:"personality"`
	Inventory   []agents.ItemCount `json:"inventory"`
	Skills      []SkillView        `json:"skills"`
	Recipes     []catalog.RecipeID `json:"recipes"`
	Memories    []agents.Memory    `json:"memories"`
	Outgoing    []Edge             `json:"relationships_out"`
	Incoming    []Edge             `json:"relationships_in"`
}

// Snapshot is the read-only world state for one tick.
type Snapshot struct {
	Tick     uint64         `json:"tick"`
	Time     string         `json:"time"`
	Season   string         `json:"season"`
	Agents   []AgentSummary `json:"agents"`
	Selected *AgentDetail   `json:"selected,omitempty"`
}

// MapView is the terrain plus everything placed on it.
type MapView struct {
	Radius     int                  `json:"radius"`
	Hexes      []HexView            `json:"hexes"`
	Nodes      []world.ResourceNode `json:"nodes"`
	Structures []world.Structure    `json:"structures"`
}

// HexView is one tile of a MapView.
type HexView struct {
	Coord   world.HexCoord `json:"coord"`
	Terrain string         `json:"terrain"`
}

// Snapshot returns every living agent and, when selected is non-zero and
// alive, that agent's detail including relationship edges.
func (s *Simulation) Snapshot(selected agents.AgentID) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Tick: s.tick, Time: SimTime(s.tick), Season: s.seasonName()}
	for _, id := range s.order {
		if a := s.registry[id]; a.Alive {
			snap.Agents = append(snap.Agents, summarize(a))
		}
	}
	if a, ok := s.registry[selected]; ok && a.Alive {
		d := s.detail(a)
		snap.Selected = &d
	}
	return snap
}

// Agents lists living agents in ID order.
func (s *Simulation) Agents() []AgentSummary {
	return s.Snapshot(0).Agents
}

// Agent returns one agent's detail.
func (s *Simulation) Agent(id agents.AgentID) (AgentDetail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.registry[id]
	if !ok {
		return AgentDetail{}, false
	}
	return s.detail(a), true
}

// MapView returns the terrain with current nodes and structures.
func (s *Simulation) MapView() MapView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mv := MapView{Radius: s.worldMap.Radius}
	for _, c := range s.worldMap.Coords() {
		mv.Hexes = append(mv.Hexes, HexView{Coord: c, Terrain: world.TerrainName(s.worldMap.Get(c).Terrain)})
	}
	for _, id := range s.nodeIDs() {
		mv.Nodes = append(mv.Nodes, *s.nodes[id])
	}
	mv.Structures = append([]world.Structure(nil), s.structures...)
	return mv
}

func summarize(a *agents.Agent) AgentSummary {
	return AgentSummary{
		ID:       a.ID,
		Name:     a.Name,
		Position: a.Position,
		Needs:    a.Needs,
		Health:   a.Health,
		Age:      a.Age,
		Action:   a.Action.Kind().String(),
		State:    a.Action.State.String(),
	}
}

// detail builds an AgentDetail. Caller holds s.mu.
func (s *Simulation) detail(a *agents.Agent) AgentDetail {
	rec := a.Record()
	d := AgentDetail{
		AgentSummary: summarize(a),
		Personality:  a.Personality,
		Inventory:    rec.Inventory,
		Recipes:      rec.Recipes,
		Memories:     agents.RecentMemories(a, 20),
	}
	for _, e := range rec.Skills {
		d.Skills = append(d.Skills, SkillView{Skill: e.Skill, XP: e.XP, Level: a.Skills.Level(e.Skill)})
	}
	d.Outgoing, d.Incoming = s.edgesOf(a)
	return d
}
