// Simulation ties together the world grid, the agent registry and the
// season clock, and runs them each tick.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/homestead/internal/agents"
	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/entropy"
	"github.com/talgya/homestead/internal/social"
	"github.com/talgya/homestead/internal/world"
)

// Config carries the static inputs every simulation needs.
type Config struct {
	Tuning   config.Tuning
	Catalog  *catalog.Catalog
	Rand     entropy.Source
	Strategy agents.Strategy // Nil selects utility scoring
}

// State is everything needed to build a simulation: either freshly
// generated or restored from a save.
type State struct {
	ID          uuid.UUID
	Gen         world.GenConfig
	Tick        uint64
	Season      int
	SeasonTimer float64
	Nodes       []*world.ResourceNode
	Structures  []world.Structure
	Agents      []*agents.Agent
	NextAgentID agents.AgentID
	SpawnPoints []world.HexCoord
	Counts      map[agents.EventKind]int
}

// Simulation holds the complete world state. Tick processing takes the
// write lock; observers use the read-only accessors, which take the read
// lock.
type Simulation struct {
	mu sync.RWMutex

	id       uuid.UUID
	gen      world.GenConfig
	rules    *agents.Rules
	rng      entropy.Source
	strategy agents.Strategy
	ids      *agents.IDGenerator
	spawner  *agents.Spawner

	worldMap      *world.Map
	nodes         map[world.NodeID]*world.ResourceNode
	nodeAt        map[world.HexCoord]world.NodeID
	structures    []world.Structure
	structAt      map[world.HexCoord]int // Index into structures
	nextStructure uint64
	spawnPoints   []world.HexCoord

	registry map[agents.AgentID]*agents.Agent
	order    []agents.AgentID // Ascending

	tick        uint64
	season      int
	seasonTimer float64
	board       *social.Board

	events      []Event
	pending     []Event
	subscribers map[chan Event]struct{}
	counts      map[agents.EventKind]int // Since the world began
	stats       Stats
}

// Generate creates a fresh world for seed: terrain, resources, spawn
// points and the founding population.
func Generate(cfg Config, seed int64) (*Simulation, error) {
	if seed == 0 {
		seed = entropy.Seed()
	}
	if cfg.Rand == nil {
		cfg.Rand = entropy.NewSeeded(seed)
	}
	t := cfg.Tuning
	gen := t.GenConfig(seed)
	m := world.Generate(gen)
	nodes := world.PlaceResources(m, gen)
	points := world.PlaceSpawnPoints(m, nodes, max(t.World.InitialAgents, t.World.MinPopulation), t.World.SpawnSpacing, gen.Seed)
	if len(points) == 0 {
		return nil, fmt.Errorf("generate world %d: no passable land", seed)
	}

	ids := agents.NewIDGenerator()
	rules := agents.NewRules(t, cfg.Catalog)
	founders := agents.NewSpawner(cfg.Rand, ids, rules).SpawnPopulation(points[:min(len(points), t.World.InitialAgents)], 0)

	sim, err := build(cfg, m, State{
		ID:          uuid.New(),
		Gen:         gen,
		Nodes:       nodes,
		Agents:      founders,
		NextAgentID: ids.Peek(),
		SpawnPoints: points,
	})
	if err != nil {
		return nil, err
	}

	sim.mu.Lock()
	for _, a := range founders {
		sim.record(Event{Kind: agents.EventBorn, Category: Category(agents.EventBorn), Agent: a.ID,
			Description: fmt.Sprintf("%s arrived", a.Name)})
	}
	sim.updateStats()
	sim.mu.Unlock()

	slog.Info("world generated",
		"id", sim.id,
		"seed", gen.Seed,
		"radius", gen.Radius,
		"nodes", len(nodes),
		"agents", len(founders),
	)
	return sim, nil
}

// New builds a simulation from state. Terrain is regenerated from
// st.Gen; every agent is attached to the new world and the ID generator
// resumes past every known ID.
func New(cfg Config, st State) (*Simulation, error) {
	return build(cfg, world.Generate(st.Gen), st)
}

func build(cfg Config, m *world.Map, st State) (*Simulation, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("simulation needs a catalog")
	}
	if cfg.Rand == nil {
		cfg.Rand = entropy.NewSeeded(st.Gen.Seed)
	}
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	rules := agents.NewRules(cfg.Tuning, cfg.Catalog)
	strat := cfg.Strategy
	if strat == nil {
		strat = agents.NewUtilityStrategy(rules, cfg.Rand)
	}

	s := &Simulation{
		id:          st.ID,
		gen:         st.Gen,
		rules:       rules,
		rng:         cfg.Rand,
		strategy:    strat,
		ids:         agents.NewIDGenerator(),
		worldMap:    m,
		nodes:       make(map[world.NodeID]*world.ResourceNode, len(st.Nodes)),
		nodeAt:      make(map[world.HexCoord]world.NodeID, len(st.Nodes)),
		structAt:    make(map[world.HexCoord]int, len(st.Structures)),
		spawnPoints: st.SpawnPoints,
		registry:    make(map[agents.AgentID]*agents.Agent, len(st.Agents)),
		tick:        st.Tick,
		season:      st.Season,
		seasonTimer: st.SeasonTimer,
		board:       social.NewBoard(cfg.Tuning.Social.PerceptionRadius),
		subscribers: make(map[chan Event]struct{}),
		counts:      make(map[agents.EventKind]int),
	}
	for k, v := range st.Counts {
		s.counts[k] = v
	}
	if n := len(cfg.Tuning.Seasons); n > 0 {
		s.season = ((s.season % n) + n) % n
	}

	for _, n := range st.Nodes {
		if _, dup := s.nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate resource node %d", n.ID)
		}
		if !s.worldMap.Passable(n.Coord) {
			return nil, fmt.Errorf("resource node %d on impassable hex %s", n.ID, n.Coord)
		}
		if _, taken := s.nodeAt[n.Coord]; taken {
			return nil, fmt.Errorf("two resource nodes at %s", n.Coord)
		}
		if n.Exhausted() {
			continue
		}
		s.nodes[n.ID] = n
		s.nodeAt[n.Coord] = n.ID
	}
	for _, sc := range st.Structures {
		if !s.worldMap.Passable(sc.Coord) {
			return nil, fmt.Errorf("structure %d on impassable hex %s", sc.ID, sc.Coord)
		}
		if _, taken := s.structAt[sc.Coord]; taken {
			return nil, fmt.Errorf("two structures at %s", sc.Coord)
		}
		s.structAt[sc.Coord] = len(s.structures)
		s.structures = append(s.structures, sc)
		s.nextStructure = max(s.nextStructure, sc.ID)
	}

	s.ids.Restore(st.NextAgentID)
	for _, a := range st.Agents {
		if _, dup := s.registry[a.ID]; dup {
			return nil, fmt.Errorf("duplicate agent id %d", a.ID)
		}
		if !s.worldMap.InBounds(a.Position) {
			return nil, fmt.Errorf("agent %d outside the map at %s", a.ID, a.Position)
		}
		s.ids.Observe(a.ID)
		a.Attach(s.id)
		s.registry[a.ID] = a
		s.order = append(s.order, a.ID)
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })

	s.spawner = agents.NewSpawner(cfg.Rand, s.ids, rules)
	s.updateStats()
	return s, nil
}

// ID returns the world identity agents are linked to.
func (s *Simulation) ID() uuid.UUID { return s.id }

// Map returns the terrain. Terrain never changes after generation.
func (s *Simulation) Map() *world.Map { return s.worldMap }

// Rules returns the tuning and catalog in force.
func (s *Simulation) Rules() *agents.Rules { return s.rules }

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// Step runs one tick: the season clock and regrowth, then every living
// agent in ascending ID order, then signal perception. Agents that died
// during the previous tick are removed first.
func (s *Simulation) Step(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick = tick
	dt := s.rules.Tuning.TickSeconds
	s.removeDead()
	s.advanceSeason(dt)
	s.regrowNodes(dt)

	view := tickView{s}
	for _, id := range s.order {
		a := s.registry[id]
		if !a.Alive {
			continue
		}
		if err := a.Update(view, s.strategy, s.rules, dt); err != nil {
			slog.Warn("agent update refused", "agent", a.ID, "error", err)
			continue
		}
		if act := a.Action; act.State.Terminal() && act.Err != nil {
			slog.Debug("action ended",
				"agent", a.ID,
				"action", act.Kind(),
				"state", act.State,
				"error", act.Err,
			)
		}
	}

	for _, rid := range s.board.Recipients() {
		if a, ok := s.registry[agents.AgentID(rid)]; ok && a.Alive {
			agents.ProcessSignals(a, s.board.For(rid), s.rules)
		}
	}
	s.board.Clear()
}

// TickDay runs every sim-day: immigration floor, statistics, daily report.
func (s *Simulation) TickDay(tick uint64) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.immigrate(tick)
	s.updateStats()

	slog.Info("daily report",
		"tick", tick,
		"time", SimTime(tick),
		"season", s.seasonName(),
		"alive", s.stats.Population,
		"deaths", s.stats.Deaths,
		"births", s.stats.Births,
		"discoveries", s.stats.Discoveries,
		"structures", s.stats.Structures,
		"avg_health", fmt.Sprintf("%.3f", s.stats.AvgHealth),
		"bonds", s.stats.Bonds,
	)
	return s.stats
}

// TickWeek runs every sim-week: event ring maintenance.
func (s *Simulation) TickWeek(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := s.trimEvents()
	slog.Info("weekly summary",
		"tick", tick,
		"time", SimTime(tick),
		"events_trimmed", dropped,
		"events_total", s.totalEvents(),
	)
}

// Export copies the persistent state. Agents are exported as records.
func (s *Simulation) Export() Export {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ex := Export{
		ID:          s.id,
		Gen:         s.gen,
		Tick:        s.tick,
		Season:      s.season,
		SeasonTimer: s.seasonTimer,
		Structures:  append([]world.Structure(nil), s.structures...),
		NextAgentID: s.ids.Peek(),
		SpawnPoints: append([]world.HexCoord(nil), s.spawnPoints...),
		Counts:      make(map[agents.EventKind]int, len(s.counts)),
	}
	for _, id := range s.nodeIDs() {
		ex.Nodes = append(ex.Nodes, *s.nodes[id])
	}
	for _, id := range s.order {
		ex.Agents = append(ex.Agents, s.registry[id].Record())
	}
	for k, v := range s.counts {
		ex.Counts[k] = v
	}
	return ex
}

// Export is a detached copy of the persistent state.
type Export struct {
	ID          uuid.UUID
	Gen         world.GenConfig
	Tick        uint64
	Season      int
	SeasonTimer float64
	Nodes       []world.ResourceNode
	Structures  []world.Structure
	Agents      []agents.Record
	NextAgentID agents.AgentID
	SpawnPoints []world.HexCoord
	Counts      map[agents.EventKind]int
}

func (s *Simulation) nodeIDs() []world.NodeID {
	ids := make([]world.NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Simulation) totalEvents() int {
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}
