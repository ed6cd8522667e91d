// Population dynamics: removal of the dead and the immigration floor that
// keeps a collapsed world from staying empty.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/homestead/internal/agents"
	"github.com/talgya/homestead/internal/world"
)

// removeDead drops agents that died during the previous tick from the
// registry. Leaving the registry is what detaches them; their records are
// not written to again. Caller holds s.mu.
func (s *Simulation) removeDead() {
	kept := s.order[:0]
	for _, id := range s.order {
		a := s.registry[id]
		if a.Alive {
			kept = append(kept, id)
			continue
		}
		delete(s.registry, id)
		slog.Debug("agent removed", "agent", id, "cause", a.Cause, "age", a.Age)
	}
	s.order = kept
}

// immigrate spawns one newcomer when the living population is below the
// floor. Caller holds s.mu.
func (s *Simulation) immigrate(tick uint64) {
	floor := s.rules.Tuning.World.MinPopulation
	if s.alive() >= floor {
		return
	}
	at, ok := s.spawnSite()
	if !ok {
		slog.Warn("immigration blocked: no free spawn site", "tick", tick)
		return
	}

	a := s.spawner.Spawn(at, tick)
	a.Attach(s.id)
	s.registry[a.ID] = a
	s.order = append(s.order, a.ID) // IDs only grow, so order stays sorted
	s.record(Event{
		Tick:        tick,
		Kind:        agents.EventBorn,
		Category:    Category(agents.EventBorn),
		Agent:       a.ID,
		Description: fmt.Sprintf("%s arrived looking for a new home", a.Name),
	})
	slog.Info("immigrant arrived", "tick", tick, "agent", a.ID, "name", a.Name, "at", at)
}

// spawnSite picks a walkable spawn point at random, falling back to any
// walkable hex.
func (s *Simulation) spawnSite() (world.HexCoord, bool) {
	var open []world.HexCoord
	for _, c := range s.spawnPoints {
		if s.walkable(c) {
			open = append(open, c)
		}
	}
	if len(open) > 0 {
		return open[s.rng.Intn(len(open))], true
	}
	for _, c := range s.worldMap.Coords() {
		if s.walkable(c) {
			return c, true
		}
	}
	return world.HexCoord{}, false
}

func (s *Simulation) alive() int {
	n := 0
	for _, id := range s.order {
		if s.registry[id].Alive {
			n++
		}
	}
	return n
}
