// Relationship graph views: directed opinion edges for one agent and the
// count of mutual bonds across the population.
package engine

import (
	"sort"

	"github.com/talgya/homestead/internal/agents"
)

// BondThreshold is the opinion both agents must hold of each other for the
// pair to count as bonded.
const BondThreshold = 0.3

// Edge is one directed opinion.
type Edge struct {
	From  agents.AgentID `json:"from"`
	To    agents.AgentID `json:"to"`
	Name  string         `json:"name,omitempty"` // Name of To, if still alive
	Score float64        `json:"score"`
}

// edgesOf returns an agent's outgoing and incoming edges among living
// agents, strongest first. Caller holds s.mu.
func (s *Simulation) edgesOf(a *agents.Agent) (out, in []Edge) {
	for _, r := range a.Knowledge.Relationships() {
		e := Edge{From: a.ID, To: r.Other, Score: r.Score}
		if other, ok := s.registry[r.Other]; ok {
			e.Name = other.Name
		}
		out = append(out, e)
	}
	for _, id := range s.order {
		other := s.registry[id]
		if other.ID == a.ID || !other.Alive {
			continue
		}
		score := other.Knowledge.Relationship(a.ID)
		if score != 0 {
			in = append(in, Edge{From: other.ID, To: a.ID, Name: other.Name, Score: score})
		}
	}
	byStrength := func(es []Edge) {
		sort.SliceStable(es, func(i, j int) bool {
			if es[i].Score != es[j].Score {
				return es[i].Score > es[j].Score
			}
			return es[i].To < es[j].To
		})
	}
	byStrength(out)
	byStrength(in)
	return out, in
}

// bonds counts unordered pairs of living agents who both hold the other
// above BondThreshold. Caller holds s.mu.
func (s *Simulation) bonds() int {
	n := 0
	for i, id := range s.order {
		a := s.registry[id]
		if !a.Alive {
			continue
		}
		for _, other := range s.order[i+1:] {
			b := s.registry[other]
			if b.Alive && a.Knowledge.Relationship(b.ID) >= BondThreshold && b.Knowledge.Relationship(a.ID) >= BondThreshold {
				n++
			}
		}
	}
	return n
}
