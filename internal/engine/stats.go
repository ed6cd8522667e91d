package engine

import (
	"github.com/talgya/homestead/internal/agents"
	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/world"
)

// Stats tracks aggregate world statistics. Counters run since the world
// began; averages cover the living.
type Stats struct {
	Tick       uint64 `json:"tick"`
	Day        uint64 `json:"day"`
	Season     string `json:"season"`
	Population int    `json:"population"`

	Births      int `json:"births"`
	Deaths      int `json:"deaths"`
	Discoveries int `json:"discoveries"`
	Crafted     int `json:"crafted"`
	Structures  int `json:"structures"`
	Trades      int `json:"trades"`
	Lessons     int `json:"lessons"`
	Helps       int `json:"helps"`

	KnownRecipes int     `json:"known_recipes"` // Distinct recipes known by anyone alive
	Bonds        int     `json:"bonds"`
	Nodes        int     `json:"nodes"`
	FoodStock    float64 `json:"food_stock"` // Units standing in food nodes

	AvgHunger float64 `json:"avg_hunger"`
	AvgThirst float64 `json:"avg_thirst"`
	AvgEnergy float64 `json:"avg_energy"`
	AvgSocial float64 `json:"avg_social"`
	AvgHealth float64 `json:"avg_health"`
}

// Stats returns the statistics from the last update.
func (s *Simulation) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// updateStats recomputes s.stats. Caller holds s.mu.
func (s *Simulation) updateStats() {
	st := Stats{
		Tick:        s.tick,
		Day:         s.tick / TicksPerSimDay,
		Season:      s.seasonName(),
		Births:      s.counts[agents.EventBorn],
		Deaths:      s.counts[agents.EventDied],
		Discoveries: s.counts[agents.EventDiscovered],
		Crafted:     s.counts[agents.EventCrafted],
		Trades:      s.counts[agents.EventTraded],
		Lessons:     s.counts[agents.EventTaught],
		Helps:       s.counts[agents.EventHelped],
		Structures:  len(s.structures),
		Nodes:       len(s.nodes),
		Bonds:       s.bonds(),
	}

	recipes := make(map[catalog.RecipeID]struct{})
	for _, id := range s.order {
		a := s.registry[id]
		if !a.Alive {
			continue
		}
		st.Population++
		st.AvgHunger += a.Needs.Hunger
		st.AvgThirst += a.Needs.Thirst
		st.AvgEnergy += a.Needs.Energy
		st.AvgSocial += a.Needs.Social
		st.AvgHealth += a.Health
		for _, r := range a.Knowledge.Recipes() {
			recipes[r] = struct{}{}
		}
	}
	if st.Population > 0 {
		n := float64(st.Population)
		st.AvgHunger /= n
		st.AvgThirst /= n
		st.AvgEnergy /= n
		st.AvgSocial /= n
		st.AvgHealth /= n
	}
	st.KnownRecipes = len(recipes)

	for _, n := range s.nodes {
		if n.Kind == world.ResourceFood {
			st.FoodStock += n.Quantity
		}
	}
	s.stats = st
}
