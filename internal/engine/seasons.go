// Seasonal clock and resource regeneration.
package engine

import (
	"log/slog"
)

// SeasonName returns the name of the current season.
func (s *Simulation) SeasonName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seasonName()
}

func (s *Simulation) seasonName() string {
	return s.rules.Tuning.Season(s.season).Name
}

// advanceSeason moves the season clock by dt and rolls over into the next
// season when its length is reached. Caller holds s.mu.
func (s *Simulation) advanceSeason(dt float64) {
	length := s.rules.Tuning.SeasonLength
	n := len(s.rules.Tuning.Seasons)
	if length <= 0 || n == 0 {
		return
	}
	s.seasonTimer += dt
	for s.seasonTimer >= length {
		s.seasonTimer -= length
		s.season = (s.season + 1) % n
		slog.Info("season change",
			"tick", s.tick,
			"time", SimTime(s.tick),
			"season", s.seasonName(),
			"population", s.stats.Population,
		)
	}
}

// regrowNodes replenishes every node, scaled by the season. Caller holds s.mu.
func (s *Simulation) regrowNodes(dt float64) {
	mult := s.rules.Tuning.Season(s.season).Regen
	for _, n := range s.nodes {
		n.Regrow(dt, mult)
	}
}
