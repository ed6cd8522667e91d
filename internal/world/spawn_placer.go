// Spawn placement — finds hexes where newcomers have a fair start.
package world

import (
	"math/rand"
	"sort"
)

// PlaceSpawnPoints picks up to count passable hexes, best first, spaced at
// least minSpacing apart. Hexes near water and food score higher. When the
// map cannot fit count spaced points, the best points are reused in order.
func PlaceSpawnPoints(m *Map, nodes []*ResourceNode, count int, minSpacing int, seed int64) []HexCoord {
	if count <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed + 200))

	type scored struct {
		coord HexCoord
		score float64
	}
	var candidates []scored
	for _, c := range m.Coords() {
		if !m.Passable(c) {
			continue
		}
		// Small jitter so equally good hexes don't always cluster in one corner.
		s := spawnScore(m, nodes, c) + rng.Float64()*0.01
		candidates = append(candidates, scored{c, s})
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var points []HexCoord
	for _, c := range candidates {
		if len(points) >= count {
			break
		}
		if tooClose(c.coord, points, minSpacing) {
			continue
		}
		points = append(points, c.coord)
	}

	// Not enough room: reuse the best points.
	for i := 0; len(points) < count; i++ {
		points = append(points, points[i%len(points)])
	}
	return points
}

// spawnScore evaluates how survivable a hex is for a new agent.
func spawnScore(m *Map, nodes []*ResourceNode, coord HexCoord) float64 {
	score := 1.0

	// Water within a short walk matters most.
	for r := 1; r <= 3; r++ {
		found := false
		for _, c := range Ring(coord, r) {
			if h := m.Get(c); h != nil && h.Terrain == TerrainWater {
				found = true
				break
			}
		}
		if found {
			score += 3.0 / float64(r)
			break
		}
	}

	for _, n := range nodes {
		d := Distance(coord, n.Coord)
		if d > 4 {
			continue
		}
		switch n.Kind {
		case ResourceFood:
			score += 0.5
		default:
			score += 0.2
		}
	}
	return score
}

func tooClose(coord HexCoord, existing []HexCoord, minDist int) bool {
	for _, c := range existing {
		if Distance(coord, c) < minDist {
			return true
		}
	}
	return false
}
