// World generation using layered simplex noise.
// Generates elevation and moisture maps, derives terrain, then scatters
// resource nodes over the terrain that suits them.
package world

import (
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// ResourceSpec controls how many nodes of one kind are scattered and how they behave.
type ResourceSpec struct {
	Count int     `yaml:"count" json:"count"`
	Max   float64 `yaml:"max" json:"max"`
	Regen float64 `yaml:"regen" json:"regen"` // Units per simulated second
}

// GenConfig holds world generation parameters.
type GenConfig struct {
	Radius     int     // Hex grid radius
	Seed       int64   // Random seed (0 = random)
	WaterLevel float64 // Elevation below which hexes are water (0.0–1.0)
	RockLevel  float64 // Elevation above which hexes are rock (0.0–1.0)
	ForestWet  float64 // Moisture above which land is forest

	Food  ResourceSpec
	Wood  ResourceSpec
	Stone ResourceSpec
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:     14,
		Seed:       0,
		WaterLevel: 0.22,
		RockLevel:  0.74,
		ForestWet:  0.55,
		Food:       ResourceSpec{Count: 40, Max: 6, Regen: 0.01},
		Wood:       ResourceSpec{Count: 30, Max: 8, Regen: 0.002},
		Stone:      ResourceSpec{Count: 20, Max: 10, Regen: 0.001},
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Radius:     5,
		Seed:       42,
		WaterLevel: 0.20,
		RockLevel:  0.80,
		ForestWet:  0.55,
		Food:       ResourceSpec{Count: 8, Max: 6, Regen: 0.01},
		Wood:       ResourceSpec{Count: 6, Max: 8, Regen: 0.002},
		Stone:      ResourceSpec{Count: 4, Max: 10, Regen: 0.001},
	}
}

// Generate creates the terrain for a world map. Terrain is a pure function of
// the config, so a saved world only needs the config to rebuild it.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)

	m := NewMap(cfg.Radius)

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := HexCoord{Q: q, R: r}
			if !m.InBounds(coord) {
				continue
			}

			// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2
			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0

			elev := octaveNoise(elevNoise, x, y, 4, 0.12, 0.5)
			moist := octaveNoise(moistNoise, x, y, 3, 0.09, 0.5)

			// Lakes gather toward the rim; the middle of the map stays dry land.
			distFromCenter := math.Sqrt(x*x+y*y) / float64(max(cfg.Radius, 1))
			elev = elev*0.8 + 0.2 - math.Pow(distFromCenter, 4)*0.35
			elev = math.Max(0, math.Min(1, elev))

			m.Set(&Hex{
				Coord:     coord,
				Terrain:   deriveTerrain(elev, moist, cfg),
				Elevation: elev,
				Moisture:  moist,
			})
		}
	}

	// Keep the origin standable so there is always somewhere to spawn.
	if h := m.Get(HexCoord{}); h != nil && !h.Terrain.Passable() {
		h.Terrain = TerrainPlains
	}

	return m
}

// deriveTerrain determines terrain type from environmental parameters.
func deriveTerrain(elev, moist float64, cfg GenConfig) Terrain {
	switch {
	case elev < cfg.WaterLevel:
		return TerrainWater
	case elev > cfg.RockLevel:
		return TerrainRock
	case moist > cfg.ForestWet:
		return TerrainForest
	default:
		return TerrainPlains
	}
}

// PlaceResources scatters resource nodes deterministically for the seed.
// Food grows on plains, wood in forests and stone next to rock. When the
// preferred terrain is scarce, any passable hex is used.
func PlaceResources(m *Map, cfg GenConfig) []*ResourceNode {
	rng := rand.New(rand.NewSource(cfg.Seed + 100))
	taken := make(map[HexCoord]bool)
	var nodes []*ResourceNode
	nextID := NodeID(1)

	place := func(kind ResourceKind, spec ResourceSpec, prefer func(HexCoord, *Hex) bool) {
		var preferred, fallback []HexCoord
		for _, c := range m.Coords() {
			h := m.Get(c)
			if !h.Terrain.Passable() || taken[c] {
				continue
			}
			if prefer(c, h) {
				preferred = append(preferred, c)
			} else {
				fallback = append(fallback, c)
			}
		}
		rng.Shuffle(len(preferred), func(i, j int) { preferred[i], preferred[j] = preferred[j], preferred[i] })
		rng.Shuffle(len(fallback), func(i, j int) { fallback[i], fallback[j] = fallback[j], fallback[i] })

		for _, c := range append(preferred, fallback...) {
			if spec.Count <= 0 {
				break
			}
			taken[c] = true
			nodes = append(nodes, &ResourceNode{
				ID:       nextID,
				Kind:     kind,
				Coord:    c,
				Quantity: spec.Max,
				Max:      spec.Max,
				Regen:    spec.Regen,
			})
			nextID++
			spec.Count--
		}
	}

	place(ResourceFood, cfg.Food, func(_ HexCoord, h *Hex) bool { return h.Terrain == TerrainPlains })
	place(ResourceWood, cfg.Wood, func(_ HexCoord, h *Hex) bool { return h.Terrain == TerrainForest })
	place(ResourceStone, cfg.Stone, func(c HexCoord, _ *Hex) bool { return m.AdjacentTo(c, TerrainRock) })

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainCounts returns a summary of terrain type distribution.
func TerrainCounts(m *Map) map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, hex := range m.Hexes {
		counts[hex.Terrain]++
	}
	return counts
}

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainPlains:
		return "Plains"
	case TerrainForest:
		return "Forest"
	case TerrainRock:
		return "Rock"
	case TerrainWater:
		return "Water"
	default:
		return "Unknown"
	}
}
