// Package world provides the hex grid, terrain, resource nodes, structures
// and the spatial primitives the agents navigate.
// Uses axial coordinates (q, r) for the hex grid.
package world

import "fmt"

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// String renders the coordinate as "(q,r)".
func (h HexCoord) String() string {
	return fmt.Sprintf("(%d,%d)", h.Q, h.R)
}

// Less orders coordinates by q then r. Used wherever iteration order must be stable.
func (h HexCoord) Less(o HexCoord) bool {
	if h.Q != o.Q {
		return h.Q < o.Q
	}
	return h.R < o.R
}

// Terrain types for hex tiles.
type Terrain uint8

const (
	TerrainPlains Terrain = iota // Open ground, food grows here
	TerrainForest                // Walkable, timber
	TerrainRock                  // Impassable outcrop, stone at its edges
	TerrainWater                 // Impassable; agents drink from adjacent hexes
)

// Passable reports whether agents can stand on this terrain.
func (t Terrain) Passable() bool {
	return t == TerrainPlains || t == TerrainForest
}

// Hex represents a single tile on the world map.
type Hex struct {
	Coord   HexCoord `json:"coord"`
	Terrain Terrain  `json:"terrain"`

	// Set during world generation.
	Elevation float64 `json:"elevation"` // 0.0 (lowland) to 1.0 (peak)
	Moisture  float64 `json:"moisture"`  // 0.0 (arid) to 1.0 (wet)
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	// Max of the three absolute differences in cube coordinates.
	return max(dq, dr, ds)
}

// Ring returns every coordinate at exactly distance radius from center,
// walking the ring in a fixed order.
func Ring(center HexCoord, radius int) []HexCoord {
	if radius <= 0 {
		return []HexCoord{center}
	}
	results := make([]HexCoord, 0, 6*radius)
	dir := HexNeighborDirections[4]
	cur := HexCoord{Q: center.Q + dir.Q*radius, R: center.R + dir.R*radius}
	for side := 0; side < 6; side++ {
		for step := 0; step < radius; step++ {
			results = append(results, cur)
			d := HexNeighborDirections[side]
			cur = HexCoord{Q: cur.Q + d.Q, R: cur.R + d.R}
		}
	}
	return results
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
