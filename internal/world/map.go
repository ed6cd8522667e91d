package world

import (
	"fmt"
	"sort"
)

// Map holds the complete hex grid terrain.
type Map struct {
	Hexes  map[HexCoord]*Hex `json:"-"` // All hexes keyed by coordinate
	Radius int               `json:"radius"`
}

// NewMap creates an empty map with the given radius.
// A hex grid of radius R contains hexes where max(|q|, |r|, |s|) <= R.
func NewMap(radius int) *Map {
	m := &Map{
		Hexes:  make(map[HexCoord]*Hex),
		Radius: radius,
	}
	return m
}

// NewPlainsMap returns a fully populated map of open plains. Handy for
// scenarios that need predictable terrain.
func NewPlainsMap(radius int) *Map {
	m := NewMap(radius)
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			c := HexCoord{Q: q, R: r}
			if m.InBounds(c) {
				m.Set(&Hex{Coord: c, Terrain: TerrainPlains})
			}
		}
	}
	return m
}

// Get returns the hex at the given coordinate, or nil if out of bounds.
func (m *Map) Get(coord HexCoord) *Hex {
	return m.Hexes[coord]
}

// Set places a hex at the given coordinate.
func (m *Map) Set(hex *Hex) {
	m.Hexes[hex.Coord] = hex
}

// SetTerrain overwrites the terrain of an existing hex. No-op off the map.
func (m *Map) SetTerrain(coord HexCoord, t Terrain) {
	if h := m.Get(coord); h != nil {
		h.Terrain = t
	}
}

// InBounds returns true if the coordinate is within the map radius.
func (m *Map) InBounds(coord HexCoord) bool {
	return Distance(HexCoord{}, coord) <= m.Radius
}

// Passable reports whether the terrain at coord can be stood on.
// Structures are not considered here; see the simulation's walkability query.
func (m *Map) Passable(coord HexCoord) bool {
	h := m.Get(coord)
	return h != nil && h.Terrain.Passable()
}

// AdjacentTo reports whether any neighbor of coord has terrain t.
func (m *Map) AdjacentTo(coord HexCoord, t Terrain) bool {
	for _, n := range coord.Neighbors() {
		if h := m.Get(n); h != nil && h.Terrain == t {
			return true
		}
	}
	return false
}

// Coords returns every coordinate on the map sorted by (q, r).
func (m *Map) Coords() []HexCoord {
	coords := make([]HexCoord, 0, len(m.Hexes))
	for c := range m.Hexes {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
	return coords
}

// HexCount returns the total number of hexes in the map.
func (m *Map) HexCount() int {
	return len(m.Hexes)
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(radius=%d, hexes=%d)", m.Radius, m.HexCount())
}
