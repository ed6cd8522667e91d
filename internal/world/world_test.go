package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Hex geometry
// ---------------------------------------------------------------------------

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b HexCoord
		want int
	}{
		{HexCoord{0, 0}, HexCoord{0, 0}, 0},
		{HexCoord{0, 0}, HexCoord{1, 0}, 1},
		{HexCoord{0, 0}, HexCoord{2, -1}, 2},
		{HexCoord{-3, 1}, HexCoord{2, -1}, 5},
		{HexCoord{1, 2}, HexCoord{-2, -1}, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Distance(tt.a, tt.b), "%v→%v", tt.a, tt.b)
		assert.Equal(t, tt.want, Distance(tt.b, tt.a), "symmetric %v→%v", tt.b, tt.a)
	}
}

func TestRing(t *testing.T) {
	center := HexCoord{Q: 1, R: -1}
	assert.Equal(t, []HexCoord{center}, Ring(center, 0))

	for r := 1; r <= 3; r++ {
		ring := Ring(center, r)
		assert.Len(t, ring, 6*r)
		seen := make(map[HexCoord]bool)
		for _, c := range ring {
			assert.Equal(t, r, Distance(center, c))
			assert.False(t, seen[c], "duplicate %v", c)
			seen[c] = true
		}
	}
}

func TestMapCoordsSorted(t *testing.T) {
	m := NewPlainsMap(3)
	coords := m.Coords()
	require.Len(t, coords, m.HexCount())
	for i := 1; i < len(coords); i++ {
		assert.True(t, coords[i-1].Less(coords[i]))
	}
	// 3R(R+1)+1 hexes for radius R.
	assert.Equal(t, 37, m.HexCount())
}

// ---------------------------------------------------------------------------
// Pathfinding
// ---------------------------------------------------------------------------

func TestFindPathOpenPlains(t *testing.T) {
	m := NewPlainsMap(6)
	from := HexCoord{Q: -3, R: 1}
	to := HexCoord{Q: 3, R: -2}

	path, err := FindPath(from, to, m.Passable, 0)
	require.NoError(t, err)
	assert.Len(t, path, Distance(from, to))
	assert.Equal(t, to, path[len(path)-1])

	prev := from
	for _, step := range path {
		assert.Equal(t, 1, Distance(prev, step))
		prev = step
	}
}

func TestFindPathSameHex(t *testing.T) {
	m := NewPlainsMap(2)
	path, err := FindPath(HexCoord{}, HexCoord{}, m.Passable, 0)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestFindPathWaterBarrier(t *testing.T) {
	m := NewPlainsMap(4)
	for _, c := range m.Coords() {
		if c.Q == 0 {
			m.SetTerrain(c, TerrainWater)
		}
	}

	_, err := FindPath(HexCoord{Q: -2, R: 0}, HexCoord{Q: 2, R: 0}, m.Passable, 0)
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestFindPathDetour(t *testing.T) {
	m := NewPlainsMap(4)
	// Wall with a gap at the top edge.
	for r := -1; r <= 4; r++ {
		m.SetTerrain(HexCoord{Q: 0, R: r}, TerrainRock)
	}
	from := HexCoord{Q: -2, R: 1}
	to := HexCoord{Q: 2, R: 0}

	path, err := FindPath(from, to, m.Passable, 0)
	require.NoError(t, err)
	assert.Greater(t, len(path), Distance(from, to))
	for _, c := range path {
		assert.True(t, m.Passable(c))
	}
}

func TestFindPathLimit(t *testing.T) {
	m := NewPlainsMap(10)
	_, err := FindPath(HexCoord{Q: -9, R: 0}, HexCoord{Q: 9, R: 0}, m.Passable, 5)
	assert.ErrorIs(t, err, ErrNoPath)
}

// ---------------------------------------------------------------------------
// Resource nodes
// ---------------------------------------------------------------------------

func TestResourceNodeTake(t *testing.T) {
	n := &ResourceNode{Kind: ResourceFood, Quantity: 2.5, Max: 6}

	assert.Equal(t, 2, n.Available())
	assert.Equal(t, 1, n.Take(1))
	assert.Equal(t, 1, n.Take(5))
	assert.Equal(t, 0, n.Take(1))
	assert.GreaterOrEqual(t, n.Quantity, 0.0)
	assert.InDelta(t, 0.5, n.Quantity, 1e-9)
	assert.Equal(t, 0, n.Take(-3))
}

func TestResourceNodeRegrowAndExhaustion(t *testing.T) {
	n := &ResourceNode{Kind: ResourceFood, Quantity: 0, Max: 3, Regen: 0.5}
	assert.False(t, n.Exhausted(), "regenerating nodes are never exhausted")

	n.Regrow(4, 1)
	assert.InDelta(t, 2.0, n.Quantity, 1e-9)
	n.Regrow(100, 1)
	assert.InDelta(t, 3.0, n.Quantity, 1e-9)

	dead := &ResourceNode{Kind: ResourceStone, Quantity: 1, Max: 1}
	assert.False(t, dead.Exhausted())
	dead.Take(1)
	assert.True(t, dead.Exhausted())
}

func TestResourceKindNames(t *testing.T) {
	for _, k := range ResourceKinds {
		parsed, ok := ParseResourceKind(k.String())
		require.True(t, ok)
		assert.Equal(t, k, parsed)
	}
	_, ok := ParseResourceKind("mithril")
	assert.False(t, ok)

	kind, ok := ParseStructureKind("workbench")
	require.True(t, ok)
	assert.Equal(t, StructureWorkbench, kind)
	assert.False(t, StructureWorkbench.Blocks())
	assert.True(t, StructureShelter.Blocks())
}

// ---------------------------------------------------------------------------
// Generation
// ---------------------------------------------------------------------------

func TestGenerateDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate(cfg)
	b := Generate(cfg)

	require.Equal(t, a.HexCount(), b.HexCount())
	for _, c := range a.Coords() {
		assert.Equal(t, a.Get(c).Terrain, b.Get(c).Terrain, "terrain at %v", c)
	}
	assert.True(t, a.Passable(HexCoord{}), "origin must be standable")
}

func TestPlaceResources(t *testing.T) {
	cfg := SmallTestConfig()
	m := Generate(cfg)
	nodes := PlaceResources(m, cfg)
	again := PlaceResources(m, cfg)
	require.Equal(t, len(nodes), len(again))

	counts := make(map[ResourceKind]int)
	coords := make(map[HexCoord]bool)
	for i, n := range nodes {
		counts[n.Kind]++
		assert.True(t, m.Passable(n.Coord), "node %d on impassable hex", n.ID)
		assert.False(t, coords[n.Coord], "two nodes share %v", n.Coord)
		coords[n.Coord] = true
		assert.Equal(t, *n, *again[i])
	}
	assert.LessOrEqual(t, counts[ResourceFood], cfg.Food.Count)
	assert.Greater(t, counts[ResourceFood], 0)
}

func TestPlaceSpawnPoints(t *testing.T) {
	cfg := SmallTestConfig()
	m := Generate(cfg)
	nodes := PlaceResources(m, cfg)

	points := PlaceSpawnPoints(m, nodes, 5, 2, cfg.Seed)
	require.Len(t, points, 5)
	for _, p := range points {
		assert.True(t, m.Passable(p))
	}
	assert.Equal(t, points, PlaceSpawnPoints(m, nodes, 5, 2, cfg.Seed))
}
