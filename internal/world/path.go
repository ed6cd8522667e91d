// A* pathfinding over the hex grid.
package world

import (
	"container/heap"
	"errors"
)

// ErrNoPath is returned when the goal cannot be reached.
var ErrNoPath = errors.New("no path")

// DefaultPathLimit bounds how many hexes a single search may expand.
const DefaultPathLimit = 4096

// FindPath returns the waypoints from `from` to `to`, excluding `from` and
// including `to`. passable decides which hexes may be entered; the start hex
// is always allowed. An empty slice means the agent is already there.
func FindPath(from, to HexCoord, passable func(HexCoord) bool, limit int) ([]HexCoord, error) {
	if from == to {
		return []HexCoord{}, nil
	}
	if !passable(to) {
		return nil, ErrNoPath
	}
	if limit <= 0 {
		limit = DefaultPathLimit
	}

	open := &openSet{}
	heap.Push(open, &pathNode{coord: from, g: 0, f: Distance(from, to)})
	cameFrom := make(map[HexCoord]HexCoord)
	gScore := map[HexCoord]int{from: 0}
	closed := make(map[HexCoord]bool)

	expanded := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if closed[cur.coord] {
			continue // Stale entry superseded by a cheaper push.
		}
		if cur.coord == to {
			return reconstruct(cameFrom, from, to), nil
		}
		closed[cur.coord] = true

		expanded++
		if expanded > limit {
			break
		}

		for _, n := range cur.coord.Neighbors() {
			if closed[n] || !passable(n) {
				continue
			}
			g := cur.g + 1
			if old, seen := gScore[n]; seen && g >= old {
				continue
			}
			gScore[n] = g
			cameFrom[n] = cur.coord
			heap.Push(open, &pathNode{coord: n, g: g, f: g + Distance(n, to)})
		}
	}
	return nil, ErrNoPath
}

func reconstruct(cameFrom map[HexCoord]HexCoord, from, to HexCoord) []HexCoord {
	var rev []HexCoord
	for c := to; c != from; c = cameFrom[c] {
		rev = append(rev, c)
	}
	path := make([]HexCoord, len(rev))
	for i, c := range rev {
		path[len(rev)-1-i] = c
	}
	return path
}

type pathNode struct {
	coord HexCoord
	g, f  int
}

// openSet is a min-heap on f, then remaining estimate, then coordinate,
// which keeps equal-cost searches reproducible.
type openSet []*pathNode

func (o openSet) Len() int { return len(o) }

func (o openSet) Less(i, j int) bool {
	a, b := o[i], o[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if ha, hb := a.f-a.g, b.f-b.g; ha != hb {
		return ha < hb
	}
	return a.coord.Less(b.coord)
}

func (o openSet) Swap(i, j int) { o[i], o[j] = o[j], o[i] }

func (o *openSet) Push(x any) { *o = append(*o, x.(*pathNode)) }

func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*o = old[:n-1]
	return item
}
