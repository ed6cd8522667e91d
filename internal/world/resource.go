package world

import "math"

// ResourceKind enumerates harvestable resources and remembered landmarks.
type ResourceKind uint8

const (
	ResourceFood  ResourceKind = iota // Berry bushes on plains
	ResourceWood                      // Trees in forests
	ResourceStone                     // Boulders at the foot of rock
	ResourceWater                     // Shorelines; terrain, never a node
)

// ResourceKinds lists every kind in declaration order.
var ResourceKinds = []ResourceKind{ResourceFood, ResourceWood, ResourceStone, ResourceWater}

var resourceNames = [...]string{"food", "wood", "stone", "water"}

// String returns the lowercase kind name used in configs and logs.
func (k ResourceKind) String() string {
	if int(k) < len(resourceNames) {
		return resourceNames[k]
	}
	return "unknown"
}

// ParseResourceKind is the inverse of String.
func ParseResourceKind(s string) (ResourceKind, bool) {
	for i, n := range resourceNames {
		if n == s {
			return ResourceKind(i), true
		}
	}
	return 0, false
}

// NodeID identifies a resource node for the lifetime of a world.
type NodeID uint64

// ResourceNode is a harvestable stock at a fixed coordinate.
// Quantity is fractional so that regrowth can accumulate between harvests;
// only whole units are ever taken.
type ResourceNode struct {
	ID       NodeID       `json:"id"`
	Kind     ResourceKind `json:"kind"`
	Coord    HexCoord     `json:"coord"`
	Quantity float64      `json:"quantity"`
	Max      float64      `json:"max"`
	Regen    float64      `json:"regen"` // Units per simulated second
}

// Available returns the number of whole units that can be taken now.
func (n *ResourceNode) Available() int {
	if n.Quantity < 1 {
		return 0
	}
	return int(math.Floor(n.Quantity))
}

// Take removes up to units whole units and returns how many were removed.
// Quantity never goes negative.
func (n *ResourceNode) Take(units int) int {
	if units <= 0 {
		return 0
	}
	got := min(units, n.Available())
	n.Quantity -= float64(got)
	if n.Quantity < 0 {
		n.Quantity = 0
	}
	return got
}

// Regrow adds regeneration for dt seconds scaled by mult, capped at Max.
func (n *ResourceNode) Regrow(dt, mult float64) {
	if n.Regen <= 0 || dt <= 0 || mult <= 0 {
		return
	}
	n.Quantity = math.Min(n.Max, n.Quantity+n.Regen*mult*dt)
}

// Exhausted reports a node that is empty and will never refill.
// Exhausted nodes are dropped from the spatial index.
func (n *ResourceNode) Exhausted() bool {
	return n.Quantity < 1 && n.Regen <= 0
}
