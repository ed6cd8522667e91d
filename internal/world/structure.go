package world

import "errors"

// ErrOccupied is returned when a structure is placed on a hex that cannot take it.
var ErrOccupied = errors.New("hex occupied")

// StructureKind enumerates placeable world objects.
type StructureKind uint8

const (
	StructureNone      StructureKind = iota
	StructureWorkbench               // Crafting station, does not block movement
	StructureShelter                 // Blocks movement; resting beside it is faster
)

var structureNames = [...]string{"", "workbench", "shelter"}

// String returns the lowercase structure name used in the catalog.
func (k StructureKind) String() string {
	if int(k) < len(structureNames) {
		return structureNames[k]
	}
	return "unknown"
}

// ParseStructureKind resolves a catalog name. The empty string is StructureNone.
func ParseStructureKind(s string) (StructureKind, bool) {
	for i, n := range structureNames {
		if n == s {
			return StructureKind(i), true
		}
	}
	return StructureNone, false
}

// Blocks reports whether the structure makes its hex impassable.
func (k StructureKind) Blocks() bool {
	return k == StructureShelter
}

// Structure is a placed, persistent object.
type Structure struct {
	ID      uint64        `json:"id"`
	Kind    StructureKind `json:"kind"`
	Coord   HexCoord      `json:"coord"`
	Builder uint64        `json:"builder"` // Agent ID of the builder, 0 if generated
}
