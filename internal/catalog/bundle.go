package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Bundle is a multiset of items: item → count. Zero and negative counts are
// treated as absent.
type Bundle map[ItemID]int

// Kinds returns the item IDs with a positive count, sorted.
func (b Bundle) Kinds() []ItemID {
	kinds := make([]ItemID, 0, len(b))
	for id, n := range b {
		if n > 0 {
			kinds = append(kinds, id)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Total returns the number of units in the bundle.
func (b Bundle) Total() int {
	total := 0
	for _, n := range b {
		if n > 0 {
			total += n
		}
	}
	return total
}

// Covers reports whether b holds at least the counts in req.
func (b Bundle) Covers(req Bundle) bool {
	for id, n := range req {
		if n > 0 && b[id] < n {
			return false
		}
	}
	return true
}

// SameKinds reports whether both bundles contain exactly the same item kinds.
func (b Bundle) SameKinds(o Bundle) bool {
	bk, ok := b.Kinds(), o.Kinds()
	if len(bk) != len(ok) {
		return false
	}
	for i := range bk {
		if bk[i] != ok[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy without empty entries.
func (b Bundle) Clone() Bundle {
	out := make(Bundle, len(b))
	for id, n := range b {
		if n > 0 {
			out[id] = n
		}
	}
	return out
}

// Signature renders the bundle canonically, e.g. "stone:1,wood:2".
func (b Bundle) Signature() string {
	kinds := b.Kinds()
	parts := make([]string, len(kinds))
	for i, id := range kinds {
		parts[i] = fmt.Sprintf("%s:%d", id, b[id])
	}
	return strings.Join(parts, ",")
}

// String implements fmt.Stringer.
func (b Bundle) String() string {
	return "{" + b.Signature() + "}"
}
