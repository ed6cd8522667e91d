// Package social provides the ephemeral signal board agents perceive each
// tick and the arithmetic for directed relationship scores.
package social

import (
	"sort"

	"github.com/talgya/homestead/internal/world"
)

// SignalKind identifies what a signal announces.
type SignalKind uint8

const (
	SignalHelpFood   SignalKind = iota // Sender is starving and has nothing to eat
	SignalHelpWater                    // Sender is parched and cannot reach water
	SignalFoundFood                    // Sender found food at Coord
	SignalFoundWater                   // Sender found drinkable water beside Coord
)

var signalNames = [...]string{"help_food", "help_water", "found_food", "found_water"}

func (k SignalKind) String() string {
	if int(k) < len(signalNames) {
		return signalNames[k]
	}
	return "unknown"
}

// IsHelp reports whether the signal asks for help.
func (k SignalKind) IsHelp() bool { return k == SignalHelpFood || k == SignalHelpWater }

// Signal is a broadcast or targeted message. Signals live for one tick.
type Signal struct {
	Kind   SignalKind     `json:"kind"`
	Sender uint64         `json:"sender"`
	Origin world.HexCoord `json:"origin"`
	Target uint64         `json:"target,omitempty"` // 0 = everyone in range
	Coord  world.HexCoord `json:"coord"`            // Location the signal refers to
}

// Listener is a potential recipient's identity and position at emission time.
type Listener struct {
	ID       uint64
	Position world.HexCoord
}

// Board collects the signals emitted during one tick. Visibility is decided
// when a signal is broadcast, so listeners that move later in the tick still
// see exactly what was in range when it was sent.
type Board struct {
	radius int
	inbox  map[uint64][]Signal
	sent   int
}

// NewBoard creates a board with the given perception radius in hexes.
func NewBoard(radius int) *Board {
	return &Board{radius: radius, inbox: make(map[uint64][]Signal)}
}

// Radius is the perception radius.
func (b *Board) Radius() int { return b.radius }

// Broadcast delivers sig to every listener within the perception radius of
// its origin, other than the sender. A targeted signal reaches only its
// target, and only when in range. Returns the number of recipients.
func (b *Board) Broadcast(sig Signal, listeners []Listener) int {
	b.sent++
	n := 0
	for _, l := range listeners {
		if l.ID == sig.Sender {
			continue
		}
		if sig.Target != 0 && l.ID != sig.Target {
			continue
		}
		if world.Distance(sig.Origin, l.Position) > b.radius {
			continue
		}
		b.inbox[l.ID] = append(b.inbox[l.ID], sig)
		n++
	}
	return n
}

// For returns the signals visible to an agent this tick, in emission order.
func (b *Board) For(id uint64) []Signal {
	return b.inbox[id]
}

// Recipients lists agents with at least one pending signal, ascending.
func (b *Board) Recipients() []uint64 {
	ids := make([]uint64, 0, len(b.inbox))
	for id := range b.inbox {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Sent is the number of signals broadcast since the last Clear.
func (b *Board) Sent() int { return b.sent }

// Clear drops every signal. Called at the end of each tick.
func (b *Board) Clear() {
	clear(b.inbox)
	b.sent = 0
}
