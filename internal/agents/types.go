// Package agents provides the agent data model and everything an agent does
// on its own turn: needs, skills, knowledge, deciding, acting, inventing and
// interacting with other agents.
package agents

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/config"
	"github.com/talgya/homestead/internal/world"
)

// AgentID is a unique identifier for an agent. IDs are never reused.
type AgentID uint64

// DeathCause records why an agent died.
type DeathCause uint8

const (
	CauseNone DeathCause = iota
	CauseStarvation
	CauseDehydration
	CauseExhaustion
	CauseSenescence
	CauseHazard
)

var causeNames = [...]string{"", "starvation", "dehydration", "exhaustion", "old age", "hazard"}

func (c DeathCause) String() string {
	if int(c) < len(causeNames) {
		return causeNames[c]
	}
	return "unknown"
}

// Rules bundles the static data every agent operation reads.
type Rules struct {
	Tuning  config.Tuning
	Catalog *catalog.Catalog
}

// NewRules pairs a tuning document with a validated catalog.
func NewRules(t config.Tuning, c *catalog.Catalog) *Rules {
	return &Rules{Tuning: t, Catalog: c}
}

// Agent is one simulated individual.
type Agent struct {
	ID       AgentID        `json:"id"`
	Name     string         `json:"name"`
	Position world.HexCoord `json:"position"`

	Health   float64    `json:"health"` // 0.0–1.0
	Age      float64    `json:"age"`    // Simulated seconds lived
	Alive    bool       `json:"alive"`
	Cause    DeathCause `json:"cause,omitempty"`
	BornTick uint64     `json:"born_tick"`

	Needs       Needs        `json:"needs"`
	Inventory   Inventory    `json:"inventory"`
	Skills      *SkillLedger `json:"-"`
	Knowledge   *Knowledge   `json:"-"`
	Personality Personality  `json:"personality"`
	Memories    []Memory     `json:"memories,omitempty"`

	// Action is the running action. It is never persisted.
	Action Action `json:"-"`

	world      uuid.UUID
	contact    bool          // Social contact this tick
	heard      []heardSignal // Help requests perceived last tick
	lastSignal float64       // Age at the last help signal, -1 if never

	unreachable map[world.HexCoord]float64 // Age when routing to the hex failed
}

// newAgent returns a living agent with empty state.
func newAgent(id AgentID, name string, pos world.HexCoord, curve []float64) *Agent {
	return &Agent{
		ID:         id,
		Name:       name,
		Position:   pos,
		Health:     1,
		Alive:      true,
		Needs:      Needs{Hunger: 1, Thirst: 1, Energy: 1, Social: 1},
		Inventory:  Inventory{},
		Skills:     NewSkillLedger(curve),
		Knowledge:  NewKnowledge(),
		lastSignal: -1,
	}
}

// Attach links the agent to the world it lives in. The link is a lookup key,
// not a reference, and is never persisted; loaders call Attach after restore.
func (a *Agent) Attach(worldID uuid.UUID) { a.world = worldID }

// WorldID returns the world the agent is linked to, uuid.Nil when detached.
func (a *Agent) WorldID() uuid.UUID { return a.world }

// Kill marks the agent dead. Health is forced to zero so that death is
// always preceded by a zero health reading.
func (a *Agent) Kill(cause DeathCause) {
	if !a.Alive {
		return
	}
	a.Health = 0
	a.Alive = false
	a.Cause = cause
	a.Action = Action{}
	a.heard = nil
	a.unreachable = nil
}

func (a *Agent) String() string {
	return fmt.Sprintf("%s (#%d)", a.Name, a.ID)
}

// Inventory maps item kinds to counts. Counts never go negative; empty
// stacks are removed.
type Inventory map[catalog.ItemID]int

// Count returns how many of an item are held.
func (inv Inventory) Count(id catalog.ItemID) int { return inv[id] }

// Total returns the number of units held.
func (inv Inventory) Total() int {
	n := 0
	for _, c := range inv {
		n += c
	}
	return n
}

// Kinds returns the held item kinds in ID order.
func (inv Inventory) Kinds() []catalog.ItemID {
	out := make([]catalog.ItemID, 0, len(inv))
	for id, c := range inv {
		if c > 0 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Add puts n units of an item in the inventory. Non-positive n is ignored.
func (inv Inventory) Add(id catalog.ItemID, n int) {
	if n <= 0 {
		return
	}
	inv[id] += n
}

// Remove takes n units or, if fewer are held, nothing.
func (inv Inventory) Remove(id catalog.ItemID, n int) error {
	if n <= 0 {
		return nil
	}
	if inv[id] < n {
		return fmt.Errorf("%w: want %d %s, have %d", ErrInsufficientResources, n, id, inv[id])
	}
	inv[id] -= n
	if inv[id] == 0 {
		delete(inv, id)
	}
	return nil
}

// Has reports whether the inventory covers a bundle.
func (inv Inventory) Has(b catalog.Bundle) bool {
	for id, n := range b {
		if inv[id] < n {
			return false
		}
	}
	return true
}

// Consume removes a whole bundle atomically.
func (inv Inventory) Consume(b catalog.Bundle) error {
	if !inv.Has(b) {
		return fmt.Errorf("%w: missing part of %s", ErrInsufficientResources, b)
	}
	for _, id := range b.Kinds() {
		_ = inv.Remove(id, b[id])
	}
	return nil
}

// Bundle returns the held items as a bundle.
func (inv Inventory) Bundle() catalog.Bundle {
	b := make(catalog.Bundle, len(inv))
	for id, c := range inv {
		if c > 0 {
			b[id] = c
		}
	}
	return b
}

// Clone returns an independent copy.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for id, c := range inv {
		out[id] = c
	}
	return out
}
