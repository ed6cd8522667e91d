package agents

import (
	"fmt"
	"math"
	"sort"

	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/social"
	"github.com/talgya/homestead/internal/world"
)

// ItemCount is one inventory stack in a record.
type ItemCount struct {
	Item  catalog.ItemID `json:"item"`
	Count int            `json:"count"`
}

// Record is the flat persisted form of an agent. It carries everything
// except the running action and the world link; sets are stored as sorted
// lists so saves are stable.
type Record struct {
	ID       AgentID        `json:"id"`
	Name     string         `json:"name"`
	Position world.HexCoord `json:"position"`
	Health   float64        `json:"health"`
	Age      float64        `json:"age"`
	Alive    bool           `json:"alive"`
	Cause    DeathCause     `json:"cause,omitempty"`
	BornTick uint64         `json:"born_tick"`

	Needs       Needs       `json:"needs"`
	Personality Personality `json:"personality"`

	Inventory     []ItemCount         `json:"inventory"`
	Skills        []SkillEntry        `json:"skills"`
	Recipes       []catalog.RecipeID  `json:"recipes"`
	Locations     []LocationEntry     `json:"locations"`
	Relationships []RelationshipEntry `json:"relationships"`
	Failed        []string            `json:"failed_inventions"`
	Memories      []Memory            `json:"memories"`
	LastSignal    float64             `json:"last_signal"`
}

// Record exports the agent.
func (a *Agent) Record() Record {
	r := Record{
		ID:            a.ID,
		Name:          a.Name,
		Position:      a.Position,
		Health:        a.Health,
		Age:           a.Age,
		Alive:         a.Alive,
		Cause:         a.Cause,
		BornTick:      a.BornTick,
		Needs:         a.Needs,
		Personality:   a.Personality,
		Skills:        a.Skills.Entries(),
		Recipes:       a.Knowledge.Recipes(),
		Locations:     a.Knowledge.Locations(),
		Relationships: a.Knowledge.Relationships(),
		Failed:        a.Knowledge.FailedAttempts(),
		Memories:      append([]Memory(nil), a.Memories...),
		LastSignal:    a.lastSignal,
	}
	for _, id := range a.Inventory.Kinds() {
		r.Inventory = append(r.Inventory, ItemCount{Item: id, Count: a.Inventory[id]})
	}
	return r
}

// FromRecord rebuilds an agent. The agent starts Idle and detached; the
// caller re-links it with Attach. Out-of-range values and references to
// unknown catalog entries are rejected rather than repaired.
func FromRecord(r Record, rules *Rules) (*Agent, error) {
	if r.ID == 0 {
		return nil, fmt.Errorf("agent record without id")
	}
	for name, v := range map[string]float64{
		"health": r.Health, "hunger": r.Needs.Hunger, "thirst": r.Needs.Thirst,
		"energy": r.Needs.Energy, "social": r.Needs.Social,
		"curiosity": r.Personality.Curiosity, "sociability": r.Personality.Sociability,
		"helpfulness": r.Personality.Helpfulness, "intelligence": r.Personality.Intelligence,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, fmt.Errorf("agent %d: %s %v out of range", r.ID, name, v)
		}
	}
	if math.IsNaN(r.Age) || r.Age < 0 {
		return nil, fmt.Errorf("agent %d: age %v out of range", r.ID, r.Age)
	}

	a := newAgent(r.ID, r.Name, r.Position, rules.Tuning.Skills.Curve)
	a.Health = r.Health
	a.Age = r.Age
	a.Alive = r.Alive
	a.Cause = r.Cause
	a.BornTick = r.BornTick
	a.Needs = r.Needs
	a.Personality = r.Personality
	a.lastSignal = r.LastSignal
	a.Memories = append([]Memory(nil), r.Memories...)

	cat := rules.Catalog
	for _, st := range r.Inventory {
		if _, ok := cat.Item(st.Item); !ok || st.Count < 0 {
			return nil, fmt.Errorf("agent %d: bad inventory stack %s x%d", r.ID, st.Item, st.Count)
		}
		a.Inventory.Add(st.Item, st.Count)
	}
	for _, e := range r.Skills {
		if _, ok := cat.Skill(e.Skill); !ok || e.XP < 0 || math.IsNaN(e.XP) {
			return nil, fmt.Errorf("agent %d: bad skill %s", r.ID, e.Skill)
		}
		a.Skills.restore(e)
	}
	for _, id := range r.Recipes {
		if _, ok := cat.Recipe(id); !ok {
			return nil, fmt.Errorf("agent %d: unknown recipe %s", r.ID, id)
		}
		a.Knowledge.LearnRecipe(id)
	}
	for _, l := range r.Locations {
		a.Knowledge.RememberLocation(l.Kind, l.Coord, l.LastSeen)
	}
	for _, rel := range r.Relationships {
		if rel.Score < social.MinScore || rel.Score > social.MaxScore || math.IsNaN(rel.Score) {
			return nil, fmt.Errorf("agent %d: relationship with %d out of range", r.ID, rel.Other)
		}
		a.Knowledge.relationships[rel.Other] = rel.Score
	}
	for _, sig := range r.Failed {
		a.Knowledge.MarkFailed(sig)
	}
	sort.SliceStable(a.Memories, func(i, j int) bool { return a.Memories[i].Tick < a.Memories[j].Tick })
	return a, nil
}
