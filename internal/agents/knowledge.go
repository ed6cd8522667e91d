package agents

import (
	"sort"

	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/social"
	"github.com/talgya/homestead/internal/world"
)

// Knowledge is what an agent has learned: recipes, where resources are,
// opinions of other agents, and invention attempts that went nowhere.
// Timestamps are the agent's own age, so forgetting depends only on
// elapsed simulated time.
type Knowledge struct {
	recipes       map[catalog.RecipeID]struct{}
	locations     map[world.ResourceKind]map[world.HexCoord]float64 // Last seen
	relationships map[AgentID]float64
	failed        map[string]struct{} // Bundle signatures
}

// NewKnowledge returns an empty store.
func NewKnowledge() *Knowledge {
	return &Knowledge{
		recipes:       make(map[catalog.RecipeID]struct{}),
		locations:     make(map[world.ResourceKind]map[world.HexCoord]float64),
		relationships: make(map[AgentID]float64),
		failed:        make(map[string]struct{}),
	}
}

// LearnRecipe adds a recipe. Returns false if it was already known.
func (k *Knowledge) LearnRecipe(id catalog.RecipeID) bool {
	if _, ok := k.recipes[id]; ok {
		return false
	}
	k.recipes[id] = struct{}{}
	return true
}

// KnowsRecipe reports whether a recipe is known.
func (k *Knowledge) KnowsRecipe(id catalog.RecipeID) bool {
	_, ok := k.recipes[id]
	return ok
}

// Recipes returns known recipes in ID order.
func (k *Knowledge) Recipes() []catalog.RecipeID {
	out := make([]catalog.RecipeID, 0, len(k.recipes))
	for id := range k.recipes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RememberLocation records seeing a resource at coord. Returns true when
// the location was new.
func (k *Knowledge) RememberLocation(kind world.ResourceKind, coord world.HexCoord, now float64) bool {
	m, ok := k.locations[kind]
	if !ok {
		m = make(map[world.HexCoord]float64)
		k.locations[kind] = m
	}
	_, known := m[coord]
	m[coord] = now
	return !known
}

// ForgetLocation drops a location, e.g. once the node there is gone.
func (k *Knowledge) ForgetLocation(kind world.ResourceKind, coord world.HexCoord) {
	delete(k.locations[kind], coord)
}

// KnownLocations returns remembered coordinates of a kind, sorted.
func (k *Knowledge) KnownLocations(kind world.ResourceKind) []world.HexCoord {
	m := k.locations[kind]
	out := make([]world.HexCoord, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Forget drops every location not seen within horizon seconds of now.
func (k *Knowledge) Forget(now, horizon float64) int {
	if horizon <= 0 {
		return 0
	}
	n := 0
	for _, m := range k.locations {
		for c, seen := range m {
			if now-seen > horizon {
				delete(m, c)
				n++
			}
		}
	}
	return n
}

// Relationship returns this agent's opinion of another, neutral if unknown.
func (k *Knowledge) Relationship(other AgentID) float64 {
	if s, ok := k.relationships[other]; ok {
		return s
	}
	return social.NeutralScore
}

// AdjustRelationship changes an opinion by delta, clamped to range.
func (k *Knowledge) AdjustRelationship(other AgentID, delta float64) float64 {
	s := social.Adjust(k.Relationship(other), delta)
	k.relationships[other] = s
	return s
}

// DecayRelationships drifts every opinion toward neutral. Opinions that
// reach neutral are dropped.
func (k *Knowledge) DecayRelationships(rate, dt float64) {
	for id, s := range k.relationships {
		s = social.Decay(s, rate, dt)
		if s == social.NeutralScore {
			delete(k.relationships, id)
			continue
		}
		k.relationships[id] = s
	}
}

// RelationshipEntry is one directed opinion.
type RelationshipEntry struct {
	Other AgentID `json:"other"`
	Score float64 `json:"score"`
}

// Relationships returns every non-neutral opinion ordered by agent ID.
func (k *Knowledge) Relationships() []RelationshipEntry {
	out := make([]RelationshipEntry, 0, len(k.relationships))
	for id, s := range k.relationships {
		out = append(out, RelationshipEntry{Other: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Other < out[j].Other })
	return out
}

// MarkFailed remembers an invention attempt that matched nothing.
func (k *Knowledge) MarkFailed(signature string) { k.failed[signature] = struct{}{} }

// HasFailed reports whether an attempt with this signature already failed.
func (k *Knowledge) HasFailed(signature string) bool {
	_, ok := k.failed[signature]
	return ok
}

// FailedAttempts returns failed signatures in sorted order.
func (k *Knowledge) FailedAttempts() []string {
	out := make([]string, 0, len(k.failed))
	for s := range k.failed {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// LocationEntry is one remembered location.
type LocationEntry struct {
	Kind     world.ResourceKind `json:"kind"`
	Coord    world.HexCoord     `json:"coord"`
	LastSeen float64            `json:"last_seen"`
}

// Locations returns every remembered location ordered by kind then coordinate.
func (k *Knowledge) Locations() []LocationEntry {
	var out []LocationEntry
	for _, kind := range world.ResourceKinds {
		for _, c := range k.KnownLocations(kind) {
			out = append(out, LocationEntry{Kind: kind, Coord: c, LastSeen: k.locations[kind][c]})
		}
	}
	return out
}
