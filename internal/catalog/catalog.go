// Package catalog holds the static item, skill and recipe definitions.
// The catalog is immutable once loaded; whether an agent "knows" a recipe is
// tracked by the agent, never by the recipe.
package catalog

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/talgya/homestead/internal/world"
)

//go:embed catalog.yaml
var defaultCatalog []byte

//go:embed catalog.schema.json
var catalogSchema []byte

// ErrUnknownRecipeReference marks a catalog whose definitions point at
// items, skills or structures that do not exist, or are otherwise malformed.
var ErrUnknownRecipeReference = errors.New("unknown recipe reference")

// ItemID names an inventory item.
type ItemID string

// SkillID names a skill.
type SkillID string

// RecipeID names a recipe.
type RecipeID string

// Tool describes how an item speeds up gathering.
type Tool struct {
	Skill      SkillID `yaml:"skill" json:"skill"`
	Efficiency float64 `yaml:"efficiency" json:"efficiency"`
}

// Item is an inventory item definition.
type Item struct {
	ID        ItemID  `yaml:"id" json:"id"`
	Resource  string  `yaml:"resource,omitempty" json:"resource,omitempty"`   // Raw material gathered from this resource kind
	Nutrition float64 `yaml:"nutrition,omitempty" json:"nutrition,omitempty"` // Hunger restored when eaten; 0 = inedible
	Tool      *Tool   `yaml:"tool,omitempty" json:"tool,omitempty"`
}

// Edible reports whether the item can be eaten.
func (i Item) Edible() bool { return i.Nutrition > 0 }

// Prerequisite is a minimum level in another skill.
type Prerequisite struct {
	Skill SkillID `yaml:"skill" json:"skill"`
	Level int     `yaml:"level" json:"level"`
}

// Skill is a skill definition with its unlock prerequisites.
type Skill struct {
	ID       SkillID        `yaml:"id" json:"id"`
	Gathers  string         `yaml:"gathers,omitempty" json:"gathers,omitempty"`
	Requires []Prerequisite `yaml:"requires,omitempty" json:"requires,omitempty"`
}

// Recipe turns an input multiset into an item or a placed structure.
type Recipe struct {
	ID       RecipeID `yaml:"id" json:"id"`
	Inputs   Bundle   `yaml:"inputs" json:"inputs"`
	Skill    SkillID  `yaml:"skill" json:"skill"`
	MinLevel int      `yaml:"min_level" json:"min_level"`
	Station  string   `yaml:"station,omitempty" json:"station,omitempty"`
	Output   ItemID   `yaml:"output,omitempty" json:"output,omitempty"`
	Quantity int      `yaml:"quantity,omitempty" json:"quantity,omitempty"`
	Places   string   `yaml:"places,omitempty" json:"places,omitempty"`
	Value    float64  `yaml:"value" json:"value"` // Base craft utility, 0–1

	station world.StructureKind
	places  world.StructureKind
}

// StationKind is the structure that must be adjacent to craft, or StructureNone.
func (r Recipe) StationKind() world.StructureKind { return r.station }

// PlacesKind is the structure this recipe builds, or StructureNone.
func (r Recipe) PlacesKind() world.StructureKind { return r.places }

type document struct {
	Items   []Item   `yaml:"items"`
	Skills  []Skill  `yaml:"skills"`
	Recipes []Recipe `yaml:"recipes"`
}

// Catalog is the validated, read-only set of definitions.
type Catalog struct {
	items   map[ItemID]Item
	skills  map[SkillID]Skill
	recipes map[RecipeID]Recipe

	itemOrder   []ItemID
	skillOrder  []SkillID
	recipeOrder []RecipeID

	gatherSkill map[world.ResourceKind]SkillID
	rawItem     map[world.ResourceKind]ItemID

	digest string
}

// Default parses the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// MustDefault is Default for tests and static setup; it panics on error.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a catalog file. An empty path returns the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog, checks it against the catalog schema and then
// validates every cross reference.
func Parse(data []byte) (*Catalog, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog.yaml: %w", err)
	}
	if err := validateSchema(raw); err != nil {
		return nil, fmt.Errorf("catalog.yaml: %w: %v", ErrUnknownRecipeReference, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog.yaml: %w", err)
	}

	c, err := build(doc)
	if err != nil {
		return nil, fmt.Errorf("catalog.yaml: %w", err)
	}

	sum := sha256.Sum256(data)
	c.digest = hex.EncodeToString(sum[:])
	return c, nil
}

func validateSchema(raw any) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("catalog.schema.json", bytes.NewReader(catalogSchema)); err != nil {
		return err
	}
	schema, err := compiler.Compile("catalog.schema.json")
	if err != nil {
		return err
	}

	// Round-trip through JSON so the validator sees JSON-native types.
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}

func build(doc document) (*Catalog, error) {
	c := &Catalog{
		items:       make(map[ItemID]Item, len(doc.Items)),
		skills:      make(map[SkillID]Skill, len(doc.Skills)),
		recipes:     make(map[RecipeID]Recipe, len(doc.Recipes)),
		gatherSkill: make(map[world.ResourceKind]SkillID),
		rawItem:     make(map[world.ResourceKind]ItemID),
	}

	for _, it := range doc.Items {
		if it.ID == "" {
			return nil, fmt.Errorf("%w: empty item id", ErrUnknownRecipeReference)
		}
		if _, dup := c.items[it.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item %q", ErrUnknownRecipeReference, it.ID)
		}
		c.items[it.ID] = it
		c.itemOrder = append(c.itemOrder, it.ID)
	}
	for _, sk := range doc.Skills {
		if sk.ID == "" {
			return nil, fmt.Errorf("%w: empty skill id", ErrUnknownRecipeReference)
		}
		if _, dup := c.skills[sk.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate skill %q", ErrUnknownRecipeReference, sk.ID)
		}
		c.skills[sk.ID] = sk
		c.skillOrder = append(c.skillOrder, sk.ID)
	}
	for _, r := range doc.Recipes {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: empty recipe id", ErrUnknownRecipeReference)
		}
		if _, dup := c.recipes[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate recipe %q", ErrUnknownRecipeReference, r.ID)
		}
		r.Inputs = r.Inputs.Clone()
		c.recipes[r.ID] = r
		c.recipeOrder = append(c.recipeOrder, r.ID)
	}

	sort.Slice(c.itemOrder, func(i, j int) bool { return c.itemOrder[i] < c.itemOrder[j] })
	sort.Slice(c.skillOrder, func(i, j int) bool { return c.skillOrder[i] < c.skillOrder[j] })
	sort.Slice(c.recipeOrder, func(i, j int) bool { return c.recipeOrder[i] < c.recipeOrder[j] })

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks referential integrity. It also resolves the structure
// kinds recipes refer to and the resource → skill/item lookups, so a
// catalog is unusable until Validate has succeeded.
func (c *Catalog) Validate() error {
	for _, id := range c.itemOrder {
		it := c.items[id]
		if it.Resource != "" {
			kind, ok := world.ParseResourceKind(it.Resource)
			if !ok || kind == world.ResourceWater {
				return fmt.Errorf("%w: item %q gathers unknown resource %q", ErrUnknownRecipeReference, id, it.Resource)
			}
			if prev, dup := c.rawItem[kind]; dup && prev != id {
				return fmt.Errorf("%w: resource %q yields both %q and %q", ErrUnknownRecipeReference, it.Resource, prev, id)
			}
			c.rawItem[kind] = id
		}
		if it.Tool != nil {
			if _, ok := c.skills[it.Tool.Skill]; !ok {
				return fmt.Errorf("%w: tool %q boosts unknown skill %q", ErrUnknownRecipeReference, id, it.Tool.Skill)
			}
			if it.Tool.Efficiency <= 0 {
				return fmt.Errorf("%w: tool %q has non-positive efficiency", ErrUnknownRecipeReference, id)
			}
		}
	}

	for _, id := range c.skillOrder {
		sk := c.skills[id]
		if sk.Gathers != "" {
			kind, ok := world.ParseResourceKind(sk.Gathers)
			if !ok || kind == world.ResourceWater {
				return fmt.Errorf("%w: skill %q gathers unknown resource %q", ErrUnknownRecipeReference, id, sk.Gathers)
			}
			c.gatherSkill[kind] = id
		}
		for _, p := range sk.Requires {
			if _, ok := c.skills[p.Skill]; !ok {
				return fmt.Errorf("%w: skill %q requires unknown skill %q", ErrUnknownRecipeReference, id, p.Skill)
			}
			if p.Skill == id {
				return fmt.Errorf("%w: skill %q requires itself", ErrUnknownRecipeReference, id)
			}
		}
	}
	if err := c.checkPrerequisiteCycles(); err != nil {
		return err
	}

	for _, id := range c.recipeOrder {
		r := c.recipes[id]
		if len(r.Inputs.Kinds()) == 0 {
			return fmt.Errorf("%w: recipe %q has no inputs", ErrUnknownRecipeReference, id)
		}
		for _, in := range r.Inputs.Kinds() {
			if _, ok := c.items[in]; !ok {
				return fmt.Errorf("%w: recipe %q consumes unknown item %q", ErrUnknownRecipeReference, id, in)
			}
		}
		if _, ok := c.skills[r.Skill]; !ok {
			return fmt.Errorf("%w: recipe %q needs unknown skill %q", ErrUnknownRecipeReference, id, r.Skill)
		}
		station, ok := world.ParseStructureKind(r.Station)
		if !ok {
			return fmt.Errorf("%w: recipe %q needs unknown station %q", ErrUnknownRecipeReference, id, r.Station)
		}
		places, ok := world.ParseStructureKind(r.Places)
		if !ok {
			return fmt.Errorf("%w: recipe %q places unknown structure %q", ErrUnknownRecipeReference, id, r.Places)
		}
		switch {
		case places != world.StructureNone && r.Output != "":
			return fmt.Errorf("%w: recipe %q both places a structure and outputs an item", ErrUnknownRecipeReference, id)
		case places == world.StructureNone && r.Output == "":
			return fmt.Errorf("%w: recipe %q produces nothing", ErrUnknownRecipeReference, id)
		case r.Output != "":
			if _, ok := c.items[r.Output]; !ok {
				return fmt.Errorf("%w: recipe %q outputs unknown item %q", ErrUnknownRecipeReference, id, r.Output)
			}
			if r.Quantity <= 0 {
				r.Quantity = 1
			}
		}
		r.station = station
		r.places = places
		c.recipes[id] = r
	}
	return nil
}

func (c *Catalog) checkPrerequisiteCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[SkillID]int, len(c.skills))
	var visit func(SkillID) error
	visit = func(id SkillID) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("%w: skill prerequisites form a cycle at %q", ErrUnknownRecipeReference, id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, p := range c.skills[id].Requires {
			if err := visit(p.Skill); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}
	for _, id := range c.skillOrder {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// Digest is the sha256 of the source document, recorded in snapshots.
func (c *Catalog) Digest() string { return c.digest }

// Item looks up an item definition.
func (c *Catalog) Item(id ItemID) (Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Skill looks up a skill definition.
func (c *Catalog) Skill(id SkillID) (Skill, bool) {
	sk, ok := c.skills[id]
	return sk, ok
}

// Recipe looks up a recipe definition.
func (c *Catalog) Recipe(id RecipeID) (Recipe, bool) {
	r, ok := c.recipes[id]
	return r, ok
}

// Recipes returns every recipe ordered by ID.
func (c *Catalog) Recipes() []Recipe {
	out := make([]Recipe, len(c.recipeOrder))
	for i, id := range c.recipeOrder {
		out[i] = c.recipes[id]
	}
	return out
}

// Skills returns every skill ordered by ID.
func (c *Catalog) Skills() []Skill {
	out := make([]Skill, len(c.skillOrder))
	for i, id := range c.skillOrder {
		out[i] = c.skills[id]
	}
	return out
}

// Items returns every item ordered by ID.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.itemOrder))
	for i, id := range c.itemOrder {
		out[i] = c.items[id]
	}
	return out
}

// GatherSkill is the skill trained by harvesting kind.
func (c *Catalog) GatherSkill(kind world.ResourceKind) (SkillID, bool) {
	s, ok := c.gatherSkill[kind]
	return s, ok
}

// RawItem is the inventory item harvesting kind yields.
func (c *Catalog) RawItem(kind world.ResourceKind) (ItemID, bool) {
	id, ok := c.rawItem[kind]
	return id, ok
}

// EdibleItems returns edible items, most nourishing first.
func (c *Catalog) EdibleItems() []Item {
	var out []Item
	for _, id := range c.itemOrder {
		if it := c.items[id]; it.Edible() {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Nutrition > out[j].Nutrition })
	return out
}
