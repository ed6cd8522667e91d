package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/homestead/internal/world"
)

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Len(t, c.Recipes(), 5)
	assert.NotEmpty(t, c.Digest())

	wb, ok := c.Recipe("workbench")
	require.True(t, ok)
	assert.Equal(t, world.StructureWorkbench, wb.PlacesKind())
	assert.Equal(t, world.StructureNone, wb.StationKind())

	pick, ok := c.Recipe("stone_pick")
	require.True(t, ok)
	assert.Equal(t, world.StructureWorkbench, pick.StationKind())
	assert.Equal(t, 1, pick.Quantity)

	skill, ok := c.GatherSkill(world.ResourceWood)
	require.True(t, ok)
	assert.Equal(t, SkillID("woodcutting"), skill)

	item, ok := c.RawItem(world.ResourceStone)
	require.True(t, ok)
	assert.Equal(t, ItemID("stone"), item)

	edible := c.EdibleItems()
	require.Len(t, edible, 2)
	assert.Equal(t, ItemID("cooked_food"), edible[0].ID)
}

func TestRecipesSortedByID(t *testing.T) {
	c := MustDefault()
	recipes := c.Recipes()
	for i := 1; i < len(recipes); i++ {
		assert.Less(t, recipes[i-1].ID, recipes[i].ID)
	}
}

func TestParseRejectsBrokenReferences(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown input item",
			doc: `
items: [{id: wood}]
skills: [{id: crafting}]
recipes:
  - {id: thing, inputs: {mithril: 1}, skill: crafting, output: wood}
`,
		},
		{
			name: "unknown skill",
			doc: `
items: [{id: wood}]
skills: [{id: crafting}]
recipes:
  - {id: thing, inputs: {wood: 1}, skill: smithing, output: wood}
`,
		},
		{
			name: "unknown station",
			doc: `
items: [{id: wood}]
skills: [{id: crafting}]
recipes:
  - {id: thing, inputs: {wood: 1}, skill: crafting, station: forge, output: wood}
`,
		},
		{
			name: "unknown output",
			doc: `
items: [{id: wood}]
skills: [{id: crafting}]
recipes:
  - {id: thing, inputs: {wood: 1}, skill: crafting, output: plank}
`,
		},
		{
			name: "produces nothing",
			doc: `
items: [{id: wood}]
skills: [{id: crafting}]
recipes:
  - {id: thing, inputs: {wood: 1}, skill: crafting}
`,
		},
		{
			name: "unknown prerequisite",
			doc: `
items: [{id: wood}]
skills:
  - {id: crafting, requires: [{skill: magic, level: 1}]}
recipes: []
`,
		},
		{
			name: "prerequisite cycle",
			doc: `
items: [{id: wood}]
skills:
  - {id: a, requires: [{skill: b, level: 1}]}
  - {id: b, requires: [{skill: a, level: 1}]}
recipes: []
`,
		},
		{
			name: "tool for unknown skill",
			doc: `
items: [{id: axe, tool: {skill: chopping, efficiency: 2}}]
skills: [{id: crafting}]
recipes: []
`,
		},
		{
			name: "schema violation",
			doc: `
items: [{id: wood, nutrition: "lots"}]
skills: [{id: crafting}]
recipes: []
`,
		},
		{
			name: "zero quantity input",
			doc: `
items: [{id: wood}]
skills: [{id: crafting}]
recipes:
  - {id: thing, inputs: {wood: 0}, skill: crafting, output: wood}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnknownRecipeReference)
		})
	}
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("items: [unterminated"))
	require.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, MustDefault().Digest(), c.Digest())

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, defaultCatalog, 0o644))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, MustDefault().Digest(), c.Digest())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Matching
// ---------------------------------------------------------------------------

func TestMatch(t *testing.T) {
	c := MustDefault()

	tests := []struct {
		name    string
		offered Bundle
		station world.StructureKind
		want    RecipeID
		ok      bool
	}{
		{"exact axe", Bundle{"wood": 2, "stone": 1}, world.StructureNone, "crude_axe", true},
		{"surplus prefers bigger recipe", Bundle{"wood": 6, "stone": 3}, world.StructureNone, "workbench", true},
		{"station unlocks pick", Bundle{"wood": 2, "stone": 3}, world.StructureWorkbench, "stone_pick", true},
		{"no station, pick skipped", Bundle{"wood": 2, "stone": 3}, world.StructureNone, "crude_axe", true},
		{"extra kind breaks match", Bundle{"wood": 2, "stone": 1, "food": 1}, world.StructureNone, "", false},
		{"short quantity", Bundle{"wood": 1, "stone": 1}, world.StructureNone, "", false},
		{"food needs bench", Bundle{"food": 3}, world.StructureNone, "", false},
		{"food at bench", Bundle{"food": 3}, world.StructureWorkbench, "cooked_food", true},
		{"empty", Bundle{}, world.StructureWorkbench, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Match(tt.offered, tt.station, nil)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.ID)
			}
		})
	}
}

func TestMatchQualifierFilters(t *testing.T) {
	c := MustDefault()
	offered := Bundle{"wood": 6, "stone": 3}

	got, ok := c.Match(offered, world.StructureNone, func(r Recipe) bool { return r.ID != "workbench" })
	require.True(t, ok)
	assert.Equal(t, RecipeID("crude_axe"), got.ID)

	_, ok = c.Match(offered, world.StructureNone, func(Recipe) bool { return false })
	assert.False(t, ok)
}

func TestMatchIsPure(t *testing.T) {
	c := MustDefault()
	offered := Bundle{"wood": 5, "stone": 2}
	before := offered.Clone()

	first, ok1 := c.Match(offered, world.StructureWorkbench, nil)
	for i := 0; i < 10; i++ {
		again, ok := c.Match(offered, world.StructureWorkbench, nil)
		assert.Equal(t, ok1, ok)
		assert.Equal(t, first.ID, again.ID)
	}
	assert.Equal(t, before, offered)
}

// ---------------------------------------------------------------------------
// Bundles
// ---------------------------------------------------------------------------

func TestBundleHelpers(t *testing.T) {
	b := Bundle{"wood": 2, "stone": 1, "food": 0}

	assert.Equal(t, []ItemID{"stone", "wood"}, b.Kinds())
	assert.Equal(t, 3, b.Total())
	assert.Equal(t, "stone:1,wood:2", b.Signature())
	assert.True(t, b.Covers(Bundle{"wood": 1}))
	assert.False(t, b.Covers(Bundle{"wood": 3}))
	assert.True(t, b.SameKinds(Bundle{"wood": 9, "stone": 9}))
	assert.NotContains(t, b.Clone(), ItemID("food"))
}
