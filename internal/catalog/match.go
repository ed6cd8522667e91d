package catalog

import "github.com/talgya/homestead/internal/world"

// Match finds the recipe an offered multiset of items corresponds to.
//
// A recipe matches when the offered bundle holds exactly the recipe's item
// kinds in at least the required quantities, its station requirement (if
// any) equals station, and qualifies accepts it (nil accepts everything).
// Among matches the recipe consuming the most units wins; ties go to the
// lowest recipe ID. The result depends only on the arguments.
func (c *Catalog) Match(offered Bundle, station world.StructureKind, qualifies func(Recipe) bool) (Recipe, bool) {
	var best Recipe
	found := false
	for _, id := range c.recipeOrder {
		r := c.recipes[id]
		if !offered.SameKinds(r.Inputs) || !offered.Covers(r.Inputs) {
			continue
		}
		if r.station != world.StructureNone && r.station != station {
			continue
		}
		if qualifies != nil && !qualifies(r) {
			continue
		}
		if !found || r.Inputs.Total() > best.Inputs.Total() {
			best = r
			found = true
		}
	}
	return best, found
}
