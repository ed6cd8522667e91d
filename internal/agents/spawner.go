// Agent spawning: creates the founding population and later immigrants
// with randomized traits, needs and a little starting experience.
package agents

import (
	"github.com/talgya/homestead/internal/catalog"
	"github.com/talgya/homestead/internal/entropy"
	"github.com/talgya/homestead/internal/world"
)

// Spawner creates agents for the simulation.
type Spawner struct {
	rng   entropy.Source
	ids   *IDGenerator
	rules *Rules
}

// NewSpawner creates an agent spawner. IDs come from ids so that spawning
// after a load continues the saved sequence.
func NewSpawner(rng entropy.Source, ids *IDGenerator, rules *Rules) *Spawner {
	return &Spawner{rng: rng, ids: ids, rules: rules}
}

// SpawnPopulation creates one agent per spawn point.
func (s *Spawner) SpawnPopulation(points []world.HexCoord, tick uint64) []*Agent {
	out := make([]*Agent, 0, len(points))
	for _, p := range points {
		out = append(out, s.Spawn(p, tick))
	}
	return out
}

// Spawn creates a single agent at position.
func (s *Spawner) Spawn(position world.HexCoord, tick uint64) *Agent {
	a := newAgent(s.ids.Next(), s.generateName(), position, s.rules.Tuning.Skills.Curve)
	a.BornTick = tick
	a.Health = 0.9 + s.rng.Float64()*0.1

	// Needs: mostly met on arrival.
	a.Needs = Needs{
		Hunger: entropy.Range(s.rng, 0.7, 1.0),
		Thirst: entropy.Range(s.rng, 0.7, 1.0),
		Energy: entropy.Range(s.rng, 0.8, 1.0),
		Social: entropy.Range(s.rng, 0.5, 0.9),
	}

	a.Personality = Personality{
		Curiosity:    s.rng.Float64(),
		Sociability:  s.rng.Float64(),
		Helpfulness:  s.rng.Float64(),
		Intelligence: s.rng.Float64(),
	}
	a.Personality.Clamp()

	// A head start in one gathering skill.
	if kinds := s.gatherSkills(); len(kinds) > 0 {
		skill := kinds[s.rng.Intn(len(kinds))]
		a.Skills.Grant(skill, float64(s.rng.Intn(90)))
	}

	// A couple of rations for the road.
	if food, ok := s.rules.Catalog.RawItem(world.ResourceFood); ok {
		a.Inventory.Add(food, 1+s.rng.Intn(2))
	}
	return a
}

func (s *Spawner) gatherSkills() []catalog.SkillID {
	var out []catalog.SkillID
	for _, kind := range world.ResourceKinds {
		if skill, ok := s.rules.Catalog.GatherSkill(kind); ok {
			out = append(out, skill)
		}
	}
	return out
}

func (s *Spawner) generateName() string {
	var firsts []string
	if s.rng.Float64() < 0.5 {
		firsts = maleNames
	} else {
		firsts = femaleNames
	}
	first := firsts[s.rng.Intn(len(firsts))]
	last := lastNames[s.rng.Intn(len(lastNames))]
	return first + " " + last
}

// Name pools for procedural generation.
var maleNames = []string{
	"Aldric", "Bram", "Cedric", "Doran", "Erik", "Finn", "Gareth",
	"Halvard", "Ivan", "Jasper", "Kael", "Leif", "Magnus", "Nils",
	"Oswin", "Per", "Quinn", "Rowan", "Stellan", "Theron", "Ulric",
}

var femaleNames = []string{
	"Astrid", "Brenna", "Calla", "Daria", "Elara", "Freya", "Greta",
	"Helene", "Iris", "Juno", "Kira", "Lena", "Mira", "Nessa",
	"Olwen", "Petra", "Runa", "Senna", "Thea", "Una", "Vera",
}

var lastNames = []string{
	"Voss", "Thornwood", "Ashford", "Dunmore", "Greenvale", "Frostborn",
	"Millward", "Ravenmoor", "Deepwell", "Brightwater", "Redforge",
	"Marshwood", "Riverstone", "Embercroft", "Holloway", "Dawnridge",
	"Farrow", "Thatcher", "Briar", "Caldwell", "Harper", "Mercer",
}
