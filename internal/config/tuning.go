// Package config holds the simulation tuning document: every rate,
// threshold and duration the agents and the world run on.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/homestead/internal/world"
)

// NeedsTuning drives the needs model. Needs are satisfaction values in
// [0, 1] where 1 is fully sated.
type NeedsTuning struct {
	HungerDecay      float64 `yaml:"hunger_decay"`       // per second
	ThirstDecay      float64 `yaml:"thirst_decay"`       // per second
	EnergyDecay      float64 `yaml:"energy_decay"`       // per second
	SocialDecay      float64 `yaml:"social_decay"`       // per second without company
	SocialRecovery   float64 `yaml:"social_recovery"`    // per second with company
	Critical         float64 `yaml:"critical"`           // below this a need hurts
	StarvationDamage float64 `yaml:"starvation_damage"`  // health/s at hunger 0
	ThirstDamage     float64 `yaml:"dehydration_damage"` // health/s at thirst 0
	ExhaustionDamage float64 `yaml:"exhaustion_damage"`  // health/s at energy 0
	HealthRegen      float64 `yaml:"health_regen"`       // health/s while fed and watered
	MovingEnergyMult float64 `yaml:"moving_energy_mult"` // energy decay multiplier while walking or working
	MaxAge           float64 `yaml:"max_age"`            // seconds until senescence
}

// SeasonTuning is one season's name and multipliers.
type SeasonTuning struct {
	Name   string  `yaml:"name"`
	Hunger float64 `yaml:"hunger"`
	Thirst float64 `yaml:"thirst"`
	Energy float64 `yaml:"energy"`
	Regen  float64 `yaml:"regen"`
}

// SkillTuning drives the skill ledger.
type SkillTuning struct {
	Curve         []float64 `yaml:"curve"`          // cumulative XP per level
	RustGrace     float64   `yaml:"rust_grace"`     // seconds unused before decay starts
	RustRate      float64   `yaml:"rust_rate"`      // XP lost per second once rusty
	LevelSpeedup  float64   `yaml:"level_speedup"`  // duration divisor per level
	GatherXP      float64   `yaml:"gather_xp"`      // per unit harvested
	CraftXP       float64   `yaml:"craft_xp"`       // per craft
	InventXP      float64   `yaml:"invent_xp"`      // per discovery
	PassiveRadius int       `yaml:"passive_radius"` // hexes
	PassiveRate   float64   `yaml:"passive_rate"`   // XP/s while watching a better worker
}

// KnowledgeTuning drives memory and relationships.
type KnowledgeTuning struct {
	LocationHorizon   float64 `yaml:"location_horizon"`   // seconds before an unvisited location is forgotten
	RelationshipDecay float64 `yaml:"relationship_decay"` // per second toward neutral
}

// DecisionTuning drives the utility decision engine.
type DecisionTuning struct {
	Threshold    float64            `yaml:"threshold"`     // minimum utility for purposeful actions
	ViewRadius   int                `yaml:"view_radius"`   // hexes
	WanderRadius int                `yaml:"wander_radius"` // hexes
	Weights      map[string]float64 `yaml:"weights"`       // per action kind name
}

// ActionTuning holds durations (seconds) and movement.
type ActionTuning struct {
	Eat            float64 `yaml:"eat"`
	Drink          float64 `yaml:"drink"`
	DrinkAmount    float64 `yaml:"drink_amount"`
	Gather         float64 `yaml:"gather"`
	GatherBatch    int     `yaml:"gather_batch"`
	Craft          float64 `yaml:"craft"`
	Invent         float64 `yaml:"invent"`
	Help           float64 `yaml:"help"`
	Trade          float64 `yaml:"trade"`
	Socialize      float64 `yaml:"socialize"`
	Teach          float64 `yaml:"teach"`
	RestRegen      float64 `yaml:"rest_regen"`      // energy/s while resting
	ShelterBonus   float64 `yaml:"shelter_bonus"`   // rest multiplier beside a shelter
	MoveSpeed      float64 `yaml:"move_speed"`      // hexes per second
	MaxReplans     int     `yaml:"max_replans"`     // blocked-path replans before failing
	InventoryLimit int     `yaml:"inventory_limit"` // total units carried
}

// InventionTuning drives the invention subsystem.
type InventionTuning struct {
	MinKinds        int     `yaml:"min_kinds"`        // distinct item kinds needed to try
	MaxCombo        int     `yaml:"max_combo"`        // most kinds combined in one attempt
	PenaltyFraction float64 `yaml:"penalty_fraction"` // share of each offered stack lost on no match
	MinCuriosity    float64 `yaml:"min_curiosity"`    // agents less curious than this never choose to invent
}

// SocialTuning drives signals, teaching, helping and trading.
type SocialTuning struct {
	PerceptionRadius  int     `yaml:"perception_radius"`
	InteractionRadius int     `yaml:"interaction_radius"`
	HelpDelta         float64 `yaml:"help_delta"`
	TeachDelta        float64 `yaml:"teach_delta"`
	TradeDelta        float64 `yaml:"trade_delta"`
	SocializeDelta    float64 `yaml:"socialize_delta"`
	SignalDelta       float64 `yaml:"signal_delta"`
	FoundDelta        float64 `yaml:"found_delta"`
	TeachMinRel       float64 `yaml:"teach_min_relationship"`
	TeachAdvantage    int     `yaml:"teach_level_advantage"`
	TeachBoost        float64 `yaml:"teach_boost"` // total XP over one lesson
	HelpCritical      float64 `yaml:"help_critical"`
	HelperReserve     float64 `yaml:"helper_reserve"` // helper's own need must stay above this
	HelpMinRel        float64 `yaml:"help_min_relationship"`
	TradeMinRel       float64 `yaml:"trade_min_relationship"`
	TradeSurplus      int     `yaml:"trade_surplus"` // units kept back before trading an item away
	SocializeBoost    float64 `yaml:"socialize_boost"`
	SignalCooldown    float64 `yaml:"signal_cooldown"` // seconds between help signals
}

// WorldTuning sizes and populates a fresh world.
type WorldTuning struct {
	Radius        int                `yaml:"radius"`
	InitialAgents int                `yaml:"initial_agents"`
	MinPopulation int                `yaml:"min_population"`
	SpawnSpacing  int                `yaml:"spawn_spacing"`
	Food          world.ResourceSpec `yaml:"food"`
	Wood          world.ResourceSpec `yaml:"wood"`
	Stone         world.ResourceSpec `yaml:"stone"`
}

// Tuning is the complete tuning document.
type Tuning struct {
	TickSeconds  float64         `yaml:"tick_seconds"`
	SeasonLength float64         `yaml:"season_length"` // seconds
	Seasons      []SeasonTuning  `yaml:"seasons"`
	Needs        NeedsTuning     `yaml:"needs"`
	Skills       SkillTuning     `yaml:"skills"`
	Knowledge    KnowledgeTuning `yaml:"knowledge"`
	Decision     DecisionTuning  `yaml:"decision"`
	Actions      ActionTuning    `yaml:"actions"`
	Invention    InventionTuning `yaml:"invention"`
	Social       SocialTuning    `yaml:"social"`
	World        WorldTuning     `yaml:"world"`
}

// Default returns the built-in tuning.
func Default() Tuning {
	return Tuning{
		TickSeconds:  1,
		SeasonLength: 6000,
		Seasons: []SeasonTuning{
			{Name: "spring", Hunger: 1.0, Thirst: 1.0, Energy: 1.0, Regen: 1.2},
			{Name: "summer", Hunger: 1.0, Thirst: 1.3, Energy: 1.0, Regen: 1.0},
			{Name: "autumn", Hunger: 1.0, Thirst: 1.0, Energy: 1.0, Regen: 0.8},
			{Name: "winter", Hunger: 1.25, Thirst: 0.9, Energy: 1.15, Regen: 0.3},
		},
		Needs: NeedsTuning{
			HungerDecay:      0.004,
			ThirstDecay:      0.0055,
			EnergyDecay:      0.0018,
			SocialDecay:      0.001,
			SocialRecovery:   0.01,
			Critical:         0.05,
			StarvationDamage: 0.008,
			ThirstDamage:     0.010,
			ExhaustionDamage: 0.005,
			HealthRegen:      0.0015,
			MovingEnergyMult: 1.5,
			MaxAge:           36000,
		},
		Skills: SkillTuning{
			Curve:         []float64{100, 250, 500, 1000},
			RustGrace:     3600,
			RustRate:      0.1,
			LevelSpeedup:  0.5,
			GatherXP:      10,
			CraftXP:       25,
			InventXP:      40,
			PassiveRadius: 3,
			PassiveRate:   0.5,
		},
		Knowledge: KnowledgeTuning{
			LocationHorizon:   2400,
			RelationshipDecay: 0.001,
		},
		Decision: DecisionTuning{
			Threshold:    0.15,
			ViewRadius:   12,
			WanderRadius: 6,
			Weights: map[string]float64{
				"drink":     1.25,
				"eat":       1.2,
				"forage":    1.0,
				"rest":      1.1,
				"help":      0.75,
				"gather":    0.4,
				"craft":     1.0,
				"invent":    0.35,
				"teach":     0.5,
				"trade":     0.6,
				"socialize": 0.7,
				"signal":    0.9,
				"wander":    0.05,
			},
		},
		Actions: ActionTuning{
			Eat:            2,
			Drink:          2,
			DrinkAmount:    0.7,
			Gather:         2,
			GatherBatch:    3,
			Craft:          4,
			Invent:         8,
			Help:           1,
			Trade:          1,
			Socialize:      5,
			Teach:          15,
			RestRegen:      0.015,
			ShelterBonus:   1.5,
			MoveSpeed:      2,
			MaxReplans:     3,
			InventoryLimit: 20,
		},
		Invention: InventionTuning{
			MinKinds:        2,
			MaxCombo:        3,
			PenaltyFraction: 0.25,
			MinCuriosity:    0.2,
		},
		Social: SocialTuning{
			PerceptionRadius:  10,
			InteractionRadius: 2,
			HelpDelta:         0.20,
			TeachDelta:        0.15,
			TradeDelta:        0.05,
			SocializeDelta:    0.05,
			SignalDelta:       0.05,
			FoundDelta:        0.02,
			TeachMinRel:       0.0,
			TeachAdvantage:    1,
			TeachBoost:        60,
			HelpCritical:      0.25,
			HelperReserve:     0.35,
			HelpMinRel:        -0.1,
			TradeMinRel:       -0.2,
			TradeSurplus:      3,
			SocializeBoost:    0.3,
			SignalCooldown:    60,
		},
		World: WorldTuning{
			Radius:        14,
			InitialAgents: 12,
			MinPopulation: 4,
			SpawnSpacing:  2,
			Food:          world.ResourceSpec{Count: 40, Max: 6, Regen: 0.01},
			Wood:          world.ResourceSpec{Count: 30, Max: 8, Regen: 0.002},
			Stone:         world.ResourceSpec{Count: 20, Max: 10, Regen: 0.001},
		},
	}
}

// Load reads a tuning file over the defaults. An empty path returns the defaults.
func Load(path string) (Tuning, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning: %w", err)
	}
	return Parse(data)
}

// Parse decodes a tuning document over the defaults and validates it.
func Parse(data []byte) (Tuning, error) {
	t := Default()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Validate rejects documents that would break simulation invariants.
func (t Tuning) Validate() error {
	var errs []error
	if t.TickSeconds <= 0 {
		errs = append(errs, errors.New("tick_seconds must be positive"))
	}
	if t.SeasonLength <= 0 {
		errs = append(errs, errors.New("season_length must be positive"))
	}
	if len(t.Seasons) == 0 {
		errs = append(errs, errors.New("at least one season is required"))
	}
	if len(t.Skills.Curve) == 0 {
		errs = append(errs, errors.New("skills.curve must not be empty"))
	}
	for i := 1; i < len(t.Skills.Curve); i++ {
		if t.Skills.Curve[i] <= t.Skills.Curve[i-1] {
			errs = append(errs, fmt.Errorf("skills.curve must be strictly increasing at index %d", i))
			break
		}
	}
	if t.Needs.Critical <= 0 || t.Needs.Critical >= 1 {
		errs = append(errs, errors.New("needs.critical must be within (0, 1)"))
	}
	if t.Needs.MaxAge <= 0 {
		errs = append(errs, errors.New("needs.max_age must be positive"))
	}
	if f := t.Invention.PenaltyFraction; f < 0 || f >= 1 {
		errs = append(errs, errors.New("invention.penalty_fraction must be within [0, 1)"))
	}
	if t.Actions.MoveSpeed <= 0 {
		errs = append(errs, errors.New("actions.move_speed must be positive"))
	}
	if t.Actions.MaxReplans < 0 {
		errs = append(errs, errors.New("actions.max_replans must not be negative"))
	}
	if t.Actions.InventoryLimit <= 0 {
		errs = append(errs, errors.New("actions.inventory_limit must be positive"))
	}
	if t.World.Radius <= 0 {
		errs = append(errs, errors.New("world.radius must be positive"))
	}
	return errors.Join(errs...)
}

// Weight returns the decision weight for an action kind name, defaulting to 1.
func (d DecisionTuning) Weight(kind string) float64 {
	if w, ok := d.Weights[kind]; ok {
		return w
	}
	return 1
}

// Season returns the tuning for a season index, wrapping around.
func (t Tuning) Season(index int) SeasonTuning {
	if len(t.Seasons) == 0 {
		return SeasonTuning{Name: "timeless", Hunger: 1, Thirst: 1, Energy: 1, Regen: 1}
	}
	n := len(t.Seasons)
	return t.Seasons[((index%n)+n)%n]
}

// GenConfig builds the world generator config for a seed.
func (t Tuning) GenConfig(seed int64) world.GenConfig {
	cfg := world.DefaultGenConfig()
	cfg.Seed = seed
	cfg.Radius = t.World.Radius
	cfg.Food = t.World.Food
	cfg.Wood = t.World.Wood
	cfg.Stone = t.World.Stone
	return cfg
}
