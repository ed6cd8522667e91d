package agents

import (
	"github.com/talgya/homestead/internal/config"
)

// Needs holds satisfaction levels from 0.0 (critical) to 1.0 (sated).
type Needs struct {
	Hunger float64 `json:"hunger"`
	Thirst float64 `json:"thirst"`
	Energy float64 `json:"energy"`
	Social float64 `json:"social"`
}

// Clamp bounds every need to [0, 1].
func (n *Needs) Clamp() {
	n.Hunger = clamp01(n.Hunger)
	n.Thirst = clamp01(n.Thirst)
	n.Energy = clamp01(n.Energy)
	n.Social = clamp01(n.Social)
}

// Lowest returns the smallest need value.
func (n Needs) Lowest() float64 {
	return min(n.Hunger, n.Thirst, n.Energy, n.Social)
}

// SeasonModifier scales need decay for the current season.
type SeasonModifier struct {
	Hunger float64
	Thirst float64
	Energy float64
}

// ModifierFor converts a season's tuning into a decay modifier.
func ModifierFor(s config.SeasonTuning) SeasonModifier {
	return SeasonModifier{Hunger: s.Hunger, Thirst: s.Thirst, Energy: s.Energy}
}

// Activity is how strenuous the agent's current action is.
type Activity uint8

const (
	ActivityIdle Activity = iota
	ActivityResting
	ActivityBusy // Walking or working
)

// NeedsDelta reports what one decay step changed. Died is set when the
// step killed the agent; Cause says why.
type NeedsDelta struct {
	Hunger float64
	Thirst float64
	Energy float64
	Social float64
	Health float64
	Died   bool
	Cause  DeathCause
}

// DecayNeeds advances an agent's needs, health and age by dt seconds. It is
// the only place an agent dies of natural causes.
func DecayNeeds(a *Agent, dt float64, mod SeasonModifier, t config.NeedsTuning) NeedsDelta {
	if !a.Alive || dt <= 0 {
		return NeedsDelta{}
	}
	before := a.Needs
	health := a.Health

	energyRate := t.EnergyDecay * mod.Energy
	switch a.activity() {
	case ActivityResting:
		energyRate = 0
	case ActivityBusy:
		energyRate *= t.MovingEnergyMult
	}

	a.Needs.Hunger -= t.HungerDecay * mod.Hunger * dt
	a.Needs.Thirst -= t.ThirstDecay * mod.Thirst * dt
	a.Needs.Energy -= energyRate * dt
	if a.contact {
		a.Needs.Social += t.SocialRecovery * dt
	} else {
		a.Needs.Social -= t.SocialDecay * dt
	}
	a.Needs.Clamp()

	starve := damage(a.Needs.Hunger, t.Critical, t.StarvationDamage) * dt
	parch := damage(a.Needs.Thirst, t.Critical, t.ThirstDamage) * dt
	exhaust := 0.0
	if a.Needs.Energy <= 0 {
		exhaust = t.ExhaustionDamage * dt
	}
	a.Health -= starve + parch + exhaust
	if starve+parch+exhaust == 0 && a.Needs.Hunger >= 0.5 && a.Needs.Thirst >= 0.5 {
		a.Health += t.HealthRegen * dt
	}
	a.Health = clamp01(a.Health)
	a.Age += dt

	d := NeedsDelta{
		Hunger: a.Needs.Hunger - before.Hunger,
		Thirst: a.Needs.Thirst - before.Thirst,
		Energy: a.Needs.Energy - before.Energy,
		Social: a.Needs.Social - before.Social,
	}

	switch {
	case a.Health <= 0:
		d.Died = true
		d.Cause = worstOf(starve, parch, exhaust)
	case t.MaxAge > 0 && a.Age > t.MaxAge:
		d.Died = true
		d.Cause = CauseSenescence
	}
	if d.Died {
		a.Kill(d.Cause)
	}
	d.Health = a.Health - health
	return d
}

// damage grows linearly from zero at the critical threshold to full at 0.
func damage(level, critical, full float64) float64 {
	if level >= critical || critical <= 0 {
		return 0
	}
	return full * (critical - level) / critical
}

func worstOf(starve, parch, exhaust float64) DeathCause {
	switch {
	case parch >= starve && parch >= exhaust && parch > 0:
		return CauseDehydration
	case starve >= exhaust && starve > 0:
		return CauseStarvation
	case exhaust > 0:
		return CauseExhaustion
	}
	return CauseHazard
}

func clamp01(v float64) float64 {
	if v != v || v < 0 { // NaN or negative
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
