package agents

import (
	"sort"

	"github.com/talgya/homestead/internal/catalog"
)

// SkillLedger tracks experience per skill and how long each skill has gone
// unused. Levels are a pure function of experience.
type SkillLedger struct {
	xp    map[catalog.SkillID]float64
	idle  map[catalog.SkillID]float64 // Seconds since last use
	curve []float64
}

// NewSkillLedger creates an empty ledger on a cumulative XP curve.
func NewSkillLedger(curve []float64) *SkillLedger {
	return &SkillLedger{
		xp:    make(map[catalog.SkillID]float64),
		idle:  make(map[catalog.SkillID]float64),
		curve: curve,
	}
}

// LevelFor returns the level reached with xp on curve: the number of
// thresholds at or below xp.
func LevelFor(curve []float64, xp float64) int {
	return sort.Search(len(curve), func(i int) bool { return curve[i] > xp })
}

// floorFor is the minimum XP of the level xp sits in.
func floorFor(curve []float64, xp float64) float64 {
	lvl := LevelFor(curve, xp)
	if lvl == 0 {
		return 0
	}
	return curve[lvl-1]
}

// Grant adds experience and marks the skill as used.
func (l *SkillLedger) Grant(skill catalog.SkillID, amount float64) {
	if amount <= 0 {
		return
	}
	l.xp[skill] += amount
	l.idle[skill] = 0
}

// XP returns accumulated experience.
func (l *SkillLedger) XP(skill catalog.SkillID) float64 { return l.xp[skill] }

// Level returns the current level of a skill.
func (l *SkillLedger) Level(skill catalog.SkillID) int {
	return LevelFor(l.curve, l.xp[skill])
}

// Idle returns how long a skill has gone unused.
func (l *SkillLedger) Idle(skill catalog.SkillID) float64 { return l.idle[skill] }

// Decay applies rustiness: skills unused for longer than grace lose rate XP
// per second, never dropping below the floor of their current level.
func (l *SkillLedger) Decay(dt, grace, rate float64) {
	if dt <= 0 {
		return
	}
	for skill, xp := range l.xp {
		before := l.idle[skill]
		l.idle[skill] = before + dt
		rusty := l.idle[skill] - max(before, grace)
		if rusty <= 0 || rate <= 0 {
			continue
		}
		floor := floorFor(l.curve, xp)
		l.xp[skill] = max(floor, xp-rate*rusty)
	}
}

// Unlocked reports whether every prerequisite of a skill is met.
func (l *SkillLedger) Unlocked(c *catalog.Catalog, skill catalog.SkillID) bool {
	def, ok := c.Skill(skill)
	if !ok {
		return false
	}
	for _, p := range def.Requires {
		if l.Level(p.Skill) < p.Level {
			return false
		}
	}
	return true
}

// Qualified reports whether the agent may use a recipe: its skill is
// unlocked and at least the recipe's minimum level.
func (l *SkillLedger) Qualified(c *catalog.Catalog, r catalog.Recipe) bool {
	return l.Unlocked(c, r.Skill) && l.Level(r.Skill) >= r.MinLevel
}

// SkillEntry is one ledger row in export order.
type SkillEntry struct {
	Skill catalog.SkillID `json:"skill"`
	XP    float64         `json:"xp"`
	Idle  float64         `json:"idle"`
}

// Entries returns every skill with experience, ordered by skill ID.
func (l *SkillLedger) Entries() []SkillEntry {
	out := make([]SkillEntry, 0, len(l.xp))
	for skill, xp := range l.xp {
		out = append(out, SkillEntry{Skill: skill, XP: xp, Idle: l.idle[skill]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Skill < out[j].Skill })
	return out
}

// restore sets a row verbatim. Used by FromRecord.
func (l *SkillLedger) restore(e SkillEntry) {
	l.xp[e.Skill] = e.XP
	l.idle[e.Skill] = e.Idle
}
