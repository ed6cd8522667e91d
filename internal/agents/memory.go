// Agent memory stream: notable experiences shown to observers and kept
// across saves. The stream stays in tick order.
package agents

import "math"

const (
	MaxMemories = 50

	// memoryHalfLife is how many ticks it takes a memory's weight to halve
	// when choosing what to forget.
	memoryHalfLife = 7000.0
)

// Memory records a notable experience in an agent's life.
type Memory struct {
	Tick       uint64  `json:"tick"`
	Content    string  `json:"content"`
	Importance float64 `json:"importance"` // 0.0–1.0
	Repeats    int     `json:"repeats,omitempty"`
}

// weight is the memory's importance faded by its age at tick now.
func (m Memory) weight(now uint64) float64 {
	if now <= m.Tick {
		return m.Importance
	}
	return m.Importance * math.Exp2(-float64(now-m.Tick)/memoryHalfLife)
}

// AddMemory records an experience at tick. Living through the same thing
// again refreshes the existing memory instead of adding a copy. When the
// stream is full the most faded memory makes room, provided it weighs less
// than the new one; ties go to the oldest.
func AddMemory(a *Agent, tick uint64, content string, importance float64) {
	importance = clamp01(importance)
	for i, m := range a.Memories {
		if m.Content != content {
			continue
		}
		m.Tick = tick
		m.Importance = max(m.Importance, importance)
		m.Repeats++
		a.Memories = append(append(a.Memories[:i], a.Memories[i+1:]...), m)
		return
	}

	m := Memory{Tick: tick, Content: content, Importance: importance}
	if len(a.Memories) < MaxMemories {
		a.Memories = append(a.Memories, m)
		return
	}

	weakest := 0
	for i := 1; i < len(a.Memories); i++ {
		if a.Memories[i].weight(tick) < a.Memories[weakest].weight(tick) {
			weakest = i
		}
	}
	if a.Memories[weakest].weight(tick) >= importance {
		return
	}
	a.Memories = append(append(a.Memories[:weakest], a.Memories[weakest+1:]...), m)
}

// RecentMemories returns up to count memories, newest first.
func RecentMemories(a *Agent, count int) []Memory {
	n := min(count, len(a.Memories))
	if n <= 0 {
		return nil
	}
	out := make([]Memory, 0, n)
	for i := len(a.Memories) - 1; len(out) < n; i-- {
		out = append(out, a.Memories[i])
	}
	return out
}
