// Event feed: a bounded ring of recent events, live subscribers and a queue
// of events waiting to be archived.
package engine

import (
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/talgya/homestead/internal/agents"
)

// MaxRecentEvents bounds the in-memory event ring.
const MaxRecentEvents = 1000

// Event is a notable occurrence in the world.
type Event struct {
	ID          string           `json:"id"` // ULID, sortable by creation
	Tick        uint64           `json:"tick"`
	Kind        agents.EventKind `json:"kind"`
	Category    string           `json:"category"` // "birth", "death", "craft", "invention", "trade", "social"
	Agent       agents.AgentID   `json:"agent,omitempty"`
	Other       agents.AgentID   `json:"other,omitempty"`
	Description string           `json:"description"`
}

// Category groups event kinds for reports and filtering.
func Category(kind agents.EventKind) string {
	switch kind {
	case agents.EventBorn:
		return "birth"
	case agents.EventDied:
		return "death"
	case agents.EventCrafted, agents.EventBuilt:
		return "craft"
	case agents.EventDiscovered, agents.EventInventionFailed:
		return "invention"
	case agents.EventTraded:
		return "trade"
	}
	return "social"
}

func newEventID(t time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// record appends an event to the ring, the archive queue and every
// subscriber. Caller holds s.mu.
func (s *Simulation) record(ev Event) {
	if ev.ID == "" {
		ev.ID = newEventID(time.Now())
	}
	s.events = append(s.events, ev)
	if len(s.events) > 2*MaxRecentEvents {
		s.events = append([]Event(nil), s.events[len(s.events)-MaxRecentEvents:]...)
	}
	s.pending = append(s.pending, ev)
	s.counts[ev.Kind]++

	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; drop rather than stall the tick.
		}
	}
}

// Subscribe returns a channel receiving every new event and a function to
// stop the subscription.
func (s *Simulation) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, max(1, buffer))
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
	}
}

// RecentEvents returns up to n of the newest events, oldest first.
func (s *Simulation) RecentEvents(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > MaxRecentEvents {
		n = MaxRecentEvents
	}
	start := max(0, len(s.events)-n)
	return append([]Event(nil), s.events[start:]...)
}

// PendingArchive hands over every event recorded since the last call.
func (s *Simulation) PendingArchive() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

// trimEvents keeps the newest MaxRecentEvents. Caller holds s.mu.
func (s *Simulation) trimEvents() int {
	if len(s.events) <= MaxRecentEvents {
		return 0
	}
	dropped := len(s.events) - MaxRecentEvents
	s.events = append([]Event(nil), s.events[dropped:]...)
	return dropped
}
