package agents

import "sync"

// IDGenerator issues agent IDs. It is the only source of new IDs; its
// counter is saved with the world and restored on load so IDs are never
// reused.
type IDGenerator struct {
	mu   sync.Mutex
	next AgentID
}

// NewIDGenerator starts issuing at 1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{next: 1}
}

// Next issues a fresh ID.
func (g *IDGenerator) Next() AgentID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next
	g.next++
	return id
}

// Peek returns the ID the next call to Next will issue.
func (g *IDGenerator) Peek() AgentID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}

// Restore resets the counter from a saved world. It never moves backwards
// past an ID already observed.
func (g *IDGenerator) Restore(next AgentID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if next < 1 {
		next = 1
	}
	if next > g.next {
		g.next = next
	}
}

// Observe makes sure id will never be issued.
func (g *IDGenerator) Observe(id AgentID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id >= g.next {
		g.next = id + 1
	}
}
