package agents

// EventKind classifies what an agent did.
type EventKind string

const (
	EventBorn            EventKind = "born"
	EventDied            EventKind = "died"
	EventCrafted         EventKind = "crafted"
	EventBuilt           EventKind = "built"
	EventDiscovered      EventKind = "discovered"
	EventInventionFailed EventKind = "invention_failed"
	EventTraded          EventKind = "traded"
	EventTaught          EventKind = "taught"
	EventHelped          EventKind = "helped"
	EventSignaled        EventKind = "signaled"
	EventSocialized      EventKind = "socialized"
)

// Event is a notable outcome reported to the world's event feed.
type Event struct {
	Kind   EventKind
	Agent  AgentID
	Other  AgentID // Counterpart, 0 if none
	Detail string
}
