package scene

// EventKind names one kind of change event.
type EventKind string

const (
	CanvasCreated    EventKind = "canvas_created"
	ElementCreated   EventKind = "element_created"
	ElementUpdated   EventKind = "element_updated"
	ElementRemoved   EventKind = "element_removed"
	AnimationCreated EventKind = "animation_created"
	AnimationRemoved EventKind = "animation_removed"
	PromptRecorded   EventKind = "prompt_recorded"
)

// Event describes the effect of one committed mutation. Payload carries
// the full post-mutation entity for creates and updates, and only the
// identifier for removals.
type Event struct {
	Kind       EventKind `json:"kind"`
	SessionKey string    `json:"sessionKey"`
	EntityID   string    `json:"entityId"`
	Payload    any       `json:"payload,omitempty"`
	Seq        uint64    `json:"seq"`
}
