// Package mirror is the viewer-side reconciliation contract: a
// deterministic reducer that folds a snapshot and subsequent deltas into
// a local copy of the scene. Rendering clients implement the same rules;
// this in-process version backs the replay-equivalence tests.
package mirror

import (
	"encoding/json"
	"fmt"

	"github.com/svgstudio/server/internal/model/scene"
	"github.com/svgstudio/server/internal/service/broadcast"
)

// Mirror is one viewer's local copy of a session's state.
type Mirror struct {
	canvas     *scene.Canvas
	elements   map[string]scene.Element
	order      []string
	animations map[string]scene.Animation
	prompts    []scene.PromptEntry
}

// New returns an empty mirror.
func New() *Mirror {
	m := &Mirror{}
	m.reset()
	return m
}

func (m *Mirror) reset() {
	m.canvas = nil
	m.elements = make(map[string]scene.Element)
	m.order = nil
	m.animations = make(map[string]scene.Animation)
}

// Apply folds one message into the mirror. A snapshot discards local
// state entirely and rebuilds from the payload. Deltas referencing
// unknown entity ids are ignored, never an error: a viewer may race a
// removal it has not seen yet.
func (m *Mirror) Apply(msg broadcast.Message) {
	if msg.Type == broadcast.SnapshotType {
		if snap, ok := msg.Data.(scene.Snapshot); ok {
			m.applySnapshot(snap)
		}
		return
	}

	switch scene.EventKind(msg.Type) {
	case scene.CanvasCreated:
		if canvas, ok := msg.Data.(scene.Canvas); ok {
			m.reset()
			m.canvas = &canvas
		}
	case scene.ElementCreated:
		if element, ok := msg.Data.(scene.Element); ok {
			if _, exists := m.elements[element.ID]; !exists {
				m.order = append(m.order, element.ID)
			}
			m.elements[element.ID] = element
		}
	case scene.ElementUpdated:
		element, ok := msg.Data.(scene.Element)
		if !ok {
			return
		}
		if _, exists := m.elements[element.ID]; !exists {
			return
		}
		m.elements[element.ID] = element
	case scene.ElementRemoved:
		m.removeElement(msg.EntityID)
	case scene.AnimationCreated:
		if animation, ok := msg.Data.(scene.Animation); ok {
			// The server replaces animations per (element, attribute)
			// pair and announces only the replacement; enforce the same
			// invariant locally.
			for id, existing := range m.animations {
				if existing.ElementID == animation.ElementID && existing.Attribute == animation.Attribute {
					delete(m.animations, id)
				}
			}
			m.animations[animation.ID] = animation
		}
	case scene.AnimationRemoved:
		delete(m.animations, msg.EntityID)
	case scene.PromptRecorded:
		if entry, ok := msg.Data.(scene.PromptEntry); ok {
			m.prompts = append(m.prompts, entry)
		}
	}
}

// ApplyWire folds a message whose Data field still holds the decoded
// JSON shape, as read off a websocket. The payload is re-encoded and
// decoded into the concrete type the message kind implies, then applied
// like any in-process message.
func (m *Mirror) ApplyWire(msg broadcast.Message) error {
	raw, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	decode := func(target any) error {
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.Type, err)
		}
		return nil
	}

	switch {
	case msg.Type == broadcast.SnapshotType:
		var snap scene.Snapshot
		if err := decode(&snap); err != nil {
			return err
		}
		msg.Data = snap
	case msg.Type == string(scene.CanvasCreated):
		var canvas scene.Canvas
		if err := decode(&canvas); err != nil {
			return err
		}
		msg.Data = canvas
	case msg.Type == string(scene.ElementCreated) || msg.Type == string(scene.ElementUpdated):
		var element scene.Element
		if err := decode(&element); err != nil {
			return err
		}
		msg.Data = element
	case msg.Type == string(scene.AnimationCreated):
		var animation scene.Animation
		if err := decode(&animation); err != nil {
			return err
		}
		msg.Data = animation
	case msg.Type == string(scene.PromptRecorded):
		var entry scene.PromptEntry
		if err := decode(&entry); err != nil {
			return err
		}
		msg.Data = entry
	}

	m.Apply(msg)
	return nil
}

func (m *Mirror) applySnapshot(snap scene.Snapshot) {
	m.reset()
	m.canvas = snap.Canvas
	m.order = append([]string(nil), snap.Order...)
	for id, element := range snap.Elements {
		m.elements[id] = element
	}
	for id, animation := range snap.Animations {
		m.animations[id] = animation
	}
	m.prompts = append([]scene.PromptEntry(nil), snap.PromptHistory...)
}

func (m *Mirror) removeElement(elementID string) {
	if _, ok := m.elements[elementID]; !ok {
		return
	}
	delete(m.elements, elementID)
	for i, id := range m.order {
		if id == elementID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for id, animation := range m.animations {
		if animation.ElementID == elementID {
			delete(m.animations, id)
		}
	}
}

// Snapshot renders the mirror's current state in the server's snapshot
// shape, so tests can compare a replayed mirror against the document.
func (m *Mirror) Snapshot() scene.Snapshot {
	snap := scene.Snapshot{
		Canvas:        m.canvas,
		Elements:      make(map[string]scene.Element, len(m.elements)),
		Order:         append([]string(nil), m.order...),
		Animations:    make(map[string]scene.Animation, len(m.animations)),
		PromptHistory: append([]scene.PromptEntry(nil), m.prompts...),
	}
	for id, element := range m.elements {
		snap.Elements[id] = element
	}
	for id, animation := range m.animations {
		snap.Animations[id] = animation
	}
	return snap
}
