// Package session owns the process-wide registry of scene documents and
// is the only mutation path into them. Every mutation for a session runs
// under that session's lock, is assigned the next sequence number, and is
// handed to the broadcast hub before the lock is released, which gives
// all viewers one total delta order.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/svgstudio/server/internal/model/scene"
	"github.com/svgstudio/server/internal/service/broadcast"
)

// DefaultKey names the session used when callers do not pick one.
const DefaultKey = "default"

// Config carries the defaults applied to freshly created sessions.
type Config struct {
	DefaultWidth  int
	DefaultHeight int
	PromptLimit   int
}

type state struct {
	mu  sync.Mutex
	doc *scene.Document
	seq uint64
}

// Store maps session keys to documents and serializes their mutations.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*state
	cfg      Config
	hub      *broadcast.Hub
}

// NewStore creates an empty store publishing into the given hub.
func NewStore(cfg Config, hub *broadcast.Hub) *Store {
	if cfg.DefaultWidth <= 0 {
		cfg.DefaultWidth = 800
	}
	if cfg.DefaultHeight <= 0 {
		cfg.DefaultHeight = 600
	}
	return &Store{
		sessions: make(map[string]*state),
		cfg:      cfg,
		hub:      hub,
	}
}

// getOrCreate resolves a session, creating it with a default canvas on
// first use. An empty key selects the default session.
func (s *Store) getOrCreate(key string) (string, *state) {
	if key == "" {
		key = DefaultKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[key]
	if !ok {
		doc := scene.NewDocument(s.cfg.PromptLimit)
		// A fresh session always has a usable canvas. No event fires:
		// no viewer can have attached before the session existed, and
		// late joiners receive the canvas in their snapshot.
		_, _ = doc.CreateCanvas(s.cfg.DefaultWidth, s.cfg.DefaultHeight, "")
		st = &state{doc: doc}
		s.sessions[key] = st
	}
	return key, st
}

// Remove tears a session down. Attached viewers keep draining whatever
// was already published; nothing new will arrive.
func (s *Store) Remove(key string) {
	if key == "" {
		key = DefaultKey
	}
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
}

// publish stamps the event with the session's next sequence number and
// hands it to the hub. Must be called with the session lock held.
func (s *Store) publish(key string, st *state, kind scene.EventKind, entityID string, payload any) {
	st.seq++
	s.hub.Publish(broadcast.Message{
		Type:       string(kind),
		SessionKey: key,
		EntityID:   entityID,
		Data:       payload,
		Seq:        st.seq,
	})
}

// CreateCanvas replaces the session's canvas, clearing all elements and
// animations, and broadcasts the new canvas.
func (s *Store) CreateCanvas(_ context.Context, key string, width, height int, prompt string) (*scene.Canvas, error) {
	key, st := s.getOrCreate(key)
	st.mu.Lock()
	defer st.mu.Unlock()

	canvas, err := st.doc.CreateCanvas(width, height, prompt)
	if err != nil {
		return nil, err
	}
	s.publish(key, st, scene.CanvasCreated, canvas.ID, *canvas)
	return canvas, nil
}

// ResetCanvas is the explicit teardown operation: a CreateCanvas with the
// session's defaults filled in for omitted dimensions. Only the zero
// value means omitted; explicit negative dimensions fail validation.
func (s *Store) ResetCanvas(ctx context.Context, key string, width, height int) (*scene.Canvas, error) {
	if width == 0 {
		width = s.cfg.DefaultWidth
	}
	if height == 0 {
		height = s.cfg.DefaultHeight
	}
	return s.CreateCanvas(ctx, key, width, height, "")
}

// ActiveCanvas returns the session's current canvas.
func (s *Store) ActiveCanvas(_ context.Context, key string) *scene.Canvas {
	_, st := s.getOrCreate(key)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.doc.Canvas()
}

// AddElement validates and stores a new element, broadcasting its full
// post-mutation payload.
func (s *Store) AddElement(_ context.Context, key, canvasID, rawType string, props scene.Properties) (*scene.Element, error) {
	typ, err := scene.ParseElementType(rawType)
	if err != nil {
		return nil, err
	}

	key, st := s.getOrCreate(key)
	st.mu.Lock()
	defer st.mu.Unlock()

	if canvasID == "" {
		if canvas := st.doc.Canvas(); canvas != nil {
			canvasID = canvas.ID
		}
	}

	element, err := st.doc.AddElement(canvasID, typ, props)
	if err != nil {
		return nil, err
	}
	s.publish(key, st, scene.ElementCreated, element.ID, *element)
	return element, nil
}

// UpdateElement merges properties into an element. The broadcast always
// fires, even when every supplied value was already current.
func (s *Store) UpdateElement(_ context.Context, key, elementID string, props scene.Properties) (*scene.Element, error) {
	key, st := s.getOrCreate(key)
	st.mu.Lock()
	defer st.mu.Unlock()

	element, err := st.doc.UpdateElement(elementID, props)
	if err != nil {
		return nil, err
	}
	s.publish(key, st, scene.ElementUpdated, element.ID, *element)
	return element, nil
}

// RemoveElement deletes an element and its animations. Unknown ids are a
// silent no-op and broadcast nothing.
func (s *Store) RemoveElement(_ context.Context, key, elementID string) {
	key, st := s.getOrCreate(key)
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, removed := st.doc.RemoveElement(elementID); removed {
		s.publish(key, st, scene.ElementRemoved, elementID, nil)
	}
}

// AddAnimation binds an element attribute to an interpolation. Replacing
// an existing animation on the same (element, attribute) pair surfaces as
// a single animation_created delta; viewers replace by pair.
func (s *Store) AddAnimation(_ context.Context, key, elementID, attribute string, from, to any, duration float64, repeat scene.RepeatCount) (*scene.Animation, error) {
	key, st := s.getOrCreate(key)
	st.mu.Lock()
	defer st.mu.Unlock()

	animation, _, err := st.doc.AddAnimation(elementID, attribute, from, to, duration, repeat)
	if err != nil {
		return nil, err
	}
	s.publish(key, st, scene.AnimationCreated, animation.ID, *animation)
	return animation, nil
}

// RemoveAnimation deletes an animation; unknown ids are a silent no-op.
func (s *Store) RemoveAnimation(_ context.Context, key, animationID string) {
	key, st := s.getOrCreate(key)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.doc.RemoveAnimation(animationID) {
		s.publish(key, st, scene.AnimationRemoved, animationID, nil)
	}
}

// RecordPrompt appends to the session's prompt history. Scene changes
// derived from the prompt arrive as separate, ordinary mutations.
func (s *Store) RecordPrompt(_ context.Context, key, text string) (scene.PromptEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return scene.PromptEntry{}, &scene.ValidationError{Reason: "prompt text is required"}
	}

	key, st := s.getOrCreate(key)
	st.mu.Lock()
	defer st.mu.Unlock()

	entry := st.doc.RecordPrompt(text)
	s.publish(key, st, scene.PromptRecorded, "", entry)
	return entry, nil
}

// Snapshot returns a deep copy of the session's full state.
func (s *Store) Snapshot(_ context.Context, key string) scene.Snapshot {
	_, st := s.getOrCreate(key)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.doc.Snapshot()
}

// Attach subscribes a viewer and takes its initial snapshot atomically
// with respect to mutations: every delta accepted before the snapshot is
// reflected in it, and every delta accepted after is delivered on the
// subscriber, exactly once, in commit order.
func (s *Store) Attach(_ context.Context, key string) (scene.Snapshot, *broadcast.Subscriber) {
	key, st := s.getOrCreate(key)
	st.mu.Lock()
	defer st.mu.Unlock()

	snap := st.doc.Snapshot()
	sub := s.hub.Subscribe(key)
	return snap, sub
}

// Detach removes a viewer from the broadcast set.
func (s *Store) Detach(sub *broadcast.Subscriber) {
	s.hub.Unsubscribe(sub)
}

// ViewerCount reports attached viewers for a session.
func (s *Store) ViewerCount(key string) int {
	if key == "" {
		key = DefaultKey
	}
	return s.hub.ViewerCount(key)
}
