// Package broadcast fans change events out to attached viewers. Delivery
// is best-effort per connection: a subscriber that stops draining its
// buffer is dropped, never allowed to stall the mutation path.
package broadcast

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SnapshotType is the wire type of the full-state message sent once when
// a viewer attaches. Every other message type is a scene.EventKind.
const SnapshotType = "snapshot"

// subscriberBuffer is the per-viewer outbound queue depth. A viewer this
// far behind is considered dead.
const subscriberBuffer = 64

// Message is the wire envelope shared by snapshots and deltas.
type Message struct {
	Type       string `json:"type"`
	SessionKey string `json:"sessionId"`
	EntityID   string `json:"entityId,omitempty"`
	Data       any    `json:"data,omitempty"`
	Seq        uint64 `json:"seq,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// Subscriber is one attached viewer's receive side.
type Subscriber struct {
	id         string
	sessionKey string

	mu     sync.Mutex
	ch     chan Message
	closed bool
}

// Messages returns the ordered stream of messages for this viewer. The
// channel is closed when the subscriber is dropped or unsubscribed.
func (s *Subscriber) Messages() <-chan Message {
	return s.ch
}

// SessionKey reports which session this subscriber is attached to.
func (s *Subscriber) SessionKey() string {
	return s.sessionKey
}

// send enqueues a message without blocking. The subscriber mutex keeps
// sends and close mutually exclusive, so a viewer detaching mid-publish
// cannot panic the publisher. Reports false when the buffer is full.
func (s *Subscriber) send(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Hub is the process-wide viewer registry, keyed by session.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*Subscriber
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[string]*Subscriber)}
}

// Subscribe attaches a new viewer to a session. The caller is responsible
// for delivering a snapshot before the first delta; the hub only
// guarantees that every message published after Subscribe returns is
// delivered in publish order.
func (h *Hub) Subscribe(sessionKey string) *Subscriber {
	sub := &Subscriber{
		id:         uuid.NewString(),
		sessionKey: sessionKey,
		ch:         make(chan Message, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.sessions[sessionKey]
	if !ok {
		subs = make(map[string]*Subscriber)
		h.sessions[sessionKey] = subs
	}
	subs[sub.id] = sub
	return sub
}

// Unsubscribe detaches a viewer and closes its message stream. Calling it
// for an already-dropped subscriber is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	if subs, ok := h.sessions[sub.sessionKey]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(h.sessions, sub.sessionKey)
		}
	}
	h.mu.Unlock()

	sub.close()
}

// Publish delivers a message to every subscriber of the session.
// Subscribers whose buffers are full are dropped so one slow viewer
// cannot delay the others or the publisher.
func (h *Hub) Publish(msg Message) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}

	h.mu.RLock()
	subs := h.sessions[msg.SessionKey]
	targets := make([]*Subscriber, 0, len(subs))
	for _, sub := range subs {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	var dead []*Subscriber
	for _, sub := range targets {
		if !sub.send(msg) {
			dead = append(dead, sub)
		}
	}

	for _, sub := range dead {
		log.Printf("[broadcast] dropping slow viewer session=%s", sub.sessionKey)
		h.Unsubscribe(sub)
	}
}

// ViewerCount reports how many viewers are attached to a session.
func (h *Hub) ViewerCount(sessionKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionKey])
}
