// Package viewer streams scene changes to attached clients. Each
// connection first receives a snapshot message, then every change event
// committed at or after the attachment, in commit order.
package viewer

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/svgstudio/server/internal/service/broadcast"
	"github.com/svgstudio/server/internal/service/session"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Handler upgrades viewer connections and relays change events.
type Handler struct {
	store    *session.Store
	upgrader websocket.Upgrader
}

// New creates the viewer handler.
func New(store *session.Store) *Handler {
	return &Handler{
		store: store,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the viewer endpoint on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleViewer)
	r.Get("/ws/{sessionKey}", h.handleViewer)
}

func (h *Handler) handleViewer(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "sessionKey")
	if key == "" {
		key = session.DefaultKey
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[viewer] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	snapshot, sub := h.store.Attach(r.Context(), key)
	defer h.store.Detach(sub)

	log.Printf("[viewer] attached session=%s viewers=%d", key, h.store.ViewerCount(key))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	// Viewers send nothing meaningful. The read pump consumes control
	// frames and ends the connection when the peer goes away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					log.Printf("[viewer] read error session=%s: %v", key, err)
				}
				return
			}
		}
	}()

	if err := h.writeMessage(conn, broadcast.Message{
		Type:       broadcast.SnapshotType,
		SessionKey: key,
		Data:       snapshot,
		Timestamp:  time.Now().Unix(),
	}); err != nil {
		log.Printf("[viewer] snapshot write failed session=%s: %v", key, err)
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				// Dropped by the hub for falling behind. The client
				// reconnects and starts over from a fresh snapshot.
				log.Printf("[viewer] detached by hub session=%s", key)
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too slow"))
				return
			}
			if err := h.writeMessage(conn, msg); err != nil {
				log.Printf("[viewer] write failed session=%s: %v", key, err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) writeMessage(conn *websocket.Conn, msg broadcast.Message) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}
