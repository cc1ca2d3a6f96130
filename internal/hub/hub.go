package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Role tags a connected session with its audience. Events targeted at one
// role are never delivered to another.
type Role string

const (
	RoleProducer Role = "extension"
	RoleConsumer Role = "panel"
	RoleUnknown  Role = "unknown"
)

// ParseRole maps the connect-time role parameter, defaulting to unknown.
func ParseRole(raw string) Role {
	switch Role(raw) {
	case RoleProducer, RoleConsumer:
		return Role(raw)
	default:
		return RoleUnknown
	}
}

// Event names on the channel.
const (
	EventDownloadStarted  = "download_started"
	EventProgress         = "progress"
	EventDownloadComplete = "download-complete"
	EventDownloadFailed   = "download-failed"
	EventImportVideo      = "import_video"
	EventConnectionStatus = "connection_status"
)

const (
	sendBufferSize = 64
	writeTimeout   = 10 * time.Second
	importTTL      = 10 * time.Minute
)

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type session struct {
	id   string
	role Role
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// Hub tracks connected client sessions by role, delivers targeted events,
// and de-duplicates import triggers by file path.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader
	history  *History

	mu       sync.Mutex
	sessions map[string]*session
	imported map[string]time.Time
	now      func() time.Time
}

// New creates an empty hub.
func New(log zerolog.Logger) *Hub {
	return &Hub{
		log: log.With().Str("component", "hub").Logger(),
		upgrader: websocket.Upgrader{
			// Local daemon; the extension connects from youtube.com pages.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		history:  NewHistory(500),
		sessions: make(map[string]*session),
		imported: make(map[string]time.Time),
		now:      time.Now,
	}
}

// ServeWS upgrades the connection and registers the session under the role
// given by the "role" query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := &session{
		id:   uuid.NewString(),
		role: ParseRole(r.URL.Query().Get("role")),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.sessions[sess.id] = sess
	h.mu.Unlock()
	h.log.Info().Str("session", sess.id).Str("role", string(sess.role)).Msg("client connected")

	go h.writePump(sess)
	h.sendTo(sess, EventConnectionStatus, map[string]string{"status": "connected"})
	h.readPump(sess)
}

// EmitToRole delivers an event to every session registered under role. An
// empty audience is logged and skipped, never an error.
func (h *Hub) EmitToRole(role Role, event string, data any) {
	h.history.Append(Event{Name: event, Audience: role, Data: data})

	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal event")
		return
	}

	h.mu.Lock()
	targets := make([]*session, 0, len(h.sessions))
	for _, sess := range h.sessions {
		if sess.role == role {
			targets = append(targets, sess)
		}
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		h.log.Debug().Str("event", event).Str("role", string(role)).Msg("no sessions for role, event dropped")
		return
	}
	for _, sess := range targets {
		h.enqueue(sess, payload)
	}
}

// HasRole reports whether at least one session of the role is connected.
func (h *Hub) HasRole(role Role) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sess := range h.sessions {
		if sess.role == role {
			return true
		}
	}
	return false
}

// MarkImport records an import trigger for path and reports whether it is
// the first one. Entries expire so the suppression set stays bounded.
func (h *Hub) MarkImport(path string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for p, at := range h.imported {
		if now.Sub(at) > importTTL {
			delete(h.imported, p)
		}
	}

	if _, seen := h.imported[path]; seen {
		return false
	}
	h.imported[path] = now
	return true
}

// Since exposes the bounded event history for the polling fallback.
func (h *Hub) Since(seq int64) []Event {
	return h.history.Since(seq)
}

func (h *Hub) sendTo(sess *session, event string, data any) {
	payload, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	h.enqueue(sess, payload)
}

// enqueue drops the event when the session is gone or its buffer is full
// rather than blocking the emitter. The send channel is never closed, so a
// disconnect racing an in-flight emit cannot panic; teardown is signalled
// through done instead.
func (h *Hub) enqueue(sess *session, payload []byte) {
	select {
	case <-sess.done:
	case sess.send <- payload:
	default:
		h.log.Warn().Str("session", sess.id).Msg("session send buffer full, event dropped")
	}
}

func (h *Hub) writePump(sess *session) {
	for {
		select {
		case <-sess.done:
			return
		case payload := <-sess.send:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := sess.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames until the peer disconnects; clients only
// listen, so messages are discarded.
func (h *Hub) readPump(sess *session) {
	defer h.drop(sess)
	for {
		if _, _, err := sess.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(sess *session) {
	h.mu.Lock()
	_, present := h.sessions[sess.id]
	delete(h.sessions, sess.id)
	h.mu.Unlock()

	if present {
		close(sess.done)
		_ = sess.conn.Close()
		h.log.Info().Str("session", sess.id).Str("role", string(sess.role)).Msg("client disconnected")
	}
}
