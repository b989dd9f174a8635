// Package tracking pushes request lifecycle events to websocket subscribers watching a request.
package tracking

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/metrics"
	"github.com/avakara/ewaste-platform/internal/model"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *session) send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func (s *session) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub implements service.EventSink. Sessions are grouped by request id.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[*session]struct{}
	log      zerolog.Logger
}

func NewHub(allowedOrigins []string, log zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
		sessions: make(map[uuid.UUID]map[*session]struct{}),
		log:      log,
	}
}

// Serve upgrades the connection, sends snapshot and streams events for requestID until the
// client goes away. Callers authorize the subscriber first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, requestID uuid.UUID, snapshot any) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	s := &session{conn: conn}
	h.add(requestID, s)
	defer h.remove(requestID, s)

	if snapshot != nil {
		if err := s.send(snapshot); err != nil {
			return nil
		}
	}

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(s, done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

func (h *Hub) Publish(_ context.Context, event model.RequestEvent) error {
	h.mu.RLock()
	targets := make([]*session, 0, len(h.sessions[event.RequestID]))
	for s := range h.sessions[event.RequestID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if err := s.send(event); err != nil {
			h.log.Debug().Err(err).Str("request_id", event.RequestID.String()).Msg("drop tracking subscriber")
			h.remove(event.RequestID, s)
		}
	}
	return nil
}

// Subscribers reports how many sessions watch requestID.
func (h *Hub) Subscribers(requestID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[requestID])
}

func (h *Hub) add(requestID uuid.UUID, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[requestID]
	if !ok {
		set = make(map[*session]struct{})
		h.sessions[requestID] = set
	}
	set[s] = struct{}{}
	metrics.TrackingConnections.Inc()
}

func (h *Hub) remove(requestID uuid.UUID, s *session) {
	h.mu.Lock()
	set := h.sessions[requestID]
	_, ok := set[s]
	if ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.sessions, requestID)
		}
	}
	h.mu.Unlock()

	if ok {
		metrics.TrackingConnections.Dec()
		_ = s.conn.Close()
	}
}

func (h *Hub) keepAlive(s *session, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := s.ping(); err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
