package tracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/model"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestHubStreamsEventsForWatchedRequest(t *testing.T) {
	hub := NewHub(nil, zerolog.Nop())
	watched, other := uuid.New(), uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, watched, map[string]string{"status": "Assigned"})
	}))
	defer srv.Close()

	conn := dial(t, srv)
	var snapshot map[string]string
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot["status"] != "Assigned" || hub.Subscribers(watched) != 1 {
		t.Fatalf("unexpected snapshot %v with %d subscribers", snapshot, hub.Subscribers(watched))
	}

	_ = hub.Publish(context.Background(), model.RequestEvent{RequestID: other, Kind: model.RequestEventCreated})
	_ = hub.Publish(context.Background(), model.RequestEvent{
		RequestID: watched,
		Kind:      model.RequestEventMilestone,
		Milestone: model.MilestonePickupStarted,
		Location:  &model.GeoPoint{Lon: 77.59, Lat: 12.97},
	})

	var event model.RequestEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.RequestID != watched || event.Milestone != model.MilestonePickupStarted || event.Location == nil {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestHubForgetsClosedSessions(t *testing.T) {
	hub := NewHub([]string{"*"}, zerolog.Nop())
	id := uuid.New()
	served := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, id, struct{}{})
		close(served)
	}))
	defer srv.Close()

	conn := dial(t, srv)
	var snapshot struct{}
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	_ = conn.Close()

	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return after client closed")
	}
	if n := hub.Subscribers(id); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})
	allowed := httptest.NewRequest(http.MethodGet, "/", nil)
	allowed.Header.Set("Origin", "https://app.example.com")
	denied := httptest.NewRequest(http.MethodGet, "/", nil)
	denied.Header.Set("Origin", "https://evil.example.com")

	if !check(allowed) || check(denied) {
		t.Fatalf("unexpected origin decisions")
	}
	if originChecker(nil) != nil {
		t.Fatalf("expected default same-origin check when no origins configured")
	}
}
