package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/config"
)

type mapCache struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *mapCache) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *mapCache) Set(_ context.Context, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func TestReverseGeocodeUsesCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/reverse" || r.URL.Query().Get("format") != "jsonv2" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("User-Agent") != "ewaste-test" {
			t.Errorf("expected user agent header")
		}
		_, _ = w.Write([]byte(`{"display_name":"MG Road, Bengaluru, Karnataka"}`))
	}))
	defer server.Close()

	cache := &mapCache{values: map[string]string{}}
	client := NewNominatimClient(config.GeocodeConfig{Endpoint: server.URL + "/", UserAgent: "ewaste-test"}, cache, zerolog.Nop())

	for i := 0; i < 2; i++ {
		address, err := client.ReverseGeocode(context.Background(), 77.5946, 12.9716)
		if err != nil {
			t.Fatalf("reverse geocode: %v", err)
		}
		if address != "MG Road, Bengaluru, Karnataka" {
			t.Fatalf("unexpected address %q", address)
		}
	}
	if calls != 1 {
		t.Fatalf("expected second lookup served from cache, got %d calls", calls)
	}
}

func TestReverseGeocodeNoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer server.Close()

	client := NewNominatimClient(config.GeocodeConfig{Endpoint: server.URL}, nil, zerolog.Nop())
	if _, err := client.ReverseGeocode(context.Background(), 0, 0); !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
}

func TestReverseGeocodeHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewNominatimClient(config.GeocodeConfig{Endpoint: server.URL}, nil, zerolog.Nop())
	if _, err := client.ReverseGeocode(context.Background(), 1, 1); err == nil {
		t.Fatalf("expected error on 429")
	}
}

func TestCacheKeyRounds(t *testing.T) {
	if cacheKey(77.594612, 12.971601) != cacheKey(77.594609, 12.971598) {
		t.Fatalf("expected nearby coordinates to share a key")
	}
}
