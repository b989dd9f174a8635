package config

import (
	"testing"
	"time"
)

func TestLoadMemoryDriverWithDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("STORAGE_ENDPOINT", "localhost:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Auth.AccessTTL != 24*time.Hour {
		t.Fatalf("expected 24h token ttl, got %s", cfg.Auth.AccessTTL)
	}
	if cfg.Rules.InventoryAlertThreshold != 0.9 {
		t.Fatalf("expected alert threshold 0.9, got %v", cfg.Rules.InventoryAlertThreshold)
	}
	if cfg.Rules.CommunityEventPoints != 50 {
		t.Fatalf("expected community points 50, got %d", cfg.Rules.CommunityEventPoints)
	}
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DB_DSN")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("STORAGE_ENDPOINT", "localhost:9000")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_ACCESS_SECRET")
	}
}

func TestLoadRequiresStorageEndpoint(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("STORAGE_ENDPOINT", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without STORAGE_ENDPOINT")
	}
}

func TestParseList(t *testing.T) {
	got := parseList(" a, ,b ,c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected list: %v", got)
	}
	if parseList("  ") != nil {
		t.Fatal("expected nil for blank input")
	}
}
