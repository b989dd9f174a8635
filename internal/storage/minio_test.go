package storage

import (
	"strings"
	"testing"

	"github.com/avakara/ewaste-platform/internal/config"
)

func TestObjectKey(t *testing.T) {
	key := objectKey("/requests/abc/", "../My Photo (1).JPG")
	if !strings.HasPrefix(key, "requests/abc/") {
		t.Fatalf("expected folder prefix, got %q", key)
	}
	if !strings.HasSuffix(key, "-my-photo--1-.jpg") {
		t.Fatalf("expected sanitised name, got %q", key)
	}
	if sanitizeName("...") != "file" {
		t.Fatalf("expected fallback name")
	}
}

func TestPublicBase(t *testing.T) {
	cases := []struct {
		cfg  config.StorageConfig
		want string
	}{
		{config.StorageConfig{Endpoint: "minio:9000", Bucket: "ewaste"}, "http://minio:9000/ewaste"},
		{config.StorageConfig{Endpoint: "s3.example.com", Bucket: "ewaste", UseSSL: true}, "https://s3.example.com/ewaste"},
		{config.StorageConfig{PublicURL: "https://cdn.example.com/", Bucket: "ewaste"}, "https://cdn.example.com/ewaste"},
	}
	for _, tc := range cases {
		if got := publicBase(tc.cfg); got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
}
