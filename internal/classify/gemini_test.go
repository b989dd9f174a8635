package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/service"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}}}},
	}
}

func newTestClassifier(generate generateFunc) *GeminiClassifier {
	return &GeminiClassifier{
		generate:   generate,
		categories: normalizeCategories([]string{"Laptop", "mobile", "laptop", " batteries "}),
		log:        zerolog.Nop(),
	}
}

func TestClassifyWasteImage(t *testing.T) {
	var gotParts int
	c := newTestClassifier(func(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		gotParts = len(parts)
		return textResponse(" Laptop.\n"), nil
	})

	label, err := c.ClassifyWasteImage(context.Background(), service.File{ContentType: "image/png", Data: []byte{1}})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if label != "laptop" || gotParts != 2 {
		t.Fatalf("expected laptop from image+prompt, got %q with %d parts", label, gotParts)
	}
}

func TestClassifierErrors(t *testing.T) {
	failing := newTestClassifier(func(context.Context, ...genai.Part) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("quota exceeded")
	})
	if _, err := failing.ModerateEvent(context.Background(), "Drive", "Collect phones"); err == nil {
		t.Fatalf("expected generate error")
	}

	empty := newTestClassifier(func(context.Context, ...genai.Part) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	})
	if _, err := empty.ClassifyWasteImage(context.Background(), service.File{}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestParseModeration(t *testing.T) {
	cases := map[string]string{
		"VALID":                    service.ModerationValid,
		"valid.":                   service.ModerationValid,
		"**FAKE** looks like spam": service.ModerationFake,
		"I cannot tell":            service.ModerationUnknown,
		"":                         service.ModerationUnknown,
	}
	for answer, want := range cases {
		if got := parseModeration(answer); got != want {
			t.Errorf("parseModeration(%q) = %q, want %q", answer, got, want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	categories := normalizeCategories([]string{"laptop", "mobile"})
	cases := map[string]string{
		"mobile":       "mobile",
		"Other":        "other",
		"refrigerator": service.UnknownCategory,
		"UNKNOWN":      service.UnknownCategory,
	}
	for answer, want := range cases {
		if got := parseCategory(answer, categories); got != want {
			t.Errorf("parseCategory(%q) = %q, want %q", answer, got, want)
		}
	}
}

func TestHelpers(t *testing.T) {
	if got := normalizeCategories([]string{"Laptop", "mobile", "laptop", " "}); len(got) != 2 || got[0] != "laptop" {
		t.Fatalf("unexpected categories %v", got)
	}
	if imageFormat("image/PNG") != "png" || imageFormat("application/octet-stream") != "jpeg" {
		t.Fatalf("unexpected image formats")
	}
}
