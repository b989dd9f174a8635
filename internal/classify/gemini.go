// Package classify labels waste photos and screens community event submissions with Gemini.
package classify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/avakara/ewaste-platform/internal/config"
	"github.com/avakara/ewaste-platform/internal/metrics"
	"github.com/avakara/ewaste-platform/internal/service"
)

const defaultModel = "gemini-1.5-flash"

var ErrEmptyResponse = errors.New("classify: empty model response")

type generateFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)

type GeminiClassifier struct {
	client     *genai.Client
	generate   generateFunc
	categories []string
	log        zerolog.Logger
}

var _ service.Classifier = (*GeminiClassifier)(nil)

// NewGeminiClassifier answers with one of categories for waste photos. Close releases the client.
func NewGeminiClassifier(ctx context.Context, cfg config.ClassifierConfig, categories []string, log zerolog.Logger) (*GeminiClassifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classify: api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("classify: create client: %w", err)
	}
	name := cfg.Model
	if name == "" {
		name = defaultModel
	}
	model := client.GenerativeModel(name)
	model.SetTemperature(0)
	return &GeminiClassifier{
		client:     client,
		generate:   model.GenerateContent,
		categories: normalizeCategories(categories),
		log:        log,
	}, nil
}

func (c *GeminiClassifier) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *GeminiClassifier) ClassifyWasteImage(ctx context.Context, image service.File) (string, error) {
	prompt := fmt.Sprintf(
		"Classify the electronic waste in this photo. Answer with exactly one word from this list: %s, other. "+
			"Answer UNKNOWN if the photo does not show electronic waste.",
		strings.Join(c.categories, ", "),
	)
	answer, err := c.ask(ctx, genai.ImageData(imageFormat(image.ContentType), image.Data), genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return parseCategory(answer, c.categories), nil
}

func (c *GeminiClassifier) ModerateEvent(ctx context.Context, title, description string) (string, error) {
	prompt := fmt.Sprintf(
		"You review community e-waste collection events before they are published. "+
			"Reply VALID if the event below is a genuine recycling, collection or awareness activity, "+
			"FAKE if it is spam, advertising or unrelated. Reply with one word.\n\nTitle: %s\nDescription: %s",
		title, description,
	)
	answer, err := c.ask(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return parseModeration(answer), nil
}

func (c *GeminiClassifier) ask(ctx context.Context, parts ...genai.Part) (string, error) {
	start := time.Now()
	resp, err := c.generate(ctx, parts...)
	metrics.ExternalCallDuration.WithLabelValues("classifier", metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("classify: generate: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	c.log.Debug().Str("answer", text).Msg("classifier answered")
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

func firstWord(answer string) string {
	fields := strings.Fields(answer)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,;:!\"'*`")
}

func parseCategory(answer string, categories []string) string {
	word := strings.ToLower(firstWord(answer))
	if word == "other" {
		return word
	}
	for _, category := range categories {
		if word == category {
			return category
		}
	}
	return service.UnknownCategory
}

func parseModeration(answer string) string {
	switch strings.ToUpper(firstWord(answer)) {
	case service.ModerationValid:
		return service.ModerationValid
	case service.ModerationFake:
		return service.ModerationFake
	default:
		return service.ModerationUnknown
	}
}

func normalizeCategories(categories []string) []string {
	seen := make(map[string]struct{}, len(categories))
	out := make([]string, 0, len(categories))
	for _, category := range categories {
		category = strings.ToLower(strings.TrimSpace(category))
		if category == "" {
			continue
		}
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

func imageFormat(contentType string) string {
	format := strings.TrimPrefix(strings.ToLower(contentType), "image/")
	switch format {
	case "png", "webp", "heic", "heif":
		return format
	default:
		return "jpeg"
	}
}
