package ai

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// TextService groups the chat-model text operations the recommendation core
// consumes: place summaries, emotion tag extraction, emotion expansion and
// address translation. Implementations may return empty output; callers
// substitute templated fallbacks.
type TextService interface {
	// Summarize produces a one-paragraph description of a place from its
	// provider details and review sample. May return "".
	Summarize(ctx context.Context, name, address string, reviews, placeTypes []string) (string, error)

	// ExtractEmotionTags derives emotion tag names from place details and
	// reviews. May return an empty slice.
	ExtractEmotionTags(ctx context.Context, name string, reviews, placeTypes []string) ([]string, error)

	// ExpandEmotions widens a user-supplied emotion tag set with related
	// tags. Always includes the input tags in the result.
	ExpandEmotions(ctx context.Context, tags []string) ([]string, error)

	// Translate normalizes provider text into the target locale. On
	// failure the input is returned unchanged.
	Translate(ctx context.Context, text string) (string, error)
}

type textService struct {
	client *openai.Client
	cfg    ChatConfig
}

// NewTextService creates a TextService backed by an OpenAI-compatible chat
// model.
func NewTextService(cfg *ChatConfig) TextService {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &textService{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    *cfg,
	}
}

func (s *textService) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *textService) Summarize(ctx context.Context, name, address string, reviews, placeTypes []string) (string, error) {
	var b strings.Builder
	b.WriteString("name: " + name + "\n")
	b.WriteString("address: " + address + "\n")
	if len(placeTypes) > 0 {
		b.WriteString("categories: " + strings.Join(placeTypes, ", ") + "\n")
	}
	for _, review := range sampleReviews(reviews, 5) {
		b.WriteString("review: " + review + "\n")
	}

	return s.complete(ctx,
		"You describe cafes and restaurants. Write a single warm sentence summarizing the place for someone choosing where to go. No preamble.",
		b.String())
}

func (s *textService) ExtractEmotionTags(ctx context.Context, name string, reviews, placeTypes []string) ([]string, error) {
	var b strings.Builder
	b.WriteString("name: " + name + "\n")
	if len(placeTypes) > 0 {
		b.WriteString("categories: " + strings.Join(placeTypes, ", ") + "\n")
	}
	for _, review := range sampleReviews(reviews, 5) {
		b.WriteString("review: " + review + "\n")
	}

	out, err := s.complete(ctx,
		"Given a place and its reviews, answer with 2-4 lowercase mood words describing its atmosphere, comma separated. Examples: cozy, quiet, romantic, lively. No other text.",
		b.String())
	if err != nil {
		return nil, err
	}
	return splitTags(out), nil
}

func (s *textService) ExpandEmotions(ctx context.Context, tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}

	out, err := s.complete(ctx,
		"Given mood words, answer with up to 6 related lowercase mood words, comma separated, including the input words. No other text.",
		strings.Join(tags, ", "))
	if err != nil {
		return nil, err
	}

	expanded := splitTags(out)
	// The input tags always survive expansion.
	seen := make(map[string]bool, len(expanded))
	for _, tag := range expanded {
		seen[tag] = true
	}
	for _, tag := range tags {
		if normalized := strings.ToLower(strings.TrimSpace(tag)); normalized != "" && !seen[normalized] {
			expanded = append(expanded, normalized)
			seen[normalized] = true
		}
	}
	return expanded, nil
}

func (s *textService) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	out, err := s.complete(ctx,
		"Translate the given place name or address into Korean. If it already is Korean, return it unchanged. Answer with the translation only.",
		text)
	if err != nil || out == "" {
		// Translation is best-effort; the original text is always usable.
		return text, err
	}
	return out, nil
}

func sampleReviews(reviews []string, max int) []string {
	if len(reviews) > max {
		return reviews[:max]
	}
	return reviews
}

func splitTags(out string) []string {
	parts := strings.Split(out, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
