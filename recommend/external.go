package recommend

import "context"

// The recommendation core owns its collaborator contracts; implementations
// are injected. All calls are blocking I/O that may fail; the core treats
// each failure as a degraded contribution, never a crash.

// Embedder maps text to a vector. Implemented by ai.EmbeddingService.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// TextService provides the chat-model text operations. Implemented by
// ai.TextService.
type TextService interface {
	Summarize(ctx context.Context, name, address string, reviews, placeTypes []string) (string, error)
	ExtractEmotionTags(ctx context.Context, name string, reviews, placeTypes []string) ([]string, error)
	ExpandEmotions(ctx context.Context, tags []string) ([]string, error)
	Translate(ctx context.Context, text string) (string, error)
}

// CandidateStub is a lightweight external search hit, before enrichment.
type CandidateStub struct {
	ID       string
	Name     string
	Address  string
	PhotoRef string
}

// PlaceDetails is the full detail record for one external place. Fetched
// only for the bounded top-few enrichment subset per request.
type PlaceDetails struct {
	Name    string
	Address string
	Rating  float64
	Types   []string
	Reviews []string
	Photos  []string
}

// PlaceSearcher finds candidate places near an address matching the given
// emotions and category types. Best-effort: may return fewer than asked,
// never guaranteed exhaustive.
type PlaceSearcher interface {
	Search(ctx context.Context, address string, emotions, allowedTypes []string) ([]CandidateStub, error)
}

// DetailFetcher loads provider details for one candidate.
type DetailFetcher interface {
	Fetch(ctx context.Context, id, name string) (*PlaceDetails, error)
}
