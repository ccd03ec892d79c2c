package ai

import (
	"github.com/moodplace/moodplace/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	Chat      ChatConfig
	Enabled   bool
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Model   string
	APIKey  string
	BaseURL string
}

// ChatConfig represents the chat model used for summaries, emotion tag
// extraction, emotion expansion and translation.
type ChatConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
}

// NewConfigFromProfile creates AI config from the runtime profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}
	if !cfg.Enabled {
		return cfg
	}

	cfg.Embedding = EmbeddingConfig{
		Model:   p.AIEmbeddingModel,
		APIKey:  p.AIEmbeddingAPIKey,
		BaseURL: p.AIEmbeddingBaseURL,
	}
	cfg.Chat = ChatConfig{
		Model:       p.AIChatModel,
		APIKey:      p.AIChatAPIKey,
		BaseURL:     p.AIChatBaseURL,
		MaxTokens:   512,
		Temperature: 0.3,
	}
	return cfg
}
