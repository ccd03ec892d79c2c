package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// Embedding configuration (OpenAI-compatible protocol).
	AIEmbeddingModel   string
	AIEmbeddingAPIKey  string
	AIEmbeddingBaseURL string

	// Chat model configuration, used for summaries, emotion tag
	// extraction, emotion expansion and address translation.
	AIChatModel   string
	AIChatAPIKey  string
	AIChatBaseURL string

	// Place-search provider configuration.
	PlacesAPIKey string

	Mode    string
	Addr    string
	Data    string
	Driver  string
	DSN     string
	Version string
	Port    int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an embedding API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEmbeddingAPIKey != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.AIEmbeddingModel = getEnvOrDefault("MOODPLACE_AI_EMBEDDING_MODEL", "text-embedding-3-small")
	p.AIEmbeddingAPIKey = getEnvOrDefault("MOODPLACE_AI_EMBEDDING_API_KEY", "")
	p.AIEmbeddingBaseURL = getEnvOrDefault("MOODPLACE_AI_EMBEDDING_BASE_URL", "")

	p.AIChatModel = getEnvOrDefault("MOODPLACE_AI_CHAT_MODEL", "gpt-4o-mini")
	p.AIChatAPIKey = getEnvOrDefault("MOODPLACE_AI_CHAT_API_KEY", p.AIEmbeddingAPIKey)
	p.AIChatBaseURL = getEnvOrDefault("MOODPLACE_AI_CHAT_BASE_URL", "")

	p.PlacesAPIKey = getEnvOrDefault("MOODPLACE_PLACES_API_KEY", "")

	if p.Port == 0 {
		p.Port = getEnvOrDefaultInt("MOODPLACE_PORT", 8081)
	}
}

// Validate checks the profile and normalizes the data directory.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/moodplace"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrap(err, "invalid data directory")
	}
	p.Data = dataDir

	switch p.Driver {
	case "sqlite", "":
		p.Driver = "sqlite"
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("moodplace_%s.db", p.Mode))
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn is required for postgres driver")
		}
	default:
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	return nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}
