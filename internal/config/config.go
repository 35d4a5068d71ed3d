// Package config loads the TOML configuration file and builds the
// backend adapters it describes.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/mira-labs/mira/internal/core/domain"
)

// Provider names accepted in the configuration file.
const (
	EmbeddingOpenAI = "openai"
	EmbeddingOllama = "ollama"

	VectorSQLite = "sqlite"
	VectorQdrant = "qdrant"

	LLMOpenAI    = "openai"
	LLMAnthropic = "anthropic"
)

// Config is the full configuration surface.
type Config struct {
	Chunking    Chunking    `toml:"chunking"`
	Embedding   Embedding   `toml:"embedding"`
	VectorStore VectorStore `toml:"vectorstore"`
	LLM         LLM         `toml:"llm"`
	Search      Search      `toml:"search"`
	Rag         Rag         `toml:"rag"`
}

// Chunking configures the document splitter.
type Chunking struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// Embedding configures the embedding backend.
type Embedding struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	// APIKeyEnv names the environment variable holding the key, so the
	// key itself never lands in the config file.
	APIKeyEnv  string `toml:"api_key_env"`
	Dimensions int    `toml:"dimensions"`
}

// VectorStore configures the vector index backend.
type VectorStore struct {
	Provider   string `toml:"provider"`
	Path       string `toml:"path"`
	URL        string `toml:"url"`
	APIKeyEnv  string `toml:"api_key_env"`
	Collection string `toml:"collection"`
	Metric     string `toml:"metric"`
}

// LLM configures the answer generation backend.
type LLM struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	APIKeyEnv string `toml:"api_key_env"`
}

// Search configures retrieval.
type Search struct {
	TopK int `toml:"top_k"`
}

// Rag configures answer generation.
type Rag struct {
	MaxContextChars int `toml:"max_context_chars"`
	MaxTokens       int `toml:"max_tokens"`
}

// Default returns the configuration used when no file exists: local
// Ollama embeddings into a SQLite index under ~/.mira.
func Default() *Config {
	return &Config{
		Chunking: Chunking{
			Size:    1000,
			Overlap: 200,
		},
		Embedding: Embedding{
			Provider: EmbeddingOllama,
		},
		VectorStore: VectorStore{
			Provider: VectorSQLite,
			Metric:   string(domain.MetricCosine),
		},
		LLM: LLM{
			Provider:  LLMOpenAI,
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Search: Search{
			TopK: 10,
		},
		Rag: Rag{
			MaxContextChars: 6000,
			MaxTokens:       1024,
		},
	}
}

// DefaultPath returns ~/.mira/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".mira", "config.toml"), nil
}

// Load reads the configuration at path, layered over defaults. A
// missing file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidConfig, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no backend could accept.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive", domain.ErrInvalidConfig)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, size)", domain.ErrInvalidConfig)
	}

	switch c.Embedding.Provider {
	case EmbeddingOpenAI, EmbeddingOllama:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidConfig, c.Embedding.Provider)
	}

	switch c.VectorStore.Provider {
	case VectorSQLite, VectorQdrant:
	default:
		return fmt.Errorf("%w: unknown vectorstore provider %q", domain.ErrInvalidConfig, c.VectorStore.Provider)
	}

	switch c.LLM.Provider {
	case LLMOpenAI, LLMAnthropic:
	default:
		return fmt.Errorf("%w: unknown llm provider %q", domain.ErrInvalidConfig, c.LLM.Provider)
	}

	switch domain.Metric(c.VectorStore.Metric) {
	case domain.MetricCosine, domain.MetricDot:
	default:
		return fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidConfig, c.VectorStore.Metric)
	}

	return nil
}

// IndexPath returns the SQLite index location, defaulting to
// ~/.mira/index.db next to the config file.
func (c *Config) IndexPath() (string, error) {
	if c.VectorStore.Path != "" {
		return c.VectorStore.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".mira")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return filepath.Join(dir, "index.db"), nil
}

// apiKey resolves a key from the named environment variable.
func apiKey(envVar string) (string, error) {
	if envVar == "" {
		return "", nil
	}
	key := os.Getenv(envVar)
	if key == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", domain.ErrInvalidConfig, envVar)
	}
	return key, nil
}
