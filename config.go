package planalign

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the alignment engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.planalign/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.planalign/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Plan documents to analyze.
	StrategicPlanPath string `json:"strategic_plan_path" yaml:"strategic_plan_path"`
	ActionPlanPath    string `json:"action_plan_path" yaml:"action_plan_path"`

	// CacheDir holds analysis snapshots between runs.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// LLM providers
	Chat      LLMConfig `json:"chat" yaml:"chat"`
	Embedding LLMConfig `json:"embedding" yaml:"embedding"`

	// Chunking
	ChunkSize     int    `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap  int    `json:"chunk_overlap" yaml:"chunk_overlap"`
	ChunkStrategy string `json:"chunk_strategy" yaml:"chunk_strategy"` // fixed, structural

	// Retrieval
	SearchBreadth int `json:"search_breadth" yaml:"search_breadth"` // per-variant KNN depth
	TopK          int `json:"top_k" yaml:"top_k"`                   // fused results kept

	// Embedding dimensions (must match model)
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, openai, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config matching the models the scoring
// prompts were tuned on. Database is stored in ~/.planalign/ by
// default.
func DefaultConfig() Config {
	return Config{
		DBName:     "planalign",
		StorageDir: "home",
		CacheDir:   "cache",
		Chat: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			APIKey:   os.Getenv("OPENAI_API_KEY"),
		},
		Embedding: LLMConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
			APIKey:   os.Getenv("OPENAI_API_KEY"),
		},
		ChunkSize:     800,
		ChunkOverlap:  150,
		ChunkStrategy: "fixed",
		SearchBreadth: 10,
		TopK:          5,
		EmbeddingDim:  1536,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "planalign"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		dir := filepath.Join(home, ".planalign")
		return filepath.Join(dir, name+".db")
	}
}

// snapshotPath is where Analyze persists its results between runs.
func (c *Config) snapshotPath() string {
	dir := c.CacheDir
	if dir == "" {
		dir = "cache"
	}
	return filepath.Join(dir, "pipeline_cache.json")
}
