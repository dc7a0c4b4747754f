// Package config provides configuration loading and structs for the Nyaya server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for settings the pipeline cannot run with.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Confidence ConfidenceConfig `yaml:"confidence"`
	Generation GenerationConfig `yaml:"generation"`
	Lexicon    LexiconConfig    `yaml:"lexicon"`
	Corpus     CorpusConfig     `yaml:"corpus"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// RateLimit is the sustained requests per second accepted on /ask. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// StorageConfig selects the vector store backend and its paths.
type StorageConfig struct {
	Backend          string `yaml:"backend"`
	DatabasePath     string `yaml:"database_path"`
	BleveIndexPath   string `yaml:"bleve_index_path"`
	VectorIndexPath  string `yaml:"vector_index_path"`
	PostgresURL      string `yaml:"postgres_url"`
	PostgresTable    string `yaml:"postgres_table"`
	SnapshotSchedule string `yaml:"snapshot_schedule"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"`
	ModelPath         string  `yaml:"model_path"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"api_key"`
	Dimensions        int     `yaml:"dimensions"`
	MaxTokens         int     `yaml:"max_tokens"`
	CacheSize         int     `yaml:"cache_size"`
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// RetrievalConfig holds candidate pool sizes and the semantic floor.
type RetrievalConfig struct {
	CandidatesK         int      `yaml:"candidates_k"`
	FinalK              int      `yaml:"final_k"`
	// SimilarityThreshold is a pointer so an explicit 0 keeps every candidate.
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
	ExactSimilarity     float64  `yaml:"exact_similarity"`
}

// SimilarityThresholdOrDefault returns the configured similarity floor; 0.35 when unset.
func (r *RetrievalConfig) SimilarityThresholdOrDefault() float64 {
	if r.SimilarityThreshold != nil {
		return *r.SimilarityThreshold
	}
	return 0.35
}

// ConfidenceConfig holds the confidence formula constants and the answer threshold.
type ConfidenceConfig struct {
	AnswerThreshold float64  `yaml:"answer_threshold"`
	Cap             float64  `yaml:"cap"`
	ExactMatchScore float64  `yaml:"exact_match_score"`
	// The bonuses are pointers so 0 can switch one off.
	PunishmentBonus *float64 `yaml:"punishment_bonus"`
	RecentBonus     *float64 `yaml:"recent_bonus"`
	RecentYears     []string `yaml:"recent_years"`
}

// PunishmentBonusOrDefault returns the punishment-language bonus; 0.2 when unset.
func (c *ConfidenceConfig) PunishmentBonusOrDefault() float64 {
	if c.PunishmentBonus != nil {
		return *c.PunishmentBonus
	}
	return 0.2
}

// RecentBonusOrDefault returns the recent-provision bonus; 0.1 when unset.
func (c *ConfidenceConfig) RecentBonusOrDefault() float64 {
	if c.RecentBonus != nil {
		return *c.RecentBonus
	}
	return 0.1
}

// GenerationConfig holds the text generation backend settings.
type GenerationConfig struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	Temperature     *float32      `yaml:"temperature"` // nil leaves the provider default
	MaxTokens       int           `yaml:"max_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRetries      *int          `yaml:"max_retries"`
	RetryBaseDelay  time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay   time.Duration `yaml:"retry_max_delay"`
	MaxContextChars int           `yaml:"max_context_chars"`
	SnippetChars    int           `yaml:"snippet_chars"`
	PromptTemplate  string        `yaml:"prompt_template"`
}

// RetriesOrDefault returns the configured retry count; 2 when unset.
func (g *GenerationConfig) RetriesOrDefault() int {
	if g.MaxRetries != nil {
		return *g.MaxRetries
	}
	return 2
}

// CorpusConfig holds the chunk directories loaded by the indexer and the watcher.
type CorpusConfig struct {
	Directories []string      `yaml:"directories"`
	Watch       bool          `yaml:"watch"`
	Debounce    time.Duration `yaml:"debounce"`
}

// Load reads and parses the config file at path, expands paths, applies env overrides and defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Corpus.Directories {
		cfg.Corpus.Directories[i] = expandPath(cfg.Corpus.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports settings that would make the pipeline misbehave.
func (c *Config) Validate() error {
	r := c.Retrieval
	if r.FinalK < 1 {
		return fmt.Errorf("%w: retrieval.final_k must be >= 1, got %d", ErrInvalidConfig, r.FinalK)
	}
	if r.CandidatesK < r.FinalK {
		return fmt.Errorf("%w: retrieval.candidates_k (%d) must be >= final_k (%d)", ErrInvalidConfig, r.CandidatesK, r.FinalK)
	}
	for name, v := range map[string]float64{
		"retrieval.similarity_threshold": r.SimilarityThresholdOrDefault(),
		"retrieval.exact_similarity":     r.ExactSimilarity,
		"confidence.answer_threshold":    c.Confidence.AnswerThreshold,
		"confidence.cap":                 c.Confidence.Cap,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be in [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.Confidence.PunishmentBonusOrDefault() < 0 || c.Confidence.RecentBonusOrDefault() < 0 {
		return fmt.Errorf("%w: confidence bonuses must not be negative", ErrInvalidConfig)
	}
	if c.Confidence.AnswerThreshold > c.Confidence.Cap {
		return fmt.Errorf("%w: confidence.answer_threshold exceeds confidence.cap", ErrInvalidConfig)
	}
	switch c.Storage.Backend {
	case "local", "pgvector":
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	switch c.Embedding.Provider {
	case "hashing", "onnx", "gemini":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}
	switch c.Generation.Provider {
	case "local", "gemini", "anthropic":
	default:
		return fmt.Errorf("%w: unknown generation provider %q", ErrInvalidConfig, c.Generation.Provider)
	}
	if c.Generation.MaxContextChars < 1 {
		return fmt.Errorf("%w: generation.max_context_chars must be >= 1", ErrInvalidConfig)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
