package config

import "time"

// DefaultPromptTemplate is filled with the joined passage context and the user query.
const DefaultPromptTemplate = `You are a legal information assistant for Indian statutory law.
Answer the question using only the statute text in the context below.
If the context does not answer the question, say so plainly.
Cite the act and section numbers you rely on.

Context:
{{context}}

Question: {{query}}

Answer:`

// ApplyDefaults sets default values for any zero values in cfg. Pointer fields stay
// nil and are resolved by their OrDefault accessors, so an explicit 0 survives.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = int(cfg.Server.RateLimit) + 1
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/nyaya/data/db/passages.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/nyaya/data/indices/metadata.bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/nyaya/data/indices/vectors.idx"
	}
	if cfg.Storage.PostgresTable == "" {
		cfg.Storage.PostgresTable = "statute_passages"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hashing"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/nyaya/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-004"
	}
	if cfg.Embedding.Dimensions == 0 {
		if cfg.Embedding.Provider == "gemini" {
			cfg.Embedding.Dimensions = 768
		} else {
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 100
	}
	if cfg.Embedding.RequestsPerSecond == 0 {
		cfg.Embedding.RequestsPerSecond = 5
	}

	if cfg.Retrieval.CandidatesK == 0 {
		cfg.Retrieval.CandidatesK = 25
	}
	if cfg.Retrieval.FinalK == 0 {
		cfg.Retrieval.FinalK = 5
	}
	if cfg.Retrieval.ExactSimilarity == 0 {
		cfg.Retrieval.ExactSimilarity = 0.99
	}

	if cfg.Confidence.AnswerThreshold == 0 {
		cfg.Confidence.AnswerThreshold = 0.3
	}
	if cfg.Confidence.Cap == 0 {
		cfg.Confidence.Cap = 0.9
	}
	if cfg.Confidence.ExactMatchScore == 0 {
		cfg.Confidence.ExactMatchScore = 0.95
	}
	if cfg.Confidence.RecentYears == nil {
		cfg.Confidence.RecentYears = []string{"2023", "2024"}
	}

	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "local"
	}
	if cfg.Generation.Model == "" {
		switch cfg.Generation.Provider {
		case "gemini":
			cfg.Generation.Model = "gemini-2.0-flash"
		case "anthropic":
			cfg.Generation.Model = "claude-3-5-haiku-latest"
		}
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 1024
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 30 * time.Second
	}
	if cfg.Generation.RetryBaseDelay == 0 {
		cfg.Generation.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.Generation.RetryMaxDelay == 0 {
		cfg.Generation.RetryMaxDelay = 5 * time.Second
	}
	if cfg.Generation.MaxContextChars == 0 {
		cfg.Generation.MaxContextChars = 6000
	}
	if cfg.Generation.SnippetChars == 0 {
		cfg.Generation.SnippetChars = 500
	}
	if cfg.Generation.PromptTemplate == "" {
		cfg.Generation.PromptTemplate = DefaultPromptTemplate
	}

	applyLexiconDefaults(&cfg.Lexicon)

	if cfg.Corpus.Debounce == 0 {
		cfg.Corpus.Debounce = 400 * time.Millisecond
	}
}
