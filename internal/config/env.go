package config

import "os"

// Environment variables that override empty config values.
const (
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvDatabaseURL     = "NYAYA_DATABASE_URL"
	EnvLLMProvider     = "LLM_PROVIDER"
	EnvGeminiModel     = "GEMINI_MODEL"
)

// ApplyEnv fills credentials and provider selection from the environment when the
// config file leaves them empty. Values set in the file win.
func ApplyEnv(cfg *Config) {
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = os.Getenv(EnvLLMProvider)
	}
	if cfg.Storage.PostgresURL == "" {
		cfg.Storage.PostgresURL = os.Getenv(EnvDatabaseURL)
	}
	if cfg.Embedding.APIKey == "" && cfg.Embedding.Provider == "gemini" {
		cfg.Embedding.APIKey = os.Getenv(EnvGeminiAPIKey)
	}
	if cfg.Generation.Model == "" && cfg.Generation.Provider == "gemini" {
		cfg.Generation.Model = os.Getenv(EnvGeminiModel)
	}
	if cfg.Generation.APIKey == "" {
		switch cfg.Generation.Provider {
		case "gemini":
			cfg.Generation.APIKey = os.Getenv(EnvGeminiAPIKey)
		case "anthropic":
			cfg.Generation.APIKey = os.Getenv(EnvAnthropicAPIKey)
		}
	}
}
