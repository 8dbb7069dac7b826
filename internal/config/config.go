package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything the process needs. Values come from an optional
// YAML file, overridden by MENTOR_* environment variables.
type Config struct {
	Addr string `yaml:"addr"`

	ModelName    string `yaml:"model_name"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GCPProjectID string `yaml:"gcp_project"`
	GCPLocation  string `yaml:"gcp_location"`
	UseMockLLM   bool   `yaml:"use_mock_llm"`

	StorageBackend string `yaml:"storage_backend"` // "sqlite", "memory" or "firestore"
	SQLitePath     string `yaml:"sqlite_path"`

	AccessToken string `yaml:"access_token"`
	AuthSecret  string `yaml:"auth_secret"`
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func defaults() *Config {
	return &Config{
		Addr:           ":8080",
		ModelName:      "gemini-3-flash-preview",
		GCPLocation:    "us-central1",
		StorageBackend: "sqlite",
		SQLitePath:     "mentor.db",
		AuthSecret:     "default_secret_for_dev",
	}
}

// Load builds the config: defaults, then the YAML file at path (if any),
// then environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.Addr = getEnv("MENTOR_ADDR", cfg.Addr)
	cfg.ModelName = getEnv("MENTOR_MODEL_NAME", cfg.ModelName)
	cfg.GeminiAPIKey = getEnv("MENTOR_GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GCPProjectID = getEnv("MENTOR_GCP_PROJECT", cfg.GCPProjectID)
	cfg.GCPLocation = getEnv("MENTOR_GCP_LOCATION", cfg.GCPLocation)
	cfg.UseMockLLM = getBoolEnv("MENTOR_USE_MOCK_LLM", cfg.UseMockLLM)
	cfg.StorageBackend = getEnv("MENTOR_STORAGE_BACKEND", cfg.StorageBackend)
	cfg.SQLitePath = getEnv("MENTOR_SQLITE_PATH", cfg.SQLitePath)
	cfg.AccessToken = getEnv("MENTOR_ACCESS_TOKEN", cfg.AccessToken)
	cfg.AuthSecret = getEnv("MENTOR_AUTH_SECRET", cfg.AuthSecret)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case "sqlite", "memory", "firestore":
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.StorageBackend == "firestore" && c.GCPProjectID == "" {
		return fmt.Errorf("gcp_project is required for the firestore storage backend")
	}
	if !c.UseMockLLM && c.GeminiAPIKey == "" && c.GCPProjectID == "" {
		return fmt.Errorf("either gemini_api_key or gcp_project must be set (or use_mock_llm)")
	}
	return nil
}
