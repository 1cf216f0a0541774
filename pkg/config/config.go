// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// HTTP transport
	ListenAddr     string
	MaxUploadBytes int64

	// Record store
	StorageDriver string
	StorageDSN    string

	// Artifact output
	OutputDir     string
	RetentionDays int
	SweepInterval time.Duration

	// Cleaning policy
	DropColumnThreshold float64
	RowDropThreshold    float64

	// Suggestion retrieval
	SampleRows     int
	RetryAttempts  int
	BackoffBase    time.Duration
	RequestTimeout time.Duration
	CLITimeout     time.Duration
	RateLimitRPS   float64

	// Inference backends
	SuggestBackend string // "ollama" or "gemini"
	Ollama         OllamaConfig
	Gemini         GeminiConfig
	ChatModel      string

	// Logging
	LogLevel  string
	LogFormat string
}

// OllamaConfig holds the local inference server settings.
type OllamaConfig struct {
	BaseURL string
	Model   string
	CLIPath string
}

// GeminiConfig holds the hosted inference settings, used only when
// SuggestBackend is "gemini".
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 100)) << 20,

		StorageDriver: getEnv("STORAGE_DRIVER", "sqlite"),
		// A bare filename so first startup never depends on a parent
		// directory existing.
		StorageDSN: getEnv("STORAGE_DSN", "tablebot.db"),

		OutputDir:     getEnv("OUTPUT_DIR", "outputs"),
		RetentionDays: getEnvAsInt("RETENTION_DAYS", 7),
		SweepInterval: getEnvAsDuration("SWEEP_INTERVAL", time.Hour),

		DropColumnThreshold: getEnvAsFloat("DROP_COLUMN_THRESHOLD", 0.5),
		RowDropThreshold:    getEnvAsFloat("ROW_DROP_THRESHOLD", 0),

		SampleRows:     getEnvAsInt("SAMPLE_ROWS", 5),
		RetryAttempts:  getEnvAsInt("RETRY_ATTEMPTS", 3),
		BackoffBase:    getEnvAsDuration("BACKOFF_BASE", 2*time.Second),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
		CLITimeout:     getEnvAsDuration("CLI_TIMEOUT", 60*time.Second),
		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 0),

		SuggestBackend: getEnv("SUGGEST_BACKEND", "ollama"),
		Ollama: OllamaConfig{
			BaseURL: getEnv("OLLAMA_URL", "http://localhost:11434"),
			Model:   getEnv("OLLAMA_MODEL", "deepseek-r1:1.5b"),
			CLIPath: getEnv("OLLAMA_CLI", "ollama"),
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", ""),
			BaseURL: getEnv("GEMINI_BASE_URL", ""),
		},
		ChatModel: getEnv("CHAT_MODEL", "llama3.2:3b"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.MaxUploadBytes <= 0 {
		return errors.New("max upload size must be positive")
	}
	if c.OutputDir == "" {
		return errors.New("output directory is required")
	}
	if c.RetryAttempts < 0 {
		return errors.New("retry attempts cannot be negative")
	}
	if c.DropColumnThreshold < 0 || c.DropColumnThreshold > 1 {
		return errors.New("drop-column threshold must be within [0, 1]")
	}
	if c.RowDropThreshold < 0 || c.RowDropThreshold > 1 {
		return errors.New("row-drop threshold must be within [0, 1]")
	}
	switch c.SuggestBackend {
	case "ollama":
	case "gemini":
		if c.Gemini.APIKey == "" || c.Gemini.Model == "" {
			return errors.New("gemini backend requires GEMINI_API_KEY and GEMINI_MODEL")
		}
	default:
		return errors.New("suggest backend must be \"ollama\" or \"gemini\"")
	}
	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
