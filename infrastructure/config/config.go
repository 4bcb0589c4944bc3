package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AI backend configuration
	AIBackend     string // ollama | openrouter | stub
	OllamaURL     string
	OllamaModel   string
	OpenRouterKey string
	OpenRouterURL string
	ModelName     string
	AITimeout     time.Duration

	// Persistence configuration
	StorageDriver string // sqlite | dynamodb | memory
	SQLitePath    string
	AWSRegion     string
	DynamoDBTable string

	// Autosave
	AutosaveInterval time.Duration

	// Logging and features
	LogLevel   string
	EnableCORS bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", "127.0.0.1:8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AIBackend:     getEnv("AI_BACKEND", "ollama"),
		OllamaURL:     getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3.1"),
		OpenRouterKey: getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterURL: getEnv("OPENROUTER_URL", "https://openrouter.ai/api/v1"),
		ModelName:     getEnv("MODEL_NAME", ""),
		AITimeout:     getEnvDuration("AI_TIMEOUT", 120*time.Second),

		StorageDriver: getEnv("STORAGE_DRIVER", "sqlite"),
		SQLitePath:    getEnv("SQLITE_PATH", "fabula.db"),
		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("DYNAMODB_TABLE", "fabula-projects"),

		AutosaveInterval: getEnvDuration("AUTOSAVE_INTERVAL", 15*time.Second),

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		EnableCORS: getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.AIBackend {
	case "ollama", "stub":
	case "openrouter":
		if c.OpenRouterKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required for the openrouter backend")
		}
	default:
		return fmt.Errorf("unknown AI_BACKEND %q, want ollama, openrouter, or stub", c.AIBackend)
	}

	switch c.StorageDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case "dynamodb":
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q, want sqlite, dynamodb, or memory", c.StorageDriver)
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
