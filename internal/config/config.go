package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the server configuration.
type Config struct {
	Port string
	Host string

	DatabaseURL string
	RabbitMQURL string

	R2AccountID string
	R2Bucket    string
	R2AccessKey string
	R2SecretKey string

	SupabaseJWTSecret string

	GoogleAPIKey  string
	ReviewEnabled bool
	ReviewModel   string

	Workers           int
	TopKeywords       int
	SpellingThreshold float64
	MaxUploadMB       int

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:              GetEnv("PORT", "8000"),
		Host:              GetEnv("HOST", "0.0.0.0"),
		DatabaseURL:       GetEnv("DB_URL", ""),
		RabbitMQURL:       GetEnv("RABBITMQ_URL", ""),
		R2AccountID:       GetEnv("R2_ACCOUNT_ID", ""),
		R2Bucket:          GetEnv("R2_BUCKET", ""),
		R2AccessKey:       GetEnv("R2_ACCESS_KEY", ""),
		R2SecretKey:       GetEnv("R2_SECRET_KEY", ""),
		SupabaseJWTSecret: GetEnv("SUPABASE_JWT_SECRET", ""),
		GoogleAPIKey:      GetEnv("GOOGLE_API_KEY", ""),
		ReviewEnabled:     GetEnvBool("REVIEW_ENABLED", false),
		ReviewModel:       GetEnv("REVIEW_MODEL", "gemini-2.5-flash"),
		Workers:           GetEnvInt("WORKERS", 3),
		TopKeywords:       GetEnvInt("TOP_KEYWORDS", 12),
		SpellingThreshold: GetEnvFloat("SPELLING_THRESHOLD", 0.8),
		MaxUploadMB:       GetEnvInt("MAX_UPLOAD_MB", 32),
		LogLevel:          GetEnv("LOG_LEVEL", "INFO"),
		LogFormat:         GetEnv("LOG_FORMAT", "json"),
	}
}

// AsyncEnabled reports whether every dependency of the session queue is set.
func (c *Config) AsyncEnabled() bool {
	return c.DatabaseURL != "" && c.RabbitMQURL != "" && c.R2Enabled()
}

func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2Bucket != "" && c.R2AccessKey != "" && c.R2SecretKey != ""
}

func (c *Config) ReviewerEnabled() bool {
	return c.ReviewEnabled && c.GoogleAPIKey != ""
}

// ClientConfig holds the settings of the command line client.
type ClientConfig struct {
	SupabaseURL     string
	SupabaseAnonKey string
	APIURL          string
	SessionFile     string
}

func LoadClient() *ClientConfig {
	return &ClientConfig{
		SupabaseURL:     strings.TrimRight(GetEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey: GetEnv("SUPABASE_ANON_KEY", ""),
		APIURL:          strings.TrimRight(GetEnv("API_URL", "http://localhost:8000"), "/"),
		SessionFile:     GetEnv("RESUMEPARSER_SESSION_FILE", ""),
	}
}

func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
