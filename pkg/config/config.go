package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Typesense      TypesenseConfig
	OTEL           OTELConfig
	Search         SearchConfig
	Recommendation RecommendationConfig
	Trends         TrendsConfig
	Session        SessionConfig
	Retention      RetentionConfig
	Commerce       CommerceConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// SearchConfig holds query processing, ranking and pagination configuration.
// Ranking weights are configuration so relevance can be tuned without a code
// change.
type SearchConfig struct {
	SynonymsPath         string
	MaxEditDistance      int
	MinCorrectionMatches int
	DefaultPageSize      int
	MaxPageSize          int
	MaxPageDepth         int
	FacetMinDistinct     int
	RangeFacetBuckets    int
	WeightText           float64
	WeightRecency        float64
	WeightPopularity     float64
	WeightTrending       float64
	CacheTTLSeconds      int
	FallbackToCache      bool
}

// RecommendationConfig holds strategy blending configuration
type RecommendationConfig struct {
	WeightCollaborative   float64
	WeightContentBased    float64
	WeightTrending        float64
	WeightCrossSell       float64
	VendorCap             int
	MinInteractionHistory int
	ExcludePurchased      bool
	DefaultLimit          int
	BatchTTLSeconds       int
	SignalWindowDays      int
}

// TrendsConfig holds trend detection configuration
type TrendsConfig struct {
	VelocityThreshold float64
	MinSampleSize     int
	BaselineFloor     float64
	WindowHours       int
	RefreshInterval   time.Duration
	TopicLimit        int
}

// SessionConfig holds search session lifecycle configuration
type SessionConfig struct {
	InactivityTimeout time.Duration
}

// RetentionConfig holds event log retention configuration
type RetentionConfig struct {
	EventLogRetentionDays int
}

// CommerceConfig points at the commerce platform, the source of user
// profiles and order history. An empty base URL disables those signals.
type CommerceConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "market_discovery"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:    getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey: getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "market-discovery"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Search: SearchConfig{
			SynonymsPath:         getEnv("SEARCH_SYNONYMS_PATH", "config/synonyms.json"),
			MaxEditDistance:      getEnvAsInt("SEARCH_MAX_EDIT_DISTANCE", 2),
			MinCorrectionMatches: getEnvAsInt("SEARCH_MIN_CORRECTION_MATCHES", 3),
			DefaultPageSize:      getEnvAsInt("SEARCH_DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:          getEnvAsInt("SEARCH_MAX_PAGE_SIZE", 100),
			MaxPageDepth:         getEnvAsInt("SEARCH_MAX_PAGE_DEPTH", 100),
			FacetMinDistinct:     getEnvAsInt("SEARCH_FACET_MIN_DISTINCT", 2),
			RangeFacetBuckets:    getEnvAsInt("SEARCH_RANGE_FACET_BUCKETS", 4),
			WeightText:           getEnvAsFloat("SEARCH_WEIGHT_TEXT", 0.5),
			WeightRecency:        getEnvAsFloat("SEARCH_WEIGHT_RECENCY", 0.2),
			WeightPopularity:     getEnvAsFloat("SEARCH_WEIGHT_POPULARITY", 0.2),
			WeightTrending:       getEnvAsFloat("SEARCH_WEIGHT_TRENDING", 0.1),
			CacheTTLSeconds:      getEnvAsInt("SEARCH_CACHE_TTL_SECONDS", 300),
			FallbackToCache:      getEnvAsBool("SEARCH_FALLBACK_TO_CACHE", false),
		},
		Recommendation: RecommendationConfig{
			WeightCollaborative:   getEnvAsFloat("REC_WEIGHT_COLLABORATIVE", 0.35),
			WeightContentBased:    getEnvAsFloat("REC_WEIGHT_CONTENT_BASED", 0.3),
			WeightTrending:        getEnvAsFloat("REC_WEIGHT_TRENDING", 0.15),
			WeightCrossSell:       getEnvAsFloat("REC_WEIGHT_CROSS_SELL", 0.2),
			VendorCap:             getEnvAsInt("REC_VENDOR_CAP", 3),
			MinInteractionHistory: getEnvAsInt("REC_MIN_INTERACTION_HISTORY", 3),
			ExcludePurchased:      getEnvAsBool("REC_EXCLUDE_PURCHASED", true),
			DefaultLimit:          getEnvAsInt("REC_DEFAULT_LIMIT", 10),
			BatchTTLSeconds:       getEnvAsInt("REC_BATCH_TTL_SECONDS", 1800),
			SignalWindowDays:      getEnvAsInt("REC_SIGNAL_WINDOW_DAYS", 30),
		},
		Trends: TrendsConfig{
			VelocityThreshold: getEnvAsFloat("TRENDS_VELOCITY_THRESHOLD", 2.0),
			MinSampleSize:     getEnvAsInt("TRENDS_MIN_SAMPLE_SIZE", 20),
			BaselineFloor:     getEnvAsFloat("TRENDS_BASELINE_FLOOR", 5.0),
			WindowHours:       getEnvAsInt("TRENDS_WINDOW_HOURS", 24),
			RefreshInterval:   getEnvAsDuration("TRENDS_REFRESH_INTERVAL", 15*time.Minute),
			TopicLimit:        getEnvAsInt("TRENDS_TOPIC_LIMIT", 20),
		},
		Session: SessionConfig{
			InactivityTimeout: getEnvAsDuration("SESSION_INACTIVITY_TIMEOUT", 30*time.Minute),
		},
		Retention: RetentionConfig{
			EventLogRetentionDays: getEnvAsInt("EVENT_LOG_RETENTION_DAYS", 90),
		},
		Commerce: CommerceConfig{
			BaseURL:        getEnv("COMMERCE_API_URL", ""),
			TimeoutSeconds: getEnvAsInt("COMMERCE_API_TIMEOUT_SECONDS", 10),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
