package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the search service
type Config struct {
	Search SearchConfig
	Worker WorkerConfig
	Log    LogConfig
}

// SearchConfig holds ranking parameters for both call sites
type SearchConfig struct {
	NoteTitleWeight         float64
	FlashcardSetTitleWeight float64
	MinFieldScore           float64
	NoteEmptyQuery          string
	FlashcardSetEmptyQuery  string
	MaxCandidates           int
	MaxTokenLength          int
}

// WorkerConfig holds search worker configuration
type WorkerConfig struct {
	RequestQueueSize int
	RequestTimeout   time.Duration
	DropSuperseded   bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Search: SearchConfig{
			NoteTitleWeight:         GetFloatEnv("SEARCH_NOTE_TITLE_WEIGHT", 2.0),
			FlashcardSetTitleWeight: GetFloatEnv("SEARCH_FLASHCARD_SET_TITLE_WEIGHT", 2.5),
			MinFieldScore:           GetFloatEnv("SEARCH_MIN_FIELD_SCORE", 0.1),
			NoteEmptyQuery:          GetStringEnv("SEARCH_NOTE_EMPTY_QUERY", "returnNone"),
			FlashcardSetEmptyQuery:  GetStringEnv("SEARCH_FLASHCARD_SET_EMPTY_QUERY", "returnAll"),
			MaxCandidates:           GetIntEnv("SEARCH_MAX_CANDIDATES", 10000),
			MaxTokenLength:          GetIntEnv("SEARCH_MAX_TOKEN_LENGTH", 64),
		},
		Worker: WorkerConfig{
			RequestQueueSize: GetIntEnv("WORKER_REQUEST_QUEUE_SIZE", 64),
			RequestTimeout:   GetDurationEnv("WORKER_REQUEST_TIMEOUT", 5*time.Second),
			DropSuperseded:   GetBoolEnv("WORKER_DROP_SUPERSEDED", true),
		},
		Log: LogConfig{
			Level:  GetStringEnv("LOG_LEVEL", "info"),
			Format: GetStringEnv("LOG_FORMAT", "text"),
		},
	}
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
