package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	DatabaseURL string
	NatsURL     string

	VectorDBPath     string
	CollectionPrefix string

	EmbeddingModel   string
	EmbeddingBaseURL string
	OpenAIAPIKey     string
	EmbedCacheTTL    time.Duration

	GroqAPIKey          string
	DirectorModel       string
	DirectorBaseURL     string
	DirectorMaxAttempts int

	MinBrollDuration float64
	CoolDownSeconds  float64
	DiversityWindow  float64
	MinLLMConfidence float64
	StartTolerance   float64

	VectorTopK          int
	SimilarityThreshold float64

	LogLevel string
}

func Load() Config {
	return Config{
		Port:        envInt("CONTEXTCUT_PORT", 8600),
		DatabaseURL: envStr("DATABASE_URL", ""),
		NatsURL:     envStr("NATS_URL", ""),

		VectorDBPath:     envStr("VECTOR_DB_PATH", "data/vectors.db"),
		CollectionPrefix: envStr("COLLECTION_PREFIX", "broll"),

		EmbeddingModel:   envStr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingBaseURL: envStr("EMBEDDING_BASE_URL", ""),
		OpenAIAPIKey:     envStr("OPENAI_API_KEY", ""),
		EmbedCacheTTL:    time.Duration(envInt("EMBED_CACHE_TTL_SECONDS", 600)) * time.Second,

		GroqAPIKey:          envStr("GROQ_API_KEY", ""),
		DirectorModel:       envStr("DIRECTOR_MODEL", "llama-3.3-70b-versatile"),
		DirectorBaseURL:     envStr("DIRECTOR_BASE_URL", "https://api.groq.com/openai/v1"),
		DirectorMaxAttempts: envInt("DIRECTOR_MAX_ATTEMPTS", 3),

		MinBrollDuration: envFloat("MIN_BROLL_DURATION", 1.5),
		CoolDownSeconds:  envFloat("BROLL_COOL_DOWN_SECONDS", 5.0),
		DiversityWindow:  envFloat("BROLL_DIVERSITY_WINDOW_SECONDS", 30.0),
		MinLLMConfidence: envFloat("MIN_LLM_CONFIDENCE", 0.65),
		StartTolerance:   envFloat("START_TOLERANCE_SECONDS", 0.1),

		VectorTopK:          envInt("VECTOR_TOP_K", 5),
		SimilarityThreshold: envFloat("SIMILARITY_THRESHOLD", 0.3),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
