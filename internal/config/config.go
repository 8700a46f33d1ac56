package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	LogLevel         string
	LLMAPIKey        string
	LLMBaseURL       string
	LLMModel         string
	EmbeddingModel   string
	EmbeddingDim     int
	VectorBackend    string
	QdrantHost       string
	QdrantPort       int
	DatabaseURL      string
	CocktailsIndex   string
	MemoriesIndex    string
	NatsURL          string
	NatsToken        string
	StaticDir        string
	LegacyCountClamp bool
}

func Load() Config {
	// Optional .env for local development; real deployments use the environment.
	_ = godotenv.Load()

	return Config{
		Port:             envInt("BARKEEP_PORT", 8080),
		LogLevel:         envStr("LOG_LEVEL", "info"),
		LLMAPIKey:        envStr("LLM_API_KEY", ""),
		LLMBaseURL:       envStr("LLM_BASE_URL", "https://api.together.xyz/v1"),
		LLMModel:         envStr("LLM_MODEL", "meta-llama/Llama-3.3-70B-Instruct-Turbo"),
		EmbeddingModel:   envStr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:     envInt("EMBEDDING_DIM", 1536),
		VectorBackend:    envStr("VECTOR_BACKEND", "qdrant"),
		QdrantHost:       envStr("QDRANT_HOST", "localhost"),
		QdrantPort:       envInt("QDRANT_PORT", 6334),
		DatabaseURL:      envStr("DATABASE_URL", ""),
		CocktailsIndex:   envStr("COCKTAILS_INDEX", "cocktails"),
		MemoriesIndex:    envStr("MEMORIES_INDEX", "user-memories"),
		NatsURL:          envStr("NATS_URL", ""),
		NatsToken:        envStr("NATS_TOKEN", ""),
		StaticDir:        envStr("STATIC_DIR", ""),
		LegacyCountClamp: envBool("LEGACY_COUNT_CLAMP", false),
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

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
