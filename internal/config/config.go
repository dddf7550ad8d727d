package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Ai        AIConfig
	Assistant AssistantConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	PipelineLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JWTSecret string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama", "huggingface"
	LLMModel          string // e.g. "llama3", "qwen2.5"
	LLMBaseURL        string
	LLMAPIKey         string
	GoogleGeminiKey   string
	JinaKey           string
}

// AssistantConfig tunes the chat pipeline. Paths empty means embedded
// defaults.
type AssistantConfig struct {
	PatternConfigPath    string
	FallbackConfigPath   string
	PrimaryThreshold     float64
	SecondaryThreshold   float64
	MultiSignalThreshold float64
	RetrievalMinScore    float64
	RetrievalMaxTokens   int
	RetrievalPerDocCap   int
	StatsCacheTTLSeconds int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			PipelineLogPath:    getEnv("PIPELINE_LOG_PATH", "chat_pipeline.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", ""),
			OtelEnabled:        getEnv("OTEL_ENABLED", "false") == "true",
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:         getEnv("LLM_API_KEY", ""),
			GoogleGeminiKey:   getEnv("GOOGLE_GEMINI_API_KEY", ""),
			JinaKey:           getEnv("JINA_API_KEY", ""),
		},
		Assistant: AssistantConfig{
			PatternConfigPath:    getEnv("INTENT_PATTERN_CONFIG", ""),
			FallbackConfigPath:   getEnv("FALLBACK_TEMPLATE_CONFIG", ""),
			PrimaryThreshold:     getEnvAsFloat("INTENT_PRIMARY_THRESHOLD", 0.45),
			SecondaryThreshold:   getEnvAsFloat("INTENT_SECONDARY_THRESHOLD", 0.30),
			MultiSignalThreshold: getEnvAsFloat("INTENT_MULTI_SIGNAL_THRESHOLD", 0.60),
			RetrievalMinScore:    getEnvAsFloat("RETRIEVAL_MIN_SCORE", 0.35),
			RetrievalMaxTokens:   getEnvAsInt("RETRIEVAL_MAX_TOKENS", 2000),
			RetrievalPerDocCap:   getEnvAsInt("RETRIEVAL_PER_DOC_CAP", 3),
			StatsCacheTTLSeconds: getEnvAsInt("WORKSPACE_STATS_CACHE_TTL", 60),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
