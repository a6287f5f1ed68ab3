package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Storage
	DatabaseURL string        // Postgres + pgvector; preferred knowledge store
	SQLitePath  string        // fallback knowledge store when DATABASE_URL is unset
	RedisURL    string        // thread checkpoints; in-memory when unset
	ThreadTTL   time.Duration // 0 = threads never expire

	// OpenAI-compatible providers
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	ChatModel      string
	EmbeddingModel string
	EmbeddingDims  int

	// History windowing
	HistoryBudget  int    // max messages (or tokens) fed to generation
	HistoryCounter string // "messages" or "tokens"

	// Twilio webhook + outbound delivery
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string

	// Persona applied to webhook conversations
	BotName          string
	BotAbout         string
	BotTone          string
	BotResponseStyle string
	BotConciseness   string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/faqbot.db"),
		RedisURL:    os.Getenv("REDIS_URL"),
		ThreadTTL:   getEnvDuration("THREAD_TTL", 0),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:      getEnv("CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDims:  getEnvInt("EMBEDDING_DIMENSIONS", 1536),

		HistoryBudget:  getEnvInt("HISTORY_BUDGET", 10),
		HistoryCounter: getEnv("HISTORY_COUNTER", "messages"),

		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),

		BotName:          getEnv("BOT_NAME", "john doe"),
		BotAbout:         getEnv("BOT_ABOUT", "a teacher"),
		BotTone:          getEnv("BOT_TONE", "formal"),
		BotResponseStyle: getEnv("BOT_RESPONSE_STYLE", "conversational"),
		BotConciseness:   getEnv("BOT_CONCISENESS", "concise"),
	}

	// In production, require the providers and durable stores
	if cfg.Env == "production" {
		if cfg.OpenAIAPIKey == "" {
			panic("OPENAI_API_KEY is required in production")
		}
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.TwilioAuthToken == "" {
			panic("TWILIO_AUTH_TOKEN is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
