package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Knowledge backends
const (
	KnowledgeQdrant   = "qdrant"
	KnowledgePgvector = "pgvector"
	KnowledgeNone     = "none"
)

// Config holds all configuration for the application
type Config struct {
	Port     string
	Version  string
	LogLevel string

	DatabaseURL              string // Platform database - read-only contact sessions and subscriptions
	ConversationsDatabaseURL string // Conversation store - threads, messages and counters

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KnowledgeBackend     string  // qdrant, pgvector or none
	QdrantHost           string
	QdrantPort           int
	QdrantAPIKey         string
	QdrantUseTLS         bool
	QdrantCollection     string
	KnowledgeMinScore    float64 // Inclusive relevance threshold
	KnowledgeSearchLimit int

	HistoryWindow        int    // Messages read per turn
	DefaultLocale        string // Locale used when detection is inconclusive
	IntentPatternsFile   string // Optional YAML override of the built-in pattern tables
	SubscriptionCacheTTL int    // Seconds

	EnableAnswerGeneration         bool
	OpenAIKey                      string
	OpenAITimeout                  int // OpenAI API timeout in seconds
	AzureOpenAIEndpoint            string
	AzureOpenAIKey                 string
	AzureOpenAIGPTDeployment       string
	AzureOpenAIEmbeddingDeployment string

	SendGridAPIKey         string // SendGrid API key for escalation notifications
	SupportEmail           string
	EscalationEmailEnabled bool

	AdminUsername      string
	AdminPassword      string
	AdminTokenTTLHours int
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:     getEnv("PORT", "8080"),
		Version:  getEnv("VERSION", "1.0.0"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:              os.Getenv("DATABASE_URL"),
		ConversationsDatabaseURL: os.Getenv("CONVERSATIONS_DATABASE_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		KnowledgeBackend:     strings.ToLower(getEnv("KNOWLEDGE_BACKEND", KnowledgeQdrant)),
		QdrantHost:           getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:           getEnvInt("QDRANT_PORT", 6334),
		QdrantAPIKey:         os.Getenv("QDRANT_API_KEY"),
		QdrantUseTLS:         getEnvBool("QDRANT_USE_TLS", false),
		QdrantCollection:     getEnv("QDRANT_COLLECTION", "knowledge_passages"),
		KnowledgeMinScore:    getEnvFloat("KNOWLEDGE_MIN_SCORE", 0.78),
		KnowledgeSearchLimit: getEnvInt("KNOWLEDGE_SEARCH_LIMIT", 5),

		HistoryWindow:        getEnvInt("HISTORY_WINDOW", 50),
		DefaultLocale:        getEnv("DEFAULT_LOCALE", "id"),
		IntentPatternsFile:   os.Getenv("INTENT_PATTERNS_FILE"),
		SubscriptionCacheTTL: getEnvInt("SUBSCRIPTION_CACHE_TTL_SECONDS", 60),

		EnableAnswerGeneration:         getEnvBool("ENABLE_ANSWER_GENERATION", false),
		OpenAIKey:                      os.Getenv("OPENAI_API_KEY"),
		OpenAITimeout:                  getEnvInt("OPENAI_TIMEOUT", 60),
		AzureOpenAIEndpoint:            os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIKey:                 os.Getenv("AZURE_OPENAI_KEY"),
		AzureOpenAIGPTDeployment:       getEnv("AZURE_OPENAI_GPT_DEPLOYMENT", "gpt-4o-mini"),
		AzureOpenAIEmbeddingDeployment: getEnv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT", "text-embedding-3-small"),

		SendGridAPIKey:         os.Getenv("SENDGRID_API_KEY"),
		SupportEmail:           getEnv("SUPPORT_EMAIL", "support@example.com"),
		EscalationEmailEnabled: getEnvBool("ESCALATION_EMAIL_ENABLED", false),

		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		AdminTokenTTLHours: getEnvInt("ADMIN_TOKEN_TTL_HOURS", 24),
	}

	if config.HistoryWindow <= 0 {
		config.HistoryWindow = 50
	}
	if config.KnowledgeSearchLimit <= 0 {
		config.KnowledgeSearchLimit = 5
	}

	return config
}

// UseAzureOpenAI reports whether Azure OpenAI credentials are configured
func (c *Config) UseAzureOpenAI() bool {
	return c.AzureOpenAIEndpoint != "" && c.AzureOpenAIKey != ""
}

// HasOpenAIFallback reports whether an OpenAI platform key is configured
func (c *Config) HasOpenAIFallback() bool {
	return c.OpenAIKey != ""
}

// HasOpenAI reports whether any embedding/completion provider is configured
func (c *Config) HasOpenAI() bool {
	return c.UseAzureOpenAI() || c.HasOpenAIFallback()
}

// DevMode is true when no conversation database is configured; state is kept in memory
func (c *Config) DevMode() bool {
	return c.ConversationsDatabaseURL == ""
}

// SubscriptionCacheDuration returns the subscription cache TTL
func (c *Config) SubscriptionCacheDuration() time.Duration {
	return time.Duration(c.SubscriptionCacheTTL) * time.Second
}

// AdminTokenTTL returns the operator token lifetime
func (c *Config) AdminTokenTTL() time.Duration {
	return time.Duration(c.AdminTokenTTLHours) * time.Hour
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as float with a default fallback
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as boolean with a default fallback
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "supportdesk").
		Str("version", c.Version).
		Logger()

	// Set log level based on configuration
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
