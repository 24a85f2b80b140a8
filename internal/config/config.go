package config

import "os"

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// LLM API Keys
	OpenAIAPIKey string // OpenAI API key for GPT models
	GeminiAPIKey string // Google Gemini API key

	// Idea generation
	IdeaModel    string // Model used to turn text into musical characteristics
	IdeaProvider string // Optional provider override (openai, gemini)

	// Continuation engine
	ContinuationURL string // Base URL of the sequence-continuation sidecar

	// Playback
	MIDIPortName string // MIDI output port; empty selects the first available port

	// Storage
	DatabaseURL string // Postgres DSN for history; empty keeps history in memory

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse
	CloudWatchEnabled bool   // Feature flag for CloudWatch metrics
}

func Load() *Config {
	return &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		Port:              getEnv("PORT", "8080"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		IdeaModel:         getEnv("IDEA_MODEL", "gpt-5-mini"),
		IdeaProvider:      getEnv("IDEA_PROVIDER", ""),
		ContinuationURL:   getEnv("CONTINUATION_URL", "http://localhost:8190"),
		MIDIPortName:      getEnv("MIDI_PORT", ""),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:   getEnv("LANGFUSE_ENABLED", "false") == "true",
		CloudWatchEnabled: getEnv("CLOUDWATCH_ENABLED", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
