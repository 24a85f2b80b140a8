package main

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/ankits1802/finetune-api/internal/api"
	"github.com/ankits1802/finetune-api/internal/composer"
	"github.com/ankits1802/finetune-api/internal/config"
	"github.com/ankits1802/finetune-api/internal/continuation"
	"github.com/ankits1802/finetune-api/internal/database"
	"github.com/ankits1802/finetune-api/internal/history"
	"github.com/ankits1802/finetune-api/internal/idea"
	"github.com/ankits1802/finetune-api/internal/metrics"
	"github.com/ankits1802/finetune-api/internal/observability"
	"github.com/ankits1802/finetune-api/internal/playback"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()
	ctx := context.Background()

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "finetune-api@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0, // 100% sampling for now, adjust based on volume
			EnableLogs:       true,
			Debug:            cfg.Environment != environmentProduction,
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				// Filter out sensitive data
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s, release: %s)", cfg.Environment, releaseVersion)
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		log.Println("⚠️  Sentry not configured (SENTRY_DSN not set)")
	}

	// Initialize Langfuse tracing for LLM calls
	observability.InitializeLangfuse(ctx, cfg)

	// History storage: Postgres when configured, process memory otherwise
	var db *gorm.DB
	var recorder history.Recorder
	if cfg.DatabaseURL != "" {
		conn, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatal("Failed to connect to database:", err)
		}
		db = conn

		gormRecorder, err := history.NewGormRecorder(db)
		if err != nil {
			sentry.CaptureException(err)
			log.Fatal("Failed to migrate history storage:", err)
		}
		recorder = gormRecorder
		log.Println("🗄️  History: Postgres")
	} else {
		recorder = history.NewMemoryRecorder()
		log.Println("🗄️  History: in-memory (DATABASE_URL not set)")
	}

	// CloudWatch metrics (no-op outside production)
	var cloudwatch *metrics.Client
	if cfg.CloudWatchEnabled {
		cw, err := metrics.NewClient(ctx, cfg.Environment)
		if err != nil {
			log.Printf("⚠️  CloudWatch metrics unavailable: %v", err)
		} else {
			cloudwatch = cw
		}
	}

	// Idea provider
	factory := idea.NewProviderFactory(cfg.OpenAIAPIKey, cfg.GeminiAPIKey)
	provider, err := factory.GetProvider(ctx, cfg.IdeaModel, cfg.IdeaProvider)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to create idea provider:", err)
	}
	var ideaOpts []idea.Option
	if cloudwatch != nil {
		ideaOpts = append(ideaOpts, idea.WithAttemptRecorder(cloudwatch))
	}
	ideaClient := idea.NewClient(provider, ideaOpts...)

	// Continuation engine sidecar
	engine := continuation.NewHTTPEngine(cfg.ContinuationURL)

	// Playback: real MIDI output when a port is available, otherwise a
	// silent clock so transport state still works headless.
	var transport playback.Transport
	if midiTransport, err := playback.NewMIDITransport(cfg.MIDIPortName); err != nil {
		log.Printf("⚠️  MIDI output unavailable (%v), using silent transport", err)
		transport = playback.NewClockTransport()
	} else {
		transport = midiTransport
	}
	controller := playback.NewController(transport)

	pipeline := composer.New(ideaClient, engine, recorder)

	// Set Gin mode
	if cfg.Environment == environmentProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(api.Deps{
		DB:         db,
		Pipeline:   pipeline,
		Controller: controller,
		Recorder:   recorder,
		CloudWatch: cloudwatch,
	})

	log.Printf("🚀 Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
