package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ankits1802/finetune-api/internal/api/handlers"
	apimiddleware "github.com/ankits1802/finetune-api/internal/api/middleware"
	"github.com/ankits1802/finetune-api/internal/composer"
	"github.com/ankits1802/finetune-api/internal/history"
	"github.com/ankits1802/finetune-api/internal/metrics"
	"github.com/ankits1802/finetune-api/internal/playback"
)

// Deps carries the wired application services the router exposes.
type Deps struct {
	DB         *gorm.DB
	Pipeline   *composer.Pipeline
	Controller *playback.Controller
	Recorder   history.Recorder
	CloudWatch *metrics.Client
}

func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(deps.CloudWatch))

	// CORS middleware
	router.Use(apimiddleware.CORS())

	// Health check
	healthHandler := handlers.NewHealthHandler(deps.DB)
	router.GET("/health", healthHandler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		compositionHandler := handlers.NewCompositionHandler(deps.Pipeline, deps.Controller, deps.CloudWatch)
		v1.POST("/compositions", compositionHandler.Compose)
		v1.GET("/compositions/current/midi", compositionHandler.ExportMIDI)

		playbackHandler := handlers.NewPlaybackHandler(deps.Controller)
		v1.GET("/playback", playbackHandler.GetState)
		v1.GET("/playback/instruments", playbackHandler.Instruments)
		v1.POST("/playback/play", playbackHandler.Play)
		v1.POST("/playback/pause", playbackHandler.Pause)
		v1.POST("/playback/restart", playbackHandler.Restart)
		v1.POST("/playback/seek", playbackHandler.Seek)
		v1.POST("/playback/skip", playbackHandler.Skip)
		v1.PUT("/playback/tempo", playbackHandler.SetTempo)
		v1.PUT("/playback/volume", playbackHandler.SetVolume)
		v1.PUT("/playback/instrument", playbackHandler.SetInstrument)

		historyHandler := handlers.NewHistoryHandler(deps.Recorder)
		v1.GET("/history", historyHandler.List)
		v1.DELETE("/history", historyHandler.Clear)

		shareHandler := handlers.NewShareHandler()
		v1.GET("/share", shareHandler.Encode)
		v1.POST("/share/resolve", shareHandler.Resolve)
	}

	return router
}
