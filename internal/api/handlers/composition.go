package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ankits1802/finetune-api/internal/composer"
	"github.com/ankits1802/finetune-api/internal/continuation"
	"github.com/ankits1802/finetune-api/internal/idea"
	"github.com/ankits1802/finetune-api/internal/logger"
	"github.com/ankits1802/finetune-api/internal/metrics"
	"github.com/ankits1802/finetune-api/internal/playback"
	"github.com/ankits1802/finetune-api/internal/sequence"
)

const midiFingerprintPrefixLen = 8

// CompositionHandler runs the text-to-music pipeline and loads the
// result into the player.
type CompositionHandler struct {
	pipeline   *composer.Pipeline
	controller *playback.Controller
	cloudwatch *metrics.Client
}

func NewCompositionHandler(pipeline *composer.Pipeline, controller *playback.Controller, cloudwatch *metrics.Client) *CompositionHandler {
	return &CompositionHandler{
		pipeline:   pipeline,
		controller: controller,
		cloudwatch: cloudwatch,
	}
}

type composeRequest struct {
	Text string `json:"text"`
}

// Compose handles POST /api/v1/compositions
func (h *CompositionHandler) Compose(c *gin.Context) {
	var req composeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text is required"})
		return
	}

	startTime := time.Now()
	musicalIdea, seq, err := h.pipeline.Compose(c.Request.Context(), req.Text)
	if h.cloudwatch != nil && !errors.Is(err, composer.ErrSuperseded) {
		h.cloudwatch.RecordComposition(time.Since(startTime), err == nil)
	}
	if err != nil {
		switch {
		case errors.Is(err, composer.ErrSuperseded):
			c.JSON(http.StatusConflict, gin.H{"error": "Superseded by a newer composition"})
		case errors.Is(err, idea.ErrGenerationFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Music idea generation failed"})
		case errors.Is(err, continuation.ErrContinuationFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Sequence continuation failed"})
		default:
			logger.Error("Composition failed", err, logger.Fields{
				"request_id": c.GetString("request_id"),
			})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Composition failed"})
		}
		return
	}

	h.controller.LoadSequence(seq, int(math.Round(musicalIdea.TempoBPM)))

	c.JSON(http.StatusOK, gin.H{
		"idea":     musicalIdea,
		"sequence": seq,
		"playback": h.controller.Snapshot(),
	})
}

// ExportMIDI handles GET /api/v1/compositions/current/midi
func (h *CompositionHandler) ExportMIDI(c *gin.Context) {
	musicalIdea, seq := h.pipeline.Current()
	if seq == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No composition to export"})
		return
	}

	data, err := sequence.ToMIDI(seq)
	if err != nil {
		logger.Error("MIDI export failed", err, logger.Fields{
			"request_id": c.GetString("request_id"),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "MIDI export failed"})
		return
	}

	if h.cloudwatch != nil {
		h.cloudwatch.RecordMIDIExport(len(data))
	}

	filename := "composition.mid"
	if musicalIdea != nil && len(musicalIdea.Fingerprint) >= midiFingerprintPrefixLen {
		filename = fmt.Sprintf("composition-%s.mid", musicalIdea.Fingerprint[:midiFingerprintPrefixLen])
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "audio/midi", data)
}
