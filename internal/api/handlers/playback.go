package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ankits1802/finetune-api/internal/playback"
)

// PlaybackHandler exposes the playback controller over JSON.
type PlaybackHandler struct {
	controller *playback.Controller
}

func NewPlaybackHandler(controller *playback.Controller) *PlaybackHandler {
	return &PlaybackHandler{controller: controller}
}

// GetState handles GET /api/v1/playback
func (h *PlaybackHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

// Play handles POST /api/v1/playback/play
func (h *PlaybackHandler) Play(c *gin.Context) {
	if err := h.controller.Play(); err != nil {
		if errors.Is(err, playback.ErrPlayback) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Playback failed"})
		return
	}
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

// Pause handles POST /api/v1/playback/pause
func (h *PlaybackHandler) Pause(c *gin.Context) {
	h.controller.Pause()
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

// Restart handles POST /api/v1/playback/restart
func (h *PlaybackHandler) Restart(c *gin.Context) {
	h.controller.Restart()
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

type seekRequest struct {
	Percent float64 `json:"percent"`
}

// Seek handles POST /api/v1/playback/seek
func (h *PlaybackHandler) Seek(c *gin.Context) {
	var req seekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.controller.Seek(req.Percent); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Seek failed"})
		return
	}
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

type skipRequest struct {
	Seconds float64 `json:"seconds"`
}

// Skip handles POST /api/v1/playback/skip
func (h *PlaybackHandler) Skip(c *gin.Context) {
	var req skipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.controller.SeekBy(req.Seconds); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Skip failed"})
		return
	}
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

type tempoRequest struct {
	BPM int `json:"bpm"`
}

// SetTempo handles PUT /api/v1/playback/tempo
func (h *PlaybackHandler) SetTempo(c *gin.Context) {
	var req tempoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.controller.SetTempo(req.BPM); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

type volumeRequest struct {
	Percent int `json:"percent"`
}

// SetVolume handles PUT /api/v1/playback/volume
func (h *PlaybackHandler) SetVolume(c *gin.Context) {
	var req volumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.controller.SetVolume(req.Percent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

type instrumentRequest struct {
	Program int `json:"program"`
}

// SetInstrument handles PUT /api/v1/playback/instrument
func (h *PlaybackHandler) SetInstrument(c *gin.Context) {
	var req instrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.controller.SetInstrument(req.Program); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

// Instruments handles GET /api/v1/playback/instruments
func (h *PlaybackHandler) Instruments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"instruments": playback.Instruments})
}
