package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ankits1802/finetune-api/internal/history"
	"github.com/ankits1802/finetune-api/internal/logger"
)

// HistoryHandler serves the recent-compositions list.
type HistoryHandler struct {
	recorder history.Recorder
}

func NewHistoryHandler(recorder history.Recorder) *HistoryHandler {
	return &HistoryHandler{recorder: recorder}
}

// List handles GET /api/v1/history
func (h *HistoryHandler) List(c *gin.Context) {
	entries, err := h.recorder.List(c.Request.Context())
	if err != nil {
		logger.Error("Failed to list history", err, logger.Fields{
			"request_id": c.GetString("request_id"),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list history"})
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Clear handles DELETE /api/v1/history
func (h *HistoryHandler) Clear(c *gin.Context) {
	if err := h.recorder.Clear(c.Request.Context()); err != nil {
		logger.Error("Failed to clear history", err, logger.Fields{
			"request_id": c.GetString("request_id"),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
