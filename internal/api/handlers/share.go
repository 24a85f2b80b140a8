package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ankits1802/finetune-api/internal/share"
)

// ShareHandler turns seed text into shareable URL fragments and back.
type ShareHandler struct{}

func NewShareHandler() *ShareHandler {
	return &ShareHandler{}
}

// Encode handles GET /api/v1/share?text=...
func (h *ShareHandler) Encode(c *gin.Context) {
	text := c.Query("text")
	if strings.TrimSpace(text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Text is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fragment": share.Encode(text)})
}

type resolveRequest struct {
	Fragment string `json:"fragment"`
}

// Resolve handles POST /api/v1/share/resolve. A missing fragment falls
// back to the default seed text and a malformed one to a timestamp seed,
// so a bad share link still opens a working session.
func (h *ShareHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	text, fellBack := share.DecodeOrDefault(req.Fragment)
	c.JSON(http.StatusOK, gin.H{
		"text":     text,
		"fellBack": fellBack,
	})
}
