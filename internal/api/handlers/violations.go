package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"safesite-worker-go/internal/services/violation"
)

type ViolationHandler struct {
	store violation.EventStore
}

func NewViolationHandler(store violation.EventStore) *ViolationHandler {
	return &ViolationHandler{store: store}
}

// ListActiveViolations lists currently open violation events
// @Summary List active violations
// @Description List all currently open violation events, optionally filtered by camera
// @Tags violations
// @Produce json
// @Param camera_id query string false "Camera ID filter"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} ErrorResponse
// @Router /violations/active [get]
func (h *ViolationHandler) ListActiveViolations(c *gin.Context) {
	cameraID := c.Query("camera_id")

	events, err := h.store.ActiveViolations(c.Request.Context(), cameraID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list active violations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"violations": events,
		"count":      len(events),
	})
}
