package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"safesite-worker-go/internal/logging"
	"safesite-worker-go/internal/models"
	"safesite-worker-go/internal/services/monitor"
	"safesite-worker-go/internal/services/stream"
)

type ChannelHandler struct {
	manager *stream.Manager
	monitor *monitor.Service
}

func NewChannelHandler(manager *stream.Manager, mon *monitor.Service) *ChannelHandler {
	return &ChannelHandler{
		manager: manager,
		monitor: mon,
	}
}

// StartChannel registers a camera channel and starts its stream
// @Summary Start a camera channel
// @Description Register a channel, run RTSP URL discovery, and start monitoring it
// @Tags channels
// @Accept json
// @Produce json
// @Param request body models.ChannelRequest true "Channel configuration"
// @Success 200 {object} models.ChannelResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /channels [post]
func (h *ChannelHandler) StartChannel(c *gin.Context) {
	var req models.ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.Error(c).Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel := req.Channel()
	registered := h.monitor.Register(channel)

	if err := h.manager.Start(channel); err != nil {
		// Roll back only a registration this request created: the down
		// notification never fires when discovery fails before the capture
		// loop existed. A duplicate start hits ErrAlreadyActive without
		// registering anything, and the running channel's pipeline with its
		// open events must stay untouched.
		if registered {
			h.monitor.HandleChannelDown(channel.CameraID)
		}

		logging.Error(c).Err(err).Str("camera_id", channel.CameraID).Msg("Failed to start channel")
		switch {
		case errors.Is(err, stream.ErrAlreadyActive):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, stream.ErrMaxChannels):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.Is(err, stream.ErrDiscoveryFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	session, err := h.manager.Status(channel.CameraID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Channel started but failed to get status"})
		return
	}

	logging.Info(c).
		Str("camera_id", channel.CameraID).
		Str("brand", channel.WorkingBrand).
		Msg("Channel started successfully")

	c.JSON(http.StatusOK, models.ChannelResponse{
		CameraID:  channel.CameraID,
		CompanyID: channel.CompanyID,
		Address:   channel.Address,
		Sector:    channel.Sector,
		Session:   session,
	})
}

// StopChannel stops a channel's stream
// @Summary Stop a camera channel
// @Description Stop streaming from a channel, resolving its open violations
// @Tags channels
// @Param camera_id path string true "Camera ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /channels/{camera_id}/stop [post]
func (h *ChannelHandler) StopChannel(c *gin.Context) {
	cameraID := c.Param("camera_id")
	if cameraID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "camera_id is required"})
		return
	}

	if err := h.manager.Stop(cameraID); err != nil {
		logging.Error(c).Err(err).Str("camera_id", cameraID).Msg("Failed to stop channel")
		if errors.Is(err, stream.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logging.Info(c).Str("camera_id", cameraID).Msg("Channel stopped successfully")
	c.JSON(http.StatusOK, gin.H{"message": "Channel stopped successfully"})
}

// RemoveChannel stops a channel and removes it from the registry
// @Summary Remove a camera channel
// @Description Stop a channel and delete it from the worker
// @Tags channels
// @Param camera_id path string true "Camera ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /channels/{camera_id} [delete]
func (h *ChannelHandler) RemoveChannel(c *gin.Context) {
	cameraID := c.Param("camera_id")
	if cameraID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "camera_id is required"})
		return
	}

	if err := h.manager.Remove(cameraID); err != nil {
		if errors.Is(err, stream.ErrChannelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Channel removed successfully"})
}

// ListChannels lists all channels
// @Summary List all channels
// @Description List every registered channel with its session state
// @Tags channels
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /channels [get]
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	channels := h.manager.Channels()
	c.JSON(http.StatusOK, gin.H{
		"channels": channels,
		"count":    len(channels),
	})
}

// GetChannelStatus returns one channel's session state
// @Summary Get channel status
// @Description Get connection state, frame counters, and FPS for a channel
// @Tags channels
// @Param camera_id path string true "Camera ID"
// @Success 200 {object} models.StreamSession
// @Failure 404 {object} ErrorResponse
// @Router /channels/{camera_id}/status [get]
func (h *ChannelHandler) GetChannelStatus(c *gin.Context) {
	cameraID := c.Param("camera_id")

	session, err := h.manager.Status(cameraID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetLatestFrame returns the most recent frame as JPEG
// @Summary Get latest frame
// @Description Get the most recent buffered frame for a channel as a JPEG image
// @Tags channels
// @Produce jpeg
// @Param camera_id path string true "Camera ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /channels/{camera_id}/frame [get]
func (h *ChannelHandler) GetLatestFrame(c *gin.Context) {
	cameraID := c.Param("camera_id")

	frame := h.manager.LatestFrame(cameraID)
	if frame == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No frame available"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", frame.Data)
}
