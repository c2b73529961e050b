package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	channels := s.router.Group("/channels")
	{
		channels.GET("", s.channelHandler.ListChannels)
		channels.POST("", s.channelHandler.StartChannel)
		channels.POST("/:camera_id/stop", s.channelHandler.StopChannel)
		channels.DELETE("/:camera_id", s.channelHandler.RemoveChannel)
		channels.GET("/:camera_id/status", s.channelHandler.GetChannelStatus)
		channels.GET("/:camera_id/frame", s.channelHandler.GetLatestFrame)
	}

	violations := s.router.Group("/violations")
	{
		violations.GET("/active", s.violationHandler.ListActiveViolations)
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
		system.GET("/debug", s.systemHandler.GetDebugInfo)
	}
}
