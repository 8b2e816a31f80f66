package routes

import (
	handlers "calltriage/internal/handlers/shared"
	"calltriage/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// SetupEmergencyRoutes sets up the triage API under r. analyzeLimit guards
// the analysis endpoint only; queries are cheap reads.
func SetupEmergencyRoutes(r *gin.RouterGroup, emergencyHandler *handlers.EmergencyHandler, wsHandler *websocket.Handler, analyzeLimit gin.HandlerFunc) {
	analyze := []gin.HandlerFunc{emergencyHandler.AnalyzeEmergency}
	if analyzeLimit != nil {
		analyze = append([]gin.HandlerFunc{analyzeLimit}, analyze...)
	}
	r.POST("/analyze-emergency", analyze...)

	emergencies := r.Group("/emergencies")
	{
		// Index queries
		emergencies.GET("/high-priority", emergencyHandler.GetHighPriority)
		emergencies.GET("/recent", emergencyHandler.GetRecent)
		emergencies.GET("/all", emergencyHandler.GetAll)
		emergencies.GET("/location/:area", emergencyHandler.GetByLocation)
		emergencies.GET("/type/:type", emergencyHandler.GetByType)

		// Analytics
		emergencies.GET("/stats", emergencyHandler.GetStats)

		emergencies.GET("/:id", emergencyHandler.GetEmergency)
	}

	if wsHandler != nil {
		r.GET("/ws/emergencies", wsHandler.HandleWebSocket)
	}
}

// SetupOperationalRoutes mounts health and metrics at the root.
func SetupOperationalRoutes(r *gin.Engine, healthHandler *handlers.HealthHandler, metrics gin.HandlerFunc) {
	r.GET("/health", healthHandler.Health)
	if metrics != nil {
		r.GET("/metrics", metrics)
	}
}
