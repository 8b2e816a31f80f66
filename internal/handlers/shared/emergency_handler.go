package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"calltriage/internal/models"
	"calltriage/internal/repositories/interfaces"
	"calltriage/internal/services"
	"calltriage/internal/utils"
	"calltriage/pkg/logger"

	"github.com/gin-gonic/gin"
)

type EmergencyHandler struct {
	emergencyService services.EmergencyService
	logger           *logger.Logger
}

func NewEmergencyHandler(emergencyService services.EmergencyService, log *logger.Logger) *EmergencyHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &EmergencyHandler{
		emergencyService: emergencyService,
		logger:           log,
	}
}

// AnalyzeEmergency runs a transcription through the triage pipeline
func (h *EmergencyHandler) AnalyzeEmergency(c *gin.Context) {
	var request models.AnalyzeEmergencyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.logger.WithError(err).Debug("Rejected analyze request body")
		message := utils.ErrInvalidBody
		if errors.Is(err, models.ErrInvalidDuration) {
			message = models.ErrInvalidDuration.Error()
		}
		utils.ValidationErrorResponse(c, map[string]string{"body": message})
		return
	}

	response, err := h.emergencyService.AnalyzeEmergency(c.Request.Context(), &request)
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.JSONResponse(c, response)
}

func (h *EmergencyHandler) GetEmergency(c *gin.Context) {
	emergency, err := h.emergencyService.GetEmergency(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.JSONResponse(c, gin.H{"success": true, "emergency": emergency})
}

func (h *EmergencyHandler) GetHighPriority(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	emergencies, err := h.emergencyService.GetHighPriority(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.JSONResponse(c, listResponse(emergencies))
}

func (h *EmergencyHandler) GetByLocation(c *gin.Context) {
	area := c.Param("area")
	emergencies, err := h.emergencyService.GetByLocation(c.Request.Context(), area)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response := listResponse(emergencies)
	response.Area = area
	utils.JSONResponse(c, response)
}

func (h *EmergencyHandler) GetByType(c *gin.Context) {
	emergencyType := c.Param("type")
	emergencies, err := h.emergencyService.GetByType(c.Request.Context(), emergencyType)
	if err != nil {
		h.handleError(c, err)
		return
	}

	response := listResponse(emergencies)
	response.Type = emergencyType
	utils.JSONResponse(c, response)
}

func (h *EmergencyHandler) GetRecent(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	emergencies, err := h.emergencyService.GetRecent(c.Request.Context(), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.JSONResponse(c, listResponse(emergencies))
}

func (h *EmergencyHandler) GetAll(c *gin.Context) {
	emergencies, err := h.emergencyService.GetAll(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.JSONResponse(c, listResponse(emergencies))
}

func (h *EmergencyHandler) GetStats(c *gin.Context) {
	stats, err := h.emergencyService.GetStats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	utils.SuccessResponse(c, utils.MsgStatsRetrieved, stats)
}

// handleError maps service faults to status codes. Internal details stay in
// the log.
func (h *EmergencyHandler) handleError(c *gin.Context, err error) {
	log := h.logger.WithContext(c.Request.Context()).WithError(err).WithField("path", c.FullPath())

	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		utils.ValidationErrorResponse(c, validationErr.Details)
	case errors.Is(err, services.ErrValidation):
		utils.ValidationErrorResponse(c, nil)
	case errors.Is(err, interfaces.ErrEmergencyNotFound):
		utils.NotFoundResponse(c, "Emergency")
	case errors.Is(err, services.ErrUpstreamTimeout), errors.Is(err, context.DeadlineExceeded):
		log.Warn("Request timed out")
		utils.ErrorResponse(c, http.StatusGatewayTimeout, utils.CodeUpstreamTimeout, utils.ErrUpstreamTimeout)
	case errors.Is(err, services.ErrUpstreamUnavailable):
		log.Error("Analysis provider failed")
		utils.ErrorResponse(c, http.StatusBadGateway, utils.CodeUpstreamUnavailable, utils.ErrUpstreamUnavailable)
	case errors.Is(err, interfaces.ErrStoreUnavailable):
		log.Error("Emergency store failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, utils.CodeStoreUnavailable, utils.ErrStoreUnavailable)
	default:
		log.Error("Unhandled error")
		utils.InternalServerErrorResponse(c)
	}
}

// parseLimit writes the 400 itself; clamping to the maximum happens in the
// service.
func parseLimit(c *gin.Context) (int, bool) {
	limit, err := utils.GetLimitParam(c)
	if err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"limit": err.Error()})
		return 0, false
	}
	return limit, true
}

func listResponse(emergencies []*models.Emergency) *models.EmergencyListResponse {
	if emergencies == nil {
		emergencies = []*models.Emergency{}
	}
	return &models.EmergencyListResponse{
		Success:     true,
		Count:       len(emergencies),
		Emergencies: emergencies,
	}
}

// Pinger is satisfied by the Redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store   Pinger
	timeout time.Duration
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store, timeout: 2 * time.Second}
}

// Health reports liveness and whether Redis answers. A failed ping returns
// 503 so load balancers take the instance out.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	body := gin.H{
		"status":    utils.StatusHealthy,
		"service":   utils.AppName,
		"version":   utils.AppVersion,
		"redis":     "connected",
		"timestamp": time.Now().UTC(),
	}

	if err := h.store.Ping(ctx); err != nil {
		body["status"] = utils.StatusDegraded
		body["redis"] = "disconnected"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	c.JSON(http.StatusOK, body)
}
