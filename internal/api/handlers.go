package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/models"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/services"
	"github.com/satria-tarigan/predictive-maintenance-copilot-backend/internal/utils"
)

// Handler maps HTTP requests onto the copilot service facade.
type Handler struct {
	logger  *slog.Logger
	service *services.CopilotService
}

// NewHandler constructs the HTTP handler set.
func NewHandler(logger *slog.Logger, service *services.CopilotService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  utils.ComponentLogger(logger, "api"),
		service: service,
	}
}

// Router wires the route table.
func (h *Handler) Router() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", h.Health)

	v1 := router.Group("/api/v1")
	{
		machines := v1.Group("/machines")
		{
			machines.GET("/list", h.ListMachineIDs)
			machines.GET("/status", h.FleetStatus)
			machines.GET("/high-risk", h.HighRisk)
			machines.GET("/by-status/:status", h.ByStatus)
			machines.POST("/predict", h.PredictBatch)
			machines.POST("/predict/:id", h.PredictOne)
		}
		v1.POST("/chat", h.Chat)
	}

	return router
}

// Health reports liveness plus the current p95 prediction latency.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"prediction_p95": h.service.LatencyP95().String(),
	})
}

// ListMachineIDs returns the fixed fleet ids.
func (h *Handler) ListMachineIDs(c *gin.Context) {
	ids := h.service.ListMachineIDs()
	c.JSON(http.StatusOK, gin.H{
		"total_machines": len(ids),
		"machine_ids":    ids,
	})
}

// FleetStatus returns every machine plus the per-status census.
func (h *Handler) FleetStatus(c *gin.Context) {
	machines := h.service.ListMachines()
	summary := h.service.Summary()
	c.JSON(http.StatusOK, gin.H{
		"total_machines": summary.Total,
		"machines":       machines,
		"summary": gin.H{
			"normal":  summary.Normal,
			"warning": summary.Warning,
			"failure": summary.Failure,
		},
		"high_risk_machines": summary.HighRisk,
	})
}

// HighRisk returns Warning-or-above machines, most probable first.
func (h *Handler) HighRisk(c *gin.Context) {
	machines := h.service.ListHighRisk()
	c.JSON(http.StatusOK, gin.H{
		"count":    len(machines),
		"machines": machines,
	})
}

// ByStatus filters the fleet on an exact status match.
func (h *Handler) ByStatus(c *gin.Context) {
	status, ok := models.ParseStatus(c.Param("status"))
	if !ok {
		h.errorResponse(c, http.StatusBadRequest, "status must be one of Normal, Warning, Failure", nil)
		return
	}

	machines := h.service.ListByStatus(status)
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"count":    len(machines),
		"machines": machines,
	})
}

// PredictOne scores a single machine.
func (h *Handler) PredictOne(c *gin.Context) {
	machineID := c.Param("id")

	result, err := h.service.PredictOne(c.Request.Context(), machineID)
	if err != nil {
		h.predictionError(c, machineID, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PredictBatch scores the whole fleet in registry order.
func (h *Handler) PredictBatch(c *gin.Context) {
	results, err := h.service.PredictBatch(c.Request.Context())
	if err != nil {
		h.predictionError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(results),
		"predictions": results,
	})
}

type chatRequest struct {
	Query string `json:"query" binding:"required"`
}

// Chat forwards a free-text query to the agent. The agent never fails a
// query, so this endpoint always answers 200 once the payload parses.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "query is required", err)
		return
	}

	answer := h.service.Chat(c.Request.Context(), req.Query)
	c.JSON(http.StatusOK, gin.H{"response": answer})
}

func (h *Handler) predictionError(c *gin.Context, machineID string, err error) {
	switch {
	case errors.Is(err, models.ErrUnknownMachine):
		h.errorResponse(c, http.StatusNotFound, "machine not found", err)
	case errors.Is(err, models.ErrInvalidFeatures):
		h.errorResponse(c, http.StatusUnprocessableEntity, "invalid telemetry", err)
	case errors.Is(err, models.ErrModelUnavailable):
		h.errorResponse(c, http.StatusServiceUnavailable, "prediction model unavailable", err)
	default:
		h.logger.Error("prediction handler failed", slog.String("machine_id", machineID), slog.Any("error", err))
		h.errorResponse(c, http.StatusInternalServerError, "internal error", nil)
	}
}

func (h *Handler) errorResponse(c *gin.Context, status int, message string, err error) {
	detail := message
	if err != nil {
		detail = message + ": " + err.Error()
	}
	c.AbortWithStatusJSON(status, gin.H{
		"status": "error",
		"error": gin.H{
			"code":    status,
			"message": detail,
		},
	})
}
