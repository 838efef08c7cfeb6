package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/andresuchdata/rop-engine/internal/pipeline"
	"github.com/andresuchdata/rop-engine/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ROPHandler struct {
	service      *service.ROPService
	orchestrator *pipeline.Orchestrator
	reports      *service.ReportService
}

// NewROPHandler wires the reorder endpoints. orchestrator and reports may be
// nil; their routes then answer 503.
func NewROPHandler(svc *service.ROPService, orchestrator *pipeline.Orchestrator, reports *service.ReportService) *ROPHandler {
	return &ROPHandler{service: svc, orchestrator: orchestrator, reports: reports}
}

func (h *ROPHandler) parseFilter(c *gin.Context) domain.SuggestionFilter {
	filter := domain.SuggestionFilter{}

	if minUrgency := strings.TrimSpace(c.Query("min_urgency")); minUrgency != "" {
		if f, err := strconv.ParseFloat(minUrgency, 64); err == nil {
			filter.MinUrgency = f
		}
	}

	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.Limit = limit
	}

	return filter.Normalize()
}

func (h *ROPHandler) ListSuggestions(c *gin.Context) {
	filter := h.parseFilter(c)
	views, err := h.service.ListSuggestions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to fetch suggestions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"suggestions": views,
		"count":       len(views),
	})
}

func (h *ROPHandler) DismissSuggestion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	suggestion, err := h.service.DismissSuggestion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to dismiss suggestion")
		return
	}

	c.JSON(http.StatusOK, suggestion)
}

type generatePORequest struct {
	SuggestionID int64 `json:"suggestion_id" binding:"required"`
}

func (h *ROPHandler) GeneratePurchaseOrder(c *gin.Context) {
	var req generatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "suggestion_id is required", "details": err.Error()})
		return
	}

	po, err := h.service.GeneratePurchaseOrder(c.Request.Context(), req.SuggestionID)
	if err != nil {
		respondError(c, err, "failed to create purchase order")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"suggestion_id":  req.SuggestionID,
		"purchase_order": po,
	})
}

func (h *ROPHandler) GetPartDetails(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	details, err := h.service.GetPartDetails(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to fetch part details")
		return
	}

	c.JSON(http.StatusOK, details)
}

func (h *ROPHandler) CalculatePart(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	outcome, err := h.service.CalculatePart(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to calculate part")
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *ROPHandler) UpdatePolicy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var update domain.PolicyUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid policy body", "details": err.Error()})
		return
	}

	policy, err := h.service.UpdatePolicy(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, err, "failed to update policy")
		return
	}

	c.JSON(http.StatusOK, policy)
}

func (h *ROPHandler) CalculateAll(c *gin.Context) {
	if h.orchestrator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "batch calculation is not configured"})
		return
	}

	run, err := h.orchestrator.CalculateAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "batch calculation failed")
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *ROPHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 {
		limit = 20
	}

	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "failed to fetch runs")
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (h *ROPHandler) ExportPending(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report export is not configured"})
		return
	}

	result, err := h.reports.ExportPending(c.Request.Context(), h.parseFilter(c))
	if err != nil {
		respondError(c, err, "failed to export suggestions")
		return
	}

	c.JSON(http.StatusCreated, result)
}

func pathID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSuggestionNotPending), errors.Is(err, domain.ErrNoSupplier):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error, message string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
		c.JSON(status, gin.H{"error": message, "details": err.Error()})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
