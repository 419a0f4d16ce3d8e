// backend-go/internal/api/handlers/reorder_handler.go
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stockpilot/backend-go/internal/analysis"
	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/service"
)

type ReorderHandler struct {
	reorder  *service.ReorderService
	orch     *analysis.Orchestrator
	exporter *analysis.Exporter
}

func NewReorderHandler(reorder *service.ReorderService, orch *analysis.Orchestrator, exporter *analysis.Exporter) *ReorderHandler {
	return &ReorderHandler{reorder: reorder, orch: orch, exporter: exporter}
}

type startAnalysisRequest struct {
	Scope       string `json:"scope"`
	TargetID    string `json:"target_id"`
	UrgencyOnly bool   `json:"urgency_only"`
}

// StartAnalysis kicks off an asynchronous analysis run and returns 202 with
// the job id.
func (h *ReorderHandler) StartAnalysis(c *gin.Context) {
	req := startAnalysisRequest{Scope: string(domain.AnalysisAll)}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	job, err := h.orch.StartAnalysis(c.Request.Context(), domain.AnalysisScope(req.Scope), req.TargetID, req.UrgencyOnly)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":               job.ID,
		"status":               job.Status,
		"estimated_completion": job.EstimatedCompletion,
	})
}

// GetJob returns the state of an analysis job.
func (h *ReorderHandler) GetJob(c *gin.Context) {
	job, err := h.orch.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetSuggestions lists suggestions with the dashboard summary block.
func (h *ReorderHandler) GetSuggestions(c *gin.Context) {
	filter := domain.SuggestionFilter{
		Urgency:    domain.Urgency(strings.TrimSpace(c.Query("urgency"))),
		CategoryID: strings.TrimSpace(c.Query("category_id")),
		SupplierID: strings.TrimSpace(c.Query("supplier_id")),
		Status:     domain.SuggestionStatus(strings.TrimSpace(c.Query("status"))),
	}
	if v := c.Query("min_confidence"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_confidence must be a number"})
			return
		}
		filter.MinConfidence = parsed
	}
	filter.IncludeExpired = c.Query("include_expired") == "true"
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "100")); err == nil && v > 0 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && v > 0 {
		filter.Offset = v
	}

	suggestions, summary, err := h.reorder.ListSuggestions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"suggestions": suggestions,
		"summary":     summary,
	})
}

// GetSuggestion returns one suggestion by id.
func (h *ReorderHandler) GetSuggestion(c *gin.Context) {
	suggestion, err := h.reorder.GetSuggestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

type processSuggestionRequest struct {
	Action        string                          `json:"action"`
	Reason        string                          `json:"reason"`
	Modifications *domain.SuggestionModifications `json:"modifications"`
}

// ProcessSuggestion applies approve/reject/modify to a pending suggestion.
func (h *ReorderHandler) ProcessSuggestion(c *gin.Context) {
	var req processSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	suggestion, err := h.reorder.ProcessSuggestion(c.Request.Context(), c.Param("id"), req.Action, req.Reason, req.Modifications)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}

// GetHistory lists the audit trail for a product.
func (h *ReorderHandler) GetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	history, err := h.reorder.ListHistory(c.Request.Context(), c.Param("product_id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// ListExports lists the CSV exports written by past analysis runs.
func (h *ReorderHandler) ListExports(c *gin.Context) {
	if h.exporter == nil {
		c.JSON(http.StatusOK, gin.H{"exports": []interface{}{}})
		return
	}

	exports, err := h.exporter.ListExports(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exports": exports})
}

// CreatePolicy registers a new reorder policy.
func (h *ReorderHandler) CreatePolicy(c *gin.Context) {
	var policy domain.ReorderPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := h.reorder.CreatePolicy(c.Request.Context(), &policy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdatePolicy applies a partial update to a policy.
func (h *ReorderHandler) UpdatePolicy(c *gin.Context) {
	var update domain.PolicyUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	policy, err := h.reorder.UpdatePolicy(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, policy)
}

// ListPolicies returns reorder policies.
func (h *ReorderHandler) ListPolicies(c *gin.Context) {
	onlyActive := c.Query("active") == "true"

	policies, err := h.reorder.ListPolicies(c.Request.Context(), onlyActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"policies": policies})
}

// GetSettings returns the reorder settings singleton.
func (h *ReorderHandler) GetSettings(c *gin.Context) {
	settings, err := h.reorder.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings applies a partial update to the settings singleton.
func (h *ReorderHandler) UpdateSettings(c *gin.Context) {
	var update domain.SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	settings, err := h.reorder.UpdateSettings(c.Request.Context(), update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
