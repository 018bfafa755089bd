package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/amanihub/amani/internal/domain"
	"github.com/amanihub/amani/internal/service"
)

// ReportHandler handles report endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler creates a new report handler.
// Parameters:
//   - reports: report service instance.
// Returns:
//   - *ReportHandler: initialized handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// createReportRequest is the body for report creation.
type createReportRequest struct {
	Type    string               `json:"type" binding:"required"`
	Filters domain.ReportFilters `json:"filters"`
}

// Create handles POST /api/v1/reports.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ReportHandler) Create(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	report, err := h.reports.Create(c.Request.Context(),
		domain.ReportType(req.Type), req.Filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, report)
}

// Get handles GET /api/v1/reports/:id.
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// List handles GET /api/v1/reports with optional status and type filters.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ReportHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reports, err := h.reports.List(c.Request.Context(),
		domain.ReportStatus(c.Query("status")),
		domain.ReportType(c.Query("type")),
		limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"total":   len(reports),
	})
}

// Enqueue handles POST /api/v1/reports/:id/enqueue. On success the response
// carries the queue position the broker reported at push time.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ReportHandler) Enqueue(c *gin.Context) {
	position, err := h.reports.Enqueue(c.Request.Context(), c.Param("id"))
	if err != nil {
		if position > 0 {
			// The task is on the queue but the status transition failed.
			c.JSON(http.StatusAccepted, gin.H{
				"queue_position": position,
				"error":          "enqueued but status transition failed: " + err.Error(),
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         string(domain.ReportProcessing),
		"queue_position": position,
	})
}

// updateResultRequest is the worker callback body for report outcomes.
type updateResultRequest struct {
	Status   string `json:"status" binding:"required"`
	FileURL  string `json:"file_url"`
	ErrorMsg string `json:"error_msg"`
}

// UpdateResult handles PATCH /api/v1/reports/:id/result, the worker callback.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ReportHandler) UpdateResult(c *gin.Context) {
	var req updateResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	report, err := h.reports.UpdateResult(c.Request.Context(),
		c.Param("id"), req.Status, req.FileURL, req.ErrorMsg)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListStale handles GET /api/v1/reports/stale: reports sitting in processing
// past the configured threshold. Read-only; requeueing is a human decision.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ReportHandler) ListStale(c *gin.Context) {
	reports, err := h.reports.ListStale(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"total":   len(reports),
	})
}

// Delete handles DELETE /api/v1/reports/:id.
func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
