package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amanihub/amani/internal/domain"
	"github.com/amanihub/amani/internal/service"
)

// ImageJobHandler handles image job endpoints.
type ImageJobHandler struct {
	jobs *service.ImageJobService
}

// NewImageJobHandler creates a new image job handler.
// Parameters:
//   - jobs: image job service instance.
// Returns:
//   - *ImageJobHandler: initialized handler.
func NewImageJobHandler(jobs *service.ImageJobService) *ImageJobHandler {
	return &ImageJobHandler{jobs: jobs}
}

// Upload handles POST /api/v1/images. The request is multipart form data:
// a "file" part plus "entity_type" and "entity_id" fields.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImageJobHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "file part is required",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to open uploaded file: " + err.Error(),
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read uploaded file: " + err.Error(),
		})
		return
	}

	job, err := h.jobs.Create(c.Request.Context(), service.CreateImageJobInput{
		EntityType: domain.EntityType(c.PostForm("entity_type")),
		EntityID:   c.PostForm("entity_id"),
		Data:       data,
		Mimetype:   fileHeader.Header.Get("Content-Type"),
		Filename:   fileHeader.Filename,
	})
	if err != nil {
		// The record may exist even when the enqueue failed; surface both.
		if job != nil {
			c.JSON(http.StatusAccepted, gin.H{
				"job":   job,
				"error": "created but not scheduled: " + err.Error(),
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// createFromURLRequest is the body for URL-sourced image jobs.
type createFromURLRequest struct {
	EntityType string `json:"entity_type" binding:"required"`
	EntityID   string `json:"entity_id" binding:"required"`
	SourceURL  string `json:"source_url" binding:"required"`
}

// CreateFromURL handles POST /api/v1/images/from-url.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImageJobHandler) CreateFromURL(c *gin.Context) {
	var req createFromURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	job, err := h.jobs.CreateFromURL(c.Request.Context(),
		domain.EntityType(req.EntityType), req.EntityID, req.SourceURL)
	if err != nil {
		if job != nil {
			c.JSON(http.StatusAccepted, gin.H{
				"job":   job,
				"error": "created but not scheduled: " + err.Error(),
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// Get handles GET /api/v1/images/:id.
func (h *ImageJobHandler) Get(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListByEntity handles GET /api/v1/images?entity_type=...&entity_id=...
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImageJobHandler) ListByEntity(c *gin.Context) {
	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")
	if entityType == "" || entityID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "entity_type and entity_id query parameters are required",
		})
		return
	}

	jobs, err := h.jobs.ListByEntity(c.Request.Context(),
		domain.EntityType(entityType), entityID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// Stats handles GET /api/v1/images/stats: job counts per status.
func (h *ImageJobHandler) Stats(c *gin.Context) {
	stats, err := h.jobs.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": stats})
}

// Retry handles POST /api/v1/images/:id/retry.
func (h *ImageJobHandler) Retry(c *gin.Context) {
	job, err := h.jobs.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		if job != nil {
			// Reset but not rescheduled; a later retry attempt can enqueue it.
			c.JSON(http.StatusAccepted, gin.H{
				"job":   job,
				"error": "reset but not scheduled: " + err.Error(),
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Delete handles DELETE /api/v1/images/:id. The response carries the
// deletion outcome so callers can see partial storage cleanup.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImageJobHandler) Delete(c *gin.Context) {
	outcome, err := h.jobs.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	failedKeys := make([]string, 0, len(outcome.StorageErrors))
	for _, keyErr := range outcome.StorageErrors {
		failedKeys = append(failedKeys, keyErr.Key)
	}

	c.JSON(http.StatusOK, gin.H{
		"record_deleted":      outcome.RecordDeleted,
		"storage_failed_keys": failedKeys,
	})
}

// updateStatusRequest is the worker callback body. Pointer fields distinguish
// "absent" from "empty".
type updateStatusRequest struct {
	Status         string  `json:"status" binding:"required"`
	OutputImageURL *string `json:"output_image_url"`
	OutputImageKey *string `json:"output_image_key"`
	ErrorMsg       *string `json:"error_msg"`
}

// UpdateStatus handles PATCH /api/v1/images/:id/status, the worker callback.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ImageJobHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	job, err := h.jobs.UpdateStatus(c.Request.Context(), c.Param("id"), service.UpdateStatusInput{
		Status:         req.Status,
		OutputImageURL: req.OutputImageURL,
		OutputImageKey: req.OutputImageKey,
		ErrorMsg:       req.ErrorMsg,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}
