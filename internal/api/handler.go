package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/bugfix-pairs/internal/aggregator"
	"github.com/kurihiro0119/bugfix-pairs/internal/domain"
	apperrors "github.com/kurihiro0119/bugfix-pairs/internal/errors"
)

// Handler handles API requests
type Handler struct {
	aggregator aggregator.Aggregator
}

// NewHandler creates a new API handler
func NewHandler(agg aggregator.Aggregator) *Handler {
	return &Handler{
		aggregator: agg,
	}
}

// GetDatasetSummary returns per-project outcome counts of a dataset
// GET /api/v1/datasets/:dataset/summary
func (h *Handler) GetDatasetSummary(c *gin.Context) {
	dataset, ok := datasetParam(c)
	if !ok {
		return
	}

	summary, err := h.aggregator.SummarizeDataset(c.Request.Context(), dataset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summary,
	})
}

// GetProjectSummary returns outcome counts of one project
// GET /api/v1/datasets/:dataset/projects/:project/summary
func (h *Handler) GetProjectSummary(c *gin.Context) {
	dataset, ok := datasetParam(c)
	if !ok {
		return
	}
	project := domain.Project(c.Param("project"))

	summary, err := h.aggregator.SummarizeProject(c.Request.Context(), dataset, project)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summary,
	})
}

// GetProjectBugs returns the effective ledger record of every bug of a
// project, optionally filtered by ?status=
// GET /api/v1/datasets/:dataset/projects/:project/bugs
func (h *Handler) GetProjectBugs(c *gin.Context) {
	dataset, ok := datasetParam(c)
	if !ok {
		return
	}
	project := domain.Project(c.Param("project"))
	status := domain.BugStatus(c.Query("status"))

	records, err := h.aggregator.LatestBugs(c.Request.Context(), dataset, project)
	if err != nil {
		respondError(c, err)
		return
	}

	bugs := make([]*domain.BugRecord, 0, len(records))
	for _, rec := range records {
		if status == "" || rec.Status == status {
			bugs = append(bugs, rec)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": bugs,
	})
}

// GetStatsSummary returns the diff statistics totals of a dataset
// GET /api/v1/datasets/:dataset/stats
func (h *Handler) GetStatsSummary(c *gin.Context) {
	dataset, ok := datasetParam(c)
	if !ok {
		return
	}

	summary, err := h.aggregator.StatsSummary(c.Request.Context(), dataset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summary,
	})
}

// HealthCheck returns the health status
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// datasetParam reads :dataset and answers 400 for unknown families
func datasetParam(c *gin.Context) (domain.Dataset, bool) {
	dataset := domain.Dataset(c.Param("dataset"))
	if !dataset.Valid() {
		respondError(c, apperrors.NewBadRequestError("unknown dataset: "+string(dataset)))
		return "", false
	}
	return dataset, true
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		c.JSON(statusFor(appErr.Code), gin.H{
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error": gin.H{
			"code":    apperrors.ErrCodeInternal,
			"message": err.Error(),
		},
	})
}

func statusFor(code apperrors.ErrCode) int {
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeToolFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
