package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"afvalalert/src/infrastructure/classification"
	"afvalalert/src/log"
	"afvalalert/src/storage/postgres/reportctrl"
)

type ReportHandler struct {
	reportService *reportctrl.ReportService
	jobStore      classification.Store
}

func NewReportHandler(reportService *reportctrl.ReportService, jobStore classification.Store) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		jobStore:      jobStore,
	}
}

type finalizeRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
	Comment   string  `json:"comment"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
}

// Finalize fills in the citizen-provided fields on a draft and submits it.
func (h *ReportHandler) Finalize(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report id"})
		return
	}

	var req finalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err = h.reportService.Finalize(c.Request.Context(), id, reportctrl.FinalizeInput{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Comment:   req.Comment,
		Email:     req.Email,
		Name:      req.Name,
	})
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		log.Error(err, "Failed to finalize report", "report_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update report"})
		return
	}

	c.Status(http.StatusNoContent)
}

// List returns finalized reports with their waste type labels.
func (h *ReportHandler) List(c *gin.Context) {
	limit := 20
	offset := 0

	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}
	if offsetParam := c.Query("offset"); offsetParam != "" {
		parsed, err := strconv.Atoi(offsetParam)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
			return
		}
		offset = parsed
	}

	reports, err := h.reportService.ListFinalized(c.Request.Context(), limit, offset)
	if err != nil {
		log.Error(err, "Failed to list reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}

	items := make([]gin.H, 0, len(reports))
	for _, report := range reports {
		labels, err := h.jobStore.LabelsByReport(c.Request.Context(), report.ID)
		if err != nil {
			log.Error(err, "Failed to load labels", "report_id", report.ID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
			return
		}

		items = append(items, gin.H{
			"id":         strconv.FormatInt(report.ID, 10),
			"latitude":   report.Latitude,
			"longitude":  report.Longitude,
			"status":     report.Status,
			"created_at": report.CreatedAt,
			"labels":     labels,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": items,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
		},
	})
}

// Get returns one report with labels, classification state and notes.
func (h *ReportHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report id"})
		return
	}

	report, err := h.reportService.GetByID(c.Request.Context(), id)
	if err != nil {
		log.Error(err, "Failed to get report", "report_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get report"})
		return
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}

	labels, err := h.jobStore.LabelsByReport(c.Request.Context(), report.ID)
	if err != nil {
		log.Error(err, "Failed to load labels", "report_id", report.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get report"})
		return
	}

	response := gin.H{
		"id":         strconv.FormatInt(report.ID, 10),
		"latitude":   report.Latitude,
		"longitude":  report.Longitude,
		"comment":    report.Comment,
		"email":      report.Email,
		"name":       report.Name,
		"status":     report.Status,
		"finalized":  report.Finalized,
		"image_id":   strconv.FormatInt(report.ImageID, 10),
		"created_at": report.CreatedAt,
		"labels":     labels,
		"notes":      report.Notes,
	}

	job, err := h.jobStore.JobByReport(c.Request.Context(), report.ID)
	if err != nil {
		log.Error(err, "Failed to load classification job", "report_id", report.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get report"})
		return
	}
	if job != nil {
		response["classification"] = gin.H{
			"status":        job.Status,
			"classified_at": job.ClassifiedAt,
		}
	}

	c.JSON(http.StatusOK, response)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus moves a report through the staff workflow.
func (h *ReportHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report id"})
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !reportctrl.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
		return
	}

	if err := h.reportService.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		log.Error(err, "Failed to update report status", "report_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}

	c.Status(http.StatusNoContent)
}

// ListStatuses enumerates the workflow status values.
func (h *ReportHandler) ListStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"statuses": reportctrl.Statuses()})
}
