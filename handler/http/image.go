package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"afvalalert/src/infrastructure/classification"
	"afvalalert/src/log"
	"afvalalert/src/storage/postgres/reportctrl"
)

// maxImageSize caps uploads at 10 MiB.
const maxImageSize = 10 << 20

type ImageHandler struct {
	reportService *reportctrl.ReportService
	jobStore      classification.Store
}

func NewImageHandler(reportService *reportctrl.ReportService, jobStore classification.Store) *ImageHandler {
	return &ImageHandler{
		reportService: reportService,
		jobStore:      jobStore,
	}
}

// Upload accepts a photo, opens a draft report for it and queues a
// classification job. The draft stays invisible to staff until the
// citizen finalizes it.
func (h *ImageHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only images are allowed"})
		return
	}

	imageData, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	if len(imageData) == 0 || len(imageData) > maxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image must be between 1 byte and 10 MiB"})
		return
	}

	report, err := h.reportService.CreateDraft(c.Request.Context(), imageData)
	if err != nil {
		log.Error(err, "Failed to create draft report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
		return
	}

	if _, err := h.jobStore.CreateJob(c.Request.Context(), report.ID); err != nil {
		log.Error(err, "Failed to queue classification job", "report_id", report.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue classification"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"report_id": strconv.FormatInt(report.ID, 10)})
}

// Get serves the raw image bytes.
func (h *ImageHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image id"})
		return
	}

	image, err := h.reportService.GetImage(c.Request.Context(), id)
	if err != nil {
		log.Error(err, "Failed to get image", "image_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get image"})
		return
	}
	if image == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}

	c.Data(http.StatusOK, http.DetectContentType(image.Data), image.Data)
}
