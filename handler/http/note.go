package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"afvalalert/src/log"
	"afvalalert/src/storage/postgres/reportctrl"
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

type NoteHandler struct {
	reportService *reportctrl.ReportService
}

func NewNoteHandler(reportService *reportctrl.ReportService) *NoteHandler {
	return &NoteHandler{reportService: reportService}
}

type noteRequest struct {
	Content string `json:"content" binding:"required"`
}

// Add attaches a staff note to a report.
func (h *NoteHandler) Add(c *gin.Context) {
	reportID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report id"})
		return
	}

	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Note content is required"})
		return
	}

	note, err := h.reportService.AddNote(c.Request.Context(), reportID, req.Content)
	if err != nil {
		if isNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		log.Error(err, "Failed to add note", "report_id", reportID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add note"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"note_id": strconv.FormatInt(note.ID, 10)})
}

// List returns the notes of a report in creation order.
func (h *NoteHandler) List(c *gin.Context) {
	reportID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report id"})
		return
	}

	notes, err := h.reportService.ListNotes(c.Request.Context(), reportID)
	if err != nil {
		log.Error(err, "Failed to list notes", "report_id", reportID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notes": notes})
}
