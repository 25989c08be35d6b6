package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/siwes-portal-api/internal/service"
	"github.com/noah-isme/siwes-portal-api/pkg/response"
)

// ExportHandler streams logbook and grade slip documents.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// LogbookCSV godoc
// @Summary Export a student's logbook as CSV
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Student ID"
// @Success 200 {file} file
// @Router /students/{id}/export/logbook [get]
func (h *ExportHandler) LogbookCSV(c *gin.Context) {
	file, err := h.exports.LogbookCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stream(c, file)
}

// GradeSlipPDF godoc
// @Summary Export a student's grade slip as PDF
// @Tags Exports
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200 {file} file
// @Router /students/{id}/export/grade-slip [get]
func (h *ExportHandler) GradeSlipPDF(c *gin.Context) {
	file, err := h.exports.GradeSlipPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.stream(c, file)
}

func (h *ExportHandler) stream(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(200, file.ContentType, file.Content)
}
