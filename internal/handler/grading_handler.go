package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/siwes-portal-api/internal/service"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
	"github.com/noah-isme/siwes-portal-api/pkg/response"
)

// GradingHandler exposes the grading engine endpoints.
type GradingHandler struct {
	grading *service.GradingService
}

// NewGradingHandler constructs GradingHandler.
func NewGradingHandler(grading *service.GradingService) *GradingHandler {
	return &GradingHandler{grading: grading}
}

// Preview godoc
// @Summary Preview a student's placement grade
// @Description Computes the grade breakdown without persisting anything
// @Tags Grading
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grade/preview [get]
func (h *GradingHandler) Preview(c *gin.Context) {
	result, err := h.grading.Preview(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Commit godoc
// @Summary Commit a student's placement grade
// @Description Finalizes the grade and locks the student's records
// @Tags Grading
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.CommitGradeRequest true "Commit payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/grade/commit [post]
func (h *GradingHandler) Commit(c *gin.Context) {
	var req service.CommitGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.StudentID = c.Param("id")
	result, err := h.grading.Commit(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get a student's committed grade
// @Tags Grading
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grade [get]
func (h *GradingHandler) Get(c *gin.Context) {
	grade, err := h.grading.GetCommitted(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// Unlock godoc
// @Summary Unlock a graded student for re-grading
// @Tags Grading
// @Produce json
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id}/grade/unlock [post]
func (h *GradingHandler) Unlock(c *gin.Context) {
	if err := h.grading.Unlock(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
