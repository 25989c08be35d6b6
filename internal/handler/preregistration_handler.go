package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/siwes-portal-api/internal/service"
	appErrors "github.com/noah-isme/siwes-portal-api/pkg/errors"
	"github.com/noah-isme/siwes-portal-api/pkg/response"
)

// PreRegistrationHandler exposes the intake gate endpoints.
type PreRegistrationHandler struct {
	preregs *service.PreRegistrationService
}

// NewPreRegistrationHandler constructs PreRegistrationHandler.
func NewPreRegistrationHandler(preregs *service.PreRegistrationService) *PreRegistrationHandler {
	return &PreRegistrationHandler{preregs: preregs}
}

// ListPending godoc
// @Summary List pre-registrations awaiting review
// @Tags PreRegistrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /preregistrations/pending [get]
func (h *PreRegistrationHandler) ListPending(c *gin.Context) {
	preregs, err := h.preregs.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preregs, nil)
}

// Get godoc
// @Summary Get one pre-registration
// @Tags PreRegistrations
// @Produce json
// @Param id path string true "Pre-registration ID"
// @Success 200 {object} response.Envelope
// @Router /preregistrations/{id} [get]
func (h *PreRegistrationHandler) Get(c *gin.Context) {
	prereg, err := h.preregs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prereg, nil)
}

// Create godoc
// @Summary Create a pre-registration for a session
// @Tags PreRegistrations
// @Accept json
// @Produce json
// @Param payload body service.CreatePreRegistrationRequest true "Pre-registration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /preregistrations [post]
func (h *PreRegistrationHandler) Create(c *gin.Context) {
	var req service.CreatePreRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	prereg, err := h.preregs.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, prereg)
}

// Approve godoc
// @Summary Approve a pending pre-registration
// @Tags PreRegistrations
// @Accept json
// @Produce json
// @Param id path string true "Pre-registration ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /preregistrations/{id}/approve [post]
func (h *PreRegistrationHandler) Approve(c *gin.Context) {
	// Approval takes an optional remark; an empty body is fine.
	var req service.ReviewPreRegistrationRequest
	_ = c.ShouldBindJSON(&req)
	req.PreRegistrationID = c.Param("id")
	prereg, err := h.preregs.Approve(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prereg, nil)
}

// Reject godoc
// @Summary Reject a pending pre-registration
// @Tags PreRegistrations
// @Accept json
// @Produce json
// @Param id path string true "Pre-registration ID"
// @Param payload body service.ReviewPreRegistrationRequest true "Rejection remark"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /preregistrations/{id}/reject [post]
func (h *PreRegistrationHandler) Reject(c *gin.Context) {
	var req service.ReviewPreRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.PreRegistrationID = c.Param("id")
	prereg, err := h.preregs.Reject(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prereg, nil)
}

// Resubmit godoc
// @Summary Resubmit a rejected pre-registration
// @Tags PreRegistrations
// @Accept json
// @Produce json
// @Param id path string true "Pre-registration ID"
// @Param payload body service.ResubmitPreRegistrationRequest true "Amended placement details"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /preregistrations/{id}/resubmit [post]
func (h *PreRegistrationHandler) Resubmit(c *gin.Context) {
	var req service.ResubmitPreRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.PreRegistrationID = c.Param("id")
	prereg, err := h.preregs.Resubmit(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, prereg, nil)
}
