package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/weboryskills/webory-backend/internal/http/middleware"
	"github.com/weboryskills/webory-backend/internal/http/response"
	apperrors "github.com/weboryskills/webory-backend/internal/pkg/errors"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/services"
	"github.com/weboryskills/webory-backend/internal/types"
)

type CertificateHandler struct {
	log          *logger.Logger
	issuer       services.IssuerService
	certificates services.CertificateService
}

func NewCertificateHandler(log *logger.Logger, issuer services.IssuerService, certificates services.CertificateService) *CertificateHandler {
	return &CertificateHandler{
		log:          log.With("handler", "CertificateHandler"),
		issuer:       issuer,
		certificates: certificates,
	}
}

type issueRequest struct {
	Type  string `json:"type" binding:"required"`
	ID    string `json:"id" binding:"required"`
	Force bool   `json:"force"`
}

// Issue handles POST /api/admin/certificates/issue.
func (h *CertificateHandler) Issue(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	category, err := parseCategory(req.Type)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	recordID, err := uuid.Parse(strings.TrimSpace(req.ID))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid record id: %w", err))
		return
	}

	certificateID, certificateKey, err := h.issuer.Reissue(c.Request.Context(), category, recordID, req.Force)
	if err != nil {
		h.respondIssueError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"certificateId":  certificateID,
		"certificateKey": certificateKey,
	})
}

type generateCustomRequest struct {
	StudentName string `json:"studentName" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// GenerateCustom handles POST /api/admin/certificates/generate-custom.
func (h *CertificateHandler) GenerateCustom(c *gin.Context) {
	var req generateCustomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	record, url, err := h.certificates.GenerateCustomCertificate(c.Request.Context(), req.StudentName, req.Title, req.Description)
	if err != nil {
		h.respondIssueError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"certificateId":  record.CertificateID,
		"certificateKey": record.CertificateKey,
		"imageUrl":       url,
	})
}

// CourseEligibility handles GET /api/courses/:id/certificate-eligibility for
// the authenticated student. The first eligible call issues the certificate
// and triggers the unlock email.
func (h *CertificateHandler) CourseEligibility(c *gin.Context) {
	courseID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid course id: %w", err))
		return
	}
	studentID, err := uuid.Parse(middleware.AuthedUserID(c))
	if err != nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated user"))
		return
	}

	status, err := h.certificates.EvaluateCourseEligibility(c.Request.Context(), studentID, courseID)
	if err != nil {
		h.respondIssueError(c, err)
		return
	}
	response.RespondOK(c, status)
}

// InternshipCertificate handles GET /api/internships/applications/:id/certificate.
func (h *CertificateHandler) InternshipCertificate(c *gin.Context) {
	applicationID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid application id: %w", err))
		return
	}

	record, err := h.certificates.GetInternshipCertificate(c.Request.Context(), applicationID)
	if err != nil {
		h.respondIssueError(c, err)
		return
	}
	response.RespondOK(c, record)
}

func (h *CertificateHandler) respondIssueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperrors.ErrIncompleteRecord):
		response.RespondError(c, http.StatusNotFound, "incomplete_record", err)
	case errors.Is(err, apperrors.ErrOwnerNotEligible):
		response.RespondError(c, http.StatusConflict, "not_eligible", err)
	case errors.Is(err, apperrors.ErrAlreadyIssued):
		response.RespondError(c, http.StatusConflict, "already_issued", err)
	case errors.Is(err, apperrors.ErrInvalidArgument):
		response.RespondError(c, http.StatusBadRequest, "bad_request", err)
	default:
		h.log.Error("certificate operation failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "internal", fmt.Errorf("internal error"))
	}
}

func parseCategory(raw string) (types.CertificateCategory, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "course":
		return types.CertificateCategoryCourse, nil
	case "internship":
		return types.CertificateCategoryInternship, nil
	default:
		return "", fmt.Errorf("type must be course or internship: %w", apperrors.ErrInvalidArgument)
	}
}
