package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/weboryskills/webory-backend/internal/pkg/errors"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/services"
)

// maxCertificateImageBytes caps OCR uploads at 10 MiB.
const maxCertificateImageBytes = 10 << 20

type VerifyHandler struct {
	log          *logger.Logger
	verification services.VerificationService
}

func NewVerifyHandler(log *logger.Logger, verification services.VerificationService) *VerifyHandler {
	return &VerifyHandler{
		log:          log.With("handler", "VerifyHandler"),
		verification: verification,
	}
}

// VerifyByID is the deterministic public lookup: GET /api/verify-certificate/:id.
func (h *VerifyHandler) VerifyByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": "certificate id is required"})
		return
	}

	record, err := h.verification.VerifyByID(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"valid": true,
			"type":  record.Category,
			"data":  record,
		})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"valid": false, "error": "certificate not found"})
	case errors.Is(err, apperrors.ErrIncompleteRecord):
		c.JSON(http.StatusNotFound, gin.H{"valid": false, "error": "referenced records no longer exist"})
	case errors.Is(err, apperrors.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": "certificate id is required"})
	default:
		h.log.Error("certificate lookup failed", "certificate_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"valid": false, "error": "internal error"})
	}
}

// VerifyOCR runs the image verification pipeline on an uploaded photo:
// POST /api/verify-certificate/ocr, multipart field "certificate".
//
// Internal processing failures respond 200 with success:false so the client
// can always render the outcome; only bad input gets a 4xx.
func (h *VerifyHandler) VerifyOCR(c *gin.Context) {
	fileHeader, err := c.FormFile("certificate")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "multipart field 'certificate' with an image is required",
		})
		return
	}
	if fileHeader.Size > maxCertificateImageBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": fmt.Sprintf("image exceeds the %d MB limit", maxCertificateImageBytes>>20),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "could not read uploaded file"})
		return
	}
	defer file.Close()
	img, err := io.ReadAll(io.LimitReader(file, maxCertificateImageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "could not read uploaded file"})
		return
	}

	verdict, err := h.verification.VerifyImage(c.Request.Context(), img)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "uploaded image is empty"})
			return
		}
		h.log.Error("image verification failed", "error", err)
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": "certificate image could not be processed",
			"detail":  err.Error(),
		})
		return
	}

	resp := gin.H{
		"success":       true,
		"verdict":       verdict.Verdict,
		"message":       verdict.Message,
		"extractedData": verdict.Extraction,
	}
	if verdict.Record != nil {
		resp["databaseData"] = verdict.Record
		resp["certificateType"] = verdict.CertificateType
	}
	if verdict.Validation != nil {
		resp["validation"] = verdict.Validation
	}
	if verdict.Manipulation != nil {
		resp["manipulationCheck"] = verdict.Manipulation
	}
	c.JSON(http.StatusOK, resp)
}
