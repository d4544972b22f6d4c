package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/weboryskills/webory-backend/internal/pkg/errors"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/types"
)

type fakeVerification struct {
	verdict *types.VerificationVerdict
	record  *types.CertificateRecord
	err     error
}

func (f *fakeVerification) VerifyImage(ctx context.Context, img []byte) (*types.VerificationVerdict, error) {
	return f.verdict, f.err
}

func (f *fakeVerification) VerifyByID(ctx context.Context, certificateID string) (*types.CertificateRecord, error) {
	return f.record, f.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func newVerifyRouter(t *testing.T, fake *fakeVerification) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewVerifyHandler(testLogger(t), fake)
	r := gin.New()
	r.GET("/api/verify-certificate/:id", h.VerifyByID)
	r.POST("/api/verify-certificate/ocr", h.VerifyOCR)
	return r
}

func storedRecord() *types.CertificateRecord {
	return &types.CertificateRecord{
		Category:      types.CertificateCategoryCourse,
		StudentName:   "Asha Verma",
		Title:         "Full Stack Web Development",
		IssuedAt:      time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		CertificateID: "FSWD-A1B2C3-00123",
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestVerifyByIDFound(t *testing.T) {
	r := newVerifyRouter(t, &fakeVerification{record: storedRecord()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/verify-certificate/FSWD-A1B2C3-00123", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["valid"] != true {
		t.Errorf("valid = %v, want true", body["valid"])
	}
	if body["type"] != "course" {
		t.Errorf("type = %v, want course", body["type"])
	}
}

func TestVerifyByIDErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", fmt.Errorf("no store holds it: %w", apperrors.ErrNotFound), http.StatusNotFound},
		{"dangling reference", fmt.Errorf("user gone: %w", apperrors.ErrIncompleteRecord), http.StatusNotFound},
		{"invalid argument", fmt.Errorf("blank: %w", apperrors.ErrInvalidArgument), http.StatusBadRequest},
		{"storage failure", fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newVerifyRouter(t, &fakeVerification{err: tc.err})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/verify-certificate/SOME-ID-123", nil)
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.wantStatus, w.Body.String())
			}
			body := decodeBody(t, w)
			if body["valid"] != false {
				t.Errorf("valid = %v, want false", body["valid"])
			}
		})
	}
}

func multipartImage(t *testing.T, field string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "certificate.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestVerifyOCRSuccess(t *testing.T) {
	verdict := &types.VerificationVerdict{
		Verdict: types.VerdictAuthentic,
		Message: "Certificate verified successfully.",
		Extraction: &types.ExtractionResult{
			CertificateID: "FSWD-A1B2C3-00123",
			Confidence:    91,
		},
		Record:          storedRecord(),
		CertificateType: types.CertificateCategoryCourse,
	}
	r := newVerifyRouter(t, &fakeVerification{verdict: verdict})

	body, contentType := multipartImage(t, "certificate", []byte{0x89, 0x50, 0x4e, 0x47})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/verify-certificate/ocr", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	if resp["success"] != true {
		t.Errorf("success = %v, want true", resp["success"])
	}
	if resp["verdict"] != "AUTHENTIC" {
		t.Errorf("verdict = %v, want AUTHENTIC", resp["verdict"])
	}
	if resp["databaseData"] == nil {
		t.Error("matched record should be included")
	}
}

func TestVerifyOCRMissingFile(t *testing.T) {
	r := newVerifyRouter(t, &fakeVerification{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/verify-certificate/ocr", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestVerifyOCRWrongFieldName(t *testing.T) {
	r := newVerifyRouter(t, &fakeVerification{})

	body, contentType := multipartImage(t, "image", []byte{0x1})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/verify-certificate/ocr", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// Internal processing failures keep the 200 contract so clients always get a
// renderable outcome body.
func TestVerifyOCRPipelineFailureReturns200(t *testing.T) {
	r := newVerifyRouter(t, &fakeVerification{err: fmt.Errorf("vision unreachable: %w", apperrors.ErrProviderUnavailable)})

	body, contentType := multipartImage(t, "certificate", []byte{0x1})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/verify-certificate/ocr", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with success:false", w.Code)
	}
	resp := decodeBody(t, w)
	if resp["success"] != false {
		t.Errorf("success = %v, want false", resp["success"])
	}
	if resp["detail"] == nil || resp["detail"] == "" {
		t.Error("failure detail should be included")
	}
}
