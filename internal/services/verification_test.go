package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "github.com/weboryskills/webory-backend/internal/pkg/errors"
	"github.com/weboryskills/webory-backend/internal/types"
)

type fakeExtraction struct {
	result *types.ExtractionResult
	err    error
}

func (f *fakeExtraction) ExtractFromImage(ctx context.Context, img []byte) (*types.ExtractionResult, error) {
	return f.result, f.err
}

func (f *fakeExtraction) ExtractFromText(text string, providerConfidence float64) *types.ExtractionResult {
	return f.result
}

type fakeManipulation struct {
	outcome types.ManipulationOutcome
}

func (f *fakeManipulation) Detect(ctx context.Context, img []byte) types.ManipulationOutcome {
	return f.outcome
}

type fakeLookup struct {
	records map[string]*types.CertificateRecord
	err     error
}

func (f *fakeLookup) Lookup(ctx context.Context, certificateID string) (*types.CertificateRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if rec, ok := f.records[certificateID]; ok {
		return rec, nil
	}
	return nil, fmt.Errorf("certificate %s: %w", certificateID, apperrors.ErrNotFound)
}

func (f *fakeLookup) ExistsAnywhere(ctx context.Context, certificateID string) (bool, error) {
	_, ok := f.records[certificateID]
	return ok, nil
}

func (f *fakeLookup) InvalidateCache(ctx context.Context, certificateID string) {}

func newTestVerification(t *testing.T, extraction ExtractionService, manipulation ManipulationService, lookup LookupService) VerificationService {
	t.Helper()
	svc, err := NewVerificationService(newTestLogger(t), extraction, manipulation, lookup, newTestVerdict(t))
	if err != nil {
		t.Fatalf("init verification service: %v", err)
	}
	return svc
}

func TestVerifyImageHappyPath(t *testing.T) {
	record := sampleRecord()
	extraction := &fakeExtraction{result: &types.ExtractionResult{
		CertificateID: record.CertificateID,
		StudentName:   record.StudentName,
		Title:         record.Title,
		Confidence:    91,
	}}
	lookup := &fakeLookup{records: map[string]*types.CertificateRecord{record.CertificateID: record}}

	svc := newTestVerification(t, extraction, &fakeManipulation{outcome: cleanManipulation()}, lookup)
	v, err := svc.VerifyImage(t.Context(), []byte{0x1})
	if err != nil {
		t.Fatalf("VerifyImage: %v", err)
	}
	if v.Verdict != types.VerdictAuthentic {
		t.Fatalf("verdict = %s, want AUTHENTIC (%s)", v.Verdict, v.Message)
	}
	if v.Record == nil || v.Record.CertificateID != record.CertificateID {
		t.Error("matched record should be attached to the verdict")
	}
}

func TestVerifyImageUnknownID(t *testing.T) {
	extraction := &fakeExtraction{result: &types.ExtractionResult{
		CertificateID: "FAKE-000000-99999",
		Confidence:    85,
	}}

	svc := newTestVerification(t, extraction, &fakeManipulation{outcome: cleanManipulation()}, &fakeLookup{})
	v, err := svc.VerifyImage(t.Context(), []byte{0x1})
	if err != nil {
		t.Fatalf("VerifyImage: %v", err)
	}
	if v.Verdict != types.VerdictInvalid {
		t.Fatalf("verdict = %s, want INVALID", v.Verdict)
	}
}

func TestVerifyImageProviderFailure(t *testing.T) {
	extraction := &fakeExtraction{err: fmt.Errorf("vision: %w", apperrors.ErrProviderUnavailable)}

	svc := newTestVerification(t, extraction, &fakeManipulation{outcome: cleanManipulation()}, &fakeLookup{})
	_, err := svc.VerifyImage(t.Context(), []byte{0x1})
	if !errors.Is(err, apperrors.ErrProviderUnavailable) {
		t.Fatalf("want ErrProviderUnavailable, got %v", err)
	}
}

func TestVerifyImageDegradedManipulation(t *testing.T) {
	record := sampleRecord()
	extraction := &fakeExtraction{result: &types.ExtractionResult{
		CertificateID: record.CertificateID,
		StudentName:   record.StudentName,
		Title:         record.Title,
		Confidence:    90,
	}}
	lookup := &fakeLookup{records: map[string]*types.CertificateRecord{record.CertificateID: record}}
	degraded := &fakeManipulation{outcome: types.ManipulationDegraded("detector offline")}

	svc := newTestVerification(t, extraction, degraded, lookup)
	v, err := svc.VerifyImage(t.Context(), []byte{0x1})
	if err != nil {
		t.Fatalf("a degraded manipulation check must not fail the pipeline: %v", err)
	}
	if v.Verdict != types.VerdictAuthentic {
		t.Fatalf("verdict = %s, want AUTHENTIC", v.Verdict)
	}
}

func TestVerifyImageIncompleteRecordTolerated(t *testing.T) {
	extraction := &fakeExtraction{result: &types.ExtractionResult{
		CertificateID: "FSWD-A1B2C3-00123",
		StudentName:   "Asha Verma",
		Confidence:    88,
	}}
	lookup := &fakeLookup{err: fmt.Errorf("enrollment references missing user: %w", apperrors.ErrIncompleteRecord)}

	svc := newTestVerification(t, extraction, &fakeManipulation{outcome: cleanManipulation()}, lookup)
	v, err := svc.VerifyImage(t.Context(), []byte{0x1})
	if err != nil {
		t.Fatalf("incomplete record must be tolerated on the image path: %v", err)
	}
	if v.Verdict != types.VerdictInvalid {
		t.Fatalf("verdict = %s, want INVALID", v.Verdict)
	}
}

func TestVerifyImageEmptyInput(t *testing.T) {
	svc := newTestVerification(t, &fakeExtraction{result: &types.ExtractionResult{}}, &fakeManipulation{outcome: cleanManipulation()}, &fakeLookup{})
	_, err := svc.VerifyImage(t.Context(), nil)
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument for empty input, got %v", err)
	}
}
