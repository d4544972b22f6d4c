package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/weboryskills/webory-backend/internal/pkg/errors"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/types"
)

// VerificationService runs the image verification pipeline. Extraction and
// manipulation detection run concurrently; the record lookup needs the
// extracted ID and runs after. Nothing about a request is persisted.
type VerificationService interface {
	VerifyImage(ctx context.Context, img []byte) (*types.VerificationVerdict, error)
	VerifyByID(ctx context.Context, certificateID string) (*types.CertificateRecord, error)
}

type verificationService struct {
	log          *logger.Logger
	extraction   ExtractionService
	manipulation ManipulationService
	lookup       LookupService
	verdict      VerdictService
}

func NewVerificationService(
	log *logger.Logger,
	extraction ExtractionService,
	manipulation ManipulationService,
	lookup LookupService,
	verdict VerdictService,
) (VerificationService, error) {
	if extraction == nil || manipulation == nil || lookup == nil || verdict == nil {
		return nil, fmt.Errorf("all pipeline stages required")
	}
	return &verificationService{
		log:          log.With("service", "VerificationService"),
		extraction:   extraction,
		manipulation: manipulation,
		lookup:       lookup,
		verdict:      verdict,
	}, nil
}

func (vs *verificationService) VerifyImage(ctx context.Context, img []byte) (*types.VerificationVerdict, error) {
	if len(img) == 0 {
		return nil, fmt.Errorf("empty image: %w", apperrors.ErrInvalidArgument)
	}

	var (
		extraction *types.ExtractionResult
		outcome    types.ManipulationOutcome
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := vs.extraction.ExtractFromImage(gctx, img)
		if err != nil {
			return err
		}
		extraction = res
		return nil
	})
	g.Go(func() error {
		// Detect never fails; a broken detector degrades its own outcome.
		outcome = vs.manipulation.Detect(gctx, img)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ocr extraction: %w", err)
	}

	var record *types.CertificateRecord
	if extraction.CertificateID != "" {
		rec, err := vs.lookup.Lookup(ctx, extraction.CertificateID)
		switch {
		case err == nil:
			record = rec
		case errors.Is(err, apperrors.ErrNotFound):
			// no record, the verdict handles it
		case errors.Is(err, apperrors.ErrIncompleteRecord):
			vs.log.Warn("extracted id points at an incomplete record", "certificate_id", extraction.CertificateID)
		default:
			return nil, fmt.Errorf("record lookup: %w", err)
		}
	}

	verdict := vs.verdict.Synthesize(extraction, record, outcome)
	vs.log.Info("image verification finished",
		"verdict", verdict.Verdict,
		"certificate_id", extraction.CertificateID)
	return verdict, nil
}

// VerifyByID is the deterministic path: a straight store lookup with no
// synthesis and no heuristics.
func (vs *verificationService) VerifyByID(ctx context.Context, certificateID string) (*types.CertificateRecord, error) {
	return vs.lookup.Lookup(ctx, certificateID)
}
