package app

import (
	"os"
	"strings"

	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/services"
)

type Services struct {
	Lookup       services.LookupService
	Issuer       services.IssuerService
	Extraction   services.ExtractionService
	Manipulation services.ManipulationService
	Verdict      services.VerdictService
	Verification services.VerificationService
	Certificate  services.CertificateService
}

func wireServices(log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")

	lookup, err := services.NewLookupService(log, c.Cache,
		services.NewCourseSource(r.Enrollment, r.User, r.Course),
		services.NewInternshipSource(r.Application, r.User, r.Internship),
		services.NewCustomSource(r.CustomCert),
	)
	if err != nil {
		return Services{}, err
	}

	issuer, err := services.NewIssuerService(log,
		services.IssuerConfig{MaxIDAttempts: cfg.MaxIDAttempts},
		r.Enrollment, r.Application, r.CustomCert, r.Course, r.Internship, lookup)
	if err != nil {
		return Services{}, err
	}

	extraction, err := services.NewExtractionService(log, services.NewGCPVisionProvider(c.Vision))
	if err != nil {
		return Services{}, err
	}

	manipulation, err := services.NewManipulationService(log, services.ManipulationConfig{
		MinDimension:     cfg.MinImageDimension,
		SimilarityCutoff: cfg.TemplateSimilarityCutoff,
		TemplateKey:      cfg.TemplateKey,
	}, c.Bucket)
	if err != nil {
		return Services{}, err
	}

	verdict, err := services.NewVerdictService(log, services.VerdictConfig{
		MinExtractionConfidence: cfg.MinExtractionConfidence,
		NameSimilarity:          cfg.NameSimilarity,
		TitleSimilarity:         cfg.TitleSimilarity,
	})
	if err != nil {
		return Services{}, err
	}

	verification, err := services.NewVerificationService(log, extraction, manipulation, lookup, verdict)
	if err != nil {
		return Services{}, err
	}

	// Rendering needs a font on disk; skip it (and the PNG upload) when none
	// is configured.
	var render services.CertificateRenderService
	if strings.TrimSpace(os.Getenv("CERT_FONT_PATH")) != "" {
		render, err = services.NewCertificateRenderService(log)
		if err != nil {
			return Services{}, err
		}
	}

	var mailer services.CertificateMailer
	if c.SendGrid != nil {
		mailer, err = services.NewCertificateMailer(log, c.SendGrid)
		if err != nil {
			return Services{}, err
		}
	}

	certificate, err := services.NewCertificateService(log, issuer, render, mailer, c.Bucket,
		r.Enrollment, r.Application, r.User, r.Course, r.Internship)
	if err != nil {
		return Services{}, err
	}

	return Services{
		Lookup:       lookup,
		Issuer:       issuer,
		Extraction:   extraction,
		Manipulation: manipulation,
		Verdict:      verdict,
		Verification: verification,
		Certificate:  certificate,
	}, nil
}
