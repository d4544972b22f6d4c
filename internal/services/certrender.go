package services

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"

	apperrors "github.com/weboryskills/webory-backend/internal/pkg/errors"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
	"github.com/weboryskills/webory-backend/internal/types"
)

const (
	certWidth  = 1600
	certHeight = 1131
)

// CertificateRenderService draws a shareable certificate PNG: recipient,
// subject, issue date, the certificate ID, a faint key watermark, and a QR
// code that resolves to the public verification page.
type CertificateRenderService interface {
	Render(record *types.CertificateRecord) ([]byte, error)
}

type certificateRenderService struct {
	log          *logger.Logger
	publicAppURL string

	titleFace font.Face
	nameFace  font.Face
	bodyFace  font.Face
	smallFace font.Face
}

func NewCertificateRenderService(log *logger.Logger) (CertificateRenderService, error) {
	serviceLog := log.With("service", "CertificateRenderService")

	fontPath := strings.TrimSpace(os.Getenv("CERT_FONT_PATH"))
	if fontPath == "" {
		return nil, fmt.Errorf("Env var CERT_FONT_PATH is empty")
	}
	publicAppURL := strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_APP_URL")), "/")
	if publicAppURL == "" {
		return nil, fmt.Errorf("Env var PUBLIC_APP_URL is empty")
	}

	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read certificate font: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate font: %w", err)
	}
	face := func(size float64) font.Face {
		return truetype.NewFace(parsedFont, &truetype.Options{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
	}

	return &certificateRenderService{
		log:          serviceLog,
		publicAppURL: publicAppURL,
		titleFace:    face(64),
		nameFace:     face(88),
		bodyFace:     face(36),
		smallFace:    face(24),
	}, nil
}

func (cs *certificateRenderService) Render(record *types.CertificateRecord) ([]byte, error) {
	if record == nil || record.CertificateID == "" {
		return nil, fmt.Errorf("record with certificate id required: %w", apperrors.ErrInvalidArgument)
	}

	dc := gg.NewContext(certWidth, certHeight)

	// Background and double border
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.NRGBA{R: 0x1f, G: 0x2a, B: 0x44, A: 0xff})
	dc.SetLineWidth(10)
	dc.DrawRectangle(40, 40, certWidth-80, certHeight-80)
	dc.Stroke()
	dc.SetLineWidth(2)
	dc.DrawRectangle(60, 60, certWidth-120, certHeight-120)
	dc.Stroke()

	cx := float64(certWidth) / 2

	dc.SetFontFace(cs.titleFace)
	dc.SetColor(color.NRGBA{R: 0x1f, G: 0x2a, B: 0x44, A: 0xff})
	dc.DrawStringAnchored(certificateHeading(record.Category), cx, 200, 0.5, 0.5)

	dc.SetFontFace(cs.bodyFace)
	dc.SetColor(color.NRGBA{R: 0x55, G: 0x5f, B: 0x77, A: 0xff})
	dc.DrawStringAnchored("This is to certify that", cx, 330, 0.5, 0.5)

	dc.SetFontFace(cs.nameFace)
	dc.SetColor(color.NRGBA{R: 0x10, G: 0x17, B: 0x2b, A: 0xff})
	dc.DrawStringAnchored(record.StudentName, cx, 450, 0.5, 0.5)

	dc.SetFontFace(cs.bodyFace)
	dc.SetColor(color.NRGBA{R: 0x55, G: 0x5f, B: 0x77, A: 0xff})
	dc.DrawStringAnchored(completionLine(record), cx, 560, 0.5, 0.5)
	dc.DrawStringAnchored(record.Title, cx, 630, 0.5, 0.5)
	dc.DrawStringAnchored("Issued on "+record.IssuedAt.Format("January 2, 2006"), cx, 720, 0.5, 0.5)

	// Faint diagonal key watermark across the middle
	dc.Push()
	dc.SetFontFace(cs.nameFace)
	dc.SetColor(color.NRGBA{R: 0x1f, G: 0x2a, B: 0x44, A: 0x14})
	dc.RotateAbout(gg.Radians(-20), cx, float64(certHeight)/2)
	dc.DrawStringAnchored(record.CertificateKey, cx, float64(certHeight)/2, 0.5, 0.5)
	dc.Pop()

	dc.SetFontFace(cs.smallFace)
	dc.SetColor(color.NRGBA{R: 0x55, G: 0x5f, B: 0x77, A: 0xff})
	dc.DrawStringAnchored("Certificate ID: "+record.CertificateID, 120, certHeight-140, 0, 0.5)
	dc.DrawStringAnchored("Verify at "+cs.publicAppURL+"/verify", 120, certHeight-105, 0, 0.5)

	if err := cs.drawVerifyQR(dc, record.CertificateID); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode certificate PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func (cs *certificateRenderService) drawVerifyQR(dc *gg.Context, certificateID string) error {
	url := fmt.Sprintf("%s/verify/%s", cs.publicAppURL, certificateID)
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("build verification qr code: %w", err)
	}
	img := qr.Image(220)
	dc.DrawImage(img, certWidth-120-220, certHeight-120-220)
	return nil
}

func certificateHeading(category types.CertificateCategory) string {
	switch category {
	case types.CertificateCategoryInternship:
		return "Internship Certificate"
	case types.CertificateCategoryCustom:
		return "Certificate of Achievement"
	default:
		return "Certificate of Completion"
	}
}

func completionLine(record *types.CertificateRecord) string {
	switch record.Category {
	case types.CertificateCategoryInternship:
		if record.Company != "" {
			return "has successfully completed an internship at " + record.Company + ":"
		}
		return "has successfully completed the internship"
	case types.CertificateCategoryCustom:
		return "is recognized for"
	default:
		return "has successfully completed the course"
	}
}
