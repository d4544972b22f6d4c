package services

import (
	"context"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/weboryskills/webory-backend/internal/clients/sendgrid"
	"github.com/weboryskills/webory-backend/internal/pkg/logger"
)

// CertificateMailer sends the one-shot "certificate unlocked" notification.
// Mail failures are the caller's to log and swallow; issuance never depends
// on delivery.
type CertificateMailer interface {
	SendCertificateUnlocked(ctx context.Context, toEmail, toName, subjectTitle, certificateID string) error
}

type certificateMailer struct {
	log          *logger.Logger
	client       sendgrid.Client
	publicAppURL string
}

func NewCertificateMailer(log *logger.Logger, client sendgrid.Client) (CertificateMailer, error) {
	if client == nil {
		return nil, fmt.Errorf("sendgrid client required")
	}
	return &certificateMailer{
		log:          log.With("service", "CertificateMailer"),
		client:       client,
		publicAppURL: strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_APP_URL")), "/"),
	}, nil
}

func (cm *certificateMailer) SendCertificateUnlocked(ctx context.Context, toEmail, toName, subjectTitle, certificateID string) error {
	verifyURL := fmt.Sprintf("%s/verify/%s", cm.publicAppURL, certificateID)

	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p>
<p>Congratulations! You have completed <strong>%s</strong> and your certificate is ready.</p>
<p>Certificate ID: <strong>%s</strong></p>
<p>You can view and share it here: <a href="%s">%s</a></p>`,
		html.EscapeString(toName),
		html.EscapeString(subjectTitle),
		html.EscapeString(certificateID),
		verifyURL, verifyURL,
	)
	plainBody := fmt.Sprintf(
		"Hi %s,\n\nCongratulations! You have completed %s and your certificate is ready.\nCertificate ID: %s\nView it here: %s\n",
		toName, subjectTitle, certificateID, verifyURL,
	)

	err := cm.client.Send(ctx, sendgrid.SendEmailRequest{
		ToEmail:   toEmail,
		ToName:    toName,
		Subject:   "Your certificate is ready",
		HTMLBody:  htmlBody,
		PlainBody: plainBody,
	})
	if err != nil {
		return fmt.Errorf("send certificate unlocked email: %w", err)
	}
	cm.log.Info("certificate unlocked email sent", "certificate_id", certificateID)
	return nil
}
