package services

import (
	"context"
	"sync"

	"siteworks/internal/config"
	"siteworks/internal/observability"
	"siteworks/internal/services/mailer"
)

// SentEmail is a message captured by TestEmailService
type SentEmail struct {
	To       string
	Subject  string
	Template string
	Body     string
}

// TestEmailService renders messages and keeps them in memory instead of sending them
type TestEmailService struct {
	cfg    *config.Config
	logger *observability.Logger

	mu   sync.Mutex
	sent []SentEmail
	// FailWith, when set, is returned from every SendEmail call
	FailWith error
}

var _ mailer.Mailer = (*TestEmailService)(nil)

// NewTestEmailService creates a new TestEmailService instance
func NewTestEmailService(cfg *config.Config, logger *observability.Logger) *TestEmailService {
	return &TestEmailService{cfg: cfg, logger: logger}
}

// SendEmail renders the template and records the message
func (e *TestEmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) error {
	body, err := RenderEmail(templateName, data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	failWith := e.FailWith
	if failWith == nil {
		e.sent = append(e.sent, SentEmail{To: to, Subject: subject, Template: templateName, Body: body})
	}
	e.mu.Unlock()

	if failWith != nil {
		return failWith
	}
	e.logger.Info(ctx, "TEST MODE: Would send email", map[string]interface{}{
		"to":        to,
		"template":  templateName,
		"subject":   subject,
		"test_mode": true,
	})
	return nil
}

// IsEnabled always reports true so the full notification path runs in tests
func (e *TestEmailService) IsEnabled() bool {
	return true
}

// Sent returns a copy of the captured messages
func (e *TestEmailService) Sent() []SentEmail {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]SentEmail(nil), e.sent...)
}
