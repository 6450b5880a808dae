package services

import (
	"context"

	"siteworks/internal/config"
	"siteworks/internal/observability"
	"siteworks/internal/services/mailer"
)

// CreateEmailService picks the mail transport for the notification
// dispatcher. Test configs capture messages in memory.
func CreateEmailService(cfg *config.Config, logger *observability.Logger) mailer.Mailer {
	ctx := context.Background()
	if cfg.IsTest {
		logger.Info(ctx, "Using in-memory email capture", map[string]interface{}{"test_mode": true})
		return NewTestEmailService(cfg, logger)
	}

	svc := NewEmailService(cfg, logger)
	switch {
	case cfg.Email.Enabled && !svc.IsEnabled():
		logger.Warn(ctx, "Email enabled without an SMTP host, notifications will not be sent", nil)
	case svc.IsEnabled():
		logger.Info(ctx, "SMTP notifications enabled", map[string]interface{}{
			"smtp_host": cfg.Email.SMTP.Host,
			"smtp_port": cfg.Email.SMTP.Port,
		})
	}
	return svc
}
