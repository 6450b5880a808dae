package services

import (
	"context"
	"embed"
	"html/template"
	"strings"

	"siteworks/internal/config"
	"siteworks/internal/models"
	"siteworks/internal/observability"
	"siteworks/internal/services/mailer"
	contextutils "siteworks/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/mail.v2"
)

//go:embed templates/email/*.html
var emailFS embed.FS

const emailLayoutName = "layout.html"

var emailTemplates = mustParseEmailTemplates(
	models.NotificationReportApproved,
	models.NotificationReportRejected,
	models.NotificationReportStatus,
	models.NotificationAlertDue,
)

// mustParseEmailTemplates pairs the shared layout with one body file per kind
func mustParseEmailTemplates(kinds ...models.NotificationKind) map[string]*template.Template {
	out := make(map[string]*template.Template, len(kinds))
	for _, kind := range kinds {
		out[string(kind)] = template.Must(template.ParseFS(emailFS,
			"templates/email/"+emailLayoutName,
			"templates/email/"+string(kind)+".html",
		))
	}
	return out
}

// EmailService delivers notification mail over SMTP
type EmailService struct {
	smtp    config.SMTPConfig
	enabled bool
	logger  *observability.Logger
	// deliver hands a composed message to the transport; nil when email is off
	deliver func(*mail.Message) error
}

var _ mailer.Mailer = (*EmailService)(nil)

// NewEmailService creates an EmailService. No dialer is built when email is disabled.
func NewEmailService(cfg *config.Config, logger *observability.Logger) *EmailService {
	s := &EmailService{
		smtp:    cfg.Email.SMTP,
		enabled: cfg.Email.Enabled && cfg.Email.SMTP.Host != "",
		logger:  logger,
	}
	if s.enabled {
		dialer := mail.NewDialer(s.smtp.Host, s.smtp.Port, s.smtp.Username, s.smtp.Password)
		s.deliver = func(m *mail.Message) error { return dialer.DialAndSend(m) }
	}
	return s
}

// IsEnabled reports whether messages leave the process
func (e *EmailService) IsEnabled() bool {
	return e.enabled
}

// SendEmail renders templateName and sends it to a single recipient.
// Transport failures are returned as DELIVERY_ERROR.
func (e *EmailService) SendEmail(ctx context.Context, to, subject, templateName string, data map[string]interface{}) (err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "send_email",
		attribute.String("email.to", to),
		attribute.String("email.template", templateName),
	)
	defer observability.FinishSpan(span, &err)

	fields := map[string]interface{}{"to": to, "template": templateName}
	if !e.enabled {
		e.logger.Debug(ctx, "Email disabled, message dropped", fields)
		return nil
	}
	if e.deliver == nil {
		return contextutils.ErrorWithContextf("email transport is not configured")
	}

	body, err := RenderEmail(templateName, data)
	if err != nil {
		return err
	}

	if err = e.deliver(e.compose(to, subject, body)); err != nil {
		e.logger.Error(ctx, "Failed to send email", err, fields, map[string]interface{}{"subject": subject})
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDelivery, contextutils.SeverityError,
			"failed to send email", to, err)
	}

	e.logger.Info(ctx, "Email sent", fields)
	return nil
}

func (e *EmailService) compose(to, subject, body string) *mail.Message {
	m := mail.NewMessage()
	m.SetAddressHeader("From", e.smtp.FromAddress, e.smtp.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m
}

// RenderEmail executes the named notification template
func RenderEmail(templateName string, data map[string]interface{}) (string, error) {
	tmpl, ok := emailTemplates[templateName]
	if !ok {
		return "", contextutils.ErrorWithContextf("unknown email template: %s", templateName)
	}
	var buf strings.Builder
	if err := tmpl.ExecuteTemplate(&buf, emailLayoutName, data); err != nil {
		return "", contextutils.WrapErrorf(err, "render email template %s", templateName)
	}
	return buf.String(), nil
}
