package services

import (
	"testing"

	"siteworks/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestCreateEmailService(t *testing.T) {
	smtpHost := config.SMTPConfig{Host: "smtp.example.com"}

	tests := []struct {
		name        string
		cfg         *config.Config
		wantCapture bool
		wantEnabled bool
	}{
		{"test config captures in memory", &config.Config{IsTest: true}, true, true},
		{"smtp configured", &config.Config{Email: config.EmailConfig{Enabled: true, SMTP: smtpHost}}, false, true},
		{"enabled without host", &config.Config{Email: config.EmailConfig{Enabled: true}}, false, false},
		{"host but disabled", &config.Config{Email: config.EmailConfig{SMTP: smtpHost}}, false, false},
		{"zero config", &config.Config{}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := CreateEmailService(tt.cfg, newTestLogger())

			_, captured := svc.(*TestEmailService)
			assert.Equal(t, tt.wantCapture, captured)
			if !tt.wantCapture {
				assert.IsType(t, &EmailService{}, svc)
			}
			assert.Equal(t, tt.wantEnabled, svc.IsEnabled())
		})
	}
}
