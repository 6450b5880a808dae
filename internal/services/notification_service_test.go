package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"siteworks/internal/models"
	contextutils "siteworks/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func rejectedReport() *models.Report {
	return &models.Report{
		ID:               12,
		ProjectID:        10,
		UserID:           2,
		Code:             "ELP-2025-002-v1",
		Status:           models.ReportStatusRejected,
		RevisionDeadline: sql.NullTime{Time: time.Date(2025, 3, 19, 9, 30, 0, 0, time.UTC), Valid: true},
	}
}

func expectRecipient(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT u.name, u.email, (.+) FROM users u LEFT JOIN projects p`).
		WithArgs(2, 10).
		WillReturnRows(sqlmock.NewRows([]string{"name", "email", "project"}).AddRow("Ana", "ana@example.com", "Commercial Building"))
}

func TestNotificationService_DeliversRejection(t *testing.T) {
	db, sqlMock := newMockDB(t)
	cfg := newTestConfig(t)
	cfg.Server.AppBaseURL = "https://reports.example.com/"
	mailer := NewTestEmailService(cfg, newTestLogger())
	service := NewNotificationServiceWithLogger(db, cfg, mailer, nil, newTestLogger())

	expectRecipient(sqlMock)
	sqlMock.ExpectExec(`INSERT INTO sent_notifications`).
		WithArgs(2, "report_rejected", "Report ELP-2025-002-v1 requires revision", "report_rejected", sqlmock.AnyArg(), "sent", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	service.NotifyStatusChange(context.Background(), rejectedReport(), "missing PPE")
	service.Wait()

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@example.com", sent[0].To)
	assert.Equal(t, "report_rejected", sent[0].Template)
	assert.Contains(t, sent[0].Body, "missing PPE")
	assert.Contains(t, sent[0].Body, "19/03/2025")
	assert.Contains(t, sent[0].Body, "https://reports.example.com/reports/12")
}

func TestNotificationService_DeliveryFailureIsRecorded(t *testing.T) {
	db, sqlMock := newMockDB(t)
	m := new(MockMailer)
	m.On("IsEnabled").Return(true)
	m.On("SendEmail", mock.Anything, "ana@example.com", "Report ELP-2025-002-v1 approved", "report_approved", mock.Anything).
		Return(errors.New("connection refused"))
	service := NewNotificationServiceWithLogger(db, newTestConfig(t), m, nil, newTestLogger())

	expectRecipient(sqlMock)
	sqlMock.ExpectExec(`INSERT INTO sent_notifications`).
		WithArgs(2, "report_approved", sqlmock.AnyArg(), "report_approved", sqlmock.AnyArg(), "failed", "connection refused").
		WillReturnResult(sqlmock.NewResult(1, 1))

	r := rejectedReport()
	r.Status = models.ReportStatusApproved
	r.RevisionDeadline = sql.NullTime{}

	err := service.deliver(context.Background(), r, "")
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeDelivery, contextutils.GetErrorCode(err))
	m.AssertExpectations(t)
}

func TestNotificationService_SkipsWhenDisabled(t *testing.T) {
	db, _ := newMockDB(t)
	m := new(MockMailer)
	m.On("IsEnabled").Return(false)
	service := NewNotificationServiceWithLogger(db, newTestConfig(t), m, nil, newTestLogger())

	service.NotifyStatusChange(context.Background(), rejectedReport(), "missing PPE")
	service.Wait()

	m.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_MissingRecipient(t *testing.T) {
	db, sqlMock := newMockDB(t)
	mailer := NewTestEmailService(newTestConfig(t), newTestLogger())
	service := NewNotificationServiceWithLogger(db, newTestConfig(t), mailer, nil, newTestLogger())

	sqlMock.ExpectQuery(`FROM users u`).WithArgs(2, 10).WillReturnRows(sqlmock.NewRows([]string{"name", "email", "project"}))

	require.NoError(t, service.deliver(context.Background(), rejectedReport(), "x"))
	assert.Empty(t, mailer.Sent())
}

func TestNotificationService_CancelledCallerStillDelivers(t *testing.T) {
	db, sqlMock := newMockDB(t)
	mailer := NewTestEmailService(newTestConfig(t), newTestLogger())
	service := NewNotificationServiceWithLogger(db, newTestConfig(t), mailer, nil, newTestLogger())

	expectRecipient(sqlMock)
	sqlMock.ExpectExec(`INSERT INTO sent_notifications`).WillReturnResult(sqlmock.NewResult(1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	service.NotifyStatusChange(ctx, rejectedReport(), "missing PPE")
	cancel()
	service.Wait()

	assert.Len(t, mailer.Sent(), 1)
}

func TestNotificationService_Shutdown(t *testing.T) {
	db, _ := newMockDB(t)
	mailer := NewTestEmailService(newTestConfig(t), newTestLogger())
	service := NewNotificationServiceWithLogger(db, newTestConfig(t), mailer, nil, newTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, service.Shutdown(ctx))

	service.NotifyStatusChange(context.Background(), rejectedReport(), "late")
	service.Wait()
	assert.Empty(t, mailer.Sent())
}

func dueReminder() models.AlertReminder {
	return models.AlertReminder{
		Alert: models.Alert{
			ID:          55,
			ProjectID:   10,
			ReportID:    sql.NullInt64{Int64: 12, Valid: true},
			Description: "Revision of report ELP-2025-002-v1 due: missing PPE",
			ScheduledAt: time.Date(2025, 3, 19, 9, 30, 0, 0, time.UTC),
			Status:      models.AlertStatusPending,
			ProjectName: "Commercial Building",
		},
		RecipientID:    2,
		RecipientName:  "Ana",
		RecipientEmail: "ana@example.com",
	}
}

func TestNotificationService_SendAlertReminder(t *testing.T) {
	db, sqlMock := newMockDB(t)
	cfg := newTestConfig(t)
	cfg.Server.AppBaseURL = "https://reports.example.com"
	mailer := NewTestEmailService(cfg, newTestLogger())
	service := NewNotificationServiceWithLogger(db, cfg, mailer, nil, newTestLogger())

	sqlMock.ExpectExec(`INSERT INTO sent_notifications`).
		WithArgs(2, "alert_due", "Reminder: Commercial Building", "alert_due", sqlmock.AnyArg(), "sent", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, service.SendAlertReminder(context.Background(), dueReminder()))

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@example.com", sent[0].To)
	assert.Contains(t, sent[0].Body, "missing PPE")
	assert.Contains(t, sent[0].Body, "19/03/2025")
	assert.Contains(t, sent[0].Body, "https://reports.example.com/reports/12")
}

func TestNotificationService_SendAlertReminder_Failure(t *testing.T) {
	db, sqlMock := newMockDB(t)
	mailer := NewTestEmailService(newTestConfig(t), newTestLogger())
	mailer.FailWith = errors.New("connection refused")
	service := NewNotificationServiceWithLogger(db, newTestConfig(t), mailer, nil, newTestLogger())

	sqlMock.ExpectExec(`INSERT INTO sent_notifications`).
		WithArgs(2, "alert_due", sqlmock.AnyArg(), "alert_due", sqlmock.AnyArg(), "failed", "connection refused").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := service.SendAlertReminder(context.Background(), dueReminder())
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeDelivery, contextutils.GetErrorCode(err))
}

func TestNotificationService_SendAlertReminder_NoEmail(t *testing.T) {
	db, _ := newMockDB(t)
	mailer := NewTestEmailService(newTestConfig(t), newTestLogger())
	service := NewNotificationServiceWithLogger(db, newTestConfig(t), mailer, nil, newTestLogger())

	r := dueReminder()
	r.RecipientEmail = " "
	err := service.SendAlertReminder(context.Background(), r)
	require.Error(t, err)
	assert.ErrorIs(t, err, contextutils.ErrDeliverySkipped)
	assert.Empty(t, mailer.Sent())
}

func TestNotificationService_SendAlertReminder_EmailDisabled(t *testing.T) {
	db, sqlMock := newMockDB(t)
	cfg := newTestConfig(t)
	cfg.Email.Enabled = false
	service := NewNotificationServiceWithLogger(db, cfg, NewEmailService(cfg, newTestLogger()), nil, newTestLogger())

	err := service.SendAlertReminder(context.Background(), dueReminder())
	require.Error(t, err)
	assert.ErrorIs(t, err, contextutils.ErrDeliverySkipped)
	assert.False(t, errors.Is(err, contextutils.ErrDelivery))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
