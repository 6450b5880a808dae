package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"siteworks/internal/config"
	"siteworks/internal/models"
	"siteworks/internal/observability"
	"siteworks/internal/services/mailer"
	contextutils "siteworks/internal/utils"
)

// NotificationService emails report owners when their report is reviewed.
// Deliveries run in the background; Wait and Shutdown drain them.
type NotificationService struct {
	db      *sql.DB
	cfg     *config.Config
	mailer  mailer.Mailer
	metrics *observability.ReportMetrics
	logger  *observability.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

var _ StatusNotifier = (*NotificationService)(nil)

// NewNotificationServiceWithLogger creates a NotificationService. metrics may be nil.
func NewNotificationServiceWithLogger(db *sql.DB, cfg *config.Config, m mailer.Mailer, metrics *observability.ReportMetrics, logger *observability.Logger) *NotificationService {
	return &NotificationService{db: db, cfg: cfg, mailer: m, metrics: metrics, logger: logger}
}

// NotifyStatusChange queues a status-change email for the report's owner.
// It returns immediately and never reports delivery failures to the caller.
func (n *NotificationService) NotifyStatusChange(ctx context.Context, report *models.Report, remarks string) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.logger.Warn(ctx, "Notification dispatcher is shut down, dropping notification", map[string]interface{}{"report_id": report.ID})
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	snapshot := *report
	detached := context.WithoutCancel(ctx)
	go func() {
		defer n.wg.Done()
		if err := n.deliver(detached, &snapshot, remarks); err != nil {
			n.logger.Error(detached, "Report notification failed", err, map[string]interface{}{
				"report_id": snapshot.ID,
				"user_id":   snapshot.UserID,
			})
		}
	}()
}

type notificationRecipient struct {
	name        string
	email       string
	projectName string
}

func (n *NotificationService) loadRecipient(ctx context.Context, r *models.Report) (*notificationRecipient, error) {
	var rec notificationRecipient
	err := n.db.QueryRowContext(ctx,
		`SELECT u.name, u.email, COALESCE(p.name, '') FROM users u LEFT JOIN projects p ON p.id = $2 WHERE u.id = $1`,
		r.UserID, r.ProjectID).Scan(&rec.name, &rec.email, &rec.projectName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load notification recipient")
	}
	return &rec, nil
}

func notificationSubject(kind models.NotificationKind, code string) string {
	switch kind {
	case models.NotificationReportApproved:
		return fmt.Sprintf("Report %s approved", code)
	case models.NotificationReportRejected:
		return fmt.Sprintf("Report %s requires revision", code)
	default:
		return fmt.Sprintf("Report %s status update", code)
	}
}

func (n *NotificationService) deliver(ctx context.Context, r *models.Report, remarks string) (err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "deliver_status_change",
		observability.AttributeReportID(r.ID), observability.AttributeReportStatus(string(r.Status)))
	defer observability.FinishSpan(span, &err)

	if n.mailer == nil || !n.mailer.IsEnabled() {
		n.logger.Debug(ctx, "Email disabled, skipping report notification", map[string]interface{}{"report_id": r.ID})
		return nil
	}

	rec, err := n.loadRecipient(ctx, r)
	if err != nil {
		return err
	}
	if rec == nil || strings.TrimSpace(rec.email) == "" {
		n.logger.Warn(ctx, "Report owner has no email address, skipping notification", map[string]interface{}{
			"report_id": r.ID,
			"user_id":   r.UserID,
		})
		return nil
	}

	kind := models.NotificationKindFor(r.Status)
	subject := notificationSubject(kind, r.Code)
	data := map[string]interface{}{
		"UserName":    rec.name,
		"ReportCode":  r.Code,
		"ProjectName": rec.projectName,
		"Status":      string(r.Status),
		"Remarks":     remarks,
	}
	if r.RevisionDeadline.Valid {
		data["Deadline"] = r.RevisionDeadline.Time.Format("02/01/2006")
	}
	if n.cfg != nil && n.cfg.Server.AppBaseURL != "" {
		data["ReportURL"] = fmt.Sprintf("%s/reports/%d", strings.TrimRight(n.cfg.Server.AppBaseURL, "/"), r.ID)
	}

	sendErr := n.mailer.SendEmail(ctx, rec.email, subject, string(kind), data)
	status, errMsg := "sent", ""
	if sendErr != nil {
		status, errMsg = "failed", sendErr.Error()
	}
	n.metrics.RecordNotification(ctx, string(kind), sendErr == nil)

	recordErr := n.RecordSentNotification(ctx, r.UserID, string(kind), subject, string(kind), status, errMsg)
	if sendErr != nil {
		if contextutils.GetErrorCode(sendErr) == contextutils.ErrorCodeDelivery {
			return sendErr
		}
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDelivery, contextutils.SeverityError,
			"failed to deliver report notification", rec.email, sendErr)
	}
	return recordErr
}

// SendAlertReminder emails the project owner about a due alert. Unlike status changes it runs
// synchronously so the reminder worker can decide whether to stamp the alert. When nothing
// is sent the error matches ErrDeliverySkipped.
func (n *NotificationService) SendAlertReminder(ctx context.Context, reminder models.AlertReminder) (err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "send_alert_reminder", observability.AttributeUserID(reminder.RecipientID))
	defer observability.FinishSpan(span, &err)

	if n.mailer == nil || !n.mailer.IsEnabled() {
		n.logger.Debug(ctx, "Email disabled, skipping alert reminder", map[string]interface{}{"alert_id": reminder.Alert.ID})
		return contextutils.WrapError(contextutils.ErrDeliverySkipped, "email is disabled")
	}
	if strings.TrimSpace(reminder.RecipientEmail) == "" {
		n.logger.Warn(ctx, "Project owner has no email address, skipping alert reminder", map[string]interface{}{
			"alert_id": reminder.Alert.ID,
			"user_id":  reminder.RecipientID,
		})
		return contextutils.WrapErrorf(contextutils.ErrDeliverySkipped, "user %d has no email address", reminder.RecipientID)
	}

	kind := string(models.NotificationAlertDue)
	subject := fmt.Sprintf("Reminder: %s", reminder.Alert.ProjectName)
	data := map[string]interface{}{
		"UserName":    reminder.RecipientName,
		"ProjectName": reminder.Alert.ProjectName,
		"Description": reminder.Alert.Description,
		"ScheduledAt": reminder.Alert.ScheduledAt.Format("02/01/2006"),
	}
	if n.cfg != nil && n.cfg.Server.AppBaseURL != "" && reminder.Alert.ReportID.Valid {
		data["ReportURL"] = fmt.Sprintf("%s/reports/%d", strings.TrimRight(n.cfg.Server.AppBaseURL, "/"), reminder.Alert.ReportID.Int64)
	}

	sendErr := n.mailer.SendEmail(ctx, reminder.RecipientEmail, subject, kind, data)
	status, errMsg := "sent", ""
	if sendErr != nil {
		status, errMsg = "failed", sendErr.Error()
	}
	n.metrics.RecordNotification(ctx, kind, sendErr == nil)

	recordErr := n.RecordSentNotification(ctx, reminder.RecipientID, kind, subject, kind, status, errMsg)
	if sendErr != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDelivery, contextutils.SeverityError,
			"failed to deliver alert reminder", reminder.RecipientEmail, sendErr)
	}
	return recordErr
}

// RecordSentNotification records a delivery attempt in sent_notifications
func (n *NotificationService) RecordSentNotification(ctx context.Context, userID int, notificationType, subject, templateName, status, errorMessage string) (err error) {
	ctx, span := observability.TraceNotificationFunction(ctx, "record_sent_notification", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	query := `INSERT INTO sent_notifications (user_id, notification_type, subject, template_name, sent_at, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = n.db.ExecContext(ctx, query, userID, notificationType, subject, templateName, time.Now(), status, errorMessage); err != nil {
		n.logger.Error(ctx, "Failed to record sent notification", err, map[string]interface{}{
			"user_id":           userID,
			"notification_type": notificationType,
			"status":            status,
		})
		return contextutils.WrapError(err, "failed to record sent notification")
	}
	return nil
}

// Wait blocks until every queued delivery has finished
func (n *NotificationService) Wait() {
	n.wg.Wait()
}

// Shutdown stops accepting notifications and waits for in-flight ones until ctx is done
func (n *NotificationService) Shutdown(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return contextutils.WrapError(ctx.Err(), "notification dispatcher did not drain")
	}
}
