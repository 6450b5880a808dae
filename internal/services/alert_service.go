package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// AlertServiceInterface lists and resolves scheduled project alerts
type AlertServiceInterface interface {
	ListUpcomingAlerts(ctx context.Context, actor models.Actor, limit int) ([]models.Alert, error)
	ResolveAlert(ctx context.Context, actor models.Actor, id int) (*models.Alert, error)
}

// AlertService reads and updates the alerts table
type AlertService struct {
	db     *sql.DB
	logger *observability.Logger
	now    func() time.Time
}

const alertSelectFields = `a.id, a.project_id, a.report_id, a.description, a.scheduled_at, a.status, a.created_at, p.name`

// NewAlertServiceWithLogger creates an AlertService
func NewAlertServiceWithLogger(db *sql.DB, logger *observability.Logger) *AlertService {
	return &AlertService{db: db, logger: logger, now: time.Now}
}

func scanAlert(row rowScanner, extra ...interface{}) (*models.Alert, error) {
	a := &models.Alert{}
	var status string
	dest := []interface{}{&a.ID, &a.ProjectID, &a.ReportID, &a.Description, &a.ScheduledAt, &status, &a.CreatedAt, &a.ProjectName}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	a.Status = models.AlertStatus(status)
	return a, nil
}

// ListUpcomingAlerts returns pending alerts scheduled at or after now, soonest first.
// Users only see alerts of projects they are responsible for. limit <= 0 means no limit.
func (s *AlertService) ListUpcomingAlerts(ctx context.Context, actor models.Actor, limit int) (result0 []models.Alert, err error) {
	ctx, span := observability.TraceProjectFunction(ctx, "list_upcoming_alerts",
		observability.AttributeActorIsAdmin(actor.IsAdmin()), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	args := []interface{}{s.now()}
	query := fmt.Sprintf(`SELECT %s FROM alerts a JOIN projects p ON p.id = a.project_id
		WHERE a.status = 'pending' AND a.scheduled_at >= $1`, alertSelectFields)
	if !actor.IsAdmin() {
		args = append(args, actor.UserID)
		query += fmt.Sprintf(` AND p.responsible_id = $%d`, len(args))
	}
	query += ` ORDER BY a.scheduled_at, a.id`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list alerts")
	}
	defer func() { _ = rows.Close() }()

	alerts := []models.Alert{}
	for rows.Next() {
		a, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, contextutils.WrapError(scanErr, "failed to scan alert")
		}
		alerts = append(alerts, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating alerts")
	}
	return alerts, nil
}

// ResolveAlert marks an alert resolved. Resolving a resolved alert is a no-op.
func (s *AlertService) ResolveAlert(ctx context.Context, actor models.Actor, id int) (result0 *models.Alert, err error) {
	ctx, span := observability.TraceProjectFunction(ctx, "resolve_alert", attribute.Int("alert.id", id))
	defer observability.FinishSpan(span, &err)

	var responsibleID int
	query := fmt.Sprintf(`SELECT %s, p.responsible_id FROM alerts a JOIN projects p ON p.id = a.project_id WHERE a.id = $1`, alertSelectFields)
	alert, err := scanAlert(s.db.QueryRowContext(ctx, query, id), &responsibleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "alert %d not found", id)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get alert")
	}
	if !actor.Owns(responsibleID) {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "alert belongs to another user's project")
	}
	if alert.Status == models.AlertStatusResolved {
		return alert, nil
	}

	if _, err = s.db.ExecContext(ctx, `UPDATE alerts SET status = 'resolved' WHERE id = $1`, id); err != nil {
		return nil, contextutils.WrapError(err, "failed to resolve alert")
	}
	alert.Status = models.AlertStatusResolved
	s.logger.Info(ctx, "Alert resolved", map[string]interface{}{"alert_id": id, "user_id": actor.UserID})
	return alert, nil
}

// ListDueAlerts returns pending alerts scheduled at or before now that have not been reminded
// yet, joined with the responsible user of the alert's project. Ids in exclude are left out.
func (s *AlertService) ListDueAlerts(ctx context.Context, now time.Time, limit int, exclude []int) (result0 []models.AlertReminder, err error) {
	ctx, span := observability.TraceProjectFunction(ctx, "list_due_alerts", observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf(`SELECT %s, u.id, u.name, u.email FROM alerts a
		JOIN projects p ON p.id = a.project_id
		JOIN users u ON u.id = p.responsible_id
		WHERE a.status = 'pending' AND a.reminded_at IS NULL AND a.scheduled_at <= $1 AND NOT (a.id = ANY($3))
		ORDER BY a.scheduled_at, a.id LIMIT $2`, alertSelectFields)
	skip := make(pq.Int64Array, 0, len(exclude))
	for _, id := range exclude {
		skip = append(skip, int64(id))
	}
	rows, err := s.db.QueryContext(ctx, query, now, limit, skip)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list due alerts")
	}
	defer func() { _ = rows.Close() }()

	reminders := []models.AlertReminder{}
	for rows.Next() {
		var r models.AlertReminder
		a, scanErr := scanAlert(rows, &r.RecipientID, &r.RecipientName, &r.RecipientEmail)
		if scanErr != nil {
			return nil, contextutils.WrapError(scanErr, "failed to scan due alert")
		}
		r.Alert = *a
		reminders = append(reminders, r)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating due alerts")
	}
	return reminders, nil
}

// MarkAlertReminded stamps reminded_at so the alert is not picked up again
func (s *AlertService) MarkAlertReminded(ctx context.Context, id int, at time.Time) (err error) {
	ctx, span := observability.TraceProjectFunction(ctx, "mark_alert_reminded", attribute.Int("alert.id", id))
	defer observability.FinishSpan(span, &err)

	if _, err = s.db.ExecContext(ctx, `UPDATE alerts SET reminded_at = $2 WHERE id = $1 AND reminded_at IS NULL`, id, at); err != nil {
		return contextutils.WrapError(err, "failed to mark alert reminded")
	}
	return nil
}
