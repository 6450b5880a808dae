package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"siteworks/internal/config"
	"siteworks/internal/events"
	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"
)

// ReportServiceInterface is the report lifecycle: creation, review and resubmission
type ReportServiceInterface interface {
	CreateReport(ctx context.Context, actor models.Actor, in models.ReportInput) (*models.Report, error)
	GetReport(ctx context.Context, actor models.Actor, id int) (*models.Report, error)
	ListReports(ctx context.Context, actor models.Actor, filter models.ReportFilter) ([]models.Report, error)
	UpdateReport(ctx context.Context, actor models.Actor, id int, in models.ReportInput) (*models.Report, error)
	ApproveReport(ctx context.Context, actor models.Actor, id int, remarks string) (*models.Report, error)
	RejectReport(ctx context.Context, actor models.Actor, id int, in models.RejectInput) (*models.Report, error)
	GetApprovalHistory(ctx context.Context, actor models.Actor, id int) ([]models.ApprovalEntry, error)
	DeleteReport(ctx context.Context, actor models.Actor, id int) error
}

// StatusNotifier is told about approvals and rejections after they commit
type StatusNotifier interface {
	NotifyStatusChange(ctx context.Context, report *models.Report, remarks string)
}

// ReportService owns report status transitions and their side effects
type ReportService struct {
	db       *sql.DB
	cfg      *config.Config
	notifier StatusNotifier
	events   events.Publisher
	files    FileStore
	docs     FileStore
	metrics  *observability.ReportMetrics
	logger   *observability.Logger
	now      func() time.Time
}

const reportSelectFields = `r.id, r.project_id, r.user_id, r.sequence_number, r.code, r.version, r.report_date, r.activities,
	r.checklist_id, r.checklist, r.status, r.approver_id, r.reviewed_at, r.admin_remarks, r.revision_deadline,
	r.latitude, r.longitude, r.pdf_path, r.created_at, r.updated_at`

// NewReportServiceWithLogger creates a ReportService. notifier, publisher, files and metrics are optional.
func NewReportServiceWithLogger(db *sql.DB, cfg *config.Config, notifier StatusNotifier, publisher events.Publisher,
	files FileStore, metrics *observability.ReportMetrics, logger *observability.Logger,
) *ReportService {
	return &ReportService{
		db:       db,
		cfg:      cfg,
		notifier: notifier,
		events:   publisher,
		files:    files,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// WithDocumentStore sets where rendered PDFs live so deletes can remove them
func (s *ReportService) WithDocumentStore(docs FileStore) *ReportService {
	s.docs = docs
	return s
}

// WithClock replaces the time source
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

func scanReport(row rowScanner, extra ...interface{}) (*models.Report, error) {
	r := &models.Report{}
	var status string
	dest := []interface{}{
		&r.ID, &r.ProjectID, &r.UserID, &r.SequenceNumber, &r.Code, &r.Version, &r.ReportDate, &r.Activities,
		&r.ChecklistID, &r.Checklist, &status, &r.ApproverID, &r.ReviewedAt, &r.AdminRemarks, &r.RevisionDeadline,
		&r.Latitude, &r.Longitude, &r.PDFPath, &r.CreatedAt, &r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	r.Status = models.ReportStatus(status)
	return r, nil
}

func (s *ReportService) publish(evt events.Event) {
	if s.events != nil {
		s.events.Publish(evt)
	}
}

func (s *ReportService) notify(ctx context.Context, report *models.Report, remarks string) {
	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, report, remarks)
	}
}

func reportEvent(t events.Type, r *models.Report) events.Event {
	return events.Event{Type: t, ReportID: r.ID, ProjectID: r.ProjectID, OwnerID: r.UserID, Status: string(r.Status), At: r.UpdatedAt}
}

// reportDate returns the requested date, or today, truncated to a calendar day
func (s *ReportService) reportDate(in *time.Time) time.Time {
	d := s.now()
	if in != nil {
		d = *in
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// validateReportInput checks checklist answers against their template and the coordinate pair.
// An inactive template is accepted only when it is the one the report already uses.
func validateReportInput(ctx context.Context, q querier, in *models.ReportInput, current sql.NullInt64) error {
	var template *models.ChecklistTemplate
	if in.ChecklistID != nil {
		var err error
		template, err = loadChecklist(ctx, q, *in.ChecklistID)
		if err != nil {
			return err
		}
		if template == nil {
			return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
				"checklist template does not exist", fmt.Sprintf("checklist %d", *in.ChecklistID))
		}
		if !template.Active && !(current.Valid && current.Int64 == int64(template.ID)) {
			return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
				"checklist template is not active", fmt.Sprintf("checklist %d", template.ID))
		}
	}
	if err := ValidateChecklistAnswers(template, in.Checklist); err != nil {
		return err
	}
	return validateCoordinates(in.Latitude, in.Longitude)
}

// lockReport loads a report with FOR UPDATE. A missing report is ErrRecordNotFound.
func lockReport(ctx context.Context, tx *sql.Tx, id int) (*models.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports r WHERE r.id = $1 FOR UPDATE`, reportSelectFields)
	r, err := scanReport(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "report %d not found", id)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load report")
	}
	return r, nil
}

// CreateReport files a new pending report. The sequence number is MAX+1 under a
// project row lock; a unique violation on (project_id, sequence_number) retries
// the whole transaction a bounded number of times.
func (s *ReportService) CreateReport(ctx context.Context, actor models.Actor, in models.ReportInput) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "create_report",
		observability.AttributeProjectID(in.ProjectID), observability.AttributeUserID(actor.UserID))
	defer observability.FinishSpan(span, &err)

	limit := s.cfg.Reports.SequenceRetryLimit
	if limit <= 0 {
		limit = config.DefaultSequenceRetryLimit
	}
	for attempt := 1; ; attempt++ {
		result0, err = s.createOnce(ctx, actor, in)
		if err == nil || !isDuplicateKeyError(err) || attempt >= limit {
			break
		}
		s.logger.Warn(ctx, "Report sequence collision, retrying", map[string]interface{}{
			"project_id": in.ProjectID,
			"attempt":    attempt,
		})
	}
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, contextutils.WrapError(contextutils.ErrConflict, "could not allocate a report sequence number")
		}
		return nil, err
	}

	s.metrics.RecordTransition(ctx, "create", string(result0.Status))
	s.publish(reportEvent(events.ReportCreated, result0))
	s.logger.Info(ctx, "Created report", map[string]interface{}{
		"report_id":  result0.ID,
		"project_id": result0.ProjectID,
		"code":       result0.Code,
	})
	return result0, nil
}

func (s *ReportService) createOnce(ctx context.Context, actor models.Actor, in models.ReportInput) (*models.Report, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer rollbackUnlessDone(ctx, tx, s.logger)

	var responsibleID int
	err = tx.QueryRowContext(ctx, `SELECT responsible_id FROM projects WHERE id = $1 FOR UPDATE`, in.ProjectID).Scan(&responsibleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "project %d not found", in.ProjectID)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to lock project")
	}
	if !actor.IsAdmin() && responsibleID != actor.UserID {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "only the project's responsible user can file reports")
	}
	if err = validateReportInput(ctx, tx, &in, sql.NullInt64{}); err != nil {
		return nil, err
	}

	var seq int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM reports WHERE project_id = $1`, in.ProjectID).Scan(&seq)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to compute sequence number")
	}

	now := s.now()
	report := &models.Report{
		ProjectID:      in.ProjectID,
		UserID:         actor.UserID,
		SequenceNumber: seq,
		Version:        models.InitialReportVersion,
		ReportDate:     s.reportDate(in.ReportDate),
		Activities:     in.Activities,
		ChecklistID:    nullInt(in.ChecklistID),
		Checklist:      in.Checklist,
		Status:         models.ReportStatusPending,
		Latitude:       nullFloat(in.Latitude),
		Longitude:      nullFloat(in.Longitude),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if report.Checklist == nil {
		report.Checklist = models.ChecklistAnswers{}
	}
	report.Code = models.ReportCode(s.cfg.Reports.CodePrefix, report.ReportDate.Year(), seq, report.Version)

	query := `INSERT INTO reports (project_id, user_id, sequence_number, code, version, report_date, activities, checklist_id, checklist,
		status, latitude, longitude, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`
	err = tx.QueryRowContext(ctx, query, report.ProjectID, report.UserID, report.SequenceNumber, report.Code, report.Version,
		report.ReportDate, report.Activities, report.ChecklistID, report.Checklist, string(report.Status),
		report.Latitude, report.Longitude, now, now).Scan(&report.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert report")
	}
	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit report")
	}
	return report, nil
}

// GetReport returns a report visible to its owner, an administrator or the project's responsible user
func (s *ReportService) GetReport(ctx context.Context, actor models.Actor, id int) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "get_report", observability.AttributeReportID(id))
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf(`SELECT %s, p.responsible_id FROM reports r JOIN projects p ON p.id = r.project_id WHERE r.id = $1`, reportSelectFields)
	var responsibleID int
	result0, err = scanReport(s.db.QueryRowContext(ctx, query, id), &responsibleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "report %d not found", id)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get report")
	}
	if !actor.Owns(result0.UserID) && responsibleID != actor.UserID {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "report belongs to another user")
	}
	return result0, nil
}

// ListReports returns reports newest first. Users see reports they filed and
// reports of projects they are responsible for.
func (s *ReportService) ListReports(ctx context.Context, actor models.Actor, filter models.ReportFilter) (result0 []models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "list_reports",
		observability.AttributeActorIsAdmin(actor.IsAdmin()), observability.AttributeLimit(filter.Limit), observability.AttributeOffset(filter.Offset))
	defer observability.FinishSpan(span, &err)

	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !actor.IsAdmin() {
		p := arg(actor.UserID)
		conds = append(conds, fmt.Sprintf("(r.user_id = %s OR p.responsible_id = %s)", p, p))
	}
	if filter.ProjectID > 0 {
		conds = append(conds, "r.project_id = "+arg(filter.ProjectID))
	}
	if filter.UserID > 0 {
		conds = append(conds, "r.user_id = "+arg(filter.UserID))
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown report status %q", filter.Status)
		}
		conds = append(conds, "r.status = "+arg(string(filter.Status)))
	}

	query := fmt.Sprintf(`SELECT %s FROM reports r JOIN projects p ON p.id = r.project_id`, reportSelectFields)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY r.created_at DESC, r.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET " + arg(filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list reports")
	}
	defer func() { _ = rows.Close() }()

	reports := []models.Report{}
	for rows.Next() {
		r, scanErr := scanReport(rows)
		if scanErr != nil {
			return nil, contextutils.WrapError(scanErr, "failed to scan report")
		}
		reports = append(reports, *r)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating reports")
	}
	return reports, nil
}

// UpdateReport edits a pending or rejected report in place. A rejected report
// is resubmitted: it returns to pending, loses its review fields and its open
// revision alerts are resolved. Version and sequence number never change.
func (s *ReportService) UpdateReport(ctx context.Context, actor models.Actor, id int, in models.ReportInput) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "update_report", observability.AttributeReportID(id))
	defer observability.FinishSpan(span, &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer rollbackUnlessDone(ctx, tx, s.logger)

	report, err := lockReport(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(report.UserID) {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "only the submitting user can edit this report")
	}
	if !report.Status.CanEdit() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidTransition, "report %d is %s and can no longer be edited", id, report.Status)
	}
	if err = validateReportInput(ctx, tx, &in, report.ChecklistID); err != nil {
		return nil, err
	}

	now := s.now()
	wasRejected := report.Status == models.ReportStatusRejected
	if in.ReportDate != nil {
		report.ReportDate = s.reportDate(in.ReportDate)
	}
	report.Activities = in.Activities
	report.ChecklistID = nullInt(in.ChecklistID)
	report.Checklist = in.Checklist
	if report.Checklist == nil {
		report.Checklist = models.ChecklistAnswers{}
	}
	report.Latitude = nullFloat(in.Latitude)
	report.Longitude = nullFloat(in.Longitude)
	report.UpdatedAt = now
	// the code carries the report year, so a date moved across years renames it
	report.Code = models.ReportCode(s.cfg.Reports.CodePrefix, report.ReportDate.Year(), report.SequenceNumber, report.Version)

	query := `UPDATE reports SET report_date = $1, activities = $2, checklist_id = $3, checklist = $4, latitude = $5, longitude = $6, updated_at = $7, code = $8`
	if wasRejected {
		query += `, status = 'pending', approver_id = NULL, reviewed_at = NULL, revision_deadline = NULL`
	}
	query += ` WHERE id = $9`
	if _, err = tx.ExecContext(ctx, query, report.ReportDate, report.Activities, report.ChecklistID, report.Checklist,
		report.Latitude, report.Longitude, now, report.Code, id); err != nil {
		return nil, contextutils.WrapError(err, "failed to update report")
	}

	if wasRejected {
		if _, err = tx.ExecContext(ctx, `UPDATE alerts SET status = 'resolved' WHERE report_id = $1 AND status = 'pending'`, id); err != nil {
			return nil, contextutils.WrapError(err, "failed to resolve revision alerts")
		}
		report.Status = models.ReportStatusPending
		report.ApproverID = sql.NullInt64{}
		report.ReviewedAt = sql.NullTime{}
		report.RevisionDeadline = sql.NullTime{}
	}

	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit report update")
	}

	if wasRejected {
		s.metrics.RecordTransition(ctx, "resubmit", string(report.Status))
		s.logger.Info(ctx, "Report resubmitted", map[string]interface{}{"report_id": id})
	}
	s.publish(reportEvent(events.ReportUpdated, report))
	return report, nil
}

// ApproveReport moves a pending report to approved and records the review
func (s *ReportService) ApproveReport(ctx context.Context, actor models.Actor, id int, remarks string) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "approve_report", observability.AttributeReportID(id), observability.AttributeUserID(actor.UserID))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "only administrators can approve reports")
	}
	remarks = strings.TrimSpace(remarks)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer rollbackUnlessDone(ctx, tx, s.logger)

	report, err := lockReport(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !report.Status.CanReview() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidTransition, "report %d is %s, only pending reports can be approved", id, report.Status)
	}

	now := s.now()
	if _, err = tx.ExecContext(ctx,
		`UPDATE reports SET status = $1, approver_id = $2, reviewed_at = $3, admin_remarks = $4, revision_deadline = NULL, updated_at = $3 WHERE id = $5`,
		string(models.ReportStatusApproved), actor.UserID, now, remarks, id); err != nil {
		return nil, contextutils.WrapError(err, "failed to approve report")
	}
	if err = insertApprovalEntry(ctx, tx, id, actor.UserID, models.ApprovalActionApproved, remarks, now); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit approval")
	}

	report.Status = models.ReportStatusApproved
	report.ApproverID = sql.NullInt64{Int64: int64(actor.UserID), Valid: true}
	report.ReviewedAt = sql.NullTime{Time: now, Valid: true}
	report.AdminRemarks = remarks
	report.RevisionDeadline = sql.NullTime{}
	report.UpdatedAt = now

	s.metrics.RecordTransition(ctx, "approve", string(report.Status))
	s.publish(reportEvent(events.ReportApproved, report))
	s.notify(ctx, report, remarks)
	s.logger.Info(ctx, "Report approved", map[string]interface{}{"report_id": id, "approver_id": actor.UserID})
	return report, nil
}

// revisionDeadline resolves the deadline for a rejection made at now
func (s *ReportService) revisionDeadline(now time.Time, in models.RejectInput) (time.Time, error) {
	if in.Deadline != nil {
		if !in.Deadline.After(now) {
			return time.Time{}, contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
				"revision deadline must be in the future", "")
		}
		return *in.Deadline, nil
	}
	days := in.RevisionDays
	if days == 0 {
		days = s.cfg.Reports.RevisionDays
	}
	if days < 1 || days > config.MaxRevisionDays {
		return time.Time{}, contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"revision days out of range", fmt.Sprintf("must be within 1..%d", config.MaxRevisionDays))
	}
	return now.AddDate(0, 0, days), nil
}

// RejectReport moves a pending report to rejected, sets a revision deadline and
// schedules one alert for the project at that deadline.
func (s *ReportService) RejectReport(ctx context.Context, actor models.Actor, id int, in models.RejectInput) (result0 *models.Report, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "reject_report", observability.AttributeReportID(id), observability.AttributeUserID(actor.UserID))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "only administrators can reject reports")
	}
	remarks := strings.TrimSpace(in.Remarks)
	if remarks == "" {
		return nil, contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"remarks are required when rejecting a report", "")
	}
	now := s.now()
	deadline, err := s.revisionDeadline(now, in)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer rollbackUnlessDone(ctx, tx, s.logger)

	report, err := lockReport(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !report.Status.CanReview() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidTransition, "report %d is %s, only pending reports can be rejected", id, report.Status)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE reports SET status = $1, approver_id = $2, reviewed_at = $3, admin_remarks = $4, revision_deadline = $5, updated_at = $3 WHERE id = $6`,
		string(models.ReportStatusRejected), actor.UserID, now, remarks, deadline, id); err != nil {
		return nil, contextutils.WrapError(err, "failed to reject report")
	}
	if err = insertApprovalEntry(ctx, tx, id, actor.UserID, models.ApprovalActionRejected, remarks, now); err != nil {
		return nil, err
	}

	alert := models.Alert{
		ProjectID:   report.ProjectID,
		ReportID:    sql.NullInt64{Int64: int64(id), Valid: true},
		Description: fmt.Sprintf("Revision of report %s due: %s", report.Code, remarks),
		ScheduledAt: deadline,
		Status:      models.AlertStatusPending,
		CreatedAt:   now,
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO alerts (project_id, report_id, description, scheduled_at, status, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		alert.ProjectID, alert.ReportID, alert.Description, alert.ScheduledAt, string(alert.Status), now).Scan(&alert.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to schedule revision alert")
	}
	if err = tx.Commit(); err != nil {
		return nil, contextutils.WrapError(err, "failed to commit rejection")
	}

	report.Status = models.ReportStatusRejected
	report.ApproverID = sql.NullInt64{Int64: int64(actor.UserID), Valid: true}
	report.ReviewedAt = sql.NullTime{Time: now, Valid: true}
	report.AdminRemarks = remarks
	report.RevisionDeadline = sql.NullTime{Time: deadline, Valid: true}
	report.UpdatedAt = now

	s.metrics.RecordTransition(ctx, "reject", string(report.Status))
	s.publish(reportEvent(events.ReportRejected, report))
	s.publish(events.Event{Type: events.AlertCreated, ReportID: id, ProjectID: report.ProjectID, OwnerID: report.UserID, AlertID: alert.ID, At: now})
	s.notify(ctx, report, remarks)
	s.logger.Info(ctx, "Report rejected", map[string]interface{}{
		"report_id": id,
		"alert_id":  alert.ID,
		"deadline":  deadline.Format(time.RFC3339),
	})
	return report, nil
}

func insertApprovalEntry(ctx context.Context, tx *sql.Tx, reportID, approverID int, action models.ApprovalAction, remarks string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO approval_history (report_id, approver_id, action, remarks, created_at) VALUES ($1, $2, $3, $4, $5)`,
		reportID, approverID, string(action), remarks, at)
	if err != nil {
		return contextutils.WrapError(err, "failed to record approval history")
	}
	return nil
}

// GetApprovalHistory returns the review trail of a report, oldest first
func (s *ReportService) GetApprovalHistory(ctx context.Context, actor models.Actor, id int) (result0 []models.ApprovalEntry, err error) {
	ctx, span := observability.TraceReportFunction(ctx, "get_approval_history", observability.AttributeReportID(id))
	defer observability.FinishSpan(span, &err)

	if _, err = s.GetReport(ctx, actor, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT h.id, h.report_id, h.approver_id, COALESCE(u.name, ''), h.action, h.remarks, h.created_at
		FROM approval_history h LEFT JOIN users u ON u.id = h.approver_id
		WHERE h.report_id = $1 ORDER BY h.created_at, h.id`, id)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load approval history")
	}
	defer func() { _ = rows.Close() }()

	entries := []models.ApprovalEntry{}
	for rows.Next() {
		var e models.ApprovalEntry
		var action string
		if err = rows.Scan(&e.ID, &e.ReportID, &e.ApproverID, &e.ApproverName, &action, &e.Remarks, &e.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan approval history")
		}
		e.Action = models.ApprovalAction(action)
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating approval history")
	}
	return entries, nil
}

// DeleteReport removes a report with its photos and history. Photo files and the
// PDF snapshot are removed after commit.
func (s *ReportService) DeleteReport(ctx context.Context, actor models.Actor, id int) (err error) {
	ctx, span := observability.TraceReportFunction(ctx, "delete_report", observability.AttributeReportID(id))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return contextutils.WrapError(contextutils.ErrForbidden, "only administrators can delete reports")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapError(err, "failed to begin transaction")
	}
	defer rollbackUnlessDone(ctx, tx, s.logger)

	files, err := collectPhotoFiles(ctx, tx, `SELECT file_name FROM photos WHERE report_id = $1`, id)
	if err != nil {
		return err
	}
	var pdfPath sql.NullString
	err = tx.QueryRowContext(ctx, `DELETE FROM reports WHERE id = $1 RETURNING pdf_path`, id).Scan(&pdfPath)
	if errors.Is(err, sql.ErrNoRows) {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "report %d not found", id)
	}
	if err != nil {
		return contextutils.WrapError(err, "failed to delete report")
	}
	if err = tx.Commit(); err != nil {
		return contextutils.WrapError(err, "failed to commit report delete")
	}

	removeFiles(ctx, s.files, s.logger, files)
	if pdfPath.Valid && pdfPath.String != "" {
		removeFiles(ctx, s.docs, s.logger, []string{pdfPath.String})
	}
	s.logger.Info(ctx, "Deleted report", map[string]interface{}{"report_id": id, "files_removed": len(files)})
	return nil
}
