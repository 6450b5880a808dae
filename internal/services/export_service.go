package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"github.com/xuri/excelize/v2"
)

// ExportServiceInterface builds spreadsheet exports
type ExportServiceInterface interface {
	ExportRegister(ctx context.Context, actor models.Actor, projectID int) (*models.ReportDocument, error)
}

// ExportService writes the report register of a project as an XLSX workbook
type ExportService struct {
	db     *sql.DB
	logger *observability.Logger
}

const registerSheet = "Register"

var registerHeaders = []string{"Code", "Seq", "Date", "Submitted by", "Status", "Approver", "Revision deadline"}

// NewExportServiceWithLogger creates an ExportService
func NewExportServiceWithLogger(db *sql.DB, logger *observability.Logger) *ExportService {
	return &ExportService{db: db, logger: logger}
}

type registerRow struct {
	code      string
	seq       int
	date      sql.NullTime
	submitter string
	status    string
	approver  string
	deadline  sql.NullTime
}

func formatDay(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format("02/01/2006")
}

// ExportRegister lists every report of a project in sequence order. Administrators only.
func (s *ExportService) ExportRegister(ctx context.Context, actor models.Actor, projectID int) (result0 *models.ReportDocument, err error) {
	ctx, span := observability.TraceDocumentFunction(ctx, "export_register", observability.AttributeProjectID(projectID))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "only administrators can export the report register")
	}

	var projectName string
	err = s.db.QueryRowContext(ctx, `SELECT name FROM projects WHERE id = $1`, projectID).Scan(&projectName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "project %d not found", projectID)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get project")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT r.code, r.sequence_number, r.report_date, COALESCE(su.name, ''), r.status,
			COALESCE(au.name, ''), r.revision_deadline
		FROM reports r
		LEFT JOIN users su ON su.id = r.user_id
		LEFT JOIN users au ON au.id = r.approver_id
		WHERE r.project_id = $1
		ORDER BY r.sequence_number`, projectID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list reports")
	}
	defer func() { _ = rows.Close() }()

	var register []registerRow
	for rows.Next() {
		var row registerRow
		if err = rows.Scan(&row.code, &row.seq, &row.date, &row.submitter, &row.status, &row.approver, &row.deadline); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan report")
		}
		register = append(register, row)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating reports")
	}

	data, err := buildRegisterWorkbook(register)
	if err != nil {
		return nil, err
	}

	safe := strings.ReplaceAll(contextutils.SafeName(projectName), " ", "_")
	s.logger.Info(ctx, "Exported report register", map[string]interface{}{"project_id": projectID, "reports": len(register)})
	return &models.ReportDocument{
		FileName:     fmt.Sprintf("register_%s.xlsx", safe),
		DownloadName: fmt.Sprintf("register_%s.xlsx", safe),
		Data:         data,
	}, nil
}

func buildRegisterWorkbook(register []registerRow) (result []byte, err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = exportError(cerr)
		}
	}()

	if err = f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), registerSheet); err != nil {
		return nil, exportError(err)
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, exportError(err)
	}

	for i, h := range registerHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err = f.SetCellValue(registerSheet, cell, h); err != nil {
			return nil, exportError(err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(registerHeaders), 1)
	if err = f.SetCellStyle(registerSheet, "A1", last, header); err != nil {
		return nil, exportError(err)
	}

	for i, r := range register {
		values := []interface{}{r.code, r.seq, formatDay(r.date), r.submitter, titleCase(r.status), r.approver, formatDay(r.deadline)}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err = f.SetSheetRow(registerSheet, cell, &values); err != nil {
			return nil, exportError(err)
		}
	}
	if err = f.SetColWidth(registerSheet, "A", "G", 18); err != nil {
		return nil, exportError(err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, exportError(err)
	}
	return buf.Bytes(), nil
}

func exportError(cause error) error {
	return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeDocumentRender, contextutils.SeverityError,
		"failed to build spreadsheet", cause.Error(), cause)
}
