package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"time"

	"siteworks/internal/config"
	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// PhotoServiceInterface manages images attached to reports
type PhotoServiceInterface interface {
	UploadPhoto(ctx context.Context, actor models.Actor, reportID int, in models.PhotoInput) (*models.Photo, error)
	ListPhotos(ctx context.Context, actor models.Actor, reportID int) ([]models.Photo, error)
	OpenPhoto(ctx context.Context, actor models.Actor, photoID int) (*models.Photo, io.ReadCloser, error)
}

// PhotoService stores photo files in a FileStore and their metadata in the photos table
type PhotoService struct {
	db      *sql.DB
	cfg     *config.Config
	files   FileStore
	metrics *observability.ReportMetrics
	logger  *observability.Logger
	now     func() time.Time
}

const photoSelectFields = `ph.id, ph.report_id, ph.service_type, ph.file_name, ph.size_bytes, ph.description, ph.uploaded_at`

// NewPhotoServiceWithLogger creates a PhotoService
func NewPhotoServiceWithLogger(db *sql.DB, cfg *config.Config, files FileStore, metrics *observability.ReportMetrics, logger *observability.Logger) *PhotoService {
	return &PhotoService{db: db, cfg: cfg, files: files, metrics: metrics, logger: logger, now: time.Now}
}

func scanPhoto(row rowScanner, extra ...interface{}) (*models.Photo, error) {
	p := &models.Photo{}
	dest := []interface{}{&p.ID, &p.ReportID, &p.ServiceType, &p.FileName, &p.SizeBytes, &p.Description, &p.UploadedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return p, nil
}

// reportAccess returns the report's owner and its project's responsible user
func reportAccess(ctx context.Context, q querier, reportID int) (ownerID, responsibleID int, err error) {
	err = q.QueryRowContext(ctx,
		`SELECT r.user_id, p.responsible_id FROM reports r JOIN projects p ON p.id = r.project_id WHERE r.id = $1`,
		reportID).Scan(&ownerID, &responsibleID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "report %d not found", reportID)
	}
	if err != nil {
		return 0, 0, contextutils.WrapError(err, "failed to load report")
	}
	return ownerID, responsibleID, nil
}

func canReadReport(actor models.Actor, ownerID, responsibleID int) bool {
	return actor.Owns(ownerID) || actor.UserID == responsibleID
}

// StoredPhotoName builds the on-disk name: an upload timestamp followed by the sanitized original name
func StoredPhotoName(at time.Time, original string) string {
	return at.Format("20060102_150405_") + contextutils.SanitizeFilename(original)
}

// UploadPhoto attaches an image to a report. Only the report's owner or an
// administrator may upload. The file is written before the row is inserted and
// removed again if the insert fails.
func (s *PhotoService) UploadPhoto(ctx context.Context, actor models.Actor, reportID int, in models.PhotoInput) (result0 *models.Photo, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "upload_photo",
		observability.AttributeReportID(reportID), attribute.Int("file.size", len(in.Data)))
	defer observability.FinishSpan(span, &err)
	defer func() { s.metrics.RecordUpload(ctx, err == nil) }()

	ownerID, _, err := reportAccess(ctx, s.db, reportID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(ownerID) {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "only the report owner can upload photos")
	}

	if strings.TrimSpace(in.FileName) == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "no file selected")
	}
	if !contextutils.IsAllowedImage(in.FileName) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "file type of %q is not allowed", in.FileName)
	}
	if len(in.Data) == 0 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "uploaded file is empty")
	}
	if int64(len(in.Data)) > s.cfg.Server.MaxUploadBytes {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "file exceeds %d bytes", s.cfg.Server.MaxUploadBytes)
	}
	sanitized := contextutils.SanitizeFilename(in.FileName)
	if sanitized == "" || !contextutils.IsAllowedImage(sanitized) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid file name %q", in.FileName)
	}

	data, err := downscaleImage(in.Data, imageExt(sanitized), s.cfg.Storage.MaxWidth, s.cfg.Storage.MaxHeight)
	if err != nil {
		return nil, err
	}

	now := s.now()
	photo := &models.Photo{
		ReportID:    reportID,
		ServiceType: strings.TrimSpace(in.ServiceType),
		FileName:    StoredPhotoName(now, in.FileName),
		SizeBytes:   int64(len(data)),
		Description: strings.TrimSpace(in.Description),
		UploadedAt:  now,
	}
	if photo.ServiceType == "" {
		photo.ServiceType = models.DefaultServiceType
	}

	if err = s.files.Write(ctx, photo.FileName, data); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO photos (report_id, service_type, file_name, size_bytes, description, uploaded_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		photo.ReportID, photo.ServiceType, photo.FileName, photo.SizeBytes, photo.Description, photo.UploadedAt).Scan(&photo.ID)
	if err != nil {
		removeFiles(ctx, s.files, s.logger, []string{photo.FileName})
		return nil, contextutils.WrapError(err, "failed to insert photo")
	}

	s.logger.Info(ctx, "Photo uploaded", map[string]interface{}{
		"report_id": reportID,
		"photo_id":  photo.ID,
		"file":      photo.FileName,
		"size":      photo.SizeBytes,
	})
	return photo, nil
}

// ListPhotos returns a report's photos in upload order
func (s *PhotoService) ListPhotos(ctx context.Context, actor models.Actor, reportID int) (result0 []models.Photo, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "list_photos", observability.AttributeReportID(reportID))
	defer observability.FinishSpan(span, &err)

	ownerID, responsibleID, err := reportAccess(ctx, s.db, reportID)
	if err != nil {
		return nil, err
	}
	if !canReadReport(actor, ownerID, responsibleID) {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "report belongs to another user")
	}
	return listReportPhotos(ctx, s.db, reportID)
}

func listReportPhotos(ctx context.Context, q querier, reportID int) ([]models.Photo, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+photoSelectFields+` FROM photos ph WHERE ph.report_id = $1 ORDER BY ph.uploaded_at, ph.id`, reportID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list photos")
	}
	defer func() { _ = rows.Close() }()

	photos := []models.Photo{}
	for rows.Next() {
		p, scanErr := scanPhoto(rows)
		if scanErr != nil {
			return nil, contextutils.WrapError(scanErr, "failed to scan photo")
		}
		photos = append(photos, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating photos")
	}
	return photos, nil
}

// OpenPhoto returns the photo row and its file contents. The caller closes the reader.
func (s *PhotoService) OpenPhoto(ctx context.Context, actor models.Actor, photoID int) (result0 *models.Photo, result1 io.ReadCloser, err error) {
	ctx, span := observability.TraceStorageFunction(ctx, "open_photo", attribute.Int("photo.id", photoID))
	defer observability.FinishSpan(span, &err)

	var ownerID, responsibleID int
	query := `SELECT ` + photoSelectFields + `, r.user_id, p.responsible_id
		FROM photos ph JOIN reports r ON r.id = ph.report_id JOIN projects p ON p.id = r.project_id WHERE ph.id = $1`
	photo, err := scanPhoto(s.db.QueryRowContext(ctx, query, photoID), &ownerID, &responsibleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "photo %d not found", photoID)
	}
	if err != nil {
		return nil, nil, contextutils.WrapError(err, "failed to get photo")
	}
	if !canReadReport(actor, ownerID, responsibleID) {
		return nil, nil, contextutils.WrapError(contextutils.ErrForbidden, "photo belongs to another user")
	}

	rc, err := s.files.Open(ctx, photo.FileName)
	if err != nil {
		return nil, nil, err
	}
	return photo, rc, nil
}
