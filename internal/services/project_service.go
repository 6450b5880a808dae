package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"
)

// ProjectServiceInterface defines project management operations
type ProjectServiceInterface interface {
	CreateProject(ctx context.Context, actor models.Actor, in models.ProjectInput) (*models.Project, error)
	GetProject(ctx context.Context, actor models.Actor, id int) (*models.Project, error)
	ListProjects(ctx context.Context, actor models.Actor) ([]models.Project, error)
	UpdateProject(ctx context.Context, actor models.Actor, id int, in models.ProjectInput) (*models.Project, error)
	DeleteProject(ctx context.Context, actor models.Actor, id int) error
}

// ProjectService stores construction projects
type ProjectService struct {
	db     *sql.DB
	files  FileStore
	logger *observability.Logger
}

const projectSelectFields = `p.id, p.name, p.type, p.responsible_id, p.status, p.start_date, p.end_date, p.address, p.gps_address,
	p.latitude, p.longitude, p.description, p.created_at, p.updated_at, COALESCE(u.name, '')`

const projectFromClause = `FROM projects p LEFT JOIN users u ON u.id = p.responsible_id`

// NewProjectServiceWithLogger creates a ProjectService. files may be nil when
// photo cleanup on delete is not needed.
func NewProjectServiceWithLogger(db *sql.DB, files FileStore, logger *observability.Logger) *ProjectService {
	return &ProjectService{db: db, files: files, logger: logger}
}

func scanProject(row rowScanner) (*models.Project, error) {
	p := &models.Project{}
	var status string
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.ResponsibleID, &status, &p.StartDate, &p.EndDate, &p.Address, &p.GPSAddress,
		&p.Latitude, &p.Longitude, &p.Description, &p.CreatedAt, &p.UpdatedAt, &p.ResponsibleName)
	if err != nil {
		return nil, err
	}
	p.Status = models.ProjectStatus(status)
	return p, nil
}

func validateProjectInput(in *models.ProjectInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "project name is required")
	}
	if in.ResponsibleID <= 0 {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "responsible user is required")
	}
	if in.Status == "" {
		in.Status = models.ProjectStatusActive
	}
	if !in.Status.Valid() {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown project status %q", in.Status)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "end date is before start date")
	}
	return validateCoordinates(in.Latitude, in.Longitude)
}

// getProject loads a project without any access check. A missing project is (nil, nil).
func (s *ProjectService) getProject(ctx context.Context, id int) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE p.id = $1`, projectSelectFields, projectFromClause)
	p, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get project")
	}
	return p, nil
}

// CreateProject stores a new project. Only administrators may create projects.
func (s *ProjectService) CreateProject(ctx context.Context, actor models.Actor, in models.ProjectInput) (result0 *models.Project, err error) {
	ctx, span := observability.TraceProjectFunction(ctx, "create_project", observability.AttributeUserID(actor.UserID))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "only administrators can create projects")
	}
	if err = validateProjectInput(&in); err != nil {
		return nil, err
	}

	now := time.Now()
	query := `INSERT INTO projects (name, type, responsible_id, status, start_date, end_date, address, gps_address, latitude, longitude, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	var id int
	err = s.db.QueryRowContext(ctx, query, in.Name, in.Type, in.ResponsibleID, string(in.Status), nullTime(in.StartDate), nullTime(in.EndDate),
		in.Address, in.GPSAddress, nullFloat(in.Latitude), nullFloat(in.Longitude), in.Description, now, now).Scan(&id)
	if err != nil {
		if isForeignKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "responsible user %d does not exist", in.ResponsibleID)
		}
		return nil, contextutils.WrapError(err, "failed to insert project")
	}

	s.logger.Info(ctx, "Created project", map[string]interface{}{"project_id": id, "responsible_id": in.ResponsibleID})
	return &models.Project{
		ID:            id,
		Name:          in.Name,
		Type:          in.Type,
		ResponsibleID: in.ResponsibleID,
		Status:        in.Status,
		StartDate:     nullTime(in.StartDate),
		EndDate:       nullTime(in.EndDate),
		Address:       in.Address,
		GPSAddress:    in.GPSAddress,
		Latitude:      nullFloat(in.Latitude),
		Longitude:     nullFloat(in.Longitude),
		Description:   in.Description,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// GetProject returns a project the actor may access
func (s *ProjectService) GetProject(ctx context.Context, actor models.Actor, id int) (result0 *models.Project, err error) {
	ctx, span := observability.TraceProjectFunction(ctx, "get_project", observability.AttributeProjectID(id))
	defer observability.FinishSpan(span, &err)

	result0, err = s.getProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if result0 == nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "project %d not found", id)
	}
	if !result0.AccessibleBy(actor) {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "project belongs to another user")
	}
	return result0, nil
}

// ListProjects returns all projects for administrators and the actor's own projects otherwise
func (s *ProjectService) ListProjects(ctx context.Context, actor models.Actor) (result0 []models.Project, err error) {
	ctx, span := observability.TraceProjectFunction(ctx, "list_projects", observability.AttributeActorIsAdmin(actor.IsAdmin()))
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf(`SELECT %s %s`, projectSelectFields, projectFromClause)
	var args []interface{}
	if !actor.IsAdmin() {
		query += ` WHERE p.responsible_id = $1`
		args = append(args, actor.UserID)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list projects")
	}
	defer func() { _ = rows.Close() }()

	projects := []models.Project{}
	for rows.Next() {
		p, scanErr := scanProject(rows)
		if scanErr != nil {
			return nil, contextutils.WrapError(scanErr, "failed to scan project")
		}
		projects = append(projects, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating projects")
	}
	return projects, nil
}

// UpdateProject replaces the editable columns of a project
func (s *ProjectService) UpdateProject(ctx context.Context, actor models.Actor, id int, in models.ProjectInput) (result0 *models.Project, err error) {
	ctx, span := observability.TraceProjectFunction(ctx, "update_project", observability.AttributeProjectID(id))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "only administrators can update projects")
	}
	if err = validateProjectInput(&in); err != nil {
		return nil, err
	}

	query := `UPDATE projects SET name = $1, type = $2, responsible_id = $3, status = $4, start_date = $5, end_date = $6,
		address = $7, gps_address = $8, latitude = $9, longitude = $10, description = $11, updated_at = $12 WHERE id = $13`
	res, err := s.db.ExecContext(ctx, query, in.Name, in.Type, in.ResponsibleID, string(in.Status), nullTime(in.StartDate), nullTime(in.EndDate),
		in.Address, in.GPSAddress, nullFloat(in.Latitude), nullFloat(in.Longitude), in.Description, time.Now(), id)
	if err != nil {
		if isForeignKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "responsible user %d does not exist", in.ResponsibleID)
		}
		return nil, contextutils.WrapError(err, "failed to update project")
	}
	if err = requireAffected(res, "project", id); err != nil {
		return nil, err
	}
	return s.getProject(ctx, id)
}

// DeleteProject removes a project with its reports, contacts and alerts.
// Photo files of the removed reports are deleted after commit.
func (s *ProjectService) DeleteProject(ctx context.Context, actor models.Actor, id int) (err error) {
	ctx, span := observability.TraceProjectFunction(ctx, "delete_project", observability.AttributeProjectID(id))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return contextutils.WrapError(contextutils.ErrForbidden, "only administrators can delete projects")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return contextutils.WrapError(err, "failed to begin transaction")
	}
	defer rollbackUnlessDone(ctx, tx, s.logger)

	files, err := collectPhotoFiles(ctx, tx, `SELECT ph.file_name FROM photos ph JOIN reports r ON r.id = ph.report_id WHERE r.project_id = $1`, id)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete project")
	}
	if err = requireAffected(res, "project", id); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return contextutils.WrapError(err, "failed to commit project delete")
	}

	removeFiles(ctx, s.files, s.logger, files)
	s.logger.Info(ctx, "Deleted project", map[string]interface{}{"project_id": id, "photos_removed": len(files)})
	return nil
}

// collectPhotoFiles reads the stored file names selected by query
func collectPhotoFiles(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) (result []string, err error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list photo files")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan photo file")
		}
		result = append(result, name)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating photo files")
	}
	return result, nil
}
