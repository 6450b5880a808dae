package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ContactServiceInterface manages project contacts
type ContactServiceInterface interface {
	CreateContact(ctx context.Context, actor models.Actor, in models.ContactInput) (*models.Contact, error)
	ListContacts(ctx context.Context, actor models.Actor, projectID int) ([]models.Contact, error)
	DeleteContact(ctx context.Context, actor models.Actor, id int) error
}

// ContactService stores the people attached to projects
type ContactService struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewContactServiceWithLogger creates a ContactService
func NewContactServiceWithLogger(db *sql.DB, logger *observability.Logger) *ContactService {
	return &ContactService{db: db, logger: logger}
}

// requireProjectAccess fails unless the actor is an administrator or the project's responsible user
func requireProjectAccess(ctx context.Context, q querier, actor models.Actor, projectID int) error {
	var responsibleID int
	err := q.QueryRowContext(ctx, `SELECT responsible_id FROM projects WHERE id = $1`, projectID).Scan(&responsibleID)
	if errors.Is(err, sql.ErrNoRows) {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "project %d not found", projectID)
	}
	if err != nil {
		return contextutils.WrapError(err, "failed to get project")
	}
	if !actor.Owns(responsibleID) {
		return contextutils.WrapError(contextutils.ErrForbidden, "project belongs to another user")
	}
	return nil
}

// CreateContact adds a contact to a project the actor can access
func (s *ContactService) CreateContact(ctx context.Context, actor models.Actor, in models.ContactInput) (result0 *models.Contact, err error) {
	ctx, span := observability.TraceProjectFunction(ctx, "create_contact", observability.AttributeProjectID(in.ProjectID))
	defer observability.FinishSpan(span, &err)

	c := &models.Contact{
		ProjectID: in.ProjectID,
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		Position:  strings.TrimSpace(in.Position),
		CreatedAt: time.Now(),
	}
	if c.Name == "" || c.ProjectID <= 0 {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "name and project are required")
	}
	if c.Email != "" && !contextutils.IsValidEmail(c.Email) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid email %q", c.Email)
	}
	if err = requireProjectAccess(ctx, s.db, actor, c.ProjectID); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO contacts (project_id, name, email, phone, position, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		c.ProjectID, c.Name, c.Email, c.Phone, c.Position, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert contact")
	}
	return c, nil
}

// ListContacts returns contacts ordered by name. projectID 0 lists every
// contact the actor can see: all for administrators, their projects' otherwise.
func (s *ContactService) ListContacts(ctx context.Context, actor models.Actor, projectID int) (result0 []models.Contact, err error) {
	ctx, span := observability.TraceProjectFunction(ctx, "list_contacts", observability.AttributeProjectID(projectID))
	defer observability.FinishSpan(span, &err)

	query := `SELECT c.id, c.project_id, c.name, c.email, c.phone, c.position, c.created_at FROM contacts c`
	var args []interface{}
	switch {
	case projectID > 0:
		if err = requireProjectAccess(ctx, s.db, actor, projectID); err != nil {
			return nil, err
		}
		query += ` WHERE c.project_id = $1`
		args = append(args, projectID)
	case !actor.IsAdmin():
		query += ` JOIN projects p ON p.id = c.project_id WHERE p.responsible_id = $1`
		args = append(args, actor.UserID)
	}
	query += ` ORDER BY c.name, c.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list contacts")
	}
	defer func() { _ = rows.Close() }()

	contacts := []models.Contact{}
	for rows.Next() {
		var c models.Contact
		if err = rows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Email, &c.Phone, &c.Position, &c.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan contact")
		}
		contacts = append(contacts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating contacts")
	}
	return contacts, nil
}

// DeleteContact removes a contact from a project the actor can access
func (s *ContactService) DeleteContact(ctx context.Context, actor models.Actor, id int) (err error) {
	ctx, span := observability.TraceProjectFunction(ctx, "delete_contact", attribute.Int("contact.id", id))
	defer observability.FinishSpan(span, &err)

	var projectID int
	err = s.db.QueryRowContext(ctx, `SELECT project_id FROM contacts WHERE id = $1`, id).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "contact %d not found", id)
	}
	if err != nil {
		return contextutils.WrapError(err, "failed to get contact")
	}
	if err = requireProjectAccess(ctx, s.db, actor, projectID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete contact")
	}
	return requireAffected(res, "contact", id)
}
