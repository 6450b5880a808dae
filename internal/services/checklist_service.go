package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"github.com/lib/pq"
	"github.com/xeipuuv/gojsonschema"
)

// checklistDefinitionSchema describes an acceptable template definition.
// Mandatory entries being a subset of fields is checked separately.
const checklistDefinitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "fields", "mandatory"],
  "properties": {
    "name": {"type": "string", "pattern": "\\S", "maxLength": 200},
    "fields": {
      "type": "array",
      "minItems": 1,
      "uniqueItems": true,
      "items": {"type": "string", "pattern": "\\S"}
    },
    "mandatory": {
      "type": "array",
      "uniqueItems": true,
      "items": {"type": "string"}
    },
    "active": {"type": "boolean"}
  }
}`

// ChecklistServiceInterface defines checklist template management and answer validation
type ChecklistServiceInterface interface {
	CreateChecklist(ctx context.Context, actor models.Actor, def models.ChecklistDefinition) (*models.ChecklistTemplate, error)
	UpdateChecklist(ctx context.Context, actor models.Actor, id int, def models.ChecklistDefinition) (*models.ChecklistTemplate, error)
	GetChecklist(ctx context.Context, id int) (*models.ChecklistTemplate, error)
	ListChecklists(ctx context.Context, activeOnly bool) ([]models.ChecklistTemplate, error)
	SetChecklistActive(ctx context.Context, actor models.Actor, id int, active bool) error
	DeleteChecklist(ctx context.Context, actor models.Actor, id int) error
	ValidateAnswers(template *models.ChecklistTemplate, answers models.ChecklistAnswers) error
}

// ChecklistService stores checklist templates
type ChecklistService struct {
	db     *sql.DB
	schema *gojsonschema.Schema
	logger *observability.Logger
}

const checklistSelectFields = `id, name, fields, mandatory, active, created_at`

// NewChecklistServiceWithLogger creates a ChecklistService. It panics only if the
// embedded definition schema fails to compile.
func NewChecklistServiceWithLogger(db *sql.DB, logger *observability.Logger) *ChecklistService {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(checklistDefinitionSchema))
	if err != nil {
		panic(fmt.Sprintf("invalid checklist definition schema: %v", err))
	}
	return &ChecklistService{db: db, schema: schema, logger: logger}
}

func scanChecklist(row rowScanner) (*models.ChecklistTemplate, error) {
	t := &models.ChecklistTemplate{}
	var fields, mandatory []string
	if err := row.Scan(&t.ID, &t.Name, pq.Array(&fields), pq.Array(&mandatory), &t.Active, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Fields = nonNilStrings(fields)
	t.Mandatory = nonNilStrings(mandatory)
	return t, nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// normalizeDefinition trims labels and replaces nil slices so the schema sees arrays
func normalizeDefinition(def models.ChecklistDefinition) models.ChecklistDefinition {
	out := models.ChecklistDefinition{Name: strings.TrimSpace(def.Name), Active: def.Active}
	out.Fields = make([]string, 0, len(def.Fields))
	for _, f := range def.Fields {
		out.Fields = append(out.Fields, strings.TrimSpace(f))
	}
	out.Mandatory = make([]string, 0, len(def.Mandatory))
	for _, m := range def.Mandatory {
		out.Mandatory = append(out.Mandatory, strings.TrimSpace(m))
	}
	return out
}

// ValidateDefinition checks a template definition against the definition schema
func (s *ChecklistService) ValidateDefinition(def models.ChecklistDefinition) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(def))
	if err != nil {
		return contextutils.WrapError(err, "checklist definition could not be validated")
	}
	if !result.Valid() {
		var problems []string
		for _, verr := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
		}
		return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"invalid checklist definition", strings.Join(problems, "; "))
	}

	fields := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		fields[f] = true
	}
	for _, m := range def.Mandatory {
		if !fields[m] {
			return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
				"invalid checklist definition", fmt.Sprintf("mandatory field %q is not one of the fields", m))
		}
	}
	return nil
}

// ValidateAnswers checks submitted answers against a template. A nil template
// accepts only an empty answer set.
func (s *ChecklistService) ValidateAnswers(template *models.ChecklistTemplate, answers models.ChecklistAnswers) error {
	return ValidateChecklistAnswers(template, answers)
}

// ValidateChecklistAnswers is the stateless form of ValidateAnswers
func ValidateChecklistAnswers(template *models.ChecklistTemplate, answers models.ChecklistAnswers) error {
	if template == nil {
		if len(answers) == 0 {
			return nil
		}
		return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"checklist answers require a checklist template", "")
	}

	var unknown []string
	for key := range answers {
		if !template.HasField(key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"unknown checklist fields", strings.Join(unknown, ", "))
	}

	var missing []string
	for _, field := range template.Mandatory {
		if strings.TrimSpace(answers[field]) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return contextutils.NewAppError(contextutils.ErrorCodeMissingRequired, contextutils.SeverityWarn,
			"mandatory checklist fields are blank", strings.Join(missing, ", "))
	}
	return nil
}

// CreateChecklist stores a new template
func (s *ChecklistService) CreateChecklist(ctx context.Context, actor models.Actor, def models.ChecklistDefinition) (result0 *models.ChecklistTemplate, err error) {
	ctx, span := observability.TraceChecklistFunction(ctx, "create_checklist", observability.AttributeUserID(actor.UserID))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "only administrators can manage checklists")
	}
	def = normalizeDefinition(def)
	if err = s.ValidateDefinition(def); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`INSERT INTO checklists (name, fields, mandatory, active) VALUES ($1, $2, $3, $4) RETURNING %s`, checklistSelectFields)
	result0, err = scanChecklist(s.db.QueryRowContext(ctx, query, def.Name, pq.Array(def.Fields), pq.Array(def.Mandatory), def.Active))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to insert checklist")
	}
	s.logger.Info(ctx, "Created checklist", map[string]interface{}{"checklist_id": result0.ID, "fields": len(result0.Fields)})
	return result0, nil
}

// UpdateChecklist replaces a template definition. Existing report answers are not revalidated.
func (s *ChecklistService) UpdateChecklist(ctx context.Context, actor models.Actor, id int, def models.ChecklistDefinition) (result0 *models.ChecklistTemplate, err error) {
	ctx, span := observability.TraceChecklistFunction(ctx, "update_checklist", observability.AttributeChecklistID(id))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "only administrators can manage checklists")
	}
	def = normalizeDefinition(def)
	if err = s.ValidateDefinition(def); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`UPDATE checklists SET name = $1, fields = $2, mandatory = $3, active = $4 WHERE id = $5 RETURNING %s`, checklistSelectFields)
	result0, err = scanChecklist(s.db.QueryRowContext(ctx, query, def.Name, pq.Array(def.Fields), pq.Array(def.Mandatory), def.Active, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "checklist %d not found", id)
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to update checklist")
	}
	return result0, nil
}

// GetChecklist returns a template, or (nil, nil) when it does not exist
func (s *ChecklistService) GetChecklist(ctx context.Context, id int) (result0 *models.ChecklistTemplate, err error) {
	ctx, span := observability.TraceChecklistFunction(ctx, "get_checklist", observability.AttributeChecklistID(id))
	defer observability.FinishSpan(span, &err)

	return loadChecklist(ctx, s.db, id)
}

// loadChecklist reads a template through q so it can take part in a report transaction
func loadChecklist(ctx context.Context, q querier, id int) (*models.ChecklistTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM checklists WHERE id = $1`, checklistSelectFields)
	t, err := scanChecklist(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get checklist")
	}
	return t, nil
}

// ListChecklists returns templates ordered by name
func (s *ChecklistService) ListChecklists(ctx context.Context, activeOnly bool) (result0 []models.ChecklistTemplate, err error) {
	ctx, span := observability.TraceChecklistFunction(ctx, "list_checklists")
	defer observability.FinishSpan(span, &err)

	query := fmt.Sprintf(`SELECT %s FROM checklists`, checklistSelectFields)
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list checklists")
	}
	defer func() { _ = rows.Close() }()

	templates := []models.ChecklistTemplate{}
	for rows.Next() {
		t, scanErr := scanChecklist(rows)
		if scanErr != nil {
			return nil, contextutils.WrapError(scanErr, "failed to scan checklist")
		}
		templates = append(templates, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating checklists")
	}
	return templates, nil
}

// SetChecklistActive toggles whether a template is offered for new reports
func (s *ChecklistService) SetChecklistActive(ctx context.Context, actor models.Actor, id int, active bool) (err error) {
	ctx, span := observability.TraceChecklistFunction(ctx, "set_checklist_active", observability.AttributeChecklistID(id))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return contextutils.WrapError(contextutils.ErrForbidden, "only administrators can manage checklists")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE checklists SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to update checklist")
	}
	return requireAffected(res, "checklist", id)
}

// DeleteChecklist removes a template. Reports keep their answers and lose the reference.
func (s *ChecklistService) DeleteChecklist(ctx context.Context, actor models.Actor, id int) (err error) {
	ctx, span := observability.TraceChecklistFunction(ctx, "delete_checklist", observability.AttributeChecklistID(id))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return contextutils.WrapError(contextutils.ErrForbidden, "only administrators can manage checklists")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM checklists WHERE id = $1`, id)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete checklist")
	}
	if err = requireAffected(res, "checklist", id); err != nil {
		return err
	}
	s.logger.Info(ctx, "Deleted checklist", map[string]interface{}{"checklist_id": id})
	return nil
}

// requireAffected turns a zero-row update or delete into ErrRecordNotFound
func requireAffected(res sql.Result, entity string, id int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if n == 0 {
		return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "%s %d not found", entity, id)
	}
	return nil
}
