package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"siteworks/internal/config"
	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface is the account store behind login, the admin user
// screens and RequireAdmin.
type UserServiceInterface interface {
	CreateUser(ctx context.Context, name, email, password string, role models.Role) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserPassword(ctx context.Context, userID int, newPassword string) error
	DeleteUser(ctx context.Context, actor models.Actor, userID int) error
	IsAdmin(ctx context.Context, userID int) (bool, error)
	EnsureAdminUserExists(ctx context.Context, name, email, password string) error
}

// UserService keeps accounts in the users table with bcrypt password hashes
type UserService struct {
	db     *sql.DB
	cfg    *config.Config
	logger *observability.Logger
}

const userSelectFields = `id, name, email, password_hash, role, created_at, updated_at`

// MinPasswordLength is enforced on create and reset
const MinPasswordLength = 6

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var role string
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	return user, nil
}

// findUser loads the single user matching where; no match is (nil, nil)
func (s *UserService) findUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := "SELECT " + userSelectFields + " FROM users WHERE " + where
	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return user, nil
}

// hashPassword enforces MinPasswordLength and returns the bcrypt hash
func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to hash password")
	}
	return string(hash), nil
}

func requireUserRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to get rows affected")
	}
	if n == 0 {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}
	return nil
}

// NewUserService builds the service over db
func NewUserService(db *sql.DB, cfg *config.Config, logger *observability.Logger) *UserService {
	return &UserService{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// CreateUser registers a new account. Email addresses are stored lower-cased.
func (s *UserService) CreateUser(ctx context.Context, name, email, password string, role models.Role) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "create_user", attribute.String("user.email", email))
	defer observability.FinishSpan(span, &err)

	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "name cannot be empty")
	}
	if !contextutils.IsValidEmail(email) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid email address %q", email)
	}
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown role %q", role)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	query := `INSERT INTO users (name, email, password_hash, role, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	var id int
	err = s.db.QueryRowContext(ctx, query, name, email, hash, string(role), now, now).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "email %s is already registered", email)
		}
		return nil, contextutils.WrapError(err, "failed to insert user")
	}

	s.logger.Info(ctx, "Created user", map[string]interface{}{"user_id": id, "role": string(role)})
	return &models.User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AuthenticateUser returns the account for email when password matches.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *UserService) AuthenticateUser(ctx context.Context, email, password string) (user *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "authenticate_user", attribute.String("user.email", email))
	defer observability.FinishSpan(span, &err)

	user, err = s.GetUserByEmail(ctx, email)
	switch {
	case err != nil:
		return nil, err
	case user == nil || user.PasswordHash == "",
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil:
		return nil, contextutils.ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID retrieves a user by their ID. A missing user is (nil, nil).
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_id", observability.AttributeUserID(id))
	defer observability.FinishSpan(span, &err)

	found, err := s.findUser(ctx, "id = $1", id)
	if err != nil {
		s.logger.Error(ctx, "Failed to load user", err, map[string]interface{}{"user_id": id})
		return nil, contextutils.WrapError(err, "failed to load user")
	}
	span.SetAttributes(attribute.Bool("user.found", found != nil))
	return found, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "get_user_by_email", attribute.String("user.email", email))
	defer observability.FinishSpan(span, &err)

	found, err := s.findUser(ctx, "email = $1", strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load user")
	}
	return found, nil
}

// ListUsers returns every account ordered by name
func (s *UserService) ListUsers(ctx context.Context) (result0 []models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "list_users")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, "SELECT "+userSelectFields+" FROM users ORDER BY name, id")
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list users")
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	users := []models.User{}
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, contextutils.WrapError(scanErr, "failed to scan user")
		}
		users = append(users, *user)
	}
	if err = rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating users")
	}
	return users, nil
}

// UpdateUserPassword sets a new bcrypt hash for the user
func (s *UserService) UpdateUserPassword(ctx context.Context, userID int, newPassword string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "update_user_password", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`, hash, time.Now(), userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update user password")
	}
	if err = requireUserRow(result); err != nil {
		return err
	}

	s.logger.Info(ctx, "Password updated", map[string]interface{}{"user_id": userID})
	return nil
}

// DeleteUser removes an account. Administrators cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, actor models.Actor, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "delete_user", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	if !actor.IsAdmin() {
		return contextutils.WrapError(contextutils.ErrForbidden, "only administrators can delete users")
	}
	if actor.UserID == userID {
		return contextutils.WrapError(contextutils.ErrConflict, "administrators cannot delete their own account")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		if isForeignKeyError(err) {
			return contextutils.WrapError(contextutils.ErrConflict, "user still owns projects or reports")
		}
		return contextutils.WrapError(err, "failed to delete user")
	}
	if err = requireUserRow(result); err != nil {
		return err
	}

	s.logger.Info(ctx, "User deleted", map[string]interface{}{"user_id": userID, "deleted_by": actor.UserID})
	return nil
}

// IsAdmin checks the role column for userID
func (s *UserService) IsAdmin(ctx context.Context, userID int) (result0 bool, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "is_admin", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	var role string
	err = s.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, contextutils.WrapError(err, "failed to check user role")
	}
	return models.Role(role) == models.RoleAdmin, nil
}

// EnsureAdminUserExists creates the bootstrap administrator, or repairs its
// role and password when the account already exists.
func (s *UserService) EnsureAdminUserExists(ctx context.Context, name, email, password string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "ensure_admin_user_exists", attribute.String("admin.email", email))
	defer observability.FinishSpan(span, &err)

	if email == "" {
		return contextutils.ErrorWithContextf("admin email cannot be empty")
	}
	if password == "" {
		return contextutils.ErrorWithContextf("admin password cannot be empty")
	}

	var existing *models.User
	existing, err = s.GetUserByEmail(ctx, email)
	if err != nil {
		return contextutils.WrapError(err, "failed to check if admin user exists")
	}

	if existing == nil {
		if _, err = s.CreateUser(ctx, name, email, password, models.RoleAdmin); err != nil {
			return contextutils.WrapError(err, "failed to create admin user")
		}
		s.logger.Info(ctx, "Created admin user", map[string]interface{}{"email": email})
		return nil
	}

	if existing.Role != models.RoleAdmin {
		if _, err = s.db.ExecContext(ctx, `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`, string(models.RoleAdmin), time.Now(), existing.ID); err != nil {
			return contextutils.WrapError(err, "failed to grant admin role")
		}
		s.logger.Warn(ctx, "Granted admin role to configured admin account", map[string]interface{}{"user_id": existing.ID})
	}

	if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(password)) == nil {
		s.logger.Info(ctx, "Admin user already exists with correct password", map[string]interface{}{"email": email})
		return nil
	}

	if err = s.UpdateUserPassword(ctx, existing.ID, password); err != nil {
		return contextutils.WrapError(err, "failed to update admin user password")
	}
	s.logger.Info(ctx, "Updated password for admin user", map[string]interface{}{"email": email})
	return nil
}
