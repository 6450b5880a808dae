package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"siteworks/internal/config"
	"siteworks/internal/models"
	"siteworks/internal/observability"
	contextutils "siteworks/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) CreateUser(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	args := m.Called(ctx, name, email, password, role)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUsers) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUsers) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUsers) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *mockUsers) UpdateUserPassword(ctx context.Context, userID int, newPassword string) error {
	return m.Called(ctx, userID, newPassword).Error(0)
}

func (m *mockUsers) DeleteUser(ctx context.Context, actor models.Actor, userID int) error {
	return m.Called(ctx, actor, userID).Error(0)
}

func (m *mockUsers) IsAdmin(ctx context.Context, userID int) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockUsers) EnsureAdminUserExists(ctx context.Context, name, email, password string) error {
	return m.Called(ctx, name, email, password).Error(0)
}

type mockDocuments struct{ mock.Mock }

func (m *mockDocuments) RenderReport(ctx context.Context, actor models.Actor, reportID int) (*models.ReportDocument, error) {
	args := m.Called(ctx, actor, reportID)
	if d := args.Get(0); d != nil {
		return d.(*models.ReportDocument), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockExports struct{ mock.Mock }

func (m *mockExports) ExportRegister(ctx context.Context, actor models.Actor, projectID int) (*models.ReportDocument, error) {
	args := m.Called(ctx, actor, projectID)
	if d := args.Get(0); d != nil {
		return d.(*models.ReportDocument), args.Error(1)
	}
	return nil, args.Error(1)
}

func testLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

func run(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMaskDatabaseURL(t *testing.T) {
	assert.Equal(t, "postgres://***:***@db:5432/siteworks", MaskDatabaseURL("postgres://app:secret@db:5432/siteworks"))
	assert.Equal(t, "postgres://localhost/siteworks", MaskDatabaseURL("postgres://localhost/siteworks"))
}

func TestUserList(t *testing.T) {
	users := new(mockUsers)
	users.On("ListUsers", mock.Anything).Return([]models.User{
		{ID: 1, Name: "Administrator", Email: "admin@elp.com", Role: models.RoleAdmin, CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
	}, nil)

	out, err := run(t, UserCommands(users, testLogger()), "", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "admin@elp.com")
	assert.Contains(t, out, "2025-01-02")
}

func TestUserCreate(t *testing.T) {
	users := new(mockUsers)
	users.On("CreateUser", mock.Anything, "Ana Souza", "ana@example.com", "s3cret!", models.RoleUser).
		Return(&models.User{ID: 5, Email: "ana@example.com", Role: models.RoleUser}, nil)

	out, err := run(t, UserCommands(users, testLogger()), "s3cret!\ns3cret!\n",
		"create", "--name", "Ana Souza", "--email", "ana@example.com")

	require.NoError(t, err)
	assert.Contains(t, out, "Created user ana@example.com (ID: 5)")
	users.AssertExpectations(t)
}

func TestUserCreate_RejectsUnknownRole(t *testing.T) {
	users := new(mockUsers)

	_, err := run(t, UserCommands(users, testLogger()), "", "create", "--name", "A", "--email", "a@example.com", "--role", "owner")

	require.Error(t, err)
	assert.ErrorIs(t, err, contextutils.ErrInvalidInput)
	users.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUserResetPassword(t *testing.T) {
	users := new(mockUsers)
	users.On("GetUserByEmail", mock.Anything, "ana@example.com").Return(&models.User{ID: 5, Email: "ana@example.com"}, nil)
	users.On("UpdateUserPassword", mock.Anything, 5, "n3w-pass").Return(nil)

	out, err := run(t, UserCommands(users, testLogger()), "n3w-pass\nn3w-pass\n", "reset-password", "ana@example.com")

	require.NoError(t, err)
	assert.Contains(t, out, "Password reset for ana@example.com")
	users.AssertExpectations(t)
}

func TestUserResetPassword_Mismatch(t *testing.T) {
	users := new(mockUsers)
	users.On("GetUserByEmail", mock.Anything, "ana@example.com").Return(&models.User{ID: 5, Email: "ana@example.com"}, nil)

	_, err := run(t, UserCommands(users, testLogger()), "one\ntwo\n", "reset-password", "ana@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "passwords do not match")
	users.AssertNotCalled(t, "UpdateUserPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserResetPassword_UnknownUser(t *testing.T) {
	users := new(mockUsers)
	users.On("GetUserByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

	_, err := run(t, UserCommands(users, testLogger()), "", "reset-password", "ghost@example.com")

	require.Error(t, err)
	assert.ErrorIs(t, err, contextutils.ErrRecordNotFound)
}

func TestReportExportPDF(t *testing.T) {
	documents := new(mockDocuments)
	documents.On("RenderReport", mock.Anything, cliActor, 31).
		Return(&models.ReportDocument{DownloadName: "ELP-2025-001.pdf", Data: []byte("%PDF-1.3")}, nil)
	dir := t.TempDir()

	out, err := run(t, ReportCommands(documents, new(mockExports), testLogger()), "", "export-pdf", "31", "--out", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "ELP-2025-001.pdf")
	data, err := os.ReadFile(filepath.Join(dir, "ELP-2025-001.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))
}

func TestReportExportPDF_InvalidID(t *testing.T) {
	documents := new(mockDocuments)

	_, err := run(t, ReportCommands(documents, new(mockExports), testLogger()), "", "export-pdf", "abc")

	assert.ErrorIs(t, err, contextutils.ErrInvalidInput)
	documents.AssertNotCalled(t, "RenderReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportExportRegister(t *testing.T) {
	exports := new(mockExports)
	exports.On("ExportRegister", mock.Anything, cliActor, 10).
		Return(&models.ReportDocument{DownloadName: "../commercial-building-register.xlsx", Data: []byte("PK")}, nil)
	dir := t.TempDir()

	_, err := run(t, ReportCommands(new(mockDocuments), exports, testLogger()), "", "export-register", "10", "-o", dir)

	require.NoError(t, err)
	// the download name never escapes the output directory
	_, err = os.Stat(filepath.Join(dir, "commercial-building-register.xlsx"))
	assert.NoError(t, err)
}

func TestDatabaseStats(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT current_database()")).
		WillReturnRows(sqlmock.NewRows([]string{"current_database"}).AddRow("siteworks"))
	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT inet_server_addr()::text")).
		WillReturnRows(sqlmock.NewRows([]string{"inet_server_addr"}).AddRow("10.0.0.5"))
	for i, table := range statsTables {
		sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM " + table)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(i + 1))
	}
	sqlMock.ExpectQuery("SELECT status, COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("approved", 2).
			AddRow("pending", 1))

	cfg := &config.Config{}
	out, err := run(t, DatabaseCommands(db, nil, cfg, testLogger()), "", "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Connected to siteworks on 10.0.0.5")
	assert.Regexp(t, `reports\s+3`, out)
	assert.Regexp(t, `reports\.approved\s+2`, out)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
