package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"siteworks/internal/config"
	"siteworks/internal/middleware"
	"siteworks/internal/models"
	"siteworks/internal/observability"
	"siteworks/internal/worker"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	ownerActor = models.Actor{UserID: 2, Role: models.RoleUser}
	adminActor = models.Actor{UserID: 1, Role: models.RoleAdmin}
)

func newTestLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{IsTest: true}
	cfg.ApplyDefaults()
	cfg.Server.SessionSecret = "test-secret"
	return cfg
}

// newTestRouter returns a gin engine with a cookie session store. When actor is
// non-nil it is placed in the context the way RequireAuth would.
func newTestRouter(actor *models.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test-session", cookie.NewStore([]byte("test-secret"))))
	if actor != nil {
		a := *actor
		r.Use(func(c *gin.Context) {
			c.Set(middleware.UserIDKey, a.UserID)
			c.Set(middleware.ActorKey, a)
			c.Next()
		})
	}
	return r
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			payload, _ := json.Marshal(b)
			reader = bytes.NewBuffer(payload)
		}
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return serveRecorded(r, req)
}

func serveRecorded(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ret unpacks the (value, error) pair returned by a mocked method. A nil
// first return becomes the zero T.
func ret[T any](args mock.Arguments) (T, error) {
	v, _ := args.Get(0).(T)
	return v, args.Error(1)
}

// MockUserService for testing
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	return ret[*models.User](m.Called(ctx, name, email, password, role))
}

func (m *MockUserService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return ret[*models.User](m.Called(ctx, id))
}

func (m *MockUserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return ret[*models.User](m.Called(ctx, email))
}

func (m *MockUserService) AuthenticateUser(ctx context.Context, email, password string) (*models.User, error) {
	return ret[*models.User](m.Called(ctx, email, password))
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return ret[[]models.User](m.Called(ctx))
}

func (m *MockUserService) UpdateUserPassword(ctx context.Context, userID int, newPassword string) error {
	return m.Called(ctx, userID, newPassword).Error(0)
}

func (m *MockUserService) DeleteUser(ctx context.Context, actor models.Actor, userID int) error {
	return m.Called(ctx, actor, userID).Error(0)
}

func (m *MockUserService) IsAdmin(ctx context.Context, userID int) (bool, error) {
	return ret[bool](m.Called(ctx, userID))
}

func (m *MockUserService) EnsureAdminUserExists(ctx context.Context, name, email, password string) error {
	return m.Called(ctx, name, email, password).Error(0)
}

// MockProjectService for testing
type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) CreateProject(ctx context.Context, actor models.Actor, in models.ProjectInput) (*models.Project, error) {
	return ret[*models.Project](m.Called(ctx, actor, in))
}

func (m *MockProjectService) GetProject(ctx context.Context, actor models.Actor, id int) (*models.Project, error) {
	return ret[*models.Project](m.Called(ctx, actor, id))
}

func (m *MockProjectService) ListProjects(ctx context.Context, actor models.Actor) ([]models.Project, error) {
	return ret[[]models.Project](m.Called(ctx, actor))
}

func (m *MockProjectService) UpdateProject(ctx context.Context, actor models.Actor, id int, in models.ProjectInput) (*models.Project, error) {
	return ret[*models.Project](m.Called(ctx, actor, id, in))
}

func (m *MockProjectService) DeleteProject(ctx context.Context, actor models.Actor, id int) error {
	return m.Called(ctx, actor, id).Error(0)
}

// MockReportService for testing
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) CreateReport(ctx context.Context, actor models.Actor, in models.ReportInput) (*models.Report, error) {
	return ret[*models.Report](m.Called(ctx, actor, in))
}

func (m *MockReportService) GetReport(ctx context.Context, actor models.Actor, id int) (*models.Report, error) {
	return ret[*models.Report](m.Called(ctx, actor, id))
}

func (m *MockReportService) ListReports(ctx context.Context, actor models.Actor, filter models.ReportFilter) ([]models.Report, error) {
	return ret[[]models.Report](m.Called(ctx, actor, filter))
}

func (m *MockReportService) UpdateReport(ctx context.Context, actor models.Actor, id int, in models.ReportInput) (*models.Report, error) {
	return ret[*models.Report](m.Called(ctx, actor, id, in))
}

func (m *MockReportService) ApproveReport(ctx context.Context, actor models.Actor, id int, remarks string) (*models.Report, error) {
	return ret[*models.Report](m.Called(ctx, actor, id, remarks))
}

func (m *MockReportService) RejectReport(ctx context.Context, actor models.Actor, id int, in models.RejectInput) (*models.Report, error) {
	return ret[*models.Report](m.Called(ctx, actor, id, in))
}

func (m *MockReportService) GetApprovalHistory(ctx context.Context, actor models.Actor, id int) ([]models.ApprovalEntry, error) {
	return ret[[]models.ApprovalEntry](m.Called(ctx, actor, id))
}

func (m *MockReportService) DeleteReport(ctx context.Context, actor models.Actor, id int) error {
	return m.Called(ctx, actor, id).Error(0)
}

// MockPhotoService for testing
type MockPhotoService struct {
	mock.Mock
}

func (m *MockPhotoService) UploadPhoto(ctx context.Context, actor models.Actor, reportID int, in models.PhotoInput) (*models.Photo, error) {
	return ret[*models.Photo](m.Called(ctx, actor, reportID, in))
}

func (m *MockPhotoService) ListPhotos(ctx context.Context, actor models.Actor, reportID int) ([]models.Photo, error) {
	return ret[[]models.Photo](m.Called(ctx, actor, reportID))
}

func (m *MockPhotoService) OpenPhoto(ctx context.Context, actor models.Actor, photoID int) (*models.Photo, io.ReadCloser, error) {
	args := m.Called(ctx, actor, photoID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Photo), args.Get(1).(io.ReadCloser), args.Error(2)
}

// MockChecklistService for testing
type MockChecklistService struct {
	mock.Mock
}

func (m *MockChecklistService) CreateChecklist(ctx context.Context, actor models.Actor, def models.ChecklistDefinition) (*models.ChecklistTemplate, error) {
	return ret[*models.ChecklistTemplate](m.Called(ctx, actor, def))
}

func (m *MockChecklistService) UpdateChecklist(ctx context.Context, actor models.Actor, id int, def models.ChecklistDefinition) (*models.ChecklistTemplate, error) {
	return ret[*models.ChecklistTemplate](m.Called(ctx, actor, id, def))
}

func (m *MockChecklistService) GetChecklist(ctx context.Context, id int) (*models.ChecklistTemplate, error) {
	return ret[*models.ChecklistTemplate](m.Called(ctx, id))
}

func (m *MockChecklistService) ListChecklists(ctx context.Context, activeOnly bool) ([]models.ChecklistTemplate, error) {
	return ret[[]models.ChecklistTemplate](m.Called(ctx, activeOnly))
}

func (m *MockChecklistService) SetChecklistActive(ctx context.Context, actor models.Actor, id int, active bool) error {
	return m.Called(ctx, actor, id, active).Error(0)
}

func (m *MockChecklistService) DeleteChecklist(ctx context.Context, actor models.Actor, id int) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockChecklistService) ValidateAnswers(template *models.ChecklistTemplate, answers models.ChecklistAnswers) error {
	return m.Called(template, answers).Error(0)
}

// MockContactService for testing
type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) CreateContact(ctx context.Context, actor models.Actor, in models.ContactInput) (*models.Contact, error) {
	return ret[*models.Contact](m.Called(ctx, actor, in))
}

func (m *MockContactService) ListContacts(ctx context.Context, actor models.Actor, projectID int) ([]models.Contact, error) {
	return ret[[]models.Contact](m.Called(ctx, actor, projectID))
}

func (m *MockContactService) DeleteContact(ctx context.Context, actor models.Actor, id int) error {
	return m.Called(ctx, actor, id).Error(0)
}

// MockAlertService for testing
type MockAlertService struct {
	mock.Mock
}

func (m *MockAlertService) ListUpcomingAlerts(ctx context.Context, actor models.Actor, limit int) ([]models.Alert, error) {
	return ret[[]models.Alert](m.Called(ctx, actor, limit))
}

func (m *MockAlertService) ResolveAlert(ctx context.Context, actor models.Actor, id int) (*models.Alert, error) {
	return ret[*models.Alert](m.Called(ctx, actor, id))
}

// MockDashboardService for testing
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) GetDashboard(ctx context.Context, actor models.Actor) (*models.Dashboard, error) {
	return ret[*models.Dashboard](m.Called(ctx, actor))
}

func (m *MockDashboardService) GetAdminStats(ctx context.Context, actor models.Actor) (*models.AdminStats, error) {
	return ret[*models.AdminStats](m.Called(ctx, actor))
}

// MockDocumentService for testing
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) RenderReport(ctx context.Context, actor models.Actor, reportID int) (*models.ReportDocument, error) {
	return ret[*models.ReportDocument](m.Called(ctx, actor, reportID))
}

// MockExportService for testing
type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) ExportRegister(ctx context.Context, actor models.Actor, projectID int) (*models.ReportDocument, error) {
	return ret[*models.ReportDocument](m.Called(ctx, actor, projectID))
}

// MockWorkerController for testing
type MockWorkerController struct {
	mock.Mock
}

func (m *MockWorkerController) GetStatus() worker.Status {
	return m.Called().Get(0).(worker.Status)
}

func (m *MockWorkerController) GetHistory() []worker.RunRecord {
	return m.Called().Get(0).([]worker.RunRecord)
}

func (m *MockWorkerController) GetActivityLogs() []worker.ActivityLog {
	return m.Called().Get(0).([]worker.ActivityLog)
}

func (m *MockWorkerController) GetInstance() string {
	return m.Called().String(0)
}

func (m *MockWorkerController) TriggerManualRun() {
	m.Called()
}

func (m *MockWorkerController) Pause(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockWorkerController) Resume(ctx context.Context) {
	m.Called(ctx)
}
