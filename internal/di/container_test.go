package di

import (
	"context"
	"errors"
	"testing"

	"siteworks/internal/config"
	"siteworks/internal/observability"
	"siteworks/internal/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ServiceContainerTestSuite wires the container on a mocked database
type ServiceContainerTestSuite struct {
	suite.Suite
	mock      sqlmock.Sqlmock
	Container *ServiceContainer
}

func TestServiceContainerTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceContainerTestSuite))
}

func (s *ServiceContainerTestSuite) SetupTest() {
	cfg := &config.Config{IsTest: true}
	cfg.ApplyDefaults()
	cfg.Storage.UploadDir = s.T().TempDir()
	cfg.Storage.DocumentDir = s.T().TempDir()

	db, mock, err := sqlmock.New()
	require.NoError(s.T(), err)
	s.mock = mock

	s.Container = NewServiceContainer(cfg, observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
	require.NoError(s.T(), s.Container.InitializeWithDB(context.Background(), db))
}

func (s *ServiceContainerTestSuite) TearDownTest() {
	s.mock.ExpectClose()
	assert.NoError(s.T(), s.Container.Shutdown(context.Background()))
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func (s *ServiceContainerTestSuite) TestServicesAreRegistered() {
	t := s.T()

	users, err := s.Container.GetUserService()
	require.NoError(t, err)
	assert.NotNil(t, users)

	projects, err := s.Container.GetProjectService()
	require.NoError(t, err)
	assert.NotNil(t, projects)

	reports, err := s.Container.GetReportService()
	require.NoError(t, err)
	assert.IsType(t, &services.ReportService{}, reports)

	_, err = s.Container.GetPhotoService()
	assert.NoError(t, err)
	_, err = s.Container.GetChecklistService()
	assert.NoError(t, err)
	_, err = s.Container.GetContactService()
	assert.NoError(t, err)
	_, err = s.Container.GetDashboardService()
	assert.NoError(t, err)
	_, err = s.Container.GetDocumentService()
	assert.NoError(t, err)
	_, err = s.Container.GetExportService()
	assert.NoError(t, err)

	alerts, err := s.Container.GetAlertService()
	require.NoError(t, err)
	assert.NotNil(t, alerts)

	notifications, err := s.Container.GetNotificationService()
	require.NoError(t, err)
	assert.NotNil(t, notifications)

	m, err := s.Container.GetMailer()
	require.NoError(t, err)
	assert.IsType(t, &services.TestEmailService{}, m)

	assert.NotNil(t, s.Container.GetEventHub())
	assert.NotNil(t, s.Container.GetDatabase())
	assert.NotNil(t, s.Container.GetConfig())
	assert.NotNil(t, s.Container.GetLogger())
}

func (s *ServiceContainerTestSuite) TestGetService_Unknown() {
	_, err := s.Container.GetService("billing")
	assert.Error(s.T(), err)
}

func (s *ServiceContainerTestSuite) TestGetServiceAs_WrongType() {
	_, err := GetServiceAs[*services.PhotoService](s.Container, serviceUser)
	assert.Error(s.T(), err)
}

type recordingService struct {
	name string
	log  *[]string
}

func (r recordingService) Startup(context.Context) error {
	*r.log = append(*r.log, "start "+r.name)
	return nil
}

func (r recordingService) Shutdown(context.Context) error {
	*r.log = append(*r.log, "stop "+r.name)
	return nil
}

func TestServiceContainer_LifecycleOrder(t *testing.T) {
	var log []string
	sc := NewServiceContainer(&config.Config{}, observability.NewLogger(nil))
	sc.register("mailer", recordingService{"mailer", &log})
	sc.register("plain", struct{}{})
	sc.register("notification", recordingService{"notification", &log})
	sc.closers = append(sc.closers, func() error {
		log = append(log, "close db")
		return nil
	})

	require.NoError(t, sc.startupServices(context.Background()))
	require.NoError(t, sc.cleanup(context.Background()))

	assert.Equal(t, []string{
		"start mailer", "start notification",
		"stop notification", "stop mailer",
		"close db",
	}, log)
	assert.Nil(t, sc.closers)
}

func TestServiceContainer_ShutdownJoinsErrors(t *testing.T) {
	sc := NewServiceContainer(&config.Config{}, observability.NewLogger(nil))
	sc.closers = append(sc.closers,
		func() error { return errors.New("db close failed") },
		func() error { return nil },
	)

	err := sc.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db close failed")
}
