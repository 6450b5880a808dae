package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"siteworks/internal/models"
	contextutils "siteworks/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var projectColumns = []string{"id", "name", "type", "responsible_id", "status", "start_date", "end_date", "address", "gps_address",
	"latitude", "longitude", "description", "created_at", "updated_at", "responsible_name"}

func projectRow(rows *sqlmock.Rows, id, responsibleID int, name string) *sqlmock.Rows {
	return rows.AddRow(id, name, "Commercial", responsibleID, "active", nil, nil, "Rua 1", "", nil, nil, "", fixedTestTime, fixedTestTime, "Joao")
}

func TestProjectService_CreateProject(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewProjectServiceWithLogger(db, nil, newTestLogger())
	admin := models.Actor{UserID: 1, Role: models.RoleAdmin}

	mock.ExpectQuery("INSERT INTO projects").
		WithArgs("Commercial Building", "Commercial", 2, "active", nil, nil, "Rua 1", "", nil, nil, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

	p, err := service.CreateProject(context.Background(), admin, models.ProjectInput{
		Name:          " Commercial Building ",
		Type:          "Commercial",
		ResponsibleID: 2,
		Address:       "Rua 1",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, p.ID)
	assert.Equal(t, models.ProjectStatusActive, p.Status)
	assert.Equal(t, "Commercial Building", p.Name)
}

func TestProjectService_CreateProject_Validation(t *testing.T) {
	service := NewProjectServiceWithLogger(nil, nil, newTestLogger())
	admin := models.Actor{UserID: 1, Role: models.RoleAdmin}
	lat := 91.0
	lon := 10.0

	_, err := service.CreateProject(context.Background(), models.Actor{UserID: 2, Role: models.RoleUser}, models.ProjectInput{Name: "X", ResponsibleID: 2})
	assert.ErrorIs(t, err, contextutils.ErrForbidden)

	_, err = service.CreateProject(context.Background(), admin, models.ProjectInput{Name: "", ResponsibleID: 2})
	assert.ErrorIs(t, err, contextutils.ErrMissingRequired)

	_, err = service.CreateProject(context.Background(), admin, models.ProjectInput{Name: "X", ResponsibleID: 2, Status: "demolished"})
	assert.ErrorIs(t, err, contextutils.ErrInvalidInput)

	_, err = service.CreateProject(context.Background(), admin, models.ProjectInput{Name: "X", ResponsibleID: 2, Latitude: &lat, Longitude: &lon})
	assert.ErrorIs(t, err, contextutils.ErrValidationFailed)

	_, err = service.CreateProject(context.Background(), admin, models.ProjectInput{Name: "X", ResponsibleID: 2, Latitude: &lon})
	assert.ErrorIs(t, err, contextutils.ErrValidationFailed)
}

func TestProjectService_CreateProject_UnknownResponsible(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewProjectServiceWithLogger(db, nil, newTestLogger())

	mock.ExpectQuery("INSERT INTO projects").WillReturnError(&pq.Error{Code: "23503"})

	_, err := service.CreateProject(context.Background(), models.Actor{UserID: 1, Role: models.RoleAdmin},
		models.ProjectInput{Name: "X", ResponsibleID: 99})
	assert.ErrorIs(t, err, contextutils.ErrInvalidInput)
}

func TestProjectService_GetProject_Access(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewProjectServiceWithLogger(db, nil, newTestLogger())

	for i := 0; i < 3; i++ {
		mock.ExpectQuery("SELECT (.+) FROM projects p LEFT JOIN users u").WithArgs(10).
			WillReturnRows(projectRow(sqlmock.NewRows(projectColumns), 10, 2, "Commercial Building"))
	}
	mock.ExpectQuery("SELECT (.+) FROM projects p LEFT JOIN users u").WithArgs(11).
		WillReturnRows(sqlmock.NewRows(projectColumns))

	p, err := service.GetProject(context.Background(), models.Actor{UserID: 2, Role: models.RoleUser}, 10)
	require.NoError(t, err)
	assert.Equal(t, "Joao", p.ResponsibleName)

	_, err = service.GetProject(context.Background(), models.Actor{UserID: 1, Role: models.RoleAdmin}, 10)
	require.NoError(t, err)

	_, err = service.GetProject(context.Background(), models.Actor{UserID: 3, Role: models.RoleUser}, 10)
	assert.ErrorIs(t, err, contextutils.ErrForbidden)

	_, err = service.GetProject(context.Background(), models.Actor{UserID: 1, Role: models.RoleAdmin}, 11)
	assert.ErrorIs(t, err, contextutils.ErrRecordNotFound)
}

func TestProjectService_ListProjects_ScopedForUsers(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewProjectServiceWithLogger(db, nil, newTestLogger())

	mock.ExpectQuery("WHERE p.responsible_id = ").WithArgs(2).
		WillReturnRows(projectRow(sqlmock.NewRows(projectColumns), 10, 2, "Commercial Building"))
	mock.ExpectQuery("FROM projects p LEFT JOIN users u ON u.id = p.responsible_id ORDER BY").
		WillReturnRows(projectRow(projectRow(sqlmock.NewRows(projectColumns), 10, 2, "A"), 11, 3, "B"))

	mine, err := service.ListProjects(context.Background(), models.Actor{UserID: 2, Role: models.RoleUser})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := service.ListProjects(context.Background(), models.Actor{UserID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestProjectService_DeleteProject_RemovesPhotoFiles(t *testing.T) {
	db, mock := newMockDB(t)
	dir := t.TempDir()
	store, err := NewLocalFileStore(dir, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, store.Write(context.Background(), "20250314_093000_slab.jpg", []byte("jpeg")))
	service := NewProjectServiceWithLogger(db, store, newTestLogger())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT ph.file_name FROM photos").WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"file_name"}).AddRow("20250314_093000_slab.jpg"))
	mock.ExpectExec("DELETE FROM projects").WithArgs(10).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, service.DeleteProject(context.Background(), models.Actor{UserID: 1, Role: models.RoleAdmin}, 10))
	_, statErr := os.Stat(filepath.Join(dir, "20250314_093000_slab.jpg"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProjectService_DeleteProject_NotFoundRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewProjectServiceWithLogger(db, nil, newTestLogger())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT ph.file_name FROM photos").WithArgs(12).
		WillReturnRows(sqlmock.NewRows([]string{"file_name"}))
	mock.ExpectExec("DELETE FROM projects").WithArgs(12).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := service.DeleteProject(context.Background(), models.Actor{UserID: 1, Role: models.RoleAdmin}, 12)
	assert.ErrorIs(t, err, contextutils.ErrRecordNotFound)
}
