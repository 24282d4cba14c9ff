package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manpowerhq/compliance-api/internal/models"
	"github.com/manpowerhq/compliance-api/internal/service"
)

type fakeCompanyRepo struct {
	companies []models.Company
	created   *models.Company
}

func (f *fakeCompanyRepo) List(context.Context, models.CompanyFilter) ([]models.Company, int, error) {
	return f.companies, len(f.companies), nil
}

func (f *fakeCompanyRepo) ListAll(context.Context) ([]models.Company, error) {
	return f.companies, nil
}

func (f *fakeCompanyRepo) FindByID(_ context.Context, id string) (*models.Company, error) {
	for i := range f.companies {
		if f.companies[i].ID == id {
			return &f.companies[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCompanyRepo) Create(_ context.Context, company *models.Company) error {
	f.created = company
	return nil
}

func (f *fakeCompanyRepo) Update(context.Context, *models.Company) error {
	return nil
}

func newCompanyHandlerForTest(repo *fakeCompanyRepo) *CompanyHandler {
	return NewCompanyHandler(service.NewCompanyService(repo, nil, nil))
}

func TestCompanyHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCompanyHandlerForTest(&fakeCompanyRepo{companies: []models.Company{
		{ID: "company-1", Name: "Falcon Contracting"},
	}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/companies?page=1&limit=20", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data       []models.Company   `json:"data"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Falcon Contracting", envelope.Data[0].Name)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestCompanyHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCompanyHandlerForTest(&fakeCompanyRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/companies/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompanyHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeCompanyRepo{}
	handler := newCompanyHandlerForTest(repo)

	body, _ := json.Marshal(map[string]string{"name": "Gulf Services"})
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/companies", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, "Gulf Services", repo.created.Name)
}

func TestCompanyHandlerCreateRejectsEmptyName(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCompanyHandlerForTest(&fakeCompanyRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/companies", bytes.NewReader([]byte(`{}`)))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
