package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manpowerhq/compliance-api/internal/models"
	appErrors "github.com/manpowerhq/compliance-api/pkg/errors"
)

type stubDocumentTypeStore struct {
	types    []models.DocumentType
	upserted *models.DocumentType
}

func (s *stubDocumentTypeStore) ListAll(_ context.Context) ([]models.DocumentType, error) {
	return s.types, nil
}

func (s *stubDocumentTypeStore) Upsert(_ context.Context, docType *models.DocumentType) error {
	s.upserted = docType
	return nil
}

func TestCatalogServiceUpsert(t *testing.T) {
	store := &stubDocumentTypeStore{}
	svc := NewCatalogService(store, nil, nil)

	docType, err := svc.Upsert(context.Background(), "trade_license", UpsertDocumentTypeRequest{
		DisplayName:    "Trade License",
		Mandatory:      true,
		HasExpiry:      true,
		RequiredFields: []string{"license_number"},
	})
	require.NoError(t, err)
	require.NotNil(t, store.upserted)
	assert.Equal(t, "trade_license", docType.Key)
	assert.Equal(t, "Trade License", store.upserted.DisplayName)
	assert.True(t, store.upserted.Mandatory)
}

func TestCatalogServiceUpsertRejectsMissingName(t *testing.T) {
	store := &stubDocumentTypeStore{}
	svc := NewCatalogService(store, nil, nil)

	_, err := svc.Upsert(context.Background(), "visa", UpsertDocumentTypeRequest{})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Nil(t, store.upserted)
}

func TestCatalogServiceList(t *testing.T) {
	store := &stubDocumentTypeStore{types: []models.DocumentType{
		{Key: "visa", DisplayName: "Residence Visa", Mandatory: true, HasExpiry: true},
		{Key: "police_clearance", DisplayName: "Police Clearance Certificate"},
	}}
	svc := NewCatalogService(store, nil, nil)

	types, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, types, 2)
}
