package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/guyp-app/plantcare-api/internal/domain/ai"
	domain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
)

var analysisTestColumns = []string{
	"id", "user_id", "plant_type", "prediction", "confidence", "lat", "lng",
	"image_ref", "ai_response", "ai_summary", "ai_generated", "created_at",
}

func newRepo(t *testing.T) (*AnalysisRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAnalysisRepository(db), mock
}

func TestCreate_InsertsBaseRecord(t *testing.T) {
	repo, mock := newRepo(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &domain.Analysis{
		ID:         "a-1",
		UserID:     "u-1",
		PlantType:  domain.PlantPotato,
		Prediction: "Late_blight",
		Confidence: 0.87,
		Location:   domain.Location{Lat: 4.6, Lng: -74.08},
		ImageRef:   "blob-1.jpg",
		CreatedAt:  created,
	}

	mock.ExpectExec("INSERT INTO plant_analysis").
		WithArgs("a-1", "u-1", "potato", "Late_blight", 0.87, 4.6, -74.08, "blob-1.jpg", false, created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.Create(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, domain.AnalysisID("a-1"), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_GeneratesIDWhenAbsent(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("INSERT INTO plant_analysis").
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := repo.Create(context.Background(), &domain.Analysis{
		UserID:    "u-1",
		PlantType: domain.PlantTomato,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM plant_analysis").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(analysisTestColumns))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_NullAIColumnsStayUnset(t *testing.T) {
	repo, mock := newRepo(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM plant_analysis").
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows(analysisTestColumns).
			AddRow("a-1", "u-1", "potato", "Late_blight", 0.87, 4.6, -74.08,
				"blob-1.jpg", nil, nil, false, created))

	a, err := repo.Get(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Nil(t, a.AIResponse)
	assert.Nil(t, a.AISummary)
	assert.False(t, a.AIGenerated)
	assert.Equal(t, domain.PlantPotato, a.PlantType)
}

func TestGet_ParsesAIColumns(t *testing.T) {
	repo, mock := newRepo(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	respJSON := `{"mensaje":"hola","descargo":"` + ai.Disclaimer + `"}`
	sumJSON := `{"tema":"Tizón","resumen":"r","descargo":"` + ai.Disclaimer + `"}`

	mock.ExpectQuery("SELECT (.+) FROM plant_analysis").
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows(analysisTestColumns).
			AddRow("a-1", "u-1", "potato", "Late_blight", 0.87, 4.6, -74.08,
				"blob-1.jpg", respJSON, sumJSON, true, created))

	a, err := repo.Get(context.Background(), "a-1")
	require.NoError(t, err)
	require.NotNil(t, a.AIResponse)
	assert.Equal(t, "hola", a.AIResponse.Message)
	require.NotNil(t, a.AISummary)
	assert.Equal(t, "Tizón", a.AISummary.Topic)
	assert.True(t, a.AIGenerated)
}

func TestUpdateAIFields_ReportsModified(t *testing.T) {
	repo, mock := newRepo(t)

	resp := &ai.Explanation{Message: "hola", Disclaimer: ai.Disclaimer}
	sum := &ai.Summary{Topic: "t", Summary: "s", Disclaimer: ai.Disclaimer}

	mock.ExpectExec("UPDATE plant_analysis").
		WillReturnResult(sqlmock.NewResult(0, 1))

	modified, err := repo.UpdateAIFields(context.Background(), "a-1", resp, sum, true)
	require.NoError(t, err)
	assert.True(t, modified)
}

func TestUpdateAIFields_MissingIDIsNotAnError(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("UPDATE plant_analysis").
		WillReturnResult(sqlmock.NewResult(0, 0))

	modified, err := repo.UpdateAIFields(context.Background(), "ghost", nil, nil, false)
	require.NoError(t, err)
	assert.False(t, modified)
}

func TestDelete_ReportsModified(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("DELETE FROM plant_analysis").
		WithArgs("a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	modified, err := repo.Delete(context.Background(), "a-1")
	require.NoError(t, err)
	assert.True(t, modified)

	mock.ExpectExec("DELETE FROM plant_analysis").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	modified, err = repo.Delete(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, modified)
}

func TestListByUser_ScansRows(t *testing.T) {
	repo, mock := newRepo(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM plant_analysis").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(analysisTestColumns).
			AddRow("a-2", "u-1", "tomato", "Healthy", 0.99, 1.0, 2.0, "b2.jpg", nil, nil, false, created).
			AddRow("a-1", "u-1", "potato", "Late_blight", 0.87, 4.6, -74.08, "b1.jpg", nil, nil, false, created.Add(-time.Hour)))

	out, err := repo.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, domain.AnalysisID("a-2"), out[0].ID)
	assert.Equal(t, "Late_blight", out[1].Prediction)
}

func TestList_StorageErrorIsWrapped(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM plant_analysis").
		WillReturnError(assert.AnError)

	_, err := repo.ListAll(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}
