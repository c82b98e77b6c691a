package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	ai "github.com/guyp-app/plantcare-api/internal/domain/ai"
	domain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

const analysisColumns = `id, user_id, plant_type, prediction, confidence, lat, lng,
       image_ref, ai_response, ai_summary, ai_generated, created_at`

// Create inserts the base record, generating the id and created_at when
// absent. The AI columns are left NULL until the enrichment update.
func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) (domain.AnalysisID, error) {
	const q = `
INSERT INTO plant_analysis
(id, user_id, plant_type, prediction, confidence, lat, lng, image_ref, ai_generated, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?);
`
	id := a.ID
	if id == "" {
		id = domain.AnalysisID(uuid.New().String())
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, q,
		id, a.UserID, a.PlantType, a.Prediction, a.Confidence,
		a.Location.Lat, a.Location.Lng, a.ImageRef, a.AIGenerated, created,
	)
	if err != nil {
		return "", storageErr("insert analysis", err)
	}
	a.CreatedAt = created
	return id, nil
}

// Get by ID
func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM plant_analysis
WHERE id=? LIMIT 1;
`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get analysis", err)
	}
	return a, nil
}

// ListByUser returns a user's analyses, newest first.
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM plant_analysis
WHERE user_id=? ORDER BY created_at DESC;
`
	return r.list(ctx, q, userID)
}

func (r *AnalysisRepository) ListAll(ctx context.Context) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM plant_analysis
ORDER BY created_at DESC;
`
	return r.list(ctx, q)
}

func (r *AnalysisRepository) ListByPlantType(ctx context.Context, pt domain.PlantType) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM plant_analysis
WHERE plant_type=? ORDER BY created_at DESC;
`
	return r.list(ctx, q, pt)
}

func (r *AnalysisRepository) ListByPrediction(ctx context.Context, label string) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM plant_analysis
WHERE prediction=? ORDER BY created_at DESC;
`
	return r.list(ctx, q, label)
}

func (r *AnalysisRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM plant_analysis
WHERE created_at >= ? AND created_at <= ? ORDER BY created_at DESC;
`
	return r.list(ctx, q, start, end)
}

// UpdateAIFields sets the three AI columns in one atomic partial update.
// Reports whether a row was modified; a missing id is not an error.
func (r *AnalysisRepository) UpdateAIFields(ctx context.Context, id domain.AnalysisID, resp *ai.Explanation, sum *ai.Summary, generated bool) (bool, error) {
	const q = `
UPDATE plant_analysis
SET ai_response=?, ai_summary=?, ai_generated=?
WHERE id=?;
`
	var respVal, sumVal any
	var err error
	if resp != nil {
		if respVal, err = jsonOrNull(resp); err != nil {
			return false, err
		}
	}
	if sum != nil {
		if sumVal, err = jsonOrNull(sum); err != nil {
			return false, err
		}
	}

	res, err := r.db.ExecContext(ctx, q, respVal, sumVal, generated, id)
	if err != nil {
		return false, storageErr("update ai fields", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("update ai fields", err)
	}
	return n > 0, nil
}

// Delete removes the document; blob cleanup is the caller's concern.
func (r *AnalysisRepository) Delete(ctx context.Context, id domain.AnalysisID) (bool, error) {
	const q = `DELETE FROM plant_analysis WHERE id=?;`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, storageErr("delete analysis", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete analysis", err)
	}
	return n > 0, nil
}

func (r *AnalysisRepository) list(ctx context.Context, q string, args ...any) ([]*domain.Analysis, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr("list analyses", err)
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, storageErr("scan analysis", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list analyses", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var respCol, sumCol sql.NullString
	if err := row.Scan(
		&a.ID, &a.UserID, &a.PlantType, &a.Prediction, &a.Confidence,
		&a.Location.Lat, &a.Location.Lng, &a.ImageRef,
		&respCol, &sumCol, &a.AIGenerated, &a.CreatedAt,
	); err != nil {
		return nil, err
	}

	if respCol.Valid {
		a.AIResponse = &ai.Explanation{}
		if err := unmarshalNullable(respCol, a.AIResponse); err != nil {
			return nil, err
		}
	}
	if sumCol.Valid {
		a.AISummary = &ai.Summary{}
		if err := unmarshalNullable(sumCol, a.AISummary); err != nil {
			return nil, err
		}
	}
	return &a, nil
}
