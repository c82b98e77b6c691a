package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	ai "github.com/guyp-app/plantcare-api/internal/domain/ai"
	domain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
)

// AnalysisRepository is the Postgres variant of the analysis store, for
// deployments that run on pq instead of MySQL. Same port, same schema.
type AnalysisRepository struct{ db *sql.DB }

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository { return &AnalysisRepository{db: db} }

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		return nil, err
	}
	return db, nil
}

const analysisColumns = `id, user_id, plant_type, prediction, confidence, lat, lng,
       image_ref, ai_response, ai_summary, ai_generated, created_at`

func (r *AnalysisRepository) Create(ctx context.Context, a *domain.Analysis) (domain.AnalysisID, error) {
	const q = `
INSERT INTO plant_analysis
(id, user_id, plant_type, prediction, confidence, lat, lng, image_ref, ai_generated, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

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

func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM plant_analysis
WHERE id=$1
LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get analysis", err)
	}
	return a, nil
}

func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM plant_analysis
WHERE user_id=$1 ORDER BY created_at DESC;`
	return r.list(ctx, q, userID)
}

func (r *AnalysisRepository) ListAll(ctx context.Context) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM plant_analysis
ORDER BY created_at DESC;`
	return r.list(ctx, q)
}

func (r *AnalysisRepository) ListByPlantType(ctx context.Context, pt domain.PlantType) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM plant_analysis
WHERE plant_type=$1 ORDER BY created_at DESC;`
	return r.list(ctx, q, pt)
}

func (r *AnalysisRepository) ListByPrediction(ctx context.Context, label string) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM plant_analysis
WHERE prediction=$1 ORDER BY created_at DESC;`
	return r.list(ctx, q, label)
}

func (r *AnalysisRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Analysis, error) {
	const q = `
SELECT ` + analysisColumns + `
FROM plant_analysis
WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at DESC;`
	return r.list(ctx, q, start, end)
}

func (r *AnalysisRepository) UpdateAIFields(ctx context.Context, id domain.AnalysisID, resp *ai.Explanation, sum *ai.Summary, generated bool) (bool, error) {
	const q = `
UPDATE plant_analysis
SET ai_response=$1, ai_summary=$2, ai_generated=$3
WHERE id=$4;`

	respVal, err := marshalNullable(resp)
	if err != nil {
		return false, err
	}
	sumVal, err := marshalNullable(sum)
	if err != nil {
		return false, err
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

func (r *AnalysisRepository) Delete(ctx context.Context, id domain.AnalysisID) (bool, error) {
	const q = `DELETE FROM plant_analysis WHERE id=$1;`
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

type rowScanner interface{ Scan(dest ...any) error }

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

	if respCol.Valid && respCol.String != "" {
		a.AIResponse = &ai.Explanation{}
		if err := json.Unmarshal([]byte(respCol.String), a.AIResponse); err != nil {
			return nil, err
		}
	}
	if sumCol.Valid && sumCol.String != "" {
		a.AISummary = &ai.Summary{}
		if err := json.Unmarshal([]byte(sumCol.String), a.AISummary); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func marshalNullable(v any) (any, error) {
	switch t := v.(type) {
	case *ai.Explanation:
		if t == nil {
			return nil, nil
		}
	case *ai.Summary:
		if t == nil {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrStorageUnavailable, err))
}
