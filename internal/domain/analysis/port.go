package analysis

import (
	"context"
	"time"

	"github.com/guyp-app/plantcare-api/internal/domain/ai"
)

// Repository port (interface for persistence of analysis records)
type Repository interface {
	// Create assigns the id (and created_at when zero) and persists the
	// base record. Nullable AI fields stay unset until UpdateAIFields.
	Create(ctx context.Context, a *Analysis) (AnalysisID, error)
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	ListByUser(ctx context.Context, userID string) ([]*Analysis, error)
	ListAll(ctx context.Context) ([]*Analysis, error)
	ListByPlantType(ctx context.Context, pt PlantType) ([]*Analysis, error)
	ListByPrediction(ctx context.Context, label string) ([]*Analysis, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]*Analysis, error)

	// UpdateAIFields is an atomic partial update; it reports whether a
	// record was modified and does not fail on a missing id.
	UpdateAIFields(ctx context.Context, id AnalysisID, resp *ai.Explanation, sum *ai.Summary, generated bool) (bool, error)
	Delete(ctx context.Context, id AnalysisID) (bool, error)
}

// Classifier port (interface for the on-device disease model)
type Classifier interface {
	Predict(ctx context.Context, image []byte, pt PlantType) (Prediction, error)
}

// BlobStore port (interface for binary image storage)
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, blobID string) ([]byte, error)
	Delete(ctx context.Context, blobID string) error
}
