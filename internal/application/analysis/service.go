package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guyp-app/plantcare-api/internal/application"
	aidomain "github.com/guyp-app/plantcare-api/internal/domain/ai"
	domain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
)

// PromptFunc builds the enrichment prompt from a prediction and location.
type PromptFunc func(p domain.Prediction, loc *domain.Location) string

// Service implements the analysis use-cases.
// Safe for concurrent use; all state lives behind the injected ports.
type Service struct {
	Repo       domain.Repository
	Classifier domain.Classifier
	Blobs      domain.BlobStore
	Enricher   aidomain.Client
	Prompt     PromptFunc
	Clock      application.Clock

	// AITimeout bounds the two enrichment calls combined. Zero disables
	// the deadline; expiry takes the normal fallback path.
	AITimeout time.Duration
}

//
// ==== USE CASES ====
//

// SubmitCommand carries one analysis submission.
type SubmitCommand struct {
	UserID    string
	PlantType string
	Lat       float64
	Lng       float64
	Image     []byte
}

// UploadResult is the fast-path response (no enrichment).
type UploadResult struct {
	AnalysisID string  `json:"analysis_id"`
	ClassID    int     `json:"class_id"`
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
}

// AIResult is the enriched response. AIResponse is always populated, either
// with the provider output or with the deterministic fallback.
type AIResult struct {
	AnalysisID  string               `json:"analysis_id"`
	PlantType   string               `json:"plant_type"`
	Prediction  string               `json:"prediction"`
	Confidence  float64              `json:"confidence"`
	AIGenerated bool                 `json:"ai_generated"`
	AIResponse  *aidomain.Explanation `json:"ai_response"`
}

// AIStatusResult reports whether enrichment ever completed for a record.
type AIStatusResult struct {
	AnalysisID  string `json:"analysis_id"`
	AIGenerated bool   `json:"ai_generated"`
}

// Upload runs the fast path: validate, store image, classify, persist the
// base record. No enrichment.
func (s *Service) Upload(ctx context.Context, cmd SubmitCommand) (UploadResult, error) {
	pt, err := s.validate(cmd)
	if err != nil {
		return UploadResult{}, err
	}

	pred, rec, err := s.createBase(ctx, cmd, pt)
	if err != nil {
		return UploadResult{}, err
	}

	return UploadResult{
		AnalysisID: string(rec.ID),
		ClassID:    pred.ClassID,
		Prediction: pred.Label,
		Confidence: pred.Confidence,
	}, nil
}

// CreateWithAI runs the full pipeline: the fast path, then best-effort
// enrichment and the phase-2 update. Enrichment failure never fails the
// request; it degrades to the fallback payload with ai_generated=false.
func (s *Service) CreateWithAI(ctx context.Context, cmd SubmitCommand) (AIResult, error) {
	pt, err := s.validate(cmd)
	if err != nil {
		return AIResult{}, err
	}

	pred, rec, err := s.createBase(ctx, cmd, pt)
	if err != nil {
		return AIResult{}, err
	}

	loc := rec.Location
	prompt := s.Prompt(pred, &loc)

	actx := ctx
	if s.AITimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, s.AITimeout)
		defer cancel()
	}

	// ai_generated tracks genuine provider success, not fallback usage
	resp, genErr := s.Enricher.Generate(actx, prompt)
	sum, sumErr := s.Enricher.GenerateSummary(actx, resp)
	generated := genErr == nil
	if genErr != nil {
		zap.L().Warn("ai enrichment fell back",
			zap.String("analysis_id", string(rec.ID)),
			zap.Error(genErr))
	}
	if sumErr != nil {
		zap.L().Warn("ai summary fell back",
			zap.String("analysis_id", string(rec.ID)),
			zap.Error(sumErr))
	}

	// Phase 2: persist whatever payload was produced. Failure here is
	// logged, not surfaced; the caller still gets the in-memory payload.
	modified, err := s.Repo.UpdateAIFields(ctx, rec.ID, &resp, &sum, generated)
	if err != nil {
		zap.L().Error("persist ai fields failed",
			zap.String("analysis_id", string(rec.ID)),
			zap.Error(err))
	} else if !modified {
		zap.L().Warn("ai fields update matched no record",
			zap.String("analysis_id", string(rec.ID)))
	}

	return AIResult{
		AnalysisID:  string(rec.ID),
		PlantType:   string(pt),
		Prediction:  pred.Label,
		Confidence:  pred.Confidence,
		AIGenerated: generated,
		AIResponse:  &resp,
	}, nil
}

// Get returns one normalized record.
func (s *Service) Get(ctx context.Context, id string) (*domain.Analysis, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.Repo.Get(ctx, domain.AnalysisID(id))
}

// ListByUser returns a user's analysis history.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*domain.Analysis, error) {
	if err := validateID(userID); err != nil {
		return nil, err
	}
	return s.Repo.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]*domain.Analysis, error) {
	return s.Repo.ListAll(ctx)
}

func (s *Service) ListByPlantType(ctx context.Context, plantType string) ([]*domain.Analysis, error) {
	pt, err := domain.ParsePlantType(plantType)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListByPlantType(ctx, pt)
}

func (s *Service) ListByPrediction(ctx context.Context, label string) ([]*domain.Analysis, error) {
	if label == "" {
		return nil, fmt.Errorf("%w: empty prediction", domain.ErrInvalidInput)
	}
	return s.Repo.ListByPrediction(ctx, label)
}

func (s *Service) ListByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Analysis, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end before start", domain.ErrInvalidInput)
	}
	return s.Repo.ListByDateRange(ctx, start, end)
}

// AIStatus is deterministic across repeated calls for a never-enriched record.
func (s *Service) AIStatus(ctx context.Context, id string) (AIStatusResult, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return AIStatusResult{}, err
	}
	return AIStatusResult{AnalysisID: string(rec.ID), AIGenerated: rec.AIGenerated}, nil
}

// AIResponse returns the stored explanation. The second return is false when
// enrichment never genuinely completed; the stored fallback is not presented
// as a real payload.
func (s *Service) AIResponse(ctx context.Context, id string) (*aidomain.Explanation, bool, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !rec.AIGenerated || rec.AIResponse == nil {
		return nil, false, nil
	}
	return rec.AIResponse, true, nil
}

// AISummary mirrors AIResponse for the condensed payload.
func (s *Service) AISummary(ctx context.Context, id string) (*aidomain.Summary, bool, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !rec.AIGenerated || rec.AISummary == nil {
		return nil, false, nil
	}
	return rec.AISummary, true, nil
}

// Delete removes the record and best-effort removes its image blob.
// Blob-deletion failure is logged only; it never blocks record deletion.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	rec, err := s.Repo.Get(ctx, domain.AnalysisID(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if rec.ImageRef != "" {
		if err := s.Blobs.Delete(ctx, rec.ImageRef); err != nil {
			zap.L().Warn("could not delete analysis image",
				zap.String("analysis_id", id),
				zap.String("image_ref", rec.ImageRef),
				zap.Error(err))
		}
	}

	return s.Repo.Delete(ctx, domain.AnalysisID(id))
}

// Image streams back the raw image bytes for a blob id.
func (s *Service) Image(ctx context.Context, blobID string) ([]byte, error) {
	if blobID == "" {
		return nil, fmt.Errorf("%w: empty image id", domain.ErrInvalidInput)
	}
	return s.Blobs.Get(ctx, blobID)
}

//
// ==== internals ====
//

// validate fails fast before any storage or model work.
func (s *Service) validate(cmd SubmitCommand) (domain.PlantType, error) {
	pt, err := domain.ParsePlantType(cmd.PlantType)
	if err != nil {
		return "", err
	}
	if err := validateID(cmd.UserID); err != nil {
		return "", err
	}
	if cmd.Lat < -90 || cmd.Lat > 90 || cmd.Lng < -180 || cmd.Lng > 180 {
		return "", fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	}
	if len(cmd.Image) == 0 {
		return "", fmt.Errorf("%w: empty image", domain.ErrInvalidInput)
	}
	return pt, nil
}

// createBase runs steps 2-4: blob write, prediction, phase-1 record create.
// The blob write happens first so the record never references a missing blob;
// any later failure triggers a best-effort blob cleanup.
func (s *Service) createBase(ctx context.Context, cmd SubmitCommand, pt domain.PlantType) (domain.Prediction, *domain.Analysis, error) {
	name := fmt.Sprintf("%s-%s.jpg", pt, cmd.UserID)
	blobID, err := s.Blobs.Put(ctx, name, cmd.Image)
	if err != nil {
		return domain.Prediction{}, nil, fmt.Errorf("store image: %w", err)
	}

	pred, err := s.Classifier.Predict(ctx, cmd.Image, pt)
	if err != nil {
		s.cleanupBlob(blobID)
		// undecodable bytes are the caller's fault, not an inference failure
		if errors.Is(err, domain.ErrInvalidImage) {
			return domain.Prediction{}, nil, fmt.Errorf("classify: %w", err)
		}
		return domain.Prediction{}, nil, fmt.Errorf("classify: %w", errors.Join(domain.ErrInference, err))
	}

	rec := &domain.Analysis{
		UserID:     cmd.UserID,
		PlantType:  pt,
		Prediction: pred.Label,
		Confidence: pred.Confidence,
		Location:   domain.Location{Lat: cmd.Lat, Lng: cmd.Lng},
		ImageRef:   blobID,
		CreatedAt:  s.Clock.Now(),
	}
	id, err := s.Repo.Create(ctx, rec)
	if err != nil {
		s.cleanupBlob(blobID)
		return domain.Prediction{}, nil, fmt.Errorf("create analysis: %w", err)
	}
	rec.ID = id

	return pred, rec, nil
}

// cleanupBlob removes a blob written before a failed create. Best-effort:
// runs under its own context so request cancellation cannot orphan the blob.
func (s *Service) cleanupBlob(blobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Blobs.Delete(ctx, blobID); err != nil {
		zap.L().Warn("orphan blob cleanup failed",
			zap.String("blob_id", blobID),
			zap.Error(err))
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: malformed id %q", domain.ErrInvalidInput, id)
	}
	return nil
}
