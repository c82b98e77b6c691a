package analysis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aidomain "github.com/guyp-app/plantcare-api/internal/domain/ai"
	domain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
)

const (
	testUserID     = "2b1f0db0-9a69-4c5e-8f6e-0c0a39c2d101"
	testAnalysisID = "7f8c3a52-41de-4f7b-9a7c-5d7e2b9f3c44"
)

//
// ==== port fakes ====
//

type fakeRepo struct {
	created  *domain.Analysis
	createID domain.AnalysisID
	crErr    error

	records map[domain.AnalysisID]*domain.Analysis

	updID        domain.AnalysisID
	updResp      *aidomain.Explanation
	updSum       *aidomain.Summary
	updGenerated bool
	updModified  bool
	updErr       error
	updCalls     int

	delModified bool
	delErr      error
	delCalls    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		createID:    domain.AnalysisID(testAnalysisID),
		records:     make(map[domain.AnalysisID]*domain.Analysis),
		updModified: true,
		delModified: true,
	}
}

func (r *fakeRepo) Create(ctx context.Context, a *domain.Analysis) (domain.AnalysisID, error) {
	if r.crErr != nil {
		return "", r.crErr
	}
	r.created = a
	return r.createID, nil
}

func (r *fakeRepo) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	if a, ok := r.records[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRepo) ListByUser(ctx context.Context, userID string) ([]*domain.Analysis, error) {
	var out []*domain.Analysis
	for _, a := range r.records {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAll(ctx context.Context) ([]*domain.Analysis, error) { return nil, nil }
func (r *fakeRepo) ListByPlantType(ctx context.Context, pt domain.PlantType) ([]*domain.Analysis, error) {
	return nil, nil
}
func (r *fakeRepo) ListByPrediction(ctx context.Context, label string) ([]*domain.Analysis, error) {
	return nil, nil
}
func (r *fakeRepo) ListByDateRange(ctx context.Context, start, end time.Time) ([]*domain.Analysis, error) {
	return nil, nil
}

func (r *fakeRepo) UpdateAIFields(ctx context.Context, id domain.AnalysisID, resp *aidomain.Explanation, sum *aidomain.Summary, generated bool) (bool, error) {
	r.updCalls++
	r.updID, r.updResp, r.updSum, r.updGenerated = id, resp, sum, generated
	return r.updModified, r.updErr
}

func (r *fakeRepo) Delete(ctx context.Context, id domain.AnalysisID) (bool, error) {
	r.delCalls++
	return r.delModified, r.delErr
}

type fakeClassifier struct {
	pred  domain.Prediction
	err   error
	calls int
}

func (c *fakeClassifier) Predict(ctx context.Context, image []byte, pt domain.PlantType) (domain.Prediction, error) {
	c.calls++
	if c.err != nil {
		return domain.Prediction{}, c.err
	}
	p := c.pred
	p.PlantType = pt
	return p, nil
}

type fakeBlobs struct {
	putID   string
	putErr  error
	puts    int
	deletes []string
	delErr  error
	data    []byte
	getErr  error
}

func (b *fakeBlobs) Put(ctx context.Context, name string, data []byte) (string, error) {
	b.puts++
	if b.putErr != nil {
		return "", b.putErr
	}
	return b.putID, nil
}

func (b *fakeBlobs) Get(ctx context.Context, blobID string) ([]byte, error) {
	return b.data, b.getErr
}

func (b *fakeBlobs) Delete(ctx context.Context, blobID string) error {
	b.deletes = append(b.deletes, blobID)
	return b.delErr
}

type fakeEnricher struct {
	resp   aidomain.Explanation
	genErr error
	sum    aidomain.Summary
	sumErr error
}

func (e *fakeEnricher) Generate(ctx context.Context, prompt string) (aidomain.Explanation, error) {
	if e.genErr != nil {
		return aidomain.FallbackExplanation(), e.genErr
	}
	return e.resp, nil
}

func (e *fakeEnricher) GenerateSummary(ctx context.Context, full aidomain.Explanation) (aidomain.Summary, error) {
	if e.sumErr != nil {
		return aidomain.FallbackSummary(full), e.sumErr
	}
	return e.sum, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

//
// ==== harness ====
//

func testService() (*Service, *fakeRepo, *fakeClassifier, *fakeBlobs, *fakeEnricher) {
	repo := newFakeRepo()
	cls := &fakeClassifier{
		pred: domain.Prediction{ClassID: 1, Label: "Late_blight", Confidence: 0.87},
	}
	blobs := &fakeBlobs{putID: "blob-1.jpg"}
	enr := &fakeEnricher{
		resp: aidomain.Explanation{Message: "explicación", Disclaimer: aidomain.Disclaimer},
		sum:  aidomain.Summary{Topic: "Tizón", Summary: "resumen", Disclaimer: aidomain.Disclaimer},
	}
	svc := &Service{
		Repo:       repo,
		Classifier: cls,
		Blobs:      blobs,
		Enricher:   enr,
		Prompt:     func(p domain.Prediction, loc *domain.Location) string { return "prompt" },
		Clock:      fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	return svc, repo, cls, blobs, enr
}

func validCmd() SubmitCommand {
	return SubmitCommand{
		UserID:    testUserID,
		PlantType: "potato",
		Lat:       4.6,
		Lng:       -74.08,
		Image:     []byte{0xFF, 0xD8, 0xFF},
	}
}

//
// ==== fast path ====
//

func TestUpload_HappyPath(t *testing.T) {
	svc, repo, cls, blobs, _ := testService()

	res, err := svc.Upload(context.Background(), validCmd())
	require.NoError(t, err)

	assert.Equal(t, testAnalysisID, res.AnalysisID)
	assert.Equal(t, 1, res.ClassID)
	assert.Equal(t, "Late_blight", res.Prediction)
	assert.Equal(t, 0.87, res.Confidence)

	assert.Equal(t, 1, blobs.puts)
	assert.Equal(t, 1, cls.calls)
	require.NotNil(t, repo.created)
	assert.Equal(t, "blob-1.jpg", repo.created.ImageRef)
	assert.Equal(t, domain.PlantPotato, repo.created.PlantType)
	assert.False(t, repo.created.AIGenerated)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), repo.created.CreatedAt)
	assert.Equal(t, 0, repo.updCalls)
}

func TestUpload_ValidationRunsBeforeSideEffects(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*SubmitCommand)
		want error
	}{
		{"bad plant type", func(c *SubmitCommand) { c.PlantType = "cucumber" }, domain.ErrUnsupportedPlantType},
		{"bad user id", func(c *SubmitCommand) { c.UserID = "not-a-uuid" }, domain.ErrInvalidInput},
		{"lat out of range", func(c *SubmitCommand) { c.Lat = 91 }, domain.ErrInvalidInput},
		{"lng out of range", func(c *SubmitCommand) { c.Lng = -181 }, domain.ErrInvalidInput},
		{"empty image", func(c *SubmitCommand) { c.Image = nil }, domain.ErrInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, cls, blobs, _ := testService()
			cmd := validCmd()
			tc.mut(&cmd)

			_, err := svc.Upload(context.Background(), cmd)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 0, blobs.puts, "no blob write on invalid input")
			assert.Equal(t, 0, cls.calls, "no inference on invalid input")
		})
	}
}

func TestUpload_ClassifierFailureCleansUpBlob(t *testing.T) {
	svc, repo, cls, blobs, _ := testService()
	cls.err = errors.New("model exploded")

	_, err := svc.Upload(context.Background(), validCmd())
	assert.ErrorIs(t, err, domain.ErrInference)
	assert.Equal(t, []string{"blob-1.jpg"}, blobs.deletes)
	assert.Nil(t, repo.created)
}

func TestUpload_UndecodableImageIsClientError(t *testing.T) {
	svc, repo, cls, blobs, _ := testService()
	cls.err = fmt.Errorf("%w: png: invalid format", domain.ErrInvalidImage)

	_, err := svc.Upload(context.Background(), validCmd())
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
	assert.NotErrorIs(t, err, domain.ErrInference)
	assert.Equal(t, []string{"blob-1.jpg"}, blobs.deletes)
	assert.Nil(t, repo.created)
}

func TestUpload_ClassifierErrorChainIsPreserved(t *testing.T) {
	svc, _, cls, _, _ := testService()
	cls.err = context.Canceled

	_, err := svc.Upload(context.Background(), validCmd())
	assert.ErrorIs(t, err, domain.ErrInference)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpload_CreateFailureCleansUpBlob(t *testing.T) {
	svc, repo, _, blobs, _ := testService()
	repo.crErr = fmt.Errorf("%w: db gone", domain.ErrStorageUnavailable)

	_, err := svc.Upload(context.Background(), validCmd())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, []string{"blob-1.jpg"}, blobs.deletes)
}

func TestUpload_BlobFailureStopsEverything(t *testing.T) {
	svc, repo, cls, blobs, _ := testService()
	blobs.putErr = fmt.Errorf("%w: minio down", domain.ErrStorageUnavailable)

	_, err := svc.Upload(context.Background(), validCmd())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, 0, cls.calls)
	assert.Nil(t, repo.created)
}

//
// ==== enrichment path ====
//

func TestCreateWithAI_HappyPath(t *testing.T) {
	svc, repo, _, _, _ := testService()

	res, err := svc.CreateWithAI(context.Background(), validCmd())
	require.NoError(t, err)

	assert.True(t, res.AIGenerated)
	require.NotNil(t, res.AIResponse)
	assert.Equal(t, "explicación", res.AIResponse.Message)

	assert.Equal(t, 1, repo.updCalls)
	assert.Equal(t, domain.AnalysisID(testAnalysisID), repo.updID)
	assert.True(t, repo.updGenerated)
	require.NotNil(t, repo.updSum)
	assert.Equal(t, "Tizón", repo.updSum.Topic)
}

func TestCreateWithAI_EnrichmentFailureDegradesToFallback(t *testing.T) {
	svc, repo, _, _, enr := testService()
	enr.genErr = errors.New("provider timeout")
	enr.sumErr = errors.New("provider timeout")

	res, err := svc.CreateWithAI(context.Background(), validCmd())
	require.NoError(t, err, "enrichment failure must not fail the request")

	assert.False(t, res.AIGenerated)
	require.NotNil(t, res.AIResponse)
	assert.Contains(t, res.AIResponse.Message, "No pude generar una respuesta")
	assert.Equal(t, aidomain.Disclaimer, res.AIResponse.Disclaimer)

	// the fallback is still persisted, flagged as not generated
	assert.Equal(t, 1, repo.updCalls)
	assert.False(t, repo.updGenerated)
}

func TestCreateWithAI_UpdateFailureIsSwallowed(t *testing.T) {
	svc, repo, _, _, _ := testService()
	repo.updErr = errors.New("db gone mid-flight")

	res, err := svc.CreateWithAI(context.Background(), validCmd())
	require.NoError(t, err)
	assert.True(t, res.AIGenerated)
	require.NotNil(t, res.AIResponse)
	assert.Equal(t, "explicación", res.AIResponse.Message)
}

func TestCreateWithAI_UpdateMatchingNoRowIsSwallowed(t *testing.T) {
	svc, repo, _, _, _ := testService()
	repo.updModified = false

	_, err := svc.CreateWithAI(context.Background(), validCmd())
	assert.NoError(t, err)
}

//
// ==== reads ====
//

func TestGet_RejectsMalformedID(t *testing.T) {
	svc, _, _, _, _ := testService()

	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAIStatus_DeterministicForUnenrichedRecord(t *testing.T) {
	svc, repo, _, _, _ := testService()
	repo.records[domain.AnalysisID(testAnalysisID)] = &domain.Analysis{
		ID: domain.AnalysisID(testAnalysisID), AIGenerated: false,
	}

	for i := 0; i < 3; i++ {
		st, err := svc.AIStatus(context.Background(), testAnalysisID)
		require.NoError(t, err)
		assert.False(t, st.AIGenerated)
		assert.Equal(t, testAnalysisID, st.AnalysisID)
	}
}

func TestAIResponse_NotGeneratedIsMarkerNotError(t *testing.T) {
	svc, repo, _, _, _ := testService()
	repo.records[domain.AnalysisID(testAnalysisID)] = &domain.Analysis{
		ID:          domain.AnalysisID(testAnalysisID),
		AIGenerated: false,
		AIResponse:  &aidomain.Explanation{Message: "fallback", Disclaimer: aidomain.Disclaimer},
	}

	resp, generated, err := svc.AIResponse(context.Background(), testAnalysisID)
	require.NoError(t, err)
	assert.False(t, generated)
	assert.Nil(t, resp, "stored fallback is never presented as a real payload")
}

func TestAIResponse_Generated(t *testing.T) {
	svc, repo, _, _, _ := testService()
	repo.records[domain.AnalysisID(testAnalysisID)] = &domain.Analysis{
		ID:          domain.AnalysisID(testAnalysisID),
		AIGenerated: true,
		AIResponse:  &aidomain.Explanation{Message: "real", Disclaimer: aidomain.Disclaimer},
		AISummary:   &aidomain.Summary{Topic: "t", Summary: "s", Disclaimer: aidomain.Disclaimer},
	}

	resp, generated, err := svc.AIResponse(context.Background(), testAnalysisID)
	require.NoError(t, err)
	assert.True(t, generated)
	require.NotNil(t, resp)
	assert.Equal(t, "real", resp.Message)

	sum, generated, err := svc.AISummary(context.Background(), testAnalysisID)
	require.NoError(t, err)
	assert.True(t, generated)
	require.NotNil(t, sum)
}

func TestListByDateRange_RejectsInvertedRange(t *testing.T) {
	svc, _, _, _, _ := testService()

	end := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	start := end.Add(time.Hour)

	_, err := svc.ListByDateRange(context.Background(), start, end)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

//
// ==== delete ====
//

func TestDelete_MissingRecordIsNotAnError(t *testing.T) {
	svc, repo, _, _, _ := testService()

	ok, err := svc.Delete(context.Background(), testAnalysisID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, repo.delCalls)
}

func TestDelete_BlobFailureDoesNotBlockRecordDeletion(t *testing.T) {
	svc, repo, _, blobs, _ := testService()
	repo.records[domain.AnalysisID(testAnalysisID)] = &domain.Analysis{
		ID: domain.AnalysisID(testAnalysisID), ImageRef: "blob-1.jpg",
	}
	blobs.delErr = errors.New("minio down")

	ok, err := svc.Delete(context.Background(), testAnalysisID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, repo.delCalls)
	assert.Equal(t, []string{"blob-1.jpg"}, blobs.deletes)
}
