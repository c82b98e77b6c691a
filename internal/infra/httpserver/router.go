package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/guyp-app/plantcare-api/internal/application/analysis"
	appusers "github.com/guyp-app/plantcare-api/internal/application/users"
	domain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
	usersdomain "github.com/guyp-app/plantcare-api/internal/domain/users"
	"github.com/guyp-app/plantcare-api/internal/middleware"
)

const maxUploadBytes = 10 << 20 // 10 MiB image uploads

type Router struct {
	analysisSvc *appanalysis.Service
	usersSvc    *appusers.Service
}

// Options configures the optional route guards and health probes.
type Options struct {
	JWTSecret []byte
	RateLimit *middleware.RateLimiter
	Health    map[string]middleware.HealthChecker
}

func NewRouter(analysisSvc *appanalysis.Service, usersSvc *appusers.Service, opts Options) http.Handler {
	r := &Router{analysisSvc: analysisSvc, usersSvc: usersSvc}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	}))
	mux.Use(middleware.Logging)
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]string{"message": "plantcare API is running"})
	})
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Get("/health", middleware.HealthHandler(opts.Health))

	if r.usersSvc != nil {
		mux.Post("/auth/signup", r.wrap(r.handleSignup))
		mux.Post("/auth/signin", r.wrap(r.handleSignin))
	}

	mux.Group(func(g chi.Router) {
		if len(opts.JWTSecret) > 0 {
			g.Use(middleware.JWTAuth(opts.JWTSecret))
		}
		if opts.RateLimit != nil {
			g.Use(opts.RateLimit.Middleware)
		}

		g.Post("/analysis/{plantType}", r.wrap(r.handleUpload))
		g.Post("/analysis/{plantType}/ai", r.wrap(r.handleUploadWithAI))

		g.Get("/analysis", r.wrap(r.handleList))
		g.Get("/analysis/{id}", r.wrap(r.handleGet))
		g.Delete("/analysis/{id}", r.wrap(r.handleDelete))
		g.Get("/analysis/{id}/ai", r.wrap(r.handleAIResponse))
		g.Get("/analysis/{id}/ai/summary", r.wrap(r.handleAISummary))
		g.Get("/analysis/{id}/ai/status", r.wrap(r.handleAIStatus))
		g.Get("/user/{userID}/analysis", r.wrap(r.handleUserHistory))
		g.Get("/images/{imageID}", r.handleImage)
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			writeError(w, err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnsupportedPlantType),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidImage):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, usersdomain.ErrEmailTaken),
		errors.Is(err, usersdomain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, usersdomain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// submitCommand parses the multipart submission shared by both analysis routes.
func (r *Router) submitCommand(req *http.Request) (appanalysis.SubmitCommand, error) {
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		return appanalysis.SubmitCommand{}, fmt.Errorf("%w: bad multipart form: %v", domain.ErrInvalidInput, err)
	}

	lat, lng, err := middleware.ParseCoordinates(req.FormValue("lat"), req.FormValue("lng"))
	if err != nil {
		return appanalysis.SubmitCommand{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	file, _, err := req.FormFile("image")
	if err != nil {
		return appanalysis.SubmitCommand{}, fmt.Errorf("%w: missing image", domain.ErrInvalidInput)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return appanalysis.SubmitCommand{}, fmt.Errorf("%w: read image: %v", domain.ErrInvalidInput, err)
	}

	userID := req.FormValue("user_id")
	if auth := middleware.GetUserFromContext(req.Context()); auth != "" {
		userID = auth
	}

	return appanalysis.SubmitCommand{
		UserID:    userID,
		PlantType: chi.URLParam(req, "plantType"),
		Lat:       lat,
		Lng:       lng,
		Image:     data,
	}, nil
}

// POST /analysis/{plantType}
// Multipart form: user_id, lat, lng, image. Fast path, no enrichment.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	cmd, err := r.submitCommand(req)
	if err != nil {
		return err
	}

	res, err := r.analysisSvc.Upload(req.Context(), cmd)
	if err != nil {
		return err
	}
	middleware.IncrementAnalyses()
	return writeJSON(w, res)
}

// POST /analysis/{plantType}/ai
func (r *Router) handleUploadWithAI(w http.ResponseWriter, req *http.Request) error {
	cmd, err := r.submitCommand(req)
	if err != nil {
		return err
	}

	res, err := r.analysisSvc.CreateWithAI(req.Context(), cmd)
	if err != nil {
		return err
	}
	middleware.IncrementAnalyses()
	middleware.IncrementEnrichments()
	if !res.AIGenerated {
		middleware.IncrementEnrichmentFallbacks()
	}
	return writeJSON(w, res)
}

// GET /analysis?plant_type=&prediction=&from=&to=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()

	var (
		list []*domain.Analysis
		err  error
	)
	switch {
	case q.Get("plant_type") != "":
		list, err = r.analysisSvc.ListByPlantType(req.Context(), q.Get("plant_type"))
	case q.Get("prediction") != "":
		list, err = r.analysisSvc.ListByPrediction(req.Context(), q.Get("prediction"))
	case q.Get("from") != "" || q.Get("to") != "":
		var start, end time.Time
		if start, end, err = parseDateRange(q.Get("from"), q.Get("to")); err == nil {
			list, err = r.analysisSvc.ListByDateRange(req.Context(), start, end)
		}
	default:
		list, err = r.analysisSvc.ListAll(req.Context())
	}
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Analysis{}
	}
	return writeJSON(w, list)
}

// GET /analysis/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	rec, err := r.analysisSvc.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, rec)
}

// DELETE /analysis/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	ok, err := r.analysisSvc.Delete(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: analysis %s", domain.ErrNotFound, chi.URLParam(req, "id"))
	}
	return writeJSON(w, map[string]string{"message": "analysis and image deleted"})
}

// GET /analysis/{id}/ai
func (r *Router) handleAIResponse(w http.ResponseWriter, req *http.Request) error {
	resp, generated, err := r.analysisSvc.AIResponse(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	if !generated {
		return writeJSON(w, map[string]any{
			"ai_generated": false,
			"detail":       "AI response not generated for this analysis",
		})
	}
	return writeJSON(w, resp)
}

// GET /analysis/{id}/ai/summary
func (r *Router) handleAISummary(w http.ResponseWriter, req *http.Request) error {
	sum, generated, err := r.analysisSvc.AISummary(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	if !generated {
		return writeJSON(w, map[string]any{
			"ai_generated": false,
			"detail":       "AI summary not generated for this analysis",
		})
	}
	return writeJSON(w, sum)
}

// GET /analysis/{id}/ai/status
func (r *Router) handleAIStatus(w http.ResponseWriter, req *http.Request) error {
	status, err := r.analysisSvc.AIStatus(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, status)
}

// GET /user/{userID}/analysis
func (r *Router) handleUserHistory(w http.ResponseWriter, req *http.Request) error {
	list, err := r.analysisSvc.ListByUser(req.Context(), chi.URLParam(req, "userID"))
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return writeJSON(w, map[string]string{"message": "the user has no saved analyses"})
	}
	return writeJSON(w, list)
}

// GET /images/{imageID} streams the raw image bytes
func (r *Router) handleImage(w http.ResponseWriter, req *http.Request) {
	data, err := r.analysisSvc.Image(req.Context(), chi.URLParam(req, "imageID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}

// POST /auth/signup
func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) error {
	var cmd appusers.RegisterCommand
	if err := json.NewDecoder(req.Body).Decode(&cmd); err != nil {
		return fmt.Errorf("%w: bad body: %v", domain.ErrInvalidInput, err)
	}
	res, err := r.usersSvc.Register(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, res)
}

// POST /auth/signin
func (r *Router) handleSignin(w http.ResponseWriter, req *http.Request) error {
	var cmd appusers.LoginCommand
	if err := json.NewDecoder(req.Body).Decode(&cmd); err != nil {
		return fmt.Errorf("%w: bad body: %v", domain.ErrInvalidInput, err)
	}
	res, err := r.usersSvc.Login(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, res)
}

func parseDateRange(from, to string) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Now().UTC()
	var err error
	if from != "" {
		if start, err = time.Parse(time.RFC3339, from); err != nil {
			return start, end, fmt.Errorf("%w: bad 'from' date: %v", domain.ErrInvalidInput, err)
		}
	}
	if to != "" {
		if end, err = time.Parse(time.RFC3339, to); err != nil {
			return start, end, fmt.Errorf("%w: bad 'to' date: %v", domain.ErrInvalidInput, err)
		}
	}
	return start, end, nil
}
