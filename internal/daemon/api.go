package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"vodmill/internal/hls"
	"vodmill/internal/logging"
	"vodmill/internal/pipeline"
	"vodmill/internal/services"
	"vodmill/internal/storage"
	"vodmill/internal/store"
)

// Presigner is the slice of the storage gateway the API needs for direct
// client uploads.
type Presigner interface {
	Presign(key, contentType string, expiry time.Duration) (string, error)
	PublicURL(key string) string
}

// APIServer exposes the ingestion API over HTTP.
type APIServer struct {
	pipeline  *pipeline.Pipeline
	store     *store.Store
	presigner Presigner
	token     string
	expiry    time.Duration
	logger    *slog.Logger
	server    *http.Server
}

// NewAPIServer constructs the API server bound to addr. token guards every
// endpoint except the health check; empty disables auth.
func NewAPIServer(addr, token string, pl *pipeline.Pipeline, st *store.Store, presigner Presigner, presignExpiry time.Duration, logger *slog.Logger) *APIServer {
	api := &APIServer{
		pipeline:  pl,
		store:     st,
		presigner: presigner,
		token:     token,
		expiry:    presignExpiry,
		logger:    logging.NewComponentLogger(logger, "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", api.handleHealth)
	mux.Handle("POST /api/jobs", api.requireAuth(api.handleSubmitJob))
	mux.Handle("GET /api/jobs", api.requireAuth(api.handleListJobs))
	mux.Handle("GET /api/jobs/{id}", api.requireAuth(api.handleGetJob))
	mux.Handle("GET /api/episodes/{movieId}/{episodeId}/status", api.requireAuth(api.handleEpisodeStatus))
	mux.Handle("POST /api/uploads/presign", api.requireAuth(api.handlePresign))

	api.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return api
}

// Start serves requests until Shutdown is called.
func (a *APIServer) Start() error {
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (a *APIServer) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// Handler exposes the routed handler for tests.
func (a *APIServer) Handler() http.Handler {
	return a.server.Handler
}

func (a *APIServer) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.token != "" {
			header := r.Header.Get("Authorization")
			provided, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || provided != a.token {
				writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
				return
			}
		}

		ctx := services.WithRequestID(r.Context(), uuid.NewString())
		logging.WithContext(ctx, a.logger).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		)
		next(w, r.WithContext(ctx))
	})
}

func (a *APIServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitJobRequest struct {
	MovieID     string `json:"movieId"`
	EpisodeID   string `json:"episodeId"`
	SourceKey   string `json:"sourceKey"`
	CallbackURL string `json:"callbackUrl"`
}

func (a *APIServer) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	job, err := a.pipeline.Submit(r.Context(), pipeline.JobRequest{
		MovieID:     req.MovieID,
		EpisodeID:   req.EpisodeID,
		SourceKey:   req.SourceKey,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeError(w, http.StatusBadRequest, services.Details(err).Message)
			return
		}
		a.logger.Error("submit job", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to accept job")
		return
	}

	writeJSON(w, http.StatusAccepted, jobResponse(job))
}

func (a *APIServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	jobs, err := a.store.ListJobs(r.Context(), limit)
	if err != nil {
		a.logger.Error("list jobs", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	payload := make([]map[string]any, 0, len(jobs))
	for _, job := range jobs {
		payload = append(payload, jobResponse(job))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": payload})
}

func (a *APIServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.store.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		a.logger.Error("get job", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, jobResponse(job))
}

func (a *APIServer) handleEpisodeStatus(w http.ResponseWriter, r *http.Request) {
	episode, err := a.store.GetEpisode(r.Context(), r.PathValue("movieId"), r.PathValue("episodeId"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(w, http.StatusNotFound, "episode not found")
			return
		}
		a.logger.Error("get episode", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load episode")
		return
	}

	payload := map[string]any{
		"movieId":         episode.MovieID,
		"episodeId":       episode.EpisodeID,
		"isProcessed":     episode.IsProcessed,
		"durationSeconds": episode.DurationSeconds,
		"updatedAt":       episode.UpdatedAt.Format(time.RFC3339),
	}
	if episode.ProcessingError != "" {
		payload["processingError"] = episode.ProcessingError
	}
	if episode.PlaylistURL != "" {
		payload["playlistUrl"] = episode.PlaylistURL
	}
	if episode.ThumbnailURL != "" {
		payload["thumbnailUrl"] = episode.ThumbnailURL
	}
	writeJSON(w, http.StatusOK, payload)
}

type presignRequest struct {
	MovieID   string `json:"movieId"`
	EpisodeID string `json:"episodeId"`
	FileType  string `json:"fileType"`
}

func (a *APIServer) handlePresign(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.MovieID) == "" {
		writeError(w, http.StatusBadRequest, "movieId is required")
		return
	}

	// episodeId is optional; without it the upload lands at the movie level.
	key := hls.UploadKey(req.MovieID, req.EpisodeID, req.FileType)
	contentType := storage.ContentTypeFor(key)
	url, err := a.presigner.Presign(key, contentType, a.expiry)
	if err != nil {
		a.logger.Error("presign upload", logging.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to presign upload")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"presignedUrl": url,
		"contentType":  contentType,
		"key":          key,
		"cdnUrl":       a.presigner.PublicURL(key),
	})
}

func jobResponse(job *store.Job) map[string]any {
	payload := map[string]any{
		"jobId":     job.ID,
		"movieId":   job.MovieID,
		"episodeId": job.EpisodeID,
		"sourceKey": job.SourceKey,
		"status":    string(job.Status),
		"createdAt": job.CreatedAt.Format(time.RFC3339),
		"updatedAt": job.UpdatedAt.Format(time.RFC3339),
	}
	if job.ErrorMessage != "" {
		payload["error"] = job.ErrorMessage
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
