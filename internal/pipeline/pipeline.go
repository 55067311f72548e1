// Package pipeline drives one ingestion job from accepted request to
// published HLS package, updating the job and episode records at every stage.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"vodmill/internal/config"
	"vodmill/internal/logging"
	"vodmill/internal/media/ffprobe"
	"vodmill/internal/notify"
	"vodmill/internal/planner"
	"vodmill/internal/services"
	"vodmill/internal/store"
)

// Prober inspects a local media file.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Fetcher downloads a source object to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, key, localPath string) error
}

// PackageEncoder produces the full HLS package for a rendition ladder.
type PackageEncoder interface {
	Encode(ctx context.Context, sourcePath, outputDir string, ladder []planner.Rendition, totalDurationSeconds float64) error
}

// Thumbnailer extracts a poster frame from a local media file.
type Thumbnailer interface {
	ExtractThumbnail(ctx context.Context, sourcePath, destPath string, offsetSeconds int, durationSeconds float64) error
}

// Uploader is the slice of the storage gateway the pipeline publishes through.
type Uploader interface {
	Upload(ctx context.Context, localPath, key, contentType string) (string, error)
	UploadDirectory(ctx context.Context, localDir, keyPrefix string) ([]string, error)
	DeletePrefix(ctx context.Context, keyPrefix string) error
	PublicURL(key string) string
}

// JobRequest is an accepted ingestion request.
type JobRequest struct {
	MovieID     string
	EpisodeID   string
	SourceKey   string
	CallbackURL string
}

// Validate rejects requests missing required identifiers.
func (r JobRequest) Validate() error {
	if strings.TrimSpace(r.MovieID) == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "submit", "movieId is required", nil)
	}
	if strings.TrimSpace(r.EpisodeID) == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "submit", "episodeId is required", nil)
	}
	if strings.TrimSpace(r.SourceKey) == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "submit", "sourceKey is required", nil)
	}
	return nil
}

// Pipeline accepts jobs and processes each one on its own goroutine.
type Pipeline struct {
	cfg         *config.Config
	store       *store.Store
	fetcher     Fetcher
	prober      Prober
	encoder     PackageEncoder
	thumbnailer Thumbnailer
	uploader    Uploader
	notifier    notify.Notifier
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Pipeline. A nil notifier disables callbacks.
func New(cfg *config.Config, st *store.Store, fetcher Fetcher, prober Prober, encoder PackageEncoder, thumbnailer Thumbnailer, uploader Uploader, notifier notify.Notifier, logger *slog.Logger) *Pipeline {
	if notifier == nil {
		notifier = notify.NewNoop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		cfg:         cfg,
		store:       st,
		fetcher:     fetcher,
		prober:      prober,
		encoder:     encoder,
		thumbnailer: thumbnailer,
		uploader:    uploader,
		notifier:    notifier,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Submit validates and persists a job, kicks off background processing, and
// returns the job record immediately. Processing outlives the caller's request
// context by design.
func (p *Pipeline) Submit(ctx context.Context, req JobRequest) (*store.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	job := &store.Job{
		ID:          uuid.NewString(),
		MovieID:     strings.TrimSpace(req.MovieID),
		EpisodeID:   strings.TrimSpace(req.EpisodeID),
		SourceKey:   strings.TrimSpace(req.SourceKey),
		CallbackURL: strings.TrimSpace(req.CallbackURL),
	}
	if err := p.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	if err := p.store.MarkProcessing(ctx, job.MovieID, job.EpisodeID); err != nil {
		return nil, err
	}

	// The goroutine gets its own copy so callers can read the returned job
	// without racing stage updates.
	background := *job
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(&background)
	}()

	p.logger.Info("job accepted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldMovieID, job.MovieID),
		logging.String(logging.FieldEpisodeID, job.EpisodeID),
	)
	return job, nil
}

// Close stops accepting work and waits for in-flight jobs to drain.
func (p *Pipeline) Close() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pipeline) run(job *store.Job) {
	ctx := services.WithJobID(p.ctx, job.ID)
	logger := logging.WithContext(ctx, p.logger).With(
		logging.String(logging.FieldMovieID, job.MovieID),
		logging.String(logging.FieldEpisodeID, job.EpisodeID),
	)

	outcome, err := p.process(ctx, job, logger)

	// Terminal record writes and the callback must land even when the
	// daemon is shutting down and has cancelled the job context.
	finishCtx := context.WithoutCancel(ctx)
	if err != nil {
		p.finishFailed(finishCtx, job, logger, err)
		return
	}
	p.finishCompleted(finishCtx, job, logger, outcome)
}

func (p *Pipeline) finishCompleted(ctx context.Context, job *store.Job, logger *slog.Logger, outcome *jobOutcome) {
	if err := p.store.CompleteJob(ctx, job.ID); err != nil {
		logger.Error("record job completion", logging.Error(err))
	}
	logger.Info("job completed",
		logging.String("playlist_url", outcome.playlistURL),
		logging.Int("renditions", outcome.renditions),
	)
	p.sendCallback(ctx, job, "")
}

func (p *Pipeline) finishFailed(ctx context.Context, job *store.Job, logger *slog.Logger, failure error) {
	detail := services.Details(failure)
	message := detail.Message
	if message == "" {
		message = failure.Error()
	}

	logger.Error("job failed", logging.Error(failure))
	if err := p.store.FailJob(ctx, job.ID, message); err != nil {
		logger.Error("record job failure", logging.Error(err))
	}
	if err := p.store.MarkFailed(ctx, job.MovieID, job.EpisodeID, message); err != nil {
		logger.Error("record episode failure", logging.Error(err))
	}
	p.sendCallback(ctx, job, message)
}

// sendCallback fires the job's one-shot completion webhook. Delivery failures
// are logged and never retried.
func (p *Pipeline) sendCallback(ctx context.Context, job *store.Job, failureMessage string) {
	err := p.notifier.Notify(ctx, job.CallbackURL, notify.Result{
		JobID:     job.ID,
		MovieID:   job.MovieID,
		EpisodeID: job.EpisodeID,
		Err:       failureMessage,
	})
	if err != nil {
		p.logger.Warn("callback delivery failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
		)
	}
}

// advance persists the stage transition and tags the context with the new
// stage for downstream logging.
func (p *Pipeline) advance(ctx context.Context, job *store.Job, logger *slog.Logger, status store.JobStatus) context.Context {
	stageCtx := services.WithStage(ctx, string(status))
	if err := p.store.UpdateJobStatus(ctx, job.ID, status); err != nil {
		logger.Error("update job status",
			logging.String(logging.FieldStage, string(status)),
			logging.Error(err),
		)
		return stageCtx
	}
	job.Status = status
	logger.Info("stage started", logging.String(logging.FieldStage, string(status)))
	return stageCtx
}

func sourceExtension(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ext == "" {
		return ".mp4"
	}
	return ext
}

func formatDuration(seconds float64) string {
	return fmt.Sprintf("%.1fs", seconds)
}
