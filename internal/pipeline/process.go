package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"vodmill/internal/hls"
	"vodmill/internal/logging"
	"vodmill/internal/planner"
	"vodmill/internal/storage"
	"vodmill/internal/store"
)

type jobOutcome struct {
	playlistURL  string
	thumbnailURL string
	renditions   int
}

// process runs the stage sequence for one job. Every path through this
// function, success or failure, removes the job's staging directory.
func (p *Pipeline) process(ctx context.Context, job *store.Job, logger *slog.Logger) (*jobOutcome, error) {
	stagingDir := filepath.Join(p.cfg.Paths.StagingDir, "job-"+job.ID)
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(stagingDir); err != nil {
			logger.Warn("staging cleanup failed",
				logging.String("dir", stagingDir),
				logging.Error(err),
			)
		}
	}()

	// Download the source object with the retry budget.
	ctx = p.advance(ctx, job, logger, store.JobStatusDownloading)
	sourcePath := filepath.Join(stagingDir, "original"+sourceExtension(job.SourceKey))
	if err := p.fetcher.Fetch(ctx, job.SourceKey, sourcePath); err != nil {
		return nil, err
	}

	// Probe the container and pick the ladder from its duration.
	ctx = p.advance(ctx, job, logger, store.JobStatusProbing)
	probe, err := p.prober.Inspect(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	if err := probe.Validate(); err != nil {
		return nil, err
	}
	duration := probe.DurationSeconds()
	ladder := planner.Plan(duration)
	logger.Info("source probed",
		logging.String("duration", formatDuration(duration)),
		logging.Int("planned_renditions", len(ladder)),
		logging.Int("audio_streams", probe.AudioStreamCount()),
	)

	// Extract the poster frame before the long encode phase.
	ctx = p.advance(ctx, job, logger, store.JobStatusThumbnailing)
	thumbPath := filepath.Join(stagingDir, "thumbnail.jpg")
	if err := p.thumbnailer.ExtractThumbnail(ctx, sourcePath, thumbPath, p.cfg.FFmpeg.ThumbnailOffsetSeconds, duration); err != nil {
		return nil, err
	}

	// Encode every rendition; the orchestrator writes master.m3u8 on success.
	ctx = p.advance(ctx, job, logger, store.JobStatusEncoding)
	packageDir := filepath.Join(stagingDir, "hls")
	if err := os.MkdirAll(packageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create package directory: %w", err)
	}
	if err := p.encoder.Encode(ctx, sourcePath, packageDir, ladder, duration); err != nil {
		return nil, err
	}

	// Publish: clear any stale package, then upload the new one plus the
	// thumbnail. The episode record is only touched after everything landed.
	ctx = p.advance(ctx, job, logger, store.JobStatusUploading)
	packagePrefix := hls.PackagePrefix(job.MovieID, job.EpisodeID)
	if err := p.uploader.DeletePrefix(ctx, packagePrefix); err != nil {
		return nil, err
	}
	if _, err := p.uploader.UploadDirectory(ctx, packageDir, packagePrefix); err != nil {
		return nil, err
	}
	thumbKey := hls.ThumbnailKey(job.MovieID, job.EpisodeID)
	thumbnailURL, err := p.uploader.Upload(ctx, thumbPath, thumbKey, storage.ContentTypeFor(thumbKey))
	if err != nil {
		return nil, err
	}

	ctx = p.advance(ctx, job, logger, store.JobStatusPersisting)
	playlistURL := p.uploader.PublicURL(hls.MasterKey(job.MovieID, job.EpisodeID))
	if err := p.store.MarkCompleted(ctx, job.MovieID, job.EpisodeID, playlistURL, thumbnailURL, int(duration+0.5)); err != nil {
		return nil, err
	}

	return &jobOutcome{
		playlistURL:  playlistURL,
		thumbnailURL: thumbnailURL,
		renditions:   len(ladder),
	}, nil
}
