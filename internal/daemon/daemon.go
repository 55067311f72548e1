// Package daemon wires the pipeline components together and runs the HTTP API
// for the life of the process.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/gofrs/flock"

	"vodmill/internal/config"
	"vodmill/internal/encoding"
	"vodmill/internal/logging"
	"vodmill/internal/media/ffmpeg"
	"vodmill/internal/media/ffprobe"
	"vodmill/internal/notify"
	"vodmill/internal/pipeline"
	"vodmill/internal/storage"
	"vodmill/internal/store"
	"vodmill/internal/transfer"
)

// Daemon owns every long-lived resource of a vodmill process: the instance
// lock, the database, the storage client, the pipeline, and the API server.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	lock      *flock.Flock
	store     *store.Store
	gcsClient *gcs.Client
	pipeline  *pipeline.Pipeline
	api       *APIServer
}

// New constructs an unstarted Daemon.
func New(cfg *config.Config, logger *slog.Logger) *Daemon {
	return &Daemon{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "daemon"),
	}
}

// Start acquires the instance lock, opens the database, reconciles jobs
// abandoned by a previous run, and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	d.lock = flock.New(filepath.Join(d.cfg.Paths.DataDir, "vodmill.lock"))
	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another vodmill instance already holds %s", d.lock.Path())
	}

	st, err := store.Open(d.cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	d.store = st

	abandoned, err := st.ReconcileAbandoned(ctx)
	if err != nil {
		return fmt.Errorf("reconcile abandoned jobs: %w", err)
	}
	if len(abandoned) > 0 {
		d.logger.Warn("failed jobs abandoned by previous run",
			logging.Int("count", len(abandoned)),
		)
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	d.gcsClient = client

	objectStore, err := storage.NewGCSStore(client, storage.GCSOptions{
		Bucket:        d.cfg.Storage.Bucket,
		SignerEmail:   d.cfg.Storage.SignerEmail,
		SignerKeyPath: d.cfg.Storage.SignerKeyPath,
	})
	if err != nil {
		return fmt.Errorf("configure object store: %w", err)
	}

	gateway := storage.NewGateway(objectStore, d.cfg.Storage.PublicBaseURL, d.logger)
	supervisor := transfer.NewSupervisor(gateway,
		d.cfg.Transfer.DownloadAttempts,
		time.Duration(d.cfg.Transfer.RetryDelaySeconds)*time.Second,
		d.logger)

	encoder := ffmpeg.NewEncoder(d.cfg.FFmpeg.FFmpegBinary, d.logger)
	orchestrator := encoding.NewOrchestrator(encoder,
		d.cfg.FFmpeg.SegmentSeconds,
		time.Duration(d.cfg.FFmpeg.EncodeTimeoutMinutes)*time.Minute,
		d.logger)

	notifier := notify.NewWebhook(d.cfg.Callback.SharedSecret,
		time.Duration(d.cfg.Callback.TimeoutSeconds)*time.Second,
		d.logger)

	d.pipeline = pipeline.New(d.cfg, st,
		supervisor,
		prober{binary: d.cfg.FFmpeg.FFprobeBinary},
		orchestrator,
		encoder,
		gateway,
		notifier,
		d.logger)

	d.api = NewAPIServer(d.cfg.Paths.APIBind, d.cfg.Paths.APIToken,
		d.pipeline, st, gateway,
		time.Duration(d.cfg.Storage.PresignExpirySeconds)*time.Second,
		d.logger)

	go func() {
		if err := d.api.Start(); err != nil {
			d.logger.Error("api server stopped", logging.Error(err))
		}
	}()

	d.logger.Info("daemon started",
		logging.String("bind", d.cfg.Paths.APIBind),
		logging.String("bucket", d.cfg.Storage.Bucket),
	)
	return nil
}

// Run starts the daemon and blocks until ctx is cancelled, then shuts down.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		d.releaseLock()
		return err
	}
	<-ctx.Done()
	return d.Stop()
}

// Stop drains in-flight jobs and releases every resource.
func (d *Daemon) Stop() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var firstErr error
	if d.api != nil {
		if err := d.api.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown api: %w", err)
		}
	}
	if d.pipeline != nil {
		d.pipeline.Close()
	}
	if d.gcsClient != nil {
		if err := d.gcsClient.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close storage client: %w", err)
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store: %w", err)
		}
	}
	d.releaseLock()

	d.logger.Info("daemon stopped")
	return firstErr
}

func (d *Daemon) releaseLock() {
	if d.lock != nil {
		_ = d.lock.Unlock()
	}
}

// prober adapts the ffprobe package function to the pipeline interface.
type prober struct {
	binary string
}

func (p prober) Inspect(ctx context.Context, path string) (ffprobe.Result, error) {
	return ffprobe.Inspect(ctx, p.binary, path)
}
