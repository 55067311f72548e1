package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vodmill/internal/config"
	"vodmill/internal/media/ffprobe"
	"vodmill/internal/notify"
	"vodmill/internal/pipeline"
	"vodmill/internal/planner"
	"vodmill/internal/services"
	"vodmill/internal/store"
	"vodmill/internal/testsupport"
)

type stubFetcher struct {
	err error
}

func (f *stubFetcher) Fetch(_ context.Context, _ string, localPath string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(localPath, []byte("source"), 0o644)
}

type stubProber struct {
	duration string
}

func (p *stubProber) Inspect(context.Context, string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{Index: 0, CodecType: "video", Width: 1920, Height: 1080}},
		Format:  ffprobe.Format{Duration: p.duration},
	}, nil
}

type stubEncoder struct {
	mu      sync.Mutex
	ladders [][]planner.Rendition
	err     error
}

func (e *stubEncoder) Encode(_ context.Context, sourcePath, outputDir string, ladder []planner.Rendition, _ float64) error {
	e.mu.Lock()
	e.ladders = append(e.ladders, ladder)
	e.mu.Unlock()

	if _, err := os.Stat(sourcePath); err != nil {
		return fmt.Errorf("source missing during encode: %w", err)
	}
	if e.err != nil {
		return e.err
	}
	return os.WriteFile(filepath.Join(outputDir, "master.m3u8"), []byte("#EXTM3U\n"), 0o644)
}

type stubThumbnailer struct{}

func (stubThumbnailer) ExtractThumbnail(_ context.Context, _, destPath string, _ int, _ float64) error {
	return os.WriteFile(destPath, []byte("jpeg"), 0o644)
}

type recordingUploader struct {
	mu    sync.Mutex
	calls []string
}

func (u *recordingUploader) record(format string, args ...any) {
	u.mu.Lock()
	u.calls = append(u.calls, fmt.Sprintf(format, args...))
	u.mu.Unlock()
}

func (u *recordingUploader) Upload(_ context.Context, _, key, _ string) (string, error) {
	u.record("upload %s", key)
	return u.PublicURL(key), nil
}

func (u *recordingUploader) UploadDirectory(_ context.Context, _, keyPrefix string) ([]string, error) {
	u.record("upload-dir %s", keyPrefix)
	return []string{u.PublicURL(keyPrefix + "/master.m3u8")}, nil
}

func (u *recordingUploader) DeletePrefix(_ context.Context, keyPrefix string) error {
	u.record("delete-prefix %s", keyPrefix)
	return nil
}

func (u *recordingUploader) PublicURL(key string) string {
	return "https://cdn.example/" + key
}

func (u *recordingUploader) snapshot() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.calls...)
}

type callbackRecorder struct {
	results chan notify.Result
}

func newCallbackRecorder() *callbackRecorder {
	return &callbackRecorder{results: make(chan notify.Result, 4)}
}

func (r *callbackRecorder) Notify(_ context.Context, _ string, result notify.Result) error {
	r.results <- result
	return nil
}

func (r *callbackRecorder) wait(t *testing.T) notify.Result {
	t.Helper()
	select {
	case result := <-r.results:
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
		return notify.Result{}
	}
}

type fixture struct {
	cfg      *config.Config
	store    *store.Store
	encoder  *stubEncoder
	uploader *recordingUploader
	callback *callbackRecorder
	pipeline *pipeline.Pipeline
}

func newFixture(t *testing.T, duration string, encodeErr error) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)

	encoder := &stubEncoder{err: encodeErr}
	uploader := &recordingUploader{}
	callback := newCallbackRecorder()

	pl := pipeline.New(cfg, st,
		&stubFetcher{},
		&stubProber{duration: duration},
		encoder,
		stubThumbnailer{},
		uploader,
		callback,
		nil)
	t.Cleanup(pl.Close)

	return &fixture{cfg: cfg, store: st, encoder: encoder, uploader: uploader, callback: callback, pipeline: pl}
}

func submit(t *testing.T, fx *fixture) *store.Job {
	t.Helper()
	job, err := fx.pipeline.Submit(context.Background(), pipeline.JobRequest{
		MovieID:     "m1",
		EpisodeID:   "e1",
		SourceKey:   "episodes/m1/e1/original.mp4",
		CallbackURL: "https://app.example/callback",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return job
}

func assertStagingRemoved(t *testing.T, cfg *config.Config, jobID string) {
	t.Helper()
	stagingDir := filepath.Join(cfg.Paths.StagingDir, "job-"+jobID)
	if _, err := os.Stat(stagingDir); !os.IsNotExist(err) {
		t.Fatalf("staging dir %s survived the job, stat err %v", stagingDir, err)
	}
}

func TestJobSuccessPublishesEpisode(t *testing.T) {
	fx := newFixture(t, "900.0", nil)
	job := submit(t, fx)

	result := fx.callback.wait(t)
	if result.Err != "" {
		t.Fatalf("callback reported failure: %q", result.Err)
	}
	if result.JobID != job.ID || result.MovieID != "m1" || result.EpisodeID != "e1" {
		t.Fatalf("callback identifiers = %+v", result)
	}

	fx.pipeline.Close()
	ctx := context.Background()

	stored, err := fx.store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != store.JobStatusCompleted {
		t.Fatalf("job status = %q", stored.Status)
	}

	episode, err := fx.store.GetEpisode(ctx, "m1", "e1")
	if err != nil {
		t.Fatalf("get episode: %v", err)
	}
	if !episode.IsProcessed {
		t.Fatal("episode not marked processed")
	}
	if episode.PlaylistURL != "https://cdn.example/episodes/m1/e1/hls/master.m3u8" {
		t.Fatalf("playlist url = %q", episode.PlaylistURL)
	}
	if episode.ThumbnailURL != "https://cdn.example/episodes/m1/e1/thumbnail.jpg" {
		t.Fatalf("thumbnail url = %q", episode.ThumbnailURL)
	}
	if episode.DurationSeconds != 900 {
		t.Fatalf("duration = %d", episode.DurationSeconds)
	}

	// Full ladder for a short source, and stale package cleared before upload.
	if len(fx.encoder.ladders) != 1 || len(fx.encoder.ladders[0]) != 5 {
		t.Fatalf("encoder ladders = %+v", fx.encoder.ladders)
	}
	calls := fx.uploader.snapshot()
	want := []string{
		"delete-prefix episodes/m1/e1/hls",
		"upload-dir episodes/m1/e1/hls",
		"upload episodes/m1/e1/thumbnail.jpg",
	}
	if len(calls) != len(want) {
		t.Fatalf("uploader calls = %v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("uploader call %d = %q, want %q", i, calls[i], want[i])
		}
	}

	assertStagingRemoved(t, fx.cfg, job.ID)
}

func TestLongFormSourceGetsReducedLadder(t *testing.T) {
	fx := newFixture(t, "1500.0", nil)
	submit(t, fx)
	fx.callback.wait(t)
	fx.pipeline.Close()

	if len(fx.encoder.ladders) != 1 || len(fx.encoder.ladders[0]) != 2 {
		t.Fatalf("encoder ladders = %+v", fx.encoder.ladders)
	}
}

func TestJobFailureRecordsErrorAndCleansUp(t *testing.T) {
	encodeErr := services.Wrap(services.ErrEncode, "encode", "720p", "exit 1", nil)
	fx := newFixture(t, "900.0", encodeErr)
	job := submit(t, fx)

	result := fx.callback.wait(t)
	if result.Err == "" {
		t.Fatal("callback should carry the failure message")
	}
	fx.pipeline.Close()
	ctx := context.Background()

	stored, err := fx.store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != store.JobStatusFailed || stored.ErrorMessage == "" {
		t.Fatalf("failed job = %+v", stored)
	}

	episode, err := fx.store.GetEpisode(ctx, "m1", "e1")
	if err != nil {
		t.Fatalf("get episode: %v", err)
	}
	if episode.IsProcessed {
		t.Fatal("failed episode marked processed")
	}
	if episode.ProcessingError == "" {
		t.Fatal("episode missing processing error")
	}

	// Nothing may be uploaded after a failed encode.
	if calls := fx.uploader.snapshot(); len(calls) != 0 {
		t.Fatalf("uploader was called after encode failure: %v", calls)
	}

	assertStagingRemoved(t, fx.cfg, job.ID)
}

func TestSubmitValidatesRequest(t *testing.T) {
	fx := newFixture(t, "900.0", nil)

	_, err := fx.pipeline.Submit(context.Background(), pipeline.JobRequest{
		EpisodeID: "e1",
		SourceKey: "k",
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
