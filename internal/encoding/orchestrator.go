package encoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vodmill/internal/hls"
	"vodmill/internal/logging"
	"vodmill/internal/media/ffmpeg"
	"vodmill/internal/planner"
	"vodmill/internal/services"
)

// RenditionEncoder is the per-rendition contract the orchestrator fans out to.
type RenditionEncoder interface {
	EncodeRendition(ctx context.Context, job ffmpeg.RenditionJob) error
}

// Orchestrator runs one encoder per planned rendition concurrently, races
// their joined completion against a wall-clock deadline, and assembles the
// master playlist from per-rendition slots in planning order.
type Orchestrator struct {
	encoder        RenditionEncoder
	segmentSeconds int
	timeout        time.Duration
	logger         *slog.Logger
}

// NewOrchestrator constructs an Orchestrator. timeout bounds the whole encode
// phase of one job; zero or negative disables the deadline.
func NewOrchestrator(encoder RenditionEncoder, segmentSeconds int, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		encoder:        encoder,
		segmentSeconds: segmentSeconds,
		timeout:        timeout,
		logger:         logging.NewComponentLogger(logger, "encoding"),
	}
}

type renditionResult struct {
	index int
	err   error
}

// Encode produces every rendition of the ladder under outputDir and writes
// master.m3u8 once all of them succeed. On any rendition failure or on
// deadline expiry the whole encode fails and no master playlist is written;
// callers must not upload partial output.
func (o *Orchestrator) Encode(ctx context.Context, sourcePath, outputDir string, ladder []planner.Rendition, totalDurationSeconds float64) error {
	if len(ladder) == 0 {
		return services.Wrap(services.ErrValidation, "encoding", "plan", "empty rendition ladder", nil)
	}

	encodeCtx := ctx
	var cancel context.CancelFunc
	if o.timeout > 0 {
		encodeCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	builder := hls.NewMasterBuilder(len(ladder))
	results := make(chan renditionResult, len(ladder))

	var wg sync.WaitGroup
	started := time.Now()
	for i, rendition := range ladder {
		wg.Add(1)
		go func(index int, rendition planner.Rendition) {
			defer wg.Done()
			err := o.encoder.EncodeRendition(encodeCtx, ffmpeg.RenditionJob{
				SourcePath:           sourcePath,
				OutputDir:            outputDir,
				Rendition:            rendition,
				SegmentSeconds:       o.segmentSeconds,
				TotalDurationSeconds: totalDurationSeconds,
			})
			if err == nil {
				builder.SetVariant(index, rendition.Height, rendition.BitrateKbps)
			}
			results <- renditionResult{index: index, err: err}
		}(i, rendition)
	}
	wg.Wait()
	close(results)

	failures := make([]renditionResult, 0, len(ladder))
	for result := range results {
		if result.err != nil {
			failures = append(failures, result)
		}
	}

	if errors.Is(encodeCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		o.logger.Error("encode deadline expired",
			logging.Duration("budget", o.timeout),
			logging.Int("completed_renditions", builder.Complete()),
			logging.Int("planned_renditions", len(ladder)),
		)
		return services.Wrap(services.ErrTimeout, "encoding", "watchdog",
			fmt.Sprintf("encode exceeded %s with %d/%d renditions complete",
				o.timeout, builder.Complete(), len(ladder)), nil)
	}

	if len(failures) > 0 {
		first := failures[0]
		for _, failure := range failures[1:] {
			if failure.index < first.index {
				first = failure
			}
		}
		return first.err
	}

	masterPath := filepath.Join(outputDir, hls.MasterPlaylistName)
	if err := os.WriteFile(masterPath, []byte(builder.String()), 0o644); err != nil {
		return services.Wrap(services.ErrEncode, "encoding", "master playlist", "", err)
	}

	o.logger.Info("encode complete",
		logging.Int("renditions", len(ladder)),
		logging.Duration("elapsed", time.Since(started).Round(time.Second)),
	)
	return nil
}
