package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"vodmill/internal/hls"
	"vodmill/internal/logging"
	"vodmill/internal/planner"
	"vodmill/internal/services"
)

var commandContext = exec.CommandContext

// RenditionJob describes one scale/re-encode invocation.
type RenditionJob struct {
	SourcePath           string
	OutputDir            string
	Rendition            planner.Rendition
	SegmentSeconds       int
	TotalDurationSeconds float64
}

// Encoder invokes the ffmpeg binary to produce one fMP4 HLS rendition per call.
type Encoder struct {
	binary string
	logger *slog.Logger
}

// NewEncoder constructs an Encoder. A nil logger disables progress logging.
func NewEncoder(binary string, logger *slog.Logger) *Encoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Encoder{binary: binary, logger: logging.NewComponentLogger(logger, "encoder")}
}

// EncodeRendition runs ffmpeg for a single rendition, writing the sub-playlist,
// init segment, and media segments into job.OutputDir. Progress is parsed from
// the diagnostic stream and logged at 10% boundaries.
func (e *Encoder) EncodeRendition(ctx context.Context, job RenditionJob) error {
	resolution := fmt.Sprintf("%dp", job.Rendition.Height)
	if job.SourcePath == "" || job.OutputDir == "" {
		return services.Wrap(services.ErrEncode, "encode", resolution, "source and output directory required", nil)
	}
	segmentSeconds := job.SegmentSeconds
	if segmentSeconds <= 0 {
		segmentSeconds = 6
	}

	args := buildRenditionArgs(job, segmentSeconds)
	cmd := commandContext(ctx, e.binary, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return services.Wrap(services.ErrEncode, "encode", resolution, "stderr pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrEncode, "encode", resolution, "start ffmpeg", err)
	}

	parser := NewProgressParser(job.TotalDurationSeconds, func(p Progress) {
		e.logger.Info("encode progress",
			logging.String("resolution", resolution),
			logging.Float64("percent", p.Percent),
			logging.Duration("eta", p.ETA),
		)
	})

	var tail diagnosticTail
	scanner := bufio.NewScanner(stderr)
	scanner.Split(scanDiagnosticLines)
	for scanner.Scan() {
		line := scanner.Text()
		tail.add(line)
		parser.ConsumeLine(line)
	}

	if err := cmd.Wait(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		encodeErr := &EncodeError{Resolution: resolution, ExitCode: exitCode}
		return services.Wrap(services.ErrEncode, "encode", resolution, tail.String(), encodeErr)
	}
	return nil
}

func buildRenditionArgs(job RenditionJob, segmentSeconds int) []string {
	height := job.Rendition.Height
	return []string{
		"-y",
		"-i", job.SourcePath,
		"-vf", fmt.Sprintf("scale=-2:%d", height),
		"-c:v", "libx264",
		"-b:v", fmt.Sprintf("%dk", job.Rendition.BitrateKbps),
		"-maxrate", fmt.Sprintf("%dk", job.Rendition.BitrateKbps*12/10),
		"-bufsize", fmt.Sprintf("%dk", job.Rendition.BitrateKbps*2),
		"-c:a", "aac",
		"-b:a", "128k",
		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_segment_type", "fmp4",
		"-hls_fmp4_init_filename", hls.InitSegmentName(height),
		"-hls_segment_filename", filepath.Join(job.OutputDir, hls.SegmentPattern(height)),
		filepath.Join(job.OutputDir, hls.VariantPlaylistName(height)),
	}
}

// scanDiagnosticLines splits on both \n and \r, since ffmpeg rewrites its
// stats line in place with carriage returns.
func scanDiagnosticLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// diagnosticTail keeps the last few diagnostic lines for error messages.
type diagnosticTail struct {
	lines []string
}

func (t *diagnosticTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.Contains(line, "time=") {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > 5 {
		t.lines = t.lines[len(t.lines)-5:]
	}
}

func (t *diagnosticTail) String() string {
	return strings.Join(t.lines, "; ")
}
