package ffmpeg

import (
	"context"
	"fmt"
	"strings"

	"vodmill/internal/services"
)

// ExtractThumbnail grabs a single frame at offsetSeconds from sourcePath and
// writes it as a JPEG to destPath. The offset is clamped into the source
// duration so very short clips still produce a frame.
func (e *Encoder) ExtractThumbnail(ctx context.Context, sourcePath, destPath string, offsetSeconds int, durationSeconds float64) error {
	offset := float64(offsetSeconds)
	if durationSeconds > 0 && offset >= durationSeconds {
		offset = durationSeconds / 2
	}

	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.2f", offset),
		"-i", sourcePath,
		"-frames:v", "1",
		"-q:v", "2",
		destPath,
	}
	cmd := commandContext(ctx, e.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrEncode, "thumbnail", "extract",
			strings.TrimSpace(string(output)), err)
	}
	return nil
}
