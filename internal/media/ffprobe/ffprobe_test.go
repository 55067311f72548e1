package ffprobe_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"vodmill/internal/media/ffprobe"
	"vodmill/internal/services"
)

const sampleProbeOutput = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "duration": "932.400000"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "channels": 2},
    {"index": 2, "codec_name": "aac", "codec_type": "audio", "channels": 6}
  ],
  "format": {
    "filename": "original.mp4",
    "nb_streams": 3,
    "duration": "932.417000",
    "size": "734003200",
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2"
  }
}`

func decodeResult(t *testing.T, payload string) ffprobe.Result {
	t.Helper()
	var result ffprobe.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		t.Fatalf("decode probe output: %v", err)
	}
	return result
}

func TestResultAccessors(t *testing.T) {
	result := decodeResult(t, sampleProbeOutput)

	if got := result.DurationSeconds(); got != 932.417 {
		t.Fatalf("duration = %v", got)
	}
	video, ok := result.VideoStream()
	if !ok {
		t.Fatal("expected a video stream")
	}
	if video.CodecName != "h264" || video.Width != 1920 || video.Height != 1080 {
		t.Fatalf("unexpected video stream: %+v", video)
	}
	if got := result.AudioStreamCount(); got != 2 {
		t.Fatalf("audio streams = %d, want 2", got)
	}
	if err := result.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsAudioOnly(t *testing.T) {
	result := decodeResult(t, `{
	  "streams": [{"index": 0, "codec_type": "audio", "channels": 2}],
	  "format": {"duration": "120.0"}
	}`)

	err := result.Validate()
	if !errors.Is(err, services.ErrProbe) {
		t.Fatalf("expected probe classification, got %v", err)
	}
}

func TestValidateRejectsMissingDuration(t *testing.T) {
	result := decodeResult(t, `{
	  "streams": [{"index": 0, "codec_type": "video", "width": 640, "height": 360}],
	  "format": {"duration": "N/A"}
	}`)

	if err := result.Validate(); !errors.Is(err, services.ErrProbe) {
		t.Fatalf("expected probe classification, got %v", err)
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := ffprobe.Inspect(context.Background(), "ffprobe", ""); !errors.Is(err, services.ErrProbe) {
		t.Fatalf("expected probe classification, got %v", err)
	}
}
