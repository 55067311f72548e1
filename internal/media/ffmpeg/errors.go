package ffmpeg

import "fmt"

// EncodeError reports a transcoder process that exited non-zero for one
// rendition.
type EncodeError struct {
	Resolution string
	ExitCode   int
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("rendition %s failed with exit code %d", e.Resolution, e.ExitCode)
}
