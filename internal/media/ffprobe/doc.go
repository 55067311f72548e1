// Package ffprobe wraps the ffprobe binary to extract container duration and
// stream descriptors from a local media file.
package ffprobe
