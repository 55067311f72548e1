// Package ffmpeg wraps the ffmpeg binary for per-rendition HLS encoding,
// thumbnail extraction, and diagnostic-stream progress parsing.
package ffmpeg
