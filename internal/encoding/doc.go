// Package encoding fans out per-rendition encoders, enforces the encode
// deadline, and assembles the adaptive-bitrate package for upload.
package encoding
