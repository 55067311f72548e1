package hls

import (
	"fmt"
	"path"
	"strings"
)

// Object key layout for one episode:
//
//	episodes/{movieId}/{episodeId}/original.{ext}
//	episodes/{movieId}/{episodeId}/thumbnail.jpg
//	episodes/{movieId}/{episodeId}/hls/{height}p.m3u8
//	episodes/{movieId}/{episodeId}/hls/segment_{height}p_{seq:03}.m4s
//	episodes/{movieId}/{episodeId}/hls/init-{height}p.mp4
//	episodes/{movieId}/{episodeId}/hls/master.m3u8

// EpisodePrefix returns the storage namespace for one episode.
func EpisodePrefix(movieID, episodeID string) string {
	return path.Join("episodes", movieID, episodeID)
}

// OriginalKey returns the key of the uploaded source video. ext may be given
// with or without a leading dot.
func OriginalKey(movieID, episodeID, ext string) string {
	return path.Join(EpisodePrefix(movieID, episodeID), "original."+normalizeExt(ext))
}

// UploadKey returns the destination key for a direct client upload. An empty
// episodeID yields a movie-level key for sources uploaded before an episode
// record exists.
func UploadKey(movieID, episodeID, ext string) string {
	if strings.TrimSpace(episodeID) == "" {
		return path.Join("episodes", movieID, "original."+normalizeExt(ext))
	}
	return OriginalKey(movieID, episodeID, ext)
}

func normalizeExt(ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return "mp4"
	}
	return ext
}

// ThumbnailKey returns the key of the extracted thumbnail.
func ThumbnailKey(movieID, episodeID string) string {
	return path.Join(EpisodePrefix(movieID, episodeID), "thumbnail.jpg")
}

// PackagePrefix returns the key prefix holding the HLS package.
func PackagePrefix(movieID, episodeID string) string {
	return path.Join(EpisodePrefix(movieID, episodeID), "hls")
}

// MasterKey returns the key of the master playlist.
func MasterKey(movieID, episodeID string) string {
	return path.Join(PackagePrefix(movieID, episodeID), MasterPlaylistName)
}

// MasterPlaylistName is the filename of the top-level manifest.
const MasterPlaylistName = "master.m3u8"

// VariantPlaylistName returns the per-rendition sub-playlist filename.
func VariantPlaylistName(height int) string {
	return fmt.Sprintf("%dp.m3u8", height)
}

// SegmentPattern returns the ffmpeg filename pattern for a rendition's segments.
func SegmentPattern(height int) string {
	return fmt.Sprintf("segment_%dp_%%03d.m4s", height)
}

// InitSegmentName returns the fMP4 initialization segment filename.
func InitSegmentName(height int) string {
	return fmt.Sprintf("init-%dp.mp4", height)
}
