package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vodmill/internal/services"
)

// MarkProcessing records that an episode's ingestion has begun. It creates the
// row if needed and clears any stale processing error so retries start clean.
// A previously published playlist stays published until the new run completes.
func (s *Store) MarkProcessing(ctx context.Context, movieID, episodeID string) error {
	now := timestamp(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (movie_id, episode_id, is_processed, processing_error, updated_at)
		VALUES (?, ?, 0, NULL, ?)
		ON CONFLICT (movie_id, episode_id) DO UPDATE SET
			is_processed = 0,
			processing_error = NULL,
			updated_at = excluded.updated_at`,
		movieID, episodeID, now)
	if err != nil {
		return fmt.Errorf("mark episode processing: %w", err)
	}
	return nil
}

// MarkCompleted publishes a finished ingestion run: the playlist and thumbnail
// URLs, the probed duration, and the processed flag, clearing any prior error.
func (s *Store) MarkCompleted(ctx context.Context, movieID, episodeID, playlistURL, thumbnailURL string, durationSeconds int) error {
	now := timestamp(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (movie_id, episode_id, is_processed, processing_error, playlist_url, thumbnail_url, duration_seconds, updated_at)
		VALUES (?, ?, 1, NULL, ?, ?, ?, ?)
		ON CONFLICT (movie_id, episode_id) DO UPDATE SET
			is_processed = 1,
			processing_error = NULL,
			playlist_url = excluded.playlist_url,
			thumbnail_url = excluded.thumbnail_url,
			duration_seconds = excluded.duration_seconds,
			updated_at = excluded.updated_at`,
		movieID, episodeID, playlistURL, nullableString(thumbnailURL), durationSeconds, now)
	if err != nil {
		return fmt.Errorf("mark episode completed: %w", err)
	}
	return nil
}

// MarkFailed records a processing failure. The playlist and thumbnail columns
// are deliberately untouched so a failed re-run never unpublishes an episode
// that already streams.
func (s *Store) MarkFailed(ctx context.Context, movieID, episodeID, message string) error {
	now := timestamp(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (movie_id, episode_id, is_processed, processing_error, updated_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT (movie_id, episode_id) DO UPDATE SET
			is_processed = 0,
			processing_error = excluded.processing_error,
			updated_at = excluded.updated_at`,
		movieID, episodeID, nullableString(message), now)
	if err != nil {
		return fmt.Errorf("mark episode failed: %w", err)
	}
	return nil
}

// GetEpisode fetches one episode record.
func (s *Store) GetEpisode(ctx context.Context, movieID, episodeID string) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT movie_id, episode_id, is_processed, processing_error, playlist_url, thumbnail_url, duration_seconds, updated_at
		FROM episodes
		WHERE movie_id = ? AND episode_id = ?`,
		movieID, episodeID)

	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get-episode",
			fmt.Sprintf("episode %s/%s", movieID, episodeID), err)
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return episode, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (*Episode, error) {
	var (
		episode          Episode
		processed        int
		processingError  sql.NullString
		playlistURL      sql.NullString
		thumbnailURL     sql.NullString
		updatedAt        string
	)
	err := row.Scan(
		&episode.MovieID,
		&episode.EpisodeID,
		&processed,
		&processingError,
		&playlistURL,
		&thumbnailURL,
		&episode.DurationSeconds,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	episode.IsProcessed = processed != 0
	episode.ProcessingError = processingError.String
	episode.PlaylistURL = playlistURL.String
	episode.ThumbnailURL = thumbnailURL.String
	episode.UpdatedAt = parseTimestamp(updatedAt)
	return &episode, nil
}
