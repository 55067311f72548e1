// Package transfer wraps source downloads with a bounded retry budget to ride
// out transient object-storage flakiness on large files.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"vodmill/internal/fileutil"
	"vodmill/internal/logging"
	"vodmill/internal/services"
)

// Downloader is the single storage operation the supervisor guards.
type Downloader interface {
	Download(ctx context.Context, key, localPath string) error
}

// ExhaustedError reports that every download attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("download failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Supervisor retries a download with a fixed delay between attempts. A
// zero-byte result counts as a failed attempt: storage occasionally returns an
// empty body for objects that are still settling.
type Supervisor struct {
	downloader Downloader
	attempts   int
	delay      time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

// NewSupervisor constructs a Supervisor with the given retry budget.
func NewSupervisor(downloader Downloader, attempts int, delay time.Duration, logger *slog.Logger) *Supervisor {
	if attempts <= 0 {
		attempts = 1
	}
	return &Supervisor{
		downloader: downloader,
		attempts:   attempts,
		delay:      delay,
		sleep:      sleepContext,
		logger:     logging.NewComponentLogger(logger, "transfer"),
	}
}

// Fetch downloads key to localPath, retrying up to the configured budget.
func (s *Supervisor) Fetch(ctx context.Context, key, localPath string) error {
	var last error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = s.attemptOnce(ctx, key, localPath)
		if last == nil {
			return nil
		}

		s.logger.Warn("download attempt failed",
			logging.String("key", key),
			logging.Int("attempt", attempt),
			logging.Int("budget", s.attempts),
			logging.Error(last),
		)
		if attempt < s.attempts {
			if err := s.sleep(ctx, s.delay); err != nil {
				return err
			}
		}
	}

	exhausted := &ExhaustedError{Attempts: s.attempts, Last: last}
	return services.Wrap(services.ErrTransient, "transfer", "download", key, exhausted)
}

func (s *Supervisor) attemptOnce(ctx context.Context, key, localPath string) error {
	if err := s.downloader.Download(ctx, key, localPath); err != nil {
		_ = os.Remove(localPath)
		return err
	}
	size, err := fileutil.FileSize(localPath)
	if err != nil {
		return err
	}
	if size == 0 {
		_ = os.Remove(localPath)
		return fmt.Errorf("downloaded object %s is empty", key)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
