package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"vodmill/internal/logging"
)

// SecretHeader authenticates callbacks to the receiving service.
const SecretHeader = "X-Worker-Secret"

type callbackPayload struct {
	Status    string `json:"status"`
	MovieID   string `json:"movieId"`
	EpisodeID string `json:"episodeId"`
	JobID     string `json:"jobId"`
	Error     string `json:"error,omitempty"`
}

// WebhookNotifier posts job results to per-job callback URLs with a shared
// secret header.
type WebhookNotifier struct {
	client *http.Client
	secret string
	logger *slog.Logger
}

// NewWebhook constructs a WebhookNotifier. A zero timeout defaults to 10s.
func NewWebhook(secret string, timeout time.Duration, logger *slog.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		client: &http.Client{Timeout: timeout},
		secret: secret,
		logger: logging.NewComponentLogger(logger, "notify"),
	}
}

// Notify posts the result to callbackURL. A blank URL is a no-op. Failures
// are returned for logging only; the caller never retries.
func (n *WebhookNotifier) Notify(ctx context.Context, callbackURL string, result Result) error {
	if callbackURL == "" {
		return nil
	}

	payload := callbackPayload{
		Status:    "completed",
		MovieID:   result.MovieID,
		EpisodeID: result.EpisodeID,
		JobID:     result.JobID,
	}
	if result.Err != "" {
		payload.Status = "error"
		payload.Error = result.Err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set(SecretHeader, n.secret)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post callback: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}

	n.logger.Info("callback delivered",
		logging.String(logging.FieldJobID, result.JobID),
		logging.String("status", payload.Status),
	)
	return nil
}

var _ Notifier = (*WebhookNotifier)(nil)
