// Package notify delivers the one-shot completion callback a job may carry.
package notify

import "context"

// Result is the terminal outcome reported to a job's callback URL.
type Result struct {
	JobID     string
	MovieID   string
	EpisodeID string
	// Err is empty on success and holds the failure message otherwise.
	Err string
}

// Notifier delivers a job's terminal result to an external listener. Delivery
// is fire-and-forget: implementations report errors but callers must not
// retry, the callback fires at most once per job.
type Notifier interface {
	Notify(ctx context.Context, callbackURL string, result Result) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, Result) error { return nil }

// NewNoop returns a Notifier that discards every callback.
func NewNoop() Notifier { return noopNotifier{} }
