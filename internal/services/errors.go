package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify pipeline failures. Components wrap their
// errors with one of these so the job orchestrator can map a failure to the
// right episode state and callback payload.
var (
	ErrProbe         = errors.New("probe error")
	ErrEncode        = errors.New("encode error")
	ErrTimeout       = errors.New("timeout")
	ErrStorage       = errors.New("storage error")
	ErrTransient     = errors.New("transient failure")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

var markers = []error{
	ErrProbe,
	ErrEncode,
	ErrTimeout,
	ErrStorage,
	ErrTransient,
	ErrValidation,
	ErrConfiguration,
	ErrNotFound,
}

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureDetail describes a classified failure for persistence and reporting.
type FailureDetail struct {
	Marker  error
	Message string
}

// Details strips the sentinel prefix from a wrapped error so the remainder can
// be persisted on the episode record without the internal marker text.
func Details(err error) FailureDetail {
	if err == nil {
		return FailureDetail{}
	}
	message := err.Error()
	for _, marker := range markers {
		if !errors.Is(err, marker) {
			continue
		}
		trimmed := strings.TrimPrefix(message, marker.Error())
		trimmed = strings.TrimPrefix(trimmed, ": ")
		return FailureDetail{Marker: marker, Message: strings.TrimSpace(trimmed)}
	}
	return FailureDetail{Message: strings.TrimSpace(message)}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
