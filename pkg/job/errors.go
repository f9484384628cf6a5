package job

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every stage failure is tagged with exactly one of them.
var (
	ErrFetch      = errors.New("fetch error")
	ErrValidation = errors.New("validation error")
	ErrTranscode  = errors.New("transcode error")
	ErrPackaging  = errors.New("packaging error")
	ErrPublish    = errors.New("publish error")
)

var kinds = []error{ErrFetch, ErrValidation, ErrTranscode, ErrPackaging, ErrPublish}

// Wrap tags err with kind and prefixes it with the stage and operation that failed.
func Wrap(kind error, stage, operation string, err error) error {
	detail := detail(stage, operation)
	if err == nil {
		return fmt.Errorf("%w: %s", kind, detail)
	}
	// already tagged, keep the original kind
	if KindOf(err) != nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	return fmt.Errorf("%w: %s: %w", kind, detail, err)
}

// Errorf builds a tagged error from a format string.
func Errorf(kind error, format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, a...))
}

// KindOf returns the kind err was tagged with, or nil.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName returns a short name for the kind of err, suitable for logs and metric labels.
func KindName(err error) string {
	switch KindOf(err) {
	case ErrFetch:
		return "fetch"
	case ErrValidation:
		return "validation"
	case ErrTranscode:
		return "transcode"
	case ErrPackaging:
		return "packaging"
	case ErrPublish:
		return "publish"
	default:
		return "unknown"
	}
}

func detail(stage, operation string) string {
	parts := make([]string, 0, 2)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return "job failure"
	}
	return strings.Join(parts, ": ")
}
