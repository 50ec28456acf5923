package edit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/dgallion1/reportsmith/internal/locate"
)

var (
	// ErrNotFound means the locator found nothing or an index was out of range.
	ErrNotFound = locate.ErrNotFound

	// ErrInvalidArgument means an argument was missing or failed validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUpstreamUnavailable means the generation service stayed overloaded
	// after retries. Callers may retry the whole operation later.
	ErrUpstreamUnavailable = errors.New("generation service unavailable")
)

// Error kinds reported to clients.
const (
	KindNotFound          = "not_found"
	KindInvalidArgument   = "invalid_argument"
	KindTransientUpstream = "transient_upstream"
	KindMalformedOutput   = "malformed_output"
	KindCanceled          = "canceled"
	KindInternal          = "internal"
)

// MalformedOutputError reports generated output that could not be used.
// It is never retried automatically.
type MalformedOutputError struct {
	Op      string
	Reason  string
	Snippet string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("%s: malformed generated output: %s (raw: %s)", e.Op, e.Reason, e.Snippet)
}

// KindOf maps err onto the error taxonomy. It returns "" for nil.
func KindOf(err error) string {
	var malformed *MalformedOutputError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, locate.ErrEmptySearch):
		return KindInvalidArgument
	case errors.Is(err, ErrUpstreamUnavailable), genai.IsRetryable(err):
		return KindTransientUpstream
	case errors.As(err, &malformed):
		return KindMalformedOutput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindInternal
}

// Retryable reports whether the caller may retry the operation later.
func Retryable(err error) bool {
	return KindOf(err) == KindTransientUpstream
}

// WrapGeneration maps the result of one generation call for op onto the
// taxonomy. Blank output is malformed.
func WrapGeneration(op, out string, err error) error {
	switch {
	case err == nil && strings.TrimSpace(out) != "":
		return nil
	case err == nil, errors.Is(err, genai.ErrEmptyResponse):
		return &MalformedOutputError{Op: op, Reason: "empty response"}
	case genai.IsRetryable(err):
		return fmt.Errorf("%s: %w: %v", op, ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
