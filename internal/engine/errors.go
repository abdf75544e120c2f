// Package engine runs one conversational turn: context load, model call,
// tool dispatch, optional transcript reduction and persistence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ChamsBouzaiene/easywatch/internal/session"
)

var (
	ErrUnknownTool           = errors.New("unknown tool")
	ErrInvalidArguments      = errors.New("invalid tool arguments")
	ErrInvalidURL            = errors.New("invalid YouTube URL")
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	ErrSummarizationFailed   = errors.New("summarization failed")
	ErrUpstreamTimeout       = errors.New("upstream timeout")
	ErrModelCallFailed       = errors.New("model call failed")
	ErrAccessDenied          = session.ErrAccessDenied
)

// RetryClass says how a failed model call may be retried.
type RetryClass string

const (
	RetryClassRetryable    RetryClass = "retryable"
	RetryClassMaybe        RetryClass = "maybe" // at most one retry
	RetryClassNonRetryable RetryClass = "non_retryable"
)

// ProviderError is a model provider failure annotated with what the HTTP
// layer reported.
type ProviderError struct {
	Err        error
	Class      RetryClass
	Status     int    // 0 when the provider gave no HTTP status
	RetryAfter string // raw Retry-After header
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// RateLimited reports a 429 from the provider.
func (e *ProviderError) RateLimited() bool { return e.Status == http.StatusTooManyRequests }

// WrapLLMError annotates a provider error. status and retryAfter may be zero
// values when the SDK did not expose them.
func WrapLLMError(err error, status int, retryAfter string) error {
	if err == nil {
		return nil
	}
	class := classifyStatus(status)
	if class == "" {
		class = ClassifyLLMError(err)
	}
	return &ProviderError{Err: err, Class: class, Status: status, RetryAfter: retryAfter}
}

func classifyStatus(status int) RetryClass {
	switch {
	case status == 0:
		return ""
	case status == http.StatusTooManyRequests, status >= 500 && status != http.StatusNotImplemented:
		return RetryClassRetryable
	case status == http.StatusRequestTimeout:
		return RetryClassMaybe
	default:
		return RetryClassNonRetryable
	}
}

// retryMarkers are matched against lowercased error text when the provider
// gave no status code.
var retryMarkers = []struct {
	class   RetryClass
	needles []string
}{
	{RetryClassRetryable, []string{"429", "rate limit", "too many requests"}},
	{RetryClassRetryable, []string{"500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable", "overloaded"}},
	{RetryClassRetryable, []string{"connection reset", "connection refused", "no such host", "temporary failure", "unexpected eof"}},
	{RetryClassMaybe, []string{"deadline exceeded", "timeout"}},
}

// ClassifyLLMError decides whether a model call error is worth retrying.
// Auth failures, bad requests, quota and safety refusals are never retried.
func ClassifyLLMError(err error) RetryClass {
	if err == nil {
		return RetryClassNonRetryable
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.Class != "" {
		return pe.Class
	}
	switch {
	case errors.Is(err, context.Canceled):
		return RetryClassNonRetryable
	case errors.Is(err, context.DeadlineExceeded):
		return RetryClassMaybe
	}

	msg := strings.ToLower(err.Error())
	for _, m := range retryMarkers {
		for _, n := range m.needles {
			if strings.Contains(msg, n) {
				return m.class
			}
		}
	}
	return RetryClassNonRetryable
}

// RetryAfter returns the provider's requested backoff, or 0.
func RetryAfter(err error) time.Duration {
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.RetryAfter == "" {
		return 0
	}
	if secs, perr := strconv.Atoi(strings.TrimSpace(pe.RetryAfter)); perr == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, perr := http.ParseTime(pe.RetryAfter); perr == nil {
		return max(time.Until(at), 0)
	}
	return 0
}

// RetryExhaustedError is returned once a retryable model call has failed on
// every allowed attempt.
type RetryExhaustedError struct {
	Err      error
	Attempts int
	Guarded  bool // a "maybe" error that used its single retry
}

func (e *RetryExhaustedError) Error() string {
	kind := "retries"
	if e.Guarded {
		kind = "guarded retries"
	}
	return fmt.Sprintf("%s exhausted after %d attempts: %v", kind, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

func IsRetryExhausted(err error) bool {
	var re *RetryExhaustedError
	return errors.As(err, &re)
}

// ToolValidationError indicates that tool arguments failed JSON schema validation.
type ToolValidationError struct {
	ToolName string
	Errors   []string
}

func (e *ToolValidationError) Error() string {
	return fmt.Sprintf("tool %s validation failed: %s", e.ToolName, strings.Join(e.Errors, "; "))
}

func (e *ToolValidationError) Unwrap() error {
	return ErrInvalidArguments
}

// TurnError wraps errors with the orchestrator state and operation that failed.
type TurnError struct {
	Err       error
	State     TurnState
	Operation string // "load_context", "llm_call", "summarize", "persist", ...
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("[state=%s op=%s] %v", e.State, e.Operation, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

func wrapTurn(err error, st *TurnRecord, op string) error {
	if err == nil {
		return nil
	}
	return &TurnError{Err: err, State: st.State, Operation: op}
}

// asUpstreamError maps deadline expiry on an outbound call to ErrUpstreamTimeout
// and keeps everything else intact under the given sentinel.
func asUpstreamError(err error, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
