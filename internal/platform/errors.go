package platform

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies every failure the ingestion core can produce.
type ErrorCode string

const (
	CodeUnparseableURL      ErrorCode = "unparseable_url"
	CodeUnauthenticated     ErrorCode = "unauthenticated"
	CodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
	CodeUpstreamServerError ErrorCode = "upstream_server_error"
	CodeUpstreamNotFound    ErrorCode = "upstream_not_found"
	CodeUpstreamFailure     ErrorCode = "upstream_failure"
	CodeMalformedResponse   ErrorCode = "malformed_response"
	CodeDuplicate           ErrorCode = "duplicate"
	CodeKeywordMismatch     ErrorCode = "keyword_mismatch"
	CodeTimeout             ErrorCode = "timeout"
	CodePersistenceError    ErrorCode = "persistence_error"
	CodeUnsupportedPlatform ErrorCode = "unsupported_platform"
	CodeNotImplemented      ErrorCode = "not_implemented"
)

// Error is a typed failure carrying the taxonomy code plus diagnostic context
// (original URL, extracted id, raw provider body). It is returned as a value,
// never allowed to escape an adapter as a panic.
type Error struct {
	Code    ErrorCode
	Message string
	URL     string
	VideoID string
	Body    string // raw provider body, for diagnostics
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match two platform errors by code.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// NewError constructs a typed error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the taxonomy code from an error chain. Errors outside the
// taxonomy report CodeUpstreamFailure.
func CodeOf(err error) ErrorCode {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	return CodeUpstreamFailure
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code ErrorCode) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Code == code
}

// errorFromStatus maps a non-2xx provider status to a taxonomy entry.
func errorFromStatus(status int, url string, body []byte) *Error {
	e := &Error{URL: url, Body: string(body)}

	switch {
	case status == http.StatusUnauthorized:
		e.Code = CodeUnauthenticated
		e.Message = "provider rejected credentials"
	case status == http.StatusNotFound:
		e.Code = CodeUpstreamNotFound
		e.Message = "content not found upstream"
	case status == http.StatusTooManyRequests:
		e.Code = CodeUpstreamRateLimited
		e.Message = "provider rate limit hit"
	case status >= 500:
		e.Code = CodeUpstreamServerError
		e.Message = fmt.Sprintf("provider returned %d", status)
	default:
		e.Code = CodeUpstreamFailure
		e.Message = fmt.Sprintf("provider returned %s", http.StatusText(status))
	}

	return e
}
