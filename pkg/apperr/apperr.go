/*
Package apperr defines tablesync's error taxonomy.

Every error that crosses a component boundary in this module is one of the
classes below. Classification drives two different behaviors depending on
where an error surfaces: RateLimited/Timeout/Unavailable are recovered
locally by pkg/retry; Config/Auth/NotFound abort the pipeline immediately;
Serialization/Data errors are counted and the offending unit of work
(CSV chunk, row) is skipped.
*/
package apperr

import (
	"errors"
	"fmt"
)

// Class names one of the taxonomy's error kinds.
type Class string

const (
	ClassConfig        Class = "config"
	ClassAuth          Class = "auth"
	ClassNotFound      Class = "not_found"
	ClassRateLimited   Class = "rate_limited"
	ClassTimeout       Class = "timeout"
	ClassUnavailable   Class = "unavailable"
	ClassSerialization Class = "serialization"
	ClassData          Class = "data"
	ClassTerminal      Class = "terminal"
)

// ConfigError signals a missing or invalid request parameter, or a
// partition value absent from the container. Always terminal.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Msg)
	}
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Msg)
}

// NewConfigError builds a ConfigError.
func NewConfigError(field, msg string) *ConfigError {
	return &ConfigError{Field: field, Msg: msg}
}

// AuthError signals authentication/authorization failure against a store.
type AuthError struct{ Msg string }

func (e *AuthError) Error() string { return fmt.Sprintf("auth error: %s", e.Msg) }

// NotFoundError signals a missing container, database, or file.
type NotFoundError struct{ Msg string }

func (e *NotFoundError) Error() string { return fmt.Sprintf("not found: %s", e.Msg) }

// RateLimitedError wraps a 429-class response, optionally carrying a
// server-hinted retry delay in milliseconds.
type RateLimitedError struct {
	Msg          string
	RetryAfterMs int64 // 0 if the server supplied no hint
}

func (e *RateLimitedError) Error() string { return fmt.Sprintf("rate limited: %s", e.Msg) }

// TimeoutError wraps a 408-class response.
type TimeoutError struct{ Msg string }

func (e *TimeoutError) Error() string { return fmt.Sprintf("timeout: %s", e.Msg) }

// UnavailableError wraps a 503/500-class response.
type UnavailableError struct{ Msg string }

func (e *UnavailableError) Error() string { return fmt.Sprintf("unavailable: %s", e.Msg) }

// SerializationError signals a CSV parse failure or a failed JSON parse of
// an embedded structure. The offending chunk is skipped, not the whole run.
type SerializationError struct {
	Source string // e.g. file path or table name
	Msg    string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error in %s: %s", e.Source, e.Msg)
}

// DataError signals a structurally invalid row: a missing _parent_rid, a
// marker navigating into a scalar, or a duplicate rid. The offending row is
// dropped, not the whole batch.
type DataError struct {
	Table string
	RID   string
	Msg   string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data error in table %s (rid=%s): %s", e.Table, e.RID, e.Msg)
}

// Classify inspects err (including wrapped errors) and returns the taxonomy
// class it belongs to. Unrecognized errors classify as ClassTerminal.
func Classify(err error) Class {
	if err == nil {
		return ""
	}
	var cfg *ConfigError
	var auth *AuthError
	var nf *NotFoundError
	var rl *RateLimitedError
	var to *TimeoutError
	var un *UnavailableError
	var se *SerializationError
	var de *DataError

	switch {
	case errors.As(err, &cfg):
		return ClassConfig
	case errors.As(err, &auth):
		return ClassAuth
	case errors.As(err, &nf):
		return ClassNotFound
	case errors.As(err, &rl):
		return ClassRateLimited
	case errors.As(err, &to):
		return ClassTimeout
	case errors.As(err, &un):
		return ClassUnavailable
	case errors.As(err, &se):
		return ClassSerialization
	case errors.As(err, &de):
		return ClassData
	default:
		return ClassTerminal
	}
}

// IsRetryable reports whether err's class is recovered locally by the retry
// policy (RateLimited, Timeout, Unavailable).
func IsRetryable(err error) bool {
	switch Classify(err) {
	case ClassRateLimited, ClassTimeout, ClassUnavailable:
		return true
	default:
		return false
	}
}
