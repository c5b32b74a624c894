package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so transports can map them to status codes.
type ErrorKind string

const (
	// KindConfiguration marks missing credentials or settings.
	KindConfiguration ErrorKind = "configuration"
	// KindNetwork marks transport-level failures, including failed zone lookups.
	KindNetwork ErrorKind = "network"
	// KindInvalidArgument marks bad period names, filters or report identifiers.
	KindInvalidArgument ErrorKind = "invalid_argument"
	// KindNotFound marks absent fixtures.
	KindNotFound ErrorKind = "not_found"
	// KindMalformed marks fixtures or payloads that could not be decoded.
	KindMalformed ErrorKind = "malformed"
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError of the given kind.
func NewAppError(kind ErrorKind, op, msg string, err error) error {
	return &AppError{Kind: kind, Op: op, Msg: msg, Err: err}
}

// ConfigurationError reports missing credentials or configuration.
func ConfigurationError(op, msg string) error {
	return NewAppError(KindConfiguration, op, msg, nil)
}

// NetworkError reports a transport failure or unsuccessful lookup.
func NetworkError(op, msg string, err error) error {
	return NewAppError(KindNetwork, op, msg, err)
}

// InvalidArgument reports a caller supplied value that cannot be used.
func InvalidArgument(op, msg string) error {
	return NewAppError(KindInvalidArgument, op, msg, nil)
}

// IsKind reports whether any AppError in err's chain has the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	for err != nil {
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Kind == kind {
			return true
		}
		err = appErr.Err
	}
	return false
}

// ProviderError is returned when the metrics provider answers with a non-success status.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.Status, e.Message)
}

// AsProviderError extracts a ProviderError from err's chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}
