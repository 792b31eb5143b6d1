package errors

import (
	"context"
	"errors"
	"strings"
)

// IsRetryableError determines if an error is transient and the operation should be retried
// on the next tick rather than reported.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_NETWORK_TIMEOUT,
			ERR_NETWORK_ERROR,
			ERR_SERVICE_UNAVAILABLE:
			return true
		}
	}

	return false
}

// IsNetworkError determines if an error is network-related.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_NETWORK_ERROR, ERR_NETWORK_TIMEOUT:
			return true
		}
	}

	errStr := strings.ToLower(err.Error())
	networkStrings := []string{
		"network",
		"connection",
		"timeout",
		"dial tcp",
		"dial udp",
		"no such host",
		"i/o timeout",
	}

	for _, s := range networkStrings {
		if strings.Contains(errStr, s) {
			return true
		}
	}

	return false
}

// IsContextError determines if an error is related to context cancellation or deadline.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var tErr *Error
	if As(err, &tErr) {
		if tErr.Code() == ERR_CONTEXT_CANCELED || tErr.Code() == ERR_CONTEXT {
			return true
		}
	}

	return false
}

// GetErrorCategory returns a string representing the category of the error,
// used as a log field and metric label.
func GetErrorCategory(err error) string {
	if err == nil {
		return "none"
	}

	if IsContextError(err) {
		return "context"
	}

	if IsNetworkError(err) {
		return "network"
	}

	var tErr *Error
	if As(err, &tErr) {
		code := tErr.Code()
		switch {
		case code == ERR_CONFIGURATION:
			return "configuration"
		case code == ERR_INVALID_ARGUMENT:
			return "argument"
		case code >= 50 && code <= 59:
			return "service"
		}
	}

	return "unknown"
}
