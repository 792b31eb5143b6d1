package errors

import "fmt"

// ERR is the numeric error code carried by every *Error.
//
//nolint:revive // upper case names mirror the wire codes
type ERR int32

const (
	ERR_UNKNOWN          ERR = 0
	ERR_INVALID_ARGUMENT ERR = 1
	ERR_NOT_FOUND        ERR = 3
	ERR_PROCESSING       ERR = 4
	ERR_CONFIGURATION    ERR = 5
	ERR_CONTEXT          ERR = 6
	ERR_CONTEXT_CANCELED ERR = 7
	ERR_ERROR            ERR = 9

	ERR_SERVICE_UNAVAILABLE ERR = 50
	ERR_SERVICE_NOT_STARTED ERR = 51
	ERR_SERVICE_ERROR       ERR = 52

	ERR_NETWORK_ERROR   ERR = 80
	ERR_NETWORK_TIMEOUT ERR = 81
)

var ERR_name = map[int32]string{
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	3:  "NOT_FOUND",
	4:  "PROCESSING",
	5:  "CONFIGURATION",
	6:  "CONTEXT",
	7:  "CONTEXT_CANCELED",
	9:  "ERROR",
	50: "SERVICE_UNAVAILABLE",
	51: "SERVICE_NOT_STARTED",
	52: "SERVICE_ERROR",
	80: "NETWORK_ERROR",
	81: "NETWORK_TIMEOUT",
}

// Enum returns the symbolic name of the code.
func (x ERR) Enum() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return fmt.Sprintf("ERR(%d)", int32(x))
}

func (x ERR) String() string {
	return x.Enum()
}

var (
	ErrUnknown            = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument    = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrNotFound           = New(ERR_NOT_FOUND, "not found")
	ErrProcessing         = New(ERR_PROCESSING, "error processing")
	ErrConfiguration      = New(ERR_CONFIGURATION, "configuration error")
	ErrContext            = New(ERR_CONTEXT, "context error")
	ErrContextCanceled    = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrError              = New(ERR_ERROR, "generic error")
	ErrServiceUnavailable = New(ERR_SERVICE_UNAVAILABLE, "service unavailable")
	ErrServiceNotStarted  = New(ERR_SERVICE_NOT_STARTED, "service not started")
	ErrServiceError       = New(ERR_SERVICE_ERROR, "service error")
	ErrNetworkError       = New(ERR_NETWORK_ERROR, "network error")
	ErrNetworkTimeout     = New(ERR_NETWORK_TIMEOUT, "network timeout")
)

// errors initialization functions

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN, message, params...)
}
func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}
func NewNotFoundError(message string, params ...interface{}) error {
	return New(ERR_NOT_FOUND, message, params...)
}
func NewProcessingError(message string, params ...interface{}) error {
	return New(ERR_PROCESSING, message, params...)
}
func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}
func NewContextError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT, message, params...)
}
func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}
func NewError(message string, params ...interface{}) error {
	return New(ERR_ERROR, message, params...)
}
func NewServiceUnavailableError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_UNAVAILABLE, message, params...)
}
func NewServiceNotStartedError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_NOT_STARTED, message, params...)
}
func NewServiceError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_ERROR, message, params...)
}
func NewNetworkError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_ERROR, message, params...)
}
func NewNetworkTimeoutError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_TIMEOUT, message, params...)
}
