/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a business code, a user-facing message and an HTTP status code. The code range
also determines the error Kind used by logs and metrics.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lounge/internal/pkg/logx"
)

// Kind classifies an error code into the chat error taxonomy.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindStorage       Kind = "storage"
	KindTransport     Kind = "transport"
	KindInternal      Kind = "internal"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the standard HTTP status code corresponding to this error.
	Status int
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (%s): %s", e.Code, e.Kind(), e.Message)
}

// Kind reports the taxonomy bucket of the error, derived from its code range.
func (e CustomError) Kind() Kind {
	switch e.Code / 1000 {
	case 1:
		return KindValidation
	case 2:
		return KindAuthorization
	case 3:
		return KindStorage
	case 4:
		return KindTransport
	default:
		return KindInternal
	}
}

// NewError constructs a new *CustomError from a predefined error code.
// Details are applied printf-style when the message template contains a verb.
// Unknown codes fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &unknownErr
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Error created with underlying cause", "code", code)
		}
	}

	return &customErr
}

// CodeOf extracts the business code from err, or ErrUnknown if err is not a CustomError.
func CodeOf(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return ErrUnknown
}
