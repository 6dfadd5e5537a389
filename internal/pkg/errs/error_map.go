/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
chat error events and HTTP responses.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: Validation Errors
	ErrMissingField:      {Code: ErrMissingField, Message: "Missing required field: %s."},
	ErrInvalidRoom:       {Code: ErrInvalidRoom, Message: "Invalid room.", Status: http.StatusNotFound},
	ErrInvalidIdentity:   {Code: ErrInvalidIdentity, Message: "Invalid wallet address format."},
	ErrEmptyMessage:      {Code: ErrEmptyMessage, Message: "Message cannot be empty."},
	ErrInvalidPayload:    {Code: ErrInvalidPayload, Message: "Malformed event payload."},
	ErrUnsupportedEvent:  {Code: ErrUnsupportedEvent, Message: "Unsupported event type: %s."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Authorization Errors
	ErrNotAuthenticated:     {Code: ErrNotAuthenticated, Message: "Not authenticated.", Status: http.StatusUnauthorized},
	ErrAlreadyAuthenticated: {Code: ErrAlreadyAuthenticated, Message: "Already authenticated."},
	ErrNotInRoom:            {Code: ErrNotInRoom, Message: "Join a room first."},
	ErrIdentityMismatch:     {Code: ErrIdentityMismatch, Message: "Wallet address does not match the signed-in account."},

	// 3xxx: Storage Errors
	ErrStorageFailure: {Code: ErrStorageFailure, Message: "Storage is unavailable. Please try again.", Status: http.StatusServiceUnavailable},

	// 4xxx: Transport Errors
	ErrDeliveryFailed: {Code: ErrDeliveryFailed, Message: "Delivery failed."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
