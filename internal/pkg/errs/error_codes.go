/*
Package errs provides custom error types and application-level error code constants.

These error codes identify why an inbound chat event or HTTP request was rejected,
both in server logs and in the "error" events delivered to clients.
*/
package errs

// 1xxx: Validation Errors
const (
	// ErrMissingField indicates that a required event field was absent or blank.
	ErrMissingField = 1002

	// ErrInvalidRoom indicates that the room name is not part of the Room Registry.
	ErrInvalidRoom = 1003

	// ErrInvalidIdentity indicates that the identity is not a 0x-prefixed 40 hex character address.
	ErrInvalidIdentity = 1004

	// ErrEmptyMessage indicates that the message content was empty after trimming.
	ErrEmptyMessage = 1005

	// ErrInvalidPayload indicates that the inbound frame could not be decoded.
	ErrInvalidPayload = 1006

	// ErrUnsupportedEvent indicates that the inbound event type is unknown.
	ErrUnsupportedEvent = 1007

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1008
)

// 2xxx: Authorization Errors
const (
	// ErrNotAuthenticated indicates that the action requires a prior successful authenticate.
	ErrNotAuthenticated = 2001

	// ErrAlreadyAuthenticated indicates that the connection is already bound to an identity.
	ErrAlreadyAuthenticated = 2002

	// ErrNotInRoom indicates that the action requires the connection to be in the target room.
	ErrNotInRoom = 2003

	// ErrIdentityMismatch indicates that the identity differs from the handshake token address.
	ErrIdentityMismatch = 2004
)

// 3xxx: Storage Errors
const (
	// ErrStorageFailure indicates that the Directory could not complete a read or write.
	ErrStorageFailure = 3001
)

// 4xxx: Transport Errors
const (
	// ErrDeliveryFailed indicates that an outbound event could not be queued for a connection.
	ErrDeliveryFailed = 4001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
