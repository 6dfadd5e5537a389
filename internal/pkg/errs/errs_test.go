package errs

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		details     []any
		wantCode    int
		wantMessage string
		wantStatus  int
		wantKind    Kind
	}{
		{
			name:        "validation with formatted field",
			code:        ErrMissingField,
			details:     []any{"identity"},
			wantCode:    ErrMissingField,
			wantMessage: "Missing required field: identity.",
			wantStatus:  http.StatusOK,
			wantKind:    KindValidation,
		},
		{
			name:        "authorization",
			code:        ErrNotAuthenticated,
			wantCode:    ErrNotAuthenticated,
			wantMessage: "Not authenticated.",
			wantStatus:  http.StatusUnauthorized,
			wantKind:    KindAuthorization,
		},
		{
			name:        "storage with cause keeps template",
			code:        ErrStorageFailure,
			details:     []any{fmt.Errorf("connection refused")},
			wantCode:    ErrStorageFailure,
			wantMessage: "Storage is unavailable. Please try again.",
			wantStatus:  http.StatusServiceUnavailable,
			wantKind:    KindStorage,
		},
		{
			name:        "transport",
			code:        ErrDeliveryFailed,
			wantCode:    ErrDeliveryFailed,
			wantMessage: "Delivery failed.",
			wantStatus:  http.StatusOK,
			wantKind:    KindTransport,
		},
		{
			name:        "unknown code falls back",
			code:        9999,
			wantCode:    ErrUnknown,
			wantMessage: "Something went wrong. Please try again.",
			wantStatus:  http.StatusInternalServerError,
			wantKind:    KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewError(tt.code, tt.details...)

			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantMessage, err.Message)
			assert.Equal(t, tt.wantStatus, err.Status)
			assert.Equal(t, tt.wantKind, err.Kind())
		})
	}
}

func TestNewErrorDoesNotMutateTemplate(t *testing.T) {
	first := NewError(ErrMissingField, "room")
	second := NewError(ErrMissingField, "content")

	assert.Equal(t, "Missing required field: room.", first.Message)
	assert.Equal(t, "Missing required field: content.", second.Message)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrInvalidRoom, CodeOf(NewError(ErrInvalidRoom)))
	assert.Equal(t, ErrInvalidRoom, CodeOf(fmt.Errorf("wrapped: %w", NewError(ErrInvalidRoom))))
	assert.Equal(t, ErrUnknown, CodeOf(fmt.Errorf("plain")))
}
