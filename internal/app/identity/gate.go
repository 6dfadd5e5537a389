/*
Package identity implements the Identity Gate: it validates the wallet address and display name
a connection presents and records the identity in the Directory.
*/
package identity

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"lounge/internal/app/directory"
	"lounge/internal/app/user"
	"lounge/internal/pkg/errs"
	"lounge/internal/pkg/logx"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress reports whether s is a 0x-prefixed, 40 hex character address.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// UserStore is the part of the Directory the gate needs.
type UserStore interface {
	UpsertUser(ctx context.Context, identity string) (directory.User, error)
}

// Credentials is what a connection presents on authenticate.
type Credentials struct {
	Identity    string
	DisplayName string

	// BoundAddress is the address from the handshake identity token, if any.
	// When set, Identity must match it case-insensitively.
	BoundAddress string
}

// Gate validates credentials and upserts the durable user record.
type Gate struct {
	users  UserStore
	logger zerolog.Logger
}

// NewGate returns a Gate backed by users.
func NewGate(users UserStore) *Gate {
	return &Gate{
		users:  users,
		logger: logx.Component("IdentityGate"),
	}
}

// Authenticate validates creds and idempotently upserts the user. Nothing is written when
// validation fails. Rejections are ErrMissingField, ErrInvalidIdentity, ErrIdentityMismatch
// or ErrStorageFailure.
func (g *Gate) Authenticate(ctx context.Context, creds Credentials) (user.Participant, *errs.CustomError) {
	identity := strings.TrimSpace(creds.Identity)
	displayName := strings.TrimSpace(creds.DisplayName)

	if identity == "" {
		return user.Participant{}, errs.NewError(errs.ErrMissingField, "identity")
	}
	if displayName == "" {
		return user.Participant{}, errs.NewError(errs.ErrMissingField, "displayName")
	}
	if !IsValidAddress(identity) {
		return user.Participant{}, errs.NewError(errs.ErrInvalidIdentity)
	}
	if creds.BoundAddress != "" && !strings.EqualFold(creds.BoundAddress, identity) {
		g.logger.Warn().
			Str("identity", identity).
			Str("bound_address", creds.BoundAddress).
			Msg("Identity does not match handshake token.")
		return user.Participant{}, errs.NewError(errs.ErrIdentityMismatch)
	}

	if _, err := g.users.UpsertUser(ctx, identity); err != nil {
		g.logger.Error().Err(err).Str("identity", identity).Msg("Failed to upsert user.")
		return user.Participant{}, errs.NewError(errs.ErrStorageFailure)
	}

	return user.Participant{Identity: identity, DisplayName: displayName}, nil
}
