/*
Package user contains the participant identity shared by the chat components.

A Participant is what a connection is bound to after a successful authenticate: the durable
wallet address plus the display name chosen for this connection.
*/
package user

// Participant is the public identity of a chat participant.
type Participant struct {
	// Identity is the wallet-style address (0x followed by 40 hex characters).
	Identity string `json:"identity"`

	// DisplayName is chosen per connection and is not unique.
	DisplayName string `json:"displayName"`
}

// IsZero reports whether p carries no identity.
func (p Participant) IsZero() bool {
	return p.Identity == ""
}
