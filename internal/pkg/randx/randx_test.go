package randx

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionID(t *testing.T) {
	seen := make(map[string]struct{})
	for range 200 {
		id := ConnectionID()
		require.True(t, IsValidConnectionID(id), "unexpected id shape %q", id)

		_, dup := seen[id]
		require.False(t, dup, "duplicate id %q", id)
		seen[id] = struct{}{}
	}
}

func TestIsValidConnectionID(t *testing.T) {
	assert.True(t, IsValidConnectionID("conn_ABCdef012345"))
	assert.False(t, IsValidConnectionID("conn_short"))
	assert.False(t, IsValidConnectionID("sock_ABCdef012345"))
	assert.False(t, IsValidConnectionID("conn_ABCdef01234!"))
}

func TestMessageID(t *testing.T) {
	id, err := uuid.Parse(MessageID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
}
