/*
Package randx generates identifiers: Base62 connection ids from crypto/rand and UUID v4
message ids.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// ConnectionIDLength is the length of the random part of a connection id.
	ConnectionIDLength = 12

	// ConnectionIDPrefix marks connection ids in logs and rosters.
	ConnectionIDPrefix = "conn_"
)

// base62 returns n cryptographically random Base62 characters.
func base62(n int) (string, error) {
	result := make([]byte, n)

	for i := range n {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// ConnectionID generates an id for a live connection, e.g. "conn_3fK9aZ01bQxy".
// It falls back to a UUID if the system random source fails.
func ConnectionID() string {
	raw, err := base62(ConnectionIDLength)
	if err != nil {
		return ConnectionIDPrefix + uuid.NewString()
	}
	return ConnectionIDPrefix + raw
}

// MessageID generates a standard UUID v4 string to serve as a durable message identifier.
func MessageID() string {
	return uuid.New().String()
}

// IsValidConnectionID reports whether id has the shape produced by ConnectionID.
func IsValidConnectionID(id string) bool {
	if !strings.HasPrefix(id, ConnectionIDPrefix) {
		return false
	}

	raw := id[len(ConnectionIDPrefix):]
	if len(raw) != ConnectionIDLength {
		return false
	}

	for _, char := range raw {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
