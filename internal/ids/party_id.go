package ids

import (
	"strings"

	"github.com/google/uuid"
)

// IDLength is the length of a backend id token: a UUID v4 with the hyphens
// stripped.
const IDLength = 32

// InvalidIDValue is the sentinel carried by ids that failed to parse.
const InvalidIDValue = "INVALID"

// PartyID identifies a party on the backend. Construct with ParsePartyID or
// NewPartyID and check IsValid before use; a malformed id never fails loudly.
type PartyID string

// ParsePartyID wraps a raw backend string as a PartyID without validating it.
func ParsePartyID(raw string) PartyID {
	return PartyID(raw)
}

// NewPartyID generates a fresh id token in the backend's format.
func NewPartyID() PartyID {
	return PartyID(NewToken())
}

// NewToken generates a random 32-char hex token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsValid reports whether the id matches the backend token format. Hyphens are
// stripped first; session ids still arrive as vanilla UUIDs.
func (id PartyID) IsValid() bool {
	return IsTokenValid(string(id))
}

func (id PartyID) String() string {
	return string(id)
}

// IsTokenValid reports whether raw is a well-formed backend id token: exactly
// IDLength hex characters once hyphens are removed.
func IsTokenValid(raw string) bool {
	token := strings.ReplaceAll(raw, "-", "")
	if len(token) != IDLength {
		return false
	}
	for _, c := range token {
		if !isHexChar(c) {
			return false
		}
	}
	return true
}

func isHexChar(c rune) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}
