package party

import "github.com/questline/partyhub/internal/ids"

// Member is one user's view-projection inside a party: identity, display name
// and resolved attributes. Members are owned exclusively by their Party.
type Member struct {
	userID      ids.UserID
	displayName string
	attributes  map[string]string
}

// NewMember constructs a member for the given identity.
func NewMember(userID ids.UserID, displayName string) *Member {
	return &Member{
		userID:      userID,
		displayName: displayName,
		attributes:  make(map[string]string),
	}
}

// UserID returns the member's composite identity.
func (m *Member) UserID() ids.UserID {
	return m.userID
}

// DisplayName returns the member's display name.
func (m *Member) DisplayName() string {
	return m.displayName
}

// setDisplayName backfills a display name resolved after the member was added.
func (m *Member) setDisplayName(name string) {
	m.displayName = name
}

// Attribute looks up a resolved user attribute.
func (m *Member) Attribute(name string) (string, bool) {
	v, ok := m.attributes[name]
	return v, ok
}

// SetAttribute stores a resolved user attribute, reporting whether the value
// changed.
func (m *Member) SetAttribute(name, value string) bool {
	if current, ok := m.attributes[name]; ok && current == value {
		return false
	}
	m.attributes[name] = value
	return true
}
