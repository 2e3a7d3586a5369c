package ids

import (
	"encoding/base64"
	"encoding/json"
)

// Composite is the decoded form of a user id: the backend id plus an optional
// native-platform pair.
type Composite struct {
	ID           string `json:"id"`
	PlatformType string `json:"platformType,omitempty"`
	PlatformID   string `json:"platformId,omitempty"`
}

// Equal reports composite equality: matching backend ids, or a matching
// platform type/id pair.
func (c Composite) Equal(other Composite) bool {
	if c.ID == other.ID {
		return true
	}
	return c.PlatformType == other.PlatformType && c.PlatformID == other.PlatformID
}

// HasPlatformInfo reports whether both platform fields are set.
func (c Composite) HasPlatformInfo() bool {
	return c.PlatformType != "" && c.PlatformID != ""
}

// UserID is a composite user identifier. Its canonical string form, used as a
// map key and on the wire, is the base64 encoding of the composite's JSON.
// A UserID that failed to decode carries the invalid sentinel and reports
// IsValid false instead of erroring.
type UserID struct {
	encoded   string
	composite Composite
	valid     bool
}

// NewUserID builds a UserID from a composite. An empty backend id yields the
// invalid sentinel.
func NewUserID(c Composite) UserID {
	if c.ID == "" {
		return InvalidUserID()
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return InvalidUserID()
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	return UserID{
		encoded:   encoded,
		composite: c,
		valid:     c.ID != InvalidIDValue && IsTokenValid(c.ID),
	}
}

// UserIDFromPrimary builds a UserID from a bare backend id with no platform
// information. Notification payloads carry ids in this form.
func UserIDFromPrimary(primary string) UserID {
	return NewUserID(Composite{ID: primary})
}

// ParseUserID decodes a canonical encoded user id. Malformed input does not
// error; the result carries the invalid sentinel and IsValid reports false.
func ParseUserID(encoded string) UserID {
	if encoded == "" || encoded == InvalidIDValue {
		return InvalidUserID()
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return UserID{encoded: encoded, composite: Composite{ID: InvalidIDValue}}
	}
	var c Composite
	if err := json.Unmarshal(raw, &c); err != nil {
		return UserID{encoded: encoded, composite: Composite{ID: InvalidIDValue}}
	}
	return UserID{
		encoded:   encoded,
		composite: c,
		valid:     c.ID != "" && c.ID != InvalidIDValue && IsTokenValid(c.ID),
	}
}

// InvalidUserID returns the invalid sentinel id.
func InvalidUserID() UserID {
	return UserID{encoded: InvalidIDValue, composite: Composite{ID: InvalidIDValue}}
}

// IsValid reports whether the id decoded cleanly and its backend id is a
// well-formed token. Callers must check this before use.
func (u UserID) IsValid() bool {
	return u.valid
}

// IsZero reports whether the id was never set.
func (u UserID) IsZero() bool {
	return u.encoded == ""
}

// Equal reports composite equality: matching backend ids first, then a
// matching non-empty platform pair.
func (u UserID) Equal(other UserID) bool {
	if u.PrimaryID() == other.PrimaryID() {
		return true
	}
	if u.HasPlatformInfo() && other.HasPlatformInfo() {
		return u.composite.PlatformType == other.composite.PlatformType &&
			u.composite.PlatformID == other.composite.PlatformID
	}
	return false
}

// String returns the canonical encoded form.
func (u UserID) String() string {
	return u.encoded
}

// DebugString returns the composite as compact JSON for logging.
func (u UserID) DebugString() string {
	raw, err := json.Marshal(u.composite)
	if err != nil {
		return InvalidIDValue
	}
	return string(raw)
}

// PrimaryID returns the backend id component.
func (u UserID) PrimaryID() string {
	return u.composite.ID
}

// PlatformType returns the native platform type, if any.
func (u UserID) PlatformType() string {
	return u.composite.PlatformType
}

// PlatformID returns the native platform id, if any.
func (u UserID) PlatformID() string {
	return u.composite.PlatformID
}

// HasPlatformInfo reports whether the id carries a full platform pair.
func (u UserID) HasPlatformInfo() bool {
	return u.composite.HasPlatformInfo()
}

// Composite returns the decoded composite structure.
func (u UserID) Composite() Composite {
	return u.composite
}
