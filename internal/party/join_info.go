package party

import "github.com/questline/partyhub/internal/ids"

// JoinInfo is an immutable descriptor of an actionable invitation: which party
// it opens, who it came from, and fixed capability flags. Parties on this
// backend are joined through invites only, so the capability surface is
// constant.
type JoinInfo struct {
	partyID           ids.PartyID
	sourceUserID      ids.UserID
	sourceDisplayName string
}

// NewJoinInfo builds a join descriptor for an invite.
func NewJoinInfo(partyID ids.PartyID, sourceUserID ids.UserID, sourceDisplayName string) JoinInfo {
	return JoinInfo{
		partyID:           partyID,
		sourceUserID:      sourceUserID,
		sourceDisplayName: sourceDisplayName,
	}
}

// IsValid reports whether both the party id and the inviter id are well formed.
func (j JoinInfo) IsValid() bool {
	return j.partyID.IsValid() && j.sourceUserID.IsValid()
}

// PartyID returns the party the descriptor opens.
func (j JoinInfo) PartyID() ids.PartyID {
	return j.partyID
}

// SourceUserID returns the inviter's identity.
func (j JoinInfo) SourceUserID() ids.UserID {
	return j.sourceUserID
}

// SourceDisplayName returns the inviter's display name.
func (j JoinInfo) SourceDisplayName() string {
	return j.sourceDisplayName
}

// CanJoin reports whether the described party can be joined. A join info
// always represents a live invite, so this is true.
func (j JoinInfo) CanJoin() bool {
	return true
}

// HasKey reports whether an invite token backs this descriptor.
func (j JoinInfo) HasKey() bool {
	return true
}

// HasPassword reports whether a password is required. Parties have no password
// support, only invites and their tokens.
func (j JoinInfo) HasPassword() bool {
	return false
}

// IsJoinableWithoutInvite reports whether the party can be entered uninvited.
func (j JoinInfo) IsJoinableWithoutInvite() bool {
	return false
}

// IsAcceptingMembers reports whether the party takes new members. A pending
// invite implies it does.
func (j JoinInfo) IsAcceptingMembers() bool {
	return true
}

// IsPartyOfOne reports whether the party has a single member. Invites carry no
// member count, so this is always false.
func (j JoinInfo) IsPartyOfOne() bool {
	return false
}
