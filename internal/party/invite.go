package party

import "github.com/questline/partyhub/internal/ids"

// Invite is a pending invitation cached for a local user: the party it opens,
// who sent it, the token needed to accept it, and a join descriptor.
type Invite struct {
	PartyID     ids.PartyID
	InviterID   ids.UserID
	InviteToken string
	JoinInfo    JoinInfo
}

// NewInvite builds an invite and its join descriptor.
func NewInvite(partyID ids.PartyID, inviterID ids.UserID, inviterDisplayName, inviteToken string) *Invite {
	return &Invite{
		PartyID:     partyID,
		InviterID:   inviterID,
		InviteToken: inviteToken,
		JoinInfo:    NewJoinInfo(partyID, inviterID, inviterDisplayName),
	}
}
