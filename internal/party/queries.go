package party

import "github.com/questline/partyhub/internal/ids"

// Synchronous read-side queries against the local cache. No query touches the
// network; everything answers from state already applied on the owning
// goroutine.

// Party returns localUser's cached party with the given id, or nil.
func (r *Registry) Party(localUser ids.UserID, partyID ids.PartyID) *Party {
	return r.partyFor(localUser, partyID)
}

// FirstPartyIDFor returns the id of localUser's first joined party.
func (r *Registry) FirstPartyIDFor(localUser ids.UserID) (ids.PartyID, bool) {
	if p := r.firstPartyFor(localUser); p != nil {
		return p.ID(), true
	}
	return "", false
}

// JoinedParties lists the ids of every party localUser is in.
func (r *Registry) JoinedParties(localUser ids.UserID) []ids.PartyID {
	joined := r.parties[localUser.String()]
	out := make([]ids.PartyID, 0, len(joined))
	for id := range joined {
		out = append(out, id)
	}
	return out
}

// PartyMember returns the cached member, or nil when either the party or the
// member is unknown.
func (r *Registry) PartyMember(localUser ids.UserID, partyID ids.PartyID, memberID ids.UserID) *Member {
	p := r.partyFor(localUser, partyID)
	if p == nil {
		return nil
	}
	return p.GetMember(memberID)
}

// PartyMembers lists the cached members of the party.
func (r *Registry) PartyMembers(localUser ids.UserID, partyID ids.PartyID) []*Member {
	p := r.partyFor(localUser, partyID)
	if p == nil {
		return nil
	}
	return p.Members()
}

// PartyMemberCount returns the cached member count, or 0 for an unknown party.
func (r *Registry) PartyMemberCount(localUser ids.UserID, partyID ids.PartyID) int {
	p := r.partyFor(localUser, partyID)
	if p == nil {
		return 0
	}
	return p.MemberCount()
}

// PartyData returns the party's shared attribute snapshot, or nil for an
// unknown party.
func (r *Registry) PartyData(localUser ids.UserID, partyID ids.PartyID) *Data {
	p := r.partyFor(localUser, partyID)
	if p == nil {
		return nil
	}
	return p.Data()
}

// PendingInvitedUsers lists users invited to the party who have not joined.
func (r *Registry) PendingInvitedUsers(localUser ids.UserID, partyID ids.PartyID) []ids.UserID {
	p := r.partyFor(localUser, partyID)
	if p == nil {
		return nil
	}
	return p.PendingInvitedUsers()
}

// IsMemberLeader reports whether memberID is the party's current leader.
func (r *Registry) IsMemberLeader(localUser ids.UserID, partyID ids.PartyID, memberID ids.UserID) bool {
	p := r.partyFor(localUser, partyID)
	if p == nil {
		return false
	}
	return p.LeaderID().Equal(memberID)
}

// IsUserInParty reports whether userID is a member of the given party.
func (r *Registry) IsUserInParty(localUser ids.UserID, partyID ids.PartyID, userID ids.UserID) bool {
	p := r.partyFor(localUser, partyID)
	if p == nil {
		return false
	}
	return p.GetMember(userID) != nil
}

// IsUserInAnyParty reports whether userID is a member of any of localUser's
// cached parties.
func (r *Registry) IsUserInAnyParty(localUser ids.UserID, userID ids.UserID) bool {
	for _, p := range r.parties[localUser.String()] {
		if p.GetMember(userID) != nil {
			return true
		}
	}
	return false
}
