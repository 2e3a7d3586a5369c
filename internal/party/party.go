package party

import (
	"github.com/questline/partyhub/internal/ids"
)

// Config is a party's immutable configuration.
type Config struct {
	ChatEnabled      bool
	AcceptingMembers bool
}

// defaultConfig is the flag set this backend supports for every party.
func defaultConfig() Config {
	return Config{ChatEnabled: true, AcceptingMembers: true}
}

// InvitedPair records who invited whom into a party.
type InvitedPair struct {
	InviterID ids.UserID
	InviteeID ids.UserID
}

// owner is the Party's back-handle to its registry: event dispatch, crossplay
// attribute lookup, and the party-data update round trip. Kept narrow so the
// entity holds no reference cycle into registry internals.
type owner interface {
	publish(Event)
	crossplayRecordFor(localUser ids.UserID) (CrossplayRecord, bool)
	requestDataUpdate(localUser ids.UserID, partyID ids.PartyID, data *Data)
}

// Party is the aggregate for one party instance: membership, pending invited
// users, leadership, configuration and the data blob. All mutations notify the
// owning registry's event bus. Not safe for concurrent use; it lives on the
// registry's goroutine.
type Party struct {
	id          ids.PartyID
	inviteToken string
	code        string
	config      Config
	leaderID    ids.UserID
	members     map[string]*Member
	invited     []InvitedPair
	data        *Data
	owner       owner
}

func newParty(owner owner, id ids.PartyID, inviteToken string, config Config, leaderID ids.UserID, data *Data) *Party {
	if data == nil {
		data = NewData()
	}
	return &Party{
		id:          id,
		inviteToken: inviteToken,
		config:      config,
		leaderID:    leaderID,
		members:     make(map[string]*Member),
		data:        data,
		owner:       owner,
	}
}

// ID returns the party id.
func (p *Party) ID() ids.PartyID {
	return p.id
}

// InviteToken returns the token members use to invite others.
func (p *Party) InviteToken() string {
	return p.inviteToken
}

// Code returns the shareable party code, when the backend issued one.
func (p *Party) Code() string {
	return p.code
}

// Configuration returns the party's immutable configuration.
func (p *Party) Configuration() Config {
	return p.config
}

// LeaderID returns the current leader's identity.
func (p *Party) LeaderID() ids.UserID {
	return p.leaderID
}

// MemberCount returns the number of current members.
func (p *Party) MemberCount() int {
	return len(p.members)
}

// IsJoinable reports whether the party can be entered without an invite.
// It cannot; joining always requires an invite token.
func (p *Party) IsJoinable() bool {
	return false
}

// CanUserInvite reports whether the given user may invite others. Every member
// can.
func (p *Party) CanUserInvite(ids.UserID) bool {
	return true
}

// AddMember inserts a member keyed by its canonical identity, overwriting an
// identical key, and raises a member-joined event scoped to actingUser.
func (p *Party) AddMember(actingUser ids.UserID, member *Member) {
	p.members[member.UserID().String()] = member
	p.owner.publish(Event{
		Kind:      EventMemberJoined,
		LocalUser: actingUser,
		PartyID:   p.id,
		UserID:    member.UserID(),
	})
}

// GetMember finds a member by composite identity. The membership map is keyed
// by canonical string, but lookups honor platform-pair equality, so this scans.
func (p *Party) GetMember(userID ids.UserID) *Member {
	for _, member := range p.members {
		if member.UserID().Equal(userID) {
			return member
		}
	}
	return nil
}

// Members returns all current members.
func (p *Party) Members() []*Member {
	out := make([]*Member, 0, len(p.members))
	for _, member := range p.members {
		out = append(out, member)
	}
	return out
}

// RemoveMember removes the member matching target by composite identity and
// reports whether one was found. When actingUser is the leader, the removed
// user's crossplay record is pruned as well; followers skip that to avoid
// duplicate data-update requests. The member-exited event fires once per call
// whether or not a member matched.
func (p *Party) RemoveMember(actingUser, target ids.UserID, reason ExitReason) bool {
	found := false
	for key, member := range p.members {
		if !member.UserID().Equal(target) {
			continue
		}
		if p.leaderID.Equal(actingUser) {
			p.RemovePlayerCrossplayPreferenceAndPlatform(actingUser, target)
		}
		delete(p.members, key)
		found = true
		break
	}
	p.owner.publish(Event{
		Kind:       EventMemberExited,
		LocalUser:  actingUser,
		PartyID:    p.id,
		UserID:     target,
		ExitReason: reason,
	})
	return found
}

// setLeader updates the cached leader id.
func (p *Party) setLeader(leaderID ids.UserID) {
	p.leaderID = leaderID
}

// AddInvitedUser appends an inviter/invitee pair to the pending invited list
// and raises an invites-changed event scoped to actingUser.
func (p *Party) AddInvitedUser(actingUser, inviterID, inviteeID ids.UserID) {
	p.invited = append(p.invited, InvitedPair{InviterID: inviterID, InviteeID: inviteeID})
	p.owner.publish(Event{
		Kind:      EventInvitesChanged,
		LocalUser: actingUser,
		PartyID:   p.id,
	})
}

// RemoveInvitedUser removes every pending pair whose invitee matches by
// composite identity, raising one invite-removed event per removal.
func (p *Party) RemoveInvitedUser(actingUser, inviteeID ids.UserID, reason InviteRemovedReason) {
	for {
		index := -1
		for i, pair := range p.invited {
			if pair.InviteeID.Equal(inviteeID) {
				index = i
				break
			}
		}
		if index < 0 {
			return
		}
		removed := p.invited[index]
		p.invited = append(p.invited[:index], p.invited[index+1:]...)
		p.owner.publish(Event{
			Kind:         EventInviteRemoved,
			LocalUser:    actingUser,
			PartyID:      p.id,
			UserID:       removed.InviterID,
			InviteReason: reason,
		})
	}
}

// PendingInvitedUsers lists the invitees with outstanding invites to this
// party, in insertion order.
func (p *Party) PendingInvitedUsers() []ids.UserID {
	out := make([]ids.UserID, 0, len(p.invited))
	for _, pair := range p.invited {
		out = append(out, pair.InviteeID)
	}
	return out
}

// Data returns the current data blob snapshot.
func (p *Party) Data() *Data {
	return p.data
}

// setData swaps in a new data blob snapshot.
func (p *Party) setData(data *Data) {
	p.data = data
}

// AddPlayerCrossplayPreferenceAndPlatform reads the local user's crossplay
// preference through the registry, merges it into the crossplay entry keyed by
// the user's backend id, swaps in the new snapshot, and requests a backend
// data update. Missing preference aborts quietly; the party simply stays
// non-crossplay for that member.
func (p *Party) AddPlayerCrossplayPreferenceAndPlatform(localUser ids.UserID) {
	record, ok := p.owner.crossplayRecordFor(localUser)
	if !ok {
		return
	}
	p.setData(p.data.WithCrossplayRecord(localUser.PrimaryID(), record))
	p.owner.requestDataUpdate(localUser, p.id, p.data)
}

// RemovePlayerCrossplayPreferenceAndPlatform prunes the removed user's
// crossplay record, swaps in the new snapshot, and requests a backend data
// update. Nothing happens when there is no crossplay entry to prune from.
func (p *Party) RemovePlayerCrossplayPreferenceAndPlatform(localUser, removedUser ids.UserID) {
	next, ok := p.data.WithoutCrossplayRecord(removedUser.PrimaryID())
	if !ok {
		return
	}
	p.setData(next)
	p.owner.requestDataUpdate(localUser, p.id, p.data)
}

// IsCrossplayParty reports whether every current member has an explicit
// crossplay record set to true. Any missing or malformed record makes the
// party conservatively non-crossplay.
func (p *Party) IsCrossplayParty() bool {
	if len(p.members) == 0 {
		return false
	}
	for _, member := range p.members {
		record, ok := p.data.CrossplayRecordFor(member.UserID().PrimaryID())
		if !ok || !record.Crossplay {
			return false
		}
	}
	return true
}

// UniquePlatformsForParty lists the distinct platforms recorded in the
// crossplay entry.
func (p *Party) UniquePlatformsForParty() []string {
	return p.data.UniquePlatforms()
}
