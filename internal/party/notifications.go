package party

import (
	"context"

	"github.com/questline/partyhub/internal/ids"
)

// Notification handlers. The realtime transport decodes notices and posts
// these onto the owning goroutine. Payloads identify users by bare primary id;
// composite equality resolves them against cached members.

// HandleInviteReceived caches an incoming invite for recipient. The inviter's
// display name is resolved asynchronously before the invite is stored, so the
// invite-received event always carries usable join info.
func (r *Registry) HandleInviteReceived(recipient ids.UserID, partyID ids.PartyID, inviterPrimaryID, inviteToken string) {
	if !partyID.IsValid() {
		r.log.Warn().Str("party", partyID.String()).Msg("invite received with malformed party id")
		return
	}
	r.dispatcher.Dispatch(func(ctx context.Context) func() {
		info, err := r.backend.QueryUserInfo(ctx, recipient, inviterPrimaryID)
		return func() {
			inviter := info.UserID
			displayName := info.DisplayName
			if err != nil {
				r.log.Warn().Err(err).
					Str("inviter", inviterPrimaryID).
					Msg("could not resolve inviter, caching invite without display name")
				inviter = ids.UserIDFromPrimary(inviterPrimaryID)
				displayName = ""
			}
			r.AddPartyInvite(recipient, NewInvite(partyID, inviter, displayName, inviteToken))
		}
	})
}

// HandleInviteSent records a pending invitee on the inviter's party.
func (r *Registry) HandleInviteSent(localUser ids.UserID, inviterPrimaryID, inviteePrimaryID string) {
	p := r.firstPartyFor(localUser)
	if p == nil {
		r.log.Warn().
			Str("invitee", inviteePrimaryID).
			Msg("invite sent notice for a user with no party")
		return
	}
	p.AddInvitedUser(localUser, ids.UserIDFromPrimary(inviterPrimaryID), ids.UserIDFromPrimary(inviteePrimaryID))
}

// HandleMemberJoined applies a member-joined notice. When localUser's own join
// round trip has not completed yet the notice is replayed after it does. Any
// cached invite from the joined user is obsolete and dropped; invites-changed
// is published either way so subscribers re-read the cache after a join.
func (r *Registry) HandleMemberJoined(localUser ids.UserID, joinedPrimaryID string) {
	r.removeInvitesFromInviter(localUser, joinedPrimaryID, InviteRemovedCleared)
	r.publish(Event{Kind: EventInvitesChanged, LocalUser: localUser})

	p := r.firstPartyFor(localUser)
	if p == nil {
		r.runAfterPartyJoined(localUser, func() {
			r.HandleMemberJoined(localUser, joinedPrimaryID)
		})
		return
	}
	joined := ids.UserIDFromPrimary(joinedPrimaryID)
	if p.GetMember(joined) != nil {
		return
	}

	// The member is cached right away so later notices see it; the display
	// name is backfilled once the user query returns.
	p.AddMember(localUser, NewMember(joined, ""))
	p.RemoveInvitedUser(localUser, joined, InviteRemovedAccepted)

	partyID := p.ID()
	r.dispatcher.Dispatch(func(ctx context.Context) func() {
		info, err := r.backend.QueryUserInfo(ctx, localUser, joinedPrimaryID)
		return func() {
			if err != nil {
				r.log.Warn().Err(err).
					Str("joined", joinedPrimaryID).
					Msg("could not resolve joined member display name")
				return
			}
			p := r.partyFor(localUser, partyID)
			if p == nil {
				return
			}
			if member := p.GetMember(joined); member != nil {
				member.setDisplayName(info.DisplayName)
			}
		}
	})
}

// HandleMemberLeft applies a member-left notice. Like member-joined it is
// replayed once localUser's own join completes. When the departed member is
// localUser the party is also dropped from their joined set.
func (r *Registry) HandleMemberLeft(localUser ids.UserID, leftPrimaryID string) {
	p := r.firstPartyFor(localUser)
	if p == nil {
		r.runAfterPartyJoined(localUser, func() {
			r.HandleMemberLeft(localUser, leftPrimaryID)
		})
		return
	}
	left := ids.UserIDFromPrimary(leftPrimaryID)
	if member := p.GetMember(left); member != nil {
		left = member.UserID()
	}
	p.RemoveMember(localUser, left, ExitReasonLeft)
	if left.Equal(localUser) && r.removePartyFor(localUser, p.ID()) {
		r.publish(Event{
			Kind:       EventPartyExited,
			LocalUser:  localUser,
			PartyID:    p.ID(),
			ExitReason: ExitReasonLeft,
		})
	}
}

// HandleKicked applies a kicked notice. A kick targeting localUser removes the
// whole party from their joined set; a kick targeting someone else is a plain
// member removal.
func (r *Registry) HandleKicked(localUser ids.UserID, partyID ids.PartyID, kickedPrimaryID string) {
	p := r.partyFor(localUser, partyID)
	if p == nil {
		r.log.Warn().Str("party", partyID.String()).Msg("kicked notice for an unknown party")
		return
	}
	kicked := ids.UserIDFromPrimary(kickedPrimaryID)
	if member := p.GetMember(kicked); member != nil {
		kicked = member.UserID()
	}
	p.RemoveMember(localUser, kicked, ExitReasonKicked)
	if kicked.Equal(localUser) && r.removePartyFor(localUser, partyID) {
		r.publish(Event{
			Kind:       EventPartyExited,
			LocalUser:  localUser,
			PartyID:    partyID,
			ExitReason: ExitReasonKicked,
		})
	}
}

// HandleDataChanged applies a data-changed notice: a leader change, a new
// attribute blob, or both. An empty object payload means the attributes did
// not change and the cached snapshot is kept.
func (r *Registry) HandleDataChanged(localUser ids.UserID, partyID ids.PartyID, leaderPrimaryID string, custom []byte) {
	p := r.partyFor(localUser, partyID)
	if p == nil {
		r.runAfterPartyJoined(localUser, func() {
			r.HandleDataChanged(localUser, partyID, leaderPrimaryID, custom)
		})
		return
	}

	if leaderPrimaryID != "" && p.LeaderID().PrimaryID() != leaderPrimaryID {
		newLeader := ids.UserIDFromPrimary(leaderPrimaryID)
		if member := p.GetMember(newLeader); member != nil {
			newLeader = member.UserID()
		}
		for _, observer := range r.observersForParty(partyID) {
			observer.party.setLeader(newLeader)
			// The promoted member learns about their own promotion from the
			// completion callback, not from this fan-out.
			if observer.user.Equal(newLeader) {
				continue
			}
			r.publish(Event{
				Kind:      EventMemberPromoted,
				LocalUser: observer.user,
				PartyID:   partyID,
				UserID:    newLeader,
			})
		}
	}

	if len(custom) == 0 {
		return
	}
	data, err := DataFromAttrs(custom)
	if err != nil {
		r.log.Warn().Err(err).Str("party", partyID.String()).Msg("malformed party data payload")
		return
	}
	// An empty object is the no-update sentinel; the cached snapshot stands.
	if data.Len() == 0 {
		return
	}
	for _, observer := range r.observersForParty(partyID) {
		observer.party.setData(data)
		r.publish(Event{
			Kind:      EventDataReceived,
			LocalUser: observer.user,
			PartyID:   partyID,
			Data:      data,
		})
	}
}

type partyObserver struct {
	user  ids.UserID
	party *Party
}

// observersForParty lists each local user holding a cached record of the party
// together with that record.
func (r *Registry) observersForParty(partyID ids.PartyID) []partyObserver {
	var observers []partyObserver
	for key, joined := range r.parties {
		if p, ok := joined[partyID]; ok {
			observers = append(observers, partyObserver{user: ids.ParseUserID(key), party: p})
		}
	}
	return observers
}
