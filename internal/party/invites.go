package party

import "github.com/questline/partyhub/internal/ids"

// AddPartyInvite caches an invite for recipient. An existing invite for the
// same party or from the same inviter is replaced: a re-sent invite carries a
// fresh token and the stale one must not survive it. Always publishes the
// invite-received event.
func (r *Registry) AddPartyInvite(recipient ids.UserID, invite *Invite) bool {
	key := recipient.String()
	kept := r.invites[key][:0]
	for _, existing := range r.invites[key] {
		if existing.PartyID == invite.PartyID || existing.InviterID.Equal(invite.InviterID) {
			r.log.Debug().
				Str("party", existing.PartyID.String()).
				Str("inviter", existing.InviterID.DebugString()).
				Msg("stale party invite replaced")
			continue
		}
		kept = append(kept, existing)
	}
	r.invites[key] = append(kept, invite)
	r.publish(Event{
		Kind:      EventInviteReceived,
		LocalUser: recipient,
		PartyID:   invite.PartyID,
		UserID:    invite.InviterID,
	})
	return true
}

// InviteForParty returns recipient's cached invite for the given party, or nil.
func (r *Registry) InviteForParty(recipient ids.UserID, partyID ids.PartyID) *Invite {
	for _, invite := range r.invites[recipient.String()] {
		if invite.PartyID == partyID {
			return invite
		}
	}
	return nil
}

// PendingInvites returns recipient's cached invites.
func (r *Registry) PendingInvites(recipient ids.UserID) []*Invite {
	return r.invites[recipient.String()]
}

// RemoveInviteForParty drops recipient's invite for the given party,
// publishing the invite-removed and invites-changed events when one existed.
func (r *Registry) RemoveInviteForParty(recipient ids.UserID, partyID ids.PartyID, reason InviteRemovedReason) bool {
	key := recipient.String()
	for i, invite := range r.invites[key] {
		if invite.PartyID != partyID {
			continue
		}
		r.invites[key] = append(r.invites[key][:i], r.invites[key][i+1:]...)
		r.publish(Event{
			Kind:         EventInviteRemoved,
			LocalUser:    recipient,
			PartyID:      invite.PartyID,
			UserID:       invite.InviterID,
			InviteReason: reason,
		})
		r.publish(Event{Kind: EventInvitesChanged, LocalUser: recipient})
		return true
	}
	return false
}

// removeInvitesFromInviter drops every cached invite whose inviter's primary
// id matches, publishing one invite-removed event per dropped invite. Used
// when an inviter joins the recipient's party and their invite is obsolete.
func (r *Registry) removeInvitesFromInviter(recipient ids.UserID, inviterPrimaryID string, reason InviteRemovedReason) bool {
	key := recipient.String()
	removed := false
	kept := r.invites[key][:0]
	for _, invite := range r.invites[key] {
		if invite.InviterID.PrimaryID() != inviterPrimaryID {
			kept = append(kept, invite)
			continue
		}
		removed = true
		r.publish(Event{
			Kind:         EventInviteRemoved,
			LocalUser:    recipient,
			PartyID:      invite.PartyID,
			UserID:       invite.InviterID,
			InviteReason: reason,
		})
	}
	r.invites[key] = kept
	return removed
}

// RejectInvitation declines recipient's invite for the given party. The
// backend call is fire-and-forget; the cached invite is dropped immediately.
func (r *Registry) RejectInvitation(recipient ids.UserID, partyID ids.PartyID) bool {
	invite := r.InviteForParty(recipient, partyID)
	if invite == nil {
		r.log.Warn().Str("party", partyID.String()).Msg("reject invitation: no cached invite")
		return false
	}
	r.backend.RejectInvitation(recipient, partyID, invite.InviteToken)
	r.RemoveInviteForParty(recipient, partyID, InviteRemovedDeclined)
	return true
}

// ClearInvitations drops all of recipient's cached invites, publishing one
// invite-removed event per invite and a single invites-changed event when any
// were dropped.
func (r *Registry) ClearInvitations(recipient ids.UserID) {
	key := recipient.String()
	invites := r.invites[key]
	if len(invites) == 0 {
		return
	}
	delete(r.invites, key)
	for _, invite := range invites {
		r.publish(Event{
			Kind:         EventInviteRemoved,
			LocalUser:    recipient,
			PartyID:      invite.PartyID,
			UserID:       invite.InviterID,
			InviteReason: InviteRemovedCleared,
		})
	}
	r.publish(Event{Kind: EventInvitesChanged, LocalUser: recipient})
}
