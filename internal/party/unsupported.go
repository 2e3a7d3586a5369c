package party

import "github.com/questline/partyhub/internal/ids"

// Operations below exist on the public surface but are not supported by the
// backend's capability model. Each accepted call still reports through its
// callback, deferred one tick so callers never observe a completion before
// the call returns.

// UpdatePartyConfig always fails: party configuration is fixed on the backend.
func (r *Registry) UpdatePartyConfig(localUser ids.UserID, partyID ids.PartyID, _ Config, done UpdateConfigComplete) bool {
	r.log.Warn().Str("party", partyID.String()).Msg("party configuration updates are not supported")
	r.exec.Post(func() {
		if done != nil {
			done(localUser, partyID, ResultUnknownFailure)
		}
	})
	return true
}

// RejoinParty always fails: parties are joined through invites, never rejoined
// by id.
func (r *Registry) RejoinParty(localUser ids.UserID, partyID ids.PartyID, done JoinPartyComplete) bool {
	r.log.Warn().Str("party", partyID.String()).Msg("rejoining a party by id is not supported")
	r.exec.Post(func() {
		if done != nil {
			done(localUser, partyID, ResultUnableToRejoin, UnsupportedMethodReason)
		}
	})
	return true
}

// QueryPartyJoinability always fails: the backend has no joinability query.
func (r *Registry) QueryPartyJoinability(localUser ids.UserID, partyID ids.PartyID, done QueryJoinabilityReply) bool {
	r.log.Warn().Str("party", partyID.String()).Msg("party joinability queries are not supported")
	r.exec.Post(func() {
		if done != nil {
			done(localUser, partyID, ResultIncompatiblePlatform, UnsupportedMethodReason)
		}
	})
	return true
}

// RestoreInvites always fails: pending invites cannot be recovered after a
// reconnect; inviters must send them again.
func (r *Registry) RestoreInvites(localUser ids.UserID, done RestoreInvitesComplete) bool {
	r.log.Warn().Str("user", localUser.DebugString()).Msg("restoring invites is not supported")
	r.exec.Post(func() {
		if done != nil {
			done(localUser, ResultNotImplemented)
		}
	})
	return true
}

// CleanupParties always fails: there is no bulk cleanup on the backend.
func (r *Registry) CleanupParties(localUser ids.UserID, done CleanupPartiesComplete) bool {
	r.log.Warn().Str("user", localUser.DebugString()).Msg("cleaning up parties is not supported")
	r.exec.Post(func() {
		if done != nil {
			done(localUser, ResultNotImplemented)
		}
	})
	return true
}

// UpdatePartyMemberData is rejected outright: per-member data has no backing
// storage on this backend.
func (r *Registry) UpdatePartyMemberData(localUser ids.UserID, partyID ids.PartyID, _ ids.UserID, _ *Data) bool {
	r.log.Warn().Str("party", partyID.String()).Msg("per-member party data is not supported")
	return false
}

// ApproveJoinRequest is rejected outright: join requests do not exist in this
// invite-only model.
func (r *Registry) ApproveJoinRequest(localUser ids.UserID, partyID ids.PartyID, _ ids.UserID, _ bool) bool {
	r.log.Warn().Str("party", partyID.String()).Msg("approving join requests is not supported")
	return false
}

// ApproveJoinInProgressRequest is rejected outright: join-in-progress has no
// counterpart in this invite-only model.
func (r *Registry) ApproveJoinInProgressRequest(localUser ids.UserID, partyID ids.PartyID, _ ids.UserID, _ bool, _ int) bool {
	r.log.Warn().Str("party", partyID.String()).Msg("approving join-in-progress requests is not supported")
	return false
}

// JoinInProgressFromWithinParty is rejected outright, matching
// ApproveJoinInProgressRequest.
func (r *Registry) JoinInProgressFromWithinParty(localUser ids.UserID, partyID ids.PartyID, _ ids.UserID) bool {
	r.log.Warn().Str("party", partyID.String()).Msg("join-in-progress from within a party is not supported")
	return false
}

// RespondToQueryJoinability is rejected outright, matching QueryPartyJoinability.
func (r *Registry) RespondToQueryJoinability(localUser ids.UserID, partyID ids.PartyID, _ ids.UserID, _ bool, _ int) bool {
	r.log.Warn().Str("party", partyID.String()).Msg("responding to joinability queries is not supported")
	return false
}
