package party

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/questline/partyhub/internal/ids"
)

// CrossplayAttribute is the identity attribute holding a user's crossplay
// preference as "true"/"false".
const CrossplayAttribute = "crossplay"

// UnsupportedMethodReason is the reason code reported when a caller invokes an
// operation this backend's capability model does not support.
const UnsupportedMethodReason = -10000

// ErrNoParty is returned by Backend.QueryPartyInfo when the user has no party
// to restore.
var ErrNoParty = errors.New("user is not in a party")

// Result is the outcome code delivered through completion callbacks.
type Result int

const (
	// ResultOK means the operation completed on the backend.
	ResultOK Result = iota
	// ResultUnknownFailure covers backend or client errors with no more
	// specific code, including unsupported configuration updates.
	ResultUnknownFailure
	// ResultNotImplemented means the operation is not available on this
	// backend at all.
	ResultNotImplemented
	// ResultUnableToRejoin means rejoining by id is impossible; parties are
	// joined through invites only.
	ResultUnableToRejoin
	// ResultIncompatiblePlatform is reported for joinability queries, which
	// this backend cannot answer.
	ResultIncompatiblePlatform
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultUnknownFailure:
		return "unknown_failure"
	case ResultNotImplemented:
		return "not_implemented"
	case ResultUnableToRejoin:
		return "unable_to_rejoin"
	case ResultIncompatiblePlatform:
		return "incompatible_platform"
	}
	return "unknown"
}

// Completion callback shapes for the asynchronous operations. Every accepted
// operation reports exactly once through its callback.
type (
	CreatePartyComplete    func(localUser ids.UserID, partyID ids.PartyID, result Result)
	JoinPartyComplete      func(localUser ids.UserID, partyID ids.PartyID, result Result, reasonCode int)
	LeavePartyComplete     func(localUser ids.UserID, partyID ids.PartyID, result Result)
	SendInvitationComplete func(localUser ids.UserID, partyID ids.PartyID, invitee ids.UserID, result Result)
	KickMemberComplete     func(localUser ids.UserID, partyID ids.PartyID, target ids.UserID, result Result)
	PromoteMemberComplete  func(localUser ids.UserID, partyID ids.PartyID, target ids.UserID, result Result)
	UpdateConfigComplete   func(localUser ids.UserID, partyID ids.PartyID, result Result)
	RestorePartiesComplete func(localUser ids.UserID, result Result)
	RestoreInvitesComplete func(localUser ids.UserID, result Result)
	CleanupPartiesComplete func(localUser ids.UserID, result Result)
	QueryJoinabilityReply  func(localUser ids.UserID, partyID ids.PartyID, result Result, reasonCode int)
)

// MemberInfo is a resolved member snapshot from the backend.
type MemberInfo struct {
	UserID      ids.UserID
	DisplayName string
}

// PartyInfo is the backend's party snapshot, returned by create, join and
// restore round trips.
type PartyInfo struct {
	PartyID           ids.PartyID
	InviteToken       string
	Code              string
	LeaderPrimaryID   string
	Members           []MemberInfo
	InviteePrimaryIDs []string
	Data              *Data
}

// Backend performs the network round trips behind the registry's asynchronous
// operations. Implementations own transport errors and timeouts; the registry
// only reacts to results.
type Backend interface {
	CreateParty(ctx context.Context, localUser ids.UserID) (*PartyInfo, error)
	JoinParty(ctx context.Context, localUser ids.UserID, partyID ids.PartyID, inviteToken string) (*PartyInfo, error)
	LeaveParty(ctx context.Context, localUser ids.UserID, partyID ids.PartyID) error
	SendInvitation(ctx context.Context, localUser ids.UserID, partyID ids.PartyID, invitee ids.UserID) error
	KickMember(ctx context.Context, localUser ids.UserID, partyID ids.PartyID, target ids.UserID) error
	PromoteLeader(ctx context.Context, localUser ids.UserID, partyID ids.PartyID, target ids.UserID) error
	WritePartyData(ctx context.Context, localUser ids.UserID, partyID ids.PartyID, data *Data) error
	QueryPartyInfo(ctx context.Context, localUser ids.UserID) (*PartyInfo, error)
	QueryUserInfo(ctx context.Context, localUser ids.UserID, primaryID string) (MemberInfo, error)
	// RejectInvitation is fire-and-forget; the backend offers no completion
	// for it.
	RejectInvitation(localUser ids.UserID, partyID ids.PartyID, inviteToken string)
}

// Exec posts work onto the registry's owning goroutine. Deferred completions
// and replayed notifications go through it.
type Exec interface {
	Post(fn func())
}

// Dispatcher runs a backend round trip off the owning goroutine. The closure
// returned by op is posted back to the owning goroutine as the completion.
type Dispatcher interface {
	Dispatch(op func(ctx context.Context) func())
}

// AttributeSource resolves identity attributes for local users. Lookups are
// local cache reads; no network is involved.
type AttributeSource interface {
	UserAttribute(userID ids.UserID, name string) (string, bool)
}

// RegistryConfig carries the registry's collaborators.
type RegistryConfig struct {
	Log        *zerolog.Logger
	Exec       Exec
	Dispatcher Dispatcher
	Backend    Backend
	Attributes AttributeSource
	Bus        *Bus
	// Platform is the simplified native platform name recorded in crossplay
	// entries for local users.
	Platform string
}

// Registry is the top-level coordinator: it maps each local user to their
// joined parties and pending invites, applies realtime notifications, and
// dispatches outbound commands asynchronously. All methods, completions and
// notification handlers must run on the owning goroutine; the registry holds
// no locks.
type Registry struct {
	log        *zerolog.Logger
	exec       Exec
	dispatcher Dispatcher
	backend    Backend
	attrs      AttributeSource
	bus        *Bus
	platform   string

	parties map[string]map[ids.PartyID]*Party
	invites map[string][]*Invite
	// pendingJoined holds continuations to replay, in FIFO order, once the
	// keyed local user's own join completes.
	pendingJoined map[string][]func()
}

// NewRegistry constructs a registry with explicit collaborators.
func NewRegistry(cfg RegistryConfig) *Registry {
	bus := cfg.Bus
	if bus == nil {
		bus = NewBus()
	}
	log := cfg.Log
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Registry{
		log:           log,
		exec:          cfg.Exec,
		dispatcher:    cfg.Dispatcher,
		backend:       cfg.Backend,
		attrs:         cfg.Attributes,
		bus:           bus,
		platform:      cfg.Platform,
		parties:       make(map[string]map[ids.PartyID]*Party),
		invites:       make(map[string][]*Invite),
		pendingJoined: make(map[string][]func()),
	}
}

// Bus returns the event bus observers subscribe on.
func (r *Registry) Bus() *Bus {
	return r.bus
}

// SetBackend installs the backend after construction. The lobby transport
// needs the registry as its notification sink, so the two are built in
// sequence and linked here before any operation runs.
func (r *Registry) SetBackend(backend Backend) {
	r.backend = backend
}

// publish implements the Party back-handle.
func (r *Registry) publish(ev Event) {
	r.bus.Publish(ev)
}

// crossplayRecordFor reads the local user's crossplay preference from the
// identity attribute store and pairs it with the native platform name.
func (r *Registry) crossplayRecordFor(localUser ids.UserID) (CrossplayRecord, bool) {
	value, ok := r.attrs.UserAttribute(localUser, CrossplayAttribute)
	if !ok {
		r.log.Warn().
			Str("user", localUser.DebugString()).
			Msg("crossplay preference not found on user account")
		return CrossplayRecord{}, false
	}
	return CrossplayRecord{Platform: r.platform, Crossplay: value == "true"}, true
}

// requestDataUpdate pushes a party's data snapshot to the backend.
func (r *Registry) requestDataUpdate(localUser ids.UserID, partyID ids.PartyID, data *Data) {
	r.dispatcher.Dispatch(func(ctx context.Context) func() {
		err := r.backend.WritePartyData(ctx, localUser, partyID, data)
		return func() {
			if err != nil {
				r.log.Warn().Err(err).
					Str("party", partyID.String()).
					Msg("party data update failed")
			}
		}
	})
}

// CreateParty asks the backend to create a party for localUser. Party
// configuration is managed on the backend, so the local config is not sent.
// Returns true when the operation was accepted for asynchronous processing.
func (r *Registry) CreateParty(localUser ids.UserID, _ Config, done CreatePartyComplete) bool {
	if !localUser.IsValid() {
		r.log.Warn().Str("user", localUser.DebugString()).Msg("create party: invalid local user id")
		return false
	}
	r.dispatcher.Dispatch(func(ctx context.Context) func() {
		info, err := r.backend.CreateParty(ctx, localUser)
		return func() {
			if err != nil {
				r.log.Warn().Err(err).Msg("create party failed")
				if done != nil {
					done(localUser, "", ResultUnknownFailure)
				}
				return
			}
			p := r.registerPartySnapshot(localUser, info)
			r.completeJoin(localUser, p.ID())
			if done != nil {
				done(localUser, p.ID(), ResultOK)
			}
		}
	})
	return true
}

// JoinParty accepts the invite described by joinInfo. The cached invite's
// token is used when present. Returns true when the operation was accepted for
// asynchronous processing.
func (r *Registry) JoinParty(localUser ids.UserID, joinInfo JoinInfo, done JoinPartyComplete) bool {
	if !localUser.IsValid() || !joinInfo.IsValid() {
		r.log.Warn().
			Str("user", localUser.DebugString()).
			Str("party", joinInfo.PartyID().String()).
			Msg("join party: invalid arguments")
		return false
	}
	partyID := joinInfo.PartyID()
	token := ""
	if invite := r.InviteForParty(localUser, partyID); invite != nil {
		token = invite.InviteToken
	}
	r.dispatcher.Dispatch(func(ctx context.Context) func() {
		info, err := r.backend.JoinParty(ctx, localUser, partyID, token)
		return func() {
			if err != nil {
				r.log.Warn().Err(err).Str("party", partyID.String()).Msg("join party failed")
				if done != nil {
					done(localUser, partyID, ResultUnknownFailure, 0)
				}
				return
			}
			p := r.registerPartySnapshot(localUser, info)
			r.RemoveInviteForParty(localUser, p.ID(), InviteRemovedAccepted)
			r.completeJoin(localUser, p.ID())
			if done != nil {
				done(localUser, p.ID(), ResultOK, 0)
			}
		}
	})
	return true
}

// LeaveParty leaves the given party. Returns true when the operation was
// accepted for asynchronous processing.
func (r *Registry) LeaveParty(localUser ids.UserID, partyID ids.PartyID, done LeavePartyComplete) bool {
	if !localUser.IsValid() || !partyID.IsValid() {
		r.log.Warn().Str("party", partyID.String()).Msg("leave party: invalid arguments")
		return false
	}
	r.dispatcher.Dispatch(func(ctx context.Context) func() {
		err := r.backend.LeaveParty(ctx, localUser, partyID)
		return func() {
			if err != nil {
				r.log.Warn().Err(err).Str("party", partyID.String()).Msg("leave party failed")
				if done != nil {
					done(localUser, partyID, ResultUnknownFailure)
				}
				return
			}
			if r.removePartyFor(localUser, partyID) {
				r.publish(Event{Kind: EventPartyExited, LocalUser: localUser, PartyID: partyID})
			}
			if done != nil {
				done(localUser, partyID, ResultOK)
			}
		}
	})
	return true
}

// SendInvitation invites recipient into the party. The invited-users list is
// maintained from the backend's invite-sent notification, not here. Returns
// true when the operation was accepted for asynchronous processing.
func (r *Registry) SendInvitation(localUser ids.UserID, partyID ids.PartyID, recipient ids.UserID, done SendInvitationComplete) bool {
	if !localUser.IsValid() || !partyID.IsValid() || !recipient.IsValid() {
		r.log.Warn().Str("party", partyID.String()).Msg("send invitation: invalid arguments")
		return false
	}
	r.dispatcher.Dispatch(func(ctx context.Context) func() {
		err := r.backend.SendInvitation(ctx, localUser, partyID, recipient)
		return func() {
			result := ResultOK
			if err != nil {
				r.log.Warn().Err(err).Str("party", partyID.String()).Msg("send invitation failed")
				result = ResultUnknownFailure
			}
			if done != nil {
				done(localUser, partyID, recipient, result)
			}
		}
	})
	return true
}

// KickMember kicks target from the party. Local membership is updated by the
// kick notification that follows. Returns true when the operation was accepted
// for asynchronous processing.
func (r *Registry) KickMember(localUser ids.UserID, partyID ids.PartyID, target ids.UserID, done KickMemberComplete) bool {
	if !localUser.IsValid() || !partyID.IsValid() || !target.IsValid() {
		r.log.Warn().Str("party", partyID.String()).Msg("kick member: invalid arguments")
		return false
	}
	r.dispatcher.Dispatch(func(ctx context.Context) func() {
		err := r.backend.KickMember(ctx, localUser, partyID, target)
		return func() {
			result := ResultOK
			if err != nil {
				r.log.Warn().Err(err).Str("party", partyID.String()).Msg("kick member failed")
				result = ResultUnknownFailure
			}
			if done != nil {
				done(localUser, partyID, target, result)
			}
		}
	})
	return true
}

// PromoteMember promotes target to party leader. The cached leader changes
// when the data-change notification carrying the new leader arrives, so the
// promoted event fires exactly once. Returns true when the operation was
// accepted for asynchronous processing.
func (r *Registry) PromoteMember(localUser ids.UserID, partyID ids.PartyID, target ids.UserID, done PromoteMemberComplete) bool {
	if !localUser.IsValid() || !partyID.IsValid() || !target.IsValid() {
		r.log.Warn().Str("party", partyID.String()).Msg("promote member: invalid arguments")
		return false
	}
	r.dispatcher.Dispatch(func(ctx context.Context) func() {
		err := r.backend.PromoteLeader(ctx, localUser, partyID, target)
		return func() {
			result := ResultOK
			if err != nil {
				r.log.Warn().Err(err).Str("party", partyID.String()).Msg("promote member failed")
				result = ResultUnknownFailure
			}
			if done != nil {
				done(localUser, partyID, target, result)
			}
		}
	})
	return true
}

// UpdatePartyData swaps the party's local data snapshot and pushes it to the
// backend. Returns true when the operation was accepted for asynchronous
// processing.
func (r *Registry) UpdatePartyData(localUser ids.UserID, partyID ids.PartyID, data *Data) bool {
	if !localUser.IsValid() || !partyID.IsValid() || data == nil {
		r.log.Warn().Str("party", partyID.String()).Msg("update party data: invalid arguments")
		return false
	}
	if p := r.partyFor(localUser, partyID); p != nil {
		p.setData(data)
	}
	r.requestDataUpdate(localUser, partyID, data)
	return true
}

// RestoreParties queries the backend for a party the user is still in (for
// example after a reconnect) and registers it locally when found.
func (r *Registry) RestoreParties(localUser ids.UserID, done RestorePartiesComplete) bool {
	if !localUser.IsValid() {
		r.log.Warn().Str("user", localUser.DebugString()).Msg("restore parties: invalid local user id")
		return false
	}
	r.dispatcher.Dispatch(func(ctx context.Context) func() {
		info, err := r.backend.QueryPartyInfo(ctx, localUser)
		return func() {
			switch {
			case errors.Is(err, ErrNoParty):
				// Nothing to restore.
			case err != nil:
				r.log.Warn().Err(err).Msg("restore parties failed")
				if done != nil {
					done(localUser, ResultUnknownFailure)
				}
				return
			default:
				p := r.registerPartySnapshot(localUser, info)
				r.completeJoin(localUser, p.ID())
			}
			if done != nil {
				done(localUser, ResultOK)
			}
		}
	})
	return true
}

// registerPartySnapshot builds a Party entity from a backend snapshot and
// indexes it for localUser: members with resolved display names, pending
// invitees (the backend omits the true inviter, so the local user stands in),
// and the local user's crossplay record.
func (r *Registry) registerPartySnapshot(localUser ids.UserID, info *PartyInfo) *Party {
	leaderID := ids.UserIDFromPrimary(info.LeaderPrimaryID)
	for _, member := range info.Members {
		if member.UserID.PrimaryID() == info.LeaderPrimaryID {
			leaderID = member.UserID
			break
		}
	}

	p := newParty(r, info.PartyID, info.InviteToken, defaultConfig(), leaderID, info.Data)
	p.code = info.Code
	for _, member := range info.Members {
		p.AddMember(localUser, NewMember(member.UserID, member.DisplayName))
	}
	for _, inviteePrimary := range info.InviteePrimaryIDs {
		p.AddInvitedUser(localUser, localUser, ids.UserIDFromPrimary(inviteePrimary))
	}
	p.AddPlayerCrossplayPreferenceAndPlatform(localUser)

	r.addPartyFor(localUser, p)
	return p
}

// completeJoin publishes the party-joined event for localUser and replays any
// continuations deferred while the join was in flight, in FIFO order, clearing
// the queue.
func (r *Registry) completeJoin(localUser ids.UserID, partyID ids.PartyID) {
	r.publish(Event{Kind: EventPartyJoined, LocalUser: localUser, PartyID: partyID})
	key := localUser.String()
	pending := r.pendingJoined[key]
	delete(r.pendingJoined, key)
	for _, fn := range pending {
		fn()
	}
}

// runAfterPartyJoined defers fn until localUser's own join completes.
func (r *Registry) runAfterPartyJoined(localUser ids.UserID, fn func()) {
	key := localUser.String()
	r.pendingJoined[key] = append(r.pendingJoined[key], fn)
}

func (r *Registry) addPartyFor(localUser ids.UserID, p *Party) {
	key := localUser.String()
	if r.parties[key] == nil {
		r.parties[key] = make(map[ids.PartyID]*Party)
	}
	r.parties[key][p.ID()] = p
}

func (r *Registry) removePartyFor(localUser ids.UserID, partyID ids.PartyID) bool {
	key := localUser.String()
	if _, ok := r.parties[key][partyID]; !ok {
		return false
	}
	delete(r.parties[key], partyID)
	return true
}

// firstPartyFor returns localUser's first joined party. Several notification
// payloads omit the party id, so handlers assume a single active party per
// local user; multi-party support would need party ids in those payloads.
func (r *Registry) firstPartyFor(localUser ids.UserID) *Party {
	for _, p := range r.parties[localUser.String()] {
		return p
	}
	return nil
}

func (r *Registry) partyFor(localUser ids.UserID, partyID ids.PartyID) *Party {
	return r.parties[localUser.String()][partyID]
}
