package party

import "github.com/questline/partyhub/internal/ids"

// EventKind is a notification the party system emits to observers.
type EventKind int

const (
	// EventPartyJoined fires when a local user's create or join completes.
	EventPartyJoined EventKind = iota
	// EventPartyExited fires when a local user's party is removed entirely.
	EventPartyExited
	// EventMemberJoined fires when a member is added to a party.
	EventMemberJoined
	// EventMemberExited fires when a member removal is attempted on a party.
	EventMemberExited
	// EventMemberPromoted fires when a party's leadership changes.
	EventMemberPromoted
	// EventInviteReceived fires when a pending invite is cached for a user.
	EventInviteReceived
	// EventInviteRemoved fires when a cached or party-side invite is removed.
	EventInviteRemoved
	// EventInvitesChanged fires when a user's invite set changes shape.
	EventInvitesChanged
	// EventDataReceived fires when a party's data blob is replaced.
	EventDataReceived
)

func (k EventKind) String() string {
	switch k {
	case EventPartyJoined:
		return "party_joined"
	case EventPartyExited:
		return "party_exited"
	case EventMemberJoined:
		return "member_joined"
	case EventMemberExited:
		return "member_exited"
	case EventMemberPromoted:
		return "member_promoted"
	case EventInviteReceived:
		return "invite_received"
	case EventInviteRemoved:
		return "invite_removed"
	case EventInvitesChanged:
		return "invites_changed"
	case EventDataReceived:
		return "data_received"
	}
	return "unknown"
}

// ExitReason describes why a member left a party.
type ExitReason int

const (
	ExitReasonUnknown ExitReason = iota
	ExitReasonLeft
	ExitReasonKicked
	ExitReasonDisconnected
)

func (r ExitReason) String() string {
	switch r {
	case ExitReasonLeft:
		return "left"
	case ExitReasonKicked:
		return "kicked"
	case ExitReasonDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// InviteRemovedReason describes why an invitation went away.
type InviteRemovedReason int

const (
	InviteRemovedUnknown InviteRemovedReason = iota
	InviteRemovedAccepted
	InviteRemovedDeclined
	InviteRemovedCleared
	InviteRemovedExpired
)

func (r InviteRemovedReason) String() string {
	switch r {
	case InviteRemovedAccepted:
		return "accepted"
	case InviteRemovedDeclined:
		return "declined"
	case InviteRemovedCleared:
		return "cleared"
	case InviteRemovedExpired:
		return "expired"
	}
	return "unknown"
}

// Event describes a party system mutation. LocalUser scopes the event to the
// local user whose view changed; the remaining fields are set per kind.
type Event struct {
	Kind         EventKind
	LocalUser    ids.UserID
	PartyID      ids.PartyID
	UserID       ids.UserID
	ExitReason   ExitReason
	InviteReason InviteRemovedReason
	Data         *Data
}

// Bus fans events out to subscribed handlers. It is owned by the registry's
// goroutine and is not safe for concurrent use.
type Bus struct {
	handlers map[EventKind][]func(Event)
}

// NewBus constructs an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[EventKind][]func(Event))}
}

// Subscribe registers a handler for one event kind. Handlers run in
// subscription order on the publishing goroutine.
func (b *Bus) Subscribe(kind EventKind, handler func(Event)) {
	b.handlers[kind] = append(b.handlers[kind], handler)
}

// Publish delivers the event to every handler subscribed to its kind.
func (b *Bus) Publish(ev Event) {
	for _, handler := range b.handlers[ev.Kind] {
		handler(ev)
	}
}
