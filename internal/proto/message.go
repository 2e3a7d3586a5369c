// Package proto defines the JSON wire protocol spoken with the lobby service:
// id-correlated request/response pairs plus unsolicited notices.
package proto

import "encoding/json"

// Request is the envelope for messages sent to the lobby. ID correlates the
// eventual response.
type Request struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound is the envelope for messages coming from the lobby. A non-empty ID
// marks a response to a pending request; otherwise the message is a notice.
type Inbound struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Code    int             `json:"code"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	// CodeOK is the success code on responses.
	CodeOK = 0
	// CodeNotFound marks a lookup whose subject does not exist, such as a
	// party info query for a user with no party.
	CodeNotFound = 404

	RequestTypeHello       = "hello"
	RequestTypeCreateParty = "party.create"
	RequestTypeJoinParty   = "party.join"
	RequestTypeLeaveParty  = "party.leave"
	RequestTypeInvite      = "party.invite"
	RequestTypeKick        = "party.kick"
	RequestTypePromote     = "party.promote"
	RequestTypeDataWrite   = "party.data"
	RequestTypePartyInfo   = "party.info"
	RequestTypeReject      = "party.reject"
	RequestTypeUserInfo    = "user.info"

	NoticeTypeInviteReceived = "notice.invite"
	NoticeTypeInviteSent     = "notice.invite_sent"
	NoticeTypeMemberJoined   = "notice.member_joined"
	NoticeTypeMemberLeft     = "notice.member_left"
	NoticeTypeKicked         = "notice.kicked"
	NoticeTypeDataChanged    = "notice.data"
)

// HelloData introduces the connecting user to the lobby.
type HelloData struct {
	UserID   string `json:"userId"`
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// MemberSnapshot is one party member inside a snapshot.
type MemberSnapshot struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

// PartySnapshot is the lobby's full view of a party, carried by create, join
// and info responses.
type PartySnapshot struct {
	PartyID     string           `json:"partyId"`
	InviteToken string           `json:"inviteToken,omitempty"`
	Code        string           `json:"code,omitempty"`
	LeaderID    string           `json:"leaderId"`
	Members     []MemberSnapshot `json:"members"`
	Invitees    []string         `json:"invitees,omitempty"`
	Custom      json.RawMessage  `json:"custom,omitempty"`
}

// JoinPartyData requests membership in a party using an invite token.
type JoinPartyData struct {
	PartyID     string `json:"partyId"`
	InviteToken string `json:"inviteToken,omitempty"`
}

// LeavePartyData leaves a party.
type LeavePartyData struct {
	PartyID string `json:"partyId"`
}

// InviteData invites another user into a party.
type InviteData struct {
	PartyID   string `json:"partyId"`
	InviteeID string `json:"inviteeId"`
}

// KickData removes a member from a party.
type KickData struct {
	PartyID  string `json:"partyId"`
	TargetID string `json:"targetId"`
}

// PromoteData transfers party leadership.
type PromoteData struct {
	PartyID  string `json:"partyId"`
	TargetID string `json:"targetId"`
}

// DataWriteData replaces a party's shared attribute blob.
type DataWriteData struct {
	PartyID string          `json:"partyId"`
	Custom  json.RawMessage `json:"custom"`
}

// RejectData declines a pending invitation.
type RejectData struct {
	PartyID     string `json:"partyId"`
	InviteToken string `json:"inviteToken,omitempty"`
}

// UserInfoData asks the lobby to resolve a user.
type UserInfoData struct {
	UserID string `json:"userId"`
}

// UserInfoReply is the resolved user.
type UserInfoReply struct {
	UserID       string `json:"userId"`
	DisplayName  string `json:"displayName,omitempty"`
	PlatformType string `json:"platformType,omitempty"`
	PlatformID   string `json:"platformId,omitempty"`
}

// InviteReceivedNotice tells a user they were invited to a party.
type InviteReceivedNotice struct {
	PartyID     string `json:"partyId"`
	InviterID   string `json:"inviterId"`
	InviteToken string `json:"inviteToken,omitempty"`
}

// InviteSentNotice tells party members an invite went out.
type InviteSentNotice struct {
	InviterID string `json:"inviterId"`
	InviteeID string `json:"inviteeId"`
}

// MemberJoinedNotice tells party members someone joined. The lobby omits the
// party id; recipients resolve it against their own membership.
type MemberJoinedNotice struct {
	UserID string `json:"userId"`
}

// MemberLeftNotice tells party members someone left.
type MemberLeftNotice struct {
	UserID string `json:"userId"`
}

// KickedNotice tells party members someone was kicked.
type KickedNotice struct {
	PartyID string `json:"partyId"`
	UserID  string `json:"userId"`
}

// DataChangedNotice carries a leadership change, a new attribute blob, or
// both. An empty Custom object means the attributes did not change.
type DataChangedNotice struct {
	PartyID  string          `json:"partyId"`
	LeaderID string          `json:"leaderId,omitempty"`
	Custom   json.RawMessage `json:"custom,omitempty"`
}

// Error describes a protocol-level failure on a response.
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
