// Package lobby implements the websocket client for the lobby service. One
// Client serves one authenticated local user: it performs the party command
// round trips and forwards unsolicited notices onto the owning goroutine.
package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/questline/partyhub/internal/ids"
	"github.com/questline/partyhub/internal/party"
	"github.com/questline/partyhub/internal/proto"
)

// ErrClosed is returned for round trips attempted after the read loop ended.
var ErrClosed = errors.New("lobby connection closed")

// Exec posts notice handling onto the registry's owning goroutine.
type Exec interface {
	Post(fn func())
}

// Sink receives decoded notices. The registry implements it.
type Sink interface {
	HandleInviteReceived(recipient ids.UserID, partyID ids.PartyID, inviterPrimaryID, inviteToken string)
	HandleInviteSent(localUser ids.UserID, inviterPrimaryID, inviteePrimaryID string)
	HandleMemberJoined(localUser ids.UserID, joinedPrimaryID string)
	HandleMemberLeft(localUser ids.UserID, leftPrimaryID string)
	HandleKicked(localUser ids.UserID, partyID ids.PartyID, kickedPrimaryID string)
	HandleDataChanged(localUser ids.UserID, partyID ids.PartyID, leaderPrimaryID string, custom []byte)
}

// Config carries everything a Client needs to connect.
type Config struct {
	Log       *zerolog.Logger
	URL       string
	LocalUser ids.UserID
	// Token authenticates the hello message.
	Token string
	Exec  Exec
	Sink  Sink
}

// Client is a lobby connection bound to one local user. It satisfies the
// registry's backend contract; the response side of each round trip is matched
// to its request by id.
type Client struct {
	log       *zerolog.Logger
	conn      *websocket.Conn
	localUser ids.UserID
	exec      Exec
	sink      Sink

	mu      sync.Mutex
	pending map[string]chan proto.Inbound
	closed  bool
}

// Dial connects to the lobby and announces the local user.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial lobby: %w", err)
	}

	hello, err := json.Marshal(proto.HelloData{
		UserID:   cfg.LocalUser.PrimaryID(),
		Token:    cfg.Token,
		Protocol: proto.ProtocolVersion,
	})
	if err != nil {
		conn.Close(websocket.StatusInternalError, "encode hello")
		return nil, fmt.Errorf("marshal hello: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Request{ID: uuid.NewString(), Type: proto.RequestTypeHello, Data: hello}); err != nil {
		conn.Close(websocket.StatusInternalError, "send hello")
		return nil, fmt.Errorf("send hello: %w", err)
	}

	return &Client{
		log:       cfg.Log,
		conn:      conn,
		localUser: cfg.LocalUser,
		exec:      cfg.Exec,
		sink:      cfg.Sink,
		pending:   make(map[string]chan proto.Inbound),
	}, nil
}

// Run reads inbound messages until ctx is canceled or the connection drops.
// Responses complete their pending round trips; notices are posted to the
// sink through the exec so they run on the owning goroutine.
func (c *Client) Run(ctx context.Context) error {
	defer c.failPending()
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, c.conn, &inbound); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn().Err(err).Msg("lobby read failed")
			return err
		}
		if inbound.ID != "" {
			c.deliver(inbound)
			continue
		}
		c.handleNotice(inbound)
	}
}

// Close tears the connection down.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "closing")
}

func (c *Client) deliver(resp proto.Inbound) {
	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.mu.Unlock()
	if !ok {
		c.log.Warn().Str("id", resp.ID).Str("type", resp.Type).Msg("response without a pending request")
		return
	}
	ch <- resp
}

// failPending unblocks every in-flight round trip after the read loop ends.
func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) handleNotice(n proto.Inbound) {
	localUser := c.localUser
	switch n.Type {
	case proto.NoticeTypeInviteReceived:
		var payload proto.InviteReceivedNotice
		if !c.decodeNotice(n, &payload) {
			return
		}
		c.exec.Post(func() {
			c.sink.HandleInviteReceived(localUser, ids.ParsePartyID(payload.PartyID), payload.InviterID, payload.InviteToken)
		})
	case proto.NoticeTypeInviteSent:
		var payload proto.InviteSentNotice
		if !c.decodeNotice(n, &payload) {
			return
		}
		c.exec.Post(func() {
			c.sink.HandleInviteSent(localUser, payload.InviterID, payload.InviteeID)
		})
	case proto.NoticeTypeMemberJoined:
		var payload proto.MemberJoinedNotice
		if !c.decodeNotice(n, &payload) {
			return
		}
		c.exec.Post(func() {
			c.sink.HandleMemberJoined(localUser, payload.UserID)
		})
	case proto.NoticeTypeMemberLeft:
		var payload proto.MemberLeftNotice
		if !c.decodeNotice(n, &payload) {
			return
		}
		c.exec.Post(func() {
			c.sink.HandleMemberLeft(localUser, payload.UserID)
		})
	case proto.NoticeTypeKicked:
		var payload proto.KickedNotice
		if !c.decodeNotice(n, &payload) {
			return
		}
		c.exec.Post(func() {
			c.sink.HandleKicked(localUser, ids.ParsePartyID(payload.PartyID), payload.UserID)
		})
	case proto.NoticeTypeDataChanged:
		var payload proto.DataChangedNotice
		if !c.decodeNotice(n, &payload) {
			return
		}
		c.exec.Post(func() {
			c.sink.HandleDataChanged(localUser, ids.ParsePartyID(payload.PartyID), payload.LeaderID, payload.Custom)
		})
	default:
		c.log.Warn().Str("type", n.Type).Msg("unknown lobby notice")
	}
}

func (c *Client) decodeNotice(n proto.Inbound, into any) bool {
	if err := json.Unmarshal(n.Data, into); err != nil {
		c.log.Warn().Err(err).Str("type", n.Type).Msg("malformed lobby notice")
		return false
	}
	return true
}

// roundTrip sends a request and blocks until its response arrives or ctx
// expires.
func (c *Client) roundTrip(ctx context.Context, reqType string, payload any) (proto.Inbound, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return proto.Inbound{}, fmt.Errorf("marshal %s: %w", reqType, err)
	}

	id := uuid.NewString()
	ch := make(chan proto.Inbound, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return proto.Inbound{}, ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := wsjson.Write(ctx, c.conn, proto.Request{ID: id, Type: reqType, Data: data}); err != nil {
		return proto.Inbound{}, fmt.Errorf("send %s: %w", reqType, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return proto.Inbound{}, ErrClosed
		}
		return resp, nil
	case <-ctx.Done():
		return proto.Inbound{}, ctx.Err()
	}
}

// call performs a round trip and surfaces non-OK responses as errors.
func (c *Client) call(ctx context.Context, reqType string, payload any) (proto.Inbound, error) {
	resp, err := c.roundTrip(ctx, reqType, payload)
	if err != nil {
		return proto.Inbound{}, err
	}
	if resp.Code != proto.CodeOK {
		return resp, fmt.Errorf("%s rejected: code %d: %s", reqType, resp.Code, resp.Message)
	}
	return resp, nil
}

func (c *Client) snapshotFromResponse(resp proto.Inbound) (*party.PartyInfo, error) {
	var snap proto.PartySnapshot
	if err := json.Unmarshal(resp.Data, &snap); err != nil {
		return nil, fmt.Errorf("decode party snapshot: %w", err)
	}
	info := &party.PartyInfo{
		PartyID:           ids.ParsePartyID(snap.PartyID),
		InviteToken:       snap.InviteToken,
		Code:              snap.Code,
		LeaderPrimaryID:   snap.LeaderID,
		InviteePrimaryIDs: snap.Invitees,
	}
	if !info.PartyID.IsValid() {
		return nil, fmt.Errorf("party snapshot carries malformed id %q", snap.PartyID)
	}
	for _, m := range snap.Members {
		info.Members = append(info.Members, party.MemberInfo{
			UserID:      ids.UserIDFromPrimary(m.UserID),
			DisplayName: m.DisplayName,
		})
	}
	if len(snap.Custom) > 0 {
		data, err := party.DataFromAttrs(snap.Custom)
		if err != nil {
			return nil, err
		}
		info.Data = data
	}
	return info, nil
}

// CreateParty asks the lobby to create a party led by the local user.
func (c *Client) CreateParty(ctx context.Context, _ ids.UserID) (*party.PartyInfo, error) {
	resp, err := c.call(ctx, proto.RequestTypeCreateParty, struct{}{})
	if err != nil {
		return nil, err
	}
	return c.snapshotFromResponse(resp)
}

// JoinParty redeems an invite token for membership.
func (c *Client) JoinParty(ctx context.Context, _ ids.UserID, partyID ids.PartyID, inviteToken string) (*party.PartyInfo, error) {
	resp, err := c.call(ctx, proto.RequestTypeJoinParty, proto.JoinPartyData{
		PartyID:     partyID.String(),
		InviteToken: inviteToken,
	})
	if err != nil {
		return nil, err
	}
	return c.snapshotFromResponse(resp)
}

// LeaveParty leaves the party.
func (c *Client) LeaveParty(ctx context.Context, _ ids.UserID, partyID ids.PartyID) error {
	_, err := c.call(ctx, proto.RequestTypeLeaveParty, proto.LeavePartyData{PartyID: partyID.String()})
	return err
}

// SendInvitation invites another user.
func (c *Client) SendInvitation(ctx context.Context, _ ids.UserID, partyID ids.PartyID, invitee ids.UserID) error {
	_, err := c.call(ctx, proto.RequestTypeInvite, proto.InviteData{
		PartyID:   partyID.String(),
		InviteeID: invitee.PrimaryID(),
	})
	return err
}

// KickMember removes a member.
func (c *Client) KickMember(ctx context.Context, _ ids.UserID, partyID ids.PartyID, target ids.UserID) error {
	_, err := c.call(ctx, proto.RequestTypeKick, proto.KickData{
		PartyID:  partyID.String(),
		TargetID: target.PrimaryID(),
	})
	return err
}

// PromoteLeader transfers leadership.
func (c *Client) PromoteLeader(ctx context.Context, _ ids.UserID, partyID ids.PartyID, target ids.UserID) error {
	_, err := c.call(ctx, proto.RequestTypePromote, proto.PromoteData{
		PartyID:  partyID.String(),
		TargetID: target.PrimaryID(),
	})
	return err
}

// WritePartyData replaces the party's shared attribute blob.
func (c *Client) WritePartyData(ctx context.Context, _ ids.UserID, partyID ids.PartyID, data *party.Data) error {
	wire, err := data.MarshalWire()
	if err != nil {
		return err
	}
	_, err = c.call(ctx, proto.RequestTypeDataWrite, proto.DataWriteData{
		PartyID: partyID.String(),
		Custom:  wire,
	})
	return err
}

// QueryPartyInfo fetches the party the local user is currently in.
func (c *Client) QueryPartyInfo(ctx context.Context, _ ids.UserID) (*party.PartyInfo, error) {
	resp, err := c.roundTrip(ctx, proto.RequestTypePartyInfo, struct{}{})
	if err != nil {
		return nil, err
	}
	if resp.Code == proto.CodeNotFound {
		return nil, party.ErrNoParty
	}
	if resp.Code != proto.CodeOK {
		return nil, fmt.Errorf("party info rejected: code %d: %s", resp.Code, resp.Message)
	}
	return c.snapshotFromResponse(resp)
}

// QueryUserInfo resolves a user's composite identity and display name.
func (c *Client) QueryUserInfo(ctx context.Context, _ ids.UserID, primaryID string) (party.MemberInfo, error) {
	resp, err := c.call(ctx, proto.RequestTypeUserInfo, proto.UserInfoData{UserID: primaryID})
	if err != nil {
		return party.MemberInfo{}, err
	}
	var reply proto.UserInfoReply
	if err := json.Unmarshal(resp.Data, &reply); err != nil {
		return party.MemberInfo{}, fmt.Errorf("decode user info: %w", err)
	}
	userID := ids.NewUserID(ids.Composite{
		ID:           reply.UserID,
		PlatformType: reply.PlatformType,
		PlatformID:   reply.PlatformID,
	})
	return party.MemberInfo{UserID: userID, DisplayName: reply.DisplayName}, nil
}

// RejectInvitation declines an invite. The lobby sends no response for it, so
// the request goes out without a pending entry and failures are only logged.
func (c *Client) RejectInvitation(_ ids.UserID, partyID ids.PartyID, inviteToken string) {
	data, err := json.Marshal(proto.RejectData{PartyID: partyID.String(), InviteToken: inviteToken})
	if err != nil {
		c.log.Warn().Err(err).Msg("marshal invite rejection")
		return
	}
	if err := wsjson.Write(context.Background(), c.conn, proto.Request{
		ID:   uuid.NewString(),
		Type: proto.RequestTypeReject,
		Data: data,
	}); err != nil {
		c.log.Warn().Err(err).Str("party", partyID.String()).Msg("send invite rejection")
	}
}
