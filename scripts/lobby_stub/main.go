// lobby_stub runs a minimal in-memory lobby service for local development.
// It speaks the same websocket protocol partyhubd dials: id-correlated
// request/response plus unsolicited notices. State lives for the lifetime of
// the process and is lost on restart.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/questline/partyhub/internal/proto"
)

func main() {
	addr := flag.String("addr", ":7680", "listen address")
	flag.Parse()

	lobby := newLobby()
	mux := http.NewServeMux()
	mux.HandleFunc("/lobby", lobby.handleWS)

	log.Printf("lobby_stub listening on %s", *addr)
	server := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("lobby_stub: %v", err)
	}
}

type session struct {
	conn   *websocket.Conn
	userID string
}

type stubParty struct {
	id          string
	inviteToken string
	code        string
	leaderID    string
	members     []string
	invitees    []string
	custom      json.RawMessage
}

type lobbyState struct {
	mu       sync.Mutex
	sessions map[string]*session
	parties  map[string]*stubParty
}

func newLobby() *lobbyState {
	return &lobbyState{
		sessions: make(map[string]*session),
		parties:  make(map[string]*stubParty),
	}
}

func (l *lobbyState) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("accept: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	ctx := r.Context()

	var hello proto.Request
	if err := wsjson.Read(ctx, conn, &hello); err != nil || hello.Type != proto.RequestTypeHello {
		log.Printf("expected hello, got %q: %v", hello.Type, err)
		return
	}
	var helloData proto.HelloData
	if err := json.Unmarshal(hello.Data, &helloData); err != nil || helloData.UserID == "" {
		log.Printf("bad hello payload: %v", err)
		return
	}

	sess := &session{conn: conn, userID: helloData.UserID}
	l.mu.Lock()
	l.sessions[sess.userID] = sess
	l.mu.Unlock()
	log.Printf("user %s connected", sess.userID)

	defer func() {
		l.mu.Lock()
		if l.sessions[sess.userID] == sess {
			delete(l.sessions, sess.userID)
		}
		l.mu.Unlock()
		log.Printf("user %s disconnected", sess.userID)
	}()

	for {
		var req proto.Request
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			return
		}
		l.handle(ctx, sess, req)
	}
}

func (l *lobbyState) handle(ctx context.Context, sess *session, req proto.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch req.Type {
	case proto.RequestTypeCreateParty:
		p := &stubParty{
			id:          randomHex(16),
			inviteToken: randomHex(16),
			code:        randomHex(3),
			leaderID:    sess.userID,
			members:     []string{sess.userID},
		}
		l.parties[p.id] = p
		l.reply(ctx, sess, req.ID, req.Type, snapshotOf(p))

	case proto.RequestTypeJoinParty:
		var data proto.JoinPartyData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			l.fail(ctx, sess, req.ID, req.Type, 400, "bad payload")
			return
		}
		p := l.partyByID(data.PartyID)
		if p == nil {
			l.fail(ctx, sess, req.ID, req.Type, proto.CodeNotFound, "no such party")
			return
		}
		if data.InviteToken != "" && data.InviteToken != p.inviteToken {
			l.fail(ctx, sess, req.ID, req.Type, 403, "bad invite token")
			return
		}
		p.invitees = remove(p.invitees, sess.userID)
		l.notifyMembers(ctx, p, proto.NoticeTypeMemberJoined, proto.MemberJoinedNotice{UserID: sess.userID})
		p.members = append(p.members, sess.userID)
		l.reply(ctx, sess, req.ID, req.Type, snapshotOf(p))

	case proto.RequestTypeLeaveParty:
		var data proto.LeavePartyData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			l.fail(ctx, sess, req.ID, req.Type, 400, "bad payload")
			return
		}
		p := l.partyByID(data.PartyID)
		if p == nil {
			l.fail(ctx, sess, req.ID, req.Type, proto.CodeNotFound, "no such party")
			return
		}
		p.members = remove(p.members, sess.userID)
		if len(p.members) == 0 {
			delete(l.parties, p.id)
		} else {
			if p.leaderID == sess.userID {
				p.leaderID = p.members[0]
			}
			l.notifyMembers(ctx, p, proto.NoticeTypeMemberLeft, proto.MemberLeftNotice{UserID: sess.userID})
		}
		l.reply(ctx, sess, req.ID, req.Type, nil)

	case proto.RequestTypeInvite:
		var data proto.InviteData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			l.fail(ctx, sess, req.ID, req.Type, 400, "bad payload")
			return
		}
		p := l.partyByID(data.PartyID)
		if p == nil {
			l.fail(ctx, sess, req.ID, req.Type, proto.CodeNotFound, "no such party")
			return
		}
		p.invitees = append(remove(p.invitees, data.InviteeID), data.InviteeID)
		if invitee, ok := l.sessions[data.InviteeID]; ok {
			l.notify(ctx, invitee, proto.NoticeTypeInviteReceived, proto.InviteReceivedNotice{
				PartyID:     p.id,
				InviterID:   sess.userID,
				InviteToken: p.inviteToken,
			})
		}
		l.notifyMembers(ctx, p, proto.NoticeTypeInviteSent, proto.InviteSentNotice{
			InviterID: sess.userID,
			InviteeID: data.InviteeID,
		})
		l.reply(ctx, sess, req.ID, req.Type, nil)

	case proto.RequestTypeKick:
		var data proto.KickData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			l.fail(ctx, sess, req.ID, req.Type, 400, "bad payload")
			return
		}
		p := l.partyByID(data.PartyID)
		if p == nil || p.leaderID != sess.userID {
			l.fail(ctx, sess, req.ID, req.Type, 403, "not the leader")
			return
		}
		l.notifyMembers(ctx, p, proto.NoticeTypeKicked, proto.KickedNotice{PartyID: p.id, UserID: data.TargetID})
		p.members = remove(p.members, data.TargetID)
		l.reply(ctx, sess, req.ID, req.Type, nil)

	case proto.RequestTypePromote:
		var data proto.PromoteData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			l.fail(ctx, sess, req.ID, req.Type, 400, "bad payload")
			return
		}
		p := l.partyByID(data.PartyID)
		if p == nil || p.leaderID != sess.userID {
			l.fail(ctx, sess, req.ID, req.Type, 403, "not the leader")
			return
		}
		p.leaderID = data.TargetID
		l.notifyMembers(ctx, p, proto.NoticeTypeDataChanged, proto.DataChangedNotice{PartyID: p.id, LeaderID: p.leaderID})
		l.reply(ctx, sess, req.ID, req.Type, nil)

	case proto.RequestTypeDataWrite:
		var data proto.DataWriteData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			l.fail(ctx, sess, req.ID, req.Type, 400, "bad payload")
			return
		}
		p := l.partyByID(data.PartyID)
		if p == nil {
			l.fail(ctx, sess, req.ID, req.Type, proto.CodeNotFound, "no such party")
			return
		}
		p.custom = data.Custom
		l.notifyMembers(ctx, p, proto.NoticeTypeDataChanged, proto.DataChangedNotice{PartyID: p.id, Custom: attrsOf(p)})
		l.reply(ctx, sess, req.ID, req.Type, nil)

	case proto.RequestTypePartyInfo:
		p := l.partyOf(sess.userID)
		if p == nil {
			l.fail(ctx, sess, req.ID, req.Type, proto.CodeNotFound, "not in a party")
			return
		}
		l.reply(ctx, sess, req.ID, req.Type, snapshotOf(p))

	case proto.RequestTypeUserInfo:
		var data proto.UserInfoData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			l.fail(ctx, sess, req.ID, req.Type, 400, "bad payload")
			return
		}
		l.reply(ctx, sess, req.ID, req.Type, proto.UserInfoReply{
			UserID:      data.UserID,
			DisplayName: displayNameOf(data.UserID),
		})

	case proto.RequestTypeReject:
		var data proto.RejectData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return
		}
		if p := l.partyByID(data.PartyID); p != nil {
			p.invitees = remove(p.invitees, sess.userID)
		}

	default:
		l.fail(ctx, sess, req.ID, req.Type, 400, fmt.Sprintf("unknown request type %q", req.Type))
	}
}

func (l *lobbyState) partyByID(id string) *stubParty {
	return l.parties[id]
}

func (l *lobbyState) partyOf(userID string) *stubParty {
	for _, p := range l.parties {
		for _, m := range p.members {
			if m == userID {
				return p
			}
		}
	}
	return nil
}

func (l *lobbyState) reply(ctx context.Context, sess *session, id, reqType string, payload any) {
	msg := proto.Inbound{ID: id, Type: reqType, Code: proto.CodeOK}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Printf("marshal reply: %v", err)
			return
		}
		msg.Data = raw
	}
	l.send(ctx, sess, msg)
}

func (l *lobbyState) fail(ctx context.Context, sess *session, id, reqType string, code int, message string) {
	l.send(ctx, sess, proto.Inbound{ID: id, Type: reqType, Code: code, Message: message})
}

func (l *lobbyState) notify(ctx context.Context, sess *session, noticeType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("marshal notice: %v", err)
		return
	}
	l.send(ctx, sess, proto.Inbound{Type: noticeType, Code: proto.CodeOK, Data: raw})
}

func (l *lobbyState) notifyMembers(ctx context.Context, p *stubParty, noticeType string, payload any) {
	for _, member := range p.members {
		if sess, ok := l.sessions[member]; ok {
			l.notify(ctx, sess, noticeType, payload)
		}
	}
}

func (l *lobbyState) send(ctx context.Context, sess *session, msg proto.Inbound) {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := wsjson.Write(writeCtx, sess.conn, msg); err != nil {
		log.Printf("send to %s: %v", sess.userID, err)
	}
}

func snapshotOf(p *stubParty) proto.PartySnapshot {
	snap := proto.PartySnapshot{
		PartyID:     p.id,
		InviteToken: p.inviteToken,
		Code:        p.code,
		LeaderID:    p.leaderID,
		Invitees:    append([]string(nil), p.invitees...),
		Custom:      attrsOf(p),
	}
	for _, m := range p.members {
		snap.Members = append(snap.Members, proto.MemberSnapshot{UserID: m, DisplayName: displayNameOf(m)})
	}
	return snap
}

// attrsOf unwraps the stored wire blob back to the bare attribute object
// snapshots and data notices carry.
func attrsOf(p *stubParty) json.RawMessage {
	if len(p.custom) == 0 {
		return nil
	}
	var wire struct {
		Attrs json.RawMessage `json:"Attrs"`
	}
	if err := json.Unmarshal(p.custom, &wire); err != nil {
		return nil
	}
	return wire.Attrs
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("randomHex: %v", err)
	}
	return hex.EncodeToString(buf)
}

func displayNameOf(userID string) string {
	if len(userID) > 8 {
		return "player-" + userID[:8]
	}
	return "player-" + userID
}

func remove(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
