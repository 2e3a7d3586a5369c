package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/questline/partyhub/internal/ids"
	"github.com/questline/partyhub/internal/party"
	"github.com/questline/partyhub/internal/proto"
)

// inlineExec runs posted closures immediately on the posting goroutine, which
// is enough for assertions guarded by recordingSink's lock.
type inlineExec struct{}

func (inlineExec) Post(fn func()) { fn() }

type sinkCall struct {
	kind    string
	partyID ids.PartyID
	userA   string
	userB   string
	custom  []byte
}

type recordingSink struct {
	mu    sync.Mutex
	calls []sinkCall
}

func (s *recordingSink) record(call sinkCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *recordingSink) wait(t *testing.T, n int) []sinkCall {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		if len(s.calls) >= n {
			out := append([]sinkCall(nil), s.calls...)
			s.mu.Unlock()
			return out
		}
		s.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sink never saw %d calls", n)
	return nil
}

func (s *recordingSink) HandleInviteReceived(_ ids.UserID, partyID ids.PartyID, inviter, token string) {
	s.record(sinkCall{kind: "invite", partyID: partyID, userA: inviter, userB: token})
}

func (s *recordingSink) HandleInviteSent(_ ids.UserID, inviter, invitee string) {
	s.record(sinkCall{kind: "invite_sent", userA: inviter, userB: invitee})
}

func (s *recordingSink) HandleMemberJoined(_ ids.UserID, joined string) {
	s.record(sinkCall{kind: "member_joined", userA: joined})
}

func (s *recordingSink) HandleMemberLeft(_ ids.UserID, left string) {
	s.record(sinkCall{kind: "member_left", userA: left})
}

func (s *recordingSink) HandleKicked(_ ids.UserID, partyID ids.PartyID, kicked string) {
	s.record(sinkCall{kind: "kicked", partyID: partyID, userA: kicked})
}

func (s *recordingSink) HandleDataChanged(_ ids.UserID, partyID ids.PartyID, leader string, custom []byte) {
	s.record(sinkCall{kind: "data", partyID: partyID, userA: leader, custom: custom})
}

// stubLobby is a scripted lobby server: it answers party.create with a fixed
// snapshot, party.info with not-found, user.info with an error, and pushes one
// member-joined notice after the hello.
type stubLobby struct {
	partyID ids.PartyID
	leader  string
	notice  proto.MemberJoinedNotice
}

func (s *stubLobby) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		ctx := r.Context()

		for {
			var req proto.Request
			if err := wsjson.Read(ctx, conn, &req); err != nil {
				return
			}
			switch req.Type {
			case proto.RequestTypeHello:
				payload, _ := json.Marshal(s.notice)
				if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.NoticeTypeMemberJoined, Data: payload}); err != nil {
					return
				}
			case proto.RequestTypeCreateParty:
				snap, _ := json.Marshal(proto.PartySnapshot{
					PartyID:  s.partyID.String(),
					LeaderID: s.leader,
					Members:  []proto.MemberSnapshot{{UserID: s.leader, DisplayName: "Leader"}},
				})
				if err := wsjson.Write(ctx, conn, proto.Inbound{ID: req.ID, Type: req.Type, Code: proto.CodeOK, Data: snap}); err != nil {
					return
				}
			case proto.RequestTypePartyInfo:
				if err := wsjson.Write(ctx, conn, proto.Inbound{ID: req.ID, Type: req.Type, Code: proto.CodeNotFound, Message: "no party"}); err != nil {
					return
				}
			case proto.RequestTypeUserInfo:
				if err := wsjson.Write(ctx, conn, proto.Inbound{ID: req.ID, Type: req.Type, Code: 500, Message: "lookup failed"}); err != nil {
					return
				}
			}
		}
	})
}

func dialTestClient(t *testing.T, sink Sink) (*Client, *stubLobby) {
	t.Helper()
	localUser := ids.NewUserID(ids.Composite{ID: strings.Repeat("a", 32)})
	stub := &stubLobby{
		partyID: ids.NewPartyID(),
		leader:  localUser.PrimaryID(),
		notice:  proto.MemberJoinedNotice{UserID: strings.Repeat("b", 32)},
	}
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	client, err := Dial(ctx, Config{
		Log:       &logger,
		URL:       "ws" + strings.TrimPrefix(srv.URL, "http"),
		LocalUser: localUser,
		Exec:      inlineExec{},
		Sink:      sink,
	})
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}
	go func() { _ = client.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = client.Close()
	})
	return client, stub
}

func TestClientCreatePartyRoundTrip(t *testing.T) {
	sink := &recordingSink{}
	client, stub := dialTestClient(t, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	info, err := client.CreateParty(ctx, ids.InvalidUserID())
	if err != nil {
		t.Fatalf("create party: %v", err)
	}
	if info.PartyID != stub.partyID {
		t.Fatalf("snapshot party id %s, want %s", info.PartyID, stub.partyID)
	}
	if len(info.Members) != 1 || info.Members[0].DisplayName != "Leader" {
		t.Fatalf("snapshot members: %+v", info.Members)
	}
	if info.LeaderPrimaryID != stub.leader {
		t.Fatalf("snapshot leader %q", info.LeaderPrimaryID)
	}
}

func TestClientDispatchesNotices(t *testing.T) {
	sink := &recordingSink{}
	_, stub := dialTestClient(t, sink)

	calls := sink.wait(t, 1)
	if calls[0].kind != "member_joined" || calls[0].userA != stub.notice.UserID {
		t.Fatalf("unexpected sink call: %+v", calls[0])
	}
}

func TestClientMapsNotFoundToNoParty(t *testing.T) {
	sink := &recordingSink{}
	client, _ := dialTestClient(t, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.QueryPartyInfo(ctx, ids.InvalidUserID()); !errors.Is(err, party.ErrNoParty) {
		t.Fatalf("expected ErrNoParty, got %v", err)
	}
}

func TestClientSurfacesErrorResponses(t *testing.T) {
	sink := &recordingSink{}
	client, _ := dialTestClient(t, sink)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := client.QueryUserInfo(ctx, ids.InvalidUserID(), strings.Repeat("c", 32))
	if err == nil || !strings.Contains(err.Error(), "lookup failed") {
		t.Fatalf("expected the response message in the error, got %v", err)
	}
}
