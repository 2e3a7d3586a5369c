package party

import (
	"context"
	"fmt"
	"testing"

	"github.com/questline/partyhub/internal/ids"
)

// stubExec queues posted closures until the test drains them, standing in for
// the owning goroutine's run loop.
type stubExec struct {
	queue []func()
}

func (e *stubExec) Post(fn func()) {
	e.queue = append(e.queue, fn)
}

func (e *stubExec) drain() {
	for len(e.queue) > 0 {
		fn := e.queue[0]
		e.queue = e.queue[1:]
		fn()
	}
}

// stubDispatcher holds dispatched operations until the test releases them, so
// tests control the order round trips complete in.
type stubDispatcher struct {
	pending []func()
}

func (d *stubDispatcher) Dispatch(op func(ctx context.Context) func()) {
	d.pending = append(d.pending, func() {
		op(context.Background())()
	})
}

func (d *stubDispatcher) releaseNext(t *testing.T) {
	t.Helper()
	if len(d.pending) == 0 {
		t.Fatal("no pending dispatch to release")
	}
	fn := d.pending[0]
	d.pending = d.pending[1:]
	fn()
}

func (d *stubDispatcher) drain(t *testing.T) {
	t.Helper()
	for len(d.pending) > 0 {
		d.releaseNext(t)
	}
}

type stubBackend struct {
	createInfo *PartyInfo
	createErr  error
	joinInfo   *PartyInfo
	joinErr    error
	joinToken  string
	leaveErr   error
	queryInfo  *PartyInfo
	queryErr   error
	users      map[string]MemberInfo

	invitations []string
	kicks       []string
	promotions  []string
	dataWrites  []*Data
	rejected    []ids.PartyID
}

func (b *stubBackend) CreateParty(context.Context, ids.UserID) (*PartyInfo, error) {
	return b.createInfo, b.createErr
}

func (b *stubBackend) JoinParty(_ context.Context, _ ids.UserID, _ ids.PartyID, token string) (*PartyInfo, error) {
	b.joinToken = token
	return b.joinInfo, b.joinErr
}

func (b *stubBackend) LeaveParty(context.Context, ids.UserID, ids.PartyID) error {
	return b.leaveErr
}

func (b *stubBackend) SendInvitation(_ context.Context, _ ids.UserID, _ ids.PartyID, invitee ids.UserID) error {
	b.invitations = append(b.invitations, invitee.PrimaryID())
	return nil
}

func (b *stubBackend) KickMember(_ context.Context, _ ids.UserID, _ ids.PartyID, target ids.UserID) error {
	b.kicks = append(b.kicks, target.PrimaryID())
	return nil
}

func (b *stubBackend) PromoteLeader(_ context.Context, _ ids.UserID, _ ids.PartyID, target ids.UserID) error {
	b.promotions = append(b.promotions, target.PrimaryID())
	return nil
}

func (b *stubBackend) WritePartyData(_ context.Context, _ ids.UserID, _ ids.PartyID, data *Data) error {
	b.dataWrites = append(b.dataWrites, data)
	return nil
}

func (b *stubBackend) QueryPartyInfo(context.Context, ids.UserID) (*PartyInfo, error) {
	return b.queryInfo, b.queryErr
}

func (b *stubBackend) QueryUserInfo(_ context.Context, _ ids.UserID, primaryID string) (MemberInfo, error) {
	if info, ok := b.users[primaryID]; ok {
		return info, nil
	}
	return MemberInfo{}, fmt.Errorf("unknown user %s", primaryID)
}

func (b *stubBackend) RejectInvitation(_ ids.UserID, partyID ids.PartyID, _ string) {
	b.rejected = append(b.rejected, partyID)
}

// stubAttrs answers crossplay preference lookups from a map keyed by backend
// user id.
type stubAttrs struct {
	prefs map[string]string
}

func (a *stubAttrs) UserAttribute(userID ids.UserID, name string) (string, bool) {
	if name != CrossplayAttribute {
		return "", false
	}
	v, ok := a.prefs[userID.PrimaryID()]
	return v, ok
}

type fixture struct {
	registry   *Registry
	exec       *stubExec
	dispatcher *stubDispatcher
	backend    *stubBackend
	attrs      *stubAttrs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		exec:       &stubExec{},
		dispatcher: &stubDispatcher{},
		backend:    &stubBackend{users: make(map[string]MemberInfo)},
		attrs:      &stubAttrs{prefs: make(map[string]string)},
	}
	f.registry = NewRegistry(RegistryConfig{
		Exec:       f.exec,
		Dispatcher: f.dispatcher,
		Backend:    f.backend,
		Attributes: f.attrs,
		Platform:   "PC",
	})
	return f
}

func primaryID(n int) string {
	return fmt.Sprintf("%032x", n)
}

func testUser(t *testing.T, n int, platformType, platformID string) ids.UserID {
	t.Helper()
	u := ids.NewUserID(ids.Composite{ID: primaryID(n), PlatformType: platformType, PlatformID: platformID})
	if !u.IsValid() {
		t.Fatalf("test user %d is invalid", n)
	}
	return u
}

func testPartyID(t *testing.T) ids.PartyID {
	t.Helper()
	id := ids.NewPartyID()
	if !id.IsValid() {
		t.Fatalf("generated party id %q is invalid", id)
	}
	return id
}

// eventLog records published events so tests can assert on exact sequences.
type eventLog struct {
	events []Event
}

func recordEvents(bus *Bus, kinds ...EventKind) *eventLog {
	log := &eventLog{}
	for _, kind := range kinds {
		bus.Subscribe(kind, func(ev Event) {
			log.events = append(log.events, ev)
		})
	}
	return log
}

func (l *eventLog) ofKind(kind EventKind) []Event {
	var out []Event
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (l *eventLog) reset() {
	l.events = nil
}

// snapshotInfo builds a backend party snapshot with the given members, the
// first of which is the leader.
func snapshotInfo(t *testing.T, partyID ids.PartyID, members ...ids.UserID) *PartyInfo {
	t.Helper()
	if len(members) == 0 {
		t.Fatal("snapshot needs at least a leader")
	}
	info := &PartyInfo{
		PartyID:         partyID,
		InviteToken:     ids.NewToken(),
		LeaderPrimaryID: members[0].PrimaryID(),
	}
	for i, m := range members {
		info.Members = append(info.Members, MemberInfo{
			UserID:      m,
			DisplayName: fmt.Sprintf("player-%d", i),
		})
	}
	return info
}
