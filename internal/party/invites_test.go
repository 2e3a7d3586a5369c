package party

import (
	"testing"

	"github.com/questline/partyhub/internal/ids"
)

func TestAddPartyInviteReplacesStaleInvite(t *testing.T) {
	f := newFixture(t)
	recipient := testUser(t, 1, "", "")
	inviterA := testUser(t, 2, "", "")
	inviterB := testUser(t, 3, "", "")
	partyX := testPartyID(t)
	partyY := testPartyID(t)

	log := recordEvents(f.registry.Bus(), EventInviteReceived)
	if !f.registry.AddPartyInvite(recipient, NewInvite(partyX, inviterA, "A", ids.NewToken())) {
		t.Fatal("first invite rejected")
	}

	// A re-sent invite for the same party and inviter carries a fresh token.
	// The cache must hand that token out, not the stale one.
	resent := ids.NewToken()
	if !f.registry.AddPartyInvite(recipient, NewInvite(partyX, inviterA, "A", resent)) {
		t.Fatal("re-sent invite rejected")
	}
	if got := len(f.registry.PendingInvites(recipient)); got != 1 {
		t.Fatalf("expected 1 cached invite after re-send, got %d", got)
	}
	cached := f.registry.InviteForParty(recipient, partyX)
	if cached == nil || cached.InviteToken != resent {
		t.Fatalf("cached token is stale: got %+v, want token %q", cached, resent)
	}

	// Same party, different inviter: the old invite gives way.
	if !f.registry.AddPartyInvite(recipient, NewInvite(partyX, inviterB, "B", ids.NewToken())) {
		t.Fatal("replacement by party id rejected")
	}
	// Same inviter, different party: likewise.
	if !f.registry.AddPartyInvite(recipient, NewInvite(partyY, inviterB, "B", ids.NewToken())) {
		t.Fatal("replacement by inviter rejected")
	}
	if got := len(f.registry.PendingInvites(recipient)); got != 1 {
		t.Fatalf("expected 1 cached invite, got %d", got)
	}
	if got := len(log.ofKind(EventInviteReceived)); got != 4 {
		t.Fatalf("expected an invite-received event per add, got %d", got)
	}

	// A genuinely distinct invite coexists with the cached one.
	if !f.registry.AddPartyInvite(recipient, NewInvite(partyX, inviterA, "A", ids.NewToken())) {
		t.Fatal("distinct invite rejected")
	}
	if got := len(f.registry.PendingInvites(recipient)); got != 2 {
		t.Fatalf("expected 2 cached invites, got %d", got)
	}
}

func TestRemoveInviteForPartyPublishesBothEvents(t *testing.T) {
	f := newFixture(t)
	recipient := testUser(t, 1, "", "")
	inviter := testUser(t, 2, "", "")
	partyID := testPartyID(t)
	f.registry.AddPartyInvite(recipient, NewInvite(partyID, inviter, "A", ids.NewToken()))

	log := recordEvents(f.registry.Bus(), EventInviteRemoved, EventInvitesChanged)
	if !f.registry.RemoveInviteForParty(recipient, partyID, InviteRemovedExpired) {
		t.Fatal("removal reported no invite")
	}
	removed := log.ofKind(EventInviteRemoved)
	if len(removed) != 1 || removed[0].InviteReason != InviteRemovedExpired || !removed[0].UserID.Equal(inviter) {
		t.Fatalf("unexpected invite-removed event: %+v", removed)
	}
	if len(log.ofKind(EventInvitesChanged)) != 1 {
		t.Fatal("invites-changed event not published")
	}
	if f.registry.RemoveInviteForParty(recipient, partyID, InviteRemovedExpired) {
		t.Fatal("second removal found a phantom invite")
	}
}

func TestRejectInvitationIsFireAndForget(t *testing.T) {
	f := newFixture(t)
	recipient := testUser(t, 1, "", "")
	inviter := testUser(t, 2, "", "")
	partyID := testPartyID(t)
	f.registry.AddPartyInvite(recipient, NewInvite(partyID, inviter, "A", ids.NewToken()))

	log := recordEvents(f.registry.Bus(), EventInviteRemoved)
	if !f.registry.RejectInvitation(recipient, partyID) {
		t.Fatal("rejection reported no invite")
	}
	if len(f.backend.rejected) != 1 || f.backend.rejected[0] != partyID {
		t.Fatalf("backend rejection not sent: %v", f.backend.rejected)
	}
	removed := log.ofKind(EventInviteRemoved)
	if len(removed) != 1 || removed[0].InviteReason != InviteRemovedDeclined {
		t.Fatalf("expected a declined removal, got %+v", removed)
	}
	if f.registry.RejectInvitation(recipient, partyID) {
		t.Fatal("second rejection found a phantom invite")
	}
}

func TestClearInvitations(t *testing.T) {
	f := newFixture(t)
	recipient := testUser(t, 1, "", "")
	f.registry.AddPartyInvite(recipient, NewInvite(testPartyID(t), testUser(t, 2, "", ""), "A", ids.NewToken()))
	f.registry.AddPartyInvite(recipient, NewInvite(testPartyID(t), testUser(t, 3, "", ""), "B", ids.NewToken()))

	log := recordEvents(f.registry.Bus(), EventInviteRemoved, EventInvitesChanged)
	f.registry.ClearInvitations(recipient)

	if len(f.registry.PendingInvites(recipient)) != 0 {
		t.Fatal("invites survived the clear")
	}
	if got := len(log.ofKind(EventInviteRemoved)); got != 2 {
		t.Fatalf("expected one removal event per invite, got %d", got)
	}
	if got := len(log.ofKind(EventInvitesChanged)); got != 1 {
		t.Fatalf("expected a single invites-changed event, got %d", got)
	}

	log.reset()
	f.registry.ClearInvitations(recipient)
	if len(log.events) != 0 {
		t.Fatal("clearing an empty set published events")
	}
}
