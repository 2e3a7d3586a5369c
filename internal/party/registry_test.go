package party

import (
	"errors"
	"testing"

	"github.com/questline/partyhub/internal/ids"
)

func TestCreatePartyRegistersSnapshot(t *testing.T) {
	f := newFixture(t)
	local := testUser(t, 1, "steam", "7656")
	invitee := testUser(t, 2, "", "")
	f.attrs.prefs[local.PrimaryID()] = "true"

	partyID := testPartyID(t)
	info := snapshotInfo(t, partyID, local)
	info.InviteePrimaryIDs = []string{invitee.PrimaryID()}
	f.backend.createInfo = info

	log := recordEvents(f.registry.Bus(), EventPartyJoined, EventMemberJoined)
	var gotResult Result
	var gotParty ids.PartyID
	accepted := f.registry.CreateParty(local, Config{}, func(_ ids.UserID, partyID ids.PartyID, result Result) {
		gotParty = partyID
		gotResult = result
	})
	if !accepted {
		t.Fatal("create party was not accepted")
	}
	if f.registry.Party(local, partyID) != nil {
		t.Fatal("party registered before the round trip completed")
	}
	f.dispatcher.drain(t)

	if gotResult != ResultOK || gotParty != partyID {
		t.Fatalf("completion reported %v for %s", gotResult, gotParty)
	}
	p := f.registry.Party(local, partyID)
	if p == nil {
		t.Fatal("party not registered after creation")
	}
	if !p.LeaderID().Equal(local) {
		t.Fatalf("leader not resolved to the member composite: %s", p.LeaderID().DebugString())
	}
	pending := p.PendingInvitedUsers()
	if len(pending) != 1 || pending[0].PrimaryID() != invitee.PrimaryID() {
		t.Fatalf("invitee list not restored from snapshot: %v", pending)
	}
	if rec, ok := p.Data().CrossplayRecordFor(local.PrimaryID()); !ok || !rec.Crossplay || rec.Platform != "PC" {
		t.Fatalf("local user's crossplay record not seeded: %+v ok=%v", rec, ok)
	}
	if len(log.ofKind(EventPartyJoined)) != 1 {
		t.Fatal("party-joined event not published")
	}
	if len(f.backend.dataWrites) == 0 {
		t.Fatal("crossplay seeding did not push a data update")
	}
}

func TestCreatePartyFailureReportsUnknown(t *testing.T) {
	f := newFixture(t)
	local := testUser(t, 1, "", "")
	f.backend.createErr = errors.New("boom")

	var gotResult Result
	f.registry.CreateParty(local, Config{}, func(_ ids.UserID, _ ids.PartyID, result Result) {
		gotResult = result
	})
	f.dispatcher.drain(t)

	if gotResult != ResultUnknownFailure {
		t.Fatalf("expected unknown failure, got %v", gotResult)
	}
	if _, ok := f.registry.FirstPartyIDFor(local); ok {
		t.Fatal("failed creation registered a party")
	}
}

func TestJoinPartyConsumesCachedInvite(t *testing.T) {
	f := newFixture(t)
	local := testUser(t, 1, "", "")
	inviter := testUser(t, 2, "", "")
	partyID := testPartyID(t)
	token := ids.NewToken()

	f.registry.AddPartyInvite(local, NewInvite(partyID, inviter, "Inviter", token))
	f.backend.joinInfo = snapshotInfo(t, partyID, inviter, local)

	log := recordEvents(f.registry.Bus(), EventInviteRemoved, EventPartyJoined)
	invite := f.registry.InviteForParty(local, partyID)
	if invite == nil {
		t.Fatal("invite not cached")
	}
	if !f.registry.JoinParty(local, invite.JoinInfo, nil) {
		t.Fatal("join was not accepted")
	}
	f.dispatcher.drain(t)

	if f.backend.joinToken != token {
		t.Fatalf("join used token %q, want the cached invite token", f.backend.joinToken)
	}
	if f.registry.InviteForParty(local, partyID) != nil {
		t.Fatal("invite survived a successful join")
	}
	removed := log.ofKind(EventInviteRemoved)
	if len(removed) != 1 || removed[0].InviteReason != InviteRemovedAccepted {
		t.Fatalf("expected one accepted-invite removal, got %+v", removed)
	}
	if len(log.ofKind(EventPartyJoined)) != 1 {
		t.Fatal("party-joined event not published")
	}
	if !f.registry.IsUserInParty(local, partyID, inviter) {
		t.Fatal("inviter missing from the joined snapshot")
	}
}

func TestLeavePartyPublishesExited(t *testing.T) {
	f := newFixture(t)
	local := testUser(t, 1, "", "")
	partyID := testPartyID(t)
	f.backend.createInfo = snapshotInfo(t, partyID, local)
	f.registry.CreateParty(local, Config{}, nil)
	f.dispatcher.drain(t)

	log := recordEvents(f.registry.Bus(), EventPartyExited)
	var gotResult Result
	f.registry.LeaveParty(local, partyID, func(_ ids.UserID, _ ids.PartyID, result Result) {
		gotResult = result
	})
	f.dispatcher.drain(t)

	if gotResult != ResultOK {
		t.Fatalf("leave reported %v", gotResult)
	}
	if f.registry.Party(local, partyID) != nil {
		t.Fatal("party still cached after leaving")
	}
	if len(log.ofKind(EventPartyExited)) != 1 {
		t.Fatal("party-exited event not published")
	}
}

func TestRestorePartiesWithNoParty(t *testing.T) {
	f := newFixture(t)
	local := testUser(t, 1, "", "")
	f.backend.queryErr = ErrNoParty

	var gotResult Result
	called := false
	f.registry.RestoreParties(local, func(_ ids.UserID, result Result) {
		called = true
		gotResult = result
	})
	f.dispatcher.drain(t)

	if !called || gotResult != ResultOK {
		t.Fatalf("restore with no party should succeed, called=%v result=%v", called, gotResult)
	}
	if _, ok := f.registry.FirstPartyIDFor(local); ok {
		t.Fatal("restore registered a party out of thin air")
	}
}

func TestRestorePartiesRegistersSnapshot(t *testing.T) {
	f := newFixture(t)
	local := testUser(t, 1, "", "")
	partyID := testPartyID(t)
	f.backend.queryInfo = snapshotInfo(t, partyID, local)

	f.registry.RestoreParties(local, nil)
	f.dispatcher.drain(t)

	if id, ok := f.registry.FirstPartyIDFor(local); !ok || id != partyID {
		t.Fatalf("restored party missing, got %s ok=%v", id, ok)
	}
}

func TestUnsupportedOperationsDeferCompletions(t *testing.T) {
	f := newFixture(t)
	local := testUser(t, 1, "", "")
	partyID := testPartyID(t)

	var results []Result
	var reasons []int
	f.registry.RejoinParty(local, partyID, func(_ ids.UserID, _ ids.PartyID, result Result, reason int) {
		results = append(results, result)
		reasons = append(reasons, reason)
	})
	f.registry.QueryPartyJoinability(local, partyID, func(_ ids.UserID, _ ids.PartyID, result Result, reason int) {
		results = append(results, result)
		reasons = append(reasons, reason)
	})
	f.registry.UpdatePartyConfig(local, partyID, Config{}, func(_ ids.UserID, _ ids.PartyID, result Result) {
		results = append(results, result)
		reasons = append(reasons, 0)
	})
	f.registry.RestoreInvites(local, func(_ ids.UserID, result Result) {
		results = append(results, result)
		reasons = append(reasons, 0)
	})
	f.registry.CleanupParties(local, func(_ ids.UserID, result Result) {
		results = append(results, result)
		reasons = append(reasons, 0)
	})

	if len(results) != 0 {
		t.Fatal("unsupported operation completed before the caller regained control")
	}
	f.exec.drain()

	want := []Result{ResultUnableToRejoin, ResultIncompatiblePlatform, ResultUnknownFailure, ResultNotImplemented, ResultNotImplemented}
	if len(results) != len(want) {
		t.Fatalf("expected %d completions, got %d", len(want), len(results))
	}
	for i, r := range want {
		if results[i] != r {
			t.Fatalf("completion %d: got %v, want %v", i, results[i], r)
		}
	}
	if reasons[0] != UnsupportedMethodReason || reasons[1] != UnsupportedMethodReason {
		t.Fatalf("unsupported reason code not reported: %v", reasons)
	}

	if f.registry.UpdatePartyMemberData(local, partyID, local, NewData()) {
		t.Fatal("per-member data update should be rejected outright")
	}
	if f.registry.ApproveJoinRequest(local, partyID, local, true) {
		t.Fatal("join request approval should be rejected outright")
	}
	if f.registry.ApproveJoinInProgressRequest(local, partyID, local, true, 0) {
		t.Fatal("join-in-progress approval should be rejected outright")
	}
	if f.registry.JoinInProgressFromWithinParty(local, partyID, local) {
		t.Fatal("join-in-progress from within a party should be rejected outright")
	}
}

func TestUpdatePartyDataSwapsSnapshotAndWrites(t *testing.T) {
	f := newFixture(t)
	local := testUser(t, 1, "", "")
	partyID := testPartyID(t)
	f.backend.createInfo = snapshotInfo(t, partyID, local)
	f.registry.CreateParty(local, Config{}, nil)
	f.dispatcher.drain(t)
	f.backend.dataWrites = nil

	data, err := NewData().WithAttribute("map", "harbor")
	if err != nil {
		t.Fatal(err)
	}
	if !f.registry.UpdatePartyData(local, partyID, data) {
		t.Fatal("data update not accepted")
	}
	if got := f.registry.PartyData(local, partyID); got != data {
		t.Fatal("local snapshot not swapped before the round trip")
	}
	f.dispatcher.drain(t)
	if len(f.backend.dataWrites) != 1 || f.backend.dataWrites[0] != data {
		t.Fatalf("backend write missing or wrong: %v", f.backend.dataWrites)
	}
}
