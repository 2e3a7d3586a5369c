package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/questline/partyhub/internal/identity"
	"github.com/questline/partyhub/internal/ids"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "identity.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testAccount(t *testing.T, seed string) *identity.Account {
	t.Helper()
	userID := ids.NewUserID(ids.Composite{
		ID:           strings.Repeat(seed, 32),
		PlatformType: "psn",
		PlatformID:   "991" + seed,
	})
	if !userID.IsValid() {
		t.Fatalf("seed %q produced an invalid user id", seed)
	}
	return &identity.Account{
		UserID:      userID,
		DisplayName: "Player " + seed,
		SecretHash:  "hash-" + seed,
		Attributes:  map[string]string{"crossplay": "true"},
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestUpsertAndGetAccount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	account := testAccount(t, "a")

	if err := store.UpsertAccount(ctx, account); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := store.GetAccount(ctx, account.UserID.PrimaryID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DisplayName != account.DisplayName || got.SecretHash != account.SecretHash {
		t.Fatalf("account fields lost: %+v", got)
	}
	if got.UserID.PlatformType() != "psn" || got.UserID.PlatformID() != "991a" {
		t.Fatalf("platform info lost: %s", got.UserID.DebugString())
	}
	if got.Attributes["crossplay"] != "true" {
		t.Fatalf("attributes lost: %v", got.Attributes)
	}
}

func TestUpsertReplacesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	account := testAccount(t, "b")

	if err := store.UpsertAccount(ctx, account); err != nil {
		t.Fatal(err)
	}
	account.DisplayName = "Renamed"
	if err := store.UpsertAccount(ctx, account); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := store.GetAccount(ctx, account.UserID.PrimaryID())
	if err != nil {
		t.Fatal(err)
	}
	if got.DisplayName != "Renamed" {
		t.Fatalf("display name not replaced: %q", got.DisplayName)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetAccount(context.Background(), strings.Repeat("f", 32)); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetAttributeOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	account := testAccount(t, "c")
	if err := store.UpsertAccount(ctx, account); err != nil {
		t.Fatal(err)
	}

	if err := store.SetAttribute(ctx, account.UserID.PrimaryID(), "crossplay", "false"); err != nil {
		t.Fatalf("set attribute: %v", err)
	}
	got, err := store.GetAccount(ctx, account.UserID.PrimaryID())
	if err != nil {
		t.Fatal(err)
	}
	if got.Attributes["crossplay"] != "false" {
		t.Fatalf("attribute not overwritten: %v", got.Attributes)
	}
}

func TestListAccounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, seed := range []string{"a", "b", "c"} {
		if err := store.UpsertAccount(ctx, testAccount(t, seed)); err != nil {
			t.Fatal(err)
		}
	}

	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(accounts))
	}
	for _, account := range accounts {
		if account.Attributes["crossplay"] != "true" {
			t.Fatalf("attributes missing on %s", account.UserID.PrimaryID())
		}
	}
}
