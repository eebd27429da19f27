package storage

import (
	"context"
	"os"
	"testing"
	"time"

	rds "DogiCord/service/storage/redis"
)

func TestKeys(t *testing.T) {
	k := NewKeys("dogi")
	if got := k.Presence("alice"); got != "dogi:presence:alice" {
		t.Errorf("presence key = %q", got)
	}
	if got := k.Closing("alice"); got != "dogi:user_closing:alice" {
		t.Errorf("closing key = %q", got)
	}
	if got := NewKeys("").Flag("bob", FlagWebWelcome); got != "flag:welcome_notification_shown:bob" {
		t.Errorf("flag key = %q", got)
	}
}

// 需要真实 redis：DOGI_TEST_REDIS=127.0.0.1:6379
func testClientKeys(t *testing.T) (Keys, *PresenceStore, *BreadcrumbStore, *OnceFlags) {
	addr := os.Getenv("DOGI_TEST_REDIS")
	if addr == "" {
		t.Skip("DOGI_TEST_REDIS not set")
	}
	rdb, err := rds.NewClient(context.Background(), rds.Config{Addr: addr})
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	keys := NewKeys("dogitest:" + time.Now().Format("150405.000000"))
	return keys, NewPresenceStore(rdb, keys, time.Minute), NewBreadcrumbStore(rdb, keys, time.Minute), NewOnceFlags(rdb, keys)
}

func TestPresenceStoreRedis(t *testing.T) {
	_, ps, bc, flags := testClientKeys(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	if err := ps.Put(ctx, "alice", true, now.Add(-3*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := ps.Put(ctx, "bob", true, now); err != nil {
		t.Fatal(err)
	}
	stale, err := ps.StaleOnline(ctx, now.Add(-2*time.Minute), 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 1 || stale[0] != "alice" {
		t.Fatalf("stale = %v", stale)
	}
	if err := ps.Put(ctx, "alice", false, now); err != nil {
		t.Fatal(err)
	}
	snap, ok, err := ps.Get(ctx, "alice")
	if err != nil || !ok || snap.Online || !snap.LastSeen.Equal(now) {
		t.Fatalf("snapshot = %+v %v %v", snap, ok, err)
	}

	if err := bc.PutBreadcrumb(ctx, "alice", now); err != nil {
		t.Fatal(err)
	}
	at, ok, err := bc.TakeBreadcrumb(ctx, "alice")
	if err != nil || !ok || !at.Equal(now) {
		t.Fatalf("take = %v %v %v", at, ok, err)
	}
	if _, ok, _ := bc.TakeBreadcrumb(ctx, "alice"); ok {
		t.Fatal("breadcrumb should be gone after take")
	}

	first, err := flags.First(ctx, "alice", FlagWebWelcome)
	if err != nil || !first {
		t.Fatalf("first = %v %v", first, err)
	}
	if again, _ := flags.First(ctx, "alice", FlagWebWelcome); again {
		t.Fatal("flag set twice")
	}
}
