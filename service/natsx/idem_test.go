package natsx

import (
	"context"
	"testing"
	"time"
)

func TestMemIdemSeenOnceAndExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	mi := newMemIdem(time.Minute, func() time.Time { return now })

	if seen, _ := mi.SeenOnce("m1", 0); seen {
		t.Fatal("first sighting reported as seen")
	}
	if seen, _ := mi.SeenOnce("m1", 0); !seen {
		t.Fatal("second sighting not reported")
	}
	now = now.Add(time.Minute)
	if seen, _ := mi.SeenOnce("m1", 0); seen {
		t.Fatal("expired key still reported as seen")
	}
	now = now.Add(2 * time.Minute)
	mi.purge()
	if mi.Len() != 0 {
		t.Fatalf("purge left %d keys", mi.Len())
	}
}

func TestIdemMiddlewareDropsDuplicates(t *testing.T) {
	mi := newMemIdem(time.Minute, time.Now)
	calls := 0
	h := NatsxChain(func(ctx context.Context, msg NatsxMessage) error {
		calls++
		return nil
	}, NatsxRecoverMiddleware(), NatsxIdemMiddleware(mi, 0))

	msg := NatsxMessage{Subject: "dogi.feed.bob", Data: []byte(`{}`), Header: map[string]string{HeaderMsgID: "42"}}
	_ = h(context.Background(), msg)
	_ = h(context.Background(), msg)
	other := msg
	other.Header = map[string]string{HeaderMsgID: "43"}
	_ = h(context.Background(), other)

	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := NatsxChain(func(ctx context.Context, msg NatsxMessage) error {
		panic("bad payload")
	}, NatsxRecoverMiddleware())
	if err := h(context.Background(), NatsxMessage{Subject: "x"}); err == nil {
		t.Fatal("expected error from recovered panic")
	}
}
