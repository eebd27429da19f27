package feed

import (
	"context"
	"testing"
	"time"
)

func TestToken(t *testing.T) {
	if got := Token("alice"); got != "alice" {
		t.Errorf("Token(alice) = %q", got)
	}
	if got := Token("a.b"); got != "~612e62" {
		t.Errorf("Token(a.b) = %q", got)
	}
	if Token("") == "" {
		t.Error("empty token")
	}
}

func TestEventsRoundTripAndUnsubscribe(t *testing.T) {
	bus := NewLocalBus()
	ev := NewEvents(bus, "dogi")

	var got []Event
	unsub, err := ev.Subscribe("bob", func(e Event) { got = append(got, e) })
	if err != nil {
		t.Fatal(err)
	}
	at := time.UnixMilli(1700000000000).UTC()
	in := Event{ID: "m1", Kind: KindMessage, From: "alice", To: "bob", Text: "hi", At: at}
	if err := ev.Publish(context.Background(), "bob", in); err != nil {
		t.Fatal(err)
	}
	// 其他用户的流不应收到
	_ = ev.Publish(context.Background(), "carol", Event{ID: "m2", Kind: KindMessage, From: "alice"})

	if len(got) != 1 || got[0].ID != "m1" || got[0].Text != "hi" || !got[0].At.Equal(at) {
		t.Fatalf("got %+v", got)
	}

	unsub()
	unsub()
	if n := bus.Subscribers(ev.Subject("bob")); n != 0 {
		t.Fatalf("subscribers after unsubscribe = %d", n)
	}
	_ = ev.Publish(context.Background(), "bob", in)
	if len(got) != 1 {
		t.Fatalf("delivered after unsubscribe")
	}
}

func TestPublishMany(t *testing.T) {
	bus := NewLocalBus()
	ev := NewEvents(bus, "")
	counts := map[string]int{}
	for _, u := range []string{"a", "b"} {
		u := u
		_, _ = ev.Subscribe(u, func(Event) { counts[u]++ })
	}
	ev.PublishMany(context.Background(), []string{"a", "b"}, Event{ID: "g1", Kind: KindGroupMessage})
	if counts["a"] != 1 || counts["b"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}
