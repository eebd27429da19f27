package safe

import (
	"errors"
	"testing"
	"time"
)

func TestSafeGoRecovers(t *testing.T) {
	done := make(chan struct{})
	SafeGo("panicker", func() {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not finish")
	}
}

func TestCall(t *testing.T) {
	if err := Call(func() error { panic("x") }); err == nil {
		t.Fatal("expected panic to become an error")
	}
	want := errors.New("plain")
	if err := Call(func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("got %v", err)
	}
}
