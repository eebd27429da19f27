package scope

import (
	"errors"
	"reflect"
	"testing"
)

func TestCloseReleasesLIFOOnce(t *testing.T) {
	var order []int
	s := New("test")
	for i := 1; i <= 3; i++ {
		i := i
		s.Add(func() { order = append(order, i) })
	}
	s.Close()
	s.Close()
	if !reflect.DeepEqual(order, []int{3, 2, 1}) {
		t.Fatalf("order = %v", order)
	}
}

func TestAddAfterCloseReleasesImmediately(t *testing.T) {
	s := New("test")
	s.Close()
	called := false
	s.Add(func() { called = true })
	if !called {
		t.Fatal("release added after close was not called")
	}
	if s.Len() != 0 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestReleasePanicDoesNotStopOthers(t *testing.T) {
	s := New("test")
	called := false
	s.Add(func() { called = true })
	s.Add(func() { panic("bad release") })
	s.Close()
	if !called {
		t.Fatal("earlier release skipped after panic")
	}
}

func TestRunClosesOnErrorAndPanic(t *testing.T) {
	released := 0
	want := errors.New("fail")
	err := Run("err", func(s *Scope) error {
		s.Add(func() { released++ })
		return want
	})
	if !errors.Is(err, want) || released != 1 {
		t.Fatalf("err=%v released=%d", err, released)
	}

	func() {
		defer func() { _ = recover() }()
		_ = Run("panic", func(s *Scope) error {
			s.Add(func() { released++ })
			panic("boom")
		})
	}()
	if released != 2 {
		t.Fatalf("release not called on panic, released=%d", released)
	}
}
