package shell

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"DogiCord/tools/errs"
)

type frame struct {
	typ  string
	data any
}

type recSender struct {
	mu     sync.Mutex
	frames []frame
	onSend func(typ string, data any)
}

func (s *recSender) Send(typ string, data any) error {
	s.mu.Lock()
	s.frames = append(s.frames, frame{typ, data})
	fn := s.onSend
	s.mu.Unlock()
	if fn != nil {
		fn(typ, data)
	}
	return nil
}

func (s *recSender) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.frames))
	for _, f := range s.frames {
		out = append(out, f.typ)
	}
	return out
}

func TestReduceTransitions(t *testing.T) {
	info := &UpdateInfo{Version: "1.2.0"}
	cases := []struct {
		name string
		from UpdateState
		ev   UpdateEvent
		want UpdateState
	}{
		{"check from idle", Idle{}, UpdateEvent{Type: EventChecking}, Checking{}},
		{"available", Checking{}, UpdateEvent{Type: EventAvailable, Info: info}, Available{Info: *info}},
		{"not available", Checking{}, UpdateEvent{Type: EventNotAvailable}, Idle{}},
		{"progress from available", Available{Info: *info}, UpdateEvent{Type: EventProgress, Percent: 10}, Downloading{Percent: 10}},
		{"progress from downloading", Downloading{Percent: 10}, UpdateEvent{Type: EventProgress, Percent: 55.5}, Downloading{Percent: 55.5}},
		{"progress clamped", Downloading{Percent: 10}, UpdateEvent{Type: EventProgress, Percent: 140}, Downloading{Percent: 100}},
		{"progress ignored from idle", Idle{}, UpdateEvent{Type: EventProgress, Percent: 10}, Idle{}},
		{"progress ignored from checking", Checking{}, UpdateEvent{Type: EventProgress, Percent: 10}, Checking{}},
		{"downloaded", Downloading{Percent: 99}, UpdateEvent{Type: EventDownloaded, Info: info}, Downloaded{Info: *info}},
		{"error", Downloading{Percent: 20}, UpdateEvent{Type: EventError, Error: "net"}, Failed{Reason: "net"}},
		{"error without reason", Checking{}, UpdateEvent{Type: EventError}, Failed{Reason: "unknown error"}},
		{"unknown event", Downloaded{Info: *info}, UpdateEvent{Type: "bogus"}, Downloaded{Info: *info}},
		{"nil state", nil, UpdateEvent{Type: "bogus"}, Idle{}},
	}
	for _, c := range cases {
		if got := Reduce(c.from, c.ev); got != c.want {
			t.Errorf("%s: got %#v, want %#v", c.name, got, c.want)
		}
	}
}

func TestFrame(t *testing.T) {
	f := Frame(Downloading{Percent: 42})
	if f.Phase != "downloading" || f.Percent != 42 || f.Info != nil {
		t.Fatalf("frame = %+v", f)
	}
	f = Frame(Downloaded{Info: UpdateInfo{Version: "2.0.0"}})
	if f.Info == nil || f.Info.Version != "2.0.0" {
		t.Fatalf("frame = %+v", f)
	}
	if Frame(Failed{Reason: "x"}).Reason != "x" {
		t.Fatalf("reason lost")
	}
}

func TestInstallRequiresDownloaded(t *testing.T) {
	s := &recSender{}
	b := NewBridge(s, true, "1.0.0")

	if err := b.InstallUpdate(); !errors.Is(err, errs.ErrUpdateNotReady) {
		t.Fatalf("install from idle: %v", err)
	}
	var seen []string
	unsub := b.OnUpdateEvent(func(st UpdateState) { seen = append(seen, st.Phase()) })
	b.HandleUpdateEvent(UpdateEvent{Type: EventChecking})
	b.HandleUpdateEvent(UpdateEvent{Type: EventAvailable, Info: &UpdateInfo{Version: "1.1.0"}})
	b.HandleUpdateEvent(UpdateEvent{Type: EventProgress, Percent: 50})
	b.HandleUpdateEvent(UpdateEvent{Type: EventDownloaded, Info: &UpdateInfo{Version: "1.1.0"}})
	unsub()
	b.HandleUpdateEvent(UpdateEvent{Type: EventChecking})
	b.HandleUpdateEvent(UpdateEvent{Type: EventDownloaded, Info: &UpdateInfo{Version: "1.1.0"}})

	want := []string{"checking", "available", "downloading", "downloaded"}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v", seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("seen = %v", seen)
		}
	}
	if err := b.InstallUpdate(); err != nil {
		t.Fatalf("install: %v", err)
	}
	types := s.types()
	if types[len(types)-1] != FrameShellCommand {
		t.Fatalf("install command not sent: %v", types)
	}
}

func TestWebSessionHasNoDesktopCommands(t *testing.T) {
	s := &recSender{}
	b := NewBridge(s, false, "web")
	if err := b.SendNotification(NativeNotification{ID: "1", Title: "x"}); !errors.Is(err, ErrNoDesktop) {
		t.Fatalf("expected ErrNoDesktop, got %v", err)
	}
	if err := b.CheckForUpdates(); !errors.Is(err, ErrNoDesktop) {
		t.Fatalf("expected ErrNoDesktop, got %v", err)
	}
	if err := b.ReportConnectivity(true); err != nil {
		t.Fatal(err)
	}
	if v, err := b.VersionAsync(context.Background()); err != nil || v != "web" {
		t.Fatalf("version = %q, %v", v, err)
	}
	// 导航在网页端同样可用
	if err := b.Navigate("/chat/alice"); err != nil {
		t.Fatal(err)
	}
	if types := s.types(); len(types) != 1 || types[0] != FrameNavigate {
		t.Fatalf("frames = %v", types)
	}
}

func TestVersionAsyncRoundTrip(t *testing.T) {
	s := &recSender{}
	b := NewBridge(s, true, "1.0.0")
	s.onSend = func(typ string, data any) {
		if c, ok := data.(command); ok && c.Command == CmdGetVersion {
			go b.HandleVersion(c.ID, "1.0.1")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := b.VersionAsync(ctx)
	if err != nil || v != "1.0.1" {
		t.Fatalf("version = %q, %v", v, err)
	}
	if b.Version() != "1.0.1" {
		t.Fatalf("cached version not refreshed")
	}
}

func TestVersionAsyncTimeout(t *testing.T) {
	b := NewBridge(&recSender{}, true, "1.0.0")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := b.VersionAsync(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNotificationClickSubscribers(t *testing.T) {
	b := NewBridge(&recSender{}, true, "1.0.0")
	var got []string
	unsub := b.OnNotificationClick(func(tag string) { got = append(got, tag) })
	b.HandleNotificationClick("a")
	unsub()
	unsub()
	b.HandleNotificationClick("b")
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("clicks = %v", got)
	}
}
