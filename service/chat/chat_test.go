package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"DogiCord/service/feed"
	"DogiCord/tools/errs"
)

func testServer(opts Options, conf ManagerConf) *Server {
	return NewServer(opts, Deps{}, NewDispatcher(), NewConnManagerWithConf(conf, "gw-test"))
}

func TestParseFrameJSON(t *testing.T) {
	f, err := ParseFrameJSON([]byte(`{"type":"route","id":"r1","data":{"route":"/chat/bob"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if f.Type != FrameRoute || f.ID != "r1" {
		t.Fatalf("unexpected frame %+v", f)
	}
	type routeData struct {
		Route string `json:"route"`
	}
	d, err := DecodeData[routeData](f)
	if err != nil || d.Route != "/chat/bob" {
		t.Fatalf("decode: %+v %v", d, err)
	}

	for _, raw := range []string{`nope`, `{"id":"x"}`} {
		if _, err := ParseFrameJSON([]byte(raw)); !errors.Is(err, errs.ErrArgs) {
			t.Errorf("%s: expected ArgsError, got %v", raw, err)
		}
	}
}

func TestDecodeDataRejectsNonObject(t *testing.T) {
	type v struct {
		Visible bool `json:"visible"`
	}
	if _, err := DecodeData[v](Frame{Type: FrameVisibility, Data: json.RawMessage(`[1,2]`)}); !errors.Is(err, errs.ErrArgs) {
		t.Fatalf("expected ArgsError, got %v", err)
	}
	out, err := DecodeData[v](Frame{Type: FrameVisibility})
	if err != nil || out.Visible {
		t.Fatalf("empty data should decode to zero value: %+v %v", out, err)
	}
}

func TestEncodeFrameAndError(t *testing.T) {
	b, err := EncodeFrame(FrameError, "x1", BuildError("x1", errs.ErrBlocked.WrapMsg("send")))
	if err != nil {
		t.Fatal(err)
	}
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		t.Fatal(err)
	}
	var p ErrorPayload
	if err := json.Unmarshal(f.Data, &p); err != nil {
		t.Fatal(err)
	}
	if f.Type != FrameError || p.Code != errs.BlockedError || p.Ref != "x1" || p.Detail != "send" {
		t.Fatalf("unexpected %+v %+v", f, p)
	}
}

func TestDispatcherRequiresHello(t *testing.T) {
	srv := testServer(Options{}, ManagerConf{})
	called := 0
	srv.Disp().Register(HandlerFunc{T: FrameHeartbeat, Fn: func(*Session, Frame) error { called++; return nil }})
	s := newSession(srv, nil, "alice")
	defer s.Close()

	if err := srv.Disp().Dispatch(s, Frame{Type: FrameHeartbeat}); !errors.Is(err, errs.ErrArgs) {
		t.Fatalf("expected hello-required error, got %v", err)
	}
	if called != 0 {
		t.Fatalf("handler ran before hello")
	}
	if _, err := s.Start(Hello{}); err != nil {
		t.Fatal(err)
	}
	if err := srv.Disp().Dispatch(s, Frame{Type: FrameHeartbeat}); err != nil || called != 1 {
		t.Fatalf("dispatch after hello: called=%d err=%v", called, err)
	}
	if err := srv.Disp().Dispatch(s, Frame{Type: "bogus"}); !errors.Is(err, errs.ErrArgs) {
		t.Fatalf("unknown type should fail, got %v", err)
	}
}

func TestSessionSendQueueFullAndClosed(t *testing.T) {
	srv := testServer(Options{SendQueue: 1}, ManagerConf{})
	s := newSession(srv, nil, "alice")
	if err := s.Send(FramePresence, PresencePayload{Username: "bob"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Send(FramePresence, PresencePayload{Username: "bob"}); !errors.Is(err, ErrSendQueueFull) {
		t.Fatalf("expected queue full, got %v", err)
	}
	s.Close()
	s.Close()
	if err := s.Send(FramePresence, nil); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected closed, got %v", err)
	}
}

func TestSessionStartWiresComponents(t *testing.T) {
	srv := testServer(Options{}, ManagerConf{})
	s := newSession(srv, nil, "alice")
	hidden := false
	a, err := s.Start(Hello{Route: "/friends", Visible: &hidden})
	if err != nil {
		t.Fatal(err)
	}
	if a.Backend != "none" || a.HeartbeatMs != 25000 {
		t.Fatalf("unexpected ack %+v", a)
	}
	if s.Visible() || s.Route() != "/friends" {
		t.Fatalf("view not initialised: visible=%v route=%q", s.Visible(), s.Route())
	}
	if s.Tracker() == nil || s.Router() == nil || s.Bridge() == nil {
		t.Fatalf("components missing")
	}
	if _, err := s.Start(Hello{}); err == nil {
		t.Fatalf("second start should fail")
	}
	s.Close()
	if !s.Scope().Closed() {
		t.Fatalf("scope should be closed")
	}
}

func TestConnManagerEvictsOldest(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { now = now.Add(time.Second); return now }
	srv := testServer(Options{}, ManagerConf{MaxPerUser: 2, EvictOldest: true, Clock: clock})
	m := srv.ConnMgr()

	a, b, c := newSession(srv, nil, "alice"), newSession(srv, nil, "alice"), newSession(srv, nil, "alice")
	for _, s := range []*Session{a, b} {
		if ev, err := m.Add(s); err != nil || ev != nil {
			t.Fatalf("add: %v %v", ev, err)
		}
	}
	ev, err := m.Add(c)
	if err != nil || ev != a {
		t.Fatalf("expected oldest evicted, got %v %v", ev, err)
	}
	if m.Count("alice") != 2 || len(m.Sessions("alice")) != 2 {
		t.Fatalf("count = %d", m.Count("alice"))
	}
	if got, ok := m.Get(c.ID); !ok || got != c {
		t.Fatalf("get newest session")
	}
	if _, ok := m.Remove(a); ok {
		t.Fatalf("evicted session should not be removable")
	}
	if rem, ok := m.Remove(b); !ok || rem != 1 {
		t.Fatalf("remove b: %d %v", rem, ok)
	}
	if rem, ok := m.Remove(c); !ok || rem != 0 {
		t.Fatalf("remove c: %d %v", rem, ok)
	}
	if m.Len() != 0 {
		t.Fatalf("len = %d", m.Len())
	}
}

func TestConnManagerRejectsWithoutEviction(t *testing.T) {
	srv := testServer(Options{}, ManagerConf{MaxPerUser: 1})
	m := srv.ConnMgr()
	if _, err := m.Add(newSession(srv, nil, "alice")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Add(newSession(srv, nil, "alice")); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("expected too many sessions, got %v", err)
	}
	if _, err := m.Add(newSession(srv, nil, "bob")); err != nil {
		t.Fatalf("other users unaffected: %v", err)
	}
}

func TestCheckOrigin(t *testing.T) {
	srv := testServer(Options{AllowOrigins: []string{"https://dogicord.app"}}, ManagerConf{})
	req := func(origin string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "http://x/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	if !srv.checkOrigin(req("https://dogicord.app")) || !srv.checkOrigin(req("")) {
		t.Fatalf("allowed origin rejected")
	}
	if srv.checkOrigin(req("https://evil.example")) {
		t.Fatalf("foreign origin accepted")
	}
}

func TestReloadAffectsNewSessionsOnly(t *testing.T) {
	srv := testServer(Options{SendQueue: 4}, ManagerConf{})
	old := newSession(srv, nil, "alice")
	srv.Reload(Options{SendQueue: 1, HeartbeatEvery: 40 * time.Second})
	if srv.Options().HeartbeatEvery != 25*time.Second {
		t.Fatalf("heartbeat not clamped: %v", srv.Options().HeartbeatEvery)
	}
	fresh := newSession(srv, nil, "alice")
	if cap(old.send) != 4 || cap(fresh.send) != 1 {
		t.Fatalf("queue caps old=%d fresh=%d", cap(old.send), cap(fresh.send))
	}
}

type flakyFeed struct {
	fails int
	subs  int
}

func (f *flakyFeed) Subscribe(string, func(feed.Event)) (func(), error) {
	if f.fails > 0 {
		f.fails--
		return nil, errs.New("nats unavailable")
	}
	f.subs++
	return func() { f.subs-- }, nil
}

func TestHelloRetryAfterFeedSubscribeFails(t *testing.T) {
	ff := &flakyFeed{fails: 1}
	srv := NewServer(Options{}, Deps{Feed: ff}, NewDispatcher(), NewConnManager("gw-test"))
	s := newSession(srv, nil, "alice")

	if _, err := s.Start(Hello{ClientID: "web-1"}); err == nil {
		t.Fatalf("expected subscribe error")
	}
	if s.Ready() || s.Tracker() != nil || s.Router() != nil {
		t.Fatalf("failed hello left session half started")
	}
	if _, err := s.Start(Hello{ClientID: "web-1"}); err != nil {
		t.Fatalf("retried hello: %v", err)
	}
	if !s.Ready() || ff.subs != 1 {
		t.Fatalf("ready=%v subs=%d", s.Ready(), ff.subs)
	}
	s.Close()
	if ff.subs != 0 {
		t.Fatalf("feed subscription not released: %d", ff.subs)
	}
}
