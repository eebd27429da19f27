package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"DogiCord/module/chat/model"
	"DogiCord/module/notify"
	"DogiCord/service/chat"
	"DogiCord/service/feed"
	"DogiCord/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type write struct {
	user   string
	online bool
}

type recWriter struct {
	mu     sync.Mutex
	writes []write
}

func (w *recWriter) WritePresence(_ context.Context, user string, online bool, _ time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, write{user, online})
	return nil
}

func (w *recWriter) last() (write, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.writes) == 0 {
		return write{}, false
	}
	return w.writes[len(w.writes)-1], true
}

type fakeWatcher struct {
	mu      sync.Mutex
	active  map[string]int
	removed int
}

func (w *fakeWatcher) Observe(_ context.Context, user string, cb func(bool)) (func(), error) {
	w.mu.Lock()
	w.active[user]++
	w.mu.Unlock()
	cb(true)
	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			w.active[user]--
			w.removed++
			w.mu.Unlock()
		})
	}, nil
}

func (w *fakeWatcher) removedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removed
}

type fakeMutes struct {
	mu   sync.Mutex
	pref model.MutePreference
}

func (m *fakeMutes) Get(context.Context, string) (model.MutePreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pref
	p.MutedGroups = append([]string(nil), m.pref.MutedGroups...)
	p.MutedUsers = append([]string(nil), m.pref.MutedUsers...)
	return p, nil
}

func (m *fakeMutes) MuteGroup(_ context.Context, _, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pref.MutedGroups = append(m.pref.MutedGroups, id)
	return nil
}

func (m *fakeMutes) UnmuteGroup(context.Context, string, string) error { return nil }

func (m *fakeMutes) MuteUser(_ context.Context, _, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pref.MutedUsers = append(m.pref.MutedUsers, id)
	return nil
}

func (m *fakeMutes) UnmuteUser(context.Context, string, string) error { return nil }

type fakeFriends struct {
	mu       sync.Mutex
	accepted []string
}

func (f *fakeFriends) Accept(_ context.Context, _ string, id string) (*model.FriendRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepted = append(f.accepted, id)
	return &model.FriendRequest{ID: id, Status: model.RequestAccepted}, nil
}

func (f *fakeFriends) Reject(context.Context, string, string) error { return nil }

type rig struct {
	t       *testing.T
	ts      *httptest.Server
	events  *feed.Events
	writer  *recWriter
	watcher *fakeWatcher
	mutes   *fakeMutes
	friends *fakeFriends
}

func newRig(t *testing.T, tweak func(*chat.Options)) *rig {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := &rig{
		t:       t,
		events:  feed.NewEvents(feed.NewLocalBus(), "test"),
		writer:  &recWriter{},
		watcher: &fakeWatcher{active: map[string]int{}},
		mutes:   &fakeMutes{},
		friends: &fakeFriends{},
	}
	opts := chat.Options{
		ReconnectNotice: true,
		ToastTimeout:    time.Minute,
		Onboarding:      notify.OnboardingOptions{PromptDelay: time.Hour, WelcomeDelay: time.Hour},
	}
	if tweak != nil {
		tweak(&opts)
	}
	deps := chat.Deps{
		Verify: func(token string) (string, error) {
			if token == "bad" {
				return "", errors.New("bad token")
			}
			return token, nil
		},
		Presence: r.writer,
		Observer: r.watcher,
		Feed:     r.events,
		Mutes:    r.mutes,
		Friends:  r.friends,
	}
	d := chat.NewDispatcher()
	Register(d)
	srv := chat.NewServer(opts, deps, d, chat.NewConnManager("gw-test"))
	e := gin.New()
	e.GET("/ws", srv.HandleWS)
	r.ts = httptest.NewServer(e)
	t.Cleanup(func() {
		srv.Close()
		r.ts.Close()
	})
	return r
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func (r *rig) dial(user string) *client {
	r.t.Helper()
	url := "ws" + strings.TrimPrefix(r.ts.URL, "http") + "/ws?token=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		r.t.Fatalf("dial: %v", err)
	}
	r.t.Cleanup(func() { _ = conn.Close() })
	return &client{t: r.t, conn: conn}
}

func (c *client) send(typ, id string, data any) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		c.t.Fatal(err)
	}
	if err := c.conn.WriteJSON(chat.Frame{Type: typ, ID: id, Data: raw}); err != nil {
		c.t.Fatalf("write %s: %v", typ, err)
	}
}

// next 读到指定类型的帧为止，跳过其他帧
func (c *client) next(typ string) chat.Frame {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f chat.Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			c.t.Fatalf("waiting for %s: %v", typ, err)
		}
		if f.Type == typ {
			return f
		}
	}
}

func (c *client) hello(caps notify.Capabilities, route string) chat.HelloAck {
	c.t.Helper()
	c.send(chat.FrameHello, "h1", map[string]any{"caps": caps, "visible": true, "route": route, "version": "1.0.0"})
	f := c.next(chat.FrameHelloAck)
	var a chat.HelloAck
	if err := json.Unmarshal(f.Data, &a); err != nil {
		c.t.Fatal(err)
	}
	return a
}

func decodeAs[T any](t *testing.T, f chat.Frame) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(f.Data, &v); err != nil {
		t.Fatalf("decode %s: %v", f.Type, err)
	}
	return v
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var webCaps = notify.Capabilities{Permission: notify.PermissionGranted, NotificationsEnabled: true}

func TestRejectsBadToken(t *testing.T) {
	r := newRig(t, nil)
	url := "ws" + strings.TrimPrefix(r.ts.URL, "http") + "/ws?token=bad"
	_, res, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if res == nil || res.StatusCode != 401 {
		t.Fatalf("expected 401, got %+v", res)
	}
}

func TestHelloRequiredFirst(t *testing.T) {
	r := newRig(t, nil)
	c := r.dial("alice")
	c.send(chat.FrameHeartbeat, "x1", nil)
	e := decodeAs[chat.ErrorPayload](t, c.next(chat.FrameError))
	if e.Code != errs.ArgsError || e.Ref != "x1" {
		t.Fatalf("unexpected error frame %+v", e)
	}
}

func TestHelloSelectsBackendAndGoesOnline(t *testing.T) {
	r := newRig(t, nil)
	c := r.dial("alice")
	a := c.hello(webCaps, "/friends")
	if a.Backend != notify.BrowserPush || a.User != "alice" || a.SessionID == "" {
		t.Fatalf("unexpected ack %+v", a)
	}
	w, ok := r.writer.last()
	if !ok || !w.online || w.user != "alice" {
		t.Fatalf("expected online write, got %+v", w)
	}

	c.send(chat.FrameHello, "h2", map[string]any{"caps": webCaps})
	if e := decodeAs[chat.ErrorPayload](t, c.next(chat.FrameError)); e.Ref != "h2" {
		t.Fatalf("second hello should fail, got %+v", e)
	}
}

func TestFeedEventBecomesToastAndNotification(t *testing.T) {
	r := newRig(t, nil)
	c := r.dial("alice")
	c.hello(webCaps, "/friends")

	ctx := context.Background()
	_ = r.events.Publish(ctx, "alice", feed.Event{ID: "m1", Kind: feed.KindMessage, From: "bob", To: "alice", Text: "hi", At: time.Now()})

	toast := decodeAs[notify.Toast](t, c.next(chat.FrameToast))
	if toast.ID != "m1" || toast.Route != "/chat/bob" || toast.Body != "hi" {
		t.Fatalf("unexpected toast %+v", toast)
	}
	n := decodeAs[notify.Notification](t, c.next(notify.FrameBrowserNotification))
	if n.ID != "m1" || n.Route != "/chat/bob" {
		t.Fatalf("unexpected notification %+v", n)
	}

	// 正在看 bob 的会话时不再提醒；carol 的消息照常
	c.send(chat.FrameRoute, "r1", map[string]string{"route": "/chat/bob"})
	c.next(chat.FrameAck)
	_ = r.events.Publish(ctx, "alice", feed.Event{ID: "m2", Kind: feed.KindMessage, From: "bob", To: "alice", Text: "again"})
	_ = r.events.Publish(ctx, "alice", feed.Event{ID: "m3", Kind: feed.KindMessage, From: "carol", To: "alice", Text: "yo"})
	if got := decodeAs[notify.Toast](t, c.next(chat.FrameToast)); got.ID != "m3" {
		t.Fatalf("expected carol's toast, got %+v", got)
	}

	c.send(chat.FrameNotificationClick, "", map[string]string{"id": "m3"})
	nav := c.next("navigate")
	if !strings.Contains(string(nav.Data), "/chat/carol") {
		t.Fatalf("unexpected navigate %s", nav.Data)
	}
}

func TestPrefsMuteSuppressesToasts(t *testing.T) {
	r := newRig(t, nil)
	c := r.dial("alice")
	c.hello(webCaps, "/")
	c.send(chat.FramePrefs, "p1", map[string]string{"mute_user": "bob"})
	c.next(chat.FrameAck)

	ctx := context.Background()
	_ = r.events.Publish(ctx, "alice", feed.Event{ID: "m1", Kind: feed.KindMessage, From: "bob", To: "alice", Text: "hi"})
	_ = r.events.Publish(ctx, "alice", feed.Event{ID: "m2", Kind: feed.KindMessage, From: "dave", To: "alice", Text: "hey"})
	if got := decodeAs[notify.Toast](t, c.next(chat.FrameToast)); got.ID != "m2" {
		t.Fatalf("muted author should be skipped, got %+v", got)
	}
}

func TestToastActionAcceptsFriendRequest(t *testing.T) {
	r := newRig(t, nil)
	c := r.dial("alice")
	c.hello(webCaps, "/")
	_ = r.events.Publish(context.Background(), "alice",
		feed.Event{ID: "fr1", Kind: feed.KindFriendRequest, From: "bob", To: "alice", RequestID: "req-1"})

	toast := decodeAs[notify.Toast](t, c.next(chat.FrameToast))
	if len(toast.Actions) != 2 || toast.TimeoutMs != 0 {
		t.Fatalf("friend request toast should carry actions and no timeout: %+v", toast)
	}
	c.send(chat.FrameToastAction, "a1", map[string]string{"id": toast.ID, "action": notify.ActionAccept})
	d := decodeAs[chat.DismissPayload](t, c.next(chat.FrameToastDismiss))
	if d.ID != toast.ID || d.Reason != "action" {
		t.Fatalf("unexpected dismiss %+v", d)
	}
	c.next(chat.FrameAck)
	r.friends.mu.Lock()
	defer r.friends.mu.Unlock()
	if len(r.friends.accepted) != 1 || r.friends.accepted[0] != "req-1" {
		t.Fatalf("accept not forwarded: %v", r.friends.accepted)
	}
}

func TestNetworkReconnectedToast(t *testing.T) {
	r := newRig(t, nil)
	c := r.dial("alice")
	c.hello(webCaps, "/")

	c.send(chat.FrameNetwork, "n1", map[string]bool{"online": false})
	c.next(chat.FrameAck)
	if w, _ := r.writer.last(); w.online {
		t.Fatalf("network down should write offline")
	}
	c.send(chat.FrameNetwork, "n2", map[string]bool{"online": true})
	toast := decodeAs[notify.Toast](t, c.next(chat.FrameToast))
	if toast.Kind != "reconnected" {
		t.Fatalf("expected reconnected toast, got %+v", toast)
	}
	if w, _ := r.writer.last(); !w.online {
		t.Fatalf("network up while visible should write online")
	}
}

func TestWatchPresenceAndReleaseOnClose(t *testing.T) {
	r := newRig(t, nil)
	c := r.dial("alice")
	c.hello(webCaps, "/")
	c.send(chat.FrameWatchPresence, "w1", map[string]string{"username": "bob"})
	p := decodeAs[chat.PresencePayload](t, c.next(chat.FramePresence))
	if p.Username != "bob" || !p.Online {
		t.Fatalf("unexpected presence %+v", p)
	}
	c.next(chat.FrameAck)

	_ = c.conn.Close()
	eventually(t, "watch released", func() bool { return r.watcher.removedCount() == 1 })
	eventually(t, "offline on disconnect", func() bool {
		w, ok := r.writer.last()
		return ok && !w.online
	})
}

func TestUnloadWritesOffline(t *testing.T) {
	r := newRig(t, nil)
	c := r.dial("alice")
	c.hello(webCaps, "/")
	c.send(chat.FrameUnload, "u1", nil)
	c.next(chat.FrameAck)
	if w, _ := r.writer.last(); w.online {
		t.Fatalf("unload should write offline")
	}
}

func TestInboundRateLimit(t *testing.T) {
	r := newRig(t, func(o *chat.Options) {
		o.FrameRate = 0.001
		o.FrameBurst = 1
	})
	c := r.dial("alice")
	c.hello(webCaps, "/")
	c.send(chat.FrameHeartbeat, "hb", nil)
	e := decodeAs[chat.ErrorPayload](t, c.next(chat.FrameError))
	if e.Code != errs.RateLimitError || e.Ref != "hb" {
		t.Fatalf("expected rate limit error, got %+v", e)
	}
}

func TestDesktopUpdateFlow(t *testing.T) {
	r := newRig(t, nil)
	c := r.dial("alice")
	a := c.hello(notify.Capabilities{DesktopBridge: true}, "/")
	if a.Backend != notify.NativeDesktop || !a.Desktop {
		t.Fatalf("unexpected ack %+v", a)
	}

	c.send(chat.FrameInstallUpdate, "i1", nil)
	if e := decodeAs[chat.ErrorPayload](t, c.next(chat.FrameError)); e.Code != errs.UpdateNotReadyError {
		t.Fatalf("install before download should fail, got %+v", e)
	}

	c.send(chat.FrameShellUpdateEvent, "", map[string]any{"type": "downloaded", "info": map[string]string{"version": "1.1.0"}})
	st := decodeAs[map[string]any](t, c.next("update_state"))
	if st["phase"] != "downloaded" {
		t.Fatalf("unexpected state %v", st)
	}

	c.send(chat.FrameInstallUpdate, "i2", nil)
	cmd := c.next("shell_command")
	if !strings.Contains(string(cmd.Data), "install_update") {
		t.Fatalf("unexpected command %s", cmd.Data)
	}
	c.next(chat.FrameAck)
}

func TestWebSessionCannotInstall(t *testing.T) {
	r := newRig(t, nil)
	c := r.dial("alice")
	c.hello(webCaps, "/")
	c.send(chat.FrameCheckForUpdates, "c1", nil)
	if e := decodeAs[chat.ErrorPayload](t, c.next(chat.FrameError)); e.Ref != "c1" || e.Code != errs.ArgsError {
		t.Fatalf("expected no-desktop error, got %+v", e)
	}
}
