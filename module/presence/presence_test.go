package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"DogiCord/module/chat/model"
	"DogiCord/service/feed"
	"DogiCord/service/storage"
	"DogiCord/tools/errs"
)

type write struct {
	user   string
	online bool
	at     time.Time
}

type recWriter struct {
	mu     sync.Mutex
	writes []write
	err    error
}

func (w *recWriter) WritePresence(_ context.Context, user string, online bool, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, write{user, online, at})
	return w.err
}

func (w *recWriter) all() []write {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]write(nil), w.writes...)
}

func (w *recWriter) last(t *testing.T) write {
	t.Helper()
	ws := w.all()
	if len(ws) == 0 {
		t.Fatalf("no writes")
	}
	return ws[len(ws)-1]
}

type memCrumbs struct {
	mu    sync.Mutex
	m     map[string]time.Time
	order *[]string
}

func (c *memCrumbs) PutBreadcrumb(_ context.Context, user string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[user] = at
	if c.order != nil {
		*c.order = append(*c.order, "breadcrumb")
	}
	return nil
}

func (c *memCrumbs) TakeBreadcrumb(_ context.Context, user string) (time.Time, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.m[user]
	delete(c.m, user)
	return at, ok, nil
}

func TestIsOnlineStalenessBoundary(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	th := 2 * time.Minute
	cases := []struct {
		name string
		rec  Record
		want bool
	}{
		{"fresh", Record{Online: true, LastSeen: now.Add(-time.Minute)}, true},
		{"just inside", Record{Online: true, LastSeen: now.Add(-th + time.Millisecond)}, true},
		{"exactly at threshold", Record{Online: true, LastSeen: now.Add(-th)}, false},
		{"just past", Record{Online: true, LastSeen: now.Add(-th - time.Millisecond)}, false},
		{"offline flag", Record{Online: false, LastSeen: now}, false},
		{"stale dominates flag", Record{Online: true, LastSeen: now.Add(-time.Hour)}, false},
	}
	for _, c := range cases {
		if got := IsOnline(c.rec, now, th); got != c.want {
			t.Errorf("%s: IsOnline = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestTrackerLastWriteFollowsVisibility(t *testing.T) {
	seqs := [][]bool{
		{false},
		{true, false},
		{false, true},
		{false, false, true, true, false},
		{true, false, true, false, true},
	}
	for _, seq := range seqs {
		w := &recWriter{}
		tr := NewTracker("alice", w, nil, 25*time.Second)
		ctx := context.Background()
		for _, v := range seq {
			tr.OnVisibility(ctx, v)
			tr.Heartbeat(ctx)
		}
		if got := w.last(t).online; got != seq[len(seq)-1] {
			t.Errorf("seq %v: last write %v", seq, got)
		}
	}
}

func TestTrackerHeartbeatOnlyWhenVisible(t *testing.T) {
	w := &recWriter{}
	tr := NewTracker("alice", w, nil, time.Hour)
	if tr.every != defaultHeartbeat {
		t.Fatalf("heartbeat interval not clamped: %v", tr.every)
	}
	ctx := context.Background()
	tr.OnVisibility(ctx, false)
	n := len(w.all())
	tr.Heartbeat(ctx)
	if len(w.all()) != n {
		t.Fatalf("heartbeat wrote while hidden")
	}
	tr.OnVisibility(ctx, true)
	tr.Heartbeat(ctx)
	if last := w.last(t); !last.online {
		t.Fatalf("heartbeat should assert online")
	}
}

func TestTrackerNetwork(t *testing.T) {
	w := &recWriter{}
	tr := NewTracker("alice", w, nil, 25*time.Second)
	ctx := context.Background()

	if tr.OnNetwork(ctx, false) {
		t.Fatalf("going offline is not a reconnect")
	}
	if w.last(t).online {
		t.Fatalf("offline event must force false")
	}
	tr.Heartbeat(ctx)
	if w.last(t).online {
		t.Fatalf("heartbeat must not write online while network is down")
	}
	if !tr.OnNetwork(ctx, true) {
		t.Fatalf("expected reconnected")
	}
	if !w.last(t).online {
		t.Fatalf("online event while visible must force true")
	}

	tr.OnVisibility(ctx, false)
	tr.OnNetwork(ctx, false)
	n := len(w.all())
	if tr.OnNetwork(ctx, true) {
		t.Fatalf("hidden reconnect should not surface a notice")
	}
	if len(w.all()) != n {
		t.Fatalf("online event while hidden must not write")
	}
}

func TestTrackerUnloadWritesBreadcrumbFirst(t *testing.T) {
	var order []string
	crumbs := &memCrumbs{m: map[string]time.Time{}, order: &order}
	w := &orderWriter{order: &order}
	tr := NewTracker("alice", w, crumbs, 25*time.Second)

	tr.OnUnload(context.Background())
	if len(order) != 2 || order[0] != "breadcrumb" || order[1] != "offline" {
		t.Fatalf("order = %v", order)
	}
	if _, ok := crumbs.m["alice"]; !ok {
		t.Fatalf("breadcrumb missing")
	}
}

type orderWriter struct {
	order *[]string
}

func (w *orderWriter) WritePresence(_ context.Context, _ string, online bool, _ time.Time) error {
	if online {
		*w.order = append(*w.order, "online")
	} else {
		*w.order = append(*w.order, "offline")
	}
	return nil
}

func TestTrackerStartReconcilesBreadcrumb(t *testing.T) {
	crumbs := &memCrumbs{m: map[string]time.Time{"alice": time.Now().Add(-time.Minute)}}
	w := &recWriter{}
	tr := NewTracker("alice", w, crumbs, 25*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr.Start(ctx)
	tr.Start(ctx)
	if _, ok := crumbs.m["alice"]; ok {
		t.Fatalf("breadcrumb not cleared")
	}
	ws := w.all()
	if len(ws) != 1 || !ws[0].online {
		t.Fatalf("start should re-assert online once: %+v", ws)
	}
	tr.Stop()
	tr.Stop()
	tr.Wait()
}

func TestTrackerSwallowsWriteErrors(t *testing.T) {
	w := &recWriter{err: errors.New("mongo down")}
	tr := NewTracker("alice", w, nil, 25*time.Second)
	tr.SetPresence(context.Background(), true)
	if len(w.all()) != 1 {
		t.Fatalf("write not attempted")
	}
}

// ---- observer ----

type fakeSource struct {
	mu   sync.Mutex
	rec  Record
	subs map[int]func(Record)
	next int
}

func newFakeSource(rec Record) *fakeSource {
	return &fakeSource{rec: rec, subs: map[int]func(Record){}}
}

func (s *fakeSource) Lookup(context.Context, string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, nil
}

func (s *fakeSource) Subscribe(_ string, fn func(Record)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

func (s *fakeSource) push(rec Record) {
	s.mu.Lock()
	s.rec = rec
	fns := make([]func(Record), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(rec)
	}
}

func (s *fakeSource) subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func collect(ch chan bool) func(bool) {
	return func(v bool) { ch <- v }
}

func expect(t *testing.T, ch chan bool, want bool) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("callback = %v, want %v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %v", want)
	}
}

func expectNone(t *testing.T, ch chan bool, wait time.Duration) {
	t.Helper()
	select {
	case got := <-ch:
		t.Fatalf("unexpected callback %v", got)
	case <-time.After(wait):
	}
}

func TestObserverDeliversChangesOnly(t *testing.T) {
	now := time.Now()
	src := newFakeSource(Record{Username: "bob", Online: false, LastSeen: now})
	o := NewObserver(src, time.Minute)
	ch := make(chan bool, 10)

	unsub, err := o.Observe(context.Background(), "bob", collect(ch))
	if err != nil {
		t.Fatal(err)
	}
	expect(t, ch, false)

	src.push(Record{Username: "bob", Online: true, LastSeen: now.Add(time.Second)})
	expect(t, ch, true)
	src.push(Record{Username: "bob", Online: true, LastSeen: now.Add(2 * time.Second)})
	expectNone(t, ch, 30*time.Millisecond)

	// 更旧的记录被忽略
	src.push(Record{Username: "bob", Online: false, LastSeen: now.Add(-time.Second)})
	expectNone(t, ch, 30*time.Millisecond)

	unsub()
	unsub()
	if src.subscribers() != 0 {
		t.Fatalf("subscription leaked")
	}
	src.push(Record{Username: "bob", Online: false, LastSeen: now.Add(3 * time.Second)})
	expectNone(t, ch, 30*time.Millisecond)
}

func TestObserverFlipsOfflineWhenStale(t *testing.T) {
	th := 150 * time.Millisecond
	src := newFakeSource(Record{Username: "bob", Online: true, LastSeen: time.Now().Add(-50 * time.Millisecond)})
	o := NewObserver(src, th)
	ch := make(chan bool, 10)

	unsub, err := o.Observe(context.Background(), "bob", collect(ch))
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()
	expect(t, ch, true)
	// 没有新事件，靠定时器过期
	expect(t, ch, false)
}

func TestObserverUnsubscribeStopsTimer(t *testing.T) {
	src := newFakeSource(Record{Username: "bob", Online: true, LastSeen: time.Now()})
	o := NewObserver(src, 80*time.Millisecond)
	ch := make(chan bool, 10)

	unsub, _ := o.Observe(context.Background(), "bob", collect(ch))
	expect(t, ch, true)
	unsub()
	expectNone(t, ch, 200*time.Millisecond)
}

func TestObserverUnsubscribeFromCallback(t *testing.T) {
	src := newFakeSource(Record{Username: "bob", Online: true, LastSeen: time.Now()})
	o := NewObserver(src, time.Minute)
	done := make(chan struct{})
	var unsub func()
	var mu sync.Mutex
	mu.Lock()
	var err error
	unsub, err = o.Observe(context.Background(), "bob", func(online bool) {
		if !online {
			mu.Lock()
			u := unsub
			mu.Unlock()
			u()
			close(done)
		}
	})
	mu.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	src.push(Record{Username: "bob", Online: false, LastSeen: time.Now()})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("callback deadlocked")
	}
}

// ---- sweeper ----

type fakeIndex struct {
	stale []string
	snaps map[string]storage.PresenceSnapshot
}

func (f *fakeIndex) StaleOnline(context.Context, time.Time, int64) ([]string, error) {
	return f.stale, nil
}

func (f *fakeIndex) Get(_ context.Context, user string) (storage.PresenceSnapshot, bool, error) {
	s, ok := f.snaps[user]
	return s, ok, nil
}

func TestSweeperMarksStaleOffline(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	old := now.Add(-5 * time.Minute)
	idx := &fakeIndex{
		stale: []string{"alice", "bob", "carol"},
		snaps: map[string]storage.PresenceSnapshot{
			"alice": {Online: true, LastSeen: old},
			"bob":   {Online: true, LastSeen: now.Add(-time.Second)}, // 刚刚心跳
		},
	}
	w := &recWriter{}
	s := NewSweeper(idx, w, 2*time.Minute, time.Minute)
	s.now = func() time.Time { return now }

	n, err := s.SweepOnce(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("swept %d, %v", n, err)
	}
	ws := w.all()
	if ws[0].user != "alice" || ws[0].online || !ws[0].at.Equal(old) {
		t.Fatalf("alice write = %+v", ws[0])
	}
	if ws[1].user != "carol" || !ws[1].at.Equal(now.Add(-2*time.Minute)) {
		t.Fatalf("carol write = %+v", ws[1])
	}
	s.Stop()
	s.Stop()
}

// ---- directory ----

type memUsers struct {
	mu    sync.Mutex
	users map[string]*model.UserRecord
}

func (m *memUsers) GetUser(_ context.Context, name string) (*model.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[name]
	if !ok {
		return nil, errs.ErrRecordNotFound.Wrap()
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdatePresence(_ context.Context, name string, online bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[name]; ok {
		u.Online, u.LastSeen = online, at
	}
	return nil
}

type memHot struct {
	mu sync.Mutex
	m  map[string]storage.PresenceSnapshot
}

func (h *memHot) Put(_ context.Context, user string, online bool, at time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.m[user] = storage.PresenceSnapshot{Online: online, LastSeen: at}
	return nil
}

func (h *memHot) Get(_ context.Context, user string) (storage.PresenceSnapshot, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.m[user]
	return s, ok, nil
}

func TestDirectoryWriteLookupAndObserve(t *testing.T) {
	users := &memUsers{users: map[string]*model.UserRecord{"bob": {Username: "bob"}}}
	hot := &memHot{m: map[string]storage.PresenceSnapshot{}}
	bus := feed.NewLocalBus()
	d := NewDirectory(users, hot, bus, "test")
	ctx := context.Background()

	rec, err := d.Lookup(ctx, "bob")
	if err != nil || rec.Online {
		t.Fatalf("cold lookup = %+v, %v", rec, err)
	}

	o := NewObserver(d, time.Minute)
	ch := make(chan bool, 10)
	unsub, err := o.Observe(ctx, "bob", collect(ch))
	if err != nil {
		t.Fatal(err)
	}
	expect(t, ch, false)

	if err := d.WritePresence(ctx, "bob", true, time.Now()); err != nil {
		t.Fatal(err)
	}
	expect(t, ch, true)
	if u, _ := users.GetUser(ctx, "bob"); !u.Online {
		t.Fatalf("durable store not updated")
	}
	if rec, _ := d.Lookup(ctx, "bob"); !rec.Online {
		t.Fatalf("hot lookup = %+v", rec)
	}

	unsub()
	if n := bus.Subscribers(d.Subject("bob")); n != 0 {
		t.Fatalf("subscribers after unsubscribe = %d", n)
	}
}
