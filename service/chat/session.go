package chat

import (
	"context"
	"sync"
	"time"

	"DogiCord/logger"
	"DogiCord/module/notify"
	"DogiCord/module/presence"
	"DogiCord/module/shell"
	"DogiCord/service/feed"
	"DogiCord/service/natsx"
	"DogiCord/tools/errs"
	"DogiCord/tools/ids"
	"DogiCord/tools/scope"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrSessionClosed  = errs.NewCodeError(errs.ServerInternalError, "session closed")
	ErrSendQueueFull  = errs.NewCodeError(errs.RateLimitError, "send queue full")
	errHelloDuplicate = errs.NewCodeError(errs.ArgsError, "hello already received")
)

// Hello 会话首帧
type Hello struct {
	Caps     notify.Capabilities `json:"caps"`
	Visible  *bool               `json:"visible"`
	Route    string              `json:"route"`
	Version  string              `json:"version"`
	ClientID string              `json:"client_id"` // 客户端本地持久标识；已提醒记录按它区分
}

// HelloAck hello 的回执
type HelloAck struct {
	SessionID   string             `json:"session_id"`
	User        string             `json:"user"`
	Backend     notify.BackendKind `json:"backend"`
	HeartbeatMs int64              `json:"heartbeat_ms"`
	Desktop     bool               `json:"desktop"`
}

// Session 一条已鉴权的 websocket 连接；hello 之后挂上 tracker / router / toasts / bridge。
// 所有订阅与定时器都登记在 scope 里，Close 时统一释放。
type Session struct {
	ID     string
	User   string
	Remote string

	srv     *Server
	opts    Options
	conn    *websocket.Conn
	send    chan []byte
	scope   *scope.Scope
	limiter *rate.Limiter
	ctx     context.Context
	cancel  context.CancelFunc

	mu         sync.Mutex
	ready      bool
	route      string
	caps       notify.Capabilities
	watches    map[string]func()
	tracker    *presence.Tracker
	router     *notify.Router
	toasts     *notify.Toasts
	bridge     *shell.Bridge
	backend    notify.Backend
	onboarding *notify.Onboarding

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(srv *Server, conn *websocket.Conn, user string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	opts := srv.Options()
	s := &Session{
		ID:      ids.GenerateString(),
		User:    user,
		srv:     srv,
		opts:    opts,
		conn:    conn,
		send:    make(chan []byte, opts.SendQueue),
		limiter: rate.NewLimiter(rate.Limit(opts.FrameRate), opts.FrameBurst),
		ctx:     ctx,
		cancel:  cancel,
		watches: make(map[string]func()),
		done:    make(chan struct{}),
	}
	if conn != nil {
		s.Remote = conn.RemoteAddr().String()
	}
	s.scope = scope.New("session:" + s.ID)
	s.scope.Add(s.unwatchAll)
	return s
}

func (s *Session) Ctx() context.Context  { return s.ctx }
func (s *Session) Server() *Server       { return s.srv }
func (s *Session) Scope() *scope.Scope   { return s.scope }
func (s *Session) Done() <-chan struct{} { return s.done }
func (s *Session) Allow() bool           { return s.limiter.Allow() }

func (s *Session) Capabilities() notify.Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Start 处理 hello：选定通知 backend，挂上各组件并开始心跳与订阅。
// 先订阅收件流，失败时会话保持未就绪，客户端可以重发 hello
func (s *Session) Start(h Hello) (HelloAck, error) {
	opts := s.opts
	deps := s.srv.deps
	if s.Ready() {
		return HelloAck{}, errHelloDuplicate.Wrap()
	}
	visible := true
	if h.Visible != nil {
		visible = *h.Visible
	}
	client := h.ClientID
	if client == "" {
		client = s.ID
	}

	bridge := shell.NewBridge(s, h.Caps.DesktopBridge, h.Version)
	toasts := notify.NewToasts(s, opts.ToastTimeout)
	kind := notify.SelectBackend(h.Caps)
	backend := notify.NewBackend(kind, bridge, s, h.Caps)
	idem := natsx.NewMemIdem(opts.DedupTTL)
	router := notify.NewRouter(notify.RouterOptions{
		User:     s.User,
		Client:   client,
		Idem:     idem,
		DedupTTL: opts.DedupTTL,
		Seen:     deps.Seen,
		Mutes:    s.srv.muteSource(),
		View:     s,
		Backend:  backend,
		Toasts:   toasts,
		Friends:  deps.Friends,
		Nav:      bridge,
	})

	var unsubFeed func()
	if deps.Feed != nil {
		unsub, err := deps.Feed.Subscribe(s.User, func(ev feed.Event) {
			d := router.Handle(s.ctx, ev)
			logger.Debug("[Session] feed event",
				zap.String("session", s.ID), zap.String("id", ev.ID), zap.String("decision", d.String()))
		})
		if err != nil {
			toasts.Close()
			idem.Close()
			return HelloAck{}, errs.WrapMsg(err, "subscribe feed", "user", s.User)
		}
		unsubFeed = unsub
	}

	writer := deps.Presence
	if writer == nil {
		writer = nopWriter{}
	}
	tracker := presence.NewTracker(s.User, writer, deps.Crumbs, opts.HeartbeatEvery)
	tracker.SetInitialVisibility(visible)
	onboarding := notify.NewOnboarding(opts.Onboarding)

	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		if unsubFeed != nil {
			unsubFeed()
		}
		toasts.Close()
		idem.Close()
		onboarding.Close()
		return HelloAck{}, errHelloDuplicate.Wrap()
	}
	s.caps = h.Caps
	s.route = h.Route
	s.bridge = bridge
	s.toasts = toasts
	s.backend = backend
	s.router = router
	s.tracker = tracker
	s.onboarding = onboarding
	s.ready = true
	s.mu.Unlock()

	s.scope.Add(toasts.Close)
	s.scope.Add(idem.Close)
	s.scope.Add(bridge.OnNotificationClick(func(tag string) {
		router.Click(s.ctx, tag)
	}))
	s.scope.Add(tracker.Stop)
	s.scope.Add(onboarding.Close)
	if unsubFeed != nil {
		s.scope.Add(unsubFeed)
	}

	tracker.Start(s.ctx)
	onboarding.Schedule(s.ctx, s.User, h.Caps, backend, s)

	logger.Info("[Session] ready",
		zap.String("session", s.ID), zap.String("user", s.User), zap.String("client", client),
		zap.String("backend", string(kind)), zap.Bool("visible", visible))
	return HelloAck{
		SessionID:   s.ID,
		User:        s.User,
		Backend:     kind,
		HeartbeatMs: opts.HeartbeatEvery.Milliseconds(),
		Desktop:     h.Caps.DesktopBridge,
	}, nil
}

func (s *Session) Tracker() *presence.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker
}

func (s *Session) Router() *notify.Router {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.router
}

func (s *Session) Bridge() *shell.Bridge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bridge
}

func (s *Session) Backend() notify.Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend
}

// ---- notify.View ----

func (s *Session) Route() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

func (s *Session) SetRoute(route string) {
	s.mu.Lock()
	s.route = route
	s.mu.Unlock()
}

func (s *Session) Visible() bool {
	t := s.Tracker()
	return t != nil && t.Visible()
}

// ---- notify.ToastSink ----

func (s *Session) ShowToast(t notify.Toast) {
	if err := s.Send(FrameToast, t); err != nil {
		logger.Warn("[Session] show toast failed", zap.String("session", s.ID), zap.Error(err))
	}
}

func (s *Session) DismissToast(id string, reason notify.ToastState) {
	if err := s.Send(FrameToastDismiss, DismissPayload{ID: id, Reason: reason.String()}); err != nil {
		logger.Warn("[Session] dismiss toast failed", zap.String("session", s.ID), zap.Error(err))
	}
}

// NotifyReconnected 网络恢复后的提示 toast
func (s *Session) NotifyReconnected() bool {
	if !s.opts.ReconnectNotice {
		return false
	}
	s.mu.Lock()
	toasts := s.toasts
	s.mu.Unlock()
	if toasts == nil {
		return false
	}
	return toasts.Enqueue(notify.Toast{
		ID:    "reconnected:" + uuid.NewString(),
		Kind:  "reconnected",
		Title: "Back online",
		Body:  "Connection restored",
	})
}

// ---- 在线状态观察 ----

// Watch 订阅某用户在线状态变化，变化以 presence 帧推给客户端；重复订阅忽略
func (s *Session) Watch(user string) error {
	obs := s.srv.deps.Observer
	if obs == nil {
		return errs.ErrArgs.WrapMsg("presence observer not configured")
	}
	s.mu.Lock()
	_, exists := s.watches[user]
	s.mu.Unlock()
	if exists {
		return nil
	}
	unsub, err := obs.Observe(s.ctx, user, func(online bool) {
		if err := s.Send(FramePresence, PresencePayload{Username: user, Online: online}); err != nil {
			logger.Debug("[Session] presence frame dropped", zap.String("session", s.ID), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	if _, exists := s.watches[user]; exists || s.scope.Closed() {
		s.mu.Unlock()
		unsub()
		return nil
	}
	s.watches[user] = unsub
	s.mu.Unlock()
	return nil
}

func (s *Session) Unwatch(user string) {
	s.mu.Lock()
	unsub, ok := s.watches[user]
	delete(s.watches, user)
	s.mu.Unlock()
	if ok {
		unsub()
	}
}

func (s *Session) Watching() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

func (s *Session) unwatchAll() {
	s.mu.Lock()
	ws := s.watches
	s.watches = make(map[string]func())
	s.mu.Unlock()
	for _, unsub := range ws {
		unsub()
	}
}

// ---- 出站 ----

// Send 编码后放进发送队列；队列满时丢弃并返回 ErrSendQueueFull
func (s *Session) Send(typ string, data any) error {
	return s.SendFrame(typ, "", data)
}

func (s *Session) SendFrame(typ, id string, data any) error {
	b, err := EncodeFrame(typ, id, data)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrSessionClosed.Wrap()
	default:
	}
	select {
	case s.send <- b:
		return nil
	case <-s.done:
		return ErrSessionClosed.Wrap()
	default:
		return ErrSendQueueFull.WrapMsg("", "session", s.ID, "type", typ)
	}
}

// Reply 带上请求帧 id 的回执
func (s *Session) Reply(f Frame, typ string, data any) error {
	return s.SendFrame(typ, f.ID, data)
}

func (s *Session) SendError(ref string, err error) {
	if e := s.SendFrame(FrameError, ref, BuildError(ref, err)); e != nil {
		logger.Debug("[Session] error frame dropped", zap.String("session", s.ID), zap.Error(e))
	}
}

// Close 释放 scope 里的全部资源并通知写协程收尾（写完剩余帧后关闭底层连接）；幂等
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.scope.Close()
		close(s.done)
		s.cancel()
	})
}

type nopWriter struct{}

func (nopWriter) WritePresence(context.Context, string, bool, time.Time) error { return nil }
