package chat

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"DogiCord/global/config"
	"DogiCord/logger"
	"DogiCord/module/notify"
	"DogiCord/module/presence"
	"DogiCord/service/feed"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// FeedSource 用户收件流（*feed.Events）
type FeedSource interface {
	Subscribe(user string, fn func(feed.Event)) (func(), error)
}

// PresenceWatcher 在线状态观察（*presence.Observer）
type PresenceWatcher interface {
	Observe(ctx context.Context, user string, cb func(online bool)) (func(), error)
}

// MuteWriter prefs 帧里的静音开关（*service.MuteService）
type MuteWriter interface {
	MuteGroup(ctx context.Context, user, groupID string) error
	UnmuteGroup(ctx context.Context, user, groupID string) error
	MuteUser(ctx context.Context, user, target string) error
	UnmuteUser(ctx context.Context, user, target string) error
}

// MuteStore 静音读写
type MuteStore interface {
	notify.MuteSource
	MuteWriter
}

// Deps 会话依赖的外部组件
type Deps struct {
	Verify   func(token string) (string, error) // token -> username
	Presence presence.Writer
	Crumbs   presence.Breadcrumbs
	Observer PresenceWatcher
	Feed     FeedSource
	Seen     notify.LastSeenStore
	Mutes    MuteStore
	Friends  notify.FriendActions
	Flags    notify.OnceFlags
}

// Options 网关与会话参数
type Options struct {
	SendQueue       int
	ReadLimit       int64
	PongWait        time.Duration
	WriteWait       time.Duration
	FrameRate       float64
	FrameBurst      int
	AllowOrigins    []string
	HeartbeatEvery  time.Duration
	ReconnectNotice bool
	ToastTimeout    time.Duration
	DedupTTL        time.Duration
	Onboarding      notify.OnboardingOptions
}

func (o *Options) norm() {
	if o.SendQueue <= 0 {
		o.SendQueue = 256
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 << 10
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.FrameRate <= 0 {
		o.FrameRate = 20
	}
	if o.FrameBurst <= 0 {
		o.FrameBurst = 40
	}
	if o.HeartbeatEvery < 20*time.Second || o.HeartbeatEvery > 30*time.Second {
		o.HeartbeatEvery = 25 * time.Second
	}
}

func (o Options) pingEvery() time.Duration { return o.PongWait * 9 / 10 }

// OptionsFromConfig AppConfig -> Options
func OptionsFromConfig(c config.AppConfig) Options {
	return Options{
		SendQueue:       c.Gateway.SendQueue,
		ReadLimit:       c.Gateway.ReadLimit,
		PongWait:        c.Gateway.PongWait,
		WriteWait:       c.Gateway.WriteWait,
		FrameRate:       c.Gateway.FrameRate,
		FrameBurst:      c.Gateway.FrameBurst,
		AllowOrigins:    c.Gateway.AllowOrigins,
		HeartbeatEvery:  c.Presence.HeartbeatEvery,
		ReconnectNotice: c.Presence.ReconnectNotice,
		ToastTimeout:    c.Notify.ToastTimeout,
		DedupTTL:        c.Notify.DedupTTL,
		Onboarding: notify.OnboardingOptions{
			PromptDelay:    c.Notify.PermissionPromptDelay,
			WelcomeDelay:   c.Notify.WelcomeDelay,
			WelcomeEnabled: c.Notify.WelcomeEnabled,
		},
	}
}

// Server websocket 网关
type Server struct {
	opts     atomic.Pointer[Options]
	deps     Deps
	disp     *Dispatcher
	connMgr  *ConnManager
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewServer(opts Options, deps Deps, disp *Dispatcher, conn *ConnManager) *Server {
	if conn == nil {
		conn = NewConnManager("gw-local")
	}
	if disp == nil {
		disp = NewDispatcher()
	}
	s := &Server{deps: deps, disp: disp, connMgr: conn, now: time.Now}
	s.Reload(opts)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) Disp() *Dispatcher     { return s.disp }
func (s *Server) ConnMgr() *ConnManager { return s.connMgr }
func (s *Server) Options() Options      { return *s.opts.Load() }
func (s *Server) Mutes() MuteStore      { return s.deps.Mutes }

// Reload 配置热更新；只影响之后建立的会话
func (s *Server) Reload(opts Options) {
	opts.norm()
	if s.deps.Flags != nil {
		opts.Onboarding.Flags = s.deps.Flags
	}
	s.opts.Store(&opts)
}

// checkOrigin 未配置白名单时放行
func (s *Server) checkOrigin(r *http.Request) bool {
	allow := s.Options().AllowOrigins
	if len(allow) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range allow {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// Close 关闭本节点所有会话
func (s *Server) Close() {
	s.connMgr.Close()
}

// lastSessionClosed 用户在本节点的最后一个会话断开：写离线
func (s *Server) lastSessionClosed(user string) {
	if s.deps.Presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.deps.Presence.WritePresence(ctx, user, false, s.now()); err != nil {
		logger.Warn("[Gateway] offline on disconnect failed", zap.String("user", user), zap.Error(err))
	}
}

// muteSource nil 安全
func (s *Server) muteSource() notify.MuteSource {
	if s.deps.Mutes == nil {
		return nil
	}
	return s.deps.Mutes
}
