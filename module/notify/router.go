package notify

import (
	"context"
	"strings"
	"sync"
	"time"

	"DogiCord/logger"
	"DogiCord/module/chat/model"
	"DogiCord/service/feed"
	"DogiCord/service/natsx"
	"DogiCord/tools/errs"

	"go.uber.org/zap"
)

type Decision int

const (
	Delivered Decision = iota
	SkipDuplicate
	SkipSelf
	SkipMuted
	SkipActive
	SkipConsumed
	SkipUnknown
)

func (d Decision) String() string {
	switch d {
	case Delivered:
		return "delivered"
	case SkipDuplicate:
		return "duplicate"
	case SkipSelf:
		return "self"
	case SkipMuted:
		return "muted"
	case SkipActive:
		return "active"
	case SkipConsumed:
		return "consumed"
	}
	return "unknown"
}

// View 会话当前路由与可见性
type View interface {
	Route() string
	Visible() bool
}

// MuteSource 静音偏好（*service.MuteService）
type MuteSource interface {
	Get(ctx context.Context, user string) (model.MutePreference, error)
}

// LastSeenStore 每个客户端最近一条已提醒消息（*storage.LastNotifiedStore）；owner 见 Router.owner
type LastSeenStore interface {
	LastSeen(ctx context.Context, owner, conv string) (string, error)
	MarkSeen(ctx context.Context, owner, conv, msgID string) error
}

// FriendActions 好友请求 toast 上的按钮（*service.FriendService）
type FriendActions interface {
	Accept(ctx context.Context, user, requestID string) (*model.FriendRequest, error)
	Reject(ctx context.Context, user, requestID string) error
}

// Navigator 点击通知后的窗口恢复与跳转（*shell.Bridge）
type Navigator interface {
	RestoreWindow() error
	Navigate(route string) error
}

type RouterOptions struct {
	User string
	// Client 客户端标识（hello 里的 client_id，缺省为会话 id）；同一用户的多个客户端各记各的已提醒
	Client   string
	Idem     natsx.IdemStore
	DedupTTL time.Duration
	Seen     LastSeenStore
	Mutes    MuteSource
	View     View
	Backend  Backend
	Toasts   *Toasts
	Friends  FriendActions
	Nav      Navigator
}

// Router 每个会话一个：决定收件流里的事件是否提醒、怎么提醒
type Router struct {
	o RouterOptions

	mu      sync.Mutex
	pending map[string]string // 通知 id -> 路由
	latest  string
}

func NewRouter(o RouterOptions) *Router {
	if o.Backend == nil {
		o.Backend = noneBackend{}
	}
	if o.DedupTTL <= 0 {
		o.DedupTTL = 10 * time.Minute
	}
	return &Router{o: o, pending: make(map[string]string)}
}

// owner 已提醒表的归属：user 或 user#client
func (r *Router) owner() string {
	if r.o.Client == "" {
		return r.o.User
	}
	return r.o.User + "#" + r.o.Client
}

// Route 事件对应的会话路由
func Route(user string, ev feed.Event) string {
	switch ev.Kind {
	case feed.KindMessage:
		peer := ev.From
		if peer == user {
			peer = ev.To
		}
		return "/chat/" + peer
	case feed.KindGroupMessage:
		return "/group/" + ev.GroupID
	case feed.KindFriendRequest:
		return "/friends"
	case feed.KindFriendAccepted:
		return "/chat/" + ev.From
	}
	return ""
}

// ConvID group_last_notif 的 key
func ConvID(user string, ev feed.Event) string {
	switch ev.Kind {
	case feed.KindGroupMessage:
		return "group:" + ev.GroupID
	case feed.KindFriendRequest, feed.KindFriendAccepted:
		return "friends"
	}
	return "chat:" + strings.TrimPrefix(Route(user, ev), "/chat/")
}

// Handle 去重 -> 自己 -> 静音 -> 正在看 -> 已消费 -> 投递
func (r *Router) Handle(ctx context.Context, ev feed.Event) Decision {
	route := Route(r.o.User, ev)
	if route == "" {
		return SkipUnknown
	}
	if r.o.Idem != nil {
		seen, err := r.o.Idem.SeenOnce(string(ev.Kind)+":"+ev.ID, r.o.DedupTTL)
		if err != nil {
			logger.Warn("[Router] dedup failed", zap.String("id", ev.ID), zap.Error(err))
		} else if seen {
			return SkipDuplicate
		}
	}
	conv := ConvID(r.o.User, ev)

	if ev.From == r.o.User {
		r.markSeen(ctx, conv, ev.ID)
		return SkipSelf
	}
	if r.muted(ctx, ev) {
		r.markSeen(ctx, conv, ev.ID)
		return SkipMuted
	}
	if r.o.View != nil && r.o.View.Visible() && r.o.View.Route() == route {
		r.markSeen(ctx, conv, ev.ID)
		return SkipActive
	}
	if r.o.Seen != nil {
		last, err := r.o.Seen.LastSeen(ctx, r.owner(), conv)
		if err != nil {
			logger.Warn("[Router] read last seen failed", zap.String("conv", conv), zap.Error(err))
		} else if last == ev.ID {
			return SkipConsumed
		}
	}

	t := buildToast(ev, route)
	r.o.Toasts.Enqueue(t)
	if r.o.Backend.Kind() != None {
		n := Notification{ID: ev.ID, Title: t.Title, Body: t.Body, Tag: conv, Route: route}
		if err := r.o.Backend.Deliver(ctx, n); err != nil {
			logger.Warn("[Router] platform notification failed",
				zap.String("backend", string(r.o.Backend.Kind())), zap.String("id", ev.ID), zap.Error(err))
		}
	}
	r.markSeen(ctx, conv, ev.ID)

	r.mu.Lock()
	r.pending[ev.ID] = route
	r.latest = route
	r.mu.Unlock()
	return Delivered
}

func (r *Router) muted(ctx context.Context, ev feed.Event) bool {
	if r.o.Mutes == nil {
		return false
	}
	if ev.Kind != feed.KindMessage && ev.Kind != feed.KindGroupMessage {
		return false
	}
	pref, err := r.o.Mutes.Get(ctx, r.o.User)
	if err != nil {
		logger.Warn("[Router] read mutes failed", zap.String("user", r.o.User), zap.Error(err))
		return false
	}
	if ev.Kind == feed.KindGroupMessage && pref.GroupMuted(ev.GroupID) {
		return true
	}
	return pref.UserMuted(ev.From)
}

func (r *Router) markSeen(ctx context.Context, conv, id string) {
	if r.o.Seen == nil {
		return
	}
	if err := r.o.Seen.MarkSeen(ctx, r.owner(), conv, id); err != nil {
		logger.Warn("[Router] mark seen failed", zap.String("conv", conv), zap.Error(err))
	}
}

// Click 平台通知被点击：取出对应路由（id 为空时用最近一次），恢复窗口并跳转。
// 已点过或未知的 id 不跳转
func (r *Router) Click(ctx context.Context, notificationID string) (string, bool) {
	r.mu.Lock()
	var route string
	if notificationID == "" {
		route = r.latest
	} else if rt, ok := r.pending[notificationID]; ok {
		route = rt
		delete(r.pending, notificationID)
	}
	r.mu.Unlock()
	if route == "" {
		return "", false
	}
	if r.o.Nav != nil {
		if err := r.o.Nav.RestoreWindow(); err != nil {
			logger.Warn("[Router] restore window failed", zap.Error(err))
		}
		if err := r.o.Nav.Navigate(route); err != nil {
			logger.Warn("[Router] navigate failed", zap.String("route", route), zap.Error(err))
		}
	}
	return route, true
}

// ToastClick 应用内 toast 被点击：关闭并跳转
func (r *Router) ToastClick(ctx context.Context, toastID string) (string, bool) {
	t, ok := r.o.Toasts.Click(toastID)
	if !ok || t.Route == "" {
		return "", false
	}
	r.mu.Lock()
	delete(r.pending, toastID)
	r.mu.Unlock()
	if r.o.Nav != nil {
		if err := r.o.Nav.Navigate(t.Route); err != nil {
			logger.Warn("[Router] navigate failed", zap.String("route", t.Route), zap.Error(err))
		}
	}
	return t.Route, true
}

// Act 好友请求 toast 上的 accept / reject；无论后端结果如何 toast 都会关闭
func (r *Router) Act(ctx context.Context, toastID, action string) error {
	if action != ActionAccept && action != ActionReject {
		return errs.ErrArgs.WrapMsg("unknown toast action", "action", action)
	}
	t, ok := r.o.Toasts.Act(toastID)
	if !ok {
		return errs.ErrRecordNotFound.WrapMsg("toast not actionable", "id", toastID)
	}
	if r.o.Friends == nil || t.RequestID == "" {
		return nil
	}
	var err error
	if action == ActionAccept {
		_, err = r.o.Friends.Accept(ctx, r.o.User, t.RequestID)
	} else {
		err = r.o.Friends.Reject(ctx, r.o.User, t.RequestID)
	}
	if err != nil {
		logger.Warn("[Router] friend request action failed",
			zap.String("action", action), zap.String("request", t.RequestID), zap.Error(err))
	}
	return err
}

func buildToast(ev feed.Event, route string) Toast {
	t := Toast{ID: ev.ID, Kind: string(ev.Kind), Route: route}
	switch ev.Kind {
	case feed.KindMessage:
		t.Title = ev.From
		t.Body = preview(ev)
	case feed.KindGroupMessage:
		t.Title = ev.GroupName
		if t.Title == "" {
			t.Title = "Group"
		}
		t.Body = ev.From + ": " + preview(ev)
	case feed.KindFriendRequest:
		t.Title = "Friend request"
		t.Body = ev.From + " wants to be your friend"
		t.RequestID = ev.RequestID
		t.Actions = []string{ActionAccept, ActionReject}
	case feed.KindFriendAccepted:
		t.Title = ev.From
		t.Body = "accepted your friend request"
	}
	return t
}

const previewLen = 120

func preview(ev feed.Event) string {
	if ev.Text == "" && ev.HasImage {
		return "sent an image"
	}
	r := []rune(ev.Text)
	if len(r) > previewLen {
		return string(r[:previewLen]) + "..."
	}
	return ev.Text
}
