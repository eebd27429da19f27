package notify

import (
	"context"

	"DogiCord/module/shell"
)

type BackendKind string

const (
	NativeDesktop BackendKind = "native_desktop"
	BrowserPush   BackendKind = "browser_push"
	None          BackendKind = "none"
)

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// Capabilities 客户端 hello 帧上报的运行环境
type Capabilities struct {
	DesktopBridge        bool       `json:"desktop_bridge" mapstructure:"desktop_bridge"`
	Permission           Permission `json:"permission" mapstructure:"permission"`
	NotificationsEnabled bool       `json:"notifications_enabled" mapstructure:"notifications_enabled"`
	ServiceWorker        bool       `json:"service_worker" mapstructure:"service_worker"`
}

// SelectBackend 纯函数：桌面壳优先；否则已授权且用户开启 -> 浏览器通知；否则 None
func SelectBackend(c Capabilities) BackendKind {
	switch {
	case c.DesktopBridge:
		return NativeDesktop
	case c.Permission == PermissionGranted && c.NotificationsEnabled:
		return BrowserPush
	default:
		return None
	}
}

// Notification 平台级通知
type Notification struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
	Route string `json:"route,omitempty"`
}

// Backend 平台通知投递；每个会话选一次，不跨 backend 重试
type Backend interface {
	Kind() BackendKind
	Deliver(ctx context.Context, n Notification) error
}

// FrameSender 会话出站帧
type FrameSender interface {
	Send(typ string, data any) error
}

const FrameBrowserNotification = "browser_notification"

// NewBackend 按选择结果构造
func NewBackend(kind BackendKind, bridge *shell.Bridge, send FrameSender, caps Capabilities) Backend {
	switch kind {
	case NativeDesktop:
		return desktopBackend{bridge: bridge}
	case BrowserPush:
		return browserBackend{send: send, serviceWorker: caps.ServiceWorker}
	default:
		return noneBackend{}
	}
}

type desktopBackend struct {
	bridge *shell.Bridge
}

func (desktopBackend) Kind() BackendKind { return NativeDesktop }

// Deliver tag 即通知 id，点击时原样带回
func (b desktopBackend) Deliver(_ context.Context, n Notification) error {
	return b.bridge.SendNotification(shell.NativeNotification{ID: n.ID, Title: n.Title, Body: n.Body, Tag: n.ID})
}

type browserBackend struct {
	send          FrameSender
	serviceWorker bool
}

func (browserBackend) Kind() BackendKind { return BrowserPush }

type browserNotification struct {
	Notification
	ServiceWorker bool `json:"service_worker"`
}

func (b browserBackend) Deliver(_ context.Context, n Notification) error {
	return b.send.Send(FrameBrowserNotification, browserNotification{Notification: n, ServiceWorker: b.serviceWorker})
}

type noneBackend struct{}

func (noneBackend) Kind() BackendKind                          { return None }
func (noneBackend) Deliver(context.Context, Notification) error { return nil }
