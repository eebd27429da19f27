package handlers

import (
	"DogiCord/logger"
	"DogiCord/service/chat"
	"DogiCord/tools/errs"

	"go.uber.org/zap"
)

// HeartbeatHandler 客户端心跳：可见时重新声明在线
type HeartbeatHandler struct{}

func (HeartbeatHandler) Type() string { return chat.FrameHeartbeat }

func (HeartbeatHandler) Handle(s *chat.Session, f chat.Frame) error {
	s.Tracker().Heartbeat(s.Ctx())
	return ack(s, f)
}

type visibilityData struct {
	Visible bool `json:"visible"`
}

type VisibilityHandler struct{}

func (VisibilityHandler) Type() string { return chat.FrameVisibility }

func (VisibilityHandler) Handle(s *chat.Session, f chat.Frame) error {
	d, err := chat.DecodeData[visibilityData](f)
	if err != nil {
		return err
	}
	s.Tracker().OnVisibility(s.Ctx(), d.Visible)
	return ack(s, f)
}

type networkData struct {
	Online bool `json:"online"`
}

// NetworkHandler 浏览器 online/offline 事件；恢复时可能弹出 reconnected toast
type NetworkHandler struct{}

func (NetworkHandler) Type() string { return chat.FrameNetwork }

func (NetworkHandler) Handle(s *chat.Session, f chat.Frame) error {
	d, err := chat.DecodeData[networkData](f)
	if err != nil {
		return err
	}
	if s.Tracker().OnNetwork(s.Ctx(), d.Online) {
		s.NotifyReconnected()
	}
	if err := s.Bridge().ReportConnectivity(d.Online); err != nil {
		logger.Warn("[Network] report connectivity failed", zap.String("session", s.ID), zap.Error(err))
	}
	return ack(s, f)
}

// UnloadHandler 页面卸载：breadcrumb + 离线
type UnloadHandler struct{}

func (UnloadHandler) Type() string { return chat.FrameUnload }

func (UnloadHandler) Handle(s *chat.Session, f chat.Frame) error {
	s.Tracker().OnUnload(s.Ctx())
	return ack(s, f)
}

type routeData struct {
	Route string `json:"route"`
}

type RouteHandler struct{}

func (RouteHandler) Type() string { return chat.FrameRoute }

func (RouteHandler) Handle(s *chat.Session, f chat.Frame) error {
	d, err := chat.DecodeData[routeData](f)
	if err != nil {
		return err
	}
	s.SetRoute(d.Route)
	return ack(s, f)
}

type watchData struct {
	Username  string   `json:"username"`
	Usernames []string `json:"usernames"`
}

func (d watchData) all() []string {
	out := make([]string, 0, len(d.Usernames)+1)
	if d.Username != "" {
		out = append(out, d.Username)
	}
	for _, u := range d.Usernames {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// WatchHandler 订阅若干用户的在线状态，变化推 presence 帧
type WatchHandler struct{}

func (WatchHandler) Type() string { return chat.FrameWatchPresence }

func (WatchHandler) Handle(s *chat.Session, f chat.Frame) error {
	d, err := chat.DecodeData[watchData](f)
	if err != nil {
		return err
	}
	users := d.all()
	if len(users) == 0 {
		return errs.ErrArgs.WrapMsg("username is required")
	}
	for _, u := range users {
		if err := s.Watch(u); err != nil {
			return err
		}
	}
	return ack(s, f)
}

type UnwatchHandler struct{}

func (UnwatchHandler) Type() string { return chat.FrameUnwatchPresence }

func (UnwatchHandler) Handle(s *chat.Session, f chat.Frame) error {
	d, err := chat.DecodeData[watchData](f)
	if err != nil {
		return err
	}
	for _, u := range d.all() {
		s.Unwatch(u)
	}
	return ack(s, f)
}
