package handlers

import (
	"DogiCord/service/chat"
)

// Register 挂上全部入站帧处理器
func Register(d *chat.Dispatcher) {
	d.Register(
		HelloHandler{},
		HeartbeatHandler{},
		VisibilityHandler{},
		NetworkHandler{},
		UnloadHandler{},
		RouteHandler{},
		WatchHandler{},
		UnwatchHandler{},
		NotificationClickHandler{},
		ToastClickHandler{},
		ToastActionHandler{},
		PrefsHandler{},
		UpdateEventHandler{},
		VersionHandler{},
		CheckUpdatesHandler{},
		InstallUpdateHandler{},
	)
}

// ack 客户端带了 id 才回执
func ack(s *chat.Session, f chat.Frame) error {
	if f.ID == "" {
		return nil
	}
	return s.Reply(f, chat.FrameAck, chat.BuildAck(f))
}
