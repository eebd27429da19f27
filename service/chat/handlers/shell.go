package handlers

import (
	"DogiCord/module/shell"
	"DogiCord/service/chat"
)

// UpdateEventHandler 桌面壳 autoUpdater 事件
type UpdateEventHandler struct{}

func (UpdateEventHandler) Type() string { return chat.FrameShellUpdateEvent }

func (UpdateEventHandler) Handle(s *chat.Session, f chat.Frame) error {
	ev, err := chat.DecodeData[shell.UpdateEvent](f)
	if err != nil {
		return err
	}
	s.Bridge().HandleUpdateEvent(*ev)
	return nil
}

type versionData struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// VersionHandler get_version 的回包；帧 id 或 data.id 对应请求
type VersionHandler struct{}

func (VersionHandler) Type() string { return chat.FrameShellVersion }

func (VersionHandler) Handle(s *chat.Session, f chat.Frame) error {
	d, err := chat.DecodeData[versionData](f)
	if err != nil {
		return err
	}
	id := d.ID
	if id == "" {
		id = f.ID
	}
	s.Bridge().HandleVersion(id, d.Version)
	return nil
}

type CheckUpdatesHandler struct{}

func (CheckUpdatesHandler) Type() string { return chat.FrameCheckForUpdates }

func (CheckUpdatesHandler) Handle(s *chat.Session, f chat.Frame) error {
	if err := s.Bridge().CheckForUpdates(); err != nil {
		return err
	}
	return ack(s, f)
}

// InstallUpdateHandler 只有 Downloaded 状态下才会下发安装命令
type InstallUpdateHandler struct{}

func (InstallUpdateHandler) Type() string { return chat.FrameInstallUpdate }

func (InstallUpdateHandler) Handle(s *chat.Session, f chat.Frame) error {
	if err := s.Bridge().InstallUpdate(); err != nil {
		return err
	}
	return ack(s, f)
}
