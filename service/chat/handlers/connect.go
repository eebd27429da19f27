package handlers

import (
	"context"
	"time"

	"DogiCord/logger"
	"DogiCord/service/chat"

	"go.uber.org/zap"
)

const versionWait = 5 * time.Second

// HelloHandler 会话首帧：上报能力、可见性、当前路由、壳版本
type HelloHandler struct{}

func (HelloHandler) Type() string { return chat.FrameHello }

func (HelloHandler) Handle(s *chat.Session, f chat.Frame) error {
	h, err := chat.DecodeData[chat.Hello](f)
	if err != nil {
		return err
	}
	a, err := s.Start(*h)
	if err != nil {
		return err
	}
	if err := s.Reply(f, chat.FrameHelloAck, a); err != nil {
		return err
	}
	// 桌面壳没在 hello 里带版本时异步问一次
	if a.Desktop && h.Version == "" {
		b := s.Bridge()
		go func() {
			ctx, cancel := context.WithTimeout(s.Ctx(), versionWait)
			defer cancel()
			v, err := b.VersionAsync(ctx)
			if err != nil {
				logger.Debug("[Hello] shell version unavailable", zap.String("session", s.ID), zap.Error(err))
				return
			}
			logger.Info("[Hello] shell version", zap.String("session", s.ID), zap.String("version", v))
		}()
	}
	return nil
}
