package service

import (
	"context"

	"DogiCord/logger"
	"DogiCord/module/chat/model"
	"DogiCord/service/feed"
	"DogiCord/service/kafka"
	"DogiCord/tools/errs"

	"go.uber.org/zap"
)

type MessageService struct {
	d      *Deps
	blocks *BlockService
}

type SendMessage struct {
	From     string
	To       string
	Text     string
	ImageKey string
	ReplyTo  *model.ReplyTo
}

// Send 屏蔽检查在任何写入之前；只能给好友发
func (s *MessageService) Send(ctx context.Context, in SendMessage) (*model.Message, error) {
	if err := required("from", in.From, "to", in.To); err != nil {
		return nil, err
	}
	if in.From == in.To {
		return nil, errs.ErrArgs.WrapMsg("cannot message yourself")
	}
	if err := checkBody(in.Text, in.ImageKey, in.From); err != nil {
		return nil, err
	}
	if err := s.blocks.Check(ctx, in.From, in.To); err != nil {
		return nil, err
	}
	sender, err := s.d.Users.GetUser(ctx, in.From)
	if err != nil {
		return nil, err
	}
	if !sender.IsFriend(in.To) {
		return nil, errs.ErrNotFriends.WrapMsg("", "user", in.To)
	}

	now := s.d.Clock()
	m := &model.Message{
		ID:           s.d.NewID(),
		From:         in.From,
		To:           in.To,
		Text:         in.Text,
		ImageKey:     in.ImageKey,
		Timestamp:    now,
		Participants: []string{in.From, in.To},
		ReplyTo:      in.ReplyTo,
	}
	if in.ImageKey != "" && s.d.Objects != nil {
		if u, err := s.d.Objects.URL(ctx, in.ImageKey); err == nil {
			m.ImageURL = u
		} else {
			logger.Warn("[Messages] presign failed", zap.String("key", in.ImageKey), zap.Error(err))
		}
	}
	if err := s.d.Messages.InsertMessage(ctx, m); err != nil {
		return nil, err
	}

	// 双方都推：发送者的其它会话也要看到（路由层按作者跳过提醒）
	s.d.Feed.PublishMany(ctx, []string{in.To, in.From}, feed.Event{
		ID:       m.ID,
		Kind:     feed.KindMessage,
		From:     m.From,
		To:       m.To,
		Text:     m.Text,
		HasImage: m.ImageKey != "",
		At:       now,
	})
	s.d.Log.Record(ctx, ConvKey(m.From, m.To), kafka.Activity{Kind: "message_sent", Actor: m.From, Target: m.To, Ref: m.ID, At: now})
	return m, nil
}

// MarkRead 把 peer 发给 reader 的消息全部置为已读
func (s *MessageService) MarkRead(ctx context.Context, reader, peer string) (int64, error) {
	if err := required("reader", reader, "peer", peer); err != nil {
		return 0, err
	}
	return s.d.Messages.MarkRead(ctx, reader, peer)
}

// Delete 只有作者能删
func (s *MessageService) Delete(ctx context.Context, user, id string) error {
	if err := required("user", user, "id", id); err != nil {
		return err
	}
	m, err := s.d.Messages.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if m.From != user {
		return errs.ErrNoPermission.WrapMsg("not the author", "id", id)
	}
	if err := s.d.Messages.DeleteMessage(ctx, id); err != nil {
		return err
	}
	if m.ImageKey != "" && s.d.Objects != nil {
		if err := s.d.Objects.Remove(ctx, m.ImageKey); err != nil {
			logger.Warn("[Messages] remove image failed", zap.String("key", m.ImageKey), zap.Error(err))
		}
	}
	s.d.Log.Record(ctx, ConvKey(m.From, m.To), kafka.Activity{Kind: "message_deleted", Actor: user, Target: m.To, Ref: id, At: s.d.Clock()})
	return nil
}

func (s *MessageService) Conversation(ctx context.Context, user, peer string, limit int64) ([]model.Message, error) {
	if err := required("user", user, "peer", peer); err != nil {
		return nil, err
	}
	return s.d.Messages.Conversation(ctx, user, peer, pageSize(limit))
}
