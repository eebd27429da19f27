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

type FriendService struct {
	d      *Deps
	blocks *BlockService
}

// SendRequest 自己 / 已是好友 / 已有 pending（任一方向）/ 屏蔽 都拒绝
func (s *FriendService) SendRequest(ctx context.Context, from, to string) (*model.FriendRequest, error) {
	if err := required("from", from, "to", to); err != nil {
		return nil, err
	}
	if from == to {
		return nil, errs.ErrSelfFriendRequest.Wrap()
	}
	sender, err := s.d.Users.GetUser(ctx, from)
	if err != nil {
		return nil, err
	}
	if _, err := s.d.Users.GetUser(ctx, to); err != nil {
		return nil, err
	}
	if sender.IsFriend(to) {
		return nil, errs.ErrAlreadyFriends.WrapMsg("", "user", to)
	}
	if err := s.blocks.Check(ctx, from, to); err != nil {
		return nil, err
	}
	pending, err := s.d.Friends.FindPendingBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, errs.ErrRequestPending.WrapMsg("", "id", pending.ID)
	}

	now := s.d.Clock()
	r := &model.FriendRequest{
		ID:        s.d.NewID(),
		From:      from,
		To:        to,
		Status:    model.RequestPending,
		Timestamp: now,
	}
	if err := s.d.Friends.InsertRequest(ctx, r); err != nil {
		return nil, err
	}
	s.publish(ctx, to, feed.Event{ID: r.ID, Kind: feed.KindFriendRequest, From: from, To: to, RequestID: r.ID, At: now})
	s.d.Log.Record(ctx, ConvKey(from, to), kafka.Activity{Kind: "friend_request", Actor: from, Target: to, Ref: r.ID, At: now})
	return r, nil
}

// Accept 只有接收方可以接受；重复接受结果不变
func (s *FriendService) Accept(ctx context.Context, user, requestID string) (*model.FriendRequest, error) {
	if err := required("user", user, "request_id", requestID); err != nil {
		return nil, err
	}
	r, err := s.d.Friends.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.To != user {
		return nil, errs.ErrNoPermission.WrapMsg("not the request recipient", "id", requestID)
	}
	if err := s.d.Friends.AcceptRequest(ctx, r.ID, r.From, r.To); err != nil {
		return nil, err
	}
	wasPending := r.Status == model.RequestPending
	r.Status = model.RequestAccepted
	s.invalidate(ctx, r.From, r.To)

	if wasPending {
		now := s.d.Clock()
		s.publish(ctx, r.From, feed.Event{ID: "accepted:" + r.ID, Kind: feed.KindFriendAccepted, From: r.To, To: r.From, RequestID: r.ID, At: now})
		s.d.Log.Record(ctx, ConvKey(r.From, r.To), kafka.Activity{Kind: "friend_accepted", Actor: r.To, Target: r.From, Ref: r.ID, At: now})
	}
	return r, nil
}

// Reject 接收方拒绝或发送方撤回：直接删除 pending 请求
func (s *FriendService) Reject(ctx context.Context, user, requestID string) error {
	if err := required("user", user, "request_id", requestID); err != nil {
		return err
	}
	r, err := s.d.Friends.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if r.To != user && r.From != user {
		return errs.ErrNoPermission.WrapMsg("not part of the request", "id", requestID)
	}
	if r.Status != model.RequestPending {
		return errs.ErrArgs.WrapMsg("request is not pending", "id", requestID, "status", r.Status)
	}
	if err := s.d.Friends.DeleteRequest(ctx, r.ID); err != nil {
		return err
	}
	s.d.Log.Record(ctx, ConvKey(r.From, r.To), kafka.Activity{Kind: "friend_rejected", Actor: user, Target: r.From, Ref: r.ID, At: s.d.Clock()})
	return nil
}

func (s *FriendService) Remove(ctx context.Context, user, friend string) error {
	if err := required("user", user, "friend", friend); err != nil {
		return err
	}
	u, err := s.d.Users.GetUser(ctx, user)
	if err != nil {
		return err
	}
	if !u.IsFriend(friend) {
		return errs.ErrNotFriends.WrapMsg("", "user", friend)
	}
	if err := s.d.Friends.RemoveFriendship(ctx, user, friend); err != nil {
		return err
	}
	s.invalidate(ctx, user, friend)
	s.d.Log.Record(ctx, ConvKey(user, friend), kafka.Activity{Kind: "friend_removed", Actor: user, Target: friend, At: s.d.Clock()})
	return nil
}

// List 优先读缓存
func (s *FriendService) List(ctx context.Context, user string) ([]string, error) {
	if err := required("user", user); err != nil {
		return nil, err
	}
	if friends, ok, err := s.d.Cache.GetFriends(ctx, user); err == nil && ok {
		return friends, nil
	} else if err != nil {
		logger.Warn("[Friends] cache read failed", zap.String("user", user), zap.Error(err))
	}
	u, err := s.d.Users.GetUser(ctx, user)
	if err != nil {
		return nil, err
	}
	friends := u.Friends
	if friends == nil {
		friends = []string{}
	}
	if err := s.d.Cache.SetFriends(ctx, user, friends); err != nil {
		logger.Warn("[Friends] cache write failed", zap.String("user", user), zap.Error(err))
	}
	return friends, nil
}

func (s *FriendService) Pending(ctx context.Context, user string) ([]model.FriendRequest, error) {
	if err := required("user", user); err != nil {
		return nil, err
	}
	return s.d.Friends.PendingFor(ctx, user)
}

func (s *FriendService) invalidate(ctx context.Context, users ...string) {
	if err := s.d.Cache.InvalidateFriends(ctx, users...); err != nil {
		logger.Warn("[Friends] cache invalidate failed", zap.Strings("users", users), zap.Error(err))
	}
}

func (s *FriendService) publish(ctx context.Context, user string, ev feed.Event) {
	if err := s.d.Feed.Publish(ctx, user, ev); err != nil {
		logger.Warn("[Friends] publish failed", zap.String("user", user), zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}
