package service

import (
	"context"
	"strings"

	"DogiCord/module/chat/model"
	"DogiCord/service/kafka"
	"DogiCord/tools/errs"
)

type UserService struct {
	d *Deps
}

// Register 用户名唯一（_id），重复返回 ErrUsernameTaken
func (s *UserService) Register(ctx context.Context, username, display string) (*model.UserRecord, error) {
	username = strings.TrimSpace(username)
	if !usernameRe.MatchString(username) {
		return nil, errs.ErrArgs.WrapMsg("invalid username", "username", username)
	}
	display = strings.TrimSpace(display)
	if display == "" {
		display = username
	}
	now := s.d.Clock()
	u := &model.UserRecord{
		Username:  username,
		Display:   display,
		Friends:   []string{},
		LastSeen:  now,
		CreatedAt: now,
	}
	if err := s.d.Users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.d.Log.Record(ctx, username, kafka.Activity{Kind: "user_registered", Actor: username, At: now})
	return u, nil
}

func (s *UserService) Get(ctx context.Context, username string) (*model.UserRecord, error) {
	if err := required("username", username); err != nil {
		return nil, err
	}
	return s.d.Users.GetUser(ctx, username)
}
