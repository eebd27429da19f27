package service

import (
	"context"
	"strings"

	"DogiCord/logger"
	"DogiCord/module/chat/model"
	"DogiCord/service/feed"
	"DogiCord/service/kafka"
	"DogiCord/tools/errs"

	"go.uber.org/zap"
)

type GroupService struct {
	d *Deps
}

type SendGroupMessage struct {
	From     string
	GroupID  string
	Text     string
	ImageKey string
	ReplyTo  *model.ReplyTo
}

// Create 创建者即 admin，且一定在成员里
func (s *GroupService) Create(ctx context.Context, admin, name string, members []string) (*model.GroupRecord, error) {
	name = strings.TrimSpace(name)
	if err := required("admin", admin, "name", name); err != nil {
		return nil, err
	}
	seen := map[string]struct{}{admin: {}}
	miembros := []string{admin}
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		if _, err := s.d.Users.GetUser(ctx, m); err != nil {
			return nil, err
		}
		seen[m] = struct{}{}
		miembros = append(miembros, m)
	}
	now := s.d.Clock()
	g := &model.GroupRecord{
		ID:        s.d.NewID(),
		Name:      name,
		Admin:     admin,
		Miembros:  miembros,
		Timestamp: now,
	}
	if err := s.d.Groups.InsertGroup(ctx, g); err != nil {
		return nil, err
	}
	s.d.Log.Record(ctx, g.ID, kafka.Activity{Kind: "group_created", Actor: admin, Ref: g.ID, Payload: miembros, At: now})
	return g, nil
}

func (s *GroupService) List(ctx context.Context, user string) ([]model.GroupRecord, error) {
	if err := required("user", user); err != nil {
		return nil, err
	}
	return s.d.Groups.GroupsOf(ctx, user)
}

func (s *GroupService) Get(ctx context.Context, user, groupID string) (*model.GroupRecord, error) {
	return s.member(ctx, user, groupID)
}

func (s *GroupService) AddMember(ctx context.Context, actor, groupID, user string) error {
	if err := required("user", user); err != nil {
		return err
	}
	if _, err := s.admin(ctx, actor, groupID); err != nil {
		return err
	}
	if _, err := s.d.Users.GetUser(ctx, user); err != nil {
		return err
	}
	if err := s.d.Groups.AddMember(ctx, groupID, user); err != nil {
		return err
	}
	s.d.Log.Record(ctx, groupID, kafka.Activity{Kind: "group_member_added", Actor: actor, Target: user, Ref: groupID, At: s.d.Clock()})
	return nil
}

func (s *GroupService) RemoveMember(ctx context.Context, actor, groupID, user string) error {
	if err := required("user", user); err != nil {
		return err
	}
	g, err := s.admin(ctx, actor, groupID)
	if err != nil {
		return err
	}
	if user == g.Admin {
		return errs.ErrAdminCannotLeave.WrapMsg("", "group", groupID)
	}
	if !g.HasMember(user) {
		return errs.ErrNotGroupMember.WrapMsg("", "user", user)
	}
	if err := s.d.Groups.RemoveMember(ctx, groupID, user); err != nil {
		return err
	}
	s.d.Log.Record(ctx, groupID, kafka.Activity{Kind: "group_member_removed", Actor: actor, Target: user, Ref: groupID, At: s.d.Clock()})
	return nil
}

// Leave admin 不能退群，只能删群
func (s *GroupService) Leave(ctx context.Context, user, groupID string) error {
	g, err := s.member(ctx, user, groupID)
	if err != nil {
		return err
	}
	if user == g.Admin {
		return errs.ErrAdminCannotLeave.WrapMsg("", "group", groupID)
	}
	if err := s.d.Groups.RemoveMember(ctx, groupID, user); err != nil {
		return err
	}
	s.d.Log.Record(ctx, groupID, kafka.Activity{Kind: "group_left", Actor: user, Ref: groupID, At: s.d.Clock()})
	return nil
}

// Delete 级联删除群消息
func (s *GroupService) Delete(ctx context.Context, actor, groupID string) error {
	if _, err := s.admin(ctx, actor, groupID); err != nil {
		return err
	}
	if err := s.d.Groups.DeleteGroupCascade(ctx, groupID); err != nil {
		return err
	}
	s.d.Log.Record(ctx, groupID, kafka.Activity{Kind: "group_deleted", Actor: actor, Ref: groupID, At: s.d.Clock()})
	return nil
}

func (s *GroupService) Send(ctx context.Context, in SendGroupMessage) (*model.GroupMessage, error) {
	if err := checkBody(in.Text, in.ImageKey, in.From); err != nil {
		return nil, err
	}
	g, err := s.member(ctx, in.From, in.GroupID)
	if err != nil {
		return nil, err
	}
	now := s.d.Clock()
	m := &model.GroupMessage{
		ID:        s.d.NewID(),
		GroupID:   g.ID,
		From:      in.From,
		Text:      in.Text,
		ImageKey:  in.ImageKey,
		Timestamp: now,
		ReplyTo:   in.ReplyTo,
	}
	if in.ImageKey != "" && s.d.Objects != nil {
		if u, err := s.d.Objects.URL(ctx, in.ImageKey); err == nil {
			m.ImageURL = u
		} else {
			logger.Warn("[Groups] presign failed", zap.String("key", in.ImageKey), zap.Error(err))
		}
	}
	if err := s.d.Groups.InsertGroupMessage(ctx, m); err != nil {
		return nil, err
	}
	// 扇出给除作者外的每个成员
	to := make([]string, 0, len(g.Miembros))
	for _, u := range g.Miembros {
		if u != m.From {
			to = append(to, u)
		}
	}
	s.d.Feed.PublishMany(ctx, to, feed.Event{
		ID:        m.ID,
		Kind:      feed.KindGroupMessage,
		From:      m.From,
		GroupID:   g.ID,
		GroupName: g.Name,
		Text:      m.Text,
		HasImage:  m.ImageKey != "",
		At:        now,
	})
	s.d.Log.Record(ctx, g.ID, kafka.Activity{Kind: "group_message_sent", Actor: m.From, Ref: m.ID, At: now})
	return m, nil
}

func (s *GroupService) Messages(ctx context.Context, user, groupID string, limit int64) ([]model.GroupMessage, error) {
	if _, err := s.member(ctx, user, groupID); err != nil {
		return nil, err
	}
	return s.d.Groups.GroupMessages(ctx, groupID, pageSize(limit))
}

func (s *GroupService) member(ctx context.Context, user, groupID string) (*model.GroupRecord, error) {
	if err := required("user", user, "group_id", groupID); err != nil {
		return nil, err
	}
	g, err := s.d.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !g.HasMember(user) {
		return nil, errs.ErrNotGroupMember.WrapMsg("", "group", groupID)
	}
	return g, nil
}

func (s *GroupService) admin(ctx context.Context, user, groupID string) (*model.GroupRecord, error) {
	if err := required("user", user, "group_id", groupID); err != nil {
		return nil, err
	}
	g, err := s.d.Groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g.Admin != user {
		return nil, errs.ErrNotGroupAdmin.WrapMsg("", "group", groupID)
	}
	return g, nil
}
