package service

import (
	"context"

	"DogiCord/module/chat/model"
)

type MuteService struct {
	d *Deps
}

func (s *MuteService) Get(ctx context.Context, user string) (model.MutePreference, error) {
	if err := required("user", user); err != nil {
		return model.MutePreference{}, err
	}
	return s.d.Mutes.GetMutes(ctx, user)
}

func (s *MuteService) MuteGroup(ctx context.Context, user, groupID string) error {
	return s.set(ctx, user, model.MuteKindGroup, groupID, true)
}

func (s *MuteService) UnmuteGroup(ctx context.Context, user, groupID string) error {
	return s.set(ctx, user, model.MuteKindGroup, groupID, false)
}

func (s *MuteService) MuteUser(ctx context.Context, user, target string) error {
	return s.set(ctx, user, model.MuteKindUser, target, true)
}

func (s *MuteService) UnmuteUser(ctx context.Context, user, target string) error {
	return s.set(ctx, user, model.MuteKindUser, target, false)
}

func (s *MuteService) set(ctx context.Context, user string, kind model.MuteKind, id string, muted bool) error {
	if err := required("user", user, string(kind), id); err != nil {
		return err
	}
	return s.d.Mutes.SetMuted(ctx, user, kind, id, muted)
}
