package store

import (
	"context"
	"errors"

	"DogiCord/module/chat/model"
	"DogiCord/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetMutes 没有文档时返回空偏好
func (s *Store) GetMutes(ctx context.Context, user string) (model.MutePreference, error) {
	pref := model.MutePreference{Username: user}
	err := s.MuteColl.FindOne(ctx, bson.M{"_id": user}).Decode(&pref)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return pref, errs.WrapMsg(err, "get mutes", "user", user)
	}
	return pref, nil
}

func (s *Store) SetMuted(ctx context.Context, user string, kind model.MuteKind, id string, muted bool) error {
	op := "$pull"
	if muted {
		op = "$addToSet"
	}
	_, err := s.MuteColl.UpdateOne(ctx,
		bson.M{"_id": user},
		bson.M{op: bson.M{kind.Field(): id}},
		options.Update().SetUpsert(true),
	)
	return errs.WrapMsg(err, "set muted", "user", user, "kind", kind, "id", id)
}
