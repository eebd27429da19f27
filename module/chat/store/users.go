package store

import (
	"context"
	"time"

	"DogiCord/module/chat/model"
	"DogiCord/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) CreateUser(ctx context.Context, u *model.UserRecord) error {
	if u.Friends == nil {
		u.Friends = []string{}
	}
	_, err := s.UserColl.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return errs.ErrUsernameTaken.WrapMsg("create user", "username", u.Username)
	}
	return errs.WrapMsg(err, "create user", "username", u.Username)
}

func (s *Store) GetUser(ctx context.Context, username string) (*model.UserRecord, error) {
	var u model.UserRecord
	if err := s.UserColl.FindOne(ctx, bson.M{"_id": username}).Decode(&u); err != nil {
		return nil, notFound(err, "get user", "username", username)
	}
	return &u, nil
}

// UpdatePresence 只接受不早于已存 last_seen 的写入
func (s *Store) UpdatePresence(ctx context.Context, username string, online bool, at time.Time) error {
	_, err := s.UserColl.UpdateOne(ctx,
		bson.M{"_id": username, "last_seen": bson.M{"$lte": at}},
		bson.M{"$set": bson.M{"online": online, "last_seen": at}},
	)
	return errs.WrapMsg(err, "update presence", "username", username)
}
