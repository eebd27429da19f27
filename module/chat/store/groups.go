package store

import (
	"context"

	"DogiCord/module/chat/model"
	"DogiCord/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertGroup(ctx context.Context, g *model.GroupRecord) error {
	_, err := s.GroupColl.InsertOne(ctx, g)
	return errs.WrapMsg(err, "insert group", "name", g.Name)
}

func (s *Store) GetGroup(ctx context.Context, id string) (*model.GroupRecord, error) {
	var g model.GroupRecord
	if err := s.GroupColl.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return nil, notFound(err, "get group", "id", id)
	}
	return &g, nil
}

func (s *Store) GroupsOf(ctx context.Context, user string) ([]model.GroupRecord, error) {
	out, err := findAll[model.GroupRecord](ctx, s.GroupColl,
		bson.M{"miembros": user},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	return out, errs.WrapMsg(err, "groups of", "user", user)
}

func (s *Store) AddMember(ctx context.Context, id, user string) error {
	return s.updateMembers(ctx, id, bson.M{"$addToSet": bson.M{"miembros": user}})
}

func (s *Store) RemoveMember(ctx context.Context, id, user string) error {
	return s.updateMembers(ctx, id, bson.M{"$pull": bson.M{"miembros": user}})
}

func (s *Store) updateMembers(ctx context.Context, id string, update bson.M) error {
	res, err := s.GroupColl.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return errs.WrapMsg(err, "update members", "group", id)
	}
	if res.MatchedCount == 0 {
		return errs.ErrRecordNotFound.WrapMsg("update members", "group", id)
	}
	return nil
}

// DeleteGroupCascade 群消息与群文档一起删
func (s *Store) DeleteGroupCascade(ctx context.Context, id string) error {
	return s.withTx(ctx, "delete_group", func(ctx context.Context) error {
		if _, err := s.GroupMsgColl.DeleteMany(ctx, bson.M{"group_id": id}); err != nil {
			return errs.WrapMsg(err, "delete group messages", "group", id)
		}
		res, err := s.GroupColl.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return errs.WrapMsg(err, "delete group", "group", id)
		}
		if res.DeletedCount == 0 {
			return errs.ErrRecordNotFound.WrapMsg("delete group", "group", id)
		}
		return nil
	})
}

func (s *Store) InsertGroupMessage(ctx context.Context, m *model.GroupMessage) error {
	_, err := s.GroupMsgColl.InsertOne(ctx, m)
	return errs.WrapMsg(err, "insert group message", "group", m.GroupID)
}

func (s *Store) GroupMessages(ctx context.Context, id string, limit int64) ([]model.GroupMessage, error) {
	out, err := findAll[model.GroupMessage](ctx, s.GroupMsgColl,
		bson.M{"group_id": id},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "group messages", "group", id)
	}
	reverse(out)
	return out, nil
}
