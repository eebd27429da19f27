package store

import (
	"context"

	"DogiCord/module/chat/model"
	"DogiCord/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) InsertMessage(ctx context.Context, m *model.Message) error {
	_, err := s.MsgColl.InsertOne(ctx, m)
	return errs.WrapMsg(err, "insert message", "from", m.From, "to", m.To)
}

func (s *Store) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	if err := s.MsgColl.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, notFound(err, "get message", "id", id)
	}
	return &m, nil
}

func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	res, err := s.MsgColl.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errs.WrapMsg(err, "delete message", "id", id)
	}
	if res.DeletedCount == 0 {
		return errs.ErrRecordNotFound.WrapMsg("delete message", "id", id)
	}
	return nil
}

// MarkRead 只做 false -> true
func (s *Store) MarkRead(ctx context.Context, reader, peer string) (int64, error) {
	res, err := s.MsgColl.UpdateMany(ctx,
		bson.M{"from": peer, "to": reader, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, errs.WrapMsg(err, "mark read", "reader", reader, "peer", peer)
	}
	return res.ModifiedCount, nil
}

// Conversation 最近 limit 条，按时间正序返回
func (s *Store) Conversation(ctx context.Context, a, b string, limit int64) ([]model.Message, error) {
	out, err := findAll[model.Message](ctx, s.MsgColl,
		bson.M{"participants": bson.M{"$all": bson.A{a, b}}},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, errs.WrapMsg(err, "conversation", "a", a, "b", b)
	}
	reverse(out)
	return out, nil
}
