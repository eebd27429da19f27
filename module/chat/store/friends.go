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

func between(a, b string) bson.A {
	return bson.A{
		bson.M{"from": a, "to": b},
		bson.M{"from": b, "to": a},
	}
}

func (s *Store) InsertRequest(ctx context.Context, r *model.FriendRequest) error {
	_, err := s.RequestColl.InsertOne(ctx, r)
	return errs.WrapMsg(err, "insert friend request", "from", r.From, "to", r.To)
}

func (s *Store) GetRequest(ctx context.Context, id string) (*model.FriendRequest, error) {
	var r model.FriendRequest
	if err := s.RequestColl.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, notFound(err, "get friend request", "id", id)
	}
	return &r, nil
}

func (s *Store) FindPendingBetween(ctx context.Context, a, b string) (*model.FriendRequest, error) {
	var r model.FriendRequest
	err := s.RequestColl.FindOne(ctx, bson.M{"status": model.RequestPending, "$or": between(a, b)}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find pending request", "a", a, "b", b)
	}
	return &r, nil
}

func (s *Store) PendingFor(ctx context.Context, user string) ([]model.FriendRequest, error) {
	out, err := findAll[model.FriendRequest](ctx, s.RequestColl,
		bson.M{"to": user, "status": model.RequestPending},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}),
	)
	return out, errs.WrapMsg(err, "pending requests", "user", user)
}

// AcceptRequest 请求置 accepted 与双向加好友在同一事务里；重复执行结果不变
func (s *Store) AcceptRequest(ctx context.Context, id, from, to string) error {
	return s.withTx(ctx, "accept_request", func(ctx context.Context) error {
		res, err := s.RequestColl.UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"status": model.RequestAccepted}},
		)
		if err != nil {
			return errs.WrapMsg(err, "accept request", "id", id)
		}
		if res.MatchedCount == 0 {
			return errs.ErrRecordNotFound.WrapMsg("accept request", "id", id)
		}
		if _, err := s.UserColl.UpdateOne(ctx, bson.M{"_id": from}, bson.M{"$addToSet": bson.M{"friends": to}}); err != nil {
			return errs.WrapMsg(err, "add friend", "user", from)
		}
		if _, err := s.UserColl.UpdateOne(ctx, bson.M{"_id": to}, bson.M{"$addToSet": bson.M{"friends": from}}); err != nil {
			return errs.WrapMsg(err, "add friend", "user", to)
		}
		return nil
	})
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	res, err := s.RequestColl.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errs.WrapMsg(err, "delete friend request", "id", id)
	}
	if res.DeletedCount == 0 {
		return errs.ErrRecordNotFound.WrapMsg("delete friend request", "id", id)
	}
	return nil
}

// RemoveFriendship 双向移除好友并清掉两人之间的请求记录，之后可重新申请
func (s *Store) RemoveFriendship(ctx context.Context, a, b string) error {
	return s.withTx(ctx, "remove_friendship", func(ctx context.Context) error {
		if _, err := s.UserColl.UpdateOne(ctx, bson.M{"_id": a}, bson.M{"$pull": bson.M{"friends": b}}); err != nil {
			return errs.WrapMsg(err, "remove friend", "user", a)
		}
		if _, err := s.UserColl.UpdateOne(ctx, bson.M{"_id": b}, bson.M{"$pull": bson.M{"friends": a}}); err != nil {
			return errs.WrapMsg(err, "remove friend", "user", b)
		}
		_, err := s.RequestColl.DeleteMany(ctx, bson.M{"$or": between(a, b)})
		return errs.WrapMsg(err, "clear friend requests", "a", a, "b", b)
	})
}
