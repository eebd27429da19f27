package store

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"DogiCord/logger"
	"DogiCord/module/chat/model"
	"DogiCord/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Store Mongo 持久层：用户 / 好友请求 / 私聊 / 群组 / 屏蔽 / 静音
type Store struct {
	db *mongo.Database

	UserColl     *mongo.Collection // users
	RequestColl  *mongo.Collection // friend_requests
	MsgColl      *mongo.Collection // messages
	GroupColl    *mongo.Collection // groups
	GroupMsgColl *mongo.Collection // group_messages
	BlockColl    *mongo.Collection // blocks
	MuteColl     *mongo.Collection // mutes

	// 单机 mongod 不支持事务，第一次失败后降级为顺序写
	noTx atomic.Bool
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		db:           db,
		UserColl:     db.Collection(model.CollUsers),
		RequestColl:  db.Collection(model.CollFriendRequests),
		MsgColl:      db.Collection(model.CollMessages),
		GroupColl:    db.Collection(model.CollGroups),
		GroupMsgColl: db.Collection(model.CollGroupMessages),
		BlockColl:    db.Collection(model.CollBlocks),
		MuteColl:     db.Collection(model.CollMutes),
	}
}

// EnsureIndexes 启动时建索引（幂等）
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.RequestColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "from", Value: 1}, {Key: "to", Value: 1}}},
			{Keys: bson.D{{Key: "to", Value: 1}, {Key: "status", Value: 1}, {Key: "timestamp", Value: -1}}},
		}},
		{s.MsgColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "to", Value: 1}, {Key: "from", Value: 1}, {Key: "read", Value: 1}}},
		}},
		{s.GroupColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "miembros", Value: 1}}},
		}},
		{s.GroupMsgColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		}},
		{s.BlockColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "blocker", Value: 1}}},
		}},
	}
	for _, sp := range specs {
		if _, err := sp.coll.Indexes().CreateMany(ctx, sp.models); err != nil {
			return errs.WrapMsg(err, "create indexes", "collection", sp.coll.Name())
		}
	}
	return nil
}

// withTx 在事务里执行 fn；不支持事务时直接执行
func (s *Store) withTx(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if !s.noTx.Load() {
		err := s.runTx(ctx, fn)
		if err == nil || !txUnsupported(err) {
			return err
		}
		s.noTx.Store(true)
		logger.Warn("[Store] transactions unsupported, falling back to sequential writes",
			zap.String("op", name), zap.Error(err))
	}
	return fn(ctx)
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// IllegalOperation(20)：Transaction numbers are only allowed on a replica set member or mongos
func txUnsupported(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(20) {
		return true
	}
	return strings.Contains(err.Error(), "Transaction numbers are only allowed")
}

func notFound(err error, what string, kv ...any) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.ErrRecordNotFound.WrapMsg(what, kv...)
	}
	return errs.WrapMsg(err, what, kv...)
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cur.Close(ctx) }()
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func reverse[T any](xs []T) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}
