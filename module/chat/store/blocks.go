package store

import (
	"context"

	"DogiCord/module/chat/model"
	"DogiCord/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) PutBlock(ctx context.Context, r *model.BlockRecord) error {
	r.ID = model.BlockID(r.Blocker, r.Blocked)
	_, err := s.BlockColl.ReplaceOne(ctx, bson.M{"_id": r.ID}, r, options.Replace().SetUpsert(true))
	return errs.WrapMsg(err, "put block", "blocker", r.Blocker, "blocked", r.Blocked)
}

// DeleteBlock 不存在也算成功
func (s *Store) DeleteBlock(ctx context.Context, blocker, blocked string) error {
	_, err := s.BlockColl.DeleteOne(ctx, bson.M{"_id": model.BlockID(blocker, blocked)})
	return errs.WrapMsg(err, "delete block", "blocker", blocker, "blocked", blocked)
}

func (s *Store) BlockExists(ctx context.Context, blocker, blocked string) (bool, error) {
	n, err := s.BlockColl.CountDocuments(ctx,
		bson.M{"_id": model.BlockID(blocker, blocked)},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, errs.WrapMsg(err, "block exists", "blocker", blocker, "blocked", blocked)
	}
	return n > 0, nil
}

func (s *Store) BlockedBy(ctx context.Context, blocker string) ([]string, error) {
	recs, err := findAll[model.BlockRecord](ctx, s.BlockColl, bson.M{"blocker": blocker})
	if err != nil {
		return nil, errs.WrapMsg(err, "blocked by", "blocker", blocker)
	}
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Blocked)
	}
	return out, nil
}
