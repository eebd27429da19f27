package storage

import (
	"context"
	"errors"
	"time"

	"DogiCord/tools/errs"

	"github.com/redis/go-redis/v9"
)

// 客户端长期不上线时整张表过期
const lastNotifTTL = 30 * 24 * time.Hour

// LastNotifiedStore group_last_notif：conversation -> 最后一条已消费/已通知的消息ID。
// owner 是 user 或 user#client，每个客户端一张表
type LastNotifiedStore struct {
	rdb  redis.Cmdable
	keys Keys
}

func NewLastNotifiedStore(rdb redis.Cmdable, keys Keys) *LastNotifiedStore {
	return &LastNotifiedStore{rdb: rdb, keys: keys}
}

func (s *LastNotifiedStore) LastSeen(ctx context.Context, owner, conv string) (string, error) {
	v, err := s.rdb.HGet(ctx, s.keys.LastNotif(owner), conv).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, errs.WrapMsg(err, "get last notified", "owner", owner, "conv", conv)
}

func (s *LastNotifiedStore) MarkSeen(ctx context.Context, owner, conv, msgID string) error {
	key := s.keys.LastNotif(owner)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, conv, msgID)
		p.Expire(ctx, key, lastNotifTTL)
		return nil
	})
	return errs.WrapMsg(err, "set last notified", "owner", owner, "conv", conv)
}
