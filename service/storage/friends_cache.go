package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"DogiCord/tools/errs"

	"github.com/redis/go-redis/v9"
)

type friendsEntry struct {
	Friends   []string `json:"friends"`
	Timestamp int64    `json:"timestamp"`
}

// FriendsCache friends_data / friends_timestamp：好友列表 5 分钟缓存
type FriendsCache struct {
	rdb  redis.Cmdable
	keys Keys
	ttl  time.Duration
}

func NewFriendsCache(rdb redis.Cmdable, keys Keys, ttl time.Duration) *FriendsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &FriendsCache{rdb: rdb, keys: keys, ttl: ttl}
}

func (c *FriendsCache) GetFriends(ctx context.Context, user string) ([]string, bool, error) {
	b, err := c.rdb.Get(ctx, c.keys.Friends(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.WrapMsg(err, "get friends cache", "user", user)
	}
	var e friendsEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, false, nil
	}
	return e.Friends, true, nil
}

func (c *FriendsCache) SetFriends(ctx context.Context, user string, friends []string) error {
	b, err := json.Marshal(friendsEntry{Friends: friends, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		return errs.Wrap(err)
	}
	return errs.WrapMsg(c.rdb.Set(ctx, c.keys.Friends(user), b, c.ttl).Err(), "set friends cache", "user", user)
}

func (c *FriendsCache) InvalidateFriends(ctx context.Context, users ...string) error {
	if len(users) == 0 {
		return nil
	}
	keys := make([]string, 0, len(users))
	for _, u := range users {
		keys = append(keys, c.keys.Friends(u))
	}
	return errs.WrapMsg(c.rdb.Del(ctx, keys...).Err(), "invalidate friends cache")
}
