package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"DogiCord/tools/errs"

	"github.com/redis/go-redis/v9"
)

// BreadcrumbStore user_closing：页面卸载时同步写下的标记，下次启动时取走
type BreadcrumbStore struct {
	rdb  redis.Cmdable
	keys Keys
	ttl  time.Duration
}

func NewBreadcrumbStore(rdb redis.Cmdable, keys Keys, ttl time.Duration) *BreadcrumbStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &BreadcrumbStore{rdb: rdb, keys: keys, ttl: ttl}
}

func (s *BreadcrumbStore) PutBreadcrumb(ctx context.Context, user string, at time.Time) error {
	err := s.rdb.Set(ctx, s.keys.Closing(user), strconv.FormatInt(at.UnixMilli(), 10), s.ttl).Err()
	return errs.WrapMsg(err, "put breadcrumb", "user", user)
}

// TakeBreadcrumb 读取并删除
func (s *BreadcrumbStore) TakeBreadcrumb(ctx context.Context, user string) (time.Time, bool, error) {
	v, err := s.rdb.GetDel(ctx, s.keys.Closing(user)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errs.WrapMsg(err, "take breadcrumb", "user", user)
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// 值损坏也算有过非正常关闭
		return time.Time{}, true, nil
	}
	return time.UnixMilli(ms), true, nil
}
