package storage

import (
	"context"

	"DogiCord/tools/errs"

	"github.com/redis/go-redis/v9"
)

// 一次性标记名
const (
	FlagDesktopWelcome = "electron_welcome_shown"
	FlagWebWelcome     = "welcome_notification_shown"
)

// OnceFlags 每个用户每个 flag 只成功一次
type OnceFlags struct {
	rdb  redis.Cmdable
	keys Keys
}

func NewOnceFlags(rdb redis.Cmdable, keys Keys) *OnceFlags {
	return &OnceFlags{rdb: rdb, keys: keys}
}

// First 第一次调用返回 true
func (f *OnceFlags) First(ctx context.Context, user, flag string) (bool, error) {
	ok, err := f.rdb.SetNX(ctx, f.keys.Flag(user, flag), 1, 0).Result()
	return ok, errs.WrapMsg(err, "set flag", "user", user, "flag", flag)
}
