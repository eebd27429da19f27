package storage

import (
	"context"
	"strconv"
	"time"

	"DogiCord/tools/errs"

	"github.com/redis/go-redis/v9"
)

// 写入在线状态（原子）
// KEYS[1] = presence hash
// KEYS[2] = presence index zset
// ARGV[1] = username
// ARGV[2] = online(0/1)
// ARGV[3] = lastSeen ms
// ARGV[4] = ttl ms
const luaPutPresence = `
redis.call("HSET", KEYS[1], "online", ARGV[2], "last_seen", ARGV[3])
redis.call("PEXPIRE", KEYS[1], tonumber(ARGV[4]))
if ARGV[2] == "1" then
  redis.call("ZADD", KEYS[2], tonumber(ARGV[3]), ARGV[1])
else
  redis.call("ZREM", KEYS[2], ARGV[1])
end
return 1
`

var putPresenceScript = redis.NewScript(luaPutPresence)

// PresenceSnapshot redis 中的在线快照
type PresenceSnapshot struct {
	Online   bool
	LastSeen time.Time
}

// PresenceStore 热数据：每个用户一个 hash + 全局在线索引（供陈旧清理）
type PresenceStore struct {
	rdb  redis.Cmdable
	keys Keys
	ttl  time.Duration
}

func NewPresenceStore(rdb redis.Cmdable, keys Keys, ttl time.Duration) *PresenceStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &PresenceStore{rdb: rdb, keys: keys, ttl: ttl}
}

func (s *PresenceStore) Put(ctx context.Context, user string, online bool, at time.Time) error {
	flag := "0"
	if online {
		flag = "1"
	}
	// hash 多留一个周期，过期后由文档库兜底
	ttl := 2 * s.ttl
	err := putPresenceScript.Run(ctx, s.rdb,
		[]string{s.keys.Presence(user), s.keys.PresenceIndex()},
		user, flag, strconv.FormatInt(at.UnixMilli(), 10), strconv.FormatInt(ttl.Milliseconds(), 10),
	).Err()
	return errs.WrapMsg(err, "put presence", "user", user)
}

// Get found=false 表示热数据不存在（过期或从未写入）
func (s *PresenceStore) Get(ctx context.Context, user string) (PresenceSnapshot, bool, error) {
	m, err := s.rdb.HGetAll(ctx, s.keys.Presence(user)).Result()
	if err != nil {
		return PresenceSnapshot{}, false, errs.WrapMsg(err, "get presence", "user", user)
	}
	if len(m) == 0 {
		return PresenceSnapshot{}, false, nil
	}
	ms, _ := strconv.ParseInt(m["last_seen"], 10, 64)
	return PresenceSnapshot{Online: m["online"] == "1", LastSeen: time.UnixMilli(ms)}, true, nil
}

// StaleOnline 在线索引里 last_seen 早于 cutoff 的用户（cutoff 本身也算陈旧）
func (s *PresenceStore) StaleOnline(ctx context.Context, cutoff time.Time, limit int64) ([]string, error) {
	users, err := s.rdb.ZRangeByScore(ctx, s.keys.PresenceIndex(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(cutoff.UnixMilli(), 10),
		Count: limit,
	}).Result()
	return users, errs.WrapMsg(err, "stale presence")
}
