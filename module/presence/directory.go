package presence

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"DogiCord/logger"
	"DogiCord/module/chat/model"
	"DogiCord/service/feed"
	"DogiCord/service/storage"
	"DogiCord/tools/errs"

	"go.uber.org/zap"
)

// UserStore 持久化的 online / last_seen（*store.Store）
type UserStore interface {
	GetUser(ctx context.Context, username string) (*model.UserRecord, error)
	UpdatePresence(ctx context.Context, username string, online bool, at time.Time) error
}

// HotStore Redis 热数据（*storage.PresenceStore）
type HotStore interface {
	Put(ctx context.Context, user string, online bool, at time.Time) error
	Get(ctx context.Context, user string) (storage.PresenceSnapshot, bool, error)
}

// Directory 在线状态的读写入口：写 Redis + Mongo 并广播；读优先 Redis
type Directory struct {
	users  UserStore
	hot    HotStore
	bus    feed.Bus
	prefix string
}

func NewDirectory(users UserStore, hot HotStore, bus feed.Bus, prefix string) *Directory {
	if prefix == "" {
		prefix = "dogi"
	}
	return &Directory{users: users, hot: hot, bus: bus, prefix: prefix}
}

// Subject <prefix>.presence.<user>
func (d *Directory) Subject(user string) string {
	return d.prefix + ".presence." + feed.Token(user)
}

// WritePresence 三处都尝试写，返回合并后的错误
func (d *Directory) WritePresence(ctx context.Context, user string, online bool, at time.Time) error {
	var all []error
	if d.hot != nil {
		if err := d.hot.Put(ctx, user, online, at); err != nil {
			all = append(all, err)
		}
	}
	if d.users != nil {
		if err := d.users.UpdatePresence(ctx, user, online, at); err != nil {
			all = append(all, err)
		}
	}
	if d.bus != nil {
		b, _ := json.Marshal(Record{Username: user, Online: online, LastSeen: at})
		msgID := user + ":" + strconv.FormatInt(at.UnixNano(), 10) + ":" + strconv.FormatBool(online)
		if err := d.bus.Publish(ctx, d.Subject(user), msgID, b); err != nil {
			all = append(all, errs.WrapMsg(err, "publish presence", "user", user))
		}
	}
	return errors.Join(all...)
}

func (d *Directory) Lookup(ctx context.Context, user string) (Record, error) {
	if d.hot != nil {
		snap, ok, err := d.hot.Get(ctx, user)
		if err == nil && ok {
			return Record{Username: user, Online: snap.Online, LastSeen: snap.LastSeen}, nil
		}
		if err != nil {
			logger.Warn("[Presence] hot lookup failed", zap.String("user", user), zap.Error(err))
		}
	}
	if d.users == nil {
		return Record{Username: user}, nil
	}
	u, err := d.users.GetUser(ctx, user)
	if err != nil {
		return Record{Username: user}, err
	}
	return Record{Username: user, Online: u.Online, LastSeen: u.LastSeen}, nil
}

func (d *Directory) Subscribe(user string, fn func(Record)) (func(), error) {
	if d.bus == nil {
		return func() {}, nil
	}
	return d.bus.Subscribe(d.Subject(user), func(data []byte, _ string) {
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			logger.Warn("[Presence] bad presence event", zap.String("user", user), zap.Error(err))
			return
		}
		fn(rec)
	})
}
