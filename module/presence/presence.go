package presence

import (
	"context"
	"time"
)

// DefaultStaleAfter last_seen 超过该时长即视为离线
const DefaultStaleAfter = 2 * time.Minute

// Record 某用户的在线状态快照
type Record struct {
	Username string    `json:"username"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// IsOnline 存储的 online 标记 AND last_seen 未过期；恰好等于阈值算过期
func IsOnline(rec Record, now time.Time, threshold time.Duration) bool {
	return rec.Online && now.Sub(rec.LastSeen) < threshold
}

// Writer 写在线状态（Mongo + Redis + 广播）
type Writer interface {
	WritePresence(ctx context.Context, user string, online bool, at time.Time) error
}

// Breadcrumbs user_closing 标记（*storage.BreadcrumbStore）
type Breadcrumbs interface {
	PutBreadcrumb(ctx context.Context, user string, at time.Time) error
	TakeBreadcrumb(ctx context.Context, user string) (time.Time, bool, error)
}

// Source 观察者的数据源
type Source interface {
	Lookup(ctx context.Context, user string) (Record, error)
	Subscribe(user string, fn func(Record)) (unsubscribe func(), err error)
}
