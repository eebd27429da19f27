package service

import (
	"context"
	"io"
	"time"

	"DogiCord/module/chat/model"
	"DogiCord/service/feed"
	"DogiCord/service/kafka"
	"DogiCord/tools/ids"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *model.UserRecord) error
	GetUser(ctx context.Context, username string) (*model.UserRecord, error)
	UpdatePresence(ctx context.Context, username string, online bool, at time.Time) error
}

type FriendStore interface {
	InsertRequest(ctx context.Context, r *model.FriendRequest) error
	GetRequest(ctx context.Context, id string) (*model.FriendRequest, error)
	// FindPendingBetween 任一方向的 pending 请求；没有返回 nil, nil
	FindPendingBetween(ctx context.Context, a, b string) (*model.FriendRequest, error)
	PendingFor(ctx context.Context, user string) ([]model.FriendRequest, error)
	// AcceptRequest 原子：请求置为 accepted + 双方好友集合 $addToSet
	AcceptRequest(ctx context.Context, id, from, to string) error
	DeleteRequest(ctx context.Context, id string) error
	RemoveFriendship(ctx context.Context, a, b string) error
}

type MessageStore interface {
	InsertMessage(ctx context.Context, m *model.Message) error
	GetMessage(ctx context.Context, id string) (*model.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	// MarkRead peer 发给 reader 的未读全部置为已读，返回修改条数
	MarkRead(ctx context.Context, reader, peer string) (int64, error)
	Conversation(ctx context.Context, a, b string, limit int64) ([]model.Message, error)
}

type GroupStore interface {
	InsertGroup(ctx context.Context, g *model.GroupRecord) error
	GetGroup(ctx context.Context, id string) (*model.GroupRecord, error)
	GroupsOf(ctx context.Context, user string) ([]model.GroupRecord, error)
	AddMember(ctx context.Context, id, user string) error
	RemoveMember(ctx context.Context, id, user string) error
	// DeleteGroupCascade 原子：删群 + 删全部群消息
	DeleteGroupCascade(ctx context.Context, id string) error
	InsertGroupMessage(ctx context.Context, m *model.GroupMessage) error
	GroupMessages(ctx context.Context, id string, limit int64) ([]model.GroupMessage, error)
}

type BlockStore interface {
	PutBlock(ctx context.Context, r *model.BlockRecord) error
	DeleteBlock(ctx context.Context, blocker, blocked string) error
	BlockExists(ctx context.Context, blocker, blocked string) (bool, error)
	BlockedBy(ctx context.Context, blocker string) ([]string, error)
}

type MuteStore interface {
	GetMutes(ctx context.Context, user string) (model.MutePreference, error)
	SetMuted(ctx context.Context, user string, kind model.MuteKind, id string, muted bool) error
}

// Publisher 用户收件流（*feed.Events）
type Publisher interface {
	Publish(ctx context.Context, user string, ev feed.Event) error
	PublishMany(ctx context.Context, users []string, ev feed.Event)
}

// ActivityLog 活动日志（*kafka.EventLog）
type ActivityLog interface {
	Record(ctx context.Context, key string, a kafka.Activity)
}

// FriendsCache 好友列表缓存（*storage.FriendsCache）
type FriendsCache interface {
	GetFriends(ctx context.Context, user string) ([]string, bool, error)
	SetFriends(ctx context.Context, user string, friends []string) error
	InvalidateFriends(ctx context.Context, users ...string) error
}

// ObjectStore 图片对象（*objects.Store）
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	URL(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
}

// Deps 所有用例共享的依赖；可选项为 nil 时用空实现
type Deps struct {
	Users    UserStore
	Friends  FriendStore
	Messages MessageStore
	Groups   GroupStore
	Blocks   BlockStore
	Mutes    MuteStore

	Feed    Publisher
	Log     ActivityLog
	Cache   FriendsCache
	Objects ObjectStore

	Clock func() time.Time
	NewID func() string
}

func (d *Deps) norm() {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.NewID == nil {
		d.NewID = ids.GenerateString
	}
	if d.Feed == nil {
		d.Feed = nopPublisher{}
	}
	if d.Log == nil {
		d.Log = nopLog{}
	}
	if d.Cache == nil {
		d.Cache = nopCache{}
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, feed.Event) error     { return nil }
func (nopPublisher) PublishMany(context.Context, []string, feed.Event)     {}

type nopLog struct{}

func (nopLog) Record(context.Context, string, kafka.Activity) {}

type nopCache struct{}

func (nopCache) GetFriends(context.Context, string) ([]string, bool, error) { return nil, false, nil }
func (nopCache) SetFriends(context.Context, string, []string) error         { return nil }
func (nopCache) InvalidateFriends(context.Context, ...string) error         { return nil }

// ConvKey 私聊会话 key（与顺序无关），用作活动日志分区 key
func ConvKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
