package storage

import "strings"

// Keys 统一 key 命名：<prefix><kind>:<user>[:<extra>]
type Keys struct {
	Prefix string
}

func NewKeys(prefix string) Keys {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return Keys{Prefix: prefix}
}

// presence hash: online / last_seen(ms)
func (k Keys) Presence(user string) string { return k.Prefix + "presence:" + user }

// 在线索引 zset：member=user score=last_seen(ms)
func (k Keys) PresenceIndex() string { return k.Prefix + "presence:idx" }

// 非正常关闭的面包屑
func (k Keys) Closing(user string) string { return k.Prefix + "user_closing:" + user }

// 每个会话最后通知过的消息 hash：conv -> msgID
func (k Keys) LastNotif(user string) string { return k.Prefix + "group_last_notif:" + user }

// 好友列表缓存
func (k Keys) Friends(user string) string { return k.Prefix + "friends_data:" + user }

// 一次性标记（欢迎通知等）
func (k Keys) Flag(user, flag string) string { return k.Prefix + "flag:" + flag + ":" + user }
