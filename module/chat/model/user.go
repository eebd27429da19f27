package model

import (
	"time"
)

const CollUsers = "users"

// UserRecord 用户文档：_id 即唯一用户名
type UserRecord struct {
	Username  string    `bson:"_id" json:"username"`
	Display   string    `bson:"display" json:"display"`
	AvatarURL string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Online    bool      `bson:"online" json:"online"`       // 客户端上报的在线标记（需结合 last_seen 判断）
	LastSeen  time.Time `bson:"last_seen" json:"last_seen"` // 最近一次在线状态写入时间
	Friends   []string  `bson:"friends" json:"friends"`     // 好友用户名集合（$addToSet 维护）
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func (u *UserRecord) IsFriend(name string) bool {
	for _, f := range u.Friends {
		if f == name {
			return true
		}
	}
	return false
}
