package model

import (
	"time"
)

const CollFriendRequests = "friend_requests"

// FriendRequest 状态只有 pending / accepted；拒绝直接删除文档
type FriendRequest struct {
	ID        string    `bson:"_id" json:"id"`
	From      string    `bson:"from" json:"from"`
	To        string    `bson:"to" json:"to"`
	Status    string    `bson:"status" json:"status"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
)
