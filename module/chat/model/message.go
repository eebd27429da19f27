package model

import (
	"time"
)

const (
	CollMessages      = "messages"
	CollGroupMessages = "group_messages"
)

// ReplyTo 被引用消息的摘要
type ReplyTo struct {
	From string `bson:"from" json:"from"`
	Text string `bson:"text" json:"text"`
}

// Message 私聊消息
type Message struct {
	ID           string    `bson:"_id" json:"id"`
	From         string    `bson:"from" json:"from"`
	To           string    `bson:"to" json:"to"`
	Text         string    `bson:"text" json:"text"`
	ImageKey     string    `bson:"image_key,omitempty" json:"image_key,omitempty"` // 对象存储 key
	ImageURL     string    `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Timestamp    time.Time `bson:"timestamp" json:"timestamp"`
	Participants []string  `bson:"participants" json:"participants"` // [from, to]
	Read         bool      `bson:"read" json:"read"`                 // 只会 false -> true
	ReplyTo      *ReplyTo  `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
}

// GroupMessage 群消息：没有 to / participants / read
type GroupMessage struct {
	ID        string    `bson:"_id" json:"id"`
	GroupID   string    `bson:"group_id" json:"group_id"`
	From      string    `bson:"from" json:"from"`
	Text      string    `bson:"text" json:"text"`
	ImageKey  string    `bson:"image_key,omitempty" json:"image_key,omitempty"`
	ImageURL  string    `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ReplyTo   *ReplyTo  `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
}
