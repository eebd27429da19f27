package feed

import (
	"context"
	"encoding/json"
	"time"

	"DogiCord/logger"
	"DogiCord/tools/errs"

	"go.uber.org/zap"
)

type Kind string

const (
	KindMessage        Kind = "message"
	KindGroupMessage   Kind = "group_message"
	KindFriendRequest  Kind = "friend_request"
	KindFriendAccepted Kind = "friend_accepted"
)

// Event 用户收件流里的一条变更
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	From      string    `json:"from"`
	To        string    `json:"to,omitempty"`
	GroupID   string    `json:"group_id,omitempty"`
	GroupName string    `json:"group_name,omitempty"`
	Text      string    `json:"text,omitempty"`
	HasImage  bool      `json:"has_image,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	At        time.Time `json:"at"`
}

// Events 每个用户一个 subject：<prefix>.feed.<user>
type Events struct {
	bus    Bus
	prefix string
}

func NewEvents(bus Bus, prefix string) *Events {
	if prefix == "" {
		prefix = "dogi"
	}
	return &Events{bus: bus, prefix: prefix}
}

func (e *Events) Subject(user string) string {
	return e.prefix + ".feed." + Token(user)
}

func (e *Events) Publish(ctx context.Context, user string, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return errs.Wrap(err)
	}
	return errs.WrapMsg(e.bus.Publish(ctx, e.Subject(user), ev.ID, b), "publish feed event", "user", user, "kind", ev.Kind)
}

// PublishMany 群消息扇出；单个失败只记日志
func (e *Events) PublishMany(ctx context.Context, users []string, ev Event) {
	for _, u := range users {
		if err := e.Publish(ctx, u, ev); err != nil {
			logger.Warn("[Feed] fan-out failed", zap.String("user", u), zap.String("id", ev.ID), zap.Error(err))
		}
	}
}

func (e *Events) Subscribe(user string, fn func(Event)) (func(), error) {
	return e.bus.Subscribe(e.Subject(user), func(data []byte, _ string) {
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warn("[Feed] bad event", zap.String("user", user), zap.Error(err))
			return
		}
		fn(ev)
	})
}
