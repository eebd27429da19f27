package handlers

import (
	"DogiCord/service/chat"
	"DogiCord/tools/errs"
)

type idData struct {
	ID string `json:"id"`
}

// NotificationClickHandler 平台通知被点击；id 即通知 tag
type NotificationClickHandler struct{}

func (NotificationClickHandler) Type() string { return chat.FrameNotificationClick }

func (NotificationClickHandler) Handle(s *chat.Session, f chat.Frame) error {
	d, err := chat.DecodeData[idData](f)
	if err != nil {
		return err
	}
	s.Bridge().HandleNotificationClick(d.ID)
	return ack(s, f)
}

type ToastClickHandler struct{}

func (ToastClickHandler) Type() string { return chat.FrameToastClick }

func (ToastClickHandler) Handle(s *chat.Session, f chat.Frame) error {
	d, err := chat.DecodeData[idData](f)
	if err != nil {
		return err
	}
	if _, ok := s.Router().ToastClick(s.Ctx(), d.ID); !ok {
		return errs.ErrRecordNotFound.WrapMsg("toast not clickable", "id", d.ID)
	}
	return ack(s, f)
}

type actionData struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

// ToastActionHandler 好友请求 toast 的 accept / reject
type ToastActionHandler struct{}

func (ToastActionHandler) Type() string { return chat.FrameToastAction }

func (ToastActionHandler) Handle(s *chat.Session, f chat.Frame) error {
	d, err := chat.DecodeData[actionData](f)
	if err != nil {
		return err
	}
	if err := s.Router().Act(s.Ctx(), d.ID, d.Action); err != nil {
		return err
	}
	return ack(s, f)
}

type prefsData struct {
	MuteGroup   string `json:"mute_group"`
	UnmuteGroup string `json:"unmute_group"`
	MuteUser    string `json:"mute_user"`
	UnmuteUser  string `json:"unmute_user"`
}

// PrefsHandler 会话内切换静音；路由器下次读取时生效
type PrefsHandler struct{}

func (PrefsHandler) Type() string { return chat.FramePrefs }

func (PrefsHandler) Handle(s *chat.Session, f chat.Frame) error {
	d, err := chat.DecodeData[prefsData](f)
	if err != nil {
		return err
	}
	m := s.Server().Mutes()
	if m == nil {
		return errs.ErrArgs.WrapMsg("mute preferences not configured")
	}
	ctx := s.Ctx()
	steps := []struct {
		id string
		fn func() error
	}{
		{d.MuteGroup, func() error { return m.MuteGroup(ctx, s.User, d.MuteGroup) }},
		{d.UnmuteGroup, func() error { return m.UnmuteGroup(ctx, s.User, d.UnmuteGroup) }},
		{d.MuteUser, func() error { return m.MuteUser(ctx, s.User, d.MuteUser) }},
		{d.UnmuteUser, func() error { return m.UnmuteUser(ctx, s.User, d.UnmuteUser) }},
	}
	changed := false
	for _, st := range steps {
		if st.id == "" {
			continue
		}
		if err := st.fn(); err != nil {
			return err
		}
		changed = true
	}
	if !changed {
		return errs.ErrArgs.WrapMsg("no preference to change")
	}
	return ack(s, f)
}
