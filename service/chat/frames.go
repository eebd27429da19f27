package chat

import (
	"encoding/json"
	"time"

	decode "DogiCord/tools/decode"
	"DogiCord/tools/errs"
)

// 入站帧类型
const (
	FrameHello             = "hello"
	FrameHeartbeat         = "heartbeat"
	FrameVisibility        = "visibility"
	FrameNetwork           = "network"
	FrameUnload            = "unload"
	FrameRoute             = "route"
	FrameWatchPresence     = "watch_presence"
	FrameUnwatchPresence   = "unwatch_presence"
	FrameNotificationClick = "notification_click"
	FrameToastClick        = "toast_click"
	FrameToastAction       = "toast_action"
	FrameShellUpdateEvent  = "shell_update_event"
	FrameShellVersion      = "shell_version"
	FramePrefs             = "prefs"
	FrameCheckForUpdates   = "check_for_updates"
	FrameInstallUpdate     = "install_update"
)

// 出站帧类型（通知/壳相关的在 notify、shell 包里定义）
const (
	FrameToast        = "toast"
	FrameToastDismiss = "toast_dismiss"
	FramePresence     = "presence"
	FrameError        = "error"
	FrameAck          = "ack"
	FrameHelloAck     = "hello_ack"
)

// Frame 线上 JSON：{type, id?, data}
type Frame struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func ParseFrameJSON(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, errs.ErrArgs.WrapMsg("unmarshal frame failed", "err", err)
	}
	if f.Type == "" {
		return Frame{}, errs.ErrArgs.WrapMsg("frame type is empty")
	}
	return f, nil
}

// EncodeFrame 出站帧
func EncodeFrame(typ, id string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, errs.WrapMsg(err, "marshal frame data", "type", typ)
		}
		raw = b
	}
	return json.Marshal(Frame{Type: typ, ID: id, Data: raw})
}

// DecodeData data 先转 map 再用 mapstructure 解码，字段宽松匹配
func DecodeData[T any](f Frame) (*T, error) {
	m := map[string]any{}
	if len(f.Data) > 0 && string(f.Data) != "null" {
		if err := json.Unmarshal(f.Data, &m); err != nil {
			return nil, errs.ErrArgs.WrapMsg("frame data must be an object", "type", f.Type)
		}
	}
	out, err := decode.Decode[T](m)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg("decode frame data", "type", f.Type, "err", err)
	}
	return out, nil
}

// ---- 出站 payload ----

type ErrorPayload struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Ref    string `json:"ref,omitempty"`
}

func BuildError(ref string, err error) ErrorPayload {
	ce := errs.AsCodeError(err)
	return ErrorPayload{Code: ce.Code, Msg: ce.Msg, Detail: ce.Detail, Ref: ref}
}

type DismissPayload struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type PresencePayload struct {
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

type AckPayload struct {
	Ref  string `json:"ref"`
	Type string `json:"type"`
	TS   int64  `json:"ts"`
}

func BuildAck(f Frame) AckPayload {
	return AckPayload{Ref: f.ID, Type: f.Type, TS: time.Now().UnixMilli()}
}
