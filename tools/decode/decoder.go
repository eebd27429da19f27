package decode

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Options 用于定制 Decode 行为。
type Options struct {
	// 是否启用宽松解码（默认 true）：
	// 例如 "123" -> int、1.0 -> int64 等。
	WeaklyTypedInput bool
	// 结构体字段读取的 tag（默认 json；配置解码用 mapstructure）
	TagName string
	// 未知字段报错
	ErrorUnused bool
}

// DefaultOptions 返回默认选项。
func DefaultOptions() Options {
	return Options{
		WeaklyTypedInput: true,
		TagName:          "json",
	}
}

// Decode 将动态 map（websocket 帧 data、YAML 配置）解码到任意结构体 T。
func Decode[T any](in map[string]any, opts ...Options) (*T, error) {
	var out T
	if err := Into(in, &out, opts...); err != nil {
		return nil, err
	}
	return &out, nil
}

// Into 解码到已有对象（out 必须是指针）
func Into(in any, out any, opts ...Options) error {
	if in == nil {
		return fmt.Errorf("input is nil")
	}
	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
		if cfg.TagName == "" {
			cfg.TagName = "json"
		}
	}

	decCfg := &mapstructure.DecoderConfig{
		TagName:          cfg.TagName,
		Result:           out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
		ErrorUnused:      cfg.ErrorUnused,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			millisToTimeHook(),
			floatToIntHook(),
			jsonRawStringToMapHook(),
		),
	}

	dec, err := mapstructure.NewDecoder(decCfg)
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// -----------------------------
// 基础读取工具（动态场景常用）
// -----------------------------

// ReadString 从 map 中读取 string 字段。
func ReadString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q not string (got %T)", key, v)
	}
	return s, nil
}

// ReadBool 读取 bool（兼容 "true"/"false" 字符串）
func ReadBool(m map[string]any, key string) (bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, fmt.Errorf("missing field %q", key)
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return strconv.ParseBool(t)
	default:
		return false, fmt.Errorf("field %q type %T not bool", key, v)
	}
}

// ReadInt64 读取整数（兼容 float64 / int / string 数字）。
func ReadInt64(m map[string]any, key string) (int64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing field %q", key)
	}
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case json.Number:
		return t.Int64()
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q string parse int64: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("field %q type %T not number", key, v)
	}
}

// -----------------------------
// Decode Hooks
// -----------------------------

var timeType = reflect.TypeOf(time.Time{})

// millisToTimeHook：毫秒时间戳 / RFC3339 字符串 -> time.Time
func millisToTimeHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != timeType {
			return data, nil
		}
		switch v := data.(type) {
		case float64:
			return time.UnixMilli(int64(v)), nil
		case int64:
			return time.UnixMilli(v), nil
		case int:
			return time.UnixMilli(int64(v)), nil
		case string:
			if v == "" {
				return time.Time{}, nil
			}
			if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
				return time.UnixMilli(ms), nil
			}
			return time.Parse(time.RFC3339Nano, v)
		}
		return data, nil
	}
}

// floatToIntHook：把 float64 自动转为 int / int32 / int64。
func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int:
			return int(data.(float64)), nil
		case reflect.Int32:
			return int32(data.(float64)), nil
		case reflect.Int64:
			return int64(data.(float64)), nil
		}
		return data, nil
	}
}

// jsonRawStringToMapHook：把 JSON 字符串自动转为 map[string]any（用于某些嵌套字符串 JSON 字段）。
func jsonRawStringToMapHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.String || to != reflect.Map {
			return data, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(data.(string)), &m); err == nil {
			return m, nil
		}
		return data, nil
	}
}
