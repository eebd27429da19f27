package config

import (
	"os"
	"strings"
	"sync/atomic"

	"DogiCord/tools/decode"
	"DogiCord/tools/errs"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀；层级用双下划线，例如 DOGI_PRESENCE__STALE_AFTER=3m
const EnvPrefix = "DOGI_"

var current atomic.Pointer[AppConfig]

// Current 当前生效配置（nacos 变更后会被替换）
func Current() AppConfig {
	if c := current.Load(); c != nil {
		return *c
	}
	return Default()
}

func Store(c AppConfig) {
	current.Store(&c)
}

// Load 读取 .env（可选）+ YAML 文件（可选）+ 环境变量，解码到 AppConfig
func Load(path string) (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return AppConfig{}, errs.WrapMsg(err, "load .env")
	}

	raw := map[string]any{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return AppConfig{}, errs.WrapMsg(err, "read config", "path", path)
		}
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return AppConfig{}, errs.WrapMsg(err, "parse yaml", "path", path)
		}
	}
	overlayEnv(raw, os.Environ())

	cfg := Default()
	if err := decodeInto(raw, &cfg); err != nil {
		return AppConfig{}, err
	}
	cfg.Normalize()
	return cfg, nil
}

// ApplyYAML 在 base 之上叠加一段 YAML（nacos 下发的内容）
func ApplyYAML(base AppConfig, content []byte) (AppConfig, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return base, errs.WrapMsg(err, "parse yaml")
	}
	cfg := base
	if err := decodeInto(raw, &cfg); err != nil {
		return base, err
	}
	cfg.Normalize()
	return cfg, nil
}

func decodeInto(raw map[string]any, cfg *AppConfig) error {
	err := decode.Into(raw, cfg, decode.Options{TagName: "mapstructure", WeaklyTypedInput: true})
	return errs.WrapMsg(err, "decode config")
}

// overlayEnv DOGI_A__B=v -> raw["a"]["b"] = v
func overlayEnv(raw map[string]any, environ []string) {
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		k, v, ok := strings.Cut(kv[len(EnvPrefix):], "=")
		if !ok || k == "" {
			continue
		}
		path := strings.Split(strings.ToLower(k), "__")
		m := raw
		for _, p := range path[:len(path)-1] {
			next, ok := m[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				m[p] = next
			}
			m = next
		}
		m[path[len(path)-1]] = v
	}
}
