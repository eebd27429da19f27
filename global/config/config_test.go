package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dogicord.yaml")
	yml := `
port: 9090
presence:
  stale_after: 3m
  heartbeat_every: 22s
nats:
  servers: nats://a:4222,nats://b:4222
kafka:
  brokers: [k1:9092]
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOGI_NOTIFY__TOAST_TIMEOUT", "7s")
	t.Setenv("DOGI_REDIS__ADDR", "redis:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.Presence.StaleAfter != 3*time.Minute || cfg.Presence.HeartbeatEvery != 22*time.Second {
		t.Errorf("presence = %+v", cfg.Presence)
	}
	if len(cfg.Nats.Servers) != 2 {
		t.Errorf("nats servers = %v", cfg.Nats.Servers)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "k1:9092" {
		t.Errorf("kafka brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Notify.ToastTimeout != 7*time.Second {
		t.Errorf("toast timeout = %v", cfg.Notify.ToastTimeout)
	}
	if cfg.Redis.Addr != "redis:6379" {
		t.Errorf("redis addr = %q", cfg.Redis.Addr)
	}
	// 未覆盖的字段保持默认
	if cfg.Mongo.Database != "dogicord" {
		t.Errorf("mongo database = %q", cfg.Mongo.Database)
	}
}

func TestNormalizeHeartbeatWindow(t *testing.T) {
	cfg := Default()
	cfg.Presence.HeartbeatEvery = time.Minute
	cfg.Presence.KeyTTL = 0
	cfg.Normalize()
	if cfg.Presence.HeartbeatEvery != 25*time.Second {
		t.Errorf("heartbeat = %v", cfg.Presence.HeartbeatEvery)
	}
	if cfg.Presence.KeyTTL != cfg.Presence.StaleAfter {
		t.Errorf("key ttl = %v", cfg.Presence.KeyTTL)
	}
}

func TestApplyYAMLKeepsBaseOnError(t *testing.T) {
	base := Default()
	got, err := ApplyYAML(base, []byte("presence: [broken"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if got.Presence != base.Presence {
		t.Fatalf("base changed on error")
	}
	got, err = ApplyYAML(base, []byte("notify:\n  welcome_enabled: false\n"))
	if err != nil || got.Notify.WelcomeEnabled {
		t.Fatalf("apply = %+v, %v", got.Notify, err)
	}
}

func TestRegisterParam(t *testing.T) {
	nc := Default().Nacos
	p := registerParam(nc, GatewayInstance{ID: "gw-1", IP: "10.0.0.5", Port: 8080, Meta: map[string]string{"node": "1"}})
	if p.ServiceName != "dogicord-gateway" || p.GroupName != "DEFAULT_GROUP" || !p.Ephemeral {
		t.Fatalf("unexpected param %+v", p)
	}
	if p.Metadata["gateway_id"] != "gw-1" || p.Metadata["node"] != "1" || p.Metadata["ws_path"] != "/ws" {
		t.Fatalf("metadata = %v", p.Metadata)
	}
	if _, err := nacosParam(NacosConfig{}); err == nil {
		t.Fatalf("empty addr should fail")
	}
}
