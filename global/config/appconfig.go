package config

import (
	"time"
)

type AppConfig struct {
	NodeId  int64  `mapstructure:"node_id"`  // 雪花节点ID
	Port    int    `mapstructure:"port"`     // http 启动端口
	GinMode string `mapstructure:"gin_mode"` // debug/release/test

	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Nats     NatsConfig     `mapstructure:"nats"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Objects  ObjectsConfig  `mapstructure:"objects"`
	Nacos    NacosConfig    `mapstructure:"nacos"`
	Presence PresenceConfig `mapstructure:"presence"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	Secret string        `mapstructure:"secret"`
	Alg    string        `mapstructure:"alg"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type MongoConfig struct {
	Uri         string   `mapstructure:"uri"`
	Address     []string `mapstructure:"address"`
	Database    string   `mapstructure:"database"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	AuthSource  string   `mapstructure:"auth_source"`
	MaxPoolSize int      `mapstructure:"max_pool_size"`
	MaxRetry    int      `mapstructure:"max_retry"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"pool_size"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// NatsConfig Servers 为空时使用进程内总线（单节点）
type NatsConfig struct {
	Servers       []string      `mapstructure:"servers"`
	Name          string        `mapstructure:"name"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// KafkaConfig Brokers 为空时活动日志不落 Kafka
type KafkaConfig struct {
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	Version           string   `mapstructure:"version"`
	Compression       string   `mapstructure:"compression"`
	Retries           int      `mapstructure:"retries"`
	Partitions        int32    `mapstructure:"partitions"`
	ReplicationFactor int16    `mapstructure:"replication_factor"`
	AutoCreateTopic   bool     `mapstructure:"auto_create_topic"`
}

type ObjectsConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Bucket    string        `mapstructure:"bucket"`
	UseSSL    bool          `mapstructure:"use_ssl"`
	URLExpiry time.Duration `mapstructure:"url_expiry"`
	MaxSize   int64         `mapstructure:"max_size"`
}

// NacosConfig Addr 为空时不启用远程配置
type NacosConfig struct {
	Addr        string `mapstructure:"addr"`
	Port        uint64 `mapstructure:"port"`
	NamespaceId string `mapstructure:"namespace_id"`
	DataId      string `mapstructure:"data_id"`
	Group       string `mapstructure:"group"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	LogDir      string `mapstructure:"log_dir"`
	CacheDir    string `mapstructure:"cache_dir"`
	// 网关节点注册到 nacos 服务发现
	Register    bool   `mapstructure:"register"`
	ServiceName string `mapstructure:"service_name"`
	AdvertiseIP string `mapstructure:"advertise_ip"`
}

type PresenceConfig struct {
	HeartbeatEvery  time.Duration `mapstructure:"heartbeat_every"`   // 20s~30s
	StaleAfter      time.Duration `mapstructure:"stale_after"`       // 超过即视为离线
	KeyTTL          time.Duration `mapstructure:"key_ttl"`           // redis 在线 key 的 TTL
	BreadcrumbTTL   time.Duration `mapstructure:"breadcrumb_ttl"`    // user_closing 保留时长
	SweepEvery      time.Duration `mapstructure:"sweep_every"`       // 陈旧在线状态清理周期
	ReconnectNotice bool          `mapstructure:"reconnect_notice"`  // 网络恢复时提示
}

type NotifyConfig struct {
	ToastTimeout          time.Duration `mapstructure:"toast_timeout"`
	PermissionPromptDelay time.Duration `mapstructure:"permission_prompt_delay"`
	WelcomeDelay          time.Duration `mapstructure:"welcome_delay"`
	WelcomeEnabled        bool          `mapstructure:"welcome_enabled"`
	DedupTTL              time.Duration `mapstructure:"dedup_ttl"`
	FriendsCacheTTL       time.Duration `mapstructure:"friends_cache_ttl"`
}

type GatewayConfig struct {
	SendQueue    int           `mapstructure:"send_queue"`
	MaxPerUser   int           `mapstructure:"max_per_user"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	WriteWait    time.Duration `mapstructure:"write_wait"`
	FrameRate    float64       `mapstructure:"frame_rate"`  // 每秒入站帧
	FrameBurst   int           `mapstructure:"frame_burst"` // 突发
	AllowOrigins []string      `mapstructure:"allow_origins"`
}

// Default 默认配置（可被 YAML / 环境变量 / nacos 覆盖）
func Default() AppConfig {
	return AppConfig{
		NodeId:  1,
		Port:    8080,
		GinMode: "release",
		Log:     LogConfig{Level: "info"},
		Auth:    AuthConfig{Alg: "HS256", TTL: 24 * time.Hour},
		Mongo: MongoConfig{
			Uri:         "mongodb://localhost:27017",
			Database:    "dogicord",
			MaxPoolSize: 20,
			MaxRetry:    3,
		},
		Redis: RedisConfig{Addr: "127.0.0.1:6379", PoolSize: 20, KeyPrefix: "dogi:"},
		Nats: NatsConfig{
			Name:          "dogicord",
			SubjectPrefix: "dogi",
			ReconnectWait: 500 * time.Millisecond,
			Timeout:       3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:             "dogicord.activity",
			Version:           "2.1.0",
			Compression:       "snappy",
			Retries:           5,
			Partitions:        8,
			ReplicationFactor: 1,
		},
		Objects: ObjectsConfig{Bucket: "dogicord", URLExpiry: 24 * time.Hour, MaxSize: 10 << 20},
		Nacos:   NacosConfig{Port: 8848, Group: "DEFAULT_GROUP", DataId: "dogicord.yaml", LogDir: "nacos/log", CacheDir: "nacos/cache", ServiceName: "dogicord-gateway"},
		Presence: PresenceConfig{
			HeartbeatEvery:  25 * time.Second,
			StaleAfter:      2 * time.Minute,
			KeyTTL:          2 * time.Minute,
			BreadcrumbTTL:   24 * time.Hour,
			SweepEvery:      time.Minute,
			ReconnectNotice: true,
		},
		Notify: NotifyConfig{
			ToastTimeout:          5 * time.Second,
			PermissionPromptDelay: 1500 * time.Millisecond,
			WelcomeDelay:          4 * time.Second,
			WelcomeEnabled:        true,
			DedupTTL:              10 * time.Minute,
			FriendsCacheTTL:       5 * time.Minute,
		},
		Gateway: GatewayConfig{
			SendQueue:  256,
			MaxPerUser: 5,
			ReadLimit:  64 << 10,
			PongWait:   60 * time.Second,
			WriteWait:  10 * time.Second,
			FrameRate:  20,
			FrameBurst: 40,
		},
	}
}

// Normalize 修正越界值
func (c *AppConfig) Normalize() {
	d := Default()
	p := &c.Presence
	if p.HeartbeatEvery < 20*time.Second || p.HeartbeatEvery > 30*time.Second {
		p.HeartbeatEvery = d.Presence.HeartbeatEvery
	}
	if p.StaleAfter <= 0 {
		p.StaleAfter = d.Presence.StaleAfter
	}
	if p.KeyTTL <= 0 {
		p.KeyTTL = p.StaleAfter
	}
	if p.BreadcrumbTTL <= 0 {
		p.BreadcrumbTTL = d.Presence.BreadcrumbTTL
	}
	if p.SweepEvery <= 0 {
		p.SweepEvery = d.Presence.SweepEvery
	}
	if c.Notify.ToastTimeout <= 0 {
		c.Notify.ToastTimeout = d.Notify.ToastTimeout
	}
	if c.Notify.DedupTTL <= 0 {
		c.Notify.DedupTTL = d.Notify.DedupTTL
	}
	if c.Notify.FriendsCacheTTL <= 0 {
		c.Notify.FriendsCacheTTL = d.Notify.FriendsCacheTTL
	}
	if c.Gateway.SendQueue <= 0 {
		c.Gateway.SendQueue = d.Gateway.SendQueue
	}
	if c.Gateway.FrameRate <= 0 {
		c.Gateway.FrameRate = d.Gateway.FrameRate
	}
	if c.Gateway.FrameBurst <= 0 {
		c.Gateway.FrameBurst = d.Gateway.FrameBurst
	}
	if c.Gateway.PongWait <= 0 {
		c.Gateway.PongWait = d.Gateway.PongWait
	}
	if c.Gateway.WriteWait <= 0 {
		c.Gateway.WriteWait = d.Gateway.WriteWait
	}
}
