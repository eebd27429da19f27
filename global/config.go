package global

import (
	"context"
	"strings"
	"time"

	"DogiCord/data/database/mgo/mongoutil"
	"DogiCord/global/config"
	"DogiCord/logger"
	mid "DogiCord/middleware"
	midsec "DogiCord/middleware/security"
	"DogiCord/module/chat/service"
	"DogiCord/module/chat/store"
	"DogiCord/service/feed"
	"DogiCord/service/kafka"
	mgoSrv "DogiCord/service/mgo"
	"DogiCord/service/natsx"
	"DogiCord/service/objects"
	redis "DogiCord/service/storage/redis"
	ids "DogiCord/tools/ids"
	"DogiCord/tools/security"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// MemoryURI mongo.uri 取该值时使用内存存储（单机开发）
const MemoryURI = "memory://"

// ChatStore 聊天持久层：*store.Store（Mongo）或 *store.Memory
type ChatStore interface {
	service.UserStore
	service.FriendStore
	service.MessageStore
	service.GroupStore
	service.BlockStore
	service.MuteStore
}

func ConfigIds(c config.AppConfig) {
	ids.SetNodeID(c.NodeId)
}

func JwtOptions(c config.AppConfig) security.Options {
	opts := security.DefaultOptions([]byte(c.Auth.Secret))
	if c.Auth.Alg != "" {
		opts.Alg = c.Auth.Alg
	}
	if c.Auth.TTL > 0 {
		opts.TTL = c.Auth.TTL
	}
	return opts
}

// 全局中间件名
const (
	MidAccess = "access"
	MidOrigin = "origin"
)

// ReloadMiddleware 可热更新的中间件（CORS 白名单）
func ReloadMiddleware(c config.AppConfig) {
	mid.Manager().Set(MidOrigin, mid.Origin(c.Gateway.AllowOrigins))
}

// ConfigMiddleware 全局中间件 + 路由鉴权
func ConfigMiddleware(c config.AppConfig) {
	mid.Config()
	mid.Manager().Set(MidAccess, mid.AccessLog())
	ReloadMiddleware(c)
	jwt := JwtOptions(c)
	mid.SetAuth(midsec.DefaultOptions(func(token string) (string, error) {
		return security.Verify(jwt, token)
	}))
}

// ConfigMgo 后台建连，等首次就绪后建索引；超时返回错误
func ConfigMgo(ctx context.Context, c config.AppConfig, wait time.Duration) (ChatStore, func(), error) {
	if c.Mongo.Uri == MemoryURI {
		logger.Warn("[Boot] using in-memory chat store; data is lost on restart")
		return store.NewMemory(), func() {}, nil
	}
	cfg := &mongoutil.Config{
		Uri:         c.Mongo.Uri,
		Address:     c.Mongo.Address,
		Database:    c.Mongo.Database,
		Username:    c.Mongo.Username,
		Password:    c.Mongo.Password,
		AuthSource:  c.Mongo.AuthSource,
		MaxPoolSize: c.Mongo.MaxPoolSize,
		MaxRetry:    c.Mongo.MaxRetry,
	}
	mctx, cancel := context.WithCancel(ctx)
	m := mgoSrv.NewMongoManager(cfg)
	m.StartAsync(mctx)

	wctx, wcancel := context.WithTimeout(ctx, wait)
	defer wcancel()
	db, err := m.WaitReady(wctx)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	st := store.NewStore(db)
	if err := st.EnsureIndexes(wctx); err != nil {
		cancel()
		return nil, nil, err
	}
	return st, cancel, nil
}

func ConfigRedis(ctx context.Context, c config.AppConfig) (*goredis.Client, error) {
	return redis.NewClient(ctx, redis.Config{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		PoolSize: c.Redis.PoolSize,
	})
}

// ConfigBus 配了 nats.servers 走 NATS，否则进程内总线
func ConfigBus(c config.AppConfig) (feed.Bus, func(), error) {
	if len(c.Nats.Servers) == 0 {
		logger.Info("[Boot] nats not configured, using local bus")
		return feed.NewLocalBus(), func() {}, nil
	}
	cli, err := natsx.NewNatsxClient(natsx.NatsxConfig{
		Servers:       c.Nats.Servers,
		Name:          c.Nats.Name,
		User:          c.Nats.User,
		Password:      c.Nats.Password,
		ReconnectWait: c.Nats.ReconnectWait,
		Timeout:       c.Nats.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("[Boot] nats connected", zap.String("servers", strings.Join(c.Nats.Servers, ",")))
	return feed.NewNatsBus(cli, c.Notify.DedupTTL), func() { _ = cli.Close() }, nil
}

// ConfigKafka 配了 brokers 才启用活动日志；返回 nil 表示不落 Kafka
func ConfigKafka(c config.AppConfig) (*kafka.EventLog, error) {
	if len(c.Kafka.Brokers) == 0 {
		logger.Info("[Boot] kafka not configured, activity log disabled")
		return nil, nil
	}
	kc := kafka.Config{
		Brokers:           c.Kafka.Brokers,
		Topic:             c.Kafka.Topic,
		Version:           c.Kafka.Version,
		Compression:       c.Kafka.Compression,
		Retries:           c.Kafka.Retries,
		Partitions:        c.Kafka.Partitions,
		ReplicationFactor: c.Kafka.ReplicationFactor,
		AutoCreateTopic:   c.Kafka.AutoCreateTopic,
	}
	if kc.AutoCreateTopic {
		if err := kafka.EnsureTopicWithBrokers(kc); err != nil {
			return nil, err
		}
	}
	p, err := kafka.NewSyncProducer(kc)
	if err != nil {
		return nil, err
	}
	return kafka.NewEventLog(p, kc.Topic), nil
}

// ConfigObjects 配了 endpoint 才启用图片上传；返回 nil 表示未启用
func ConfigObjects(ctx context.Context, c config.AppConfig) (*objects.Store, error) {
	if c.Objects.Endpoint == "" {
		logger.Info("[Boot] object storage not configured, uploads disabled")
		return nil, nil
	}
	st, err := objects.New(objects.Config{
		Endpoint:  c.Objects.Endpoint,
		AccessKey: c.Objects.AccessKey,
		SecretKey: c.Objects.SecretKey,
		Bucket:    c.Objects.Bucket,
		UseSSL:    c.Objects.UseSSL,
		URLExpiry: c.Objects.URLExpiry,
		MaxSize:   c.Objects.MaxSize,
	})
	if err != nil {
		return nil, err
	}
	if err := st.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return st, nil
}
