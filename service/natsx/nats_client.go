package natsx

import (
	"strings"
	"sync"
	"time"

	"DogiCord/logger"
	"DogiCord/tools/errs"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NatsxConfig 客户端配置
type NatsxConfig struct {
	Servers       []string
	Name          string
	User          string
	Password      string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// NatsxClient 统一客户端：一条连接 + 登记的订阅（Close 时统一 Drain）
type NatsxClient struct {
	cfg NatsxConfig
	nc  *nats.Conn

	mu   sync.Mutex
	subs map[*nats.Subscription]struct{}
}

// NewNatsxClient 连接 NATS
func NewNatsxClient(cfg NatsxConfig) (*NatsxClient, error) {
	if len(cfg.Servers) == 0 {
		return nil, errs.ErrArgs.WrapMsg("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("[NATS] disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("[NATS] reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errs.WrapMsg(err, "connect nats", "servers", strings.Join(cfg.Servers, ","))
	}
	return &NatsxClient{
		cfg:  cfg,
		nc:   nc,
		subs: make(map[*nats.Subscription]struct{}),
	}, nil
}

// Close 优雅关闭
func (c *NatsxClient) Close() error {
	c.mu.Lock()
	for sub := range c.subs {
		_ = sub.Drain()
		delete(c.subs, sub)
	}
	c.mu.Unlock()
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}

func (c *NatsxClient) track(sub *nats.Subscription) {
	c.mu.Lock()
	c.subs[sub] = struct{}{}
	c.mu.Unlock()
}

func (c *NatsxClient) untrack(sub *nats.Subscription) {
	c.mu.Lock()
	delete(c.subs, sub)
	c.mu.Unlock()
}

func (c *NatsxClient) sendCore(subject string, data []byte, hdr map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Set(k, v)
	}
	return c.nc.PublishMsg(msg)
}
