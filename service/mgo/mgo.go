package mgo

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	mgo "DogiCord/data/database/mgo/mongoutil"
	"DogiCord/logger"
	"DogiCord/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MongoManager 后台建连（指数退避）+ 健康检查；连上后由驱动自身负责重连，
// 已分发出去的 *mongo.Database 始终有效
type MongoManager struct {
	cfg *mgo.Config

	mu        sync.RWMutex
	client    *mgo.Client
	readyCh   chan struct{} // 首次就绪通知；只会被 close 一次
	readyOnce sync.Once

	lastErr atomic.Value // error
}

func NewMongoManager(cfg *mgo.Config) *MongoManager {
	return &MongoManager{cfg: cfg, readyCh: make(chan struct{})}
}

// StartAsync 一直运行到 ctx.Done()；首次连上时 close readyCh
func (m *MongoManager) StartAsync(ctx context.Context) {
	go func() {
		const (
			baseBackoff = 200 * time.Millisecond
			maxBackoff  = 5 * time.Second
			healthEvery = 10 * time.Second // 健康检查周期
			failThresh  = 3                // 连续失败阈值
		)

		// ===== 连接阶段（带退避重试） =====
		for attempt := 0; ; {
			select {
			case <-ctx.Done():
				return
			default:
			}

			cli, err := mgo.NewMongoDB(ctx, m.cfg)
			if err == nil {
				m.mu.Lock()
				m.client = cli
				m.mu.Unlock()
				m.readyOnce.Do(func() { close(m.readyCh) })
				logger.Info("[Mongo] connected", zap.String("database", m.cfg.Database))
				break
			}

			m.lastErr.Store(err)
			logger.Warn("[Mongo] connect failed", zap.Int("attempt", attempt), zap.Error(err))

			// 退避 + 抖动
			backoff := baseBackoff << attempt
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1)) // 0~20%
			timer := time.NewTimer(backoff - jitter/2)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if attempt < 6 {
				attempt++
			}
		}

		// ===== 健康检查阶段 =====
		m.healthLoop(ctx, healthEvery, failThresh)
	}()
}

func (m *MongoManager) healthLoop(ctx context.Context, every time.Duration, failThresh int) {
	fail := 0
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			if m.client != nil {
				_ = m.client.Disconnect(context.Background())
			}
			m.mu.Unlock()
			return
		case <-t.C:
			m.mu.RLock()
			c := m.client
			m.mu.RUnlock()
			if err := c.Ping(ctx); err != nil {
				fail++
				m.lastErr.Store(err)
				if fail == failThresh {
					logger.Warn("[Mongo] health check failing", zap.Int("fails", fail), zap.Error(err))
				}
				continue
			}
			if fail >= failThresh {
				logger.Info("[Mongo] health check recovered")
			}
			fail = 0
		}
	}
}

// Ready 首次连接成功时会 close
func (m *MongoManager) Ready() <-chan struct{} {
	return m.readyCh
}

// Err 最近一次错误
func (m *MongoManager) Err() error {
	if v := m.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func (m *MongoManager) TryGetDB() (*mongo.Database, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, false
	}
	return m.client.GetDB(), true
}

// WaitReady 阻塞到首次连上或 ctx 结束
func (m *MongoManager) WaitReady(ctx context.Context) (*mongo.Database, error) {
	select {
	case <-m.readyCh:
	case <-ctx.Done():
		return nil, errs.WrapMsg(ctx.Err(), "wait mongo ready", "lastErr", m.Err())
	}
	if db, ok := m.TryGetDB(); ok {
		return db, nil
	}
	return nil, errs.New("mongo connection lost")
}
