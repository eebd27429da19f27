package presence

import (
	"context"
	"sync"
	"time"

	"DogiCord/logger"
	"DogiCord/service/storage"
	"DogiCord/tools/safe"

	"go.uber.org/zap"
)

const sweepBatch = 500

// StaleIndex 按 last_seen 排序的在线索引（*storage.PresenceStore）
type StaleIndex interface {
	StaleOnline(ctx context.Context, cutoff time.Time, limit int64) ([]string, error)
	Get(ctx context.Context, user string) (storage.PresenceSnapshot, bool, error)
}

// Sweeper 定时把 online=true 但 last_seen 过期的用户写成离线
type Sweeper struct {
	idx        StaleIndex
	w          Writer
	staleAfter time.Duration
	every      time.Duration
	now        func() time.Time

	once sync.Once
	stop chan struct{}
}

func NewSweeper(idx StaleIndex, w Writer, staleAfter, every time.Duration) *Sweeper {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if every <= 0 {
		every = time.Minute
	}
	return &Sweeper{idx: idx, w: w, staleAfter: staleAfter, every: every, now: time.Now, stop: make(chan struct{})}
}

func (s *Sweeper) Start(ctx context.Context) {
	safe.SafeGo("presence-sweeper", func() {
		tk := time.NewTicker(s.every)
		defer tk.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-tk.C:
				n, err := s.SweepOnce(ctx)
				if err != nil {
					logger.Warn("[Sweeper] sweep failed", zap.Error(err))
				} else if n > 0 {
					logger.Info("[Sweeper] marked stale users offline", zap.Int("count", n))
				}
			}
		}
	})
}

func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// SweepOnce last_seen 保持原值（hash 已过期时取 cutoff），只把 online 置为 false
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(-s.staleAfter)
	users, err := s.idx.StaleOnline(ctx, cutoff, sweepBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, u := range users {
		snap, ok, err := s.idx.Get(ctx, u)
		if err != nil {
			logger.Warn("[Sweeper] get presence failed", zap.String("user", u), zap.Error(err))
			continue
		}
		at := cutoff
		if ok {
			// 列表和读取之间可能刚好有心跳
			if IsOnline(Record{Online: snap.Online, LastSeen: snap.LastSeen}, now, s.staleAfter) {
				continue
			}
			at = snap.LastSeen
		}
		if err := s.w.WritePresence(ctx, u, false, at); err != nil {
			logger.Warn("[Sweeper] write offline failed", zap.String("user", u), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}
