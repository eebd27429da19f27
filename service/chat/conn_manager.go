package chat

import (
	"sync"
	"time"

	"DogiCord/tools/errs"
)

// ===== 配置 =====

type ManagerConf struct {
	MaxPerUser  int              // 每用户最大会话数（<=0 不限制）
	EvictOldest bool             // 超限时淘汰最老会话（否则 Add 直接报错）
	Clock       func() time.Time // 可注入时钟（单测用）；nil => time.Now
}

func (c *ManagerConf) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

var ErrTooManySessions = errs.NewCodeError(errs.RateLimitError, "too many sessions for user")

// ===== 数据结构 =====

type entry struct {
	s         *Session
	createdAt time.Time
}

// ConnManager 本节点上的会话索引：sessionID -> 会话，user -> 会话集合
type ConnManager struct {
	mu     sync.RWMutex
	byID   map[string]*entry
	byUser map[string]map[string]*entry

	conf ManagerConf
	gwId string // 节点ID
}

func NewConnManager(gwId string) *ConnManager {
	return NewConnManagerWithConf(ManagerConf{EvictOldest: true}, gwId)
}

func NewConnManagerWithConf(conf ManagerConf, gwId string) *ConnManager {
	conf.norm()
	return &ConnManager{
		byID:   make(map[string]*entry),
		byUser: make(map[string]map[string]*entry),
		conf:   conf,
		gwId:   gwId,
	}
}

func (m *ConnManager) GwId() string {
	return m.gwId
}

// Add 登记已鉴权会话；超过 MaxPerUser 时按配置淘汰最老的（返回给调用方在锁外关闭）或报错
func (m *ConnManager) Add(s *Session) (evicted *Session, err error) {
	if s == nil || s.ID == "" || s.User == "" {
		return nil, errs.ErrArgs.WrapMsg("session/id/user empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[s.ID]; exists {
		return nil, errs.ErrArgs.WrapMsg("session id exists", "id", s.ID)
	}
	if m.conf.MaxPerUser > 0 && len(m.byUser[s.User]) >= m.conf.MaxPerUser {
		if !m.conf.EvictOldest {
			return nil, ErrTooManySessions.WrapMsg("", "user", s.User, "max", m.conf.MaxPerUser)
		}
		evicted = m.oldestLocked(s.User)
		if evicted != nil {
			m.removeLocked(evicted)
		}
	}

	e := &entry{s: s, createdAt: m.conf.Clock()}
	m.byID[s.ID] = e
	if m.byUser[s.User] == nil {
		m.byUser[s.User] = make(map[string]*entry)
	}
	m.byUser[s.User][s.ID] = e
	return evicted, nil
}

// Remove 移除会话；返回该用户在本节点上剩余的会话数。
// 会话不在索引中（已被淘汰）时 ok=false。
func (m *ConnManager) Remove(s *Session) (remaining int, ok bool) {
	if s == nil {
		return 0, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, exists := m.byID[s.ID]
	if !exists || e.s != s {
		return len(m.byUser[s.User]), false
	}
	m.removeLocked(s)
	return len(m.byUser[s.User]), true
}

func (m *ConnManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return e.s, true
}

// Sessions 某用户全部会话
func (m *ConnManager) Sessions(user string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.byUser[user]))
	for _, e := range m.byUser[user] {
		out = append(out, e.s)
	}
	return out
}

func (m *ConnManager) Count(user string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[user])
}

func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// Close 关闭所有会话
func (m *ConnManager) Close() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.byID))
	for _, e := range m.byID {
		all = append(all, e.s)
	}
	m.byID = map[string]*entry{}
	m.byUser = map[string]map[string]*entry{}
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}

// ===== 内部 =====

// 需要在持锁状态下调用（*Locked）
func (m *ConnManager) removeLocked(s *Session) {
	delete(m.byID, s.ID)
	if mm := m.byUser[s.User]; mm != nil {
		delete(mm, s.ID)
		if len(mm) == 0 {
			delete(m.byUser, s.User)
		}
	}
}

func (m *ConnManager) oldestLocked(user string) *Session {
	var oldest *entry
	for _, e := range m.byUser[user] {
		if oldest == nil || e.createdAt.Before(oldest.createdAt) {
			oldest = e
		}
	}
	if oldest == nil {
		return nil
	}
	return oldest.s
}
