package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
)

var (
	globalMgr *MiddlewareManager
	once      sync.Once
)

type namedMid struct {
	name string
	h    gin.HandlerFunc
}

// MiddlewareManager 按名字挂载全局中间件，运行中可整体替换某一项（例如 CORS 白名单热更新）
type MiddlewareManager struct {
	mu   sync.RWMutex
	mids []namedMid
}

// Config 启动时显式初始化（可选）
func Config() {
	once.Do(func() {
		globalMgr = NewManager()
	})
}

func NewManager() *MiddlewareManager {
	return &MiddlewareManager{}
}

// Manager 全局实例，惰性初始化
func Manager() *MiddlewareManager {
	once.Do(func() {
		if globalMgr == nil {
			globalMgr = NewManager()
		}
	})
	return globalMgr
}

// Set 同名替换（保持原位置），否则追加到末尾
func (m *MiddlewareManager) Set(name string, h gin.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.mids {
		if m.mids[i].name == name {
			m.mids[i].h = h
			return
		}
	}
	m.mids = append(m.mids, namedMid{name: name, h: h})
}

// Remove 返回是否存在
func (m *MiddlewareManager) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.mids {
		if m.mids[i].name == name {
			m.mids = append(m.mids[:i], m.mids[i+1:]...)
			return true
		}
	}
	return false
}

func (m *MiddlewareManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.mids))
	for _, nm := range m.mids {
		out = append(out, nm.name)
	}
	return out
}

func (m *MiddlewareManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mids = nil
}

// Use 挂到 Engine 上的总控；每个请求拿一份快照，某项 Abort 后不再往下走
func (m *MiddlewareManager) Use() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.mu.RLock()
		snap := make([]gin.HandlerFunc, len(m.mids))
		for i, nm := range m.mids {
			snap[i] = nm.h
		}
		m.mu.RUnlock()

		for _, h := range snap {
			h(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}
