package scope

import (
	"fmt"
	"sync"

	"DogiCord/logger"

	"go.uber.org/zap"
)

// Scope 绑定一组释放函数到某个生命周期（会话/组件），Close 时按 LIFO 全部释放。
// Close 之后再 Add 的释放函数会被立即执行，不会泄漏。
type Scope struct {
	name string

	mu       sync.Mutex
	releases []func()
	closed   bool
}

func New(name string) *Scope {
	return &Scope{name: name}
}

// Add 注册释放函数；nil 忽略
func (s *Scope) Add(release func()) {
	if release == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.call(release)
		return
	}
	s.releases = append(s.releases, release)
	s.mu.Unlock()
}

// Closed 是否已关闭
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Len 当前挂着的释放函数数量
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.releases)
}

// Close 幂等
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	rs := s.releases
	s.releases = nil
	s.mu.Unlock()

	for i := len(rs) - 1; i >= 0; i-- {
		s.call(rs[i])
	}
}

func (s *Scope) call(release func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Scope] release panic",
				zap.String("scope", s.name), zap.String("panic", fmt.Sprint(r)))
		}
	}()
	release()
}

// Run 在一个新 scope 中执行 fn，无论正常返回、出错还是 panic 都会 Close
func Run(name string, fn func(s *Scope) error) error {
	s := New(name)
	defer s.Close()
	return fn(s)
}
