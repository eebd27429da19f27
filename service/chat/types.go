package chat

// Handler 处理一种入站帧
type Handler interface {
	Type() string
	Handle(s *Session, f Frame) error
}

// HandlerFunc 函数适配
type HandlerFunc struct {
	T  string
	Fn func(s *Session, f Frame) error
}

func (h HandlerFunc) Type() string                     { return h.T }
func (h HandlerFunc) Handle(s *Session, f Frame) error { return h.Fn(s, f) }
