package chat

import (
	"sync"

	"DogiCord/logger"
	"DogiCord/tools/errs"

	"go.uber.org/zap"
)

var errHelloRequired = errs.NewCodeError(errs.ArgsError, "hello frame required first")

type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register 同类型后注册的覆盖先注册的
func (d *Dispatcher) Register(hs ...Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, h := range hs {
		d.handlers[h.Type()] = h
	}
}

func (d *Dispatcher) GetHandler(typ string) Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[typ]
	if !ok {
		logger.Debug("[Dispatcher] no handler", zap.String("type", typ))
		return nil
	}
	return h
}

// Dispatch hello 之前只接受 hello
func (d *Dispatcher) Dispatch(s *Session, f Frame) error {
	if f.Type != FrameHello && !s.Ready() {
		return errHelloRequired.WrapMsg("", "type", f.Type)
	}
	h := d.GetHandler(f.Type)
	if h == nil {
		return errs.ErrArgs.WrapMsg("no handler for frame", "type", f.Type)
	}
	return h.Handle(s, f)
}
