package natsx

import (
	"context"

	"DogiCord/logger"
	"DogiCord/tools/errs"

	"go.uber.org/zap"
)

// NatsxMessage 统一消息对象
type NatsxMessage struct {
	Subject string
	Data    []byte
	Header  map[string]string
}

// NatsxHandler 业务处理函数
type NatsxHandler func(ctx context.Context, msg NatsxMessage) error

// NatsxMiddleware 中间件（日志、恢复、去重等）
type NatsxMiddleware func(NatsxHandler) NatsxHandler

// NatsxChain 组合中间件
func NatsxChain(h NatsxHandler, mws ...NatsxMiddleware) NatsxHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// NatsxRecoverMiddleware handler panic 转成 error
func NatsxRecoverMiddleware() NatsxMiddleware {
	return func(next NatsxHandler) NatsxHandler {
		return func(ctx context.Context, msg NatsxMessage) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("[NATS] handler panic", zap.String("subject", msg.Subject), zap.Any("panic", r))
					err = errs.ErrPanic(r)
				}
			}()
			return next(ctx, msg)
		}
	}
}
