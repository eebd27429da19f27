package chat

import (
	"net"
	"strings"
	"time"

	"DogiCord/logger"
	"DogiCord/tools/errs"
	"DogiCord/tools/resp"
	"DogiCord/tools/safe"
	"DogiCord/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// tokenFrom ?token= 优先（浏览器 websocket 不能带头），其次 Authorization: Bearer
func tokenFrom(c *gin.Context) string {
	if t := strings.TrimSpace(c.Query("token")); t != "" {
		return t
	}
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

// HandleWS GET /ws?token=
func (s *Server) HandleWS(c *gin.Context) {
	token := tokenFrom(c)
	if token == "" || s.deps.Verify == nil {
		resp.Fail(c, errs.ErrTokenInvalid.WrapMsg("missing token"))
		return
	}
	user, err := s.deps.Verify(token)
	if err != nil {
		logger.Info("[HandleWS] token rejected", zap.String("fp", security.Fingerprint(token)), zap.Error(err))
		resp.Fail(c, errs.ErrTokenInvalid.WrapMsg("verify token"))
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败；Upgrade 已经写过响应
		logger.Info("[HandleWS] upgrade websocket error", zap.Error(err))
		return
	}

	sess := newSession(s, ws, user)
	evicted, err := s.connMgr.Add(sess)
	if err != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many sessions"),
			time.Now().Add(sess.opts.WriteWait))
		sess.Close()
		_ = ws.Close()
		return
	}
	if evicted != nil {
		logger.Info("[HandleWS] evict oldest session",
			zap.String("user", user), zap.String("session", evicted.ID))
		evicted.SendError("", ErrTooManySessions.WrapMsg("evicted by a newer session"))
		evicted.Close()
	}
	logger.Info("[HandleWS] session opened",
		zap.String("session", sess.ID), zap.String("user", user), zap.String("remote", sess.Remote))

	safe.SafeGo("ws-writer:"+sess.ID, sess.writeLoop)
	sess.readLoop()

	// ---- 退出阶段：释放会话资源；本节点最后一个会话断开时写离线 ----
	wasReady := sess.Ready()
	sess.Close()
	remaining, ok := s.connMgr.Remove(sess)
	if ok && remaining == 0 && wasReady {
		s.lastSessionClosed(user)
	}
	logger.Info("[HandleWS] session closed",
		zap.String("session", sess.ID), zap.String("user", user), zap.Int("remaining", remaining))
}

// readLoop 只读，不写；出错即退出（写协程收尾）
func (s *Session) readLoop() {
	opts := s.opts
	ws := s.conn
	ws.SetReadLimit(opts.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(opts.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debug("[WS] peer closed", zap.String("session", s.ID), zap.Error(rerr))
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Info("[WS] read timeout", zap.String("session", s.ID), zap.Error(rerr))
			} else {
				logger.Debug("[WS] read err", zap.String("session", s.ID), zap.Error(rerr))
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(opts.PongWait))
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		f, perr := ParseFrameJSON(data)
		if perr != nil {
			// 只打印简短样本
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Info("[WS] ParseFrameJSON err", zap.String("session", s.ID),
				zap.ByteString("sample", sample), zap.Int("len", len(data)), zap.Error(perr))
			s.SendError("", perr)
			continue
		}
		if !s.Allow() {
			s.SendError(f.ID, errs.ErrRateLimited.WrapMsg("inbound frame rate exceeded", "type", f.Type))
			continue
		}
		if err := safe.Call(func() error { return s.srv.disp.Dispatch(s, f) }); err != nil {
			logger.Debug("[WS] handler error",
				zap.String("session", s.ID), zap.String("type", f.Type), zap.Error(err))
			s.SendError(f.ID, err)
		}
		select {
		case <-s.done:
			return
		default:
		}
	}
}

// writeLoop 唯一的写协程：业务帧 + 定时 ping
func (s *Session) writeLoop() {
	opts := s.opts
	ws := s.conn
	ticker := time.NewTicker(opts.pingEvery())
	defer func() {
		ticker.Stop()
		s.Close()
		_ = ws.Close()
	}()

	for {
		select {
		case payload := <-s.send:
			_ = ws.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("[WS] write payload err", zap.String("session", s.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(opts.WriteWait)); err != nil {
				logger.Debug("[WS] ping err", zap.String("session", s.ID), zap.Error(err))
				return
			}
		case <-s.done:
			s.flush()
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(opts.WriteWait))
			return
		}
	}
}

// flush 关闭前尽量把队列里剩下的帧写出去
func (s *Session) flush() {
	deadline := time.Now().Add(s.opts.WriteWait)
	for {
		select {
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(deadline)
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		default:
			return
		}
	}
}
