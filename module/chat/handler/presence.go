package handler

import (
	"context"
	"net/http"
	"time"

	"DogiCord/logger"
	"DogiCord/tools/errs"
	"DogiCord/tools/resp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type presenceResp struct {
	Username string    `json:"username"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// GetPresence online 由 last_seen + 阈值推导，和 websocket 观察者一致
func (h *Handler) GetPresence(c *gin.Context) {
	if h.opts.Presence == nil {
		resp.Fail(c, errs.ErrInternalServer.WrapMsg("presence not configured"))
		return
	}
	user := c.Param("username")
	rec, online, err := h.opts.Presence.Online(c.Request.Context(), user)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, presenceResp{Username: user, Online: online, LastSeen: rec.LastSeen})
}

// OfflineBeacon POST /api/v1/presence/offline：页面关闭时 sendBeacon 的目标。
// 与 tracker 的 unload 一样先写 breadcrumb 再写离线；写失败只记日志。
func (h *Handler) OfflineBeacon(c *gin.Context) {
	user := me(c)
	at := h.opts.Clock()
	// 请求可能随页面一起被取消，写入不跟随请求 ctx
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if h.opts.Crumbs != nil {
		if err := h.opts.Crumbs.PutBreadcrumb(ctx, user, at); err != nil {
			logger.Warn("[Beacon] write breadcrumb failed", zap.String("user", user), zap.Error(err))
		}
	}
	if h.opts.Writer != nil {
		if err := h.opts.Writer.WritePresence(ctx, user, false, at); err != nil {
			logger.Warn("[Beacon] write offline failed", zap.String("user", user), zap.Error(err))
		}
	}
	c.Status(http.StatusNoContent)
}
