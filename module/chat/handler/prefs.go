package handler

import (
	"DogiCord/module/chat/model"
	"DogiCord/tools/errs"
	"DogiCord/tools/resp"

	"github.com/gin-gonic/gin"
)

// ---- 屏蔽 ----

func (h *Handler) ListBlocked(c *gin.Context) {
	us, err := h.opts.Chat.Blocks.Blocked(c.Request.Context(), me(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, us)
}

func (h *Handler) Block(c *gin.Context) {
	if err := h.opts.Chat.Blocks.Block(c.Request.Context(), me(c), c.Param("username")); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, nil)
}

func (h *Handler) Unblock(c *gin.Context) {
	if err := h.opts.Chat.Blocks.Unblock(c.Request.Context(), me(c), c.Param("username")); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, nil)
}

// BlockStatus 双向屏蔽状态，前端据此禁用输入框
func (h *Handler) BlockStatus(c *gin.Context) {
	st, err := h.opts.Chat.Blocks.Status(c.Request.Context(), me(c), c.Param("username"))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, st)
}

// ---- 静音 ----

func (h *Handler) GetMutes(c *gin.Context) {
	p, err := h.opts.Chat.Mutes.Get(c.Request.Context(), me(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, p)
}

func (h *Handler) Mute(c *gin.Context)   { h.setMute(c, true) }
func (h *Handler) Unmute(c *gin.Context) { h.setMute(c, false) }

// setMute PUT/DELETE /api/v1/mutes/{group|user}/:id
func (h *Handler) setMute(c *gin.Context, muted bool) {
	ctx, user, id := c.Request.Context(), me(c), c.Param("id")
	mutes := h.opts.Chat.Mutes
	var err error
	switch model.MuteKind(c.Param("kind")) {
	case model.MuteKindGroup:
		if muted {
			err = mutes.MuteGroup(ctx, user, id)
		} else {
			err = mutes.UnmuteGroup(ctx, user, id)
		}
	case model.MuteKindUser:
		if muted {
			err = mutes.MuteUser(ctx, user, id)
		} else {
			err = mutes.UnmuteUser(ctx, user, id)
		}
	default:
		err = errs.ErrArgs.WrapMsg("unknown mute kind", "kind", c.Param("kind"))
	}
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, nil)
}
