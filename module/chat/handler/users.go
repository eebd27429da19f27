package handler

import (
	"time"

	"DogiCord/tools/errs"
	"DogiCord/tools/resp"

	"github.com/gin-gonic/gin"
)

type registerReq struct {
	Username string `json:"username" binding:"required"`
	Display  string `json:"display"`
}

type registerResp struct {
	User     any       `json:"user"`
	Token    string    `json:"token"`
	ExpireAt time.Time `json:"expire_at"`
}

// RegisterUser POST /api/v1/users
func (h *Handler) RegisterUser(c *gin.Context) {
	req, ok := bind[registerReq](c)
	if !ok {
		return
	}
	u, err := h.opts.Chat.Users.Register(c.Request.Context(), req.Username, req.Display)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	if h.opts.Issue == nil {
		resp.Fail(c, errs.ErrInternalServer.WrapMsg("token issuer not configured"))
		return
	}
	token, exp, err := h.opts.Issue(u.Username, h.opts.Clock())
	if err != nil {
		resp.Fail(c, errs.WrapMsg(err, "issue token", "user", u.Username))
		return
	}
	resp.Created(c, registerResp{User: u, Token: token, ExpireAt: exp})
}

// Me GET /api/v1/users/me
func (h *Handler) Me(c *gin.Context) {
	u, err := h.opts.Chat.Users.Get(c.Request.Context(), me(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, u)
}

// GetUser 只返回公开字段
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.opts.Chat.Users.Get(c.Request.Context(), c.Param("username"))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, gin.H{"username": u.Username, "display": u.Display, "avatar_url": u.AvatarURL})
}
