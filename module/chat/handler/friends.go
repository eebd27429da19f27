package handler

import (
	"DogiCord/tools/resp"

	"github.com/gin-gonic/gin"
)

type friendReq struct {
	To string `json:"to" binding:"required"`
}

func (h *Handler) SendFriendRequest(c *gin.Context) {
	req, ok := bind[friendReq](c)
	if !ok {
		return
	}
	r, err := h.opts.Chat.Friends.SendRequest(c.Request.Context(), me(c), req.To)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.Created(c, r)
}

func (h *Handler) PendingRequests(c *gin.Context) {
	rs, err := h.opts.Chat.Friends.Pending(c.Request.Context(), me(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, rs)
}

func (h *Handler) AcceptRequest(c *gin.Context) {
	r, err := h.opts.Chat.Friends.Accept(c.Request.Context(), me(c), c.Param("id"))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, r)
}

func (h *Handler) RejectRequest(c *gin.Context) {
	if err := h.opts.Chat.Friends.Reject(c.Request.Context(), me(c), c.Param("id")); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, nil)
}

func (h *Handler) ListFriends(c *gin.Context) {
	fs, err := h.opts.Chat.Friends.List(c.Request.Context(), me(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, fs)
}

func (h *Handler) RemoveFriend(c *gin.Context) {
	if err := h.opts.Chat.Friends.Remove(c.Request.Context(), me(c), c.Param("username")); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, nil)
}
