package handler

import (
	"DogiCord/module/chat/model"
	"DogiCord/module/chat/service"
	"DogiCord/tools/resp"

	"github.com/gin-gonic/gin"
)

type sendMessageReq struct {
	To       string         `json:"to" binding:"required"`
	Text     string         `json:"text"`
	ImageKey string         `json:"image_key"`
	ReplyTo  *model.ReplyTo `json:"reply_to"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	req, ok := bind[sendMessageReq](c)
	if !ok {
		return
	}
	m, err := h.opts.Chat.Messages.Send(c.Request.Context(), service.SendMessage{
		From:     me(c),
		To:       req.To,
		Text:     req.Text,
		ImageKey: req.ImageKey,
		ReplyTo:  req.ReplyTo,
	})
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.Created(c, m)
}

// Conversation GET /api/v1/messages/:peer?limit=
func (h *Handler) Conversation(c *gin.Context) {
	ms, err := h.opts.Chat.Messages.Conversation(c.Request.Context(), me(c), c.Param("peer"), limitParam(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, ms)
}

func (h *Handler) MarkRead(c *gin.Context) {
	n, err := h.opts.Chat.Messages.MarkRead(c.Request.Context(), me(c), c.Param("peer"))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, gin.H{"updated": n})
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	if err := h.opts.Chat.Messages.Delete(c.Request.Context(), me(c), c.Param("id")); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, nil)
}
