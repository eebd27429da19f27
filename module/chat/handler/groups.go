package handler

import (
	"DogiCord/module/chat/model"
	"DogiCord/module/chat/service"
	"DogiCord/tools/resp"

	"github.com/gin-gonic/gin"
)

type createGroupReq struct {
	Name    string   `json:"name" binding:"required"`
	Members []string `json:"members"`
}

type memberReq struct {
	Username string `json:"username" binding:"required"`
}

type groupMessageReq struct {
	Text     string         `json:"text"`
	ImageKey string         `json:"image_key"`
	ReplyTo  *model.ReplyTo `json:"reply_to"`
}

func (h *Handler) CreateGroup(c *gin.Context) {
	req, ok := bind[createGroupReq](c)
	if !ok {
		return
	}
	g, err := h.opts.Chat.Groups.Create(c.Request.Context(), me(c), req.Name, req.Members)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.Created(c, g)
}

func (h *Handler) ListGroups(c *gin.Context) {
	gs, err := h.opts.Chat.Groups.List(c.Request.Context(), me(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, gs)
}

func (h *Handler) GetGroup(c *gin.Context) {
	g, err := h.opts.Chat.Groups.Get(c.Request.Context(), me(c), c.Param("id"))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, g)
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	if err := h.opts.Chat.Groups.Delete(c.Request.Context(), me(c), c.Param("id")); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, nil)
}

func (h *Handler) AddMember(c *gin.Context) {
	req, ok := bind[memberReq](c)
	if !ok {
		return
	}
	if err := h.opts.Chat.Groups.AddMember(c.Request.Context(), me(c), c.Param("id"), req.Username); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, nil)
}

func (h *Handler) RemoveMember(c *gin.Context) {
	if err := h.opts.Chat.Groups.RemoveMember(c.Request.Context(), me(c), c.Param("id"), c.Param("username")); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, nil)
}

func (h *Handler) LeaveGroup(c *gin.Context) {
	if err := h.opts.Chat.Groups.Leave(c.Request.Context(), me(c), c.Param("id")); err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, nil)
}

func (h *Handler) SendGroupMessage(c *gin.Context) {
	req, ok := bind[groupMessageReq](c)
	if !ok {
		return
	}
	m, err := h.opts.Chat.Groups.Send(c.Request.Context(), service.SendGroupMessage{
		From:     me(c),
		GroupID:  c.Param("id"),
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

func (h *Handler) GroupMessages(c *gin.Context) {
	ms, err := h.opts.Chat.Groups.Messages(c.Request.Context(), me(c), c.Param("id"), limitParam(c))
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.OK(c, ms)
}
