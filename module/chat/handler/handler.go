package handler

import (
	"context"
	"strconv"
	"time"

	"DogiCord/middleware"
	midsec "DogiCord/middleware/security"
	"DogiCord/module/chat/service"
	"DogiCord/module/presence"
	"DogiCord/tools/errs"
	"DogiCord/tools/resp"

	"github.com/gin-gonic/gin"
)

// PresenceReader 在线状态查询（*presence.Observer）
type PresenceReader interface {
	Online(ctx context.Context, user string) (presence.Record, bool, error)
}

// TokenIssuer 注册成功后签发会话令牌
type TokenIssuer func(user string, now time.Time) (token string, expireAt time.Time, err error)

type Options struct {
	Chat     *service.Chat
	Presence PresenceReader
	Writer   presence.Writer
	Crumbs   presence.Breadcrumbs
	Issue    TokenIssuer
	// 上传大小上限（字节）
	MaxUpload int64
	Clock     func() time.Time
}

type Handler struct {
	opts Options
}

func New(opts Options) *Handler {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = 10 << 20
	}
	return &Handler{opts: opts}
}

// Register 挂载 /api/v1 下的全部路由；鉴权中间件需先 middleware.SetAuth
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api/v1")
	auth := middleware.RouteOpt{IsAuth: true}

	middleware.POST(api, "/users", h.RegisterUser, middleware.RouteOpt{})
	middleware.GET(api, "/users/me", h.Me, auth)
	middleware.GET(api, "/users/:username", h.GetUser, auth)

	middleware.POST(api, "/friends/requests", h.SendFriendRequest, auth)
	middleware.GET(api, "/friends/requests", h.PendingRequests, auth)
	middleware.POST(api, "/friends/requests/:id/accept", h.AcceptRequest, auth)
	middleware.POST(api, "/friends/requests/:id/reject", h.RejectRequest, auth)
	middleware.GET(api, "/friends", h.ListFriends, auth)
	middleware.DELETE(api, "/friends/:username", h.RemoveFriend, auth)

	middleware.POST(api, "/messages", h.SendMessage, auth)
	middleware.GET(api, "/messages/:peer", h.Conversation, auth)
	middleware.POST(api, "/messages/:peer/read", h.MarkRead, auth)
	middleware.DELETE(api, "/messages/:id", h.DeleteMessage, auth)

	middleware.POST(api, "/groups", h.CreateGroup, auth)
	middleware.GET(api, "/groups", h.ListGroups, auth)
	middleware.GET(api, "/groups/:id", h.GetGroup, auth)
	middleware.DELETE(api, "/groups/:id", h.DeleteGroup, auth)
	middleware.POST(api, "/groups/:id/members", h.AddMember, auth)
	middleware.DELETE(api, "/groups/:id/members/:username", h.RemoveMember, auth)
	middleware.POST(api, "/groups/:id/leave", h.LeaveGroup, auth)
	middleware.POST(api, "/groups/:id/messages", h.SendGroupMessage, auth)
	middleware.GET(api, "/groups/:id/messages", h.GroupMessages, auth)

	middleware.GET(api, "/blocks", h.ListBlocked, auth)
	middleware.PUT(api, "/blocks/:username", h.Block, auth)
	middleware.DELETE(api, "/blocks/:username", h.Unblock, auth)
	middleware.GET(api, "/blocks/:username", h.BlockStatus, auth)

	middleware.GET(api, "/mutes", h.GetMutes, auth)
	middleware.PUT(api, "/mutes/:kind/:id", h.Mute, auth)
	middleware.DELETE(api, "/mutes/:kind/:id", h.Unmute, auth)

	middleware.POST(api, "/uploads/images", h.UploadImage, auth)

	middleware.GET(api, "/presence/:username", h.GetPresence, auth)
	middleware.POST(api, "/presence/offline", h.OfflineBeacon, auth)
}

func me(c *gin.Context) string { return midsec.Username(c) }

// bind JSON 请求体；失败直接写 400
func bind[T any](c *gin.Context) (*T, bool) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Fail(c, errs.ErrArgs.WrapMsg("bad request body", "err", err))
		return nil, false
	}
	return &req, true
}

func limitParam(c *gin.Context) int64 {
	n, err := strconv.ParseInt(c.Query("limit"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
