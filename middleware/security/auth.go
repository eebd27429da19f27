package security

import (
	"strings"

	"DogiCord/tools/errs"
	"DogiCord/tools/resp"

	"github.com/gin-gonic/gin"
)

// context key
// 后续模块统一用这两个 key 读取
const (
	CtxTokenKey    = "authorization" // string
	CtxUsernameKey = "username"      // string
)

type Options struct {
	// 校验令牌，返回用户名（tools/security.Verify 的闭包）
	Verify func(token string) (string, error)
	// 读取哪个请求头
	HeaderToken               string // 默认 "authorization"
	EnableAuthorizationBearer bool   // 默认 true
	// sendBeacon 无法带请求头，允许 ?token=
	EnableQueryToken bool // 默认 true
}

func DefaultOptions(verify func(string) (string, error)) *Options {
	return &Options{
		Verify:                    verify,
		HeaderToken:               CtxTokenKey,
		EnableAuthorizationBearer: true,
		EnableQueryToken:          true,
	}
}

// TokenFrom 按 header -> Bearer -> query 的顺序取令牌
func TokenFrom(c *gin.Context, opts *Options) string {
	token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))
	// 兼容 Authorization: Bearer xxx
	if opts.EnableAuthorizationBearer {
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
	}
	if token == "" && opts.EnableQueryToken {
		token = strings.TrimSpace(c.Query("token"))
	}
	return token
}

func Middleware(opts *Options) gin.HandlerFunc {
	if opts == nil || opts.Verify == nil {
		panic("security.Middleware: Verify is required")
	}
	return func(c *gin.Context) {
		token := TokenFrom(c, opts)
		if token == "" {
			resp.Fail(c, errs.ErrTokenInvalid.WrapMsg("missing token"))
			return
		}
		user, err := opts.Verify(token)
		if err != nil {
			resp.Fail(c, errs.ErrTokenInvalid.WrapMsg("verify token"))
			return
		}
		c.Set(CtxTokenKey, token)
		c.Set(CtxUsernameKey, user)
		c.Next()
	}
}

// Username 已鉴权请求的用户名
func Username(c *gin.Context) string {
	return c.GetString(CtxUsernameKey)
}
