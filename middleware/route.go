package middleware

import (
	"sync"

	midsec "DogiCord/middleware/security"

	"github.com/gin-gonic/gin"
)

// 配置选项
type RouteOpt struct {
	IsAuth bool
}

var (
	authMu sync.RWMutex
	authMw gin.HandlerFunc
)

// SetAuth 启动时注入鉴权中间件
func SetAuth(opts *midsec.Options) {
	authMu.Lock()
	defer authMu.Unlock()
	authMw = midsec.Middleware(opts)
}

func chain(handler gin.HandlerFunc, opt RouteOpt) []gin.HandlerFunc {
	if !opt.IsAuth {
		return []gin.HandlerFunc{handler}
	}
	authMu.RLock()
	mw := authMw
	authMu.RUnlock()
	if mw == nil {
		panic("middleware: SetAuth must be called before registering auth routes")
	}
	return []gin.HandlerFunc{mw, handler}
}

// 封装 POST
func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.POST(path, chain(handler, opt)...)
}

// 封装 GET
func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.GET(path, chain(handler, opt)...)
}

func PUT(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.PUT(path, chain(handler, opt)...)
}

func DELETE(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	r.DELETE(path, chain(handler, opt)...)
}
