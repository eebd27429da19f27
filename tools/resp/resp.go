package resp

import (
	"net/http"

	"DogiCord/logger"
	"DogiCord/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Body 统一响应体：code=0 成功
type Body struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Msg: "ok", Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Msg: "created", Data: data})
}

// Fail CodeError -> HTTP 状态码 + JSON；非 CodeError 一律 500 并记日志
func Fail(c *gin.Context, err error) {
	ce := errs.AsCodeError(err)
	status := errs.HTTPStatus(ce.Code)
	if status >= http.StatusInternalServerError {
		logger.Error("[HTTP] internal error",
			zap.String("path", c.FullPath()), zap.String("method", c.Request.Method), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, Body{Code: ce.Code, Msg: ce.Msg, Detail: ce.Detail})
}

// BadRequest 绑定/参数错误
func BadRequest(c *gin.Context, detail string) {
	Fail(c, errs.ErrArgs.WithDetail(detail))
}
