package handler

import (
	"net/http"

	"DogiCord/tools/errs"
	"DogiCord/tools/resp"

	"github.com/gin-gonic/gin"
)

// UploadImage multipart 字段 file；返回 {key, url}
func (h *Handler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUpload+(1<<20))
	fh, err := c.FormFile("file")
	if err != nil {
		resp.Fail(c, errs.ErrArgs.WrapMsg("missing file", "err", err))
		return
	}
	if fh.Size > h.opts.MaxUpload {
		resp.Fail(c, errs.ErrArgs.WrapMsg("file too large", "size", fh.Size, "max", h.opts.MaxUpload))
		return
	}
	f, err := fh.Open()
	if err != nil {
		resp.Fail(c, errs.WrapMsg(err, "open upload"))
		return
	}
	defer f.Close()

	img, err := h.opts.Chat.Images.Upload(c.Request.Context(), me(c), fh.Filename, fh.Header.Get("Content-Type"), fh.Size, f)
	if err != nil {
		resp.Fail(c, err)
		return
	}
	resp.Created(c, img)
}
