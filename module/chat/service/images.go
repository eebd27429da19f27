package service

import (
	"context"
	"io"
	"strings"

	"DogiCord/service/objects"
	"DogiCord/tools/errs"
)

type ImageService struct {
	d *Deps
}

type UploadedImage struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Upload 只收 image/*；返回的 key 用于发送消息
func (s *ImageService) Upload(ctx context.Context, owner, filename, contentType string, size int64, r io.Reader) (*UploadedImage, error) {
	if s.d.Objects == nil {
		return nil, errs.ErrInternalServer.WrapMsg("object storage not configured")
	}
	if err := required("owner", owner); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errs.ErrArgs.WrapMsg("not an image", "content_type", contentType)
	}
	if size <= 0 {
		return nil, errs.ErrArgs.WrapMsg("empty upload")
	}
	key := objects.ObjectKey(owner, s.d.NewID(), filename)
	if err := s.d.Objects.Upload(ctx, key, r, size, contentType); err != nil {
		return nil, err
	}
	u, err := s.d.Objects.URL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &UploadedImage{Key: key, URL: u}, nil
}
