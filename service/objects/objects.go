package objects

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"DogiCord/tools/errs"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config S3 兼容对象存储
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
	MaxSize   int64
}

// Store 消息图片：上传 / 取下载地址 / 删除
type Store struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	max    int64
}

func New(c Config) (*Store, error) {
	if c.Endpoint == "" || c.Bucket == "" {
		return nil, errs.New("object storage endpoint/bucket missing")
	}
	cli, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "new minio client", "endpoint", c.Endpoint)
	}
	if c.URLExpiry <= 0 {
		c.URLExpiry = 24 * time.Hour
	}
	return &Store{client: cli, bucket: c.Bucket, expiry: c.URLExpiry, max: c.MaxSize}, nil
}

// EnsureBucket 启动时调用
func (s *Store) EnsureBucket(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errs.WrapMsg(err, "bucket exists", "bucket", s.bucket)
	}
	if ok {
		return nil
	}
	return errs.WrapMsg(s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}), "make bucket", "bucket", s.bucket)
}

// ObjectKey images/<owner>/<id><ext>
func ObjectKey(owner, id, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 8 {
		ext = ""
	}
	return "images/" + owner + "/" + id + ext
}

func (s *Store) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.max > 0 && size > s.max {
		return errs.ErrArgs.WrapMsg("object too large", "size", size, "max", s.max)
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	return errs.WrapMsg(err, "put object", "key", key)
}

func (s *Store) URL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, url.Values{})
	if err != nil {
		return "", errs.WrapMsg(err, "presign object", "key", key)
	}
	return u.String(), nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return errs.WrapMsg(s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}), "remove object", "key", key)
}
