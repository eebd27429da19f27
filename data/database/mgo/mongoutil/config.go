package mongoutil

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"DogiCord/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	defaultMaxPoolSize = 100
	defaultMaxRetry    = 3
	retryBackoff       = 500 * time.Millisecond
)

// Config Uri 优先；为空时由 Address + 账号拼出
type Config struct {
	Uri         string
	Address     []string
	Database    string
	Username    string
	Password    string
	AuthSource  string
	MaxPoolSize int
	MaxRetry    int
}

// ValidateAndSetDefaults 校验并补默认值，必要时生成 Uri
func (c *Config) ValidateAndSetDefaults() error {
	if c.Uri == "" && len(c.Address) == 0 {
		return errs.ErrArgs.WrapMsg("mongo: either uri or address must be provided")
	}
	if c.Database == "" {
		return errs.ErrArgs.WrapMsg("mongo: database is required")
	}
	if c.MaxPoolSize <= 0 {
		c.MaxPoolSize = defaultMaxPoolSize
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = defaultMaxRetry
	}
	if c.Uri == "" {
		c.Uri = c.buildURI()
	}
	return nil
}

// buildURI authSource 缺省用库名；账号密码做转义
func (c *Config) buildURI() string {
	authSource := c.AuthSource
	if authSource == "" {
		authSource = c.Database
	}
	u := url.URL{
		Scheme: "mongodb",
		Host:   strings.Join(c.Address, ","),
		Path:   "/" + c.Database,
	}
	if c.Username != "" && c.Password != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	u.RawQuery = "authSource=" + url.QueryEscape(authSource) + "&maxPoolSize=" + strconv.Itoa(c.MaxPoolSize)
	return u.String()
}

// shouldRetry 鉴权失败（13 Unauthorized / 18 AuthenticationFailed）与 ctx 结束都不重试
func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code != 13 && cmdErr.Code != 18
	}
	return true
}

// sleepCtx 可被 ctx 打断的等待
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
