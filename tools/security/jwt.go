package security

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Options 控制签名与TTL等参数。
type Options struct {
	Secret []byte        // HMAC 密钥（生产用ENV/KMS）
	Alg    string        // HS256/HS384/HS512（默认 HS256）
	TTL    time.Duration // 令牌有效期（默认 24h）
	Issuer string
}

// Claims 会话令牌：sub = username
type Claims struct {
	Username string `json:"username"`
	jwtlib.RegisteredClaims
}

func DefaultOptions(secret []byte) Options {
	return Options{Secret: secret, Alg: "HS256", TTL: 24 * time.Hour, Issuer: "dogicord"}
}

// Fingerprint 日志里只打印令牌指纹
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}

func Generate(opts Options, username string, now time.Time) (token string, expireAt time.Time, err error) {
	if username == "" {
		return "", time.Time{}, errors.New("empty username")
	}
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", time.Time{}, err
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if now.IsZero() {
		now = time.Now()
	}
	exp := now.Add(opts.TTL)

	claims := Claims{
		Username: username,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			Issuer:    opts.Issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(exp),
		},
	}
	signed, err := jwtlib.NewWithClaims(method, claims).SignedString(opts.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify 校验并返回 username
func Verify(opts Options, token string) (string, error) {
	method, err := signingMethod(opts.Alg) // 校验 alg 合法
	if err != nil {
		return "", err
	}
	var claims Claims
	parsed, err := jwtlib.ParseWithClaims(token, &claims, func(t *jwtlib.Token) (interface{}, error) {
		// 仅允许 HMAC 家族
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return opts.Secret, nil
	}, jwtlib.WithValidMethods([]string{method.Alg()}))
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if opts.Issuer != "" && claims.Issuer != opts.Issuer {
		return "", errors.New("issuer mismatch")
	}
	name := claims.Username
	if name == "" {
		name = claims.Subject
	}
	if name == "" {
		return "", errors.New("token without subject")
	}
	return name, nil
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
