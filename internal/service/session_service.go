package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"ffarena/internal/config"
	"ffarena/internal/infrastructure/cache"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidSession  = errors.New("登录状态无效，请重新登录")
	ErrSessionRevoked  = errors.New("会话已退出")
	ErrInvalidAdminKey = errors.New("管理员口令错误")
)

// SessionClaims 会话令牌，身份提供方签发，sys_admin 只能由本服务在口令校验后写入
type SessionClaims struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	SystemAdmin bool   `json:"sys_admin,omitempty"`
	jwt.RegisteredClaims
}

// Identity 令牌中携带的身份信息
func (c *SessionClaims) Identity() Identity {
	return Identity{ID: c.Subject, DisplayName: c.Name, Email: c.Email, Phone: c.Phone}
}

// sessionKey 吊销用的会话标识，没有 jti 的令牌用 sub + iat 代替
func (c *SessionClaims) sessionKey() string {
	if c.ID != "" {
		return c.ID
	}
	var iat int64
	if c.IssuedAt != nil {
		iat = c.IssuedAt.Unix()
	}
	return c.Subject + ":" + strconv.FormatInt(iat, 10)
}

type SessionService struct {
	rdb *redis.Client
	cfg *config.AuthConfig
}

func NewSessionService(rdb *redis.Client, cfg *config.Config) *SessionService {
	return &SessionService{rdb: rdb, cfg: &cfg.Auth}
}

// Issue 签发会话令牌
func (s *SessionService) Issue(identity Identity, systemAdmin bool) (string, *SessionClaims, error) {
	if identity.ID == "" {
		return "", nil, validationErrorf(KindMissingField, "缺少用户身份标识")
	}

	now := time.Now()
	claims := &SessionClaims{
		Name:        identity.DisplayName,
		Email:       identity.Email,
		Phone:       identity.Phone,
		SystemAdmin: systemAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTTL())),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("签发令牌失败: %w", err)
	}
	return token, claims, nil
}

// Parse 校验签名、签发方、有效期，并检查是否已退出
func (s *SessionService) Parse(ctx context.Context, tokenStr string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Subject == "" {
		return nil, ErrInvalidSession
	}

	revoked, err := s.rdb.Exists(ctx, cache.RevokedSessionKey(claims.sessionKey())).Result()
	if err != nil {
		return nil, fmt.Errorf("检查会话状态失败: %w", err)
	}
	if revoked > 0 {
		return nil, ErrSessionRevoked
	}
	return claims, nil
}

// ElevateToSystemAdmin 校验管理员口令，通过后吊销旧令牌并签发带 sys_admin 的新令牌
func (s *SessionService) ElevateToSystemAdmin(ctx context.Context, claims *SessionClaims, accessKey string) (string, error) {
	if accessKey == "" {
		return "", validationErrorf(KindMissingField, "请输入管理员口令")
	}
	if s.cfg.AdminKeyHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminKeyHash), []byte(accessKey)) != nil {
		log.Printf("[Session] 管理员口令校验失败: userID=%s", claims.Subject)
		return "", ErrInvalidAdminKey
	}

	token, _, err := s.Issue(claims.Identity(), true)
	if err != nil {
		return "", err
	}
	if err := s.Revoke(ctx, claims); err != nil {
		return "", err
	}

	log.Printf("[Session] 会话已提权为系统管理员: userID=%s", claims.Subject)
	return token, nil
}

// Revoke 退出登录，令牌在剩余有效期内不可再用，系统管理员提权随之失效
func (s *SessionService) Revoke(ctx context.Context, claims *SessionClaims) error {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	return s.rdb.Set(ctx, cache.RevokedSessionKey(claims.sessionKey()), 1, ttl).Err()
}
