package http

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"spellgate/common/jwts"
	"spellgate/common/log"
)

// 上下文键
const (
	KeyRequestID = "requestID"
	KeyPlayerID  = "userID"
)

const (
	HeaderRequestID  = "X-Request-ID"
	HeaderTestPlayer = "X-Test-Player"
	CookieToken      = "token"
)

// PlayerID 认证中间件放进上下文的玩家 id
func (c *Context) PlayerID() string {
	return c.GetString(KeyPlayerID)
}

// CorsMiddleware 跨域中间件
func CorsMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		if c.GetHeader("Origin") != "" {
			c.SetHeader("Access-Control-Allow-Origin", "*")
			c.SetHeader("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.SetHeader("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, Token, X-Token, X-Request-ID")
			c.SetHeader("Access-Control-Expose-Headers", "Content-Length, X-Request-ID")
		}

		// 处理预检请求
		if c.Method() == "OPTIONS" {
			c.AbortWithStatus(204)
		}
		return nil
	}
}

// LoggerMiddleware 访问日志，在处理链结束后记录状态码与耗时
func LoggerMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.StatusCode()
		switch {
		case status >= 500:
			log.Warn("HTTP %s %s -> %d in %v, ip=%s, requestID=%s", c.Method(), c.Path(), status, latency, c.ClientIP(), c.GetString(KeyRequestID))
		default:
			log.Info("HTTP %s %s -> %d in %v, ip=%s, requestID=%s", c.Method(), c.Path(), status, latency, c.ClientIP(), c.GetString(KeyRequestID))
		}
		return nil
	}
}

// RequestIDMiddleware 沿用调用方的 X-Request-ID，没有就生成一个
func RequestIDMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(KeyRequestID, requestID)
		c.SetHeader(HeaderRequestID, requestID)
		return nil
	}
}

// AuthMiddleware 校验上游签发的玩家 token（Authorization: Bearer、Token、X-Token 头或 token cookie），
// 把 userID 放进上下文。allowTestHeader 打开时直接信任 X-Test-Player，只用于本地联调
func AuthMiddleware(secret string, allowTestHeader bool) MiddlewareFunc {
	return func(c *Context) error {
		if allowTestHeader {
			if player := strings.TrimSpace(c.GetHeader(HeaderTestPlayer)); player != "" {
				c.Set(KeyPlayerID, player)
				return nil
			}
		}

		token := bearerToken(c)
		if token == "" {
			c.Unauthorized("Missing authorization token")
			return nil
		}

		userID, err := jwts.ParseToken(token, secret)
		if err != nil {
			log.Debug("token 校验失败, ip=%s, err:%v", c.ClientIP(), err)
			c.Unauthorized("Invalid token")
			return nil
		}
		c.Set(KeyPlayerID, userID)
		return nil
	}
}

func bearerToken(c *Context) string {
	for _, header := range []string{"Authorization", "Token", "X-Token"} {
		if token := c.GetHeader(header); token != "" {
			return strings.TrimPrefix(token, "Bearer ")
		}
	}
	if token, err := c.GetCookie(CookieToken); err == nil {
		return token
	}
	return ""
}

// Limiter 按 key 限流，redis 与单机实现都满足
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimitMiddleware 按玩家限流，未认证时按客户端 IP
func RateLimitMiddleware(limiter Limiter) MiddlewareFunc {
	return func(c *Context) error {
		key := c.PlayerID()
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !limiter.Allow(c.Context(), key) {
			log.Warn("限流 key=%s %s %s", key, c.Method(), c.Path())
			c.TooManyRequests("Too Many Requests")
		}
		return nil
	}
}

// SecurityMiddleware 安全头
func SecurityMiddleware() MiddlewareFunc {
	return func(c *Context) error {
		c.SetHeader("X-Content-Type-Options", "nosniff")
		c.SetHeader("X-Frame-Options", "DENY")
		c.SetHeader("Referrer-Policy", "same-origin")
		return nil
	}
}
