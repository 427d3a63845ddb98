package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/doronpers/sono-eval/xerrors"
)

// anonymousIdentity 无法从请求中提取客户端标识时使用的占位标识
const anonymousIdentity = "unknown"

// MiddlewareConfig 限流中间件配置
type MiddlewareConfig struct {
	// ExcludePaths 跳过限流检查的路径前缀（如健康探针 "/health"）
	ExcludePaths []string `json:"exclude_paths" yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// GinMiddleware 创建组合分钟窗和小时窗的 Gin 限流中间件
//
// 两个限流器独立判定，请求只有同时通过才被放行。无论放行与否，
// 响应头都会携带各窗口的配额、剩余量以及做出决策的后端。
//
// 使用示例:
//
//	minute, _ := ratelimit.New(&ratelimit.Config{MaxRequests: 100, Window: time.Minute})
//	hour, _ := ratelimit.New(&ratelimit.Config{MaxRequests: 2000, Window: time.Hour})
//	r.Use(ratelimit.GinMiddleware(minute, hour, &ratelimit.MiddlewareConfig{
//	    ExcludePaths: []string{"/health", "/metrics"},
//	}))
func GinMiddleware(perMinute, perHour Limiter, cfg *MiddlewareConfig) gin.HandlerFunc {
	if cfg == nil {
		cfg = &MiddlewareConfig{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range cfg.ExcludePaths {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		identity := ClientIdentity(c)
		ctx := c.Request.Context()

		minuteAllowed, _ := perMinute.Allow(ctx, identity)
		// 即使分钟窗已拒绝也要消耗小时窗配额，
		// 否则持续打满分钟窗的客户端永远不会触发小时窗
		hourAllowed, _ := perHour.Allow(ctx, identity)

		attachHeaders(c, perMinute, perHour, identity)

		if !minuteAllowed || !hourAllowed {
			_ = c.Error(xerrors.WithCode(ErrRateLimitExceeded, CodeRateLimitExceeded))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"code":  CodeRateLimitExceeded,
			})
			return
		}

		c.Next()
	}
}

// ClientIdentity 从请求中推导限流标识
//
// 优先取 X-Forwarded-For 的第一个地址，其次取传输层对端地址，
// 都取不到时退化为固定的占位标识。
func ClientIdentity(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if c.Request.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil && host != "" {
			return host
		}
		return c.Request.RemoteAddr
	}

	return anonymousIdentity
}

// attachHeaders 设置限流相关的响应头
func attachHeaders(c *gin.Context, perMinute, perHour Limiter, identity string) {
	ctx := c.Request.Context()

	c.Header("X-RateLimit-Limit-Minute", strconv.Itoa(perMinute.Limit()))
	c.Header("X-RateLimit-Limit-Hour", strconv.Itoa(perHour.Limit()))
	if remaining, err := perMinute.Remaining(ctx, identity); err == nil {
		c.Header("X-RateLimit-Remaining-Minute", strconv.Itoa(remaining))
	}
	if remaining, err := perHour.Remaining(ctx, identity); err == nil {
		c.Header("X-RateLimit-Remaining-Hour", strconv.Itoa(remaining))
	}
	c.Header("X-RateLimit-Backend", perMinute.Backend())
}
