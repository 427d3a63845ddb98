// Package ratelimit 提供滑动窗口限流组件，支持本地和 Redis 两种后端。
//
// ratelimit 是治理层的准入控制组件，它提供了：
// - 统一的 Limiter 接口，屏蔽本地和共享存储差异
// - 滑动窗口日志算法：精确统计尾随窗口内的请求次数
// - 本地模式：进程内时间戳记录，带阈值触发的清理
// - 共享模式：基于 Redis Sorted Set 的跨进程计数（尽力而为）
// - Redis 不可达时故障放行（fail-open）：可用性优先于严格限流
// - 开箱即用的 Gin 中间件（分钟窗 + 小时窗组合）
//
// ## 基本使用
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{
//	    Backend:     ratelimit.BackendLocal,
//	    MaxRequests: 100,
//	    Window:      time.Minute,
//	}, ratelimit.WithLogger(logger))
//
//	allowed, _ := limiter.Allow(ctx, "10.0.0.1")
//	if !allowed {
//	    return "rate limit exceeded"
//	}
//
// ## 共享后端
//
//	redisConn, _ := connector.NewRedis(&cfg.Redis, connector.WithLogger(logger))
//	defer redisConn.Close()
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{
//	    Backend:     ratelimit.BackendRedis,
//	    MaxRequests: 1000,
//	    Window:      time.Hour,
//	}, ratelimit.WithRedisConnector(redisConn), ratelimit.WithLogger(logger))
//
// ## Gin 中间件
//
//	r := gin.New()
//	r.Use(ratelimit.GinMiddleware(minuteLimiter, hourLimiter, &ratelimit.MiddlewareConfig{
//	    ExcludePaths: []string{"/health"},
//	}))
package ratelimit

import (
	"context"
	"time"

	"github.com/doronpers/sono-eval/clog"
)

// 后端标识
const (
	// BackendLocal 进程本地后端
	BackendLocal = "local"

	// BackendRedis 共享存储后端
	BackendRedis = "redis"
)

// Limiter 限流器核心接口
//
// 一个 Limiter 实例对应一个固定的 (MaxRequests, Window) 规则，
// 按 identity（如客户端 IP、用户 ID）独立计数。
type Limiter interface {
	// Allow 检查 identity 在当前窗口内是否允许新请求（非阻塞）
	//
	// 允许时会记录本次请求；拒绝时不记录。
	// 共享后端通信失败时故障放行：返回 (true, nil) 并记录日志。
	Allow(ctx context.Context, identity string) (bool, error)

	// Remaining 返回 identity 在当前窗口内的剩余配额，不记录请求
	Remaining(ctx context.Context, identity string) (int, error)

	// Limit 返回窗口内允许的最大请求数
	Limit() int

	// Backend 返回做出决策的后端标识（"local" 或 "redis"）
	Backend() string

	// Close 释放限流器持有的资源
	Close() error
}

// Config 限流器配置
type Config struct {
	// Backend 后端类型: "local" | "redis"（默认 "local"）
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// MaxRequests 窗口内允许的最大请求数
	MaxRequests int `json:"max_requests" yaml:"max_requests" mapstructure:"max_requests"`

	// Window 滑动窗口长度
	Window time.Duration `json:"window" yaml:"window" mapstructure:"window"`

	// CleanupThreshold 本地后端的清理阈值：identity 数超过该值时
	// 触发一次全量清扫，删除整个窗口都已过期的 identity（默认 1024）
	CleanupThreshold int `json:"cleanup_threshold" yaml:"cleanup_threshold" mapstructure:"cleanup_threshold"`

	// Prefix Redis Key 前缀（默认 "ratelimit:"）
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
}

// setDefaults 填充默认值
func (c *Config) setDefaults() {
	if c.Backend == "" {
		c.Backend = BackendLocal
	}
	if c.CleanupThreshold <= 0 {
		c.CleanupThreshold = 1024
	}
	if c.Prefix == "" {
		c.Prefix = "ratelimit:"
	}
}

// validate 校验配置
func (c *Config) validate() error {
	c.setDefaults()
	if c.MaxRequests <= 0 {
		return ErrInvalidConfig
	}
	if c.Window <= 0 {
		return ErrInvalidConfig
	}
	if c.Backend != BackendLocal && c.Backend != BackendRedis {
		return ErrInvalidConfig
	}
	return nil
}

// New 创建限流器
//
// 后端在启动时通过配置显式选择一次，而不是每次调用前探测可用性。
// Redis 后端需要通过 WithRedisConnector 注入连接器。
func New(cfg *Config, opts ...Option) (Limiter, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	}
	logger = logger.With(clog.String("component", "ratelimit"))

	switch cfg.Backend {
	case BackendRedis:
		if opt.redisConn == nil {
			return nil, ErrConnectorNil
		}
		return newRedisLimiter(cfg, opt.redisConn, logger, opt.meter)
	default:
		return newLocalLimiter(cfg, logger, opt.meter)
	}
}
