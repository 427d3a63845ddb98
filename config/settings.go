package config

import (
	"time"

	"github.com/doronpers/sono-eval/breaker"
	"github.com/doronpers/sono-eval/connector"
	"github.com/doronpers/sono-eval/xerrors"
)

// Settings 治理层的类型化配置
//
// 由外层服务的配置文件提供，经 Loader.Unmarshal 一次性加载，
// 各组件在启动时取各自的片段。
type Settings struct {
	// RateLimit 限流配置
	RateLimit RateLimitSettings `json:"ratelimit" yaml:"ratelimit" mapstructure:"ratelimit"`

	// Breakers 按依赖名的熔断策略
	Breakers map[string]breaker.Config `json:"breakers" yaml:"breakers" mapstructure:"breakers"`

	// Cache 缓存配置
	Cache CacheSettings `json:"cache" yaml:"cache" mapstructure:"cache"`

	// Redis 共享存储连接配置（限流 redis 后端使用）
	Redis connector.RedisConfig `json:"redis" yaml:"redis" mapstructure:"redis"`
}

// RateLimitSettings 限流配置
type RateLimitSettings struct {
	// Backend 后端类型: "local" | "redis"（默认 "local"）
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// MaxRequestsPerMinute 分钟窗配额（默认：100）
	MaxRequestsPerMinute int `json:"max_requests_per_minute" yaml:"max_requests_per_minute" mapstructure:"max_requests_per_minute"`

	// MaxRequestsPerHour 小时窗配额（默认：2000）
	MaxRequestsPerHour int `json:"max_requests_per_hour" yaml:"max_requests_per_hour" mapstructure:"max_requests_per_hour"`

	// ExcludePaths 跳过限流检查的路径前缀
	ExcludePaths []string `json:"exclude_paths" yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// CacheSettings 缓存配置
type CacheSettings struct {
	// Capacity 缓存最大条目数（默认：10000）
	Capacity int `json:"capacity" yaml:"capacity" mapstructure:"capacity"`

	// DefaultTTL 默认过期时长（默认：5m）
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" mapstructure:"default_ttl"`

	// SiteTTLs 按调用点名的过期时长覆盖
	SiteTTLs map[string]time.Duration `json:"site_ttls" yaml:"site_ttls" mapstructure:"site_ttls"`
}

// TTLFor 返回调用点对应的 TTL，未单独配置时返回默认值
func (c CacheSettings) TTLFor(site string) time.Duration {
	if ttl, ok := c.SiteTTLs[site]; ok && ttl > 0 {
		return ttl
	}
	return c.DefaultTTL
}

// SetDefaults 填充默认值
func (s *Settings) SetDefaults() {
	if s.RateLimit.Backend == "" {
		s.RateLimit.Backend = "local"
	}
	if s.RateLimit.MaxRequestsPerMinute <= 0 {
		s.RateLimit.MaxRequestsPerMinute = 100
	}
	if s.RateLimit.MaxRequestsPerHour <= 0 {
		s.RateLimit.MaxRequestsPerHour = 2000
	}
	if s.Cache.Capacity <= 0 {
		s.Cache.Capacity = 10000
	}
	if s.Cache.DefaultTTL <= 0 {
		s.Cache.DefaultTTL = 5 * time.Minute
	}
}

// Validate 校验治理配置
func (s *Settings) Validate() error {
	s.SetDefaults()

	if s.RateLimit.Backend != "local" && s.RateLimit.Backend != "redis" {
		return xerrors.Wrapf(ErrInvalidSettings, "unknown ratelimit backend %q", s.RateLimit.Backend)
	}
	if s.RateLimit.Backend == "redis" && s.Redis.Addr == "" {
		return xerrors.Wrap(ErrInvalidSettings, "redis backend requires redis.addr")
	}
	if s.RateLimit.MaxRequestsPerHour < s.RateLimit.MaxRequestsPerMinute {
		return xerrors.Wrap(ErrInvalidSettings, "hour quota must not be smaller than minute quota")
	}
	return nil
}
