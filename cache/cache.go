// Package cache 提供带 TTL 的记忆化缓存组件，用于吸收幂等调用的重复开销。
//
// cache 是治理层的结果复用组件，它提供了：
// - 基于 otter 的高性能内存存储，按条目 TTL 写入过期
// - 类型化的缓存键：调用点名 + 位置参数 + 按名排序的关键字参数，
//   摘要算法固定且可复现
// - Do：未过期命中直接返回，未命中调用函数，仅成功结果入缓存，
//   函数自身的错误永不缓存、原样透传
// - 按模式失效（匹配调用点名）与全量失效
// - 泛型装饰器 Wrap1 / Wrap2，把普通函数包装为记忆化函数
//
// ## 基本使用
//
//	c, _ := cache.New(&cache.Config{Capacity: 10000}, cache.WithLogger(logger))
//	defer c.Close()
//
//	key := cache.NewKey("score", candidateID).WithKwarg("detail", true)
//	result, err := c.Do(ctx, key, 30*time.Second, func(ctx context.Context) (any, error) {
//	    return engine.Score(ctx, candidateID)
//	})
//
// ## 装饰器
//
//	score := cache.Wrap1(c, "score", 30*time.Second, engine.Score)
//	result, err := score(ctx, candidateID) // 第二次调用直接命中
//
// 缓存值按引用返回，不做深拷贝：调用方修改返回的容器会影响后续命中
// 看到的内容。包装函数应当幂等且不自行改写缓存内容。
package cache

import (
	"context"
	"time"

	"github.com/doronpers/sono-eval/clog"
)

// Cache 记忆化缓存核心接口
type Cache interface {
	// Do 按键查找，未过期命中直接返回存储值，否则调用 fn
	//
	// fn 成功时其结果以给定 TTL 入缓存；ttl <= 0 时使用配置的默认 TTL。
	// fn 返回错误时不缓存任何内容，错误原样透传，下一次同键调用会重新
	// 调用 fn。同键并发调用不去重，各自独立调用 fn，最后写入者生效。
	Do(ctx context.Context, key Key, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error)

	// Get 返回键对应的未过期值，不触发任何计算
	Get(key Key) (any, bool)

	// Invalidate 失效调用点名包含 pattern 的所有条目，返回清除数量
	//
	// 匹配只看调用点名，不看参数摘要（摘要不透明，按模式失效刻意做粗）。
	Invalidate(pattern string) int

	// Reset 清空全部条目
	Reset()

	// Stats 返回条目数、近似内存占用与命中统计
	Stats() Stats

	// Close 释放缓存资源
	Close() error
}

// Stats 缓存运行统计
type Stats struct {
	// Entries 当前条目数
	Entries int

	// ApproxBytes 近似内存占用（按存储值的 msgpack 编码大小估算，粗粒度）
	ApproxBytes int

	// Hits 累计命中次数
	Hits uint64

	// Misses 累计未命中次数
	Misses uint64
}

// Config 缓存组件配置
type Config struct {
	// Capacity 缓存最大容量（条目数，默认：10000）
	Capacity int `json:"capacity" yaml:"capacity" mapstructure:"capacity"`

	// DefaultTTL 未显式指定 TTL 时使用的过期时长（默认：5m）
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" mapstructure:"default_ttl"`
}

// setDefaults 填充默认值
func (c *Config) setDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = 10000
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 5 * time.Minute
	}
}

// New 创建记忆化缓存实例
func New(cfg *Config, opts ...Option) (Cache, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	}
	logger = logger.With(clog.String("component", "cache"))

	return newMemoCache(cfg, logger, opt.meter)
}
