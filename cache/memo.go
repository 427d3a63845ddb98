package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/doronpers/sono-eval/clog"
	"github.com/doronpers/sono-eval/metrics"
	"github.com/doronpers/sono-eval/xerrors"
)

// memoCache 记忆化缓存实现（非导出）
//
// 存储委托给 otter（写入过期、容量淘汰、并发安全）。旁路维护一份
// 调用点索引：site → storageKey → 近似字节数，由单独的互斥锁保护，
// 支撑按模式失效和内存占用估算。索引允许短暂滞后于存储
// （条目过期或被容量淘汰后仍可能留在索引里），统计口径因此是
// 近似值。
type memoCache struct {
	cfg     *Config
	logger  clog.Logger
	storage *otter.Cache[string, any]
	counter *stats.Counter

	mu    sync.Mutex
	index map[string]map[string]int

	entriesGauge        metrics.Gauge
	invalidationCounter metrics.Counter
}

// newMemoCache 创建缓存实例（内部函数）
func newMemoCache(cfg *Config, logger clog.Logger, meter metrics.Meter) (Cache, error) {
	counter := stats.NewCounter()

	storage, err := otter.New(&otter.Options[string, any]{
		MaximumSize:   cfg.Capacity,
		StatsRecorder: counter,
		// 写入过期：TTL 从写入时刻起算，读取不续期。
		// 每个条目的实际 TTL 在写入后用 SetExpiresAfter 覆盖。
		ExpiryCalculator: otter.ExpiryWriting[string, any](cfg.DefaultTTL),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "cache: failed to build storage")
	}

	c := &memoCache{
		cfg:     cfg,
		logger:  logger,
		storage: storage,
		counter: counter,
		index:   make(map[string]map[string]int),
	}

	if meter != nil {
		c.entriesGauge, _ = meter.Gauge(MetricEntries, "Number of live cache entries")
		c.invalidationCounter, _ = meter.Counter(MetricInvalidations, "Number of invalidated entries")
	}

	logger.Info("memo cache created",
		clog.Int("capacity", cfg.Capacity),
		clog.Duration("default_ttl", cfg.DefaultTTL))

	return c, nil
}

// Do 按键查找，未命中时调用 fn 并缓存成功结果
func (c *memoCache) Do(ctx context.Context, key Key, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	storageKey := key.storageKey()

	if value, ok := c.storage.GetIfPresent(storageKey); ok {
		c.logger.Debug("cache hit", clog.String("site", key.Site))
		return value, nil
	}

	value, err := fn(ctx)
	if err != nil {
		// 失败结果永不入缓存，错误原样透传
		c.logger.Debug("cache fill failed, not stored",
			clog.String("site", key.Site),
			clog.Error(err))
		return nil, err
	}

	c.store(ctx, key.Site, storageKey, value, ttl)
	return value, nil
}

// Get 返回键对应的未过期值，不触发计算
func (c *memoCache) Get(key Key) (any, bool) {
	return c.storage.GetIfPresent(key.storageKey())
}

// Invalidate 失效调用点名包含 pattern 的所有条目
func (c *memoCache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for site, keys := range c.index {
		if !siteMatches(site, pattern) {
			continue
		}
		for storageKey := range keys {
			c.storage.Invalidate(storageKey)
			removed++
		}
		delete(c.index, site)
	}

	if removed > 0 {
		c.logger.Info("cache entries invalidated",
			clog.String("pattern", pattern),
			clog.Int("count", removed))
		if c.invalidationCounter != nil {
			c.invalidationCounter.Add(context.Background(), float64(removed))
		}
	}
	return removed
}

// Reset 清空全部条目
func (c *memoCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.storage.InvalidateAll()
	c.index = make(map[string]map[string]int)
	c.logger.Info("cache reset")
}

// Stats 返回运行统计
//
// ApproxBytes 按索引中记录的 msgpack 编码大小累加，包含可能已
// 过期但尚未清理的条目，口径刻意做粗。
func (c *memoCache) Stats() Stats {
	c.mu.Lock()
	approxBytes := 0
	for _, keys := range c.index {
		for _, size := range keys {
			approxBytes += size
		}
	}
	c.mu.Unlock()

	snap := c.counter.Snapshot()
	return Stats{
		Entries:     c.storage.EstimatedSize(),
		ApproxBytes: approxBytes,
		Hits:        snap.Hits,
		Misses:      snap.Misses,
	}
}

// Close 释放缓存资源
func (c *memoCache) Close() error {
	c.Reset()
	c.storage.StopAllGoroutines()
	return nil
}

// store 将成功结果写入存储并登记到调用点索引
func (c *memoCache) store(ctx context.Context, site, storageKey string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.DefaultTTL
	}

	c.storage.Set(storageKey, value)
	c.storage.SetExpiresAfter(storageKey, ttl)

	size := 0
	if encoded, err := msgpack.Marshal(value); err == nil {
		size = len(encoded)
	}

	c.mu.Lock()
	keys, ok := c.index[site]
	if !ok {
		keys = make(map[string]int)
		c.index[site] = keys
	}
	keys[storageKey] = size
	c.mu.Unlock()

	if c.entriesGauge != nil {
		c.entriesGauge.Set(ctx, float64(c.storage.EstimatedSize()))
	}

	c.logger.Debug("cache entry stored",
		clog.String("site", site),
		clog.Duration("ttl", ttl),
		clog.Int("approx_bytes", size))
}

// siteMatches 判断调用点名是否命中模式；空模式匹配一切
func siteMatches(site, pattern string) bool {
	return pattern == "" || strings.Contains(site, pattern)
}
