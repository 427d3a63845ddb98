package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/doronpers/sono-eval/clog"
	"github.com/doronpers/sono-eval/metrics"
)

// localLimiter 进程本地滑动窗口限流器（非导出）
//
// 每个 identity 维护一份窗口内的事件时间戳，计数前先做惰性裁剪。
// "读状态 → 决策 → 记录"整个序列在同一把互斥锁内完成，对同一实例的
// 并发调用不会互相丢失更新。
type localLimiter struct {
	cfg    *Config
	logger clog.Logger
	now    func() time.Time

	mu      sync.Mutex
	windows map[string][]time.Time

	allowedCounter metrics.Counter
	deniedCounter  metrics.Counter
}

// newLocalLimiter 创建本地限流器（内部函数）
func newLocalLimiter(cfg *Config, logger clog.Logger, meter metrics.Meter) (Limiter, error) {
	l := &localLimiter{
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		windows: make(map[string][]time.Time),
	}

	if meter != nil {
		l.allowedCounter, _ = meter.Counter(MetricAllowed, "Number of allowed requests")
		l.deniedCounter, _ = meter.Counter(MetricDenied, "Number of denied requests")
	}

	logger.Info("local rate limiter created",
		clog.Int("max_requests", cfg.MaxRequests),
		clog.Duration("window", cfg.Window),
		clog.Int("cleanup_threshold", cfg.CleanupThreshold))

	return l, nil
}

// Allow 检查并记录一次请求
func (l *localLimiter) Allow(ctx context.Context, identity string) (bool, error) {
	if identity == "" {
		return false, ErrIdentityEmpty
	}

	now := l.now()
	cutoff := now.Add(-l.cfg.Window)

	l.mu.Lock()
	timestamps := pruneBefore(l.windows[identity], cutoff)

	allowed := len(timestamps) < l.cfg.MaxRequests
	if allowed {
		timestamps = append(timestamps, now)
	}

	if len(timestamps) == 0 {
		delete(l.windows, identity)
	} else {
		l.windows[identity] = timestamps
	}

	// identity 数超过阈值时清扫整个窗口都已过期的条目，约束内存占用
	if len(l.windows) > l.cfg.CleanupThreshold {
		l.sweepLocked(cutoff)
	}
	l.mu.Unlock()

	l.record(ctx, allowed)

	l.logger.Debug("rate limit check",
		clog.String("identity", identity),
		clog.Bool("allowed", allowed),
		clog.Duration("window", l.cfg.Window))

	return allowed, nil
}

// Remaining 返回剩余配额，不记录请求
func (l *localLimiter) Remaining(ctx context.Context, identity string) (int, error) {
	if identity == "" {
		return 0, ErrIdentityEmpty
	}

	cutoff := l.now().Add(-l.cfg.Window)

	l.mu.Lock()
	timestamps := pruneBefore(l.windows[identity], cutoff)
	if len(timestamps) == 0 {
		delete(l.windows, identity)
	} else {
		l.windows[identity] = timestamps
	}
	count := len(timestamps)
	l.mu.Unlock()

	remaining := l.cfg.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Limit 返回窗口内允许的最大请求数
func (l *localLimiter) Limit() int {
	return l.cfg.MaxRequests
}

// Backend 返回后端标识
func (l *localLimiter) Backend() string {
	return BackendLocal
}

// Close 清空计数，释放内存
func (l *localLimiter) Close() error {
	l.mu.Lock()
	l.windows = make(map[string][]time.Time)
	l.mu.Unlock()
	return nil
}

// sweepLocked 删除整个窗口都已过期的 identity（调用方需持有锁）
func (l *localLimiter) sweepLocked(cutoff time.Time) {
	removed := 0
	for identity, timestamps := range l.windows {
		live := pruneBefore(timestamps, cutoff)
		if len(live) == 0 {
			delete(l.windows, identity)
			removed++
		} else {
			l.windows[identity] = live
		}
	}

	if removed > 0 {
		l.logger.Debug("swept expired identities", clog.Int("removed", removed))
	}
}

func (l *localLimiter) record(ctx context.Context, allowed bool) {
	// 同一进程里分钟窗和小时窗共用指标名，靠 window 标签区分
	labels := []metrics.Label{
		metrics.L(LabelBackend, BackendLocal),
		metrics.L(LabelWindow, l.cfg.Window.String()),
	}
	if allowed {
		if l.allowedCounter != nil {
			l.allowedCounter.Inc(ctx, labels...)
		}
	} else {
		if l.deniedCounter != nil {
			l.deniedCounter.Inc(ctx, labels...)
		}
	}
}

// pruneBefore 返回 cutoff 之后（不含）的时间戳，保持原有顺序
//
// 时间戳按追加顺序天然有序，找到第一个存活下标即可整体切掉前缀。
func pruneBefore(timestamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(timestamps) && !timestamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return timestamps
	}
	return append([]time.Time(nil), timestamps[idx:]...)
}
