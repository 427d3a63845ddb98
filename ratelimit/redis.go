package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/doronpers/sono-eval/clog"
	"github.com/doronpers/sono-eval/connector"
	"github.com/doronpers/sono-eval/metrics"
)

// redisLimiter 共享存储滑动窗口限流器（非导出）
//
// 每个 identity 对应一个 Sorted Set，member 为请求的唯一标识，
// score 为毫秒时间戳。裁剪、写入、计数、续期作为一个事务管道执行；
// 事务后计数超限时撤销刚写入的成员并拒绝。
//
// 跨进程一致性只有 Redis 事务本身的强度（尽力而为，非线性一致）。
// 与 Redis 的任何通信错误都在这里吸收：记录日志并故障放行，
// 绝不在依赖已经退化时给调用方叠加新的失败模式。
type redisLimiter struct {
	cfg    *Config
	client *redis.Client
	logger clog.Logger
	now    func() time.Time

	allowedCounter  metrics.Counter
	deniedCounter   metrics.Counter
	failOpenCounter metrics.Counter
}

// newRedisLimiter 创建共享后端限流器（内部函数）
func newRedisLimiter(
	cfg *Config,
	redisConn connector.RedisConnector,
	logger clog.Logger,
	meter metrics.Meter,
) (Limiter, error) {
	l := &redisLimiter{
		cfg:    cfg,
		client: redisConn.GetClient(),
		logger: logger,
		now:    time.Now,
	}

	if meter != nil {
		l.allowedCounter, _ = meter.Counter(MetricAllowed, "Number of allowed requests")
		l.deniedCounter, _ = meter.Counter(MetricDenied, "Number of denied requests")
		l.failOpenCounter, _ = meter.Counter(MetricFailOpen, "Number of fail-open decisions")
	}

	logger.Info("redis rate limiter created",
		clog.String("prefix", cfg.Prefix),
		clog.Int("max_requests", cfg.MaxRequests),
		clog.Duration("window", cfg.Window))

	return l, nil
}

// Allow 检查并记录一次请求
func (l *redisLimiter) Allow(ctx context.Context, identity string) (bool, error) {
	if identity == "" {
		return false, ErrIdentityEmpty
	}

	key := l.cfg.Prefix + identity
	now := l.now()
	windowStart := now.Add(-l.cfg.Window)
	member := uuid.NewString()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixMilli(), 10))
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: member,
	})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, l.cfg.Window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return l.failOpen(ctx, identity, err), nil
	}

	if card.Val() > int64(l.cfg.MaxRequests) {
		// 撤销刚写入的时间戳，被拒绝的请求不占用窗口配额
		if err := l.client.ZRem(ctx, key, member).Err(); err != nil {
			l.logger.Warn("failed to undo rejected timestamp",
				clog.String("identity", identity),
				clog.Error(err))
		}

		if l.deniedCounter != nil {
			l.deniedCounter.Inc(ctx, l.labels()...)
		}
		l.logger.Debug("rate limit check",
			clog.String("identity", identity),
			clog.Bool("allowed", false))
		return false, nil
	}

	if l.allowedCounter != nil {
		l.allowedCounter.Inc(ctx, l.labels()...)
	}
	l.logger.Debug("rate limit check",
		clog.String("identity", identity),
		clog.Bool("allowed", true))
	return true, nil
}

// Remaining 返回剩余配额，不记录请求
//
// 与 Redis 通信失败时按满额返回（与 Allow 的故障放行口径一致）。
func (l *redisLimiter) Remaining(ctx context.Context, identity string) (int, error) {
	if identity == "" {
		return 0, ErrIdentityEmpty
	}

	key := l.cfg.Prefix + identity
	windowStart := l.now().Add(-l.cfg.Window)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixMilli(), 10))
	card := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("shared store unreachable, reporting full quota",
			clog.String("identity", identity),
			clog.Error(err))
		return l.cfg.MaxRequests, nil
	}

	remaining := l.cfg.MaxRequests - int(card.Val())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Limit 返回窗口内允许的最大请求数
func (l *redisLimiter) Limit() int {
	return l.cfg.MaxRequests
}

// Backend 返回后端标识
func (l *redisLimiter) Backend() string {
	return BackendRedis
}

// Close 释放资源（Redis 连接由 Connector 管理）
func (l *redisLimiter) Close() error {
	return nil
}

// failOpen 记录一次故障放行
func (l *redisLimiter) failOpen(ctx context.Context, identity string, err error) bool {
	l.logger.Warn("shared store unreachable, failing open",
		clog.String("identity", identity),
		clog.Error(err))

	if l.failOpenCounter != nil {
		l.failOpenCounter.Inc(ctx, l.labels()...)
	}
	return true
}

// labels 返回该实例的指标标签
// 同一进程里分钟窗和小时窗共用指标名，靠 window 标签区分
func (l *redisLimiter) labels() []metrics.Label {
	return []metrics.Label{
		metrics.L(LabelBackend, BackendRedis),
		metrics.L(LabelWindow, l.cfg.Window.String()),
	}
}
