package breaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/doronpers/sono-eval/clog"
	"github.com/doronpers/sono-eval/metrics"
	"github.com/doronpers/sono-eval/xerrors"
)

// circuitBreaker 熔断器实现（非导出）
//
// 状态机委托给 gobreaker：
// - ReadyToTrip 基于连续失败数，闭合状态下任意一次成功即清零
// - Timeout 对应冷却时长，超时后首个调用进入半开探测
// - MaxRequests 对应闭合所需的连续成功数，半开状态下全部成功才闭合，
//   任意一次失败立即回到打开状态
// 所有计数与状态迁移在 gobreaker 单把互斥锁内完成。
type circuitBreaker struct {
	name   string
	cfg    *Config
	logger clog.Logger
	inner  *gobreaker.CircuitBreaker[any]

	rejectCounter      metrics.Counter
	stateChangeCounter metrics.Counter
	durationHistogram  metrics.Histogram
}

// newBreaker 创建熔断器实例（内部函数）
// 注意：cfg 已在 New() 中设置了默认值
func newBreaker(name string, cfg *Config, logger clog.Logger, meter metrics.Meter) Breaker {
	cb := &circuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: logger,
	}

	if meter != nil {
		cb.rejectCounter, _ = meter.Counter(MetricRejectsTotal, "Number of calls rejected while open")
		cb.stateChangeCounter, _ = meter.Counter(MetricStateChanges, "Number of state transitions")
		cb.durationHistogram, _ = meter.Histogram(MetricCallDuration, "Protected call duration in seconds")
	}

	cb.inner = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.SuccessThreshold),
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
		},
		OnStateChange: cb.onStateChange,
	})

	logger.Info("circuit breaker created",
		clog.String("name", name),
		clog.Int("failure_threshold", cfg.FailureThreshold),
		clog.Duration("recovery_timeout", cfg.RecoveryTimeout),
		clog.Int("success_threshold", cfg.SuccessThreshold))

	return cb
}

// Do 执行受熔断保护的函数
func (cb *circuitBreaker) Do(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	start := time.Now()

	result, err := cb.inner.Execute(func() (any, error) {
		return fn(ctx)
	})

	if cb.durationHistogram != nil {
		cb.durationHistogram.Record(ctx, time.Since(start).Seconds(),
			metrics.L(LabelBreaker, cb.name))
	}

	// gobreaker 的两种"未尝试即拒绝"都折叠为 OpenError：
	// 打开状态的快速失败，以及半开状态下超出探测额度的请求
	if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
		if cb.rejectCounter != nil {
			cb.rejectCounter.Inc(ctx, metrics.L(LabelBreaker, cb.name))
		}
		cb.logger.Warn("call rejected, circuit is open",
			clog.String("name", cb.name),
			clog.String("state", cb.State().String()))
		return nil, &OpenError{Name: cb.name, State: cb.State()}
	}

	return result, err
}

// Name 返回熔断器名字
func (cb *circuitBreaker) Name() string {
	return cb.name
}

// State 返回当前状态
func (cb *circuitBreaker) State() State {
	switch cb.inner.State() {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

// FailureCount 返回当前连续失败次数
func (cb *circuitBreaker) FailureCount() int {
	return int(cb.inner.Counts().ConsecutiveFailures)
}

// SuccessCount 返回当前连续成功次数
func (cb *circuitBreaker) SuccessCount() int {
	return int(cb.inner.Counts().ConsecutiveSuccesses)
}

// onStateChange 状态变更回调
func (cb *circuitBreaker) onStateChange(name string, from, to gobreaker.State) {
	cb.logger.Info("circuit breaker state changed",
		clog.String("name", name),
		clog.String("from", gobreakerStateString(from)),
		clog.String("to", gobreakerStateString(to)))

	if cb.stateChangeCounter != nil {
		cb.stateChangeCounter.Inc(context.Background(),
			metrics.L(LabelBreaker, name),
			metrics.L(LabelFromState, gobreakerStateString(from)),
			metrics.L(LabelToState, gobreakerStateString(to)))
	}
}

// gobreakerStateString 将 gobreaker.State 转换为字符串
func gobreakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half_open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
