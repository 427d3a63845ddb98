// Package breaker 提供熔断器组件，用于下游依赖的故障隔离与自动恢复。
//
// breaker 是治理层的故障隔离组件，它提供了：
// - 基于 gobreaker 的计数型熔断器实现
// - CLOSED / OPEN / HALF_OPEN 三态状态机：连续失败达到阈值后熔断，
//   冷却期后半开探测，连续成功达到阈值后闭合
// - Pool：按名字管理多个熔断器（按依赖独立熔断）
// - 熔断拒绝时返回带名字和状态的类型化错误（快速失败，不调用下游）
// - gRPC Client Interceptor 无侵入集成
//
// ## 基本使用
//
//	brk, _ := breaker.New("scoring-engine", &breaker.Config{
//	    FailureThreshold: 5,
//	    RecoveryTimeout:  60 * time.Second,
//	    SuccessThreshold: 1,
//	}, breaker.WithLogger(logger))
//
//	result, err := brk.Do(ctx, func(ctx context.Context) (any, error) {
//	    return client.Score(ctx, req)
//	})
//	var openErr *breaker.OpenError
//	if xerrors.As(err, &openErr) {
//	    // 依赖已知故障，调用未被尝试
//	}
//
// ## 按依赖管理
//
//	pool := breaker.NewPool(breaker.WithLogger(logger))
//	brk, _ := pool.GetOrCreate("scoring-engine", cfg)
//
// ## gRPC 集成
//
//	conn, _ := grpc.NewClient("localhost:9001",
//	    grpc.WithUnaryInterceptor(pool.UnaryClientInterceptor(cfg)),
//	)
package breaker

import (
	"context"
	"time"

	"github.com/doronpers/sono-eval/clog"
)

// ========================================
// 状态定义 (States)
// ========================================

// State 熔断器状态
type State int

const (
	// StateClosed 闭合状态（正常放行，统计连续失败）
	StateClosed State = iota
	// StateHalfOpen 半开状态（放行探测请求）
	StateHalfOpen
	// StateOpen 打开状态（熔断中，快速失败）
	StateOpen
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Breaker 熔断器核心接口
//
// 一个 Breaker 实例保护一个下游依赖。状态读取、判定与计数变更
// 在实现内部处于同一互斥段，两个并发调用者不会重复触发同一次
// 状态迁移。
type Breaker interface {
	// Do 执行受熔断保护的函数
	//
	// 熔断器打开时不调用 fn，直接返回 *OpenError；
	// fn 被实际调用时，其返回的错误原样透传。
	Do(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)

	// Name 返回熔断器名字（即所保护的依赖标识）
	Name() string

	// State 返回当前状态
	State() State

	// FailureCount 返回当前连续失败次数
	FailureCount() int

	// SuccessCount 返回当前连续成功次数
	SuccessCount() int
}

// ========================================
// 配置定义 (Configuration)
// ========================================

// Config 熔断策略配置
type Config struct {
	// FailureThreshold 触发熔断的连续失败次数（默认：5）
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold" mapstructure:"failure_threshold"`

	// RecoveryTimeout 打开状态的冷却时长（默认：60s）
	// 距最近一次失败超过该时长后，下一次调用进入半开探测
	RecoveryTimeout time.Duration `json:"recovery_timeout" yaml:"recovery_timeout" mapstructure:"recovery_timeout"`

	// SuccessThreshold 半开状态下闭合所需的连续成功次数（默认：1）
	SuccessThreshold int `json:"success_threshold" yaml:"success_threshold" mapstructure:"success_threshold"`
}

// setDefaults 填充默认值
func (c *Config) setDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建熔断器实例
//
// 这是标准的工厂函数，支持在不依赖 Pool 的情况下独立实例化。
func New(name string, cfg *Config, opts ...Option) (Breaker, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}
	if cfg == nil {
		return nil, ErrConfigNil
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
	logger = logger.With(clog.String("component", "breaker"))

	return newBreaker(name, cfg, logger, opt.meter), nil
}
