package breaker

import (
	"sync"

	"github.com/doronpers/sono-eval/clog"
	"github.com/doronpers/sono-eval/metrics"
)

// Pool 按名字管理多个熔断器的注册表
//
// 每个下游依赖对应一个独立熔断器，互不影响。注册表本身由一把
// 互斥锁保护，熔断器一经创建即不再替换，后续携带不同配置的
// GetOrCreate 调用返回已有实例并忽略新配置。
type Pool struct {
	mu       sync.Mutex
	breakers map[string]Breaker

	logger clog.Logger
	meter  metrics.Meter
}

// NewPool 创建熔断器注册表
func NewPool(opts ...Option) *Pool {
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	}

	return &Pool{
		breakers: make(map[string]Breaker),
		logger:   logger,
		meter:    opt.meter,
	}
}

// GetOrCreate 返回名字对应的熔断器，不存在时用给定配置创建
//
// 已存在时直接返回已有实例，cfg 被忽略。
func (p *Pool) GetOrCreate(name string, cfg *Config) (Breaker, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if brk, ok := p.breakers[name]; ok {
		return brk, nil
	}

	brk, err := New(name, cfg, WithLogger(p.logger), WithMeter(p.meter))
	if err != nil {
		return nil, err
	}
	p.breakers[name] = brk

	p.logger.Info("breaker registered", clog.String("name", name))
	return brk, nil
}

// Get 返回名字对应的熔断器，不存在时返回 ErrNotFound
func (p *Pool) Get(name string) (Breaker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	brk, ok := p.breakers[name]
	if !ok {
		return nil, ErrNotFound
	}
	return brk, nil
}

// Status 返回所有熔断器的 名字→状态 快照（用于观测）
func (p *Pool) Status() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := make(map[string]string, len(p.breakers))
	for name, brk := range p.breakers {
		status[name] = brk.State().String()
	}
	return status
}

// Reset 移除名字对应的熔断器，下一次 GetOrCreate 将重新创建
//
// 用于测试和运维场景的强制恢复。名字不存在时为空操作。
func (p *Pool) Reset(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.breakers[name]; ok {
		delete(p.breakers, name)
		p.logger.Info("breaker reset", clog.String("name", name))
	}
}
