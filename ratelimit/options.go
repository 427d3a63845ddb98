package ratelimit

import (
	"github.com/doronpers/sono-eval/clog"
	"github.com/doronpers/sono-eval/connector"
	"github.com/doronpers/sono-eval/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	redisConn connector.RedisConnector
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("ratelimit")
		}
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithRedisConnector 设置 Redis 连接器（用于共享后端）
func WithRedisConnector(redisConn connector.RedisConnector) Option {
	return func(o *options) {
		o.redisConn = redisConn
	}
}
