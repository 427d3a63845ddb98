package breaker

import (
	"context"

	"google.golang.org/grpc"

	"github.com/doronpers/sono-eval/clog"
)

// KeyFunc 从 gRPC 调用上下文中提取熔断器名字
type KeyFunc func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string

// ServiceLevelKey 服务级别熔断（默认）
// 使用连接目标作为熔断维度
// 返回示例: "dns:///scoring-engine:9001"
func ServiceLevelKey() KeyFunc {
	return func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string {
		return cc.Target()
	}
}

// MethodLevelKey 方法级别熔断
// 返回示例: "/scoring.v1.ScoringService/Score"
func MethodLevelKey() KeyFunc {
	return func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string {
		return fullMethod
	}
}

// InterceptorOption 拦截器选项函数类型
type InterceptorOption func(*interceptorConfig)

// interceptorConfig 拦截器内部配置（非导出）
type interceptorConfig struct {
	keyFunc KeyFunc
}

// WithKeyFunc 设置熔断器名字生成函数
func WithKeyFunc(fn KeyFunc) InterceptorOption {
	return func(cfg *interceptorConfig) {
		cfg.keyFunc = fn
	}
}

// UnaryClientInterceptor 返回 gRPC 一元调用客户端拦截器
//
// 每个熔断维度（默认为连接目标）在 Pool 中对应一个独立熔断器，
// 使用给定配置按需创建。熔断拒绝时调用方收到 *OpenError，
// 下游自身的 gRPC 错误原样透传。
//
// 使用示例:
//
//	pool := breaker.NewPool(breaker.WithLogger(logger))
//	conn, _ := grpc.NewClient("localhost:9001",
//	    grpc.WithUnaryInterceptor(pool.UnaryClientInterceptor(cfg)),
//	)
func (p *Pool) UnaryClientInterceptor(cfg *Config, opts ...InterceptorOption) grpc.UnaryClientInterceptor {
	icfg := &interceptorConfig{keyFunc: ServiceLevelKey()}
	for _, o := range opts {
		o(icfg)
	}

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		name := icfg.keyFunc(ctx, method, cc)

		brk, err := p.GetOrCreate(name, cfg)
		if err != nil {
			return err
		}

		p.logger.Debug("unary call with circuit breaker",
			clog.String("name", name),
			clog.String("method", method))

		_, err = brk.Do(ctx, func(ctx context.Context) (any, error) {
			return nil, invoker(ctx, method, req, reply, cc, callOpts...)
		})
		return err
	}
}

// StreamClientInterceptor 返回 gRPC 流式调用客户端拦截器
//
// 熔断保护覆盖流的建立阶段，流建立后的消息收发不再计入统计。
func (p *Pool) StreamClientInterceptor(cfg *Config, opts ...InterceptorOption) grpc.StreamClientInterceptor {
	icfg := &interceptorConfig{keyFunc: ServiceLevelKey()}
	for _, o := range opts {
		o(icfg)
	}

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, callOpts ...grpc.CallOption) (grpc.ClientStream, error) {
		name := icfg.keyFunc(ctx, method, cc)

		brk, err := p.GetOrCreate(name, cfg)
		if err != nil {
			return nil, err
		}

		p.logger.Debug("stream call with circuit breaker",
			clog.String("name", name),
			clog.String("method", method))

		result, err := brk.Do(ctx, func(ctx context.Context) (any, error) {
			return streamer(ctx, desc, cc, method, callOpts...)
		})
		if err != nil {
			return nil, err
		}
		return result.(grpc.ClientStream), nil
	}
}
