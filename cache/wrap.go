package cache

import (
	"context"
	"time"
)

// KeyFunc 自定义键生成函数，完全取代默认的键派生
// （例如刻意忽略某些参数）。
type KeyFunc func(site string, args ...any) Key

// WrapOption 装饰器选项函数
type WrapOption func(*wrapOptions)

// wrapOptions 装饰器内部配置（非导出）
type wrapOptions struct {
	keyFunc KeyFunc
}

// WithKeyFunc 设置自定义键生成函数
func WithKeyFunc(fn KeyFunc) WrapOption {
	return func(o *wrapOptions) {
		o.keyFunc = fn
	}
}

// defaultKeyFunc 默认键派生：调用点名 + 全部位置参数
func defaultKeyFunc(site string, args ...any) Key {
	return NewKey(site, args...)
}

// Wrap1 将单参数函数包装为记忆化函数
//
// TTL 内的同参调用只触发一次底层调用；底层函数报错时结果不缓存，
// 错误原样返回。
//
// 使用示例:
//
//	score := cache.Wrap1(c, "score", 30*time.Second, engine.Score)
//	result, err := score(ctx, candidateID)
func Wrap1[A any, R any](c Cache, site string, ttl time.Duration, fn func(ctx context.Context, a A) (R, error), opts ...WrapOption) func(ctx context.Context, a A) (R, error) {
	o := wrapOptions{keyFunc: defaultKeyFunc}
	for _, opt := range opts {
		opt(&o)
	}

	return func(ctx context.Context, a A) (R, error) {
		key := o.keyFunc(site, a)
		value, err := c.Do(ctx, key, ttl, func(ctx context.Context) (any, error) {
			return fn(ctx, a)
		})
		if err != nil {
			var zero R
			return zero, err
		}
		return value.(R), nil
	}
}

// Wrap2 将双参数函数包装为记忆化函数
func Wrap2[A any, B any, R any](c Cache, site string, ttl time.Duration, fn func(ctx context.Context, a A, b B) (R, error), opts ...WrapOption) func(ctx context.Context, a A, b B) (R, error) {
	o := wrapOptions{keyFunc: defaultKeyFunc}
	for _, opt := range opts {
		opt(&o)
	}

	return func(ctx context.Context, a A, b B) (R, error) {
		key := o.keyFunc(site, a, b)
		value, err := c.Do(ctx, key, ttl, func(ctx context.Context) (any, error) {
			return fn(ctx, a, b)
		})
		if err != nil {
			var zero R
			return zero, err
		}
		return value.(R), nil
	}
}
