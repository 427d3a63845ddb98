package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doronpers/sono-eval/clog"
	"github.com/doronpers/sono-eval/xerrors"
)

// ============================================================
// 辅助函数
// ============================================================

func newTestCache(t *testing.T) Cache {
	t.Helper()

	c, err := New(&Config{Capacity: 1000}, WithLogger(clog.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

// countingFn 返回固定值并统计调用次数
func countingFn(value any) (func(ctx context.Context) (any, error), *atomic.Int64) {
	var calls atomic.Int64
	return func(ctx context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}, &calls
}

// ============================================================
// Do 核心语义
// ============================================================

func TestCache_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("TTL 内同键只调用一次底层函数", func(t *testing.T) {
		c := newTestCache(t)
		fn, calls := countingFn(10)
		key := NewKey("double", 5)

		for i := 0; i < 3; i++ {
			result, err := c.Do(ctx, key, time.Minute, fn)
			require.NoError(t, err)
			assert.Equal(t, 10, result)
		}

		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("TTL 过期后重新调用底层函数", func(t *testing.T) {
		c := newTestCache(t)
		fn, calls := countingFn(10)
		key := NewKey("double", 5)

		_, err := c.Do(ctx, key, time.Second, fn)
		require.NoError(t, err)
		_, err = c.Do(ctx, key, time.Second, fn)
		require.NoError(t, err)
		require.Equal(t, int64(1), calls.Load())

		time.Sleep(1100 * time.Millisecond)

		result, err := c.Do(ctx, key, time.Second, fn)
		require.NoError(t, err)
		assert.Equal(t, 10, result)
		assert.Equal(t, int64(2), calls.Load(), "过期后应触发第二次底层调用")
	})

	t.Run("不同参数各自缓存", func(t *testing.T) {
		c := newTestCache(t)
		var calls atomic.Int64
		compute := func(x int) (any, error) {
			calls.Add(1)
			return x * 2, nil
		}

		r1, err := c.Do(ctx, NewKey("double", 5), time.Minute, func(ctx context.Context) (any, error) { return compute(5) })
		require.NoError(t, err)
		r2, err := c.Do(ctx, NewKey("double", 7), time.Minute, func(ctx context.Context) (any, error) { return compute(7) })
		require.NoError(t, err)

		assert.Equal(t, 10, r1)
		assert.Equal(t, 14, r2)
		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("底层函数的错误永不缓存", func(t *testing.T) {
		c := newTestCache(t)
		errBoom := xerrors.New("boom")
		var calls atomic.Int64
		failing := func(ctx context.Context) (any, error) {
			calls.Add(1)
			return nil, errBoom
		}
		key := NewKey("flaky", 1)

		_, err := c.Do(ctx, key, time.Minute, failing)
		assert.Same(t, errBoom, err, "底层错误应原样透传")

		_, err = c.Do(ctx, key, time.Minute, failing)
		assert.Same(t, errBoom, err)
		assert.Equal(t, int64(2), calls.Load(), "失败后同键调用应重新调用底层函数")

		// 错误后成功的结果正常缓存
		fn, okCalls := countingFn("recovered")
		result, err := c.Do(ctx, key, time.Minute, fn)
		require.NoError(t, err)
		assert.Equal(t, "recovered", result)
		_, _ = c.Do(ctx, key, time.Minute, fn)
		assert.Equal(t, int64(1), okCalls.Load())
	})

	t.Run("缓存值按引用返回", func(t *testing.T) {
		c := newTestCache(t)
		key := NewKey("container")

		first, err := c.Do(ctx, key, time.Minute, func(ctx context.Context) (any, error) {
			return map[string]int{"n": 1}, nil
		})
		require.NoError(t, err)

		first.(map[string]int)["n"] = 99

		second, err := c.Do(ctx, key, time.Minute, func(ctx context.Context) (any, error) {
			t.Fatal("不应触发第二次计算")
			return nil, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 99, second.(map[string]int)["n"],
			"调用方的修改对后续命中可见（按引用返回，文档化行为）")
	})
}

// ============================================================
// Get / Invalidate / Reset
// ============================================================

func TestCache_Get(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	key := NewKey("score", 42)

	_, ok := c.Get(key)
	assert.False(t, ok)

	fn, _ := countingFn("cached")
	_, err := c.Do(ctx, key, time.Minute, fn)
	require.NoError(t, err)

	value, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "cached", value)
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()

	fill := func(t *testing.T, c Cache) {
		t.Helper()
		for _, site := range []string{"score", "score", "profile"} {
			fn, _ := countingFn(site)
			_, err := c.Do(ctx, NewKey(site, site, time.Now().UnixNano()), time.Minute, fn)
			require.NoError(t, err)
		}
	}

	t.Run("按模式失效只清除匹配的调用点", func(t *testing.T) {
		c := newTestCache(t)
		fill(t, c)

		removed := c.Invalidate("score")
		assert.Equal(t, 2, removed)

		// profile 条目保留
		stats := c.Stats()
		assert.Equal(t, 1, stats.Entries)
	})

	t.Run("空模式清除一切", func(t *testing.T) {
		c := newTestCache(t)
		fill(t, c)

		removed := c.Invalidate("")
		assert.Equal(t, 3, removed)
		assert.Equal(t, 0, c.Stats().Entries)
	})

	t.Run("失效后同键调用重新计算", func(t *testing.T) {
		c := newTestCache(t)
		fn, calls := countingFn(1)
		key := NewKey("score", 5)

		_, _ = c.Do(ctx, key, time.Minute, fn)
		c.Invalidate("score")
		_, _ = c.Do(ctx, key, time.Minute, fn)

		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("无匹配时返回 0", func(t *testing.T) {
		c := newTestCache(t)
		assert.Equal(t, 0, c.Invalidate("missing"))
	})
}

func TestCache_Reset(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	fn, _ := countingFn(1)
	_, err := c.Do(ctx, NewKey("a"), time.Minute, fn)
	require.NoError(t, err)
	require.Equal(t, 1, c.Stats().Entries)

	c.Reset()

	assert.Equal(t, 0, c.Stats().Entries)
	assert.Equal(t, 0, c.Stats().ApproxBytes)
}

// ============================================================
// 统计
// ============================================================

func TestCache_Stats(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	key := NewKey("score", 1)

	fn, _ := countingFn(map[string]any{"score": 0.92, "detail": "strong"})

	_, err := c.Do(ctx, key, time.Minute, fn) // miss
	require.NoError(t, err)
	_, err = c.Do(ctx, key, time.Minute, fn) // hit
	require.NoError(t, err)
	_, err = c.Do(ctx, key, time.Minute, fn) // hit
	require.NoError(t, err)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Greater(t, stats.ApproxBytes, 0, "msgpack 估算的内存占用应大于零")
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}
