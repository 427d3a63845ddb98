package breaker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doronpers/sono-eval/clog"
	"github.com/doronpers/sono-eval/xerrors"
)

var errDownstream = xerrors.New("downstream unavailable")

// ============================================================
// 辅助函数
// ============================================================

func newTestBreaker(t *testing.T, cfg *Config) Breaker {
	t.Helper()

	brk, err := New("test-dependency", cfg, WithLogger(clog.Discard()))
	require.NoError(t, err)
	return brk
}

func failingCall(ctx context.Context) (any, error) {
	return nil, errDownstream
}

func succeedingCall(ctx context.Context) (any, error) {
	return "ok", nil
}

// ============================================================
// 创建与校验
// ============================================================

func TestNew_Validation(t *testing.T) {
	t.Run("空名字应返回错误", func(t *testing.T) {
		_, err := New("", &Config{})
		assert.ErrorIs(t, err, ErrNameEmpty)
	})

	t.Run("nil 配置应返回错误", func(t *testing.T) {
		_, err := New("x", nil)
		assert.ErrorIs(t, err, ErrConfigNil)
	})

	t.Run("零值配置填充默认值", func(t *testing.T) {
		cfg := &Config{}
		brk, err := New("x", cfg)
		require.NoError(t, err)
		assert.Equal(t, "x", brk.Name())
		assert.Equal(t, 5, cfg.FailureThreshold)
		assert.Equal(t, 60*time.Second, cfg.RecoveryTimeout)
		assert.Equal(t, 1, cfg.SuccessThreshold)
	})
}

// ============================================================
// 状态机
// ============================================================

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	brk := newTestBreaker(t, &Config{
		FailureThreshold: 2,
		RecoveryTimeout:  time.Minute,
	})

	require.Equal(t, StateClosed, brk.State())

	// 两次连续失败达到阈值，熔断器打开
	_, err := brk.Do(ctx, failingCall)
	assert.ErrorIs(t, err, errDownstream)
	_, err = brk.Do(ctx, failingCall)
	assert.ErrorIs(t, err, errDownstream)

	assert.Equal(t, StateOpen, brk.State())

	// 第三次调用被直接拒绝，下游函数未被调用
	invoked := false
	_, err = brk.Do(ctx, func(ctx context.Context) (any, error) {
		invoked = true
		return nil, nil
	})

	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, "test-dependency", openErr.Name)
	assert.Equal(t, StateOpen, openErr.State)
	assert.False(t, invoked, "熔断打开时不应调用下游函数")
	assert.Equal(t, CodeCircuitOpen, xerrors.GetCode(err))
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	ctx := context.Background()
	brk := newTestBreaker(t, &Config{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
	})

	_, _ = brk.Do(ctx, failingCall)
	_, _ = brk.Do(ctx, failingCall)
	assert.Equal(t, 2, brk.FailureCount())

	// 一次成功将连续失败清零
	_, err := brk.Do(ctx, succeedingCall)
	require.NoError(t, err)
	assert.Equal(t, 0, brk.FailureCount())

	// 再失败两次也不会打开
	_, _ = brk.Do(ctx, failingCall)
	_, _ = brk.Do(ctx, failingCall)
	assert.Equal(t, StateClosed, brk.State())
}

func TestBreaker_Recovery(t *testing.T) {
	ctx := context.Background()

	t.Run("冷却期后进入半开并实际探测", func(t *testing.T) {
		brk := newTestBreaker(t, &Config{
			FailureThreshold: 1,
			RecoveryTimeout:  50 * time.Millisecond,
			SuccessThreshold: 1,
		})

		_, _ = brk.Do(ctx, failingCall)
		require.Equal(t, StateOpen, brk.State())

		time.Sleep(80 * time.Millisecond)

		invoked := false
		_, err := brk.Do(ctx, func(ctx context.Context) (any, error) {
			invoked = true
			return "probe", nil
		})
		require.NoError(t, err)
		assert.True(t, invoked, "冷却期后的调用应被实际尝试")
		assert.Equal(t, StateClosed, brk.State())
	})

	t.Run("半开状态的失败立即回到打开", func(t *testing.T) {
		brk := newTestBreaker(t, &Config{
			FailureThreshold: 1,
			RecoveryTimeout:  50 * time.Millisecond,
			SuccessThreshold: 1,
		})

		_, _ = brk.Do(ctx, failingCall)
		time.Sleep(80 * time.Millisecond)

		_, err := brk.Do(ctx, failingCall)
		assert.ErrorIs(t, err, errDownstream)
		assert.Equal(t, StateOpen, brk.State())
		assert.Equal(t, 0, brk.SuccessCount())
	})

	t.Run("连续成功达到阈值后闭合并清零计数", func(t *testing.T) {
		brk := newTestBreaker(t, &Config{
			FailureThreshold: 1,
			RecoveryTimeout:  50 * time.Millisecond,
			SuccessThreshold: 2,
		})

		_, _ = brk.Do(ctx, failingCall)
		time.Sleep(80 * time.Millisecond)

		_, err := brk.Do(ctx, succeedingCall)
		require.NoError(t, err)
		assert.Equal(t, StateHalfOpen, brk.State(), "一次成功还不足以闭合")

		_, err = brk.Do(ctx, succeedingCall)
		require.NoError(t, err)
		assert.Equal(t, StateClosed, brk.State())
		assert.Equal(t, 0, brk.FailureCount())
		assert.Equal(t, 0, brk.SuccessCount())
	})
}

// ============================================================
// 错误透传
// ============================================================

func TestBreaker_ErrorPropagation(t *testing.T) {
	ctx := context.Background()
	brk := newTestBreaker(t, &Config{FailureThreshold: 10})

	t.Run("下游错误原样透传", func(t *testing.T) {
		_, err := brk.Do(ctx, failingCall)
		assert.Same(t, errDownstream, err, "下游错误不应被包装")
	})

	t.Run("下游返回值原样透传", func(t *testing.T) {
		result, err := brk.Do(ctx, succeedingCall)
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
	})
}

// ============================================================
// 并发安全
// ============================================================

func TestBreaker_ConcurrentTransition(t *testing.T) {
	ctx := context.Background()
	brk := newTestBreaker(t, &Config{
		FailureThreshold: 50,
		RecoveryTimeout:  time.Minute,
	})

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = brk.Do(ctx, failingCall)
		}()
	}
	wg.Wait()

	// 无论调度顺序如何，阈值只会被跨越一次
	assert.Equal(t, StateOpen, brk.State())
}
