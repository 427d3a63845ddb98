package connector

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doronpers/sono-eval/clog"
)

// ============================================================
// 辅助函数
// ============================================================

func newTestRedis(t *testing.T) (*miniredis.Miniredis, RedisConnector) {
	t.Helper()

	mr := miniredis.RunT(t)

	conn, err := NewRedis(&RedisConfig{
		Name: "test",
		Addr: mr.Addr(),
	}, WithLogger(clog.Discard()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return mr, conn
}

// ============================================================
// 基础功能测试
// ============================================================

func TestNewRedis_Validation(t *testing.T) {
	t.Run("nil 配置应返回错误", func(t *testing.T) {
		_, err := NewRedis(nil)
		assert.Error(t, err)
	})

	t.Run("缺少地址应返回错误", func(t *testing.T) {
		_, err := NewRedis(&RedisConfig{})
		assert.Error(t, err)
	})

	t.Run("默认名称为 default", func(t *testing.T) {
		conn, err := NewRedis(&RedisConfig{Addr: "127.0.0.1:6379"})
		require.NoError(t, err)
		assert.Equal(t, "default", conn.Name())
		_ = conn.Close()
	})
}

func TestRedisConnector_Lifecycle(t *testing.T) {
	mr, conn := newTestRedis(t)
	ctx := context.Background()

	t.Run("Connect 成功后应为健康状态", func(t *testing.T) {
		require.NoError(t, conn.Connect(ctx))
		assert.True(t, conn.IsHealthy())
	})

	t.Run("Connect 是幂等的", func(t *testing.T) {
		require.NoError(t, conn.Connect(ctx))
		require.NoError(t, conn.Connect(ctx))
	})

	t.Run("GetClient 返回可用客户端", func(t *testing.T) {
		client := conn.GetClient()
		require.NotNil(t, client)
		require.NoError(t, client.Set(ctx, "k", "v", 0).Err())

		got, err := client.Get(ctx, "k").Result()
		require.NoError(t, err)
		assert.Equal(t, "v", got)
	})

	t.Run("服务端关闭后健康检查应失败", func(t *testing.T) {
		mr.Close()
		assert.Error(t, conn.HealthCheck(ctx))
		assert.False(t, conn.IsHealthy())
	})
}

func TestRedisConnector_ConnectFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close() // 拿到地址后立刻关闭，制造连接失败

	conn, err := NewRedis(&RedisConfig{Addr: addr}, WithLogger(clog.Discard()))
	require.NoError(t, err)
	defer conn.Close()

	assert.Error(t, conn.Connect(context.Background()))
	assert.False(t, conn.IsHealthy())
}
