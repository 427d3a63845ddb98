package testkit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/doronpers/sono-eval/clog"
	"github.com/doronpers/sono-eval/connector"
)

// NewMiniredis 启动一个 miniredis 伪服务器
// 生命周期由 t.Cleanup 管理
func NewMiniredis(t *testing.T) *miniredis.Miniredis {
	return miniredis.RunT(t)
}

// NewRedisConnector 返回连接到 miniredis 的 Redis 连接器
// 连同伪服务器一起返回，便于测试中直接操纵存储内容
func NewRedisConnector(t *testing.T) (connector.RedisConnector, *miniredis.Miniredis) {
	mr := NewMiniredis(t)

	conn, err := connector.NewRedis(&connector.RedisConfig{
		Name: "test-redis",
		Addr: mr.Addr(),
	}, connector.WithLogger(clog.Discard()))
	require.NoError(t, err, "failed to create redis connector")

	require.NoError(t, conn.Connect(context.Background()), "failed to connect to miniredis")

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn, mr
}

// NewRedisClient 返回连接到 miniredis 的原生 Redis 客户端
func NewRedisClient(t *testing.T) *redis.Client {
	conn, _ := NewRedisConnector(t)
	return conn.GetClient()
}

// FlushRedis 清空 Redis 数据库
func FlushRedis(t *testing.T, client *redis.Client) {
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}
}
