// Package connector 提供统一的连接管理能力。
//
// 治理层只依赖一个外部存储：共享限流计数所在的 Redis。连接器在启动时
// 显式建立连接并做一次健康检查（而不是每次调用前探测），组件只借用
// 连接器，不负责关闭它。
//
// 基本使用：
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{
//	    Addr: "127.0.0.1:6379",
//	}, connector.WithLogger(logger))
//	if err != nil {
//	    panic(err)
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//	    panic(err)
//	}
//	client := conn.GetClient()
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Connector 定义所有连接器的通用行为。
//
// 接口方法均为并发安全，可从多个协程同时调用。
type Connector interface {
	// Connect 建立连接。幂等，可安全多次调用。
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源。幂等。
	//
	// 应在应用层通过 defer 确保调用，遵循"谁创建，谁负责释放"原则。
	Close() error

	// HealthCheck 检查连接健康状态，并更新内部健康状态缓存。
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回缓存的健康状态，无阻塞。
	IsHealthy() bool

	// Name 返回连接实例名称，用于日志和指标标识。
	Name() string
}

// TypedConnector 提供类型安全的客户端访问。
//
// 类型参数 T 是客户端类型，如 *redis.Client。
type TypedConnector[T any] interface {
	Connector

	// GetClient 返回底层客户端实例。
	//
	// 注意：在 Connect() 之前或 Close() 之后调用可能返回 nil。
	GetClient() T
}

// RedisConnector Redis 连接器接口。
//
// 提供对 Redis 服务器的连接管理，支持连接池、Pipeline、事务等特性。
type RedisConnector interface {
	TypedConnector[*redis.Client]
}
