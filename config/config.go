// Package config 提供统一的配置管理能力。
// 支持多源配置加载、热更新和配置验证，基于 Viper 实现。
//
// 特性：
//   - 多源配置加载：YAML/JSON 文件、环境变量、.env 文件
//   - 配置优先级：环境变量 > .env > 环境特定配置 > 基础配置
//   - 热更新支持：实时监听配置文件变化，自动通知应用
//   - 类型化的治理配置：限流、熔断、缓存策略一次加载，各组件取用
//
// 基本使用：
//
//	loader, _ := config.New(&config.Config{
//	    Name:      "config",
//	    Paths:     []string{"./config"},
//	    EnvPrefix: "SONO",
//	}, config.WithLogger(logger))
//	_ = loader.Load(ctx)
//
//	var settings config.Settings
//	_ = loader.Unmarshal(&settings)
//
//	// 监听配置变化
//	ch, _ := loader.Watch(ctx, "ratelimit.max_requests_per_minute")
//	for event := range ch {
//	    logger.Info("config changed", clog.String("key", event.Key))
//	}
package config

import (
	"context"
	"strings"
	"time"
)

// Loader 定义配置加载器的核心行为
// 职责：加载、解析和监听配置变化
type Loader interface {
	// Load 加载配置并初始化内部状态
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听配置变化，通过 context 取消监听
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 验证当前配置的有效性
	Validate() error
}

// Event 配置变更事件
type Event struct {
	Key       string // 配置 key
	Value     any    // 新值
	OldValue  any    // 旧值
	Source    string // "file" | "env"
	Timestamp time.Time
}

// Config 加载器配置
type Config struct {
	Name      string   // 配置文件名称（不含扩展名），默认 "config"
	Paths     []string // 配置文件搜索路径，默认 [".", "./config"]
	FileType  string   // 配置文件类型 (yaml, json, etc.)，默认 "yaml"
	EnvPrefix string   // 环境变量前缀，默认 "SONO"
}

// setDefaults 填充默认值
func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "config"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = "SONO"
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
}

// New 创建配置加载器
//
// cfg 为 nil 时使用默认配置。
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	return newLoader(cfg, &opt), nil
}
