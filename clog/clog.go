package clog

import "fmt"

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用默认配置（info 级别、console 格式、stdout 输出）。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = &Config{}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	options := applyOptions(opts...)

	return newLogger(config, options)
}
