package config

import "github.com/doronpers/sono-eval/xerrors"

// 错误定义
var (
	// ErrValidationFailed 配置验证失败
	ErrValidationFailed = xerrors.New("config: validation failed")

	// ErrInvalidSettings 治理配置取值非法
	ErrInvalidSettings = xerrors.New("config: invalid settings")
)
