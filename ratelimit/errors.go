package ratelimit

import "github.com/doronpers/sono-eval/xerrors"

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("ratelimit: config is nil")

	// ErrInvalidConfig 限流配置无效
	ErrInvalidConfig = xerrors.New("ratelimit: invalid config")

	// ErrConnectorNil 连接器为空
	ErrConnectorNil = xerrors.New("ratelimit: redis connector is nil")

	// ErrIdentityEmpty 限流标识为空
	ErrIdentityEmpty = xerrors.New("ratelimit: identity is empty")

	// ErrRateLimitExceeded 请求被限流窗口拒绝
	ErrRateLimitExceeded = xerrors.New("ratelimit: rate limit exceeded")
)

// CodeRateLimitExceeded 限流拒绝的机器可读错误码
// 上层服务据此翻译为"请降低请求频率"类响应（HTTP 429）。
const CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
