package breaker

import (
	"fmt"

	"github.com/doronpers/sono-eval/xerrors"
)

// 错误定义
var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("breaker: config is nil")

	// ErrNameEmpty 熔断器名字为空
	ErrNameEmpty = xerrors.New("breaker: name is empty")

	// ErrNotFound 指定名字的熔断器不存在
	ErrNotFound = xerrors.New("breaker: breaker not found")
)

// CodeCircuitOpen 熔断拒绝的机器可读错误码
const CodeCircuitOpen = "CIRCUIT_OPEN"

// OpenError 熔断拒绝错误
//
// 调用未被尝试、被熔断器直接拒绝时返回。下游函数自身的错误
// 永远不会被包装为 OpenError。
type OpenError struct {
	// Name 拒绝请求的熔断器名字
	Name string

	// State 拒绝时的熔断器状态
	State State
}

// Error 实现 error 接口
func (e *OpenError) Error() string {
	return fmt.Sprintf("breaker: circuit %q is %s", e.Name, e.State)
}

// Code 返回机器可读错误码（与 xerrors.GetCode 协作）
func (e *OpenError) Code() string {
	return CodeCircuitOpen
}
