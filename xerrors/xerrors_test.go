package xerrors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("包装非空错误应保留错误链", func(t *testing.T) {
		base := New("connection refused")
		wrapped := Wrap(base, "dial redis")

		require.Error(t, wrapped)
		assert.Equal(t, "dial redis: connection refused", wrapped.Error())
		assert.True(t, Is(wrapped, base))
	})

	t.Run("包装 nil 应返回 nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "context"))
		assert.Nil(t, Wrapf(nil, "context %d", 1))
	})
}

func TestWithCode(t *testing.T) {
	t.Run("错误码应可从错误链中提取", func(t *testing.T) {
		base := New("too many requests")
		coded := WithCode(base, "RATE_LIMIT_EXCEEDED")

		assert.Equal(t, "RATE_LIMIT_EXCEEDED", GetCode(coded))
		assert.True(t, Is(coded, base))
	})

	t.Run("多层包装后仍可提取错误码", func(t *testing.T) {
		base := New("circuit open")
		coded := WithCode(base, "CIRCUIT_OPEN")
		wrapped := Wrap(coded, "call scoring engine")

		assert.Equal(t, "CIRCUIT_OPEN", GetCode(wrapped))
	})

	t.Run("无错误码时返回空字符串", func(t *testing.T) {
		assert.Equal(t, "", GetCode(New("plain error")))
		assert.Equal(t, "", GetCode(nil))
	})

	t.Run("WithCode(nil) 应返回 nil", func(t *testing.T) {
		assert.Nil(t, WithCode(nil, "ANY"))
	})
}

func TestCodedError_Error(t *testing.T) {
	err := &CodedError{Code: "CIRCUIT_OPEN", Cause: New("breaker scoring is open")}
	assert.Equal(t, "[CIRCUIT_OPEN] breaker scoring is open", err.Error())
}

func TestMust(t *testing.T) {
	t.Run("err 为 nil 时返回值", func(t *testing.T) {
		v := Must(42, nil)
		assert.Equal(t, 42, v)
	})

	t.Run("err 非 nil 时 panic", func(t *testing.T) {
		assert.Panics(t, func() {
			Must(0, New("boom"))
		})
	})
}
