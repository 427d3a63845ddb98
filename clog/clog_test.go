package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// 辅助函数
// ============================================================

func newBufferLogger(t *testing.T, cfg *Config, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	opts = append(opts, WithWriter(buf))
	logger, err := New(cfg, opts...)
	require.NoError(t, err)

	return logger, buf
}

func parseJSONLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

// ============================================================
// 基础功能测试
// ============================================================

func TestNew_Defaults(t *testing.T) {
	t.Run("nil 配置应使用默认值", func(t *testing.T) {
		logger, err := New(nil, WithWriter(&bytes.Buffer{}))
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("非法级别应返回错误", func(t *testing.T) {
		_, err := New(&Config{Level: "verbose"})
		assert.Error(t, err)
	})

	t.Run("非法格式应返回错误", func(t *testing.T) {
		_, err := New(&Config{Format: "xml"})
		assert.Error(t, err)
	})
}

func TestNew_AcceptedFormats(t *testing.T) {
	// 可用格式只有 json 和 console，大小写不敏感
	for _, format := range []string{"json", "console", "JSON", "Console"} {
		t.Run(format, func(t *testing.T) {
			logger, err := New(&Config{Level: "info", Format: format}, WithWriter(&bytes.Buffer{}))
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}

	for _, format := range []string{"text", "logfmt", "pretty"} {
		t.Run(format+" 应被拒绝", func(t *testing.T) {
			_, err := New(&Config{Level: "info", Format: format})
			assert.Error(t, err)
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	logger, buf := newBufferLogger(t, &Config{Level: "info", Format: "json"})

	logger.Info("request allowed", String("identity", "10.0.0.1"), Int("remaining", 42))

	entry := parseJSONLine(t, buf)
	assert.Equal(t, "request allowed", entry["msg"])
	assert.Equal(t, "10.0.0.1", entry["identity"])
	assert.Equal(t, float64(42), entry["remaining"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, &Config{Level: "warn", Format: "json"})

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	assert.Zero(t, buf.Len(), "低于 warn 级别的日志不应输出")

	logger.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogger_SetLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, &Config{Level: "error", Format: "json"})

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	require.NoError(t, logger.SetLevel(DebugLevel))
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestLogger_With(t *testing.T) {
	logger, buf := newBufferLogger(t, &Config{Level: "info", Format: "json"})

	child := logger.With(String("component", "ratelimit"))
	child.Info("check")

	entry := parseJSONLine(t, buf)
	assert.Equal(t, "ratelimit", entry["component"])
}

func TestLogger_WithNamespace(t *testing.T) {
	logger, buf := newBufferLogger(t, &Config{Level: "info", Format: "json"})

	child := logger.WithNamespace("middleware", "breaker")
	child.Info("state changed")

	entry := parseJSONLine(t, buf)
	assert.Equal(t, "middleware.breaker", entry[NamespaceKey])
}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newBufferLogger(t, &Config{Level: "info", Format: "json"},
		WithContextField("request_id", "request_id"))

	ctx := context.WithValue(context.Background(), "request_id", "req-123") //nolint:staticcheck
	logger.InfoContext(ctx, "handled")

	entry := parseJSONLine(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
}

func TestFields_Error(t *testing.T) {
	logger, buf := newBufferLogger(t, &Config{Level: "info", Format: "json"})

	logger.Error("redis down", Error(assert.AnError))
	entry := parseJSONLine(t, buf)
	assert.Equal(t, assert.AnError.Error(), entry["err_msg"])
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	// 所有调用都不应 panic
	logger.Info("ignored")
	logger.Error("ignored")
	assert.Equal(t, logger, logger.With(String("k", "v")))
	assert.Equal(t, logger, logger.WithNamespace("ns"))
	assert.NoError(t, logger.SetLevel(DebugLevel))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", DebugLevel, true},
		{"INFO", InfoLevel, true},
		{"Warn", WarnLevel, true},
		{"error", ErrorLevel, true},
		{"fatal", FatalLevel, true},
		{"trace", InfoLevel, false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}
