package ratelimit

// Metrics 指标常量定义
const (
	// MetricAllowed 允许通过的请求数 (Counter)
	MetricAllowed = "ratelimit_allowed_total"

	// MetricDenied 被拒绝的请求数 (Counter)
	MetricDenied = "ratelimit_denied_total"

	// MetricFailOpen 共享存储不可达导致的故障放行次数 (Counter)
	MetricFailOpen = "ratelimit_fail_open_total"

	// LabelBackend 后端标签 (local/redis)
	LabelBackend = "backend"

	// LabelWindow 窗口标签 (如 "1m0s"/"1h0m0s")
	LabelWindow = "window"
)
