package breaker

// Metrics 指标常量定义
const (
	// MetricRejectsTotal 被熔断拒绝的调用数 (Counter)
	MetricRejectsTotal = "breaker_rejects_total"

	// MetricStateChanges 状态变更次数 (Counter)
	MetricStateChanges = "breaker_state_changes_total"

	// MetricCallDuration 受保护调用耗时 (Histogram)
	MetricCallDuration = "breaker_call_duration_seconds"

	// LabelBreaker 熔断器名字标签
	LabelBreaker = "breaker"

	// LabelFromState 源状态标签
	LabelFromState = "from_state"

	// LabelToState 目标状态标签
	LabelToState = "to_state"

	// LabelMethod gRPC 方法标签
	LabelMethod = "method"
)
