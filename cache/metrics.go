package cache

// Metrics 指标常量定义
const (
	// MetricEntries 当前缓存条目数 (Gauge)
	MetricEntries = "cache_entries"

	// MetricInvalidations 被失效的条目数 (Counter)
	MetricInvalidations = "cache_invalidations_total"
)
